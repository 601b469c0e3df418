package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/FACorreiaa/go-pedidos-api/internal/types"
)

var (
	cpfPattern = regexp.MustCompile(`^\d{3}\.\d{3}\.\d{3}-\d{2}$`)
	rgPattern  = regexp.MustCompile(`^\d+$`)
)

// RequestValidator validates write payloads and reports problems keyed by JSON field name.
type RequestValidator struct {
	validate *validator.Validate
}

func New() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// registration only fails for empty tags or nil funcs
	_ = v.RegisterValidation("cpf", func(fl validator.FieldLevel) bool {
		return cpfPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("rg", func(fl validator.FieldLevel) bool {
		return rgPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return &RequestValidator{validate: v}
}

// Struct validates every field of s.
func (rv *RequestValidator) Struct(s any) error {
	return rv.translate(rv.validate.Struct(s))
}

// Partial validates only the named struct fields of s.
func (rv *RequestValidator) Partial(s any, fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	return rv.translate(rv.validate.StructPartial(s, fields...))
}

func (rv *RequestValidator) translate(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}
	out := types.FieldErrors{}
	for _, fe := range verrs {
		out.Add(fe.Field(), message(fe))
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "notblank":
		return "This field may not be blank."
	case "email":
		return "Enter a valid email address."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "cpf":
		return "Enter a valid CPF in the format 000.000.000-00."
	case "rg":
		return "Enter a valid RG containing digits only."
	default:
		return fmt.Sprintf("Invalid value (%s).", fe.Tag())
	}
}
