package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/FACorreiaa/go-pedidos-api/internal/types"
)

const maxBodyBytes = 1_048_576

// ErrorResponse writes a standard JSON error response including request ID.
func ErrorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	WriteJSONResponse(w, r, status, types.Response{
		Success:   false,
		Error:     message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// FieldErrorResponse writes an error response carrying per-field messages.
func FieldErrorResponse(w http.ResponseWriter, r *http.Request, status int, message string, fields types.FieldErrors) {
	WriteJSONResponse(w, r, status, types.Response{
		Success:   false,
		Error:     message,
		Fields:    fields,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// WriteJSONResponse encodes data and writes it with the given status.
func WriteJSONResponse(w http.ResponseWriter, r *http.Request, status int, data any) {
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}

	js, err := json.Marshal(data)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to marshal JSON response",
			slog.Any("error", err),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(js); err != nil {
		slog.ErrorContext(r.Context(), "Failed to write response body",
			slog.Any("error", err),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	}
}

// DecodeJSONBody reads a single JSON object into dst. Keys dst does not
// declare are ignored, so read-only fields sent by clients have no effect.
// A declared key sent as null is a field error, never a missing field.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var raw json.RawMessage
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&raw); err != nil {
		return decodeError(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		if fields := nullFields(obj, dst); len(fields) > 0 {
			return fields
		}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return decodeError(err)
	}
	return nil
}

func decodeError(err error) error {
	var syntaxError *json.SyntaxError
	var unmarshalTypeError *json.UnmarshalTypeError
	var invalidUnmarshalError *json.InvalidUnmarshalError
	var maxBytesError *http.MaxBytesError

	switch {
	case errors.As(err, &syntaxError):
		return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
	case errors.Is(err, io.ErrUnexpectedEOF):
		return errors.New("body contains badly-formed JSON")
	case errors.As(err, &unmarshalTypeError):
		if unmarshalTypeError.Field != "" {
			return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
		}
		return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
	case errors.Is(err, io.EOF):
		return errors.New("body must not be empty")
	case errors.As(err, &maxBytesError):
		return fmt.Errorf("body must not be larger than %d bytes", maxBytesError.Limit)
	case errors.As(err, &invalidUnmarshalError):
		panic(fmt.Errorf("invalid argument passed to json decoder: %w", err))
	default:
		return fmt.Errorf("error decoding JSON body: %w", err)
	}
}

// nullFields lists the keys dst declares that obj carries as JSON null.
func nullFields(obj map[string]json.RawMessage, dst any) types.FieldErrors {
	t := reflect.TypeOf(dst)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	fields := types.FieldErrors{}
	for i := range t.NumField() {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		if v, ok := obj[name]; ok && bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			fields.Add(name, "This field may not be null.")
		}
	}
	return fields
}

// DecodeError answers 400 for a DecodeJSONBody failure, with per-field
// messages when the body named fields as null.
func DecodeError(w http.ResponseWriter, r *http.Request, err error) {
	var fields types.FieldErrors
	if errors.As(err, &fields) {
		FieldErrorResponse(w, r, http.StatusBadRequest, "validation failed", fields)
		return
	}
	ErrorResponse(w, r, http.StatusBadRequest, err.Error())
}

// PathUUID parses a chi URL parameter. A malformed id cannot name any entity,
// so callers answer 404 when ok is false.
func PathUUID(r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// NotFound writes the standard 404 body.
func NotFound(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, r, http.StatusNotFound, "Not found.")
}

// AccessError writes the response for an access.Authorize failure.
func AccessError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, types.ErrUnauthenticated):
		w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
		ErrorResponse(w, r, http.StatusUnauthorized, "Authentication credentials were not provided.")
	case errors.Is(err, types.ErrForbidden):
		ErrorResponse(w, r, http.StatusForbidden, "You do not have permission to perform this action.")
	default:
		ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error.")
	}
}

// ServiceError maps an error returned by a service onto an HTTP response.
func ServiceError(w http.ResponseWriter, r *http.Request, l *slog.Logger, err error) {
	var fields types.FieldErrors
	switch {
	case errors.As(err, &fields) && errors.Is(err, types.ErrConflict):
		FieldErrorResponse(w, r, http.StatusConflict, "conflict", fields)
	case errors.As(err, &fields):
		FieldErrorResponse(w, r, http.StatusBadRequest, "validation failed", fields)
	case errors.Is(err, types.ErrConflict):
		ErrorResponse(w, r, http.StatusConflict, "conflict")
	case errors.Is(err, types.ErrNotFound):
		NotFound(w, r)
	case errors.Is(err, types.ErrUnauthenticated), errors.Is(err, types.ErrForbidden):
		AccessError(w, r, err)
	default:
		l.ErrorContext(r.Context(), "Unhandled service error", slog.Any("error", err))
		ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error.")
	}
}
