package types

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("authentication credentials were not provided or are invalid")
	ErrForbidden       = errors.New("you do not have permission to perform this action")
)

// FieldErrors maps a JSON field name to the problems found with it.
type FieldErrors map[string][]string

func (fe FieldErrors) Error() string {
	return "validation failed"
}

func (fe FieldErrors) Add(field, message string) {
	fe[field] = append(fe[field], message)
}
