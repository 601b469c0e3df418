package types

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered account. PasswordHash and Deleted never leave the server.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CPF          string    `json:"cpf"`
	RG           string    `json:"rg"`
	Endereco     string    `json:"endereco"`
	IsAdmin      bool      `json:"is_admin"`
	Deleted      bool      `json:"-"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// UserInput is the write shape for create, PUT and PATCH.
// Nil fields were absent from the request body.
type UserInput struct {
	Username *string `json:"username" validate:"required,notblank,max=150"`
	Email    *string `json:"email" validate:"required,email,max=254"`
	Password *string `json:"password" validate:"required,notblank"`
	CPF      *string `json:"cpf" validate:"required,cpf"`
	RG       *string `json:"rg" validate:"required,rg"`
	Endereco *string `json:"endereco" validate:"required,notblank,max=200"`
}

// Provided returns the struct field names present in the body, for partial validation.
func (in UserInput) Provided() []string {
	var fields []string
	if in.Username != nil {
		fields = append(fields, "Username")
	}
	if in.Email != nil {
		fields = append(fields, "Email")
	}
	if in.Password != nil {
		fields = append(fields, "Password")
	}
	if in.CPF != nil {
		fields = append(fields, "CPF")
	}
	if in.RG != nil {
		fields = append(fields, "RG")
	}
	if in.Endereco != nil {
		fields = append(fields, "Endereco")
	}
	return fields
}

// UserChanges carries the columns an update writes. PasswordHash is already hashed.
type UserChanges struct {
	Username     *string
	Email        *string
	PasswordHash *string
	CPF          *string
	RG           *string
	Endereco     *string
}
