package types

import (
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID        uuid.UUID `json:"id"`
	Nome      string    `json:"nome"`
	Descricao string    `json:"descricao"`
	Deleted   bool      `json:"-"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

type ProductInput struct {
	Nome      *string `json:"nome" validate:"required,notblank,max=100"`
	Descricao *string `json:"descricao" validate:"required,notblank,max=300"`
}

func (in ProductInput) Provided() []string {
	var fields []string
	if in.Nome != nil {
		fields = append(fields, "Nome")
	}
	if in.Descricao != nil {
		fields = append(fields, "Descricao")
	}
	return fields
}
