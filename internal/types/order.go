package types

import (
	"time"

	"github.com/google/uuid"
)

// Order belongs to exactly one user, fixed at creation.
type Order struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"usuario"`
	Endereco  string    `json:"endereco"`
	Feito     time.Time `json:"feito"`
	Deleted   bool      `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

type OrderInput struct {
	Endereco *string `json:"endereco" validate:"required,notblank,max=200"`
}

func (in OrderInput) Provided() []string {
	if in.Endereco != nil {
		return []string{"Endereco"}
	}
	return nil
}

// OrderItem is one product line in an order.
type OrderItem struct {
	ID         uuid.UUID `json:"id"`
	OrderID    uuid.UUID `json:"pedido"`
	ProductID  uuid.UUID `json:"produto"`
	Quantidade int       `json:"quantidade"`
	Deleted    bool      `json:"-"`
	CreatedAt  time.Time `json:"-"`
	UpdatedAt  time.Time `json:"-"`
}

type OrderItemInput struct {
	ProductID  *uuid.UUID `json:"produto" validate:"required"`
	Quantidade *int       `json:"quantidade" validate:"required,min=1"`
}

func (in OrderItemInput) Provided() []string {
	var fields []string
	if in.ProductID != nil {
		fields = append(fields, "ProductID")
	}
	if in.Quantidade != nil {
		fields = append(fields, "Quantidade")
	}
	return fields
}
