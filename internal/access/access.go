// Package access decides whether a caller may perform an action on an entity.
// Rules are static data; Authorize has no side effects.
package access

import (
	"github.com/google/uuid"

	"github.com/FACorreiaa/go-pedidos-api/internal/types"
)

type Entity string

const (
	User      Entity = "usuario"
	Product   Entity = "produto"
	Order     Entity = "pedido"
	OrderItem Entity = "pedido_produto"
)

type Action string

const (
	Create        Action = "create"
	List          Action = "list"
	Retrieve      Action = "retrieve"
	Update        Action = "update"
	PartialUpdate Action = "partial_update"
	Delete        Action = "destroy"
)

// Target identifies the object of a detail action, when there is one.
type Target struct {
	ID uuid.UUID
}

type rule func(caller *types.Caller, target Target) error

func allowAny(*types.Caller, Target) error { return nil }

func isAuthenticated(caller *types.Caller, _ Target) error {
	if caller == nil {
		return types.ErrUnauthenticated
	}
	return nil
}

func isAdmin(caller *types.Caller, _ Target) error {
	if caller == nil {
		return types.ErrUnauthenticated
	}
	if !caller.IsAdmin {
		return types.ErrForbidden
	}
	return nil
}

// isSelf is checked against the path id before any lookup, so a mismatch is
// forbidden even when the target does not exist.
func isSelf(caller *types.Caller, target Target) error {
	if caller == nil {
		return types.ErrUnauthenticated
	}
	if caller.UserID != target.ID {
		return types.ErrForbidden
	}
	return nil
}

type policy struct {
	actions  map[Action]rule
	fallback rule
}

var policies = map[Entity]policy{
	User: {
		actions: map[Action]rule{
			Create:        allowAny,
			List:          isAdmin,
			Retrieve:      isSelf,
			Update:        isSelf,
			PartialUpdate: isSelf,
			Delete:        isSelf,
		},
	},
	Product: {
		actions: map[Action]rule{
			List:          allowAny,
			Retrieve:      allowAny,
			Create:        isAdmin,
			Update:        isAdmin,
			PartialUpdate: isAdmin,
			Delete:        isAdmin,
		},
	},
	Order:     {fallback: isAuthenticated},
	OrderItem: {fallback: isAuthenticated},
}

// Authorize returns nil, types.ErrUnauthenticated or types.ErrForbidden.
// An explicit per-action rule wins over the entity default; with neither,
// the caller only needs to be authenticated.
func Authorize(entity Entity, action Action, caller *types.Caller, target Target) error {
	p, ok := policies[entity]
	if !ok {
		return isAuthenticated(caller, target)
	}
	if r, ok := p.actions[action]; ok {
		return r(caller, target)
	}
	if p.fallback != nil {
		return p.fallback(caller, target)
	}
	return isAuthenticated(caller, target)
}

// Scope restricts which rows of an entity a caller may see.
// All means unrestricted; otherwise only rows owned by OwnerID are visible.
type Scope struct {
	OwnerID uuid.UUID
	All     bool
}

// ScopeFor returns the row-level visibility of entity for an authenticated caller.
// Administrators see every order but line items stay restricted to the
// caller's own orders.
func ScopeFor(entity Entity, caller *types.Caller) Scope {
	if caller == nil {
		return Scope{}
	}
	if entity == Order && caller.IsAdmin {
		return Scope{All: true}
	}
	return Scope{OwnerID: caller.UserID}
}

// Allows reports whether the scope includes rows owned by owner.
func (s Scope) Allows(owner uuid.UUID) bool {
	return s.All || (s.OwnerID != uuid.Nil && s.OwnerID == owner)
}
