package types

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Caller is the authenticated principal of a request. A nil *Caller is anonymous.
type Caller struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// Claims are the custom claims carried by an access token.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type LoginRequest struct {
	Email    string `json:"email" example:"user@example.com"`
	Password string `json:"password" example:"password123"`
}

type TokenPair struct {
	Access  string `json:"access" example:"eyJhbGciOiJI..."`
	Refresh string `json:"refresh" example:"4f1trt8s..."`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" example:"4f1trt8s..."`
}

type AccessToken struct {
	Access string `json:"access" example:"eyJhbGciOiJI..."`
}

// Response is the error envelope written by the api helpers.
type Response struct {
	Success   bool                `json:"success" example:"false"`
	Error     string              `json:"error,omitempty" example:"Not found."`
	Fields    map[string][]string `json:"fields,omitempty"`
	RequestID string              `json:"request_id,omitempty"`
}
