package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	Department string `json:"department"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AccountResponse is the public view of an account.
type AccountResponse struct {
	ID         string      `json:"id"`
	Username   string      `json:"username"`
	Role       domain.Role `json:"role"`
	Department string      `json:"department"`
	CreatedAt  time.Time   `json:"created_at"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AccountView maps a domain account, omitting the credential hash.
func AccountView(account *domain.Account) AccountResponse {
	return AccountResponse{
		ID:         account.ID,
		Username:   account.Username,
		Role:       account.Role,
		Department: account.Department,
		CreatedAt:  account.CreatedAt,
	}
}
