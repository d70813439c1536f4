package dto

import (
	"time"

	"github.com/spec-kit/bugtrack/internal/domain"
)

// UserRegisterRequest payload for new accounts. Role is honored only on the
// admin create-user route; self registration defaults to TESTER.
type UserRegisterRequest struct {
	Username string      `json:"username"`
	FullName string      `json:"full_name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

// UserLoginRequest payload for login. Username also accepts an email address.
type UserLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
