package api

import (
	"time"

	"github.com/keygate-dev/keygate/internal/domain"
)

// Request DTOs

type RegisterRequest struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required"`
}

// Response DTOs
// All responses share the {success, message, ...} envelope. The password
// hash and one-time token digests never appear in any response.

type User struct {
	Id              domain.UserId `json:"id"`
	Name            string        `json:"name"`
	Email           string        `json:"email"`
	Role            domain.Role   `json:"role"`
	IsEmailVerified bool          `json:"isEmailVerified"`
	CreatedAt       time.Time     `json:"createdAt"`
}

// NewUser converts a domain user to its public view.
func NewUser(u domain.User) User {
	return User{
		Id:              u.Id,
		Name:            u.Name,
		Email:           u.Email,
		Role:            u.Role,
		IsEmailVerified: u.IsEmailVerified,
		CreatedAt:       u.CreatedAt,
	}
}

type RegisterResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	User    User   `json:"user"`
}

type LoginResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	AccessToken string `json:"accessToken"`
	User        User   `json:"user"`
}

type RefreshTokenResponse struct {
	Success     bool   `json:"success"`
	AccessToken string `json:"accessToken"`
	User        User   `json:"user"`
}

type ProfileResponse struct {
	Success bool `json:"success"`
	User    User `json:"user"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorResponse is the envelope for every failure. ExpiredAt is set only
// when an access token was rejected because it expired, so clients can
// tell "refresh and retry" apart from a malformed credential.
type ErrorResponse struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message"`
	ExpiredAt *time.Time `json:"expiredAt,omitempty"`
}
