package domain

import "time"

type UserId = int64

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// TokenData is the stored half of an outstanding one-time token.
// Only the digest is kept; the plaintext exists solely in the email
// sent to the user.
type TokenData struct {
	Digest  string
	Expires time.Time
}

type User struct {
	Id              UserId
	Name            string
	Email           string
	PassHash        string
	Role            Role
	IsEmailVerified bool

	// Nil unless a token of that kind is outstanding.
	// Issuing a new token overwrites the previous pair.
	EmailVerification *TokenData
	PasswordReset     *TokenData

	CreatedAt time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
