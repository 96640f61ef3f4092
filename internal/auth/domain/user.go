package domain

import "time"

// Role is the coarse authorization level carried in session tokens.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string  // argon2id encoded
	Role         Role    // "user" or "admin"
	TOTPSecret   *string // base32 encoded (nullable)
	TwoFAEnabled bool    // true only when TOTPSecret is set
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the externally visible projection of a user record.
// Password hashes and TOTP secrets never leave the service.
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// Public strips the credential material from a user record.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
	}
}
