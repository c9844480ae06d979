package auth

import (
	"errors"
	"time"
)

var (
	// ErrValidation flags missing or malformed input fields.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials indicates a login failure. Shared between the
	// unknown-email and wrong-password cases so callers cannot tell which
	// half of the pair was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailExists signals a duplicate email registration.
	ErrEmailExists = errors.New("email already registered")
	// ErrTokenInvalid means a supplied token cannot be validated.
	ErrTokenInvalid = errors.New("token invalid or expired")
	// ErrUserNotFound indicates missing user.
	ErrUserNotFound = errors.New("user not found")
)

// User models the authentication entity persisted in storage. PasswordHash
// holds a bcrypt digest; the plaintext never reaches a repository.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Credentials captures raw credential input for login.
type Credentials struct {
	Email    string
	Password string
}
