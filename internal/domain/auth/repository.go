package auth

import "context"

// UserRepository defines persistence operations for auth users. Users are
// immutable after creation; there is no update or delete path.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}
