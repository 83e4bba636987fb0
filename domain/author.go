package domain

import (
	"context"
	"time"
)

// User represents a user entity in the system.
// A user can share works, like them, and comment on them.
type User struct {
	ID        string    // Unique identifier (uuid)
	Name      string    // Display name
	Username  string    // Login username (unique)
	CreatedAt time.Time // Account creation timestamp
	UpdatedAt time.Time // Last profile update timestamp
}

// UserRepository defines the contract for user data persistence.
type UserRepository interface {
	// GetByID retrieves a user by their ID.
	// Returns ErrNotFound if the user doesn't exist.
	GetByID(ctx context.Context, id string) (User, error)

	GetByIDs(ctx context.Context, userIDs []string) ([]User, error)
}
