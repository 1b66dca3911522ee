// Package store persists user accounts and their saved study material. Two
// backends exist: a PostgREST client for hosted deployments and a direct
// PostgreSQL implementation for self-hosted ones. Both also serve JLPT
// vocabulary lookups from the shared jlptvocabulary table.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/kikitori/kikitori/internal/vocab"
)

// ErrConflict is returned by CreateUser when the username is already taken.
var ErrConflict = errors.New("store: already exists")

// User is a registered account. PasswordHash is the salted PBKDF2 hash
// produced by the auth package, never the plaintext password.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
}

// SavedBundle is the study material a user chose to keep: one transcription,
// its translation and the classified vocabulary. A user has at most one
// bundle; saving again replaces it.
type SavedBundle struct {
	UserID        int64        `json:"user_id"`
	Transcription string       `json:"transcription"`
	Translation   string       `json:"translation"`
	Vocabulary    vocab.Result `json:"vocabulary_list"`
}

// UserStore provides account persistence. Implementations must be safe for
// concurrent use.
type UserStore interface {
	// CreateUser inserts a new account and returns it with the assigned ID.
	// Returns [ErrConflict] if the username is already taken.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// GetUserByUsername retrieves an account by username. Returns (nil, nil)
	// if no such account exists.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// BundleStore persists saved study material.
type BundleStore interface {
	// SaveBundle creates or replaces the bundle for bundle.UserID.
	SaveBundle(ctx context.Context, bundle *SavedBundle) error

	// GetBundle retrieves the bundle for a user. Returns (nil, nil) if the
	// user has nothing saved.
	GetBundle(ctx context.Context, userID int64) (*SavedBundle, error)
}

// Store is the full persistence surface a backend must cover: accounts,
// bundles and vocabulary lookups.
type Store interface {
	UserStore
	BundleStore
	vocab.Lookup
}

// TransportError wraps a failure to reach the row store or an unexpected
// response from it.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("store: %s: unexpected status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
