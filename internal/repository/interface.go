package repository

import (
	"context"
	"errors"

	"github.com/weiawesome/vlog-interaction-service/internal/domain"
)

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a concurrent writer changed the rows a
	// transaction depends on. The transaction is rolled back and may be retried.
	ErrConflict = errors.New("write conflict")
)

// Reader holds the read operations available both inside and outside a transaction.
type Reader interface {
	GetContent(ctx context.Context, id string) (*domain.Content, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetComment(ctx context.Context, id string) (*domain.Comment, error)
	// FindReactions returns the reactions of userID on contentID (zero or one
	// with the pair index, but callers must not assume it).
	FindReactions(ctx context.Context, contentID, userID string) ([]domain.Reaction, error)
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)
}

// Tx is a unit of work. Every mutation made through a Tx commits together or
// not at all.
type Tx interface {
	Reader

	// CreateReaction inserts a reaction edge. A conflicting edge for the same
	// pair yields ErrConflict.
	CreateReaction(ctx context.Context, r *domain.Reaction) error
	// DeleteReaction removes the edge and reports whether a row was removed.
	DeleteReaction(ctx context.Context, contentID, userID string, kind domain.ReactionKind) (bool, error)

	// AddFollow inserts the edge if absent and reports whether it was inserted.
	AddFollow(ctx context.Context, followerID, followeeID string) (bool, error)
	// RemoveFollow deletes the edge and reports whether it existed.
	RemoveFollow(ctx context.Context, followerID, followeeID string) (bool, error)

	CreateComment(ctx context.Context, c *domain.Comment) error
	DeleteComment(ctx context.Context, id string) (bool, error)

	// IncrContentCounter adds delta to the counter atomically, never letting it
	// drop below zero.
	IncrContentCounter(ctx context.Context, contentID string, counter domain.ContentCounter, delta int64) error
	// IncrUserCounter adds delta to the counter atomically, never letting it
	// drop below zero.
	IncrUserCounter(ctx context.Context, userID string, counter domain.UserCounter, delta int64) error
}

// Store is the durable store adapter.
type Store interface {
	Reader

	// WithTransaction runs fn in a transaction. It commits when fn returns nil
	// and rolls back otherwise, returning fn's error unchanged.
	WithTransaction(ctx context.Context, fn func(tx Tx) error) error

	// RecountContent sets like, dislike and comment counters to the number of
	// matching edge rows.
	RecountContent(ctx context.Context, contentID string) error
	// RecountUser sets follower and following counters to the number of
	// matching follow rows.
	RecountUser(ctx context.Context, userID string) error

	// CreateContent and CreateUser register the records owned by the content
	// and user services so that interactions can reference them.
	CreateContent(ctx context.Context, c *domain.Content) error
	CreateUser(ctx context.Context, u *domain.User) error
}
