package service

import (
	"time"

	"github.com/weiawesome/vlog-interaction-service/internal/events"
	"github.com/weiawesome/vlog-interaction-service/internal/store"
)

// Defaults applied to zero Config fields.
const (
	DefaultViewWindow       = 24 * time.Hour
	DefaultTxTimeout        = 5 * time.Second
	DefaultDedupTimeout     = 300 * time.Millisecond
	DefaultCommentMaxLength = 500
)

// Config tunes the engine.
type Config struct {
	// ViewWindow is how long a (content, viewer) pair stays deduplicated.
	ViewWindow time.Duration
	// TxTimeout bounds each durable transaction and each read made outside one.
	TxTimeout time.Duration
	// DedupTimeout bounds each fast store call; past it the store counts as unavailable.
	DedupTimeout time.Duration
	// CommentMaxLength is the maximum comment length in characters.
	CommentMaxLength int
}

func (c Config) withDefaults() Config {
	if c.ViewWindow <= 0 {
		c.ViewWindow = DefaultViewWindow
	}
	if c.TxTimeout <= 0 {
		c.TxTimeout = DefaultTxTimeout
	}
	if c.DedupTimeout <= 0 {
		c.DedupTimeout = DefaultDedupTimeout
	}
	if c.CommentMaxLength <= 0 {
		c.CommentMaxLength = DefaultCommentMaxLength
	}
	return c
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithPublisher sets where committed interactions are published.
func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) { e.hooks.publisher = p }
}

// WithDirtyTracker sets where mutated records are marked for reconciliation.
func WithDirtyTracker(t store.DirtyTracker) Option {
	return func(e *Engine) { e.hooks.tracker = t }
}

// WithClock overrides the clock used for comment timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}
