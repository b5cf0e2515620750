package service

import (
	"context"
	"errors"
	"time"

	"github.com/weiawesome/vlog-interaction-service/internal/domain"
	"github.com/weiawesome/vlog-interaction-service/internal/events"
	"github.com/weiawesome/vlog-interaction-service/internal/metrics"
	"github.com/weiawesome/vlog-interaction-service/internal/repository"
	"github.com/weiawesome/vlog-interaction-service/internal/store"
	pkglog "github.com/weiawesome/vlog-interaction-service/pkg/log"
)

// Operation names used in logs and metrics.
const (
	OpToggleLike     = "toggle_like"
	OpToggleDislike  = "toggle_dislike"
	OpReactionStatus = "reaction_status"
	OpFollow         = "follow"
	OpUnfollow       = "unfollow"
	OpFollowStatus   = "follow_status"
	OpAddComment     = "add_comment"
	OpDeleteComment  = "delete_comment"
	OpRecordView     = "record_view"
)

// Engine implements InteractionService on top of a durable store and a fast
// dedup store. It holds no mutable state of its own and is safe for
// concurrent use.
type Engine struct {
	reactions *ReactionManager
	graph     *GraphManager
	comments  *CommentCounter
	views     *ViewRecorder

	hooks sideEffects
	now   func() time.Time
}

// NewEngine wires the managers. dedup may be nil, in which case every view is
// counted in degraded mode.
func NewEngine(repo repository.Store, dedup store.DedupStore, cfg Config, opts ...Option) *Engine {
	cfg = cfg.withDefaults()

	e := &Engine{
		hooks: sideEffects{publisher: events.NopPublisher{}, timeout: cfg.DedupTimeout},
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	tx := txRunner{repo: repo, timeout: cfg.TxTimeout}
	e.reactions = &ReactionManager{repo: repo, tx: tx, effects: e.hooks}
	e.graph = &GraphManager{repo: repo, tx: tx, effects: e.hooks}
	e.comments = &CommentCounter{repo: repo, tx: tx, effects: e.hooks, maxLength: cfg.CommentMaxLength, now: e.now}
	e.views = &ViewRecorder{
		repo:         repo,
		dedup:        dedup,
		tx:           tx,
		effects:      e.hooks,
		window:       cfg.ViewWindow,
		dedupTimeout: cfg.DedupTimeout,
	}
	return e
}

func (e *Engine) ToggleLike(ctx context.Context, contentID, userID string) (state *domain.ReactionState, err error) {
	defer e.observe(ctx, OpToggleLike, time.Now(), &err)
	return e.reactions.Toggle(ctx, contentID, userID, domain.ReactionLike)
}

func (e *Engine) ToggleDislike(ctx context.Context, contentID, userID string) (state *domain.ReactionState, err error) {
	defer e.observe(ctx, OpToggleDislike, time.Now(), &err)
	return e.reactions.Toggle(ctx, contentID, userID, domain.ReactionDislike)
}

func (e *Engine) ReactionStatus(ctx context.Context, contentID, userID string) (state *domain.ReactionState, err error) {
	defer e.observe(ctx, OpReactionStatus, time.Now(), &err)
	return e.reactions.Status(ctx, contentID, userID)
}

func (e *Engine) FollowUser(ctx context.Context, followerID, followeeID string) (state *domain.FollowState, err error) {
	defer e.observe(ctx, OpFollow, time.Now(), &err)
	return e.graph.Follow(ctx, followerID, followeeID)
}

func (e *Engine) UnfollowUser(ctx context.Context, followerID, followeeID string) (state *domain.FollowState, err error) {
	defer e.observe(ctx, OpUnfollow, time.Now(), &err)
	return e.graph.Unfollow(ctx, followerID, followeeID)
}

func (e *Engine) FollowStatus(ctx context.Context, userID, viewerID string) (state *domain.FollowState, err error) {
	defer e.observe(ctx, OpFollowStatus, time.Now(), &err)
	return e.graph.Status(ctx, userID, viewerID)
}

func (e *Engine) AddComment(ctx context.Context, contentID, userID, text string) (res *domain.CommentResult, err error) {
	defer e.observe(ctx, OpAddComment, time.Now(), &err)
	return e.comments.Add(ctx, contentID, userID, text)
}

func (e *Engine) DeleteComment(ctx context.Context, contentID, commentID, userID string, isPrivileged bool) (res *domain.CommentDeleteResult, err error) {
	defer e.observe(ctx, OpDeleteComment, time.Now(), &err)
	return e.comments.Delete(ctx, contentID, commentID, userID, isPrivileged)
}

func (e *Engine) RecordView(ctx context.Context, contentID, viewerID string) (res *domain.ViewResult, err error) {
	defer e.observe(ctx, OpRecordView, time.Now(), &err)
	return e.views.Record(ctx, contentID, viewerID)
}

// observe records the outcome of op. Uncategorised storage failures are
// logged with their cause; client errors only at debug.
func (e *Engine) observe(ctx context.Context, op string, start time.Time, errp *error) {
	err := *errp
	metrics.ObserveOperation(op, resultLabel(err), time.Since(start))
	if err == nil {
		return
	}

	l := pkglog.Ctx(ctx)
	if IsRetryable(err) {
		ev := l.Error().Str(pkglog.FieldOperation, op).Str("error", err.Error())
		if cause := errors.Unwrap(err); cause != nil {
			ev = ev.AnErr("cause", cause)
		}
		ev.Msg("interaction transaction aborted")
		return
	}
	l.Debug().Err(err).Str(pkglog.FieldOperation, op).Msg("interaction rejected")
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrInvalidOperation):
		return "invalid_operation"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrTransactionAborted):
		return "aborted"
	case errors.Is(err, ErrDependencyUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

// Ensure interface is satisfied at compile time.
var _ InteractionService = (*Engine)(nil)
