package service

import (
	"context"
	"errors"
	"time"

	"github.com/weiawesome/vlog-interaction-service/internal/events"
	"github.com/weiawesome/vlog-interaction-service/internal/metrics"
	"github.com/weiawesome/vlog-interaction-service/internal/repository"
	"github.com/weiawesome/vlog-interaction-service/internal/store"
	pkglog "github.com/weiawesome/vlog-interaction-service/pkg/log"
)

// txRunner runs durable transactions under the configured timeout.
type txRunner struct {
	repo    repository.Store
	timeout time.Duration
}

// run executes fn in one transaction and maps failures onto the error taxonomy.
func (r txRunner) run(ctx context.Context, fn func(tx repository.Tx) error) error {
	txCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err := r.repo.WithTransaction(txCtx, fn)
	if err == nil {
		return nil
	}

	var typed *Error
	if !errors.As(err, &typed) && txCtx.Err() != nil {
		// Drivers do not always wrap the context error they stopped on.
		err = errors.Join(txCtx.Err(), err)
	}
	return translate(err)
}

// readCtx bounds a read made outside a transaction by the same timeout.
func (r txRunner) readCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

type dirtyMark struct {
	scope store.Scope
	id    string
}

func contentMark(id string) dirtyMark { return dirtyMark{scope: store.ScopeContent, id: id} }

func userMark(id string) dirtyMark { return dirtyMark{scope: store.ScopeUser, id: id} }

// sideEffects holds the best-effort work that follows a commit. Failures are
// logged and counted, never returned: the mutation already happened.
type sideEffects struct {
	publisher events.Publisher
	tracker   store.DirtyTracker
	timeout   time.Duration
}

func (s sideEffects) afterCommit(ctx context.Context, event *events.Event, marks ...dirtyMark) {
	// The caller may hang up right after the commit; the bookkeeping still runs.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	l := pkglog.Ctx(ctx)

	if s.publisher != nil && event != nil {
		if err := s.publisher.Publish(ctx, event); err != nil {
			metrics.ObserveSideEffectFailure("publish")
			l.Warn().Err(err).Str(pkglog.FieldEventType, string(event.Type)).Msg("failed to publish interaction event")
		}
	}

	if s.tracker == nil {
		return
	}
	byScope := make(map[store.Scope][]string, 2)
	for _, m := range marks {
		byScope[m.scope] = append(byScope[m.scope], m.id)
	}
	for scope, ids := range byScope {
		if err := s.tracker.MarkDirty(ctx, scope, ids...); err != nil {
			metrics.ObserveSideEffectFailure("track")
			l.Warn().Err(err).Str("scope", string(scope)).Strs("ids", ids).Msg("failed to mark counters dirty")
		}
	}
}
