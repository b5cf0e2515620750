package service

import (
	"context"
	"time"

	"github.com/weiawesome/vlog-interaction-service/internal/domain"
	"github.com/weiawesome/vlog-interaction-service/internal/events"
	"github.com/weiawesome/vlog-interaction-service/internal/metrics"
	"github.com/weiawesome/vlog-interaction-service/internal/repository"
	"github.com/weiawesome/vlog-interaction-service/internal/store"
	pkglog "github.com/weiawesome/vlog-interaction-service/pkg/log"
)

// ViewRecorder counts views at most once per viewer per window. When the
// dedup store cannot be reached every view is counted and the result is
// flagged as degraded.
type ViewRecorder struct {
	repo         repository.Store
	dedup        store.DedupStore
	tx           txRunner
	effects      sideEffects
	window       time.Duration
	dedupTimeout time.Duration
}

// Record counts one view of contentID by viewerID.
func (m *ViewRecorder) Record(ctx context.Context, contentID, viewerID string) (*domain.ViewResult, error) {
	if contentID == "" {
		return nil, validation("content id is required")
	}
	if viewerID == "" {
		return nil, validation("viewer id is required")
	}

	first, degraded := m.claim(ctx, contentID, viewerID)
	if !first && !degraded {
		readCtx, cancel := m.tx.readCtx(ctx)
		defer cancel()
		content, err := m.repo.GetContent(readCtx, contentID)
		if err != nil {
			return nil, translate(notFoundOr(err, "content", contentID))
		}
		return &domain.ViewResult{Incremented: false, Views: content.ViewCount}, nil
	}

	var fallback int64
	err := m.tx.run(ctx, func(tx repository.Tx) error {
		content, err := tx.GetContent(ctx, contentID)
		if err != nil {
			return notFoundOr(err, "content", contentID)
		}
		if err := tx.IncrContentCounter(ctx, contentID, domain.CounterViews, 1); err != nil {
			return err
		}
		fallback = content.ViewCount + 1
		return nil
	})
	if err != nil {
		return nil, err
	}

	l := pkglog.Ctx(ctx)
	if degraded {
		metrics.ObserveDegradedView()
	}

	event := events.New(events.ViewRecorded, viewerID)
	event.ContentID = contentID
	event.Degraded = degraded
	m.effects.afterCommit(ctx, event)

	views := fallback
	readCtx, cancel := m.tx.readCtx(ctx)
	defer cancel()
	if content, err := m.repo.GetContent(readCtx, contentID); err != nil {
		l.Warn().Err(err).Str(pkglog.FieldContentID, contentID).Msg("post-commit view count read failed, returning in-transaction count")
	} else {
		views = content.ViewCount
	}
	return &domain.ViewResult{Incremented: true, Views: views, Degraded: degraded}, nil
}

// claim reports whether this is the first view in the window. degraded is
// true when the dedup store failed and the view must be counted unchecked.
func (m *ViewRecorder) claim(ctx context.Context, contentID, viewerID string) (first, degraded bool) {
	if m.dedup == nil {
		return true, true
	}

	dctx, cancel := context.WithTimeout(ctx, m.dedupTimeout)
	defer cancel()

	first, err := m.dedup.SetIfAbsent(dctx, store.ViewKey(contentID, viewerID), m.window)
	if err != nil {
		l := pkglog.Ctx(ctx)
		l.Warn().Err(err).
			Str(pkglog.FieldContentID, contentID).
			Str(pkglog.FieldViewerID, viewerID).
			Msg("view dedup store unavailable, counting view without deduplication")
		return true, true
	}
	return first, false
}
