package reconciler

import (
	"context"
	"time"

	"github.com/weiawesome/vlog-interaction-service/internal/metrics"
	"github.com/weiawesome/vlog-interaction-service/internal/store"
	pkglog "github.com/weiawesome/vlog-interaction-service/pkg/log"
)

// Config holds reconciler settings.
type Config struct {
	Enabled  bool
	Interval time.Duration
	TopN     int
}

// Recounter recomputes denormalized counters from edge rows.
type Recounter interface {
	RecountContent(ctx context.Context, contentID string) error
	RecountUser(ctx context.Context, userID string) error
}

// Reconciler periodically recomputes the counters of the most frequently
// mutated records. View counts have no edge rows and are left alone.
type Reconciler struct {
	tracker store.DirtyTracker
	repo    Recounter
	cfg     Config
	quit    chan struct{}
	doneCh  chan struct{}
}

// New creates a new Reconciler.
func New(tracker store.DirtyTracker, repo Recounter, cfg Config) *Reconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 100
	}
	return &Reconciler{
		tracker: tracker,
		repo:    repo,
		cfg:     cfg,
		quit:    make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start launches the reconciler in a background goroutine.
func (r *Reconciler) Start(ctx context.Context) {
	go r.run(ctx)
}

// Stop signals the reconciler to stop and returns immediately.
// Call Done() to wait for it to exit.
func (r *Reconciler) Stop() {
	close(r.quit)
}

// Done returns a channel that is closed when the reconciler has fully stopped.
func (r *Reconciler) Done() <-chan struct{} {
	return r.doneCh
}

func (r *Reconciler) run(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.quit:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce reconciles both scopes and returns how many records were recomputed.
func (r *Reconciler) RunOnce(ctx context.Context) int {
	return r.reconcile(ctx, store.ScopeContent, r.repo.RecountContent) +
		r.reconcile(ctx, store.ScopeUser, r.repo.RecountUser)
}

func (r *Reconciler) reconcile(ctx context.Context, scope store.Scope, recount func(context.Context, string) error) int {
	l := pkglog.L()

	// 1. Fetch the top-N dirty records
	records, err := r.tracker.TopDirty(ctx, scope, int64(r.cfg.TopN))
	if err != nil {
		l.Error().Err(err).Str("scope", string(scope)).Msg("reconciler: failed to get dirty records")
		return 0
	}
	if len(records) == 0 {
		l.Debug().Str("scope", string(scope)).Msg("reconciler: nothing to reconcile")
		return 0
	}

	// 2. Recompute each from its edge rows
	done := make([]store.DirtyRecord, 0, len(records))
	for _, rec := range records {
		if err := recount(ctx, rec.ID); err != nil {
			l.Error().Err(err).Str("scope", string(scope)).Str("id", rec.ID).Msg("reconciler: failed to recount")
			continue
		}
		done = append(done, rec)
	}
	metrics.ObserveReconciled(string(scope), len(done))

	// 3. Clear only what was recounted; failures and later marks stay tracked
	if err := r.tracker.ClearDirty(ctx, scope, done...); err != nil {
		l.Error().Err(err).Str("scope", string(scope)).Msg("reconciler: failed to clear dirty records")
	}

	l.Info().Str("scope", string(scope)).Int("count", len(done)).Msg("reconciler: reconciliation complete")
	return len(done)
}
