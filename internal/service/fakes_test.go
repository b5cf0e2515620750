package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/weiawesome/vlog-interaction-service/internal/domain"
	"github.com/weiawesome/vlog-interaction-service/internal/events"
	"github.com/weiawesome/vlog-interaction-service/internal/repository"
	"github.com/weiawesome/vlog-interaction-service/internal/store"
)

// fakeDedup is an in-memory DedupStore with a controllable clock.
type fakeDedup struct {
	mu   sync.Mutex
	keys map[string]time.Time
	now  time.Time
	down bool
}

func newFakeDedup() *fakeDedup {
	return &fakeDedup{keys: make(map[string]time.Time), now: time.Unix(1_700_000_000, 0)}
}

func (d *fakeDedup) SetIfAbsent(_ context.Context, key string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.down {
		return false, fmt.Errorf("%w: connection refused", store.ErrUnavailable)
	}
	if exp, ok := d.keys[key]; ok && d.now.Before(exp) {
		return false, nil
	}
	d.keys[key] = d.now.Add(ttl)
	return true, nil
}

func (d *fakeDedup) advance(dur time.Duration) {
	d.mu.Lock()
	d.now = d.now.Add(dur)
	d.mu.Unlock()
}

func (d *fakeDedup) setDown(down bool) {
	d.mu.Lock()
	d.down = down
	d.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e *events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type recordingTracker struct {
	mu    sync.Mutex
	dirty map[store.Scope]map[string]int
}

func newRecordingTracker() *recordingTracker {
	return &recordingTracker{dirty: make(map[store.Scope]map[string]int)}
}

func (t *recordingTracker) MarkDirty(_ context.Context, scope store.Scope, ids ...string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dirty[scope] == nil {
		t.dirty[scope] = make(map[string]int)
	}
	for _, id := range ids {
		t.dirty[scope][id]++
	}
	return nil
}

func (t *recordingTracker) TopDirty(context.Context, store.Scope, int64) ([]store.DirtyRecord, error) {
	return nil, nil
}

func (t *recordingTracker) ClearDirty(context.Context, store.Scope, ...store.DirtyRecord) error {
	return nil
}

func (t *recordingTracker) count(scope store.Scope, id string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dirty[scope][id]
}

// failingTxStore fails every transaction with err.
type failingTxStore struct {
	*repository.MemoryStore
	err error
}

func (s *failingTxStore) WithTransaction(context.Context, func(repository.Tx) error) error {
	return s.err
}

// blockingTxStore holds every transaction until its context ends.
type blockingTxStore struct {
	*repository.MemoryStore
}

func (s *blockingTxStore) WithTransaction(ctx context.Context, _ func(repository.Tx) error) error {
	<-ctx.Done()
	return fmt.Errorf("begin: %w", ctx.Err())
}

// brokenReadStore commits transactions normally but fails reads made outside them.
type brokenReadStore struct {
	*repository.MemoryStore
}

var errReadFailed = errors.New("replica unavailable")

func (s *brokenReadStore) GetContent(context.Context, string) (*domain.Content, error) {
	return nil, errReadFailed
}

func (s *brokenReadStore) GetUser(context.Context, string) (*domain.User, error) {
	return nil, errReadFailed
}

// hangingReadStore commits transactions normally but holds reads made outside
// them until their context ends.
type hangingReadStore struct {
	*repository.MemoryStore
}

func (s *hangingReadStore) GetContent(ctx context.Context, _ string) (*domain.Content, error) {
	<-ctx.Done()
	return nil, fmt.Errorf("read content: %w", ctx.Err())
}

func (s *hangingReadStore) GetUser(ctx context.Context, _ string) (*domain.User, error) {
	<-ctx.Done()
	return nil, fmt.Errorf("read user: %w", ctx.Err())
}
