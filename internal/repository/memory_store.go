package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/weiawesome/vlog-interaction-service/internal/domain"
)

type pair struct {
	a, b string
}

// memState is one consistent snapshot of every table.
type memState struct {
	contents  map[string]domain.Content
	users     map[string]domain.User
	reactions map[pair]domain.Reaction // (content, user)
	follows   map[pair]domain.Follow   // (follower, followee)
	comments  map[string]domain.Comment
}

func newMemState() *memState {
	return &memState{
		contents:  make(map[string]domain.Content),
		users:     make(map[string]domain.User),
		reactions: make(map[pair]domain.Reaction),
		follows:   make(map[pair]domain.Follow),
		comments:  make(map[string]domain.Comment),
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		contents:  make(map[string]domain.Content, len(s.contents)),
		users:     make(map[string]domain.User, len(s.users)),
		reactions: make(map[pair]domain.Reaction, len(s.reactions)),
		follows:   make(map[pair]domain.Follow, len(s.follows)),
		comments:  make(map[string]domain.Comment, len(s.comments)),
	}
	for k, v := range s.contents {
		c.contents[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.reactions {
		c.reactions[k] = v
	}
	for k, v := range s.follows {
		c.follows[k] = v
	}
	for k, v := range s.comments {
		c.comments[k] = v
	}
	return c
}

// MemoryStore implements Store in process memory. Transactions are serialized
// and run against a private copy of the state that replaces the shared state
// only on commit. It backs the "memory" database driver and the tests.
type MemoryStore struct {
	mu    sync.RWMutex
	state *memState
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState(), now: time.Now}
}

func (s *MemoryStore) read() memReader {
	return memReader{st: s.state}
}

func (s *MemoryStore) GetContent(ctx context.Context, id string) (*domain.Content, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetContent(ctx, id)
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetUser(ctx, id)
}

func (s *MemoryStore) GetComment(ctx context.Context, id string) (*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetComment(ctx, id)
}

func (s *MemoryStore) FindReactions(ctx context.Context, contentID, userID string) ([]domain.Reaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().FindReactions(ctx, contentID, userID)
}

func (s *MemoryStore) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().IsFollowing(ctx, followerID, followeeID)
}

// WithTransaction runs fn against a copy of the state. A context that expires
// while fn runs aborts the transaction even if fn succeeded.
func (s *MemoryStore) WithTransaction(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.state.clone()
	if err := fn(&memTx{memReader: memReader{st: work}, now: s.now}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.state = work
	return nil
}

func (s *MemoryStore) RecountContent(_ context.Context, contentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.state.contents[contentID]
	if !ok {
		return nil
	}
	c.LikeCount, c.DislikeCount, c.CommentCount = 0, 0, 0
	for _, r := range s.state.reactions {
		if r.ContentID != contentID {
			continue
		}
		switch r.Kind {
		case domain.ReactionLike:
			c.LikeCount++
		case domain.ReactionDislike:
			c.DislikeCount++
		}
	}
	for _, cm := range s.state.comments {
		if cm.ContentID == contentID {
			c.CommentCount++
		}
	}
	s.state.contents[contentID] = c
	return nil
}

func (s *MemoryStore) RecountUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.state.users[userID]
	if !ok {
		return nil
	}
	u.FollowerCount, u.FollowingCount = 0, 0
	for k := range s.state.follows {
		if k.b == userID {
			u.FollowerCount++
		}
		if k.a == userID {
			u.FollowingCount++
		}
	}
	s.state.users[userID] = u
	return nil
}

func (s *MemoryStore) CreateContent(_ context.Context, c *domain.Content) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.state.contents[c.ID]; exists {
		return ErrConflict
	}
	s.state.contents[c.ID] = *c
	return nil
}

func (s *MemoryStore) CreateUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.state.users[u.ID]; exists {
		return ErrConflict
	}
	s.state.users[u.ID] = *u
	return nil
}

// memReader reads from a state snapshot. The caller holds the store lock.
type memReader struct {
	st *memState
}

func (r memReader) GetContent(_ context.Context, id string) (*domain.Content, error) {
	c, ok := r.st.contents[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (r memReader) GetUser(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.st.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r memReader) GetComment(_ context.Context, id string) (*domain.Comment, error) {
	c, ok := r.st.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (r memReader) FindReactions(_ context.Context, contentID, userID string) ([]domain.Reaction, error) {
	if re, ok := r.st.reactions[pair{contentID, userID}]; ok {
		return []domain.Reaction{re}, nil
	}
	return nil, nil
}

func (r memReader) IsFollowing(_ context.Context, followerID, followeeID string) (bool, error) {
	_, ok := r.st.follows[pair{followerID, followeeID}]
	return ok, nil
}

type memTx struct {
	memReader
	now func() time.Time
}

func (t *memTx) CreateReaction(_ context.Context, r *domain.Reaction) error {
	key := pair{r.ContentID, r.UserID}
	if _, exists := t.st.reactions[key]; exists {
		return ErrConflict
	}
	r.CreatedAt = t.now()
	t.st.reactions[key] = *r
	return nil
}

func (t *memTx) DeleteReaction(_ context.Context, contentID, userID string, kind domain.ReactionKind) (bool, error) {
	key := pair{contentID, userID}
	if re, ok := t.st.reactions[key]; ok && re.Kind == kind {
		delete(t.st.reactions, key)
		return true, nil
	}
	return false, nil
}

func (t *memTx) AddFollow(_ context.Context, followerID, followeeID string) (bool, error) {
	key := pair{followerID, followeeID}
	if _, exists := t.st.follows[key]; exists {
		return false, nil
	}
	t.st.follows[key] = domain.Follow{FollowerID: followerID, FolloweeID: followeeID, CreatedAt: t.now()}
	return true, nil
}

func (t *memTx) RemoveFollow(_ context.Context, followerID, followeeID string) (bool, error) {
	key := pair{followerID, followeeID}
	if _, exists := t.st.follows[key]; !exists {
		return false, nil
	}
	delete(t.st.follows, key)
	return true, nil
}

func (t *memTx) CreateComment(_ context.Context, c *domain.Comment) error {
	if _, exists := t.st.comments[c.ID]; exists {
		return ErrConflict
	}
	t.st.comments[c.ID] = *c
	return nil
}

func (t *memTx) DeleteComment(_ context.Context, id string) (bool, error) {
	if _, exists := t.st.comments[id]; !exists {
		return false, nil
	}
	delete(t.st.comments, id)
	return true, nil
}

func (t *memTx) IncrContentCounter(_ context.Context, contentID string, counter domain.ContentCounter, delta int64) error {
	c, ok := t.st.contents[contentID]
	if !ok {
		return nil
	}
	switch counter {
	case domain.CounterLikes:
		c.LikeCount = clamp(c.LikeCount + delta)
	case domain.CounterDislikes:
		c.DislikeCount = clamp(c.DislikeCount + delta)
	case domain.CounterComments:
		c.CommentCount = clamp(c.CommentCount + delta)
	case domain.CounterViews:
		c.ViewCount = clamp(c.ViewCount + delta)
	default:
		return fmt.Errorf("unknown content counter %q", counter)
	}
	t.st.contents[contentID] = c
	return nil
}

func (t *memTx) IncrUserCounter(_ context.Context, userID string, counter domain.UserCounter, delta int64) error {
	u, ok := t.st.users[userID]
	if !ok {
		return nil
	}
	switch counter {
	case domain.CounterFollowers:
		u.FollowerCount = clamp(u.FollowerCount + delta)
	case domain.CounterFollowing:
		u.FollowingCount = clamp(u.FollowingCount + delta)
	default:
		return fmt.Errorf("unknown user counter %q", counter)
	}
	t.st.users[userID] = u
	return nil
}

func clamp(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

// Ensure interfaces are satisfied at compile time.
var (
	_ Store = (*MemoryStore)(nil)
	_ Tx    = (*memTx)(nil)
)
