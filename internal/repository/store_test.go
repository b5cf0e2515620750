package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/weiawesome/vlog-interaction-service/internal/domain"
)

type storeFactory func(t *testing.T) Store

func newSQLiteStore(t *testing.T) Store {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	s := NewGormStore(db)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

// newSQLiteFileStore opens a WAL database file with several pooled
// connections so transactions really run side by side.
func newSQLiteFileStore(t *testing.T) Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "interaction.db")
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(8)
	t.Cleanup(func() { _ = sqlDB.Close() })

	s := NewGormStore(db)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func newMemStore(*testing.T) Store {
	return NewMemoryStore()
}

func TestStores(t *testing.T) {
	factories := map[string]storeFactory{
		"memory":      newMemStore,
		"sqlite":      newSQLiteStore,
		"sqlite-file": newSQLiteFileStore,
	}
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			t.Run("content counters clamp at zero", func(t *testing.T) { testCounterClamp(t, factory(t)) })
			t.Run("reaction pair is unique", func(t *testing.T) { testReactionPair(t, factory(t)) })
			t.Run("follow is set union", func(t *testing.T) { testFollowSetUnion(t, factory(t)) })
			t.Run("rollback discards writes", func(t *testing.T) { testRollback(t, factory(t)) })
			t.Run("comments", func(t *testing.T) { testComments(t, factory(t)) })
			t.Run("recount", func(t *testing.T) { testRecount(t, factory(t)) })
			t.Run("not found", func(t *testing.T) { testNotFound(t, factory(t)) })
			t.Run("concurrent same-pair toggles", func(t *testing.T) { testConcurrentToggles(t, factory(t)) })
			t.Run("concurrent duplicate follows", func(t *testing.T) { testConcurrentFollows(t, factory(t)) })
			t.Run("recount under concurrent writes", func(t *testing.T) { testRecountConcurrentWrites(t, factory(t)) })
		})
	}
}

func seed(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.CreateContent(ctx, &domain.Content{ID: "c1", AuthorID: "author", LikeCount: 1}))
	require.NoError(t, s.CreateUser(ctx, &domain.User{ID: "u1"}))
	require.NoError(t, s.CreateUser(ctx, &domain.User{ID: "u2"}))
}

func testCounterClamp(t *testing.T, s Store) {
	ctx := context.Background()
	seed(t, s)

	err := s.WithTransaction(ctx, func(tx Tx) error {
		if err := tx.IncrContentCounter(ctx, "c1", domain.CounterLikes, -5); err != nil {
			return err
		}
		if err := tx.IncrContentCounter(ctx, "c1", domain.CounterViews, 3); err != nil {
			return err
		}
		return tx.IncrUserCounter(ctx, "u1", domain.CounterFollowers, -1)
	})
	require.NoError(t, err)

	c, err := s.GetContent(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), c.LikeCount)
	assert.Equal(t, int64(3), c.ViewCount)

	u, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), u.FollowerCount)
}

func testReactionPair(t *testing.T, s Store) {
	ctx := context.Background()
	seed(t, s)

	require.NoError(t, s.WithTransaction(ctx, func(tx Tx) error {
		return tx.CreateReaction(ctx, &domain.Reaction{ContentID: "c1", UserID: "u1", Kind: domain.ReactionLike})
	}))

	err := s.WithTransaction(ctx, func(tx Tx) error {
		return tx.CreateReaction(ctx, &domain.Reaction{ContentID: "c1", UserID: "u1", Kind: domain.ReactionDislike})
	})
	assert.ErrorIs(t, err, ErrConflict)

	reactions, err := s.FindReactions(ctx, "c1", "u1")
	require.NoError(t, err)
	require.Len(t, reactions, 1)
	assert.Equal(t, domain.ReactionLike, reactions[0].Kind)

	var removed bool
	require.NoError(t, s.WithTransaction(ctx, func(tx Tx) error {
		var err error
		removed, err = tx.DeleteReaction(ctx, "c1", "u1", domain.ReactionDislike)
		return err
	}))
	assert.False(t, removed, "deleting the other kind must not touch the like")

	require.NoError(t, s.WithTransaction(ctx, func(tx Tx) error {
		var err error
		removed, err = tx.DeleteReaction(ctx, "c1", "u1", domain.ReactionLike)
		return err
	}))
	assert.True(t, removed)
}

func testFollowSetUnion(t *testing.T, s Store) {
	ctx := context.Background()
	seed(t, s)

	var first, second bool
	require.NoError(t, s.WithTransaction(ctx, func(tx Tx) error {
		var err error
		first, err = tx.AddFollow(ctx, "u1", "u2")
		if err != nil {
			return err
		}
		second, err = tx.AddFollow(ctx, "u1", "u2")
		return err
	}))
	assert.True(t, first)
	assert.False(t, second)

	ok, err := s.IsFollowing(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.IsFollowing(ctx, "u2", "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	var removed bool
	require.NoError(t, s.WithTransaction(ctx, func(tx Tx) error {
		var err error
		removed, err = tx.RemoveFollow(ctx, "u1", "u2")
		return err
	}))
	assert.True(t, removed)

	require.NoError(t, s.WithTransaction(ctx, func(tx Tx) error {
		var err error
		removed, err = tx.RemoveFollow(ctx, "u1", "u2")
		return err
	}))
	assert.False(t, removed)
}

func testRollback(t *testing.T, s Store) {
	ctx := context.Background()
	seed(t, s)

	boom := errors.New("boom")
	err := s.WithTransaction(ctx, func(tx Tx) error {
		if err := tx.CreateReaction(ctx, &domain.Reaction{ContentID: "c1", UserID: "u1", Kind: domain.ReactionLike}); err != nil {
			return err
		}
		if err := tx.IncrContentCounter(ctx, "c1", domain.CounterLikes, 1); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	c, err := s.GetContent(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.LikeCount)

	reactions, err := s.FindReactions(ctx, "c1", "u1")
	require.NoError(t, err)
	assert.Empty(t, reactions)
}

func testComments(t *testing.T, s Store) {
	ctx := context.Background()
	seed(t, s)

	created := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.WithTransaction(ctx, func(tx Tx) error {
		return tx.CreateComment(ctx, &domain.Comment{
			ID: "cm1", ContentID: "c1", AuthorID: "u1", Text: "nice", CreatedAt: created,
		})
	}))

	cm, err := s.GetComment(ctx, "cm1")
	require.NoError(t, err)
	assert.Equal(t, "c1", cm.ContentID)
	assert.Equal(t, "u1", cm.AuthorID)
	assert.Equal(t, "nice", cm.Text)

	var deleted bool
	require.NoError(t, s.WithTransaction(ctx, func(tx Tx) error {
		var err error
		deleted, err = tx.DeleteComment(ctx, "cm1")
		return err
	}))
	assert.True(t, deleted)

	_, err = s.GetComment(ctx, "cm1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func testRecount(t *testing.T, s Store) {
	ctx := context.Background()
	seed(t, s)

	// Edges without counter updates simulate drift.
	require.NoError(t, s.WithTransaction(ctx, func(tx Tx) error {
		if err := tx.CreateReaction(ctx, &domain.Reaction{ContentID: "c1", UserID: "u1", Kind: domain.ReactionDislike}); err != nil {
			return err
		}
		if err := tx.CreateComment(ctx, &domain.Comment{ID: "cm1", ContentID: "c1", AuthorID: "u2", Text: "x", CreatedAt: time.Now()}); err != nil {
			return err
		}
		_, err := tx.AddFollow(ctx, "u1", "u2")
		return err
	}))

	require.NoError(t, s.RecountContent(ctx, "c1"))
	require.NoError(t, s.RecountUser(ctx, "u1"))
	require.NoError(t, s.RecountUser(ctx, "u2"))

	c, err := s.GetContent(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), c.LikeCount)
	assert.Equal(t, int64(1), c.DislikeCount)
	assert.Equal(t, int64(1), c.CommentCount)

	u1, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), u1.FollowingCount)
	assert.Equal(t, int64(0), u1.FollowerCount)

	u2, err := s.GetUser(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), u2.FollowerCount)
}

func testNotFound(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.GetContent(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetComment(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.CreateUser(ctx, &domain.User{ID: "dup"})
	require.NoError(t, err)
	assert.ErrorIs(t, s.CreateUser(ctx, &domain.User{ID: "dup"}), ErrConflict)
}

// toggleLike flips the like edge of one pair together with its counter.
func toggleLike(ctx context.Context, s Store, contentID, userID string) error {
	return s.WithTransaction(ctx, func(tx Tx) error {
		existing, err := tx.FindReactions(ctx, contentID, userID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			removed, err := tx.DeleteReaction(ctx, contentID, userID, domain.ReactionLike)
			if err != nil {
				return err
			}
			if !removed {
				return ErrConflict
			}
			return tx.IncrContentCounter(ctx, contentID, domain.CounterLikes, -1)
		}
		if err := tx.CreateReaction(ctx, &domain.Reaction{ContentID: contentID, UserID: userID, Kind: domain.ReactionLike}); err != nil {
			return err
		}
		return tx.IncrContentCounter(ctx, contentID, domain.CounterLikes, 1)
	})
}

func testConcurrentToggles(t *testing.T, s Store) {
	ctx := context.Background()
	seed(t, s)
	require.NoError(t, s.CreateContent(ctx, &domain.Content{ID: "c2", AuthorID: "author"}))

	const workers = 24
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := toggleLike(ctx, s, "c2", "u1")
			if err != nil {
				assert.ErrorIs(t, err, ErrConflict)
				return
			}
			mu.Lock()
			succeeded++
			mu.Unlock()
		}()
	}
	wg.Wait()

	reactions, err := s.FindReactions(ctx, "c2", "u1")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(reactions), 1)
	assert.Equal(t, succeeded%2, len(reactions), "each committed toggle flips the edge once")

	c, err := s.GetContent(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, int64(len(reactions)), c.LikeCount)
}

func testConcurrentFollows(t *testing.T, s Store) {
	ctx := context.Background()
	seed(t, s)

	const workers = 16
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		added int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.WithTransaction(ctx, func(tx Tx) error {
				ok, err := tx.AddFollow(ctx, "u1", "u2")
				if err != nil || !ok {
					return err
				}
				if err := tx.IncrUserCounter(ctx, "u2", domain.CounterFollowers, 1); err != nil {
					return err
				}
				if err := tx.IncrUserCounter(ctx, "u1", domain.CounterFollowing, 1); err != nil {
					return err
				}
				mu.Lock()
				added++
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, added, "exactly one insert wins")

	u1, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), u1.FollowingCount)

	u2, err := s.GetUser(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), u2.FollowerCount)
}

func testRecountConcurrentWrites(t *testing.T, s Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateContent(ctx, &domain.Content{ID: "c3", AuthorID: "author", LikeCount: 5}))

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, toggleLike(ctx, s, "c3", fmt.Sprintf("user-%d", i)))
		}(i)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.RecountContent(ctx, "c3"))
		}()
	}
	wg.Wait()

	c, err := s.GetContent(ctx, "c3")
	require.NoError(t, err)
	assert.Equal(t, int64(writers), c.LikeCount, "a recount must never drop a committed like")
}

func TestMemoryStore_ExpiredContextAborts(t *testing.T) {
	s := NewMemoryStore()
	seed(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	err := s.WithTransaction(ctx, func(tx Tx) error {
		if err := tx.IncrContentCounter(ctx, "c1", domain.CounterViews, 1); err != nil {
			return err
		}
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	c, err := s.GetContent(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), c.ViewCount)
}
