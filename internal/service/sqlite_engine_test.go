package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/weiawesome/vlog-interaction-service/internal/repository"
)

func newSQLiteEngine(t *testing.T) (*Engine, *repository.GormStore) {
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

	repo := repository.NewGormStore(db)
	require.NoError(t, repo.Migrate(context.Background()))
	seed(t, repo)
	return NewEngine(repo, newFakeDedup(), Config{}), repo
}

func TestSQLiteConcurrentTogglesSameUser(t *testing.T) {
	engine, repo := newSQLiteEngine(t)
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		committed int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = engine.ToggleLike(ctx, "c1", "alice")
			} else {
				_, err = engine.ToggleDislike(ctx, "c1", "alice")
			}
			if err != nil {
				assert.ErrorIs(t, err, ErrTransactionAborted)
				return
			}
			mu.Lock()
			committed++
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	assert.Positive(t, committed)

	state, err := engine.ReactionStatus(ctx, "c1", "alice")
	require.NoError(t, err)
	assert.False(t, state.IsLiked && state.IsDisliked)
	assert.LessOrEqual(t, state.LikeCount+state.DislikeCount, int64(1))

	before := *state
	require.NoError(t, repo.RecountContent(ctx, "c1"))
	after, err := engine.ReactionStatus(ctx, "c1", "alice")
	require.NoError(t, err)
	assert.Equal(t, before, *after, "counters must already match the edges")
}

func TestSQLiteConcurrentFollowIsIdempotent(t *testing.T) {
	engine, repo := newSQLiteEngine(t)
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.FollowUser(ctx, "alice", "bob")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrAlreadyExists):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, succeeded)

	bob, err := repo.GetUser(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), bob.FollowerCount)
	alice, err := repo.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), alice.FollowingCount)
}
