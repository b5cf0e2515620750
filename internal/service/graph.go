package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/weiawesome/vlog-interaction-service/internal/domain"
	"github.com/weiawesome/vlog-interaction-service/internal/events"
	"github.com/weiawesome/vlog-interaction-service/internal/repository"
	pkglog "github.com/weiawesome/vlog-interaction-service/pkg/log"
)

// GraphManager maintains the follow graph and the denormalized follower and
// following counters.
type GraphManager struct {
	repo    repository.Store
	tx      txRunner
	effects sideEffects
}

// Follow adds the edge followerID -> followeeID. The returned state carries
// the followee's follower count and the follower's following count.
func (m *GraphManager) Follow(ctx context.Context, followerID, followeeID string) (*domain.FollowState, error) {
	return m.change(ctx, followerID, followeeID, true)
}

// Unfollow removes the edge followerID -> followeeID.
func (m *GraphManager) Unfollow(ctx context.Context, followerID, followeeID string) (*domain.FollowState, error) {
	return m.change(ctx, followerID, followeeID, false)
}

func (m *GraphManager) change(ctx context.Context, followerID, followeeID string, follow bool) (*domain.FollowState, error) {
	if followerID == "" {
		return nil, validation("follower id is required")
	}
	if followeeID == "" {
		return nil, validation("followee id is required")
	}
	if followerID == followeeID {
		if follow {
			return nil, newError(ErrInvalidOperation, "cannot follow yourself")
		}
		return nil, newError(ErrInvalidOperation, "cannot unfollow yourself")
	}

	delta := int64(1)
	if !follow {
		delta = -1
	}

	var fallback *domain.FollowState
	err := m.tx.run(ctx, func(tx repository.Tx) error {
		followee, err := tx.GetUser(ctx, followeeID)
		if err != nil {
			return notFoundOr(err, "user", followeeID)
		}
		follower, err := tx.GetUser(ctx, followerID)
		if err != nil {
			return notFoundOr(err, "user", followerID)
		}

		if follow {
			added, err := tx.AddFollow(ctx, followerID, followeeID)
			if err != nil {
				return err
			}
			if !added {
				return newError(ErrAlreadyExists, "already following user %s", followeeID)
			}
		} else {
			removed, err := tx.RemoveFollow(ctx, followerID, followeeID)
			if err != nil {
				return err
			}
			if !removed {
				return newError(ErrInvalidOperation, "not following user %s", followeeID)
			}
		}

		if err := tx.IncrUserCounter(ctx, followerID, domain.CounterFollowing, delta); err != nil {
			return err
		}
		if err := tx.IncrUserCounter(ctx, followeeID, domain.CounterFollowers, delta); err != nil {
			return err
		}

		fallback = &domain.FollowState{
			FollowerCount:  max(followee.FollowerCount+delta, 0),
			FollowingCount: max(follower.FollowingCount+delta, 0),
			IsFollowing:    follow,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	eventType := events.FollowCreated
	if !follow {
		eventType = events.FollowRemoved
	}
	event := events.New(eventType, followerID)
	event.TargetUserID = followeeID
	m.effects.afterCommit(ctx, event, userMark(followerID), userMark(followeeID))

	state, err := m.counts(ctx, followerID, followeeID)
	if err != nil {
		l := pkglog.Ctx(ctx)
		l.Warn().Err(err).Str(pkglog.FieldTargetID, followeeID).Msg("post-commit follow read failed, returning in-transaction state")
		return fallback, nil
	}
	state.IsFollowing = follow
	return state, nil
}

// counts reads the followee's follower count and the follower's following count.
func (m *GraphManager) counts(ctx context.Context, followerID, followeeID string) (*domain.FollowState, error) {
	ctx, cancel := m.tx.readCtx(ctx)
	defer cancel()

	var (
		state domain.FollowState
		g, gc = errgroup.WithContext(ctx)
	)
	g.Go(func() error {
		u, err := m.repo.GetUser(gc, followeeID)
		if err != nil {
			return notFoundOr(err, "user", followeeID)
		}
		state.FollowerCount = u.FollowerCount
		return nil
	})
	g.Go(func() error {
		u, err := m.repo.GetUser(gc, followerID)
		if err != nil {
			return notFoundOr(err, "user", followerID)
		}
		state.FollowingCount = u.FollowingCount
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, translate(err)
	}
	return &state, nil
}

// Status reports the counters of userID and whether viewerID follows them.
// An empty viewerID, or the user viewing themselves, reports IsFollowing false.
func (m *GraphManager) Status(ctx context.Context, userID, viewerID string) (*domain.FollowState, error) {
	if userID == "" {
		return nil, validation("user id is required")
	}
	ctx, cancel := m.tx.readCtx(ctx)
	defer cancel()

	user, err := m.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, translate(notFoundOr(err, "user", userID))
	}
	state := &domain.FollowState{FollowerCount: user.FollowerCount, FollowingCount: user.FollowingCount}
	if viewerID == "" || viewerID == userID {
		return state, nil
	}

	following, err := m.repo.IsFollowing(ctx, viewerID, userID)
	if err != nil {
		return nil, translate(err)
	}
	state.IsFollowing = following
	return state, nil
}
