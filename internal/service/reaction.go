package service

import (
	"context"

	"github.com/weiawesome/vlog-interaction-service/internal/domain"
	"github.com/weiawesome/vlog-interaction-service/internal/events"
	"github.com/weiawesome/vlog-interaction-service/internal/repository"
	pkglog "github.com/weiawesome/vlog-interaction-service/pkg/log"
)

// ReactionManager toggles likes and dislikes on content.
type ReactionManager struct {
	repo    repository.Store
	tx      txRunner
	effects sideEffects
}

// Toggle applies one press of the like or dislike button.
//
//	no reaction       -> add kind
//	reaction of kind  -> remove it
//	opposite reaction -> swap to kind
//
// The edge change and both counter deltas commit in one transaction.
func (m *ReactionManager) Toggle(ctx context.Context, contentID, userID string, kind domain.ReactionKind) (*domain.ReactionState, error) {
	if contentID == "" {
		return nil, validation("content id is required")
	}
	if userID == "" {
		return nil, validation("user id is required")
	}
	if !kind.Valid() {
		return nil, validation("unknown reaction kind %q", kind)
	}

	var (
		outcome  events.Type
		fallback *domain.ReactionState
	)
	err := m.tx.run(ctx, func(tx repository.Tx) error {
		content, err := tx.GetContent(ctx, contentID)
		if err != nil {
			return notFoundOr(err, "content", contentID)
		}

		existing, err := tx.FindReactions(ctx, contentID, userID)
		if err != nil {
			return err
		}
		var hasOwn, hasOpposite bool
		for _, r := range existing {
			switch r.Kind {
			case kind:
				hasOwn = true
			case kind.Opposite():
				hasOpposite = true
			}
		}

		fallback = &domain.ReactionState{LikeCount: content.LikeCount, DislikeCount: content.DislikeCount}

		if hasOwn {
			outcome = events.ReactionCleared
			return removeReaction(ctx, tx, fallback, contentID, userID, kind)
		}

		if hasOpposite {
			if err := removeReaction(ctx, tx, fallback, contentID, userID, kind.Opposite()); err != nil {
				return err
			}
		}
		if err := tx.CreateReaction(ctx, &domain.Reaction{ContentID: contentID, UserID: userID, Kind: kind}); err != nil {
			return err
		}
		if err := tx.IncrContentCounter(ctx, contentID, kind.Counter(), 1); err != nil {
			return err
		}
		applyDelta(fallback, kind, 1)
		fallback.IsLiked = kind == domain.ReactionLike
		fallback.IsDisliked = kind == domain.ReactionDislike

		outcome = events.ReactionLiked
		if kind == domain.ReactionDislike {
			outcome = events.ReactionDisliked
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := events.New(outcome, userID)
	event.ContentID = contentID
	m.effects.afterCommit(ctx, event, contentMark(contentID))

	state, err := m.Status(ctx, contentID, userID)
	if err != nil {
		l := pkglog.Ctx(ctx)
		l.Warn().Err(err).Str(pkglog.FieldContentID, contentID).Msg("post-commit reaction read failed, returning in-transaction state")
		return fallback, nil
	}
	return state, nil
}

func removeReaction(ctx context.Context, tx repository.Tx, state *domain.ReactionState, contentID, userID string, kind domain.ReactionKind) error {
	removed, err := tx.DeleteReaction(ctx, contentID, userID, kind)
	if err != nil {
		return err
	}
	if !removed {
		// Another writer removed the edge after we read it.
		return repository.ErrConflict
	}
	if err := tx.IncrContentCounter(ctx, contentID, kind.Counter(), -1); err != nil {
		return err
	}
	applyDelta(state, kind, -1)
	return nil
}

func applyDelta(state *domain.ReactionState, kind domain.ReactionKind, delta int64) {
	switch kind {
	case domain.ReactionLike:
		state.LikeCount = max(state.LikeCount+delta, 0)
	case domain.ReactionDislike:
		state.DislikeCount = max(state.DislikeCount+delta, 0)
	}
}

// Status reads the counters of contentID and the reaction of userID on it.
// An empty userID reports only the counters.
func (m *ReactionManager) Status(ctx context.Context, contentID, userID string) (*domain.ReactionState, error) {
	if contentID == "" {
		return nil, validation("content id is required")
	}
	ctx, cancel := m.tx.readCtx(ctx)
	defer cancel()

	content, err := m.repo.GetContent(ctx, contentID)
	if err != nil {
		return nil, translate(notFoundOr(err, "content", contentID))
	}
	state := &domain.ReactionState{LikeCount: content.LikeCount, DislikeCount: content.DislikeCount}
	if userID == "" {
		return state, nil
	}

	existing, err := m.repo.FindReactions(ctx, contentID, userID)
	if err != nil {
		return nil, translate(err)
	}
	for _, r := range existing {
		switch r.Kind {
		case domain.ReactionLike:
			state.IsLiked = true
		case domain.ReactionDislike:
			state.IsDisliked = true
		}
	}
	return state, nil
}
