package service

import (
	"context"

	"github.com/weiawesome/vlog-interaction-service/internal/domain"
)

// InteractionService is the interaction consistency engine. Every error it
// returns is an *Error whose Kind is one of the Err* values.
type InteractionService interface {
	ToggleLike(ctx context.Context, contentID, userID string) (*domain.ReactionState, error)
	ToggleDislike(ctx context.Context, contentID, userID string) (*domain.ReactionState, error)
	ReactionStatus(ctx context.Context, contentID, userID string) (*domain.ReactionState, error)

	FollowUser(ctx context.Context, followerID, followeeID string) (*domain.FollowState, error)
	UnfollowUser(ctx context.Context, followerID, followeeID string) (*domain.FollowState, error)
	FollowStatus(ctx context.Context, userID, viewerID string) (*domain.FollowState, error)

	AddComment(ctx context.Context, contentID, userID, text string) (*domain.CommentResult, error)
	DeleteComment(ctx context.Context, contentID, commentID, userID string, isPrivileged bool) (*domain.CommentDeleteResult, error)

	RecordView(ctx context.Context, contentID, viewerID string) (*domain.ViewResult, error)
}
