package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/weiawesome/vlog-interaction-service/internal/domain"
	"github.com/weiawesome/vlog-interaction-service/internal/events"
	"github.com/weiawesome/vlog-interaction-service/internal/repository"
	pkglog "github.com/weiawesome/vlog-interaction-service/pkg/log"
)

// CommentCounter stores comments and keeps the content comment count in step.
type CommentCounter struct {
	repo      repository.Store
	tx        txRunner
	effects   sideEffects
	maxLength int
	now       func() time.Time
}

// Add stores a comment by userID on contentID.
func (m *CommentCounter) Add(ctx context.Context, contentID, userID, text string) (*domain.CommentResult, error) {
	if contentID == "" {
		return nil, validation("content id is required")
	}
	if userID == "" {
		return nil, validation("user id is required")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, validation("comment text must not be empty")
	}
	if !utf8.ValidString(text) {
		return nil, validation("comment text must be valid UTF-8")
	}
	if n := utf8.RuneCountInString(text); n > m.maxLength {
		return nil, validation("comment text is %d characters, the limit is %d", n, m.maxLength)
	}

	comment := &domain.Comment{
		ID:        uuid.NewString(),
		ContentID: contentID,
		AuthorID:  userID,
		Text:      text,
		CreatedAt: m.now().UTC(),
	}

	var fallback int64
	err := m.tx.run(ctx, func(tx repository.Tx) error {
		content, err := tx.GetContent(ctx, contentID)
		if err != nil {
			return notFoundOr(err, "content", contentID)
		}
		if err := tx.CreateComment(ctx, comment); err != nil {
			return err
		}
		if err := tx.IncrContentCounter(ctx, contentID, domain.CounterComments, 1); err != nil {
			return err
		}
		fallback = content.CommentCount + 1
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := events.New(events.CommentCreated, userID)
	event.ContentID = contentID
	event.CommentID = comment.ID
	m.effects.afterCommit(ctx, event, contentMark(contentID))

	return &domain.CommentResult{Comment: comment, CommentCount: m.currentCount(ctx, contentID, fallback)}, nil
}

// Delete removes commentID from contentID. The comment author, the content
// author and privileged callers may delete.
func (m *CommentCounter) Delete(ctx context.Context, contentID, commentID, userID string, isPrivileged bool) (*domain.CommentDeleteResult, error) {
	if contentID == "" {
		return nil, validation("content id is required")
	}
	if commentID == "" {
		return nil, validation("comment id is required")
	}

	var (
		fallback int64
		authorID string
	)
	err := m.tx.run(ctx, func(tx repository.Tx) error {
		content, err := tx.GetContent(ctx, contentID)
		if err != nil {
			return notFoundOr(err, "content", contentID)
		}
		comment, err := tx.GetComment(ctx, commentID)
		if err != nil {
			return notFoundOr(err, "comment", commentID)
		}
		if comment.ContentID != contentID {
			return notFound("comment", commentID)
		}

		allowed := isPrivileged ||
			(userID != "" && (userID == comment.AuthorID || userID == content.AuthorID))
		if !allowed {
			return newError(ErrForbidden, "not allowed to delete comment %s", commentID)
		}

		deleted, err := tx.DeleteComment(ctx, commentID)
		if err != nil {
			return err
		}
		if !deleted {
			return repository.ErrConflict
		}
		if err := tx.IncrContentCounter(ctx, contentID, domain.CounterComments, -1); err != nil {
			return err
		}
		fallback = max(content.CommentCount-1, 0)
		authorID = comment.AuthorID
		return nil
	})
	if err != nil {
		return nil, err
	}

	actor := userID
	if actor == "" {
		actor = authorID
	}
	event := events.New(events.CommentDeleted, actor)
	event.ContentID = contentID
	event.CommentID = commentID
	event.TargetUserID = authorID
	m.effects.afterCommit(ctx, event, contentMark(contentID))

	return &domain.CommentDeleteResult{CommentCount: m.currentCount(ctx, contentID, fallback)}, nil
}

func (m *CommentCounter) currentCount(ctx context.Context, contentID string, fallback int64) int64 {
	readCtx, cancel := m.tx.readCtx(ctx)
	defer cancel()

	content, err := m.repo.GetContent(readCtx, contentID)
	if err != nil {
		l := pkglog.Ctx(ctx)
		l.Warn().Err(err).Str(pkglog.FieldContentID, contentID).Msg("post-commit comment count read failed, returning in-transaction count")
		return fallback
	}
	return content.CommentCount
}
