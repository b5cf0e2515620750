package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type identifies what happened.
type Type string

const (
	ReactionLiked    Type = "reaction.liked"
	ReactionDisliked Type = "reaction.disliked"
	ReactionCleared  Type = "reaction.cleared"
	FollowCreated    Type = "follow.created"
	FollowRemoved    Type = "follow.removed"
	CommentCreated   Type = "comment.created"
	CommentDeleted   Type = "comment.deleted"
	ViewRecorded     Type = "view.recorded"
)

// Event is a committed interaction, published after the transaction that
// produced it. Downstream consumers (notifications, email jobs) must tolerate
// duplicates and gaps.
type Event struct {
	ID           string    `json:"id"`
	Type         Type      `json:"type"`
	ActorID      string    `json:"actor_id"`
	ContentID    string    `json:"content_id,omitempty"`
	TargetUserID string    `json:"target_user_id,omitempty"`
	CommentID    string    `json:"comment_id,omitempty"`
	Degraded     bool      `json:"degraded,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// New creates an event with a fresh id and the current time.
func New(t Type, actorID string) *Event {
	return &Event{
		ID:         uuid.NewString(),
		Type:       t,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	}
}

// Key is the partition key: events about one content item or one followee
// stay ordered.
func (e *Event) Key() string {
	if e.ContentID != "" {
		return e.ContentID
	}
	if e.TargetUserID != "" {
		return e.TargetUserID
	}
	return e.ActorID
}

// Publisher delivers events to the event bus.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *Event) error { return nil }

func (NopPublisher) Close() error { return nil }
