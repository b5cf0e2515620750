package domain

import "time"

// ReactionKind is either a like or a dislike.
type ReactionKind string

const (
	ReactionLike    ReactionKind = "like"
	ReactionDislike ReactionKind = "dislike"
)

// Opposite returns the kind that cannot coexist with k.
func (k ReactionKind) Opposite() ReactionKind {
	if k == ReactionLike {
		return ReactionDislike
	}
	return ReactionLike
}

// Counter returns the content counter k is denormalized into.
func (k ReactionKind) Counter() ContentCounter {
	if k == ReactionLike {
		return CounterLikes
	}
	return CounterDislikes
}

// Valid reports whether k is a known kind.
func (k ReactionKind) Valid() bool {
	return k == ReactionLike || k == ReactionDislike
}

// ContentCounter names a denormalized counter column on contents.
type ContentCounter string

const (
	CounterLikes    ContentCounter = "like_count"
	CounterDislikes ContentCounter = "dislike_count"
	CounterComments ContentCounter = "comment_count"
	CounterViews    ContentCounter = "view_count"
)

// UserCounter names a denormalized counter column on users.
type UserCounter string

const (
	CounterFollowers UserCounter = "follower_count"
	CounterFollowing UserCounter = "following_count"
)

// Content is a vlog as seen by the interaction engine.
type Content struct {
	ID           string
	AuthorID     string
	LikeCount    int64
	DislikeCount int64
	CommentCount int64
	ViewCount    int64
}

// User carries the denormalized follow counters of an account.
type User struct {
	ID             string
	FollowerCount  int64
	FollowingCount int64
}

// Reaction is a like or dislike edge.
type Reaction struct {
	ContentID string
	UserID    string
	Kind      ReactionKind
	CreatedAt time.Time
}

// Follow is a follower → followee edge.
type Follow struct {
	FollowerID string
	FolloweeID string
	CreatedAt  time.Time
}

// Comment is a user comment on a content item.
type Comment struct {
	ID        string    `json:"id"`
	ContentID string    `json:"content_id"`
	AuthorID  string    `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
