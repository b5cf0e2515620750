package domain

import (
	"time"
)

// ContentModel is the GORM model for the contents table. Only the columns the
// interaction engine reads or mutates are mapped; the rest of the vlog record
// is owned by the content service.
type ContentModel struct {
	ID           string    `gorm:"column:id;type:varchar(36);primaryKey"`
	AuthorID     string    `gorm:"column:author_id;type:varchar(36);not null;index"`
	LikeCount    int64     `gorm:"column:like_count;not null;default:0"`
	DislikeCount int64     `gorm:"column:dislike_count;not null;default:0"`
	CommentCount int64     `gorm:"column:comment_count;not null;default:0"`
	ViewCount    int64     `gorm:"column:view_count;not null;default:0"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (ContentModel) TableName() string { return "contents" }

// UserModel is the GORM model for the users table, restricted to the
// denormalized graph counters.
type UserModel struct {
	ID             string    `gorm:"column:id;type:varchar(36);primaryKey"`
	FollowerCount  int64     `gorm:"column:follower_count;not null;default:0"`
	FollowingCount int64     `gorm:"column:following_count;not null;default:0"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string { return "users" }

// ReactionModel is one like or dislike. The unique pair index allows a single
// reaction of either kind per (content, user).
type ReactionModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	ContentID string    `gorm:"column:content_id;type:varchar(36);not null;uniqueIndex:uidx_reaction_pair,priority:1"`
	UserID    string    `gorm:"column:user_id;type:varchar(36);not null;uniqueIndex:uidx_reaction_pair,priority:2"`
	Kind      string    `gorm:"column:kind;type:varchar(16);not null;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (ReactionModel) TableName() string { return "reactions" }

// FollowModel is the GORM model for the follows table.
type FollowModel struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	FollowerID string    `gorm:"column:follower_id;type:varchar(36);not null;uniqueIndex:uidx_follow_pair,priority:1"`
	FolloweeID string    `gorm:"column:followee_id;type:varchar(36);not null;uniqueIndex:uidx_follow_pair,priority:2;index"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (FollowModel) TableName() string { return "follows" }

// CommentModel is the GORM model for the comments table.
type CommentModel struct {
	ID        string    `gorm:"column:id;type:varchar(36);primaryKey"`
	ContentID string    `gorm:"column:content_id;type:varchar(36);not null;index"`
	AuthorID  string    `gorm:"column:author_id;type:varchar(36);not null"`
	Text      string    `gorm:"column:text;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (CommentModel) TableName() string { return "comments" }

// Models lists every table managed by this service, in migration order.
func Models() []interface{} {
	return []interface{}{
		&ContentModel{},
		&UserModel{},
		&ReactionModel{},
		&FollowModel{},
		&CommentModel{},
	}
}

// ToDomain converts the row to a Content.
func (m *ContentModel) ToDomain() *Content {
	return &Content{
		ID:           m.ID,
		AuthorID:     m.AuthorID,
		LikeCount:    m.LikeCount,
		DislikeCount: m.DislikeCount,
		CommentCount: m.CommentCount,
		ViewCount:    m.ViewCount,
	}
}

// ToDomain converts the row to a User.
func (m *UserModel) ToDomain() *User {
	return &User{
		ID:             m.ID,
		FollowerCount:  m.FollowerCount,
		FollowingCount: m.FollowingCount,
	}
}

// ToDomain converts the row to a Comment.
func (m *CommentModel) ToDomain() *Comment {
	return &Comment{
		ID:        m.ID,
		ContentID: m.ContentID,
		AuthorID:  m.AuthorID,
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
}
