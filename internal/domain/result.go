package domain

// ReactionState is returned by like/dislike toggles and reaction status reads.
type ReactionState struct {
	LikeCount    int64 `json:"like_count"`
	DislikeCount int64 `json:"dislike_count"`
	IsLiked      bool  `json:"is_liked"`
	IsDisliked   bool  `json:"is_disliked"`
}

// FollowState is returned by follow/unfollow and follow status reads.
// FollowerCount and FollowingCount belong to the followee and the follower
// respectively for mutations; for status reads both belong to the target user.
type FollowState struct {
	FollowerCount  int64 `json:"follower_count"`
	FollowingCount int64 `json:"following_count"`
	IsFollowing    bool  `json:"is_following"`
}

// CommentResult is returned by AddComment.
type CommentResult struct {
	Comment      *Comment `json:"comment"`
	CommentCount int64    `json:"comment_count"`
}

// CommentDeleteResult is returned by DeleteComment.
type CommentDeleteResult struct {
	CommentCount int64 `json:"comment_count"`
}

// ViewResult is returned by RecordView.
type ViewResult struct {
	Incremented bool  `json:"incremented"`
	Views       int64 `json:"views"`
	Degraded    bool  `json:"degraded,omitempty"`
}
