package domain

import (
	"time"
)

// Follow is a directed follower -> following edge.
type Follow struct {
	ID          int64     `json:"id"`
	FollowerID  int64     `json:"follower_id"`
	FollowingID int64     `json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// FollowedUser is a user in a follower/following listing.
type FollowedUser struct {
	*User
	FollowedAt time.Time `json:"followed_at"`
}

type FollowStatus struct {
	IsFollowing bool `json:"is_following"`
}
