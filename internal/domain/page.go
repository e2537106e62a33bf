package domain

// HomePage is everything the home screen renders.
type HomePage struct {
	CurrentUser *User   `json:"current_user"`
	Feed        []*Post `json:"feed"`
	Suggestions []*User `json:"suggestions"`
	UnreadCount int64   `json:"unread_count"`
}

// ProfilePage is everything a profile screen renders.
type ProfilePage struct {
	User        *User           `json:"user"`
	Posts       []*Post         `json:"posts"`
	IsFollowing bool            `json:"is_following"`
	Followers   []*FollowedUser `json:"followers"`
	Following   []*FollowedUser `json:"following"`
}

// PostDetailPage is a post with its comment thread.
type PostDetailPage struct {
	Post     *Post            `json:"post"`
	Comments []*CommentThread `json:"comments"`
}
