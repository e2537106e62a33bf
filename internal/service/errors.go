package service

import (
	"errors"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrWrongPassword        = errors.New("current password is incorrect")
	ErrUserNotFound         = errors.New("User not found")
	ErrEmailExists          = errors.New("email already exists")
	ErrUsernameExists       = errors.New("username already exists")
	ErrPostNotFound         = errors.New("Post not found")
	ErrNotPostOwner         = errors.New("only the author can modify this post")
	ErrCommentNotFound      = errors.New("Comment not found")
	ErrNotCommentOwner      = errors.New("only the author can modify this comment")
	ErrSelfFollow           = errors.New("cannot follow yourself")
	ErrAlreadyFollowing     = errors.New("Already following this user")
	ErrNotFollowing         = errors.New("Not following this user")
	ErrNotificationNotFound = errors.New("Notification not found")
	ErrAvatarsDisabled      = errors.New("avatar uploads are not configured")
)

// invalid wraps ErrInvalidInput with a client-facing reason.
func invalid(reason string) error {
	return &inputError{reason: reason}
}

type inputError struct {
	reason string
}

func (e *inputError) Error() string { return e.reason }

func (e *inputError) Unwrap() error { return ErrInvalidInput }
