// Package audit writes security-relevant account and content changes as
// log lines tagged log_type=audit.
package audit

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pulse-social/pulse/pkg/log"
)

// Audit actions.
const (
	ActionRegister       = "user.register"
	ActionLogin          = "user.login"
	ActionLoginFailed    = "user.login_failed"
	ActionLogout         = "user.logout"
	ActionRefreshToken   = "user.refresh_token"
	ActionUpdateProfile  = "user.update_profile"
	ActionChangePassword = "user.change_password"
	ActionUploadAvatar   = "user.upload_avatar"
	ActionFollow         = "follow.create"
	ActionUnfollow       = "follow.delete"
	ActionPostCreate     = "post.create"
	ActionPostUpdate     = "post.update"
	ActionPostDelete     = "post.delete"
	ActionCommentDelete  = "comment.delete"
)

// Keys an audit line carries besides log_type and user_id.
const (
	FieldAction   = "action"
	FieldTargetID = "target_id"
	FieldDetail   = "detail"
)

// entry starts an audit line for action by userID on ctx's logger.
func entry(ctx context.Context, action string, userID int64) *zerolog.Event {
	l := log.Ctx(ctx)
	return l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Int64(log.FieldUserID, userID)
}

func Log(ctx context.Context, action string, userID int64, msg string) {
	entry(ctx, action, userID).Msg(msg)
}

// LogWithTarget records the id of the user, post or comment acted on.
func LogWithTarget(ctx context.Context, action string, userID, targetID int64, msg string) {
	entry(ctx, action, userID).Int64(FieldTargetID, targetID).Msg(msg)
}

func LogWithDetail(ctx context.Context, action string, userID int64, detail, msg string) {
	entry(ctx, action, userID).Str(FieldDetail, detail).Msg(msg)
}
