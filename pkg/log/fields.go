package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor (matches pkg/middleware/auth.go keys)
	FieldUserID   = "user_id"
	FieldUsername = "username"

	// Resources
	FieldTargetUserID   = "target_user_id"
	FieldPostID         = "post_id"
	FieldCommentID      = "comment_id"
	FieldNotificationID = "notification_id"
	FieldChannel        = "channel"

	// Service
	FieldService = "service"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
