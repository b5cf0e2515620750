package log

// Field names shared by every log line of the service.
const (
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	FieldService = "service"

	// Actor and interaction targets.
	FieldUserID    = "user_id"
	FieldTargetID  = "target_id"
	FieldContentID = "content_id"
	FieldCommentID = "comment_id"
	FieldViewerID  = "viewer_id"
	FieldOperation = "op"
	FieldEventType = "event_type"
)
