package log

// Field names shared by every structured log line.
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldDurationHuman = "duration_human"
	FieldUserAgent     = "user_agent"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldPeriod        = "period"
	FieldFileID        = "file_id"
	FieldSource        = "source"
	FieldRequested     = "requested"
	FieldSucceeded     = "succeeded"
	FieldFailed        = "failed"
	FieldChannels      = "channels"
	FieldGeneration    = "generation"
)

// Component names.
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentStats    = "stats"
	ComponentReports  = "reports"
	ComponentAMQP     = "amqp"
	ComponentCache    = "cache"
	ComponentSecurity = "security"
	ComponentTrace    = "trace"
)

// Operation names.
const (
	OpUpdate  = "update"
	OpLoad    = "load"
	OpImport  = "import"
	OpPublish = "publish"
	OpRender  = "render"
)
