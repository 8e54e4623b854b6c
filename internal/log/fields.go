package log

// Field names shared by every component.
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldUserID      = "user_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldQuery       = "query"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldMonth       = "month"
	FieldEntity      = "entity"
	FieldEntityID    = "entity_id"
	FieldAmount      = "amount"
	FieldType        = "type"
	FieldRoutingKey  = "routing_key"
	FieldSpreadsheet = "spreadsheet_id"
)

const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentFinance   = "finance"
	ComponentDashboard = "dashboard"
	ComponentPrefs     = "preferences"
	ComponentIdentity  = "identity"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentExport    = "export"
	ComponentReminder  = "reminder"
	ComponentSheets    = "sheets"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
)

const (
	OpCreate    = "create"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpBootstrap = "bootstrap"
	OpPublish   = "publish"
	OpAppend    = "append"
	OpRemind    = "remind"
)

// Fields builds key/value pairs for slog in a fixed order.
type Fields struct {
	kv []any
}

func NewFields() *Fields {
	return &Fields{}
}

func (f *Fields) Add(key string, value any) *Fields {
	f.kv = append(f.kv, key, value)
	return f
}

func (f *Fields) User(userID string) *Fields {
	return f.Add(FieldUserID, userID)
}

func (f *Fields) Op(op string) *Fields {
	return f.Add(FieldOperation, op)
}

func (f *Fields) Entity(kind, id string) *Fields {
	return f.Add(FieldEntity, kind).Add(FieldEntityID, id)
}

func (f *Fields) Err(err error) *Fields {
	if err == nil {
		return f
	}
	return f.Add(FieldError, err.Error())
}

func (f *Fields) Slice() []any {
	return f.kv
}
