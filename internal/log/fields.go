package log

import (
	"maps"
	"slices"
)

// Field names shared by every component.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldRowID      = "row_id"
	FieldRowVersion = "row_version"
	FieldRowCount   = "rows"
	FieldTotal      = "total"
	FieldFileName   = "file_name"
	FieldPriceIndex = "price_index"
)

const (
	ComponentApp      = "app"
	ComponentAPI      = "api"
	ComponentSync     = "sync"
	ComponentHTTP     = "http"
	ComponentCache    = "cache"
	ComponentSecurity = "security"
	ComponentTrace    = "trace"
	ComponentBackend  = "backend"
	ComponentWorker   = "worker"
	ComponentSheets   = "sheets"
	ComponentCLI      = "cli"
)

// LogFields builds attribute lists for records that share a shape.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithRow adds the row id, and the version once the row has one.
func (f LogFields) WithRow(id string, version int64) LogFields {
	f[FieldRowID] = id
	if version > 0 {
		f[FieldRowVersion] = version
	}
	return f
}

func (f LogFields) WithRequest(method, path, clientIP string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldClientIP] = clientIP
	return f
}

// ToSlice flattens the fields into slog key/value pairs, sorted by key.
func (f LogFields) ToSlice() []any {
	out := make([]any, 0, len(f)*2)
	for _, k := range slices.Sorted(maps.Keys(f)) {
		out = append(out, k, f[k])
	}
	return out
}
