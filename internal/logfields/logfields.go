package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyCommand    = "command"
	KeyResource   = "resource"
	KeyMode       = "mode"
	KeyPath       = "path"
	KeyEditor     = "editor"
	KeyPhase      = "phase"
	KeyGroupID    = "group_id"
	KeyLayer      = "layer"
	KeyEvent      = "event"
	KeyScale      = "scale"
	KeyBytes      = "bytes"
	KeyDurationMS = "duration_ms"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyRequestID  = "request_id"
	KeyCategory   = "category"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Command(name string) slog.Attr   { return slog.String(KeyCommand, name) }
func Resource(name string) slog.Attr  { return slog.String(KeyResource, name) }
func Mode(m string) slog.Attr         { return slog.String(KeyMode, m) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Editor(cmd string) slog.Attr     { return slog.String(KeyEditor, cmd) }
func Phase(p string) slog.Attr        { return slog.String(KeyPhase, p) }
func GroupID(id string) slog.Attr     { return slog.String(KeyGroupID, id) }
func Layer(id string) slog.Attr       { return slog.String(KeyLayer, id) }
func Event(name string) slog.Attr     { return slog.String(KeyEvent, name) }
func Scale(s float64) slog.Attr       { return slog.Float64(KeyScale, s) }
func Bytes(n int) slog.Attr           { return slog.Int(KeyBytes, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func RequestID(id string) slog.Attr   { return slog.String(KeyRequestID, id) }
func Category(c string) slog.Attr     { return slog.String(KeyCategory, c) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
