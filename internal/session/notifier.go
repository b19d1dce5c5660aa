package session

// Level classifies operator notifications.
type Level string

// Notification levels.
const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Notifier delivers human-facing messages to the operator UI. Parse
// failures are not notified (a half-read QR code produces garbage,
// retrying is the fix); lookup failures and invariant violations are.
type Notifier interface {
	Notify(level Level, message string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(level Level, message string)

// Notify calls f.
func (f NotifierFunc) Notify(level Level, message string) {
	f(level, message)
}

// noopNotifier discards all notifications.
type noopNotifier struct{}

func (noopNotifier) Notify(Level, string) {}

// Logger defines the logging interface used by the session.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
