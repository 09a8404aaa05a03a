package cqrs

type (
	// Logger is the structured logger used by the buses, consumers and stores.
	// The fields callback is only invoked when the level is enabled.
	Logger interface {
		Error(msg string, fields func(LoggerEntry))
		Warn(msg string, fields func(LoggerEntry))
		Info(msg string, fields func(LoggerEntry))
		Debug(msg string, fields func(LoggerEntry))

		// WithFields returns a logger adding fields to every entry
		WithFields(fields func(LoggerEntry)) Logger
	}

	// LoggerEntry collects the fields of a log entry
	LoggerEntry interface {
		Int(k string, v int)
		Int64(k string, v int64)
		String(k, v string)
		Error(err error)
		Any(k string, v interface{})
	}

	nopLogger struct{}
)

// NopLogger discards everything, it is used when a nil Logger is passed
var NopLogger Logger = nopLogger{}

func (nopLogger) Error(string, func(LoggerEntry))       {}
func (nopLogger) Warn(string, func(LoggerEntry))        {}
func (nopLogger) Info(string, func(LoggerEntry))        {}
func (nopLogger) Debug(string, func(LoggerEntry))       {}
func (n nopLogger) WithFields(func(LoggerEntry)) Logger { return n }
