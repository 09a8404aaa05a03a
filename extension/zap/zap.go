package zap

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hellofresh/cqrs"
)

type wrapper struct {
	logger *zap.Logger
}

// Wrap wraps a zap.Logger
func Wrap(logger *zap.Logger) cqrs.Logger {
	return &wrapper{logger: logger}
}

// Error writes a log with log level error
func (w *wrapper) Error(msg string, fields func(cqrs.LoggerEntry)) {
	w.log(zapcore.ErrorLevel, msg, fields)
}

// Warn writes a log with log level warning
func (w *wrapper) Warn(msg string, fields func(cqrs.LoggerEntry)) {
	w.log(zapcore.WarnLevel, msg, fields)
}

// Info writes a log with log level info
func (w *wrapper) Info(msg string, fields func(cqrs.LoggerEntry)) {
	w.log(zapcore.InfoLevel, msg, fields)
}

// Debug writes a log with log level debug
func (w *wrapper) Debug(msg string, fields func(cqrs.LoggerEntry)) {
	w.log(zapcore.DebugLevel, msg, fields)
}

// WithFields Adds a set of fields to the log entry
func (w *wrapper) WithFields(fields func(cqrs.LoggerEntry)) cqrs.Logger {
	if fields == nil {
		return w
	}

	e := &entry{}
	fields(e)

	return &wrapper{logger: w.logger.With(e.fields...)}
}

func (w *wrapper) log(level zapcore.Level, msg string, fields func(cqrs.LoggerEntry)) {
	ce := w.logger.Check(level, msg)
	if ce == nil {
		return
	}

	if fields == nil {
		ce.Write()
		return
	}

	e := &entry{}
	fields(e)
	ce.Write(e.fields...)
}

type entry struct {
	fields []zap.Field
}

func (e *entry) Int(k string, v int) {
	e.fields = append(e.fields, zap.Int(k, v))
}

func (e *entry) Int64(k string, v int64) {
	e.fields = append(e.fields, zap.Int64(k, v))
}

func (e *entry) String(k, v string) {
	e.fields = append(e.fields, zap.String(k, v))
}

func (e *entry) Error(err error) {
	e.fields = append(e.fields, zap.Error(err))
}

func (e *entry) Any(k string, v interface{}) {
	e.fields = append(e.fields, zap.Any(k, v))
}
