package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/hellofresh/cqrs"
)

type wrapper struct {
	entry *logrus.Entry
}

// Wrap wraps a logrus.Logger
func Wrap(logger *logrus.Logger) cqrs.Logger {
	return &wrapper{entry: logrus.NewEntry(logger)}
}

// WrapEntry wraps a logrus.Entry
func WrapEntry(entry *logrus.Entry) cqrs.Logger {
	return &wrapper{entry: entry}
}

// StandardLogger return a wrapped version of the logrus.StandardLogger()
func StandardLogger() cqrs.Logger {
	return Wrap(logrus.StandardLogger())
}

// Error writes a log with log level error
func (w *wrapper) Error(msg string, fields func(cqrs.LoggerEntry)) {
	w.log(logrus.ErrorLevel, msg, fields)
}

// Warn writes a log with log level warn
func (w *wrapper) Warn(msg string, fields func(cqrs.LoggerEntry)) {
	w.log(logrus.WarnLevel, msg, fields)
}

// Info writes a log with log level info
func (w *wrapper) Info(msg string, fields func(cqrs.LoggerEntry)) {
	w.log(logrus.InfoLevel, msg, fields)
}

// Debug writes a log with log level debug
func (w *wrapper) Debug(msg string, fields func(cqrs.LoggerEntry)) {
	w.log(logrus.DebugLevel, msg, fields)
}

// WithFields Adds a set of fields to the log entry
func (w *wrapper) WithFields(fields func(cqrs.LoggerEntry)) cqrs.Logger {
	if fields == nil {
		return w
	}

	e := entry{}
	fields(e)

	return &wrapper{entry: w.entry.WithFields(logrus.Fields(e))}
}

func (w *wrapper) log(level logrus.Level, msg string, fields func(cqrs.LoggerEntry)) {
	if !w.entry.Logger.IsLevelEnabled(level) {
		return
	}

	if fields == nil {
		w.entry.Log(level, msg)
		return
	}

	e := entry{}
	fields(e)
	w.entry.WithFields(logrus.Fields(e)).Log(level, msg)
}

type entry logrus.Fields

func (e entry) Int(k string, v int) {
	e[k] = v
}

func (e entry) Int64(k string, v int64) {
	e[k] = v
}

func (e entry) String(k, v string) {
	e[k] = v
}

func (e entry) Error(err error) {
	e[logrus.ErrorKey] = err
}

func (e entry) Any(k string, v interface{}) {
	e[k] = v
}
