package test

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/hellofresh/cqrs"
	cqrsLogrus "github.com/hellofresh/cqrs/extension/logrus"
)

// NewLogger returns a debug level logger writing its entries to t.Log
func NewLogger(t testing.TB) cqrs.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	logger.SetOutput(&logWriter{t: t})

	return cqrsLogrus.Wrap(logger)
}

type logWriter struct {
	t testing.TB
}

func (l *logWriter) Write(p []byte) (int, error) {
	l.t.Helper()
	l.t.Log(strings.TrimSpace(string(p)))

	return len(p), nil
}
