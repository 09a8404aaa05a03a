//go:build unit

package logrus_test

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hellofresh/cqrs"
	cqrsLogrus "github.com/hellofresh/cqrs/extension/logrus"
)

func TestWrap(t *testing.T) {
	logrusLogger, hook := test.NewNullLogger()
	logrusLogger.SetLevel(logrus.DebugLevel)
	logger := cqrsLogrus.Wrap(logrusLogger)

	publishErr := errors.New("channel closed")
	levels := map[logrus.Level]func(string, func(cqrs.LoggerEntry)){
		logrus.ErrorLevel: logger.Error,
		logrus.WarnLevel:  logger.Warn,
		logrus.InfoLevel:  logger.Info,
		logrus.DebugLevel: logger.Debug,
	}

	for level, log := range levels {
		t.Run(level.String(), func(t *testing.T) {
			defer hook.Reset()

			log("failed to publish event", func(e cqrs.LoggerEntry) {
				e.String("event_name", "library.author.created")
				e.Int("attempt", 2)
				e.Int64("delivery_tag", 42)
				e.Error(publishErr)
				e.Any("metadata", map[string]interface{}{"user": "admin"})
			})

			require.Len(t, hook.Entries, 1)
			assert.Equal(t, level, hook.LastEntry().Level)
			assert.Equal(t, "failed to publish event", hook.LastEntry().Message)
			assert.Equal(t, logrus.Fields{
				"event_name":   "library.author.created",
				"attempt":      2,
				"delivery_tag": int64(42),
				"error":        publishErr,
				"metadata":     map[string]interface{}{"user": "admin"},
			}, hook.LastEntry().Data)
		})
	}

	t.Run("Without fields", func(t *testing.T) {
		defer hook.Reset()

		logger.Info("started listening", nil)

		require.Len(t, hook.Entries, 1)
		assert.Empty(t, hook.LastEntry().Data)
	})

	t.Run("Disabled level does not build the fields", func(t *testing.T) {
		defer hook.Reset()
		logrusLogger.SetLevel(logrus.WarnLevel)
		defer logrusLogger.SetLevel(logrus.DebugLevel)

		logger.Debug("event stored", func(cqrs.LoggerEntry) {
			t.Error("fields should not be called")
		})

		assert.Empty(t, hook.Entries)
	})
}

func TestWrapper_WithFields(t *testing.T) {
	logrusLogger, hook := test.NewNullLogger()
	logger := cqrsLogrus.WrapEntry(logrus.NewEntry(logrusLogger).WithField("service", "library"))

	consumerLogger := logger.WithFields(func(e cqrs.LoggerEntry) {
		e.String("resource", "library.events")
		e.String("state", "listening")
	})

	consumerLogger.Info("started listening", nil)
	consumerLogger.Warn("timed out waiting for deliveries", func(e cqrs.LoggerEntry) {
		e.String("state", "reconnecting")
	})

	require.Len(t, hook.Entries, 2)
	assert.Equal(t, logrus.Fields{
		"service":  "library",
		"resource": "library.events",
		"state":    "listening",
	}, hook.Entries[0].Data)
	assert.Equal(t, logrus.Fields{
		"service":  "library",
		"resource": "library.events",
		"state":    "reconnecting",
	}, hook.Entries[1].Data)

	t.Run("Nil fields return the same logger", func(t *testing.T) {
		assert.Same(t, logger, logger.WithFields(nil))
	})
}

func BenchmarkWrapper_Debug(b *testing.B) {
	b.ReportAllocs()

	logger := cqrsLogrus.StandardLogger()

	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		logger.Debug("event received", func(e cqrs.LoggerEntry) {
			e.Int("delivery_tag", n)
		})
	}
}
