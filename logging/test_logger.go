package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type testAppender struct {
	tb testing.TB
}

func (appender testAppender) Write(entry zapcore.Entry, _ []zapcore.Field) error {
	appender.tb.Helper()
	appender.tb.Logf("%s\t%s\t%s\t%s",
		entry.Time.UTC().Format(DefaultTimeFormatStr),
		entry.Level.CapitalString(),
		entry.LoggerName,
		entry.Message,
	)
	return nil
}

func (appender testAppender) Sync() error { return nil }

// NewTestLogger returns a DEBUG logger that writes through the test's log.
func NewTestLogger(tb testing.TB) Logger {
	logger := NewBlankLogger(tb.Name())
	logger.AddAppender(testAppender{tb})
	return logger
}

type observedAppender struct {
	core zapcore.Core
}

func (appender observedAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	return appender.core.Write(entry, fields)
}

func (appender observedAppender) Sync() error { return appender.core.Sync() }

// NewObservedTestLogger is like NewTestLogger but also returns an observer
// for asserting on emitted logs.
func NewObservedTestLogger(tb testing.TB) (Logger, *observer.ObservedLogs) {
	core, observed := observer.New(zapcore.DebugLevel)
	logger := NewTestLogger(tb)
	logger.AddAppender(observedAppender{core})
	return logger, observed
}
