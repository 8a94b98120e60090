// Package logging provides levelled, named loggers for the rover executive,
// backed by zap cores so output can be fanned out to the console and the
// session log file.
package logging

import (
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
)

// Logger is the interface handed to every module of the executive.
type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})

	// Sublogger returns a child logger whose name is the parent's name with
	// "." and the given name appended.
	Sublogger(name string) Logger

	SetLevel(level Level)
	Level() Level

	// AddAppender attaches an extra output to the logger and all its future
	// subloggers.
	AddAppender(appender Appender)

	// Sync flushes any buffered output on all appenders.
	Sync() error
}

type impl struct {
	name string

	mu        sync.Mutex
	level     Level
	appenders []Appender
}

// NewLogger returns a named logger printing to stdout at INFO.
func NewLogger(name string) Logger {
	return &impl{
		name:      name,
		level:     INFO,
		appenders: []Appender{NewStdoutAppender()},
	}
}

// NewDebugLogger returns a named logger printing to stdout at DEBUG.
func NewDebugLogger(name string) Logger {
	logger := NewLogger(name)
	logger.SetLevel(DEBUG)
	return logger
}

// NewBlankLogger returns a named logger with no appenders attached.
func NewBlankLogger(name string) Logger {
	return &impl{name: name, level: DEBUG}
}

func (l *impl) Sublogger(name string) Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &impl{
		name:      l.name + "." + name,
		level:     l.level,
		appenders: append([]Appender{}, l.appenders...),
	}
}

func (l *impl) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *impl) Level() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

func (l *impl) AddAppender(appender Appender) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.appenders = append(l.appenders, appender)
}

func (l *impl) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var err error
	for _, appender := range l.appenders {
		err = multierr.Combine(err, appender.Sync())
	}
	return err
}

func (l *impl) log(level Level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}

	entry := zapcore.Entry{
		Level:      level.AsZap(),
		Time:       now(),
		LoggerName: l.name,
		Message:    msg,
	}
	for _, appender := range l.appenders {
		//nolint:errcheck
		appender.Write(entry, nil)
	}
}

func (l *impl) Debug(args ...interface{}) { l.log(DEBUG, fmt.Sprint(args...)) }
func (l *impl) Debugf(template string, args ...interface{}) {
	l.log(DEBUG, fmt.Sprintf(template, args...))
}

func (l *impl) Info(args ...interface{}) { l.log(INFO, fmt.Sprint(args...)) }
func (l *impl) Infof(template string, args ...interface{}) {
	l.log(INFO, fmt.Sprintf(template, args...))
}

func (l *impl) Warn(args ...interface{}) { l.log(WARN, fmt.Sprint(args...)) }
func (l *impl) Warnf(template string, args ...interface{}) {
	l.log(WARN, fmt.Sprintf(template, args...))
}

func (l *impl) Error(args ...interface{}) { l.log(ERROR, fmt.Sprint(args...)) }
func (l *impl) Errorf(template string, args ...interface{}) {
	l.log(ERROR, fmt.Sprintf(template, args...))
}

// discardWriter is used by tests that want a logger with an appender that
// goes nowhere.
type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// NewDiscardLogger returns a logger whose output is dropped.
func NewDiscardLogger(name string) Logger {
	logger := NewBlankLogger(name)
	logger.AddAppender(NewWriterAppender(discardWriter{}))
	return logger
}
