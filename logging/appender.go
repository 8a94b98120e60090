package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// DefaultTimeFormatStr is the time format used by appenders.
const DefaultTimeFormatStr = "2006-01-02T15:04:05.000Z0700"

func now() time.Time { return time.Now() }

// Appender is an output for log entries. This is a subset of the
// zapcore.Core interface.
type Appender interface {
	// Write submits a structured log entry to the appender for logging.
	Write(zapcore.Entry, []zapcore.Field) error
	// Sync flushes any buffered logs. E.g: at shutdown.
	Sync() error
}

// ConsoleAppender writes human readable lines to the given writer.
type ConsoleAppender struct {
	io.Writer
}

// NewStdoutAppender creates a new appender that prints to stdout.
func NewStdoutAppender() ConsoleAppender {
	return ConsoleAppender{os.Stdout}
}

// NewWriterAppender creates a new appender that prints to the input writer.
func NewWriterAppender(writer io.Writer) ConsoleAppender {
	return ConsoleAppender{writer}
}

// Write outputs the log entry to the underlying stream.
func (appender ConsoleAppender) Write(entry zapcore.Entry, _ []zapcore.Field) error {
	toPrint := []string{
		// UTC so logs from different executives can be compared without
		// matching timezone configuration.
		entry.Time.UTC().Format(DefaultTimeFormatStr),
		strings.ToUpper(entry.Level.String()),
		entry.LoggerName,
		entry.Message,
	}
	_, err := fmt.Fprintln(appender.Writer, strings.Join(toPrint, "\t"))
	return err
}

// Sync is a no-op.
func (appender ConsoleAppender) Sync() error {
	return nil
}

// NewFileAppender creates an appender that writes to the given log file, with
// rotation so that restarts with the same filename move the old file out of
// the way. The returned io.Closer closes the underlying file.
func NewFileAppender(filename string) (Appender, io.Closer, error) {
	logger := &lumberjack.Logger{
		Filename: filename,
		// Effectively infinite; rotation happens on restart, not on size.
		MaxSize: 1024 * 1024,
	}

	if err := logger.Rotate(); err != nil {
		return nil, nil, err
	}

	return NewWriterAppender(logger), logger, nil
}
