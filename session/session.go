// Package session manages execution session directories and the JSON
// archives written into them for offline inspection.
//
// Each executive run creates sessions/{exec}_{YYYYMMDD_HHMMSS}/ under the
// repository root (from the DEIMOS_ROOT environment variable), containing an
// arch/ directory for data products and the {exec}.log file.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/deimos-rover/deimos/logging"
)

// RootEnvVar names the environment variable pointing at the repository
// root.
const RootEnvVar = "DEIMOS_ROOT"

const timestampFormat = "20060102_150405"

// ErrRootNotSet is returned when the root environment variable is missing.
var ErrRootNotSet = errors.Errorf("the software root environment variable (%s) is not set", RootEnvVar)

// Session is one execution session.
type Session struct {
	// ExecName is the executable the session belongs to.
	ExecName string

	// SessionRoot is the session's directory.
	SessionRoot string

	// ArchRoot is the session's archive directory.
	ArchRoot string

	// LogFilePath is the session's log file.
	LogFilePath string

	clock clock.Clock
	epoch time.Time

	mu sync.Mutex
}

// New starts a session for the given executable under root/sessionsDir.
func New(execName, sessionsDir string) (*Session, error) {
	root := os.Getenv(RootEnvVar)
	if root == "" {
		return nil, ErrRootNotSet
	}
	return NewAt(execName, filepath.Join(root, sessionsDir), clock.New())
}

// NewAt starts a session in an explicit directory with an explicit clock.
// Used directly by tests; New is the production entry point.
func NewAt(execName, sessionsDir string, clk clock.Clock) (*Session, error) {
	epoch := clk.Now().UTC()
	sessionRoot := filepath.Join(
		sessionsDir,
		fmt.Sprintf("%s_%s", execName, epoch.Format(timestampFormat)),
	)
	archRoot := filepath.Join(sessionRoot, "arch")

	if err := os.MkdirAll(archRoot, 0o755); err != nil {
		return nil, errors.Wrap(err, "cannot create the session directory")
	}

	return &Session{
		ExecName:    execName,
		SessionRoot: sessionRoot,
		ArchRoot:    archRoot,
		LogFilePath: filepath.Join(sessionRoot, execName+".log"),
		clock:       clk,
		epoch:       epoch,
	}, nil
}

// AttachLogFile adds the session's log file as an appender of the given
// logger, returning a close function for shutdown.
func (s *Session) AttachLogFile(logger logging.Logger) (func() error, error) {
	appender, closer, err := logging.NewFileAppender(s.LogFilePath)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open the session log file")
	}
	logger.AddAppender(appender)
	return closer.Close, nil
}

// ElapsedSeconds returns the seconds since the session epoch.
func (s *Session) ElapsedSeconds() float64 {
	return s.clock.Now().UTC().Sub(s.epoch).Seconds()
}

// Save writes v as JSON to the given path relative to the archive root,
// creating directories as needed.
func (s *Session) Save(relPath string, v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.ArchRoot, relPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "cannot create archive directory")
	}

	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "cannot serialise %q", relPath)
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "cannot write %q", relPath)
}

// SaveWithTimestamp is Save with the session elapsed time spliced into the
// file name, so repeated products of the same kind don't overwrite each
// other.
func (s *Session) SaveWithTimestamp(relPath string, v interface{}) error {
	ext := filepath.Ext(relPath)
	stem := relPath[:len(relPath)-len(ext)]
	stamped := fmt.Sprintf("%s_%013.3f%s", stem, s.ElapsedSeconds(), ext)
	return s.Save(stamped, v)
}
