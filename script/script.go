// Package script interprets rover command scripts: timed telecommands for
// offline runs of the executive, one per line in the form
//
//	<seconds>: <json-TC>;
package script

import (
	"os"
	"regexp"
	"strconv"

	"github.com/pkg/errors"

	"github.com/deimos-rover/deimos/comms/tc"
)

// Errors raised while loading scripts.
var (
	// ErrScriptEmpty is returned when no command lines parse at all.
	ErrScriptEmpty = errors.New("the script is empty")
)

// Command is a telecommand scheduled at a session-relative time.
type Command struct {
	// ExecTimeS is when the command should execute, in seconds since the
	// session epoch.
	ExecTimeS float64

	// Tc is the telecommand to run.
	Tc tc.Tc
}

// Interpreter replays a loaded script against the session clock.
type Interpreter struct {
	cmds []Command
	next int
}

var lineRe = regexp.MustCompile(`(?m)^\s*(\d+(\.\d+)?)\s*:\s*([^;]*);`)

// Load parses the script at the given path.
func Load(path string) (*Interpreter, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not load the script")
	}
	return Parse(string(raw))
}

// Parse parses script text.
func Parse(text string) (*Interpreter, error) {
	var cmds []Command
	for _, match := range lineRe.FindAllStringSubmatch(text, -1) {
		execTimeS, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "script contains an invalid timestamp %q", match[1])
		}

		parsed, err := tc.ParseTc([]byte(match[3]))
		if err != nil {
			return nil, errors.Wrapf(err, "script contains an invalid TC at %0.2f s", execTimeS)
		}

		cmds = append(cmds, Command{ExecTimeS: execTimeS, Tc: parsed})
	}

	if len(cmds) == 0 {
		return nil, ErrScriptEmpty
	}
	return &Interpreter{cmds: cmds}, nil
}

// NumTcs returns the number of commands remaining in the script.
func (i *Interpreter) NumTcs() int { return len(i.cmds) - i.next }

// DurationS returns the execution time of the final command.
func (i *Interpreter) DurationS() float64 {
	if len(i.cmds) == 0 {
		return 0
	}
	return i.cmds[len(i.cmds)-1].ExecTimeS
}

// PendingTcs returns the commands due at the given session time. The second
// return is true once the script is exhausted.
func (i *Interpreter) PendingTcs(elapsedS float64) ([]tc.Tc, bool) {
	if i.next >= len(i.cmds) {
		return nil, true
	}

	var due []tc.Tc
	for i.next < len(i.cmds) && i.cmds[i.next].ExecTimeS < elapsedS {
		due = append(due, i.cmds[i.next].Tc)
		i.next++
	}
	return due, false
}
