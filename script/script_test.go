package script

import (
	"testing"

	"go.viam.com/test"

	"github.com/deimos-rover/deimos/comms/tc"
)

const testScript = `
# commands to exercise a short traverse
0.5: {"type": "HEARTBEAT"};
1.0: {"type": "AUTO", "payload": {"type": "PAUSE"}};
2.5: {"type": "AUTO", "payload": {"type": "RESUME"}};
`

func TestParse(t *testing.T) {
	interp, err := Parse(testScript)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, interp.NumTcs(), test.ShouldEqual, 3)
	test.That(t, interp.DurationS(), test.ShouldEqual, 2.5)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("no commands here")
	test.That(t, err, test.ShouldBeError, ErrScriptEmpty)

	_, err = Parse(`1.0: {"type": "WARP"};`)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPendingTcs(t *testing.T) {
	interp, err := Parse(testScript)
	test.That(t, err, test.ShouldBeNil)

	// Nothing due yet.
	due, done := interp.PendingTcs(0.1)
	test.That(t, done, test.ShouldBeFalse)
	test.That(t, len(due), test.ShouldEqual, 0)

	// Two due by t=1.5, delivered in order, once.
	due, done = interp.PendingTcs(1.5)
	test.That(t, done, test.ShouldBeFalse)
	test.That(t, len(due), test.ShouldEqual, 2)
	test.That(t, due[0].Type, test.ShouldEqual, tc.TypeHeartbeat)
	test.That(t, due[1].Type, test.ShouldEqual, tc.TypeAutonomy)

	due, done = interp.PendingTcs(1.6)
	test.That(t, done, test.ShouldBeFalse)
	test.That(t, len(due), test.ShouldEqual, 0)

	// The last command, then end of script.
	due, done = interp.PendingTcs(10)
	test.That(t, done, test.ShouldBeFalse)
	test.That(t, len(due), test.ShouldEqual, 1)

	_, done = interp.PendingTcs(11)
	test.That(t, done, test.ShouldBeTrue)
}
