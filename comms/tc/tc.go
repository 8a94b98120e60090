// Package tc defines the telecommands exchanged between the ground station
// and the rover executive, and the executive's responses to them.
//
// Transport is left to the networking layer; this package only fixes the JSON
// wire shapes and their validation.
package tc

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Type identifies the purpose of a telecommand.
type Type string

// All telecommand types.
const (
	TypeNone         Type = "NONE"
	TypeHeartbeat    Type = "HEARTBEAT"
	TypeMakeSafe     Type = "SAFE"
	TypeMakeUnsafe   Type = "UNSAFE"
	TypeLocoCtrlMnvr Type = "MNVR"
	TypeAutonomy     Type = "AUTO"
)

// Response is the executive's acknowledgement of a telecommand.
type Response string

// All telecommand responses.
const (
	ResponseOk            Response = "OK"
	ResponseInvalid       Response = "INVALID"
	ResponseCannotExecute Response = "CANNOT_EXECUTE"
)

// Tc is a telecommand: an instruction sent to the rover by the ground
// station.
type Tc struct {
	// Type of the telecommand.
	Type Type `json:"type"`

	// Payload associated with this TC, absent for types that carry none.
	Payload json.RawMessage `json:"payload,omitempty"`
}

var typeHasNoPayload = map[Type]bool{
	TypeNone:      true,
	TypeHeartbeat: true,
}

var validTypes = map[Type]bool{
	TypeNone:         true,
	TypeHeartbeat:    true,
	TypeMakeSafe:     true,
	TypeMakeUnsafe:   true,
	TypeLocoCtrlMnvr: true,
	TypeAutonomy:     true,
}

// ParseTc parses and validates a telecommand from its JSON form.
func ParseTc(data []byte) (Tc, error) {
	var parsed Tc
	if err := json.Unmarshal(data, &parsed); err != nil {
		return Tc{}, errors.Wrap(err, "tc contains invalid JSON")
	}

	if !validTypes[parsed.Type] {
		return Tc{}, errors.Errorf("%q is not a recognised TC type", parsed.Type)
	}

	if len(parsed.Payload) == 0 && !typeHasNoPayload[parsed.Type] {
		return Tc{}, errors.Errorf("TC of type %s is expected to have a payload but it doesn't", parsed.Type)
	}

	return parsed, nil
}

// SafePayload is the payload of MakeSafe and MakeUnsafe commands. Leaving
// safe mode requires a MakeUnsafe whose cause matches the one latched by the
// MakeSafe that entered it.
type SafePayload struct {
	Cause string `json:"cause"`
}

// SafeCause extracts the cause from a MakeSafe/MakeUnsafe TC.
func (tc Tc) SafeCause() (string, error) {
	if tc.Type != TypeMakeSafe && tc.Type != TypeMakeUnsafe {
		return "", errors.Errorf("TC of type %s has no safe cause", tc.Type)
	}
	var payload SafePayload
	if len(tc.Payload) > 0 {
		if err := json.Unmarshal(tc.Payload, &payload); err != nil {
			return "", errors.Wrap(err, "invalid safe payload")
		}
	}
	return payload.Cause, nil
}
