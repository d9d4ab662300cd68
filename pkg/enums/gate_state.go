package enums

import "fmt"

// GateState is the position of a visitor inside the phone verification flow.
type GateState string

const (
	GateStateAnonymous       GateState = "ANONYMOUS"
	GateStateAwaitingOTP     GateState = "AWAITING_OTP"
	GateStateAwaitingCode    GateState = "AWAITING_CODE"
	GateStateVerified        GateState = "VERIFIED"
	GateStateAwaitingAddress GateState = "AWAITING_ADDRESS"
	GateStateReady           GateState = "READY"
)

var validGateStates = []GateState{
	GateStateAnonymous,
	GateStateAwaitingOTP,
	GateStateAwaitingCode,
	GateStateVerified,
	GateStateAwaitingAddress,
	GateStateReady,
}

// String implements fmt.Stringer.
func (g GateState) String() string {
	return string(g)
}

// IsValid reports whether the value is a known GateState.
func (g GateState) IsValid() bool {
	for _, candidate := range validGateStates {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseGateState converts raw input into a GateState.
func ParseGateState(value string) (GateState, error) {
	for _, candidate := range validGateStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid gate state %q", value)
}
