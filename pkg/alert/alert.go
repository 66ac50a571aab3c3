// Package alert classifies the water level against the operator's thresholds.
package alert

import (
	"encoding/json"
	"fmt"
)

// State is the alert classification of one reading.
type State int

const (
	Normal State = iota
	Low
	Full
	// Error means the measurement itself failed. It is reported apart
	// from Low so that an empty tank and a broken sensor can be told apart.
	Error
)

// Evaluate maps a percentage to a State.
// An invalid measurement is always Error, whatever the thresholds.
// Both thresholds are inclusive: percent == low is Low and
// percent == high is Full. Low wins if the thresholds overlap.
func Evaluate(percent float64, valid bool, low, high float64) State {
	if !valid {
		return Error
	}
	if percent <= low {
		return Low
	}
	if percent >= high {
		return Full
	}
	return Normal
}

// String returns the lower-case name used in JSON payloads.
func (s State) String() string {
	switch s {
	case Normal:
		return "normal"
	case Low:
		return "low"
	case Full:
		return "full"
	case Error:
		return "error"
	}
	return "unknown"
}

// Token returns the upper-case token rendered on displays.
func (s State) Token() string {
	switch s {
	case Normal:
		return "OK"
	case Low:
		return "LOW"
	case Full:
		return "FULL"
	case Error:
		return "ERROR"
	}
	return "?"
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// ParseState is the inverse of String.
func ParseState(s string) (State, error) {
	for _, st := range []State{Normal, Low, Full, Error} {
		if st.String() == s {
			return st, nil
		}
	}
	return Normal, fmt.Errorf("unknown alert state %q", s)
}

func (s *State) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	v, err := ParseState(str)
	if err != nil {
		return err
	}
	*s = v
	return nil
}
