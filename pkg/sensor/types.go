package sensor

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Sample is the result of one ranging attempt.
// Valid is false when the echo timed out or the sensor reported an
// out-of-range value. DistanceCm is meaningless in that case and must
// not be read as "distance 0".
type Sample struct {
	DistanceCm float64   `json:"distanceCm"`
	Valid      bool      `json:"valid"`
	At         time.Time `json:"at"`
}

// Invalid returns a failed sample taken at t.
func Invalid(t time.Time) Sample {
	return Sample{At: t}
}

// RangeSensor produces one bounded-time distance measurement per call.
// Sample never blocks longer than the implementation's timeout.
type RangeSensor interface {
	Sample() Sample
	Close() error
}

// Type names a sensor backend in the configuration.
type Type string

const (
	TypeSerial    Type = "serial"
	TypeSimulated Type = "simulated"
)

func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeSerial, TypeSimulated:
		return t, nil
	case "sim":
		return TypeSimulated, nil
	}
	return "", fmt.Errorf("unknown sensor type %q: expected serial or simulated", s)
}

func (t *Type) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseType(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}
