// Package display defines the display backends the daemon renders to.
package display

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Capabilities describes what a backend can render.
type Capabilities struct {
	// Text is true for backends that can render arbitrary text
	// (LED matrices, OLEDs, consoles). Numeric-only backends still accept
	// ShowText, but only on a best-effort basis.
	Text bool
	// Precision is the number of fractional digits a numeric backend
	// renders natively.
	Precision int
}

// Device is a display backend.
type Device interface {
	ShowText(text string, scroll bool) error
	ShowNumber(value float64) error
	Clear() error
	Capabilities() Capabilities
}

// Dimmer is implemented by devices with adjustable brightness.
type Dimmer interface {
	// SetBrightness takes a value between MinBrightness and MaxBrightness.
	SetBrightness(level int) error
}

const (
	MinBrightness = 0
	MaxBrightness = 15
)

// ClampBrightness limits b to the supported range.
func ClampBrightness(b int) int {
	return max(MinBrightness, min(MaxBrightness, b))
}

// Type names a display backend in the configuration.
type Type string

const (
	TypeConsole      Type = "console"
	TypeSevenSegment Type = "sevensegment"
	TypeNone         Type = "none"
)

func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeConsole, TypeSevenSegment, TypeNone:
		return t, nil
	case "7seg", "seven-segment":
		return TypeSevenSegment, nil
	}
	return "", fmt.Errorf("unknown display type %q: expected console, sevensegment or none", s)
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
