// Package format renders a tank reading for a display.
//
// Every number is printed with exactly one fractional digit. Display
// widths and log columns downstream rely on that.
package format

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/charlie0129/tankmon/pkg/alert"
	"github.com/charlie0129/tankmon/pkg/tank"
)

// Mode selects what the display shows.
type Mode string

const (
	ModeLevel    Mode = "level"
	ModeDistance Mode = "distance"
	ModePercent  Mode = "percent"
	ModeVolume   Mode = "volume"
	ModeText     Mode = "text"
	ModeStatus   Mode = "status"
)

// Modes lists every display mode.
var Modes = []Mode{ModeLevel, ModeDistance, ModePercent, ModeVolume, ModeText, ModeStatus}

const (
	// ErrorText is shown when the measurement failed.
	ErrorText = "ERROR"
	// RangeErrorPrefix starts the text shown when the distance exceeds the tank depth.
	RangeErrorPrefix = "RANGE ERR"
	// NotAvailable is shown instead of a volume that cannot be computed.
	NotAvailable = "N/A"
	// DefaultLabel is shown in text mode when no device name is set.
	DefaultLabel = "TANKMON"
)

func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range Modes {
		if m == v {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown display mode %q: expected one of %v", s, Modes)
}

func (m *Mode) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseMode(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Options controls how a reading is rendered.
type Options struct {
	Mode       Mode
	Units      tank.Units
	DeviceName string
	// Alert is rendered in status mode.
	Alert alert.State
}

// Format renders r as display text. The first matching rule wins:
// a failed measurement, then a range error, then the display mode.
func Format(r tank.Reading, o Options) string {
	if !r.Valid {
		return ErrorText
	}
	if r.OutOfRange {
		return RangeErrorPrefix + " " + length(r.RawDistanceCm, o.Units.Length)
	}

	switch o.Mode {
	case ModeLevel:
		return level(r, o.Units.Level)
	case ModeDistance:
		return length(distance(r), o.Units.Length)
	case ModePercent:
		return percent(r.Percent)
	case ModeVolume:
		if !r.VolumeAvailable {
			return NotAvailable
		}
		return volume(r.VolumeLiters, o.Units.Volume)
	case ModeText:
		if name := strings.TrimSpace(o.DeviceName); name != "" {
			return name
		}
		return DefaultLabel
	case ModeStatus:
		return o.Alert.Token()
	}

	// Unknown modes render like the default.
	return level(r, o.Units.Level)
}

// Number returns the single value a numeric-only display shows for the
// active mode. ok is false when there is no meaningful number, i.e. the
// measurement failed or is out of range.
func Number(r tank.Reading, o Options) (value float64, ok bool) {
	if !r.Valid || r.OutOfRange {
		return 0, false
	}

	switch o.Mode {
	case ModeLevel:
		switch o.Units.Level {
		case tank.LevelPercent:
			return r.Percent, true
		case tank.LevelInches:
			return tank.CmToInches(r.LevelCm), true
		}
		return r.LevelCm, true
	case ModeDistance:
		return o.Units.Length.Length(distance(r)), true
	case ModePercent, ModeVolume, ModeText, ModeStatus:
		return r.Percent, true
	}
	return r.Percent, true
}

func level(r tank.Reading, u tank.LevelUnit) string {
	switch u {
	case tank.LevelPercent:
		return percent(r.Percent)
	case tank.LevelInches:
		return fmt.Sprintf("%.1f %s", tank.CmToInches(r.LevelCm), tank.Inches)
	}
	return fmt.Sprintf("%.1f %s", r.LevelCm, tank.Centimeters)
}

// Length renders a length given in centimeters in unit u.
func Length(cm float64, u tank.LengthUnit) string {
	return length(cm, u)
}

func length(cm float64, u tank.LengthUnit) string {
	if u == tank.Inches {
		return fmt.Sprintf("%.1f %s", tank.CmToInches(cm), tank.Inches)
	}
	return fmt.Sprintf("%.1f %s", cm, tank.Centimeters)
}

func percent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

func volume(liters float64, u tank.VolumeUnit) string {
	if u == tank.Gallons {
		return fmt.Sprintf("%.1f %s", tank.LitersToGallons(liters), tank.Gallons)
	}
	return fmt.Sprintf("%.1f %s", liters, tank.Liters)
}

// distance is the calibrated distance, clamped at 0 like the level is
// clamped at the depth. An offset larger than the raw distance means the
// surface is above the calibrated full mark.
func distance(r tank.Reading) float64 {
	return math.Max(0, r.DistanceCm)
}
