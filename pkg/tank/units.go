package tank

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	cmPerInch       = 2.54
	gallonsPerLiter = 0.264172
)

// LengthUnit is used for distances.
type LengthUnit string

const (
	Centimeters LengthUnit = "cm"
	Inches      LengthUnit = "in"
)

// LevelUnit is used for the water level. Besides lengths it can be a
// percentage of the tank depth.
type LevelUnit string

const (
	LevelCentimeters LevelUnit = "cm"
	LevelInches      LevelUnit = "in"
	LevelPercent     LevelUnit = "percent"
)

// VolumeUnit is used for the stored volume.
type VolumeUnit string

const (
	Liters  VolumeUnit = "L"
	Gallons VolumeUnit = "gal"
)

// Units groups the unit preferences of the operator.
type Units struct {
	Length LengthUnit `json:"length"`
	Level  LevelUnit  `json:"level"`
	Volume VolumeUnit `json:"volume"`
}

// DefaultUnits are metric.
var DefaultUnits = Units{
	Length: Centimeters,
	Level:  LevelCentimeters,
	Volume: Liters,
}

// CmToInches converts centimeters to inches.
func CmToInches(cm float64) float64 { return cm / cmPerInch }

// InchesToCm converts inches to centimeters.
func InchesToCm(in float64) float64 { return in * cmPerInch }

// LitersToGallons converts liters to US gallons.
func LitersToGallons(l float64) float64 { return l * gallonsPerLiter }

// Length converts cm to u.
func (u LengthUnit) Length(cm float64) float64 {
	if u == Inches {
		return CmToInches(cm)
	}
	return cm
}

// Volume converts liters to u.
func (u VolumeUnit) Volume(liters float64) float64 {
	if u == Gallons {
		return LitersToGallons(liters)
	}
	return liters
}

func ParseLengthUnit(s string) (LengthUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cm", "centimeters":
		return Centimeters, nil
	case "in", "inch", "inches":
		return Inches, nil
	}
	return "", fmt.Errorf("unknown length unit %q: expected cm or in", s)
}

func ParseLevelUnit(s string) (LevelUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cm", "centimeters":
		return LevelCentimeters, nil
	case "in", "inch", "inches":
		return LevelInches, nil
	case "percent", "%":
		return LevelPercent, nil
	}
	return "", fmt.Errorf("unknown level unit %q: expected cm, in or percent", s)
}

func ParseVolumeUnit(s string) (VolumeUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "l", "liter", "liters", "litre", "litres":
		return Liters, nil
	case "gal", "gallon", "gallons":
		return Gallons, nil
	}
	return "", fmt.Errorf("unknown volume unit %q: expected L or gal", s)
}

func (u *LengthUnit) UnmarshalJSON(b []byte) error {
	return unmarshalUnit(b, ParseLengthUnit, u)
}

func (u *LevelUnit) UnmarshalJSON(b []byte) error {
	return unmarshalUnit(b, ParseLevelUnit, u)
}

func (u *VolumeUnit) UnmarshalJSON(b []byte) error {
	return unmarshalUnit(b, ParseVolumeUnit, u)
}

func unmarshalUnit[T any](b []byte, parse func(string) (T, error), dst *T) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := parse(s)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}
