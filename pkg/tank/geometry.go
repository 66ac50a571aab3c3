package tank

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Shape is the cross-section of the tank.
type Shape string

const (
	ShapeRectangle Shape = "rectangle"
	ShapeCylinder  Shape = "cylinder"
)

// DefaultDepthCm is used when the configured depth is not positive.
const DefaultDepthCm = 100.0

// ParseShape parses a shape name. Matching is case-insensitive.
func ParseShape(s string) (Shape, error) {
	switch Shape(strings.ToLower(strings.TrimSpace(s))) {
	case ShapeRectangle:
		return ShapeRectangle, nil
	case ShapeCylinder:
		return ShapeCylinder, nil
	default:
		return "", fmt.Errorf("unknown tank shape %q: expected rectangle or cylinder", s)
	}
}

func (s *Shape) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	v, err := ParseShape(str)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Geometry describes the tank. Only the dimensions relevant to Shape
// are read: WidthCm and LengthCm for rectangles, DiameterCm for cylinders.
type Geometry struct {
	Shape      Shape   `json:"shape"`
	WidthCm    float64 `json:"widthCm"`
	LengthCm   float64 `json:"lengthCm"`
	DiameterCm float64 `json:"diameterCm"`
	DepthCm    float64 `json:"depthCm"`
}

// EffectiveDepth returns DepthCm, or DefaultDepthCm if DepthCm <= 0.
func (g Geometry) EffectiveDepth() float64 {
	if g.DepthCm > 0 {
		return g.DepthCm
	}
	return DefaultDepthCm
}

// BaseAreaCm2 returns the horizontal cross-section area of the tank.
// ok is false when a required dimension is missing.
func (g Geometry) BaseAreaCm2() (area float64, ok bool) {
	switch g.Shape {
	case ShapeCylinder:
		if g.DiameterCm <= 0 {
			return 0, false
		}
		r := g.DiameterCm / 2
		return math.Pi * r * r, true
	case ShapeRectangle, "":
		if g.WidthCm <= 0 || g.LengthCm <= 0 {
			return 0, false
		}
		return g.WidthCm * g.LengthCm, true
	}
	return 0, false
}
