// Package tank turns raw ranging samples into calibrated water levels.
//
// Everything here is canonical: lengths are centimeters and volumes are
// liters. Unit conversion happens at presentation time so that repeated
// conversions never compound rounding errors.
package tank

import (
	"math"

	"github.com/charlie0129/tankmon/pkg/sensor"
)

// Calibration is the configuration needed to derive a Reading.
type Calibration struct {
	Geometry Geometry
	// OffsetCm is the systematic sensor bias, subtracted from
	// every raw distance before any geometry math.
	OffsetCm float64
}

// Reading is the result of one derivation pass.
type Reading struct {
	// RawDistanceCm is what the sensor reported, before calibration.
	RawDistanceCm float64 `json:"rawDistanceCm"`
	// DistanceCm is RawDistanceCm minus the calibration offset.
	DistanceCm float64 `json:"distanceCm"`
	DepthCm    float64 `json:"depthCm"`
	LevelCm    float64 `json:"levelCm"`
	Percent    float64 `json:"percent"`
	// VolumeLiters is only meaningful when VolumeAvailable is true.
	VolumeLiters    float64 `json:"volumeLiters"`
	VolumeAvailable bool    `json:"volumeAvailable"`
	Valid           bool    `json:"valid"`
	// OutOfRange is set when the calibrated distance exceeds the tank
	// depth. Level and percent are zero in that case.
	OutOfRange bool `json:"outOfRange"`
}

// Derive computes level, percentage and volume from s.
// An invalid sample yields a Reading with Valid set to false and every
// other field zeroed.
func Derive(s sensor.Sample, c Calibration) Reading {
	if !s.Valid || math.IsNaN(s.DistanceCm) || math.IsInf(s.DistanceCm, 0) {
		return Reading{}
	}

	depth := c.Geometry.EffectiveDepth()
	r := Reading{
		RawDistanceCm: s.DistanceCm,
		DistanceCm:    s.DistanceCm - c.OffsetCm,
		DepthCm:       depth,
		Valid:         true,
	}

	if r.DistanceCm > depth {
		r.OutOfRange = true
	} else {
		// A distance shorter than the offset means the surface is above
		// the calibrated full mark. Report a full tank, not more.
		r.LevelCm = clamp(depth-r.DistanceCm, 0, depth)
	}
	r.Percent = clamp(r.LevelCm/depth*100, 0, 100)

	if area, ok := c.Geometry.BaseAreaCm2(); ok {
		r.VolumeLiters = area * r.LevelCm / 1000
		r.VolumeAvailable = true
	}

	return r
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
