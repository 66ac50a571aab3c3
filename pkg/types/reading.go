package types

import (
	"time"

	"github.com/charlie0129/tankmon/pkg/alert"
	"github.com/charlie0129/tankmon/pkg/sensor"
	"github.com/charlie0129/tankmon/pkg/tank"
)

// TickResult describes one pass of the daemon's pipeline.
// This struct is shared between the daemon and client packages.
type TickResult struct {
	Sample  sensor.Sample `json:"sample"`
	Reading tank.Reading  `json:"reading"`
	Alert   alert.State   `json:"alert"`
	Text    string        `json:"text"`

	Sampled   bool `json:"sampled"`
	Rendered  bool `json:"rendered"`
	Published bool `json:"published"`

	At time.Time `json:"at"`
}

// Record is one sampled reading in the daemon's history.
type Record struct {
	At      time.Time    `json:"at"`
	Text    string       `json:"text"`
	Reading tank.Reading `json:"reading"`
	Alert   alert.State  `json:"alert"`
}

// NewRecord returns the record of a tick.
func NewRecord(res TickResult) Record {
	return Record{
		At:      res.At,
		Text:    res.Text,
		Reading: res.Reading,
		Alert:   res.Alert,
	}
}
