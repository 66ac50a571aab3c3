// Package publish sends tank readings to other systems.
package publish

import (
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/charlie0129/tankmon/pkg/alert"
	"github.com/charlie0129/tankmon/pkg/tank"
)

// ErrNotConnected is returned when the transport is down. Callers drop
// the payload and try again at the next publish interval.
var ErrNotConnected = errors.New("publisher not connected")

// Publisher delivers a payload to a topic. Delivery guarantees, retries
// and reconnects belong to the implementation.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Payload is the JSON document published for every reading.
type Payload struct {
	// Display is the text the display shows.
	Display string `json:"display"`
	Percent float64 `json:"percent"`
	// Distance is the raw, uncalibrated sensor distance in centimeters.
	Distance float64 `json:"distance"`
	Level    float64 `json:"level"`
	// Volume is null when the tank geometry does not allow computing it.
	Volume    *float64    `json:"volume"`
	Alert alert.State `json:"alert"`
	Valid bool        `json:"valid"`
	// OutOfRange is set when the surface is farther than the tank depth.
	// Percent and level are zero then, which is not an empty tank.
	OutOfRange bool  `json:"outOfRange"`
	Timestamp  int64 `json:"ts"`
}

// NewPayload builds the payload of one reading. Numbers are rounded to
// one fractional digit, like on the display.
func NewPayload(text string, r tank.Reading, state alert.State, at time.Time) Payload {
	p := Payload{
		Display:    text,
		Percent:    round1(r.Percent),
		Distance:   round1(r.RawDistanceCm),
		Level:      round1(r.LevelCm),
		Alert:      state,
		Valid:      r.Valid,
		OutOfRange: r.OutOfRange,
		Timestamp:  at.Unix(),
	}
	if r.Valid && r.VolumeAvailable {
		v := round1(r.VolumeLiters)
		p.Volume = &v
	}
	return p
}

// Marshal encodes p as JSON.
func (p Payload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Fanout publishes to every inner publisher. It returns the joined
// errors of the publishers that failed.
type Fanout []Publisher

func (f Fanout) Publish(topic string, payload []byte) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(topic, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Func adapts a function to Publisher.
type Func func(topic string, payload []byte) error

func (f Func) Publish(topic string, payload []byte) error {
	return f(topic, payload)
}
