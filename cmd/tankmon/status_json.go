package main

import (
	"math"
	"time"

	"github.com/charlie0129/tankmon/pkg/config"
	"github.com/charlie0129/tankmon/pkg/types"
)

type statusJSON struct {
	Reading       statusReadingJSON `json:"reading"`
	Configuration statusConfigJSON  `json:"configuration"`
}

type statusReadingJSON struct {
	Display       string  `json:"display"`
	Alert         string  `json:"alert"`
	Valid         bool    `json:"valid"`
	OutOfRange    bool    `json:"outOfRange"`
	LevelCm       float64 `json:"levelCm"`
	Percent       float64 `json:"percent"`
	DistanceCm    float64 `json:"distanceCm"`
	RawDistanceCm float64 `json:"rawDistanceCm"`
	// VolumeLiters is null when the tank geometry does not allow computing it.
	VolumeLiters *float64   `json:"volumeLiters"`
	SampledAt    *time.Time `json:"sampledAt"`
}

type statusConfigJSON struct {
	Shape                  string  `json:"shape"`
	DepthCm                float64 `json:"depthCm"`
	SensorOffsetCm         float64 `json:"sensorOffsetCm"`
	AlertLowPercent        float64 `json:"alertLowPercent"`
	AlertHighPercent       float64 `json:"alertHighPercent"`
	DisplayMode            string  `json:"displayMode"`
	SampleIntervalSeconds  int     `json:"sampleIntervalSeconds"`
	PublishIntervalSeconds int     `json:"publishIntervalSeconds"`
	MQTTEnabled            bool    `json:"mqttEnabled"`
	MQTTTopic              string  `json:"mqttTopic"`
	AllowNonRootAccess     bool    `json:"allowNonRootAccess"`
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func newStatusJSON(res *types.TickResult, s config.Settings) statusJSON {
	r := res.Reading

	out := statusJSON{
		Reading: statusReadingJSON{
			Display:       res.Text,
			Alert:         res.Alert.String(),
			Valid:         r.Valid,
			OutOfRange:    r.OutOfRange,
			LevelCm:       round1(r.LevelCm),
			Percent:       round1(r.Percent),
			DistanceCm:    round1(r.DistanceCm),
			RawDistanceCm: round1(r.RawDistanceCm),
		},
		Configuration: statusConfigJSON{
			Shape:                  string(s.Calibration.Geometry.Shape),
			DepthCm:                s.Calibration.Geometry.EffectiveDepth(),
			SensorOffsetCm:         s.Calibration.OffsetCm,
			AlertLowPercent:        s.AlertLow,
			AlertHighPercent:       s.AlertHigh,
			DisplayMode:            string(s.DisplayMode),
			SampleIntervalSeconds:  max(1, s.SampleIntervalSeconds),
			PublishIntervalSeconds: max(1, s.PublishIntervalSeconds),
			MQTTEnabled:            s.MQTT.Broker != "",
			MQTTTopic:              s.MQTT.Topic,
			AllowNonRootAccess:     s.AllowNonRootAccess,
		},
	}

	if r.Valid && r.VolumeAvailable {
		v := round1(r.VolumeLiters)
		out.Reading.VolumeLiters = &v
	}
	if !res.Sample.At.IsZero() {
		at := res.Sample.At
		out.Reading.SampledAt = &at
	}

	return out
}
