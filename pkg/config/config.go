package config

import (
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/tankmon/pkg/display"
	"github.com/charlie0129/tankmon/pkg/format"
	"github.com/charlie0129/tankmon/pkg/sensor"
	"github.com/charlie0129/tankmon/pkg/tank"
)

type Config interface {
	// Snapshot returns every setting, read at once. A caller that works
	// from one snapshot never sees a mix of old and new values.
	Snapshot() Settings
	LogrusFields() logrus.Fields

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}

// Settings is the resolved configuration, with defaults applied.
type Settings struct {
	Calibration tank.Calibration
	Units       tank.Units

	Display           display.Type
	DisplayMode       format.Mode
	DisplayScroll     bool
	DisplayBrightness int
	DeviceName        string

	AlertLow  float64
	AlertHigh float64

	SampleIntervalSeconds  int
	PublishIntervalSeconds int

	Sensor SensorSettings
	MQTT   MQTTSettings

	AllowNonRootAccess bool
}

type SensorSettings struct {
	Type        sensor.Type
	Path        string
	BaudRate    int
	TimeoutMs   int
	MaxRangeCm  float64
	MedianCount int
	// SimulatedDistanceCm is the distance reported by the simulated sensor.
	SimulatedDistanceCm float64
}

type MQTTSettings struct {
	// Broker is empty when publishing to MQTT is disabled.
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
	QoS      byte
	Retained bool

	ConnectTimeoutMs int
	WriteTimeoutMs   int
	// CAFile is a PEM bundle used to verify the broker instead of the
	// system roots.
	CAFile             string
	InsecureSkipVerify bool
}
