package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charlie0129/tankmon/pkg/display"
	"github.com/charlie0129/tankmon/pkg/format"
	"github.com/charlie0129/tankmon/pkg/sensor"
	"github.com/charlie0129/tankmon/pkg/tank"
	"github.com/charlie0129/tankmon/pkg/utils/ptr"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "tankmon.json")
	if err := os.WriteFile(p, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestFileLoadDefaults(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{
			name: "missing file",
			path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.json") },
		},
		{
			name: "empty file",
			path: func(t *testing.T) string { return writeConfig(t, "  \n") },
		},
		{
			name: "empty object",
			path: func(t *testing.T) string { return writeConfig(t, "{}") },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFile(tt.path(t))
			if err != nil {
				t.Fatalf("NewFile() error = %v", err)
			}
			s := f.Snapshot()
			if s.Calibration.Geometry.DepthCm != 100 {
				t.Errorf("depth = %v, want 100", s.Calibration.Geometry.DepthCm)
			}
			if s.AlertLow != 20 || s.AlertHigh != 80 {
				t.Errorf("alerts = %v/%v, want 20/80", s.AlertLow, s.AlertHigh)
			}
			if s.DisplayMode != format.ModeLevel {
				t.Errorf("mode = %v, want level", s.DisplayMode)
			}
			if s.DisplayBrightness != 8 {
				t.Errorf("brightness = %v, want 8", s.DisplayBrightness)
			}
			if s.Units != tank.DefaultUnits {
				t.Errorf("units = %+v, want %+v", s.Units, tank.DefaultUnits)
			}
			if s.PublishIntervalSeconds != 10 || s.SampleIntervalSeconds != 1 {
				t.Errorf("intervals = %v/%v, want 1/10", s.SampleIntervalSeconds, s.PublishIntervalSeconds)
			}
			if s.MQTT.Topic != "home/waterlevel" || s.MQTT.Broker != "" {
				t.Errorf("mqtt = %+v", s.MQTT)
			}
			if s.MQTT.ConnectTimeoutMs != 10000 || s.MQTT.WriteTimeoutMs != 5000 || s.MQTT.CAFile != "" || s.MQTT.InsecureSkipVerify {
				t.Errorf("mqtt connection defaults = %+v", s.MQTT)
			}
			if s.Sensor.Type != sensor.TypeSerial || s.Sensor.MedianCount != 1 {
				t.Errorf("sensor = %+v", s.Sensor)
			}
		})
	}
}

func TestFileLoadOverrides(t *testing.T) {
	p := writeConfig(t, `{
  "tankShape": "cylinder",
  "tankDepthCm": 150,
  "tankDiameterCm": 60,
  "sensorOffsetCm": 5,
  "levelUnit": "percent",
  "volumeUnit": "gal",
  "display": "7seg",
  "displayMode": "volume",
  "displayBrightness": 99,
  "alertLow": 10,
  "alertHigh": 95,
  "sensor": {"type": "sim", "simulatedDistanceCm": 42},
  "mqtt": {"broker": "tcp://localhost:1883", "password": "hunter2", "connectTimeoutMs": 2500, "caFile": "/etc/ssl/mqtt-ca.pem"}
}`)

	f, err := NewFile(p)
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}
	s := f.Snapshot()

	want := tank.Geometry{Shape: tank.ShapeCylinder, DiameterCm: 60, DepthCm: 150}
	if s.Calibration.Geometry != want {
		t.Errorf("geometry = %+v, want %+v", s.Calibration.Geometry, want)
	}
	if s.Calibration.OffsetCm != 5 {
		t.Errorf("offset = %v, want 5", s.Calibration.OffsetCm)
	}
	if s.Units.Level != tank.LevelPercent || s.Units.Volume != tank.Gallons || s.Units.Length != tank.Centimeters {
		t.Errorf("units = %+v", s.Units)
	}
	if s.Display != display.TypeSevenSegment || s.DisplayMode != format.ModeVolume {
		t.Errorf("display = %v/%v", s.Display, s.DisplayMode)
	}
	if s.DisplayBrightness != display.MaxBrightness {
		t.Errorf("brightness = %v, want %v", s.DisplayBrightness, display.MaxBrightness)
	}
	if s.Sensor.Type != sensor.TypeSimulated || s.Sensor.SimulatedDistanceCm != 42 {
		t.Errorf("sensor = %+v", s.Sensor)
	}
	// Unset nested fields still fall back to defaults.
	if s.Sensor.BaudRate != sensor.DefaultBaudRate || s.MQTT.Topic != "home/waterlevel" {
		t.Errorf("nested defaults not applied: %+v %+v", s.Sensor, s.MQTT)
	}
	if s.MQTT.Password != "hunter2" {
		t.Errorf("password = %q", s.MQTT.Password)
	}
	if s.MQTT.ConnectTimeoutMs != 2500 || s.MQTT.WriteTimeoutMs != 5000 || s.MQTT.CAFile != "/etc/ssl/mqtt-ca.pem" {
		t.Errorf("mqtt connection settings = %+v", s.MQTT)
	}
}

func TestFileLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "malformed json", content: `{"tankDepthCm": `},
		{name: "unknown unit", content: `{"lengthUnit": "furlong"}`},
		{name: "unknown mode", content: `{"displayMode": "sparkle"}`},
		{name: "inverted thresholds", content: `{"alertLow": 90, "alertHigh": 10}`},
		{name: "threshold out of range", content: `{"alertHigh": 120}`},
		{name: "bad qos", content: `{"mqtt": {"qos": 3}}`},
		{name: "negative write timeout", content: `{"mqtt": {"writeTimeoutMs": -1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeConfig(t, `{"tankDepthCm": 200}`)
			f, err := NewFile(p)
			if err != nil {
				t.Fatalf("NewFile() error = %v", err)
			}

			if err := os.WriteFile(p, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			if err := f.Load(); err == nil {
				t.Fatalf("Load() expected error")
			}
			// The previous configuration stays in effect.
			if got := f.Snapshot().Calibration.Geometry.DepthCm; got != 200 {
				t.Errorf("depth after failed reload = %v, want 200", got)
			}
		})
	}
}

func TestFileSaveAndLoad(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tankmon.json")
	f := NewFileFromConfig(nil, p)
	if err := f.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := NewFile(p)
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}
	if loaded.Snapshot() != f.Snapshot() {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded.Snapshot(), f.Snapshot())
	}
}

func TestNewRawFileConfigFromConfig(t *testing.T) {
	f := NewFileFromConfig(&RawFileConfig{
		MQTT: &RawMQTTConfig{Broker: ptr.To("tcp://broker:1883"), Password: ptr.To("secret")},
	}, "")

	raw, err := NewRawFileConfigFromConfig(f)
	if err != nil {
		t.Fatalf("NewRawFileConfigFromConfig() error = %v", err)
	}
	if *raw.MQTT.Password != redacted {
		t.Errorf("password = %q, want redacted", *raw.MQTT.Password)
	}
	if *raw.MQTT.Broker != "tcp://broker:1883" {
		t.Errorf("broker = %q", *raw.MQTT.Broker)
	}
	if *raw.TankDepthCm != 100 {
		t.Errorf("depth = %v, want default 100", *raw.TankDepthCm)
	}

	if _, err := NewRawFileConfigFromConfig(nil); err == nil {
		t.Errorf("expected error for nil config")
	}
}

func TestFileSnapshotDuringReload(t *testing.T) {
	f, err := NewFile(writeConfig(t, `{"tankDepthCm": 150}`))
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			if err := f.Load(); err != nil {
				t.Errorf("Load() error = %v", err)
				return
			}
		}
	}()
	for i := 0; i < 50; i++ {
		if got := f.Snapshot().Calibration.Geometry.DepthCm; got != 150 {
			t.Errorf("depth = %v, want 150", got)
		}
	}
	<-done
}
