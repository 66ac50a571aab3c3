package config

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/tankmon/pkg/display"
	"github.com/charlie0129/tankmon/pkg/format"
	"github.com/charlie0129/tankmon/pkg/publish"
	"github.com/charlie0129/tankmon/pkg/sensor"
	"github.com/charlie0129/tankmon/pkg/tank"
	"github.com/charlie0129/tankmon/pkg/utils/ptr"
)

const redacted = "******"

var (
	defaultFileConfig = &RawFileConfig{
		TankShape:      ptr.To(tank.ShapeRectangle),
		TankDepthCm:    ptr.To(tank.DefaultDepthCm),
		TankWidthCm:    ptr.To(0.0),
		TankLengthCm:   ptr.To(0.0),
		TankDiameterCm: ptr.To(0.0),
		SensorOffsetCm: ptr.To(0.0),

		LengthUnit: ptr.To(tank.Centimeters),
		LevelUnit:  ptr.To(tank.LevelCentimeters),
		VolumeUnit: ptr.To(tank.Liters),

		Display:           ptr.To(display.TypeConsole),
		DisplayMode:       ptr.To(format.ModeLevel),
		DisplayScroll:     ptr.To(true),
		DisplayBrightness: ptr.To(8),
		DeviceName:        ptr.To(""),

		AlertLow:  ptr.To(20.0),
		AlertHigh: ptr.To(80.0),

		SampleIntervalSeconds:  ptr.To(1),
		PublishIntervalSeconds: ptr.To(10),

		AllowNonRootAccess: ptr.To(false),

		Sensor: &RawSensorConfig{
			Type:                ptr.To(sensor.TypeSerial),
			Path:                ptr.To("/dev/ttyUSB0"),
			BaudRate:            ptr.To(sensor.DefaultBaudRate),
			TimeoutMs:           ptr.To(int(sensor.DefaultTimeout.Milliseconds())),
			MaxRangeCm:          ptr.To(sensor.DefaultMaxRangeCm),
			MedianCount:         ptr.To(1),
			SimulatedDistanceCm: ptr.To(30.0),
		},
		MQTT: &RawMQTTConfig{
			// No broker: publishing is disabled until one is configured.
			Broker:   ptr.To(""),
			Topic:    ptr.To("home/waterlevel"),
			ClientID: ptr.To(""),
			Username: ptr.To(""),
			Password: ptr.To(""),
			QoS:      ptr.To(byte(0)),
			Retained: ptr.To(false),

			ConnectTimeoutMs:   ptr.To(int(publish.DefaultConnectTimeout.Milliseconds())),
			WriteTimeoutMs:     ptr.To(int(publish.DefaultWriteTimeout.Milliseconds())),
			CAFile:             ptr.To(""),
			InsecureSkipVerify: ptr.To(false),
		},
	}
)

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = defaultFileConfig
	}

	f := &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}

	return f
}

type RawFileConfig struct {
	TankShape      *tank.Shape `json:"tankShape,omitempty"`
	TankDepthCm    *float64    `json:"tankDepthCm,omitempty"`
	TankWidthCm    *float64    `json:"tankWidthCm,omitempty"`
	TankLengthCm   *float64    `json:"tankLengthCm,omitempty"`
	TankDiameterCm *float64    `json:"tankDiameterCm,omitempty"`
	SensorOffsetCm *float64    `json:"sensorOffsetCm,omitempty"`

	LengthUnit *tank.LengthUnit `json:"lengthUnit,omitempty"`
	LevelUnit  *tank.LevelUnit  `json:"levelUnit,omitempty"`
	VolumeUnit *tank.VolumeUnit `json:"volumeUnit,omitempty"`

	Display           *display.Type `json:"display,omitempty"`
	DisplayMode       *format.Mode  `json:"displayMode,omitempty"`
	DisplayScroll     *bool         `json:"displayScroll,omitempty"`
	DisplayBrightness *int          `json:"displayBrightness,omitempty"`
	DeviceName        *string       `json:"deviceName,omitempty"`

	AlertLow  *float64 `json:"alertLow,omitempty"`
	AlertHigh *float64 `json:"alertHigh,omitempty"`

	SampleIntervalSeconds  *int `json:"sampleIntervalSeconds,omitempty"`
	PublishIntervalSeconds *int `json:"publishIntervalSeconds,omitempty"`

	AllowNonRootAccess *bool `json:"allowNonRootAccess,omitempty"`

	Sensor *RawSensorConfig `json:"sensor,omitempty"`
	MQTT   *RawMQTTConfig   `json:"mqtt,omitempty"`
}

type RawSensorConfig struct {
	Type                *sensor.Type `json:"type,omitempty"`
	Path                *string      `json:"path,omitempty"`
	BaudRate            *int         `json:"baudRate,omitempty"`
	TimeoutMs           *int         `json:"timeoutMs,omitempty"`
	MaxRangeCm          *float64     `json:"maxRangeCm,omitempty"`
	MedianCount         *int         `json:"medianCount,omitempty"`
	SimulatedDistanceCm *float64     `json:"simulatedDistanceCm,omitempty"`
}

type RawMQTTConfig struct {
	Broker   *string `json:"broker,omitempty"`
	Topic    *string `json:"topic,omitempty"`
	ClientID *string `json:"clientId,omitempty"`
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
	QoS      *byte   `json:"qos,omitempty"`
	Retained *bool   `json:"retained,omitempty"`

	ConnectTimeoutMs   *int    `json:"connectTimeoutMs,omitempty"`
	WriteTimeoutMs     *int    `json:"writeTimeoutMs,omitempty"`
	CAFile             *string `json:"caFile,omitempty"`
	InsecureSkipVerify *bool   `json:"insecureSkipVerify,omitempty"`
}

// NewRawFileConfigFromConfig returns the effective configuration of c,
// with the MQTT password redacted. It is meant for display, not for Save.
func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	s := c.Snapshot()
	password := ""
	if s.MQTT.Password != "" {
		password = redacted
	}

	g := s.Calibration.Geometry
	rawConfig := &RawFileConfig{
		TankShape:      ptr.To(g.Shape),
		TankDepthCm:    ptr.To(g.DepthCm),
		TankWidthCm:    ptr.To(g.WidthCm),
		TankLengthCm:   ptr.To(g.LengthCm),
		TankDiameterCm: ptr.To(g.DiameterCm),
		SensorOffsetCm: ptr.To(s.Calibration.OffsetCm),

		LengthUnit: ptr.To(s.Units.Length),
		LevelUnit:  ptr.To(s.Units.Level),
		VolumeUnit: ptr.To(s.Units.Volume),

		Display:           ptr.To(s.Display),
		DisplayMode:       ptr.To(s.DisplayMode),
		DisplayScroll:     ptr.To(s.DisplayScroll),
		DisplayBrightness: ptr.To(s.DisplayBrightness),
		DeviceName:        ptr.To(s.DeviceName),

		AlertLow:  ptr.To(s.AlertLow),
		AlertHigh: ptr.To(s.AlertHigh),

		SampleIntervalSeconds:  ptr.To(s.SampleIntervalSeconds),
		PublishIntervalSeconds: ptr.To(s.PublishIntervalSeconds),

		AllowNonRootAccess: ptr.To(s.AllowNonRootAccess),

		Sensor: &RawSensorConfig{
			Type:                ptr.To(s.Sensor.Type),
			Path:                ptr.To(s.Sensor.Path),
			BaudRate:            ptr.To(s.Sensor.BaudRate),
			TimeoutMs:           ptr.To(s.Sensor.TimeoutMs),
			MaxRangeCm:          ptr.To(s.Sensor.MaxRangeCm),
			MedianCount:         ptr.To(s.Sensor.MedianCount),
			SimulatedDistanceCm: ptr.To(s.Sensor.SimulatedDistanceCm),
		},
		MQTT: &RawMQTTConfig{
			Broker:   ptr.To(s.MQTT.Broker),
			Topic:    ptr.To(s.MQTT.Topic),
			ClientID: ptr.To(s.MQTT.ClientID),
			Username: ptr.To(s.MQTT.Username),
			Password: ptr.To(password),
			QoS:      ptr.To(s.MQTT.QoS),
			Retained: ptr.To(s.MQTT.Retained),

			ConnectTimeoutMs:   ptr.To(s.MQTT.ConnectTimeoutMs),
			WriteTimeoutMs:     ptr.To(s.MQTT.WriteTimeoutMs),
			CAFile:             ptr.To(s.MQTT.CAFile),
			InsecureSkipVerify: ptr.To(s.MQTT.InsecureSkipVerify),
		},
	}

	return rawConfig, nil
}

func (f *File) Snapshot() Settings {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		panic("config is nil")
	}

	return resolve(f.c)
}

// resolve applies the defaults to every field c leaves unset.
func resolve(c *RawFileConfig) Settings {
	d := defaultFileConfig

	sensorConf := c.Sensor
	if sensorConf == nil {
		sensorConf = &RawSensorConfig{}
	}
	mqttConf := c.MQTT
	if mqttConf == nil {
		mqttConf = &RawMQTTConfig{}
	}

	return Settings{
		Calibration: tank.Calibration{
			Geometry: tank.Geometry{
				Shape:      ptr.Deref(c.TankShape, *d.TankShape),
				WidthCm:    ptr.Deref(c.TankWidthCm, *d.TankWidthCm),
				LengthCm:   ptr.Deref(c.TankLengthCm, *d.TankLengthCm),
				DiameterCm: ptr.Deref(c.TankDiameterCm, *d.TankDiameterCm),
				DepthCm:    ptr.Deref(c.TankDepthCm, *d.TankDepthCm),
			},
			OffsetCm: ptr.Deref(c.SensorOffsetCm, *d.SensorOffsetCm),
		},
		Units: tank.Units{
			Length: ptr.Deref(c.LengthUnit, *d.LengthUnit),
			Level:  ptr.Deref(c.LevelUnit, *d.LevelUnit),
			Volume: ptr.Deref(c.VolumeUnit, *d.VolumeUnit),
		},

		Display:           ptr.Deref(c.Display, *d.Display),
		DisplayMode:       ptr.Deref(c.DisplayMode, *d.DisplayMode),
		DisplayScroll:     ptr.Deref(c.DisplayScroll, *d.DisplayScroll),
		DisplayBrightness: display.ClampBrightness(ptr.Deref(c.DisplayBrightness, *d.DisplayBrightness)),
		DeviceName:        ptr.Deref(c.DeviceName, *d.DeviceName),

		AlertLow:  ptr.Deref(c.AlertLow, *d.AlertLow),
		AlertHigh: ptr.Deref(c.AlertHigh, *d.AlertHigh),

		SampleIntervalSeconds:  ptr.Deref(c.SampleIntervalSeconds, *d.SampleIntervalSeconds),
		PublishIntervalSeconds: ptr.Deref(c.PublishIntervalSeconds, *d.PublishIntervalSeconds),

		AllowNonRootAccess: ptr.Deref(c.AllowNonRootAccess, *d.AllowNonRootAccess),

		Sensor: SensorSettings{
			Type:                ptr.Deref(sensorConf.Type, *d.Sensor.Type),
			Path:                ptr.Deref(sensorConf.Path, *d.Sensor.Path),
			BaudRate:            ptr.Deref(sensorConf.BaudRate, *d.Sensor.BaudRate),
			TimeoutMs:           ptr.Deref(sensorConf.TimeoutMs, *d.Sensor.TimeoutMs),
			MaxRangeCm:          ptr.Deref(sensorConf.MaxRangeCm, *d.Sensor.MaxRangeCm),
			MedianCount:         ptr.Deref(sensorConf.MedianCount, *d.Sensor.MedianCount),
			SimulatedDistanceCm: ptr.Deref(sensorConf.SimulatedDistanceCm, *d.Sensor.SimulatedDistanceCm),
		},
		MQTT: MQTTSettings{
			Broker:   ptr.Deref(mqttConf.Broker, *d.MQTT.Broker),
			Topic:    ptr.Deref(mqttConf.Topic, *d.MQTT.Topic),
			ClientID: ptr.Deref(mqttConf.ClientID, *d.MQTT.ClientID),
			Username: ptr.Deref(mqttConf.Username, *d.MQTT.Username),
			Password: ptr.Deref(mqttConf.Password, *d.MQTT.Password),
			QoS:      ptr.Deref(mqttConf.QoS, *d.MQTT.QoS),
			Retained: ptr.Deref(mqttConf.Retained, *d.MQTT.Retained),

			ConnectTimeoutMs:   ptr.Deref(mqttConf.ConnectTimeoutMs, *d.MQTT.ConnectTimeoutMs),
			WriteTimeoutMs:     ptr.Deref(mqttConf.WriteTimeoutMs, *d.MQTT.WriteTimeoutMs),
			CAFile:             ptr.Deref(mqttConf.CAFile, *d.MQTT.CAFile),
			InsecureSkipVerify: ptr.Deref(mqttConf.InsecureSkipVerify, *d.MQTT.InsecureSkipVerify),
		},
	}
}

// validate rejects settings that no amount of defaulting can fix.
// Enum fields are already checked while decoding.
func validate(s Settings) error {
	if s.AlertLow < 0 || s.AlertLow > 100 || s.AlertHigh < 0 || s.AlertHigh > 100 {
		return pkgerrors.Errorf("alert thresholds must be between 0 and 100, got %v/%v", s.AlertLow, s.AlertHigh)
	}
	if s.AlertLow >= s.AlertHigh {
		return pkgerrors.Errorf("alert low threshold %v must be below high threshold %v", s.AlertLow, s.AlertHigh)
	}
	if s.MQTT.QoS > 2 {
		return pkgerrors.Errorf("mqtt qos must be 0, 1 or 2, got %d", s.MQTT.QoS)
	}
	if s.MQTT.ConnectTimeoutMs <= 0 || s.MQTT.WriteTimeoutMs <= 0 {
		return pkgerrors.Errorf("mqtt timeouts must be positive, got connect %dms and write %dms", s.MQTT.ConnectTimeoutMs, s.MQTT.WriteTimeoutMs)
	}
	if s.MQTT.Broker != "" && s.MQTT.Topic == "" {
		return pkgerrors.New("mqtt topic must not be empty when a broker is set")
	}
	return nil
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	// Since we want to tell if the file is empty, using json.Decoder will
	// not work.
	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}
	configString := string(b)

	if strings.TrimSpace(configString) == "" {
		// If the file is empty, return the empty config.
		// Do not make f.c a nil.
		f.c = &RawFileConfig{}
		return nil
	}

	conf := RawFileConfig{}
	err = json.Unmarshal(b, &conf)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}
	if err := validate(resolve(&conf)); err != nil {
		return pkgerrors.Wrapf(err, "invalid config in file %s", f.filepath)
	}
	f.c = &conf

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	fp, err := os.OpenFile(f.filepath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	enc := json.NewEncoder(fp)
	enc.SetIndent("", "  ")
	err = enc.Encode(f.c)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	s := f.Snapshot()
	g := s.Calibration.Geometry

	return logrus.Fields{
		"tankShape":              g.Shape,
		"tankDepthCm":            g.EffectiveDepth(),
		"sensorOffsetCm":         s.Calibration.OffsetCm,
		"units":                  s.Units,
		"display":                s.Display,
		"displayMode":            s.DisplayMode,
		"displayScroll":          s.DisplayScroll,
		"alertLow":               s.AlertLow,
		"alertHigh":              s.AlertHigh,
		"sampleIntervalSeconds":  s.SampleIntervalSeconds,
		"publishIntervalSeconds": s.PublishIntervalSeconds,
		"sensor":                 s.Sensor.Type,
		"mqttBroker":             s.MQTT.Broker,
		"mqttTopic":              s.MQTT.Topic,
		"allowNonRootAccess":     s.AllowNonRootAccess,
	}
}
