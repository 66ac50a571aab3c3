package daemon

import (
	"crypto/tls"
	"crypto/x509"
	"io"
	"os"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/tankmon/pkg/config"
	"github.com/charlie0129/tankmon/pkg/display"
	"github.com/charlie0129/tankmon/pkg/events"
	"github.com/charlie0129/tankmon/pkg/publish"
	"github.com/charlie0129/tankmon/pkg/sensor"
)

const (
	consolePrefix = "[display] "

	simulatedNoiseCm = 0.5
)

func newSensor(s config.SensorSettings) (sensor.RangeSensor, error) {
	var rs sensor.RangeSensor

	switch s.Type {
	case sensor.TypeSimulated:
		logrus.WithField("distanceCm", s.SimulatedDistanceCm).Info("using simulated sensor")
		rs = sensor.NewSimulated(s.SimulatedDistanceCm, simulatedNoiseCm, 0, uint64(time.Now().UnixNano()))
	case sensor.TypeSerial, "":
		serialSensor, err := sensor.OpenSerial(sensor.SerialOptions{
			Path:       s.Path,
			BaudRate:   s.BaudRate,
			Timeout:    time.Duration(s.TimeoutMs) * time.Millisecond,
			MaxRangeCm: s.MaxRangeCm,
		})
		if err != nil {
			return nil, err
		}
		rs = serialSensor
	default:
		return nil, pkgerrors.Errorf("unknown sensor type %q", s.Type)
	}

	if s.MedianCount > 1 {
		rs = &sensor.Median{Inner: rs, Count: s.MedianCount}
	}
	return rs, nil
}

func newDisplay(t display.Type, w io.Writer) (display.Device, error) {
	switch t {
	case display.TypeConsole, "":
		return display.NewConsole(w, consolePrefix), nil
	case display.TypeSevenSegment:
		return display.NewSevenSegment(w), nil
	case display.TypeNone:
		return display.Nop{}, nil
	}
	return nil, pkgerrors.Errorf("unknown display type %q", t)
}

// newPublisher returns the publishers readings go to: the event hub, and
// the MQTT broker if one is configured. closeFn releases the broker
// connection.
func newPublisher(s config.MQTTSettings, hub *events.EventHub) (p publish.Publisher, closeFn func()) {
	hubPublisher := publish.Func(func(_ string, payload []byte) error {
		hub.PublishRaw(events.Reading, payload)
		return nil
	})
	closeFn = func() {}

	if s.Broker == "" {
		logrus.Info("no mqtt broker configured, readings are only served by the daemon api")
		return publish.Fanout{hubPublisher}, closeFn
	}

	clientID := s.ClientID
	if clientID == "" {
		clientID = publish.DefaultClientID()
	}
	opts, err := mqttOptions(s, clientID)
	if err != nil {
		logrus.WithField("broker", s.Broker).Errorf("failed to set up mqtt: %v", err)
		return publish.Fanout{hubPublisher}, closeFn
	}
	m, err := publish.NewMQTT(s.Broker, opts...)
	if err != nil {
		// Readings keep flowing to the api; mqtt stays off until restart.
		logrus.WithField("broker", s.Broker).Errorf("failed to set up mqtt: %v", err)
		return publish.Fanout{hubPublisher}, closeFn
	}

	logrus.WithFields(logrus.Fields{
		"broker":   s.Broker,
		"clientId": clientID,
		"topic":    s.Topic,
	}).Info("publishing readings to mqtt")
	return publish.Fanout{m, hubPublisher}, m.Close
}

func mqttOptions(s config.MQTTSettings, clientID string) ([]publish.Option, error) {
	opts := []publish.Option{
		publish.WithClientID(clientID),
		publish.WithCredentials(s.Username, s.Password),
		publish.WithQoS(s.QoS),
		publish.WithRetained(s.Retained),
		publish.WithConnectTimeout(time.Duration(s.ConnectTimeoutMs) * time.Millisecond),
		publish.WithWriteTimeout(time.Duration(s.WriteTimeoutMs) * time.Millisecond),
	}

	tlsConfig, err := mqttTLSConfig(s)
	if err != nil {
		return nil, err
	}
	if tlsConfig != nil {
		opts = append(opts, publish.WithTLSConfig(tlsConfig))
	}
	return opts, nil
}

// mqttTLSConfig returns nil when neither a CA file nor insecure mode is
// set, leaving TLS to the broker URL scheme.
func mqttTLSConfig(s config.MQTTSettings) (*tls.Config, error) {
	if s.CAFile == "" && !s.InsecureSkipVerify {
		return nil, nil
	}

	c := &tls.Config{
		MinVersion: tls.VersionTLS12,
		InsecureSkipVerify: s.InsecureSkipVerify,
	}
	if s.InsecureSkipVerify {
		logrus.WithField("broker", s.Broker).Warn("mqtt broker certificate is not verified")
	}

	if s.CAFile != "" {
		pem, err := os.ReadFile(s.CAFile)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "failed to read mqtt ca file %s", s.CAFile)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, pkgerrors.Errorf("no certificates found in mqtt ca file %s", s.CAFile)
		}
		c.RootCAs = pool
	}
	return c, nil
}
