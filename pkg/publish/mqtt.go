package publish

import (
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultConnectTimeout       = 10 * time.Second
	DefaultWriteTimeout         = 5 * time.Second
	DefaultKeepAlive            = 30 * time.Second
	DefaultMaxReconnectInterval = 30 * time.Second
	DefaultConnectRetryInterval = 10 * time.Second
)

// Options configures the MQTT publisher.
type Options struct {
	ClientID       string
	Username       string
	Password       string
	QoS            byte
	Retained       bool
	ConnectTimeout time.Duration
	WriteTimeout   time.Duration
	KeepAlive      time.Duration
	TLSConfig      *tls.Config
}

type Option func(*Options)

func WithClientID(id string) Option {
	return func(o *Options) { o.ClientID = id }
}

func WithCredentials(username, password string) Option {
	return func(o *Options) {
		o.Username = username
		o.Password = password
	}
}

func WithQoS(qos byte) Option {
	return func(o *Options) { o.QoS = qos }
}

func WithRetained(v bool) Option {
	return func(o *Options) { o.Retained = v }
}

func WithConnectTimeout(d time.Duration) Option {
	return func(o *Options) { o.ConnectTimeout = d }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(o *Options) { o.WriteTimeout = d }
}

func WithTLSConfig(cfg *tls.Config) Option {
	return func(o *Options) { o.TLSConfig = cfg }
}

func defaultOptions() Options {
	return Options{
		ClientID:       DefaultClientID(),
		ConnectTimeout: DefaultConnectTimeout,
		WriteTimeout:   DefaultWriteTimeout,
		KeepAlive:      DefaultKeepAlive,
	}
}

// DefaultClientID returns a client id unique to this process.
func DefaultClientID() string {
	return "tankmon-" + uuid.NewString()[:8]
}

func isSecureScheme(u string) bool {
	s := strings.ToLower(u)
	return strings.HasPrefix(s, "mqtts://") || strings.HasPrefix(s, "ssl://") ||
		strings.HasPrefix(s, "tls://") || strings.HasPrefix(s, "wss://")
}

// MQTT publishes payloads to an MQTT broker. Reconnection is left to
// paho: the client retries the initial connection and reconnects
// automatically after a loss.
type MQTT struct {
	client mqtt.Client
	opts   Options
}

var _ Publisher = &MQTT{}

// NewMQTT connects to broker, e.g. "tcp://192.168.1.10:1883".
// A broker that cannot be reached within the connect timeout is not an
// error: paho keeps retrying in the background and Publish reports
// ErrNotConnected until it succeeds.
func NewMQTT(broker string, optFns ...Option) (*MQTT, error) {
	if broker == "" {
		return nil, pkgerrors.New("mqtt broker is empty")
	}

	conf := defaultOptions()
	for _, fn := range optFns {
		if fn != nil {
			fn(&conf)
		}
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(conf.ClientID).
		SetUsername(conf.Username).
		SetPassword(conf.Password).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(DefaultConnectRetryInterval).
		SetMaxReconnectInterval(DefaultMaxReconnectInterval).
		SetConnectTimeout(conf.ConnectTimeout).
		SetWriteTimeout(conf.WriteTimeout).
		SetKeepAlive(conf.KeepAlive).
		SetOnConnectHandler(func(_ mqtt.Client) {
			logrus.WithField("broker", broker).Info("mqtt connected")
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logrus.WithField("broker", broker).Warnf("mqtt connection lost: %v", err)
		})
	if conf.TLSConfig != nil {
		opts.SetTLSConfig(conf.TLSConfig)
	} else if isSecureScheme(broker) {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	c := mqtt.NewClient(opts)
	tok := c.Connect()
	if !tok.WaitTimeout(conf.ConnectTimeout) {
		logrus.WithField("broker", broker).Warnf("mqtt not connected after %s, retrying in background", conf.ConnectTimeout)
	} else if err := tok.Error(); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to connect to mqtt broker %s", broker)
	}

	return newMQTTWithClient(c, conf), nil
}

func newMQTTWithClient(c mqtt.Client, opts Options) *MQTT {
	return &MQTT{client: c, opts: opts}
}

func (m *MQTT) Publish(topic string, payload []byte) error {
	if !m.client.IsConnectionOpen() {
		return ErrNotConnected
	}

	tok := m.client.Publish(topic, m.opts.QoS, m.opts.Retained, payload)
	if !tok.WaitTimeout(m.opts.WriteTimeout) {
		return fmt.Errorf("mqtt publish to %s timed out after %s", topic, m.opts.WriteTimeout)
	}
	if err := tok.Error(); err != nil {
		return pkgerrors.Wrapf(err, "failed to publish to %s", topic)
	}

	logrus.WithFields(logrus.Fields{
		"topic": topic,
		"bytes": len(payload),
	}).Trace("mqtt published")
	return nil
}

// Close disconnects, waiting up to 250ms for in-flight messages.
func (m *MQTT) Close() {
	m.client.Disconnect(250)
}
