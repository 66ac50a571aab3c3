package sensor

import (
	"io"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

const (
	frameHeader = 0xFF
	frameSize   = 4

	// DefaultTimeout bounds one sample. UART rangers emit a frame every
	// ~100ms, so this covers two frames plus jitter.
	DefaultTimeout = 250 * time.Millisecond
	// DefaultMaxRangeCm is the datasheet limit of common waterproof
	// UART rangers (A02YYUW, JSN-SR04T in mode 1).
	DefaultMaxRangeCm = 450.0
	DefaultBaudRate   = 9600
)

// Port is the subset of serial.Port used by Serial.
type Port interface {
	io.Reader
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
	Close() error
}

var _ Port = serial.Port(nil)

// SerialOptions configures a UART ranger.
type SerialOptions struct {
	Path       string
	BaudRate   int
	Timeout    time.Duration
	MaxRangeCm float64
}

func (o SerialOptions) normalize() SerialOptions {
	if o.BaudRate <= 0 {
		o.BaudRate = DefaultBaudRate
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxRangeCm <= 0 {
		o.MaxRangeCm = DefaultMaxRangeCm
	}
	return o
}

// Serial reads an ultrasonic ranger that streams 4-byte frames over UART:
//
//	0xFF  DATA_H  DATA_L  SUM
//
// where the distance is DATA_H<<8|DATA_L millimeters and SUM is the low
// byte of 0xFF+DATA_H+DATA_L.
type Serial struct {
	port       Port
	timeout    time.Duration
	maxRangeCm float64
	now        func() time.Time
}

var _ RangeSensor = &Serial{}

// OpenSerial opens the serial port described by opts.
func OpenSerial(opts SerialOptions) (*Serial, error) {
	opts = opts.normalize()

	port, err := serial.Open(opts.Path, &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to open serial port %s", opts.Path)
	}

	logrus.WithFields(logrus.Fields{
		"path":       opts.Path,
		"baudRate":   opts.BaudRate,
		"timeout":    opts.Timeout,
		"maxRangeCm": opts.MaxRangeCm,
	}).Info("serial ranger opened")

	return NewSerial(port, opts), nil
}

// NewSerial wraps an already opened port.
func NewSerial(port Port, opts SerialOptions) *Serial {
	opts = opts.normalize()
	return &Serial{
		port:       port,
		timeout:    opts.Timeout,
		maxRangeCm: opts.MaxRangeCm,
		now:        time.Now,
	}
}

// Sample returns the first well-formed frame received after the call
// started. Stale bytes buffered by the driver are discarded first, so
// the value is never older than the call. It gives up after the
// configured timeout and returns an invalid sample.
func (s *Serial) Sample() Sample {
	start := s.now()
	deadline := start.Add(s.timeout)

	if err := s.port.ResetInputBuffer(); err != nil {
		logrus.Debugf("failed to reset serial input buffer: %v", err)
	}

	var (
		frame [frameSize]byte
		n     int
		buf   [32]byte
	)
	for {
		remaining := deadline.Sub(s.now())
		if remaining <= 0 {
			logrus.Debug("serial ranger timed out")
			return Invalid(start)
		}
		if err := s.port.SetReadTimeout(remaining); err != nil {
			logrus.Debugf("failed to set serial read timeout: %v", err)
			return Invalid(start)
		}

		read, err := s.port.Read(buf[:])
		if err != nil {
			logrus.Debugf("serial read failed: %v", err)
			return Invalid(start)
		}
		if read == 0 {
			// go.bug.st/serial returns 0, nil when the read timeout expires.
			continue
		}

		for _, b := range buf[:read] {
			if n == 0 && b != frameHeader {
				continue
			}
			frame[n] = b
			n++
			if n < frameSize {
				continue
			}

			mm, ok := decodeFrame(frame)
			if !ok {
				logrus.Tracef("discarding serial frame % x: bad checksum", frame)
				n = resync(&frame)
				continue
			}
			return s.sampleFromMillimeters(mm, s.now())
		}
	}
}

func (s *Serial) sampleFromMillimeters(mm int, at time.Time) Sample {
	cm := float64(mm) / 10
	if mm <= 0 || cm > s.maxRangeCm {
		logrus.WithField("distanceCm", cm).Debug("serial ranger reported an out of range distance")
		return Invalid(at)
	}
	return Sample{DistanceCm: cm, Valid: true, At: at}
}

func (s *Serial) Close() error {
	return s.port.Close()
}

// resync drops the header of a rejected frame and moves the bytes from
// the next 0xFF on to the front. Data and checksum bytes can be 0xFF, so
// the real header may be inside the rejected window. It returns how many
// bytes of the next frame are already in place.
func resync(f *[frameSize]byte) int {
	for i := 1; i < frameSize; i++ {
		if f[i] == frameHeader {
			return copy(f[:], f[i:])
		}
	}
	return 0
}

func decodeFrame(f [frameSize]byte) (mm int, ok bool) {
	if f[0] != frameHeader {
		return 0, false
	}
	sum := byte(int(f[0]) + int(f[1]) + int(f[2]))
	if sum != f[3] {
		return 0, false
	}
	return int(f[1])<<8 | int(f[2]), true
}
