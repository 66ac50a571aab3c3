package daemon

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/charlie0129/tankmon/pkg/alert"
	"github.com/charlie0129/tankmon/pkg/config"
	"github.com/charlie0129/tankmon/pkg/display"
	"github.com/charlie0129/tankmon/pkg/format"
	"github.com/charlie0129/tankmon/pkg/publish"
	"github.com/charlie0129/tankmon/pkg/sensor"
	"github.com/charlie0129/tankmon/pkg/tank"
	"github.com/charlie0129/tankmon/pkg/types"
)

const (
	// Greeting is shown before the first reading.
	Greeting = "Hello!"

	minIntervalSeconds = 1
)

// RenderDecision is what a text-capable display currently shows.
type RenderDecision struct {
	Text   string `json:"text"`
	Scroll bool   `json:"scroll"`
}

// Scheduler decides, once per tick, whether to sample the sensor, redraw
// the display and publish the reading. It is not safe for concurrent use;
// one goroutine drives it.
type Scheduler struct {
	sensor    sensor.RangeSensor
	display   display.Device
	publisher publish.Publisher
	now       func() time.Time

	hasSample    bool
	lastSample   sensor.Sample
	lastSampleAt time.Time
	lastInterval time.Duration

	hasPublished  bool
	lastPublishAt time.Time

	// Text path. rendered is false until something was shown.
	rendered          bool
	lastRender        RenderDecision
	hasScrollSetting  bool
	lastScrollEnabled bool

	// Numeric path.
	numberShown bool
	lastNumber  float64

	brightness int
}

// NewScheduler returns a Scheduler. publisher may be nil to disable
// publishing.
func NewScheduler(s sensor.RangeSensor, d display.Device, p publish.Publisher) *Scheduler {
	return &Scheduler{
		sensor:     s,
		display:    d,
		publisher:  p,
		now:        time.Now,
		brightness: -1,
	}
}

// Greet shows the greeting. The first tick replaces it with a reading.
func (s *Scheduler) Greet() {
	if err := s.display.ShowText(Greeting, true); err != nil {
		logrus.Warnf("failed to show greeting: %v", err)
		return
	}
	s.rendered = true
	s.lastRender = RenderDecision{Text: Greeting, Scroll: true}
	s.numberShown = false
}

// Tick runs one pass of the pipeline against settings.
func (s *Scheduler) Tick(settings config.Settings) types.TickResult {
	now := s.now()
	res := types.TickResult{At: now}

	interval := time.Duration(max(minIntervalSeconds, settings.SampleIntervalSeconds)) * time.Second
	if s.hasSample && interval != s.lastInterval {
		logrus.WithFields(logrus.Fields{
			"from": s.lastInterval,
			"to":   interval,
		}).Debug("sample interval changed, restarting from now")
		s.lastSampleAt = now
	}
	s.lastInterval = interval

	if !s.hasSample || now.Sub(s.lastSampleAt) >= interval {
		s.lastSample = s.sensor.Sample()
		s.lastSampleAt = now
		s.hasSample = true
		res.Sampled = true
	}

	// Settings may have changed since the last sample, so everything
	// downstream of the sample is recomputed every tick.
	res.Sample = s.lastSample
	res.Reading = tank.Derive(s.lastSample, settings.Calibration)
	res.Alert = alert.Evaluate(res.Reading.Percent, res.Reading.Valid, settings.AlertLow, settings.AlertHigh)
	opts := format.Options{
		Mode:       settings.DisplayMode,
		Units:      settings.Units,
		DeviceName: settings.DeviceName,
		Alert:      res.Alert,
	}
	res.Text = format.Format(res.Reading, opts)

	s.applyBrightness(settings.DisplayBrightness)

	if s.display.Capabilities().Text {
		res.Rendered = s.renderText(res.Text, settings.DisplayScroll)
	} else {
		res.Rendered = s.renderNumber(res.Reading, res.Text, opts)
	}

	res.Published = s.publish(settings, res, now)

	return res
}

func (s *Scheduler) renderText(text string, scroll bool) bool {
	d := RenderDecision{Text: text, Scroll: scroll}
	scrollToggled := s.hasScrollSetting && scroll != s.lastScrollEnabled
	s.hasScrollSetting = true
	s.lastScrollEnabled = scroll

	if s.rendered && d == s.lastRender && !scrollToggled {
		return false
	}

	if err := s.display.ShowText(text, scroll); err != nil {
		// Leave the memo untouched so the next tick tries again.
		logrus.Warnf("failed to show text on display: %v", err)
		return false
	}
	s.rendered = true
	s.lastRender = d
	return true
}

func (s *Scheduler) renderNumber(r tank.Reading, text string, opts format.Options) bool {
	value, ok := format.Number(r, opts)
	if !ok {
		// No number to show: fall back to the error text, best effort.
		if s.rendered && s.lastRender.Text == text {
			return false
		}
		if err := s.display.ShowText(text, false); err != nil {
			logrus.Warnf("failed to show text on display: %v", err)
			return false
		}
		s.rendered = true
		s.lastRender = RenderDecision{Text: text}
		s.numberShown = false
		return true
	}

	value = roundTo(value, s.display.Capabilities().Precision)
	if s.numberShown && value == s.lastNumber {
		return false
	}
	if err := s.display.ShowNumber(value); err != nil {
		logrus.Warnf("failed to show number on display: %v", err)
		return false
	}
	s.numberShown = true
	s.lastNumber = value
	s.rendered = false
	return true
}

func (s *Scheduler) applyBrightness(level int) {
	if level == s.brightness {
		return
	}
	dimmer, ok := s.display.(display.Dimmer)
	if !ok {
		return
	}
	if err := dimmer.SetBrightness(level); err != nil {
		logrus.Warnf("failed to set display brightness to %d: %v", level, err)
		return
	}
	s.brightness = level
}

func (s *Scheduler) publish(settings config.Settings, res types.TickResult, now time.Time) bool {
	if s.publisher == nil {
		return false
	}

	interval := time.Duration(max(minIntervalSeconds, settings.PublishIntervalSeconds)) * time.Second
	if s.hasPublished && now.Sub(s.lastPublishAt) < interval {
		return false
	}
	// A failed attempt still waits a full interval before the next one.
	s.hasPublished = true
	s.lastPublishAt = now

	payload, err := publish.NewPayload(res.Text, res.Reading, res.Alert, now).Marshal()
	if err != nil {
		logrus.Errorf("failed to encode payload: %v", err)
		return false
	}
	if err := s.publisher.Publish(settings.MQTT.Topic, payload); err != nil {
		logrus.WithField("topic", settings.MQTT.Topic).Warnf("failed to publish reading: %v", err)
		return false
	}
	return true
}

func roundTo(v float64, precision int) float64 {
	p := math.Pow10(max(0, precision))
	return math.Round(v*p) / p
}
