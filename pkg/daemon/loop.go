package daemon

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/charlie0129/tankmon/pkg/alert"
	"github.com/charlie0129/tankmon/pkg/config"
	"github.com/charlie0129/tankmon/pkg/types"
)

// tickInterval is how often the scheduler runs. Sampling, rendering and
// publishing each keep their own, longer cadence.
const tickInterval = 100 * time.Millisecond

// latestResult holds the last TickResult for the API handlers.
type latestResult struct {
	mu  sync.RWMutex
	res types.TickResult
	ok  bool
}

func (l *latestResult) Store(res types.TickResult) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.res = res
	l.ok = true
}

func (l *latestResult) Load() (types.TickResult, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.res, l.ok
}

// pipeline ties the scheduler to the state shared with the API.
type pipeline struct {
	conf      config.Config
	scheduler *Scheduler
	recorder  *ReadingRecorder
	latest    *latestResult

	lastStatus    loopStatus
	lastPrintTime time.Time
}

// run ticks until ctx is done.
func (p *pipeline) run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	p.tick()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick()
		}
	}
}

func (p *pipeline) tick() {
	settings := p.conf.Snapshot()
	res := p.scheduler.Tick(settings)

	p.latest.Store(res)
	if res.Sampled {
		p.recorder.AddRecord(types.NewRecord(res))
	}

	p.printStatus(res, settings)
}

type loopStatus struct {
	text  string
	alert alert.State
	valid bool
}

func (p *pipeline) printStatus(res types.TickResult, settings config.Settings) {
	currentStatus := loopStatus{
		text:  res.Text,
		alert: res.Alert,
		valid: res.Reading.Valid,
	}

	fields := logrus.Fields{
		"text":       res.Text,
		"distanceCm": res.Reading.DistanceCm,
		"levelCm":    res.Reading.LevelCm,
		"percent":    res.Reading.Percent,
		"alert":      res.Alert.String(),
		"valid":      res.Reading.Valid,
		"outOfRange": res.Reading.OutOfRange,
		"sampled":    res.Sampled,
		"rendered":   res.Rendered,
		"published":  res.Published,
	}

	// Once per sample interval is enough when nothing changed.
	interval := time.Duration(max(minIntervalSeconds, settings.SampleIntervalSeconds)) * time.Second
	if (time.Since(p.lastPrintTime) < interval || !res.Sampled) && p.lastStatus == currentStatus {
		logrus.WithFields(fields).Trace("tank status")
		return
	}

	p.lastPrintTime = time.Now()
	logrus.WithFields(fields).Debug("tank status")

	if currentStatus.alert != p.lastStatus.alert {
		logrus.WithFields(logrus.Fields{
			"from": p.lastStatus.alert.String(),
			"to":   currentStatus.alert.String(),
		}).Info("alert state changed")
	}

	p.lastStatus = currentStatus
}
