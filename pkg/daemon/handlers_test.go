package daemon

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/charlie0129/tankmon/pkg/config"
	"github.com/charlie0129/tankmon/pkg/events"
	"github.com/charlie0129/tankmon/pkg/types"
	"github.com/charlie0129/tankmon/pkg/utils/ptr"
	"github.com/charlie0129/tankmon/pkg/version"
)

type mockConf struct {
	config.Config
	settings config.Settings
}

func (m *mockConf) Snapshot() config.Settings { return m.settings }

func (m *mockConf) LogrusFields() logrus.Fields { return logrus.Fields{} }

func newTestServer(t *testing.T) (*server, *pipeline, *fakeClock) {
	t.Helper()

	f := newFixture(textCaps)
	conf := &mockConf{settings: testSettings()}
	conf.settings.MQTT.Password = "secret"

	p := &pipeline{
		conf:      conf,
		scheduler: f.s,
		recorder:  NewReadingRecorder(historySize),
		latest:    &latestResult{},
	}
	s := &server{
		conf:     conf,
		recorder: p.recorder,
		latest:   p.latest,
		hub:      events.NewEventHub(),
		now:      f.clock.Now,
	}
	return s, p, f.clock
}

func get(t *testing.T, s *server, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	setupRoutes(s).ServeHTTP(w, req)
	return w
}

func TestGetReading(t *testing.T) {
	s, p, _ := newTestServer(t)

	if w := get(t, s, "/reading"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /reading before the first tick = %d, want 503", w.Code)
	}

	p.tick()

	w := get(t, s, "/reading")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /reading = %d, want 200", w.Code)
	}
	var res types.TickResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Text != "70.0 cm" || !res.Reading.Valid || res.Reading.Percent != 70 {
		t.Errorf("reading = %+v", res)
	}
}

func TestGetHistory(t *testing.T) {
	s, p, clock := newTestServer(t)

	for i := 0; i < 5; i++ {
		p.tick()
		clock.Advance(500 * time.Millisecond)
	}

	var records []types.Record
	w := get(t, s, "/history")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /history = %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// Samples at 0s, 1s and 2s; ticks in between reuse the last sample.
	if len(records) != 3 {
		t.Errorf("got %d records, want 3", len(records))
	}

	w = get(t, s, "/history?last=2s")
	if err := json.Unmarshal(w.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("got %d records within 2s, want 2", len(records))
	}

	for _, bad := range []string{"/history?last=soon", "/history?last=-1s"} {
		if w := get(t, s, bad); w.Code != http.StatusBadRequest {
			t.Errorf("GET %s = %d, want 400", bad, w.Code)
		}
	}
}

func TestGetConfig(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := get(t, s, "/config")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /config = %d", w.Code)
	}
	var raw config.RawFileConfig
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := ptr.Deref(raw.MQTT.Password, ""); got == "secret" {
		t.Errorf("password leaked through GET /config")
	}
	if got := ptr.Deref(raw.AlertLow, 0); got != 20 {
		t.Errorf("alertLow = %v, want 20", got)
	}
}

func TestGetVersion(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := get(t, s, "/version")
	var v string
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v != version.Version {
		t.Errorf("version = %q, want %q", v, version.Version)
	}
}
