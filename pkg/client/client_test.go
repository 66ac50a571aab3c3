package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charlie0129/tankmon/pkg/alert"
	"github.com/charlie0129/tankmon/pkg/events"
)

func serveUnix(t *testing.T, h http.Handler) string {
	t.Helper()

	sock := filepath.Join(t.TempDir(), "tankmon.sock")
	l, err := net.Listen("unix", sock)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: h}
	go func() { _ = srv.Serve(l) }()
	t.Cleanup(func() { _ = srv.Close() })
	return sock
}

func testMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/reading", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"text":"70.0 cm","alert":"normal","reading":{"percent":70,"valid":true},"sampled":true}`)
	})
	mux.HandleFunc("/history", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("last") == "1m0s" {
			fmt.Fprint(w, `[{"text":"70.0 cm","alert":"normal"}]`)
			return
		}
		fmt.Fprint(w, `[{"text":"80.0 cm","alert":"full"},{"text":"70.0 cm","alert":"normal"}]`)
	})
	mux.HandleFunc("/version", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `"v1.2.3"`)
	})
	mux.HandleFunc("/config", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"tankDepthCm": 150, "mqtt": {"topic": "home/waterlevel"}}`)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/events", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event:reading\ndata:{\"display\":\"70.0 cm\"}\n\n")
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "event: reading\ndata: {\"display\":\"69.5 cm\"}\n\n")
	})
	return mux
}

func TestClientAPIs(t *testing.T) {
	c := NewClient(serveUnix(t, testMux()))

	res, err := c.GetReading()
	if err != nil {
		t.Fatalf("GetReading() error = %v", err)
	}
	if res.Text != "70.0 cm" || res.Alert != alert.Normal || res.Reading.Percent != 70 || !res.Sampled {
		t.Errorf("GetReading() = %+v", res)
	}

	records, err := c.GetHistory(0)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(records) != 2 || records[0].Alert != alert.Full {
		t.Errorf("GetHistory(0) = %+v", records)
	}
	records, err = c.GetHistory(time.Minute)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(records) != 1 {
		t.Errorf("GetHistory(1m) = %+v", records)
	}

	v, err := c.GetVersion()
	if err != nil || v != "v1.2.3" {
		t.Errorf("GetVersion() = %q, %v", v, err)
	}

	conf, err := c.GetConfig()
	if err != nil {
		t.Fatalf("GetConfig() error = %v", err)
	}
	if *conf.TankDepthCm != 150 || *conf.MQTT.Topic != "home/waterlevel" {
		t.Errorf("GetConfig() = %+v", conf)
	}
}

func TestClientErrors(t *testing.T) {
	c := NewClient(serveUnix(t, testMux()))

	if _, err := c.Get("/nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(/nope) error = %v, want ErrNotFound", err)
	}
	if _, err := c.Get("/broken"); err == nil || !strings.Contains(err.Error(), "500") {
		t.Errorf("Get(/broken) error = %v, want a 500", err)
	}

	missing := NewClient(filepath.Join(t.TempDir(), "missing.sock"))
	if _, err := missing.GetReading(); !errors.Is(err, ErrDaemonNotRunning) {
		t.Errorf("GetReading() on a missing socket error = %v, want ErrDaemonNotRunning", err)
	}
}

func TestSubscribeEvents(t *testing.T) {
	c := NewClient(serveUnix(t, testMux()))

	var got []events.Event
	err := c.SubscribeEvents(context.Background(), func(ev events.Event) {
		got = append(got, ev)
	})
	if err != nil {
		t.Fatalf("SubscribeEvents() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	for i, want := range []string{`{"display":"70.0 cm"}`, `{"display":"69.5 cm"}`} {
		if got[i].Name != events.Reading || string(got[i].Data) != want {
			t.Errorf("event %d = %s %s, want reading %s", i, got[i].Name, got[i].Data, want)
		}
	}
}

func TestReadEventsMultilineData(t *testing.T) {
	body := "event:reading\ndata:line one\ndata:line two\n\ndata:unnamed\n\n"

	var got []events.Event
	if err := readEvents(bufio.NewScanner(strings.NewReader(body)), func(ev events.Event) {
		got = append(got, ev)
	}); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if string(got[0].Data) != "line one\nline two" {
		t.Errorf("data = %q", got[0].Data)
	}
	if got[1].Name != "" || string(got[1].Data) != "unnamed" {
		t.Errorf("event = %+v", got[1])
	}
}
