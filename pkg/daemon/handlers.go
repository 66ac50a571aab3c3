package daemon

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/tankmon/pkg/config"
	"github.com/charlie0129/tankmon/pkg/events"
	"github.com/charlie0129/tankmon/pkg/version"
)

var errNoReading = errors.New("no reading yet")

// server serves the daemon API. It only reads state owned by others.
type server struct {
	conf     config.Config
	recorder *ReadingRecorder
	latest   *latestResult
	hub      *events.EventHub
	now      func() time.Time
}

func (s *server) getReading(c *gin.Context) {
	res, ok := s.latest.Load()
	if !ok {
		abortWithError(c, http.StatusServiceUnavailable, errNoReading)
		return
	}
	c.IndentedJSON(http.StatusOK, res)
}

// getHistory returns the recorded readings, optionally only those taken
// within ?last=<duration>.
func (s *server) getHistory(c *gin.Context) {
	last := c.Query("last")
	if last == "" {
		c.IndentedJSON(http.StatusOK, s.recorder.GetRecords())
		return
	}

	d, err := time.ParseDuration(last)
	if err != nil || d <= 0 {
		if err == nil {
			err = errors.New("duration must be positive")
		}
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	c.IndentedJSON(http.StatusOK, s.recorder.GetRecordsIn(d, s.now()))
}

func (s *server) getConfig(c *gin.Context) {
	fc, err := config.NewRawFileConfigFromConfig(s.conf)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.IndentedJSON(http.StatusOK, fc)
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}

// streamEvents sends every published reading as a server-sent event until
// the client goes away or the daemon shuts down.
func (s *server) streamEvents(c *gin.Context) {
	ch := s.hub.Subscribe()
	defer s.hub.Unsubscribe(ch)

	logrus.WithField("subscribers", s.hub.Subscribers()).Debug("event stream opened")

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Stream(func(_ io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, string(ev.Data))
			return true
		}
	})

	logrus.Debug("event stream closed")
}
