// Package daemon runs the measurement pipeline and serves its results over
// a unix socket.
package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/tankmon/pkg/config"
	"github.com/charlie0129/tankmon/pkg/events"
)

func setupRoutes(s *server) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/reading", s.getReading)
	router.GET("/history", s.getHistory)
	router.GET("/config", s.getConfig)
	router.GET("/version", getVersion)
	router.GET("/events", s.streamEvents)

	return router
}

func Run(configPath string, unixSocketPath string, allowNonRoot bool) error {
	conf, err := config.NewFile(configPath)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to parse config during startup")
	}
	logrus.WithFields(conf.LogrusFields()).Infof("config loaded")
	settings := conf.Snapshot()

	rangeSensor, err := newSensor(settings.Sensor)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to set up sensor")
	}
	defer func() {
		logrus.Info("closing sensor")
		if err := rangeSensor.Close(); err != nil {
			logrus.Errorf("failed to close sensor: %v", err)
		}
	}()

	dev, err := newDisplay(settings.Display, os.Stdout)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to set up display")
	}
	defer func() {
		if err := dev.Clear(); err != nil {
			logrus.Errorf("failed to clear display: %v", err)
		}
	}()

	hub := events.NewEventHub()
	publisher, closePublisher := newPublisher(settings.MQTT, hub)
	defer closePublisher()

	scheduler := NewScheduler(rangeSensor, dev, publisher)
	scheduler.Greet()

	p := &pipeline{
		conf:      conf,
		scheduler: scheduler,
		recorder:  NewReadingRecorder(historySize),
		latest:    &latestResult{},
	}
	s := &server{
		conf:     conf,
		recorder: p.recorder,
		latest:   p.latest,
		hub:      hub,
		now:      time.Now,
	}

	// Receive SIGHUP to reload config
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGHUP)
		for range sigc {
			err := conf.Load()
			if err != nil {
				logrus.Errorf("failed to reload config, keeping the previous one: %v", err)
				continue
			}
			logrus.WithFields(conf.LogrusFields()).Infof("config reloaded")
			if next := conf.Snapshot(); next.Sensor != settings.Sensor || next.MQTT != settings.MQTT || next.Display != settings.Display {
				logrus.Warn("sensor, display and mqtt settings take effect after a restart")
			}
		}
	}()

	srv := &http.Server{
		Handler:           setupRoutes(s),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// A socket left behind by an unclean exit would make Listen fail.
	if err := os.Remove(unixSocketPath); err != nil && !os.IsNotExist(err) {
		return pkgerrors.Wrapf(err, "failed to remove stale socket %s", unixSocketPath)
	}

	// Create the socket to listen on:
	l, err := net.Listen("unix", unixSocketPath)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to listen on %s", unixSocketPath)
	}

	if settings.AllowNonRootAccess || allowNonRoot {
		logrus.Infof("non-root access is allowed, changing permissions of %s to 0777", unixSocketPath)
		err = os.Chmod(unixSocketPath, 0777)
		if err != nil {
			_ = l.Close()
			return pkgerrors.Wrapf(err, "failed to change permissions of %s", unixSocketPath)
		}
	}

	// Serve HTTP on unix socket
	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	ctx, stop := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		logrus.Debugln("main loop starts")
		p.run(ctx)
		logrus.Debugln("main loop stopped")
	}()

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	// Wait for a SIGINT or SIGTERM:
	sig := <-sigc
	logrus.Infof("caught signal \"%s\": shutting down.", sig)

	logrus.Info("stopping main loop")
	stop()
	<-loopDone

	logrus.Info("shutting down http server")
	// Event streams only end when their channel closes.
	hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = srv.Shutdown(shutdownCtx)
	if err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}
	cancel()

	logrus.Info("exiting")
	return nil
}
