package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/charlie0129/tankmon/pkg/config"
	"github.com/charlie0129/tankmon/pkg/format"
	"github.com/charlie0129/tankmon/pkg/tank"
	"github.com/charlie0129/tankmon/pkg/types"
)

type statusData struct {
	reading *types.TickResult
	config  *config.RawFileConfig
}

// fetchStatusData gathers all data required for the status command from the daemon.
func fetchStatusData() (*statusData, error) {
	reading, err := apiClient.GetReading()
	if err != nil {
		return nil, fmt.Errorf("failed to get reading: %w", err)
	}

	conf, err := apiClient.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get config: %w", err)
	}

	return &statusData{
		reading: reading,
		config:  conf,
	}, nil
}

func NewStatusCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "status",
		GroupID: gBasic,
		Short:   "Get the current status of tankmon",
		Long:    `Get the latest tank reading and the configuration the daemon runs with.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := fetchStatusData()
			if err != nil {
				return err
			}

			settings := config.NewFileFromConfig(data.config, "").Snapshot()

			if jsonOutput {
				return printJSON(cmd, newStatusJSON(data.reading, settings))
			}
			printStatus(cmd, data.reading, settings, time.Now())
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output status in JSON format")

	return cmd
}

// render formats r in the configured units, as the display would in mode m.
func render(r tank.Reading, s config.Settings, m format.Mode) string {
	return format.Format(r, format.Options{Mode: m, Units: s.Units, DeviceName: s.DeviceName})
}

func printStatus(cmd *cobra.Command, res *types.TickResult, s config.Settings, now time.Time) {
	r := res.Reading

	cmd.Println(bold("Tank status:"))
	cmd.Printf("  Display: %s\n", bold("%s", res.Text))
	cmd.Printf("  Alert: %s\n", alertText(res.Alert))
	cmd.Printf("  Sensor reading valid: %s\n", bool2Text(r.Valid))
	if r.Valid && !r.OutOfRange {
		cmd.Printf("  Level: %s (%s)\n", bold("%s", render(r, s, format.ModeLevel)), render(r, s, format.ModePercent))
		cmd.Printf("  Volume: %s\n", bold("%s", render(r, s, format.ModeVolume)))
		cmd.Printf("  Distance to surface: %s\n", render(r, s, format.ModeDistance))
	} else if r.OutOfRange {
		cmd.Println("    The surface is farther than the tank depth. Check the depth and the sensor offset.")
	} else {
		cmd.Println("    The sensor did not answer. Check the wiring and the serial port.")
	}
	cmd.Printf("  Last sample: %s\n", ago(res.Sample.At, now))

	cmd.Println()

	g := s.Calibration.Geometry
	cmd.Println(bold("Tank configuration:"))
	switch g.Shape {
	case tank.ShapeCylinder:
		cmd.Printf("  Shape: %s, diameter %s\n", bold("cylinder"), format.Length(g.DiameterCm, s.Units.Length))
	default:
		cmd.Printf("  Shape: %s, %s x %s\n", bold("rectangle"), format.Length(g.WidthCm, s.Units.Length), format.Length(g.LengthCm, s.Units.Length))
	}
	cmd.Printf("  Depth: %s\n", bold("%s", format.Length(g.EffectiveDepth(), s.Units.Length)))
	cmd.Printf("  Sensor offset: %s\n", format.Length(s.Calibration.OffsetCm, s.Units.Length))
	cmd.Printf("  Alert thresholds: low %s, high %s\n", bold("%.0f%%", s.AlertLow), bold("%.0f%%", s.AlertHigh))
	cmd.Printf("  Display: %s, mode %s, scrolling %s\n", s.Display, bold("%s", s.DisplayMode), bool2Text(s.DisplayScroll))
	cmd.Printf("  Sample interval: %s\n", time.Duration(max(1, s.SampleIntervalSeconds))*time.Second)
	if s.MQTT.Broker != "" {
		cmd.Printf("  MQTT: %s topic %s every %s\n", s.MQTT.Broker, bold("%s", s.MQTT.Topic), time.Duration(max(1, s.PublishIntervalSeconds))*time.Second)
	} else {
		cmd.Printf("  MQTT: %s\n", bool2Text(false))
	}
	cmd.Printf("  Allow non-root users to access the daemon: %s\n", bool2Text(s.AllowNonRootAccess))
}
