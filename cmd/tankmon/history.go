package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/tankmon/pkg/events"
	"github.com/charlie0129/tankmon/pkg/publish"
)

func NewHistoryCommand() *cobra.Command {
	var (
		last       time.Duration
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:     "history",
		GroupID: gBasic,
		Short:   "Show recent readings",
		Long:    `Show the readings the daemon sampled recently, oldest first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, err := apiClient.GetHistory(last)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd, records)
			}
			if len(records) == 0 {
				cmd.Println("No readings yet.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = w.Write([]byte("TIME\tDISPLAY\tLEVEL\tALERT\n"))
			for _, r := range records {
				level := "-"
				if r.Reading.Valid && !r.Reading.OutOfRange {
					level = bold("%.1f%%", r.Reading.Percent)
				}
				_, _ = w.Write([]byte(r.At.Local().Format(time.TimeOnly) + "\t" + r.Text + "\t" + level + "\t" + alertText(r.Alert) + "\n"))
			}
			return w.Flush()
		},
	}

	f := cmd.Flags()
	f.DurationVar(&last, "last", 0, "Only show readings from this long ago, e.g. 5m (default all)")
	f.BoolVar(&jsonOutput, "json", false, "Output history in JSON format")

	return cmd
}

func NewWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "watch",
		GroupID: gBasic,
		Short:   "Print readings as they are published",
		Long:    `Follow the daemon's event stream and print every published reading until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return apiClient.SubscribeEvents(ctx, func(ev events.Event) {
				if ev.Name != events.Reading {
					return
				}
				p, err := events.DecodeAs[publish.Payload](ev)
				if err != nil {
					logrus.Warnf("failed to decode reading: %v", err)
					return
				}
				cmd.Printf("%s  %s  %s  %s\n",
					time.Unix(p.Timestamp, 0).Format(time.TimeOnly),
					bold("%s", p.Display),
					bold("%.1f%%", p.Percent),
					alertText(p.Alert),
				)
			})
		},
	}
}
