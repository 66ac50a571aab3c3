package main

import (
	"encoding/json"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/charlie0129/tankmon/pkg/alert"
	"github.com/charlie0129/tankmon/pkg/version"
)

// annotationSkipVersionCheck marks commands that run without a daemon.
const annotationSkipVersionCheck = "tankmon/skip-version-check"

// getVersion returns the client and daemon versions.
func getVersion() (clientVersion, daemonVersion string, err error) {
	daemonVersion, err = apiClient.GetVersion()
	if err != nil {
		return version.Version, "", err
	}
	return version.Version, daemonVersion, nil
}

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}

// alertText colors an alert state the way the console display does.
func alertText(s alert.State) string {
	switch s {
	case alert.Low:
		return color.New(color.Bold, color.FgYellow).Sprint(s.String())
	case alert.Full:
		return color.New(color.Bold, color.FgCyan).Sprint(s.String())
	case alert.Error:
		return color.New(color.Bold, color.FgRed).Sprint(s.String())
	}
	return color.New(color.Bold, color.FgGreen).Sprint(s.String())
}

// ago formats how long before now t was.
func ago(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return now.Sub(t).Round(time.Second).String() + " ago"
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
