// Package service installs the tankmon daemon as a systemd service.
package service

import (
	"fmt"
	"strings"
)

const unitTemplate = `[Unit]
Description=tankmon water level monitor
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
ExecStart={{exec}}
ExecReload=/bin/kill -HUP $MAINPID
Restart=on-failure
RestartSec=5

[Install]
WantedBy=multi-user.target
`

// Options are the daemon flags baked into the unit.
type Options struct {
	ExePath            string
	ConfigPath         string
	SocketPath         string
	AllowNonRootAccess bool
}

// Unit renders the systemd unit for o.
func Unit(o Options) string {
	args := []string{
		quote(o.ExePath),
		"daemon",
		"--config", quote(o.ConfigPath),
		"--daemon-socket", quote(o.SocketPath),
	}
	if o.AllowNonRootAccess {
		args = append(args, "--always-allow-non-root-access")
	}
	return strings.ReplaceAll(unitTemplate, "{{exec}}", strings.Join(args, " "))
}

// quote quotes s for ExecStart when it contains whitespace.
func quote(s string) string {
	if !strings.ContainsAny(s, " \t\"") {
		return s
	}
	return fmt.Sprintf("%q", s)
}
