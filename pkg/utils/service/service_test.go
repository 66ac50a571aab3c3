package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestUnit(t *testing.T) {
	tests := []struct {
		name string
		o    Options
		want string
	}{
		{
			name: "root only",
			o:    Options{ExePath: "/usr/local/bin/tankmon", ConfigPath: "/etc/tankmon.json", SocketPath: "/var/run/tankmon.sock"},
			want: "ExecStart=/usr/local/bin/tankmon daemon --config /etc/tankmon.json --daemon-socket /var/run/tankmon.sock\n",
		},
		{
			name: "non-root and spaces",
			o:    Options{ExePath: "/opt/tank mon/tankmon", ConfigPath: "/etc/tankmon.json", SocketPath: "/run/t.sock", AllowNonRootAccess: true},
			want: `ExecStart="/opt/tank mon/tankmon" daemon --config /etc/tankmon.json --daemon-socket /run/t.sock --always-allow-non-root-access` + "\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Unit(tt.o)
			if !strings.Contains(got, tt.want) {
				t.Errorf("Unit() = %s, want a line %q", got, tt.want)
			}
			if !strings.Contains(got, "ExecReload=/bin/kill -HUP $MAINPID") {
				t.Errorf("Unit() does not reload with SIGHUP")
			}
		})
	}
}

func fakeSystemd(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	log := filepath.Join(dir, "calls")
	script := filepath.Join(dir, "systemctl")
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho \"$@\" >> "+log+"\n"), 0755); err != nil {
		t.Fatal(err)
	}

	oldDir, oldCtl := unitDir, systemctlPath
	unitDir, systemctlPath = filepath.Join(dir, "system"), script
	t.Cleanup(func() { unitDir, systemctlPath = oldDir, oldCtl })

	return log
}

func TestInstallAndUninstall(t *testing.T) {
	log := fakeSystemd(t)

	o := Options{ExePath: "/usr/bin/tankmon", ConfigPath: "/etc/tankmon.json", SocketPath: "/run/tankmon.sock"}
	if err := Install(o); err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	b, err := os.ReadFile(unitPath())
	if err != nil {
		t.Fatalf("unit not written: %v", err)
	}
	if string(b) != Unit(o) {
		t.Errorf("unit = %s", b)
	}

	if err := Uninstall(); err != nil {
		t.Fatalf("Uninstall() error = %v", err)
	}
	if _, err := os.Stat(unitPath()); !os.IsNotExist(err) {
		t.Errorf("unit still exists after Uninstall()")
	}
	if err := Uninstall(); err != nil {
		t.Errorf("second Uninstall() error = %v", err)
	}

	calls, err := os.ReadFile(log)
	if err != nil {
		t.Fatal(err)
	}
	want := "daemon-reload\nenable --now tankmon.service\ndisable --now tankmon.service\ndaemon-reload\n"
	if string(calls) != want {
		t.Errorf("systemctl calls = %q, want %q", calls, want)
	}
}
