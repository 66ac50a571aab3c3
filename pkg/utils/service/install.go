package service

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

const serviceName = "tankmon.service"

var (
	unitDir       = "/etc/systemd/system"
	systemctlPath = "systemctl"
)

func unitPath() string {
	return filepath.Join(unitDir, serviceName)
}

func systemctl(args ...string) error {
	out, err := exec.Command(systemctlPath, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("systemctl %v: %w: %s", args, err, out)
	}
	return nil
}

func Install(o Options) error {
	// Get the path to the current executable
	if o.ExePath == "" {
		exePath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to get the path to the current executable: %w", err)
		}
		o.ExePath = exePath
	}
	exePath, err := filepath.Abs(o.ExePath)
	if err != nil {
		return fmt.Errorf("failed to get the absolute path to the current executable: %w", err)
	}
	o.ExePath = exePath

	logrus.Infof("current executable path: %s", exePath)

	err = os.MkdirAll(unitDir, 0755)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", unitDir, err)
	}

	// warn if the file already exists
	if _, err := os.Stat(unitPath()); err == nil {
		logrus.Warnf("%s already exists, overwriting it", unitPath())
	}

	logrus.Infof("writing systemd unit to %s", unitPath())

	err = os.WriteFile(unitPath(), []byte(Unit(o)), 0644)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", unitPath(), err)
	}

	logrus.Infof("starting tankmon")

	if err := systemctl("daemon-reload"); err != nil {
		return err
	}
	return systemctl("enable", "--now", serviceName)
}
