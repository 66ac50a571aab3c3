package service

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"
)

func Uninstall() error {
	if _, err := os.Stat(unitPath()); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logrus.Infof("%s does not exist, nothing to uninstall", unitPath())
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", unitPath(), err)
	}

	logrus.Infof("stopping tankmon")

	if err := systemctl("disable", "--now", serviceName); err != nil {
		return fmt.Errorf("%w. Are you root?", err)
	}

	logrus.Infof("removing systemd unit")

	if err := os.Remove(unitPath()); err != nil {
		return fmt.Errorf("failed to remove %s: %w. Are you root?", unitPath(), err)
	}

	return systemctl("daemon-reload")
}
