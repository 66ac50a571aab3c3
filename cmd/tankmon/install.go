package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/tankmon/pkg/utils/service"
)

var gInstallation = "Installation:"

func init() {
	commandGroups = append(commandGroups, gInstallation)
}

// NewInstallCommand .
func NewInstallCommand() *cobra.Command {
	allowNonRootAccess := false

	cmd := &cobra.Command{
		Use:     "install",
		Short:   "Install tankmon as a systemd service",
		GroupID: gInstallation,
		Long: `Install tankmon daemon as a systemd service (system-wide).

This makes tankmon run in the background and automatically start on boot. You must run this command as root.

By default, only root user is allowed to access the tankmon daemon. If you want to allow non-root users to read the tank level, use the --allow-non-root-access flag, so you don't have to use sudo every time.`,
		Annotations: map[string]string{annotationSkipVersionCheck: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if allowNonRootAccess {
				logrus.Info("non-root users are allowed to access the tankmon daemon.")
			} else {
				logrus.Info("only root user is allowed to access the tankmon daemon.")
			}

			err := service.Install(service.Options{
				ConfigPath:         configPath,
				SocketPath:         unixSocketPath,
				AllowNonRootAccess: allowNonRootAccess,
			})
			if err != nil {
				// check if current user is root
				if os.Geteuid() != 0 {
					logrus.Errorf("you must run this command as root")
				}
				return fmt.Errorf("failed to install daemon: %v. Are you root?", err)
			}

			logrus.Infof("installation succeeded")

			exePath, _ := os.Executable()

			cmd.Printf("systemd will use current binary (%s) at startup so please make sure you do not move this binary. Once this binary is moved or deleted, you will need to run `tankmon install' again.\n", exePath)

			return nil
		},
	}

	cmd.Flags().BoolVar(&allowNonRootAccess, "allow-non-root-access", false, "Allow non-root users to access tankmon daemon.")

	return cmd
}

// NewUninstallCommand .
func NewUninstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "uninstall",
		Short:   "Uninstall the tankmon systemd service",
		GroupID: gInstallation,
		Long: `Uninstall tankmon daemon from systemd (system-wide).

This stops tankmon and removes its unit file. You must run this command as root.`,
		Annotations: map[string]string{annotationSkipVersionCheck: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := service.Uninstall()
			if err != nil {
				// check if current user is root
				if os.Geteuid() != 0 {
					logrus.Errorf("you must run this command as root")
				}
				return fmt.Errorf("failed to uninstall daemon: %v", err)
			}

			cmd.Println("successfully uninstalled")

			cmd.Printf("Your config is kept in %s, in case you want to use `tankmon' again. If you want a complete uninstall, you can remove both config file and tankmon itself manually.\n", configPath)

			return nil
		},
	}
}
