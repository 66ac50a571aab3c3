package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/tankmon/pkg/config"
)

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		GroupID: gAdvanced,
		Short:   "Manage the configuration file",
		Long: `Manage the configuration file.

The daemon reads the file at startup. Send it SIGHUP to reload the file
after editing it; sensor, display and MQTT settings need a restart.`,
		Annotations: map[string]string{annotationSkipVersionCheck: "true"},
	}

	cmd.AddCommand(
		newConfigInitCommand(),
		newConfigShowCommand(),
		newConfigCheckCommand(),
	)

	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a configuration file with the default settings",
		Annotations: map[string]string{annotationSkipVersionCheck: "true"},
		RunE: func(_ *cobra.Command, _ []string) error {
			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite it", configPath)
			}

			if err := config.NewFileFromConfig(nil, configPath).Save(); err != nil {
				return err
			}
			logrus.Infof("wrote default config to %s", configPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	var fromDaemon bool

	cmd := &cobra.Command{
		Use:         "show",
		Short:       "Print the effective configuration, with defaults filled in",
		Annotations: map[string]string{annotationSkipVersionCheck: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if fromDaemon {
				raw, err := apiClient.GetConfig()
				if err != nil {
					return err
				}
				return printJSON(cmd, raw)
			}

			f, err := config.NewFile(configPath)
			if err != nil {
				return err
			}
			raw, err := config.NewRawFileConfigFromConfig(f)
			if err != nil {
				return err
			}
			return printJSON(cmd, raw)
		},
	}

	cmd.Flags().BoolVar(&fromDaemon, "daemon", false, "Show the configuration the running daemon uses instead of the file")

	return cmd
}

func newConfigCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "check",
		Short:       "Check the configuration file for errors",
		Annotations: map[string]string{annotationSkipVersionCheck: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := config.NewFile(configPath)
			if err != nil {
				return err
			}
			logrus.WithFields(f.LogrusFields()).Debug("config parsed")
			cmd.Printf("%s is valid\n", configPath)
			return nil
		},
	}
}
