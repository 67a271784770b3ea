package main

import (
	"os"

	"github.com/spf13/cobra"

	"apptcal/internal/config"
	appLog "apptcal/internal/log"
)

const defaultConfigPath = "/etc/apptcal/config.yaml"

// rootCmd represents the base command for the apptcal application
var rootCmd = &cobra.Command{
	Use:   "apptcal",
	Short: "Appointment calendar for a cat shelter",
	Long: `apptcal serves a month calendar of booked appointments, merged with
subscribed ICS feeds, plus the appointment list the calendar links to.

It can run as:
  - A web service with periodic feed refresh (serve, default)
  - A one-shot headless check of a running calendar page (snapshot)`,
	SilenceUsage: true,
}

var configPath string

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "apptcal version %s\n" .Version}}`)

	// No subcommand runs the service.
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "Path to config file")
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSnapshotCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// loadConfig reads the config file and applies its log level.
func loadConfig() (*config.Config, error) {
	conf, err := config.Load(configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", configPath)
		return nil, err
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	return conf, nil
}
