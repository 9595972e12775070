// replayobserver publishes parsed Fortnite replay events to an MQTT broker.
//
// Each run reads a newline-delimited JSON replay, bridges it to
// Fortnite/<topic> through an observer bridge, and optionally records the
// run in a SQLite journal and delivery metrics in InfluxDB.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nerrad567/replay-observer/internal/infrastructure/config"
	"github.com/nerrad567/replay-observer/internal/infrastructure/logging"
)

// Version information, set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"
	configEnvVar      = "REPLAYOBSERVER_CONFIG"
)

// configPath is set by the --config persistent flag.
var configPath string

func main() {
	// Cancel on Ctrl+C or SIGTERM so a running publish tears its bridge down.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "replayobserver",
		Short: "Publish Fortnite replay events to an MQTT broker",
		Long: `replayobserver bridges a parsed replay to MQTT. Every event is published
at least once to Fortnite/<topic>, framed by {"started": 1} and {"finished": 1}.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		fmt.Sprintf("config file (default $%s or %s)", configEnvVar, defaultConfigPath))

	rootCmd.AddCommand(
		newPublishCmd(),
		newWatchCmd(),
		newSessionsCmd(),
		newMigrateCmd(),
		newHealthCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// getConfigPath returns the --config flag, then REPLAYOBSERVER_CONFIG, then
// the default path.
func getConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if path := os.Getenv(configEnvVar); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadRuntime loads configuration and builds the configured logger.
func loadRuntime() (*config.Config, *logging.Logger, error) {
	path := getConfigPath()
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(cfg.Logging, version)
	log.Debug("configuration loaded", "path", path, "commit", commit, "build_date", date)
	return cfg, log, nil
}
