package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/replay-observer/internal/infrastructure/config"
	"github.com/nerrad567/replay-observer/internal/infrastructure/database"
	"github.com/nerrad567/replay-observer/internal/infrastructure/influxdb"
	"github.com/nerrad567/replay-observer/internal/infrastructure/mqtt"
)

// healthTimeout bounds the whole health run, including broker connects
// when mqtt.timeouts.connect is 0.
const healthTimeout = 10 * time.Second

// healthCheck is one component checked by the health command. check returns
// a short detail for the report.
type healthCheck struct {
	name  string
	check func(ctx context.Context) (string, error)
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the broker, journal and metrics connections",
		Long: `Health connects to every configured backend and reports whether it
answers. The broker is always checked; the journal and InfluxDB only when
enabled. The exit status is non-zero if any check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHealth(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func runHealth(ctx context.Context, out io.Writer) error {
	cfg, _, err := loadRuntime()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	checks := []healthCheck{{name: "mqtt", check: mqttHealth(cfg.MQTT)}}
	if cfg.Journal.Enabled {
		checks = append(checks, healthCheck{name: "journal", check: journalHealth(cfg.Journal)})
	}
	if cfg.InfluxDB.Enabled {
		checks = append(checks, healthCheck{name: "influxdb", check: influxHealth(cfg.InfluxDB)})
	}
	return runChecks(ctx, out, checks)
}

// runChecks runs every check, even after a failure, and prints one row per
// component. The returned error joins all failures.
func runChecks(ctx context.Context, out io.Writer, checks []healthCheck) error {
	const row = "  %-10s  %-6s  %s\n"
	fmt.Fprintf(out, row, "COMPONENT", "STATUS", "DETAIL")

	var errs []error
	for _, c := range checks {
		detail, err := c.check(ctx)
		status := "ok"
		if err != nil {
			status = "FAIL"
			detail = err.Error()
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
		fmt.Fprintf(out, row, c.name, status, detail)
	}
	return errors.Join(errs...)
}

func mqttHealth(cfg config.MQTTConfig) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		// Never reuse the publisher's client ID; the broker would drop it.
		cfg.Broker.ClientID = ""
		if cfg.Timeouts.Connect == 0 {
			cfg.Timeouts.Connect = int(healthTimeout / time.Second)
		}

		client, err := mqtt.Connect(cfg)
		if err != nil {
			return "", err
		}
		defer client.Close() //nolint:errcheck // short-lived check connection

		if err := client.HealthCheck(ctx); err != nil {
			return "", err
		}
		return cfg.BrokerAddress(), nil
	}
}

func journalHealth(cfg config.JournalConfig) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		db, err := database.Open(cfg)
		if err != nil {
			return "", err
		}
		defer db.Close() //nolint:errcheck // short-lived check connection

		if err := db.HealthCheck(ctx); err != nil {
			return "", err
		}
		_, pending, err := db.MigrationStatus(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s (%d pending migrations)", db.Path(), len(pending)), nil
	}
}

func influxHealth(cfg config.InfluxDBConfig) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		client, err := influxdb.Connect(cfg)
		if err != nil {
			return "", err
		}
		defer client.Close() //nolint:errcheck // nothing buffered

		if err := client.HealthCheck(ctx); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s bucket %s", cfg.URL, cfg.Bucket), nil
	}
}
