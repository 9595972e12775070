package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nerrad567/replay-observer/internal/infrastructure/config"
	"github.com/nerrad567/replay-observer/internal/infrastructure/database"
	"github.com/nerrad567/replay-observer/internal/infrastructure/influxdb"
	"github.com/nerrad567/replay-observer/internal/infrastructure/logging"
	"github.com/nerrad567/replay-observer/internal/journal"
	"github.com/nerrad567/replay-observer/internal/observer"
	"github.com/nerrad567/replay-observer/internal/replay"
	_ "github.com/nerrad567/replay-observer/migrations"
)

// stdinSource selects standard input as the replay source.
const stdinSource = "-"

type publishOptions struct {
	source    string
	eventType string
	suffix    string
	topic     string
}

func newPublishCmd() *cobra.Command {
	var opts publishOptions

	cmd := &cobra.Command{
		Use:   "publish <replay.ndjson|->",
		Short: "Publish a replay's events to the broker",
		Long: `Publish reads newline-delimited JSON events and publishes each one to
Fortnite/<topic>. With --type only that event type is published; with
--suffix the topic becomes Fortnite/<topic>/<suffix>.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.source = args[0]
			return runPublish(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.eventType, "type", "", "only publish events of this type")
	cmd.Flags().StringVar(&opts.suffix, "suffix", "", "append a suffix to the topic")
	cmd.Flags().StringVar(&opts.topic, "topic", "", "override mqtt.topic from the config file")
	return cmd
}

func runPublish(ctx context.Context, opts publishOptions, stdin io.Reader, out io.Writer) error {
	cfg, log, err := loadRuntime()
	if err != nil {
		return err
	}
	if opts.topic != "" {
		cfg.MQTT.Topic = opts.topic
	}

	src, closeSrc, err := openSource(opts.source, stdin)
	if err != nil {
		return err
	}
	defer closeSrc()

	var sessions journal.Repository
	if cfg.Journal.Enabled {
		db, err := openJournal(ctx, cfg.Journal)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing journal", "error", closeErr)
			}
		}()
		sessions = journal.NewSQLiteRepository(db.DB)
		log.Debug("journal opened", "path", cfg.Journal.Path)
	}

	var metrics *influxdb.Client
	if cfg.InfluxDB.Enabled {
		metrics, err = influxdb.Connect(cfg.InfluxDB,
			influxdb.WithDefaultTag("source", sourceTag(opts.source)),
			influxdb.WithErrorHandler(func(err error) {
				log.Error("InfluxDB write error", "error", err)
			}),
		)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			if closeErr := metrics.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	bridge, err := observer.Dial(cfg.MQTT, bridgeOptions(opts, log, metrics)...)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}

	session := &journal.Session{
		Source:    opts.source,
		Topic:     bridge.Topic(),
		ClientID:  bridge.ClientID(),
		EventType: opts.eventType,
	}
	if sessions != nil {
		if err := sessions.Begin(ctx, session); err != nil {
			return errors.Join(fmt.Errorf("recording session: %w", err), bridge.Unsubscribe())
		}
	}

	log.Info("publishing replay", "source", opts.source, "topic", session.Topic, "session", session.ID)
	runErr := publishReplay(ctx, bridge, src, opts.eventType)

	stats := bridge.Stats()
	termination := bridge.Termination()
	cause := bridge.TerminalCause()
	if cause == nil {
		cause = runErr
	}

	if sessions != nil {
		// The run context may already be cancelled; the journal row is still written.
		if err := sessions.End(context.WithoutCancel(ctx), session.ID, termination, cause, stats); err != nil {
			log.Error("error recording session end", "session", session.ID, "error", err)
		}
	}
	if metrics != nil {
		metrics.WriteSessionSummary(session.ID, session.Topic, string(termination), stats)
	}

	fmt.Fprintf(out, "%s: %d published, %d dropped, %d failed (%s)\n",
		session.Topic, stats.Published, stats.Dropped, stats.Failed, termination)

	return runErr
}

// bridgeOptions assembles the bridge strategies for a publish run.
func bridgeOptions(opts publishOptions, log *logging.Logger, metrics *influxdb.Client) []observer.Option[replay.Event] {
	bridgeOpts := []observer.Option[replay.Event]{
		observer.WithLogger[replay.Event](log.With("component", "bridge")),
	}
	if opts.suffix != "" {
		bridgeOpts = append(bridgeOpts, observer.WithTopicNamer[replay.Event](observer.TopicWithSuffix(opts.suffix)))
	}
	if metrics != nil {
		bridgeOpts = append(bridgeOpts, observer.WithRecorder[replay.Event](metrics))
	}
	return bridgeOpts
}

// publishReplay subscribes bridge to a feed over src and runs it to the end.
//
// The feed returns early without OnError when a bridge callback fails, so
// the bridge is unsubscribed here as well; on the normal paths that second
// teardown is a no-op.
func publishReplay(ctx context.Context, bridge *observer.Bridge[replay.Event], src io.Reader, eventType string) error {
	feed := replay.NewFeed(src)
	if eventType != "" {
		feed.Filter(eventType)
	}

	if err := bridge.Subscribe(feed); err != nil {
		return errors.Join(err, bridge.Unsubscribe())
	}

	runErr := feed.Run(ctx)
	return errors.Join(runErr, bridge.Unsubscribe())
}

// openSource opens the replay file, or returns stdin for "-".
func openSource(source string, stdin io.Reader) (io.Reader, func(), error) {
	if source == stdinSource {
		return stdin, func() {}, nil
	}

	f, err := os.Open(source) // #nosec G304 -- path is the operator's CLI argument
	if err != nil {
		return nil, nil, fmt.Errorf("opening replay: %w", err)
	}
	return f, func() { f.Close() }, nil //nolint:errcheck // read-only file
}

// sourceTag names a replay source for metrics: the file's base name, or
// "stdin".
func sourceTag(source string) string {
	if source == stdinSource {
		return "stdin"
	}
	return filepath.Base(source)
}

// openJournal opens the journal database and applies migrations.
func openJournal(ctx context.Context, cfg config.JournalConfig) (*database.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close() //nolint:errcheck // best effort on error path
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}
