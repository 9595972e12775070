package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/nerrad567/replay-observer/internal/infrastructure/mqtt"
)

func newWatchCmd() *cobra.Command {
	var pattern string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print replay messages arriving on the broker",
		Long: `Watch subscribes to Fortnite/# (or --pattern) and prints every message
until interrupted. It connects with its own random client ID.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd.Context(), pattern, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&pattern, "pattern", mqtt.Topics{}.AllReplay(), "topic filter to subscribe to")
	return cmd
}

func runWatch(ctx context.Context, pattern string, out io.Writer) error {
	cfg, log, err := loadRuntime()
	if err != nil {
		return err
	}

	// A configured client_id belongs to the publisher; reusing it would
	// disconnect a running publish.
	cfg.MQTT.Broker.ClientID = ""

	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	client.SetLogger(log)

	lost := make(chan error, 1)
	client.SetOnDisconnect(func(err error) {
		select {
		case lost <- err:
		default:
		}
	})

	if err := client.Subscribe(pattern, mqtt.QoSAtLeastOnce, printMessage(out)); err != nil {
		return fmt.Errorf("subscribing to %s: %w", pattern, err)
	}
	log.Info("watching", "pattern", pattern, "broker", cfg.MQTT.BrokerAddress(), "client_id", client.ClientID())

	select {
	case <-ctx.Done():
		if err := client.Unsubscribe(pattern); err != nil {
			log.Warn("error unsubscribing", "pattern", pattern, "error", err)
		}
		return nil
	case err := <-lost:
		return fmt.Errorf("broker connection lost: %w", err)
	}
}

// printMessage returns a handler writing "topic payload" lines to out.
// paho calls handlers from its own goroutines, so writes are serialised.
func printMessage(out io.Writer) mqtt.MessageHandler {
	var mu sync.Mutex
	return func(topic string, payload []byte) error {
		mu.Lock()
		defer mu.Unlock()
		_, err := fmt.Fprintf(out, "%s %s\n", topic, payload)
		return err
	}
}
