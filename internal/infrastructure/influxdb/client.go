package influxdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/replay-observer/internal/infrastructure/config"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPingTimeout    = 5 * time.Second

	defaultBatchSize     = 100
	defaultFlushInterval = 10 // seconds

	millisecondsPerSecond = 1000
)

// Client records bridge delivery metrics in InfluxDB.
//
// It implements observer.Recorder, so a bridge built with
// observer.WithRecorder(client) emits one point per message it handles.
// All methods are safe for concurrent use; writes are batched and never
// block the bridge.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	cfg      config.InfluxDBConfig

	mu        sync.RWMutex
	connected bool

	onError func(err error)
}

// Option configures a Client at Connect.
type Option func(*connectOptions)

type connectOptions struct {
	tags    map[string]string
	onError func(err error)
}

// WithDefaultTag adds a tag to every point the client writes. Empty values
// are ignored.
//
//	influxdb.Connect(cfg.InfluxDB, influxdb.WithDefaultTag("source", "match-42.ndjson"))
func WithDefaultTag(key, value string) Option {
	return func(o *connectOptions) {
		if key == "" || value == "" {
			return
		}
		if o.tags == nil {
			o.tags = make(map[string]string)
		}
		o.tags[key] = value
	}
}

// WithErrorHandler receives batch write failures, which arrive
// asynchronously. Without a handler they are discarded.
func WithErrorHandler(fn func(err error)) Option {
	return func(o *connectOptions) {
		o.onError = fn
	}
}

// Connect pings the server and prepares the batched write API for the
// configured org and bucket. It returns ErrDisabled when metrics are
// switched off in configuration.
func Connect(cfg config.InfluxDBConfig, opts ...Option) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	var o connectOptions
	for _, opt := range opts {
		opt(&o)
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, clientOptions(cfg, o))

	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
	defer cancel()

	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	c := &Client{
		client:    client,
		writeAPI:  client.WriteAPI(cfg.Org, cfg.Bucket),
		cfg:       cfg,
		connected: true,
		onError:   o.onError,
	}
	go c.handleWriteErrors(c.writeAPI.Errors())

	return c, nil
}

// clientOptions maps configuration and connect options onto the library's
// batching and default-tag settings.
func clientOptions(cfg config.InfluxDBConfig, o connectOptions) *influxdb2.Options {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = defaultFlushInterval
	}

	// #nosec G115 -- both values are positive after defaulting
	opts := influxdb2.DefaultOptions().
		SetBatchSize(uint(batchSize)).
		SetFlushInterval(uint(flushInterval) * millisecondsPerSecond)
	for k, v := range o.tags {
		opts.AddDefaultTag(k, v)
	}
	return opts
}

func (c *Client) handleWriteErrors(errorsCh <-chan error) {
	for err := range errorsCh {
		if c.onError != nil {
			c.onError(err)
		}
	}
}

// Close flushes pending points and shuts the client down. It is safe to
// call on a nil or already closed client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}

	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil
	}
	c.connected = false
	c.mu.Unlock()

	c.writeAPI.Flush()
	c.client.Close()
	return nil
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	checkCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	healthy, err := c.client.Ping(checkCtx)
	if err != nil {
		return fmt.Errorf("influxdb health check failed: %w", err)
	}
	if !healthy {
		return fmt.Errorf("influxdb health check failed: server not healthy")
	}
	return nil
}

// IsConnected reports the last known state; HealthCheck pings.
func (c *Client) IsConnected() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
