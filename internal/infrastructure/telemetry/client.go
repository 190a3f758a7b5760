package telemetry

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/amparo-saude/amparo-core/internal/infrastructure/config"
)

const defaultConnectTimeout = 10 * time.Second

// Logger is the minimal logging interface the client needs.
type Logger interface {
	Warn(msg string, args ...any)
}

// Client writes measurement points to InfluxDB through the library's
// non-blocking write API. All methods are safe for concurrent use.
type Client struct {
	influx   influxdb2.Client
	writeAPI api.WriteAPI
	done     chan struct{}
}

// Connect creates an InfluxDB client and verifies the server is
// reachable. Returns ErrDisabled when telemetry is off in config.
func Connect(ctx context.Context, cfg config.TelemetryConfig, log Logger) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 10
	}

	opts := influxdb2.DefaultOptions().
		SetBatchSize(uint(batchSize)).
		SetFlushInterval(uint(flushInterval * 1000))
	influx := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)

	healthCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()
	if _, err := influx.Health(healthCtx); err != nil {
		influx.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c := &Client{
		influx:   influx,
		writeAPI: influx.WriteAPI(cfg.Org, cfg.Bucket),
		done:     make(chan struct{}),
	}

	// Async write failures surface on the errors channel; drain it so
	// the library does not stall, logging what comes through.
	go func() {
		errCh := c.writeAPI.Errors()
		for {
			select {
			case err, ok := <-errCh:
				if !ok {
					return
				}
				if log != nil {
					log.Warn("telemetry write failed", "error", err)
				}
			case <-c.done:
				return
			}
		}
	}()

	return c, nil
}

// Close flushes pending points and shuts the client down.
func (c *Client) Close() {
	close(c.done)
	c.writeAPI.Flush()
	c.influx.Close()
}

// HealthCheck verifies InfluxDB is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.influx.Health(ctx); err != nil {
		return fmt.Errorf("telemetry health check: %w", err)
	}
	return nil
}
