package sse

import (
	"context"
	"log/slog"
	"time"
)

// Config holds configuration for SSE connections
type Config struct {
	// KeepAliveInterval is how often a comment line is written to keep
	// proxies from closing an idle stream
	KeepAliveInterval time.Duration
}

// DefaultConfig returns the default SSE configuration.
// 10 seconds is below the idle timeout of common proxies.
func DefaultConfig() *Config {
	return &Config{
		KeepAliveInterval: 10 * time.Second,
	}
}

// KeepAliveWriter writes a keep-alive comment. Writer implements it.
type KeepAliveWriter interface {
	WriteKeepAlive() error
}

// KeepAlive pings writer every interval until ctx ends or a write fails.
// The returned channel closes when pinging stops; a closed channel with ctx
// still live means the client is gone.
func KeepAlive(ctx context.Context, writer KeepAliveWriter, interval time.Duration, logger *slog.Logger) <-chan struct{} {
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := writer.WriteKeepAlive(); err != nil {
					logger.Debug("keep-alive write failed, stopping", "error", err)
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return stopped
}
