package observability

import (
	"context"
	"fmt"
	"time"
)

const (
	// DefaultShutdownTimeout bounds Shutdown when no timeout is given.
	DefaultShutdownTimeout = 5 * time.Second

	// DefaultBatchTimeout is how long spans are buffered before export.
	DefaultBatchTimeout = time.Second

	// DefaultMetricInterval is the periodic metric export interval. A CLI process is
	// short lived, so most exports happen on Shutdown.
	DefaultMetricInterval = 30 * time.Second
)

// Shutdown flushes and stops provider within timeout. A nil provider is ignored.
func Shutdown(provider Provider, timeout time.Duration) error {
	if provider == nil {
		return nil
	}

	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("observability shutdown failed: %w", err)
	}
	return nil
}
