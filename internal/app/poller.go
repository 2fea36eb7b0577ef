package app

import (
	"context"
	"time"
)

const defaultPollInterval = 30 * time.Second

// StartPoller launches a background goroutine that refreshes the device
// directory immediately and then at a fixed cadence. Failures never change
// the cadence. It returns a channel that is closed once the goroutine exits.
func StartPoller(ctx context.Context, c *Controller, interval time.Duration) <-chan struct{} {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			c.RefreshDirectory(ctx)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return done
}
