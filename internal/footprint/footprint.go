package footprint

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/bool64/ctxd"
)

// DefaultInterval is the default time between two reports.
const DefaultInterval = 5 * time.Second

// Probe returns extra key-value pairs to log with every report.
type Probe func() []any

// Track logs the resources usage at every interval until the context is done.
func Track(ctx context.Context, log ctxd.Logger, interval time.Duration, probes ...Probe) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			// See: https://golang.org/pkg/runtime/#MemStats
			var m runtime.MemStats

			runtime.ReadMemStats(&m)

			kv := []any{
				"alloc_mb", formatB(m.Alloc),
				"total_alloc_mb", formatB(m.TotalAlloc),
				"sys_mb", formatB(m.Sys),
				"num_gc", m.NumGC,
				"goroutines", runtime.NumGoroutine(),
			}

			for _, p := range probes {
				kv = append(kv, p()...)
			}

			log.Debug(ctx, "resource usage", kv...)
		}
	}
}

func formatB(b uint64) string {
	return fmt.Sprintf("%dMiB", b/1024/1024) // nolint: gomnd // bytes conversion.
}
