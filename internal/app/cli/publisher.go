package cli

import (
	"context"

	"github.com/bool64/ctxd"
)

// sourcePublisher is a function that publishes seeds to a channel until they are exhausted or the context is done.
type sourcePublisher func(ctx context.Context, seeds []string) <-chan string

// bufferedSourcePublisher creates a new source publisher that publishes the seeds to a buffered channel.
func bufferedSourcePublisher(bufSize int, log ctxd.Logger) sourcePublisher {
	return func(ctx context.Context, seeds []string) <-chan string {
		seedsCh := make(chan string, bufSize)

		log.Debug(ctx, "started buffered publisher", "buffer_size", bufSize)

		go func() {
			defer close(seedsCh)

			for _, s := range seeds {
				// Checked first so that a canceled context never publishes, even with room in the buffer.
				if ctx.Err() != nil {
					log.Debug(ctx, "buffered publisher stopped")

					return
				}

				log.Debug(ctx, "publishing source", "source", s)

				select {
				case <-ctx.Done():
					log.Debug(ctx, "buffered publisher stopped")

					return

				case seedsCh <- s:
				}
			}
		}()

		return seedsCh
	}
}
