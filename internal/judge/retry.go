/*
PURPOSE:
  Bounded retry loop for the judge backends without SDK retries.

REQUIREMENTS:
  User-specified:
  - A flaky judge call should not immediately null a metric.

  Implementation-discovered:
  - Waiting between attempts respects context cancellation.

ARCHITECTURE INTEGRATION:
  - Called by: internal/judge/ollama.go, internal/judge/azure.go

ERROR HANDLING:
  - Returns the last error after retries+1 attempts.

IMPLEMENTATION RULES:
  - Log every retry with the backend name.

USAGE:
  err := withRetry(ctx, "ollama", 3, 2*time.Second, fn)

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/judge/ollama.go

MAINTENANCE:
  - None.
*/

package judge

import (
	"context"
	"time"

	"github.com/daryltucker/forest-eval/internal/output"
)

// withRetry runs fn once plus up to retries more times, sleeping delay between
// attempts. It stops early when ctx is done.
func withRetry(ctx context.Context, backend string, retries int, delay time.Duration, fn func() error) error {
	if retries < 0 {
		retries = 0
	}

	var lastErr error
	for i := 0; i <= retries; i++ {
		if i > 0 {
			output.Logger.Info("Retrying judge request...", "backend", backend, "attempt", i+1, "error", lastErr)
			select {
			case <-ctx.Done():
				return lastErr
			case <-time.After(delay):
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
	}
	return lastErr
}
