package httpclient

import (
	"context"
	"log/slog"
	"time"

	"github.com/DonShan/GeoTask/internal/apierror"
)

// DoWithRetry re-issues req on retryable failures with exponential backoff:
// the delay before each re-attempt doubles, starting at initialDelay.
// maxRetries bounds the total number of attempts. The first non-retryable
// error stops the loop; only the final attempt's error is surfaced.
func (c *Client) DoWithRetry(ctx context.Context, req Request, maxRetries int, initialDelay time.Duration) (*Response, error) {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	delay := initialDelay

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if attempt > 1 {
			c.log.Debug("retrying request",
				slog.String("method", req.Method),
				slog.String("path", req.Path),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, apierror.FromTransport(ctx.Err())
			}
			delay *= 2
		}

		resp, err := c.Do(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !apierror.IsRetryable(err) {
			break
		}
	}

	return nil, lastErr
}
