package interceptor

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/DonShan/GeoTask/pkg/logger"
)

type startTimeKey struct{}

// Logging logs every request, response and failure through the pipeline.
// Registered after auth injection so the logged request reflects the final
// authenticated form.
type Logging struct {
	log *slog.Logger
}

// NewLogging creates the logging interceptor.
func NewLogging(log *slog.Logger) *Logging {
	return &Logging{log: log}
}

// InterceptRequest records the outgoing request and stamps its start time
// into the request context for duration reporting.
func (l *Logging) InterceptRequest(ctx context.Context, req *http.Request) (*http.Request, error) {
	logger.WithContext(ctx, l.log).Debug("http request",
		slog.String("method", req.Method),
		slog.String("url", req.URL.String()),
	)
	return req.WithContext(context.WithValue(req.Context(), startTimeKey{}, time.Now())), nil
}

// InterceptResponse records the transport result.
func (l *Logging) InterceptResponse(ctx context.Context, req *http.Request, resp *Response) (*Response, error) {
	logger.WithContext(ctx, l.log).Debug("http response",
		slog.String("method", req.Method),
		slog.String("url", req.URL.String()),
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", len(resp.Body)),
		slog.Duration("duration", sinceStart(req)),
	)
	return resp, nil
}

// InterceptError records the failure and passes it through unchanged.
func (l *Logging) InterceptError(ctx context.Context, req *http.Request, err error) error {
	logger.WithContext(ctx, l.log).Warn("http error",
		slog.String("method", req.Method),
		slog.String("url", req.URL.String()),
		slog.Duration("duration", sinceStart(req)),
		slog.String("error", err.Error()),
	)
	return err
}

func sinceStart(req *http.Request) time.Duration {
	if start, ok := req.Context().Value(startTimeKey{}).(time.Time); ok {
		return time.Since(start)
	}
	return 0
}
