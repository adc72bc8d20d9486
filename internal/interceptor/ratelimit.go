package interceptor

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/DonShan/GeoTask/internal/apierror"
)

// RateLimit enforces a client-side request budget with a token bucket that
// refills at perMinute requests per minute. When the bucket is empty the
// request fails fast with RateLimitExceeded instead of reaching the network.
type RateLimit struct {
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewRateLimit creates the rate-limit interceptor allowing perMinute requests
// per minute with a burst of the same size. A non-positive budget is clamped
// to one request per minute.
func NewRateLimit(perMinute int, log *slog.Logger) *RateLimit {
	if perMinute < 1 {
		perMinute = 1
	}
	return &RateLimit{
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		log:     log,
	}
}

// InterceptRequest consumes one token or rejects the request.
func (r *RateLimit) InterceptRequest(_ context.Context, req *http.Request) (*http.Request, error) {
	if !r.limiter.Allow() {
		r.log.Warn("client rate limit exceeded",
			slog.String("method", req.Method),
			slog.String("url", req.URL.String()),
		)
		return nil, apierror.RateLimited("client-side request budget exhausted")
	}
	return req, nil
}
