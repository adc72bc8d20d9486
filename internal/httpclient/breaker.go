package httpclient

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"

	"github.com/DonShan/GeoTask/internal/apierror"
)

// BreakerConfig holds configuration for the circuit breaker.
type BreakerConfig struct {
	// Name identifies this breaker (used in metrics and logs).
	Name string

	// MaxRequests is the maximum number of requests allowed in the
	// half-open state. 0 means 1 request is allowed.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state for clearing
	// internal counts.
	Interval time.Duration

	// Timeout is how long the breaker stays open before moving to half-open.
	Timeout time.Duration

	// FailureRatio is the ratio of failures to total requests that trips
	// the breaker.
	FailureRatio float64

	// MinRequests is the minimum number of requests needed before the
	// failure ratio is evaluated.
	MinRequests uint32
}

// DefaultBreakerConfig returns sensible defaults for a circuit breaker.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

var breakerState = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "geotask_client_breaker_state",
		Help: "Current state of the circuit breaker (0=closed, 1=half-open, 2=open)",
	},
	[]string{"name"},
)

func init() {
	prometheus.MustRegister(breakerState)
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// ErrCircuitOpen is returned when the circuit breaker is open and rejects
// the request.
var ErrCircuitOpen = gobreaker.ErrOpenState

// BreakerClient wraps a Client with circuit breaker protection. Only
// retryable failure kinds (network, timeout, server errors) count against
// the breaker; client-side errors pass through without tripping it.
type BreakerClient struct {
	client  *Client
	breaker *gobreaker.CircuitBreaker[*Response]
}

// NewBreakerClient wraps an existing client with a circuit breaker.
func NewBreakerClient(client *Client, cfg BreakerConfig, log *slog.Logger) *BreakerClient {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !apierror.IsRetryable(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			breakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	}

	breakerState.WithLabelValues(cfg.Name).Set(0)

	return &BreakerClient{
		client:  client,
		breaker: gobreaker.NewCircuitBreaker[*Response](settings),
	}
}

// Do executes one request through the circuit breaker.
func (b *BreakerClient) Do(ctx context.Context, req Request) (*Response, error) {
	return b.breaker.Execute(func() (*Response, error) {
		return b.client.Do(ctx, req)
	})
}

// State returns the current state of the circuit breaker.
func (b *BreakerClient) State() gobreaker.State {
	return b.breaker.State()
}
