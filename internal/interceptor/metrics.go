package interceptor

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/DonShan/GeoTask/internal/apierror"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geotask_client_requests_total",
			Help: "Total number of API requests by method and status code",
		},
		[]string{"method", "status"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geotask_client_request_duration_seconds",
			Help:    "API request duration in seconds by method",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	requestErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geotask_client_request_errors_total",
			Help: "Total number of failed API requests by method and error kind",
		},
		[]string{"method", "kind"},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal)
	prometheus.MustRegister(requestDuration)
	prometheus.MustRegister(requestErrors)
}

type metricsStartKey struct{}

// Metrics records request counts, durations and error kinds for the pipeline.
type Metrics struct{}

// NewMetrics creates the metrics interceptor.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// InterceptRequest stamps the start time used for duration measurement.
func (Metrics) InterceptRequest(_ context.Context, req *http.Request) (*http.Request, error) {
	return req.WithContext(context.WithValue(req.Context(), metricsStartKey{}, time.Now())), nil
}

// InterceptResponse records the outcome of a completed transport call.
func (Metrics) InterceptResponse(_ context.Context, req *http.Request, resp *Response) (*Response, error) {
	requestsTotal.WithLabelValues(req.Method, strconv.Itoa(resp.StatusCode)).Inc()
	if start, ok := req.Context().Value(metricsStartKey{}).(time.Time); ok {
		requestDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())
	}
	return resp, nil
}

// InterceptError records a failed call by error kind.
func (Metrics) InterceptError(_ context.Context, req *http.Request, err error) error {
	requestErrors.WithLabelValues(req.Method, string(apierror.KindOf(err))).Inc()
	return err
}
