package interceptor

import (
	"context"
	"net/http"

	"github.com/DonShan/GeoTask/internal/apierror"
)

// Classify normalizes untyped failures into the apierror taxonomy so that
// downstream retry logic and observers always see a classified kind.
// Registered last in the error list; typed errors pass through unchanged.
type Classify struct{}

// NewClassify creates the classifying error interceptor.
func NewClassify() *Classify {
	return &Classify{}
}

// InterceptError rewrites err into a typed *apierror.Error when it is not one
// already.
func (Classify) InterceptError(_ context.Context, _ *http.Request, err error) error {
	return apierror.FromTransport(err)
}
