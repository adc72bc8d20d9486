package interceptor

import (
	"context"
	"net/http"

	"github.com/DonShan/GeoTask/internal/apierror"
)

// TokenSource supplies the current authorization header and accepts refresh
// demands. ScheduleRefresh must not block; it queues recovery for subsequent
// calls, never the current one.
type TokenSource interface {
	AuthorizationHeader() string
	ScheduleRefresh()
}

// Auth injects the bearer token into outgoing requests and, on observing an
// Unauthorized failure, schedules a session refresh. The failed call still
// surfaces its error unchanged.
type Auth struct {
	source TokenSource
}

// NewAuth creates the auth interceptor around a token source.
func NewAuth(source TokenSource) *Auth {
	return &Auth{source: source}
}

// InterceptRequest sets the Authorization header when a token is available.
// An explicit Authorization header set by the caller wins.
func (a *Auth) InterceptRequest(_ context.Context, req *http.Request) (*http.Request, error) {
	if req.Header.Get("Authorization") != "" {
		return req, nil
	}
	if header := a.source.AuthorizationHeader(); header != "" {
		req.Header.Set("Authorization", header)
	}
	return req, nil
}

// InterceptError schedules a token refresh when the failure indicates an
// expired or rejected token. The error passes through untouched.
func (a *Auth) InterceptError(_ context.Context, _ *http.Request, err error) error {
	if apierror.ShouldRefreshToken(err) {
		a.source.ScheduleRefresh()
	}
	return err
}
