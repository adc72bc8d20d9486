// Package interceptor implements the ordered transform pipeline the HTTP
// client runs around every network call: request mutation on the way out,
// response post-processing on the way back, and error observation/rewriting
// on any failure.
package interceptor

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"sync"
)

// Response is the transport result a response interceptor may transform.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// RequestInterceptor transforms an outgoing request. Returning an error
// aborts the call before it reaches the network.
type RequestInterceptor interface {
	InterceptRequest(ctx context.Context, req *http.Request) (*http.Request, error)
}

// ResponseInterceptor transforms a successful transport result.
type ResponseInterceptor interface {
	InterceptResponse(ctx context.Context, req *http.Request, resp *Response) (*Response, error)
}

// ErrorInterceptor observes or rewrites a failure (transport, status or
// decode). It must return a non-nil error.
type ErrorInterceptor interface {
	InterceptError(ctx context.Context, req *http.Request, err error) error
}

// RequestFunc adapts a function to RequestInterceptor.
type RequestFunc func(ctx context.Context, req *http.Request) (*http.Request, error)

func (f RequestFunc) InterceptRequest(ctx context.Context, req *http.Request) (*http.Request, error) {
	return f(ctx, req)
}

// ResponseFunc adapts a function to ResponseInterceptor.
type ResponseFunc func(ctx context.Context, req *http.Request, resp *Response) (*Response, error)

func (f ResponseFunc) InterceptResponse(ctx context.Context, req *http.Request, resp *Response) (*Response, error) {
	return f(ctx, req, resp)
}

// ErrorFunc adapts a function to ErrorInterceptor.
type ErrorFunc func(ctx context.Context, req *http.Request, err error) error

func (f ErrorFunc) InterceptError(ctx context.Context, req *http.Request, err error) error {
	return f(ctx, req, err)
}

// Chain holds three independently ordered interceptor lists. Each list is
// folded left-to-right in registration order, so auth injection registered
// before logging is reflected in what the logger sees.
type Chain struct {
	mu       sync.RWMutex
	request  []RequestInterceptor
	response []ResponseInterceptor
	errs     []ErrorInterceptor
}

// NewChain creates an empty chain.
func NewChain() *Chain {
	return &Chain{}
}

// Use registers v into every capability list whose interface it satisfies.
// A single implementation may land in one, two or all three lists. Returns
// an error if v satisfies none.
func (c *Chain) Use(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	registered := false
	if ri, ok := v.(RequestInterceptor); ok {
		c.request = append(c.request, ri)
		registered = true
	}
	if ri, ok := v.(ResponseInterceptor); ok {
		c.response = append(c.response, ri)
		registered = true
	}
	if ei, ok := v.(ErrorInterceptor); ok {
		c.errs = append(c.errs, ei)
		registered = true
	}
	if !registered {
		return fmt.Errorf("interceptor: %T implements no interceptor capability", v)
	}
	return nil
}

// Remove deregisters v from every list it was registered in, compared by
// identity.
func (c *Chain) Remove(v any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	req := c.request[:0]
	for _, i := range c.request {
		if !sameInterceptor(i, v) {
			req = append(req, i)
		}
	}
	c.request = req

	resp := c.response[:0]
	for _, i := range c.response {
		if !sameInterceptor(i, v) {
			resp = append(resp, i)
		}
	}
	c.response = resp

	errs := c.errs[:0]
	for _, i := range c.errs {
		if !sameInterceptor(i, v) {
			errs = append(errs, i)
		}
	}
	c.errs = errs
}

// sameInterceptor reports identity between two registered values. Func
// adapters compare by code pointer since func values are not comparable.
func sameInterceptor(a, b any) bool {
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Kind() == reflect.Func && rb.Kind() == reflect.Func {
		return ra.Pointer() == rb.Pointer()
	}
	if ra.Kind() != rb.Kind() {
		return false
	}
	if !ra.Comparable() || !rb.Comparable() {
		return false
	}
	return a == b
}

// ApplyRequest folds all request interceptors over req in registration order.
func (c *Chain) ApplyRequest(ctx context.Context, req *http.Request) (*http.Request, error) {
	c.mu.RLock()
	list := make([]RequestInterceptor, len(c.request))
	copy(list, c.request)
	c.mu.RUnlock()

	var err error
	for _, i := range list {
		req, err = i.InterceptRequest(ctx, req)
		if err != nil {
			return nil, err
		}
	}
	return req, nil
}

// ApplyResponse folds all response interceptors over resp in registration order.
func (c *Chain) ApplyResponse(ctx context.Context, req *http.Request, resp *Response) (*Response, error) {
	c.mu.RLock()
	list := make([]ResponseInterceptor, len(c.response))
	copy(list, c.response)
	c.mu.RUnlock()

	var err error
	for _, i := range list {
		resp, err = i.InterceptResponse(ctx, req, resp)
		if err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// ApplyError folds all error interceptors over err in registration order.
func (c *Chain) ApplyError(ctx context.Context, req *http.Request, err error) error {
	c.mu.RLock()
	list := make([]ErrorInterceptor, len(c.errs))
	copy(list, c.errs)
	c.mu.RUnlock()

	for _, i := range list {
		err = i.InterceptError(ctx, req, err)
	}
	return err
}
