// Package httpclient builds and executes API requests through the
// interceptor chain, classifies transport and status outcomes into the typed
// error taxonomy, and decodes response bodies via the wire codec.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/DonShan/GeoTask/internal/apierror"
	"github.com/DonShan/GeoTask/internal/interceptor"
)

// maxBodyBytes caps how much of a response body is read into memory.
const maxBodyBytes = 10 << 20

// Config holds HTTP client configuration.
type Config struct {
	BaseURL         string
	Timeout         time.Duration
	MaxConnsPerHost int
}

// DefaultConfig returns sensible defaults for the API client.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:         baseURL,
		Timeout:         30 * time.Second,
		MaxConnsPerHost: 100,
	}
}

// Request is one logical API call before URL resolution.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
	Header http.Header
}

// Response is the decoded-transport result: status, headers and raw body.
type Response = interceptor.Response

// Client executes requests against a base URL through an interceptor chain.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	chain      *interceptor.Chain
	log        *slog.Logger

	mu       sync.Mutex
	groupCtx context.Context
	cancel   context.CancelFunc
}

// New creates an API client. The chain may be shared with other clients; a
// nil chain gets an empty one.
func New(cfg Config, chain *interceptor.Chain, log *slog.Logger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, apierror.InvalidURL(cfg.BaseURL, err)
	}
	if chain == nil {
		chain = interceptor.NewChain()
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	groupCtx, cancel := context.WithCancel(context.Background())

	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		chain:    chain,
		log:      log,
		groupCtx: groupCtx,
		cancel:   cancel,
	}, nil
}

// Chain exposes the interceptor chain for registration.
func (c *Client) Chain() *interceptor.Chain {
	return c.chain
}

// CancelAll cancels every in-flight request issued through this client.
// Best effort: requests observe the cancellation at their next suspension
// point. New requests proceed normally.
func (c *Client) CancelAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancel()
	c.groupCtx, c.cancel = context.WithCancel(context.Background())
}

func (c *Client) currentGroup() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.groupCtx
}

// Do executes one request through the interceptor chain and classifies the
// outcome. Success and failure both pass through the chain before returning.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, c.chain.ApplyError(ctx, httpReq, err)
	}

	// Tie the request to the client-wide cancellation group.
	ctx, cancelGroup := context.WithCancel(httpReq.Context())
	defer cancelGroup()
	stop := context.AfterFunc(c.currentGroup(), cancelGroup)
	defer stop()
	httpReq = httpReq.WithContext(ctx)

	httpReq, err = c.chain.ApplyRequest(ctx, httpReq)
	if err != nil {
		return nil, c.chain.ApplyError(ctx, httpReq, err)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.chain.ApplyError(ctx, httpReq, apierror.FromTransport(err))
	}
	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return nil, c.chain.ApplyError(ctx, httpReq,
			apierror.InvalidResponse(fmt.Sprintf("read body: %v", err)))
	}

	if httpResp.StatusCode >= 200 && httpResp.StatusCode < 300 {
		resp := &Response{
			StatusCode: httpResp.StatusCode,
			Header:     httpResp.Header,
			Body:       body,
		}
		resp, err = c.chain.ApplyResponse(ctx, httpReq, resp)
		if err != nil {
			return nil, c.chain.ApplyError(ctx, httpReq, err)
		}
		return resp, nil
	}

	return nil, c.chain.ApplyError(ctx, httpReq, apierror.FromStatus(httpResp.StatusCode, body))
}

// build resolves the absolute URL and constructs the transport request. The
// returned request is non-nil even on error so error interceptors always have
// a request to report against.
func (c *Client) build(ctx context.Context, req Request) (*http.Request, error) {
	ref, err := url.Parse(req.Path)
	if err != nil {
		fallback, _ := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.String(), nil)
		return fallback, apierror.InvalidURL(req.Path, err)
	}

	u := c.baseURL.ResolveReference(ref)
	if len(req.Query) > 0 {
		q := u.Query()
		for key, values := range req.Query {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		fallback, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, c.baseURL.String(), nil)
		return fallback, apierror.InvalidRequest(err.Error())
	}

	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if len(req.Body) > 0 && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}

	return httpReq, nil
}
