package httpclient

import (
	"bytes"
	"context"
	"net/http"
	"net/url"

	"github.com/DonShan/GeoTask/internal/apierror"
	"github.com/DonShan/GeoTask/pkg/codec"
)

// DoJSON executes req and decodes the response body into T. An empty body
// yields the zero value.
func DoJSON[T any](ctx context.Context, c *Client, req Request) (T, error) {
	var out T

	resp, err := c.Do(ctx, req)
	if err != nil {
		return out, err
	}

	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return out, nil
	}
	if err := codec.Decode(resp.Body, &out); err != nil {
		return out, apierror.Decoding(err)
	}
	return out, nil
}

// Get issues a GET and decodes the response into T.
func Get[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	return DoJSON[T](ctx, c, Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post encodes body, issues a POST and decodes the response into T.
// Encoding failure short-circuits without a network call.
func Post[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	return withBody[T](ctx, c, http.MethodPost, path, body)
}

// Put encodes body, issues a PUT and decodes the response into T.
func Put[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	return withBody[T](ctx, c, http.MethodPut, path, body)
}

// Patch encodes body, issues a PATCH and decodes the response into T.
func Patch[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	return withBody[T](ctx, c, http.MethodPatch, path, body)
}

// Delete issues a DELETE and decodes the response into T.
func Delete[T any](ctx context.Context, c *Client, path string) (T, error) {
	return DoJSON[T](ctx, c, Request{Method: http.MethodDelete, Path: path})
}

func withBody[T any](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	var encoded []byte
	if body != nil {
		var err error
		encoded, err = codec.Encode(body)
		if err != nil {
			var zero T
			return zero, apierror.Encoding(err)
		}
	}
	return DoJSON[T](ctx, c, Request{Method: method, Path: path, Body: encoded})
}
