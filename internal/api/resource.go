package api

import (
	"context"
	"net/url"

	"github.com/DonShan/GeoTask/internal/httpclient"
)

// Resource is the standard CRUD surface every domain collection follows:
// {GET|POST|PUT|DELETE} <base>/<resource>[/{id}].
type Resource[T any] struct {
	client *httpclient.Client
	base   string
}

// List fetches the collection, optionally filtered by query parameters.
func (r Resource[T]) List(ctx context.Context, query url.Values) ([]T, error) {
	return httpclient.Get[[]T](ctx, r.client, r.base, query)
}

// Get fetches one item by ID.
func (r Resource[T]) Get(ctx context.Context, id string) (T, error) {
	return httpclient.Get[T](ctx, r.client, r.base+"/"+url.PathEscape(id), nil)
}

// Create posts a new item and returns the stored representation.
func (r Resource[T]) Create(ctx context.Context, item T) (T, error) {
	return httpclient.Post[T](ctx, r.client, r.base, item)
}

// Update replaces an item by ID and returns the stored representation.
func (r Resource[T]) Update(ctx context.Context, id string, item T) (T, error) {
	return httpclient.Put[T](ctx, r.client, r.base+"/"+url.PathEscape(id), item)
}

// Delete removes an item by ID.
func (r Resource[T]) Delete(ctx context.Context, id string) error {
	_, err := httpclient.Delete[struct{}](ctx, r.client, r.base+"/"+url.PathEscape(id))
	return err
}
