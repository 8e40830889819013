package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"golang.org/x/sync/errgroup"
)

// GetProductByBarcode looks up the product for a decoded barcode.
func (c *Client) GetProductByBarcode(ctx context.Context, barcode string) (*Product, error) {
	code, err := NormalizeBarcode(barcode)
	if err != nil {
		return nil, err
	}
	var p Product
	if err := c.do(ctx, http.MethodGet, "/api/products/barcode/"+url.PathEscape(code), nil, &p, false); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProduct fetches a single product by ID.
func (c *Client) GetProduct(ctx context.Context, id int) (*Product, error) {
	var p Product
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/products/%d", id), nil, &p, false); err != nil {
		return nil, err
	}
	return &p, nil
}

// BatchGetProducts fetches multiple products concurrently with a concurrency limit.
// Returns products in the same order as the input IDs. Failed fetches are nil.
func (c *Client) BatchGetProducts(ctx context.Context, ids []int) ([]*Product, error) {
	results := make([]*Product, len(ids))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			p, err := c.GetProduct(ctx, id)
			if err != nil {
				// Non-fatal: individual products can fail.
				return nil
			}
			mu.Lock()
			results[i] = p
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// SetLocation stores the delivery location for the signed-in user.
func (c *Client) SetLocation(ctx context.Context, loc Location) error {
	if err := loc.Validate(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, "/api/users/me/location", loc, nil, true)
}
