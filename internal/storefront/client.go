// Package storefront talks to the shop's cart API.
package storefront

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/appmate-io/wishlist-engine/internal/domain/cart"
)

var _ cart.Client = (*CartClient)(nil)

// CartClient adds line items to the storefront cart over HTTP.
type CartClient struct {
	addURL string
	http   *http.Client
}

// NewCartClient creates a CartClient posting to the given cart-add endpoint.
// Outbound requests are traced via otelhttp.
func NewCartClient(addURL string) *CartClient {
	return &CartClient{
		addURL: addURL,
		http: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Add posts one line item to the cart. The caller sees failures unwrapped;
// there is no retry here.
func (c *CartClient) Add(ctx context.Context, req cart.AddRequest) error {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(req.VariantID) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(req.Quantity) })
		e.Field("properties", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("_wishlist_id", func(e *jx.Encoder) { e.Str(req.WishlistID) })
				e.Field("_wishlist_item_id", func(e *jx.Encoder) { e.Str(req.WishlistItemID) })
			})
		})
	})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.addURL, bytes.NewReader(e.Bytes()))
	if err != nil {
		return errors.Wrap(err, "build cart request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return errors.Wrap(err, "cart request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return errors.Errorf("cart responded %d: %s", resp.StatusCode, body)
	}
	return nil
}
