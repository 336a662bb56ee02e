// Package handler exposes the wishlist engine over HTTP.
package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/appmate-io/wishlist-engine/internal/domain/product"
	"github.com/appmate-io/wishlist-engine/internal/domain/wishlist"
)

// viewerTokenHeader carries the shopper session token that ownership checks
// are made against.
const viewerTokenHeader = "X-Wishlist-Token"

// Handler serves the product and wishlist API routes.
type Handler struct {
	products product.Repository
	service  *wishlist.Service
	lg       *zap.Logger
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(products product.Repository, service *wishlist.Service, lg *zap.Logger) *Handler {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Handler{
		products: products,
		service:  service,
		lg:       lg,
	}
}

// Routes registers all API routes on the mux. Mutating routes are wrapped
// with the given authentication middleware.
func (h *Handler) Routes(mux *http.ServeMux, authn func(http.Handler) http.Handler) {
	secure := func(fn http.HandlerFunc) http.Handler {
		return authn(fn)
	}

	mux.HandleFunc("GET /api/products/{id}", h.getProduct)

	mux.HandleFunc("GET /api/wishlists/{id}", h.getWishlist)
	mux.Handle("POST /api/wishlists/{id}/items", secure(h.addItem))
	mux.Handle("DELETE /api/wishlists/{id}/items/{itemId}", secure(h.removeItem))
	mux.Handle("PATCH /api/wishlists/{id}/items/{itemId}", secure(h.updateItemVariant))

	mux.HandleFunc("GET /api/wishlists/{id}/items/{itemId}/form", h.getForm)
	mux.HandleFunc("POST /api/wishlists/{id}/items/{itemId}/form", h.changeOption)

	mux.Handle("POST /api/wishlists/{id}/items/{itemId}/cart", secure(h.addToCart))
	mux.Handle("POST /api/wishlists/{id}/buy-all", secure(h.buyAll))
	mux.Handle("POST /api/wishlists/{id}/share", secure(h.share))
}

func viewerToken(r *http.Request) string {
	return r.Header.Get(viewerTokenHeader)
}
