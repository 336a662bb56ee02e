package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/appmate-io/wishlist-engine/internal/domain/product"
)

// getProduct returns a single product with its full option/variant matrix.
func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, errors.Wrap(err, "get product"))
		return
	}

	h.writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeProduct(e, p)
	})
}

func encodeProduct(e *jx.Encoder, p *product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("handle", func(e *jx.Encoder) { e.Str(p.Handle) })
		e.Field("title", func(e *jx.Encoder) { e.Str(p.Title) })
		e.Field("vendor", func(e *jx.Encoder) { e.Str(p.Vendor) })
		e.Field("hasOnlyDefaultVariant", func(e *jx.Encoder) { e.Bool(p.HasOnlyDefaultVariant) })
		e.Field("priceMin", func(e *jx.Encoder) { e.Float64(p.PriceMin.InexactFloat64()) })
		e.Field("priceMax", func(e *jx.Encoder) { e.Float64(p.PriceMax.InexactFloat64()) })
		e.Field("options", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, o := range p.Options {
					e.Obj(func(e *jx.Encoder) {
						e.Field("name", func(e *jx.Encoder) { e.Str(o.Name) })
						e.Field("values", func(e *jx.Encoder) {
							e.Arr(func(e *jx.Encoder) {
								for _, v := range o.Values {
									e.Str(v)
								}
							})
						})
					})
				}
			})
		})
		e.Field("variants", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for i := range p.Variants {
					encodeVariant(e, &p.Variants[i])
				}
			})
		})
	})
}

func encodeVariant(e *jx.Encoder, v *product.Variant) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(v.ID) })
		e.Field("optionValues", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, val := range v.OptionValues {
					e.Str(val)
				}
			})
		})
		e.Field("price", func(e *jx.Encoder) { e.Float64(v.Price.InexactFloat64()) })
		e.Field("compareAtPrice", func(e *jx.Encoder) { e.Float64(v.CompareAtPrice.InexactFloat64()) })
		e.Field("available", func(e *jx.Encoder) { e.Bool(v.Available) })
		e.Field("onSale", func(e *jx.Encoder) { e.Bool(v.OnSale()) })
	})
}
