package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/appmate-io/wishlist-engine/internal/domain/wishlist"
)

// getWishlist returns a wishlist with its items. Ownership is derived from
// the viewer token, never stored in the response.
func (h *Handler) getWishlist(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.GetForViewer(r.Context(), r.PathValue("id"), viewerToken(r))
	if err != nil {
		h.writeError(w, errors.Wrap(err, "get wishlist"))
		return
	}

	h.writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("id", func(e *jx.Encoder) { e.Str(list.ID) })
			e.Field("publicId", func(e *jx.Encoder) { e.Str(list.PublicID) })
			e.Field("isMine", func(e *jx.Encoder) { e.Bool(list.IsMine) })
			e.Field("numItems", func(e *jx.Encoder) { e.Int(list.NumItems()) })
			e.Field("items", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for i := range list.Items {
						encodeItem(e, &list.Items[i])
					}
				})
			})
		})
	})
}

// addItem saves a product onto the wishlist. Adding a product that is
// already saved returns the existing item with 200 instead of 201.
func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	var productID, variantID string
	if err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			productID, err = d.Str()
		case "variantId":
			variantID, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		h.writeError(w, err)
		return
	}
	if productID == "" {
		h.writeError(w, errors.Wrap(errBadRequest, "productId is required"))
		return
	}

	item, created, err := h.service.AddItem(r.Context(), r.PathValue("id"), viewerToken(r), productID, variantID)
	if err != nil {
		h.writeError(w, errors.Wrap(err, "add item"))
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.writeJSON(w, status, func(e *jx.Encoder) {
		encodeItem(e, item)
	})
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	err := h.service.RemoveItem(r.Context(), r.PathValue("id"), viewerToken(r), r.PathValue("itemId"))
	if err != nil {
		h.writeError(w, errors.Wrap(err, "remove item"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// updateItemVariant overwrites the item's variant choice. Safe to repeat
// with the same payload.
func (h *Handler) updateItemVariant(w http.ResponseWriter, r *http.Request) {
	var variantID string
	if err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "variantId":
			variantID, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		h.writeError(w, err)
		return
	}

	err := h.service.UpdateItemVariant(r.Context(), r.PathValue("id"), viewerToken(r), r.PathValue("itemId"), variantID)
	if err != nil {
		h.writeError(w, errors.Wrap(err, "update item variant"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getForm renders the buy-form read model for one wishlist item card.
func (h *Handler) getForm(w http.ResponseWriter, r *http.Request) {
	card, err := h.service.CardFor(r.Context(), r.PathValue("id"), viewerToken(r), r.PathValue("itemId"))
	if err != nil {
		h.writeError(w, errors.Wrap(err, "load card"))
		return
	}
	h.writeCard(w, card)
}

// changeOption applies one option change on the card's form and returns the
// recomputed view.
func (h *Handler) changeOption(w http.ResponseWriter, r *http.Request) {
	var option, value string
	if err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "option":
			option, err = d.Str()
		case "value":
			value, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		h.writeError(w, err)
		return
	}
	if option == "" {
		h.writeError(w, errors.Wrap(errBadRequest, "option is required"))
		return
	}

	_, err := h.service.ChangeOption(r.Context(), r.PathValue("id"), viewerToken(r), r.PathValue("itemId"), option, value)
	if err != nil {
		h.writeError(w, errors.Wrap(err, "change option"))
		return
	}

	card, err := h.service.CardFor(r.Context(), r.PathValue("id"), viewerToken(r), r.PathValue("itemId"))
	if err != nil {
		h.writeError(w, errors.Wrap(err, "load card"))
		return
	}
	h.writeCard(w, card)
}

// addToCart pushes the card's resolved variant to the storefront cart.
func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request) {
	quantity := 1
	if err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "quantity":
			quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		h.writeError(w, err)
		return
	}

	card, err := h.service.CardFor(r.Context(), r.PathValue("id"), viewerToken(r), r.PathValue("itemId"))
	if err != nil {
		h.writeError(w, errors.Wrap(err, "load card"))
		return
	}
	form := card.Form()
	if form == nil {
		h.writeError(w, wishlist.ErrItemNotFound)
		return
	}

	if err := form.AddToCart(r.Context(), quantity, r.PathValue("id"), r.PathValue("itemId")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// buyAll adds every resolvable wishlist item to the cart and reports the
// per-item outcome.
func (h *Handler) buyAll(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.BuyAll(r.Context(), r.PathValue("id"), viewerToken(r))
	if err != nil {
		h.writeError(w, errors.Wrap(err, "buy all"))
		return
	}

	h.writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("added", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, id := range result.Added {
						e.Str(id)
					}
				})
			})
			e.Field("skipped", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					for id, reason := range result.Skipped {
						e.Field(id, func(e *jx.Encoder) { e.Str(reason) })
					}
				})
			})
		})
	})
}

// share returns the public link for the wishlist.
func (h *Handler) share(w http.ResponseWriter, r *http.Request) {
	link, err := h.service.ShareURL(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, errors.Wrap(err, "share wishlist"))
		return
	}

	h.writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("url", func(e *jx.Encoder) { e.Str(link) })
		})
	})
}

func (h *Handler) writeCard(w http.ResponseWriter, card *wishlist.Card) {
	h.writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeCard(e, card)
	})
}

func encodeItem(e *jx.Encoder, item *wishlist.Item) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(item.ID) })
		e.Field("productId", func(e *jx.Encoder) { e.Str(item.ProductID) })
		e.Field("variantId", func(e *jx.Encoder) { e.Str(item.VariantID) })
	})
}

func encodeCard(e *jx.Encoder, card *wishlist.Card) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("state", func(e *jx.Encoder) { e.Str(card.State().String()) })
		e.Field("displayVariantId", func(e *jx.Encoder) { e.Str(card.DisplayVariantID()) })
		form := card.Form()
		if form == nil {
			return
		}
		view := form.View()
		e.Field("form", func(e *jx.Encoder) {
			encodeView(e, view)
		})
	})
}

func encodeView(e *jx.Encoder, view wishlist.View) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("productId", func(e *jx.Encoder) { e.Str(view.ProductID) })
		e.Field("hasSelection", func(e *jx.Encoder) { e.Bool(view.HasSelection) })
		e.Field("hasOnlyDefaultVariant", func(e *jx.Encoder) { e.Bool(view.HasOnlyDefaultVariant) })
		e.Field("submit", func(e *jx.Encoder) { e.Str(view.Submit.String()) })
		e.Field("submitEnabled", func(e *jx.Encoder) { e.Bool(view.Submit.Enabled()) })
		if view.FirstUnset != "" {
			e.Field("firstUnsetOption", func(e *jx.Encoder) { e.Str(view.FirstUnset) })
		}
		if view.Variant != nil {
			e.Field("variant", func(e *jx.Encoder) {
				encodeVariant(e, view.Variant)
			})
		}
		e.Field("options", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, o := range view.Options {
					e.Obj(func(e *jx.Encoder) {
						e.Field("name", func(e *jx.Encoder) { e.Str(o.Name) })
						if o.SelectedValue != "" {
							e.Field("selectedValue", func(e *jx.Encoder) { e.Str(o.SelectedValue) })
						}
						e.Field("values", func(e *jx.Encoder) {
							e.Arr(func(e *jx.Encoder) {
								for _, v := range o.Values {
									e.Obj(func(e *jx.Encoder) {
										e.Field("value", func(e *jx.Encoder) { e.Str(v.Value) })
										e.Field("state", func(e *jx.Encoder) { e.Str(v.State.String()) })
										e.Field("selected", func(e *jx.Encoder) { e.Bool(v.Selected) })
									})
								}
							})
						})
					})
				}
			})
		})
	})
}
