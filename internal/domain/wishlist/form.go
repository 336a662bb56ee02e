package wishlist

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-faster/errors"

	"github.com/appmate-io/wishlist-engine/internal/domain/cart"
	"github.com/appmate-io/wishlist-engine/internal/domain/product"
)

var (
	// ErrNoProduct is returned when a form operation runs before SetProduct.
	ErrNoProduct = errors.New("no product bound to form")
	// ErrNoVariantSelected rejects add-to-cart while no variant is resolved.
	ErrNoVariantSelected = errors.New("no variant selected")
	// ErrVariantUnavailable rejects add-to-cart for a sold-out variant.
	ErrVariantUnavailable = errors.New("selected variant is unavailable")
)

// InvalidOptionError reports an attempt to set an option to a value the
// product does not define. The form state is left untouched.
type InvalidOptionError struct {
	Option string
	Value  string
}

func (e *InvalidOptionError) Error() string {
	return fmt.Sprintf("option %q has no value %q", e.Option, e.Value)
}

// SubmitState drives the buy form's submit button: whether it is enabled and
// which label to show.
type SubmitState uint8

const (
	// SubmitAddToCart: a purchasable variant is resolved; submit is enabled.
	SubmitAddToCart SubmitState = iota
	// SubmitSoldOut: a variant is resolved but not available.
	SubmitSoldOut
	// SubmitUnavailable: the shopper picked options but no variant matches.
	SubmitUnavailable
	// SubmitSelectOption: nothing resolved yet; prompt for the first unset
	// option.
	SubmitSelectOption
)

// String returns the wire/display name of the submit state.
func (s SubmitState) String() string {
	switch s {
	case SubmitAddToCart:
		return "add_to_cart"
	case SubmitSoldOut:
		return "sold_out"
	case SubmitUnavailable:
		return "unavailable"
	case SubmitSelectOption:
		return "select_option"
	default:
		return "unknown"
	}
}

// Enabled reports whether the submit button accepts clicks in this state.
func (s SubmitState) Enabled() bool {
	return s == SubmitAddToCart
}

// View is the derived read model for rendering one product card's buy form.
// It is recomputed on every selection change and safe to copy.
type View struct {
	ProductID             string
	Variant               *product.Variant // nil when unresolved
	HasSelection          bool
	HasOnlyDefaultVariant bool
	FirstUnset            string
	Options               []product.OptionView
	Submit                SubmitState
}

// ResolutionHook observes each recomputed view. Hooks run after the form
// state is updated, outside the form's lock, on the mutating goroutine.
type ResolutionHook func(ctx context.Context, v View)

// FormController owns the in-progress option selection for a single rendered
// product card. The bound matrix is shared and read-only; the selection and
// derived view belong exclusively to this instance.
type FormController struct {
	cart cart.Client

	mu        sync.Mutex
	matrix    *product.Matrix
	selection product.Selection
	view      View
	hooks     []ResolutionHook
}

// NewFormController creates a form bound to the given cart client. The form
// is inert until SetProduct is called.
func NewFormController(cartClient cart.Client) *FormController {
	return &FormController{cart: cartClient}
}

// OnResolve registers a hook invoked after every (re)resolution. Hooks live
// as long as the form; register them before the first SetProduct.
func (f *FormController) OnResolve(hook ResolutionHook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks = append(f.hooks, hook)
}

// SetProduct (re)binds the form to a product, replacing any prior matrix and
// selection. A persisted variant id seeds the selection from that variant's
// tuple and bypasses auto-select; otherwise an empty selection is auto-filled
// when autoSelect is set. Calling SetProduct again with the same arguments
// yields the same view.
func (f *FormController) SetProduct(ctx context.Context, p *product.Product, selectedVariantID string, autoSelect bool) error {
	matrix, err := product.NewMatrix(p)
	if err != nil {
		return err
	}

	sel := product.Selection{}
	if seeded := seedFromVariant(p, selectedVariantID, sel); !seeded && autoSelect {
		sel = product.AutoSelect(matrix, sel)
	}

	f.mu.Lock()
	f.matrix = matrix
	f.selection = sel
	view, hooks := f.refreshLocked()
	f.mu.Unlock()

	notify(ctx, view, hooks)
	return nil
}

// seedFromVariant copies the named variant's option tuple into sel. It
// reports false when the id is empty or the product no longer carries the
// variant (a stale persisted choice).
func seedFromVariant(p *product.Product, variantID string, sel product.Selection) bool {
	if variantID == "" {
		return false
	}
	for i := range p.Variants {
		v := &p.Variants[i]
		if v.ID != variantID {
			continue
		}
		for j, opt := range p.Options {
			sel[opt.Name] = v.OptionValues[j]
		}
		return true
	}
	return false
}

// ChangeOption sets one option to a new value, keeping every other chosen
// value. Values the product does not define are rejected with
// *InvalidOptionError and no state change. When autoSelect is set and the
// selection is still partial afterwards, the remaining options are greedily
// completed.
func (f *FormController) ChangeOption(ctx context.Context, name, value string, autoSelect bool) (View, error) {
	f.mu.Lock()
	if f.matrix == nil {
		f.mu.Unlock()
		return View{}, ErrNoProduct
	}
	if !f.matrix.HasValue(name, value) {
		view := f.view
		f.mu.Unlock()
		return view, &InvalidOptionError{Option: name, Value: value}
	}

	f.selection[name] = value
	if autoSelect && !f.selection.Complete(f.matrix.Options()) {
		f.selection = product.AutoSelect(f.matrix, f.selection)
	}
	view, hooks := f.refreshLocked()
	f.mu.Unlock()

	notify(ctx, view, hooks)
	return view, nil
}

// View returns the current derived read model.
func (f *FormController) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

// AddToCart submits the resolved variant to the shopping cart. It fails
// locally, without contacting the cart, when no variant is resolved or the
// resolved variant is sold out. The cart call's result is surfaced unchanged.
func (f *FormController) AddToCart(ctx context.Context, quantity int, wishlistID, wishlistItemID string) error {
	view := f.View()

	if view.Variant == nil {
		return ErrNoVariantSelected
	}
	if !view.Variant.Available {
		return ErrVariantUnavailable
	}
	if quantity < 1 {
		quantity = 1
	}

	return f.cart.Add(ctx, cart.AddRequest{
		VariantID:      view.Variant.ID,
		Quantity:       quantity,
		WishlistID:     wishlistID,
		WishlistItemID: wishlistItemID,
	})
}

// refreshLocked recomputes the derived view. Caller holds f.mu.
func (f *FormController) refreshLocked() (View, []ResolutionHook) {
	res := product.Resolve(f.matrix, f.selection)
	p := f.matrix.Product()

	f.view = View{
		ProductID:             p.ID,
		Variant:               res.Variant,
		HasSelection:          res.HasSelection,
		HasOnlyDefaultVariant: p.HasOnlyDefaultVariant,
		FirstUnset:            res.FirstUnset,
		Options:               res.Options,
		Submit:                submitState(res),
	}
	return f.view, f.hooks
}

// submitState applies the storefront's label rules: add-to-cart, sold-out,
// unavailable (options picked but nothing matches), or a select-{option}
// prompt.
func submitState(res product.Resolution) SubmitState {
	switch {
	case res.Variant != nil && res.Variant.Available:
		return SubmitAddToCart
	case res.Variant != nil:
		return SubmitSoldOut
	case res.HasSelection:
		return SubmitUnavailable
	default:
		return SubmitSelectOption
	}
}

func notify(ctx context.Context, view View, hooks []ResolutionHook) {
	for _, hook := range hooks {
		hook(ctx, view)
	}
}
