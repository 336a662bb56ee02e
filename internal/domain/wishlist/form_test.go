package wishlist

import (
	"context"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appmate-io/wishlist-engine/internal/domain/cart"
	"github.com/appmate-io/wishlist-engine/internal/domain/product"
)

// --- Mocks and fixtures ---

type mockCart struct {
	mu   sync.Mutex
	adds []cart.AddRequest
	err  error
}

func (m *mockCart) Add(_ context.Context, req cart.AddRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adds = append(m.adds, req)
	return m.err
}

func testVariant(id string, available bool, values ...string) product.Variant {
	return product.Variant{
		ID:             id,
		OptionValues:   values,
		Price:          decimal.RequireFromString("19.99"),
		CompareAtPrice: decimal.RequireFromString("24.99"),
		Available:      available,
	}
}

// testShirt: Colour ∈ {Red, Blue}, Size ∈ {S, M} with variants
// (Red,S available), (Red,M sold out), (Blue,S available).
func testShirt() *product.Product {
	return &product.Product{
		ID:     "p1",
		Handle: "shirt",
		Title:  "Shirt",
		Vendor: "Acme",
		Options: []product.Option{
			{Name: "Colour", Values: []string{"Red", "Blue"}},
			{Name: "Size", Values: []string{"S", "M"}},
		},
		Variants: []product.Variant{
			testVariant("v-red-s", true, "Red", "S"),
			testVariant("v-red-m", false, "Red", "M"),
			testVariant("v-blue-s", true, "Blue", "S"),
		},
	}
}

// --- SetProduct ---

func TestSetProduct_SeedsFromPersistedVariant(t *testing.T) {
	form := NewFormController(&mockCart{})

	// Persisted variant wins; auto-select must not run even when enabled.
	require.NoError(t, form.SetProduct(context.Background(), testShirt(), "v-blue-s", true))

	view := form.View()
	require.NotNil(t, view.Variant)
	assert.Equal(t, "v-blue-s", view.Variant.ID)
	assert.True(t, view.HasSelection)
	assert.Equal(t, SubmitAddToCart, view.Submit)
}

func TestSetProduct_NoPersistedVariantAutoSelectDisabled(t *testing.T) {
	form := NewFormController(&mockCart{})

	require.NoError(t, form.SetProduct(context.Background(), testShirt(), "", false))

	view := form.View()
	assert.Nil(t, view.Variant)
	assert.False(t, view.HasSelection)
	assert.Equal(t, "Colour", view.FirstUnset)
	assert.Equal(t, SubmitSelectOption, view.Submit)
	assert.False(t, view.Submit.Enabled())
}

func TestSetProduct_NoPersistedVariantAutoSelectEnabled(t *testing.T) {
	form := NewFormController(&mockCart{})

	require.NoError(t, form.SetProduct(context.Background(), testShirt(), "", true))

	view := form.View()
	require.NotNil(t, view.Variant)
	assert.Equal(t, "v-red-s", view.Variant.ID)
}

func TestSetProduct_StalePersistedVariantFallsBackToAutoSelect(t *testing.T) {
	form := NewFormController(&mockCart{})

	require.NoError(t, form.SetProduct(context.Background(), testShirt(), "v-gone", true))

	view := form.View()
	require.NotNil(t, view.Variant)
	assert.Equal(t, "v-red-s", view.Variant.ID)
}

func TestSetProduct_Idempotent(t *testing.T) {
	form := NewFormController(&mockCart{})
	ctx := context.Background()

	require.NoError(t, form.SetProduct(ctx, testShirt(), "v-red-s", false))
	first := form.View()
	require.NoError(t, form.SetProduct(ctx, testShirt(), "v-red-s", false))
	second := form.View()

	assert.Equal(t, first.Variant.ID, second.Variant.ID)
	assert.Equal(t, first.Submit, second.Submit)
	assert.Equal(t, first.Options, second.Options)
}

func TestSetProduct_ZeroVariantsFailsLoudly(t *testing.T) {
	form := NewFormController(&mockCart{})
	p := &product.Product{ID: "p-broken", Options: []product.Option{{Name: "Size", Values: []string{"S"}}}}

	err := form.SetProduct(context.Background(), p, "", false)

	var cfgErr *product.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestSetProduct_ReplacesPreviousProduct(t *testing.T) {
	form := NewFormController(&mockCart{})
	ctx := context.Background()
	require.NoError(t, form.SetProduct(ctx, testShirt(), "v-red-m", false))

	other := &product.Product{
		ID:                    "p2",
		Title:                 "Mug",
		HasOnlyDefaultVariant: true,
		Options:               []product.Option{{Name: "Title", Values: []string{"Default Title"}}},
		Variants:              []product.Variant{testVariant("v-mug", true, "Default Title")},
	}
	require.NoError(t, form.SetProduct(ctx, other, "", false))

	view := form.View()
	assert.Equal(t, "p2", view.ProductID)
	require.NotNil(t, view.Variant)
	assert.Equal(t, "v-mug", view.Variant.ID)
	assert.True(t, view.HasOnlyDefaultVariant)
}

// --- ChangeOption ---

func TestChangeOption_InvalidValueRejectedWithoutStateChange(t *testing.T) {
	form := NewFormController(&mockCart{})
	ctx := context.Background()
	require.NoError(t, form.SetProduct(ctx, testShirt(), "", false))
	before := form.View()

	_, err := form.ChangeOption(ctx, "Colour", "Chartreuse", false)

	var invErr *InvalidOptionError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, "Colour", invErr.Option)
	assert.Equal(t, before, form.View())
}

func TestChangeOption_UnknownOptionRejected(t *testing.T) {
	form := NewFormController(&mockCart{})
	ctx := context.Background()
	require.NoError(t, form.SetProduct(ctx, testShirt(), "", false))

	_, err := form.ChangeOption(ctx, "Material", "Cotton", false)

	var invErr *InvalidOptionError
	require.ErrorAs(t, err, &invErr)
}

func TestChangeOption_BeforeSetProduct(t *testing.T) {
	form := NewFormController(&mockCart{})

	_, err := form.ChangeOption(context.Background(), "Colour", "Red", false)

	require.ErrorIs(t, err, ErrNoProduct)
}

func TestChangeOption_KeepsOtherChoices(t *testing.T) {
	form := NewFormController(&mockCart{})
	ctx := context.Background()
	require.NoError(t, form.SetProduct(ctx, testShirt(), "v-red-s", false))

	view, err := form.ChangeOption(ctx, "Size", "M", false)

	require.NoError(t, err)
	require.NotNil(t, view.Variant)
	assert.Equal(t, "v-red-m", view.Variant.ID)
	assert.Equal(t, SubmitSoldOut, view.Submit)
	assert.False(t, view.Submit.Enabled())
}

func TestChangeOption_PartialWithoutAutoSelectStaysUnresolved(t *testing.T) {
	form := NewFormController(&mockCart{})
	ctx := context.Background()
	require.NoError(t, form.SetProduct(ctx, testShirt(), "", false))

	view, err := form.ChangeOption(ctx, "Colour", "Blue", false)

	require.NoError(t, err)
	assert.Nil(t, view.Variant)
	assert.True(t, view.HasSelection)
	assert.Equal(t, "Size", view.FirstUnset)
	assert.Equal(t, SubmitUnavailable, view.Submit)
}

func TestChangeOption_PartialWithAutoSelectCompletes(t *testing.T) {
	form := NewFormController(&mockCart{})
	ctx := context.Background()
	require.NoError(t, form.SetProduct(ctx, testShirt(), "", false))

	view, err := form.ChangeOption(ctx, "Colour", "Blue", true)

	require.NoError(t, err)
	require.NotNil(t, view.Variant)
	assert.Equal(t, "v-blue-s", view.Variant.ID)
}

func TestChangeOption_StaleCombinationShowsUnavailable(t *testing.T) {
	form := NewFormController(&mockCart{})
	ctx := context.Background()
	require.NoError(t, form.SetProduct(ctx, testShirt(), "v-blue-s", false))

	view, err := form.ChangeOption(ctx, "Size", "M", false)

	require.NoError(t, err)
	assert.Nil(t, view.Variant)
	assert.Equal(t, SubmitUnavailable, view.Submit)
}

// --- AddToCart ---

func TestAddToCart_Success(t *testing.T) {
	cartClient := &mockCart{}
	form := NewFormController(cartClient)
	ctx := context.Background()
	require.NoError(t, form.SetProduct(ctx, testShirt(), "v-red-s", false))

	require.NoError(t, form.AddToCart(ctx, 2, "w1", "i1"))

	require.Len(t, cartClient.adds, 1)
	assert.Equal(t, cart.AddRequest{
		VariantID:      "v-red-s",
		Quantity:       2,
		WishlistID:     "w1",
		WishlistItemID: "i1",
	}, cartClient.adds[0])
}

func TestAddToCart_NoVariantSelected(t *testing.T) {
	cartClient := &mockCart{}
	form := NewFormController(cartClient)
	ctx := context.Background()
	require.NoError(t, form.SetProduct(ctx, testShirt(), "", false))

	err := form.AddToCart(ctx, 1, "w1", "i1")

	require.ErrorIs(t, err, ErrNoVariantSelected)
	assert.Empty(t, cartClient.adds, "cart must not be contacted")
}

func TestAddToCart_VariantUnavailable(t *testing.T) {
	cartClient := &mockCart{}
	form := NewFormController(cartClient)
	ctx := context.Background()
	require.NoError(t, form.SetProduct(ctx, testShirt(), "v-red-m", false))

	err := form.AddToCart(ctx, 1, "w1", "i1")

	require.ErrorIs(t, err, ErrVariantUnavailable)
	assert.Empty(t, cartClient.adds)
}

func TestAddToCart_SurfacesCartFailure(t *testing.T) {
	cartClient := &mockCart{err: errors.New("cart is down")}
	form := NewFormController(cartClient)
	ctx := context.Background()
	require.NoError(t, form.SetProduct(ctx, testShirt(), "v-red-s", false))

	err := form.AddToCart(ctx, 1, "w1", "i1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cart is down")

	// Local state reflects shopper intent; the failure must not reset it.
	require.NotNil(t, form.View().Variant)
	assert.Equal(t, "v-red-s", form.View().Variant.ID)
}
