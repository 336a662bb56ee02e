package wishlist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appmate-io/wishlist-engine/internal/domain/product"
	"github.com/appmate-io/wishlist-engine/internal/events"
)

func newTestCard(item Item) *Card {
	return NewCard(item, CardDeps{
		Cart:    &mockCart{},
		Updater: &mockUpdater{},
		Bus:     events.NewBus(),
		IsMine:  true,
	})
}

func TestCard_StartsLoading(t *testing.T) {
	card := newTestCard(Item{ID: "i1", ProductID: "p1"})

	assert.Equal(t, CardLoading, card.State())
	assert.Nil(t, card.Form())
}

func TestCard_BecomesAvailableWithForm(t *testing.T) {
	card := newTestCard(Item{ID: "i1", ProductID: "p1", VariantID: "v-red-s"})

	require.NoError(t, card.ProductLoaded(context.Background(), testShirt()))

	assert.Equal(t, CardAvailable, card.State())
	require.NotNil(t, card.Form())
	require.NotNil(t, card.Form().View().Variant)
	assert.Equal(t, "v-red-s", card.Form().View().Variant.ID)
	assert.Equal(t, "v-red-s", card.DisplayVariantID())
}

func TestCard_DelistedProductHidesCard(t *testing.T) {
	card := newTestCard(Item{ID: "i1", ProductID: "p1"})
	p := testShirt()
	p.Hidden = true

	require.NoError(t, card.ProductLoaded(context.Background(), p))

	assert.Equal(t, CardHidden, card.State())
	assert.Nil(t, card.Form())
}

func TestCard_MissingProductHidesCard(t *testing.T) {
	card := newTestCard(Item{ID: "i1", ProductID: "p1"})

	require.NoError(t, card.ProductLoaded(context.Background(), nil))

	assert.Equal(t, CardHidden, card.State())
}

func TestCard_HiddenIsTerminal(t *testing.T) {
	card := newTestCard(Item{ID: "i1", ProductID: "p1"})
	require.NoError(t, card.ProductLoaded(context.Background(), nil))

	// A late product load must not revive a hidden card.
	require.NoError(t, card.ProductLoaded(context.Background(), testShirt()))

	assert.Equal(t, CardHidden, card.State())
	assert.Nil(t, card.Form())
}

func TestCard_MalformedProductHidesWithoutPanic(t *testing.T) {
	// Scenario: product with zero variants is a data error; the card renders
	// the unavailable layout instead of crashing.
	card := newTestCard(Item{ID: "i1", ProductID: "p-broken"})
	p := &product.Product{ID: "p-broken", Options: []product.Option{{Name: "Size", Values: []string{"S"}}}}

	err := card.ProductLoaded(context.Background(), p)

	var cfgErr *product.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, CardHidden, card.State())
	assert.Nil(t, card.Form())
}

func TestCard_ReloadKeepsSingleForm(t *testing.T) {
	card := newTestCard(Item{ID: "i1", ProductID: "p1", VariantID: "v-red-s"})
	ctx := context.Background()

	require.NoError(t, card.ProductLoaded(ctx, testShirt()))
	form := card.Form()
	require.NoError(t, card.ProductLoaded(ctx, testShirt()))

	assert.Same(t, form, card.Form())
}

func TestCard_DisplayVariantFallsBackToItem(t *testing.T) {
	card := newTestCard(Item{ID: "i1", ProductID: "p1", VariantID: "v-red-m"})

	assert.Equal(t, "v-red-m", card.DisplayVariantID())
}
