package wishlist

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appmate-io/wishlist-engine/internal/domain/product"
	"github.com/appmate-io/wishlist-engine/internal/events"
)

// --- Mocks ---

type mockWishlistRepo struct {
	wishlists map[string]*Wishlist

	added          []Item
	removed        []string
	variantUpdates []variantWrite
}

func newMockWishlistRepo(lists ...*Wishlist) *mockWishlistRepo {
	repo := &mockWishlistRepo{wishlists: make(map[string]*Wishlist)}
	for _, w := range lists {
		repo.wishlists[w.ID] = w
	}
	return repo
}

func (m *mockWishlistRepo) Get(_ context.Context, id string) (*Wishlist, error) {
	w, ok := m.wishlists[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *w
	cp.Items = append([]Item(nil), w.Items...)
	return &cp, nil
}

func (m *mockWishlistRepo) GetByPublicID(_ context.Context, publicID string) (*Wishlist, error) {
	for _, w := range m.wishlists {
		if w.PublicID == publicID {
			cp := *w
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockWishlistRepo) AddItem(_ context.Context, item *Item) error {
	m.added = append(m.added, *item)
	w := m.wishlists[item.WishlistID]
	w.Items = append(w.Items, *item)
	return nil
}

func (m *mockWishlistRepo) RemoveItem(_ context.Context, itemID string) error {
	m.removed = append(m.removed, itemID)
	return nil
}

func (m *mockWishlistRepo) UpdateItemVariant(_ context.Context, itemID, variantID string) error {
	m.variantUpdates = append(m.variantUpdates, variantWrite{itemID: itemID, variantID: variantID})
	return nil
}

type mockProductRepo struct {
	products map[string]*product.Product
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func testWishlist() *Wishlist {
	return &Wishlist{
		ID:         "w1",
		PublicID:   "pub-w1",
		OwnerToken: "owner",
		Items: []Item{
			{ID: "i1", WishlistID: "w1", ProductID: "p1", VariantID: "v-red-s"},
		},
		CreatedAt: time.Now(),
	}
}

func newTestService(repo *mockWishlistRepo, products *mockProductRepo, cartClient *mockCart, settings Settings) *Service {
	if products == nil {
		products = &mockProductRepo{products: map[string]*product.Product{"p1": testShirt()}}
	}
	if cartClient == nil {
		cartClient = &mockCart{}
	}
	return NewService(repo, products, cartClient, events.NewBus(), settings, nil)
}

// --- Viewer scoping and ownership ---

func TestService_GetForViewer_StampsOwnership(t *testing.T) {
	svc := newTestService(newMockWishlistRepo(testWishlist()), nil, nil, Settings{})
	ctx := context.Background()

	mine, err := svc.GetForViewer(ctx, "w1", "owner")
	require.NoError(t, err)
	assert.True(t, mine.IsMine)

	theirs, err := svc.GetForViewer(ctx, "w1", "stranger")
	require.NoError(t, err)
	assert.False(t, theirs.IsMine)

	anon, err := svc.GetForViewer(ctx, "w1", "")
	require.NoError(t, err)
	assert.False(t, anon.IsMine, "empty viewer token must never own anything")
}

func TestService_WritesRequireOwnership(t *testing.T) {
	repo := newMockWishlistRepo(testWishlist())
	svc := newTestService(repo, nil, nil, Settings{})
	ctx := context.Background()

	_, _, err := svc.AddItem(ctx, "w1", "stranger", "p2", "")
	require.ErrorIs(t, err, ErrNotOwner)

	err = svc.RemoveItem(ctx, "w1", "stranger", "i1")
	require.ErrorIs(t, err, ErrNotOwner)

	err = svc.UpdateItemVariant(ctx, "w1", "stranger", "i1", "v-blue-s")
	require.ErrorIs(t, err, ErrNotOwner)

	assert.Empty(t, repo.added)
	assert.Empty(t, repo.removed)
	assert.Empty(t, repo.variantUpdates)
}

// --- AddItem ---

func TestService_AddItem_DeduplicatesByProduct(t *testing.T) {
	repo := newMockWishlistRepo(testWishlist())
	svc := newTestService(repo, nil, nil, Settings{})

	item, created, err := svc.AddItem(context.Background(), "w1", "owner", "p1", "v-blue-s")

	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "i1", item.ID, "existing item is returned, not duplicated")
	assert.Empty(t, repo.added)
}

func TestService_AddItem_PersistsNewItem(t *testing.T) {
	repo := newMockWishlistRepo(testWishlist())
	svc := newTestService(repo, nil, nil, Settings{})

	item, created, err := svc.AddItem(context.Background(), "w1", "owner", "p2", "v-x")

	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, "w1", item.WishlistID)
	assert.Equal(t, "p2", item.ProductID)
	assert.Equal(t, "v-x", item.VariantID)
	require.Len(t, repo.added, 1)
}

// --- RemoveItem ---

func TestService_RemoveItem(t *testing.T) {
	repo := newMockWishlistRepo(testWishlist())
	svc := newTestService(repo, nil, nil, Settings{})
	ctx := context.Background()

	require.NoError(t, svc.RemoveItem(ctx, "w1", "owner", "i1"))
	assert.Equal(t, []string{"i1"}, repo.removed)

	err := svc.RemoveItem(ctx, "w1", "owner", "i-missing")
	require.ErrorIs(t, err, ErrItemNotFound)
}

// --- UpdateItemVariant ---

func TestService_UpdateItemVariant_PublishesChange(t *testing.T) {
	repo := newMockWishlistRepo(testWishlist())
	bus := events.NewBus()
	svc := NewService(repo, &mockProductRepo{products: map[string]*product.Product{"p1": testShirt()}}, &mockCart{}, bus, Settings{}, nil)

	var got []events.VariantChanged
	unsub := bus.Subscribe("p1", func(ev events.VariantChanged) {
		got = append(got, ev)
	})
	defer unsub()

	require.NoError(t, svc.UpdateItemVariant(context.Background(), "w1", "owner", "i1", "v-blue-s"))

	require.Len(t, repo.variantUpdates, 1)
	assert.Equal(t, variantWrite{itemID: "i1", variantID: "v-blue-s"}, repo.variantUpdates[0])
	require.Len(t, got, 1)
	assert.Equal(t, events.VariantChanged{ProductID: "p1", VariantID: "v-blue-s"}, got[0])
}

// --- ShareURL ---

func TestService_ShareURL_UsesPublicID(t *testing.T) {
	svc := newTestService(newMockWishlistRepo(testWishlist()), nil, nil, Settings{
		ShareBaseURL: "https://shop.example.com/wishlist",
	})

	link, err := svc.ShareURL(context.Background(), "w1")

	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com/wishlist/pub-w1", link)
}

// --- Card sessions ---

func TestService_CardFor_ReusesSession(t *testing.T) {
	svc := newTestService(newMockWishlistRepo(testWishlist()), nil, nil, Settings{})
	ctx := context.Background()

	first, err := svc.CardFor(ctx, "w1", "owner", "i1")
	require.NoError(t, err)
	second, err := svc.CardFor(ctx, "w1", "owner", "i1")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, CardAvailable, first.State())
}

func TestService_CardFor_SeparateSessionsPerViewer(t *testing.T) {
	svc := newTestService(newMockWishlistRepo(testWishlist()), nil, nil, Settings{})
	ctx := context.Background()

	owner, err := svc.CardFor(ctx, "w1", "owner", "i1")
	require.NoError(t, err)
	guest, err := svc.CardFor(ctx, "w1", "guest", "i1")
	require.NoError(t, err)

	assert.NotSame(t, owner, guest)
}

func TestService_CardFor_AnonymousViewersNeverShareACard(t *testing.T) {
	// Two shoppers browsing without a token must not end up on one live card:
	// the empty token is not a session identity.
	svc := newTestService(newMockWishlistRepo(testWishlist()), nil, nil, Settings{})
	ctx := context.Background()

	first, err := svc.CardFor(ctx, "w1", "", "i1")
	require.NoError(t, err)
	second, err := svc.CardFor(ctx, "w1", "", "i1")
	require.NoError(t, err)

	assert.NotSame(t, first, second)

	// A selection made on one anonymous card stays there.
	_, err = first.Form().ChangeOption(ctx, "Colour", "Blue", false)
	require.NoError(t, err)
	assert.Equal(t, "Blue", first.Form().View().Options[0].SelectedValue)
	assert.Equal(t, "Red", second.Form().View().Options[0].SelectedValue)
}

func TestService_CardFor_MissingProductHidesCard(t *testing.T) {
	products := &mockProductRepo{products: map[string]*product.Product{}}
	svc := newTestService(newMockWishlistRepo(testWishlist()), products, nil, Settings{})

	card, err := svc.CardFor(context.Background(), "w1", "owner", "i1")

	require.NoError(t, err)
	assert.Equal(t, CardHidden, card.State())
}

func TestService_CardFor_UnknownItem(t *testing.T) {
	svc := newTestService(newMockWishlistRepo(testWishlist()), nil, nil, Settings{})

	_, err := svc.CardFor(context.Background(), "w1", "owner", "i-missing")

	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestService_ChangeOption_KeepsSelectionAcrossCalls(t *testing.T) {
	svc := newTestService(newMockWishlistRepo(testWishlist()), nil, nil, Settings{})
	ctx := context.Background()

	view, err := svc.ChangeOption(ctx, "w1", "owner", "i1", "Size", "M")
	require.NoError(t, err)
	require.NotNil(t, view.Variant)
	assert.Equal(t, "v-red-m", view.Variant.ID)

	// The partial state lives in the session; the next call builds on it.
	view, err = svc.ChangeOption(ctx, "w1", "owner", "i1", "Size", "S")
	require.NoError(t, err)
	require.NotNil(t, view.Variant)
	assert.Equal(t, "v-red-s", view.Variant.ID)
}

// --- BuyAll ---

func TestService_BuyAll(t *testing.T) {
	list := testWishlist()
	list.Items = []Item{
		{ID: "i1", WishlistID: "w1", ProductID: "p1", VariantID: "v-red-s"},
		{ID: "i2", WishlistID: "w1", ProductID: "p-gone"},
		{ID: "i3", WishlistID: "w1", ProductID: "p1", VariantID: "v-red-m"},
	}
	cartClient := &mockCart{}
	svc := newTestService(newMockWishlistRepo(list), nil, cartClient, Settings{})

	result, err := svc.BuyAll(context.Background(), "w1", "owner")

	require.NoError(t, err)
	assert.Equal(t, []string{"i1"}, result.Added)
	assert.Equal(t, map[string]string{
		"i2": "product removed",
		"i3": "sold out",
	}, result.Skipped)
	require.Len(t, cartClient.adds, 1)
	assert.Equal(t, "v-red-s", cartClient.adds[0].VariantID)
	assert.Equal(t, "i1", cartClient.adds[0].WishlistItemID)
}

func TestService_BuyAll_AutoSelectsUnresolvedItems(t *testing.T) {
	list := testWishlist()
	list.Items = []Item{{ID: "i1", WishlistID: "w1", ProductID: "p1"}}
	cartClient := &mockCart{}
	svc := newTestService(newMockWishlistRepo(list), nil, cartClient, Settings{})

	result, err := svc.BuyAll(context.Background(), "w1", "owner")

	require.NoError(t, err)
	assert.Equal(t, []string{"i1"}, result.Added)
	require.Len(t, cartClient.adds, 1)
	assert.Equal(t, "v-red-s", cartClient.adds[0].VariantID)
}
