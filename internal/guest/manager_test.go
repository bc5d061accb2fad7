package guest

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/localstore"
	"storefront/internal/model"
)

var fixedNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newManager(t *testing.T) (*Manager, *localstore.Store, *time.Time) {
	t.Helper()
	now := fixedNow
	store := localstore.New(localstore.NewMemoryBackend(), nil)
	return NewManager(store, WithClock(func() time.Time { return now })), store, &now
}

func TestAddToCart_SameProductTwice(t *testing.T) {
	ctx := t.Context()
	m, _, _ := newManager(t)

	m.AddToCart(ctx, "P", 1)
	lines := m.AddToCart(ctx, "P", 1)

	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestAddToCart_KeepsAddedAt(t *testing.T) {
	ctx := t.Context()
	m, _, now := newManager(t)

	m.AddToCart(ctx, "P", 1)
	*now = fixedNow.Add(time.Hour)
	lines := m.AddToCart(ctx, "P", 3)

	require.Len(t, lines, 1)
	assert.Equal(t, 4, lines[0].Quantity)
	assert.Equal(t, "2024-05-01T10:00:00Z", lines[0].AddedAt)
}

func TestAddToCart_NonPositiveQuantityCountsAsOne(t *testing.T) {
	ctx := t.Context()
	m, _, _ := newManager(t)

	m.AddToCart(ctx, "P", 0)
	lines := m.AddToCart(ctx, "P", -4)

	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestAddToCart_Persists(t *testing.T) {
	ctx := t.Context()
	m, store, _ := newManager(t)

	m.AddToCart(ctx, "A", 2)
	m.AddToCart(ctx, "B", 1)

	assert.Equal(t, []model.GuestLine{
		{ProductID: "A", Quantity: 2, AddedAt: "2024-05-01T10:00:00Z"},
		{ProductID: "B", Quantity: 1, AddedAt: "2024-05-01T10:00:00Z"},
	}, store.ReadCart(ctx))
}

func TestUpdateCartItem(t *testing.T) {
	tests := []struct {
		name     string
		quantity int
		want     []model.GuestLine
	}{
		{
			name:     "replaces quantity",
			quantity: 7,
			want:     []model.GuestLine{{ProductID: "P", Quantity: 7, AddedAt: "2024-05-01T10:00:00Z"}},
		},
		{
			name:     "zero removes line",
			quantity: 0,
			want:     []model.GuestLine{},
		},
		{
			name:     "negative removes line",
			quantity: -1,
			want:     []model.GuestLine{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := t.Context()
			m, store, _ := newManager(t)
			m.AddToCart(ctx, "P", 3)

			got := m.UpdateCartItem(ctx, "P", tt.quantity)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, store.ReadCart(ctx))
		})
	}
}

func TestUpdateCartItem_MissingLine(t *testing.T) {
	ctx := t.Context()
	m, _, _ := newManager(t)

	assert.Empty(t, m.UpdateCartItem(ctx, "ghost", 0), "removing nothing stays empty")

	lines := m.UpdateCartItem(ctx, "new", 2)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestRemoveFromCart_Idempotent(t *testing.T) {
	ctx := t.Context()
	m, _, _ := newManager(t)
	m.AddToCart(ctx, "A", 1)
	m.AddToCart(ctx, "B", 1)

	m.RemoveFromCart(ctx, "A")
	lines := m.RemoveFromCart(ctx, "A")

	require.Len(t, lines, 1)
	assert.Equal(t, "B", lines[0].ProductID)
}

func TestCartCount(t *testing.T) {
	ctx := t.Context()
	m, _, _ := newManager(t)

	assert.Equal(t, 0, m.CartCount(ctx))

	m.AddToCart(ctx, "A", 2)
	m.AddToCart(ctx, "B", 3)
	assert.Equal(t, 5, m.CartCount(ctx))
}

func TestClearCart(t *testing.T) {
	ctx := t.Context()
	m, store, _ := newManager(t)
	m.AddToCart(ctx, "A", 2)

	m.ClearCart(ctx)

	assert.Empty(t, m.CartLines(ctx))
	assert.Empty(t, store.ReadCart(ctx))
}

func TestWishlist_SetSemantics(t *testing.T) {
	ctx := t.Context()
	m, _, _ := newManager(t)

	m.AddToWishlist(ctx, "P")
	entries := m.AddToWishlist(ctx, "P")

	require.Len(t, entries, 1)
	assert.True(t, m.IsWishlisted(ctx, "P"))
	assert.False(t, m.IsWishlisted(ctx, "Q"))
	assert.Equal(t, 1, m.WishlistCount(ctx))
}

func TestWishlist_RemoveAndClear(t *testing.T) {
	ctx := t.Context()
	m, _, _ := newManager(t)
	m.AddToWishlist(ctx, "A")
	m.AddToWishlist(ctx, "B")
	m.AddToWishlist(ctx, "C")

	m.RemoveFromWishlist(ctx, "B")
	m.RemoveFromWishlist(ctx, "missing")
	assert.Equal(t, 2, m.WishlistCount(ctx))
	assert.False(t, m.IsWishlisted(ctx, "B"))

	m.ClearWishlist(ctx)
	assert.Equal(t, 0, m.WishlistCount(ctx))
}

func TestManager_AcceptsAnyProductID(t *testing.T) {
	ctx := t.Context()
	m, _, _ := newManager(t)

	assert.NotPanics(t, func() {
		m.AddToCart(ctx, "", 1)
		m.UpdateCartItem(ctx, "", 5)
		m.RemoveFromCart(ctx, "")
		m.AddToWishlist(ctx, "")
		m.RemoveFromWishlist(ctx, "")
	})
}

func TestManager_ConcurrentAddsDoNotLoseWrites(t *testing.T) {
	ctx := t.Context()
	m, _, _ := newManager(t)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.AddToCart(ctx, "P", 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, m.CartCount(ctx))
}
