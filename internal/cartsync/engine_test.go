package cartsync

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"storefront/internal/guest"
	"storefront/internal/localstore"
	"storefront/internal/model"
	"storefront/internal/viewcache"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recordingTarget records replays in order and fails the configured products.
type recordingTarget struct {
	mu       sync.Mutex
	cart     []string
	wishlist []string
	fail     map[string]error
	panicOn  string
}

func (r *recordingTarget) AddCartItem(_ context.Context, productID string, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if productID == r.panicOn {
		panic("backend client bug")
	}
	if err := r.fail[productID]; err != nil {
		return err
	}
	r.cart = append(r.cart, productID)
	return nil
}

func (r *recordingTarget) AddToWishlist(_ context.Context, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail[productID]; err != nil {
		return err
	}
	r.wishlist = append(r.wishlist, productID)
	return nil
}

func newGuest(t *testing.T) (*guest.Manager, *localstore.Store) {
	t.Helper()
	store := localstore.New(localstore.NewMemoryBackend(), nil)
	return guest.NewManager(store), store
}

func TestRun_ReplaysInOrder(t *testing.T) {
	ctx := t.Context()
	g, _ := newGuest(t)
	ids := []string{gofakeit.UUID(), gofakeit.UUID(), gofakeit.UUID()}
	for _, id := range ids {
		g.AddToCart(ctx, id, 1)
	}
	g.AddToWishlist(ctx, "W1")

	target := &recordingTarget{}
	res := New(g, target, viewcache.New(viewcache.Config{}), nil).Run(ctx)

	if diff := cmp.Diff(ids, target.cart); diff != "" {
		t.Errorf("replay order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"W1"}, target.wishlist)
	assert.True(t, res.OK())
	assert.Len(t, res.Succeeded, 4)
}

func TestRun_LeavesLocalStoreUnchanged(t *testing.T) {
	ctx := t.Context()
	g, store := newGuest(t)
	g.AddToCart(ctx, "A", 2)
	g.AddToCart(ctx, "B", 3)
	g.AddToWishlist(ctx, "C")
	before := store.ReadCart(ctx)
	beforeWish := store.ReadWishlist(ctx)

	New(g, &recordingTarget{}, viewcache.New(viewcache.Config{}), nil).Run(ctx)

	assert.Equal(t, before, store.ReadCart(ctx))
	assert.Equal(t, beforeWish, store.ReadWishlist(ctx))
}

func TestRun_PartialFailureContinues(t *testing.T) {
	ctx := t.Context()
	g, _ := newGuest(t)
	g.AddToCart(ctx, "line-1", 1)
	g.AddToCart(ctx, "line-2", 4)

	target := &recordingTarget{fail: map[string]error{
		"line-1": model.NewValidationError("product", "Product is no longer available"),
	}}

	var res Result
	require.NotPanics(t, func() {
		res = New(g, target, viewcache.New(viewcache.Config{}), nil).Run(ctx)
	})

	assert.Equal(t, []string{"line-2"}, target.cart, "line 2 recorded remotely")
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "line-1", res.Failed[0].ProductID)
	assert.ErrorIs(t, res.Failed[0].Err, model.ErrInvalidRequest)
	assert.Equal(t, []Replay{{Kind: KindCart, ProductID: "line-2", Quantity: 4}}, res.Succeeded)
	assert.False(t, res.OK())
}

func TestRun_PanicIsRecorded(t *testing.T) {
	ctx := t.Context()
	g, _ := newGuest(t)
	g.AddToCart(ctx, "boom", 1)
	g.AddToCart(ctx, "fine", 1)

	target := &recordingTarget{panicOn: "boom"}
	res := New(g, target, viewcache.New(viewcache.Config{}), nil).Run(ctx)

	require.Len(t, res.Failed, 1)
	assert.Contains(t, res.Failed[0].Err.Error(), "panicked")
	assert.Equal(t, []string{"fine"}, target.cart)
}

func TestRun_InvalidatesViewsEvenOnFailure(t *testing.T) {
	ctx := t.Context()
	g, _ := newGuest(t)
	g.AddToCart(ctx, "A", 1)

	cache := viewcache.New(viewcache.Config{})
	cache.Set("cart", "stale", viewcache.TagCart)
	cache.Set("wishlist", "stale", viewcache.TagWishlist)
	cache.Set("catalog", "fresh", viewcache.TagCatalog)

	target := &recordingTarget{fail: map[string]error{"A": errors.New("503")}}
	New(g, target, cache, nil).Run(ctx)

	_, cartCached := cache.Get("cart")
	_, wishCached := cache.Get("wishlist")
	_, catalogCached := cache.Get("catalog")
	assert.False(t, cartCached)
	assert.False(t, wishCached)
	assert.True(t, catalogCached)
}

func TestRun_IgnoresCallerCancellation(t *testing.T) {
	g, _ := newGuest(t)
	g.AddToCart(t.Context(), "A", 1)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	var seenErr error
	target := &ctxTarget{onAdd: func(ctx context.Context) { seenErr = ctx.Err() }}
	res := New(g, target, viewcache.New(viewcache.Config{}), nil).Run(ctx)

	assert.NoError(t, seenErr)
	assert.True(t, res.OK())
}

type ctxTarget struct{ onAdd func(context.Context) }

func (c *ctxTarget) AddCartItem(ctx context.Context, _ string, _ int) error {
	c.onAdd(ctx)
	return nil
}
func (c *ctxTarget) AddToWishlist(context.Context, string) error { return nil }

func TestRun_EmptyStore(t *testing.T) {
	g, _ := newGuest(t)
	res := New(g, &recordingTarget{}, viewcache.New(viewcache.Config{}), nil).Run(t.Context())

	assert.Empty(t, res.Succeeded)
	assert.Empty(t, res.Failed)
	assert.NotNil(t, res.Succeeded, "empty slices marshal as []")
}

func TestFailure_MarshalJSON(t *testing.T) {
	res := Result{
		Succeeded: []Replay{},
		Failed: []Failure{{
			Replay: Replay{Kind: KindWishlist, ProductID: "9"},
			Err:    errors.New("gone"),
		}},
	}
	out, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"succeeded":[],"failed":[{"kind":"wishlist","product_id":"9","error":"gone"}]}`, string(out))
}
