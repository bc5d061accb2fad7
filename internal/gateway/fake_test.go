package gateway

import (
	"context"
	"strconv"
	"sync"

	"storefront/internal/model"
)

// fakeBackend is an in-memory backend whose add increments, like the real one.
type fakeBackend struct {
	mu       sync.Mutex
	nextID   int
	items    []model.CartItem
	wishlist []model.WishlistItem
	calls    []string

	failAdd  map[string]error // productID -> error
	failAll  error
	getCarts int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{nextID: 100, failAdd: map[string]error{}}
}

func (f *fakeBackend) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) GetCart(context.Context) (*model.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCarts++
	if f.failAll != nil {
		return nil, f.failAll
	}
	items := append([]model.CartItem{}, f.items...)
	return &model.Cart{ID: "1", Items: items}, nil
}

func (f *fakeBackend) AddCartItem(_ context.Context, productID string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("add:" + productID + ":" + strconv.Itoa(quantity))
	if f.failAll != nil {
		return f.failAll
	}
	if err := f.failAdd[productID]; err != nil {
		return err
	}
	for i := range f.items {
		if f.items[i].Product.ID.String() == productID {
			f.items[i].Quantity += quantity
			return nil
		}
	}
	f.nextID++
	f.items = append(f.items, model.CartItem{
		ID:       model.ID(strconv.Itoa(f.nextID)),
		Product:  model.Product{ID: model.ID(productID), Price: model.NewPrice("100.00")},
		Quantity: quantity,
	})
	return nil
}

func (f *fakeBackend) UpdateCartItem(_ context.Context, itemID string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("update:" + itemID + ":" + strconv.Itoa(quantity))
	for i := range f.items {
		if f.items[i].ID.String() == itemID {
			f.items[i].Quantity = quantity
			return nil
		}
	}
	return model.NewNotFoundError("cart item")
}

func (f *fakeBackend) RemoveCartItem(_ context.Context, itemID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("remove:" + itemID)
	for i := range f.items {
		if f.items[i].ID.String() == itemID {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return model.NewNotFoundError("cart item")
}

func (f *fakeBackend) GetWishlist(context.Context) (*model.Wishlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	return &model.Wishlist{Items: append([]model.WishlistItem{}, f.wishlist...)}, nil
}

func (f *fakeBackend) AddToWishlist(_ context.Context, productID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("wish:" + productID)
	if f.failAll != nil {
		return f.failAll
	}
	if err := f.failAdd[productID]; err != nil {
		return err
	}
	f.wishlist = append(f.wishlist, model.WishlistItem{Product: model.Product{ID: model.ID(productID)}})
	return nil
}

func (f *fakeBackend) RemoveFromWishlist(_ context.Context, productID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("unwish:" + productID)
	for i := range f.wishlist {
		if f.wishlist[i].Product.ID.String() == productID {
			f.wishlist = append(f.wishlist[:i], f.wishlist[i+1:]...)
			return nil
		}
	}
	return model.NewNotFoundError("wishlist item")
}

type fakeAuth struct{ authed bool }

func (f *fakeAuth) IsAuthenticated(context.Context) bool { return f.authed }

type fakeExpirer struct{ expired int }

func (f *fakeExpirer) Expire(context.Context) { f.expired++ }
