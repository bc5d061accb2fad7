package gateway

import (
	"context"

	"storefront/internal/model"
)

// Mock implements Gateway for testing.
// Each method can be configured via function fields; unset reads return empty
// views and unset writes succeed.
type Mock struct {
	GetCartFunc            func(ctx context.Context) (*model.Cart, error)
	AddToCartFunc          func(ctx context.Context, productID string, quantity int) error
	UpdateCartItemFunc     func(ctx context.Context, productID string, quantity int) error
	RemoveFromCartFunc     func(ctx context.Context, productID string) error
	ClearCartFunc          func(ctx context.Context) error
	CartCountFunc          func(ctx context.Context) (int, error)
	GetWishlistFunc        func(ctx context.Context) (*model.Wishlist, error)
	AddToWishlistFunc      func(ctx context.Context, productID string) error
	RemoveFromWishlistFunc func(ctx context.Context, productID string) error
	ClearWishlistFunc      func(ctx context.Context) error
	WishlistCountFunc      func(ctx context.Context) (int, error)
	IsWishlistedFunc       func(ctx context.Context, productID string) (bool, error)
}

// GetCart calls the configured GetCartFunc or returns an empty cart.
func (m *Mock) GetCart(ctx context.Context) (*model.Cart, error) {
	if m.GetCartFunc != nil {
		return m.GetCartFunc(ctx)
	}
	return &model.Cart{Items: []model.CartItem{}}, nil
}

func (m *Mock) AddToCart(ctx context.Context, productID string, quantity int) error {
	if m.AddToCartFunc != nil {
		return m.AddToCartFunc(ctx, productID, quantity)
	}
	return nil
}

func (m *Mock) UpdateCartItem(ctx context.Context, productID string, quantity int) error {
	if m.UpdateCartItemFunc != nil {
		return m.UpdateCartItemFunc(ctx, productID, quantity)
	}
	return nil
}

func (m *Mock) RemoveFromCart(ctx context.Context, productID string) error {
	if m.RemoveFromCartFunc != nil {
		return m.RemoveFromCartFunc(ctx, productID)
	}
	return nil
}

func (m *Mock) ClearCart(ctx context.Context) error {
	if m.ClearCartFunc != nil {
		return m.ClearCartFunc(ctx)
	}
	return nil
}

func (m *Mock) CartCount(ctx context.Context) (int, error) {
	if m.CartCountFunc != nil {
		return m.CartCountFunc(ctx)
	}
	return 0, nil
}

// GetWishlist calls the configured GetWishlistFunc or returns an empty wishlist.
func (m *Mock) GetWishlist(ctx context.Context) (*model.Wishlist, error) {
	if m.GetWishlistFunc != nil {
		return m.GetWishlistFunc(ctx)
	}
	return &model.Wishlist{Items: []model.WishlistItem{}}, nil
}

func (m *Mock) AddToWishlist(ctx context.Context, productID string) error {
	if m.AddToWishlistFunc != nil {
		return m.AddToWishlistFunc(ctx, productID)
	}
	return nil
}

func (m *Mock) RemoveFromWishlist(ctx context.Context, productID string) error {
	if m.RemoveFromWishlistFunc != nil {
		return m.RemoveFromWishlistFunc(ctx, productID)
	}
	return nil
}

func (m *Mock) ClearWishlist(ctx context.Context) error {
	if m.ClearWishlistFunc != nil {
		return m.ClearWishlistFunc(ctx)
	}
	return nil
}

func (m *Mock) WishlistCount(ctx context.Context) (int, error) {
	if m.WishlistCountFunc != nil {
		return m.WishlistCountFunc(ctx)
	}
	return 0, nil
}

func (m *Mock) IsWishlisted(ctx context.Context, productID string) (bool, error) {
	if m.IsWishlistedFunc != nil {
		return m.IsWishlistedFunc(ctx, productID)
	}
	return false, nil
}

// Verify Mock implements Gateway interface at compile time.
var _ Gateway = (*Mock)(nil)
