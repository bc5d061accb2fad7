package gateway

import (
	"context"

	"storefront/internal/guest"
	"storefront/internal/model"
)

// Local serves the Gateway from the guest manager. It never returns an error.
type Local struct {
	guest *guest.Manager
}

// NewLocal creates a guest-backed gateway.
func NewLocal(m *guest.Manager) *Local {
	return &Local{guest: m}
}

// GetCart returns an empty-items guest cart. Lines are joined against the
// catalog by the presentation layer.
func (l *Local) GetCart(ctx context.Context) (*model.Cart, error) {
	return &model.Cart{Items: []model.CartItem{}, Guest: true}, nil
}

func (l *Local) AddToCart(ctx context.Context, productID string, quantity int) error {
	l.guest.AddToCart(ctx, productID, quantity)
	return nil
}

func (l *Local) UpdateCartItem(ctx context.Context, productID string, quantity int) error {
	l.guest.UpdateCartItem(ctx, productID, quantity)
	return nil
}

func (l *Local) RemoveFromCart(ctx context.Context, productID string) error {
	l.guest.RemoveFromCart(ctx, productID)
	return nil
}

func (l *Local) ClearCart(ctx context.Context) error {
	l.guest.ClearCart(ctx)
	return nil
}

func (l *Local) CartCount(ctx context.Context) (int, error) {
	return l.guest.CartCount(ctx), nil
}

// GetWishlist returns product stubs carrying only the id and added_at.
func (l *Local) GetWishlist(ctx context.Context) (*model.Wishlist, error) {
	entries := l.guest.WishlistEntries(ctx)
	items := make([]model.WishlistItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, model.WishlistItem{
			Product: model.Product{ID: model.ID(e.ProductID)},
			AddedAt: e.AddedAt,
		})
	}
	return &model.Wishlist{Items: items, Guest: true}, nil
}

func (l *Local) AddToWishlist(ctx context.Context, productID string) error {
	l.guest.AddToWishlist(ctx, productID)
	return nil
}

func (l *Local) RemoveFromWishlist(ctx context.Context, productID string) error {
	l.guest.RemoveFromWishlist(ctx, productID)
	return nil
}

func (l *Local) ClearWishlist(ctx context.Context) error {
	l.guest.ClearWishlist(ctx)
	return nil
}

func (l *Local) WishlistCount(ctx context.Context) (int, error) {
	return l.guest.WishlistCount(ctx), nil
}

func (l *Local) IsWishlisted(ctx context.Context, productID string) (bool, error) {
	return l.guest.IsWishlisted(ctx, productID), nil
}

var _ Gateway = (*Local)(nil)
