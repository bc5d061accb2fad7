// Package gateway routes cart and wishlist operations to the guest store or the
// backend, depending on whether the shopper is signed in at the moment of the call.
package gateway

import (
	"context"
	"errors"

	"storefront/internal/model"
)

// Gateway abstracts cart and wishlist operations behind one signature set, so
// callers never branch on auth state.
//
// Product-keyed methods take the catalog product id on both paths; the backend
// path resolves item ids itself.
type Gateway interface {
	// GetCart returns the cart-shaped view. Guest carts have Guest=true and no
	// items; the catalog join happens one layer up.
	GetCart(ctx context.Context) (*model.Cart, error)

	// AddToCart increments the product's line, creating it when absent.
	AddToCart(ctx context.Context, productID string, quantity int) error

	// UpdateCartItem sets the quantity; quantity <= 0 removes the line.
	UpdateCartItem(ctx context.Context, productID string, quantity int) error

	// RemoveFromCart drops the line. Removing an absent product succeeds.
	RemoveFromCart(ctx context.Context, productID string) error

	ClearCart(ctx context.Context) error

	// CartCount is the sum of line quantities.
	CartCount(ctx context.Context) (int, error)

	GetWishlist(ctx context.Context) (*model.Wishlist, error)

	// AddToWishlist is a no-op when the product is already wishlisted.
	AddToWishlist(ctx context.Context, productID string) error

	RemoveFromWishlist(ctx context.Context, productID string) error
	ClearWishlist(ctx context.Context) error

	// WishlistCount is the number of distinct products.
	WishlistCount(ctx context.Context) (int, error)

	IsWishlisted(ctx context.Context, productID string) (bool, error)
}

// Authenticator reports the live auth state.
type Authenticator interface {
	IsAuthenticated(ctx context.Context) bool
}

// Selector implements Gateway by asking the Authenticator on every call.
// No mode is cached: a shopper can sign in between two calls.
type Selector struct {
	auth   Authenticator
	guest  Gateway
	remote Gateway
}

// NewSelector creates a Selector.
func NewSelector(auth Authenticator, guest, remote Gateway) *Selector {
	return &Selector{auth: auth, guest: guest, remote: remote}
}

func (s *Selector) pick(ctx context.Context) Gateway {
	if s.auth.IsAuthenticated(ctx) {
		return s.remote
	}
	return s.guest
}

// Authenticated reports which path the next call will take.
func (s *Selector) Authenticated(ctx context.Context) bool {
	return s.auth.IsAuthenticated(ctx)
}

func (s *Selector) GetCart(ctx context.Context) (*model.Cart, error) {
	return s.pick(ctx).GetCart(ctx)
}

func (s *Selector) AddToCart(ctx context.Context, productID string, quantity int) error {
	return s.pick(ctx).AddToCart(ctx, productID, quantity)
}

func (s *Selector) UpdateCartItem(ctx context.Context, productID string, quantity int) error {
	return s.pick(ctx).UpdateCartItem(ctx, productID, quantity)
}

func (s *Selector) RemoveFromCart(ctx context.Context, productID string) error {
	return s.pick(ctx).RemoveFromCart(ctx, productID)
}

// ClearCart is the one explicit action that empties the guest store. When signed in
// it clears the backend cart and the local copy, otherwise the next login would
// replay the cleared lines.
func (s *Selector) ClearCart(ctx context.Context) error {
	if !s.auth.IsAuthenticated(ctx) {
		return s.guest.ClearCart(ctx)
	}
	return errors.Join(s.remote.ClearCart(ctx), s.guest.ClearCart(ctx))
}

func (s *Selector) CartCount(ctx context.Context) (int, error) {
	return s.pick(ctx).CartCount(ctx)
}

func (s *Selector) GetWishlist(ctx context.Context) (*model.Wishlist, error) {
	return s.pick(ctx).GetWishlist(ctx)
}

func (s *Selector) AddToWishlist(ctx context.Context, productID string) error {
	return s.pick(ctx).AddToWishlist(ctx, productID)
}

func (s *Selector) RemoveFromWishlist(ctx context.Context, productID string) error {
	return s.pick(ctx).RemoveFromWishlist(ctx, productID)
}

// ClearWishlist follows the same rule as ClearCart.
func (s *Selector) ClearWishlist(ctx context.Context) error {
	if !s.auth.IsAuthenticated(ctx) {
		return s.guest.ClearWishlist(ctx)
	}
	return errors.Join(s.remote.ClearWishlist(ctx), s.guest.ClearWishlist(ctx))
}

func (s *Selector) WishlistCount(ctx context.Context) (int, error) {
	return s.pick(ctx).WishlistCount(ctx)
}

func (s *Selector) IsWishlisted(ctx context.Context, productID string) (bool, error) {
	return s.pick(ctx).IsWishlisted(ctx, productID)
}

var _ Gateway = (*Selector)(nil)
