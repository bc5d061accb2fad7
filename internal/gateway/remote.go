package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"storefront/internal/model"
	"storefront/internal/viewcache"
)

// Backend is the subset of the backend client the remote gateway needs.
// *remote.Client implements it.
type Backend interface {
	GetCart(ctx context.Context) (*model.Cart, error)
	AddCartItem(ctx context.Context, productID string, quantity int) error
	UpdateCartItem(ctx context.Context, itemID string, quantity int) error
	RemoveCartItem(ctx context.Context, itemID string) error
	GetWishlist(ctx context.Context) (*model.Wishlist, error)
	AddToWishlist(ctx context.Context, productID string) error
	RemoveFromWishlist(ctx context.Context, productID string) error
}

// Expirer is told when the backend rejects the session token.
type Expirer interface {
	Expire(ctx context.Context)
}

// Cache keys for server-backed views.
const (
	cartKey     = "cart"
	wishlistKey = "wishlist"
)

// Remote serves the Gateway from the backend, caching reads in the view cache.
// Every write invalidates the views it affects.
type Remote struct {
	backend Backend
	cache   *viewcache.Cache
	expirer Expirer
	logger  *slog.Logger
}

// NewRemote creates a backend-backed gateway.
func NewRemote(backend Backend, cache *viewcache.Cache, expirer Expirer, logger *slog.Logger) *Remote {
	if logger == nil {
		logger = slog.Default()
	}
	return &Remote{backend: backend, cache: cache, expirer: expirer, logger: logger}
}

// check expires the session when the backend answers 401/403.
func (r *Remote) check(ctx context.Context, err error) error {
	if err != nil && errors.Is(err, model.ErrUnauthorized) && r.expirer != nil {
		r.logger.Warn("backend rejected session token", "error", err)
		r.expirer.Expire(ctx)
	}
	return err
}

func (r *Remote) GetCart(ctx context.Context) (*model.Cart, error) {
	cart, err := viewcache.Fetch(ctx, r.cache, cartKey, []string{viewcache.TagCart}, r.backend.GetCart)
	if err != nil {
		return nil, r.check(ctx, err)
	}
	return cart, nil
}

func (r *Remote) AddToCart(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		quantity = 1
	}
	defer r.cache.InvalidateTags(viewcache.TagCart)
	return r.check(ctx, r.backend.AddCartItem(ctx, productID, quantity))
}

// UpdateCartItem resolves productID to the backend item id from a fresh cart read.
func (r *Remote) UpdateCartItem(ctx context.Context, productID string, quantity int) error {
	defer r.cache.InvalidateTags(viewcache.TagCart)

	item, err := r.findItem(ctx, productID)
	if err != nil {
		return err
	}

	switch {
	case item == nil && quantity <= 0:
		return nil
	case item == nil:
		return r.check(ctx, r.backend.AddCartItem(ctx, productID, quantity))
	case quantity <= 0:
		return r.check(ctx, r.backend.RemoveCartItem(ctx, item.ID.String()))
	default:
		return r.check(ctx, r.backend.UpdateCartItem(ctx, item.ID.String(), quantity))
	}
}

func (r *Remote) RemoveFromCart(ctx context.Context, productID string) error {
	defer r.cache.InvalidateTags(viewcache.TagCart)

	item, err := r.findItem(ctx, productID)
	if err != nil || item == nil {
		return err
	}
	err = r.check(ctx, r.backend.RemoveCartItem(ctx, item.ID.String()))
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	return err
}

// ClearCart removes every item. Failures are collected; the rest still go.
func (r *Remote) ClearCart(ctx context.Context) error {
	defer r.cache.InvalidateTags(viewcache.TagCart)

	cart, err := r.backend.GetCart(ctx)
	if err != nil {
		return r.check(ctx, err)
	}
	var errs []error
	for _, item := range cart.Items {
		if err := r.backend.RemoveCartItem(ctx, item.ID.String()); err != nil && !errors.Is(err, model.ErrNotFound) {
			errs = append(errs, fmt.Errorf("remove item %s: %w", item.ID, r.check(ctx, err)))
		}
	}
	return errors.Join(errs...)
}

func (r *Remote) CartCount(ctx context.Context) (int, error) {
	cart, err := r.GetCart(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, item := range cart.Items {
		total += item.Quantity
	}
	return total, nil
}

func (r *Remote) findItem(ctx context.Context, productID string) (*model.CartItem, error) {
	cart, err := r.backend.GetCart(ctx)
	if err != nil {
		return nil, r.check(ctx, err)
	}
	for i := range cart.Items {
		if cart.Items[i].Product.ID.String() == productID {
			return &cart.Items[i], nil
		}
	}
	return nil, nil
}

func (r *Remote) GetWishlist(ctx context.Context) (*model.Wishlist, error) {
	w, err := viewcache.Fetch(ctx, r.cache, wishlistKey, []string{viewcache.TagWishlist}, r.backend.GetWishlist)
	if err != nil {
		return nil, r.check(ctx, err)
	}
	return w, nil
}

// AddToWishlist skips the call when the product is already present, matching the
// guest path's set semantics.
func (r *Remote) AddToWishlist(ctx context.Context, productID string) error {
	present, err := r.IsWishlisted(ctx, productID)
	if err != nil {
		return err
	}
	if present {
		return nil
	}
	defer r.cache.InvalidateTags(viewcache.TagWishlist)
	return r.check(ctx, r.backend.AddToWishlist(ctx, productID))
}

func (r *Remote) RemoveFromWishlist(ctx context.Context, productID string) error {
	defer r.cache.InvalidateTags(viewcache.TagWishlist)
	err := r.check(ctx, r.backend.RemoveFromWishlist(ctx, productID))
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	return err
}

func (r *Remote) ClearWishlist(ctx context.Context) error {
	defer r.cache.InvalidateTags(viewcache.TagWishlist)

	w, err := r.backend.GetWishlist(ctx)
	if err != nil {
		return r.check(ctx, err)
	}
	var errs []error
	for _, item := range w.Items {
		id := item.Product.ID.String()
		if err := r.backend.RemoveFromWishlist(ctx, id); err != nil && !errors.Is(err, model.ErrNotFound) {
			errs = append(errs, fmt.Errorf("remove wishlist product %s: %w", id, r.check(ctx, err)))
		}
	}
	return errors.Join(errs...)
}

func (r *Remote) WishlistCount(ctx context.Context) (int, error) {
	w, err := r.GetWishlist(ctx)
	if err != nil {
		return 0, err
	}
	return len(w.Items), nil
}

func (r *Remote) IsWishlisted(ctx context.Context, productID string) (bool, error) {
	w, err := r.GetWishlist(ctx)
	if err != nil {
		return false, err
	}
	return w.Has(productID), nil
}

var _ Gateway = (*Remote)(nil)
