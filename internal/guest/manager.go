// Package guest implements the anonymous shopper's cart and wishlist on top of the
// local store. Every operation is total: no errors, no panics, any product id accepted.
package guest

import (
	"context"
	"slices"
	"sync"
	"time"

	"storefront/internal/localstore"
	"storefront/internal/model"
)

// Manager owns read-modify-write of the guest collections. Writes within one
// process are serialized; two processes sharing a profile race with last write wins.
type Manager struct {
	store *localstore.Store
	now   func() time.Time

	mu sync.Mutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source used for added_at.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a Manager over store.
func NewManager(store *localstore.Store, opts ...Option) *Manager {
	m := &Manager{store: store, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) timestamp() string {
	return m.now().UTC().Format(time.RFC3339)
}

// === Cart ===

// AddToCart increments the line for productID, or appends a new one stamped now.
// A non-positive quantity counts as 1. Returns the updated collection.
func (m *Manager) AddToCart(ctx context.Context, productID string, quantity int) []model.GuestLine {
	if quantity <= 0 {
		quantity = 1
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	lines := m.store.ReadCart(ctx)
	if i := indexLine(lines, productID); i >= 0 {
		lines[i].Quantity += quantity
	} else {
		lines = append(lines, model.GuestLine{
			ProductID: productID,
			Quantity:  quantity,
			AddedAt:   m.timestamp(),
		})
	}
	m.store.WriteCart(ctx, lines)
	return lines
}

// UpdateCartItem sets the line's quantity (replacement, not increment).
// quantity <= 0 removes the line. A product with no line gets one.
func (m *Manager) UpdateCartItem(ctx context.Context, productID string, quantity int) []model.GuestLine {
	m.mu.Lock()
	defer m.mu.Unlock()

	lines := m.store.ReadCart(ctx)
	i := indexLine(lines, productID)
	switch {
	case quantity <= 0:
		if i >= 0 {
			lines = slices.Delete(lines, i, i+1)
		}
	case i >= 0:
		lines[i].Quantity = quantity
	default:
		lines = append(lines, model.GuestLine{
			ProductID: productID,
			Quantity:  quantity,
			AddedAt:   m.timestamp(),
		})
	}
	m.store.WriteCart(ctx, lines)
	return lines
}

// RemoveFromCart drops the line for productID. Removing an absent product is a no-op.
func (m *Manager) RemoveFromCart(ctx context.Context, productID string) []model.GuestLine {
	m.mu.Lock()
	defer m.mu.Unlock()

	lines := m.store.ReadCart(ctx)
	lines = slices.DeleteFunc(lines, func(l model.GuestLine) bool { return l.ProductID == productID })
	m.store.WriteCart(ctx, lines)
	return lines
}

// ClearCart empties the guest cart.
func (m *Manager) ClearCart(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store.WriteCart(ctx, []model.GuestLine{})
}

// CartCount is the sum of quantities across lines.
func (m *Manager) CartCount(ctx context.Context) int {
	total := 0
	for _, l := range m.CartLines(ctx) {
		total += l.Quantity
	}
	return total
}

// CartLines returns the persisted lines in insertion order.
func (m *Manager) CartLines(ctx context.Context) []model.GuestLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.ReadCart(ctx)
}

// === Wishlist ===

// AddToWishlist appends productID unless it is already present.
func (m *Manager) AddToWishlist(ctx context.Context, productID string) []model.WishlistEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.store.ReadWishlist(ctx)
	if indexEntry(entries, productID) >= 0 {
		return entries
	}
	entries = append(entries, model.WishlistEntry{ProductID: productID, AddedAt: m.timestamp()})
	m.store.WriteWishlist(ctx, entries)
	return entries
}

// RemoveFromWishlist drops productID. Idempotent.
func (m *Manager) RemoveFromWishlist(ctx context.Context, productID string) []model.WishlistEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.store.ReadWishlist(ctx)
	entries = slices.DeleteFunc(entries, func(e model.WishlistEntry) bool { return e.ProductID == productID })
	m.store.WriteWishlist(ctx, entries)
	return entries
}

// ClearWishlist empties the guest wishlist.
func (m *Manager) ClearWishlist(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store.WriteWishlist(ctx, []model.WishlistEntry{})
}

// WishlistCount is the number of distinct products.
func (m *Manager) WishlistCount(ctx context.Context) int {
	return len(m.WishlistEntries(ctx))
}

// IsWishlisted reports whether productID is in the guest wishlist.
func (m *Manager) IsWishlisted(ctx context.Context, productID string) bool {
	return indexEntry(m.WishlistEntries(ctx), productID) >= 0
}

// WishlistEntries returns the persisted entries in insertion order.
func (m *Manager) WishlistEntries(ctx context.Context) []model.WishlistEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.ReadWishlist(ctx)
}

func indexLine(lines []model.GuestLine, productID string) int {
	return slices.IndexFunc(lines, func(l model.GuestLine) bool { return l.ProductID == productID })
}

func indexEntry(entries []model.WishlistEntry, productID string) int {
	return slices.IndexFunc(entries, func(e model.WishlistEntry) bool { return e.ProductID == productID })
}
