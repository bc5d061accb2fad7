// Package localstore persists the guest cart, guest wishlist and auth flag for one
// device profile. Reads never fail: a missing key, malformed JSON or a backend error
// all yield an empty collection. Write failures are logged and swallowed so the
// caller's in-memory value stays authoritative.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"storefront/internal/model"
)

// Fixed storage keys.
const (
	KeyCart     = "guest_cart"
	KeyWishlist = "guest_wishlist"
	KeyAuthFlag = "auth_flag"
)

var (
	// ErrNotFound is returned by a Backend when the key has never been written.
	ErrNotFound = errors.New("key not found")
	// ErrQuotaExceeded is returned by a Backend when a write would exceed its size limit.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// Backend is durable key-value storage for one profile.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Store reads and writes the guest collections on top of a Backend.
type Store struct {
	backend Backend
	logger  *slog.Logger
}

// New creates a Store. A nil logger falls back to slog.Default().
func New(backend Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{backend: backend, logger: logger}
}

// ReadCart returns the persisted guest cart lines, or an empty slice.
func (s *Store) ReadCart(ctx context.Context) []model.GuestLine {
	return readJSON[model.GuestLine](ctx, s, KeyCart)
}

// WriteCart replaces the persisted guest cart.
func (s *Store) WriteCart(ctx context.Context, lines []model.GuestLine) {
	writeJSON(ctx, s, KeyCart, lines)
}

// ReadWishlist returns the persisted guest wishlist entries, or an empty slice.
func (s *Store) ReadWishlist(ctx context.Context) []model.WishlistEntry {
	return readJSON[model.WishlistEntry](ctx, s, KeyWishlist)
}

// WriteWishlist replaces the persisted guest wishlist.
func (s *Store) WriteWishlist(ctx context.Context, entries []model.WishlistEntry) {
	writeJSON(ctx, s, KeyWishlist, entries)
}

// ReadAuthFlag returns the persisted authentication flag. Anything but a stored
// JSON true reads as false.
func (s *Store) ReadAuthFlag(ctx context.Context) bool {
	data, err := s.backend.Get(ctx, KeyAuthFlag)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("auth flag read failed", "error", err)
		}
		return false
	}
	var flag bool
	if err := json.Unmarshal(data, &flag); err != nil {
		s.logger.Warn("auth flag malformed, treating as signed out", "error", err)
		return false
	}
	return flag
}

// WriteAuthFlag persists the authentication flag. Only the boolean is stored;
// tokens and user details never reach disk.
func (s *Store) WriteAuthFlag(ctx context.Context, authenticated bool) {
	data, _ := json.Marshal(authenticated)
	if err := s.backend.Set(ctx, KeyAuthFlag, data); err != nil {
		s.logger.Error("auth flag write failed", "error", err)
	}
}

func readJSON[T any](ctx context.Context, s *Store, key string) []T {
	data, err := s.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("local store read failed", "key", key, "error", err)
		}
		return []T{}
	}

	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		s.logger.Warn("local store value malformed, using empty collection", "key", key, "error", err)
		return []T{}
	}
	if out == nil {
		return []T{}
	}
	return out
}

func writeJSON[T any](ctx context.Context, s *Store, key string, value []T) {
	if value == nil {
		value = []T{}
	}
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Error("local store encode failed", "key", key, "error", err)
		return
	}
	if err := s.backend.Set(ctx, key, data); err != nil {
		s.logger.Error("local store write failed", "key", key, "bytes", len(data), "error", err)
	}
}
