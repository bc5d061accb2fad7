// Package cartsync replays the guest cart and wishlist into the backend after login.
//
// Replay is sequential in local insertion order and best effort: a failed line is
// logged and recorded, and the rest still go. The local store is never cleared, so
// a later logout brings the guest basket back. Replay is not idempotent; a repeated
// sync over-counts cart quantities but never fails.
package cartsync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"storefront/internal/model"
	"storefront/internal/viewcache"
)

// Source reads the guest collections.
type Source interface {
	CartLines(ctx context.Context) []model.GuestLine
	WishlistEntries(ctx context.Context) []model.WishlistEntry
}

// Target receives the replayed writes. *remote.Client implements it.
type Target interface {
	AddCartItem(ctx context.Context, productID string, quantity int) error
	AddToWishlist(ctx context.Context, productID string) error
}

// Invalidator drops cached server-backed views.
type Invalidator interface {
	InvalidateTags(tags ...string) int
}

// Kind names the collection a replay came from.
type Kind string

const (
	KindCart     Kind = "cart"
	KindWishlist Kind = "wishlist"
)

// Replay is one local entry pushed to the backend.
type Replay struct {
	Kind      Kind   `json:"kind"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity,omitempty"`
}

// Failure is a replay the backend rejected.
type Failure struct {
	Replay
	Err error `json:"-"`
}

// MarshalJSON includes the error text.
func (f Failure) MarshalJSON() ([]byte, error) {
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	return json.Marshal(struct {
		Replay
		Error string `json:"error"`
	}{f.Replay, msg})
}

// Result aggregates one sync run.
type Result struct {
	Succeeded []Replay  `json:"succeeded"`
	Failed    []Failure `json:"failed"`
}

// OK reports whether every replay succeeded.
func (r Result) OK() bool { return len(r.Failed) == 0 }

// Engine runs the post-login sync.
type Engine struct {
	source      Source
	target      Target
	invalidator Invalidator
	logger      *slog.Logger
}

// New creates an Engine.
func New(source Source, target Target, invalidator Invalidator, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{source: source, target: target, invalidator: invalidator, logger: logger}
}

// Run replays cart lines, then wishlist entries, then invalidates the cart and
// wishlist views. It never returns an error and ignores caller cancellation: a
// shopper closing the page mid-login does not leave a half-merged cart behind.
func (e *Engine) Run(ctx context.Context) Result {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	res := Result{Succeeded: []Replay{}, Failed: []Failure{}}

	for _, line := range e.source.CartLines(ctx) {
		r := Replay{Kind: KindCart, ProductID: line.ProductID, Quantity: line.Quantity}
		e.replay(ctx, &res, r, func() error {
			return e.target.AddCartItem(ctx, line.ProductID, max(line.Quantity, 1))
		})
	}

	for _, entry := range e.source.WishlistEntries(ctx) {
		r := Replay{Kind: KindWishlist, ProductID: entry.ProductID}
		e.replay(ctx, &res, r, func() error {
			return e.target.AddToWishlist(ctx, entry.ProductID)
		})
	}

	dropped := e.invalidator.InvalidateTags(viewcache.TagCart, viewcache.TagWishlist)

	e.logger.Info("guest sync finished",
		"succeeded", len(res.Succeeded),
		"failed", len(res.Failed),
		"views_invalidated", dropped,
		"duration", time.Since(start),
	)
	return res
}

func (e *Engine) replay(ctx context.Context, res *Result, r Replay, call func() error) {
	err := safeCall(call)
	if err != nil {
		e.logger.WarnContext(ctx, "sync replay failed",
			"kind", r.Kind,
			"product_id", r.ProductID,
			"quantity", r.Quantity,
			"error", err,
		)
		res.Failed = append(res.Failed, Failure{Replay: r, Err: err})
		return
	}
	res.Succeeded = append(res.Succeeded, r)
}

// safeCall turns a panicking replay into a recorded failure.
func safeCall(call func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("replay panicked: %v", p)
		}
	}()
	return call()
}
