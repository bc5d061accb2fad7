// Package storefront builds the priced views the presentation layer renders:
// cart, wishlist and checkout summary. It also places orders.
package storefront

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/text/currency"

	"storefront/internal/gateway"
	"storefront/internal/model"
	"storefront/internal/reconcile"
	"storefront/internal/viewcache"
)

const (
	catalogKey  = "catalog"
	deliveryKey = "delivery_options"
)

// Backend is the slice of the remote client the views need.
type Backend interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
	ListDeliveryOptions(ctx context.Context) ([]model.DeliveryOption, error)
	CreateOrder(ctx context.Context, req model.OrderRequest, idempotencyKey string) (*model.Order, error)
}

// Service assembles views from whichever gateway path is active.
type Service struct {
	gateway  gateway.Gateway
	guest    GuestSource
	backend  Backend
	cache    *viewcache.Cache
	currency currency.Unit
	logger   *slog.Logger

	processing atomic.Bool
}

// GuestSource exposes the raw guest lines for the catalog join.
type GuestSource interface {
	CartLines(ctx context.Context) []model.GuestLine
}

// Config holds the Service dependencies.
type Config struct {
	Gateway  gateway.Gateway
	Guest    GuestSource
	Backend  Backend
	Cache    *viewcache.Cache
	Currency currency.Unit
	Logger   *slog.Logger
}

// New creates a Service.
func New(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Currency == (currency.Unit{}) {
		cfg.Currency = currency.MustParseISO("KES")
	}
	return &Service{
		gateway:  cfg.Gateway,
		guest:    cfg.Guest,
		backend:  cfg.Backend,
		cache:    cfg.Cache,
		currency: cfg.Currency,
		logger:   cfg.Logger,
	}
}

// LineView is a priced cart line with display money.
type LineView struct {
	ProductID     string               `json:"product_id"`
	ItemID        string               `json:"item_id,omitempty"`
	Name          string               `json:"name"`
	Image         string               `json:"image,omitempty"`
	Quantity      int                  `json:"quantity"`
	UnitPrice     model.Money          `json:"unit_price"`
	Subtotal      model.Money          `json:"subtotal"`
	StockQuantity *int                 `json:"stock_quantity,omitempty"`
	Stock         reconcile.StockState `json:"stock"`
	AddedAt       string               `json:"added_at,omitempty"`
}

// CartView is the rendered cart.
type CartView struct {
	Guest     bool           `json:"guest"`
	Lines     []LineView     `json:"lines"`
	ItemCount int            `json:"item_count"`
	Total     model.Money    `json:"total"`
	Gate      reconcile.Gate `json:"checkout"`

	lines []reconcile.Line
}

// WishlistView is the rendered wishlist.
type WishlistView struct {
	Guest bool               `json:"guest"`
	Items []WishlistItemView `json:"items"`
}

// WishlistItemView is one wishlist product with display price.
type WishlistItemView struct {
	ProductID     string      `json:"product_id"`
	Name          string      `json:"name"`
	Image         string      `json:"image,omitempty"`
	Price         model.Money `json:"price"`
	StockQuantity *int        `json:"stock_quantity,omitempty"`
	AddedAt       string      `json:"added_at,omitempty"`
}

// Cart returns the priced cart for the active path. Guest lines are joined
// against the catalog; backend lines are priced from their product snapshots.
func (s *Service) Cart(ctx context.Context) (*CartView, error) {
	cart, err := s.gateway.GetCart(ctx)
	if err != nil {
		return nil, err
	}

	var lines []reconcile.Line
	if cart.Guest {
		catalog, err := s.catalog(ctx)
		if err != nil {
			return nil, err
		}
		lines = reconcile.JoinGuest(s.guest.CartLines(ctx), catalog)
	} else {
		lines = reconcile.FromRemoteCart(cart)
	}
	return s.cartView(cart.Guest, lines), nil
}

func (s *Service) cartView(guest bool, lines []reconcile.Line) *CartView {
	views := make([]LineView, 0, len(lines))
	for _, l := range lines {
		views = append(views, LineView{
			ProductID:     l.ProductID,
			ItemID:        l.ItemID,
			Name:          l.Name,
			Image:         l.Image,
			Quantity:      l.Quantity,
			UnitPrice:     s.money(l.UnitPrice),
			Subtotal:      s.money(l.Subtotal),
			StockQuantity: l.StockQuantity,
			Stock:         l.Stock,
			AddedAt:       l.AddedAt,
		})
	}
	return &CartView{
		Guest:     guest,
		Lines:     views,
		ItemCount: reconcile.ItemCount(lines),
		Total:     s.money(reconcile.Total(lines)),
		Gate:      reconcile.CheckoutGate(lines),
		lines:     lines,
	}
}

// Wishlist returns the wishlist for the active path. Guest entries missing from
// the catalog are dropped.
func (s *Service) Wishlist(ctx context.Context) (*WishlistView, error) {
	wl, err := s.gateway.GetWishlist(ctx)
	if err != nil {
		return nil, err
	}

	view := &WishlistView{Guest: wl.Guest, Items: make([]WishlistItemView, 0, len(wl.Items))}
	if !wl.Guest {
		for _, it := range wl.Items {
			view.Items = append(view.Items, s.wishlistItem(it.Product, it.AddedAt))
		}
		return view, nil
	}

	catalog, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.Product, len(catalog))
	for _, p := range catalog {
		byID[p.ID.String()] = p
	}
	for _, it := range wl.Items {
		if p, ok := byID[it.Product.ID.String()]; ok {
			view.Items = append(view.Items, s.wishlistItem(p, it.AddedAt))
		}
	}
	return view, nil
}

func (s *Service) wishlistItem(p model.Product, addedAt string) WishlistItemView {
	return WishlistItemView{
		ProductID:     p.ID.String(),
		Name:          p.Name,
		Image:         p.Image,
		Price:         s.money(p.Price.Decimal),
		StockQuantity: p.StockQuantity,
		AddedAt:       addedAt,
	}
}

// DeliveryOptionView is a delivery option with display fee.
type DeliveryOptionView struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Fee           model.Money `json:"fee"`
	EstimatedDays string      `json:"estimated_days,omitempty"`
	Selected      bool        `json:"selected"`
}

// TotalsView is the order totals with display money.
type TotalsView struct {
	Subtotal    model.Money `json:"subtotal"`
	DeliveryFee model.Money `json:"delivery_fee"`
	Total       model.Money `json:"total"`
	ItemCount   int         `json:"item_count"`
}

// Summary is the checkout summary.
type Summary struct {
	Cart            *CartView            `json:"cart"`
	DeliveryOptions []DeliveryOptionView `json:"delivery_options"`
	Totals          TotalsView           `json:"totals"`
}

// Summary prices the cart together with the chosen delivery option.
// An empty deliveryOptionID leaves the fee at zero.
func (s *Service) Summary(ctx context.Context, deliveryOptionID string) (*Summary, error) {
	cart, err := s.Cart(ctx)
	if err != nil {
		return nil, err
	}

	options, err := viewcache.Fetch(ctx, s.cache, deliveryKey, []string{viewcache.TagDelivery}, s.backend.ListDeliveryOptions)
	if err != nil {
		return nil, err
	}

	var selected *model.DeliveryOption
	views := make([]DeliveryOptionView, 0, len(options))
	for i, opt := range options {
		isSel := deliveryOptionID != "" && opt.ID.String() == deliveryOptionID
		if isSel {
			selected = &options[i]
		}
		views = append(views, DeliveryOptionView{
			ID:            opt.ID.String(),
			Name:          opt.Name,
			Fee:           s.money(opt.Price.Decimal),
			EstimatedDays: opt.EstimatedDays,
			Selected:      isSel,
		})
	}
	if deliveryOptionID != "" && selected == nil {
		return nil, model.NewValidationError("delivery_option_id", "unknown delivery option")
	}

	totals := reconcile.OrderTotals(cart.lines, selected)
	return &Summary{
		Cart:            cart,
		DeliveryOptions: views,
		Totals: TotalsView{
			Subtotal:    s.money(totals.Subtotal),
			DeliveryFee: s.money(totals.DeliveryFee),
			Total:       s.money(totals.Total),
			ItemCount:   totals.ItemCount,
		},
	}, nil
}

// OrderInput is what the shopper submits at checkout.
type OrderInput struct {
	DeliveryOptionID string `json:"delivery_option_id"`
	AddressID        string `json:"address_id,omitempty"`
	PaymentMethod    string `json:"payment_method,omitempty"`
	Notes            string `json:"notes,omitempty"`
}

// PlaceOrder submits the signed-in shopper's cart. Only one order may be in
// flight; a second submit fails with ORDER_IN_PROGRESS and leaves the first alone.
// The backend call runs to completion even if ctx is cancelled.
func (s *Service) PlaceOrder(ctx context.Context, in OrderInput) (*model.Order, error) {
	if !s.processing.CompareAndSwap(false, true) {
		return nil, model.NewConflictError("ORDER_IN_PROGRESS", "an order is already being placed")
	}
	defer s.processing.Store(false)

	ctx = context.WithoutCancel(ctx)
	if strings.TrimSpace(in.DeliveryOptionID) == "" {
		return nil, model.NewValidationError("delivery_option_id", "required")
	}

	summary, err := s.Summary(ctx, in.DeliveryOptionID)
	if err != nil {
		return nil, err
	}
	if summary.Cart.Guest {
		return nil, model.NewUnauthorizedError("sign in to place an order")
	}
	if summary.Cart.Gate.Blocked {
		return nil, model.NewCheckoutBlockedError(gateReason(summary.Cart.Gate))
	}

	req := model.OrderRequest{
		DeliveryOptionID: in.DeliveryOptionID,
		AddressID:        in.AddressID,
		PaymentMethod:    in.PaymentMethod,
		Notes:            in.Notes,
		Items:            make([]model.OrderRequestRow, 0, len(summary.Cart.lines)),
	}
	for _, l := range summary.Cart.lines {
		req.Items = append(req.Items, model.OrderRequestRow{ProductID: l.ProductID, Quantity: l.Quantity})
	}

	key := uuid.NewString()
	order, err := s.backend.CreateOrder(ctx, req, key)
	if err != nil {
		s.logger.Error("order failed", "idempotency_key", key, "error", err)
		return nil, err
	}

	// The backend empties the cart once the order exists.
	s.cache.InvalidateTags(viewcache.TagCart)
	s.logger.Info("order placed",
		"order_id", order.ID,
		"idempotency_key", key,
		"total", summary.Totals.Total.String(),
	)
	return order, nil
}

// Processing reports whether an order submission is in flight.
func (s *Service) Processing() bool {
	return s.processing.Load()
}

func (s *Service) catalog(ctx context.Context) ([]model.Product, error) {
	return viewcache.Fetch(ctx, s.cache, catalogKey, []string{viewcache.TagCatalog}, s.backend.ListProducts)
}

func gateReason(g reconcile.Gate) string {
	parts := make([]string, 0, len(g.Messages))
	for _, m := range g.Messages {
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, "; ")
}
