package handler

import (
	"log/slog"
	"net/http"

	"storefront/internal/storefront"
)

// handleCheckoutSummary prices the cart with an optional delivery option.
// GET /checkout/summary?delivery_option_id=
func (h *Handler) handleCheckoutSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.shop.Summary(r.Context(), r.URL.Query().Get("delivery_option_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// handlePlaceOrder submits the signed-in shopper's cart.
// POST /orders
func (h *Handler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req storefront.OrderInput
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "placing order",
		slog.String("delivery_option_id", req.DeliveryOptionID),
		slog.Bool("has_address", req.AddressID != ""),
		slog.String("payment_method", req.PaymentMethod),
	)

	order, err := h.shop.PlaceOrder(ctx, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, order)
}
