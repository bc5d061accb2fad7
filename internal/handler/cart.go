package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"storefront/internal/model"
)

type addToCartRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity"`
}

type productRequest struct {
	ProductID string `json:"product_id"`
}

type countResponse struct {
	Count int `json:"count"`
}

type wishlistedResponse struct {
	ProductID  string `json:"product_id"`
	Wishlisted bool   `json:"wishlisted"`
}

// pathProductID reads {product_id} and rejects blanks.
func pathProductID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.PathValue("product_id"))
	if id == "" {
		return "", model.NewValidationError("product_id", "required")
	}
	return id, nil
}

// handleGetCart returns the priced cart.
// GET /cart
func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	h.respondCart(w, r, http.StatusOK)
}

func (h *Handler) respondCart(w http.ResponseWriter, r *http.Request, status int) {
	view, err := h.shop.Cart(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, status, view)
}

// handleCartCount returns the summed line quantities.
// GET /cart/count
func (h *Handler) handleCartCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.gateway.CartCount(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, countResponse{Count: n})
}

// handleAddToCart increments a product's line.
// POST /cart/items
func (h *Handler) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req addToCartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	req.ProductID = strings.TrimSpace(req.ProductID)
	if req.ProductID == "" {
		h.writeError(w, model.NewValidationError("product_id", "required"))
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 {
		h.writeError(w, model.NewValidationError("quantity", "must be positive"))
		return
	}

	h.logger.InfoContext(ctx, "adding to cart",
		slog.String("product_id", req.ProductID),
		slog.Int("quantity", req.Quantity),
	)

	if err := h.gateway.AddToCart(ctx, req.ProductID, req.Quantity); err != nil {
		h.writeError(w, err)
		return
	}
	h.respondCart(w, r, http.StatusOK)
}

// handleUpdateCartItem sets a line's quantity; zero or less removes it.
// PUT /cart/items/{product_id}
func (h *Handler) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	productID, err := pathProductID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req updateCartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.Quantity == nil {
		h.writeError(w, model.NewValidationError("quantity", "required"))
		return
	}

	h.logger.InfoContext(ctx, "updating cart item",
		slog.String("product_id", productID),
		slog.Int("quantity", *req.Quantity),
	)

	if err := h.gateway.UpdateCartItem(ctx, productID, *req.Quantity); err != nil {
		h.writeError(w, err)
		return
	}
	h.respondCart(w, r, http.StatusOK)
}

// handleRemoveFromCart drops a product's line.
// DELETE /cart/items/{product_id}
func (h *Handler) handleRemoveFromCart(w http.ResponseWriter, r *http.Request) {
	productID, err := pathProductID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.gateway.RemoveFromCart(r.Context(), productID); err != nil {
		h.writeError(w, err)
		return
	}
	h.respondCart(w, r, http.StatusOK)
}

// handleClearCart empties the cart.
// DELETE /cart
func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.gateway.ClearCart(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetWishlist returns the wishlist.
// GET /wishlist
func (h *Handler) handleGetWishlist(w http.ResponseWriter, r *http.Request) {
	h.respondWishlist(w, r)
}

func (h *Handler) respondWishlist(w http.ResponseWriter, r *http.Request) {
	view, err := h.shop.Wishlist(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// GET /wishlist/count
func (h *Handler) handleWishlistCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.gateway.WishlistCount(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, countResponse{Count: n})
}

// handleAddToWishlist adds a product; adding twice keeps one entry.
// POST /wishlist/items
func (h *Handler) handleAddToWishlist(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	req.ProductID = strings.TrimSpace(req.ProductID)
	if req.ProductID == "" {
		h.writeError(w, model.NewValidationError("product_id", "required"))
		return
	}
	if err := h.gateway.AddToWishlist(r.Context(), req.ProductID); err != nil {
		h.writeError(w, err)
		return
	}
	h.respondWishlist(w, r)
}

// GET /wishlist/items/{product_id}
func (h *Handler) handleIsWishlisted(w http.ResponseWriter, r *http.Request) {
	productID, err := pathProductID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	ok, err := h.gateway.IsWishlisted(r.Context(), productID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, wishlistedResponse{ProductID: productID, Wishlisted: ok})
}

// DELETE /wishlist/items/{product_id}
func (h *Handler) handleRemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	productID, err := pathProductID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.gateway.RemoveFromWishlist(r.Context(), productID); err != nil {
		h.writeError(w, err)
		return
	}
	h.respondWishlist(w, r)
}

// DELETE /wishlist
func (h *Handler) handleClearWishlist(w http.ResponseWriter, r *http.Request) {
	if err := h.gateway.ClearWishlist(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
