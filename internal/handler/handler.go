// Package handler provides the HTTP and MCP surface of the storefront agent.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"storefront/internal/account"
	"storefront/internal/gateway"
	"storefront/internal/model"
	"storefront/internal/storefront"
)

// Shop builds priced views and places orders. *storefront.Service implements it.
type Shop interface {
	Cart(ctx context.Context) (*storefront.CartView, error)
	Wishlist(ctx context.Context) (*storefront.WishlistView, error)
	Summary(ctx context.Context, deliveryOptionID string) (*storefront.Summary, error)
	PlaceOrder(ctx context.Context, in storefront.OrderInput) (*model.Order, error)
}

// Accounts runs the login flow. *account.Service implements it.
type Accounts interface {
	Login(ctx context.Context, creds model.Credentials) (*account.LoginResult, error)
	Register(ctx context.Context, reg model.Registration) (*account.LoginResult, error)
	Logout(ctx context.Context)
}

// SessionInfo is the read side of the session. *session.Session implements it.
type SessionInfo interface {
	IsAuthenticated(ctx context.Context) bool
	User() (model.User, bool)
	ExpiresAt() time.Time
}

// Deps holds the Handler dependencies.
type Deps struct {
	Gateway  gateway.Gateway
	Shop     Shop
	Accounts Accounts
	Session  SessionInfo
	Logger   *slog.Logger
	Version  string
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	gateway  gateway.Gateway
	shop     Shop
	accounts Accounts
	session  SessionInfo
	logger   *slog.Logger
	version  string
}

// New creates a Handler.
func New(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Version == "" {
		d.Version = "dev"
	}
	return &Handler{
		gateway:  d.Gateway,
		shop:     d.Shop,
		accounts: d.Accounts,
		session:  d.Session,
		logger:   d.Logger,
		version:  d.Version,
	}
}

// RegisterRoutes registers all HTTP routes with the given ServeMux.
// Uses Go 1.22+ method routing patterns.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /cart", h.handleGetCart)
	mux.HandleFunc("GET /cart/count", h.handleCartCount)
	mux.HandleFunc("POST /cart/items", h.handleAddToCart)
	mux.HandleFunc("PUT /cart/items/{product_id}", h.handleUpdateCartItem)
	mux.HandleFunc("DELETE /cart/items/{product_id}", h.handleRemoveFromCart)
	mux.HandleFunc("DELETE /cart", h.handleClearCart)

	mux.HandleFunc("GET /wishlist", h.handleGetWishlist)
	mux.HandleFunc("GET /wishlist/count", h.handleWishlistCount)
	mux.HandleFunc("POST /wishlist/items", h.handleAddToWishlist)
	mux.HandleFunc("GET /wishlist/items/{product_id}", h.handleIsWishlisted)
	mux.HandleFunc("DELETE /wishlist/items/{product_id}", h.handleRemoveFromWishlist)
	mux.HandleFunc("DELETE /wishlist", h.handleClearWishlist)

	mux.HandleFunc("GET /session", h.handleGetSession)
	mux.HandleFunc("POST /session/login", h.handleLogin)
	mux.HandleFunc("POST /session/register", h.handleRegister)
	mux.HandleFunc("POST /session/logout", h.handleLogout)

	mux.HandleFunc("GET /checkout/summary", h.handleCheckoutSummary)
	mux.HandleFunc("POST /orders", h.handlePlaceOrder)

	// MCP transport - JSON-RPC endpoint using official MCP SDK
	mux.Handle("/mcp", h.NewMCPHandler())

	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /healthz", h.handleHealth)
}

// === Response Helpers ===

// writeJSON sends a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError sends an error response, extracting status/code from APIError if present.
// Uses errors.As() to unwrap error chains (e.g., fmt.Errorf wrapping).
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	apiErr := h.toAPIError(err)
	h.writeJSON(w, apiErr.StatusCode, errorResponse{
		Error: errorBody{
			Code:     apiErr.Code,
			Message:  apiErr.Message,
			Severity: mapStatusToSeverity(apiErr.StatusCode),
		},
	})
}

func (h *Handler) toAPIError(err error) *model.APIError {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	h.logger.Error("internal error", slog.String("error", err.Error()))
	return model.NewInternalError(err)
}

// errorResponse is the JSON structure for error responses.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code     string                `json:"code"`
	Message  string                `json:"message"`
	Severity model.MessageSeverity `json:"severity"`
}

// MaxRequestBodySize limits JSON request bodies to 1MB to prevent DoS.
const MaxRequestBodySize = 1 << 20 // 1MB

// mapStatusToSeverity tells the presentation layer whether the shopper can fix
// the problem by changing input.
func mapStatusToSeverity(statusCode int) model.MessageSeverity {
	switch statusCode {
	case 400, 409, 422: // Bad Request, Conflict, Unprocessable
		return model.SeverityRecoverable
	case 429:
		return model.SeverityRecoverable // Rate limit - can retry later
	case 401, 403, 404:
		return model.SeverityUnrecoverable
	default:
		return model.SeverityUnrecoverable
	}
}

// decodeJSON reads JSON from request body into v.
// Limits body size to MaxRequestBodySize to prevent memory exhaustion.
// Returns an APIError if decoding fails.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Don't expose internal error details to client
		return model.NewValidationError("body", "invalid JSON")
	}
	return nil
}
