// Package remote is the storefront backend REST client: auth, cart, wishlist,
// catalog, delivery options and orders.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"storefront/internal/model"
	"storefront/internal/transport"
)

// serviceName labels upstream errors surfaced to shoppers.
const serviceName = "storefront backend"

// userAgent identifies this client to the backend.
// Required: the CDN in front of the backend rate-limits requests without a User-Agent.
const userAgent = "Storefront-Agent/1.0"

// TokenSource supplies the bearer token for authenticated calls.
// An empty token sends the request anonymously.
type TokenSource interface {
	Token() string
}

// Config holds backend client configuration.
type Config struct {
	BaseURL    string
	APIKey     string        // optional X-API-Key
	Timeout    time.Duration // default 30s
	BrowserTLS bool          // present a Chrome TLS fingerprint
	Tokens     TokenSource
	HTTPClient *http.Client // overrides Timeout/BrowserTLS when set
}

// Client talks to the storefront backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	tokens     TokenSource
}

// New creates a backend client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("base URL is invalid: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = transport.NewHTTPClient(timeout, cfg.BrowserTLS)
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		tokens:     cfg.Tokens,
	}, nil
}

// === Auth ===

// Login exchanges credentials for an access token and user descriptor.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (*model.AuthResult, error) {
	var out model.AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/login/", creds, &out, "account"); err != nil {
		return nil, err
	}
	if out.Access == "" {
		return nil, model.NewUpstreamError(serviceName, fmt.Errorf("login response carried no access token"))
	}
	return &out, nil
}

// Register creates an account. The backend signs the new user in.
func (c *Client) Register(ctx context.Context, reg model.Registration) (*model.AuthResult, error) {
	var out model.AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/register/", reg, &out, "account"); err != nil {
		return nil, err
	}
	return &out, nil
}

// === Cart ===

// GetCart fetches the authenticated user's cart.
func (c *Client) GetCart(ctx context.Context) (*model.Cart, error) {
	var cart model.Cart
	if err := c.do(ctx, http.MethodGet, "/cart/", nil, &cart, "cart"); err != nil {
		return nil, err
	}
	if cart.Items == nil {
		cart.Items = []model.CartItem{}
	}
	return &cart, nil
}

// AddCartItem adds quantity of productID. The backend increments an existing line.
func (c *Client) AddCartItem(ctx context.Context, productID string, quantity int) error {
	body := map[string]any{"product_id": idValue(productID), "quantity": quantity}
	return c.do(ctx, http.MethodPost, "/cart/add/", body, nil, "product")
}

// UpdateCartItem sets the quantity of a cart item, addressed by item id.
func (c *Client) UpdateCartItem(ctx context.Context, itemID string, quantity int) error {
	body := map[string]any{"quantity": quantity}
	return c.do(ctx, http.MethodPatch, "/cart/items/"+url.PathEscape(itemID)+"/", body, nil, "cart item")
}

// RemoveCartItem deletes a cart item, addressed by item id.
func (c *Client) RemoveCartItem(ctx context.Context, itemID string) error {
	return c.do(ctx, http.MethodDelete, "/cart/items/"+url.PathEscape(itemID)+"/", nil, nil, "cart item")
}

// === Wishlist ===

// GetWishlist fetches the authenticated user's wishlist.
func (c *Client) GetWishlist(ctx context.Context) (*model.Wishlist, error) {
	var w model.Wishlist
	if err := c.do(ctx, http.MethodGet, "/wishlist/", nil, &w, "wishlist"); err != nil {
		return nil, err
	}
	if w.Items == nil {
		w.Items = []model.WishlistItem{}
	}
	return &w, nil
}

// AddToWishlist adds productID to the wishlist.
func (c *Client) AddToWishlist(ctx context.Context, productID string) error {
	body := map[string]any{"product_id": idValue(productID)}
	return c.do(ctx, http.MethodPost, "/wishlist/add/", body, nil, "product")
}

// RemoveFromWishlist removes productID from the wishlist.
func (c *Client) RemoveFromWishlist(ctx context.Context, productID string) error {
	return c.do(ctx, http.MethodDelete, "/wishlist/remove/"+url.PathEscape(productID)+"/", nil, nil, "wishlist item")
}

// === Catalog & checkout ===

// ListProducts fetches the full catalog.
func (c *Client) ListProducts(ctx context.Context) ([]model.Product, error) {
	var list model.ProductList
	if err := c.do(ctx, http.MethodGet, "/products/", nil, &list, "products"); err != nil {
		return nil, err
	}
	return []model.Product(list), nil
}

// GetProduct fetches one catalog entry.
func (c *Client) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	var p model.Product
	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id)+"/", nil, &p, "product"); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListDeliveryOptions fetches selectable delivery methods.
func (c *Client) ListDeliveryOptions(ctx context.Context) ([]model.DeliveryOption, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/delivery-options/", nil, &raw, "delivery options"); err != nil {
		return nil, err
	}
	opts, err := decodeList[model.DeliveryOption](raw)
	if err != nil {
		return nil, fmt.Errorf("parsing delivery options: %w", err)
	}
	return opts, nil
}

// CreateOrder places an order. idempotencyKey is sent as Idempotency-Key so a
// retried submit does not create a second order on backends that honour it.
func (c *Client) CreateOrder(ctx context.Context, req model.OrderRequest, idempotencyKey string) (*model.Order, error) {
	var order model.Order
	header := http.Header{}
	if idempotencyKey != "" {
		header.Set("Idempotency-Key", idempotencyKey)
	}
	if err := c.send(ctx, http.MethodPost, "/orders/", req, &order, "order", header); err != nil {
		return nil, err
	}
	return &order, nil
}

// === Plumbing ===

// do sends body as JSON and decodes a 2xx response into out (when non-nil).
// resource names the thing a 404 refers to.
func (c *Client) do(ctx context.Context, method, path string, body, out any, resource string) error {
	return c.send(ctx, method, path, body, out, resource, nil)
}

// send is do with extra per-request headers.
func (c *Client) send(ctx context.Context, method, path string, body, out any, resource string, header http.Header) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)
	for name, values := range header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.NewUpstreamError(serviceName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseErrorResponse(resp.StatusCode, respBody, resource)
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return model.NewUpstreamError(serviceName, fmt.Errorf("parsing %s %s response: %w", method, path, err))
	}
	return nil
}

// setHeaders sets headers common to every backend call.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())

	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
}

// errorBody covers the shapes the backend uses for errors.
type errorBody struct {
	Detail  string `json:"detail"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e errorBody) text() string {
	switch {
	case e.Detail != "":
		return e.Detail
	case e.Error != "":
		return e.Error
	default:
		return e.Message
	}
}

// parseErrorResponse converts a backend error response to an APIError.
func parseErrorResponse(statusCode int, body []byte, resource string) error {
	var eb errorBody
	json.Unmarshal(body, &eb) // Best effort parse
	msg := eb.text()

	switch statusCode {
	case http.StatusNotFound:
		return model.NewNotFoundError(resource)
	case http.StatusUnauthorized, http.StatusForbidden:
		if msg == "" {
			msg = "authentication required"
		}
		return model.NewUnauthorizedError(msg)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		if msg == "" {
			msg = firstFieldError(body)
		}
		if msg == "" {
			msg = "invalid request"
		}
		return model.NewValidationError(resource, msg)
	case http.StatusConflict:
		if msg == "" {
			msg = "request conflicts with current state"
		}
		return model.NewConflictError("CONFLICT", msg)
	case http.StatusTooManyRequests:
		return model.NewRateLimitError(serviceName)
	default:
		return model.NewUpstreamError(serviceName, fmt.Errorf("status %d: %s", statusCode, msg))
	}
}

// firstFieldError extracts a message from a {"field": ["msg"]} validation body.
func firstFieldError(body []byte) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}
	for _, field := range slices.Sorted(maps.Keys(fields)) {
		var msgs []string
		if json.Unmarshal(fields[field], &msgs) == nil && len(msgs) > 0 {
			return field + ": " + msgs[0]
		}
	}
	return ""
}

// idValue sends canonical integer ids as JSON numbers, others as strings.
// "007" and "+5" stay strings so the id round-trips unchanged.
func idValue(id string) any {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil && strconv.FormatInt(n, 10) == id {
		return n
	}
	return id
}

// decodeList accepts a bare array or a {"results": [...]} page.
func decodeList[T any](raw json.RawMessage) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return []T{}, nil
	}
	if trimmed[0] == '[' {
		var out []T
		err := json.Unmarshal(trimmed, &out)
		return out, err
	}
	var page struct {
		Results []T `json:"results"`
	}
	err := json.Unmarshal(trimmed, &page)
	return page.Results, err
}
