// MCP transport for the storefront agent using the official MCP Go SDK.
// Exposes the cart, wishlist and checkout summary as MCP tools.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"storefront/internal/model"
)

// === MCP Tool Input Types ===

// EmptyInput is the input schema for tools that take no arguments.
type EmptyInput struct{}

// ProductInput identifies one product.
type ProductInput struct {
	ProductID string `json:"product_id" jsonschema:"catalog product ID"`
}

// QuantityInput is the input schema for add_to_cart and update_cart_item.
type QuantityInput struct {
	ProductID string `json:"product_id" jsonschema:"catalog product ID"`
	Quantity  int    `json:"quantity,omitempty" jsonschema:"quantity; add defaults to 1, update with 0 removes the line"`
}

// SummaryInput is the input schema for checkout_summary.
type SummaryInput struct {
	DeliveryOptionID string `json:"delivery_option_id,omitempty" jsonschema:"selected delivery option ID"`
}

// NewMCPServer creates an MCP server with storefront tools registered.
// The server exposes the same operations as the REST API but via MCP protocol.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "storefront-agent",
			Version: h.version,
		},
		&mcp.ServerOptions{
			Instructions: "Storefront cart and wishlist. Works for guests and signed-in shoppers alike; " +
				"prices and stock checks are computed by the agent.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_cart",
		Description: "Get the priced cart with stock state and checkout gate.",
	}, h.mcpGetCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_to_cart",
		Description: "Add a product to the cart, incrementing its quantity when already present.",
	}, h.mcpAddToCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_cart_item",
		Description: "Set a cart line's quantity. Zero removes the line.",
	}, h.mcpUpdateCartItem)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remove_from_cart",
		Description: "Remove a product from the cart.",
	}, h.mcpRemoveFromCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_wishlist",
		Description: "Get the wishlist.",
	}, h.mcpGetWishlist)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_to_wishlist",
		Description: "Add a product to the wishlist. Adding twice keeps one entry.",
	}, h.mcpAddToWishlist)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remove_from_wishlist",
		Description: "Remove a product from the wishlist.",
	}, h.mcpRemoveFromWishlist)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "checkout_summary",
		Description: "Price the cart with delivery options and report whether checkout is blocked.",
	}, h.mcpCheckoutSummary)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
// Mount this at /mcp on your mux.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===

func (h *Handler) mcpGetCart(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, any, error) {
	view, err := h.shop.Cart(ctx)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, view, nil
}

func (h *Handler) mcpAddToCart(ctx context.Context, _ *mcp.CallToolRequest, input QuantityInput) (*mcp.CallToolResult, any, error) {
	productID, err := requireProductID(input.ProductID)
	if err != nil {
		return nil, nil, err
	}
	qty := input.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		return nil, nil, fmt.Errorf("quantity must be positive")
	}

	if err := h.gateway.AddToCart(ctx, productID, qty); err != nil {
		return nil, nil, h.mcpError(err)
	}
	return h.mcpGetCart(ctx, nil, EmptyInput{})
}

func (h *Handler) mcpUpdateCartItem(ctx context.Context, _ *mcp.CallToolRequest, input QuantityInput) (*mcp.CallToolResult, any, error) {
	productID, err := requireProductID(input.ProductID)
	if err != nil {
		return nil, nil, err
	}
	if err := h.gateway.UpdateCartItem(ctx, productID, input.Quantity); err != nil {
		return nil, nil, h.mcpError(err)
	}
	return h.mcpGetCart(ctx, nil, EmptyInput{})
}

func (h *Handler) mcpRemoveFromCart(ctx context.Context, _ *mcp.CallToolRequest, input ProductInput) (*mcp.CallToolResult, any, error) {
	productID, err := requireProductID(input.ProductID)
	if err != nil {
		return nil, nil, err
	}
	if err := h.gateway.RemoveFromCart(ctx, productID); err != nil {
		return nil, nil, h.mcpError(err)
	}
	return h.mcpGetCart(ctx, nil, EmptyInput{})
}

func (h *Handler) mcpGetWishlist(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, any, error) {
	view, err := h.shop.Wishlist(ctx)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, view, nil
}

func (h *Handler) mcpAddToWishlist(ctx context.Context, _ *mcp.CallToolRequest, input ProductInput) (*mcp.CallToolResult, any, error) {
	productID, err := requireProductID(input.ProductID)
	if err != nil {
		return nil, nil, err
	}
	if err := h.gateway.AddToWishlist(ctx, productID); err != nil {
		return nil, nil, h.mcpError(err)
	}
	return h.mcpGetWishlist(ctx, nil, EmptyInput{})
}

func (h *Handler) mcpRemoveFromWishlist(ctx context.Context, _ *mcp.CallToolRequest, input ProductInput) (*mcp.CallToolResult, any, error) {
	productID, err := requireProductID(input.ProductID)
	if err != nil {
		return nil, nil, err
	}
	if err := h.gateway.RemoveFromWishlist(ctx, productID); err != nil {
		return nil, nil, h.mcpError(err)
	}
	return h.mcpGetWishlist(ctx, nil, EmptyInput{})
}

func (h *Handler) mcpCheckoutSummary(ctx context.Context, _ *mcp.CallToolRequest, input SummaryInput) (*mcp.CallToolResult, any, error) {
	summary, err := h.shop.Summary(ctx, input.DeliveryOptionID)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, summary, nil
}

func requireProductID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("product_id is required")
	}
	return id, nil
}

// mcpError converts service errors to MCP-friendly errors.
func (h *Handler) mcpError(err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}
	// Don't leak internal error details
	h.logger.Error("mcp internal error", "error", err.Error())
	return fmt.Errorf("internal error")
}
