// Package model defines the storefront data structures shared by the guest store,
// the backend client and the agent surface.
package model

import (
	"encoding/json"
	"strconv"
	"time"
)

// === Guest (local) types ===

// GuestLine is one product's entry in the locally persisted guest cart.
// At most one line exists per ProductID. AddedAt is set once and never bumped.
type GuestLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	AddedAt   string `json:"added_at"`
}

// WishlistEntry is one product in the locally persisted guest wishlist.
type WishlistEntry struct {
	ProductID string `json:"product_id"`
	AddedAt   string `json:"added_at"`
}

// === Backend DTOs ===

// ID is an opaque backend identifier. The backend emits both 42 and "42",
// so it decodes either form into a string.
type ID string

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		s, err := strconv.Unquote(string(data))
		if err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	if string(data) == "null" {
		*id = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Product is a catalog entry. StockQuantity is nil when the backend omits it,
// which keeps the stock state "unknown" rather than "out of stock".
type Product struct {
	ID            ID     `json:"id"`
	Name          string `json:"name"`
	Slug          string `json:"slug,omitempty"`
	Price         Price  `json:"price"`
	Image         string `json:"image,omitempty"`
	StockQuantity *int   `json:"stock_quantity,omitempty"`
	Category      string `json:"category,omitempty"`
	IsActive      *bool  `json:"is_active,omitempty"`
}

// CartItem is one backend cart line. Its ID addresses the item, not the product.
type CartItem struct {
	ID       ID      `json:"id"`
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
	Subtotal *Price  `json:"subtotal,omitempty"` // advisory, recomputed client-side
}

// Cart is the cart-shaped value returned by every gateway.
// For guests Items is empty and Guest is true; lines are joined against the catalog
// by the presentation layer.
type Cart struct {
	ID         ID         `json:"id"`
	Items      []CartItem `json:"items"`
	TotalPrice *Price     `json:"total_price,omitempty"` // advisory, never trusted
	Guest      bool       `json:"guest,omitempty"`
}

// WishlistItem is one backend wishlist entry.
type WishlistItem struct {
	ID      ID      `json:"id"`
	Product Product `json:"product"`
	AddedAt string  `json:"added_at,omitempty"`
}

// Wishlist is the wishlist-shaped value returned by every gateway.
// For guests Items carries product stubs (ID only) and Guest is true.
type Wishlist struct {
	ID    ID             `json:"id,omitempty"`
	Items []WishlistItem `json:"items"`
	Guest bool           `json:"guest,omitempty"`
}

// UnmarshalJSON accepts both {"items": [...]} and a bare array.
func (w *Wishlist) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		var items []WishlistItem
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*w = Wishlist{Items: items}
		return nil
	}
	type alias Wishlist
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*w = Wishlist(a)
	return nil
}

// Has reports whether productID is in the wishlist.
func (w *Wishlist) Has(productID string) bool {
	for _, it := range w.Items {
		if string(it.Product.ID) == productID {
			return true
		}
	}
	return false
}

// === Session ===

// User is the authenticated user's descriptor. Held in memory only.
type User struct {
	ID        ID     `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the sign-up request body.
type Registration struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// AuthResult is the backend's response to login and register.
type AuthResult struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
	User    User   `json:"user"`
}

// === Checkout ===

// DeliveryOption is a selectable delivery method with its fee.
type DeliveryOption struct {
	ID            ID     `json:"id"`
	Name          string `json:"name"`
	Price         Price  `json:"price"`
	EstimatedDays string `json:"estimated_days,omitempty"`
}

// OrderRequest is the order creation body sent to the backend.
type OrderRequest struct {
	DeliveryOptionID string            `json:"delivery_option_id,omitempty"`
	AddressID        string            `json:"address_id,omitempty"`
	PaymentMethod    string            `json:"payment_method,omitempty"`
	Notes            string            `json:"notes,omitempty"`
	Items            []OrderRequestRow `json:"items,omitempty"`
}

// OrderRequestRow is one line of an order request.
type OrderRequestRow struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Order is the backend's order record.
type Order struct {
	ID          ID        `json:"id"`
	OrderNumber string    `json:"order_number,omitempty"`
	Status      string    `json:"status"`
	TotalAmount Price     `json:"total_amount"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// ProductList decodes a products response that is either a bare array or a
// paginated {"results": [...]} envelope.
type ProductList []Product

// UnmarshalJSON accepts both list shapes.
func (l *ProductList) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		var items []Product
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var page struct {
		Results []Product `json:"results"`
	}
	if err := json.Unmarshal(data, &page); err != nil {
		return err
	}
	*l = page.Results
	return nil
}

// === Messages ===

// MessageSeverity tells the presentation layer how to treat an error message.
type MessageSeverity string

const (
	SeverityRecoverable   MessageSeverity = "recoverable"   // shopper can fix it (e.g. lower quantity)
	SeverityUnrecoverable MessageSeverity = "unrecoverable" // shopper must remove the line
)

// Message is shopper-facing inline messaging attached to a cart view or summary.
type Message struct {
	Type      string `json:"type"`                 // "error", "warning", "info"
	Code      string `json:"code,omitempty"`       // e.g. "out_of_stock", "exceeds_stock"
	Content   string `json:"content"`              // human-readable
	ProductID string `json:"product_id,omitempty"` // line the message refers to
	Severity  string `json:"severity,omitempty"`   // set for errors only
}

// NewErrorMessage creates an error message for a specific line.
func NewErrorMessage(code, content, productID string, severity MessageSeverity) Message {
	return Message{
		Type:      "error",
		Code:      code,
		Content:   content,
		ProductID: productID,
		Severity:  string(severity),
	}
}

// NewInfoMessage creates an informational message.
func NewInfoMessage(code, content string) Message {
	return Message{
		Type:    "info",
		Code:    code,
		Content: content,
	}
}

// NewWarningMessage creates a warning message.
// Warnings never block checkout.
func NewWarningMessage(code, content string) Message {
	return Message{
		Type:    "warning",
		Code:    code,
		Content: content,
	}
}
