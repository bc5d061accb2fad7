// cartctl drives a running storefront agent from the terminal.
// Each command performs a single operation, making it composable for scripts.
//
// Commands:
//
//	cartctl cart | add | update | remove | clear
//	cartctl wishlist | wish | unwish
//	cartctl login | logout
//	cartctl summary | order
//
// Examples:
//
//	cartctl add -product 42 -qty 2
//	cartctl login -email jane@example.com -password "$PW"
//	cartctl summary -delivery 3
//	ORDER=$(cartctl order -delivery 3 -payment mpesa -q)
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// clientVersion is sent in the Storefront-Client header.
var clientVersion = "1.0.0"

var client = &http.Client{Timeout: 30 * time.Second}

// Global flags (apply to all commands)
var (
	agentURL string
	quiet    bool
	noColor  bool
	verbose  bool
)

// ANSI color codes
var (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

func init() {
	if os.Getenv("NO_COLOR") != "" {
		disableColors()
	}
}

func disableColors() {
	colorReset, colorRed, colorGreen, colorYellow = "", "", "", ""
	colorBlue, colorCyan, colorGray, colorBold = "", "", "", ""
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "cart":
		runCart(args)
	case "add":
		runAdd(args)
	case "update":
		runUpdate(args)
	case "remove":
		runRemove(args)
	case "clear":
		runClear(args)
	case "wishlist":
		runWishlist(args)
	case "wish":
		runWish(args)
	case "unwish":
		runUnwish(args)
	case "login":
		runLogin(args)
	case "logout":
		runLogout(args)
	case "summary":
		runSummary(args)
	case "order":
		runOrder(args)
	case "-h", "-help", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `cartctl - storefront agent CLI

Usage:
  cartctl <command> [options]

Commands:
  cart      Show the cart with prices and checkout state
  add       Add a product to the cart
  update    Set a cart line's quantity (0 removes it)
  remove    Remove a product from the cart
  clear     Empty the cart (-wishlist empties the wishlist)
  wishlist  Show the wishlist
  wish      Add a product to the wishlist
  unwish    Remove a product from the wishlist
  login     Sign in and sync the guest cart and wishlist
  logout    Sign out (the guest cart stays on this device)
  summary   Show the checkout summary
  order     Place an order (requires sign-in)

Examples:
  cartctl add -product 42 -qty 2
  cartctl login -email jane@example.com -password "$PW"
  cartctl summary -delivery 3
  ORDER=$(cartctl order -delivery 3 -payment mpesa -q)

Run 'cartctl <command> -h' for command-specific options.
`)
}

// newFlagSet registers the global flags on a command's flag set.
func newFlagSet(name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.StringVar(&agentURL, "agent", envOr("CARTCTL_AGENT", "http://localhost:8080"), "Storefront agent base URL")
	fs.BoolVar(&quiet, "q", false, "Quiet mode - only output the essential value")
	fs.BoolVar(&noColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&verbose, "v", false, "Verbose - show full request/response")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cartctl %s\n\nOptions:\n", usage)
		fs.PrintDefaults()
	}
	return fs
}

func parse(fs *flag.FlagSet, args []string) {
	fs.Parse(args)
	if noColor {
		disableColors()
	}
	agentURL = strings.TrimSuffix(agentURL, "/")
}

// =============================================================================
// CART COMMANDS
// =============================================================================

func runCart(args []string) {
	fs := newFlagSet("cart", "cart [options]")
	parse(fs, args)

	resp, err := doRequest("GET", "/cart", nil)
	if err != nil {
		fatal("Failed to get cart: %v", err)
	}
	printCart(resp)
}

func runAdd(args []string) {
	fs := newFlagSet("add", "add -product ID [-qty N] [options]")
	var productID string
	var quantity int
	fs.StringVar(&productID, "product", "", "Product ID (required)")
	fs.IntVar(&quantity, "qty", 1, "Quantity")
	parse(fs, args)

	if productID == "" {
		fs.Usage()
		os.Exit(1)
	}

	resp, err := doRequest("POST", "/cart/items", map[string]any{
		"product_id": productID,
		"quantity":   quantity,
	})
	if err != nil {
		fatal("Failed to add to cart: %v", err)
	}
	printSuccess("Added %d × %s", quantity, productID)
	printCart(resp)
}

func runUpdate(args []string) {
	fs := newFlagSet("update", "update -product ID -qty N [options]")
	var productID string
	var quantity int
	fs.StringVar(&productID, "product", "", "Product ID (required)")
	fs.IntVar(&quantity, "qty", -1, "New quantity; 0 removes the line (required)")
	parse(fs, args)

	if productID == "" || quantity < 0 {
		fs.Usage()
		os.Exit(1)
	}

	resp, err := doRequest("PUT", "/cart/items/"+url.PathEscape(productID), map[string]any{
		"quantity": quantity,
	})
	if err != nil {
		fatal("Failed to update cart: %v", err)
	}
	if quantity == 0 {
		printSuccess("Removed %s", productID)
	} else {
		printSuccess("Set %s to %d", productID, quantity)
	}
	printCart(resp)
}

func runRemove(args []string) {
	fs := newFlagSet("remove", "remove -product ID [options]")
	var productID string
	fs.StringVar(&productID, "product", "", "Product ID (required)")
	parse(fs, args)

	if productID == "" {
		fs.Usage()
		os.Exit(1)
	}

	resp, err := doRequest("DELETE", "/cart/items/"+url.PathEscape(productID), nil)
	if err != nil {
		fatal("Failed to remove from cart: %v", err)
	}
	printSuccess("Removed %s", productID)
	printCart(resp)
}

func runClear(args []string) {
	fs := newFlagSet("clear", "clear [-wishlist] [options]")
	var wishlist bool
	fs.BoolVar(&wishlist, "wishlist", false, "Clear the wishlist instead of the cart")
	parse(fs, args)

	path, what := "/cart", "Cart"
	if wishlist {
		path, what = "/wishlist", "Wishlist"
	}
	if _, err := doRequest("DELETE", path, nil); err != nil {
		fatal("Failed to clear: %v", err)
	}
	printSuccess("%s cleared", what)
}

// =============================================================================
// WISHLIST COMMANDS
// =============================================================================

func runWishlist(args []string) {
	fs := newFlagSet("wishlist", "wishlist [options]")
	parse(fs, args)

	resp, err := doRequest("GET", "/wishlist", nil)
	if err != nil {
		fatal("Failed to get wishlist: %v", err)
	}
	printWishlist(resp)
}

func runWish(args []string) {
	fs := newFlagSet("wish", "wish -product ID [options]")
	var productID string
	fs.StringVar(&productID, "product", "", "Product ID (required)")
	parse(fs, args)

	if productID == "" {
		fs.Usage()
		os.Exit(1)
	}

	resp, err := doRequest("POST", "/wishlist/items", map[string]any{"product_id": productID})
	if err != nil {
		fatal("Failed to add to wishlist: %v", err)
	}
	printSuccess("Wishlisted %s", productID)
	printWishlist(resp)
}

func runUnwish(args []string) {
	fs := newFlagSet("unwish", "unwish -product ID [options]")
	var productID string
	fs.StringVar(&productID, "product", "", "Product ID (required)")
	parse(fs, args)

	if productID == "" {
		fs.Usage()
		os.Exit(1)
	}

	resp, err := doRequest("DELETE", "/wishlist/items/"+url.PathEscape(productID), nil)
	if err != nil {
		fatal("Failed to remove from wishlist: %v", err)
	}
	printSuccess("Removed %s from wishlist", productID)
	printWishlist(resp)
}

// =============================================================================
// SESSION COMMANDS
// =============================================================================

func runLogin(args []string) {
	fs := newFlagSet("login", "login -email EMAIL [-password PW] [options]")
	var email, password string
	fs.StringVar(&email, "email", "", "Account email (required)")
	fs.StringVar(&password, "password", os.Getenv("CARTCTL_PASSWORD"), "Account password (default $CARTCTL_PASSWORD)")
	parse(fs, args)

	if email == "" || password == "" {
		fs.Usage()
		os.Exit(1)
	}

	resp, err := doRequest("POST", "/session/login", map[string]any{
		"email":    email,
		"password": password,
	})
	if err != nil {
		fatal("Login failed: %v", err)
	}

	user, _ := resp["user"].(map[string]any)
	userEmail, _ := user["email"].(string)
	if quiet {
		fmt.Println(userEmail)
		return
	}
	printSuccess("Signed in as %s", userEmail)
	printSync(resp["sync"])
}

func runLogout(args []string) {
	fs := newFlagSet("logout", "logout [options]")
	parse(fs, args)

	if _, err := doRequest("POST", "/session/logout", nil); err != nil {
		fatal("Logout failed: %v", err)
	}
	printSuccess("Signed out")
}

// =============================================================================
// CHECKOUT COMMANDS
// =============================================================================

func runSummary(args []string) {
	fs := newFlagSet("summary", "summary [-delivery ID] [options]")
	var deliveryID string
	fs.StringVar(&deliveryID, "delivery", "", "Delivery option ID")
	parse(fs, args)

	path := "/checkout/summary"
	if deliveryID != "" {
		path += "?delivery_option_id=" + url.QueryEscape(deliveryID)
	}
	resp, err := doRequest("GET", path, nil)
	if err != nil {
		fatal("Failed to get summary: %v", err)
	}

	if cart, ok := resp["cart"].(map[string]any); ok {
		printCart(cart)
	}
	if quiet {
		return
	}

	if options, ok := resp["delivery_options"].([]any); ok && len(options) > 0 {
		fmt.Printf("\n%sDelivery options:%s\n", colorBold, colorReset)
		for _, o := range options {
			opt, _ := o.(map[string]any)
			marker := " "
			if sel, _ := opt["selected"].(bool); sel {
				marker = colorGreen + "●" + colorReset
			}
			fmt.Printf("  %s %s%v%s  %v  %s\n", marker, colorCyan, opt["id"], colorReset, opt["name"], formatMoney(opt["fee"]))
		}
	}
	if totals, ok := resp["totals"].(map[string]any); ok {
		fmt.Printf("\n  Subtotal: %s\n", formatMoney(totals["subtotal"]))
		fmt.Printf("  Delivery: %s\n", formatMoney(totals["delivery_fee"]))
		fmt.Printf("  %sTotal:    %s%s\n", colorBold, formatMoney(totals["total"]), colorReset)
	}
}

func runOrder(args []string) {
	fs := newFlagSet("order", "order -delivery ID [-payment METHOD] [-address ID] [-notes TEXT] [options]")
	var in struct {
		DeliveryOptionID string `json:"delivery_option_id"`
		AddressID        string `json:"address_id,omitempty"`
		PaymentMethod    string `json:"payment_method,omitempty"`
		Notes            string `json:"notes,omitempty"`
	}
	fs.StringVar(&in.DeliveryOptionID, "delivery", "", "Delivery option ID (required)")
	fs.StringVar(&in.AddressID, "address", "", "Saved address ID")
	fs.StringVar(&in.PaymentMethod, "payment", "", "Payment method")
	fs.StringVar(&in.Notes, "notes", "", "Order notes")
	parse(fs, args)

	if in.DeliveryOptionID == "" {
		fs.Usage()
		os.Exit(1)
	}

	resp, err := doRequest("POST", "/orders", in)
	if err != nil {
		fatal("Failed to place order: %v", err)
	}

	number, _ := resp["order_number"].(string)
	if number == "" {
		number = fmt.Sprint(resp["id"])
	}
	if quiet {
		fmt.Println(number)
		return
	}
	printSuccess("Order placed")
	fmt.Printf("  Order: %s%s%s\n", colorGreen, number, colorReset)
	if status, ok := resp["status"].(string); ok {
		fmt.Printf("  Status: %s\n", status)
	}
}

// =============================================================================
// HTTP HELPERS
// =============================================================================

// agentError is the agent's JSON error envelope.
type agentError struct {
	Error struct {
		Code     string `json:"code"`
		Message  string `json:"message"`
		Severity string `json:"severity"`
	} `json:"error"`
}

func doRequest(method, path string, body any) (map[string]any, error) {
	var reqBody io.Reader
	var reqJSON []byte

	if body != nil {
		var err error
		reqJSON, err = json.MarshalIndent(body, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		reqBody = bytes.NewReader(reqJSON)
	}

	req, err := http.NewRequest(method, agentURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Storefront-Client", fmt.Sprintf(`version="%s", platform="cli"`, clientVersion))

	if verbose && !quiet {
		printRequest(method, path, redact(reqJSON))
	}

	start := time.Now()
	resp, err := client.Do(req)
	duration := time.Since(start)

	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if verbose && !quiet {
		printResponse(resp.StatusCode, respBody, duration)
	}

	if resp.StatusCode >= 400 {
		var ae agentError
		if json.Unmarshal(respBody, &ae) == nil && ae.Error.Code != "" {
			return nil, fmt.Errorf("%s: %s", ae.Error.Code, ae.Error.Message)
		}
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}
	if resp.StatusCode == http.StatusNoContent || len(respBody) == 0 {
		return nil, nil
	}

	var result map[string]any
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	return result, nil
}

// redact masks the password field of a request body before printing it.
func redact(body []byte) []byte {
	if body == nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return body
	}
	if _, ok := m["password"]; !ok {
		return body
	}
	m["password"] = "********"
	out, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return body
	}
	return out
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

func printCart(cart map[string]any) {
	if cart == nil {
		return
	}
	if quiet {
		fmt.Println(formatMoney(cart["total"]))
		return
	}

	mode := "signed in"
	if g, _ := cart["guest"].(bool); g {
		mode = "guest"
	}
	lines, _ := cart["lines"].([]any)
	fmt.Printf("\n%sCart%s %s(%s, %v items)%s\n", colorBold, colorReset, colorGray, mode, cart["item_count"], colorReset)
	if len(lines) == 0 {
		printInfo("Cart is empty")
		return
	}
	for _, l := range lines {
		line, _ := l.(map[string]any)
		stock, _ := line["stock"].(string)
		stockColor := colorGray
		switch stock {
		case "out_of_stock", "exceeds_stock":
			stockColor = colorRed
		case "valid":
			stockColor = colorGreen
		}
		fmt.Printf("  %s%-8v%s %-30v ×%-3v %14s  %s%s%s\n",
			colorCyan, line["product_id"], colorReset,
			line["name"], line["quantity"], formatMoney(line["subtotal"]),
			stockColor, stock, colorReset)
	}
	fmt.Printf("  %sTotal: %s%s\n", colorBold, formatMoney(cart["total"]), colorReset)

	gate, _ := cart["checkout"].(map[string]any)
	printResponseMessages(gate)
	if blocked, _ := gate["blocked"].(bool); blocked {
		printWarning("Checkout blocked")
	}
}

func printWishlist(wl map[string]any) {
	if wl == nil {
		return
	}
	items, _ := wl["items"].([]any)
	if quiet {
		for _, it := range items {
			item, _ := it.(map[string]any)
			fmt.Println(item["product_id"])
		}
		return
	}

	fmt.Printf("\n%sWishlist%s %s(%d items)%s\n", colorBold, colorReset, colorGray, len(items), colorReset)
	if len(items) == 0 {
		printInfo("Wishlist is empty")
		return
	}
	for _, it := range items {
		item, _ := it.(map[string]any)
		fmt.Printf("  %s%-8v%s %-30v %14s\n", colorCyan, item["product_id"], colorReset, item["name"], formatMoney(item["price"]))
	}
}

func printSync(v any) {
	res, ok := v.(map[string]any)
	if !ok {
		return
	}
	succeeded, _ := res["succeeded"].([]any)
	failed, _ := res["failed"].([]any)
	if len(succeeded) > 0 {
		printInfo("Synced %d guest entries", len(succeeded))
	}
	for _, f := range failed {
		fm, _ := f.(map[string]any)
		printWarning("Could not sync %v %v: %v", fm["kind"], fm["product_id"], fm["error"])
	}
}

func printRequest(method, path string, body []byte) {
	fmt.Printf("\n%s▶ REQUEST%s %s%s %s%s\n", colorYellow, colorReset, colorBold, method, path, colorReset)
	if body != nil {
		printJSON(body, "  ")
	}
}

func printResponse(status int, body []byte, duration time.Duration) {
	statusColor := colorGreen
	if status >= 400 {
		statusColor = colorRed
	}
	fmt.Printf("\n%s◀ RESPONSE%s %s%d%s (%v)\n", colorCyan, colorReset, statusColor, status, colorReset, duration)
	if len(body) > 0 {
		printJSON(body, "  ")
	}
}

func printJSON(data []byte, prefix string) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, prefix, "  "); err != nil {
		fmt.Printf("%s%s\n", prefix, string(data))
		return
	}
	fmt.Println(prefix + pretty.String())
}

func printSuccess(format string, args ...any) {
	if !quiet {
		fmt.Printf("%s✓ %s%s\n", colorGreen, fmt.Sprintf(format, args...), colorReset)
	}
}

func printError(format string, args ...any) {
	fmt.Printf("%s✗ %s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
}

func printWarning(format string, args ...any) {
	fmt.Printf("%s⚠ %s%s\n", colorYellow, fmt.Sprintf(format, args...), colorReset)
}

func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Printf("%s→ %s%s\n", colorGray, fmt.Sprintf(format, args...), colorReset)
	}
}

func printResponseMessages(resp map[string]any) {
	if quiet {
		return
	}
	messages, ok := resp["messages"].([]any)
	if !ok || len(messages) == 0 {
		return
	}

	for _, msg := range messages {
		msgMap, ok := msg.(map[string]any)
		if !ok {
			continue
		}
		msgType, _ := msgMap["type"].(string)
		content, _ := msgMap["content"].(string)
		code, _ := msgMap["code"].(string)

		text := content
		if text == "" && code != "" {
			text = code
		}
		if text == "" {
			continue
		}

		switch msgType {
		case "error":
			printError("%s", text)
		case "warning":
			printWarning("%s", text)
		default:
			fmt.Printf("%s  ℹ %s%s\n", colorGray, text, colorReset)
		}
	}
}

// formatMoney renders the agent's money object, preferring its display string.
func formatMoney(v any) string {
	switch val := v.(type) {
	case map[string]any:
		if d, ok := val["display"].(string); ok {
			return d
		}
		return fmt.Sprintf("%v %v", val["currency"], val["amount"])
	case nil:
		return "-"
	default:
		return fmt.Sprintf("%v", v)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s✗ %s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
	os.Exit(1)
}
