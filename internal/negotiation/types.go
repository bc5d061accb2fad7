// Package negotiation gates agent requests on the calling client's identity.
// The presentation layer sends a Storefront-Client header (RFC 8941 dictionary)
// carrying its version and platform; clients older than the configured minimum
// are asked to upgrade.
package negotiation

import "context"

// ClientHeader is the header the presentation layer identifies itself with.
const ClientHeader = "Storefront-Client"

// ClientInfo is the parsed Storefront-Client header.
type ClientInfo struct {
	Version  string // semver without the leading "v", e.g. "1.4.0"
	Platform string // "web", "ios", "android"; empty when omitted
}

type contextKey string

// ClientContextKey is the context key for the request's ClientInfo.
const ClientContextKey contextKey = "storefront.client"

// Error codes written by the middleware.
const (
	ClientHeaderRequired  = "CLIENT_HEADER_REQUIRED"
	ClientUpgradeRequired = "CLIENT_UPGRADE_REQUIRED"
)

// ClientFromContext returns the client stored by Middleware.
// ok is false on exempt paths.
func ClientFromContext(ctx context.Context) (ClientInfo, bool) {
	c, ok := ctx.Value(ClientContextKey).(ClientInfo)
	return c, ok
}
