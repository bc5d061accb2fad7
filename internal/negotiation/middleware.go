package negotiation

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// Middleware rejects requests from clients that do not identify themselves or
// are older than minVersion. With an empty minVersion the header is parsed when
// present but never required.
// The parsed ClientInfo is stored in the request context for handlers.
func Middleware(minVersion string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isExemptPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get(ClientHeader)
			if header == "" {
				if minVersion == "" {
					next.ServeHTTP(w, r)
					return
				}
				writeNegotiationError(w, http.StatusBadRequest, ClientHeaderRequired,
					"Storefront-Client header is required")
				return
			}

			client, err := ParseClientHeader(header)
			if err != nil {
				logger.Warn("invalid Storefront-Client header",
					slog.String("header", header),
					slog.String("error", err.Error()))
				writeNegotiationError(w, http.StatusBadRequest, ClientHeaderRequired,
					"Invalid Storefront-Client header: "+err.Error())
				return
			}

			if !Supported(client.Version, minVersion) {
				logger.Info("client below minimum version",
					slog.String("version", client.Version),
					slog.String("platform", client.Platform),
					slog.String("min_version", minVersion))
				w.Header().Set("Upgrade", "Storefront-Client/"+strings.TrimPrefix(minVersion, "v"))
				writeNegotiationError(w, http.StatusUpgradeRequired, ClientUpgradeRequired,
					"Please update the app to version "+strings.TrimPrefix(minVersion, "v")+" or later")
				return
			}

			ctx := context.WithValue(r.Context(), ClientContextKey, client)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// isExemptPath returns true for paths that don't require the client header.
// MCP clients are agents, not storefront builds.
func isExemptPath(path string) bool {
	switch {
	case path == "/health" || path == "/healthz":
		return true
	case path == "/mcp" || strings.HasPrefix(path, "/mcp/"):
		return true
	default:
		return false
	}
}

func writeNegotiationError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}{}
	resp.Error.Code = code
	resp.Error.Message = message

	json.NewEncoder(w).Encode(resp)
}
