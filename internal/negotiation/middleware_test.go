package negotiation

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp.Error.Code
}

func TestMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		minVersion string
		path       string
		header     string
		wantStatus int
		wantCode   string
		wantClient *ClientInfo
	}{
		{
			name:       "missing header with minimum",
			minVersion: "1.4.0",
			path:       "/cart",
			wantStatus: http.StatusBadRequest,
			wantCode:   ClientHeaderRequired,
		},
		{
			name:       "missing header without minimum",
			path:       "/cart",
			wantStatus: http.StatusOK,
		},
		{
			name:       "malformed header",
			path:       "/cart",
			header:     `platform="web"`,
			wantStatus: http.StatusBadRequest,
			wantCode:   ClientHeaderRequired,
		},
		{
			name:       "old client",
			minVersion: "1.4.0",
			path:       "/cart",
			header:     `version="1.3.2", platform="web"`,
			wantStatus: http.StatusUpgradeRequired,
			wantCode:   ClientUpgradeRequired,
		},
		{
			name:       "current client",
			minVersion: "1.4.0",
			path:       "/cart",
			header:     `version="1.4.0", platform="web"`,
			wantStatus: http.StatusOK,
			wantClient: &ClientInfo{Version: "1.4.0", Platform: "web"},
		},
		{
			name:       "health exempt",
			minVersion: "1.4.0",
			path:       "/healthz",
			wantStatus: http.StatusOK,
		},
		{
			name:       "mcp exempt",
			minVersion: "1.4.0",
			path:       "/mcp",
			header:     `version="0.1.0"`,
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotClient ClientInfo
			var gotOK bool
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotClient, gotOK = ClientFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(ClientHeader, tt.header)
			}
			w := httptest.NewRecorder()

			Middleware(tt.minVersion, testLogger())(handler).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("Status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantCode != "" {
				if got := decodeErrorCode(t, w); got != tt.wantCode {
					t.Errorf("Error code = %s, want %s", got, tt.wantCode)
				}
			}
			if tt.wantClient != nil {
				if !gotOK || gotClient != *tt.wantClient {
					t.Errorf("client in context = %+v (ok=%v), want %+v", gotClient, gotOK, *tt.wantClient)
				}
			}
		})
	}
}

func TestMiddleware_UpgradeHeader(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run for outdated clients")
	})
	req := httptest.NewRequest(http.MethodGet, "/wishlist", nil)
	req.Header.Set(ClientHeader, `version="1.0.0"`)
	w := httptest.NewRecorder()

	Middleware("v1.4.0", testLogger())(handler).ServeHTTP(w, req)

	if got := w.Header().Get("Upgrade"); got != "Storefront-Client/1.4.0" {
		t.Errorf("Upgrade header = %q", got)
	}
}
