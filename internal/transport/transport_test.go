package transport

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewHTTPClient(t *testing.T) {
	plain := NewHTTPClient(5*time.Second, false)
	if plain.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", plain.Timeout)
	}
	if plain.Transport != nil {
		t.Errorf("plain client should use the default transport, got %T", plain.Transport)
	}

	browser := NewHTTPClient(time.Second, true)
	if _, ok := browser.Transport.(*chromeTransport); !ok {
		t.Errorf("browser client transport = %T, want *chromeTransport", browser.Transport)
	}
}

func TestChromeTransport_PlainHTTPBypassesTLS(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewHTTPClient(2*time.Second, true)
	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
