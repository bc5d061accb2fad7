// Package transport builds the HTTP clients the agent uses to reach the backend.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

// The storefront backend sits behind a CDN that throttles clients whose TLS
// ClientHello does not look like a browser. Go's crypto/tls hello is easy to
// fingerprint, so when BROWSER_TLS is on the agent dials with uTLS using Chrome's
// hello and lets ALPN pick h2 or http/1.1.

// NewHTTPClient returns a client with the given timeout. browserTLS swaps in the
// Chrome-fingerprint transport.
func NewHTTPClient(timeout time.Duration, browserTLS bool) *http.Client {
	c := &http.Client{Timeout: timeout}
	if browserTLS {
		c.Transport = NewChromeTransport(timeout)
	}
	return c
}

// NewChromeTransport returns a RoundTripper that dials TLS with Chrome's fingerprint.
// HTTP/2 is tried first; servers without h2 fall back to HTTP/1.1.
func NewChromeTransport(timeout time.Duration) http.RoundTripper {
	dialer := &net.Dialer{Timeout: timeout}
	dial := func(ctx context.Context, network, addr string) (net.Conn, error) {
		return dialChromeTLS(ctx, dialer, network, addr)
	}

	return &chromeTransport{
		h2: &http2.Transport{
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				return dial(ctx, network, addr)
			},
		},
		h1: &http.Transport{
			DialTLSContext:      dial,
			TLSHandshakeTimeout: timeout,
			ForceAttemptHTTP2:   false,
		},
	}
}

type chromeTransport struct {
	h2 *http2.Transport
	h1 *http.Transport
}

func (t *chromeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Plain-HTTP backends (local development) never need the fingerprint.
	if req.URL.Scheme == "http" {
		return t.h1.RoundTrip(req)
	}
	resp, err := t.h2.RoundTrip(req)
	if err == nil {
		return resp, nil
	}
	return t.h1.RoundTrip(req)
}

func dialChromeTLS(ctx context.Context, dialer *net.Dialer, network, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	tlsConn := utls.UClient(conn, &utls.Config{ServerName: host}, utls.HelloChrome_Auto)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake with %s: %w", host, err)
	}
	return tlsConn, nil
}
