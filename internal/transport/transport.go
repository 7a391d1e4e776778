// Package transport provides the HTTP transport used for calls to the commerce backend.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

// Hosted WooCommerce stores commonly sit behind CDNs that rate limit by TLS (JA3)
// fingerprint. Go's default ClientHello is distinctive, so upstream calls present a browser
// fingerprint via uTLS and let ALPN pick h2 or http/1.1.

// Fingerprint names a browser ClientHello to imitate.
type Fingerprint string

const (
	FingerprintChrome  Fingerprint = "chrome"
	FingerprintFirefox Fingerprint = "firefox"
	FingerprintSafari  Fingerprint = "safari"

	// FingerprintNone uses Go's own TLS stack. Useful for local stores and tests.
	FingerprintNone Fingerprint = "none"
)

// Options configures New.
type Options struct {
	Timeout     time.Duration
	Fingerprint Fingerprint // empty means chrome
}

// ParseFingerprint maps a config value to a Fingerprint.
func ParseFingerprint(s string) (Fingerprint, error) {
	switch f := Fingerprint(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FingerprintChrome, nil
	case FingerprintChrome, FingerprintFirefox, FingerprintSafari, FingerprintNone:
		return f, nil
	default:
		return "", fmt.Errorf("unknown TLS fingerprint %q", s)
	}
}

// New returns an http.RoundTripper for upstream store calls.
// With FingerprintNone it is a plain *http.Transport.
func New(opts Options) http.RoundTripper {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Fingerprint == FingerprintNone {
		return &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			TLSHandshakeTimeout: opts.Timeout,
			ForceAttemptHTTP2:   true,
		}
	}

	hello := helloFor(opts.Fingerprint)
	dialer := &net.Dialer{Timeout: opts.Timeout}

	h2Transport := &http2.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			return dialFingerprinted(ctx, dialer, hello, network, addr)
		},
	}

	h1Transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialFingerprinted(ctx, dialer, hello, network, addr)
		},
		ForceAttemptHTTP2: false,
	}

	return &fingerprintTransport{h2: h2Transport, h1: h1Transport}
}

func helloFor(f Fingerprint) utls.ClientHelloID {
	switch f {
	case FingerprintFirefox:
		return utls.HelloFirefox_Auto
	case FingerprintSafari:
		return utls.HelloSafari_Auto
	default:
		return utls.HelloChrome_Auto
	}
}

// fingerprintTransport tries HTTP/2 first and falls back to HTTP/1.1.
// Plain http:// requests go straight to the HTTP/1.1 transport.
type fingerprintTransport struct {
	h2 *http2.Transport
	h1 *http.Transport
}

// RoundTrip implements http.RoundTripper.
func (t *fingerprintTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return t.h1.RoundTrip(req)
	}

	resp, err := t.h2.RoundTrip(req)
	if err == nil {
		return resp, nil
	}

	// Requests with a consumed body cannot be replayed on the fallback.
	if req.Body != nil && req.GetBody == nil {
		return nil, err
	}
	if req.GetBody != nil {
		body, bodyErr := req.GetBody()
		if bodyErr != nil {
			return nil, err
		}
		req = req.Clone(req.Context())
		req.Body = body
	}
	return t.h1.RoundTrip(req)
}

// dialFingerprinted establishes a TLS connection presenting the given ClientHello.
func dialFingerprinted(ctx context.Context, dialer *net.Dialer, hello utls.ClientHelloID, network, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	tlsConn := utls.UClient(conn, &utls.Config{ServerName: host}, hello)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}

	return tlsConn, nil
}
