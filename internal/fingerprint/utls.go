package fingerprint

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

// Profile names the TLS ClientHello a search request presents.
type Profile string

const (
	ProfileGo      Profile = "go" // standard library TLS
	ProfileChrome  Profile = "chrome"
	ProfileFirefox Profile = "firefox"
	ProfileSafari  Profile = "safari"
	ProfileRandom  Profile = "random" // randomized uTLS profile
)

// Profiles lists every supported profile, default first.
var Profiles = []Profile{ProfileGo, ProfileChrome, ProfileFirefox, ProfileSafari, ProfileRandom}

// ParseProfile maps a config value to a Profile. Empty selects ProfileGo.
func ParseProfile(s string) (Profile, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ProfileGo, nil
	}
	for _, p := range Profiles {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown fingerprint profile %q", s)
}

func helloID(p Profile) (utls.ClientHelloID, error) {
	switch p {
	case ProfileChrome:
		return utls.HelloChrome_Auto, nil
	case ProfileFirefox:
		return utls.HelloFirefox_Auto, nil
	case ProfileSafari:
		return utls.HelloIOS_Auto, nil
	case ProfileRandom:
		return utls.HelloRandomizedALPN, nil
	}
	return utls.ClientHelloID{}, fmt.Errorf("unknown fingerprint profile %q", p)
}

// Transport returns an http.RoundTripper presenting the given profile's
// ClientHello. ProfileGo returns a plain clone of http.DefaultTransport.
// proxyFunc is optional and overrides the environment proxy.
//
// uTLS presets advertise h2 over ALPN, so the returned transport speaks
// whichever protocol the server selected: HTTP/2 when it picked h2, HTTP/1.1
// otherwise. Proxied requests go through the HTTP/1.1 transport.
func Transport(p Profile, proxyFunc func(*http.Request) (*url.URL, error)) (http.RoundTripper, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyFunc != nil {
		transport.Proxy = proxyFunc
	}
	if p == ProfileGo || p == "" {
		return transport, nil
	}

	id, err := helloID(p)
	if err != nil {
		return nil, err
	}
	return newUTLSTransport(transport, id, nil), nil
}

// utlsTransport routes each request to an HTTP/1.1 or HTTP/2 transport
// according to the ALPN protocol the host negotiated on first contact. The
// connection opened to learn the protocol is handed to whichever transport
// dials next for that address.
type utlsTransport struct {
	id     utls.ClientHelloID
	config *utls.Config
	h1     *http.Transport
	h2     *http2.Transport

	mu      sync.Mutex
	protos  map[string]string
	pending map[string][]net.Conn
}

func newUTLSTransport(h1 *http.Transport, id utls.ClientHelloID, config *utls.Config) *utlsTransport {
	t := &utlsTransport{
		id:      id,
		config:  config,
		h1:      h1,
		protos:  make(map[string]string),
		pending: make(map[string][]net.Conn),
	}
	h1.DialTLSContext = t.dialTLS
	t.h2 = &http2.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			return t.dialTLS(ctx, network, addr)
		},
	}
	return t
}

func (t *utlsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return t.h1.RoundTrip(req)
	}
	if t.h1.Proxy != nil {
		u, err := t.h1.Proxy(req)
		if err != nil {
			return nil, err
		}
		if u != nil {
			return t.h1.RoundTrip(req)
		}
	}

	proto, err := t.protocol(req.Context(), hostPort(req.URL))
	if err != nil {
		return nil, err
	}
	if proto == http2.NextProtoTLS {
		return t.h2.RoundTrip(req)
	}
	return t.h1.RoundTrip(req)
}

// CloseIdleConnections closes idle connections on both transports.
func (t *utlsTransport) CloseIdleConnections() {
	t.h1.CloseIdleConnections()
	t.h2.CloseIdleConnections()

	t.mu.Lock()
	defer t.mu.Unlock()
	for addr, conns := range t.pending {
		for _, c := range conns {
			_ = c.Close()
		}
		delete(t.pending, addr)
	}
}

// protocol returns the ALPN protocol negotiated with addr, handshaking once
// to learn it when unknown.
func (t *utlsTransport) protocol(ctx context.Context, addr string) (string, error) {
	t.mu.Lock()
	proto, ok := t.protos[addr]
	t.mu.Unlock()
	if ok {
		return proto, nil
	}

	conn, err := t.handshake(ctx, "tcp", addr)
	if err != nil {
		return "", err
	}
	proto = conn.ConnectionState().NegotiatedProtocol

	t.mu.Lock()
	t.protos[addr] = proto
	t.pending[addr] = append(t.pending[addr], conn)
	t.mu.Unlock()
	return proto, nil
}

func (t *utlsTransport) dialTLS(ctx context.Context, network, addr string) (net.Conn, error) {
	t.mu.Lock()
	if conns := t.pending[addr]; len(conns) > 0 {
		conn := conns[len(conns)-1]
		t.pending[addr] = conns[:len(conns)-1]
		t.mu.Unlock()
		return conn, nil
	}
	t.mu.Unlock()

	conn, err := t.handshake(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (t *utlsTransport) handshake(ctx context.Context, network, addr string) (*utls.UConn, error) {
	dial := t.h1.DialContext
	if dial == nil {
		var d net.Dialer
		dial = d.DialContext
	}
	tcpConn, err := dial(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	config := &utls.Config{}
	if t.config != nil {
		config = t.config.Clone()
	}
	config.ServerName = host

	uConn := utls.UClient(tcpConn, config, t.id)
	if err := uConn.HandshakeContext(ctx); err != nil {
		_ = tcpConn.Close()
		return nil, fmt.Errorf("utls handshake failed: %w", err)
	}
	return uConn, nil
}

func hostPort(u *url.URL) string {
	port := u.Port()
	if port == "" {
		port = "443"
	}
	return net.JoinHostPort(u.Hostname(), port)
}
