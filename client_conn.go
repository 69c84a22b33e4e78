package grpcwire

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/net/http2"
)

// ClientConn is a single-peer HTTP/2 connection factory for gRPC calls. It
// wraps an *http.Client configured for cleartext HTTP/2 (H2C) or TLS'd
// HTTP/2, and implements Doer so it plugs directly into UnaryClient and
// StreamForClient.
//
// The H2C transport construction is grounded on golang.org/x/net/http2's
// own NewTransport.
type ClientConn struct {
	doer        Doer
	baseURL     string
	negotiation *Negotiation
}

// ClientConnOption configures a ClientConn.
type ClientConnOption func(*clientConnConfig)

type clientConnConfig struct {
	tlsConfig   *tls.Config
	dialTimeout time.Duration
	backoff     *backoff.ExponentialBackOff
	negotiation *Negotiation
}

// WithClientTLS enables TLS'd HTTP/2 instead of cleartext H2C.
func WithClientTLS(cfg *tls.Config) ClientConnOption {
	return func(c *clientConnConfig) { c.tlsConfig = cfg }
}

// WithDialTimeout bounds how long the initial TCP handshake may take. It
// applies to the cleartext H2C dialer only; with WithClientTLS it is not
// used.
func WithDialTimeout(d time.Duration) ClientConnOption {
	return func(c *clientConnConfig) { c.dialTimeout = d }
}

// WithClientCompression sets the Negotiation this ClientConn runs against
// the first response it receives on each call path (UnaryClient,
// StreamForClient, StreamClient). Its Choose result is memoized per
// spec.md §4.2, so every call made through this connection settles on the
// same algorithm once one response has arrived. Without this option a
// ClientConn defaults to NoCompression.
func WithClientCompression(n *Negotiation) ClientConnOption {
	return func(c *clientConnConfig) { c.negotiation = n }
}

// NewClientConn constructs a ClientConn targeting baseURL (e.g.
// "http://localhost:8080"). Without WithClientTLS it speaks H2C: plain TCP
// framed as HTTP/2, the same cleartext-by-default posture a gRPC server
// normally expects on a private network.
func NewClientConn(baseURL string, opts ...ClientConnOption) *ClientConn {
	cfg := &clientConnConfig{dialTimeout: 10 * time.Second}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.negotiation == nil {
		cfg.negotiation = NoCompression()
	}

	var transport http.RoundTripper
	if cfg.tlsConfig != nil {
		transport = &http2.Transport{TLSClientConfig: cfg.tlsConfig}
	} else {
		transport = &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				d := net.Dialer{Timeout: cfg.dialTimeout}
				return d.DialContext(ctx, network, addr)
			},
		}
	}

	return &ClientConn{
		doer:        &http.Client{Transport: transport},
		baseURL:     baseURL,
		negotiation: cfg.negotiation,
	}
}

// Do implements Doer by delegating to the underlying *http.Client.
func (cc *ClientConn) Do(req *http.Request) (*http.Response, error) {
	return cc.doer.Do(req)
}

// URL joins the connection's base URL with a procedure path, producing the
// full method URL UnaryClient/StreamForClient expect.
func (cc *ClientConn) URL(procedure string) string {
	return cc.baseURL + procedure
}

// Negotiation returns the compression Negotiation this connection shares
// across every call made through it, so callers construct UnaryClient/
// StreamForClient/StreamClient with cc.Negotiation() instead of a
// standalone one and get the connection-wide memoized choice described in
// WithClientCompression's doc comment.
func (cc *ClientConn) Negotiation() *Negotiation {
	return cc.negotiation
}

// ReconnectPolicy drives retrying an operation (typically establishing the
// first request on a fresh connection) with exponential backoff and
// jitter, for callers that want resilience against a server that's
// transiently unavailable.
//
// Grounded on github.com/cenkalti/backoff/v4, via
// other_examples/manifests/DataDog-datadog-agent/go.mod (a direct
// dependency there).
type ReconnectPolicy struct {
	backoff *backoff.ExponentialBackOff
}

// NewReconnectPolicy builds a ReconnectPolicy with the given base interval
// and maximum total elapsed time (zero means retry forever).
func NewReconnectPolicy(initialInterval, maxElapsed time.Duration) *ReconnectPolicy {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initialInterval
	b.MaxElapsedTime = maxElapsed
	return &ReconnectPolicy{backoff: b}
}

// Run retries fn until it succeeds, the context is canceled, or the policy
// gives up (MaxElapsedTime elapses). Each non-nil, non-Canceled error from
// fn is retried; an error satisfying CodeOf(err) == CodeInvalidArgument (or
// any other clearly non-transient gRPC status) should be returned wrapped
// in backoff.Permanent by the caller to stop retrying early.
func (p *ReconnectPolicy) Run(ctx context.Context, fn func(context.Context) error) error {
	p.backoff.Reset()
	operation := func() error {
		return fn(ctx)
	}
	return backoff.Retry(operation, backoff.WithContext(p.backoff, ctx))
}
