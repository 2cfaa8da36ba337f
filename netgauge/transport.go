package netgauge

import (
	"context"
	"net"
	"net/http"
	"time"
)

const defaultDialTimeout = 10 * time.Second

// HTTPClient is the network capability the estimator needs. *http.Client satisfies it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewTransport pins every dial to protocol ("tcp", "tcp4" or "tcp6").
func NewTransport(protocol string, dialTimeout time.Duration) *http.Transport {
	// cf. https://go.googlesource.com/go/+/refs/tags/go1.22.1/src/net/http/transport.go#43
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, _, addr string) (net.Conn, error) {
			return (&net.Dialer{
				Timeout:   dialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext(ctx, protocol, addr)
		},
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		// a transparent gzip layer would inflate the byte counts
		DisableCompression: true,
	}
}

func NewHTTPClient(cfg NetworkConfig) *http.Client {
	return &http.Client{
		Transport: NewTransport(cfg.Protocol, cfg.DialTimeout),
	}
}
