// Package network builds the pooled HTTP client the load model shares
// across virtual users.
package network

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/http2"

	"github.com/xkilldash9x/marquee/internal/config"
)

const (
	defaultTimeout        = 30 * time.Second
	defaultConnectTimeout = 5 * time.Second
	keepAlive             = 15 * time.Second
	idleTimeout           = 30 * time.Second

	// MinIdlePerHost is the idle pool floor regardless of user count.
	MinIdlePerHost = 20
)

// Options sizes the transport for a run.
type Options struct {
	// Timeout bounds a whole exchange, body included.
	Timeout        time.Duration
	ConnectTimeout time.Duration
	// Users is the expected number of concurrent callers against one host.
	Users int

	Insecure  bool
	HTTP1Only bool
	// Raw leaves Content-Encoding for the caller.
	Raw bool

	Logger *zap.Logger
}

// OptionsFor derives transport options from the load settings.
func OptionsFor(load config.LoadConfig, logger *zap.Logger) Options {
	return Options{
		Timeout: load.RequestTimeout,
		Users:   load.Users,
		Logger:  logger,
	}
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = defaultConnectTimeout
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

func (o Options) idlePerHost() int {
	return max(o.Users, MinIdlePerHost)
}

// NewTransport returns a keep-alive transport whose idle pool holds one
// connection per user. Decompression is left to CompressionMiddleware.
func NewTransport(opts Options) *http.Transport {
	opts = opts.withDefaults()

	dialer := &net.Dialer{Timeout: opts.ConnectTimeout, KeepAlive: keepAlive}
	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: opts.Insecure,
		ClientSessionCache: tls.NewLRUClientSessionCache(opts.idlePerHost()),
	}

	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			if tcp, ok := conn.(*net.TCPConn); ok {
				_ = tcp.SetNoDelay(true)
			}
			return conn, nil
		},
		TLSClientConfig:     tlsConfig,
		TLSHandshakeTimeout: opts.ConnectTimeout,
		MaxIdleConns:        opts.idlePerHost() * 2,
		MaxIdleConnsPerHost: opts.idlePerHost(),
		IdleConnTimeout:     idleTimeout,
		// Header wait gets the whole budget; the client timeout still caps the body.
		ResponseHeaderTimeout: opts.Timeout,
		DisableCompression:    true,
		ForceAttemptHTTP2:     !opts.HTTP1Only,
	}

	if opts.HTTP1Only {
		tlsConfig.NextProtos = []string{"http/1.1"}
		return t
	}
	if err := http2.ConfigureTransport(t); err != nil {
		opts.Logger.Warn("HTTP/2 unavailable, using HTTP/1.1", zap.Error(err))
	}
	return t
}

// NewClient creates a client safe for concurrent use. Callers must close
// every response body.
func NewClient(opts Options) *http.Client {
	opts = opts.withDefaults()
	var rt http.RoundTripper = NewTransport(opts)
	if !opts.Raw {
		rt = NewCompressionMiddleware(rt)
	}
	return &http.Client{Transport: rt, Timeout: opts.Timeout}
}
