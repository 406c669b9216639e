package trace

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ezpbars/internal/shared"
	"github.com/gorilla/websocket"
)

// Dialer opens websocket connections. [*websocket.Dialer] satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

type options struct {
	dialer           Dialer
	clock            shared.Clock
	logger           *log.Logger
	handshakeTimeout time.Duration
	header           http.Header
}

// Option configures a [Subscription].
type Option func(*options)

// WithDialer replaces the default websocket dialer.
func WithDialer(d Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// WithClock replaces the wall clock used for retry delays and failure decay.
func WithClock(c shared.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithHandshakeTimeout bounds the websocket opening handshake of the default dialer and, for every dialer, the wait
// for the auth response. A timeout counts as a connection failure.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *options) { o.handshakeTimeout = d }
}

// WithHeader adds headers to every connection request.
func WithHeader(h http.Header) Option {
	return func(o *options) { o.header = h.Clone() }
}

func newOptions(opts []Option) options {
	o := options{
		clock:            shared.RealClock{},
		handshakeTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = shared.NewDiscardLogger()
	}
	if o.dialer == nil {
		o.dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: o.handshakeTimeout,
		}
	}
	return o
}
