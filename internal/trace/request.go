package trace

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/desertthunder/ezpbars/internal/progress"
	"github.com/desertthunder/ezpbars/internal/shared"
)

const (
	// DefaultDomain hosts the trace websocket when a request leaves Domain empty.
	DefaultDomain = "ezpbars.com"
	// TracePath is the websocket endpoint on every domain.
	TracePath = "/api/2/progress_bars/traces/"
)

// PollFunc reports whether the traced task has already finished, through the caller's own channel.
//
// It is only consulted after repeated connection failures, may be called many times, and must not have side effects
// beyond reading status.
type PollFunc func(ctx context.Context) (bool, error)

// Request identifies the trace to follow and where to render it. It is read-only once passed to [Subscribe].
type Request struct {
	// PbarName is the name of the progress bar the trace belongs to.
	PbarName string
	// UID identifies the trace.
	UID string
	// Sub identifies the account owning the progress bar.
	Sub string
	// PollResult is the fallback used when the stream stays unreachable.
	PollResult PollFunc
	// View receives progress updates. Nil discards them.
	View progress.View
	// Domain defaults to [DefaultDomain].
	Domain string
	// SSL selects wss (true) or ws (false). Nil means true.
	SSL *bool
}

// Bool returns a pointer to b, for [Request.SSL].
func Bool(b bool) *bool { return &b }

// SSLEnabled reports the effective scheme choice.
func (r Request) SSLEnabled() bool {
	return r.SSL == nil || *r.SSL
}

// URL builds the websocket URL for the request.
func (r Request) URL() string {
	domain := r.Domain
	if domain == "" {
		domain = DefaultDomain
	}
	scheme := "wss"
	if !r.SSLEnabled() {
		scheme = "ws"
	}
	u := url.URL{Scheme: scheme, Host: domain, Path: TracePath}
	return u.String()
}

// Validate checks that the identifiers and the poll fallback are present.
func (r Request) Validate() error {
	required := []struct{ name, value string }{
		{"pbar name", r.PbarName},
		{"uid", r.UID},
		{"sub", r.Sub},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s", shared.ErrMissingArgument, f.name)
		}
	}
	if r.PollResult == nil {
		return fmt.Errorf("%w: poll result function", shared.ErrMissingArgument)
	}
	if strings.ContainsAny(r.Domain, "/?#") {
		return fmt.Errorf("%w: domain %q must be a host, not a URL", shared.ErrInvalidArgument, r.Domain)
	}
	return nil
}

func (r Request) authRequest() AuthRequest {
	return AuthRequest{Sub: r.Sub, UID: r.UID, PbarName: r.PbarName}
}

func (r Request) view() progress.View {
	if r.View == nil {
		return progress.Noop{}
	}
	return r.View
}
