package resolve

import (
	"context"
	"net/http"
	"time"
)

// Probe issues a single non-following request and reports the status plus
// any Location header. Implementations must honor context cancellation.
type Probe interface {
	Head(ctx context.Context, rawURL string) (status int, location string, err error)
}

// HTTPProbe is the production probe: HEAD requests on a client that never
// follows redirects itself, so each hop stays observable.
type HTTPProbe struct {
	Client *http.Client
}

// NewHTTPProbe builds a probe client. The overall timeout is a safety net;
// per-hop deadlines come from the caller's context.
func NewHTTPProbe() *HTTPProbe {
	return &HTTPProbe{
		Client: &http.Client{
			Timeout: 10 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (p *HTTPProbe) Head(ctx context.Context, rawURL string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return 0, "", err
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	return resp.StatusCode, resp.Header.Get("Location"), nil
}
