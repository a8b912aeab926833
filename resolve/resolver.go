package resolve

import (
	"context"
	"log"
	"net/url"
	"strings"
	"time"
)

// Hop is one URL in a redirect chain. Status stays 0 when the hop was never
// successfully probed.
type Hop struct {
	URL    string `json:"url"`
	Status int    `json:"status,omitempty"`
}

// Chain is the ordered walk from the original URL to the best known
// destination, plus the flags the caller surfaces to the user.
type Chain struct {
	Hops              []Hop `json:"hops"`
	IsShortened       bool  `json:"isShortened"`
	TruncatedByBudget bool  `json:"truncatedByBudget"`
	CycleDetected     bool  `json:"cycleDetected"`
	DurationMs        int64 `json:"durationMs"`
}

// Final returns the last URL reached, the best known destination.
func (c Chain) Final() string {
	if len(c.Hops) == 0 {
		return ""
	}
	return c.Hops[len(c.Hops)-1].URL
}

// Length is the number of URLs in the chain including the original.
func (c Chain) Length() int {
	return len(c.Hops)
}

// URLs flattens the chain for display.
func (c Chain) URLs() []string {
	out := make([]string, len(c.Hops))
	for i, h := range c.Hops {
		out[i] = h.URL
	}
	return out
}

// Config bounds a resolver. Zero values fall back to the stock budgets.
type Config struct {
	MaxHops     int
	TotalBudget time.Duration
	HopTimeout  time.Duration
	Shorteners  map[string]bool
}

// Resolver follows redirect chains under hop and wall-clock budgets. It
// never fails: any probe error degrades to the best known destination.
type Resolver struct {
	probe Probe
	cfg   Config
}

func New(probe Probe, cfg Config) *Resolver {
	if cfg.MaxHops <= 0 {
		cfg.MaxHops = 5
	}
	if cfg.TotalBudget <= 0 {
		cfg.TotalBudget = 5 * time.Second
	}
	if cfg.HopTimeout <= 0 {
		cfg.HopTimeout = 2 * time.Second
	}
	return &Resolver{probe: probe, cfg: cfg}
}

// Resolve walks the chain starting at rawURL. The shortener flag is decided
// against the original host before the first hop. A repeated URL stops the
// walk with the repeat kept in the chain; a failed hop stops it silently at
// the last resolved URL.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) Chain {
	start := time.Now()
	chain := Chain{Hops: []Hop{{URL: rawURL}}}

	if host := hostOf(rawURL); host != "" && r.cfg.Shorteners[host] {
		chain.IsShortened = true
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.TotalBudget)
	defer cancel()

	seen := map[string]bool{rawURL: true}
	current := rawURL
	follows := 0

	for {
		if ctx.Err() != nil {
			chain.TruncatedByBudget = true
			break
		}

		hopCtx, hopCancel := context.WithTimeout(ctx, r.cfg.HopTimeout)
		status, location, err := r.probe.Head(hopCtx, current)
		hopCancel()
		if err != nil {
			if ctx.Err() != nil {
				chain.TruncatedByBudget = true
			}
			log.Printf("[Resolver] hop %d failed for %s: %v", follows, current, err)
			break
		}

		chain.Hops[len(chain.Hops)-1].Status = status
		if status < 300 || status >= 400 || location == "" {
			break
		}

		next := resolveLocation(current, location)
		if next == "" {
			break
		}
		chain.Hops = append(chain.Hops, Hop{URL: next})
		if seen[next] {
			chain.CycleDetected = true
			break
		}
		seen[next] = true
		current = next

		follows++
		if follows >= r.cfg.MaxHops {
			chain.TruncatedByBudget = true
			break
		}
	}

	chain.DurationMs = time.Since(start).Milliseconds()
	return chain
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// resolveLocation resolves a possibly relative Location header against the
// hop it came from.
func resolveLocation(base, location string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}
	locURL, err := url.Parse(location)
	if err != nil {
		return ""
	}
	return baseURL.ResolveReference(locURL).String()
}
