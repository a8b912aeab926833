package resolve_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"phishguard/resolve"
)

func setupServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/302", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/hop2", http.StatusFound)
	})
	mux.HandleFunc("/hop2", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})
	mux.HandleFunc("/deep/", func(w http.ResponseWriter, r *http.Request) {
		var n int
		_, _ = fmt.Sscanf(r.URL.Path, "/deep/%d", &n)
		http.Redirect(w, r, fmt.Sprintf("/deep/%d", n+1), http.StatusFound)
	})
	mux.HandleFunc("/relative", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "final")
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/slowhop/", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(80 * time.Millisecond)
		var n int
		_, _ = fmt.Sscanf(r.URL.Path, "/slowhop/%d", &n)
		http.Redirect(w, r, fmt.Sprintf("/slowhop/%d", n+1), http.StatusFound)
	})
	return httptest.NewServer(mux)
}

func newResolver(cfg resolve.Config) *resolve.Resolver {
	return resolve.New(resolve.NewHTTPProbe(), cfg)
}

func TestResolveChain(t *testing.T) {
	srv := setupServer()
	defer srv.Close()

	r := newResolver(resolve.Config{})
	chain := r.Resolve(context.Background(), srv.URL+"/302")

	if chain.Length() != 3 {
		t.Fatalf("expected 3 URLs in chain, got %d: %v", chain.Length(), chain.URLs())
	}
	if chain.Final() != srv.URL+"/final" {
		t.Fatalf("expected final %s/final, got %s", srv.URL, chain.Final())
	}
	if chain.Hops[0].Status != http.StatusFound {
		t.Fatalf("expected first hop status 302, got %d", chain.Hops[0].Status)
	}
	if chain.TruncatedByBudget || chain.CycleDetected {
		t.Fatalf("clean chain flagged: %+v", chain)
	}
}

func TestResolveCycle(t *testing.T) {
	srv := setupServer()
	defer srv.Close()

	r := newResolver(resolve.Config{})
	chain := r.Resolve(context.Background(), srv.URL+"/loop")

	if !chain.CycleDetected {
		t.Fatalf("self-redirect not detected as cycle: %v", chain.URLs())
	}
	// Chain keeps the repeated URL, so the loop appears exactly twice.
	if chain.Length() != 2 {
		t.Fatalf("expected chain of 2 (original + repeat), got %d", chain.Length())
	}
}

func TestResolveHopBudget(t *testing.T) {
	srv := setupServer()
	defer srv.Close()

	r := newResolver(resolve.Config{MaxHops: 5})
	chain := r.Resolve(context.Background(), srv.URL+"/deep/0")

	if !chain.TruncatedByBudget {
		t.Fatalf("100-deep redirect not truncated: %d URLs", chain.Length())
	}
	if chain.Length() != 6 {
		t.Fatalf("expected original + 5 hops, got %d", chain.Length())
	}
}

func TestResolveTotalBudget(t *testing.T) {
	srv := setupServer()
	defer srv.Close()

	r := newResolver(resolve.Config{TotalBudget: 200 * time.Millisecond, HopTimeout: 150 * time.Millisecond})
	start := time.Now()
	chain := r.Resolve(context.Background(), srv.URL+"/slow")
	elapsed := time.Since(start)

	if elapsed > time.Second {
		t.Fatalf("resolver overran its total budget: %s", elapsed)
	}
	// The slow hop never resolved, so the chain stops at the original URL.
	if chain.Final() != srv.URL+"/slow" {
		t.Fatalf("expected degradation to original URL, got %s", chain.Final())
	}
}

func TestResolveTotalBudgetMidChain(t *testing.T) {
	srv := setupServer()
	defer srv.Close()

	// Each hop answers well inside its own timeout, but the chain as a whole
	// cannot finish before the total budget fires.
	r := newResolver(resolve.Config{
		MaxHops:     50,
		TotalBudget: 250 * time.Millisecond,
		HopTimeout:  150 * time.Millisecond,
	})
	start := time.Now()
	chain := r.Resolve(context.Background(), srv.URL+"/slowhop/0")
	elapsed := time.Since(start)

	if !chain.TruncatedByBudget {
		t.Fatalf("total-budget expiry mid-chain not flagged: %+v", chain)
	}
	if chain.Length() < 2 {
		t.Fatalf("expected at least one hop to have been followed, got %d", chain.Length())
	}
	if elapsed > time.Second {
		t.Fatalf("resolver overran its total budget: %s", elapsed)
	}
}

func TestResolveRelativeLocation(t *testing.T) {
	srv := setupServer()
	defer srv.Close()

	r := newResolver(resolve.Config{})
	chain := r.Resolve(context.Background(), srv.URL+"/relative")

	if chain.Final() != srv.URL+"/final" {
		t.Fatalf("relative Location not resolved against hop: %s", chain.Final())
	}
}

func TestResolveHopFailureDegrades(t *testing.T) {
	srv := setupServer()
	mux := http.NewServeMux()
	mux.HandleFunc("/dead-end", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://127.0.0.1:1/nowhere", http.StatusFound)
	})
	broken := httptest.NewServer(mux)
	defer srv.Close()
	defer broken.Close()

	r := newResolver(resolve.Config{HopTimeout: 500 * time.Millisecond})
	chain := r.Resolve(context.Background(), broken.URL+"/dead-end")

	// The unreachable hop stays in the chain as the best known destination.
	if chain.Final() != "http://127.0.0.1:1/nowhere" {
		t.Fatalf("expected chain to end at last resolved URL, got %s", chain.Final())
	}
	if chain.Hops[len(chain.Hops)-1].Status != 0 {
		t.Fatalf("failed hop should keep status 0")
	}
}

func TestShortenerFlag(t *testing.T) {
	srv := setupServer()
	defer srv.Close()

	shorteners := map[string]bool{"127.0.0.1": true}
	r := resolve.New(resolve.NewHTTPProbe(), resolve.Config{Shorteners: shorteners})
	chain := r.Resolve(context.Background(), srv.URL+"/final")

	if !chain.IsShortened {
		t.Fatalf("original host in shortener set not flagged")
	}
}
