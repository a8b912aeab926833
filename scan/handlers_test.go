package scan

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestServer() *Server {
	return NewServer(testPipeline(nil))
}

func TestHandleEmail(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/check/email", strings.NewReader(`{"email":"admin@192.168.1.1"}`))
	rec := httptest.NewRecorder()
	srv.HandleEmail(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var res FinalResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Verdict != VerdictFake || !res.IsRisky {
		t.Fatalf("IP-host address not judged fake: %+v", res)
	}
	if res.ID == "" || res.Timestamp == "" {
		t.Fatalf("result missing id/timestamp")
	}
}

func TestHandleEmailRejectsBadRequests(t *testing.T) {
	srv := newTestServer()

	rec := httptest.NewRecorder()
	srv.HandleEmail(rec, httptest.NewRequest(http.MethodGet, "/check/email", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET should be rejected, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.HandleEmail(rec, httptest.NewRequest(http.MethodPost, "/check/email", strings.NewReader(`{}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty email should be rejected, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.HandleEmail(rec, httptest.NewRequest(http.MethodPost, "/check/email", strings.NewReader(`{bad json`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body should be rejected, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid JSON body") {
		t.Fatalf("malformed body misreported: %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	srv.HandleURL(rec, httptest.NewRequest(http.MethodPost, "/check/url", strings.NewReader(`{"url": `)))
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "invalid JSON body") {
		t.Fatalf("malformed url body misreported: %d %s", rec.Code, rec.Body.String())
	}
}

func TestHandleURL(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/check/url", strings.NewReader(`{"url":"https://paypal.com-verify.info/login"}`))
	rec := httptest.NewRecorder()
	srv.HandleURL(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var res FinalResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Verdict != VerdictDangerous {
		t.Fatalf("subdomain-confusion URL not judged dangerous: %+v", res)
	}
}

func TestHandleOptionsPreflight(t *testing.T) {
	srv := newTestServer()

	rec := httptest.NewRecorder()
	srv.HandleURL(rec, httptest.NewRequest(http.MethodOptions, "/check/url", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight should return 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatalf("CORS headers missing")
	}
}
