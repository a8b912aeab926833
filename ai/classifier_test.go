package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"phishguard/scan"
)

// fakeGemini serves canned model answers in the generateContent wire shape.
func fakeGemini(t *testing.T, answer string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := GeminiResponse{
			Candidates: []GeminiCandidate{{
				Content: GeminiResponseContent{
					Parts: []GeminiPart{{Text: answer}},
					Role:  "model",
				},
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func testClassifier(srv *httptest.Server) *Classifier {
	return NewClassifierWithClient(&GeminiClient{
		APIKey:     "test-key",
		HTTPClient: srv.Client(),
		Model:      "gemini-2.0-flash",
		BaseURL:    srv.URL,
	})
}

func emailFindings() scan.ScoreResult {
	return scan.ScoreResult{
		Variant:    scan.VariantEmail,
		Raw:        45,
		Normalized: 45,
		Band:       scan.BandRisky,
		Indicators: []scan.Indicator{{Description: "Domain closely resembles brand 'amazon'", Weight: 30}},
	}
}

func TestClassifyParsesVerdict(t *testing.T) {
	srv := fakeGemini(t, `{"verdict": "fake", "explanation": "Typosquat of amazon.com."}`)
	defer srv.Close()

	v, err := testClassifier(srv).Classify(context.Background(), "support@amason.com", emailFindings())
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if v.Verdict != scan.VerdictFake {
		t.Fatalf("expected fake, got %q", v.Verdict)
	}
	if v.Explanation != "Typosquat of amazon.com." {
		t.Fatalf("unexpected explanation %q", v.Explanation)
	}
}

func TestClassifyStripsFences(t *testing.T) {
	srv := fakeGemini(t, "```json\n{\"verdict\": \"suspicious\", \"explanation\": \"Unusual sender.\"}\n```")
	defer srv.Close()

	v, err := testClassifier(srv).Classify(context.Background(), "x@example.com", emailFindings())
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if v.Verdict != scan.VerdictSuspicious {
		t.Fatalf("expected suspicious, got %q", v.Verdict)
	}
}

func TestClassifyRejectsOutOfContractVerdict(t *testing.T) {
	// "dangerous" is the URL vocabulary; the findings are for an email.
	srv := fakeGemini(t, `{"verdict": "dangerous", "explanation": "nope"}`)
	defer srv.Close()

	_, err := testClassifier(srv).Classify(context.Background(), "x@example.com", emailFindings())
	if err == nil {
		t.Fatal("expected contract violation error")
	}
}

func TestClassifyRejectsProse(t *testing.T) {
	srv := fakeGemini(t, "I think this email is probably fine, honestly.")
	defer srv.Close()

	_, err := testClassifier(srv).Classify(context.Background(), "x@example.com", emailFindings())
	if err == nil {
		t.Fatal("expected parse error for prose answer")
	}
}

func TestClassifyHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server watches for the client disconnect;
		// otherwise r.Context() is never cancelled and Close deadlocks.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := testClassifier(srv).Classify(ctx, "x@example.com", emailFindings())
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("classify ignored context deadline: %s", time.Since(start))
	}
}
