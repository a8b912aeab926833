package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"phishguard/scan"
)

// Classifier is the production arbitration capability: it asks Gemini for a
// final verdict on an identifier, feeding it the local heuristic findings.
// It satisfies scan.Classifier; the pipeline wraps it with the timeout race
// and the fallback state machine.
type Classifier struct {
	client *GeminiClient
}

// NewClassifier wires the singleton Gemini client. Returns
// scan.ErrArbiterUnavailable when no API key is configured, so the caller
// can run local-only from the start instead of failing per request.
func NewClassifier() (*Classifier, error) {
	client, err := GetGeminiClient()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scan.ErrArbiterUnavailable, err)
	}
	return &Classifier{client: client}, nil
}

// NewClassifierWithClient exists for tests that point the client at a fake
// Gemini endpoint.
func NewClassifierWithClient(client *GeminiClient) *Classifier {
	return &Classifier{client: client}
}

// verdictReply mirrors the JSON object the prompt demands from the model.
type verdictReply struct {
	Verdict     string `json:"verdict"`
	Explanation string `json:"explanation"`
}

// Classify sends the identifier and serialized local findings to the model
// and parses the JSON verdict out of its answer. Everything the model does
// wrong (prose instead of JSON, unknown verdict word) comes back as an error
// the gateway normalizes into a fallback.
func (c *Classifier) Classify(ctx context.Context, identifier string, local scan.ScoreResult) (scan.ArbiterVerdict, error) {
	findings, err := json.Marshal(local)
	if err != nil {
		return scan.ArbiterVerdict{}, fmt.Errorf("marshal local findings: %w", err)
	}

	prompt := EmailVerdictPrompt
	if local.Variant == scan.VariantURL {
		prompt = URLVerdictPrompt
	}

	answer, err := c.client.Generate(ctx, fmt.Sprintf(prompt, identifier, string(findings)), ClassifierSystemPrompt)
	if err != nil {
		return scan.ArbiterVerdict{}, fmt.Errorf("arbiter call: %w", err)
	}

	var reply verdictReply
	if err := json.Unmarshal([]byte(stripFences(answer)), &reply); err != nil {
		return scan.ArbiterVerdict{}, fmt.Errorf("%w: unparseable answer %q", scan.ErrArbiterBadVerdict, truncate(answer, 120))
	}

	verdict := scan.Verdict(strings.ToLower(strings.TrimSpace(reply.Verdict)))
	if !scan.VerdictAllowed(local.Variant, verdict) {
		return scan.ArbiterVerdict{}, fmt.Errorf("%w: %q", scan.ErrArbiterBadVerdict, reply.Verdict)
	}

	return scan.ArbiterVerdict{Verdict: verdict, Explanation: strings.TrimSpace(reply.Explanation)}, nil
}

// stripFences removes the ```json fences models add despite being told not
// to, leaving the bare object.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}
	// Some answers wrap the object in prose anyway; cut to the outermost braces.
	if start := strings.Index(s, "{"); start >= 0 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
