package scan

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

var (
	// ErrInvalidIdentifier marks input that fails minimal structural
	// decomposition. The pipeline converts it into a maximum-risk result
	// rather than surfacing it to the caller.
	ErrInvalidIdentifier = errors.New("identifier failed structural decomposition")

	// ErrArbiterUnavailable marks an arbiter that cannot be reached at all.
	ErrArbiterUnavailable = errors.New("arbiter unavailable")

	// ErrArbiterBadVerdict marks a verdict outside the variant's enum.
	ErrArbiterBadVerdict = errors.New("arbiter verdict outside contract")
)

// Verdict is the final three-valued judgment per variant.
type Verdict string

const (
	VerdictLegitimate Verdict = "legitimate"
	VerdictFake       Verdict = "fake"
	VerdictSafe       Verdict = "safe"
	VerdictSuspicious Verdict = "suspicious"
	VerdictDangerous  Verdict = "dangerous"
)

// VerdictSource tells the user whether the verdict came from the arbiter or
// was synthesized from the local heuristic band.
type VerdictSource string

const (
	SourceArbiter  VerdictSource = "arbiter"
	SourceFallback VerdictSource = "fallback"
)

// ArbiterVerdict is the arbitration capability's answer.
type ArbiterVerdict struct {
	Verdict     Verdict `json:"verdict"`
	Explanation string  `json:"explanation"`
}

// Classifier is the external arbitration capability consumed by the
// pipeline. Implementations must honor context cancellation.
type Classifier interface {
	Classify(ctx context.Context, identifier string, local ScoreResult) (ArbiterVerdict, error)
}

// ArbiterOutcome is the terminal state of one arbitration attempt. Exactly
// one of these is reached per request.
type ArbiterOutcome string

const (
	OutcomeArbiterVerdict       ArbiterOutcome = "arbiter_verdict"
	OutcomeFallbackUnavailable  ArbiterOutcome = "fallback_unavailable"
	OutcomeFallbackTimeout      ArbiterOutcome = "fallback_timeout"
	OutcomeFallbackError        ArbiterOutcome = "fallback_error"
	OutcomeFallbackInvalidInput ArbiterOutcome = "fallback_invalid_input"
)

// VerdictAllowed reports whether a verdict belongs to the variant's enum.
func VerdictAllowed(variant Variant, v Verdict) bool {
	if variant == VariantURL {
		return v == VerdictSafe || v == VerdictSuspicious || v == VerdictDangerous
	}
	return v == VerdictLegitimate || v == VerdictSuspicious || v == VerdictFake
}

// FallbackVerdict maps the local risk band onto the variant's verdict enum.
func FallbackVerdict(variant Variant, band RiskBand) Verdict {
	severity := BandSeverity(band)
	if variant == VariantURL {
		switch severity {
		case 2:
			return VerdictDangerous
		case 1:
			return VerdictSuspicious
		default:
			return VerdictSafe
		}
	}
	switch severity {
	case 2:
		return VerdictFake
	case 1:
		return VerdictSuspicious
	default:
		return VerdictLegitimate
	}
}

// localOnlyExplanation builds the reduced-confidence explanation used when
// the verdict had to be synthesized from the heuristic alone.
func localOnlyExplanation(local ScoreResult) string {
	if len(local.Indicators) == 0 {
		return "Local heuristic analysis only (no external arbiter verdict). No risk indicators were flagged."
	}
	descs := make([]string, 0, len(local.Indicators))
	for _, ind := range local.Indicators {
		descs = append(descs, ind.Description)
	}
	return fmt.Sprintf("Local heuristic analysis only (no external arbiter verdict). Flagged: %s.",
		strings.Join(descs, "; "))
}

type classifyReply struct {
	verdict ArbiterVerdict
	err     error
}

// arbitrate races the classifier against the hard timeout and resolves one
// terminal outcome. The losing classifier call is abandoned: its context is
// cancelled and a late reply lands in a buffered channel nobody reads.
func arbitrate(ctx context.Context, cl Classifier, identifier string, local ScoreResult, timeout time.Duration) (ArbiterVerdict, ArbiterOutcome) {
	if cl == nil {
		log.Printf("[Arbiter] not configured, falling back to local band %q", local.Band)
		return ArbiterVerdict{
			Verdict:     FallbackVerdict(local.Variant, local.Band),
			Explanation: localOnlyExplanation(local),
		}, OutcomeFallbackUnavailable
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	replyCh := make(chan classifyReply, 1)
	go func() {
		v, err := cl.Classify(cctx, identifier, local)
		replyCh <- classifyReply{verdict: v, err: err}
	}()

	fallback := ArbiterVerdict{
		Verdict:     FallbackVerdict(local.Variant, local.Band),
		Explanation: localOnlyExplanation(local),
	}

	select {
	case <-cctx.Done():
		log.Printf("[Arbiter] timed out after %s, falling back to local band %q", timeout, local.Band)
		return fallback, OutcomeFallbackTimeout
	case reply := <-replyCh:
		if reply.err != nil {
			switch {
			case errors.Is(reply.err, context.DeadlineExceeded):
				log.Printf("[Arbiter] timed out: %v", reply.err)
				return fallback, OutcomeFallbackTimeout
			case errors.Is(reply.err, ErrArbiterUnavailable):
				log.Printf("[Arbiter] unavailable: %v", reply.err)
				return fallback, OutcomeFallbackUnavailable
			default:
				log.Printf("[Arbiter] call failed: %v", reply.err)
				return fallback, OutcomeFallbackError
			}
		}

		verdict := Verdict(strings.ToLower(strings.TrimSpace(string(reply.verdict.Verdict))))
		if !VerdictAllowed(local.Variant, verdict) {
			log.Printf("[Arbiter] verdict %q outside the %s contract, falling back", verdict, local.Variant)
			return fallback, OutcomeFallbackError
		}
		return ArbiterVerdict{Verdict: verdict, Explanation: reply.verdict.Explanation}, OutcomeArbiterVerdict
	}
}
