package scan

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"phishguard/intel"
	"phishguard/metrics"
	"phishguard/resolve"
)

// ChainResolver follows a URL's redirect chain. Satisfied by
// *resolve.Resolver; mocked in tests.
type ChainResolver interface {
	Resolve(ctx context.Context, rawURL string) resolve.Chain
}

// IntelSource gathers the advisory domain facts attached to a result.
type IntelSource interface {
	Gather(ctx context.Context, domain string) *intel.Report
}

// FinalResult is the single answer the pipeline returns per request. The
// band and display score come from the final verdict; the heuristic score
// and indicators ride along unmodified for transparency.
type FinalResult struct {
	ID         string  `json:"id"`
	Identifier string  `json:"identifier"`
	Variant    Variant `json:"variant"`

	IsRisky      bool     `json:"isRisky"`
	RiskBand     RiskBand `json:"riskBand"`
	Verdict      Verdict  `json:"verdict"`
	DisplayScore int      `json:"displayScore"`
	Explanation  string   `json:"explanation"`

	VerdictSource VerdictSource  `json:"verdictSource"`
	Outcome       ArbiterOutcome `json:"outcome"`

	HeuristicScore int         `json:"heuristicScore"`
	Indicators     []Indicator `json:"indicators"`

	RedirectChain *resolve.Chain `json:"redirectChain,omitempty"`
	DomainIntel   *intel.Report  `json:"domainIntel,omitempty"`

	Timestamp string `json:"timestamp"`
}

// Pipeline wires the extractor, scorer, resolver, arbiter gateway and
// assembler together. Classifier and Intel may be nil (local-only analysis,
// no advisory block); Resolver may be nil for email-only deployments.
type Pipeline struct {
	Policy     *Policy
	Classifier Classifier
	Resolver   ChainResolver
	Intel      IntelSource
}

// NewPipeline builds a pipeline over the given policy. Nil policy falls back
// to the shipped defaults.
func NewPipeline(pol *Policy) *Pipeline {
	if pol == nil {
		pol = DefaultPolicy()
	}
	return &Pipeline{Policy: pol}
}

// EvaluateEmail runs the email variant of the pipeline. It never fails: a
// structurally invalid address becomes a maximum-risk result.
func (p *Pipeline) EvaluateEmail(ctx context.Context, identifier string) FinalResult {
	fs, err := ExtractEmail(identifier)
	if errors.Is(err, ErrInvalidIdentifier) {
		log.Printf("[Pipeline] email %q failed structural decomposition", identifier)
		return p.assemble(identifier, invalidFormatScore(VariantEmail, p.Policy), ArbiterVerdict{}, OutcomeFallbackInvalidInput, nil, nil)
	}

	var report *intel.Report
	if p.Intel != nil {
		report = p.Intel.Gather(ctx, fs.BaseDomain)
	}

	local := CalculateScore(&fs, p.Policy)
	log.Printf("[Scorer] email %q scored %d (%s, %d indicators)", identifier, local.Normalized, local.Band, len(local.Indicators))

	verdict, outcome := p.arbitrateTimed(ctx, identifier, local)
	return p.assemble(identifier, local, verdict, outcome, nil, report)
}

// EvaluateURL runs the URL variant: resolve the redirect chain and gather
// intel in parallel, score the final destination, then arbitrate.
func (p *Pipeline) EvaluateURL(ctx context.Context, identifier string) FinalResult {
	fs, err := ExtractURL(identifier)
	if errors.Is(err, ErrInvalidIdentifier) {
		log.Printf("[Pipeline] url %q failed structural decomposition", identifier)
		return p.assemble(identifier, invalidFormatScore(VariantURL, p.Policy), ArbiterVerdict{}, OutcomeFallbackInvalidInput, nil, nil)
	}

	var chain *resolve.Chain
	var report *intel.Report

	g, gctx := errgroup.WithContext(ctx)
	if p.Resolver != nil && (fs.Scheme == "http" || fs.Scheme == "https") {
		g.Go(func() error {
			c := p.Resolver.Resolve(gctx, identifier)
			chain = &c
			return nil
		})
	}
	if p.Intel != nil {
		g.Go(func() error {
			report = p.Intel.Gather(gctx, fs.BaseDomain)
			return nil
		})
	}
	_ = g.Wait()

	// Score the destination the user actually lands on, not the wrapper.
	scored := fs
	target := identifier
	if chain != nil && chain.Final() != "" && chain.Final() != identifier {
		if finalFS, err := ExtractURL(chain.Final()); err == nil {
			scored = finalFS
			target = chain.Final()
			log.Printf("[Resolver] %q resolved through %d hops to %q", identifier, chain.Length()-1, target)
		}
	}
	if chain != nil {
		metrics.ResolverHops.Observe(float64(chain.Length() - 1))
	}

	local := CalculateScore(&scored, p.Policy)
	if chain != nil && chain.IsShortened {
		// Keep the shortener evidence even when the final host is clean.
		local = ensureShortenerIndicator(local, &fs, p.Policy)
	}
	log.Printf("[Scorer] url %q scored %d (%s, %d indicators)", target, local.Normalized, local.Band, len(local.Indicators))

	verdict, outcome := p.arbitrateTimed(ctx, target, local)
	return p.assemble(identifier, local, verdict, outcome, chain, report)
}

// ensureShortenerIndicator re-adds the shortener indicator when scoring moved
// to a resolved destination whose own host is not in the shortener set. The
// rule is re-run on the original features so presence is decided by what it
// emits, not by a weight value another rule may share.
func ensureShortenerIndicator(local ScoreResult, original *FeatureSet, pol *Policy) ScoreResult {
	extra := urlShortenerRule(original, pol)
	if len(extra) == 0 {
		return local
	}
	for _, ind := range local.Indicators {
		if ind.Description == extra[0].Description {
			return local
		}
	}
	local.Indicators = append([]Indicator{extra[0]}, local.Indicators...)
	local.Raw += extra[0].Weight
	local.Normalized = local.Raw
	if local.Normalized > 100 {
		local.Normalized = 100
	}
	local.Band = urlBand(local.Normalized, pol)
	local.IsSafe = local.Normalized < pol.URL.SuspiciousMin
	return local
}

func (p *Pipeline) arbitrateTimed(ctx context.Context, identifier string, local ScoreResult) (ArbiterVerdict, ArbiterOutcome) {
	start := time.Now()
	verdict, outcome := arbitrate(ctx, p.Classifier, identifier, local, p.Policy.ArbiterTimeout())
	metrics.ArbiterLatency.Observe(time.Since(start).Seconds())
	metrics.ArbiterOutcomes.WithLabelValues(string(outcome)).Inc()
	return verdict, outcome
}

// assemble is the Result Assembler: verdict tier drives the band and display
// score, the local indicators ride along unmodified, and the chain and intel
// pass through untouched.
func (p *Pipeline) assemble(identifier string, local ScoreResult, verdict ArbiterVerdict, outcome ArbiterOutcome, chain *resolve.Chain, report *intel.Report) FinalResult {
	if outcome == OutcomeFallbackInvalidInput {
		verdict = ArbiterVerdict{
			Verdict:     FallbackVerdict(local.Variant, local.Band),
			Explanation: localOnlyExplanation(local),
		}
	}

	source := SourceArbiter
	if outcome != OutcomeArbiterVerdict {
		source = SourceFallback
	}

	tier := verdictSeverity(verdict.Verdict)
	res := FinalResult{
		ID:             uuid.NewString(),
		Identifier:     identifier,
		Variant:        local.Variant,
		IsRisky:        tier >= 1,
		RiskBand:       bandForTier(local.Variant, tier),
		Verdict:        verdict.Verdict,
		DisplayScore:   p.displayScore(local.Variant, tier),
		Explanation:    verdict.Explanation,
		VerdictSource:  source,
		Outcome:        outcome,
		HeuristicScore: local.Normalized,
		Indicators:     local.Indicators,
		RedirectChain:  chain,
		DomainIntel:    report,
		Timestamp:      time.Now().Format(time.RFC3339),
	}

	metrics.Evaluations.WithLabelValues(string(res.Variant), string(res.RiskBand)).Inc()
	return res
}

// verdictSeverity orders verdicts across both variants: 0 safe tier, 1
// middle, 2 most severe.
func verdictSeverity(v Verdict) int {
	switch v {
	case VerdictFake, VerdictDangerous:
		return 2
	case VerdictSuspicious:
		return 1
	default:
		return 0
	}
}

// bandForTier maps a verdict tier back onto the variant's band vocabulary.
func bandForTier(variant Variant, tier int) RiskBand {
	if variant == VariantURL {
		switch tier {
		case 2:
			return BandDangerous
		case 1:
			return BandSuspicious
		default:
			return BandSafe
		}
	}
	switch tier {
	case 2:
		return BandInvalid
	case 1:
		return BandRisky
	default:
		return BandSafe
	}
}

// displayScore is the user-visible number: fixed per verdict tier, decoupled
// from the heuristic score by design of the contract.
func (p *Pipeline) displayScore(variant Variant, tier int) int {
	severe, middle, safe := p.Policy.Email.DisplaySevere, p.Policy.Email.DisplayMiddle, p.Policy.Email.DisplaySafe
	if variant == VariantURL {
		severe, middle, safe = p.Policy.URL.DisplaySevere, p.Policy.URL.DisplayMiddle, p.Policy.URL.DisplaySafe
	}
	switch tier {
	case 2:
		return severe
	case 1:
		return middle
	default:
		return safe
	}
}
