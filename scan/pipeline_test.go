package scan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"phishguard/resolve"
)

// fixedClassifier answers every call with the same verdict or error.
type fixedClassifier struct {
	verdict ArbiterVerdict
	err     error
}

func (f *fixedClassifier) Classify(ctx context.Context, identifier string, local ScoreResult) (ArbiterVerdict, error) {
	return f.verdict, f.err
}

// hangingClassifier never answers until its context dies.
type hangingClassifier struct{}

func (h *hangingClassifier) Classify(ctx context.Context, identifier string, local ScoreResult) (ArbiterVerdict, error) {
	<-ctx.Done()
	return ArbiterVerdict{}, ctx.Err()
}

// fixedResolver returns a canned chain.
type fixedResolver struct {
	chain resolve.Chain
}

func (f *fixedResolver) Resolve(ctx context.Context, rawURL string) resolve.Chain {
	return f.chain
}

func res2score(res FinalResult) ScoreResult {
	return ScoreResult{Indicators: res.Indicators}
}

func testPipeline(cl Classifier) *Pipeline {
	p := NewPipeline(DefaultPolicy())
	p.Classifier = cl
	return p
}

func TestPipelineFallback(t *testing.T) {
	convey.Convey("Given a pipeline without an arbiter", t, func() {
		p := testPipeline(nil)

		convey.Convey("The verdict is synthesized from the local band", func() {
			res := p.EvaluateEmail(context.Background(), "support-id-7193@service.amason.com")
			convey.So(res.VerdictSource, convey.ShouldEqual, SourceFallback)
			convey.So(res.Outcome, convey.ShouldEqual, OutcomeFallbackUnavailable)
			convey.So(res.Verdict, convey.ShouldEqual, VerdictFake)
			convey.So(res.RiskBand, convey.ShouldEqual, BandInvalid)
			convey.So(res.IsRisky, convey.ShouldBeTrue)
		})

		convey.Convey("A clean address falls back to legitimate", func() {
			res := p.EvaluateEmail(context.Background(), "alice@example.com")
			convey.So(res.Verdict, convey.ShouldEqual, VerdictLegitimate)
			convey.So(res.IsRisky, convey.ShouldBeFalse)
			convey.So(res.DisplayScore, convey.ShouldEqual, DefaultPolicy().Email.DisplaySafe)
		})

		convey.Convey("The displayed verdict matches the local band exactly", func() {
			res := p.EvaluateURL(context.Background(), "https://paypal.com-verify.info/login")
			convey.So(res.Verdict, convey.ShouldEqual, FallbackVerdict(VariantURL, BandDangerous))
			convey.So(res.RiskBand, convey.ShouldEqual, BandDangerous)
			convey.So(res.DisplayScore, convey.ShouldEqual, DefaultPolicy().URL.DisplaySevere)
		})
	})
}

func TestPipelineArbiterAuthority(t *testing.T) {
	convey.Convey("Given an arbiter that answers", t, func() {
		convey.Convey("Its verdict outranks the local band", func() {
			// Local heuristic says risky, arbiter says legitimate.
			p := testPipeline(&fixedClassifier{verdict: ArbiterVerdict{
				Verdict:     VerdictLegitimate,
				Explanation: "Known internal sender.",
			}})
			res := p.EvaluateEmail(context.Background(), "support-id-7193@service.amason.com")
			convey.So(res.VerdictSource, convey.ShouldEqual, SourceArbiter)
			convey.So(res.Verdict, convey.ShouldEqual, VerdictLegitimate)
			convey.So(res.RiskBand, convey.ShouldEqual, BandSafe)
			convey.So(res.Explanation, convey.ShouldEqual, "Known internal sender.")
			// Local findings still ride along for transparency.
			convey.So(res.HeuristicScore, convey.ShouldBeGreaterThanOrEqualTo, 55)
			convey.So(len(res.Indicators), convey.ShouldBeGreaterThan, 0)
		})

		convey.Convey("A verdict outside the enum degrades to fallback", func() {
			p := testPipeline(&fixedClassifier{verdict: ArbiterVerdict{Verdict: "catastrophic"}})
			res := p.EvaluateEmail(context.Background(), "alice@example.com")
			convey.So(res.VerdictSource, convey.ShouldEqual, SourceFallback)
			convey.So(res.Outcome, convey.ShouldEqual, OutcomeFallbackError)
			convey.So(res.Verdict, convey.ShouldEqual, VerdictLegitimate)
		})

		convey.Convey("A verdict from the wrong variant's enum degrades to fallback", func() {
			p := testPipeline(&fixedClassifier{verdict: ArbiterVerdict{Verdict: VerdictDangerous}})
			res := p.EvaluateEmail(context.Background(), "alice@example.com")
			convey.So(res.Outcome, convey.ShouldEqual, OutcomeFallbackError)
		})

		convey.Convey("An erroring arbiter degrades to fallback", func() {
			p := testPipeline(&fixedClassifier{err: errors.New("boom")})
			res := p.EvaluateEmail(context.Background(), "alice@example.com")
			convey.So(res.Outcome, convey.ShouldEqual, OutcomeFallbackError)
			convey.So(res.VerdictSource, convey.ShouldEqual, SourceFallback)
		})
	})
}

func TestPipelineTimeoutRace(t *testing.T) {
	convey.Convey("Given an arbiter that hangs forever", t, func() {
		p := testPipeline(&hangingClassifier{})
		p.Policy.ArbiterTimeoutMS = 100

		convey.Convey("The pipeline returns within the timeout bound", func() {
			start := time.Now()
			res := p.EvaluateEmail(context.Background(), "alice@example.com")
			convey.So(time.Since(start), convey.ShouldBeLessThan, 2*time.Second)
			convey.So(res.Outcome, convey.ShouldEqual, OutcomeFallbackTimeout)
			convey.So(res.VerdictSource, convey.ShouldEqual, SourceFallback)
		})
	})
}

func TestPipelineInvalidInput(t *testing.T) {
	convey.Convey("Given structurally invalid input", t, func() {
		// The arbiter must not even be consulted.
		p := testPipeline(&fixedClassifier{verdict: ArbiterVerdict{Verdict: VerdictLegitimate}})

		convey.Convey("An email without a usable @ short-circuits to maximum risk", func() {
			res := p.EvaluateEmail(context.Background(), "not-an-email")
			convey.So(res.Outcome, convey.ShouldEqual, OutcomeFallbackInvalidInput)
			convey.So(res.VerdictSource, convey.ShouldEqual, SourceFallback)
			convey.So(res.Verdict, convey.ShouldEqual, VerdictFake)
			convey.So(res.HeuristicScore, convey.ShouldEqual, 100)
			convey.So(len(res.Indicators), convey.ShouldEqual, 1)
		})
	})
}

func TestPipelineRedirectScoring(t *testing.T) {
	convey.Convey("Given a shortened URL resolving through two redirects", t, func() {
		chain := resolve.Chain{
			Hops: []resolve.Hop{
				{URL: "https://bit.ly/abc123", Status: 301},
				{URL: "https://tracker.example.net/r", Status: 302},
				{URL: "https://example.com", Status: 200},
			},
			IsShortened: true,
		}
		p := testPipeline(nil)
		p.Resolver = &fixedResolver{chain: chain}

		convey.Convey("The chain is carried through and the final URL is scored", func() {
			res := p.EvaluateURL(context.Background(), "https://bit.ly/abc123")
			convey.So(res.RedirectChain, convey.ShouldNotBeNil)
			convey.So(res.RedirectChain.Length(), convey.ShouldEqual, 3)
			convey.So(res.RedirectChain.IsShortened, convey.ShouldBeTrue)
			// Scored against example.com: the shortener evidence survives,
			// but nothing from the bit.ly wrapper beyond it.
			convey.So(len(res.Indicators), convey.ShouldBeGreaterThan, 0)
			convey.So(res.Indicators[0].Weight, convey.ShouldEqual, DefaultPolicy().URL.Weights.Shortener)
		})

		convey.Convey("The shortener evidence survives a weight collision with another rule", func() {
			pol := DefaultPolicy()
			pol.URL.Weights.NoHTTPS = pol.URL.Weights.Shortener
			collided := NewPipeline(pol)
			collided.Resolver = &fixedResolver{chain: resolve.Chain{
				Hops: []resolve.Hop{
					{URL: "https://bit.ly/abc123", Status: 301},
					{URL: "http://example.com/landing", Status: 200},
				},
				IsShortened: true,
			}}

			// The final destination fires no-https at the shortener's
			// tuned weight; the shortener indicator must still be there.
			res := collided.EvaluateURL(context.Background(), "https://bit.ly/abc123")
			convey.So(hasIndicator(res2score(res), "shorten"), convey.ShouldBeTrue)
			convey.So(hasIndicator(res2score(res), "HTTPS"), convey.ShouldBeTrue)
		})

		convey.Convey("Evaluation is idempotent under a fixed resolver and arbiter", func() {
			a := p.EvaluateURL(context.Background(), "https://bit.ly/abc123")
			b := p.EvaluateURL(context.Background(), "https://bit.ly/abc123")
			b.ID, b.Timestamp = a.ID, a.Timestamp
			convey.So(b, convey.ShouldResemble, a)
		})
	})

	convey.Convey("Given a resolver that goes nowhere", t, func() {
		p := testPipeline(nil)
		p.Resolver = &fixedResolver{chain: resolve.Chain{
			Hops: []resolve.Hop{{URL: "https://paypal.com-verify.info/login"}},
		}}

		convey.Convey("Scoring falls back to the original input", func() {
			res := p.EvaluateURL(context.Background(), "https://paypal.com-verify.info/login")
			convey.So(res.RiskBand, convey.ShouldEqual, BandDangerous)
			convey.So(res.HeuristicScore, convey.ShouldBeGreaterThanOrEqualTo, 65)
		})
	})
}
