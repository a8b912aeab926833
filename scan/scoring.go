package scan

// The scoring engine: one aggregation/banding path shared by both variants,
// with the active rule table and thresholds selected by the Feature Set's
// variant tag.

// Indicator is a single piece of evidence produced by a rule invocation.
type Indicator struct {
	Description string `json:"description"`
	Weight      int    `json:"weight"`
}

// RiskBand is the coarse category derived from the normalized score.
type RiskBand string

const (
	BandSafe       RiskBand = "safe"
	BandRisky      RiskBand = "risky"
	BandInvalid    RiskBand = "invalid"
	BandSuspicious RiskBand = "suspicious"
	BandDangerous  RiskBand = "dangerous"
)

// BandSeverity orders bands for monotonicity checks and fallback mapping:
// 0 safe, 1 middle, 2 most severe.
func BandSeverity(b RiskBand) int {
	switch b {
	case BandInvalid, BandDangerous:
		return 2
	case BandRisky, BandSuspicious:
		return 1
	default:
		return 0
	}
}

// ScoreResult is the Local Scorer's output: raw and clamped scores, the
// derived band and the ordered indicator list.
type ScoreResult struct {
	Variant    Variant     `json:"variant"`
	Raw        int         `json:"rawScore"`
	Normalized int         `json:"normalizedScore"`
	Band       RiskBand    `json:"riskBand"`
	Indicators []Indicator `json:"indicators"`

	// IsSpam (email) is true strictly above the risky threshold; IsSafe
	// (url) is true strictly below the suspicious threshold.
	IsSpam bool `json:"isSpam"`
	IsSafe bool `json:"isSafe"`
}

// Rule couples a stable name with its detection function. Rules are pure:
// same Feature Set and policy, same indicators.
type Rule struct {
	Name  string
	Check func(fs *FeatureSet, pol *Policy) []Indicator
}

// CalculateScore runs the variant's rule table over the Feature Set and
// aggregates indicator weights. Indicator order is rule-table order.
func CalculateScore(fs *FeatureSet, pol *Policy) ScoreResult {
	table := emailRules
	if fs.Variant == VariantURL {
		table = urlRules
	}

	res := ScoreResult{Variant: fs.Variant, Indicators: []Indicator{}}
	for _, rule := range table {
		for _, ind := range rule.Check(fs, pol) {
			res.Indicators = append(res.Indicators, ind)
			res.Raw += ind.Weight
		}
	}

	res.Normalized = res.Raw
	if res.Normalized > 100 {
		res.Normalized = 100
	}
	if res.Normalized < 0 {
		res.Normalized = 0
	}

	switch fs.Variant {
	case VariantURL:
		res.Band = urlBand(res.Normalized, pol)
		res.IsSafe = res.Normalized < pol.URL.SuspiciousMin
	default:
		res.Band = emailBand(res.Normalized, pol)
		res.IsSpam = res.Normalized > pol.Email.RiskyMin
	}
	return res
}

func emailBand(score int, pol *Policy) RiskBand {
	switch {
	case score >= pol.Email.InvalidMin:
		return BandInvalid
	case score >= pol.Email.RiskyMin:
		return BandRisky
	default:
		return BandSafe
	}
}

func urlBand(score int, pol *Policy) RiskBand {
	switch {
	case score >= pol.URL.DangerousMin:
		return BandDangerous
	case score >= pol.URL.SuspiciousMin:
		return BandSuspicious
	default:
		return BandSafe
	}
}

// invalidFormatScore is the short-circuit result for identifiers that fail
// structural decomposition: one indicator, maximum severity.
func invalidFormatScore(variant Variant, pol *Policy) ScoreResult {
	weight := pol.Email.Weights.InvalidFormat
	desc := "Invalid email format"
	if variant == VariantURL {
		weight = pol.URL.Weights.InvalidFormat
		desc = "Invalid URL format"
	}

	res := ScoreResult{
		Variant:    variant,
		Raw:        weight,
		Indicators: []Indicator{{Description: desc, Weight: weight}},
	}
	res.Normalized = res.Raw
	if res.Normalized > 100 {
		res.Normalized = 100
	}
	if variant == VariantURL {
		res.Band = urlBand(res.Normalized, pol)
		res.IsSafe = res.Normalized < pol.URL.SuspiciousMin
	} else {
		res.Band = emailBand(res.Normalized, pol)
		res.IsSpam = res.Normalized > pol.Email.RiskyMin
	}
	return res
}
