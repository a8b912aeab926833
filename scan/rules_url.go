package scan

import (
	"fmt"
	"strings"
)

// urlRules is the ordered URL detection table. Parallel to emailRules but
// not identical: transport, port and path signals only exist here.
var urlRules = []Rule{
	{"shortener_domain", urlShortenerRule},
	{"lookalike_domain", urlLookalikeRule},
	{"fuzzy_brand", urlFuzzyBrandRule},
	{"combo_pattern", urlComboRule},
	{"keyboard_typo", urlKeyboardRule},
	{"leetspeak", urlLeetspeakRule},
	{"homoglyph", urlHomoglyphRule},
	{"punycode", urlPunycodeRule},
	{"ip_host", urlIPHostRule},
	{"subdomain_confusion", urlSubdomainConfusionRule},
	{"deep_subdomains", urlDeepSubdomainsRule},
	{"many_hyphens", urlManyHyphensRule},
	{"suspicious_tld", urlSuspiciousTLDRule},
	{"dangerous_scheme", urlDangerousSchemeRule},
	{"no_https", urlNoHTTPSRule},
	{"at_symbol", urlAtSymbolRule},
	{"non_standard_port", urlNonStandardPortRule},
	{"path_keyword", urlPathKeywordRule},
	{"executable_ext", urlExecutableExtRule},
	{"auto_generated", urlAutoGeneratedRule},
	{"mixed_case", urlMixedCaseRule},
}

func urlShortenerRule(fs *FeatureSet, pol *Policy) []Indicator {
	if !shortenerDomains[fs.Host] && !shortenerDomains[fs.BaseDomain] {
		return nil
	}
	return []Indicator{{
		Description: fmt.Sprintf("Host '%s' is a link-shortening service that hides the real destination", fs.Host),
		Weight:      pol.URL.Weights.Shortener,
	}}
}

func urlLookalikeRule(fs *FeatureSet, pol *Policy) []Indicator {
	target, ok := lookalikeDomains[fs.Host]
	if !ok {
		target, ok = lookalikeDomains[fs.BaseDomain]
	}
	if !ok {
		return nil
	}
	return []Indicator{{
		Description: fmt.Sprintf("Host '%s' is a known typosquat of '%s'", fs.BaseDomain, target),
		Weight:      pol.URL.Weights.Lookalike,
	}}
}

func urlFuzzyBrandRule(fs *FeatureSet, pol *Policy) []Indicator {
	if fs.HostIsIP || isKnownBrandDomain(fs) {
		return nil
	}
	brand, dist, ok := fuzzyBrandMatch(fs.BaseName)
	if !ok {
		return nil
	}
	return []Indicator{{
		Description: fmt.Sprintf("Host '%s' closely resembles brand '%s' (edit distance %d)", fs.BaseDomain, brand, dist),
		Weight:      pol.URL.Weights.FuzzyBrand,
	}}
}

func urlComboRule(fs *FeatureSet, pol *Policy) []Indicator {
	if fs.HostIsIP || isKnownBrandDomain(fs) {
		return nil
	}
	var out []Indicator
	for _, pat := range comboPatterns {
		if m := pat.FindString(fs.Host); m != "" {
			out = append(out, Indicator{
				Description: fmt.Sprintf("Host combines a trusted name with an action word ('%s')", strings.Trim(m, ".-")),
				Weight:      pol.URL.Weights.ComboPattern,
			})
		}
	}
	return out
}

func urlKeyboardRule(fs *FeatureSet, pol *Policy) []Indicator {
	if fs.HostIsIP || isKnownBrandDomain(fs) {
		return nil
	}
	brand, ok := keyboardTypoMatch(fs.BaseName)
	if !ok {
		return nil
	}
	return []Indicator{{
		Description: fmt.Sprintf("Host '%s' is one keyboard slip away from brand '%s'", fs.BaseDomain, brand),
		Weight:      pol.URL.Weights.KeyboardTypo,
	}}
}

func urlLeetspeakRule(fs *FeatureSet, pol *Policy) []Indicator {
	if fs.HostIsIP || isKnownBrandDomain(fs) {
		return nil
	}
	brand, ok := leetspeakMatch(fs.BaseName)
	if !ok {
		return nil
	}
	return []Indicator{{
		Description: fmt.Sprintf("Host '%s' uses character substitution to imitate '%s'", fs.BaseDomain, brand),
		Weight:      pol.URL.Weights.Leetspeak,
	}}
}

func urlHomoglyphRule(fs *FeatureSet, pol *Policy) []Indicator {
	script, ok := homoglyphHit(fs.Host)
	if !ok {
		return nil
	}
	return []Indicator{{
		Description: fmt.Sprintf("Host contains %s characters that mimic Latin letters", script),
		Weight:      pol.URL.Weights.Homoglyph,
	}}
}

func urlPunycodeRule(fs *FeatureSet, pol *Policy) []Indicator {
	if !punycodePattern.MatchString(fs.Host) {
		return nil
	}
	return []Indicator{{
		Description: punycodeDescription(fs.Host),
		Weight:      pol.URL.Weights.Punycode,
	}}
}

func urlIPHostRule(fs *FeatureSet, pol *Policy) []Indicator {
	if !fs.HostIsIP {
		return nil
	}
	return []Indicator{{
		Description: fmt.Sprintf("URL addresses a raw IP (%s) instead of a named host", fs.Host),
		Weight:      pol.URL.Weights.IPHost,
	}}
}

func urlSubdomainConfusionRule(fs *FeatureSet, pol *Policy) []Indicator {
	if fs.HostIsIP || isKnownBrandDomain(fs) {
		return nil
	}
	if !subdomainConfusionPattern.MatchString(fs.Host) {
		return nil
	}
	return []Indicator{{
		Description: fmt.Sprintf("Host '%s' disguises its real registrable domain behind a '.com-' style fragment", fs.Host),
		Weight:      pol.URL.Weights.SubdomainConfusion,
	}}
}

func urlDeepSubdomainsRule(fs *FeatureSet, pol *Policy) []Indicator {
	if len(fs.SubdomainLabels) < 3 {
		return nil
	}
	return []Indicator{{
		Description: fmt.Sprintf("Host nests %d subdomain levels", len(fs.SubdomainLabels)),
		Weight:      pol.URL.Weights.DeepSubdomains,
	}}
}

func urlManyHyphensRule(fs *FeatureSet, pol *Policy) []Indicator {
	if strings.Count(fs.Host, "-") < 3 {
		return nil
	}
	return []Indicator{{
		Description: fmt.Sprintf("Host contains %d hyphens", strings.Count(fs.Host, "-")),
		Weight:      pol.URL.Weights.ManyHyphens,
	}}
}

func urlSuspiciousTLDRule(fs *FeatureSet, pol *Policy) []Indicator {
	if fs.HostIsIP || !suspiciousTLDs[fs.TLD] {
		return nil
	}
	return []Indicator{{
		Description: fmt.Sprintf("Top-level domain '.%s' is heavily abused by phishing campaigns", fs.TLD),
		Weight:      pol.URL.Weights.SuspiciousTLD,
	}}
}

func urlDangerousSchemeRule(fs *FeatureSet, pol *Policy) []Indicator {
	switch fs.Scheme {
	case "javascript", "data", "vbscript":
	default:
		return nil
	}
	return []Indicator{{
		Description: fmt.Sprintf("URL uses the '%s:' scheme, which can execute code directly", fs.Scheme),
		Weight:      pol.URL.Weights.DangerousScheme,
	}}
}

func urlNoHTTPSRule(fs *FeatureSet, pol *Policy) []Indicator {
	if fs.Scheme == "https" {
		return nil
	}
	return []Indicator{{
		Description: "Connection is not protected by HTTPS",
		Weight:      pol.URL.Weights.NoHTTPS,
	}}
}

func urlAtSymbolRule(fs *FeatureSet, pol *Policy) []Indicator {
	if fs.Userinfo == "" && fs.AtCount < 2 {
		return nil
	}
	return []Indicator{{
		Description: "URL embeds an '@' segment that can spoof the visible destination",
		Weight:      pol.URL.Weights.AtSymbol,
	}}
}

func urlNonStandardPortRule(fs *FeatureSet, pol *Policy) []Indicator {
	if fs.Port == "" || fs.Port == "80" || fs.Port == "443" {
		return nil
	}
	return []Indicator{{
		Description: fmt.Sprintf("URL targets non-standard port %s", fs.Port),
		Weight:      pol.URL.Weights.NonStandardPort,
	}}
}

func urlPathKeywordRule(fs *FeatureSet, pol *Policy) []Indicator {
	lowerPath := strings.ToLower(fs.Path)
	var out []Indicator
	for _, kw := range urlPathKeywords {
		hit := strings.Contains(lowerPath, kw)
		if !hit {
			for _, qk := range fs.QueryKeys {
				if strings.Contains(qk, kw) {
					hit = true
					break
				}
			}
		}
		if hit {
			out = append(out, Indicator{
				Description: fmt.Sprintf("Path or query contains pressure keyword '%s'", kw),
				Weight:      pol.URL.Weights.PathKeyword,
			})
		}
	}
	return out
}

func urlExecutableExtRule(fs *FeatureSet, pol *Policy) []Indicator {
	lowerPath := strings.ToLower(fs.Path)
	for _, seg := range strings.Split(lowerPath, "/") {
		for _, ext := range executableExtensions {
			if strings.HasSuffix(seg, ext) {
				return []Indicator{{
					Description: fmt.Sprintf("Path delivers an executable file ('%s')", seg),
					Weight:      pol.URL.Weights.ExecutableExt,
				}}
			}
		}
	}
	return nil
}

func urlAutoGeneratedRule(fs *FeatureSet, pol *Policy) []Indicator {
	desc := autoGeneratedHit(fs.Userinfo)
	if desc == "" {
		return nil
	}
	return []Indicator{{
		Description: desc,
		Weight:      pol.URL.Weights.AutoGenerated,
	}}
}

func urlMixedCaseRule(fs *FeatureSet, pol *Policy) []Indicator {
	if !fs.MixedCase {
		return nil
	}
	return []Indicator{{
		Description: "Host mixes upper and lower case to blur recognition",
		Weight:      pol.URL.Weights.MixedCase,
	}}
}
