package scan

import (
	"fmt"
	"strings"
)

// emailRules is the ordered email detection table. Order is indicator
// emission order, so it is part of the observable contract.
var emailRules = []Rule{
	{"disposable_domain", emailDisposableRule},
	{"lookalike_domain", emailLookalikeRule},
	{"fuzzy_brand", emailFuzzyBrandRule},
	{"combo_pattern", emailComboRule},
	{"keyboard_typo", emailKeyboardRule},
	{"leetspeak", emailLeetspeakRule},
	{"homoglyph", emailHomoglyphRule},
	{"punycode", emailPunycodeRule},
	{"ip_host", emailIPHostRule},
	{"subdomain_confusion", emailSubdomainConfusionRule},
	{"deep_subdomains", emailDeepSubdomainsRule},
	{"many_hyphens", emailManyHyphensRule},
	{"suspicious_tld", emailSuspiciousTLDRule},
	{"local_keyword", emailLocalKeywordRule},
	{"free_mail_corporate", emailFreeMailCorporateRule},
	{"auto_generated", emailAutoGeneratedRule},
	{"mixed_case", emailMixedCaseRule},
}

func emailDisposableRule(fs *FeatureSet, pol *Policy) []Indicator {
	if !disposableDomains[fs.Domain] && !disposableDomains[fs.BaseDomain] {
		return nil
	}
	return []Indicator{{
		Description: fmt.Sprintf("Domain '%s' is a disposable email provider", fs.Domain),
		Weight:      pol.Email.Weights.Disposable,
	}}
}

func emailLookalikeRule(fs *FeatureSet, pol *Policy) []Indicator {
	target, ok := lookalikeDomains[fs.Domain]
	if !ok {
		target, ok = lookalikeDomains[fs.BaseDomain]
	}
	if !ok {
		return nil
	}
	return []Indicator{{
		Description: fmt.Sprintf("Domain '%s' is a known typosquat of '%s'", fs.BaseDomain, target),
		Weight:      pol.Email.Weights.Lookalike,
	}}
}

func emailFuzzyBrandRule(fs *FeatureSet, pol *Policy) []Indicator {
	if fs.HostIsIP || isKnownBrandDomain(fs) {
		return nil
	}
	brand, dist, ok := fuzzyBrandMatch(fs.BaseName)
	if !ok {
		return nil
	}
	return []Indicator{{
		Description: fmt.Sprintf("Domain '%s' closely resembles brand '%s' (edit distance %d)", fs.BaseDomain, brand, dist),
		Weight:      pol.Email.Weights.FuzzyBrand,
	}}
}

func emailComboRule(fs *FeatureSet, pol *Policy) []Indicator {
	if fs.HostIsIP || isKnownBrandDomain(fs) {
		return nil
	}
	var out []Indicator
	for _, pat := range comboPatterns {
		if m := pat.FindString(fs.Domain); m != "" {
			out = append(out, Indicator{
				Description: fmt.Sprintf("Domain combines a trusted name with an action word ('%s')", strings.Trim(m, ".-")),
				Weight:      pol.Email.Weights.ComboPattern,
			})
		}
	}
	return out
}

func emailKeyboardRule(fs *FeatureSet, pol *Policy) []Indicator {
	if fs.HostIsIP || isKnownBrandDomain(fs) {
		return nil
	}
	brand, ok := keyboardTypoMatch(fs.BaseName)
	if !ok {
		return nil
	}
	return []Indicator{{
		Description: fmt.Sprintf("Domain '%s' is one keyboard slip away from brand '%s'", fs.BaseDomain, brand),
		Weight:      pol.Email.Weights.KeyboardTypo,
	}}
}

func emailLeetspeakRule(fs *FeatureSet, pol *Policy) []Indicator {
	if fs.HostIsIP || isKnownBrandDomain(fs) {
		return nil
	}
	brand, ok := leetspeakMatch(fs.BaseName)
	if !ok {
		return nil
	}
	return []Indicator{{
		Description: fmt.Sprintf("Domain '%s' uses character substitution to imitate '%s'", fs.BaseDomain, brand),
		Weight:      pol.Email.Weights.Leetspeak,
	}}
}

func emailHomoglyphRule(fs *FeatureSet, pol *Policy) []Indicator {
	script, ok := homoglyphHit(fs.Domain)
	if !ok {
		return nil
	}
	return []Indicator{{
		Description: fmt.Sprintf("Domain contains %s characters that mimic Latin letters", script),
		Weight:      pol.Email.Weights.Homoglyph,
	}}
}

func emailPunycodeRule(fs *FeatureSet, pol *Policy) []Indicator {
	if !punycodePattern.MatchString(fs.Domain) {
		return nil
	}
	return []Indicator{{
		Description: punycodeDescription(fs.Domain),
		Weight:      pol.Email.Weights.Punycode,
	}}
}

func emailIPHostRule(fs *FeatureSet, pol *Policy) []Indicator {
	if !fs.HostIsIP {
		return nil
	}
	return []Indicator{{
		Description: fmt.Sprintf("Domain is a raw IP address (%s)", fs.Domain),
		Weight:      pol.Email.Weights.IPHost,
	}}
}

func emailSubdomainConfusionRule(fs *FeatureSet, pol *Policy) []Indicator {
	if fs.HostIsIP || isKnownBrandDomain(fs) {
		return nil
	}
	if !subdomainConfusionPattern.MatchString(fs.Domain) {
		return nil
	}
	return []Indicator{{
		Description: fmt.Sprintf("Domain '%s' disguises its real registrable domain behind a '.com-' style fragment", fs.Domain),
		Weight:      pol.Email.Weights.SubdomainConfusion,
	}}
}

func emailDeepSubdomainsRule(fs *FeatureSet, pol *Policy) []Indicator {
	if len(fs.SubdomainLabels) < 3 {
		return nil
	}
	return []Indicator{{
		Description: fmt.Sprintf("Domain nests %d subdomain levels", len(fs.SubdomainLabels)),
		Weight:      pol.Email.Weights.DeepSubdomains,
	}}
}

func emailManyHyphensRule(fs *FeatureSet, pol *Policy) []Indicator {
	if strings.Count(fs.Domain, "-") < 3 {
		return nil
	}
	return []Indicator{{
		Description: fmt.Sprintf("Domain contains %d hyphens", strings.Count(fs.Domain, "-")),
		Weight:      pol.Email.Weights.ManyHyphens,
	}}
}

func emailSuspiciousTLDRule(fs *FeatureSet, pol *Policy) []Indicator {
	if fs.HostIsIP || !suspiciousTLDs[fs.TLD] {
		return nil
	}
	return []Indicator{{
		Description: fmt.Sprintf("Top-level domain '.%s' is heavily abused by phishing campaigns", fs.TLD),
		Weight:      pol.Email.Weights.SuspiciousTLD,
	}}
}

func emailLocalKeywordRule(fs *FeatureSet, pol *Policy) []Indicator {
	var out []Indicator
	for _, kw := range emailLocalKeywords {
		if strings.Contains(fs.LocalPart, kw) {
			out = append(out, Indicator{
				Description: fmt.Sprintf("Local part contains pressure keyword '%s'", kw),
				Weight:      pol.Email.Weights.LocalKeyword,
			})
		}
	}
	return out
}

func emailFreeMailCorporateRule(fs *FeatureSet, pol *Policy) []Indicator {
	if !freeEmailProviders[fs.Domain] {
		return nil
	}
	for _, kw := range corporateLocalKeywords {
		if strings.Contains(fs.LocalPart, kw) {
			return []Indicator{{
				Description: fmt.Sprintf("Corporate-style sender '%s' on free provider '%s'", fs.LocalPart, fs.Domain),
				Weight:      pol.Email.Weights.FreeMailCorporate,
			}}
		}
	}
	return nil
}

func emailAutoGeneratedRule(fs *FeatureSet, pol *Policy) []Indicator {
	desc := autoGeneratedHit(fs.LocalPart)
	if desc == "" {
		return nil
	}
	return []Indicator{{
		Description: desc,
		Weight:      pol.Email.Weights.AutoGenerated,
	}}
}

func emailMixedCaseRule(fs *FeatureSet, pol *Policy) []Indicator {
	if !fs.MixedCase {
		return nil
	}
	return []Indicator{{
		Description: "Domain mixes upper and lower case to blur recognition",
		Weight:      pol.Email.Weights.MixedCase,
	}}
}
