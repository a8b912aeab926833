package scan

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Policy is the tunable table behind the pipeline: rule weights, band
// thresholds, display scores and network budgets. Loaded once at startup and
// treated as read-only afterwards.
type Policy struct {
	Email EmailPolicy `koanf:"email" json:"email"`
	URL   URLPolicy   `koanf:"url" json:"url"`

	ResolverMaxHops       int `koanf:"resolver_max_hops" json:"resolverMaxHops"`
	ResolverTotalBudgetMS int `koanf:"resolver_total_budget_ms" json:"resolverTotalBudgetMs"`
	ResolverHopTimeoutMS  int `koanf:"resolver_hop_timeout_ms" json:"resolverHopTimeoutMs"`
	ArbiterTimeoutMS      int `koanf:"arbiter_timeout_ms" json:"arbiterTimeoutMs"`
	IntelTimeoutMS        int `koanf:"intel_timeout_ms" json:"intelTimeoutMs"`
}

type EmailPolicy struct {
	Weights EmailWeights `koanf:"weights" json:"weights"`

	// Band thresholds. score >= InvalidMin is the most severe band,
	// score >= RiskyMin the middle one.
	InvalidMin int `koanf:"invalid_min" json:"invalidMin"`
	RiskyMin   int `koanf:"risky_min" json:"riskyMin"`

	DisplaySevere int `koanf:"display_severe" json:"displaySevere"`
	DisplayMiddle int `koanf:"display_middle" json:"displayMiddle"`
	DisplaySafe   int `koanf:"display_safe" json:"displaySafe"`
}

type URLPolicy struct {
	Weights URLWeights `koanf:"weights" json:"weights"`

	DangerousMin  int `koanf:"dangerous_min" json:"dangerousMin"`
	SuspiciousMin int `koanf:"suspicious_min" json:"suspiciousMin"`

	DisplaySevere int `koanf:"display_severe" json:"displaySevere"`
	DisplayMiddle int `koanf:"display_middle" json:"displayMiddle"`
	DisplaySafe   int `koanf:"display_safe" json:"displaySafe"`
}

type EmailWeights struct {
	InvalidFormat      int `koanf:"invalid_format" json:"invalidFormat"`
	Disposable         int `koanf:"disposable" json:"disposable"`
	Lookalike          int `koanf:"lookalike" json:"lookalike"`
	FuzzyBrand         int `koanf:"fuzzy_brand" json:"fuzzyBrand"`
	ComboPattern       int `koanf:"combo_pattern" json:"comboPattern"`
	KeyboardTypo       int `koanf:"keyboard_typo" json:"keyboardTypo"`
	Leetspeak          int `koanf:"leetspeak" json:"leetspeak"`
	Homoglyph          int `koanf:"homoglyph" json:"homoglyph"`
	Punycode           int `koanf:"punycode" json:"punycode"`
	IPHost             int `koanf:"ip_host" json:"ipHost"`
	SubdomainConfusion int `koanf:"subdomain_confusion" json:"subdomainConfusion"`
	DeepSubdomains     int `koanf:"deep_subdomains" json:"deepSubdomains"`
	ManyHyphens        int `koanf:"many_hyphens" json:"manyHyphens"`
	SuspiciousTLD      int `koanf:"suspicious_tld" json:"suspiciousTld"`
	LocalKeyword       int `koanf:"local_keyword" json:"localKeyword"`
	FreeMailCorporate  int `koanf:"free_mail_corporate" json:"freeMailCorporate"`
	AutoGenerated      int `koanf:"auto_generated" json:"autoGenerated"`
	MixedCase          int `koanf:"mixed_case" json:"mixedCase"`
}

type URLWeights struct {
	InvalidFormat      int `koanf:"invalid_format" json:"invalidFormat"`
	Shortener          int `koanf:"shortener" json:"shortener"`
	Lookalike          int `koanf:"lookalike" json:"lookalike"`
	FuzzyBrand         int `koanf:"fuzzy_brand" json:"fuzzyBrand"`
	ComboPattern       int `koanf:"combo_pattern" json:"comboPattern"`
	KeyboardTypo       int `koanf:"keyboard_typo" json:"keyboardTypo"`
	Leetspeak          int `koanf:"leetspeak" json:"leetspeak"`
	Homoglyph          int `koanf:"homoglyph" json:"homoglyph"`
	Punycode           int `koanf:"punycode" json:"punycode"`
	IPHost             int `koanf:"ip_host" json:"ipHost"`
	SubdomainConfusion int `koanf:"subdomain_confusion" json:"subdomainConfusion"`
	DeepSubdomains     int `koanf:"deep_subdomains" json:"deepSubdomains"`
	ManyHyphens        int `koanf:"many_hyphens" json:"manyHyphens"`
	SuspiciousTLD      int `koanf:"suspicious_tld" json:"suspiciousTld"`
	PathKeyword        int `koanf:"path_keyword" json:"pathKeyword"`
	ExecutableExt      int `koanf:"executable_ext" json:"executableExt"`
	NoHTTPS            int `koanf:"no_https" json:"noHttps"`
	DangerousScheme    int `koanf:"dangerous_scheme" json:"dangerousScheme"`
	AtSymbol           int `koanf:"at_symbol" json:"atSymbol"`
	NonStandardPort    int `koanf:"non_standard_port" json:"nonStandardPort"`
	MixedCase          int `koanf:"mixed_case" json:"mixedCase"`
	AutoGenerated      int `koanf:"auto_generated" json:"autoGenerated"`
}

// DefaultPolicy returns the shipped weights and thresholds. The band
// thresholds are contract values; the weights are tuning knobs.
func DefaultPolicy() *Policy {
	return &Policy{
		Email: EmailPolicy{
			Weights: EmailWeights{
				InvalidFormat:      100,
				Disposable:         35,
				Lookalike:          45,
				FuzzyBrand:         30,
				ComboPattern:       25,
				KeyboardTypo:       30,
				Leetspeak:          25,
				Homoglyph:          35,
				Punycode:           30,
				IPHost:             100,
				SubdomainConfusion: 35,
				DeepSubdomains:     15,
				ManyHyphens:        10,
				SuspiciousTLD:      10,
				LocalKeyword:       15,
				FreeMailCorporate:  20,
				AutoGenerated:      15,
				MixedCase:          10,
			},
			InvalidMin:    65,
			RiskyMin:      35,
			DisplaySevere: 85,
			DisplayMiddle: 60,
			DisplaySafe:   15,
		},
		URL: URLPolicy{
			Weights: URLWeights{
				InvalidFormat:      100,
				Shortener:          20,
				Lookalike:          45,
				FuzzyBrand:         30,
				ComboPattern:       25,
				KeyboardTypo:       30,
				Leetspeak:          25,
				Homoglyph:          35,
				Punycode:           30,
				IPHost:             40,
				SubdomainConfusion: 35,
				DeepSubdomains:     15,
				ManyHyphens:        10,
				SuspiciousTLD:      10,
				PathKeyword:        15,
				ExecutableExt:      25,
				NoHTTPS:            15,
				DangerousScheme:    50,
				AtSymbol:           30,
				NonStandardPort:    15,
				MixedCase:          10,
				AutoGenerated:      15,
			},
			DangerousMin:  60,
			SuspiciousMin: 30,
			DisplaySevere: 85,
			DisplayMiddle: 60,
			DisplaySafe:   20,
		},
		ResolverMaxHops:       5,
		ResolverTotalBudgetMS: 5000,
		ResolverHopTimeoutMS:  2000,
		ArbiterTimeoutMS:      22000,
		IntelTimeoutMS:        4000,
	}

	// Earlier tuning round, kept for reference while the weights settle:
	// FuzzyBrand: 25, KeyboardTypo: 35, IPHost (url): 60, NoHTTPS: 10,
	// DangerousScheme: 60, Shortener: 30.
}

// LoadPolicy builds a Policy by layering defaults, an optional YAML file and
// PHISHGUARD_-prefixed environment variables.
// Order of precedence (low -> high):
//  1. defaults (DefaultPolicy)
//  2. file (YAML) if path is non-empty
//  3. env (prefix PHISHGUARD_, flat keys)
func LoadPolicy(path string) (*Policy, error) {
	base := DefaultPolicy()

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load policy file: %w", err)
		}
	}

	// PHISHGUARD_ARBITER_TIMEOUT_MS, PHISHGUARD_RESOLVER_MAX_HOPS, ...
	// Underscores are preserved to match the koanf tags on the struct.
	envProvider := env.Provider("PHISHGUARD_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "phishguard_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load policy env: %w", err)
	}

	pol := *base
	if err := k.UnmarshalWithConf("", &pol, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal policy: %w", err)
	}

	if err := pol.validate(); err != nil {
		return nil, err
	}
	return &pol, nil
}

// LoadPolicyFromEnv resolves the policy file path from PHISHGUARD_CONFIG.
func LoadPolicyFromEnv() (*Policy, error) {
	return LoadPolicy(os.Getenv("PHISHGUARD_CONFIG"))
}

func (p *Policy) validate() error {
	if p.Email.InvalidMin <= p.Email.RiskyMin {
		return fmt.Errorf("email bands out of order: invalid_min %d <= risky_min %d", p.Email.InvalidMin, p.Email.RiskyMin)
	}
	if p.URL.DangerousMin <= p.URL.SuspiciousMin {
		return fmt.Errorf("url bands out of order: dangerous_min %d <= suspicious_min %d", p.URL.DangerousMin, p.URL.SuspiciousMin)
	}
	if p.ResolverMaxHops <= 0 || p.ResolverTotalBudgetMS <= 0 || p.ResolverHopTimeoutMS <= 0 {
		return fmt.Errorf("resolver budgets must be positive")
	}
	if p.ArbiterTimeoutMS <= 0 {
		return fmt.Errorf("arbiter timeout must be positive")
	}
	return nil
}

func (p *Policy) ResolverTotalBudget() time.Duration {
	return time.Duration(p.ResolverTotalBudgetMS) * time.Millisecond
}

func (p *Policy) ResolverHopTimeout() time.Duration {
	return time.Duration(p.ResolverHopTimeoutMS) * time.Millisecond
}

func (p *Policy) ArbiterTimeout() time.Duration {
	return time.Duration(p.ArbiterTimeoutMS) * time.Millisecond
}

func (p *Policy) IntelTimeout() time.Duration {
	return time.Duration(p.IntelTimeoutMS) * time.Millisecond
}
