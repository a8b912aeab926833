package scan

import (
	"net"
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/net/publicsuffix"
)

// Variant selects which rule table and thresholds apply to an identifier.
type Variant string

const (
	VariantEmail Variant = "email"
	VariantURL   Variant = "url"
)

// FeatureSet is the normalized, read-only view of an identifier that every
// detection rule consumes. String fields are lowercased; original casing is
// captured in MixedCase because unusual casing is itself a signal.
type FeatureSet struct {
	Variant Variant
	Raw     string

	// Email fields.
	LocalPart string
	Domain    string

	// URL fields.
	Scheme    string
	Host      string
	Path      string
	QueryKeys []string
	Port      string
	Userinfo  string
	AtCount   int

	// Shared derived fields.
	BaseDomain      string
	BaseName        string
	SubdomainLabels []string
	TLD             string
	HostIsIP        bool
	MixedCase       bool
}

// ExtractEmail decomposes an email address around its last "@". An address
// with a missing or empty side is reported as ErrInvalidIdentifier so the
// pipeline can short-circuit to a maximum-risk result.
func ExtractEmail(raw string) (FeatureSet, error) {
	fs := FeatureSet{Variant: VariantEmail, Raw: raw}

	trimmed := strings.TrimSpace(raw)
	at := strings.LastIndex(trimmed, "@")
	if at <= 0 || at == len(trimmed)-1 {
		return fs, ErrInvalidIdentifier
	}

	rawLocal := trimmed[:at]
	rawDomain := trimmed[at+1:]

	fs.LocalPart = strings.ToLower(rawLocal)
	fs.Domain = strings.ToLower(rawDomain)
	fs.MixedCase = hasMixedCase(rawDomain)
	fs.AtCount = strings.Count(trimmed, "@")
	fillHostFeatures(&fs, fs.Domain)
	return fs, nil
}

// ExtractURL decomposes a URL. Unparseable input is reported as
// ErrInvalidIdentifier; everything else yields a usable Feature Set even when
// pieces (host, scheme) are absent.
func ExtractURL(raw string) (FeatureSet, error) {
	fs := FeatureSet{Variant: VariantURL, Raw: raw}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fs, ErrInvalidIdentifier
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return fs, ErrInvalidIdentifier
	}

	fs.Scheme = strings.ToLower(u.Scheme)
	fs.Path = u.Path
	if u.Opaque != "" && fs.Path == "" {
		fs.Path = u.Opaque
	}
	fs.Port = u.Port()
	fs.AtCount = strings.Count(trimmed, "@")
	if u.User != nil {
		fs.Userinfo = u.User.String()
	}

	rawHost := u.Hostname()
	fs.Host = strings.ToLower(rawHost)
	fs.MixedCase = hasMixedCase(rawHost)
	fs.QueryKeys = queryKeysInOrder(u.RawQuery)
	fillHostFeatures(&fs, fs.Host)
	return fs, nil
}

// fillHostFeatures derives the registrable domain, base name, subdomain
// labels and TLD for a lowercased host or email domain.
func fillHostFeatures(fs *FeatureSet, host string) {
	if host == "" {
		return
	}
	if ip := net.ParseIP(strings.Trim(host, "[]")); ip != nil {
		fs.HostIsIP = true
		fs.BaseDomain = host
		fs.BaseName = host
		return
	}

	base, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		// Unlisted or bare suffix: fall back to the last two labels.
		labels := strings.Split(host, ".")
		if len(labels) >= 2 {
			base = strings.Join(labels[len(labels)-2:], ".")
		} else {
			base = host
		}
	}
	fs.BaseDomain = base

	if dot := strings.Index(base, "."); dot > 0 {
		fs.BaseName = base[:dot]
		fs.TLD = base[dot+1:]
	} else {
		fs.BaseName = base
	}
	if suffix := publicsuffix.List.PublicSuffix(host); suffix != "" {
		fs.TLD = suffix
	}

	if prefix := strings.TrimSuffix(strings.TrimSuffix(host, base), "."); prefix != "" {
		fs.SubdomainLabels = strings.Split(prefix, ".")
	}
}

// queryKeysInOrder parses raw query keys preserving their order of
// appearance, so indicator emission stays deterministic.
func queryKeysInOrder(rawQuery string) []string {
	if rawQuery == "" {
		return nil
	}
	var keys []string
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key := pair
		if eq := strings.Index(pair, "="); eq >= 0 {
			key = pair[:eq]
		}
		if unescaped, err := url.QueryUnescape(key); err == nil {
			key = unescaped
		}
		keys = append(keys, strings.ToLower(key))
	}
	return keys
}

func hasMixedCase(s string) bool {
	var hasUpper, hasLower bool
	for _, r := range s {
		if unicode.IsUpper(r) {
			hasUpper = true
		}
		if unicode.IsLower(r) {
			hasLower = true
		}
	}
	return hasUpper && hasLower
}
