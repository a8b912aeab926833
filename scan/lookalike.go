package scan

import (
	"fmt"
	"strings"

	"github.com/agext/levenshtein"
	"golang.org/x/net/idna"
)

// Brand-impersonation matchers shared by the email and URL rule tables.
// All of them skip candidates whose registrable domain is a known brand
// domain; the real thing never impersonates itself.

var brandNameSet = buildBrandNameSet()

func buildBrandNameSet() map[string]bool {
	m := make(map[string]bool, len(brandNames))
	for _, b := range brandNames {
		m[b] = true
	}
	return m
}

func isKnownBrandDomain(fs *FeatureSet) bool {
	return knownBrandDomains[fs.BaseDomain]
}

// fuzzyBrandMatch reports the first brand within edit distance 1..2 of the
// candidate base name. Candidates shorter than 4 characters are ignored;
// short names sit within distance 2 of half the dictionary.
func fuzzyBrandMatch(baseName string) (string, int, bool) {
	if len(baseName) < 4 || brandNameSet[baseName] {
		return "", 0, false
	}
	for _, brand := range brandNames {
		d := levenshtein.Distance(baseName, brand, nil)
		if d >= 1 && d <= 2 {
			return brand, d, true
		}
	}
	return "", 0, false
}

// keyboardTypoMatch reports the first brand that is one keyboard-adjacent
// substitution away from the candidate at equal length.
func keyboardTypoMatch(baseName string) (string, bool) {
	if brandNameSet[baseName] {
		return "", false
	}
	for _, brand := range brandNames {
		if len(brand) != len(baseName) {
			continue
		}
		diff := -1
		for i := 0; i < len(brand); i++ {
			if brand[i] != baseName[i] {
				if diff >= 0 {
					diff = -2
					break
				}
				diff = i
			}
		}
		if diff < 0 {
			continue
		}
		if keyboardAdjacency[rune(brand[diff])][rune(baseName[diff])] {
			return brand, true
		}
	}
	return "", false
}

// leetspeakMatch de-leets digit substitutions in the candidate base name and
// reports the brand it resolves to. Only fires when a digit was actually
// substituted.
func leetspeakMatch(baseName string) (string, bool) {
	if !strings.ContainsAny(baseName, "0135") {
		return "", false
	}
	for _, candidate := range deLeetVariants(baseName) {
		if candidate != baseName && brandNameSet[candidate] {
			return candidate, true
		}
	}
	return "", false
}

// deLeetVariants expands every leet digit back to its letter readings. "1"
// is ambiguous (l or i), so the expansion branches on it.
func deLeetVariants(name string) []string {
	variants := []string{""}
	for _, r := range name {
		subs, ok := leetSubstitutions[r]
		if !ok {
			subs = []rune{r}
		}
		next := make([]string, 0, len(variants)*len(subs))
		for _, v := range variants {
			for _, s := range subs {
				next = append(next, v+string(s))
			}
		}
		if len(next) > 64 {
			next = next[:64]
		}
		variants = next
	}
	return variants
}

// homoglyphHit reports the first non-Latin script block found in the string.
func homoglyphHit(s string) (string, bool) {
	for _, r := range s {
		for _, block := range homoglyphRanges {
			if r >= block.Lo && r <= block.Hi {
				return block.Name, true
			}
		}
	}
	return "", false
}

// autoGeneratedHit describes the first auto-generated pattern found in an
// identifier piece (local part or URL userinfo), or "" when none match.
func autoGeneratedHit(s string) string {
	if s == "" {
		return ""
	}
	switch {
	case ticketPattern.MatchString(s):
		return fmt.Sprintf("Identifier '%s' follows an auto-generated ticket pattern", s)
	case digitRunPattern.MatchString(s):
		return fmt.Sprintf("Identifier '%s' carries a long machine-style digit run", s)
	case gibberishPattern.MatchString(s):
		return fmt.Sprintf("Identifier '%s' looks like random gibberish", s)
	}
	return ""
}

// punycodeDescription renders an xn-- host back to unicode so the user can
// see what the encoded name actually displays as.
func punycodeDescription(host string) string {
	decoded, err := idna.ToUnicode(host)
	if err != nil || decoded == host {
		return fmt.Sprintf("Internationalized (punycode) domain '%s'", host)
	}
	return fmt.Sprintf("Internationalized (punycode) domain '%s' displays as '%s'", host, decoded)
}
