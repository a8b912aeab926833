package scan

import (
	"regexp"
	"strings"
)

// Reference data for the detection rules. Everything here is read-only after
// process startup; LoadBrandDB may merge extra rows in before the first
// request is served.

// ============================================================================
// TRUSTED BRANDS
// ============================================================================

// brandNames drives the fuzzy, keyboard and leetspeak matchers. Slice order
// is match order, so indicator output stays deterministic.
var brandNames = []string{
	"google", "gmail", "paypal", "amazon", "microsoft", "apple",
	"facebook", "instagram", "netflix", "linkedin", "twitter", "whatsapp",
	"chase", "wellsfargo", "citibank", "bankofamerica", "coinbase",
	"dropbox", "adobe", "ebay", "walmart", "fedex", "usps",
}

// knownBrandDomains short-circuits the impersonation family: a candidate
// that IS the real brand domain is never scored as impersonating itself.
var knownBrandDomains = map[string]bool{
	"google.com":        true,
	"gmail.com":         true,
	"paypal.com":        true,
	"amazon.com":        true,
	"microsoft.com":     true,
	"apple.com":         true,
	"facebook.com":      true,
	"instagram.com":     true,
	"netflix.com":       true,
	"linkedin.com":      true,
	"twitter.com":       true,
	"whatsapp.com":      true,
	"chase.com":         true,
	"wellsfargo.com":    true,
	"citibank.com":      true,
	"bankofamerica.com": true,
	"coinbase.com":      true,
	"dropbox.com":       true,
	"adobe.com":         true,
	"ebay.com":          true,
	"walmart.com":       true,
	"fedex.com":         true,
	"usps.com":          true,
}

// lookalikeDomains maps curated typo variants to the brand domain they
// imitate. Extend via the optional reference DB (refdata_db.go).
var lookalikeDomains = map[string]string{
	"gmial.com":      "gmail.com",
	"gamil.com":      "gmail.com",
	"gmaill.com":     "gmail.com",
	"goggle.com":     "google.com",
	"gooogle.com":    "google.com",
	"googel.com":     "google.com",
	"paypa1.com":     "paypal.com",
	"paypall.com":    "paypal.com",
	"paipal.com":     "paypal.com",
	"amaz0n.com":     "amazon.com",
	"amazonn.com":    "amazon.com",
	"amzon.com":      "amazon.com",
	"micros0ft.com":  "microsoft.com",
	"mircosoft.com":  "microsoft.com",
	"rnicrosoft.com": "microsoft.com",
	"app1e.com":      "apple.com",
	"aplle.com":      "apple.com",
	"faceb00k.com":   "facebook.com",
	"facebok.com":    "facebook.com",
	"netfliix.com":   "netflix.com",
	"netflx.com":     "netflix.com",
	"welsfargo.com":  "wellsfargo.com",
	"chasse.com":     "chase.com",
}

// ============================================================================
// DOMAIN CATEGORY SETS
// ============================================================================

var disposableDomains = map[string]bool{
	"mailinator.com":    true,
	"guerrillamail.com": true,
	"10minutemail.com":  true,
	"tempmail.com":      true,
	"temp-mail.org":     true,
	"throwaway.email":   true,
	"yopmail.com":       true,
	"trashmail.com":     true,
	"getnada.com":       true,
	"sharklasers.com":   true,
	"maildrop.cc":       true,
	"dispostable.com":   true,
	"mailnesia.com":     true,
	"fakeinbox.com":     true,
}

var shortenerDomains = map[string]bool{
	"bit.ly":      true,
	"tinyurl.com": true,
	"goo.gl":      true,
	"t.co":        true,
	"ow.ly":       true,
	"is.gd":       true,
	"buff.ly":     true,
	"rebrand.ly":  true,
	"cutt.ly":     true,
	"shorturl.at": true,
	"rb.gy":       true,
	"tiny.cc":     true,
	"s.id":        true,
	"v.gd":        true,
	"lnkd.in":     true,
}

var freeEmailProviders = map[string]bool{
	"gmail.com":      true,
	"yahoo.com":      true,
	"outlook.com":    true,
	"hotmail.com":    true,
	"aol.com":        true,
	"icloud.com":     true,
	"mail.com":       true,
	"gmx.com":        true,
	"protonmail.com": true,
	"proton.me":      true,
	"yandex.com":     true,
	"zoho.com":       true,
	"live.com":       true,
}

// suspiciousTLDs are high-abuse registries seen constantly in phishing
// campaigns (free or near-free registrations).
var suspiciousTLDs = map[string]bool{
	"tk":       true,
	"ml":       true,
	"ga":       true,
	"cf":       true,
	"gq":       true,
	"xyz":      true,
	"top":      true,
	"club":     true,
	"work":     true,
	"click":    true,
	"link":     true,
	"info":     true,
	"zip":      true,
	"mov":      true,
	"country":  true,
	"stream":   true,
	"download": true,
	"racing":   true,
	"loan":     true,
	"win":      true,
	"vip":      true,
	"icu":      true,
}

// ============================================================================
// KEYWORD LISTS (slice order = indicator emission order)
// ============================================================================

var emailLocalKeywords = []string{
	"verify", "verification", "account", "secure", "security", "update",
	"urgent", "invoice", "payment", "wire", "refund", "suspend", "alert",
	"billing", "support", "password", "confirm", "unlock",
}

var urlPathKeywords = []string{
	"login", "signin", "logon", "verify", "verification", "account",
	"secure", "update", "password", "confirm", "banking", "wallet",
	"invoice", "payment", "urgent", "wire", "suspended", "unlock",
}

// corporateLocalKeywords flag role-style local parts that real companies do
// not run on free mailbox providers.
var corporateLocalKeywords = []string{
	"support", "billing", "admin", "security", "service", "helpdesk",
	"accounts", "payroll", "invoice", "hr", "finance", "noreply", "it",
}

var executableExtensions = []string{
	".exe", ".scr", ".bat", ".cmd", ".msi", ".apk", ".jar", ".vbs", ".ps1",
}

// ============================================================================
// PATTERNS
// ============================================================================

var sensitiveActionWords = `security|secure|support|service|account|verify|verification|login|signin|update|billing|center|alert|help|id`

// comboPatterns pair a brand name or a sensitive-action word with a hyphen
// or dot separator, the classic "paypal-security.com" construction. Rebuilt
// when LoadBrandDB grows the brand list.
var comboPatterns = buildComboPatterns()

func buildComboPatterns() []*regexp.Regexp {
	alternation := strings.Join(brandNames, "|")
	return []*regexp.Regexp{
		regexp.MustCompile(`(?:^|\.)(` + alternation + `)-(?:[a-z0-9]+)`),
		regexp.MustCompile(`(?:^|[.-])(` + sensitiveActionWords + `)-(` + alternation + `)(?:[.-]|$)`),
		regexp.MustCompile(`(?:^|\.)(?:com|net|org)-(` + sensitiveActionWords + `)`),
		regexp.MustCompile(`(` + alternation + `)\.(?:` + sensitiveActionWords + `)\.`),
	}
}

func rebuildBrandPatterns() {
	comboPatterns = buildComboPatterns()
}

// subdomainConfusionPattern catches a trusted-looking "brand.com-" fragment
// sitting in front of the real registrable domain.
var subdomainConfusionPattern = regexp.MustCompile(`\.(?:com|net|org)-`)

var (
	punycodePattern  = regexp.MustCompile(`(?:^|\.)xn--`)
	digitRunPattern  = regexp.MustCompile(`\d{5,}`)
	ticketPattern    = regexp.MustCompile(`^(?:support|ticket|case|ref|invoice|order|account|user|id|no-?reply)[-_.]?(?:id)?[-_.]?\d{3,}`)
	gibberishPattern = regexp.MustCompile(`^[bcdfghjklmnpqrstvwxz]{8,}$`)
)

// homoglyphRanges are non-Latin script blocks abused for visually identical
// domain spoofing.
var homoglyphRanges = []struct {
	Name   string
	Lo, Hi rune
}{
	{"Greek", 0x0370, 0x03FF},
	{"Cyrillic", 0x0400, 0x04FF},
	{"Armenian", 0x0530, 0x058F},
	{"Fullwidth", 0xFF00, 0xFFEF},
}

// leetSubstitutions maps digits back to the letters they impersonate. "1" is
// ambiguous (l or i), so de-leeting tries both.
var leetSubstitutions = map[rune][]rune{
	'0': {'o'},
	'1': {'l', 'i'},
	'5': {'s'},
	'3': {'e'},
}

// ============================================================================
// KEYBOARD LAYOUT
// ============================================================================

var keyboardRows = []string{"qwertyuiop", "asdfghjkl", "zxcvbnm"}

// keyboardAdjacency is built once from the row layout: horizontal neighbors
// plus the staggered keys above and below.
var keyboardAdjacency = buildKeyboardAdjacency()

func buildKeyboardAdjacency() map[rune]map[rune]bool {
	adj := make(map[rune]map[rune]bool)
	add := func(a, b rune) {
		if adj[a] == nil {
			adj[a] = make(map[rune]bool)
		}
		if adj[b] == nil {
			adj[b] = make(map[rune]bool)
		}
		adj[a][b] = true
		adj[b][a] = true
	}
	for r, row := range keyboardRows {
		for i, c := range row {
			if i+1 < len(row) {
				add(c, rune(row[i+1]))
			}
			if r+1 < len(keyboardRows) {
				below := keyboardRows[r+1]
				if i < len(below) {
					add(c, rune(below[i]))
				}
				if i > 0 && i-1 < len(below) {
					add(c, rune(below[i-1]))
				}
			}
		}
	}
	return adj
}

// IsShortenerHost reports whether a host belongs to the known link-shortener
// set. Exposed so the redirect resolver can flag chains up front.
func IsShortenerHost(host string) bool {
	return shortenerDomains[host]
}

// ShortenerHosts hands the shortener set to the resolver configuration.
func ShortenerHosts() map[string]bool {
	return shortenerDomains
}
