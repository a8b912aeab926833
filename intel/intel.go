// Package intel gathers advisory registration and mail-posture facts about a
// domain. Everything here is transparency metadata: it rides alongside the
// pipeline's result and never feeds the score, the band or the verdict.
package intel

import (
	"context"
	"log"
	"net"
	"strings"
	"time"

	whois "github.com/likexian/whois"
	parser "github.com/likexian/whois-parser"
)

// Report is the advisory block attached to a Final Result when intel
// gathering is enabled.
type Report struct {
	Domain       string      `json:"domain"`
	WhoisAgeDays int         `json:"whoisAgeDays"`
	CreatedOn    string      `json:"createdOn,omitempty"`
	UpdatedOn    string      `json:"updatedOn,omitempty"`
	MailPosture  MailPosture `json:"mailPosture"`
}

// MailPosture summarizes the DNS records a legitimate mail-sending domain
// normally carries.
type MailPosture struct {
	HasMX       bool   `json:"hasMx"`
	HasSPF      bool   `json:"hasSpf"`
	HasDMARC    bool   `json:"hasDmarc"`
	SPFRecord   string `json:"spfRecord,omitempty"`
	DMARCRecord string `json:"dmarcRecord,omitempty"`
}

// Collector runs the lookups. The zero value is usable; Timeout bounds the
// whole gathering pass.
type Collector struct {
	Timeout  time.Duration
	resolver *net.Resolver
}

func NewCollector(timeout time.Duration) *Collector {
	if timeout <= 0 {
		timeout = 4 * time.Second
	}
	return &Collector{Timeout: timeout, resolver: net.DefaultResolver}
}

type whoisFacts struct {
	ageDays   int
	createdOn string
	updatedOn string
}

// Gather collects whois age and mail posture for a domain. Lookups that fail
// leave their fields zeroed; Gather itself never fails, matching the
// advisory-only contract. A whois lookup that outlives the deadline is
// abandoned: its answer lands in a buffered channel nobody reads, never in
// the returned report.
func (c *Collector) Gather(ctx context.Context, domain string) *Report {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	rep := &Report{Domain: domain}

	whoisCh := make(chan whoisFacts, 1)
	go func() {
		age, created, updated := whoisAge(domain, 0)
		whoisCh <- whoisFacts{ageDays: age, createdOn: created, updatedOn: updated}
	}()

	rep.MailPosture = c.mailPosture(ctx, domain)

	select {
	case facts := <-whoisCh:
		rep.WhoisAgeDays = facts.ageDays
		rep.CreatedOn = facts.createdOn
		rep.UpdatedOn = facts.updatedOn
	case <-ctx.Done():
		log.Printf("[Intel] whois for %s abandoned: %v", domain, ctx.Err())
	}
	return rep
}

// whoisAge parses the domain's whois record for its creation date. Records
// that fail to parse retry against the parent domain (registrars answer for
// the registrable domain, not subdomains); depth caps the recursion.
func whoisAge(domain string, depth int) (int, string, string) {
	if depth > 3 {
		return 0, "", ""
	}

	raw, err := whois.Whois(domain)
	if err != nil {
		return 0, "", ""
	}

	p, err := parser.Parse(raw)
	if err != nil || p.Domain == nil {
		parts := strings.Split(domain, ".")
		if len(parts) > 2 {
			return whoisAge(strings.Join(parts[1:], "."), depth+1)
		}
		return 0, "", ""
	}

	created := parseWhoisDate(p.Domain.CreatedDate)
	updated := parseWhoisDate(p.Domain.UpdatedDate)
	if created.IsZero() {
		return 0, "", ""
	}

	ageDays := int(time.Since(created).Hours() / 24)
	updatedStr := ""
	if !updated.IsZero() {
		updatedStr = updated.Format("02/01/2006")
	}
	return ageDays, created.Format("02/01/2006"), updatedStr
}

// whoisDateLayouts covers the registrar formats seen in the wild.
var whoisDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
}

func parseWhoisDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, l := range whoisDateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// mailPosture checks MX, SPF and DMARC presence for a domain.
func (c *Collector) mailPosture(ctx context.Context, domain string) MailPosture {
	posture := MailPosture{}

	mx, err := c.resolver.LookupMX(ctx, domain)
	if err == nil && len(mx) > 0 {
		posture.HasMX = true
	}

	txts, _ := c.resolver.LookupTXT(ctx, domain)
	for _, t := range txts {
		if strings.HasPrefix(strings.ToLower(t), "v=spf1") {
			posture.HasSPF = true
			posture.SPFRecord = t
		}
	}

	dmarcTXT, _ := c.resolver.LookupTXT(ctx, "_dmarc."+domain)
	for _, t := range dmarcTXT {
		if strings.HasPrefix(strings.ToLower(t), "v=dmarc1") {
			posture.HasDMARC = true
			posture.DMARCRecord = t
		}
	}

	return posture
}
