package scan

import (
	"database/sql"
	"fmt"
	"log"
	"strings"

	_ "github.com/glebarez/sqlite" // pure Go, no cgo needed
)

// LoadBrandDB merges brand reference rows from a SQLite database into the
// in-memory tables. Expected schema:
//
//	brands(name TEXT, domain TEXT)         -- brand name + its real domain
//	typo_domains(typo TEXT, target TEXT)   -- curated typosquat -> real domain
//
// Must run before the first request is served; the tables are read-only
// afterwards. A missing path is a no-op so the shipped defaults stand alone.
func LoadBrandDB(path string) error {
	if path == "" {
		return nil
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open brand db: %w", err)
	}
	defer func(db *sql.DB) {
		_ = db.Close()
	}(db)

	brands, err := loadBrands(db)
	if err != nil {
		return err
	}
	typos, err := loadTypoDomains(db)
	if err != nil {
		return err
	}

	added := 0
	for name, domain := range brands {
		if !brandNameSet[name] {
			brandNames = append(brandNames, name)
			brandNameSet[name] = true
			added++
		}
		if domain != "" {
			knownBrandDomains[domain] = true
		}
	}
	for typo, target := range typos {
		if _, exists := lookalikeDomains[typo]; !exists {
			lookalikeDomains[typo] = target
			added++
		}
	}

	// The combo patterns embed the brand alternation, so rebuild them when
	// the brand list grew.
	rebuildBrandPatterns()

	log.Printf("[RefData] merged %d rows from %s (%d brands, %d typo domains)",
		added, path, len(brandNames), len(lookalikeDomains))
	return nil
}

func loadBrands(db *sql.DB) (map[string]string, error) {
	rows, err := db.Query(`SELECT name, domain FROM brands`)
	if err != nil {
		return nil, fmt.Errorf("query brands: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var name, domain string
		if err := rows.Scan(&name, &domain); err != nil {
			return nil, fmt.Errorf("scan brand row: %w", err)
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		out[name] = strings.ToLower(strings.TrimSpace(domain))
	}
	return out, rows.Err()
}

func loadTypoDomains(db *sql.DB) (map[string]string, error) {
	rows, err := db.Query(`SELECT typo, target FROM typo_domains`)
	if err != nil {
		return nil, fmt.Errorf("query typo domains: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var typo, target string
		if err := rows.Scan(&typo, &target); err != nil {
			return nil, fmt.Errorf("scan typo row: %w", err)
		}
		typo = strings.ToLower(strings.TrimSpace(typo))
		target = strings.ToLower(strings.TrimSpace(target))
		if typo == "" || target == "" {
			continue
		}
		out[typo] = target
	}
	return out, rows.Err()
}
