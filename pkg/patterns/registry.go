// Package patterns provides a centralized registry of compiled indicator
// patterns for fraud detection. All regexes are compiled once at first use
// and shared across every analyzer instance.
package patterns

import (
	"regexp"
	"sync"
)

// Pattern holds a compiled regex with metadata.
type Pattern struct {
	Name        string         // Stable identifier for logging
	Regex       *regexp.Regexp // Compiled regex, never nil
	Category    Category       // Indicator category
	Description string         // What this pattern detects, in evidence wording
}

// Hit is one structured indicator found in a piece of text.
type Hit struct {
	Name        string
	Category    Category
	Description string
	Matches     int
}

// Registry holds all compiled patterns, organized by category.
type Registry struct {
	byCategory map[Category][]*Pattern
	all        []*Pattern
}

var (
	globalRegistry *Registry
	initOnce       sync.Once
)

// Get returns the global pattern registry.
func Get() *Registry {
	initOnce.Do(func() {
		globalRegistry = newRegistry()
	})
	return globalRegistry
}

func newRegistry() *Registry {
	r := &Registry{byCategory: make(map[Category][]*Pattern)}

	// Link patterns are intentionally loose: phishing links rarely survive
	// strict URL validation.
	r.add(&Pattern{
		Name:        "external_link",
		Regex:       regexp.MustCompile(`https?://\S+|www\.\S+`),
		Category:    CategoryLink,
		Description: "external link",
	})
	r.add(&Pattern{
		Name:        "dotted_quad_host",
		Regex:       regexp.MustCompile(`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`),
		Category:    CategoryIPHost,
		Description: "raw IP host",
	})

	// Structured financial indicators. Registration order fixes the order of
	// Indicators output.
	r.add(&Pattern{
		Name:        "bitcoin_address",
		Regex:       regexp.MustCompile(`\b(?:bc1[a-z0-9]{25,59}|[13][a-km-zA-HJ-NP-Z1-9]{25,34})\b`),
		Category:    CategoryCryptoWallet,
		Description: "bitcoin wallet address",
	})
	r.add(&Pattern{
		Name:        "ethereum_address",
		Regex:       regexp.MustCompile(`\b0x[a-fA-F0-9]{40}\b`),
		Category:    CategoryCryptoWallet,
		Description: "ethereum wallet address",
	})
	r.add(&Pattern{
		Name:        "payment_card_number",
		Regex:       regexp.MustCompile(`\b(?:\d{4}[ -]?){3}\d{3,4}\b`),
		Category:    CategoryCardNumber,
		Description: "payment card number",
	})
	r.add(&Pattern{
		Name:        "us_ssn",
		Regex:       regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
		Category:    CategoryNationalID,
		Description: "social security number",
	})
	r.add(&Pattern{
		Name:        "iban",
		Regex:       regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{11,30}\b`),
		Category:    CategoryIBAN,
		Description: "international bank account number",
	})

	return r
}

func (r *Registry) add(p *Pattern) {
	r.byCategory[p.Category] = append(r.byCategory[p.Category], p)
	r.all = append(r.all, p)
}

// FindAll returns every match of the category's patterns in text.
func (r *Registry) FindAll(cat Category, text string) []string {
	var out []string
	for _, p := range r.byCategory[cat] {
		out = append(out, p.Regex.FindAllString(text, -1)...)
	}
	return out
}

// MatchesAny reports whether any pattern of the category matches text.
func (r *Registry) MatchesAny(cat Category, text string) bool {
	for _, p := range r.byCategory[cat] {
		if p.Regex.MatchString(text) {
			return true
		}
	}
	return false
}

// Indicators scans text for structured financial indicators (wallets, card
// numbers, identity numbers, bank accounts). Link categories are excluded;
// they have their own scoring path. Hits are returned in fixed registration
// order.
func (r *Registry) Indicators(text string) []Hit {
	var hits []Hit
	for _, p := range r.all {
		if p.Category == CategoryLink || p.Category == CategoryIPHost {
			continue
		}
		n := len(p.Regex.FindAllString(text, -1))
		if n > 0 {
			hits = append(hits, Hit{
				Name:        p.Name,
				Category:    p.Category,
				Description: p.Description,
				Matches:     n,
			})
		}
	}
	return hits
}
