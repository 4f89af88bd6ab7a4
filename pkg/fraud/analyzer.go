// Package fraud implements the hybrid multi-modal fraud scoring engine:
// a rule-based heuristic signal analyzer, a score fusion combiner that
// reconciles heuristic output with an external classifier score, per-modality
// adapters (text, image, audio, video), a severity classifier and an
// explanation generator.
//
// All pure components (analyzer, fusion, severity, explanation) are stateless
// and safe for concurrent use without synchronization.
package fraud

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/finshield/engine/pkg/patterns"
)

// Ruleset holds the weight and keyword tables driving the heuristic analyzer.
// The constants ship as defaults and can be overridden from a YAML file; they
// are calibration inputs, not derived values, so they stay configurable
// rather than hardcoded.
type Ruleset struct {
	// Weights maps each category to its maximum score contribution in [0,1].
	Weights map[SignalCategory]float64 `yaml:"weights"`

	// Keywords maps each category to the substrings that trigger it.
	// Matching is case-insensitive against NFKC-normalized text.
	Keywords map[SignalCategory][]string `yaml:"keywords"`

	// KeywordMatchStep is the per-distinct-keyword match strength increment.
	KeywordMatchStep float64 `yaml:"keyword_match_step"`

	// IPURLBonus is the fixed contribution added per URL with a raw
	// dotted-quad host.
	IPURLBonus float64 `yaml:"ip_url_bonus"`

	// UrgencyLinkBonus fires when both urgency and link categories matched.
	UrgencyLinkBonus float64 `yaml:"urgency_link_bonus"`

	// CredentialLinkBonus fires when both credential_request and link
	// categories matched.
	CredentialLinkBonus float64 `yaml:"credential_link_bonus"`

	// HeuristicCap bounds the heuristic score below certainty, leaving room
	// for classifier disagreement during fusion.
	HeuristicCap float64 `yaml:"heuristic_cap"`
}

// keywordOrder fixes the iteration order over keyword categories so identical
// text always yields signals in the same order.
var keywordOrder = []SignalCategory{
	CategoryUrgency,
	CategoryFinancial,
	CategoryThreat,
	CategoryCredential,
	CategoryCrypto,
}

// DefaultRuleset returns the built-in weight and keyword tables.
func DefaultRuleset() *Ruleset {
	return &Ruleset{
		Weights: map[SignalCategory]float64{
			CategoryUrgency:    0.25,
			CategoryFinancial:  0.20,
			CategoryThreat:     0.25,
			CategoryLink:       0.20,
			CategoryPII:        0.30,
			CategoryCredential: 0.40,
			CategoryCrypto:     0.15,
		},
		Keywords: map[SignalCategory][]string{
			CategoryUrgency: {
				"urgent", "immediately", "expire", "suspended", "verify now", "act now",
				"limited time", "immediate action", "24 hours", "account closure",
				"unauthorized", "suspicious activity", "locked",
			},
			CategoryFinancial: {
				"bank", "credit card", "payment", "transfer", "wire", "invoice",
				"transaction", "billing", "refund", "paypal", "wallet", "irs", "tax",
			},
			CategoryThreat: {
				"arrest", "warrant", "legal action", "court", "prosecuted", "jail",
				"police", "fbi", "lawsuit", "compromised", "breach",
			},
			CategoryCredential: {
				"password", "ssn", "social security", "pin", "login", "verify your identity",
				"update your details", "confirm your data",
			},
			CategoryCrypto: {
				"bitcoin", "btc", "ethereum", "crypto", "wallet address", "investment",
				"guaranteed return",
			},
		},
		KeywordMatchStep:    0.1,
		IPURLBonus:          0.20,
		UrgencyLinkBonus:    0.30,
		CredentialLinkBonus: 0.40,
		HeuristicCap:        0.95,
	}
}

// LoadRuleset reads a YAML ruleset from path. Fields missing from the file
// keep their default values, so a partial override (e.g. only weights) is
// valid.
func LoadRuleset(path string) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ruleset: %w", err)
	}

	rs := DefaultRuleset()
	if err := yaml.Unmarshal(data, rs); err != nil {
		return nil, fmt.Errorf("parse ruleset %s: %w", path, err)
	}
	return rs, nil
}

// categories returns the keyword categories to scan, canonical order first,
// then any categories added via YAML override in sorted order.
func (rs *Ruleset) categories() []SignalCategory {
	known := make(map[SignalCategory]bool, len(keywordOrder))
	out := make([]SignalCategory, 0, len(rs.Keywords))
	for _, c := range keywordOrder {
		known[c] = true
		if len(rs.Keywords[c]) > 0 {
			out = append(out, c)
		}
	}

	var extra []SignalCategory
	for c := range rs.Keywords {
		if !known[c] && len(rs.Keywords[c]) > 0 {
			extra = append(extra, c)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}

// indicatorCategory maps a structured indicator category onto the signal
// category whose weight it carries.
func indicatorCategory(cat patterns.Category) SignalCategory {
	switch cat {
	case patterns.CategoryCryptoWallet:
		return CategoryCrypto
	case patterns.CategoryCardNumber, patterns.CategoryNationalID:
		return CategoryPII
	case patterns.CategoryIBAN:
		return CategoryFinancial
	default:
		return ""
	}
}

// Analyzer scans text for fraud indicators using weighted keyword and link
// rules. Analyze is a pure function of its input; an Analyzer is safe for
// concurrent use.
type Analyzer struct {
	rules *Ruleset
}

// NewAnalyzer creates an analyzer over the given ruleset. A nil ruleset
// falls back to the built-in defaults.
func NewAnalyzer(rules *Ruleset) *Analyzer {
	if rules == nil {
		rules = DefaultRuleset()
	}
	return &Analyzer{rules: rules}
}

// Analyze scores text for fraud indicators and returns the weighted signal
// set plus the accumulated heuristic score. Empty or whitespace-only input
// yields score 0.0 with a single placeholder signal; there is no error path.
func (a *Analyzer) Analyze(text string) HeuristicAnalysis {
	if strings.TrimSpace(text) == "" {
		return HeuristicAnalysis{
			HeuristicScore: 0.0,
			Signals: []Signal{
				{Category: CategoryInfo, Evidence: "No content provided"},
			},
			Categories: map[SignalCategory]bool{},
		}
	}

	normalized := norm.NFKC.String(text)
	lower := strings.ToLower(normalized)

	var (
		signals    []Signal
		accum      float64
		categories = map[SignalCategory]bool{}
	)

	registry := patterns.Get()

	// Link detection runs before the keyword pass so compound bonuses can
	// see the link category.
	urls := registry.FindAll(patterns.CategoryLink, normalized)
	if len(urls) > 0 {
		w := a.rules.Weights[CategoryLink]
		signals = append(signals, Signal{
			Category:     CategoryLink,
			Evidence:     fmt.Sprintf("Contains %d external link(s)", len(urls)),
			Contribution: w,
		})
		accum += w
		categories[CategoryLink] = true

		for _, u := range urls {
			if registry.MatchesAny(patterns.CategoryIPHost, u) {
				signals = append(signals, Signal{
					Category:     CategoryLink,
					Evidence:     "Suspicious IP-based URL detected",
					Contribution: a.rules.IPURLBonus,
				})
				accum += a.rules.IPURLBonus
			}
		}
	}

	for _, category := range a.rules.categories() {
		var found []string
		for _, kw := range a.rules.Keywords[category] {
			if strings.Contains(lower, kw) {
				found = append(found, kw)
			}
		}
		if len(found) == 0 {
			continue
		}

		// Multiple hits in one category strengthen confidence, but the
		// contribution is capped at the category weight to avoid double
		// counting.
		strength := min(float64(len(found))*a.rules.KeywordMatchStep, 1.0)
		contribution := a.rules.Weights[category] * strength
		accum += contribution
		categories[category] = true

		var evidence string
		if len(found) <= 2 {
			evidence = fmt.Sprintf("Suspicious %s language: '%s'", category, strings.Join(found, ", "))
		} else {
			evidence = fmt.Sprintf("Multiple %s keywords detected (%d)", category, len(found))
		}
		signals = append(signals, Signal{
			Category:     category,
			Evidence:     evidence,
			Contribution: contribution,
		})
	}

	// Structured indicators (wallet addresses, card numbers, identity
	// numbers) fire their category even when no keyword did. Categories
	// already triggered by keywords are skipped so one artifact is not
	// scored twice.
	for _, hit := range registry.Indicators(normalized) {
		category := indicatorCategory(hit.Category)
		if category == "" || categories[category] {
			continue
		}

		strength := min(float64(hit.Matches)*a.rules.KeywordMatchStep, 1.0)
		contribution := a.rules.Weights[category] * strength
		accum += contribution
		categories[category] = true

		signals = append(signals, Signal{
			Category:     category,
			Evidence:     fmt.Sprintf("Structured indicator detected: %s", hit.Description),
			Contribution: contribution,
		})
	}

	// Compound patterns stack on top of the per-category contributions.
	if categories[CategoryUrgency] && categories[CategoryLink] {
		signals = append(signals, Signal{
			Category:     CategoryCompound,
			Evidence:     "High Risk Pattern: Urgency + Link",
			Contribution: a.rules.UrgencyLinkBonus,
		})
		accum += a.rules.UrgencyLinkBonus
	}
	if categories[CategoryCredential] && categories[CategoryLink] {
		signals = append(signals, Signal{
			Category:     CategoryCompound,
			Evidence:     "Critical Pattern: Credential request + Link",
			Contribution: a.rules.CredentialLinkBonus,
		})
		accum += a.rules.CredentialLinkBonus
	}

	return HeuristicAnalysis{
		HeuristicScore: min(accum, a.rules.HeuristicCap),
		Signals:        signals,
		Categories:     categories,
	}
}
