package fraud

// SignalCategory identifies which detection rule produced a signal.
type SignalCategory string

const (
	CategoryUrgency    SignalCategory = "urgency"
	CategoryFinancial  SignalCategory = "financial"
	CategoryThreat     SignalCategory = "threat"
	CategoryCredential SignalCategory = "credential_request"
	CategoryPII        SignalCategory = "pii_request"
	CategoryCrypto     SignalCategory = "crypto"
	CategoryLink       SignalCategory = "link"

	// CategoryCompound marks stacked high-risk combinations (e.g. urgency + link).
	CategoryCompound SignalCategory = "compound"

	// CategoryInfo marks informational signals that carry no score contribution,
	// such as the empty-input placeholder.
	CategoryInfo SignalCategory = "info"
)

// Signal is a single detected fraud indicator with textual evidence and the
// score contribution it added to the heuristic accumulator. Signals are
// immutable once created.
type Signal struct {
	Category     SignalCategory `json:"category"`
	Evidence     string         `json:"evidence"`
	Contribution float64        `json:"contribution"`
}

// HeuristicAnalysis is the output of the heuristic signal analyzer.
// It is created fresh per call and never mutated afterwards. The same input
// text always produces the same analysis.
type HeuristicAnalysis struct {
	// HeuristicScore is the accumulated rule-based risk estimate, capped at
	// 0.95 so heuristics alone never claim near-certainty.
	HeuristicScore float64

	// Signals are the detected indicators, in detection order.
	Signals []Signal

	// Categories is the set of keyword/link categories that fired.
	Categories map[SignalCategory]bool
}

// HasCategory reports whether the given category fired during analysis.
func (h HeuristicAnalysis) HasCategory(c SignalCategory) bool {
	return h.Categories[c]
}

// SignalStrings returns the evidence strings of all signals, in order.
func (h HeuristicAnalysis) SignalStrings() []string {
	out := make([]string, len(h.Signals))
	for i, s := range h.Signals {
		out[i] = s.Evidence
	}
	return out
}
