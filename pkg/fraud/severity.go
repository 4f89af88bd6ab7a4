package fraud

// Severity is the tier derived from the final fused (and threat-adjusted)
// score.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// ClassifySeverity partitions [0,1] into severity tiers. Each tier is
// inclusive of its lower bound: 0.8 is CRITICAL, 0.6 is HIGH, 0.3 is MEDIUM.
// Total and deterministic, no gaps or overlaps.
func ClassifySeverity(score float64) Severity {
	switch {
	case score >= 0.8:
		return SeverityCritical
	case score >= 0.6:
		return SeverityHigh
	case score >= 0.3:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
