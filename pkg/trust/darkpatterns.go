package trust

import "strings"

// Dark pattern tags recorded against a user when matching manipulation
// tactics appear in content targeting them.
const (
	PatternUrgencyPressure        = "Urgency Pressure"
	PatternRewardTrap             = "Reward Trap"
	PatternAuthorityImpersonation = "Authority Impersonation"
)

// darkPatternMarkers maps each tag to the phrases that betray it. Checked in
// a fixed order so detection output is deterministic.
var darkPatternMarkers = []struct {
	tag     string
	markers []string
}{
	{PatternUrgencyPressure, []string{"urgent", "immediately", "expires", "act now", "last chance"}},
	{PatternRewardTrap, []string{"winner", "prize", "free", "claim", "congratulations"}},
	{PatternAuthorityImpersonation, []string{"irs", "government", "police", "bank security", "official notice"}},
}

// DetectDarkPatterns returns the manipulation tactic tags present in the
// given text. The result is in fixed tag order and carries no duplicates.
func DetectDarkPatterns(text string) []string {
	if text == "" {
		return nil
	}
	lowered := strings.ToLower(text)

	var tags []string
	for _, dp := range darkPatternMarkers {
		for _, marker := range dp.markers {
			if strings.Contains(lowered, marker) {
				tags = append(tags, dp.tag)
				break
			}
		}
	}
	return tags
}
