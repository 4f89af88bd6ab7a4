package fraud

import "math"

// Fusion constants. The 0.6 floor threshold means a strong rule-based hit is
// trusted over an uncertain classifier; the 0.99 ceiling reserves headroom so
// no automated result ever claims absolute certainty.
const (
	heuristicFloorThreshold = 0.6
	aiBlendWeight           = 0.6
	heuristicBlendWeight    = 0.4
	finalScoreCeiling       = 0.99
)

// FusionResult is the reconciled output of classifier and heuristic scoring.
// Immutable once produced.
type FusionResult struct {
	AIScore        float64 `json:"ai_score"`
	HeuristicScore float64 `json:"heuristic_score"`
	FinalScore     float64 `json:"final_score"`
}

// Fuse combines an external classifier score with a heuristic analysis into
// one final score. When the heuristic score exceeds 0.6 it acts as a floor:
// stacked rule hits must not be diluted by an uncertain classifier. Otherwise
// the two are blended with a classifier bias. The function is total and pure.
func Fuse(aiScore float64, analysis HeuristicAnalysis) FusionResult {
	ai := clamp(aiScore, 0, 1)
	h := clamp(analysis.HeuristicScore, 0, 0.95)

	var final float64
	if h > heuristicFloorThreshold {
		final = math.Max(ai, h)
	} else {
		final = ai*aiBlendWeight + h*heuristicBlendWeight
	}

	return FusionResult{
		AIScore:        ai,
		HeuristicScore: h,
		FinalScore:     round2(math.Min(final, finalScoreCeiling)),
	}
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
