package fraud

import (
	"fmt"
	"strings"
)

// Fraud category labels emitted by the explanation generator.
const (
	FraudCategoryUrgencyScam      = "urgency_scam"
	FraudCategoryFinancialFraud   = "financial_fraud"
	FraudCategoryCredentialHarv   = "credential_harvesting"
	FraudCategoryCoercion         = "coercion/extortion"
	FraudCategorySuspicious       = "general_suspicious"
	FraudCategoryBenign           = "benign"
	FraudCategoryAIGenerated      = "ai_generated"
	FraudCategoryPhishingDocument = "phishing_document"
	FraudCategoryVishing          = "vishing"
	FraudCategoryMultimediaFraud  = "multimedia_fraud"
)

// Model labels reported on explanations, by modality.
const (
	modelLabelText  = "Hybrid (BERT + Heuristics)"
	modelLabelImage = "Multi-Modal (OCR + visual-bert + heuristics)"
	modelLabelAudio = "Audio-Hybrid (Whisper + heuristics)"
	modelLabelVideo = "Video-Hybrid (Frame analysis + Audio heuristics)"
)

// counterfactualFactor approximates the score drop if the top signal were
// removed. It is a flat cosmetic estimate, not a recomputation without the
// signal; it carries no causal guarantee.
const counterfactualFactor = 0.4

// Explanation is the human-readable output derived from a fusion result and
// the signals that produced it. Immutable once produced.
type Explanation struct {
	FraudCategory string   `json:"fraud_category"`
	Signals       []string `json:"signals"`
	Reasoning     string   `json:"reasoning"`
	Confidence    float64  `json:"confidence"`
	ModelUsed     string   `json:"model_used"`

	// CounterfactualDrop is the estimated score reduction if the strongest
	// signal were absent. See counterfactualFactor.
	CounterfactualDrop float64 `json:"counterfactual_drop"`
}

// categorize infers the fraud category from the concatenated signal text,
// checked in fixed priority order; the first match wins.
func categorize(signals []string, score float64) string {
	text := strings.ToLower(strings.Join(signals, " "))
	switch {
	case strings.Contains(text, "urgent"):
		return FraudCategoryUrgencyScam
	case strings.Contains(text, "bank"), strings.Contains(text, "payment"):
		return FraudCategoryFinancialFraud
	case strings.Contains(text, "password"), strings.Contains(text, "login"):
		return FraudCategoryCredentialHarv
	case strings.Contains(text, "threat"):
		return FraudCategoryCoercion
	case score > 0.5:
		return FraudCategorySuspicious
	default:
		return FraudCategoryBenign
	}
}

// ExplainText generates the explanation for a text scoring result. The
// reasoning text is deterministic given (category, severity tier, signal
// count). If no signals fired and the score is benign, a single placeholder
// signal keeps the signal list non-empty.
func ExplainText(score float64, signals []string) Explanation {
	category := categorize(signals, score)
	pretty := strings.ReplaceAll(category, "_", " ")

	var reasoning string
	switch {
	case score >= 0.8:
		reasoning = fmt.Sprintf("CRITICAL RISK: Analysis detected %d strong fraud indicators. The content contains specific patterns highly correlated with %s. Do not interact with links or attachments.", len(signals), pretty)
	case score >= 0.6:
		reasoning = fmt.Sprintf("HIGH RISK: This content shows multiple signs of %s. %d suspicious signal(s) were flagged. Proceed with extreme caution.", pretty, len(signals))
	case score >= 0.3:
		reasoning = "MEDIUM RISK: Some suspicious elements were detected. While not definitively malicious, verify the sender independently."
	default:
		reasoning = "LOW RISK: Content appears legitimate. No significant fraud indicators were found."
	}

	if len(signals) == 0 && score < 0.3 {
		signals = append(signals, "No specific threats detected")
	}

	return Explanation{
		FraudCategory:      category,
		Signals:            signals,
		Reasoning:          reasoning,
		Confidence:         score,
		ModelUsed:          modelLabelText,
		CounterfactualDrop: round2(score * counterfactualFactor),
	}
}

// ExplainImage generates the explanation for an image scoring result.
// ocrSignals are the heuristic signals found in the OCR-extracted text;
// ocrScore and aiScore are the two sub-channel scores, finalScore their
// combination. The category is ai_generated when the visual-authenticity
// channel dominates, phishing_document otherwise.
func ExplainImage(ocrSignals []string, ocrScore, aiScore, finalScore float64) Explanation {
	var signals []string
	if aiScore > 0.6 {
		signals = append(signals, fmt.Sprintf("Image likely AI-generated (Confidence: %d%%)", int(aiScore*100)))
	}
	for _, s := range ocrSignals {
		signals = append(signals, "OCR: "+s)
	}

	category := FraudCategoryPhishingDocument
	if aiScore > ocrScore {
		category = FraudCategoryAIGenerated
	}

	var reasoning string
	switch {
	case finalScore >= 0.7:
		reasoning = fmt.Sprintf("HIGH RISK IMAGE: detected %d specific threat indicators. ", len(signals))
		if aiScore > 0.7 {
			reasoning += "Primary risk is AI manipulation/deepfake content. "
		} else {
			reasoning += "Primary risk is textual phishing content within the image. "
		}
	case finalScore >= 0.4:
		reasoning = "MEDIUM RISK: Image contains suspicious elements. Verify source authenticity."
	default:
		reasoning = "LOW RISK: Image appears benign."
	}

	return Explanation{
		FraudCategory:      category,
		Signals:            signals,
		Reasoning:          reasoning,
		Confidence:         finalScore,
		ModelUsed:          modelLabelImage,
		CounterfactualDrop: round2(finalScore * counterfactualFactor),
	}
}

// ExplainAudio generates the explanation for an audio scoring result.
// transcriptSignals are the heuristic signals found in the transcript.
func ExplainAudio(transcriptSignals []string, score float64) Explanation {
	var signals []string
	if score > 0.6 {
		signals = append(signals, "Voice pattern matches known vishing signatures")
	}
	for _, s := range transcriptSignals {
		signals = append(signals, "Audio content: "+s)
	}

	var reasoning string
	switch {
	case score >= 0.7:
		reasoning = fmt.Sprintf("HIGH RISK AUDIO: %d fraud indicators detected in speech patterns and content. Likely a vishing attempt.", len(signals))
	case score >= 0.4:
		reasoning = "MEDIUM RISK: Speech contains some suspicious keywords or patterns."
	default:
		reasoning = "LOW RISK: Audio appears legitimate."
	}

	return Explanation{
		FraudCategory:      FraudCategoryVishing,
		Signals:            signals,
		Reasoning:          reasoning,
		Confidence:         score,
		ModelUsed:          modelLabelAudio,
		CounterfactualDrop: round2(score * counterfactualFactor),
	}
}

// ExplainVideo generates the explanation for a video scoring result.
// frameSignals come from the representative-frame image channel; audioSignals
// from the audio-track transcript channel.
func ExplainVideo(frameSignals, audioSignals []string, score float64) Explanation {
	var signals []string
	if score > 0.6 {
		signals = append(signals, "Visual content flagged as suspicious deepfake/manipulated")
	}
	signals = append(signals, frameSignals...)
	for _, s := range audioSignals {
		signals = append(signals, "Video Audio: "+s)
	}

	var reasoning string
	if score >= 0.7 {
		reasoning = "HIGH RISK VIDEO: Strong evidence of manipulation or fraud in both visual and audio tracks."
	} else {
		reasoning = "Analysis complete. Review signals above."
	}

	return Explanation{
		FraudCategory:      FraudCategoryMultimediaFraud,
		Signals:            signals,
		Reasoning:          reasoning,
		Confidence:         score,
		ModelUsed:          modelLabelVideo,
		CounterfactualDrop: round2(score * counterfactualFactor),
	}
}
