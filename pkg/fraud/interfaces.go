package fraud

import (
	"context"
	"errors"
	"strings"
)

// ErrNoAudioTrack is returned by MediaExtractor.ExtractAudioTrack when the
// video has no audio stream. The video adapter treats it as a degraded
// sub-channel, not a failure.
var ErrNoAudioTrack = errors.New("no audio track")

// TextClassification is the raw output of an external text classifier.
type TextClassification struct {
	Label      string
	Confidence float64
}

// PhishingScore normalizes a label/confidence pair to P(phishing).
// Classifiers report confidence in whichever label they picked; a benign
// label with confidence c maps to 1-c.
func (tc TextClassification) PhishingScore() float64 {
	switch strings.ToLower(tc.Label) {
	case "spam", "phishing", "label_1":
		return round2(tc.Confidence)
	default:
		return round2(1 - tc.Confidence)
	}
}

// ImageClassification is the raw output of an external visual-authenticity
// classifier.
type ImageClassification struct {
	Label      string
	Confidence float64
}

// AIGeneratedScore normalizes a label/confidence pair to the likelihood the
// image is synthetically generated.
func (ic ImageClassification) AIGeneratedScore() float64 {
	label := strings.ToLower(ic.Label)
	if strings.Contains(label, "ai") || strings.Contains(label, "generated") {
		return round2(ic.Confidence)
	}
	return round2(1 - ic.Confidence)
}

// TranscriptSegment is one timestamped chunk of transcribed speech.
type TranscriptSegment struct {
	Text  string
	Start float64
	End   float64
}

// TextClassifier scores text for fraud/spam likelihood. Implementations may
// be local ONNX models or remote services; the engine treats them as opaque
// and degrades to heuristic-only scoring when they fail.
type TextClassifier interface {
	ClassifyText(ctx context.Context, text string) (TextClassification, error)
}

// ImageAuthenticityClassifier scores an image for being synthetically
// generated.
type ImageAuthenticityClassifier interface {
	ClassifyImage(ctx context.Context, imagePath string) (ImageClassification, error)
}

// TextExtractor performs OCR on an image file.
type TextExtractor interface {
	ExtractText(ctx context.Context, imagePath string) (string, error)
}

// Transcriber converts an audio file into ordered transcript segments.
// Callers consume only a bounded prefix of the returned segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]TranscriptSegment, error)
}

// MediaExtractor pulls a representative frame and the audio track out of a
// video file. Both methods return a path to a temporary artifact plus a
// cleanup function the caller must invoke on every exit path.
type MediaExtractor interface {
	ExtractFrame(ctx context.Context, videoPath string) (framePath string, cleanup func(), err error)
	ExtractAudioTrack(ctx context.Context, videoPath string) (audioPath string, cleanup func(), err error)
}

// ThreatAdjuster nudges a final score upward under elevated global threat
// conditions. Implemented by threatintel.Modulator.
type ThreatAdjuster interface {
	AdjustScore(score float64) float64
}
