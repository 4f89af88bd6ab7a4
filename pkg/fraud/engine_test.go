package fraud

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
)

type fakeTextClassifier struct {
	result TextClassification
	err    error
}

func (f fakeTextClassifier) ClassifyText(context.Context, string) (TextClassification, error) {
	return f.result, f.err
}

type fakeVision struct {
	result ImageClassification
	err    error
}

func (f fakeVision) ClassifyImage(context.Context, string) (ImageClassification, error) {
	return f.result, f.err
}

type fakeOCR struct {
	text string
	err  error
}

func (f fakeOCR) ExtractText(context.Context, string) (string, error) {
	return f.text, f.err
}

type fakeSpeech struct {
	segments []TranscriptSegment
	err      error
}

func (f fakeSpeech) Transcribe(context.Context, string) ([]TranscriptSegment, error) {
	return f.segments, f.err
}

type fakeMedia struct {
	frameErr     error
	audioErr     error
	frameCleaned bool
	audioCleaned bool
}

func (f *fakeMedia) ExtractFrame(context.Context, string) (string, func(), error) {
	if f.frameErr != nil {
		return "", nil, f.frameErr
	}
	return "frame.jpg", func() { f.frameCleaned = true }, nil
}

func (f *fakeMedia) ExtractAudioTrack(context.Context, string) (string, func(), error) {
	if f.audioErr != nil {
		return "", nil, f.audioErr
	}
	return "audio.wav", func() { f.audioCleaned = true }, nil
}

type fakeThreat struct{ delta float64 }

func (f fakeThreat) AdjustScore(score float64) float64 { return score + f.delta }

func segmentsOf(texts ...string) []TranscriptSegment {
	out := make([]TranscriptSegment, len(texts))
	for i, txt := range texts {
		out[i] = TranscriptSegment{Text: txt, Start: float64(i), End: float64(i + 1)}
	}
	return out
}

func TestScoreText_EmptyInput(t *testing.T) {
	e := NewEngine(EngineConfig{})
	for _, input := range []string{"", "   "} {
		if _, err := e.ScoreText(context.Background(), input); !errors.Is(err, ErrEmptyInput) {
			t.Errorf("ScoreText(%q) error = %v, want ErrEmptyInput", input, err)
		}
	}
}

func TestScoreText_Hybrid(t *testing.T) {
	e := NewEngine(EngineConfig{
		TextClassifier: fakeTextClassifier{result: TextClassification{Label: "spam", Confidence: 0.9}},
	})

	result, err := e.ScoreText(context.Background(), "hello there friend")
	if err != nil {
		t.Fatal(err)
	}

	// Benign heuristics blend with the classifier: 0.9*0.6 + 0*0.4.
	if result.Fusion.FinalScore != 0.54 {
		t.Errorf("FinalScore = %v, want 0.54", result.Fusion.FinalScore)
	}
	if result.Severity != SeverityMedium {
		t.Errorf("Severity = %s, want MEDIUM", result.Severity)
	}
	if result.Modality != ModalityText {
		t.Errorf("Modality = %s, want text", result.Modality)
	}
	if result.ID == "" {
		t.Error("ID should not be empty")
	}
	if len(result.Breakdown) != 2 {
		t.Fatalf("Breakdown = %v, want 2 entries", result.Breakdown)
	}
	if result.Breakdown[0].Model != "bert-tiny-finetuned" || result.Breakdown[1].Model != "heuristic-engine" {
		t.Errorf("Breakdown models = %v", result.Breakdown)
	}
	if len(result.Explanation.Signals) == 0 {
		t.Error("Explanation.Signals should never be empty")
	}
}

func TestScoreText_ClassifierFailure(t *testing.T) {
	e := NewEngine(EngineConfig{
		TextClassifier: fakeTextClassifier{err: errors.New("model crashed")},
	})

	result, err := e.ScoreText(context.Background(), "verify your password now http://192.168.1.5/a")
	if err != nil {
		t.Fatal(err)
	}

	if !slices.Contains(result.Explanation.Signals, "Text classifier unavailable") {
		t.Errorf("Signals = %v, want degradation signal", result.Explanation.Signals)
	}
	// Heuristics still carry the score on their own.
	if result.Fusion.AIScore != 0 {
		t.Errorf("AIScore = %v, want 0 on classifier failure", result.Fusion.AIScore)
	}
	if result.Fusion.FinalScore == 0 {
		t.Error("FinalScore should reflect heuristic findings despite classifier failure")
	}
}

func TestScoreText_NoClassifierConfigured(t *testing.T) {
	e := NewEngine(EngineConfig{})

	result, err := e.ScoreText(context.Background(), "hello there")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Contains(result.Explanation.Signals, "Text classifier unavailable") {
		t.Errorf("Signals = %v, want degradation signal", result.Explanation.Signals)
	}
}

func TestScoreText_ThreatBoost(t *testing.T) {
	e := NewEngine(EngineConfig{
		TextClassifier: fakeTextClassifier{result: TextClassification{Label: "spam", Confidence: 0.9}},
		Threat:         fakeThreat{delta: 0.05},
	})

	result, err := e.ScoreText(context.Background(), "hello there friend")
	if err != nil {
		t.Fatal(err)
	}
	if result.Fusion.FinalScore != 0.59 {
		t.Errorf("FinalScore = %v, want 0.59 (0.54 + boost)", result.Fusion.FinalScore)
	}
}

func TestScoreImage_MaxOfChannels(t *testing.T) {
	e := NewEngine(EngineConfig{
		TextClassifier: fakeTextClassifier{result: TextClassification{Label: "ham", Confidence: 0.9}},
		OCR:            fakeOCR{text: "urgent: verify your password at http://192.168.1.5/x"},
		Vision:         fakeVision{result: ImageClassification{Label: "real", Confidence: 0.9}},
	})

	result, err := e.ScoreImage(context.Background(), "scan.png")
	if err != nil {
		t.Fatal(err)
	}

	// OCR channel: heuristics cap at 0.95 and floor past the weak vision
	// channel score of 0.1.
	if result.Fusion.FinalScore != 0.95 {
		t.Errorf("FinalScore = %v, want 0.95", result.Fusion.FinalScore)
	}
	if result.Severity != SeverityCritical {
		t.Errorf("Severity = %s, want CRITICAL", result.Severity)
	}
	if result.ExtractedText == "" {
		t.Error("ExtractedText should carry the OCR output")
	}
	if result.Explanation.FraudCategory != FraudCategoryPhishingDocument {
		t.Errorf("FraudCategory = %s, want phishing_document", result.Explanation.FraudCategory)
	}
}

func TestScoreImage_OCRFailure(t *testing.T) {
	e := NewEngine(EngineConfig{
		OCR:    fakeOCR{err: errors.New("tesseract missing")},
		Vision: fakeVision{result: ImageClassification{Label: "ai_generated", Confidence: 0.8}},
	})

	result, err := e.ScoreImage(context.Background(), "scan.png")
	if err != nil {
		t.Fatal(err)
	}

	if result.Fusion.FinalScore != 0.8 {
		t.Errorf("FinalScore = %v, want 0.8 (vision channel only)", result.Fusion.FinalScore)
	}
	var found bool
	for _, s := range result.Explanation.Signals {
		if strings.Contains(s, "OCR unavailable") {
			found = true
		}
	}
	if !found {
		t.Errorf("Signals = %v, want OCR degradation signal", result.Explanation.Signals)
	}
}

func TestScoreImage_NoTextDetected(t *testing.T) {
	e := NewEngine(EngineConfig{
		OCR:    fakeOCR{text: "hi"},
		Vision: fakeVision{result: ImageClassification{Label: "real", Confidence: 0.95}},
	})

	result, err := e.ScoreImage(context.Background(), "photo.jpg")
	if err != nil {
		t.Fatal(err)
	}

	var found bool
	for _, s := range result.Explanation.Signals {
		if strings.Contains(s, "No text detected in image") {
			found = true
		}
	}
	if !found {
		t.Errorf("Signals = %v, want no-text signal", result.Explanation.Signals)
	}
	if result.Severity != SeverityLow {
		t.Errorf("Severity = %s, want LOW", result.Severity)
	}
}

func TestScoreImage_NoTextDetectedMultibyte(t *testing.T) {
	// Four CJK runes span twelve bytes; the minimum-text check counts runes.
	e := NewEngine(EngineConfig{
		OCR:    fakeOCR{text: "确认密码"},
		Vision: fakeVision{result: ImageClassification{Label: "real", Confidence: 0.95}},
	})

	result, err := e.ScoreImage(context.Background(), "photo.jpg")
	if err != nil {
		t.Fatal(err)
	}

	var found bool
	for _, s := range result.Explanation.Signals {
		if strings.Contains(s, "No text detected in image") {
			found = true
		}
	}
	if !found {
		t.Errorf("Signals = %v, want no-text signal", result.Explanation.Signals)
	}
}

func TestScoreAudio_TranscriptWindow(t *testing.T) {
	e := NewEngine(EngineConfig{
		Speech: fakeSpeech{segments: segmentsOf("one", "two", "three", "four", "five", "six", "seven")},
	})

	result, err := e.ScoreAudio(context.Background(), "call.wav")
	if err != nil {
		t.Fatal(err)
	}

	if result.Transcript != "one two three four five" {
		t.Errorf("Transcript = %q, want first five segments", result.Transcript)
	}
	if result.Modality != ModalityAudio {
		t.Errorf("Modality = %s, want audio", result.Modality)
	}
}

func TestScoreAudio_NoSpeech(t *testing.T) {
	e := NewEngine(EngineConfig{Speech: fakeSpeech{}})

	result, err := e.ScoreAudio(context.Background(), "silence.wav")
	if err != nil {
		t.Fatal(err)
	}

	if result.Fusion.FinalScore != 0 {
		t.Errorf("FinalScore = %v, want 0", result.Fusion.FinalScore)
	}
	if !slices.Contains(result.Explanation.Signals, "No speech detected") {
		t.Errorf("Signals = %v, want no-speech signal", result.Explanation.Signals)
	}
}

func TestScoreAudio_TranscriptionFailure(t *testing.T) {
	e := NewEngine(EngineConfig{Speech: fakeSpeech{err: errors.New("whisper down")}})

	result, err := e.ScoreAudio(context.Background(), "call.wav")
	if err != nil {
		t.Fatal(err)
	}

	if result.Fusion.FinalScore != 0 {
		t.Errorf("FinalScore = %v, want 0", result.Fusion.FinalScore)
	}
	if result.Severity != SeverityLow {
		t.Errorf("Severity = %s, want LOW", result.Severity)
	}
	if !slices.Contains(result.Explanation.Signals, "Transcription unavailable") {
		t.Errorf("Signals = %v, want degradation signal", result.Explanation.Signals)
	}
}

func TestScoreVideo_BothExtractionsFail(t *testing.T) {
	media := &fakeMedia{
		frameErr: errors.New("corrupt container"),
		audioErr: errors.New("corrupt container"),
	}
	e := NewEngine(EngineConfig{Media: media})

	result, err := e.ScoreVideo(context.Background(), "clip.mp4")
	if err != nil {
		t.Fatal(err)
	}

	if result.Fusion.FinalScore != 0 {
		t.Errorf("FinalScore = %v, want 0", result.Fusion.FinalScore)
	}
	if result.Severity != SeverityLow {
		t.Errorf("Severity = %s, want LOW", result.Severity)
	}
	for _, want := range []string{"Frame extraction unavailable", "Audio extraction unavailable"} {
		if !slices.Contains(result.Explanation.Signals, want) {
			t.Errorf("Signals = %v, want %q", result.Explanation.Signals, want)
		}
	}
}

func TestScoreVideo_NoAudioTrack(t *testing.T) {
	media := &fakeMedia{audioErr: ErrNoAudioTrack}
	e := NewEngine(EngineConfig{
		Media:          media,
		OCR:            fakeOCR{text: "urgent: verify your password at http://192.168.1.5/x"},
		Vision:         fakeVision{result: ImageClassification{Label: "real", Confidence: 0.9}},
		TextClassifier: fakeTextClassifier{result: TextClassification{Label: "ham", Confidence: 0.9}},
	})

	result, err := e.ScoreVideo(context.Background(), "clip.mp4")
	if err != nil {
		t.Fatal(err)
	}

	// The frame channel alone carries the result.
	if result.Fusion.FinalScore != 0.95 {
		t.Errorf("FinalScore = %v, want 0.95", result.Fusion.FinalScore)
	}
	if !slices.Contains(result.Explanation.Signals, "Audio extraction unavailable") {
		t.Errorf("Signals = %v, want audio degradation signal", result.Explanation.Signals)
	}
	if !media.frameCleaned {
		t.Error("frame temp artifact was not cleaned up")
	}
}

func TestScoreVideo_CleanupInvoked(t *testing.T) {
	media := &fakeMedia{}
	e := NewEngine(EngineConfig{
		Media:  media,
		Speech: fakeSpeech{segments: segmentsOf("hello")},
	})

	if _, err := e.ScoreVideo(context.Background(), "clip.mp4"); err != nil {
		t.Fatal(err)
	}

	if !media.frameCleaned {
		t.Error("frame temp artifact was not cleaned up")
	}
	if !media.audioCleaned {
		t.Error("audio temp artifact was not cleaned up")
	}
}

func TestScoreVideo_InvalidInput(t *testing.T) {
	e := NewEngine(EngineConfig{})
	if _, err := e.ScoreVideo(context.Background(), " "); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}
