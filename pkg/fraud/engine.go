package fraud

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/finshield/engine/pkg/httputil"
)

// Input rejection errors. These are the only error values the scoring
// operations return; every capability failure past input validation degrades
// into a well-formed result instead.
var (
	ErrEmptyInput   = errors.New("input is empty")
	ErrInvalidInput = errors.New("input is invalid")
)

// Modality names reported on scan results.
const (
	ModalityText  = "text"
	ModalityImage = "image"
	ModalityAudio = "audio"
	ModalityVideo = "video"
)

// Degradation signals, one per external capability.
const (
	signalTextClassifierDown = "Text classifier unavailable"
	signalOCRDown            = "OCR unavailable"
	signalVisionDown         = "Visual authenticity classifier unavailable"
	signalTranscriptionDown  = "Transcription unavailable"
	signalFrameDown          = "Frame extraction unavailable"
	signalAudioTrackDown     = "Audio extraction unavailable"
)

// ModelScore is one entry of the per-model audit breakdown.
type ModelScore struct {
	Model    string  `json:"model"`
	Score    float64 `json:"score"`
	Category string  `json:"category"`
}

// ScanResult is the complete output of one scoring operation. Callers always
// receive a well-formed result with a score, a severity and at least one
// signal string; degraded capabilities surface as signals, never as errors.
type ScanResult struct {
	ID          string       `json:"id"`
	Modality    string       `json:"modality"`
	Fusion      FusionResult `json:"fusion"`
	Severity    Severity     `json:"severity"`
	Explanation Explanation  `json:"explanation"`
	Breakdown   []ModelScore `json:"risk_breakdown"`

	// Transcript carries the bounded speech transcript for audio and video
	// scans.
	Transcript string `json:"transcript,omitempty"`

	// ExtractedText carries OCR output for image scans and the frame OCR
	// text for video scans.
	ExtractedText string `json:"extracted_text,omitempty"`
}

// EngineConfig wires an Engine. All capabilities are optional; a missing
// capability degrades the corresponding sub-channel the same way a failing
// one does.
type EngineConfig struct {
	Analyzer       *Analyzer
	TextClassifier TextClassifier
	Vision         ImageAuthenticityClassifier
	OCR            TextExtractor
	Speech         Transcriber
	Media          MediaExtractor
	Threat         ThreatAdjuster

	// CapabilityTimeout bounds every external capability call (default 30s).
	CapabilityTimeout time.Duration

	// MaxConcurrentCalls caps in-flight capability calls across all requests
	// so a slow capability cannot starve unrelated work (default 32).
	MaxConcurrentCalls int

	// TranscriptSegmentLimit bounds how many transcript segments the audio
	// adapter consumes (default 5, roughly the first 30 seconds).
	TranscriptSegmentLimit int

	Logger *slog.Logger
}

// Engine is the scoring facade. It is built once at startup with explicit
// capability references and is safe for concurrent use.
type Engine struct {
	analyzer     *Analyzer
	text         TextClassifier
	vision       ImageAuthenticityClassifier
	ocr          TextExtractor
	speech       Transcriber
	media        MediaExtractor
	threat       ThreatAdjuster
	sem          *httputil.Semaphore
	timeout      time.Duration
	segmentLimit int
	logger       *slog.Logger
}

// NewEngine constructs an engine from the given configuration.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Analyzer == nil {
		cfg.Analyzer = NewAnalyzer(nil)
	}
	if cfg.CapabilityTimeout <= 0 {
		cfg.CapabilityTimeout = 30 * time.Second
	}
	if cfg.MaxConcurrentCalls <= 0 {
		cfg.MaxConcurrentCalls = 32
	}
	if cfg.TranscriptSegmentLimit <= 0 {
		cfg.TranscriptSegmentLimit = 5
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Engine{
		analyzer:     cfg.Analyzer,
		text:         cfg.TextClassifier,
		vision:       cfg.Vision,
		ocr:          cfg.OCR,
		speech:       cfg.Speech,
		media:        cfg.Media,
		threat:       cfg.Threat,
		sem:          httputil.NewSemaphore(cfg.MaxConcurrentCalls),
		timeout:      cfg.CapabilityTimeout,
		segmentLimit: cfg.TranscriptSegmentLimit,
		logger:       cfg.Logger,
	}
}

// withCapability runs fn against an external capability under the shared
// concurrency cap and a per-call timeout.
func (e *Engine) withCapability(ctx context.Context, fn func(context.Context) error) error {
	if err := e.sem.Acquire(ctx); err != nil {
		return err
	}
	defer e.sem.Release()

	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return fn(cctx)
}

func (e *Engine) adjustFinal(score float64) float64 {
	if e.threat == nil {
		return score
	}
	return e.threat.AdjustScore(score)
}

func ensureSignals(expl *Explanation) {
	if len(expl.Signals) == 0 {
		expl.Signals = append(expl.Signals, "No specific threats detected")
	}
}

// textChannelResult is one analyzed text sub-channel: fused score plus the
// signal evidence strings, including any degradation signal.
type textChannelResult struct {
	fusion  FusionResult
	signals []string
}

// runTextChannel scores one piece of text: heuristic analysis, classifier
// call, fusion. A failing or absent classifier degrades to heuristic-only
// scoring with an explicit signal.
func (e *Engine) runTextChannel(ctx context.Context, text string) textChannelResult {
	analysis := e.analyzer.Analyze(text)
	signals := analysis.SignalStrings()

	var ai float64
	if e.text == nil {
		signals = append(signals, signalTextClassifierDown)
	} else {
		var tc TextClassification
		err := e.withCapability(ctx, func(cctx context.Context) error {
			var cerr error
			tc, cerr = e.text.ClassifyText(cctx, text)
			return cerr
		})
		if err != nil {
			e.logger.Warn("text classifier degraded", "error", err)
			signals = append(signals, signalTextClassifierDown)
		} else {
			ai = tc.PhishingScore()
		}
	}

	return textChannelResult{fusion: Fuse(ai, analysis), signals: signals}
}

// ScoreText scores raw text. Empty or whitespace-only input is rejected with
// ErrEmptyInput; everything else returns a complete result.
func (e *Engine) ScoreText(ctx context.Context, text string) (*ScanResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	ch := e.runTextChannel(ctx, text)
	fusion := ch.fusion
	fusion.FinalScore = e.adjustFinal(fusion.FinalScore)

	expl := ExplainText(fusion.FinalScore, ch.signals)
	ensureSignals(&expl)

	return &ScanResult{
		ID:          uuid.NewString(),
		Modality:    ModalityText,
		Fusion:      fusion,
		Severity:    ClassifySeverity(fusion.FinalScore),
		Explanation: expl,
		Breakdown: []ModelScore{
			{Model: "bert-tiny-finetuned", Score: fusion.AIScore, Category: "ai_inference"},
			{Model: "heuristic-engine", Score: fusion.HeuristicScore, Category: "rule_engine"},
		},
	}, nil
}

// imageChannelsResult captures the two independent image sub-channels.
type imageChannelsResult struct {
	ocr     textChannelResult
	ocrText string
	aiScore float64
	extra   []string // degradation signals outside the OCR channel
}

func (ir imageChannelsResult) finalScore() float64 {
	return round2(math.Max(ir.ocr.fusion.FinalScore, ir.aiScore))
}

// runImageChannels executes OCR-text and visual-authenticity scoring
// independently. Failure of either channel degrades that channel to 0.0 with
// an explicit signal without aborting the other.
func (e *Engine) runImageChannels(ctx context.Context, imagePath string) imageChannelsResult {
	var res imageChannelsResult

	g := new(errgroup.Group)
	g.Go(func() error {
		if e.ocr == nil {
			res.ocr.signals = []string{signalOCRDown}
			return nil
		}
		var text string
		err := e.withCapability(ctx, func(cctx context.Context) error {
			var cerr error
			text, cerr = e.ocr.ExtractText(cctx, imagePath)
			return cerr
		})
		if err != nil {
			e.logger.Warn("ocr degraded", "error", err)
			res.ocr.signals = []string{signalOCRDown}
			return nil
		}
		res.ocrText = text
		if utf8.RuneCountInString(strings.TrimSpace(text)) < 5 {
			res.ocr.signals = []string{"No text detected in image"}
			return nil
		}
		res.ocr = e.runTextChannel(ctx, text)
		return nil
	})
	g.Go(func() error {
		if e.vision == nil {
			res.extra = append(res.extra, signalVisionDown)
			return nil
		}
		var ic ImageClassification
		err := e.withCapability(ctx, func(cctx context.Context) error {
			var cerr error
			ic, cerr = e.vision.ClassifyImage(cctx, imagePath)
			return cerr
		})
		if err != nil {
			e.logger.Warn("visual authenticity classifier degraded", "error", err)
			res.extra = append(res.extra, signalVisionDown)
			return nil
		}
		res.aiScore = ic.AIGeneratedScore()
		return nil
	})
	_ = g.Wait()

	return res
}

// ScoreImage scores an image file. The final score is the maximum of the
// OCR-text channel and the visual-authenticity channel.
func (e *Engine) ScoreImage(ctx context.Context, imagePath string) (*ScanResult, error) {
	if strings.TrimSpace(imagePath) == "" {
		return nil, ErrInvalidInput
	}

	ch := e.runImageChannels(ctx, imagePath)
	final := e.adjustFinal(ch.finalScore())

	expl := ExplainImage(ch.ocr.signals, ch.ocr.fusion.FinalScore, ch.aiScore, final)
	expl.Signals = append(expl.Signals, ch.extra...)
	ensureSignals(&expl)

	return &ScanResult{
		ID:       uuid.NewString(),
		Modality: ModalityImage,
		Fusion: FusionResult{
			AIScore:        ch.aiScore,
			HeuristicScore: ch.ocr.fusion.HeuristicScore,
			FinalScore:     final,
		},
		Severity:    ClassifySeverity(final),
		Explanation: expl,
		Breakdown: []ModelScore{
			{Model: "tesseract-ocr+hybrid", Score: ch.ocr.fusion.FinalScore, Category: "phishing_text"},
			{Model: "ai-image-detector", Score: ch.aiScore, Category: "ai_generated"},
		},
		ExtractedText: ch.ocrText,
	}, nil
}

// audioChannelResult captures the transcript sub-channel of audio scoring.
type audioChannelResult struct {
	ch         textChannelResult
	transcript string
	extra      []string // degradation or no-speech signals
}

// runAudioChannel transcribes the audio and delegates the bounded transcript
// to the text channel. The transcript window is capped to the first few
// segments to bound latency on long recordings.
func (e *Engine) runAudioChannel(ctx context.Context, audioPath string) audioChannelResult {
	var res audioChannelResult

	if e.speech == nil {
		res.extra = append(res.extra, signalTranscriptionDown)
		return res
	}

	var segments []TranscriptSegment
	err := e.withCapability(ctx, func(cctx context.Context) error {
		var cerr error
		segments, cerr = e.speech.Transcribe(cctx, audioPath)
		return cerr
	})
	if err != nil {
		e.logger.Warn("transcription degraded", "error", err)
		res.extra = append(res.extra, signalTranscriptionDown)
		return res
	}

	if len(segments) > e.segmentLimit {
		segments = segments[:e.segmentLimit]
	}
	var sb strings.Builder
	for _, seg := range segments {
		sb.WriteString(seg.Text)
		sb.WriteString(" ")
	}
	res.transcript = strings.TrimSpace(sb.String())

	if res.transcript == "" {
		res.extra = append(res.extra, "No speech detected")
		return res
	}

	res.ch = e.runTextChannel(ctx, res.transcript)
	return res
}

// ScoreAudio scores an audio file via its transcript.
func (e *Engine) ScoreAudio(ctx context.Context, audioPath string) (*ScanResult, error) {
	if strings.TrimSpace(audioPath) == "" {
		return nil, ErrInvalidInput
	}

	ch := e.runAudioChannel(ctx, audioPath)
	fusion := ch.ch.fusion
	fusion.FinalScore = e.adjustFinal(fusion.FinalScore)

	expl := ExplainAudio(ch.ch.signals, fusion.FinalScore)
	expl.Signals = append(expl.Signals, ch.extra...)
	ensureSignals(&expl)

	return &ScanResult{
		ID:          uuid.NewString(),
		Modality:    ModalityAudio,
		Fusion:      fusion,
		Severity:    ClassifySeverity(fusion.FinalScore),
		Explanation: expl,
		Breakdown: []ModelScore{
			{Model: "whisper-hybrid", Score: fusion.FinalScore, Category: "audio_phishing"},
		},
		Transcript: ch.transcript,
	}, nil
}

// ScoreVideo scores a video by splitting it into a representative frame
// (image channel) and the audio track (audio channel); the final score is
// the maximum of the two. A missing audio track or an unreadable frame
// degrades that sub-channel without failing the operation, and extracted
// temporary artifacts are removed on every exit path.
func (e *Engine) ScoreVideo(ctx context.Context, videoPath string) (*ScanResult, error) {
	if strings.TrimSpace(videoPath) == "" {
		return nil, ErrInvalidInput
	}

	var (
		frame      imageChannelsResult
		frameScore float64
		frameDown  bool
		audio      audioChannelResult
		audioDown  bool
	)

	if e.media == nil {
		frameDown, audioDown = true, true
	} else {
		g := new(errgroup.Group)
		g.Go(func() error {
			framePath, cleanup, err := e.media.ExtractFrame(ctx, videoPath)
			if err != nil {
				e.logger.Warn("frame extraction degraded", "error", err)
				frameDown = true
				return nil
			}
			defer cleanup()
			frame = e.runImageChannels(ctx, framePath)
			frameScore = frame.finalScore()
			return nil
		})
		g.Go(func() error {
			audioPath, cleanup, err := e.media.ExtractAudioTrack(ctx, videoPath)
			if err != nil {
				if !errors.Is(err, ErrNoAudioTrack) {
					e.logger.Warn("audio extraction degraded", "error", err)
				}
				audioDown = true
				return nil
			}
			defer cleanup()
			audio = e.runAudioChannel(ctx, audioPath)
			return nil
		})
		_ = g.Wait()
	}

	final := e.adjustFinal(round2(math.Max(frameScore, audio.ch.fusion.FinalScore)))

	var frameSignals []string
	if !frameDown {
		frameSignals = append(frameSignals, frame.ocr.signals...)
		frameSignals = append(frameSignals, frame.extra...)
	}
	var audioSignals []string
	if !audioDown {
		audioSignals = append(audioSignals, audio.ch.signals...)
		audioSignals = append(audioSignals, audio.extra...)
	}

	expl := ExplainVideo(frameSignals, audioSignals, final)
	if frameDown {
		expl.Signals = append(expl.Signals, signalFrameDown)
	}
	if audioDown {
		expl.Signals = append(expl.Signals, signalAudioTrackDown)
	}
	ensureSignals(&expl)

	return &ScanResult{
		ID:       uuid.NewString(),
		Modality: ModalityVideo,
		Fusion: FusionResult{
			AIScore:        frame.aiScore,
			HeuristicScore: math.Max(frame.ocr.fusion.HeuristicScore, audio.ch.fusion.HeuristicScore),
			FinalScore:     final,
		},
		Severity:    ClassifySeverity(final),
		Explanation: expl,
		Breakdown: []ModelScore{
			{Model: "video-fusion", Score: final, Category: "video_fraud"},
			{Model: "frame-hybrid", Score: frameScore, Category: "frame_fraud"},
			{Model: "whisper-hybrid", Score: audio.ch.fusion.FinalScore, Category: "audio_phishing"},
		},
		Transcript:    audio.transcript,
		ExtractedText: frame.ocrText,
	}, nil
}
