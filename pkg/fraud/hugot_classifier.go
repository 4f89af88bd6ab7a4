package fraud

// Local ML text classification using Hugot/ONNX.
//
// The classifier runs fully local with no external API calls and gracefully
// degrades when no model or ONNX Runtime is available: the engine falls back
// to heuristic-only scoring with an explicit degradation signal.

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/options"
	"github.com/knights-analytics/hugot/pipelines"
)

// ModelSpamBERTTiny is the default phishing/spam classification model.
// BERT-tiny fine-tuned on SMS spam; labels are LABEL_0 (benign) and
// LABEL_1 (spam/phishing).
const ModelSpamBERTTiny = "mrm8488/bert-tiny-finetuned-sms-spam-detection"

// classifierInputLimit truncates classifier input; BERT-class models only
// attend to the first ~512 tokens anyway.
const classifierInputLimit = 512

// HugotConfig configures the local ONNX text classifier.
type HugotConfig struct {
	// ModelPath is the local path to the ONNX model directory. If it does
	// not exist and ModelName is set, the model is downloaded there.
	ModelPath string

	// ModelName is the HuggingFace model name used for download.
	ModelName string

	// OnnxLibraryPath points at the libonnxruntime directory. Empty means
	// the pure Go backend (slower, no native dependency).
	OnnxLibraryPath string

	// BatchSize bounds inference batches (default 32).
	BatchSize int

	// Timeout caps a single inference call (default 30s).
	Timeout time.Duration
}

// DefaultHugotConfig returns the default local classifier configuration.
func DefaultHugotConfig() HugotConfig {
	return HugotConfig{
		ModelName:       ModelSpamBERTTiny,
		ModelPath:       "./models/bert-tiny-spam",
		OnnxLibraryPath: defaultOnnxPath(),
		BatchSize:       32,
		Timeout:         30 * time.Second,
	}
}

func defaultOnnxPath() string {
	paths := []string{
		"/usr/lib/libonnxruntime.so",
		"/usr/local/lib/libonnxruntime.so",
		"/opt/homebrew/lib/libonnxruntime.dylib",
		"/usr/local/lib/libonnxruntime.dylib",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return filepath.Dir(p)
		}
	}
	return ""
}

// HugotClassifier implements TextClassifier with a local ONNX model.
type HugotClassifier struct {
	session  *hugot.Session
	pipeline *pipelines.TextClassificationPipeline
	mu       sync.RWMutex
	cfg      HugotConfig
	ready    bool
	logger   *slog.Logger
}

// NewHugotClassifier creates and initializes a local classifier. It returns
// an error when neither the ONNX Runtime nor the Go backend can load the
// model; callers typically treat that as "capability absent".
func NewHugotClassifier(cfg HugotConfig, logger *slog.Logger) (*HugotClassifier, error) {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 32
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	h := &HugotClassifier{cfg: cfg, logger: logger}
	if err := h.initialize(); err != nil {
		return nil, fmt.Errorf("hugot classifier: %w", err)
	}
	return h, nil
}

func (h *HugotClassifier) initialize() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	session, err := h.createSession()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	h.session = session

	modelPath, err := h.resolveModelPath()
	if err != nil {
		_ = h.session.Destroy()
		return fmt.Errorf("resolve model path: %w", err)
	}

	pipeline, err := hugot.NewPipeline(h.session, hugot.TextClassificationConfig{
		ModelPath: modelPath,
		Name:      "phishing-classifier",
	})
	if err != nil {
		_ = h.session.Destroy()
		return fmt.Errorf("create pipeline: %w", err)
	}

	h.pipeline = pipeline
	h.ready = true
	h.logger.Info("text classifier initialized", "model", modelPath)
	return nil
}

func (h *HugotClassifier) createSession() (*hugot.Session, error) {
	if h.cfg.OnnxLibraryPath != "" {
		session, err := hugot.NewORTSession(
			options.WithOnnxLibraryPath(h.cfg.OnnxLibraryPath),
		)
		if err == nil {
			return session, nil
		}
		h.logger.Warn("onnx runtime unavailable, using Go backend", "error", err)
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("go session: %w", err)
	}
	return session, nil
}

func (h *HugotClassifier) resolveModelPath() (string, error) {
	if h.cfg.ModelPath != "" {
		if _, err := os.Stat(h.cfg.ModelPath); err == nil {
			return h.cfg.ModelPath, nil
		}
	}
	if h.cfg.ModelName == "" {
		return "", fmt.Errorf("no model path or name configured")
	}

	modelsDir := "./models"
	if err := os.MkdirAll(modelsDir, 0o755); err != nil {
		return "", fmt.Errorf("create models dir: %w", err)
	}

	h.logger.Info("downloading classifier model", "model", h.cfg.ModelName)
	modelPath, err := hugot.DownloadModel(h.cfg.ModelName, modelsDir, hugot.NewDownloadOptions())
	if err != nil {
		return "", fmt.Errorf("download model: %w", err)
	}
	return modelPath, nil
}

// IsReady reports whether the classifier is initialized.
func (h *HugotClassifier) IsReady() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ready
}

// ClassifyText runs one inference and returns the raw label/confidence pair.
func (h *HugotClassifier) ClassifyText(ctx context.Context, text string) (TextClassification, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.ready || h.pipeline == nil {
		return TextClassification{}, fmt.Errorf("classifier not ready")
	}
	if err := ctx.Err(); err != nil {
		return TextClassification{}, err
	}

	if runes := []rune(text); len(runes) > classifierInputLimit {
		text = string(runes[:classifierInputLimit])
	}

	result, err := h.pipeline.RunPipeline([]string{text})
	if err != nil {
		return TextClassification{}, fmt.Errorf("inference: %w", err)
	}
	if len(result.ClassificationOutputs) == 0 || len(result.ClassificationOutputs[0]) == 0 {
		return TextClassification{}, fmt.Errorf("empty classification output")
	}

	out := result.ClassificationOutputs[0][0]
	return TextClassification{
		Label:      out.Label,
		Confidence: float64(out.Score),
	}, nil
}

// Close releases the underlying ONNX session.
func (h *HugotClassifier) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.ready = false
	if h.session != nil {
		return h.session.Destroy()
	}
	return nil
}
