package main

import (
	"context"
	"fmt"
	"log/slog"
	"mime/multipart"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/finshield/engine/pkg/config"
	"github.com/finshield/engine/pkg/fraud"
	"github.com/finshield/engine/pkg/observability"
	"github.com/finshield/engine/pkg/telemetry"
	"github.com/finshield/engine/pkg/threatintel"
	"github.com/finshield/engine/pkg/trust"
)

const Version = "0.1.0"

func main() {
	cfg := config.NewDefaultConfig()
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		logger.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("gateway exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rules, err := loadRuleset(cfg, logger)
	if err != nil {
		return err
	}

	classifier, closeClassifier := buildTextClassifier(ctx, cfg, logger)
	defer closeClassifier()

	modulator := threatintel.NewModulator(
		threatintel.WithInterval(cfg.ThreatSyncInterval),
		threatintel.WithLogger(logger),
	)
	modulator.Start(ctx)
	defer modulator.Stop()

	engine := fraud.NewEngine(fraud.EngineConfig{
		Analyzer:               fraud.NewAnalyzer(rules),
		TextClassifier:         classifier,
		Vision:                 buildVision(cfg, logger),
		OCR:                    buildOCR(cfg),
		Speech:                 buildSpeech(cfg, logger),
		Media:                  fraud.NewFFmpegExtractor(cfg.FFmpegPath, cfg.FFprobePath, cfg.TempDir),
		Threat:                 modulator,
		CapabilityTimeout:      cfg.CapabilityTimeout,
		MaxConcurrentCalls:     cfg.MaxConcurrentCapabilityCalls,
		TranscriptSegmentLimit: cfg.TranscriptSegmentLimit,
		Logger:                 logger,
	})

	store, closeStore, err := buildTrustStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()
	ledger := trust.NewLedger(store, logger)

	app := newApp(engine, modulator, ledger, telemetry.NewCollector(), cfg, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway listening", "addr", cfg.ListenAddr, "version", Version)
		errCh <- app.Listen(cfg.ListenAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}

// loadRuleset resolves the heuristic ruleset: YAML override when configured,
// built-in defaults otherwise.
func loadRuleset(cfg *config.Config, logger *slog.Logger) (*fraud.Ruleset, error) {
	if cfg.RulesetPath == "" {
		return fraud.DefaultRuleset(), nil
	}
	rules, err := fraud.LoadRuleset(cfg.RulesetPath)
	if err != nil {
		return nil, fmt.Errorf("loading ruleset: %w", err)
	}
	logger.Info("loaded heuristic ruleset override", "path", cfg.RulesetPath)
	return rules, nil
}

// buildTextClassifier prefers the local ONNX classifier and falls back to
// the Ollama-backed semantic classifier. Neither being available is fine;
// text scoring then degrades to heuristics only.
func buildTextClassifier(ctx context.Context, cfg *config.Config, logger *slog.Logger) (fraud.TextClassifier, func()) {
	hugotCfg := fraud.DefaultHugotConfig()
	hugotCfg.ModelPath = cfg.TextModelPath
	hugotCfg.ModelName = cfg.TextModelName
	hugotCfg.OnnxLibraryPath = cfg.OnnxLibraryPath
	hugotCfg.Timeout = cfg.CapabilityTimeout

	hc, err := fraud.NewHugotClassifier(hugotCfg, logger)
	if err == nil && hc.IsReady() {
		logger.Info("text classifier ready", "backend", "hugot", "model", cfg.TextModelName)
		return hc, func() { hc.Close() }
	}
	if err != nil {
		logger.Warn("onnx classifier unavailable", "error", err)
	}

	sc, err := fraud.NewSemanticClassifier(cfg.OllamaURL, cfg.EmbeddingModel)
	if err == nil {
		loadCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		defer cancel()
		if err = sc.LoadPatterns(loadCtx); err == nil {
			logger.Info("text classifier ready", "backend", "semantic", "model", cfg.EmbeddingModel)
			return sc, func() {}
		}
	}
	logger.Warn("semantic classifier unavailable", "error", err)
	logger.Warn("no text classifier available, text scoring degrades to heuristics")
	return nil, func() {}
}

func buildVision(cfg *config.Config, logger *slog.Logger) fraud.ImageAuthenticityClassifier {
	if cfg.VisionServiceURL == "" {
		logger.Warn("vision service not configured, image authenticity degraded")
		return nil
	}
	return fraud.NewVisionClient(cfg.VisionServiceURL)
}

func buildOCR(cfg *config.Config) fraud.TextExtractor {
	if cfg.VisionServiceURL == "" {
		return nil
	}
	return fraud.NewVisionClient(cfg.VisionServiceURL)
}

func buildSpeech(cfg *config.Config, logger *slog.Logger) fraud.Transcriber {
	if cfg.SpeechServiceURL == "" {
		logger.Warn("speech service not configured, audio scoring degraded")
		return nil
	}
	return fraud.NewSpeechClient(cfg.SpeechServiceURL)
}

// buildTrustStore picks the trust ledger backend: Redis when configured,
// then Postgres, then in-memory.
func buildTrustStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (trust.Store, func(), error) {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
		}
		logger.Info("trust ledger backend", "store", "redis", "addr", cfg.RedisAddr)
		return trust.NewRedisStore(client), func() { _ = client.Close() }, nil
	}

	if cfg.PostgresDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		store := trust.NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("trust ledger backend", "store", "postgres")
		return store, pool.Close, nil
	}

	logger.Info("trust ledger backend", "store", "memory")
	return trust.NewMemoryStore(), func() {}, nil
}

// scanTextRequest is the body of POST /v1/scan/text.
type scanTextRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

func newApp(engine *fraud.Engine, modulator *threatintel.Modulator, ledger *trust.Ledger, metrics *telemetry.Collector, cfg *config.Config, logger *slog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "FinShield Gateway",
		BodyLimit: 100 * 1024 * 1024,
	})

	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "version": Version})
	})

	app.Post("/v1/scan/text", func(c fiber.Ctx) error {
		var req scanTextRequest
		if err := c.Bind().Body(&req); err != nil {
			metrics.RecordRejected()
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		start := time.Now()
		result, err := engine.ScoreText(c.Context(), req.Text)
		if err != nil {
			metrics.RecordRejected()
			return c.Status(400).JSON(fiber.Map{"error": "text field is required"})
		}
		metrics.RecordScan(result.Modality, string(result.Severity), time.Since(start))

		recordScan(c.Context(), ledger, logger, req.UserID, result, req.Text)
		return c.JSON(result)
	})

	app.Post("/v1/scan/image", scanUploadHandler(ledger, metrics, cfg, logger, "image/", engine.ScoreImage))
	app.Post("/v1/scan/audio", scanUploadHandler(ledger, metrics, cfg, logger, "audio/", engine.ScoreAudio))
	app.Post("/v1/scan/video", scanUploadHandler(ledger, metrics, cfg, logger, "video/", engine.ScoreVideo))

	app.Get("/v1/metrics", func(c fiber.Ctx) error {
		return c.JSON(metrics.Snapshot())
	})

	app.Get("/v1/intel/status", func(c fiber.Ctx) error {
		return c.JSON(modulator.Snapshot())
	})

	app.Get("/v1/trust/:user_id", func(c fiber.Ctx) error {
		userID := c.Params("user_id")
		state, err := ledger.Get(c.Context(), userID)
		if err != nil {
			logger.Error("trust lookup failed", "user_id", userID, "error", err)
			return c.Status(500).JSON(fiber.Map{"error": "trust lookup failed"})
		}
		return c.JSON(state)
	})

	return app
}

// scanUploadHandler builds a multipart upload handler for one media modality.
// The uploaded file lands in a uuid-named temp file that is removed when the
// scan completes.
func scanUploadHandler(
	ledger *trust.Ledger,
	metrics *telemetry.Collector,
	cfg *config.Config,
	logger *slog.Logger,
	mimePrefix string,
	score func(context.Context, string) (*fraud.ScanResult, error),
) fiber.Handler {
	return func(c fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			metrics.RecordRejected()
			return c.Status(400).JSON(fiber.Map{"error": "file field is required"})
		}
		if !validUpload(fh, mimePrefix) {
			metrics.RecordRejected()
			return c.Status(400).JSON(fiber.Map{
				"error": fmt.Sprintf("file must be of type %s*", mimePrefix),
			})
		}

		path := filepath.Join(cfg.TempDir, "finshield-upload-"+uuid.NewString()+filepath.Ext(fh.Filename))
		if err := c.SaveFile(fh, path); err != nil {
			logger.Error("saving upload failed", "error", err)
			return c.Status(500).JSON(fiber.Map{"error": "could not store upload"})
		}
		defer os.Remove(path)

		start := time.Now()
		result, err := score(c.Context(), path)
		if err != nil {
			metrics.RecordRejected()
			return c.Status(400).JSON(fiber.Map{"error": "invalid input"})
		}
		metrics.RecordScan(result.Modality, string(result.Severity), time.Since(start))

		// Dark pattern detection runs over whatever text the scan surfaced.
		content := strings.TrimSpace(result.ExtractedText + " " + result.Transcript)
		recordScan(c.Context(), ledger, logger, c.FormValue("user_id"), result, content)
		return c.JSON(result)
	}
}

// validUpload accepts files whose declared content type matches the expected
// modality. An absent content type falls through to the engine, which treats
// unreadable media as a degraded scan rather than an error.
func validUpload(fh *multipart.FileHeader, mimePrefix string) bool {
	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		return true
	}
	return strings.HasPrefix(ct, mimePrefix) || ct == "application/octet-stream"
}

// recordScan folds a scan outcome into the user's trust ledger entry. A scan
// without a user id updates nothing; ledger failures are logged and never
// fail the scan response.
func recordScan(ctx context.Context, ledger *trust.Ledger, logger *slog.Logger, userID string, result *fraud.ScanResult, content string) {
	if userID == "" {
		return
	}
	patterns := trust.DetectDarkPatterns(content)
	if _, err := ledger.RecordScan(ctx, userID, result.Fusion, patterns); err != nil {
		logger.Error("trust ledger update failed", "user_id", userID, "error", err)
	}
}
