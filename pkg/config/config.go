package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds global settings for the FinShield scoring gateway.
// All settings can be configured via environment variables or programmatically.
type Config struct {
	// === Core Settings ===
	ListenAddr string // HTTP listen address (default: ":8080")
	LogLevel   string // "debug", "info", "warn", "error" (default: "info")
	LogFormat  string // "json" or "text" (default: "json")

	// === Heuristic Engine ===
	RulesetPath string // Optional YAML ruleset override; empty = built-in defaults

	// === Text Classifier (local ONNX inference) ===
	OnnxLibraryPath string // Path to libonnxruntime; empty = platform default
	TextModelPath   string // Local directory for the spam/phishing model
	TextModelName   string // HuggingFace model name for auto-download

	// === Semantic Fallback Classifier ===
	OllamaURL      string // Ollama base URL for embeddings (default: "http://localhost:11434")
	EmbeddingModel string // Embedding model name (default: "nomic-embed-text")

	// === Remote Capability Services ===
	VisionServiceURL string // OCR + image authenticity service; empty = degraded image scans
	SpeechServiceURL string // Transcription service; empty = degraded audio scans

	// === Media Extraction ===
	FFmpegPath  string // ffmpeg binary (default: "ffmpeg" on PATH)
	FFprobePath string // ffprobe binary (default: "ffprobe" on PATH)
	TempDir     string // Scratch space for uploads and extracted media

	// === Capability Call Limits ===
	CapabilityTimeout            time.Duration // Per-call deadline for model/service calls (default: 30s)
	MaxConcurrentCapabilityCalls int           // Concurrent capability call ceiling (default: 32)
	TranscriptSegmentLimit       int           // Transcript segments analyzed per audio scan (default: 5)

	// === Threat Intelligence ===
	ThreatSyncInterval time.Duration // Global threat context refresh period (default: 10m)

	// === Trust Ledger Storage ===
	// Redis wins if both are set; neither set = in-memory ledger.
	RedisAddr     string // Redis address for the trust ledger (e.g. "localhost:6379")
	RedisPassword string
	RedisDB       int
	PostgresDSN   string // Postgres DSN for the trust ledger
}

// NewDefaultConfig creates a Config with sensible defaults.
// All settings can be overridden via FINSHIELD_* environment variables.
func NewDefaultConfig() *Config {
	return &Config{
		ListenAddr: GetEnv("FINSHIELD_LISTEN_ADDR", ":8080"),
		LogLevel:   GetEnv("FINSHIELD_LOG_LEVEL", "info"),
		LogFormat:  GetEnv("FINSHIELD_LOG_FORMAT", "json"),

		RulesetPath: GetEnv("FINSHIELD_RULESET_PATH", ""),

		OnnxLibraryPath: GetEnv("FINSHIELD_ONNX_LIBRARY_PATH", ""),
		TextModelPath:   GetEnv("FINSHIELD_TEXT_MODEL_PATH", "./models/bert-tiny-spam"),
		TextModelName:   GetEnv("FINSHIELD_TEXT_MODEL_NAME", "mrm8488/bert-tiny-finetuned-sms-spam-detection"),

		OllamaURL:      GetEnv("FINSHIELD_OLLAMA_URL", "http://localhost:11434"),
		EmbeddingModel: GetEnv("FINSHIELD_EMBEDDING_MODEL", "nomic-embed-text"),

		VisionServiceURL: GetEnv("FINSHIELD_VISION_SERVICE_URL", ""),
		SpeechServiceURL: GetEnv("FINSHIELD_SPEECH_SERVICE_URL", ""),

		FFmpegPath:  GetEnv("FINSHIELD_FFMPEG_PATH", "ffmpeg"),
		FFprobePath: GetEnv("FINSHIELD_FFPROBE_PATH", "ffprobe"),
		TempDir:     GetEnv("FINSHIELD_TEMP_DIR", os.TempDir()),

		CapabilityTimeout:            time.Duration(GetEnvInt("FINSHIELD_CAPABILITY_TIMEOUT_MS", 30000)) * time.Millisecond,
		MaxConcurrentCapabilityCalls: clampInt(GetEnvInt("FINSHIELD_MAX_CAPABILITY_CALLS", 32), 1, 1024),
		TranscriptSegmentLimit:       clampInt(GetEnvInt("FINSHIELD_TRANSCRIPT_SEGMENTS", 5), 1, 100),

		ThreatSyncInterval: time.Duration(GetEnvInt("FINSHIELD_THREAT_SYNC_SECONDS", 600)) * time.Second,

		RedisAddr:     GetEnv("FINSHIELD_REDIS_ADDR", ""),
		RedisPassword: GetEnv("FINSHIELD_REDIS_PASSWORD", ""),
		RedisDB:       GetEnvInt("FINSHIELD_REDIS_DB", 0),
		PostgresDSN:   GetEnv("FINSHIELD_POSTGRES_DSN", ""),
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	var problems []string

	if c.ListenAddr == "" {
		problems = append(problems, "FINSHIELD_LISTEN_ADDR must not be empty")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("FINSHIELD_LOG_LEVEL %q is not one of debug/info/warn/error", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		problems = append(problems, fmt.Sprintf("FINSHIELD_LOG_FORMAT %q is not one of json/text", c.LogFormat))
	}
	if c.CapabilityTimeout <= 0 {
		problems = append(problems, "FINSHIELD_CAPABILITY_TIMEOUT_MS must be positive")
	}
	if c.ThreatSyncInterval <= 0 {
		problems = append(problems, "FINSHIELD_THREAT_SYNC_SECONDS must be positive")
	}
	if c.RulesetPath != "" {
		if _, err := os.Stat(c.RulesetPath); err != nil {
			problems = append(problems, fmt.Sprintf("FINSHIELD_RULESET_PATH: %v", err))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// clampInt ensures a value is within bounds
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// Helper functions for environment variable parsing
// These are exported for use by other packages

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns the boolean value of an environment variable or a default value.
func GetEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvFloat returns the float64 value of an environment variable or a default value.
func GetEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

// GetEnvInt returns the integer value of an environment variable or a default value.
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
