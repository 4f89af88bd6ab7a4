package config

import (
	"testing"
	"time"
)

func TestNewDefaultConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want :8080", cfg.ListenAddr)
	}
	if cfg.CapabilityTimeout != 30*time.Second {
		t.Errorf("CapabilityTimeout = %v, want 30s", cfg.CapabilityTimeout)
	}
	if cfg.MaxConcurrentCapabilityCalls != 32 {
		t.Errorf("MaxConcurrentCapabilityCalls = %d, want 32", cfg.MaxConcurrentCapabilityCalls)
	}
	if cfg.TranscriptSegmentLimit != 5 {
		t.Errorf("TranscriptSegmentLimit = %d, want 5", cfg.TranscriptSegmentLimit)
	}
	if cfg.ThreatSyncInterval != 10*time.Minute {
		t.Errorf("ThreatSyncInterval = %v, want 10m", cfg.ThreatSyncInterval)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestNewDefaultConfig_EnvOverrides(t *testing.T) {
	t.Setenv("FINSHIELD_LISTEN_ADDR", ":9999")
	t.Setenv("FINSHIELD_LOG_FORMAT", "text")
	t.Setenv("FINSHIELD_CAPABILITY_TIMEOUT_MS", "5000")
	t.Setenv("FINSHIELD_REDIS_ADDR", "localhost:6379")
	t.Setenv("FINSHIELD_TRANSCRIPT_SEGMENTS", "9")

	cfg := NewDefaultConfig()

	if cfg.ListenAddr != ":9999" {
		t.Errorf("ListenAddr = %q, want :9999", cfg.ListenAddr)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q, want text", cfg.LogFormat)
	}
	if cfg.CapabilityTimeout != 5*time.Second {
		t.Errorf("CapabilityTimeout = %v, want 5s", cfg.CapabilityTimeout)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q", cfg.RedisAddr)
	}
	if cfg.TranscriptSegmentLimit != 9 {
		t.Errorf("TranscriptSegmentLimit = %d, want 9", cfg.TranscriptSegmentLimit)
	}
}

func TestNewDefaultConfig_ClampsOutOfRange(t *testing.T) {
	t.Setenv("FINSHIELD_MAX_CAPABILITY_CALLS", "-3")
	t.Setenv("FINSHIELD_TRANSCRIPT_SEGMENTS", "100000")

	cfg := NewDefaultConfig()
	if cfg.MaxConcurrentCapabilityCalls != 1 {
		t.Errorf("MaxConcurrentCapabilityCalls = %d, want clamped to 1", cfg.MaxConcurrentCapabilityCalls)
	}
	if cfg.TranscriptSegmentLimit != 100 {
		t.Errorf("TranscriptSegmentLimit = %d, want clamped to 100", cfg.TranscriptSegmentLimit)
	}
}

func TestValidate_Rejections(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.LogLevel = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate should reject unknown log level")
	}

	cfg = NewDefaultConfig()
	cfg.LogFormat = "xml"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate should reject unknown log format")
	}

	cfg = NewDefaultConfig()
	cfg.RulesetPath = "/does/not/exist.yaml"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate should reject missing ruleset file")
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("FINSHIELD_TEST_STR", "value")
	t.Setenv("FINSHIELD_TEST_INT", "17")
	t.Setenv("FINSHIELD_TEST_BOOL", "true")
	t.Setenv("FINSHIELD_TEST_FLOAT", "0.75")
	t.Setenv("FINSHIELD_TEST_BAD_INT", "not-a-number")

	if got := GetEnv("FINSHIELD_TEST_STR", "fallback"); got != "value" {
		t.Errorf("GetEnv = %q", got)
	}
	if got := GetEnv("FINSHIELD_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("GetEnv unset = %q", got)
	}
	if got := GetEnvInt("FINSHIELD_TEST_INT", 0); got != 17 {
		t.Errorf("GetEnvInt = %d", got)
	}
	if got := GetEnvInt("FINSHIELD_TEST_BAD_INT", 7); got != 7 {
		t.Errorf("GetEnvInt bad value = %d, want default", got)
	}
	if got := GetEnvBool("FINSHIELD_TEST_BOOL", false); !got {
		t.Error("GetEnvBool = false, want true")
	}
	if got := GetEnvFloat("FINSHIELD_TEST_FLOAT", 0); got != 0.75 {
		t.Errorf("GetEnvFloat = %v", got)
	}
}
