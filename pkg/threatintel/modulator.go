// Package threatintel maintains the process-wide global threat context: a
// periodically refreshed risk level that nudges scoring results upward when
// the global picture is elevated.
//
// One owned background goroutine mutates the state on its own schedule;
// arbitrarily many scoring calls read it concurrently. Readers always take an
// immutable snapshot, so a reader can never observe a half-updated record
// mixing an old risk score with a new threat level.
package threatintel

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"
)

// Level is the global threat level.
type Level string

const (
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
)

// Threat level thresholds over the global risk score.
const (
	criticalThreshold = 75.0
	highThreshold     = 50.0
	mediumThreshold   = 25.0
)

// criticalBoost is the fixed score bump applied to scoring calls while the
// global threat level is CRITICAL.
const criticalBoost = 0.05

// finalScoreCeiling mirrors the fusion ceiling; the boost never pushes a
// score past it.
const finalScoreCeiling = 0.99

// Indicator is one mock threat-feed entry carried on the snapshot.
type Indicator struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Context is an immutable snapshot of the global threat state.
type Context struct {
	ThreatLevel      Level       `json:"threat_level"`
	GlobalRiskScore  float64     `json:"risk_score_global"`
	RecentIndicators []Indicator `json:"recent_indicators"`
	LastSync         time.Time   `json:"last_sync"`
}

// Modulator owns the threat context and refreshes it on a fixed period via a
// bounded random walk standing in for external threat-feed ingestion.
type Modulator struct {
	snap     atomic.Pointer[Context]
	interval time.Duration
	logger   *slog.Logger

	// fluct produces one random-walk step; injectable for tests.
	fluct func() float64

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// Option configures a Modulator.
type Option func(*Modulator)

// WithInterval overrides the sync period (default 10 minutes).
func WithInterval(d time.Duration) Option {
	return func(m *Modulator) { m.interval = d }
}

// WithFluctuation overrides the random-walk step function.
func WithFluctuation(fn func() float64) Option {
	return func(m *Modulator) { m.fluct = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Modulator) { m.logger = l }
}

// NewModulator creates a modulator seeded at a low baseline risk.
func NewModulator(opts ...Option) *Modulator {
	m := &Modulator{
		interval: 10 * time.Minute,
		logger:   slog.Default(),
		// Slight upward skew mirrors the reality that threat feeds report
		// new campaigns more often than retirements.
		fluct: func() float64 { return -10 + rand.Float64()*25 },
	}
	for _, opt := range opts {
		opt(m)
	}

	m.snap.Store(&Context{
		ThreatLevel:     LevelLow,
		GlobalRiskScore: 15.0,
	})
	return m
}

// Start launches the background sync loop. Calling Start on a running
// modulator is a no-op.
func (m *Modulator) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.running = true

	go m.loop(runCtx)
	m.logger.Info("threat intel sync loop started", "interval", m.interval)
}

// Stop terminates the sync loop and waits for it to exit.
func (m *Modulator) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	cancel()
	<-done
}

func (m *Modulator) loop(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.sync()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sync()
		}
	}
}

// sync performs one refresh: random-walk the risk score, recompute the level
// and regenerate mock indicators, then publish a fresh snapshot.
func (m *Modulator) sync() {
	prev := m.snap.Load()

	score := prev.GlobalRiskScore + m.fluct()
	score = math.Max(0, math.Min(100, score))

	next := &Context{
		ThreatLevel:     levelFor(score),
		GlobalRiskScore: score,
		RecentIndicators: []Indicator{
			{Type: "domain", Value: fmt.Sprintf("secure-login-%04d.net", rand.IntN(9000)+1000)},
			{Type: "ip", Value: fmt.Sprintf("192.168.%d.%d", rand.IntN(256), rand.IntN(256))},
			{Type: "phishing_campaign", Value: fmt.Sprintf("Tax Refund Scam V%d", rand.IntN(10)+1)},
		},
		LastSync: time.Now().UTC(),
	}
	m.snap.Store(next)

	m.logger.Info("threat intel synced",
		"level", next.ThreatLevel,
		"global_risk_score", fmt.Sprintf("%.1f", next.GlobalRiskScore))
}

func levelFor(score float64) Level {
	switch {
	case score > criticalThreshold:
		return LevelCritical
	case score > highThreshold:
		return LevelHigh
	case score > mediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Snapshot returns the current threat context. The returned value is
// immutable; successive calls may return different snapshots.
func (m *Modulator) Snapshot() Context {
	return *m.snap.Load()
}

// AdjustScore applies the critical-level boost to a final score. Outside
// CRITICAL the score passes through unchanged.
func (m *Modulator) AdjustScore(score float64) float64 {
	if m.snap.Load().ThreatLevel != LevelCritical {
		return score
	}
	boosted := math.Min(score+criticalBoost, finalScoreCeiling)
	return math.Round(boosted*100) / 100
}
