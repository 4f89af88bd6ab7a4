// Package trust maintains the per-user adaptive trust ledger: a trust score
// that erodes when a user is targeted by high-risk content and slowly
// recovers on clean traffic, plus the set of dark patterns observed against
// that user over time.
package trust

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/finshield/engine/pkg/fraud"
)

// ExposureLevel classifies how exposed a user currently is, derived from the
// trust score.
type ExposureLevel string

const (
	ExposureLow      ExposureLevel = "LOW"
	ExposureMedium   ExposureLevel = "MEDIUM"
	ExposureHigh     ExposureLevel = "HIGH"
	ExposureCritical ExposureLevel = "CRITICAL"
)

const (
	maxTrustScore = 100.0
	minTrustScore = 0.0

	// riskyScanThreshold separates scans that erode trust from scans that
	// let it recover.
	riskyScanThreshold = 0.6

	// penaltyFactor scales the final score into a trust deduction.
	penaltyFactor = 5.0

	// recoveryStep is the trust regained per clean scan.
	recoveryStep = 1.0
)

// UserTrustState is one user's ledger entry.
type UserTrustState struct {
	UserID           string        `json:"user_id"`
	TrustScore       float64       `json:"trust_score"`
	ExposureLevel    ExposureLevel `json:"exposure_level"`
	ObservedPatterns []string      `json:"observed_patterns"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// NewUserTrustState returns the entry for a user never scanned before: full
// trust, no observed patterns.
func NewUserTrustState(userID string) UserTrustState {
	return UserTrustState{
		UserID:        userID,
		TrustScore:    maxTrustScore,
		ExposureLevel: ExposureLow,
	}
}

func exposureFor(trustScore float64) ExposureLevel {
	switch {
	case trustScore < 40:
		return ExposureCritical
	case trustScore < 70:
		return ExposureHigh
	case trustScore < 90:
		return ExposureMedium
	default:
		return ExposureLow
	}
}

// applyScan folds one scan outcome into a trust state. Pure: it returns the
// next state and never mutates its input's pattern slice.
func applyScan(state UserTrustState, result fraud.FusionResult, patterns []string) UserTrustState {
	next := state

	if result.FinalScore > riskyScanThreshold {
		next.TrustScore -= result.FinalScore * penaltyFactor
		if next.TrustScore < minTrustScore {
			next.TrustScore = minTrustScore
		}
	} else {
		next.TrustScore += recoveryStep
		if next.TrustScore > maxTrustScore {
			next.TrustScore = maxTrustScore
		}
	}

	next.ExposureLevel = exposureFor(next.TrustScore)
	next.ObservedPatterns = mergePatterns(state.ObservedPatterns, patterns)
	next.UpdatedAt = time.Now().UTC()
	return next
}

// mergePatterns unions two pattern lists into a fresh sorted slice.
func mergePatterns(existing, incoming []string) []string {
	if len(incoming) == 0 && len(existing) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, p := range existing {
		seen[p] = struct{}{}
	}
	for _, p := range incoming {
		seen[p] = struct{}{}
	}
	merged := make([]string, 0, len(seen))
	for p := range seen {
		merged = append(merged, p)
	}
	sort.Strings(merged)
	return merged
}

// Ledger applies the trust update rule on top of a Store, which owns
// per-user serialization.
type Ledger struct {
	store  Store
	logger *slog.Logger
}

// NewLedger creates a ledger backed by the given store.
func NewLedger(store Store, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{store: store, logger: logger}
}

// RecordScan folds a scan outcome into the user's trust state and returns
// the updated state. Unknown users start at full trust.
func (l *Ledger) RecordScan(ctx context.Context, userID string, result fraud.FusionResult, patterns []string) (UserTrustState, error) {
	updated, err := l.store.Update(ctx, userID, func(state UserTrustState) UserTrustState {
		return applyScan(state, result, patterns)
	})
	if err != nil {
		return UserTrustState{}, err
	}

	l.logger.Debug("trust ledger updated",
		"user_id", userID,
		"trust_score", updated.TrustScore,
		"exposure_level", updated.ExposureLevel)
	return updated, nil
}

// Get returns a user's current trust state without modifying it. Unknown
// users get the pristine default.
func (l *Ledger) Get(ctx context.Context, userID string) (UserTrustState, error) {
	return l.store.Get(ctx, userID)
}
