package trust

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finshield/engine/pkg/fraud"
)

func riskyScan(final float64) fraud.FusionResult {
	return fraud.FusionResult{FinalScore: final}
}

func TestRecordScan_RiskyErodesTrust(t *testing.T) {
	ledger := NewLedger(NewMemoryStore(), nil)
	ctx := context.Background()

	state, err := ledger.RecordScan(ctx, "alice", riskyScan(0.8), nil)
	require.NoError(t, err)
	assert.InDelta(t, 96.0, state.TrustScore, 1e-9) // 100 - 0.8*5
	assert.Equal(t, ExposureLow, state.ExposureLevel)
}

func TestRecordScan_CleanRecovers(t *testing.T) {
	ledger := NewLedger(NewMemoryStore(), nil)
	ctx := context.Background()

	// Erode first, then recover one point per clean scan.
	for range 10 {
		_, err := ledger.RecordScan(ctx, "bob", riskyScan(0.9), nil)
		require.NoError(t, err)
	}
	state, err := ledger.Get(ctx, "bob")
	require.NoError(t, err)
	assert.InDelta(t, 55.0, state.TrustScore, 1e-9)
	assert.Equal(t, ExposureHigh, state.ExposureLevel)

	state, err = ledger.RecordScan(ctx, "bob", riskyScan(0.1), nil)
	require.NoError(t, err)
	assert.InDelta(t, 56.0, state.TrustScore, 1e-9)
}

func TestRecordScan_FloorAndCeiling(t *testing.T) {
	ledger := NewLedger(NewMemoryStore(), nil)
	ctx := context.Background()

	// Trust never goes below zero.
	for range 30 {
		_, err := ledger.RecordScan(ctx, "carol", riskyScan(0.99), nil)
		require.NoError(t, err)
	}
	state, err := ledger.Get(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, 0.0, state.TrustScore)
	assert.Equal(t, ExposureCritical, state.ExposureLevel)

	// A fresh user's clean scan never exceeds the ceiling.
	state, err = ledger.RecordScan(ctx, "dave", riskyScan(0.0), nil)
	require.NoError(t, err)
	assert.Equal(t, 100.0, state.TrustScore)
}

func TestRecordScan_RiskyBoundary(t *testing.T) {
	ledger := NewLedger(NewMemoryStore(), nil)
	ctx := context.Background()

	// Exactly 0.6 is not risky; the threshold is strict.
	state, err := ledger.RecordScan(ctx, "erin", riskyScan(0.6), nil)
	require.NoError(t, err)
	assert.Equal(t, 100.0, state.TrustScore)

	state, err = ledger.RecordScan(ctx, "erin", riskyScan(0.61), nil)
	require.NoError(t, err)
	assert.Less(t, state.TrustScore, 100.0)
}

func TestExposureFor(t *testing.T) {
	tests := []struct {
		score float64
		want  ExposureLevel
	}{
		{39.9, ExposureCritical},
		{40, ExposureHigh},
		{69.9, ExposureHigh},
		{70, ExposureMedium},
		{89.9, ExposureMedium},
		{90, ExposureLow},
		{100, ExposureLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exposureFor(tt.score), "exposureFor(%v)", tt.score)
	}
}

func TestRecordScan_PatternUnion(t *testing.T) {
	ledger := NewLedger(NewMemoryStore(), nil)
	ctx := context.Background()

	state, err := ledger.RecordScan(ctx, "frank", riskyScan(0.9), []string{PatternUrgencyPressure})
	require.NoError(t, err)
	assert.Equal(t, []string{PatternUrgencyPressure}, state.ObservedPatterns)

	// Re-observing a pattern never duplicates it; new patterns merge in
	// sorted order.
	state, err = ledger.RecordScan(ctx, "frank", riskyScan(0.9), []string{PatternRewardTrap, PatternUrgencyPressure})
	require.NoError(t, err)
	assert.Equal(t, []string{PatternRewardTrap, PatternUrgencyPressure}, state.ObservedPatterns)

	// Clean scans never remove observed patterns.
	state, err = ledger.RecordScan(ctx, "frank", riskyScan(0.0), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{PatternRewardTrap, PatternUrgencyPressure}, state.ObservedPatterns)
}

func TestGet_UnknownUser(t *testing.T) {
	ledger := NewLedger(NewMemoryStore(), nil)

	state, err := ledger.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, 100.0, state.TrustScore)
	assert.Equal(t, ExposureLow, state.ExposureLevel)
	assert.Empty(t, state.ObservedPatterns)
}

func TestRecordScan_ConcurrentSameUser(t *testing.T) {
	ledger := NewLedger(NewMemoryStore(), nil)
	ctx := context.Background()

	// 20 concurrent risky scans at 0.7 each deduct exactly 3.5 apiece.
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.RecordScan(ctx, "grace", riskyScan(0.7), []string{PatternAuthorityImpersonation})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	state, err := ledger.Get(ctx, "grace")
	require.NoError(t, err)
	assert.InDelta(t, 30.0, state.TrustScore, 1e-9, "no update may be lost")
	assert.Equal(t, []string{PatternAuthorityImpersonation}, state.ObservedPatterns)
}
