package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfidenceAggregateGeometricMeanFloorsZeroComponents(t *testing.T) {
	c := Confidence{Retrieval: 0.8, Structural: 0, Semantic: 0.6, TestExecution: 0.5, Recency: 0.9}
	got := c.Aggregate()
	assert.Equal(t, AggregationGeometricMean, got.AggregationMethod)
	assert.Greater(t, got.Overall, 0.0)
	assert.LessOrEqual(t, got.Overall, 1.0)
	assert.GreaterOrEqual(t, got.Overall, claimConfidenceFloor)
}

func TestConfidenceAggregateMinimum(t *testing.T) {
	c := Confidence{Retrieval: 0.8, Structural: 0.3, Semantic: 0.9, TestExecution: 0.95, Recency: 0.99, AggregationMethod: AggregationMinimum}
	got := c.Aggregate()
	assert.InDelta(t, 0.3, got.Overall, 1e-9)
}

func TestConfidenceAggregateClipsToCeiling(t *testing.T) {
	c := Confidence{Retrieval: 1, Structural: 1, Semantic: 1, TestExecution: 1, Recency: 1, AggregationMethod: AggregationWeightedMean}
	got := c.Aggregate()
	assert.LessOrEqual(t, got.Overall, claimConfidenceCeiling)
}

func TestDefeaterApplyToMonotonicity(t *testing.T) {
	d := Defeater{Type: DefeaterRebuttal, Status: DefeaterActive, ConfidenceReduction: 0.5}
	reduced := d.ApplyTo(0.8)
	assert.Less(t, reduced, 0.8, "activating a defeater must never increase confidence")

	inactive := Defeater{Type: DefeaterRebuttal, Status: DefeaterPending, ConfidenceReduction: 0.5}
	unchanged := inactive.ApplyTo(0.8)
	assert.Equal(t, 0.8, unchanged, "a non-active defeater must not change confidence")
}

func TestDefeaterApplyToRespectsSeverityFloorWithoutIncreasing(t *testing.T) {
	d := Defeater{Type: DefeaterStaleness, Status: DefeaterActive, ConfidenceReduction: 0.9}
	reduced := d.ApplyTo(0.4)
	require.LessOrEqual(t, reduced, 0.4)
	assert.GreaterOrEqual(t, reduced, 0.0)

	// Original confidence already below the floor: must not be lifted up.
	belowFloor := d.ApplyTo(0.05)
	assert.LessOrEqual(t, belowFloor, 0.05)
}

func TestGraphMetaComputeHealth(t *testing.T) {
	healthy := GraphMeta{ClaimCount: 1000, ActiveDefeaters: 0, UnresolvedContradictions: 0}
	assert.Equal(t, 1.0, healthy.ComputeHealth())

	unhealthy := GraphMeta{ClaimCount: 10, ActiveDefeaters: 100, UnresolvedContradictions: 50}
	assert.InDelta(t, 0.4, unhealthy.ComputeHealth(), 1e-9)
}

func TestDisclosureFormat(t *testing.T) {
	s := Disclosure(DisclosureReplayUnavailable, "Evidence ledger unavailable for this query.")
	assert.Equal(t, "unverified_by_trace(replay_unavailable): Evidence ledger unavailable for this query.", s)
}

func TestFileFreshInvariant(t *testing.T) {
	f := File{}
	assert.True(t, f.Fresh(), "zero-value times are equal; last-indexed >= last-modified holds")
}
