package model

import (
	"math"
	"time"
)

// ClaimStatus is the lifecycle state of a Claim.
type ClaimStatus string

const (
	ClaimActive    ClaimStatus = "active"
	ClaimStale     ClaimStatus = "stale"
	ClaimRetracted ClaimStatus = "retracted"
	ClaimDisputed  ClaimStatus = "disputed"
)

// AggregationMethod selects how a claim's five confidence components are
// combined into its overall score.
type AggregationMethod string

const (
	AggregationGeometricMean AggregationMethod = "geometric_mean"
	AggregationMinimum       AggregationMethod = "minimum"
	AggregationWeightedMean  AggregationMethod = "weighted_mean"
)

// DefaultAggregationMethod is used whenever a claim doesn't specify one.
const DefaultAggregationMethod = AggregationGeometricMean

// minComponentFloor is substituted for any zero confidence component before
// aggregation — the spec forbids zero components from surviving into the
// aggregate (a true zero would make geometric mean degenerate).
const minComponentFloor = 0.01

// claimConfidenceFloor and claimConfidenceCeiling bound the aggregated overall
// score.
const (
	claimConfidenceFloor   = 0.01
	claimConfidenceCeiling = 1.0
)

// Subject identifies what a Claim is about.
type Subject struct {
	Type     string `json:"type"` // file | function | module | decision
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
}

// Source identifies where a Claim came from, optionally binding it to a
// replay trace.
type Source struct {
	Type    string  `json:"type"`
	ID      string  `json:"id"`
	Version *string `json:"version,omitempty"`
	TraceID *string `json:"trace_id,omitempty"`
}

// Confidence is the five-component decomposition of a claim's trustworthiness.
// Overall is always the recomputed aggregate of the other five under Method;
// callers never set Overall directly (see Aggregate).
type Confidence struct {
	Overall        float64           `json:"overall"`
	Retrieval      float64           `json:"retrieval"`
	Structural     float64           `json:"structural"`
	Semantic       float64           `json:"semantic"`
	TestExecution  float64           `json:"test_execution"`
	Recency        float64           `json:"recency"`
	AggregationMethod AggregationMethod `json:"aggregation_method"`
}

// Aggregate recomputes Overall from the five components using Method,
// flooring zero components at minComponentFloor first and clipping the
// result to [claimConfidenceFloor, claimConfidenceCeiling].
func (c Confidence) Aggregate() Confidence {
	method := c.AggregationMethod
	if method == "" {
		method = DefaultAggregationMethod
	}
	components := [5]float64{c.Retrieval, c.Structural, c.Semantic, c.TestExecution, c.Recency}
	for i, v := range components {
		if v <= 0 {
			components[i] = minComponentFloor
		}
	}

	var overall float64
	switch method {
	case AggregationMinimum:
		overall = components[0]
		for _, v := range components[1:] {
			if v < overall {
				overall = v
			}
		}
	case AggregationWeightedMean:
		// Weighted toward retrieval and semantic signal, the two components
		// most directly tied to "was the right thing found."
		weights := [5]float64{0.30, 0.15, 0.30, 0.15, 0.10}
		var sum, weightSum float64
		for i, v := range components {
			sum += v * weights[i]
			weightSum += weights[i]
		}
		overall = sum / weightSum
	case AggregationGeometricMean:
		fallthrough
	default:
		product := 1.0
		for _, v := range components {
			product *= v
		}
		overall = math.Pow(product, 1.0/float64(len(components)))
	}

	if overall < claimConfidenceFloor {
		overall = claimConfidenceFloor
	}
	if overall > claimConfidenceCeiling {
		overall = claimConfidenceCeiling
	}

	c.Overall = overall
	c.AggregationMethod = method
	return c
}

// Claim is a proposition about a Subject with decomposed, provenance-tagged
// confidence. SchemaVersion allows the storage layer to migrate claim rows
// written by older pipeline versions without a blocking schema change.
type Claim struct {
	ID            string      `json:"id"`
	Proposition   string      `json:"proposition"`
	Type          string      `json:"type"`
	Subject       Subject     `json:"subject"`
	Source        Source      `json:"source"`
	Status        ClaimStatus `json:"status"`
	Confidence    Confidence  `json:"confidence"`
	SchemaVersion int         `json:"schema_version"`
	CreatedAt     time.Time   `json:"created_at"`
}

// CurrentClaimSchemaVersion is written onto every newly created claim.
const CurrentClaimSchemaVersion = 1
