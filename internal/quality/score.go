package quality

import (
	"math"
	"time"
)

// Score describes how trustworthy a fused data value is. All metrics are
// in [0,1] except LatencyMS, which is the observed response time in
// milliseconds. Overall is a fixed weighted blend of the five metrics and
// is never fabricated: callers with no input data produce no Score at all.
type Score struct {
	Overall          float64 `json:"overall" msgpack:"overall"`
	Freshness        float64 `json:"freshness" msgpack:"freshness"`
	Completeness     float64 `json:"completeness" msgpack:"completeness"`
	Accuracy         float64 `json:"accuracy" msgpack:"accuracy"`
	SourceReputation float64 `json:"source_reputation" msgpack:"source_reputation"`
	LatencyMS        float64 `json:"latency_ms" msgpack:"latency_ms"`
}

// Blend weights for Overall. The latency contribution uses the latency
// metric normalized against the target ceiling.
const (
	weightFreshness    = 0.30
	weightCompleteness = 0.25
	weightAccuracy     = 0.20
	weightReputation   = 0.15
	weightLatency      = 0.10
)

// DefaultLatencyCeilingMS is the response-time ceiling against which
// latency is normalized when the caller does not supply one.
const DefaultLatencyCeilingMS = 2000.0

// FieldClass determines how fast freshness decays.
type FieldClass string

const (
	FieldRealTime    FieldClass = "realtime"
	FieldFundamental FieldClass = "fundamental"
	FieldUniverse    FieldClass = "universe"
)

// MaxAge returns the age at which freshness reaches zero for the class.
// Real-time data goes stale in minutes; fundamentals hold for a quarter.
func (c FieldClass) MaxAge() time.Duration {
	switch c {
	case FieldRealTime:
		return 5 * time.Minute
	case FieldFundamental:
		return 91 * 24 * time.Hour
	case FieldUniverse:
		return 24 * time.Hour
	default:
		return time.Hour
	}
}

// Inputs carries the raw observations behind a Score.
type Inputs struct {
	Age              time.Duration
	Completeness     float64 // fraction of expected sub-fields present
	Accuracy         float64 // historical validation agreement, [0,1]
	SourceReputation float64 // static per-provider prior, [0,1]
	LatencyMS        float64
	LatencyCeilingMS float64 // 0 means DefaultLatencyCeilingMS
}

// Compute derives a Score for one field class.
func Compute(class FieldClass, in Inputs) Score {
	ceiling := in.LatencyCeilingMS
	if ceiling <= 0 {
		ceiling = DefaultLatencyCeilingMS
	}

	freshness := clamp01(1 - in.Age.Seconds()/class.MaxAge().Seconds())
	completeness := clamp01(in.Completeness)
	accuracy := clamp01(in.Accuracy)
	reputation := clamp01(in.SourceReputation)
	latencyScore := clamp01(1 - in.LatencyMS/ceiling)

	overall := weightFreshness*freshness +
		weightCompleteness*completeness +
		weightAccuracy*accuracy +
		weightReputation*reputation +
		weightLatency*latencyScore

	return Score{
		Overall:          clamp01(overall),
		Freshness:        freshness,
		Completeness:     completeness,
		Accuracy:         accuracy,
		SourceReputation: reputation,
		LatencyMS:        math.Max(0, in.LatencyMS),
	}
}

// Completeness returns present/expected, 0 when nothing is expected.
func Completeness(present, expected int) float64 {
	if expected <= 0 {
		return 0
	}
	return clamp01(float64(present) / float64(expected))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
