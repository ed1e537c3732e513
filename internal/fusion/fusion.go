package fusion

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stockrank/stockrank/internal/quality"
)

// Policy selects how conflicting provider values are reconciled.
type Policy string

const (
	HighestQuality  Policy = "HIGHEST_QUALITY"
	MostRecent      Policy = "MOST_RECENT"
	Consensus       Policy = "CONSENSUS"
	WeightedAverage Policy = "WEIGHTED_AVERAGE"
)

// ErrNoSamples is returned when fusion receives no provider values. The
// field stays absent; it is never defaulted to zero.
var ErrNoSamples = errors.New("fusion: no samples")

// Sample is one provider's answer for a logical field.
type Sample struct {
	Value     float64
	Source    string
	Timestamp time.Time
	LatencyMS float64
	// Completeness of the enclosing response, [0,1]. Zero means unknown
	// and is scored as such.
	Completeness float64
}

// Fused is the reconciled value plus its quality assessment.
type Fused struct {
	Value   float64       `json:"value"`
	Source  string        `json:"source"`
	Quality quality.Score `json:"quality"`
	Samples int           `json:"samples"`
	Policy  Policy        `json:"policy"`
}

// AccuracyProvider supplies historical validation agreement per source and
// field. Implemented by an external collaborator; StaticAccuracy is the
// in-process default.
type AccuracyProvider interface {
	Accuracy(source, field string) float64
}

// StaticAccuracy returns one fixed accuracy for every source.
type StaticAccuracy float64

func (a StaticAccuracy) Accuracy(string, string) float64 { return float64(a) }

// Config tunes the fuser.
type Config struct {
	// ConsensusTolerance is the relative spread within which two values
	// count as agreeing.
	ConsensusTolerance float64
	// Reputations holds the static per-provider prior, [0,1]. Unlisted
	// providers get DefaultReputation.
	Reputations       map[string]float64
	DefaultReputation float64
	LatencyCeilingMS  float64
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		ConsensusTolerance: 0.01,
		Reputations:        map[string]float64{},
		DefaultReputation:  0.6,
		LatencyCeilingMS:   quality.DefaultLatencyCeilingMS,
	}
}

// Fuser reconciles multi-provider samples into single values.
type Fuser struct {
	cfg      Config
	accuracy AccuracyProvider
	now      func() time.Time
}

// New creates a Fuser. A nil accuracy provider falls back to a neutral
// static prior.
func New(cfg Config, accuracy AccuracyProvider) *Fuser {
	if accuracy == nil {
		accuracy = StaticAccuracy(0.7)
	}
	if cfg.ConsensusTolerance <= 0 {
		cfg.ConsensusTolerance = 0.01
	}
	if cfg.DefaultReputation <= 0 {
		cfg.DefaultReputation = 0.6
	}
	return &Fuser{cfg: cfg, accuracy: accuracy, now: time.Now}
}

// Fuse reconciles samples for one logical field under the given policy.
// Returns ErrNoSamples when the slice is empty.
func (f *Fuser) Fuse(field string, class quality.FieldClass, policy Policy, samples []Sample) (Fused, error) {
	if len(samples) == 0 {
		return Fused{}, ErrNoSamples
	}

	scored := f.scoreSamples(field, class, samples)

	switch policy {
	case MostRecent:
		return f.fuseMostRecent(scored), nil
	case Consensus:
		return f.fuseConsensus(scored), nil
	case WeightedAverage:
		return f.fuseWeightedAverage(scored), nil
	case HighestQuality:
		return f.fuseHighestQuality(scored), nil
	default:
		log.Warn().Str("policy", string(policy)).Str("field", field).
			Msg("Unknown fusion policy, using HIGHEST_QUALITY")
		return f.fuseHighestQuality(scored), nil
	}
}

type scoredSample struct {
	Sample
	quality quality.Score
}

func (f *Fuser) scoreSamples(field string, class quality.FieldClass, samples []Sample) []scoredSample {
	scored := make([]scoredSample, 0, len(samples))
	for _, s := range samples {
		rep, ok := f.cfg.Reputations[s.Source]
		if !ok {
			rep = f.cfg.DefaultReputation
		}
		q := quality.Compute(class, quality.Inputs{
			Age:              f.now().Sub(s.Timestamp),
			Completeness:     s.Completeness,
			Accuracy:         f.accuracy.Accuracy(s.Source, field),
			SourceReputation: rep,
			LatencyMS:        s.LatencyMS,
			LatencyCeilingMS: f.cfg.LatencyCeilingMS,
		})
		scored = append(scored, scoredSample{Sample: s, quality: q})
	}
	return scored
}

func (f *Fuser) fuseHighestQuality(scored []scoredSample) Fused {
	best := scored[0]
	for _, s := range scored[1:] {
		if s.quality.Overall > best.quality.Overall {
			best = s
		}
	}
	return Fused{
		Value:   best.Value,
		Source:  best.Source,
		Quality: best.quality,
		Samples: len(scored),
		Policy:  HighestQuality,
	}
}

func (f *Fuser) fuseMostRecent(scored []scoredSample) Fused {
	best := scored[0]
	for _, s := range scored[1:] {
		if s.Timestamp.After(best.Timestamp) {
			best = s
		}
	}
	return Fused{
		Value:   best.Value,
		Source:  best.Source,
		Quality: best.quality,
		Samples: len(scored),
		Policy:  MostRecent,
	}
}

// fuseConsensus finds the largest cluster of mutually-agreeing values. A
// strict majority wins and is averaged with quality weights; without a
// majority the policy falls back to HIGHEST_QUALITY.
func (f *Fuser) fuseConsensus(scored []scoredSample) Fused {
	ordered := make([]scoredSample, len(scored))
	copy(ordered, scored)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Value < ordered[j].Value })

	bestStart, bestLen := 0, 1
	start := 0
	for end := 0; end < len(ordered); end++ {
		for !withinTolerance(ordered[start].Value, ordered[end].Value, f.cfg.ConsensusTolerance) {
			start++
		}
		if end-start+1 > bestLen {
			bestStart, bestLen = start, end-start+1
		}
	}

	if bestLen*2 <= len(ordered) {
		fused := f.fuseHighestQuality(scored)
		fused.Policy = Consensus
		return fused
	}

	cluster := ordered[bestStart : bestStart+bestLen]
	fused := f.fuseWeightedAverage(cluster)
	fused.Samples = len(scored)
	fused.Policy = Consensus
	return fused
}

// fuseWeightedAverage computes the quality-weighted mean. Numeric fields
// only; quality reported is the weighted mean of the sample qualities.
func (f *Fuser) fuseWeightedAverage(scored []scoredSample) Fused {
	var sumW, sumWV float64
	var q quality.Score
	for _, s := range scored {
		w := s.quality.Overall
		if w <= 0 {
			w = 1e-6 // keep zero-quality samples from vanishing entirely
		}
		sumW += w
		sumWV += w * s.Value
		q.Overall += w * s.quality.Overall
		q.Freshness += w * s.quality.Freshness
		q.Completeness += w * s.quality.Completeness
		q.Accuracy += w * s.quality.Accuracy
		q.SourceReputation += w * s.quality.SourceReputation
		q.LatencyMS += w * s.quality.LatencyMS
	}
	q.Overall /= sumW
	q.Freshness /= sumW
	q.Completeness /= sumW
	q.Accuracy /= sumW
	q.SourceReputation /= sumW
	q.LatencyMS /= sumW

	return Fused{
		Value:   sumWV / sumW,
		Source:  "fused",
		Quality: q,
		Samples: len(scored),
		Policy:  WeightedAverage,
	}
}

func withinTolerance(a, b, tol float64) bool {
	scale := math.Max(math.Abs(a), math.Abs(b))
	if scale == 0 {
		return true
	}
	return math.Abs(a-b)/scale <= tol
}
