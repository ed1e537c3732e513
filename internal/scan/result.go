package scan

import (
	"fmt"
	"time"

	"github.com/stockrank/stockrank/internal/quality"
)

// Action is the trade signal derived from a stock's overall score.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionHold Action = "HOLD"
	ActionSell Action = "SELL"
)

// Score-to-action thresholds. Applied after selection, independent of the
// selection policy.
const (
	buyThreshold  = 0.70
	sellThreshold = 0.30
)

// StockScore is one symbol's scored snapshot for one run. Created fresh
// per run and never mutated; the next run supersedes it.
type StockScore struct {
	Symbol       string             `json:"symbol" msgpack:"symbol"`
	OverallScore float64            `json:"overall_score" msgpack:"overall_score"`
	FactorScores map[string]float64 `json:"factor_scores" msgpack:"factor_scores"`
	DataQuality  quality.Score      `json:"data_quality" msgpack:"data_quality"`
	Neutral      bool               `json:"neutral" msgpack:"neutral"` // fallback score, no factor computed

	// Denormalized market snapshot fields.
	Price     float64 `json:"price" msgpack:"price"`
	MarketCap float64 `json:"market_cap" msgpack:"market_cap"`
	Sector    string  `json:"sector" msgpack:"sector"`

	Timestamp time.Time `json:"timestamp" msgpack:"timestamp"`
}

// Selection is one chosen symbol with its allocation and signal.
type Selection struct {
	Symbol     string     `json:"symbol" msgpack:"symbol"`
	Score      StockScore `json:"score" msgpack:"score"`
	Weight     float64    `json:"weight" msgpack:"weight"`
	Action     Action     `json:"action" msgpack:"action"`
	Confidence float64    `json:"confidence" msgpack:"confidence"`
}

// RunMetrics aggregates execution statistics for one run.
type RunMetrics struct {
	UniverseSize    int           `json:"universe_size" msgpack:"universe_size"`
	StocksEvaluated int           `json:"stocks_evaluated" msgpack:"stocks_evaluated"`
	StocksSelected  int           `json:"stocks_selected" msgpack:"stocks_selected"`
	FetchFailures   int           `json:"fetch_failures" msgpack:"fetch_failures"`
	AverageQuality  float64       `json:"average_quality" msgpack:"average_quality"`
	UniverseCached  bool          `json:"universe_cached" msgpack:"universe_cached"`
	Duration        time.Duration `json:"duration" msgpack:"duration"`
}

// SelectionResult is the outcome of one run. A failed run still carries
// whatever partial shape could be populated.
type SelectionResult struct {
	RunID       string      `json:"run_id" msgpack:"run_id"`
	Algorithm   string      `json:"algorithm" msgpack:"algorithm"`
	State       State       `json:"state" msgpack:"state"`
	Selections  []Selection `json:"selections" msgpack:"selections"`
	Metrics     RunMetrics  `json:"metrics" msgpack:"metrics"`
	Errors      []string    `json:"errors,omitempty" msgpack:"errors"`
	StartedAt   time.Time   `json:"started_at" msgpack:"started_at"`
	CompletedAt time.Time   `json:"completed_at" msgpack:"completed_at"`
}

// RunError is a structured run-level failure. Partial carries whatever
// result shape was populated before the failure.
type RunError struct {
	RunID   string
	Stage   State
	Message string
	Partial *SelectionResult
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run %s failed at %s: %s", e.RunID, e.Stage, e.Message)
}
