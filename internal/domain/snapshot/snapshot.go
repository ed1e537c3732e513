package snapshot

import (
	"encoding/json"
	"math"
	"time"
)

// Float is an optional float64. The zero value is absent. Absence is a
// first-class state distinct from zero: a missing P/E ratio must never be
// confused with a P/E of 0.
type Float struct {
	Value float64 `json:"value" msgpack:"v"`
	Valid bool    `json:"valid" msgpack:"ok"`
}

// FloatFrom wraps a present value.
func FloatFrom(v float64) Float {
	return Float{Value: v, Valid: true}
}

// Absent returns the absent Float. Equivalent to the zero value, spelled
// out for readability at call sites.
func Absent() Float {
	return Float{}
}

// Or returns the value if present, otherwise def.
func (f Float) Or(def float64) float64 {
	if f.Valid {
		return f.Value
	}
	return def
}

// Finite reports whether the value is present and a real number.
func (f Float) Finite() bool {
	return f.Valid && !math.IsNaN(f.Value) && !math.IsInf(f.Value, 0)
}

// MarshalJSON renders absent values as null so downstream consumers can
// tell "missing" from "zero".
func (f Float) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// UnmarshalJSON accepts null as absent.
func (f *Float) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Float{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = FloatFrom(v)
	return nil
}

// Market is a point-in-time market data snapshot for one symbol.
// Immutable once fetched; one per fetch cycle.
type Market struct {
	Symbol    string    `json:"symbol" msgpack:"symbol"`
	Price     float64   `json:"price" msgpack:"price"`
	Volume    float64   `json:"volume" msgpack:"volume"`
	MarketCap float64   `json:"market_cap" msgpack:"market_cap"`
	Sector    string    `json:"sector" msgpack:"sector"`
	Exchange  string    `json:"exchange" msgpack:"exchange"`
	Timestamp time.Time `json:"timestamp" msgpack:"timestamp"`
	Source    string    `json:"source" msgpack:"source"`
}

// Fundamental holds optional named ratios for one symbol. Every field may
// be absent independently of the others.
type Fundamental struct {
	Symbol string `json:"symbol" msgpack:"symbol"`

	// Valuation ratios
	PE       Float `json:"pe" msgpack:"pe"`
	PB       Float `json:"pb" msgpack:"pb"`
	PS       Float `json:"ps" msgpack:"ps"`
	EVEBITDA Float `json:"ev_ebitda" msgpack:"ev_ebitda"`
	PEG      Float `json:"peg" msgpack:"peg"`

	// Quality ratios
	ROE             Float `json:"roe" msgpack:"roe"`
	DebtEquity      Float `json:"debt_equity" msgpack:"debt_equity"`
	CurrentRatio    Float `json:"current_ratio" msgpack:"current_ratio"`
	OperatingMargin Float `json:"operating_margin" msgpack:"operating_margin"`
	NetMargin       Float `json:"net_margin" msgpack:"net_margin"`

	// Growth
	RevenueGrowth  Float `json:"revenue_growth" msgpack:"revenue_growth"`
	EarningsGrowth Float `json:"earnings_growth" msgpack:"earnings_growth"`

	// Dividends
	DividendYield Float `json:"dividend_yield" msgpack:"dividend_yield"`
	PayoutRatio   Float `json:"payout_ratio" msgpack:"payout_ratio"`

	Timestamp time.Time `json:"timestamp" msgpack:"timestamp"`
	Source    string    `json:"source" msgpack:"source"`
}

// Technical holds optional technical indicators for one symbol.
type Technical struct {
	Symbol string `json:"symbol" msgpack:"symbol"`

	RSI        Float `json:"rsi" msgpack:"rsi"`
	MACD       Float `json:"macd" msgpack:"macd"`
	MACDSignal Float `json:"macd_signal" msgpack:"macd_signal"`
	MACDHist   Float `json:"macd_hist" msgpack:"macd_hist"`
	SMA50      Float `json:"sma_50" msgpack:"sma_50"`
	SMA200     Float `json:"sma_200" msgpack:"sma_200"`
	Volatility Float `json:"volatility" msgpack:"volatility"` // annualized, percent
	Change3M   Float `json:"change_3m" msgpack:"change_3m"`   // 3-month price change, percent
	Sentiment  Float `json:"sentiment" msgpack:"sentiment"`   // [-1, 1]

	Timestamp time.Time `json:"timestamp" msgpack:"timestamp"`
	Source    string    `json:"source" msgpack:"source"`
}
