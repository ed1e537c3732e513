package factors

import (
	"math"

	"github.com/stockrank/stockrank/internal/domain/snapshot"
)

// Momentum, volatility and sentiment leaf factors.

func (r *Registry) registerMomentumFactors() {
	r.Register(Factor{
		ID:       "rsi",
		Requires: []string{"technical.rsi"},
		Compute: func(in Inputs) (float64, bool) {
			if in.Technical == nil || !in.Technical.RSI.Finite() {
				return 0, false
			}
			// Peak score at RSI 60: established momentum without the
			// blow-off reading of an overbought top.
			return clamp01(1 - math.Abs(in.Technical.RSI.Value-60)/40), true
		},
	})

	r.Register(Factor{
		ID:       "macd",
		Requires: []string{"technical.macd_hist"},
		Compute: func(in Inputs) (float64, bool) {
			t := in.Technical
			if t == nil || in.Market.Price <= 0 {
				return 0, false
			}
			hist, ok := macdHistogram(t)
			if !ok {
				return 0, false
			}
			// Normalize the histogram against 2% of price so the score is
			// comparable across price levels.
			rel := hist / (in.Market.Price * 0.02)
			return clamp01(0.5 + 0.5*math.Tanh(rel)), true
		},
	})

	r.Register(Factor{
		ID:       "price_vs_ma",
		Requires: []string{"technical.sma_50", "technical.sma_200"},
		Compute: func(in Inputs) (float64, bool) {
			t := in.Technical
			if t == nil || in.Market.Price <= 0 {
				return 0, false
			}
			var sum, weight float64
			if t.SMA50.Finite() && t.SMA50.Value > 0 {
				dev := in.Market.Price/t.SMA50.Value - 1
				sum += 0.5 + 0.5*math.Tanh(dev/0.05)
				weight++
			}
			if t.SMA200.Finite() && t.SMA200.Value > 0 {
				dev := in.Market.Price/t.SMA200.Value - 1
				sum += 0.5 + 0.5*math.Tanh(dev/0.10)
				weight++
			}
			if weight == 0 {
				return 0, false
			}
			return clamp01(sum / weight), true
		},
	})

	r.Register(Factor{
		ID:       "momentum_3m",
		Requires: []string{"technical.change_3m"},
		Compute: func(in Inputs) (float64, bool) {
			if in.Technical == nil || !in.Technical.Change3M.Finite() {
				return 0, false
			}
			return clamp01(0.5 + in.Technical.Change3M.Value/40), true
		},
	})

	r.Register(Factor{
		ID:       "volatility",
		Requires: []string{"technical.volatility"},
		Compute: func(in Inputs) (float64, bool) {
			if in.Technical == nil || !in.Technical.Volatility.Finite() {
				return 0, false
			}
			// Lower annualized volatility is better; 80%+ scores 0.
			return clamp01(1 - in.Technical.Volatility.Value/80), true
		},
	})

	r.Register(Factor{
		ID:       "sentiment",
		Requires: []string{"technical.sentiment"},
		Compute: func(in Inputs) (float64, bool) {
			if in.Technical == nil || !in.Technical.Sentiment.Finite() {
				return 0, false
			}
			return clamp01(0.5 + 0.5*in.Technical.Sentiment.Value), true
		},
	})
}

func macdHistogram(t *snapshot.Technical) (float64, bool) {
	if t.MACDHist.Finite() {
		return t.MACDHist.Value, true
	}
	if t.MACD.Finite() && t.MACDSignal.Finite() {
		return t.MACD.Value - t.MACDSignal.Value, true
	}
	return 0, false
}
