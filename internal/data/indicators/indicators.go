// Package indicators derives technical indicators from raw price history
// for symbols whose providers serve candles but no precomputed technicals.
package indicators

import (
	"math"
	"time"

	talib "github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"

	"github.com/stockrank/stockrank/internal/data/providers"
	"github.com/stockrank/stockrank/internal/domain/snapshot"
)

const (
	rsiPeriod     = 14
	macdFast      = 12
	macdSlow      = 26
	macdSignal    = 9
	smaShort      = 50
	smaLong       = 200
	changeWindow  = 63  // ~3 months of trading days
	volWindow     = 30  // daily returns in the volatility sample
	tradingDaysYr = 252 // annualization base
)

// FromCandles computes a Technical snapshot from daily OHLCV bars. Each
// indicator is computed independently; ones without enough history stay
// absent rather than failing the whole snapshot.
func FromCandles(symbol string, candles []providers.Candle) *snapshot.Technical {
	closes := make([]float64, 0, len(candles))
	for _, c := range candles {
		closes = append(closes, c.Close)
	}

	tech := &snapshot.Technical{
		Symbol:    symbol,
		Timestamp: time.Now(),
		Source:    "derived",
	}
	if len(candles) > 0 {
		tech.Timestamp = candles[len(candles)-1].Time
	}

	tech.RSI = lastOf(func() []float64 {
		if len(closes) <= rsiPeriod {
			return nil
		}
		return talib.Rsi(closes, rsiPeriod)
	})

	if len(closes) >= macdSlow+macdSignal {
		macd, signal, hist := talib.Macd(closes, macdFast, macdSlow, macdSignal)
		tech.MACD = lastValue(macd)
		tech.MACDSignal = lastValue(signal)
		tech.MACDHist = lastValue(hist)
	}

	tech.SMA50 = lastOf(func() []float64 {
		if len(closes) < smaShort {
			return nil
		}
		return talib.Sma(closes, smaShort)
	})
	tech.SMA200 = lastOf(func() []float64 {
		if len(closes) < smaLong {
			return nil
		}
		return talib.Sma(closes, smaLong)
	})

	tech.Volatility = annualizedVolatility(closes)
	tech.Change3M = priceChange(closes, changeWindow)

	return tech
}

// annualizedVolatility is the stddev of recent daily log returns, scaled
// to a yearly percentage.
func annualizedVolatility(closes []float64) snapshot.Float {
	if len(closes) < volWindow+1 {
		return snapshot.Absent()
	}
	window := closes[len(closes)-volWindow-1:]
	returns := make([]float64, 0, volWindow)
	for i := 1; i < len(window); i++ {
		if window[i-1] <= 0 || window[i] <= 0 {
			return snapshot.Absent()
		}
		returns = append(returns, math.Log(window[i]/window[i-1]))
	}
	sd := stat.StdDev(returns, nil)
	if math.IsNaN(sd) {
		return snapshot.Absent()
	}
	return snapshot.FloatFrom(sd * math.Sqrt(tradingDaysYr) * 100)
}

// priceChange is the percent change over the last n bars.
func priceChange(closes []float64, n int) snapshot.Float {
	if len(closes) <= n {
		return snapshot.Absent()
	}
	then := closes[len(closes)-1-n]
	now := closes[len(closes)-1]
	if then <= 0 {
		return snapshot.Absent()
	}
	return snapshot.FloatFrom((now - then) / then * 100)
}

func lastOf(compute func() []float64) snapshot.Float {
	return lastValue(compute())
}

func lastValue(series []float64) snapshot.Float {
	if len(series) == 0 {
		return snapshot.Absent()
	}
	v := series[len(series)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return snapshot.Absent()
	}
	return snapshot.FloatFrom(v)
}
