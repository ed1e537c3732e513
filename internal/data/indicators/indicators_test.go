package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockrank/stockrank/internal/data/providers"
)

func syntheticCandles(n int, step float64) []providers.Candle {
	candles := make([]providers.Candle, 0, n)
	price := 100.0
	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		// Small oscillation on top of the trend so RSI is defined.
		price += step + math.Sin(float64(i))*0.5
		candles = append(candles, providers.Candle{
			Time:   day.AddDate(0, 0, i),
			Open:   price - 0.2,
			High:   price + 0.5,
			Low:    price - 0.5,
			Close:  price,
			Volume: 1e6,
		})
	}
	return candles
}

func TestFromCandles_Uptrend(t *testing.T) {
	tech := FromCandles("AAPL", syntheticCandles(260, 0.3))

	require.True(t, tech.RSI.Valid)
	assert.Greater(t, tech.RSI.Value, 50.0, "steady uptrend keeps RSI above neutral")
	assert.LessOrEqual(t, tech.RSI.Value, 100.0)

	require.True(t, tech.SMA50.Valid)
	require.True(t, tech.SMA200.Valid)
	assert.Greater(t, tech.SMA50.Value, tech.SMA200.Value, "uptrend puts the short average on top")

	require.True(t, tech.MACD.Valid)
	require.True(t, tech.MACDSignal.Valid)
	require.True(t, tech.MACDHist.Valid)

	require.True(t, tech.Change3M.Valid)
	assert.Greater(t, tech.Change3M.Value, 0.0)

	require.True(t, tech.Volatility.Valid)
	assert.Greater(t, tech.Volatility.Value, 0.0)
	assert.Less(t, tech.Volatility.Value, 100.0)
}

func TestFromCandles_InsufficientHistory(t *testing.T) {
	tech := FromCandles("NEWCO", syntheticCandles(10, 0.3))

	assert.False(t, tech.RSI.Valid)
	assert.False(t, tech.SMA50.Valid)
	assert.False(t, tech.SMA200.Valid)
	assert.False(t, tech.MACD.Valid)
	assert.False(t, tech.Change3M.Valid)
	assert.False(t, tech.Volatility.Valid)
	assert.Equal(t, "NEWCO", tech.Symbol)
}

func TestFromCandles_PartialHistory(t *testing.T) {
	// Enough bars for RSI and SMA50, not for SMA200.
	tech := FromCandles("MIDCO", syntheticCandles(80, 0.3))

	assert.True(t, tech.RSI.Valid)
	assert.True(t, tech.SMA50.Valid)
	assert.False(t, tech.SMA200.Valid)
	assert.True(t, tech.Change3M.Valid)
}

func TestFromCandles_Empty(t *testing.T) {
	tech := FromCandles("EMPTY", nil)
	assert.False(t, tech.RSI.Valid)
	assert.Equal(t, "EMPTY", tech.Symbol)
}
