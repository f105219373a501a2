package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRSIInsufficientDataReturnsNeutral(t *testing.T) {
	assert.Equal(t, 50.0, RSI([]float64{1, 2, 3}, 14))
}

func TestRSIAllGainsReturns100(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	assert.Equal(t, 100.0, RSI(closes, 14))
}

func TestATRInsufficientDataReturnsZero(t *testing.T) {
	assert.Equal(t, 0.0, ATR([]float64{1, 2}, []float64{1, 2}, []float64{1, 2}, 14))
}

func TestVolumeRatioNeutralWhenNoHistory(t *testing.T) {
	assert.Equal(t, 1.0, VolumeRatio([]float64{10}, 20))
}

func TestVolumeRatioComputesAgainstMean(t *testing.T) {
	volumes := []float64{10, 10, 10, 10, 40}
	assert.InDelta(t, 4.0, VolumeRatio(volumes, 4), 0.0001)
}

func TestBollingerPositionClampedWithinBand(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100
	}
	closes[19] = 500 // push far above band
	res := Bollinger(closes, 20, 2)
	assert.LessOrEqual(t, res.Position, 1.0)
	assert.GreaterOrEqual(t, res.Position, 0.0)
}

func TestCompositeNeverPanicsOnEmptyInput(t *testing.T) {
	ind := Composite(nil)
	assert.Equal(t, "neutral", ind.BiasTag)
	assert.Equal(t, 1.0, ind.VolumeRatio)
}

func TestCompositeBiasClampedToRange(t *testing.T) {
	candles := make([]Candle, 60)
	price := 1.0
	for i := range candles {
		price *= 1.02
		candles[i] = Candle{Open: price * 0.99, High: price * 1.01, Low: price * 0.98, Close: price, Volume: 1000 + float64(i)*50}
	}
	ind := Composite(candles)
	assert.LessOrEqual(t, ind.Bias, 4)
	assert.GreaterOrEqual(t, ind.Bias, -4)
}
