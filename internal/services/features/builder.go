// Package features turns raw daily candles into the model input vectors.
package features

import (
	"math"
	"time"

	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"

	"StockPulse/internal/domain/models"
)

const (
	rsiWindow      = 14
	smaShortWindow = 5
	smaLongWindow  = 20
	bbWindow       = 20
	bbSigma        = 2.0
	macdShort      = 12
	macdLong       = 26
	macdSignal     = 9
	volWindow      = 20
)

// Builder computes the feature vector for one instrument from its candle
// history. Feature order is fixed so training and scoring matrices line up.
type Builder struct {
	minHistory int
}

func NewBuilder(minHistory int) *Builder {
	if minHistory <= 0 {
		minHistory = 30
	}
	return &Builder{minHistory: minHistory}
}

// MinHistory returns the minimum number of candles Build accepts.
func (b *Builder) MinHistory() int {
	return b.minHistory
}

// Build computes the feature vector as of the last candle in the slice.
// Candles must be in ascending date order. Returns ErrInsufficientHistory
// when fewer than MinHistory candles are supplied.
func (b *Builder) Build(instrument string, candles []models.Candle) (*models.FeatureVector, error) {
	if len(candles) < b.minHistory {
		return nil, models.ErrInsufficientHistory
	}

	series := toSeries(candles)
	last := series.LastIndex()
	closePrices := techan.NewClosePriceIndicator(series)

	fv := models.NewFeatureVector(instrument, candles[len(candles)-1].Date)

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	fv.Set("return_1d", pctReturn(closes, 1))
	fv.Set("return_5d", pctReturn(closes, 5))
	fv.Set("return_20d", pctReturn(closes, 20))

	rsi := techan.NewRelativeStrengthIndexIndicator(closePrices, rsiWindow).Calculate(last).Float()
	fv.Set("rsi_14", rsi)
	fv.Set("rsi_oversold", boolFeature(rsi < 30))
	fv.Set("rsi_overbought", boolFeature(rsi > 70))

	smaShort := techan.NewSimpleMovingAverage(closePrices, smaShortWindow).Calculate(last).Float()
	smaLong := techan.NewSimpleMovingAverage(closePrices, smaLongWindow).Calculate(last).Float()
	lastClose := closes[len(closes)-1]
	fv.Set("sma5_over_sma20", ratioMinusOne(smaShort, smaLong))
	fv.Set("price_over_sma20", ratioMinusOne(lastClose, smaLong))

	upper := techan.NewBollingerUpperBandIndicator(closePrices, bbWindow, bbSigma).Calculate(last).Float()
	lower := techan.NewBollingerLowerBandIndicator(closePrices, bbWindow, bbSigma).Calculate(last).Float()
	width := upper - lower
	if width > 0 {
		fv.Set("bb_percent", (lastClose-lower)/width)
	} else {
		fv.Set("bb_percent", 0.5)
	}
	fv.Set("bb_squeeze", boolFeature(smaLong > 0 && width/smaLong < 0.05))

	macd := techan.NewMACDIndicator(closePrices, macdShort, macdLong)
	macdHist := techan.NewMACDHistogramIndicator(macd, macdSignal).Calculate(last).Float()
	fv.Set("macd_hist", macdHist)

	volumes := techan.NewVolumeIndicator(series)
	volSMA := techan.NewSimpleMovingAverage(volumes, smaLongWindow).Calculate(last).Float()
	lastVolume := candles[len(candles)-1].Volume
	volRatio := 1.0
	if volSMA > 0 {
		volRatio = lastVolume / volSMA
	}
	fv.Set("volume_ratio", volRatio)
	fv.Set("volume_surge", boolFeature(volRatio > 2.0))

	vol := annualizedVolatility(closes, volWindow)
	fv.Set("volatility_20", vol)
	fv.Set("vol_zscore", volatilityZScore(closes, volWindow))

	return fv, nil
}

// RecentVolatility exposes the annualized volatility of the tail of a close
// series. The predictor uses it for confidence scaling.
func RecentVolatility(closes []float64, window int) float64 {
	return annualizedVolatility(closes, window)
}

func toSeries(candles []models.Candle) *techan.TimeSeries {
	series := techan.NewTimeSeries()
	for _, c := range candles {
		start := c.Time
		if start.IsZero() {
			start, _ = time.Parse("2006-01-02", c.Date)
		}
		candle := techan.NewCandle(techan.NewTimePeriod(start, 24*time.Hour))
		candle.OpenPrice = big.NewDecimal(c.Open)
		candle.MaxPrice = big.NewDecimal(c.High)
		candle.MinPrice = big.NewDecimal(c.Low)
		candle.ClosePrice = big.NewDecimal(c.Close)
		candle.Volume = big.NewDecimal(c.Volume)
		series.AddCandle(candle)
	}
	return series
}

func pctReturn(closes []float64, lag int) float64 {
	n := len(closes)
	if n <= lag || closes[n-1-lag] == 0 {
		return 0
	}
	return (closes[n-1]/closes[n-1-lag] - 1) * 100
}

func ratioMinusOne(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a/b - 1
}

func boolFeature(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

func dailyReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	rets := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		rets = append(rets, closes[i]/closes[i-1]-1)
	}
	return rets
}

func annualizedVolatility(closes []float64, window int) float64 {
	rets := dailyReturns(closes)
	if len(rets) == 0 {
		return 0
	}
	if len(rets) > window {
		rets = rets[len(rets)-window:]
	}
	return stddev(rets) * math.Sqrt(252)
}

// volatilityZScore compares the latest windowed volatility against the
// volatility distribution over the whole history.
func volatilityZScore(closes []float64, window int) float64 {
	rets := dailyReturns(closes)
	if len(rets) < window*2 {
		return 0
	}

	var vols []float64
	for i := window; i <= len(rets); i++ {
		vols = append(vols, stddev(rets[i-window:i]))
	}
	if len(vols) < 2 {
		return 0
	}

	current := vols[len(vols)-1]
	m := mean(vols)
	s := stddev(vols)
	if s == 0 {
		return 0
	}
	return (current - m) / s
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var sum float64
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}
