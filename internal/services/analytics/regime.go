// Package analytics holds the regime detector, the performance evaluator
// and the training strategist.
package analytics

import (
	"math"
	"time"

	"StockPulse/internal/domain/models"
)

const (
	regimeWindow     = 20
	minRegimeReturns = 10
)

// RegimeDetector classifies overall market behavior from two index close
// series, one per region.
type RegimeDetector struct{}

func NewRegimeDetector() *RegimeDetector {
	return &RegimeDetector{}
}

// Detect computes the market condition from domestic and foreign index
// closes (ascending date order). Falls back to the neutral condition when
// either series is too short to say anything.
func (d *RegimeDetector) Detect(domestic, foreign []float64, now time.Time) models.MarketCondition {
	domRets := returns(domestic)
	forRets := returns(foreign)
	if len(domRets) < minRegimeReturns || len(forRets) < minRegimeReturns {
		return models.NeutralCondition(now)
	}

	pooled := append(tail(domRets, regimeWindow), tail(forRets, regimeWindow)...)

	vol := stddev(pooled) * math.Sqrt(252)
	trend := trendStrength(pooled)
	sentiment := sentimentScore(vol, mean(pooled))
	corr := correlation(tail(domRets, regimeWindow), tail(forRets, regimeWindow))

	return models.MarketCondition{
		Regime:           classifyRegime(vol, trend, sentiment),
		RiskLevel:        classifyRisk(vol, sentiment, corr),
		Volatility:       vol,
		TrendStrength:    trend,
		SentimentScore:   sentiment,
		CrossCorrelation: corr,
		ObservedAt:       now,
	}
}

func classifyRegime(vol, trend, sentiment float64) models.MarketRegime {
	switch {
	case vol > 0.40:
		return models.RegimeHighVolatility
	case sentiment < 20 && vol > 0.30:
		return models.RegimeCrisis
	case trend > 3.0 && sentiment > 60:
		return models.RegimeBull
	case trend > 3.0 && sentiment < 40:
		return models.RegimeBear
	default:
		return models.RegimeSideways
	}
}

func classifyRisk(vol, sentiment, corr float64) models.RiskLevel {
	switch {
	case vol > 0.40 || sentiment < 20:
		return models.RiskCritical
	case vol > 0.30 || sentiment < 30:
		return models.RiskHigh
	case vol > 0.20 || math.Abs(corr) > 0.80:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// sentimentScore blends a volatility component (calm is good) with a mean
// return component (rising is good) into a 0..100 score. The scaling is
// calibrated so every row of the regime table is reachable: annualized vol
// of 0.50 zeroes the volatility component, a mean daily move of 5% saturates
// the return component.
func sentimentScore(vol, meanRet float64) float64 {
	volScore := clamp(100-vol*200, 0, 100)
	retScore := clamp(50+meanRet*1000, 0, 100)
	return 0.6*volScore + 0.4*retScore
}

// trendStrength is the absolute least-squares slope of the cumulative
// return path, scaled to a 0..10 range. A sustained 0.3% daily drift maps
// to the 3.0 trend gate.
func trendStrength(rets []float64) float64 {
	if len(rets) < 2 {
		return 0
	}

	cum := make([]float64, len(rets))
	var acc float64
	for i, r := range rets {
		acc += r
		cum[i] = acc
	}

	n := float64(len(cum))
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range cum {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	slope := (n*sumXY - sumX*sumY) / denom
	return math.Min(math.Abs(slope)*1000, 10)
}

func correlation(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < 2 {
		return 0
	}
	a, b = a[len(a)-n:], b[len(b)-n:]

	ma, mb := mean(a), mean(b)
	var cov, va, vb float64
	for i := 0; i < n; i++ {
		da, db := a[i]-ma, b[i]-mb
		cov += da * db
		va += da * da
		vb += db * db
	}
	if va == 0 || vb == 0 {
		return 0
	}
	return cov / math.Sqrt(va*vb)
}

func returns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		out = append(out, closes[i]/closes[i-1]-1)
	}
	return out
}

func tail(xs []float64, n int) []float64 {
	if len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
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

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
