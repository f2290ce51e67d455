package analytics

import (
	"math"
	"testing"
	"time"

	"StockPulse/internal/domain/models"
)

func series(n int, start float64, dailyRet float64) []float64 {
	out := make([]float64, n)
	p := start
	for i := 0; i < n; i++ {
		out[i] = p
		p *= 1 + dailyRet
	}
	return out
}

func noisySeries(n int, start float64, amplitude float64) []float64 {
	out := make([]float64, n)
	p := start
	for i := 0; i < n; i++ {
		out[i] = p
		if i%2 == 0 {
			p *= 1 + amplitude
		} else {
			p *= 1 - amplitude
		}
	}
	return out
}

func TestDetectNeutralOnShortHistory(t *testing.T) {
	d := NewRegimeDetector()
	now := time.Now()
	cond := d.Detect(series(5, 100, 0.001), series(60, 100, 0.001), now)
	if cond.Regime != models.RegimeSideways {
		t.Fatalf("expected sideways fallback, got %s", cond.Regime)
	}
	if cond.RiskLevel != models.RiskMedium {
		t.Fatalf("expected medium risk fallback, got %s", cond.RiskLevel)
	}
	if !cond.ObservedAt.Equal(now) {
		t.Fatalf("fallback should stamp observation time")
	}
}

func TestDetectBullMarket(t *testing.T) {
	d := NewRegimeDetector()
	// Steady 0.5% daily gains: calm, trending, positive sentiment.
	cond := d.Detect(series(40, 100, 0.005), series(40, 100, 0.005), time.Now())
	if cond.Regime != models.RegimeBull {
		t.Fatalf("expected bull, got %s (vol=%f trend=%f sent=%f)",
			cond.Regime, cond.Volatility, cond.TrendStrength, cond.SentimentScore)
	}
}

func TestDetectHighVolatility(t *testing.T) {
	d := NewRegimeDetector()
	// Alternating +-4% days annualize far above the 40% volatility gate.
	cond := d.Detect(noisySeries(40, 100, 0.04), noisySeries(40, 100, 0.04), time.Now())
	if cond.Regime != models.RegimeHighVolatility {
		t.Fatalf("expected high volatility, got %s (vol=%f)", cond.Regime, cond.Volatility)
	}
	if cond.RiskLevel != models.RiskCritical {
		t.Fatalf("expected critical risk, got %s", cond.RiskLevel)
	}
}

// decliningSeries alternates two negative daily returns around the given
// mean, producing a downtrend with realistic volatility.
func decliningSeries(n int, start, meanRet, spread float64) []float64 {
	out := make([]float64, n)
	p := start
	for i := 0; i < n; i++ {
		out[i] = p
		if i%2 == 0 {
			p *= 1 + meanRet - spread
		} else {
			p *= 1 + meanRet + spread
		}
	}
	return out
}

func TestDetectBearMarket(t *testing.T) {
	d := NewRegimeDetector()
	// Mean -2.5% daily with moderate volatility: trending down, weak but
	// not panicked sentiment.
	dom := decliningSeries(40, 100, -0.025, 0.022)
	cond := d.Detect(dom, decliningSeries(40, 200, -0.025, 0.022), time.Now())
	if cond.Regime != models.RegimeBear {
		t.Fatalf("expected bear, got %s (vol=%f trend=%f sent=%f)",
			cond.Regime, cond.Volatility, cond.TrendStrength, cond.SentimentScore)
	}
}

func TestDetectCrisis(t *testing.T) {
	d := NewRegimeDetector()
	// Mean -5% daily with elevated but sub-gate volatility: sentiment
	// collapses below 20 while volatility stays under the 0.40 gate.
	dom := decliningSeries(40, 100, -0.05, 0.022)
	cond := d.Detect(dom, decliningSeries(40, 200, -0.05, 0.022), time.Now())
	if cond.Regime != models.RegimeCrisis {
		t.Fatalf("expected crisis, got %s (vol=%f sent=%f)",
			cond.Regime, cond.Volatility, cond.SentimentScore)
	}
	if cond.RiskLevel != models.RiskCritical {
		t.Fatalf("expected critical risk, got %s", cond.RiskLevel)
	}
}

func TestDetectSidewaysLowRisk(t *testing.T) {
	d := NewRegimeDetector()
	cond := d.Detect(series(40, 100, 0.0002), series(40, 200, -0.0002), time.Now())
	if cond.Regime != models.RegimeSideways {
		t.Fatalf("expected sideways, got %s", cond.Regime)
	}
	if cond.RiskLevel != models.RiskLow {
		t.Fatalf("expected low risk, got %s (vol=%f corr=%f)", cond.RiskLevel, cond.Volatility, cond.CrossCorrelation)
	}
}

func TestCorrelationBounds(t *testing.T) {
	a := []float64{0.01, -0.02, 0.03, -0.01, 0.02}
	if c := correlation(a, a); math.Abs(c-1) > 1e-9 {
		t.Fatalf("self correlation should be 1, got %f", c)
	}
	b := []float64{-0.01, 0.02, -0.03, 0.01, -0.02}
	if c := correlation(a, b); math.Abs(c+1) > 1e-9 {
		t.Fatalf("inverse correlation should be -1, got %f", c)
	}
}
