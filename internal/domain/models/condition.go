package models

import "time"

// MarketRegime is a coarse label for the market's current behavior.
type MarketRegime string

const (
	RegimeBull           MarketRegime = "BULL_MARKET"
	RegimeBear           MarketRegime = "BEAR_MARKET"
	RegimeSideways       MarketRegime = "SIDEWAYS"
	RegimeHighVolatility MarketRegime = "HIGH_VOLATILITY"
	RegimeCrisis         MarketRegime = "CRISIS"
)

// RiskLevel grades how aggressively downstream consumers should act on
// predictions. It is derived alongside the regime but deliberately kept as
// an independent axis: a sideways market can still be high risk.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// MarketCondition is one snapshot of the regime detector's view of the world.
type MarketCondition struct {
	Regime          MarketRegime `json:"regime"`
	RiskLevel       RiskLevel    `json:"risk_level"`
	Volatility      float64      `json:"volatility"`
	TrendStrength   float64      `json:"trend_strength"`
	SentimentScore  float64      `json:"sentiment_score"`
	CrossCorrelation float64     `json:"cross_correlation"`
	ObservedAt      time.Time    `json:"observed_at"`
}

// NeutralCondition is the fallback snapshot used when market data is
// unavailable: sideways regime, medium risk, mid-scale sentiment.
func NeutralCondition(now time.Time) MarketCondition {
	return MarketCondition{
		Regime:         RegimeSideways,
		RiskLevel:      RiskMedium,
		Volatility:     0.20,
		TrendStrength:  0,
		SentimentScore: 50,
		ObservedAt:     now,
	}
}

// HighRisk reports whether the snapshot should cap directional conviction.
func (c MarketCondition) HighRisk() bool {
	return c.RiskLevel == RiskHigh || c.RiskLevel == RiskCritical
}
