package models

import (
	"fmt"
	"time"
)

// Recommendation is the discrete action derived from a prediction.
type Recommendation string

const (
	RecommendStrongBuy  Recommendation = "STRONG_BUY"
	RecommendBuy        Recommendation = "BUY"
	RecommendHold       Recommendation = "HOLD"
	RecommendSell       Recommendation = "SELL"
	RecommendStrongSell Recommendation = "STRONG_SELL"
)

// Prediction is one model output for one instrument on one trading date.
// PredictedReturn is a percentage over the outcome horizon, Confidence a
// fraction in [0.1, 0.95].
type Prediction struct {
	ID              string         `json:"id" badgerhold:"key"`
	Instrument      string         `json:"instrument"`
	Region          MarketRegion   `json:"region"`
	Date            string         `json:"date"`
	PredictedReturn float64        `json:"predicted_return"`
	Confidence      float64        `json:"confidence"`
	Recommendation  Recommendation `json:"recommendation"`
	Regime          MarketRegime   `json:"regime"`
	RiskLevel       RiskLevel      `json:"risk_level"`
	ModelVersion    string         `json:"model_version"`
	CreatedAt       time.Time      `json:"created_at"`
}

// PredictionID builds the natural key for a prediction. Re-running a cycle
// for the same date produces the same IDs, so writes stay idempotent.
func PredictionID(date string, region MarketRegion, instrument string) string {
	return fmt.Sprintf("%s|%s|%s", date, region, instrument)
}

// Recommend maps a predicted return and confidence to an action. High-risk
// snapshots cap the bullish side at HOLD and the bearish side at SELL.
func Recommend(predictedReturn, confidence float64, highRisk bool) Recommendation {
	var rec Recommendation
	switch {
	case predictedReturn > 5 && confidence > 0.70:
		rec = RecommendStrongBuy
	case predictedReturn > 2 && confidence > 0.60:
		rec = RecommendBuy
	case predictedReturn > -2:
		rec = RecommendHold
	case predictedReturn > -5:
		rec = RecommendSell
	default:
		rec = RecommendStrongSell
	}
	if highRisk {
		switch rec {
		case RecommendStrongBuy, RecommendBuy:
			// Only a strong, confident signal keeps a buy in risky tape.
			if predictedReturn > 3 && confidence > 0.70 {
				rec = RecommendBuy
			} else {
				rec = RecommendHold
			}
		case RecommendStrongSell:
			rec = RecommendSell
		}
	}
	return rec
}

// ActualOutcome is the realized return matched to a prediction after the
// outcome horizon has elapsed.
type ActualOutcome struct {
	PredictionID string    `json:"prediction_id"`
	Instrument   string    `json:"instrument"`
	BaseDate     string    `json:"base_date"`
	TargetDate   string    `json:"target_date"`
	BaseClose    float64   `json:"base_close"`
	TargetClose  float64   `json:"target_close"`
	ActualReturn float64   `json:"actual_return"`
	ResolvedAt   time.Time `json:"resolved_at"`
}
