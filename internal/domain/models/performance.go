package models

import (
	"fmt"
	"time"
)

// PerformanceRecord is one day's scorecard for one region's model.
// Accuracy is a fraction in [0, 1] over the matched prediction/outcome
// pairs; Matched is how many pairs contributed.
type PerformanceRecord struct {
	ID            string       `json:"id" badgerhold:"key"`
	Region        MarketRegion `json:"region"`
	Date          string       `json:"date"`
	Total         int          `json:"total"`
	Matched       int          `json:"matched"`
	Correct       int          `json:"correct"`
	Accuracy      float64      `json:"accuracy"`
	Top5Accuracy  float64      `json:"top5_accuracy"`
	RMSE          float64      `json:"rmse"`
	MAE           float64      `json:"mae"`
	MeanConfidence float64     `json:"mean_confidence"`
	Regime        MarketRegime `json:"regime"`
	TopPicks      []TopPick    `json:"top_picks,omitempty"`
	EvaluatedAt   time.Time    `json:"evaluated_at"`
}

// TopPick is one of the highest-confidence predictions of the day together
// with how it resolved.
type TopPick struct {
	Instrument      string  `json:"instrument"`
	PredictedReturn float64 `json:"predicted_return"`
	ActualReturn    float64 `json:"actual_return"`
	Confidence      float64 `json:"confidence"`
	Correct         bool    `json:"correct"`
}

// PerformanceID builds the natural key for a daily record.
func PerformanceID(date string, region MarketRegion) string {
	return fmt.Sprintf("%s|%s", date, region)
}

// TrainingIntensity names the retraining posture chosen by the strategist.
type TrainingIntensity string

const (
	TrainingIntensive TrainingIntensity = "INTENSIVE"
	TrainingFocused   TrainingIntensity = "FOCUSED"
	TrainingNormal    TrainingIntensity = "NORMAL"
	TrainingFineTune  TrainingIntensity = "FINE_TUNE"
)

// NormalStrategy is the baseline training posture, used for operator-forced
// retrains that bypass the strategist.
func NormalStrategy(region MarketRegion) TrainingStrategy {
	return TrainingStrategy{
		Region:           region,
		Intensity:        TrainingNormal,
		EffortMultiplier: 1.0,
		Reason:           "manual retrain",
		DecidedAt:        time.Now(),
	}
}

// TrainingStrategy is the strategist's decision for one region: how hard to
// retrain and with what relative budget.
type TrainingStrategy struct {
	Region           MarketRegion      `json:"region"`
	Intensity        TrainingIntensity `json:"intensity"`
	EffortMultiplier float64           `json:"effort_multiplier"`
	MeanAccuracy     float64           `json:"mean_accuracy"`
	RecentAccuracy   float64           `json:"recent_accuracy"`
	Reason           string            `json:"reason"`
	DecidedAt        time.Time         `json:"decided_at"`
}
