package analytics

import (
	"time"

	"StockPulse/internal/domain/models"
)

const (
	strategistWindow = 7
	recentWindow     = 3

	weakAccuracy   = 0.55
	strongAccuracy = 0.70
	slipMargin     = 0.05
)

// Strategist decides how aggressively each region's model should retrain
// based on its recent scorecard.
type Strategist struct{}

func NewStrategist() *Strategist {
	return &Strategist{}
}

// Decide picks the training posture from up to seven recent performance
// records, newest first. With no history it stays at NORMAL.
func (s *Strategist) Decide(region models.MarketRegion, records []*models.PerformanceRecord, now time.Time) models.TrainingStrategy {
	if len(records) > strategistWindow {
		records = records[:strategistWindow]
	}

	strategy := models.TrainingStrategy{
		Region:    region,
		Intensity: models.TrainingNormal,
		EffortMultiplier: 1.0,
		DecidedAt: now,
	}

	if len(records) == 0 {
		strategy.Reason = "no performance history"
		return strategy
	}

	var sum float64
	for _, r := range records {
		sum += r.Accuracy
	}
	meanAcc := sum / float64(len(records))

	recent := records
	if len(recent) > recentWindow {
		recent = recent[:recentWindow]
	}
	var recentSum float64
	for _, r := range recent {
		recentSum += r.Accuracy
	}
	recentAcc := recentSum / float64(len(recent))

	strategy.MeanAccuracy = meanAcc
	strategy.RecentAccuracy = recentAcc

	switch {
	case meanAcc < weakAccuracy:
		strategy.Intensity = models.TrainingIntensive
		strategy.EffortMultiplier = 2.0
		strategy.Reason = "accuracy below minimum target"
	case meanAcc > strongAccuracy && recentAcc >= meanAcc:
		strategy.Intensity = models.TrainingFineTune
		strategy.EffortMultiplier = 0.7
		strategy.Reason = "accuracy strong and holding"
	case recentAcc < meanAcc-slipMargin:
		strategy.Intensity = models.TrainingFocused
		strategy.EffortMultiplier = 1.5
		strategy.Reason = "recent accuracy slipping"
	default:
		strategy.Reason = "accuracy within normal range"
	}

	return strategy
}
