package analytics

import (
	"math"
	"sort"
	"time"

	"StockPulse/internal/domain/models"
)

const topPickCount = 5

// Evaluator scores a day's predictions against their resolved outcomes.
type Evaluator struct {
	neutralBandPct float64
}

// NewEvaluator creates an evaluator. neutralBandPct is the band (in return
// percent) inside which a prediction and its outcome both count as flat, so
// a small-move prediction is not punished for a tiny sign flip.
func NewEvaluator(neutralBandPct float64) *Evaluator {
	if neutralBandPct <= 0 {
		neutralBandPct = 0.5
	}
	return &Evaluator{neutralBandPct: neutralBandPct}
}

// Correct applies the accuracy rule to one prediction/outcome pair.
func (e *Evaluator) Correct(predicted, actual float64) bool {
	if math.Abs(predicted) < e.neutralBandPct && math.Abs(actual) < e.neutralBandPct {
		return true
	}
	return (predicted >= 0) == (actual >= 0)
}

// Evaluate builds the daily performance record for one region. Predictions
// lacking an outcome are excluded from every statistic. Returns
// ErrNoMatchedOutcomes when nothing could be paired.
func (e *Evaluator) Evaluate(
	date string,
	region models.MarketRegion,
	predictions []*models.Prediction,
	outcomes map[string]*models.ActualOutcome,
	regime models.MarketRegime,
	now time.Time,
) (*models.PerformanceRecord, error) {
	type pair struct {
		pred    *models.Prediction
		outcome *models.ActualOutcome
	}

	var pairs []pair
	for _, p := range predictions {
		o, ok := outcomes[p.ID]
		if !ok || o == nil {
			continue
		}
		pairs = append(pairs, pair{pred: p, outcome: o})
	}
	if len(pairs) == 0 {
		return nil, models.ErrNoMatchedOutcomes
	}

	var correct int
	var sqErr, absErr, confSum float64
	for _, pr := range pairs {
		diff := pr.pred.PredictedReturn - pr.outcome.ActualReturn
		sqErr += diff * diff
		absErr += math.Abs(diff)
		confSum += pr.pred.Confidence
		if e.Correct(pr.pred.PredictedReturn, pr.outcome.ActualReturn) {
			correct++
		}
	}

	matched := len(pairs)
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pred.Confidence > pairs[j].pred.Confidence
	})
	topN := topPickCount
	if matched < topN {
		topN = matched
	}
	picks := make([]models.TopPick, 0, topN)
	var topCorrect int
	for _, pr := range pairs[:topN] {
		ok := e.Correct(pr.pred.PredictedReturn, pr.outcome.ActualReturn)
		if ok {
			topCorrect++
		}
		picks = append(picks, models.TopPick{
			Instrument:      pr.pred.Instrument,
			PredictedReturn: pr.pred.PredictedReturn,
			ActualReturn:    pr.outcome.ActualReturn,
			Confidence:      pr.pred.Confidence,
			Correct:         ok,
		})
	}

	return &models.PerformanceRecord{
		ID:             models.PerformanceID(date, region),
		Region:         region,
		Date:           date,
		Total:          len(predictions),
		Matched:        matched,
		Correct:        correct,
		Accuracy:       float64(correct) / float64(matched),
		Top5Accuracy:   float64(topCorrect) / float64(topN),
		RMSE:           math.Sqrt(sqErr / float64(matched)),
		MAE:            absErr / float64(matched),
		MeanConfidence: confSum / float64(matched),
		Regime:         regime,
		TopPicks:       picks,
		EvaluatedAt:    now,
	}, nil
}
