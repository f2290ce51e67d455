// Package usecase wires the feature, analytics and ml services into the
// daily prediction, evaluation and retraining cycles.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"StockPulse/internal/domain/models"
	"StockPulse/internal/domain/repository"
	"StockPulse/pkg/util"
)

// outcomeSlackDays bounds how far the resolver searches around the base and
// target dates for a trading day. Covers weekends plus short holiday runs.
const outcomeSlackDays = 7

// OutcomeResolver pairs a stored prediction with the realized return over
// the horizon, tolerant of weekends and market holidays on either end.
type OutcomeResolver struct {
	prices  repository.PriceSource
	horizon int
}

func NewOutcomeResolver(prices repository.PriceSource, horizonDays int) *OutcomeResolver {
	if horizonDays < 1 {
		horizonDays = 1
	}
	return &OutcomeResolver{prices: prices, horizon: horizonDays}
}

// Resolve computes the actual outcome for one prediction. The base close is
// the last trading close at or before the prediction date; the target close
// is the first at or after date+horizon. Either side missing inside the
// slack window yields ErrOutcomeUnavailable.
func (r *OutcomeResolver) Resolve(ctx context.Context, pred *models.Prediction) (*models.ActualOutcome, error) {
	from := util.AddDays(pred.Date, -outcomeSlackDays)
	targetDate := util.AddDays(pred.Date, r.horizon)
	to := util.AddDays(targetDate, outcomeSlackDays)

	candles, err := r.prices.Candles(ctx, pred.Instrument, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDataSourceUnavailable, err)
	}

	baseDate, baseClose, ok := lastCloseAtOrBefore(candles, pred.Date)
	if !ok {
		return nil, models.ErrOutcomeUnavailable
	}
	resolvedTarget, targetClose, ok := firstCloseAtOrAfter(candles, targetDate)
	if !ok {
		return nil, models.ErrOutcomeUnavailable
	}
	if baseClose == 0 {
		return nil, models.ErrOutcomeUnavailable
	}

	return &models.ActualOutcome{
		PredictionID: pred.ID,
		Instrument:   pred.Instrument,
		BaseDate:     baseDate,
		TargetDate:   resolvedTarget,
		BaseClose:    baseClose,
		TargetClose:  targetClose,
		ActualReturn: (targetClose - baseClose) / baseClose * 100,
		ResolvedAt:   time.Now(),
	}, nil
}

// ResolveAll resolves a batch, skipping predictions whose outcome is not yet
// available. Transient source failures abort the whole batch so a flaky
// warehouse does not masquerade as a run of unavailable outcomes.
func (r *OutcomeResolver) ResolveAll(ctx context.Context, predictions []*models.Prediction) (map[string]*models.ActualOutcome, error) {
	out := make(map[string]*models.ActualOutcome, len(predictions))
	for _, p := range predictions {
		o, err := r.Resolve(ctx, p)
		if errors.Is(err, models.ErrOutcomeUnavailable) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[p.ID] = o
	}
	return out, nil
}

// Candles come back sorted ascending by date from the price source.
func lastCloseAtOrBefore(candles []models.Candle, date string) (string, float64, bool) {
	for i := len(candles) - 1; i >= 0; i-- {
		if candles[i].Date <= date {
			return candles[i].Date, candles[i].Close, true
		}
	}
	return "", 0, false
}

func firstCloseAtOrAfter(candles []models.Candle, date string) (string, float64, bool) {
	for _, c := range candles {
		if c.Date >= date {
			return c.Date, c.Close, true
		}
	}
	return "", 0, false
}
