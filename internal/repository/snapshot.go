package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"StockPulse/internal/domain/models"
	"StockPulse/pkg/cache"
)

const (
	conditionKeyPrefix = "condition:"
	quoteKeyPrefix     = "quote:"

	conditionTTL = 24 * time.Hour
	quoteTTL     = 15 * time.Minute
)

// SnapshotStore keeps the most recent market condition per region and the
// latest quotes in the cache so the API and notifier can read them without
// recomputing.
type SnapshotStore struct {
	cache cache.Service
}

func NewSnapshotStore(c cache.Service) *SnapshotStore {
	return &SnapshotStore{cache: c}
}

func (s *SnapshotStore) SaveCondition(ctx context.Context, region models.MarketRegion, cond *models.MarketCondition) error {
	return s.cache.Set(ctx, conditionKeyPrefix+region.String(), cond, conditionTTL)
}

// Condition returns the cached market condition for a region, or a neutral
// condition when no snapshot has been taken yet.
func (s *SnapshotStore) Condition(ctx context.Context, region models.MarketRegion) (*models.MarketCondition, error) {
	var cond models.MarketCondition
	err := s.cache.Get(ctx, conditionKeyPrefix+region.String(), &cond)
	if errors.Is(err, cache.ErrCacheMiss) {
		neutral := models.NeutralCondition(time.Now())
		return &neutral, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get condition snapshot: %w", err)
	}
	return &cond, nil
}

func (s *SnapshotStore) SaveQuote(ctx context.Context, q *models.Quote) error {
	return s.cache.Set(ctx, quoteKeyPrefix+q.Instrument, q, quoteTTL)
}

func (s *SnapshotStore) LatestQuote(ctx context.Context, instrument string) (*models.Quote, error) {
	var q models.Quote
	err := s.cache.Get(ctx, quoteKeyPrefix+instrument, &q)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get quote: %w", err)
	}
	return &q, nil
}
