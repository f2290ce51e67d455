// Package repository holds the concrete persistence implementations behind
// the ports in internal/domain/repository.
package repository

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"

	"StockPulse/internal/domain/models"
)

// BadgerStore owns the embedded badgerhold database shared by the
// prediction and performance stores.
type BadgerStore struct {
	store *badgerhold.Store
}

// NewBadgerStore opens (or creates) the store at dir.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	options := badgerhold.DefaultOptions
	options.Dir = dir
	options.ValueDir = dir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	return &BadgerStore{store: store}, nil
}

func (s *BadgerStore) Close() error {
	return s.store.Close()
}

// DB exposes the underlying badger database for maintenance jobs.
func (s *BadgerStore) DB() *badger.DB {
	return s.store.Badger()
}

// Predictions returns the prediction store view.
func (s *BadgerStore) Predictions() *BadgerPredictionStore {
	return &BadgerPredictionStore{store: s.store}
}

// Performance returns the performance store view.
func (s *BadgerStore) Performance() *BadgerPerformanceStore {
	return &BadgerPerformanceStore{store: s.store}
}

// BadgerPredictionStore persists predictions keyed by their natural ID, so
// re-running a cycle for the same date upserts instead of duplicating.
type BadgerPredictionStore struct {
	store *badgerhold.Store
}

func (s *BadgerPredictionStore) Save(_ context.Context, predictions []*models.Prediction) error {
	for _, p := range predictions {
		if p.ID == "" {
			p.ID = models.PredictionID(p.Date, p.Region, p.Instrument)
		}
		if err := s.store.Upsert(p.ID, p); err != nil {
			return fmt.Errorf("upsert prediction %s: %w", p.ID, err)
		}
	}
	return nil
}

func (s *BadgerPredictionStore) ByDate(_ context.Context, date string, region models.MarketRegion) ([]*models.Prediction, error) {
	var out []*models.Prediction
	query := badgerhold.Where("Date").Eq(date).And("Region").Eq(region)
	if err := s.store.Find(&out, query); err != nil {
		return nil, fmt.Errorf("find predictions: %w", err)
	}
	return out, nil
}

func (s *BadgerPredictionStore) Between(_ context.Context, from, to string, region models.MarketRegion) ([]*models.Prediction, error) {
	var out []*models.Prediction
	query := badgerhold.Where("Date").Ge(from).And("Date").Le(to).
		And("Region").Eq(region).SortBy("Date")
	if err := s.store.Find(&out, query); err != nil {
		return nil, fmt.Errorf("find predictions: %w", err)
	}
	return out, nil
}

// BadgerPerformanceStore persists one evaluation record per date and region.
type BadgerPerformanceStore struct {
	store *badgerhold.Store
}

func (s *BadgerPerformanceStore) Save(_ context.Context, record *models.PerformanceRecord) error {
	if record.ID == "" {
		record.ID = models.PerformanceID(record.Date, record.Region)
	}
	if err := s.store.Upsert(record.ID, record); err != nil {
		return fmt.Errorf("upsert performance %s: %w", record.ID, err)
	}
	return nil
}

// Recent returns up to limit records for a region, newest first.
func (s *BadgerPerformanceStore) Recent(_ context.Context, region models.MarketRegion, limit int) ([]*models.PerformanceRecord, error) {
	var out []*models.PerformanceRecord
	query := badgerhold.Where("Region").Eq(region).SortBy("Date").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := s.store.Find(&out, query); err != nil {
		return nil, fmt.Errorf("find performance: %w", err)
	}
	return out, nil
}

func (s *BadgerPerformanceStore) Between(_ context.Context, from, to string, region models.MarketRegion) ([]*models.PerformanceRecord, error) {
	var out []*models.PerformanceRecord
	query := badgerhold.Where("Date").Ge(from).And("Date").Le(to).
		And("Region").Eq(region).SortBy("Date")
	if err := s.store.Find(&out, query); err != nil {
		return nil, fmt.Errorf("find performance: %w", err)
	}
	return out, nil
}
