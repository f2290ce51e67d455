// Package repository declares the persistence ports the pipeline depends on.
// Implementations live in internal/repository.
package repository

import (
	"context"

	"StockPulse/internal/domain/models"
)

// PredictionStore persists daily predictions keyed by date, region and
// instrument. Saving the same key twice replaces the earlier row.
type PredictionStore interface {
	Save(ctx context.Context, predictions []*models.Prediction) error
	ByDate(ctx context.Context, date string, region models.MarketRegion) ([]*models.Prediction, error)
	Between(ctx context.Context, from, to string, region models.MarketRegion) ([]*models.Prediction, error)
}

// PerformanceStore persists daily evaluation records, one per date and region.
type PerformanceStore interface {
	Save(ctx context.Context, record *models.PerformanceRecord) error
	Recent(ctx context.Context, region models.MarketRegion, limit int) ([]*models.PerformanceRecord, error)
	Between(ctx context.Context, from, to string, region models.MarketRegion) ([]*models.PerformanceRecord, error)
}

// PriceSource serves daily candles. From and to are inclusive YYYY-MM-DD
// bounds.
type PriceSource interface {
	Candles(ctx context.Context, instrument string, from, to string) ([]models.Candle, error)
	Instruments(ctx context.Context, region models.MarketRegion) ([]string, error)
}

// ArtifactStore owns serialized model artifacts and their backups.
// Backup snapshots the active artifact, RestoreLatest reinstates the newest
// snapshot after a failed retrain.
type ArtifactStore interface {
	SaveActive(ctx context.Context, artifact *models.ModelArtifact) error
	Active(ctx context.Context, region models.MarketRegion) (*models.ModelArtifact, error)
	Backup(ctx context.Context, region models.MarketRegion) (string, error)
	RestoreLatest(ctx context.Context, region models.MarketRegion) error
	Backups(ctx context.Context, region models.MarketRegion) ([]string, error)
}

// EventPublisher appends pipeline events (predictions made, evaluations
// completed, retrains finished) to the event log.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
	Close() error
}
