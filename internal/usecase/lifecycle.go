package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"StockPulse/internal/domain/models"
	"StockPulse/internal/domain/repository"
	"StockPulse/internal/services/features"
	"StockPulse/internal/services/ml"
	"StockPulse/pkg/cache"
	applogger "StockPulse/pkg/logger"
	"StockPulse/pkg/metrics"
	"StockPulse/pkg/util"
)

// ErrRetrainInProgress means another retrain already holds the region lock.
var ErrRetrainInProgress = errors.New("retrain already in progress")

const (
	retrainLockPrefix = "retrain:"
	trainLookbackDays = 400
	versionLayout     = "20060102T150405"
)

// LifecycleConfig tunes the model lifecycle manager.
type LifecycleConfig struct {
	HorizonDays     int
	MinTrainingRows int
	Timeout         time.Duration
	NeuralEnsemble  bool
	Seed            int64
}

// Lifecycle owns training, installing and rolling back the per-region
// models. Serving continues on the old model until the new artifact is
// safely persisted.
type Lifecycle struct {
	cfg       LifecycleConfig
	builder   *features.Builder
	prices    repository.PriceSource
	artifacts repository.ArtifactStore
	predictor *ml.EnsemblePredictor
	locks     cache.Service
	events    repository.EventPublisher
	rec       *metrics.Recorder
	l         *applogger.Logger
	now       func() time.Time
}

func NewLifecycle(
	cfg LifecycleConfig,
	builder *features.Builder,
	prices repository.PriceSource,
	artifacts repository.ArtifactStore,
	predictor *ml.EnsemblePredictor,
	locks cache.Service,
	events repository.EventPublisher,
	rec *metrics.Recorder,
	l *applogger.Logger,
) *Lifecycle {
	if cfg.HorizonDays < 1 {
		cfg.HorizonDays = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	if cfg.Seed == 0 {
		cfg.Seed = ml.DefaultSeed
	}
	return &Lifecycle{
		cfg:       cfg,
		builder:   builder,
		prices:    prices,
		artifacts: artifacts,
		predictor: predictor,
		locks:     locks,
		events:    events,
		rec:       rec,
		l:         l,
		now:       time.Now,
	}
}

// Restore loads the persisted active artifact for each region and installs
// it into the predictor. Regions without an artifact are skipped; they will
// get one on their first retrain.
func (m *Lifecycle) Restore(ctx context.Context) error {
	for _, region := range models.AllRegions() {
		artifact, err := m.artifacts.Active(ctx, region)
		if errors.Is(err, models.ErrNoActiveModel) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load artifact for %s: %w", region, err)
		}
		model, err := ml.DecodeModel(artifact.Payload)
		if err != nil {
			return fmt.Errorf("decode artifact for %s: %w", region, err)
		}
		m.predictor.Install(region, model, artifact.Version)
		m.l.Info("model restored",
			applogger.String("region", region.String()),
			applogger.String("version", artifact.Version),
			applogger.Int("samples", artifact.Samples),
		)
	}
	return nil
}

// Retrain trains, persists and installs a fresh model for one region under
// the strategist's effort budget. On any failure after the backup point the
// previous artifact is restored and reinstalled.
func (m *Lifecycle) Retrain(ctx context.Context, region models.MarketRegion, strategy models.TrainingStrategy) error {
	lockKey := retrainLockPrefix + region.String()
	ok, err := m.locks.TryLock(ctx, lockKey, m.cfg.Timeout+time.Minute)
	if err != nil {
		return fmt.Errorf("acquire retrain lock: %w", err)
	}
	if !ok {
		return ErrRetrainInProgress
	}
	defer func() { _ = m.locks.Unlock(context.WithoutCancel(ctx), lockKey) }()

	start := m.now()
	m.l.Info("retrain starting",
		applogger.String("region", region.String()),
		applogger.String("intensity", string(strategy.Intensity)),
		applogger.Float64("effort", strategy.EffortMultiplier),
	)

	// Snapshot the current artifact so a bad run can roll back. A region
	// that has never trained has nothing to back up and nothing to lose.
	hadActive := true
	if _, err := m.artifacts.Backup(ctx, region); err != nil {
		if !errors.Is(err, models.ErrNoActiveModel) {
			return m.fail(ctx, region, "backup", false, err)
		}
		hadActive = false
	}

	X, y, names, err := m.trainingSet(ctx, region)
	if err != nil {
		return m.fail(ctx, region, "assemble", false, err)
	}

	trainCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()
	model, err := ml.Train(trainCtx, ml.TrainConfig{
		MinRows:       m.cfg.MinTrainingRows,
		Seed:          m.cfg.Seed,
		NeuralEnabled: m.cfg.NeuralEnsemble,
		Effort:        strategy.EffortMultiplier,
	}, X, y, names)
	if err != nil {
		return m.fail(ctx, region, "train", false, err)
	}

	version := m.now().UTC().Format(versionLayout)
	artifact, err := model.Artifact(region, version, m.now())
	if err != nil {
		return m.fail(ctx, region, "encode", false, err)
	}
	if err := m.artifacts.SaveActive(ctx, artifact); err != nil {
		restored := hadActive && m.restore(ctx, region)
		return m.fail(ctx, region, "persist", restored, err)
	}
	m.predictor.Install(region, model, version)

	m.rec.RecordRetrain(region.String(), "ok")
	m.rec.RecordLatency("retrain", m.now().Sub(start).Seconds())
	m.l.Info("retrain complete",
		applogger.String("region", region.String()),
		applogger.String("version", version),
		applogger.Int("samples", len(X)),
		applogger.Duration("duration_ms", m.now().Sub(start)),
	)
	_ = m.events.Publish(ctx, region.String(), map[string]interface{}{
		"event":     "retrain_complete",
		"region":    region.String(),
		"version":   version,
		"samples":   len(X),
		"intensity": string(strategy.Intensity),
	})
	return nil
}

// trainingSet slides over each instrument's history, pairing a feature
// vector at day i with the realized return over the horizon. Instruments
// that are too short contribute nothing rather than failing the run.
func (m *Lifecycle) trainingSet(ctx context.Context, region models.MarketRegion) ([][]float64, []float64, []string, error) {
	instruments, err := m.prices.Instruments(ctx, region)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", models.ErrDataSourceUnavailable, err)
	}

	today := util.FormatDate(m.now())
	from := util.AddDays(today, -trainLookbackDays)

	var X [][]float64
	var y []float64
	var names []string
	minHist := m.builder.MinHistory()
	horizon := m.cfg.HorizonDays

	for _, instrument := range instruments {
		candles, err := m.prices.Candles(ctx, instrument, from, today)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%w: %v", models.ErrDataSourceUnavailable, err)
		}
		for i := minHist - 1; i+horizon < len(candles); i++ {
			fv, err := m.builder.Build(instrument, candles[:i+1])
			if err != nil {
				continue
			}
			base := candles[i].Close
			if base == 0 {
				continue
			}
			label := (candles[i+horizon].Close - base) / base * 100
			if names == nil {
				names = fv.Names()
			}
			X = append(X, fv.ValuesFor(names))
			y = append(y, label)
		}
		if err := ctx.Err(); err != nil {
			return nil, nil, nil, err
		}
	}
	return X, y, names, nil
}

func (m *Lifecycle) restore(ctx context.Context, region models.MarketRegion) bool {
	if err := m.artifacts.RestoreLatest(ctx, region); err != nil {
		m.l.Error("artifact restore failed",
			applogger.String("region", region.String()),
			applogger.Error(err),
		)
		return false
	}
	artifact, err := m.artifacts.Active(ctx, region)
	if err != nil {
		return false
	}
	model, err := ml.DecodeModel(artifact.Payload)
	if err != nil {
		return false
	}
	m.predictor.Install(region, model, artifact.Version)
	return true
}

func (m *Lifecycle) fail(ctx context.Context, region models.MarketRegion, stage string, restored bool, err error) error {
	outcome := "failed"
	if restored {
		outcome = "restored"
	}
	m.rec.RecordRetrain(region.String(), outcome)
	m.rec.RecordError("retrain")
	m.l.Error("retrain failed",
		applogger.String("region", region.String()),
		applogger.String("stage", stage),
		applogger.Bool("restored", restored),
		applogger.Error(err),
	)
	_ = m.events.Publish(ctx, region.String(), map[string]interface{}{
		"event":    "retrain_failed",
		"region":   region.String(),
		"stage":    stage,
		"restored": restored,
	})
	return &models.RetrainError{Region: region, Stage: stage, Restored: restored, Err: err}
}
