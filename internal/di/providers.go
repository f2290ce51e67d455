package di

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"StockPulse/internal/domain/models"
	domrepo "StockPulse/internal/domain/repository"
	"StockPulse/internal/handler/api"
	"StockPulse/internal/notify"
	internalrepo "StockPulse/internal/repository"
	"StockPulse/internal/scheduler"
	"StockPulse/internal/service/feed"
	"StockPulse/internal/services/analytics"
	"StockPulse/internal/services/features"
	"StockPulse/internal/services/ml"
	"StockPulse/internal/usecase"
	"StockPulse/pkg/cache"
	pkgch "StockPulse/pkg/clickhouse"
	"StockPulse/pkg/config"
	pkgkafka "StockPulse/pkg/kafka"
	applogger "StockPulse/pkg/logger"
	"StockPulse/pkg/metrics"
	"StockPulse/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideClickHouseClient creates a ClickHouse client and applies the candle
// schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.PriceSchema()); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEventLog creates the Kafka event log, or a no-op log when no
// brokers are configured.
func ProvideEventLog(cfg *config.Config, l *applogger.Logger) (domrepo.EventPublisher, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return internalrepo.NoopEventLog{}, nil
	}
	producer, err := ProvideKafkaProducer(cfg)
	if err != nil {
		return nil, err
	}
	log := internalrepo.NewKafkaEventLog(producer, cfg.Kafka.Topic)
	log.SetLogger(l)

	// Roll up repeated errors into the event log instead of flooding it.
	if cfg.Environment == "production" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   time.Minute,
			CountThreshold: 100,
			Key:            "error_rollup",
			Publisher:      log,
		})
	}
	return log, nil
}

// ProvideCache picks Redis when enabled, otherwise an in-memory cache.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if cfg.Redis.Enabled {
		return cache.NewRedisCache(
			cache.WithRedisAddr(cfg.Redis.Addr),
			cache.WithRedisPassword(cfg.Redis.Password),
			cache.WithRedisDB(cfg.Redis.DB),
		)
	}
	return cache.NewMemoryCache(), nil
}

// ProvideMetrics creates the Prometheus recorder.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

// ProvideBadgerStore opens the embedded prediction/performance store.
func ProvideBadgerStore(cfg *config.Config) (*internalrepo.BadgerStore, error) {
	return internalrepo.NewBadgerStore(cfg.Store.Dir)
}

// ProvidePredictionStore exposes the prediction bucket.
func ProvidePredictionStore(store *internalrepo.BadgerStore) domrepo.PredictionStore {
	return store.Predictions()
}

// ProvidePerformanceStore exposes the performance bucket.
func ProvidePerformanceStore(store *internalrepo.BadgerStore) domrepo.PerformanceStore {
	return store.Performance()
}

// ProvideArtifactStore creates the filesystem model artifact store.
func ProvideArtifactStore(cfg *config.Config) (domrepo.ArtifactStore, error) {
	return internalrepo.NewFSArtifactStore(cfg.Training.ArtifactDir, cfg.Training.BackupKeep)
}

// ProvidePriceSource creates the ClickHouse candle repository.
func ProvidePriceSource(ch *pkgch.Client, l *applogger.Logger) *internalrepo.CHPriceSource {
	src := internalrepo.NewCHPriceSource(ch)
	src.SetLogger(l)
	return src
}

// ProvideSnapshotStore creates the condition/quote snapshot store.
func ProvideSnapshotStore(c cache.Service) *internalrepo.SnapshotStore {
	return internalrepo.NewSnapshotStore(c)
}

// ProvideNotifier creates the Telegram sink, or a no-op sink when disabled.
func ProvideNotifier(cfg *config.Config, l *applogger.Logger) (notify.Sink, error) {
	if !cfg.Telegram.Enabled {
		return notify.Noop{}, nil
	}
	return notify.NewTelegram(cfg.Telegram.Token, strconv.FormatInt(cfg.Telegram.ChatID, 10), l)
}

// ProvidePredictor creates the per-region model registry.
func ProvidePredictor() *ml.EnsemblePredictor {
	return ml.NewEnsemblePredictor()
}

// ProvideBuilder creates the feature builder.
func ProvideBuilder(cfg *config.Config) *features.Builder {
	return features.NewBuilder(cfg.Prediction.MinHistory)
}

// ProvideLifecycle creates the model lifecycle manager.
func ProvideLifecycle(
	cfg *config.Config,
	builder *features.Builder,
	prices *internalrepo.CHPriceSource,
	artifacts domrepo.ArtifactStore,
	predictor *ml.EnsemblePredictor,
	locks cache.Service,
	events domrepo.EventPublisher,
	rec *metrics.Recorder,
	l *applogger.Logger,
) *usecase.Lifecycle {
	return usecase.NewLifecycle(
		usecase.LifecycleConfig{
			HorizonDays:     cfg.Prediction.HorizonDays,
			MinTrainingRows: cfg.Prediction.MinTrainingRows,
			Timeout:         cfg.Training.Timeout,
			NeuralEnsemble:  cfg.Training.NeuralEnsemble,
		},
		builder, prices, artifacts, predictor, locks, events, rec, l,
	)
}

// ProvidePipeline wires the daily prediction/evaluation/collection cycles.
func ProvidePipeline(
	cfg *config.Config,
	builder *features.Builder,
	predictor *ml.EnsemblePredictor,
	lifecycle *usecase.Lifecycle,
	prices *internalrepo.CHPriceSource,
	predictions domrepo.PredictionStore,
	performance domrepo.PerformanceStore,
	snapshots *internalrepo.SnapshotStore,
	events domrepo.EventPublisher,
	notifier notify.Sink,
	rec *metrics.Recorder,
	l *applogger.Logger,
) *usecase.Pipeline {
	return usecase.NewPipeline(
		usecase.PipelineConfig{
			Instruments: map[models.MarketRegion][]string{
				models.RegionDomestic: cfg.Markets.Domestic.Instruments,
				models.RegionForeign:  cfg.Markets.Foreign.Instruments,
			},
			IndexProxies: map[models.MarketRegion][]string{
				models.RegionDomestic: cfg.Markets.Domestic.IndexProxies,
				models.RegionForeign:  cfg.Markets.Foreign.IndexProxies,
			},
			HorizonDays: cfg.Prediction.HorizonDays,
		},
		builder,
		analytics.NewRegimeDetector(),
		analytics.NewEvaluator(cfg.Prediction.NeutralBandPct),
		analytics.NewStrategist(),
		predictor,
		lifecycle,
		usecase.NewOutcomeResolver(prices, cfg.Prediction.HorizonDays),
		predictions,
		performance,
		prices,
		prices,
		snapshots,
		events,
		notifier,
		rec,
		l,
	)
}

// ProvideScheduler creates the two-timezone trigger scheduler.
func ProvideScheduler(pipeline *usecase.Pipeline, l *applogger.Logger) *scheduler.Scheduler {
	return scheduler.New(pipeline, l)
}

// ProvideFeed creates the WebSocket quote stream, or nil when no API key is
// configured.
func ProvideFeed(cfg *config.Config, snapshots *internalrepo.SnapshotStore, l *applogger.Logger) *feed.Client {
	if cfg.Feed.APIKey == "" {
		return nil
	}
	return feed.New(
		cfg.Feed.APIKey,
		cfg.Feed.WebSocketURL,
		cfg.Feed.Symbols,
		cfg.Feed.ReconnectDelay,
		cfg.Feed.PingInterval,
		snapshots,
		l,
	)
}

// ProvideAPIHandler creates the Echo HTTP handler.
func ProvideAPIHandler(l *applogger.Logger, pipeline *usecase.Pipeline, lifecycle *usecase.Lifecycle) *api.PipelineEchoHandler {
	return api.NewPipelineEchoHandler(l, pipeline, lifecycle)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	lifecycle *usecase.Lifecycle,
	sched *scheduler.Scheduler,
	stream *feed.Client,
	handler *api.PipelineEchoHandler,
	store *internalrepo.BadgerStore,
	chClient *pkgch.Client,
	events domrepo.EventPublisher,
	locks cache.Service,
) *server.App {
	return server.New(cfg, l, lifecycle, sched, stream, handler, store, chClient, events, locks)
}
