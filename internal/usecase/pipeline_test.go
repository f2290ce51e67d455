package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"StockPulse/internal/domain/models"
	"StockPulse/internal/services/analytics"
	"StockPulse/internal/services/features"
	"StockPulse/internal/services/ml"
	"StockPulse/pkg/cache"
	"StockPulse/pkg/metrics"
	"StockPulse/pkg/util"
)

type pipelineEnv struct {
	pipeline    *Pipeline
	lc          *Lifecycle
	prices      *memPrices
	predictions *memPredictions
	performance *memPerformance
	snapshots   *memSnapshots
	events      *memEvents
	notifier    *memNotifier
	predictor   *ml.EnsemblePredictor
	clock       time.Time
}

func newPipelineEnv(t *testing.T, historyDays int) *pipelineEnv {
	t.Helper()
	env := &pipelineEnv{
		prices:      newMemPrices(),
		predictions: newMemPredictions(),
		performance: newMemPerformance(),
		snapshots:   newMemSnapshots(),
		events:      &memEvents{},
		notifier:    &memNotifier{},
		predictor:   ml.NewEnsemblePredictor(),
		clock:       time.Date(2024, 3, 31, 8, 30, 0, 0, time.UTC),
	}
	seedHistory(env.prices, models.RegionForeign, testInstruments(), historyDays)

	locks := cache.NewMemoryCache()
	t.Cleanup(func() { _ = locks.Close() })
	rec := metrics.NewWithRegistry(prometheus.NewRegistry())
	builder := features.NewBuilder(30)

	env.lc = NewLifecycle(
		LifecycleConfig{HorizonDays: 1, MinTrainingRows: 50, Timeout: time.Minute, Seed: 42},
		builder,
		env.prices,
		newMemArtifacts(),
		env.predictor,
		locks,
		env.events,
		rec,
		quietLogger(),
	)
	env.lc.now = func() time.Time { return env.clock }

	env.pipeline = NewPipeline(
		PipelineConfig{
			Instruments: map[models.MarketRegion][]string{
				models.RegionForeign: testInstruments(),
			},
			HorizonDays: 1,
		},
		builder,
		analytics.NewRegimeDetector(),
		analytics.NewEvaluator(0.5),
		analytics.NewStrategist(),
		env.predictor,
		env.lc,
		NewOutcomeResolver(env.prices, 1),
		env.predictions,
		env.performance,
		env.prices,
		env.prices,
		env.snapshots,
		env.events,
		env.notifier,
		rec,
		quietLogger(),
	)
	env.pipeline.SetClock(func() time.Time { return env.clock })
	return env
}

func TestFullCycleTenInstruments(t *testing.T) {
	env := newPipelineEnv(t, 90)
	ctx := context.Background()

	if err := env.lc.Retrain(ctx, models.RegionForeign, normalStrategy()); err != nil {
		t.Fatalf("initial train: %v", err)
	}
	version, _ := env.predictor.ActiveVersion(models.RegionForeign)

	preds, err := env.pipeline.RunPredictionCycle(ctx, models.RegionForeign)
	if err != nil {
		t.Fatalf("prediction cycle: %v", err)
	}
	if len(preds) != 10 {
		t.Fatalf("expected 10 predictions, got %d", len(preds))
	}
	for _, p := range preds {
		if p.Confidence < 0.1 || p.Confidence > 0.95 {
			t.Fatalf("%s confidence %f outside [0.1, 0.95]", p.Instrument, p.Confidence)
		}
		if p.Date != testToday {
			t.Fatalf("%s dated %s, want %s", p.Instrument, p.Date, testToday)
		}
		if p.ModelVersion != version {
			t.Fatalf("%s model version %s, want %s", p.Instrument, p.ModelVersion, version)
		}
		if p.Recommendation == "" {
			t.Fatalf("%s missing recommendation", p.Instrument)
		}
	}

	// Next-day closes arrive; the horizon for testToday has elapsed.
	nextDay := util.AddDays(testToday, 1)
	for j, instrument := range testInstruments() {
		close := 50.0 + 10.0*float64(j)
		env.prices.add(models.RegionForeign, instrument, candle(instrument, nextDay, close*1.05))
	}
	env.clock = env.clock.Add(32 * time.Hour)

	record, err := env.pipeline.RunEvaluationCycle(ctx, models.RegionForeign, testToday)
	if err != nil {
		t.Fatalf("evaluation cycle: %v", err)
	}
	if record.Matched != 10 {
		t.Fatalf("matched = %d, want 10", record.Matched)
	}
	if record.Accuracy < 0 || record.Accuracy > 1 {
		t.Fatalf("accuracy %f outside [0, 1]", record.Accuracy)
	}
	if len(record.TopPicks) != 5 {
		t.Fatalf("expected 5 top picks, got %d", len(record.TopPicks))
	}

	names := env.events.names()
	if !containsString(names, "predictions_made") || !containsString(names, "evaluation_complete") {
		t.Fatalf("missing pipeline events, got %v", names)
	}
	// Evaluation ends with a strategist-driven retrain.
	if !containsString(names, "retrain_complete") {
		t.Fatalf("expected retrain after evaluation, got %v", names)
	}
}

func containsString(xs []string, want string) bool {
	for _, x := range xs {
		if x == want {
			return true
		}
	}
	return false
}

func TestPredictionCycleIsIdempotentPerDate(t *testing.T) {
	env := newPipelineEnv(t, 90)
	ctx := context.Background()

	if err := env.lc.Retrain(ctx, models.RegionForeign, normalStrategy()); err != nil {
		t.Fatalf("train: %v", err)
	}
	if _, err := env.pipeline.RunPredictionCycle(ctx, models.RegionForeign); err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	if _, err := env.pipeline.RunPredictionCycle(ctx, models.RegionForeign); err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	rows, err := env.predictions.ByDate(ctx, testToday, models.RegionForeign)
	if err != nil {
		t.Fatalf("by date: %v", err)
	}
	if len(rows) != 10 {
		t.Fatalf("expected 10 rows after re-run, got %d", len(rows))
	}
}

func TestPredictionCycleWithoutModelFails(t *testing.T) {
	env := newPipelineEnv(t, 90)
	if _, err := env.pipeline.RunPredictionCycle(context.Background(), models.RegionForeign); err != models.ErrNoActiveModel {
		t.Fatalf("expected ErrNoActiveModel, got %v", err)
	}
}

func TestEvaluationWithoutOutcomesIsNotAnError(t *testing.T) {
	env := newPipelineEnv(t, 90)
	ctx := context.Background()

	if err := env.lc.Retrain(ctx, models.RegionForeign, normalStrategy()); err != nil {
		t.Fatalf("train: %v", err)
	}
	if _, err := env.pipeline.RunPredictionCycle(ctx, models.RegionForeign); err != nil {
		t.Fatalf("prediction cycle: %v", err)
	}

	// No next-day closes yet: every outcome is still unresolved. The
	// cycle should report nothing rather than fail.
	record, err := env.pipeline.RunEvaluationCycle(ctx, models.RegionForeign, testToday)
	if err != nil {
		t.Fatalf("evaluation without outcomes: %v", err)
	}
	if record != nil {
		t.Fatalf("expected no record, got %+v", record)
	}
	rows, err := env.performance.Recent(ctx, models.RegionForeign, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("no performance record should be saved, got %d", len(rows))
	}
}

func TestDataCollectionFoldsQuotesIntoBars(t *testing.T) {
	env := newPipelineEnv(t, 90)
	ctx := context.Background()

	env.snapshots.quotes["S0"] = &models.Quote{Instrument: "S0", Price: 51.2, Volume: 900, At: env.clock}
	env.snapshots.quotes["S1"] = &models.Quote{Instrument: "S1", Price: 60.8, Volume: 700, At: env.clock}

	n, err := env.pipeline.RunDataCollection(ctx, models.RegionForeign)
	if err != nil {
		t.Fatalf("data collection: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 bars, got %d", n)
	}
	got, err := env.prices.Candles(ctx, "S0", testToday, testToday)
	if err != nil {
		t.Fatalf("candles: %v", err)
	}
	if len(got) == 0 || got[len(got)-1].Close != 51.2 {
		t.Fatalf("collected bar missing or wrong close: %+v", got)
	}
}

func TestCompositeUsesConfiguredIndexProxies(t *testing.T) {
	env := newPipelineEnv(t, 90)
	ctx := context.Background()

	env.pipeline.cfg.IndexProxies = map[models.MarketRegion][]string{
		models.RegionForeign: {"S0"},
	}

	series := env.pipeline.compositeCloses(ctx, models.RegionForeign)
	if len(series) == 0 {
		t.Fatalf("expected a composite series from the proxy")
	}

	// A single proxy makes the composite that instrument's closes
	// normalized to the first one.
	from := util.AddDays(testToday, -regimeLookbackDays)
	candles, err := env.prices.Candles(ctx, "S0", from, testToday)
	if err != nil {
		t.Fatalf("candles: %v", err)
	}
	if len(series) != len(candles) {
		t.Fatalf("composite has %d points, proxy has %d candles", len(series), len(candles))
	}
	base := candles[0].Close
	for i, c := range candles {
		if diff := series[i] - c.Close/base; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("point %d: got %f want %f", i, series[i], c.Close/base)
		}
	}

	// Without proxies the composite falls back to the full universe.
	env.pipeline.cfg.IndexProxies = nil
	if len(env.pipeline.compositeCloses(ctx, models.RegionForeign)) == 0 {
		t.Fatalf("fallback composite should not be empty")
	}
}

func TestWeeklyReportAggregatesRegions(t *testing.T) {
	env := newPipelineEnv(t, 90)
	ctx := context.Background()

	for i, acc := range []float64{0.5, 0.6, 0.7} {
		date := util.AddDays(testToday, -i)
		_ = env.performance.Save(ctx, &models.PerformanceRecord{
			Region:   models.RegionForeign,
			Date:     date,
			Matched:  10,
			Correct:  int(acc * 10),
			Accuracy: acc,
		})
	}

	report, err := env.pipeline.WeeklyReport(ctx)
	if err != nil {
		t.Fatalf("weekly report: %v", err)
	}
	if len(report.Regions) != 2 {
		t.Fatalf("expected both regions in report, got %d", len(report.Regions))
	}
	var foreign *RegionReport
	for i := range report.Regions {
		if report.Regions[i].Region == models.RegionForeign {
			foreign = &report.Regions[i]
		}
	}
	if foreign == nil || foreign.Days != 3 {
		t.Fatalf("expected 3 foreign scorecards, got %+v", foreign)
	}
	if foreign.BestDate != util.AddDays(testToday, -2) {
		t.Fatalf("best date %s, want the 0.7 day", foreign.BestDate)
	}
	if len(env.notifier.subjects) == 0 {
		t.Fatal("expected a weekly report notification")
	}
}

func TestStatusReportsModelAndCondition(t *testing.T) {
	env := newPipelineEnv(t, 90)
	ctx := context.Background()

	if err := env.lc.Retrain(ctx, models.RegionForeign, normalStrategy()); err != nil {
		t.Fatalf("train: %v", err)
	}
	statuses, err := env.pipeline.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 region statuses, got %d", len(statuses))
	}
	for _, st := range statuses {
		if st.Condition == nil {
			t.Fatalf("%s missing condition", st.Region)
		}
		if st.Region == models.RegionForeign && !st.ModelInstalled {
			t.Fatal("foreign model should be installed")
		}
		if st.Region == models.RegionDomestic && st.ModelInstalled {
			t.Fatal("domestic model should not be installed")
		}
	}
}
