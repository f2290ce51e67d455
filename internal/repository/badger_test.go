package repository

import (
	"context"
	"testing"
	"time"

	"StockPulse/internal/domain/models"
)

func openTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := NewBadgerStore(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func samplePrediction(date, instrument string, region models.MarketRegion) *models.Prediction {
	return &models.Prediction{
		Instrument:      instrument,
		Region:          region,
		Date:            date,
		PredictedReturn: 1.5,
		Confidence:      0.62,
		Recommendation:  models.RecommendHold,
		Regime:          models.RegimeSideways,
		RiskLevel:       models.RiskMedium,
		ModelVersion:    "20240301T120000",
		CreatedAt:       time.Now(),
	}
}

func TestPredictionSaveIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	preds := store.Predictions()
	ctx := context.Background()

	first := samplePrediction("2024-03-01", "AAPL", models.RegionForeign)
	if err := preds.Save(ctx, []*models.Prediction{first}); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Same natural key, updated values. Must replace, not duplicate.
	second := samplePrediction("2024-03-01", "AAPL", models.RegionForeign)
	second.PredictedReturn = 3.1
	if err := preds.Save(ctx, []*models.Prediction{second}); err != nil {
		t.Fatalf("save again: %v", err)
	}

	got, err := preds.ByDate(ctx, "2024-03-01", models.RegionForeign)
	if err != nil {
		t.Fatalf("by date: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 prediction after upsert, got %d", len(got))
	}
	if got[0].PredictedReturn != 3.1 {
		t.Fatalf("expected updated return 3.1, got %f", got[0].PredictedReturn)
	}
}

func TestPredictionByDateFiltersRegion(t *testing.T) {
	store := openTestStore(t)
	preds := store.Predictions()
	ctx := context.Background()

	batch := []*models.Prediction{
		samplePrediction("2024-03-01", "AAPL", models.RegionForeign),
		samplePrediction("2024-03-01", "005930", models.RegionDomestic),
		samplePrediction("2024-03-02", "AAPL", models.RegionForeign),
	}
	if err := preds.Save(ctx, batch); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := preds.ByDate(ctx, "2024-03-01", models.RegionForeign)
	if err != nil {
		t.Fatalf("by date: %v", err)
	}
	if len(got) != 1 || got[0].Instrument != "AAPL" {
		t.Fatalf("expected the single foreign AAPL row, got %+v", got)
	}
}

func TestPredictionBetweenSortsByDate(t *testing.T) {
	store := openTestStore(t)
	preds := store.Predictions()
	ctx := context.Background()

	dates := []string{"2024-03-05", "2024-03-01", "2024-03-03"}
	for _, d := range dates {
		if err := preds.Save(ctx, []*models.Prediction{samplePrediction(d, "MSFT", models.RegionForeign)}); err != nil {
			t.Fatalf("save %s: %v", d, err)
		}
	}

	got, err := preds.Between(ctx, "2024-03-01", "2024-03-04", models.RegionForeign)
	if err != nil {
		t.Fatalf("between: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows in range, got %d", len(got))
	}
	if got[0].Date != "2024-03-01" || got[1].Date != "2024-03-03" {
		t.Fatalf("expected ascending dates, got %s then %s", got[0].Date, got[1].Date)
	}
}

func TestPerformanceRecentNewestFirst(t *testing.T) {
	store := openTestStore(t)
	perf := store.Performance()
	ctx := context.Background()

	for _, d := range []string{"2024-03-01", "2024-03-02", "2024-03-03", "2024-03-04"} {
		rec := &models.PerformanceRecord{
			Region:      models.RegionDomestic,
			Date:        d,
			Matched:     10,
			Correct:     6,
			Accuracy:    0.6,
			Regime:      models.RegimeSideways,
			EvaluatedAt: time.Now(),
		}
		if err := perf.Save(ctx, rec); err != nil {
			t.Fatalf("save %s: %v", d, err)
		}
	}

	got, err := perf.Recent(ctx, models.RegionDomestic, 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	if got[0].Date != "2024-03-04" || got[2].Date != "2024-03-02" {
		t.Fatalf("expected newest first, got %s .. %s", got[0].Date, got[2].Date)
	}
}

func TestPerformanceSaveUpsertsByDate(t *testing.T) {
	store := openTestStore(t)
	perf := store.Performance()
	ctx := context.Background()

	rec := &models.PerformanceRecord{
		Region:   models.RegionForeign,
		Date:     "2024-03-01",
		Accuracy: 0.5,
	}
	if err := perf.Save(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	rec2 := &models.PerformanceRecord{
		Region:   models.RegionForeign,
		Date:     "2024-03-01",
		Accuracy: 0.7,
	}
	if err := perf.Save(ctx, rec2); err != nil {
		t.Fatalf("save again: %v", err)
	}

	got, err := perf.Between(ctx, "2024-03-01", "2024-03-01", models.RegionForeign)
	if err != nil {
		t.Fatalf("between: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record after upsert, got %d", len(got))
	}
	if got[0].Accuracy != 0.7 {
		t.Fatalf("expected updated accuracy 0.7, got %f", got[0].Accuracy)
	}
}
