package analytics

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"StockPulse/internal/domain/models"
)

func pred(inst string, ret, conf float64) *models.Prediction {
	return &models.Prediction{
		ID:              models.PredictionID("2024-05-01", models.RegionDomestic, inst),
		Instrument:      inst,
		Region:          models.RegionDomestic,
		Date:            "2024-05-01",
		PredictedReturn: ret,
		Confidence:      conf,
	}
}

func outcome(p *models.Prediction, actual float64) *models.ActualOutcome {
	return &models.ActualOutcome{
		PredictionID: p.ID,
		Instrument:   p.Instrument,
		ActualReturn: actual,
	}
}

func TestCorrectRule(t *testing.T) {
	e := NewEvaluator(0.5)

	cases := []struct {
		predicted, actual float64
		want              bool
	}{
		{2.0, 1.0, true},    // sign match
		{-2.0, -0.1, true},  // sign match (band covers actual only, pred carries)
		{2.0, -1.0, false},  // sign flip
		{0.2, -0.3, true},   // both inside neutral band
		{0.2, -0.8, false},  // actual outside band, signs differ
		{-1.0, -3.0, true},  // sign match
	}
	for i, c := range cases {
		if got := e.Correct(c.predicted, c.actual); got != c.want {
			t.Fatalf("case %d: Correct(%f, %f) = %t, want %t", i, c.predicted, c.actual, got, c.want)
		}
	}
}

func TestEvaluateNoMatches(t *testing.T) {
	e := NewEvaluator(0.5)
	preds := []*models.Prediction{pred("A", 1, 0.60)}
	rec, err := e.Evaluate("2024-05-01", models.RegionDomestic, preds, nil, models.RegimeSideways, time.Now())
	if rec != nil {
		t.Fatalf("expected nil record")
	}
	if !errors.Is(err, models.ErrNoMatchedOutcomes) {
		t.Fatalf("expected ErrNoMatchedOutcomes, got %v", err)
	}
}

func TestEvaluateExcludesUnmatched(t *testing.T) {
	e := NewEvaluator(0.5)
	a, b, c := pred("A", 2, 0.80), pred("B", -1, 0.70), pred("C", 5, 0.90)
	outcomes := map[string]*models.ActualOutcome{
		a.ID: outcome(a, 1.5),
		b.ID: outcome(b, 2.0),
		// C never resolves.
	}

	rec, err := e.Evaluate("2024-05-01", models.RegionDomestic,
		[]*models.Prediction{a, b, c}, outcomes, models.RegimeBull, time.Now())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if rec.Matched != 2 {
		t.Fatalf("expected 2 matched, got %d", rec.Matched)
	}
	if rec.Correct != 1 {
		t.Fatalf("expected 1 correct, got %d", rec.Correct)
	}
	if math.Abs(rec.Accuracy-0.5) > 1e-9 {
		t.Fatalf("expected accuracy 0.5, got %f", rec.Accuracy)
	}
	if rec.Regime != models.RegimeBull {
		t.Fatalf("record should carry regime")
	}
}

func TestEvaluateErrorStats(t *testing.T) {
	e := NewEvaluator(0.5)
	a, b := pred("A", 2, 0.80), pred("B", -2, 0.60)
	outcomes := map[string]*models.ActualOutcome{
		a.ID: outcome(a, 1), // error 1
		b.ID: outcome(b, 1), // error -3
	}

	rec, err := e.Evaluate("2024-05-01", models.RegionDomestic,
		[]*models.Prediction{a, b}, outcomes, models.RegimeSideways, time.Now())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	wantRMSE := math.Sqrt((1.0 + 9.0) / 2)
	if math.Abs(rec.RMSE-wantRMSE) > 1e-9 {
		t.Fatalf("rmse: got %f want %f", rec.RMSE, wantRMSE)
	}
	if math.Abs(rec.MAE-2) > 1e-9 {
		t.Fatalf("mae: got %f want 2", rec.MAE)
	}
	if math.Abs(rec.MeanConfidence-0.70) > 1e-9 {
		t.Fatalf("mean confidence: got %f want 0.70", rec.MeanConfidence)
	}
}

func TestEvaluateTopPicksByConfidence(t *testing.T) {
	e := NewEvaluator(0.5)
	var preds []*models.Prediction
	outcomes := make(map[string]*models.ActualOutcome)
	for i := 0; i < 8; i++ {
		p := pred(fmt.Sprintf("S%d", i), 1, 0.50+float64(i)*0.05)
		preds = append(preds, p)
		outcomes[p.ID] = outcome(p, 1)
	}

	rec, err := e.Evaluate("2024-05-01", models.RegionDomestic, preds, outcomes, models.RegimeSideways, time.Now())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(rec.TopPicks) != 5 {
		t.Fatalf("expected 5 top picks, got %d", len(rec.TopPicks))
	}
	for i := 1; i < len(rec.TopPicks); i++ {
		if rec.TopPicks[i].Confidence > rec.TopPicks[i-1].Confidence {
			t.Fatalf("top picks not sorted by confidence")
		}
	}
	if rec.TopPicks[0].Instrument != "S7" {
		t.Fatalf("highest confidence pick should lead, got %s", rec.TopPicks[0].Instrument)
	}
}
