package ml

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"StockPulse/internal/domain/models"
)

var testFeatures = []string{"f0", "f1", "f2", "f3", "f4"}

// trainingData builds a deterministic matrix whose target is a noisy linear
// blend of the first two features.
func trainingData(rows int) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(7))
	X := make([][]float64, rows)
	y := make([]float64, rows)
	for i := range X {
		row := make([]float64, len(testFeatures))
		for j := range row {
			row[j] = rng.Float64()*4 - 2
		}
		X[i] = row
		y[i] = 2*row[0] - row[1] + rng.Float64()*0.1
	}
	return X, y
}

func TestTrainInsufficientRows(t *testing.T) {
	X, y := trainingData(10)
	_, err := Train(context.Background(), TrainConfig{MinRows: 50}, X, y, testFeatures)
	if !errors.Is(err, models.ErrInsufficientTrainingData) {
		t.Fatalf("expected ErrInsufficientTrainingData, got %v", err)
	}
}

func TestTrainDeterministic(t *testing.T) {
	X, y := trainingData(80)
	probe := []float64{0.5, -0.5, 0.1, 0.2, -0.3}

	m1, err := Train(context.Background(), TrainConfig{MinRows: 50, Seed: DefaultSeed}, X, y, testFeatures)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	m2, err := Train(context.Background(), TrainConfig{MinRows: 50, Seed: DefaultSeed}, X, y, testFeatures)
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	if p1, p2 := m1.Predict(probe), m2.Predict(probe); p1 != p2 {
		t.Fatalf("same seed should reproduce predictions: %f vs %f", p1, p2)
	}
}

func TestTrainLearnsLinearSignal(t *testing.T) {
	X, y := trainingData(200)
	m, err := Train(context.Background(), TrainConfig{MinRows: 50}, X, y, testFeatures)
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	var sqErr float64
	for i, row := range X {
		d := m.Predict(row) - y[i]
		sqErr += d * d
	}
	rmse := math.Sqrt(sqErr / float64(len(X)))
	if rmse > 1.0 {
		t.Fatalf("training rmse too high for a linear signal: %f", rmse)
	}
}

func TestModelRoundTrip(t *testing.T) {
	X, y := trainingData(80)
	m, err := Train(context.Background(), TrainConfig{MinRows: 50}, X, y, testFeatures)
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	payload, err := m.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	restored, err := DecodeModel(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	probe := []float64{1, -1, 0.5, 0, 0.25}
	if a, b := m.Predict(probe), restored.Predict(probe); a != b {
		t.Fatalf("decoded model must predict identically: %f vs %f", a, b)
	}
	if len(restored.FeatureNames) != len(testFeatures) {
		t.Fatalf("feature names lost through round trip")
	}
}

func TestEnsembleWeightsNormalized(t *testing.T) {
	X, y := trainingData(80)
	m, err := Train(context.Background(), TrainConfig{MinRows: 50}, X, y, testFeatures)
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	var sum float64
	for _, w := range m.Ensemble.Weights {
		if w < 0 {
			t.Fatalf("negative ensemble weight %f", w)
		}
		sum += w
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("ensemble weights should sum to 1, got %f", sum)
	}
}

func TestPredictNoActiveModel(t *testing.T) {
	p := NewEnsemblePredictor()
	fv := models.NewFeatureVector("TEST", "2024-05-01")
	_, _, _, err := p.Predict(models.RegionDomestic, fv, 0.2)
	if !errors.Is(err, models.ErrNoActiveModel) {
		t.Fatalf("expected ErrNoActiveModel, got %v", err)
	}
}

func TestInstallSwapsServingModel(t *testing.T) {
	X, y := trainingData(80)
	m, err := Train(context.Background(), TrainConfig{MinRows: 50}, X, y, testFeatures)
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	p := NewEnsemblePredictor()
	p.Install(models.RegionForeign, m, "v1")
	if v, ok := p.ActiveVersion(models.RegionForeign); !ok || v != "v1" {
		t.Fatalf("expected v1 active, got %q (%t)", v, ok)
	}

	p.Install(models.RegionForeign, m, "v2")
	if v, _ := p.ActiveVersion(models.RegionForeign); v != "v2" {
		t.Fatalf("install should swap version, got %q", v)
	}

	// Other region stays empty.
	if _, ok := p.ActiveVersion(models.RegionDomestic); ok {
		t.Fatalf("domestic region should have no model")
	}
}

func TestConfidenceBoundsAndMonotonicity(t *testing.T) {
	// Extreme signal in dead-calm tape saturates at the 0.95 cap.
	if c := confidenceScore(50, 0); c != 0.95 {
		t.Fatalf("expected cap 0.95, got %f", c)
	}
	// No signal in violent tape floors at 0.1.
	if c := confidenceScore(0, 100); c != 0.1 {
		t.Fatalf("expected floor 0.1, got %f", c)
	}
	// More volatility never raises confidence.
	calm := confidenceScore(2, 0.1)
	rough := confidenceScore(2, 0.8)
	if rough > calm {
		t.Fatalf("volatility should not raise confidence: calm=%f rough=%f", calm, rough)
	}
}

func TestConfidenceIsAFraction(t *testing.T) {
	// 0.6*(1/(1+0.2*10)) + 0.4*(2/5) = 0.2 + 0.16.
	c := confidenceScore(2.0, 0.2)
	if math.Abs(c-0.36) > 1e-9 {
		t.Fatalf("confidenceScore(2.0, 0.2): got %f want 0.36", c)
	}
	if c < 0.1 || c > 0.95 {
		t.Fatalf("confidence %f outside [0.1, 0.95]", c)
	}
}
