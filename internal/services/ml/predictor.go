package ml

import (
	"context"
	"math"
	"sync"

	"StockPulse/internal/domain/models"
)

// DefaultSeed keeps training runs reproducible.
const DefaultSeed = 42

// TrainConfig tunes one training run. Effort scales tree count and neural
// iterations; the strategist sets it.
type TrainConfig struct {
	MinRows       int
	Seed          int64
	NeuralEnabled bool
	Effort        float64
}

// Train fits the scaler and the ensemble on a raw feature matrix. Returns
// ErrInsufficientTrainingData below MinRows. The context is consulted
// between members so a timed-out retrain stops early.
func Train(ctx context.Context, cfg TrainConfig, X [][]float64, y []float64, featureNames []string) (*Model, error) {
	if cfg.MinRows <= 0 {
		cfg.MinRows = 50
	}
	if cfg.Seed == 0 {
		cfg.Seed = DefaultSeed
	}
	if cfg.Effort <= 0 {
		cfg.Effort = 1.0
	}
	if len(X) < cfg.MinRows || len(X) != len(y) {
		return nil, models.ErrInsufficientTrainingData
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scaler := FitScaler(X)
	scaled := scaler.TransformAll(X)

	trees := int(40 * cfg.Effort)
	members := []Regressor{
		NewForest(trees, cfg.Seed),
		NewRidge(1.0),
	}
	if cfg.NeuralEnabled {
		members = append(members, NewNeural(8, int(500*cfg.Effort)))
	}

	ens := NewEnsemble(members...)
	if err := ens.Fit(scaled, y); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &Model{
		Scaler:       scaler,
		Ensemble:     ens,
		FeatureNames: append([]string(nil), featureNames...),
		Samples:      len(X),
	}, nil
}

type activeModel struct {
	model   *Model
	version string
}

// EnsemblePredictor serves one installed model per region. Install is the
// only mutation point; prediction takes the read lock so serving continues
// while a retrain prepares the next model off to the side.
type EnsemblePredictor struct {
	mu     sync.RWMutex
	active map[models.MarketRegion]*activeModel
}

func NewEnsemblePredictor() *EnsemblePredictor {
	return &EnsemblePredictor{
		active: make(map[models.MarketRegion]*activeModel),
	}
}

// Install atomically swaps the region's serving model.
func (p *EnsemblePredictor) Install(region models.MarketRegion, model *Model, version string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active[region] = &activeModel{model: model, version: version}
}

// ActiveVersion reports the serving model version for a region.
func (p *EnsemblePredictor) ActiveVersion(region models.MarketRegion) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	a, ok := p.active[region]
	if !ok {
		return "", false
	}
	return a.version, true
}

// Predict scores one feature vector with the region's serving model.
// recentVol (annualized) shrinks confidence in rough tape. The returned
// confidence is a fraction in [0.1, 0.95].
func (p *EnsemblePredictor) Predict(region models.MarketRegion, fv *models.FeatureVector, recentVol float64) (predictedReturn, confidence float64, version string, err error) {
	p.mu.RLock()
	a, ok := p.active[region]
	p.mu.RUnlock()
	if !ok {
		return 0, 0, "", models.ErrNoActiveModel
	}

	raw := fv.ValuesFor(a.model.FeatureNames)
	predictedReturn = a.model.Predict(raw)
	confidence = confidenceScore(predictedReturn, recentVol)
	return predictedReturn, confidence, a.version, nil
}

// confidenceScore blends a volatility component with a signal-size
// component and clamps to [0.1, 0.95].
func confidenceScore(predictedReturn, recentVol float64) float64 {
	volComp := 1 / (1 + math.Max(recentVol, 0)*10)
	sigComp := math.Min(math.Abs(predictedReturn)/5, 1)
	conf := 0.6*volComp + 0.4*sigComp
	if conf < 0.1 {
		conf = 0.1
	}
	if conf > 0.95 {
		conf = 0.95
	}
	return conf
}
