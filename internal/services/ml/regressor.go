// Package ml holds the regressors, the ensemble that combines them and the
// per-region predictor that serves them.
package ml

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
	"time"

	"StockPulse/internal/domain/models"
)

// Regressor is anything that can fit a numeric target and score a feature
// row. Implementations must be gob-encodable so trained models survive a
// process restart.
type Regressor interface {
	Fit(X [][]float64, y []float64) error
	Predict(x []float64) float64
	Name() string
}

func init() {
	gob.Register(&Forest{})
	gob.Register(&Ridge{})
	gob.Register(&Neural{})
}

// Ensemble blends several regressors with inverse-error weights computed on
// the training set. It is itself a Regressor.
type Ensemble struct {
	Members []Regressor
	Weights []float64
}

func NewEnsemble(members ...Regressor) *Ensemble {
	return &Ensemble{Members: members}
}

func (e *Ensemble) Name() string { return "ensemble" }

// Fit trains every member and weights them by inverse training MSE, so a
// member that cannot explain the data barely votes.
func (e *Ensemble) Fit(X [][]float64, y []float64) error {
	if len(e.Members) == 0 {
		return fmt.Errorf("ensemble has no members")
	}

	e.Weights = make([]float64, len(e.Members))
	var total float64
	for i, m := range e.Members {
		if err := m.Fit(X, y); err != nil {
			return fmt.Errorf("fit %s: %w", m.Name(), err)
		}
		mse := trainingMSE(m, X, y)
		w := 1.0 / (mse + 1e-6)
		e.Weights[i] = w
		total += w
	}
	for i := range e.Weights {
		e.Weights[i] /= total
	}
	return nil
}

func (e *Ensemble) Predict(x []float64) float64 {
	var out float64
	for i, m := range e.Members {
		out += e.Weights[i] * m.Predict(x)
	}
	return out
}

func trainingMSE(m Regressor, X [][]float64, y []float64) float64 {
	if len(X) == 0 {
		return math.MaxFloat64
	}
	var sum float64
	for i, row := range X {
		d := m.Predict(row) - y[i]
		sum += d * d
	}
	return sum / float64(len(X))
}

// Model is a trained, installable unit: the scaler fitted on the training
// matrix, the ensemble, and the column order both were fitted against.
type Model struct {
	Scaler       *RobustScaler
	Ensemble     *Ensemble
	FeatureNames []string
	Samples      int
}

// Predict scales one raw feature row and scores it.
func (m *Model) Predict(raw []float64) float64 {
	return m.Ensemble.Predict(m.Scaler.Transform(raw))
}

// Encode serializes the model into an artifact payload.
func (m *Model) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return nil, fmt.Errorf("encode model: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeModel restores a model from an artifact payload.
func DecodeModel(payload []byte) (*Model, error) {
	var m Model
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	return &m, nil
}

// Artifact wraps the model for the artifact store.
func (m *Model) Artifact(region models.MarketRegion, version string, trainedAt time.Time) (*models.ModelArtifact, error) {
	payload, err := m.Encode()
	if err != nil {
		return nil, err
	}
	return &models.ModelArtifact{
		Region:       region,
		Version:      version,
		Kind:         m.Ensemble.Name(),
		FeatureNames: m.FeatureNames,
		TrainedAt:    trainedAt,
		Samples:      m.Samples,
		Payload:      payload,
	}, nil
}
