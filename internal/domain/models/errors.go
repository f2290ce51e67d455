package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientHistory means an instrument does not yet have enough
	// candles to build a feature vector.
	ErrInsufficientHistory = errors.New("insufficient price history")

	// ErrInsufficientTrainingData means too few feature/outcome pairs were
	// assembled to fit a model safely.
	ErrInsufficientTrainingData = errors.New("insufficient training data")

	// ErrOutcomeUnavailable means no price could be resolved inside the
	// allowed window around a prediction's base or target date.
	ErrOutcomeUnavailable = errors.New("outcome unavailable")

	// ErrNoActiveModel means predictions were requested for a region that
	// has never had a model installed.
	ErrNoActiveModel = errors.New("no active model for region")

	// ErrNoMatchedOutcomes means an evaluation window contained predictions
	// but none of them could be paired with an outcome.
	ErrNoMatchedOutcomes = errors.New("no predictions matched to outcomes")

	// ErrDataSourceUnavailable wraps transient upstream failures from the
	// price store or market feed.
	ErrDataSourceUnavailable = errors.New("data source unavailable")
)

// RetrainError reports a failed retraining attempt. Restored tells the
// caller whether the previous artifact was put back in service.
type RetrainError struct {
	Region   MarketRegion
	Stage    string
	Restored bool
	Err      error
}

func (e *RetrainError) Error() string {
	return fmt.Sprintf("retrain %s failed at %s (restored=%t): %v", e.Region, e.Stage, e.Restored, e.Err)
}

func (e *RetrainError) Unwrap() error {
	return e.Err
}
