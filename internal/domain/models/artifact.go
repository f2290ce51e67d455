package models

import "time"

// ModelArtifact is a fully serialized, installable model for one region.
// Payload is an opaque encoding owned by the regressor that produced it;
// FeatureNames pins the column order the payload was trained against.
type ModelArtifact struct {
	Region       MarketRegion `json:"region"`
	Version      string       `json:"version"`
	Kind         string       `json:"kind"`
	FeatureNames []string     `json:"feature_names"`
	TrainedAt    time.Time    `json:"trained_at"`
	Samples      int          `json:"samples"`
	Payload      []byte       `json:"payload"`
}

// Candle is one daily OHLCV bar for an instrument.
type Candle struct {
	Instrument string    `json:"instrument"`
	Date       string    `json:"date"`
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	Volume     float64   `json:"volume"`
	Time       time.Time `json:"time"`
}

// Quote is the latest observed trade for an instrument, fed by the streaming
// client and folded into daily bars at collection time.
type Quote struct {
	Instrument string    `json:"instrument"`
	Price      float64   `json:"price"`
	Volume     float64   `json:"volume"`
	At         time.Time `json:"at"`
}
