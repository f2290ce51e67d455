package models

import "math"

// FeatureVector is an ordered set of named numeric features for one
// instrument on one date. Order is stable so that vectors produced for
// training and vectors produced at prediction time line up column by column.
type FeatureVector struct {
	Instrument string
	Date       string
	names      []string
	values     map[string]float64
}

func NewFeatureVector(instrument, date string) *FeatureVector {
	return &FeatureVector{
		Instrument: instrument,
		Date:       date,
		values:     make(map[string]float64),
	}
}

// Set records a feature value. Non-finite values are clamped to zero so a
// single bad division upstream cannot poison a whole training matrix.
// Setting an existing name overwrites in place and keeps the original order.
func (v *FeatureVector) Set(name string, value float64) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		value = 0
	}
	if _, ok := v.values[name]; !ok {
		v.names = append(v.names, name)
	}
	v.values[name] = value
}

func (v *FeatureVector) Get(name string) (float64, bool) {
	val, ok := v.values[name]
	return val, ok
}

// Names returns the feature names in insertion order.
func (v *FeatureVector) Names() []string {
	out := make([]string, len(v.names))
	copy(out, v.names)
	return out
}

// Values returns the feature values in insertion order.
func (v *FeatureVector) Values() []float64 {
	out := make([]float64, 0, len(v.names))
	for _, n := range v.names {
		out = append(out, v.values[n])
	}
	return out
}

// ValuesFor projects the vector onto an externally fixed column order,
// filling features this vector never saw with zero. Models trained on one
// column layout use this to score vectors built later.
func (v *FeatureVector) ValuesFor(names []string) []float64 {
	out := make([]float64, len(names))
	for i, n := range names {
		out[i] = v.values[n]
	}
	return out
}

func (v *FeatureVector) Len() int {
	return len(v.names)
}
