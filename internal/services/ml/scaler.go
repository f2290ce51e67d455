package ml

import "sort"

// RobustScaler centers by the median and scales by the interquartile range,
// which keeps earnings-day outliers from squashing everything else.
type RobustScaler struct {
	Medians []float64
	Scales  []float64
}

// FitScaler computes per-column medians and IQRs over the training matrix.
func FitScaler(X [][]float64) *RobustScaler {
	if len(X) == 0 {
		return &RobustScaler{}
	}

	cols := len(X[0])
	s := &RobustScaler{
		Medians: make([]float64, cols),
		Scales:  make([]float64, cols),
	}

	col := make([]float64, len(X))
	for j := 0; j < cols; j++ {
		for i := range X {
			col[i] = X[i][j]
		}
		sorted := append([]float64(nil), col...)
		sort.Float64s(sorted)

		s.Medians[j] = quantile(sorted, 0.5)
		iqr := quantile(sorted, 0.75) - quantile(sorted, 0.25)
		if iqr == 0 {
			iqr = 1
		}
		s.Scales[j] = iqr
	}
	return s
}

// Transform scales one row. Rows wider than the fitted matrix are truncated,
// narrower ones padded with zeros after scaling.
func (s *RobustScaler) Transform(x []float64) []float64 {
	out := make([]float64, len(s.Medians))
	for j := range out {
		if j < len(x) {
			out[j] = (x[j] - s.Medians[j]) / s.Scales[j]
		}
	}
	return out
}

// TransformAll scales a whole matrix.
func (s *RobustScaler) TransformAll(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = s.Transform(row)
	}
	return out
}

// quantile interpolates linearly on a sorted slice.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	pos := q * float64(n-1)
	lo := int(pos)
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[lo+1]*frac
}
