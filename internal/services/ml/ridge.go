package ml

import "fmt"

// Ridge is L2-regularized linear regression solved in closed form. It gives
// the ensemble a stable linear baseline next to the forest's step functions.
type Ridge struct {
	Alpha     float64
	Weights   []float64
	Intercept float64
}

func NewRidge(alpha float64) *Ridge {
	if alpha <= 0 {
		alpha = 1.0
	}
	return &Ridge{Alpha: alpha}
}

func (r *Ridge) Name() string { return "ridge" }

// Fit solves (X'X + alpha*I) w = X'y by Gaussian elimination. Columns are
// assumed already scaled, so a plain unregularized bias column suffices.
func (r *Ridge) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("ridge: bad training shape %dx%d", len(X), len(y))
	}

	cols := len(X[0]) + 1 // bias term in column 0
	a := make([][]float64, cols)
	b := make([]float64, cols)
	for i := range a {
		a[i] = make([]float64, cols)
	}

	for rowIdx, row := range X {
		xr := make([]float64, cols)
		xr[0] = 1
		copy(xr[1:], row)
		for i := 0; i < cols; i++ {
			b[i] += xr[i] * y[rowIdx]
			for j := 0; j < cols; j++ {
				a[i][j] += xr[i] * xr[j]
			}
		}
	}
	// Regularize everything but the bias.
	for i := 1; i < cols; i++ {
		a[i][i] += r.Alpha
	}

	w, err := solveLinear(a, b)
	if err != nil {
		return fmt.Errorf("ridge: %w", err)
	}

	r.Intercept = w[0]
	r.Weights = w[1:]
	return nil
}

func (r *Ridge) Predict(x []float64) float64 {
	out := r.Intercept
	for i, w := range r.Weights {
		if i < len(x) {
			out += w * x[i]
		}
	}
	return out
}

// solveLinear solves a dense symmetric system with partial pivoting.
func solveLinear(a [][]float64, b []float64) ([]float64, error) {
	n := len(a)
	// Work on copies; the caller may reuse its matrices.
	m := make([][]float64, n)
	for i := range m {
		m[i] = append([]float64(nil), a[i]...)
	}
	v := append([]float64(nil), b...)

	for col := 0; col < n; col++ {
		pivot := col
		for row := col + 1; row < n; row++ {
			if abs(m[row][col]) > abs(m[pivot][col]) {
				pivot = row
			}
		}
		if abs(m[pivot][col]) < 1e-12 {
			return nil, fmt.Errorf("singular system at column %d", col)
		}
		m[col], m[pivot] = m[pivot], m[col]
		v[col], v[pivot] = v[pivot], v[col]

		for row := col + 1; row < n; row++ {
			factor := m[row][col] / m[col][col]
			for k := col; k < n; k++ {
				m[row][k] -= factor * m[col][k]
			}
			v[row] -= factor * v[col]
		}
	}

	out := make([]float64, n)
	for row := n - 1; row >= 0; row-- {
		sum := v[row]
		for k := row + 1; k < n; k++ {
			sum -= m[row][k] * out[k]
		}
		out[row] = sum / m[row][row]
	}
	return out, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
