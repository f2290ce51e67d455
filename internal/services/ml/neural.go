package ml

import (
	"fmt"

	"github.com/goml/gobrain"
)

// Neural wraps a gobrain feed-forward network as a Regressor. Inputs are
// expected pre-scaled; targets are min-max squashed into the sigmoid's
// comfortable range and unsquashed on predict.
type Neural struct {
	Net        *gobrain.FeedForward
	Hidden     int
	Iterations int
	LearnRate  float64
	Momentum   float64
	YMin       float64
	YMax       float64
	Inputs     int
}

func NewNeural(hidden, iterations int) *Neural {
	if hidden <= 0 {
		hidden = 8
	}
	if iterations <= 0 {
		iterations = 500
	}
	return &Neural{
		Hidden:     hidden,
		Iterations: iterations,
		LearnRate:  0.4,
		Momentum:   0.1,
	}
}

func (n *Neural) Name() string { return "neural" }

func (n *Neural) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("neural: bad training shape %dx%d", len(X), len(y))
	}

	n.Inputs = len(X[0])
	n.YMin, n.YMax = minMax(y)
	if n.YMax == n.YMin {
		n.YMax = n.YMin + 1
	}

	patterns := make([][][]float64, len(X))
	for i, row := range X {
		target := 0.1 + 0.8*(y[i]-n.YMin)/(n.YMax-n.YMin)
		patterns[i] = [][]float64{append([]float64(nil), row...), {target}}
	}

	net := &gobrain.FeedForward{}
	net.Init(n.Inputs, n.Hidden, 1)
	net.Train(patterns, n.Iterations, n.LearnRate, n.Momentum, false)
	n.Net = net
	return nil
}

func (n *Neural) Predict(x []float64) float64 {
	if n.Net == nil {
		return 0
	}
	row := x
	if len(row) != n.Inputs {
		row = make([]float64, n.Inputs)
		copy(row, x)
	}
	out := n.Net.Update(row)
	if len(out) == 0 {
		return 0
	}
	squashed := out[0]
	return n.YMin + (squashed-0.1)/0.8*(n.YMax-n.YMin)
}

func minMax(xs []float64) (float64, float64) {
	lo, hi := xs[0], xs[0]
	for _, v := range xs[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
