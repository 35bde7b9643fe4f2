package ode

import "testing"

func benchDeriv(t float64, x []float64) ([]float64, error) {
	xd := make([]float64, len(x))
	for i := range x {
		xd[i] = -x[i]
	}
	return xd, nil
}

func benchState(n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = 1.0
	}
	return x
}

func BenchmarkRK45Step(b *testing.B) {
	r := NewAdaptiveRungeKutta(benchDeriv, 0, benchState(16))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Step()
	}
}

func BenchmarkEulerStep(b *testing.B) {
	e := NewFixedStepEuler(benchDeriv, 0, benchState(16), 1.0/30.0)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Step()
	}
}

func BenchmarkDenseOutput(b *testing.B) {
	r := NewAdaptiveRungeKutta(benchDeriv, 0, benchState(16))
	r.Step()
	mid := (r.tOld + r.t) / 2
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.DenseOutput(mid); err != nil {
			b.Fatal(err)
		}
	}
}
