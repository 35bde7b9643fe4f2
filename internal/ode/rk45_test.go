package ode_test

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mwaldron/f16sim/internal/ode"
)

// dx/dt = -x, solution x(t) = x0 * exp(-t)
func decay(t float64, x []float64) ([]float64, error) {
	return []float64{-x[0]}, nil
}

// dx/dt = [v, -x], solution x(t) = cos(t)
func oscillator(t float64, x []float64) ([]float64, error) {
	return []float64{x[1], -x[0]}, nil
}

var errDomain = errors.New("left the domain")

var _ = Describe("AdaptiveRungeKutta", func() {
	It("integrates exponential decay to high accuracy", func() {
		r := ode.NewAdaptiveRungeKutta(decay, 0, []float64{1})
		for r.T() < 2 && r.Status() == ode.Running {
			r.Step()
		}
		Expect(r.Status()).To(Equal(ode.Running))
		Expect(r.X()[0]).To(BeNumerically("~", math.Exp(-r.T()), 1e-6))
	})

	It("tracks a harmonic oscillator over several periods", func() {
		r := ode.NewAdaptiveRungeKutta(oscillator, 0, []float64{1, 0})
		for r.T() < 4*math.Pi && r.Status() == ode.Running {
			r.Step()
		}
		Expect(r.X()[0]).To(BeNumerically("~", math.Cos(r.T()), 1e-5))
		Expect(r.X()[1]).To(BeNumerically("~", -math.Sin(r.T()), 1e-5))
	})

	It("grows the step size on smooth problems", func() {
		r := ode.NewAdaptiveRungeKutta(decay, 0, []float64{1})
		r.Step()
		first := r.T()
		for i := 0; i < 20; i++ {
			prev := r.T()
			r.Step()
			Expect(r.T()).To(BeNumerically(">", prev))
		}
		last := r.T() - r.TOld()
		Expect(last).To(BeNumerically(">", first))
	})

	Describe("dense output", func() {
		It("matches the step endpoints", func() {
			r := ode.NewAdaptiveRungeKutta(oscillator, 0, []float64{1, 0})
			r.Step()
			r.Step()

			atOld, err := r.DenseOutput(r.TOld())
			Expect(err).NotTo(HaveOccurred())
			atNew, err := r.DenseOutput(r.T())
			Expect(err).NotTo(HaveOccurred())

			Expect(atNew[0]).To(BeNumerically("~", r.X()[0], 1e-12))
			Expect(atNew[1]).To(BeNumerically("~", r.X()[1], 1e-12))
			// left endpoint is the previously accepted state
			Expect(atOld[0]).To(BeNumerically("~", math.Cos(r.TOld()), 1e-6))
		})

		It("interpolates interior points to the scheme's accuracy", func() {
			r := ode.NewAdaptiveRungeKutta(oscillator, 0, []float64{1, 0})
			r.Step()
			r.Step()

			span := r.T() - r.TOld()
			for frac := 0.1; frac < 1.0; frac += 0.2 {
				tm := r.TOld() + frac*span
				x, err := r.DenseOutput(tm)
				Expect(err).NotTo(HaveOccurred())
				Expect(x[0]).To(BeNumerically("~", math.Cos(tm), 1e-6))
			}
		})

		It("rejects times before any step", func() {
			r := ode.NewAdaptiveRungeKutta(decay, 0, []float64{1})
			_, err := r.DenseOutput(0)
			Expect(err).To(MatchError(ode.ErrNoStep))
		})

		It("rejects times outside the last step", func() {
			r := ode.NewAdaptiveRungeKutta(decay, 0, []float64{1})
			r.Step()
			_, err := r.DenseOutput(r.T() + 1)
			Expect(err).To(MatchError(ode.ErrOutsideStep))
		})
	})

	Describe("failure handling", func() {
		It("converts a derivative error during a step into Failed status", func() {
			f := func(t float64, x []float64) ([]float64, error) {
				if t > 0.5 {
					return nil, errDomain
				}
				return []float64{1}, nil
			}
			r := ode.NewAdaptiveRungeKutta(f, 0, []float64{0})
			for r.Status() == ode.Running && r.T() < 2 {
				r.Step()
			}
			Expect(r.Status()).To(Equal(ode.Failed))
			Expect(r.Err()).To(MatchError(errDomain))
		})

		It("fails at construction when the initial point is invalid", func() {
			f := func(t float64, x []float64) ([]float64, error) {
				return nil, errDomain
			}
			r := ode.NewAdaptiveRungeKutta(f, 0, []float64{0})
			Expect(r.Status()).To(Equal(ode.Failed))
			Expect(r.Err()).To(MatchError(errDomain))
		})

		It("keeps the last good point after a failure", func() {
			f := func(t float64, x []float64) ([]float64, error) {
				if x[0] > 0.9 {
					return nil, errDomain
				}
				return []float64{1}, nil
			}
			r := ode.NewAdaptiveRungeKutta(f, 0, []float64{0})
			for r.Status() == ode.Running && r.T() < 5 {
				r.Step()
			}
			Expect(r.Status()).To(Equal(ode.Failed))
			Expect(r.X()[0]).To(BeNumerically("<=", 1.0))
			r.Step() // no-op on a failed integrator
			Expect(r.Status()).To(Equal(ode.Failed))
		})
	})
})

var _ = Describe("FixedStepEuler", func() {
	It("advances by exactly the fixed step", func() {
		e := ode.NewFixedStepEuler(decay, 0, []float64{1}, 0.25)
		e.Step()
		Expect(e.T()).To(Equal(0.25))
		Expect(e.X()[0]).To(Equal(0.75)) // 1 + 0.25*(-1)
	})

	It("converges at first order", func() {
		final := func(h float64) float64 {
			e := ode.NewFixedStepEuler(decay, 0, []float64{1}, h)
			for e.T() < 1-h/2 {
				e.Step()
			}
			return math.Abs(e.X()[0] - math.Exp(-1))
		}
		coarse := final(0.1)
		fine := final(0.01)
		Expect(fine).To(BeNumerically("<", coarse))
		Expect(coarse / fine).To(BeNumerically("~", 10, 5))
	})

	It("interpolates linearly between steps", func() {
		e := ode.NewFixedStepEuler(decay, 0, []float64{1}, 0.5)
		e.Step()
		mid, err := e.DenseOutput(0.25)
		Expect(err).NotTo(HaveOccurred())
		Expect(mid[0]).To(BeNumerically("~", (1.0+0.75)/2, 1e-12))
	})

	It("fails on a non-positive step", func() {
		e := ode.NewFixedStepEuler(decay, 0, []float64{1}, 0)
		Expect(e.Status()).To(Equal(ode.Failed))
	})

	It("converts derivative errors into Failed status", func() {
		f := func(t float64, x []float64) ([]float64, error) {
			if t >= 0.5 {
				return nil, errDomain
			}
			return []float64{1}, nil
		}
		e := ode.NewFixedStepEuler(f, 0, []float64{0}, 0.25)
		for e.Status() == ode.Running && e.T() < 2 {
			e.Step()
		}
		Expect(e.Status()).To(Equal(ode.Failed))
		Expect(e.Err()).To(MatchError(errDomain))
	})
})
