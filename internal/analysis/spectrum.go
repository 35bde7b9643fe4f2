// Package analysis extracts oscillation content from recorded flight
// trajectories, for identifying the short-period and phugoid modes in
// a response.
package analysis

import (
	"math"
	"math/bits"
	"math/cmplx"
)

// FFT computes the discrete Fourier transform of a real signal with an
// in-place iterative radix-2 decimation in time. The input length must
// be a power of two; use PowerSpectrum for arbitrary-length trajectory
// data.
func FFT(data []float64) []complex128 {
	n := len(data)
	if n&(n-1) != 0 {
		panic("fft requires power of 2 length")
	}

	// load in bit-reversed order so the butterflies run in place
	shift := bits.UintSize - bits.TrailingZeros(uint(n))
	out := make([]complex128, n)
	for i, v := range data {
		out[bits.Reverse(uint(i))>>shift] = complex(v, 0)
	}

	for size := 2; size <= n; size *= 2 {
		half := size / 2
		step := cmplx.Exp(complex(0, -2*math.Pi/float64(size)))
		for start := 0; start < n; start += size {
			w := complex(1, 0)
			for k := start; k < start+half; k++ {
				a, b := out[k], w*out[k+half]
				out[k] = a + b
				out[k+half] = a - b
				w *= step
			}
		}
	}
	return out
}

// PowerSpectrum returns the one-sided magnitude spectrum of a signal.
// The mean is removed first so a trim offset does not bury the
// oscillatory content, and the signal is zero-padded to a power of two.
func PowerSpectrum(data []float64) []float64 {
	if len(data) == 0 {
		return nil
	}

	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))

	n := 1
	for n < len(data) {
		n *= 2
	}
	padded := make([]float64, n)
	for i, v := range data {
		padded[i] = v - mean
	}

	fft := FFT(padded)
	ps := make([]float64, len(fft)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(fft[i])
	}
	return ps
}

// DominantFrequency locates the strongest non-DC spectral peak of a
// signal sampled at interval dt and returns its frequency in Hz. A
// signal with no oscillatory content returns 0.
func DominantFrequency(data []float64, dt float64) float64 {
	ps := PowerSpectrum(data)
	if len(ps) < 2 || dt <= 0 {
		return 0
	}

	maxIdx, maxPower := 0, 0.0
	for i := 1; i < len(ps); i++ {
		if ps[i] > maxPower {
			maxPower = ps[i]
			maxIdx = i
		}
	}
	if maxIdx == 0 {
		return 0
	}

	// bin width is fs/n where n is the padded length
	n := len(ps) * 2
	return float64(maxIdx) / (float64(n) * dt)
}
