package pafft

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// minCorrelation is the correlation peak below which two segments are
// considered unrelated and left unshifted.
const minCorrelation = 0.1

// Lag estimates the cyclic offset between a sample segment and its reference
// using FFT cross-correlation.
//
// Both sequences are zero padded to the smallest power of two strictly larger
// than len(target). The correlation peak is searched among the first shift
// samples (lags 0..shift-1) and the last shift samples (lags -1..-shift).
//
// Parameters:
//   - spectrum: the segment being aligned
//   - target: the reference segment
//   - shift: the largest lag considered in either direction
//
// Returns:
//   - The signed lag; 0 when the peak is below the correlation threshold.
//     A spectrum delayed by L samples relative to target yields -L.
func Lag(spectrum, target []float64, shift int) int {
	vals := crossCorrelate(spectrum, target)
	n := len(vals)

	if shift > n {
		shift = n
	}

	maxPosition := 0
	maxValue := -1.0
	for i := 0; i < shift; i++ {
		if vals[i] > maxValue {
			maxValue = vals[i]
			maxPosition = i
		}
		if j := n - 1 - i; vals[j] > maxValue {
			maxValue = vals[j]
			maxPosition = j
		}
	}

	if maxValue < minCorrelation {
		return 0
	}

	if float64(maxPosition) > float64(n)/2 {
		return maxPosition - n
	}
	return maxPosition
}

// paddedLength returns the smallest power of two strictly greater than m
func paddedLength(m int) int {
	n := 1
	for n <= m {
		n <<= 1
	}
	return n
}

// crossCorrelate computes real(ifft(fft(target) * conj(fft(spectrum)) / n))
// with the inverse transform normalised by 1/n, over zero padded inputs.
func crossCorrelate(spectrum, target []float64) []float64 {
	n := paddedLength(len(target))

	x := make([]complex128, n)
	for i, v := range target {
		x[i] = complex(v, 0)
	}
	y := make([]complex128, n)
	for i := 0; i < len(spectrum) && i < n; i++ {
		y[i] = complex(spectrum[i], 0)
	}

	fft := fourier.NewCmplxFFT(n)
	xc := fft.Coefficients(nil, x)
	yc := fft.Coefficients(nil, y)

	scale := complex(float64(n), 0)
	r := make([]complex128, n)
	for i := range r {
		r[i] = xc[i] * cmplx.Conj(yc[i]) / scale
	}

	// gonum's inverse transform is unnormalised
	rev := fft.Sequence(nil, r)
	vals := make([]float64, n)
	for i, c := range rev {
		vals[i] = real(c) / float64(n)
	}
	return vals
}
