// Package pafft aligns per-frame intensity histograms of a timelapse against
// frame 0 using peak alignment by FFT: each histogram is cut into adaptive
// segments and every segment is shifted by its FFT cross-correlation lag.
package pafft

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"astrowaves/internal/models"
)

// Options controls histogram alignment
type Options struct {
	// ShiftPerc is the largest allowed drift as a percentage of the value range
	ShiftPerc float64

	// SegSize is the base segment size; segments span between SegSize and 2*SegSize-1 entries
	SegSize int

	// Workers bounds the number of frames aligned concurrently
	Workers int
}

// DefaultOptions returns a 0.1% shift limit and 200-entry segments
func DefaultOptions() Options {
	return Options{
		ShiftPerc: 0.1,
		SegSize:   200,
		Workers:   runtime.NumCPU(),
	}
}

// Result holds the aligned histogram table and per-segment diagnostics
type Result struct {
	// Values holds the intensity value of each column
	Values []float64

	// Aligned has the shape of the input table; row 0 is the reference
	Aligned *mat.Dense

	// Lags holds the lag of the last segment of each frame
	Lags []int

	// SegmentLags holds every segment lag of each frame, in segment order
	SegmentLags [][]int
}

// AlignVolume builds the histogram table of vol and aligns it
func AlignVolume(ctx context.Context, vol *models.Volume, opts Options) (*Result, error) {
	spectra, err := BuildSpectra(vol)
	if err != nil {
		return nil, fmt.Errorf("failed to build spectra: %w", err)
	}
	return Align(ctx, spectra, opts)
}

// Align shifts every segment of every row of the table towards row 0
func Align(ctx context.Context, s *Spectra, opts Options) (*Result, error) {
	if opts.SegSize <= 0 {
		return nil, fmt.Errorf("segment size must be positive, got %d", opts.SegSize)
	}

	frames, columns := s.Counts.Dims()
	scale := shiftScale(s.Values, opts.ShiftPerc)
	reference := s.Counts.RawRowView(0)

	aligned := mat.NewDense(frames, columns, nil)
	aligned.SetRow(0, reference)
	lags := make([]int, frames)
	segmentLags := make([][]int, frames)

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for f := 1; f < frames; f++ {
		f := f
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			segLags := alignRow(aligned.RawRowView(f), s.Counts.RawRowView(f), reference, s.Values, scale, opts.SegSize)
			segmentLags[f] = segLags
			if len(segLags) > 0 {
				lags[f] = segLags[len(segLags)-1]
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Result{
		Values:      s.Values,
		Aligned:     aligned,
		Lags:        lags,
		SegmentLags: segmentLags,
	}, nil
}

// shiftScale converts the shift percentage into lag samples per intensity unit.
// The bound is measured in histogram columns, so the scale multiplies by the
// number of columns rather than the number of frames.
func shiftScale(values []float64, shiftPerc float64) float64 {
	if len(values) == 0 {
		return 0
	}
	span := floats.Max(values) - floats.Min(values)
	if span <= 0 {
		return 0
	}
	return shiftPerc * 0.01 * float64(len(values)) / span
}

// alignRow writes the aligned version of current into dst segment by segment
// and returns the lag of each segment.
func alignRow(dst, current, reference, values []float64, scale float64, segSize int) []int {
	var segLags []int

	for start := 0; start < len(current); {
		end := SegmentEnd(current, reference, start, segSize)
		samseg := current[start:end]
		refseg := reference[start:end]

		shift := int(scale * values[start+len(samseg)/2])
		lag := Lag(samseg, refseg, shift)
		copy(dst[start:end], Move(samseg, lag))

		segLags = append(segLags, lag)
		start = end
	}

	return segLags
}
