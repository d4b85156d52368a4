package drift

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"astrowaves/internal/models"
	"astrowaves/pkg/metrics"
)

// Options controls the subregion drift correction
type Options struct {
	// WindowSize is the side length of the tracked reference window
	WindowSize int

	// Margin is the border excluded from reference window selection
	Margin int

	// Workers bounds the number of frames corrected concurrently
	Workers int

	// Logger receives per-frame debug lines; nil disables them
	Logger *slog.Logger
}

// DefaultOptions returns the standard window size and margin
func DefaultOptions() Options {
	return Options{
		WindowSize: 100,
		Margin:     50,
		Workers:    runtime.NumCPU(),
	}
}

func (o Options) validate() error {
	if o.WindowSize <= 0 {
		return fmt.Errorf("window size must be positive, got %d", o.WindowSize)
	}
	if o.Margin < 0 {
		return fmt.Errorf("margin must be non-negative, got %d", o.Margin)
	}
	return nil
}

// Result holds a corrected volume and the diagnostics of the correction
type Result struct {
	// Volume is the corrected timelapse, same shape as the input
	Volume *models.Volume

	// Reference is the window tracked across frames
	Reference models.Window

	// Shifts holds the roll applied to each frame, ordered by frame index
	Shifts []models.Shift

	// WindowStats holds the statistics of every candidate reference window
	WindowStats []models.WindowStat
}

// CorrectBySubregion removes spatial drift by tracking a stable reference
// window. For every frame the window is searched over all offsets in
// [-(WindowSize+Margin), WindowSize+Margin) on both axes, the offset with the
// lowest MSE against frame 0 wins (first found on ties), and the whole frame
// is rolled by the negated offset.
//
// The input volume is not modified.
func CorrectBySubregion(ctx context.Context, vol *models.Volume, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	ref, stats, err := FindReferenceWindow(vol, opts.WindowSize, opts.Margin)
	if err != nil {
		return nil, fmt.Errorf("failed to select reference window: %w", err)
	}

	searchRange := opts.WindowSize + opts.Margin
	reference := vol.FrameMatrix(0).Slice(ref.Row, ref.Row+ref.Size, ref.Col, ref.Col+ref.Size)

	out := models.NewVolume(vol.Frames, vol.Height, vol.Width)
	shifts := make([]models.Shift, vol.Frames)

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for k := 0; k < vol.Frames; k++ {
		k := k
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			dRow, dCol, score, err := SearchOffset(vol.FrameMatrix(k), reference, ref, searchRange)
			if err != nil {
				return fmt.Errorf("frame %d: %w", k, err)
			}

			shifts[k] = models.Shift{Frame: k, DRow: -dRow, DCol: -dCol, MSE: score}
			if err := RollInto(out.Frame(k), vol.Frame(k), vol.Height, vol.Width, -dRow, -dCol); err != nil {
				return fmt.Errorf("frame %d: %w", k, err)
			}

			if opts.Logger != nil {
				opts.Logger.Debug("frame corrected", "frame", k, "dRow", -dRow, "dCol", -dCol, "mse", score)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Result{
		Volume:      out,
		Reference:   ref,
		Shifts:      shifts,
		WindowStats: stats,
	}, nil
}

// SearchOffset finds the displacement of window within frame that best
// matches the reference patch. Offsets run over [-searchRange, searchRange)
// in row-major order; offsets that would move the window outside the frame
// are skipped. It returns the winning offset and its MSE.
func SearchOffset(frame *mat.Dense, reference mat.Matrix, window models.Window, searchRange int) (dRow, dCol int, score float64, err error) {
	height, width := frame.Dims()
	score = math.Inf(1)
	found := false

	for i := -searchRange; i < searchRange; i++ {
		startRow := window.Row + i
		if startRow < 0 || startRow+window.Size > height {
			continue
		}
		for j := -searchRange; j < searchRange; j++ {
			startCol := window.Col + j
			if startCol < 0 || startCol+window.Size > width {
				continue
			}

			current := frame.Slice(startRow, startRow+window.Size, startCol, startCol+window.Size)
			mse, err := metrics.MSE(current, reference)
			if err != nil {
				return 0, 0, 0, err
			}
			if mse < score {
				score = mse
				dRow, dCol = i, j
				found = true
			}
		}
	}

	if !found {
		return 0, 0, 0, fmt.Errorf("no offset within ±%d keeps %v inside a %dx%d frame",
			searchRange, window, height, width)
	}
	return dRow, dCol, score, nil
}
