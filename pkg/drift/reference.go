package drift

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"astrowaves/internal/models"
)

// ErrNoWindows is returned when no candidate window fits inside the margins
var ErrNoWindows = errors.New("no candidate windows fit inside the volume margins")

// WindowGrid returns the candidate reference windows for a frame of the given
// size. Windows tile the area left after removing margin on every edge; the
// outermost ring of the grid is skipped.
func WindowGrid(height, width, windowSize, margin int) []models.Window {
	if windowSize <= 0 {
		return nil
	}
	noWindows := (min(height, width) - 2*margin) / windowSize

	var windows []models.Window
	for i := 1; i < noWindows-1; i++ {
		row := i*windowSize + margin
		for j := 1; j < noWindows-1; j++ {
			col := j*windowSize + margin
			windows = append(windows, models.Window{Row: row, Col: col, Size: windowSize})
		}
	}
	return windows
}

// FindReferenceWindow picks the window used to track drift. Windows are split
// into two groups by the standard deviation of their pixels over all frames.
// The group holding the least variable window is treated as background, and
// its brightest window is returned together with every window's statistics.
//
// The volume must contain regions of visibly different variability; a flat
// volume yields ErrDegenerateClusters.
func FindReferenceWindow(vol *models.Volume, windowSize, margin int) (models.Window, []models.WindowStat, error) {
	if err := vol.Validate(); err != nil {
		return models.Window{}, nil, err
	}

	windows := WindowGrid(vol.Height, vol.Width, windowSize, margin)
	if len(windows) == 0 {
		return models.Window{}, nil, fmt.Errorf("%w: %dx%d frame, window %d, margin %d",
			ErrNoWindows, vol.Height, vol.Width, windowSize, margin)
	}

	stats := make([]models.WindowStat, len(windows))
	stds := make([]float64, len(windows))
	for i, w := range windows {
		mean, std := stat.PopMeanStdDev(vol.Region(w.Row, w.Col, w.Size), nil)
		stats[i] = models.WindowStat{Window: w, Std: std, Mean: mean}
		stds[i] = std
	}

	clusters, err := KMeans1D(stds, 2)
	if err != nil {
		return models.Window{}, stats, fmt.Errorf("failed to cluster window variability: %w", err)
	}

	// Label values are arbitrary, so the background group is whichever one
	// holds the globally least variable window.
	lowest := 0
	for i, s := range stds {
		if s < stds[lowest] {
			lowest = i
		}
	}
	background := clusters.Labels[lowest]

	best := -1
	for i, st := range stats {
		if clusters.Labels[i] != background {
			continue
		}
		if best < 0 || st.Mean > stats[best].Mean {
			best = i
		}
	}

	return stats[best].Window, stats, nil
}
