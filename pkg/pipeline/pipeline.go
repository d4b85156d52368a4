// Package pipeline runs a complete drift correction pass over a timelapse
// stored as a directory of frame images.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"astrowaves/internal/models"
	"astrowaves/pkg/drift"
	"astrowaves/pkg/pafft"
	"astrowaves/pkg/timelapse"
	"astrowaves/pkg/visualization"
)

// HistogramFile is the name of the aligned histogram table inside the output
// directory.
const HistogramFile = "histograms_aligned.csv"

// Params holds the inputs and settings of one correction run.
type Params struct {
	// InputDir is the directory containing the timelapse frames.
	InputDir string

	// OutputDir receives the corrected frames. When empty it defaults to
	// "<stem>_corrected" next to InputDir.
	OutputDir string

	// Method names the spatial correction strategy.
	Method string

	// Drift configures the subregion corrector.
	Drift drift.Options

	// EnablePAFFT runs histogram alignment on the corrected volume.
	EnablePAFFT bool

	// PAFFT configures histogram alignment.
	PAFFT pafft.Options

	// FrameStart and FrameEnd select frames [FrameStart, FrameEnd) of the
	// input. A FrameEnd of zero keeps every frame from FrameStart on.
	FrameStart int
	FrameEnd   int

	// Debug renders the original and corrected sequences and the diagnostic
	// plots into the parent directory of OutputDir.
	Debug bool

	// Logger receives progress lines. Nil means slog.Default().
	Logger *slog.Logger
}

// Pipeline loads, corrects and writes one timelapse.
//
// The run consists of these steps:
// 1. Loading the frames and trimming them to the requested range
// 2. Removing spatial drift
// 3. Aligning intensity histograms (optional)
// 4. Saving the corrected frames and the aligned histograms
// 5. Rendering debug output (optional)
type Pipeline struct {
	params *Params
	logger *slog.Logger

	// original is the trimmed input volume
	original *models.Volume

	// correction holds the spatial correction result
	correction *drift.Result

	// alignment holds the histogram alignment result, nil when disabled
	alignment *pafft.Result

	// outputDir is the resolved output location
	outputDir string
}

// NewPipeline creates a pipeline for the provided parameters.
func NewPipeline(params *Params) *Pipeline {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}

	outputDir := params.OutputDir
	if outputDir == "" {
		outputDir = timelapse.CorrectedPath(params.InputDir)
	}

	return &Pipeline{
		params:    params,
		logger:    logger,
		outputDir: outputDir,
	}
}

// Process runs the complete correction pipeline.
func (p *Pipeline) Process(ctx context.Context) error {
	start := time.Now()

	// Step 1: Load and trim input frames
	p.logger.Info("step 1: loading frames", "input", p.params.InputDir)
	vol, err := timelapse.Load(p.params.InputDir)
	if err != nil {
		return fmt.Errorf("failed to load frames: %w", err)
	}
	loaded := vol.Frames

	vol, err = timelapse.Trim(vol, p.params.FrameStart, p.params.FrameEnd)
	if err != nil {
		return fmt.Errorf("failed to trim frames: %w", err)
	}
	p.original = vol
	p.logger.Info("frames loaded",
		"loaded", loaded, "kept", vol.Frames, "height", vol.Height, "width", vol.Width)

	// Step 2: Remove spatial drift
	p.logger.Info("step 2: correcting drift", "method", p.params.Method,
		"windowSize", p.params.Drift.WindowSize, "margin", p.params.Drift.Margin)
	opts := p.params.Drift
	if opts.Logger == nil {
		opts.Logger = p.logger
	}
	p.correction, err = drift.CorrectByName(ctx, vol, p.params.Method, opts)
	if err != nil {
		return fmt.Errorf("failed to correct drift: %w", err)
	}
	p.logger.Info("drift corrected",
		"reference", p.correction.Reference.String(), "frames", len(p.correction.Shifts))

	// Step 3: Align intensity histograms
	if p.params.EnablePAFFT {
		p.logger.Info("step 3: aligning histograms",
			"shiftPerc", p.params.PAFFT.ShiftPerc, "segSize", p.params.PAFFT.SegSize)
		p.alignment, err = pafft.AlignVolume(ctx, p.correction.Volume, p.params.PAFFT)
		if err != nil {
			return fmt.Errorf("failed to align histograms: %w", err)
		}
		p.logger.Info("histograms aligned", "bins", len(p.alignment.Values))
	}

	// Step 4: Save corrected frames
	p.logger.Info("step 4: saving corrected frames", "output", p.outputDir)
	if err := timelapse.Save(p.outputDir, p.correction.Volume); err != nil {
		return fmt.Errorf("failed to save corrected frames: %w", err)
	}
	if p.alignment != nil {
		path := p.HistogramPath()
		p.logger.Info("saving aligned histograms", "file", path)
		if err := p.alignment.SaveCSV(path); err != nil {
			return fmt.Errorf("failed to save aligned histograms: %w", err)
		}
	}

	// Step 5: Render debug output
	if p.params.Debug {
		debugDir := filepath.Dir(filepath.Clean(p.outputDir))
		p.logger.Info("step 5: rendering debug output", "dir", debugDir)
		if err := p.renderDebug(debugDir); err != nil {
			return fmt.Errorf("failed to render debug output: %w", err)
		}
	}

	p.logger.Info("correction finished", "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

func (p *Pipeline) renderDebug(dir string) error {
	if err := visualization.NewViewer(p.original).Render(dir, "original"); err != nil {
		return err
	}
	if err := visualization.NewViewer(p.correction.Volume).Render(dir, "drift_corrected"); err != nil {
		return err
	}
	if err := visualization.PlotShifts(p.correction.Shifts, filepath.Join(dir, "shifts.png")); err != nil {
		return err
	}
	if p.alignment != nil {
		if err := visualization.PlotLags(p.alignment.Lags, filepath.Join(dir, "lags.png")); err != nil {
			return err
		}
	}
	return nil
}

// OutputDir returns the directory the corrected frames are written to.
func (p *Pipeline) OutputDir() string {
	return p.outputDir
}

// HistogramPath returns the CSV file the aligned histograms are written to
// when histogram alignment is enabled.
func (p *Pipeline) HistogramPath() string {
	return filepath.Join(p.outputDir, HistogramFile)
}

// Original returns the trimmed input volume.
func (p *Pipeline) Original() *models.Volume {
	return p.original
}

// Corrected returns the drift corrected volume, nil before Process succeeds.
func (p *Pipeline) Corrected() *models.Volume {
	if p.correction == nil {
		return nil
	}
	return p.correction.Volume
}

// Shifts returns the per-frame shift vectors.
func (p *Pipeline) Shifts() []models.Shift {
	if p.correction == nil {
		return nil
	}
	return p.correction.Shifts
}

// Alignment returns the histogram alignment result, nil when disabled.
func (p *Pipeline) Alignment() *pafft.Result {
	return p.alignment
}
