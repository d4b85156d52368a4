package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"

	"astrowaves/internal/models"
	"astrowaves/pkg/drift"
	"astrowaves/pkg/pafft"
	"astrowaves/pkg/timelapse"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeDriftingTimelapse stores a 4-frame timelapse whose frames 1..3 are
// rolled copies of frame 0. Intensities are integers so they survive the
// 16-bit TIFF round trip unchanged.
func writeDriftingTimelapse(t *testing.T, dir string) (*models.Volume, [][2]int) {
	t.Helper()

	const size = 50
	rng := rand.New(rand.NewSource(11))
	base := make([]float64, size*size)
	for i := range base {
		base[i] = float64(rng.Intn(60000))
	}

	rolls := [][2]int{{0, 0}, {3, -2}, {-1, 4}, {2, 2}}
	vol := models.NewVolume(len(rolls), size, size)
	for f, r := range rolls {
		rolled, err := drift.Roll(base, size, size, r[0], r[1])
		if err != nil {
			t.Fatalf("Failed to roll frame %d: %v", f, err)
		}
		copy(vol.Frame(f), rolled)
	}

	if err := timelapse.Save(dir, vol); err != nil {
		t.Fatalf("Failed to write input frames: %v", err)
	}
	return vol, rolls
}

func testParams(input, output string) *Params {
	return &Params{
		InputDir:  input,
		OutputDir: output,
		Method:    "subregion",
		Drift:     drift.Options{WindowSize: 10, Margin: 5, Workers: 2},
		PAFFT:     pafft.Options{ShiftPerc: 0.1, SegSize: 200, Workers: 2},
		Logger:    quietLogger(),
	}
}

// TestProcess runs the full pipeline and checks the written frames are aligned
func TestProcess(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tmpDir := t.TempDir()
	inputDir := filepath.Join(tmpDir, "input")
	outputDir := filepath.Join(tmpDir, "out", "corrected")
	input, rolls := writeDriftingTimelapse(t, inputDir)

	p := NewPipeline(testParams(inputDir, outputDir))
	if err := p.Process(context.Background()); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	for f, r := range rolls {
		s := p.Shifts()[f]
		if s.DRow != -r[0] || s.DCol != -r[1] {
			t.Errorf("Frame %d: expected shift (%d, %d), got (%d, %d)", f, -r[0], -r[1], s.DRow, s.DCol)
		}
	}

	written, err := timelapse.Load(outputDir)
	if err != nil {
		t.Fatalf("Failed to load corrected frames: %v", err)
	}
	if written.Frames != input.Frames {
		t.Fatalf("Expected %d corrected frames, got %d", input.Frames, written.Frames)
	}
	for f := 0; f < written.Frames; f++ {
		if diff := cmp.Diff(input.Frame(0), written.Frame(f)); diff != "" {
			t.Errorf("Frame %d not aligned with frame 0 (-want +got):\n%s", f, diff)
		}
	}

	if p.Alignment() != nil {
		t.Error("Expected no histogram alignment when disabled")
	}
	if _, err := os.Stat(p.HistogramPath()); !os.IsNotExist(err) {
		t.Error("Expected no histogram table when alignment is disabled")
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "out", "original")); !os.IsNotExist(err) {
		t.Error("Expected no debug output when debug is off")
	}
}

// TestProcessDebugAndPAFFT renders diagnostics and aligns identical histograms
func TestProcessDebugAndPAFFT(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tmpDir := t.TempDir()
	inputDir := filepath.Join(tmpDir, "input")
	outputDir := filepath.Join(tmpDir, "out", "corrected")
	writeDriftingTimelapse(t, inputDir)

	params := testParams(inputDir, outputDir)
	params.Debug = true
	params.EnablePAFFT = true
	params.FrameStart = 1

	p := NewPipeline(params)
	if err := p.Process(context.Background()); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if p.Original().Frames != 3 {
		t.Errorf("Expected 3 frames after trimming, got %d", p.Original().Frames)
	}

	alignment := p.Alignment()
	if alignment == nil {
		t.Fatal("Expected a histogram alignment result")
	}
	if diff := cmp.Diff([]int{0, 0, 0}, alignment.Lags); diff != "" {
		t.Errorf("Unexpected lags for identical histograms (-want +got):\n%s", diff)
	}

	for _, name := range []string{
		filepath.Join("original", "slice_t_000.jpg"),
		filepath.Join("drift_corrected", "kymograph_x.jpg"),
		"shifts.png",
		"lags.png",
	} {
		if _, err := os.Stat(filepath.Join(tmpDir, "out", name)); err != nil {
			t.Errorf("Expected debug file %s: %v", name, err)
		}
	}
}

// TestProcessSavesAlignedHistograms writes the aligned table without debug output
func TestProcessSavesAlignedHistograms(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tmpDir := t.TempDir()
	inputDir := filepath.Join(tmpDir, "input")
	outputDir := filepath.Join(tmpDir, "out", "corrected")
	writeDriftingTimelapse(t, inputDir)

	params := testParams(inputDir, outputDir)
	params.EnablePAFFT = true

	p := NewPipeline(params)
	if err := p.Process(context.Background()); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if p.HistogramPath() != filepath.Join(outputDir, HistogramFile) {
		t.Errorf("Unexpected histogram path %s", p.HistogramPath())
	}

	file, err := os.Open(p.HistogramPath())
	if err != nil {
		t.Fatalf("Expected aligned histogram table: %v", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse histogram table: %v", err)
	}

	alignment := p.Alignment()
	frames, columns := alignment.Aligned.Dims()
	if len(records) != frames+1 {
		t.Fatalf("Expected header and %d rows, got %d records", frames, len(records))
	}
	if len(records[0]) != columns+2 || records[0][0] != "frame" || records[0][1] != "lag" {
		t.Fatalf("Unexpected header %v", records[0][:2])
	}
	for j, v := range alignment.Values {
		got, err := strconv.ParseFloat(records[0][j+2], 64)
		if err != nil || got != v {
			t.Fatalf("Header column %d: expected %g, got %q", j, v, records[0][j+2])
		}
	}

	for f := 0; f < frames; f++ {
		row := records[f+1]
		if row[0] != strconv.Itoa(f) || row[1] != strconv.Itoa(alignment.Lags[f]) {
			t.Errorf("Row %d: unexpected frame/lag %v", f, row[:2])
		}
		got := make([]float64, columns)
		for j := range got {
			if got[j], err = strconv.ParseFloat(row[j+2], 64); err != nil {
				t.Fatalf("Row %d column %d: %v", f, j, err)
			}
		}
		if diff := cmp.Diff(alignment.Aligned.RawRowView(f), got); diff != "" {
			t.Errorf("Row %d differs from the aligned table (-want +got):\n%s", f, diff)
		}
	}

	if _, err := os.Stat(filepath.Join(tmpDir, "out", "lags.png")); !os.IsNotExist(err) {
		t.Error("Expected no lag plot when debug is off")
	}
}

// TestDefaultOutputDir places output next to the input directory
func TestDefaultOutputDir(t *testing.T) {
	p := NewPipeline(&Params{InputDir: filepath.Join("data", "wave01")})

	want := filepath.Join("data", "wave01_corrected")
	if p.OutputDir() != want {
		t.Errorf("Expected output dir %s, got %s", want, p.OutputDir())
	}
	if p.Corrected() != nil || p.Shifts() != nil {
		t.Error("Expected no results before Process")
	}
}

// TestProcessErrors reports failures from each stage
func TestProcessErrors(t *testing.T) {
	tmpDir := t.TempDir()

	empty := filepath.Join(tmpDir, "empty")
	if err := os.MkdirAll(empty, 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	err := NewPipeline(testParams(empty, filepath.Join(tmpDir, "out"))).Process(context.Background())
	if !errors.Is(err, timelapse.ErrNoFrames) {
		t.Errorf("Expected ErrNoFrames, got %v", err)
	}

	inputDir := filepath.Join(tmpDir, "input")
	writeDriftingTimelapse(t, inputDir)

	params := testParams(inputDir, filepath.Join(tmpDir, "out"))
	params.FrameStart = 10
	err = NewPipeline(params).Process(context.Background())
	if !errors.Is(err, timelapse.ErrFrameRange) {
		t.Errorf("Expected ErrFrameRange, got %v", err)
	}

	params = testParams(inputDir, filepath.Join(tmpDir, "out"))
	params.Method = "optical-flow"
	err = NewPipeline(params).Process(context.Background())
	if !errors.Is(err, drift.ErrUnsupportedMethod) {
		t.Errorf("Expected ErrUnsupportedMethod, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = NewPipeline(testParams(inputDir, filepath.Join(tmpDir, "out"))).Process(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
