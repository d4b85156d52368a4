// Package visualization renders timelapse volumes and drift diagnostics for
// visual debugging of a correction run.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"

	"astrowaves/internal/models"
)

// Viewer renders frames and kymographs of a timelapse volume. Intensities are
// stretched to the full gray range using the volume's global minimum and
// maximum, so every frame of one render shares the same contrast.
type Viewer struct {
	volume *models.Volume

	// intensity window used for contrast stretching
	low  float64
	high float64
}

// NewViewer creates a viewer for the volume
func NewViewer(volume *models.Volume) *Viewer {
	v := &Viewer{volume: volume}
	if len(volume.Data) > 0 {
		v.low = floats.Min(volume.Data)
		v.high = floats.Max(volume.Data)
	}
	return v
}

func (v *Viewer) gray(value float64) color.Gray {
	span := v.high - v.low
	if span <= 0 {
		return color.Gray{Y: 0}
	}
	scaled := (value - v.low) / span * 255
	return color.Gray{Y: uint8(math.Max(0, math.Min(255, math.Round(scaled))))}
}

// ExtractSlice extracts a 2D image from the volume along the given axis:
//   - "t": frame at the given timepoint (width x height)
//   - "y": kymograph of one row over time (width x frames)
//   - "x": kymograph of one column over time (frames x height)
//
// Kymographs make residual drift visible as slanted streaks.
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}
	vol := v.volume

	var img *image.Gray
	switch axis {
	case "t", "T":
		if position >= vol.Frames {
			return nil, fmt.Errorf("position %d exceeds frame count %d", position, vol.Frames)
		}
		img = image.NewGray(image.Rect(0, 0, vol.Width, vol.Height))
		for y := 0; y < vol.Height; y++ {
			for x := 0; x < vol.Width; x++ {
				img.SetGray(x, y, v.gray(vol.At(position, y, x)))
			}
		}

	case "y", "Y":
		if position >= vol.Height {
			return nil, fmt.Errorf("position %d exceeds height %d", position, vol.Height)
		}
		img = image.NewGray(image.Rect(0, 0, vol.Width, vol.Frames))
		for f := 0; f < vol.Frames; f++ {
			for x := 0; x < vol.Width; x++ {
				img.SetGray(x, f, v.gray(vol.At(f, position, x)))
			}
		}

	case "x", "X":
		if position >= vol.Width {
			return nil, fmt.Errorf("position %d exceeds width %d", position, vol.Width)
		}
		img = image.NewGray(image.Rect(0, 0, vol.Frames, vol.Height))
		for y := 0; y < vol.Height; y++ {
			for f := 0; f < vol.Frames; f++ {
				img.SetGray(f, y, v.gray(vol.At(f, y, position)))
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be t, x, or y)", axis)
	}

	return img, nil
}

// SaveSlice saves an extracted slice as a JPEG image
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// SaveSliceSequence extracts and saves every slice along the given axis
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	var maxPos int
	switch axis {
	case "t", "T":
		maxPos = v.volume.Frames
	case "y", "Y":
		maxPos = v.volume.Height
	case "x", "X":
		maxPos = v.volume.Width
	default:
		return fmt.Errorf("invalid axis: %s (must be t, x, or y)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.jpg", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}

// Render writes the frames of the volume to <outputDir>/<name>/ together with
// the centre row and centre column kymographs. It is the frame-sequence
// counterpart of a debug video.
func (v *Viewer) Render(outputDir, name string) error {
	dir := filepath.Join(outputDir, name)
	if err := v.SaveSliceSequence("t", dir); err != nil {
		return fmt.Errorf("failed to render frames: %w", err)
	}

	kymographs := map[string]int{
		"y": v.volume.Height / 2,
		"x": v.volume.Width / 2,
	}
	for axis, pos := range kymographs {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}
		filename := filepath.Join(dir, fmt.Sprintf("kymograph_%s.jpg", axis))
		if err := v.SaveSlice(img, filename); err != nil {
			return fmt.Errorf("failed to save %s kymograph: %w", axis, err)
		}
	}

	return nil
}
