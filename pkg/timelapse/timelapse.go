// Package timelapse reads and writes timelapse volumes stored as a directory
// of single-page frame images (TIFF, PNG or JPEG), one file per timepoint.
package timelapse

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/image/tiff"

	"astrowaves/internal/models"
)

var (
	// ErrNoFrames is returned when a directory holds no readable frame images
	ErrNoFrames = errors.New("no frame images found")

	// ErrFrameRange is returned for an empty or inverted frame range
	ErrFrameRange = errors.New("invalid frame range")
)

var frameExtensions = map[string]bool{
	".tif":  true,
	".tiff": true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// Load reads every frame image in dir, ordered by the number embedded in the
// filename, into a volume of raw 16-bit gray intensities.
func Load(dir string) (*models.Volume, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if frameExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFrames, dir)
	}

	// Frame order follows the numeric part of the filename
	sort.SliceStable(names, func(i, j int) bool {
		ni, nj := extractNumber(names[i]), extractNumber(names[j])
		if ni != nj {
			return ni < nj
		}
		return names[i] < names[j]
	})

	var vol *models.Volume
	for f, name := range names {
		img, err := loadImage(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to load frame %s: %w", name, err)
		}

		bounds := img.Bounds()
		if vol == nil {
			vol = models.NewVolume(len(names), bounds.Dy(), bounds.Dx())
		} else if bounds.Dx() != vol.Width || bounds.Dy() != vol.Height {
			return nil, fmt.Errorf("frame %s is %dx%d, expected %dx%d",
				name, bounds.Dx(), bounds.Dy(), vol.Width, vol.Height)
		}
		copy(vol.Frame(f), ImageToFloat(img))
	}

	return vol, nil
}

// Save writes every frame of vol into dir as frame_NNNN.tif
func Save(dir string, vol *models.Volume) error {
	if err := vol.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for f := 0; f < vol.Frames; f++ {
		path := filepath.Join(dir, fmt.Sprintf("frame_%04d.tif", f))
		if err := saveTIFF(path, FloatToImage(vol.Frame(f), vol.Width, vol.Height)); err != nil {
			return fmt.Errorf("failed to save frame %d: %w", f, err)
		}
	}
	return nil
}

// Trim returns frames [start, end) of vol as a new volume. An end of zero
// means through the last frame, and an end past the last frame is clamped.
func Trim(vol *models.Volume, start, end int) (*models.Volume, error) {
	if err := vol.Validate(); err != nil {
		return nil, err
	}
	if end <= 0 || end > vol.Frames {
		end = vol.Frames
	}
	if start < 0 || start >= end {
		return nil, fmt.Errorf("%w: [%d, %d) of %d frames", ErrFrameRange, start, end, vol.Frames)
	}

	n := vol.FrameSize()
	out := models.NewVolume(end-start, vol.Height, vol.Width)
	copy(out.Data, vol.Data[start*n:end*n])
	return out, nil
}

// ImageToFloat converts an image to row-major 16-bit gray intensities
func ImageToFloat(img image.Image) []float64 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	result := make([]float64, width*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			g := color.Gray16Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16)
			result[y*width+x] = float64(g.Y)
		}
	}

	return result
}

// FloatToImage converts row-major intensities to a 16-bit gray image,
// rounding and clamping to [0, 65535]
func FloatToImage(data []float64, width, height int) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := math.Round(data[y*width+x])
			v = math.Max(0, math.Min(65535, v))
			img.SetGray16(x, y, color.Gray16{Y: uint16(v)})
		}
	}

	return img
}

// CorrectedPath derives the default output location next to the input:
// "<dir>/<stem>_corrected<ext>"
func CorrectedPath(input string) string {
	clean := filepath.Clean(input)
	ext := filepath.Ext(clean)
	stem := strings.TrimSuffix(filepath.Base(clean), ext)
	return filepath.Join(filepath.Dir(clean), stem+"_corrected"+ext)
}

func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, err
	}

	return img, nil
}

func saveTIFF(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := tiff.Encode(file, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// extractNumber extracts the numeric part from a filename
func extractNumber(filename string) int {
	base := filepath.Base(filename)
	var digits strings.Builder
	for _, c := range base {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}

	if digits.Len() > 0 {
		if num, err := strconv.Atoi(digits.String()); err == nil {
			return num
		}
	}
	return 0
}
