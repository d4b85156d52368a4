package models

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrEmptyVolume is returned when a volume has no frames or no pixels.
var ErrEmptyVolume = errors.New("empty volume")

// Volume represents a timelapse recording: an ordered sequence of frames that
// all share the same spatial dimensions. Frame 0 is the alignment reference.
type Volume struct {
	// Data is the timelapse as a 1D array, frame-major then row-major
	Data []float64

	// Frames is the number of timepoints
	Frames int

	// Height is the number of rows in each frame
	Height int

	// Width is the number of columns in each frame
	Width int
}

// NewVolume allocates a zero-filled volume of the given shape
func NewVolume(frames, height, width int) *Volume {
	return &Volume{
		Data:   make([]float64, frames*height*width),
		Frames: frames,
		Height: height,
		Width:  width,
	}
}

// FrameSize is the number of pixels in a single frame
func (v *Volume) FrameSize() int {
	return v.Height * v.Width
}

// Validate checks that the volume is non-empty and consistent with its data
func (v *Volume) Validate() error {
	if v == nil || v.Frames < 1 || v.Height < 1 || v.Width < 1 {
		return ErrEmptyVolume
	}
	if len(v.Data) != v.Frames*v.FrameSize() {
		return fmt.Errorf("volume data length %d does not match shape %dx%dx%d",
			len(v.Data), v.Frames, v.Height, v.Width)
	}
	return nil
}

// Frame returns the pixels of frame f. The slice aliases the volume data.
func (v *Volume) Frame(f int) []float64 {
	n := v.FrameSize()
	return v.Data[f*n : (f+1)*n]
}

// FrameMatrix returns a Height x Width view of frame f backed by the volume data
func (v *Volume) FrameMatrix(f int) *mat.Dense {
	return mat.NewDense(v.Height, v.Width, v.Frame(f))
}

// At returns the intensity at frame f, row y, column x
func (v *Volume) At(f, y, x int) float64 {
	return v.Data[f*v.FrameSize()+y*v.Width+x]
}

// Set stores an intensity at frame f, row y, column x
func (v *Volume) Set(f, y, x int, value float64) {
	v.Data[f*v.FrameSize()+y*v.Width+x] = value
}

// Clone returns a deep copy of the volume
func (v *Volume) Clone() *Volume {
	data := make([]float64, len(v.Data))
	copy(data, v.Data)
	return &Volume{Data: data, Frames: v.Frames, Height: v.Height, Width: v.Width}
}

// Region copies the pixels of a size x size window at (row, col) across all
// frames into a flat slice
func (v *Volume) Region(row, col, size int) []float64 {
	region := make([]float64, 0, v.Frames*size*size)
	for f := 0; f < v.Frames; f++ {
		frame := v.Frame(f)
		for y := row; y < row+size; y++ {
			region = append(region, frame[y*v.Width+col:y*v.Width+col+size]...)
		}
	}
	return region
}

// Window is a square spatial region identified by its top-left corner
type Window struct {
	// Row and Col are the top-left coordinates (first and second frame axis)
	Row, Col int

	// Size is the side length in pixels
	Size int
}

func (w Window) String() string {
	return fmt.Sprintf("window(%d,%d)+%d", w.Row, w.Col, w.Size)
}

// WindowStat holds the intensity statistics of one candidate window
// computed over every frame of the volume
type WindowStat struct {
	Window Window
	Std    float64
	Mean   float64
}

// Shift is the integer cyclic displacement applied to one frame to align it
// with frame 0. DRow moves content along rows, DCol along columns.
type Shift struct {
	Frame int
	DRow  int
	DCol  int

	// MSE is the dissimilarity reached at the chosen offset
	MSE float64
}
