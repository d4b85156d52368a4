package pafft

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"astrowaves/internal/models"
)

// Spectra is the per-frame intensity histogram table. Columns are the union
// of intensity values seen in any frame, sorted ascending; row f holds the
// pixel counts of frame f with gaps filled.
type Spectra struct {
	// Values holds the intensity value of each column
	Values []float64

	// Counts is a Frames x len(Values) table
	Counts *mat.Dense
}

// NewSpectra wraps an existing table. Values must be sorted ascending and
// match the number of columns.
func NewSpectra(values []float64, counts *mat.Dense) (*Spectra, error) {
	_, c := counts.Dims()
	if c != len(values) {
		return nil, fmt.Errorf("spectra has %d columns but %d values", c, len(values))
	}
	if !sort.Float64sAreSorted(values) {
		return nil, fmt.Errorf("spectra values must be sorted ascending")
	}
	return &Spectra{Values: values, Counts: counts}, nil
}

// Frames returns the number of rows
func (s *Spectra) Frames() int {
	r, _ := s.Counts.Dims()
	return r
}

// BuildSpectra computes the histogram of every frame and assembles them into
// a gap-free table. A value absent from a frame is filled from the nearest
// present value, then forward filled, then backward filled.
func BuildSpectra(vol *models.Volume) (*Spectra, error) {
	if err := vol.Validate(); err != nil {
		return nil, err
	}

	histograms := make([]map[float64]int, vol.Frames)
	union := make(map[float64]struct{})
	for f := 0; f < vol.Frames; f++ {
		h := make(map[float64]int)
		for _, v := range vol.Frame(f) {
			if math.IsNaN(v) {
				continue
			}
			h[v]++
			union[v] = struct{}{}
		}
		histograms[f] = h
	}
	if len(union) == 0 {
		return nil, fmt.Errorf("%w: no finite intensities", models.ErrEmptyVolume)
	}

	values := make([]float64, 0, len(union))
	for v := range union {
		values = append(values, v)
	}
	sort.Float64s(values)

	column := make(map[float64]int, len(values))
	for i, v := range values {
		column[v] = i
	}

	counts := mat.NewDense(vol.Frames, len(values), nil)
	for f, h := range histograms {
		row := counts.RawRowView(f)
		for i := range row {
			row[i] = math.NaN()
		}
		for v, n := range h {
			row[column[v]] = float64(n)
		}
		FillGaps(values, row)
	}

	return &Spectra{Values: values, Counts: counts}, nil
}

// FillGaps replaces NaN entries of row in place. Interior gaps take the
// entry whose value is nearest (the lower one on ties); leading and trailing
// gaps take the first and last present entry respectively.
func FillGaps(values, row []float64) {
	prev := -1
	for i := 0; i < len(row); i++ {
		if !math.IsNaN(row[i]) {
			prev = i
			continue
		}

		next := i + 1
		for next < len(row) && math.IsNaN(row[next]) {
			next++
		}

		for k := i; k < next; k++ {
			switch {
			case prev < 0 && next >= len(row):
				// nothing to fill from
			case prev < 0:
				row[k] = row[next]
			case next >= len(row):
				row[k] = row[prev]
			case values[k]-values[prev] <= values[next]-values[k]:
				row[k] = row[prev]
			default:
				row[k] = row[next]
			}
		}

		i = next - 1
	}
}
