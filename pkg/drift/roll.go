package drift

import (
	"fmt"

	"astrowaves/pkg/metrics"
)

// Roll cyclically shifts a row-major frame by dRow rows and dCol columns.
// Pixels pushed past an edge re-enter on the opposite edge, so
// out[(y+dRow) mod h][(x+dCol) mod w] = frame[y][x].
func Roll(frame []float64, height, width, dRow, dCol int) ([]float64, error) {
	out := make([]float64, len(frame))
	if err := RollInto(out, frame, height, width, dRow, dCol); err != nil {
		return nil, err
	}
	return out, nil
}

// RollInto is Roll writing into dst, which must not alias frame
func RollInto(dst, frame []float64, height, width, dRow, dCol int) error {
	if height <= 0 || width <= 0 || len(frame) != height*width || len(dst) != len(frame) {
		return fmt.Errorf("%w: roll of %d pixels into %d with shape %dx%d",
			metrics.ErrShapeMismatch, len(frame), len(dst), height, width)
	}
	dRow = mod(dRow, height)
	dCol = mod(dCol, width)

	for y := 0; y < height; y++ {
		ty := (y + dRow) % height
		src := frame[y*width : (y+1)*width]
		row := dst[ty*width : (ty+1)*width]
		// Columns [0, width-dCol) land at [dCol, width), the rest wrap to the front
		copy(row[dCol:], src[:width-dCol])
		copy(row[:dCol], src[width-dCol:])
	}
	return nil
}

func mod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}
