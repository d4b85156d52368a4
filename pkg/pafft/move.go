package pafft

// Move shifts a segment by lag samples, replicating the edge value into the
// vacated positions. A positive lag delays the segment (first value repeated
// at the front), a negative lag advances it (last value repeated at the back).
// A zero lag or one at least as long as the segment returns an unchanged copy.
// The result always has the length of seg.
func Move(seg []float64, lag int) []float64 {
	n := len(seg)
	moved := make([]float64, n)

	magnitude := lag
	if magnitude < 0 {
		magnitude = -magnitude
	}
	if lag == 0 || magnitude >= n {
		copy(moved, seg)
		return moved
	}

	if lag > 0 {
		for i := 0; i < lag; i++ {
			moved[i] = seg[0]
		}
		copy(moved[lag:], seg[:n-lag])
		return moved
	}

	copy(moved, seg[magnitude:])
	for i := n - magnitude; i < n; i++ {
		moved[i] = seg[n-1]
	}
	return moved
}
