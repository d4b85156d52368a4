package pafft

import "gonum.org/v1/gonum/floats"

// FindMinimum returns the index used to close an adaptive segment. Both
// inputs are ranked by ascending value and the first index of current's
// ranking that also occurs in reference's ranking is returned. For equal
// length inputs this is always the position of current's smallest value.
// An empty input yields 0.
func FindMinimum(current, reference []float64) int {
	currentIdxs := argsort(current)
	referenceIdxs := argsort(reference)

	seen := make(map[int]struct{}, len(referenceIdxs))
	for _, idx := range referenceIdxs {
		seen[idx] = struct{}{}
	}
	for _, idx := range currentIdxs {
		if _, ok := seen[idx]; ok {
			return idx
		}
	}

	if len(currentIdxs) > 0 {
		return currentIdxs[0]
	}
	return 0
}

func argsort(s []float64) []int {
	tmp := make([]float64, len(s))
	copy(tmp, s)
	idxs := make([]int, len(s))
	floats.ArgsortStable(tmp, idxs)
	return idxs
}

// SegmentEnd returns the exclusive end of the segment starting at start.
// When fewer than 2*segSize entries remain the segment runs to the end of the
// spectrum. Otherwise the trial range [start+segSize, start+2*segSize-1) of
// both spectra is probed with FindMinimum and the segment is closed at
// start+segSize plus the returned offset.
func SegmentEnd(current, reference []float64, start, segSize int) int {
	n := len(current)
	end := start + 2*segSize
	if end >= n {
		return n
	}

	// The trial range stops one short of end; keep it that way so segment
	// boundaries match previously produced alignments.
	trialCurrent := current[start+segSize : end-1]
	trialReference := reference[start+segSize : end-1]
	return start + FindMinimum(trialCurrent, trialReference) + segSize
}
