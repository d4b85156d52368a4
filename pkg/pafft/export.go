package pafft

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// WriteCSV writes the aligned table with a header of intensity values. Each
// following row holds the frame index, the frame lag and the aligned counts.
func (r *Result) WriteCSV(w io.Writer) error {
	frames, columns := r.Aligned.Dims()
	cw := csv.NewWriter(w)

	record := make([]string, columns+2)
	record[0], record[1] = "frame", "lag"
	for j, v := range r.Values {
		record[j+2] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	if err := cw.Write(record); err != nil {
		return err
	}

	for f := 0; f < frames; f++ {
		record[0] = strconv.Itoa(f)
		record[1] = strconv.Itoa(r.Lags[f])
		for j, v := range r.Aligned.RawRowView(f) {
			record[j+2] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the aligned table to path, creating its directory
func (r *Result) SaveCSV(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
