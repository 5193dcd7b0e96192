// Package matio reads and writes state matrices as CSV, one state
// variable per row and one snapshot per column.
package matio

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/romprep/pkg/errors"
)

// ReadCSV parses an n×k matrix. Blank lines and lines starting with '#'
// are skipped; every record must have the same number of fields.
func ReadCSV(r io.Reader) (*mat.Dense, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "matio: read csv")
	}
	if len(records) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "matio: read csv")
	}

	n, k := len(records), len(records[0])
	data := make([]float64, 0, n*k)
	for i, rec := range records {
		for j, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, errors.Wrapf(err, "matio: row %d column %d", i, j)
			}
			data = append(data, v)
		}
	}
	return mat.NewDense(n, k, data), nil
}

// WriteCSV writes m with the shortest representation that round-trips.
func WriteCSV(w io.Writer, m mat.Matrix) error {
	n, k := m.Dims()
	cw := csv.NewWriter(w)
	rec := make([]string, k)
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			rec[j] = strconv.FormatFloat(m.At(i, j), 'g', -1, 64)
		}
		if err := cw.Write(rec); err != nil {
			return errors.Wrapf(err, "matio: write row %d", i)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "matio: write csv")
}

// ReadFile reads a CSV matrix from path.
func ReadFile(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "matio: open")
	}
	defer f.Close()
	return ReadCSV(f)
}

// WriteFile writes m to path, replacing any existing file.
func WriteFile(path string, m mat.Matrix) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "matio: create")
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = errors.Wrap(cerr, "matio: close")
		}
	}()
	return WriteCSV(f, m)
}

// ParseLocs parses a comma-separated list of row indices such as "0,3,4".
// An empty string yields nil.
func ParseLocs(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	locs := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, errors.NewValueError("matio.ParseLocs", "invalid row index "+strconv.Quote(p))
		}
		locs[i] = v
	}
	return locs, nil
}
