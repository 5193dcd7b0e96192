// Package report summarizes snapshot matrices before and after a transform.
//
// The summaries back the verbose output of the transformers and the charts
// written by the command line tool.
package report

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Summary holds row-wise and overall statistics of an n×k state matrix.
type Summary struct {
	RowMin  []float64
	RowMean []float64
	RowMax  []float64

	Min  float64
	Mean float64
	Max  float64
}

// Summarize computes the statistics of X. X must not be empty.
func Summarize(X mat.Matrix) Summary {
	n, k := X.Dims()
	s := Summary{
		RowMin:  make([]float64, n),
		RowMean: make([]float64, n),
		RowMax:  make([]float64, n),
	}
	row := make([]float64, k)
	for i := 0; i < n; i++ {
		mat.Row(row, i, X)
		s.RowMin[i] = floats.Min(row)
		s.RowMax[i] = floats.Max(row)
		s.RowMean[i] = stat.Mean(row, nil)
	}
	s.Min = floats.Min(s.RowMin)
	s.Max = floats.Max(s.RowMax)
	// every row has k entries, so the mean of row means is the overall mean
	s.Mean = stat.Mean(s.RowMean, nil)
	return s
}

// String renders the overall statistics on one line.
func (s Summary) String() string {
	return fmt.Sprintf("min=%.4e mean=%.4e max=%.4e", s.Min, s.Mean, s.Max)
}
