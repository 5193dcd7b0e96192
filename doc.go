// Package romprep provides invertible preprocessing of snapshot data for
// reduced-order modelling in Go.
//
// A snapshot matrix has one row per state entry and one column per
// snapshot. Before a basis is computed, the raw snapshots are usually
// shifted and scaled so that variables with very different magnitudes
// (pressure, velocity, temperature) contribute comparably. romprep learns
// those transformations, applies them, and undoes them on reconstructed
// states, including states holding only a subset of the rows.
//
// # Installation
//
//	go get github.com/YuminosukeSato/romprep
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/romprep/preprocessing"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    X := mat.NewDense(1, 5, []float64{1, 2, 3, 4, 5})
//
//	    tr, err := preprocessing.NewShiftScaleTransformer(
//	        preprocessing.WithCentering(true),
//	        preprocessing.WithScaling(preprocessing.ScalingMinMax),
//	    )
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    Y, err := tr.FitTransform(X)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(mat.Formatted(Y)) // [-1 -0.5 0 0.5 1]
//
//	    back, _ := tr.InverseTransform(Y, nil)
//	    fmt.Println(mat.Formatted(back))
//	}
//
// # Packages
//
//   - preprocessing: scaling policies, ShiftScaleTransformer, NullTransformer
//     and TransformerMulti for states made of several variables
//   - core/model: the Transformer contract, optional capabilities, Verify
//     and kind-dispatched persistence
//   - core/parallel: row-parallel kernels
//   - metrics: reconstruction errors used by tests and Verify
//   - report: row statistics and plots of raw and transformed data
//   - pkg/store: SQLite-backed hierarchical container
//   - pkg/config: YAML pipeline configuration
//   - pkg/matio: CSV matrices for the command line
//   - pkg/errors, pkg/log: typed errors and structured logging
//   - cmd/romprep: command line interface
//
// # License
//
// romprep is released under the MIT License.
package romprep
