package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/romprep/metrics"
	"github.com/YuminosukeSato/romprep/pkg/errors"
)

// Names of the checks performed by Verify, reported in VerificationError.Check.
const (
	CheckShape          = "shape"
	CheckInputUntouched = "input_untouched"
	CheckTransform      = "transform"
	CheckInverse        = "inverse_transform"
	CheckInverseLocs    = "inverse_transform_locs"
	CheckTransformDdts  = "transform_ddts"
)

// DefaultVerifyTolerance is the default relative tolerance of Verify.
const DefaultVerifyTolerance = 1e-10

type verifyConfig struct {
	tol     float64
	ddtsTol float64
	locs    []int
}

// VerifyOption configures Verify.
type VerifyOption func(*verifyConfig)

// WithTolerance sets the relative tolerance of the reconstruction checks.
// The derivative check uses a looser tolerance of 1e4 times this value,
// since finite differences of shifted data cancel large terms.
func WithTolerance(tol float64) VerifyOption {
	return func(c *verifyConfig) {
		c.tol = tol
		c.ddtsTol = tol * 1e4
	}
}

// WithLocs sets the rows used by the partial inverse check. By default every
// other row is used.
func WithLocs(locs ...int) VerifyOption {
	return func(c *verifyConfig) {
		c.locs = append([]int(nil), locs...)
	}
}

// Verify fits t to states and checks the transformer contract:
//
//   - FitTransform and Transform preserve the shape of their input;
//   - Transform does not modify its input;
//   - Transform reproduces the output of FitTransform;
//   - InverseTransform recovers states, in full and for a subset of rows;
//   - TransformDdts agrees with finite differences of transformed snapshots,
//     unless t does not support derivatives.
//
// states must have at least two snapshots (columns). A failed check is
// reported as *errors.VerificationError naming the check. Panics raised by t
// are returned as errors.
func Verify(t Transformer, states mat.Matrix, opts ...VerifyOption) (err error) {
	defer errors.Recover(&err, "model.Verify")

	cfg := verifyConfig{tol: DefaultVerifyTolerance, ddtsTol: DefaultVerifyTolerance * 1e4}
	for _, opt := range opts {
		opt(&cfg)
	}

	n, k := states.Dims()
	if n == 0 || k < 2 {
		return errors.NewValueError("Verify", fmt.Sprintf("need a state matrix with at least one row and two snapshots, got %dx%d", n, k))
	}
	original := mat.DenseCopyOf(states)

	fitted, err := t.FitTransform(states)
	if err != nil {
		return errors.Wrap(err, "Verify: FitTransform")
	}
	if err := sameShape("FitTransform", original, fitted); err != nil {
		return err
	}
	if t.StateDimension() != n {
		return errors.NewVerificationError(CheckShape, "StateDimension() = %d after fitting %d rows", t.StateDimension(), n)
	}

	transformed, err := t.Transform(states)
	if err != nil {
		return errors.Wrap(err, "Verify: Transform")
	}
	if err := sameShape("Transform", original, transformed); err != nil {
		return err
	}
	if !mat.Equal(original, states) {
		return errors.NewVerificationError(CheckInputUntouched, "FitTransform or Transform modified its input")
	}
	if err := within(CheckTransform, fitted, transformed, cfg.tol, "Transform output differs from FitTransform output"); err != nil {
		return err
	}

	recovered, err := t.InverseTransform(transformed, nil)
	if err != nil {
		return errors.Wrap(err, "Verify: InverseTransform")
	}
	if err := sameShape("InverseTransform", original, recovered); err != nil {
		return err
	}
	if err := within(CheckInverse, original, recovered, cfg.tol, "InverseTransform(Transform(X)) != X"); err != nil {
		return err
	}

	if err := verifyLocs(t, original, transformed, cfg); err != nil {
		return err
	}

	return verifyDdts(t, original, transformed, cfg)
}

func verifyLocs(t Transformer, original, transformed *mat.Dense, cfg verifyConfig) error {
	n, k := original.Dims()
	locs := cfg.locs
	if locs == nil {
		for i := 0; i < n; i += 2 {
			locs = append(locs, i)
		}
	}
	partial := mat.NewDense(len(locs), k, nil)
	want := mat.NewDense(len(locs), k, nil)
	for p, i := range locs {
		if i < 0 || i >= n {
			return errors.NewValueError("Verify", fmt.Sprintf("loc %d out of range [0, %d)", i, n))
		}
		partial.SetRow(p, transformed.RawRowView(i))
		want.SetRow(p, original.RawRowView(i))
	}

	recovered, err := t.InverseTransform(partial, locs)
	if err != nil {
		return errors.Wrap(err, "Verify: InverseTransform with locs")
	}
	if r, c := recovered.Dims(); r != len(locs) || c != k {
		return errors.NewVerificationError(CheckShape, "InverseTransform with %d locs returned %dx%d, want %dx%d", len(locs), r, c, len(locs), k)
	}
	return within(CheckInverseLocs, want, recovered, cfg.tol, "InverseTransform with locs does not recover the selected rows")
}

// verifyDdts compares TransformDdts of forward differences of the raw
// snapshots with forward differences of the transformed snapshots.
func verifyDdts(t Transformer, original, transformed *mat.Dense, cfg verifyConfig) error {
	dt, ok := t.(DdtsTransformer)
	if !ok || !Supports(t, CapDdts) {
		return nil
	}
	rawDiffs := forwardDifferences(original)
	ddts, err := dt.TransformDdts(rawDiffs)
	if errors.Is(err, errors.ErrNotImplemented) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "Verify: TransformDdts")
	}
	if err := sameShape("TransformDdts", rawDiffs, ddts); err != nil {
		return err
	}
	return within(CheckTransformDdts, forwardDifferences(transformed), ddts, cfg.ddtsTol,
		"TransformDdts is inconsistent with finite differences of Transform")
}

func forwardDifferences(X *mat.Dense) *mat.Dense {
	n, k := X.Dims()
	var diffs mat.Dense
	diffs.Sub(X.Slice(0, n, 1, k), X.Slice(0, n, 0, k-1))
	return &diffs
}

func sameShape(op string, want, got mat.Matrix) error {
	rw, cw := want.Dims()
	rg, cg := got.Dims()
	if rw != rg || cw != cg {
		return errors.NewVerificationError(CheckShape, "%s returned %dx%d, want %dx%d", op, rg, cg, rw, cw)
	}
	return nil
}

func within(check string, want, got mat.Matrix, tol float64, msg string) error {
	rel, err := metrics.RelativeError(want, got)
	if err != nil {
		return errors.NewVerificationError(check, "%s: %v", msg, err)
	}
	if rel > tol {
		return errors.NewVerificationError(check, "%s (relative error %.3e > %.1e)", msg, rel, tol)
	}
	return nil
}
