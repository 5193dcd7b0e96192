package preprocessing

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/romprep/core/model"
	"github.com/YuminosukeSato/romprep/pkg/errors"
)

// NullTransformer is the identity transformer. It only records the state
// dimension, which lets a TransformerMulti leave one variable untouched.
type NullTransformer struct {
	model.BaseEstimator
	name string
}

// NewNullTransformer returns an identity transformer for the named variable.
func NewNullTransformer(name string) *NullTransformer {
	return &NullTransformer{name: name}
}

// Name returns the variable name.
func (t *NullTransformer) Name() string { return t.name }

func (t *NullTransformer) FitTransform(states mat.Matrix) (*mat.Dense, error) {
	if err := t.fit(states); err != nil {
		return nil, err
	}
	return mat.DenseCopyOf(states), nil
}

func (t *NullTransformer) FitTransformInPlace(states *mat.Dense) error {
	return t.fit(states)
}

func (t *NullTransformer) fit(states mat.Matrix) error {
	n, k := states.Dims()
	if n == 0 || k == 0 {
		return errors.Wrapf(errors.ErrEmptyData, "%s.FitTransform", KindNull)
	}
	t.SetFitted(n)
	return nil
}

func (t *NullTransformer) check(method string, states mat.Matrix, locs []int) error {
	if !t.IsFitted() {
		return errors.NewNotFittedError(KindNull, method)
	}
	return checkLocs(KindNull+"."+method, t.StateDimension(), locs, states)
}

func (t *NullTransformer) Transform(states mat.Matrix) (*mat.Dense, error) {
	if err := t.check("Transform", states, nil); err != nil {
		return nil, err
	}
	return mat.DenseCopyOf(states), nil
}

func (t *NullTransformer) TransformInPlace(states *mat.Dense) error {
	return t.check("TransformInPlace", states, nil)
}

func (t *NullTransformer) InverseTransform(states mat.Matrix, locs []int) (*mat.Dense, error) {
	if err := t.check("InverseTransform", states, locs); err != nil {
		return nil, err
	}
	return mat.DenseCopyOf(states), nil
}

func (t *NullTransformer) InverseTransformInPlace(states *mat.Dense, locs []int) error {
	return t.check("InverseTransformInPlace", states, locs)
}

func (t *NullTransformer) TransformDdts(ddts mat.Matrix) (*mat.Dense, error) {
	if err := t.check("TransformDdts", ddts, nil); err != nil {
		return nil, err
	}
	return mat.DenseCopyOf(ddts), nil
}

func (t *NullTransformer) String() string {
	if t.name == "" {
		return KindNull
	}
	return KindNull + " for variable \"" + t.name + "\""
}
