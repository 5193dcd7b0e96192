package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/romprep/pkg/errors"
)

// rowOffset adds i+1 to every entry of row i. bug selects a deliberate defect.
type rowOffset struct {
	n   int
	bug string
}

func (r *rowOffset) FitTransform(states mat.Matrix) (*mat.Dense, error) {
	r.n, _ = states.Dims()
	if r.bug == "mutate" {
		states.(*mat.Dense).Set(0, 0, 42)
	}
	return r.shift(states, nil, 1), nil
}

func (r *rowOffset) Transform(states mat.Matrix) (*mat.Dense, error) {
	switch r.bug {
	case "panic":
		panic("index out of range")
	case "shape":
		n, k := states.Dims()
		return mat.DenseCopyOf(states.(*mat.Dense).Slice(0, n, 0, k-1)), nil
	case "transform":
		out := r.shift(states, nil, 1)
		out.Set(0, 0, out.At(0, 0)+1)
		return out, nil
	}
	return r.shift(states, nil, 1), nil
}

func (r *rowOffset) InverseTransform(states mat.Matrix, locs []int) (*mat.Dense, error) {
	switch r.bug {
	case "inverse":
		return mat.DenseCopyOf(states), nil
	case "locs":
		return r.shift(states, nil, -1), nil
	}
	return r.shift(states, locs, -1), nil
}

func (r *rowOffset) TransformDdts(ddts mat.Matrix) (*mat.Dense, error) {
	if r.bug == "ddts" {
		return r.shift(ddts, nil, 1), nil
	}
	return mat.DenseCopyOf(ddts), nil
}

func (r *rowOffset) StateDimension() int { return r.n }

func (r *rowOffset) shift(states mat.Matrix, locs []int, sign float64) *mat.Dense {
	out := mat.DenseCopyOf(states)
	rows, cols := out.Dims()
	for i := 0; i < rows; i++ {
		g := i
		if locs != nil {
			g = locs[i]
		}
		for j := 0; j < cols; j++ {
			out.Set(i, j, out.At(i, j)+sign*float64(g+1))
		}
	}
	return out
}

// withoutDdts hides the derivative capability of its transformer.
type withoutDdts struct {
	*rowOffset
}

func (withoutDdts) Capabilities() Capability { return 0 }

func sampleStates() *mat.Dense {
	return mat.NewDense(4, 5, []float64{
		1, 2, 4, 7, 11,
		-3, 0, 3, 5, 6,
		0.5, 0.25, 0.125, 0, -1,
		10, 20, 15, 25, 5,
	})
}

func TestVerifyPasses(t *testing.T) {
	require.NoError(t, Verify(&rowOffset{}, sampleStates()))
	require.NoError(t, Verify(&rowOffset{}, sampleStates(), WithLocs(3, 1), WithTolerance(1e-12)))
}

func TestVerifyReportsFailedCheck(t *testing.T) {
	tests := []struct {
		bug   string
		check string
	}{
		{"mutate", CheckInputUntouched},
		{"shape", CheckShape},
		{"transform", CheckTransform},
		{"inverse", CheckInverse},
		{"locs", CheckInverseLocs},
		{"ddts", CheckTransformDdts},
	}
	for _, tt := range tests {
		t.Run(tt.bug, func(t *testing.T) {
			err := Verify(&rowOffset{bug: tt.bug}, sampleStates())
			var verr *errors.VerificationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.check, verr.Check)
			assert.NotEmpty(t, verr.Message)
		})
	}
}

func TestVerifySkipsUnsupportedDdts(t *testing.T) {
	tr := withoutDdts{&rowOffset{bug: "ddts"}}
	assert.False(t, Supports(tr, CapDdts))
	require.NoError(t, Verify(tr, sampleStates()))
}

func TestVerifyRecoversPanics(t *testing.T) {
	err := Verify(&rowOffset{bug: "panic"}, sampleStates())
	var panicErr *errors.PanicError
	require.True(t, errors.As(err, &panicErr), "got %v", err)
	assert.Equal(t, "model.Verify", panicErr.Operation)
}

func TestVerifyInputValidation(t *testing.T) {
	err := Verify(&rowOffset{}, mat.NewDense(3, 1, []float64{1, 2, 3}))
	var valErr *errors.ValueError
	require.True(t, errors.As(err, &valErr))

	err = Verify(&rowOffset{}, sampleStates(), WithLocs(0, 9))
	require.True(t, errors.As(err, &valErr))
}
