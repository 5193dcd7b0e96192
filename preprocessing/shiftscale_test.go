package preprocessing

import (
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/romprep/core/model"
	"github.com/YuminosukeSato/romprep/pkg/errors"
	"github.com/YuminosukeSato/romprep/pkg/log"
)

func TestShiftScaleConcreteScenario(t *testing.T) {
	X := mat.NewDense(1, 5, []float64{1, 2, 3, 4, 5})

	centerer := newShiftScale(t, WithCentering(true))
	Y, err := centerer.FitTransform(X)
	require.NoError(t, err)
	assert.Equal(t, []float64{3}, centerer.Mean())
	assert.True(t, mat.Equal(mat.NewDense(1, 5, []float64{-2, -1, 0, 1, 2}), Y))

	tr := newShiftScale(t, WithCentering(true), WithScaling(ScalingMaxAbs))
	Y, err = tr.FitTransform(X)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5}, tr.Scale())
	assert.Equal(t, []float64{0}, tr.Shift())
	assert.True(t, mat.Equal(mat.NewDense(1, 5, []float64{-1, -0.5, 0, 0.5, 1}), Y))

	back, err := tr.InverseTransform(Y, nil)
	require.NoError(t, err)
	assert.True(t, mat.Equal(X, back), "got %v", mat.Formatted(back))
}

func TestShiftScaleRoundTrip(t *testing.T) {
	X := snapshots(12, 40, 1)
	for _, s := range append(Scalings(), ScalingNone) {
		for _, centering := range []bool{false, true} {
			for _, byRow := range []bool{false, true} {
				name := s.String()
				if centering {
					name += "/centered"
				}
				if byRow {
					name += "/byrow"
				}
				t.Run(name, func(t *testing.T) {
					tr := newShiftScale(t, WithCentering(centering), WithScaling(s), WithByRow(byRow))
					Y, err := tr.FitTransform(X)
					require.NoError(t, err)
					assert.Equal(t, 12, tr.StateDimension())

					back, err := tr.InverseTransform(Y, nil)
					require.NoError(t, err)
					requireClose(t, X, back, 1e-12)

					require.NoError(t, tr.Verify(X))
				})
			}
		}
	}
}

func TestShiftScaleCenteringZeroMean(t *testing.T) {
	X := snapshots(6, 30, 2)
	tr := newShiftScale(t, WithCentering(true))
	Y, err := tr.FitTransform(X)
	require.NoError(t, err)

	row := make([]float64, 30)
	for i := 0; i < 6; i++ {
		assert.InDelta(t, 0, stat.Mean(mat.Row(row, i, Y), nil), 1e-12)
	}
	assert.Nil(t, tr.Scale())
	assert.Nil(t, tr.Shift())
}

func TestShiftScaleMinMaxBounds(t *testing.T) {
	X := snapshots(5, 25, 3)
	tr := newShiftScale(t, WithScaling(ScalingMinMax))
	low, high := tr.ScaleTo()
	assert.Equal(t, 0.0, low)
	assert.Equal(t, 1.0, high)

	Y, err := tr.FitTransform(X)
	require.NoError(t, err)
	data := mat.DenseCopyOf(Y).RawMatrix().Data
	for _, v := range data {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
	assert.Equal(t, 0.0, floats.Min(data))
	assert.Equal(t, 1.0, floats.Max(data))

	byRow := newShiftScale(t, WithScaling(ScalingMinMaxSym), WithScaleTo(-2, 3), WithByRow(true))
	Y, err = byRow.FitTransform(X)
	require.NoError(t, err)
	row := make([]float64, 25)
	for i := 0; i < 5; i++ {
		mat.Row(row, i, Y)
		assert.Equal(t, -2.0, floats.Min(row))
		assert.Equal(t, 3.0, floats.Max(row))
	}
	assert.Len(t, byRow.Scale(), 5)
}

func TestShiftScaleMinMaxExactBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(14))
	for trial := 0; trial < 2000; trial++ {
		X := mat.NewDense(3, 7, nil)
		for i := 0; i < 3; i++ {
			for j := 0; j < 7; j++ {
				X.Set(i, j, 5+13*rng.NormFloat64())
			}
		}
		centering := trial%2 == 0
		byRow := trial%4 < 2
		tr := newShiftScale(t, WithCentering(centering), WithScaling(ScalingMinMax), WithByRow(byRow))

		Y, err := tr.FitTransform(X)
		require.NoError(t, err)
		inPlace := mat.DenseCopyOf(X)
		require.NoError(t, newShiftScale(t, WithCentering(centering), WithScaling(ScalingMinMax), WithByRow(byRow)).
			FitTransformInPlace(inPlace))
		require.True(t, mat.Equal(Y, inPlace), "trial %d", trial)

		groups := [][]float64{mat.DenseCopyOf(Y).RawMatrix().Data}
		if byRow {
			groups = [][]float64{Y.RawRowView(0), Y.RawRowView(1), Y.RawRowView(2)}
		}
		for _, g := range groups {
			for _, v := range g {
				require.True(t, v >= 0 && v <= 1, "trial %d entry %v out of [0,1]", trial, v)
			}
			require.Equal(t, 0.0, floats.Min(g), "trial %d", trial)
			require.Equal(t, 1.0, floats.Max(g), "trial %d", trial)
		}

		back, err := tr.InverseTransform(Y, nil)
		require.NoError(t, err)
		requireClose(t, X, back, 1e-13)
	}
}

func TestShiftScaleMeanOverflow(t *testing.T) {
	X := mat.NewDense(2, 3, []float64{
		1, 2, 3,
		1.7e308, 1.7e308, 1.7e308,
	})
	tr := newShiftScale(t, WithCentering(true))
	_, err := tr.FitTransform(X)
	var numErr *errors.NumericalInstabilityError
	require.True(t, errors.As(err, &numErr), "got %v", err)
	assert.False(t, tr.IsFitted())

	_, err = newShiftScale(t).FitTransform(X)
	assert.NoError(t, err)
}

func TestShiftScaleStandard(t *testing.T) {
	X := snapshots(4, 50, 4)
	tr := newShiftScale(t, WithScaling(ScalingStandard), WithByRow(true))
	Y, err := tr.FitTransform(X)
	require.NoError(t, err)
	row := make([]float64, 50)
	for i := 0; i < 4; i++ {
		mean, variance := stat.PopMeanVariance(mat.Row(row, i, Y), nil)
		assert.InDelta(t, 0, mean, 1e-12)
		assert.InDelta(t, 1, variance, 1e-12)
	}
}

func TestShiftScaleMaxAbsSym(t *testing.T) {
	X := snapshots(3, 20, 5)
	tr := newShiftScale(t, WithScaling(ScalingMaxAbsSym))
	Y, err := tr.FitTransform(X)
	require.NoError(t, err)
	data := mat.DenseCopyOf(Y).RawMatrix().Data
	assert.InDelta(t, 0, stat.Mean(data, nil), 1e-12)
	assert.InDelta(t, 1, floats.Norm(data, math.Inf(1)), 1e-12)
}

func TestShiftScaleDegenerate(t *testing.T) {
	constant := mat.NewDense(1, 4, []float64{2, 2, 2, 2})
	tr := newShiftScale(t, WithScaling(ScalingMinMax))
	_, err := tr.FitTransform(constant)
	var degErr *errors.DegenerateDataError
	require.True(t, errors.As(err, &degErr), "got %v", err)
	assert.Equal(t, "minmax", degErr.Scaling)
	assert.False(t, tr.IsFitted())

	// second row is constant
	X := mat.NewDense(2, 3, []float64{1, 2, 3, 5, 5, 5})
	byRow := newShiftScale(t, WithScaling(ScalingMaxAbs), WithCentering(true), WithByRow(true))
	require.NoError(t, byRow.FitTransformInPlace(mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})))
	before := mat.DenseCopyOf(X)
	err = byRow.FitTransformInPlace(X)
	require.True(t, errors.As(err, &degErr))
	assert.Equal(t, 1, degErr.Row)
	assert.True(t, mat.Equal(before, X), "failed in-place fit must not touch its input")
}

func TestShiftScaleRejectsNonFinite(t *testing.T) {
	X := mat.NewDense(2, 2, []float64{1, math.NaN(), 3, 4})
	_, err := newShiftScale(t, WithCentering(true)).FitTransform(X)
	var numErr *errors.NumericalInstabilityError
	require.True(t, errors.As(err, &numErr))
	assert.Equal(t, 0, numErr.Row)
	assert.Equal(t, 1, numErr.Col)
}

func TestShiftScaleNotFitted(t *testing.T) {
	tr := newShiftScale(t, WithCentering(true))
	X := snapshots(3, 4, 6)

	_, err := tr.Transform(X)
	var nfErr *errors.NotFittedError
	require.True(t, errors.As(err, &nfErr))
	assert.Equal(t, "Transform", nfErr.Method)

	_, err = tr.InverseTransform(X, nil)
	require.True(t, errors.As(err, &nfErr))
	_, err = tr.TransformDdts(X)
	require.True(t, errors.As(err, &nfErr))
	require.True(t, errors.As(tr.TransformInPlace(X), &nfErr))
	assert.Equal(t, 0, tr.StateDimension())
}

func TestShiftScaleDimensionMismatch(t *testing.T) {
	tr := newShiftScale(t, WithCentering(true), WithScaling(ScalingStandard))
	_, err := tr.FitTransform(snapshots(3, 10, 7))
	require.NoError(t, err)

	_, err = tr.Transform(snapshots(2, 10, 7))
	var dimErr *errors.DimensionError
	require.True(t, errors.As(err, &dimErr))
	assert.Equal(t, 3, dimErr.Expected)
	assert.Equal(t, 2, dimErr.Got)
	assert.Equal(t, 0, dimErr.Axis)

	_, err = tr.TransformDdts(snapshots(4, 10, 7))
	require.True(t, errors.As(err, &dimErr))

	// a refit adopts the new state dimension
	_, err = tr.FitTransform(snapshots(5, 10, 7))
	require.NoError(t, err)
	assert.Equal(t, 5, tr.StateDimension())
}

func TestShiftScaleLocs(t *testing.T) {
	X := snapshots(4, 8, 8)
	tr := newShiftScale(t, WithCentering(true), WithScaling(ScalingMaxAbs), WithByRow(true))
	Y, err := tr.FitTransform(X)
	require.NoError(t, err)

	locs := []int{3, 1}
	partial := mat.NewDense(2, 8, nil)
	want := mat.NewDense(2, 8, nil)
	for p, i := range locs {
		partial.SetRow(p, Y.RawRowView(i))
		want.SetRow(p, X.RawRowView(i))
	}
	got, err := tr.InverseTransform(partial, locs)
	require.NoError(t, err)
	requireClose(t, want, got, 1e-13)

	_, err = tr.InverseTransform(partial, []int{3, 4})
	var valErr *errors.ValueError
	require.True(t, errors.As(err, &valErr))

	_, err = tr.InverseTransform(partial, []int{0, 1, 2})
	var dimErr *errors.DimensionError
	require.True(t, errors.As(err, &dimErr))
	assert.Equal(t, 3, dimErr.Expected)
}

func TestShiftScaleDdtsLinearity(t *testing.T) {
	X := snapshots(3, 15, 9)
	ddts := snapshots(3, 15, 10)

	tr := newShiftScale(t, WithCentering(true), WithScaling(ScalingStandard))
	_, err := tr.FitTransform(X)
	require.NoError(t, err)
	got, err := tr.TransformDdts(ddts)
	require.NoError(t, err)
	var want mat.Dense
	want.Scale(tr.Scale()[0], ddts)
	assert.True(t, mat.EqualApprox(&want, got, 1e-14))

	byRow := newShiftScale(t, WithScaling(ScalingMinMax), WithByRow(true))
	_, err = byRow.FitTransform(X)
	require.NoError(t, err)
	got, err = byRow.TransformDdts(ddts)
	require.NoError(t, err)
	for i, s := range byRow.Scale() {
		for j := 0; j < 15; j++ {
			assert.InDelta(t, s*ddts.At(i, j), got.At(i, j), 1e-14)
		}
	}

	centerOnly := newShiftScale(t, WithCentering(true))
	_, err = centerOnly.FitTransform(X)
	require.NoError(t, err)
	got, err = centerOnly.TransformDdts(ddts)
	require.NoError(t, err)
	assert.True(t, mat.Equal(ddts, got), "centering must not affect derivatives")
}

func TestShiftScaleCopyAndInPlace(t *testing.T) {
	X := snapshots(5, 12, 11)
	original := mat.DenseCopyOf(X)

	tr := newShiftScale(t, WithCentering(true), WithScaling(ScalingMinMaxSym))
	Y, err := tr.FitTransform(X)
	require.NoError(t, err)
	_, err = tr.Transform(X)
	require.NoError(t, err)
	_, err = tr.InverseTransform(Y, nil)
	require.NoError(t, err)
	_, err = tr.TransformDdts(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(original, X), "copy path must not mutate its input")

	twin := newShiftScale(t, WithCentering(true), WithScaling(ScalingMinMaxSym))
	inPlace := mat.DenseCopyOf(X)
	data := inPlace.RawMatrix().Data
	require.NoError(t, twin.FitTransformInPlace(inPlace))
	assert.True(t, mat.Equal(Y, inPlace))
	assert.Same(t, &data[0], &inPlace.RawMatrix().Data[0], "in-place path must reuse the caller's storage")

	require.NoError(t, twin.InverseTransformInPlace(inPlace, nil))
	requireClose(t, original, inPlace, 1e-13)
	require.NoError(t, twin.TransformInPlace(inPlace))
	assert.True(t, mat.EqualApprox(Y, inPlace, 1e-12))

	ddts := mat.DenseCopyOf(X)
	require.NoError(t, twin.TransformDdtsInPlace(ddts))
	want, err := twin.TransformDdts(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, ddts))
}

func TestShiftScaleIdempotentRefit(t *testing.T) {
	X := snapshots(6, 20, 12)
	tr := newShiftScale(t, WithCentering(true), WithScaling(ScalingStandard), WithByRow(true))
	_, err := tr.FitTransform(X)
	require.NoError(t, err)
	mean, scale, shift := tr.Mean(), tr.Scale(), tr.Shift()

	require.NoError(t, tr.Fit(X))
	assert.Equal(t, mean, tr.Mean())
	assert.Equal(t, scale, tr.Scale())
	assert.Equal(t, shift, tr.Shift())

	// accessors return copies
	tr.Mean()[0] = 1e9
	assert.Equal(t, mean, tr.Mean())
}

func TestShiftScaleConfiguration(t *testing.T) {
	tests := []struct {
		name  string
		opts  []Option
		param string
	}{
		{"unknown scaling", []Option{WithScaling(Scaling(42))}, "scaling"},
		{"inverted scale_to", []Option{WithScaling(ScalingMinMax), WithScaleTo(1, 0)}, "scale_to"},
		{"scale_to without minmax", []Option{WithScaling(ScalingStandard), WithScaleTo(0, 1)}, "scale_to"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewShiftScaleTransformer(tt.opts...)
			var cfgErr *errors.ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tt.param, cfgErr.ParamName)
		})
	}
}

func TestShiftScaleReset(t *testing.T) {
	tr := newShiftScale(t, WithCentering(true), WithScaling(ScalingMaxAbs))
	_, err := tr.FitTransform(snapshots(2, 5, 13))
	require.NoError(t, err)
	tr.Reset()
	assert.False(t, tr.IsFitted())
	assert.Nil(t, tr.Mean())
	_, err = tr.Transform(snapshots(2, 5, 13))
	assert.Error(t, err)
}

func TestShiftScaleLogging(t *testing.T) {
	logger, buf := log.NewTestLogger(log.LevelDebug)
	tr := newShiftScale(t,
		WithName("pressure"),
		WithCentering(true),
		WithScaling(ScalingMaxAbs),
		WithVerbose(true),
		WithLogger(logger),
	)
	_, err := tr.FitTransform(mat.NewDense(1, 5, []float64{1, 2, 3, 4, 5}))
	require.NoError(t, err)

	assert.True(t, logger.ContainsMessage("fitted"))
	assert.True(t, logger.ContainsMessage("learned transformation"))
	assert.True(t, logger.ContainsField(log.OperationKey, log.OperationFitTransform))
	assert.True(t, logger.ContainsField(log.VariableKey, "pressure"))
	assert.True(t, logger.ContainsField(log.StateDimensionKey, float64(1)))

	summary, ok := logger.Find("learned transformation")
	require.True(t, ok, buf.String())
	assert.Equal(t, "info", summary.Level())
	assert.Equal(t, "min=1.0000e+00 mean=3.0000e+00 max=5.0000e+00", summary[log.StatsBeforeKey])
	assert.Equal(t, "min=-1.0000e+00 mean=0.0000e+00 max=1.0000e+00", summary[log.StatsAfterKey])

	quiet, quietBuf := log.NewTestLogger(log.LevelInfo)
	tr = newShiftScale(t, WithCentering(true), WithLogger(quiet))
	_, err = tr.FitTransform(snapshots(3, 10, 14))
	require.NoError(t, err)
	assert.Empty(t, quietBuf.String(), "non-verbose fits only log at debug level")
}

func TestShiftScaleStringAndParams(t *testing.T) {
	tr := newShiftScale(t, WithName("u"), WithCentering(true), WithScaling(ScalingMinMax), WithScaleTo(-1, 2))
	s := tr.String()
	assert.True(t, strings.HasPrefix(s, `ShiftScaleTransformer for variable "u"`))
	assert.Contains(t, s, "* centering")
	assert.Contains(t, s, "* minmax scaling to [-1, 2]")

	params := tr.GetParams()
	assert.Equal(t, "minmax", params["scaling"])
	assert.Equal(t, [2]float64{-1, 2}, params["scale_to"])

	assert.Contains(t, newShiftScale(t).String(), "identity")
	assert.Equal(t, model.CapDdts|model.CapInPlace|model.CapPersist, model.Capabilities(tr))
}

func TestShiftScaleEqual(t *testing.T) {
	X := snapshots(3, 9, 15)
	a := newShiftScale(t, WithCentering(true), WithScaling(ScalingStandard))
	b := newShiftScale(t, WithCentering(true), WithScaling(ScalingStandard))
	assert.True(t, a.Equal(b))
	_, err := a.FitTransform(X)
	require.NoError(t, err)
	assert.False(t, a.Equal(b))
	_, err = b.FitTransform(X)
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(nil))
}
