package preprocessing

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/romprep/core/model"
	"github.com/YuminosukeSato/romprep/metrics"
	"github.com/YuminosukeSato/romprep/pkg/errors"
	"github.com/YuminosukeSato/romprep/pkg/store"
)

// snapshots returns an n×k matrix whose rows have different offsets and
// amplitudes, like stacked physical variables.
func snapshots(n, k int, seed int64) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	X := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		offset := 10 * rng.NormFloat64()
		amplitude := 1 + 5*rng.Float64()
		for j := 0; j < k; j++ {
			X.Set(i, j, offset+amplitude*rng.NormFloat64())
		}
	}
	return X
}

func newShiftScale(t *testing.T, opts ...Option) *ShiftScaleTransformer {
	t.Helper()
	tr, err := NewShiftScaleTransformer(opts...)
	require.NoError(t, err)
	return tr
}

func requireClose(t *testing.T, want, got mat.Matrix, tol float64) {
	t.Helper()
	rel, err := metrics.RelativeError(want, got)
	require.NoError(t, err)
	require.LessOrEqual(t, rel, tol, "relative error %.3e", rel)
}

// plainTransformer only implements the required operations.
type plainTransformer struct {
	inner *ShiftScaleTransformer
}

func newPlain(t *testing.T) *plainTransformer {
	return &plainTransformer{inner: newShiftScale(t, WithCentering(true))}
}

func (p *plainTransformer) FitTransform(states mat.Matrix) (*mat.Dense, error) {
	return p.inner.FitTransform(states)
}

func (p *plainTransformer) Transform(states mat.Matrix) (*mat.Dense, error) {
	return p.inner.Transform(states)
}

func (p *plainTransformer) InverseTransform(states mat.Matrix, locs []int) (*mat.Dense, error) {
	return p.inner.InverseTransform(states, locs)
}

func (p *plainTransformer) StateDimension() int {
	return p.inner.StateDimension()
}

// spyTransformer counts partial inverse calls.
type spyTransformer struct {
	*NullTransformer
	inverseCalls int
	lastLocs     []int
}

func (s *spyTransformer) InverseTransform(states mat.Matrix, locs []int) (*mat.Dense, error) {
	s.inverseCalls++
	s.lastLocs = locs
	return s.NullTransformer.InverseTransform(states, locs)
}

// failingSaver fails after writing part of its group.
type failingSaver struct {
	*NullTransformer
}

func (f *failingSaver) SaveGroup(g *store.Group) error {
	if err := g.SetAttr("meta/name", f.Name()); err != nil {
		return err
	}
	return errors.New("disk quota exceeded")
}

// panickingTransformer fits like an identity and panics when applied.
type panickingTransformer struct {
	*NullTransformer
}

func (p *panickingTransformer) Transform(mat.Matrix) (*mat.Dense, error) {
	panic("index out of range")
}

func (p *panickingTransformer) TransformInPlace(*mat.Dense) error {
	panic("index out of range")
}

func (p *panickingTransformer) InverseTransform(mat.Matrix, []int) (*mat.Dense, error) {
	panic("index out of range")
}

var (
	_ model.Transformer        = (*ShiftScaleTransformer)(nil)
	_ model.DdtsTransformer    = (*ShiftScaleTransformer)(nil)
	_ model.InPlaceTransformer = (*ShiftScaleTransformer)(nil)
	_ model.Persistable        = (*ShiftScaleTransformer)(nil)
	_ model.Transformer        = (*TransformerMulti)(nil)
	_ model.CapabilityReporter = (*TransformerMulti)(nil)
	_ model.Persistable        = (*NullTransformer)(nil)
)
