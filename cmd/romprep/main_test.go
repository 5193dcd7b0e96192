package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/romprep/pkg/errors"
	"github.com/YuminosukeSato/romprep/pkg/matio"
)

const pipeline = `
log_level: error
variables:
  - name: pressure
    size: 2
    centering: true
    scaling: minmax
  - name: velocity
    size: 2
    scaling: maxabs
`

type workspace struct {
	t   *testing.T
	dir string
}

func newWorkspace(t *testing.T) *workspace {
	w := &workspace{t: t, dir: t.TempDir()}
	require.NoError(t, os.WriteFile(w.path("pipeline.yaml"), []byte(pipeline), 0o644))
	require.NoError(t, matio.WriteFile(w.path("X.csv"), mat.NewDense(4, 5, []float64{
		1, 2, 3, 4, 5,
		10, 12, 9, 11, 13,
		-1, 0.5, 2, -3, 1,
		0.1, 0.2, 0.3, 0.4, -0.5,
	})))
	return w
}

func (w *workspace) path(name string) string { return filepath.Join(w.dir, name) }

func (w *workspace) run(args ...string) (string, error) {
	var out bytes.Buffer
	err := run(args, &out)
	return out.String(), err
}

func (w *workspace) read(name string) *mat.Dense {
	X, err := matio.ReadFile(w.path(name))
	require.NoError(w.t, err)
	return X
}

func TestFitTransformInverse(t *testing.T) {
	w := newWorkspace(t)
	_, err := w.run("fit", "-config", w.path("pipeline.yaml"), "-in", w.path("X.csv"),
		"-out", w.path("Y.csv"), "-save", w.path("t.db"))
	require.NoError(t, err)

	_, err = w.run("transform", "-load", w.path("t.db"), "-in", w.path("X.csv"), "-out", w.path("Y2.csv"))
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(w.read("Y.csv"), w.read("Y2.csv"), 1e-12))

	_, err = w.run("inverse", "-load", w.path("t.db"), "-in", w.path("Y.csv"), "-out", w.path("X2.csv"))
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(w.read("X.csv"), w.read("X2.csv"), 1e-12))

	rows := mat.DenseCopyOf(w.read("Y.csv").Slice(1, 3, 0, 5))
	require.NoError(t, matio.WriteFile(w.path("Yrows.csv"), rows))
	out, err := w.run("inverse", "-load", w.path("t.db"), "-in", w.path("Yrows.csv"), "-locs", "1,2")
	require.NoError(t, err)
	got, err := matio.ReadCSV(strings.NewReader(out))
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(w.read("X.csv").Slice(1, 3, 0, 5), got, 1e-12))
}

func TestFitRefusesOverwrite(t *testing.T) {
	w := newWorkspace(t)
	args := []string{"fit", "-config", w.path("pipeline.yaml"), "-in", w.path("X.csv"),
		"-out", w.path("Y.csv"), "-save", w.path("t.db")}
	_, err := w.run(args...)
	require.NoError(t, err)

	_, err = w.run(args...)
	var perr *errors.PersistenceError
	assert.True(t, errors.As(err, &perr), "got %v", err)

	_, err = w.run(append(args, "-overwrite")...)
	assert.NoError(t, err)
}

func TestDdts(t *testing.T) {
	w := newWorkspace(t)
	_, err := w.run("fit", "-config", w.path("pipeline.yaml"), "-in", w.path("X.csv"),
		"-out", w.path("Y.csv"), "-save", w.path("t.db"))
	require.NoError(t, err)

	out, err := w.run("ddts", "-load", w.path("t.db"), "-in", w.path("X.csv"))
	require.NoError(t, err)
	ddts, err := matio.ReadCSV(strings.NewReader(out))
	require.NoError(t, err)

	// Time derivatives only see the scale, so differences of transformed
	// snapshots equal transformed differences of raw snapshots.
	X, Y := w.read("X.csv"), w.read("Y.csv")
	for i := 0; i < 4; i++ {
		scale := (Y.At(i, 1) - Y.At(i, 0)) / (X.At(i, 1) - X.At(i, 0))
		for j := 0; j < 5; j++ {
			assert.InDelta(t, scale*X.At(i, j), ddts.At(i, j), 1e-9)
		}
	}
}

func TestVerifyCommand(t *testing.T) {
	w := newWorkspace(t)
	out, err := w.run("verify", "-config", w.path("pipeline.yaml"), "-in", w.path("X.csv"))
	require.NoError(t, err)
	assert.Contains(t, out, "all checks passed")
}

func TestInspect(t *testing.T) {
	w := newWorkspace(t)
	_, err := w.run("fit", "-config", w.path("pipeline.yaml"), "-in", w.path("X.csv"),
		"-out", w.path("Y.csv"), "-save", w.path("t.db"))
	require.NoError(t, err)

	out, err := w.run("inspect", "-load", w.path("t.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "TransformerMulti with 2 variables")
	assert.Contains(t, out, "pressure")

	out, err = w.run("inspect", "-load", w.path("t.db"), "-json")
	require.NoError(t, err)
	assert.Contains(t, out, `"kind": "TransformerMulti"`)
	assert.Contains(t, out, `"shift_"`)
}

func TestRunErrors(t *testing.T) {
	w := newWorkspace(t)

	_, err := w.run()
	assert.Error(t, err)

	_, err = w.run("bogus")
	assert.Error(t, err)

	_, err = w.run("fit", "-in", w.path("X.csv"))
	assert.Error(t, err)

	_, err = w.run("transform", "-load", w.path("missing.db"), "-in", w.path("X.csv"))
	var perr *errors.PersistenceError
	assert.True(t, errors.As(err, &perr), "got %v", err)

	out, err := w.run("version")
	require.NoError(t, err)
	assert.Equal(t, "romprep "+version+"\n", out)
}
