package matio

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/romprep/pkg/errors"
)

func TestReadCSV(t *testing.T) {
	input := "# pressure\n1, 2, 3\n\n4,5.5,-6e-3\n"
	X, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.True(t, mat.Equal(mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5.5, -6e-3}), X))
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"ragged", "1,2\n3\n"},
		{"not a number", "1,x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}

	_, err := ReadCSV(strings.NewReader("# only a comment\n"))
	assert.ErrorIs(t, err, errors.ErrEmptyData)
}

func TestWriteReadRoundTrip(t *testing.T) {
	X := mat.NewDense(2, 3, []float64{math.Pi, -1e-300, 0, 1.0 / 3, 7, math.MaxFloat64})

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, X))
	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.True(t, mat.Equal(X, got))

	path := filepath.Join(t.TempDir(), "X.csv")
	require.NoError(t, WriteFile(path, X))
	got, err = ReadFile(path)
	require.NoError(t, err)
	assert.True(t, mat.Equal(X, got))

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestParseLocs(t *testing.T) {
	locs, err := ParseLocs(" 0, 3,4 ")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3, 4}, locs)

	locs, err = ParseLocs("")
	require.NoError(t, err)
	assert.Nil(t, locs)

	_, err = ParseLocs("1,,2")
	var valErr *errors.ValueError
	assert.True(t, errors.As(err, &valErr))
}
