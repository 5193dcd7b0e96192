package preprocessing

import (
	"github.com/YuminosukeSato/romprep/pkg/log"
)

// Option is a function that configures ShiftScaleTransformer
type Option func(*ShiftScaleTransformer)

// WithName sets the variable name of the transformer
func WithName(name string) Option {
	return func(t *ShiftScaleTransformer) {
		t.name = name
	}
}

// WithCentering sets whether to subtract the row-wise mean
func WithCentering(centering bool) Option {
	return func(t *ShiftScaleTransformer) {
		t.centering = centering
	}
}

// WithScaling sets the scaling policy
func WithScaling(s Scaling) Option {
	return func(t *ShiftScaleTransformer) {
		t.scaling = s
	}
}

// WithScaleTo sets the target interval of the minmax policies
func WithScaleTo(low, high float64) Option {
	return func(t *ShiftScaleTransformer) {
		t.scaleTo = [2]float64{low, high}
		t.scaleToSet = true
	}
}

// WithByRow learns one (scale, shift) pair per row instead of one for the whole matrix
func WithByRow(byRow bool) Option {
	return func(t *ShiftScaleTransformer) {
		t.byRow = byRow
	}
}

// WithVerbose enables summaries of the data before and after fitting
func WithVerbose(verbose bool) Option {
	return func(t *ShiftScaleTransformer) {
		t.verbose = verbose
	}
}

// WithLogger replaces the default logger
func WithLogger(logger log.Logger) Option {
	return func(t *ShiftScaleTransformer) {
		t.logger = logger
	}
}

// MultiOption is a function that configures TransformerMulti
type MultiOption func(*TransformerMulti)

// WithVariableSizes fixes the number of rows of each variable. Without it the
// joint state is split into equal parts when first fitted.
func WithVariableSizes(sizes ...int) MultiOption {
	return func(m *TransformerMulti) {
		m.sizes = append([]int(nil), sizes...)
	}
}

// WithVariableNames overrides the variable names
func WithVariableNames(names ...string) MultiOption {
	return func(m *TransformerMulti) {
		m.names = append([]string(nil), names...)
	}
}

// WithMultiLogger replaces the default logger of a TransformerMulti
func WithMultiLogger(logger log.Logger) MultiOption {
	return func(m *TransformerMulti) {
		m.logger = logger
	}
}
