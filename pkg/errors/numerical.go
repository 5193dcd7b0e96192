package errors

import (
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// NumericalInstabilityError is returned when snapshot data or learned
// parameters contain NaN or Inf values.
type NumericalInstabilityError struct {
	Operation string
	Values    []float64
	Row       int
	Col       int
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("romprep: numerical instability detected in %s at (%d, %d). Values: [%s]",
		e.Operation, e.Row, e.Col, valStr)
}

// MarshalZerologObject adds the offending position and values to event.
func (e *NumericalInstabilityError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Operation).
		Floats64("values", e.Values).
		Int("row", e.Row).
		Int("col", e.Col).
		Str("type", "NumericalInstabilityError")
}

// NewNumericalInstabilityError creates a NumericalInstabilityError with a stack trace.
func NewNumericalInstabilityError(operation string, values []float64, row, col int) error {
	err := &NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Row:       row,
		Col:       col,
	}
	return errors.WithStack(err)
}

// CheckScalar checks a single learned parameter for numerical instability.
func CheckScalar(operation string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return NewNumericalInstabilityError(operation, []float64{value}, -1, -1)
	}
	return nil
}

// CheckMatrix checks all values in a matrix for numerical instability.
// The position of the first offending entry is reported.
func CheckMatrix(operation string, matrix interface{ At(int, int) float64 }, rows, cols int) error {
	var unstableValues []float64
	firstRow, firstCol := -1, -1

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := matrix.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				if firstRow < 0 {
					firstRow, firstCol = i, j
				}
				unstableValues = append(unstableValues, v)
				if len(unstableValues) >= 10 {
					break
				}
			}
		}
		if len(unstableValues) > 0 {
			break
		}
	}

	if len(unstableValues) > 0 {
		return NewNumericalInstabilityError(operation, unstableValues, firstRow, firstCol)
	}

	return nil
}
