package log

import (
	"github.com/cockroachdb/errors"
)

// extractStacktrace returns the stack trace recorded by cockroachdb/errors, if any.
func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}

// stackMarshaler is installed as zerolog.ErrorStackMarshaler so that
// Event.Stack() emits the cockroachdb stack attached by pkg/errors.
func stackMarshaler(err error) interface{} {
	if st := extractStacktrace(err); st != "" {
		return st
	}
	return nil
}

// splitError separates a leading error value from key-value fields.
func splitError(fields []any) (error, []any) {
	if len(fields) > 0 && len(fields)%2 == 1 {
		if err, ok := fields[0].(error); ok {
			return err, fields[1:]
		}
	}
	return nil, fields
}
