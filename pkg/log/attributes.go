// Package log defines standard attribute keys for preprocessing operations.
//
// Using these keys keeps transformer logs consistent and filterable:
// "model.name" identifies the transformer type, "data.state_dimension" and
// "data.snapshots" describe the n×k shape of the state matrix being processed.

package log

// Transformer and Operation Context
const (
	// ModelNameKey identifies the type of transformer.
	// Examples: "ShiftScaleTransformer", "TransformerMulti"
	ModelNameKey = "model.name"

	// EstimatorIDKey is a unique identifier of one transformer instance.
	EstimatorIDKey = "estimator.id"

	// VariableKey names the variable a transformer is responsible for.
	VariableKey = "model.variable"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is performing the operation.
	ComponentKey = "ml.component"
)

// Data Shape and Characteristics
const (
	// StateDimensionKey is the number of rows n of a state matrix.
	StateDimensionKey = "data.state_dimension"

	// SnapshotsKey is the number of columns k of a state matrix.
	SnapshotsKey = "data.snapshots"

	// NumVariablesKey is the number of variables of a composite transformer.
	NumVariablesKey = "data.num_variables"

	// LocsKey is the number of row indices selected for a partial inverse.
	LocsKey = "data.locs"
)

// Learned Parameters and Statistics
const (
	// CenteringKey records whether mean-centering is enabled.
	CenteringKey = "params.centering"

	// ScalingKey records the scaling policy name.
	ScalingKey = "params.scaling"

	// StatsBeforeKey holds a summary of the raw data statistics.
	StatsBeforeKey = "stats.before"

	// StatsAfterKey holds a summary of the transformed data statistics.
	StatsAfterKey = "stats.after"

	// PathKey is the file path of a save or load operation.
	PathKey = "io.path"

	// CheckKey names a verification check.
	CheckKey = "verify.check"

	// RelErrorKey records a relative reconstruction error.
	RelErrorKey = "verify.relative_error"
)

// Error Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"
)

// Standard attribute values.
const (
	OperationFit              = "fit"
	OperationTransform        = "transform"
	OperationFitTransform     = "fit_transform"
	OperationInverseTransform = "inverse_transform"
	OperationTransformDdts    = "transform_ddts"
	OperationSave             = "save"
	OperationLoad             = "load"
	OperationVerify           = "verify"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorDegenerateData    = "DEGENERATE_DATA"
	ErrorConfiguration     = "CONFIGURATION"
	ErrorPersistence       = "PERSISTENCE"
	ErrorVerification      = "VERIFICATION"
)
