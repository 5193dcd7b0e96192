// Package errors はプロジェクト全体のエラーハンドリングを提供します。
// 変換器の契約違反（未学習、次元不一致、退化データ、設定ミス、永続化、検証）を
// 構造化されたエラー型として表現し、cockroachdb/errors によるスタックトレースを付与します。
package errors

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// NotFittedError は変換器が未学習の状態で `Transform` や `InverseTransform` を呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("romprep: %s: transformer is not fitted yet. Call FitTransform() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// DimensionError は入力の行数が学習済みの状態次元と一致しない場合、
// または複合変換器の分割が行数を割り切れない場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows (state dimension), 1 for columns (snapshots)
}

func (e *DimensionError) Error() string {
	axisName := "snapshots"
	if e.Axis == 0 {
		axisName = "state rows"
	}
	return fmt.Sprintf("romprep: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// DegenerateDataError はスケーリングの分母（標準偏差、値域、最大絶対値）がゼロになった場合のエラーです。
type DegenerateDataError struct {
	Scaling  string
	Quantity string // "std", "range", "max-abs"
	Row      int    // -1 when the whole matrix was used
}

func (e *DegenerateDataError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("romprep: %s scaling: degenerate data in row %d (%s is zero)", e.Scaling, e.Row, e.Quantity)
	}
	return fmt.Sprintf("romprep: %s scaling: degenerate data (%s is zero)", e.Scaling, e.Quantity)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DegenerateDataError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("scaling", e.Scaling).
		Str("quantity", e.Quantity).
		Int("row", e.Row).
		Str("type", "DegenerateDataError")
}

// NewDegenerateDataError は新しいDegenerateDataErrorを作成し、スタックトレースを付与します。
func NewDegenerateDataError(scaling, quantity string, row int) error {
	err := &DegenerateDataError{Scaling: scaling, Quantity: quantity, Row: row}
	return errors.WithStack(err)
}

// ConfigurationError は変換器のハイパーパラメータや構成が不正な場合のエラーです。
// scale_to の範囲、重複した変数名、未知のスケーリング種別、子の数と行数指定の不一致などを示します。
type ConfigurationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("romprep: invalid configuration for '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ConfigurationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ConfigurationError")
}

// NewConfigurationError は新しいConfigurationErrorを作成し、スタックトレースを付与します。
func NewConfigurationError(param, reason string, value interface{}) error {
	err := &ConfigurationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// PersistenceError は保存・読み込みに失敗した場合のエラーです。
type PersistenceError struct {
	Op     string // "save" or "load"
	Path   string
	Key    string
	Reason string
	Err    error
}

func (e *PersistenceError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "romprep: %s %q", e.Op, e.Path)
	if e.Key != "" {
		fmt.Fprintf(&b, " key %q", e.Key)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *PersistenceError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("path", e.Path).
		Str("key", e.Key).
		Str("reason", e.Reason).
		Str("type", "PersistenceError")
}

// NewPersistenceError は新しいPersistenceErrorを作成し、スタックトレースを付与します。
func NewPersistenceError(op, path, key, reason string, cause error) error {
	err := &PersistenceError{Op: op, Path: path, Key: key, Reason: reason, Err: cause}
	return errors.WithStack(err)
}

// VerificationError は変換器の自己検証で特定の性質が満たされなかった場合のエラーです。
type VerificationError struct {
	Check   string
	Message string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("romprep: verification failed [%s]: %s", e.Check, e.Message)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *VerificationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("check", e.Check).
		Str("message", e.Message).
		Str("type", "VerificationError")
}

// NewVerificationError は新しいVerificationErrorを作成し、スタックトレースを付与します。
func NewVerificationError(check, format string, args ...interface{}) error {
	err := &VerificationError{Check: check, Message: fmt.Sprintf(format, args...)}
	return errors.WithStack(err)
}

// ValueError は引数の値が不適切な場合に発生するエラーです。
// 例えば、範囲外の行インデックスを locs に渡した場合など。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("romprep: %s: %s", e.Op, e.Message)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValueError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("message", e.Message).
		Str("type", "ValueError")
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrNotImplemented は任意機能（微分変換、永続化）を変換器が提供しない場合の番兵です。
	// 呼び出し側は失敗ではなく「非対応」の明示的なシグナルとして扱います。
	ErrNotImplemented = New("not implemented")

	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")
)
