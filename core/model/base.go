package model

// EstimatorState は変換器の学習状態を表す
type EstimatorState int

const (
	// NotFitted は変換器が未学習の状態
	NotFitted EstimatorState = iota
	// Fitted は変換器が学習済みの状態
	Fitted
)

// BaseEstimator は全ての変換器に埋め込まれる学習状態の管理構造体。
// 学習時に確定した状態次元 n を保持し、以降の入力の行数検証に使われる。
type BaseEstimator struct {
	state          EstimatorState
	stateDimension int
}

// IsFitted は変換器が学習済みかどうかを返す
func (e *BaseEstimator) IsFitted() bool {
	return e.state == Fitted
}

// SetFitted は状態次元を記録し、学習済み状態に設定する
func (e *BaseEstimator) SetFitted(stateDimension int) {
	e.stateDimension = stateDimension
	e.state = Fitted
}

// StateDimension は学習時の行数 n を返す。未学習なら 0。
func (e *BaseEstimator) StateDimension() int {
	if e.state != Fitted {
		return 0
	}
	return e.stateDimension
}

// Reset は変換器を初期状態にリセットする
func (e *BaseEstimator) Reset() {
	e.state = NotFitted
	e.stateDimension = 0
}
