package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/romprep/pkg/store"
)

// Transformer はスナップショット行列（n 行 × k 列）に対する可逆変換のインターフェース。
// 入力は読み取り専用として扱われ、戻り値は常に新しい行列になる。
type Transformer interface {
	// FitTransform は変換パラメータを学習し、同じデータを変換する
	FitTransform(states mat.Matrix) (*mat.Dense, error)

	// Transform は学習済みパラメータでデータを変換する
	Transform(states mat.Matrix) (*mat.Dense, error)

	// InverseTransform は Transform の逆変換を行う。
	// locs が nil でない場合、states は locs の行だけを含むものとして扱う。
	InverseTransform(states mat.Matrix, locs []int) (*mat.Dense, error)

	// StateDimension は学習時の行数 n を返す（未学習なら 0）
	StateDimension() int
}

// DdtsTransformer は時間微分データに変換の線形部分を適用できる変換器。
// 対応しない場合は errors.ErrNotImplemented を返してよい。
type DdtsTransformer interface {
	TransformDdts(ddts mat.Matrix) (*mat.Dense, error)
}

// InPlaceTransformer は呼び出し側の行列を直接書き換える変換器。
type InPlaceTransformer interface {
	FitTransformInPlace(states *mat.Dense) error
	TransformInPlace(states *mat.Dense) error
	InverseTransformInPlace(states *mat.Dense, locs []int) error
}

// Persistable は階層コンテナのグループに保存できる変換器。
type Persistable interface {
	// Kind は読み込み時のディスパッチに使う種別タグ
	Kind() string

	// SaveGroup は学習済み状態をグループに書き込む
	SaveGroup(g *store.Group) error
}

// Named は変数名を持つ変換器。
type Named interface {
	Name() string
}

// Capability は任意機能のビット集合
type Capability uint8

const (
	// CapDdts は TransformDdts をサポートする
	CapDdts Capability = 1 << iota
	// CapInPlace はインプレース変換をサポートする
	CapInPlace
	// CapPersist は保存・読み込みをサポートする
	CapPersist
)

// CapabilityReporter は型から推論される機能を上書きする変換器。
// 複合変換器は子の機能に応じて機能を縮退させるためにこれを実装する。
type CapabilityReporter interface {
	Capabilities() Capability
}

// Capabilities は t が提供する任意機能を返す
func Capabilities(t Transformer) Capability {
	if r, ok := t.(CapabilityReporter); ok {
		return r.Capabilities()
	}
	var c Capability
	if _, ok := t.(DdtsTransformer); ok {
		c |= CapDdts
	}
	if _, ok := t.(InPlaceTransformer); ok {
		c |= CapInPlace
	}
	if _, ok := t.(Persistable); ok {
		c |= CapPersist
	}
	return c
}

// Supports は t が want の全機能を提供するかどうかを返す
func Supports(t Transformer, want Capability) bool {
	return Capabilities(t)&want == want
}
