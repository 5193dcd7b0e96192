package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/romprep/pkg/errors"
)

// Scaling はスケーリング方針の閉じた列挙型
type Scaling int

const (
	// ScalingNone はスケーリングを行わない
	ScalingNone Scaling = iota
	// ScalingStandard は平均0・分散1に標準化する: scale = 1/σ, shift = -μ/σ
	ScalingStandard
	// ScalingMinMax は観測された [min, max] を目標区間（既定 [0, 1]）に写す
	ScalingMinMax
	// ScalingMinMaxSym は MinMax と同じで、既定の目標区間が [-1, 1]
	ScalingMinMaxSym
	// ScalingMaxAbs は最大絶対値で割る: scale = 1/max|x|, shift = 0
	ScalingMaxAbs
	// ScalingMaxAbsSym は平均を引いてから最大絶対値で割る
	ScalingMaxAbsSym

	numScalings
)

// scalingPolicy は各方針の係数計算
type scalingPolicy struct {
	name         string
	defaultRange [2]float64
	usesRange    bool
	factors      func(data []float64, target [2]float64) (scale, shift float64, quantity string, ok bool)
}

// scalingPolicies は Scaling で添字付けされた方針表。
// 配列長が numScalings なので、列挙子を追加して表を埋め忘れると要素がゼロ値になり、
// TestScalingTableComplete で検出される。
var scalingPolicies = [numScalings]scalingPolicy{
	ScalingNone: {
		name: "none",
		factors: func([]float64, [2]float64) (float64, float64, string, bool) {
			return 1, 0, "", true
		},
	},
	ScalingStandard: {
		name:    "standard",
		factors: standardFactors,
	},
	ScalingMinMax: {
		name:         "minmax",
		defaultRange: [2]float64{0, 1},
		usesRange:    true,
		factors:      minMaxFactors,
	},
	ScalingMinMaxSym: {
		name:         "minmaxsym",
		defaultRange: [2]float64{-1, 1},
		usesRange:    true,
		factors:      minMaxFactors,
	},
	ScalingMaxAbs: {
		name:    "maxabs",
		factors: maxAbsFactors,
	},
	ScalingMaxAbsSym: {
		name:    "maxabssym",
		factors: maxAbsSymFactors,
	},
}

func standardFactors(data []float64, _ [2]float64) (float64, float64, string, bool) {
	mean, variance := stat.PopMeanVariance(data, nil)
	std := math.Sqrt(variance)
	if std == 0 {
		return 0, 0, "std", false
	}
	return 1 / std, -mean / std, "std", true
}

func minMaxFactors(data []float64, target [2]float64) (float64, float64, string, bool) {
	lo, hi := floats.Min(data), floats.Max(data)
	if hi == lo {
		return 0, 0, "range", false
	}
	scale := (target[1] - target[0]) / (hi - lo)
	return scale, target[0] - scale*lo, "range", true
}

func maxAbsFactors(data []float64, _ [2]float64) (float64, float64, string, bool) {
	maxAbs := floats.Norm(data, math.Inf(1))
	if maxAbs == 0 {
		return 0, 0, "max-abs", false
	}
	return 1 / maxAbs, 0, "max-abs", true
}

func maxAbsSymFactors(data []float64, _ [2]float64) (float64, float64, string, bool) {
	mean := stat.Mean(data, nil)
	var maxAbs float64
	for _, v := range data {
		maxAbs = math.Max(maxAbs, math.Abs(v-mean))
	}
	if maxAbs == 0 {
		return 0, 0, "max-abs", false
	}
	scale := 1 / maxAbs
	return scale, -mean * scale, "max-abs", true
}

// ParseScaling はスケーリング名を解析する。"" と "none" は ScalingNone になる。
func ParseScaling(name string) (Scaling, error) {
	if name == "" {
		return ScalingNone, nil
	}
	for s := ScalingNone; s < numScalings; s++ {
		if scalingPolicies[s].name == name {
			return s, nil
		}
	}
	return ScalingNone, errors.NewConfigurationError("scaling", "unknown scaling policy", name)
}

// Scalings は対応する全方針を返す（ScalingNone を除く）
func Scalings() []Scaling {
	out := make([]Scaling, 0, numScalings-1)
	for s := ScalingNone + 1; s < numScalings; s++ {
		out = append(out, s)
	}
	return out
}

// Valid は s が既知の方針かどうかを返す
func (s Scaling) Valid() bool {
	return s >= ScalingNone && s < numScalings
}

// String はスケーリング名を返す
func (s Scaling) String() string {
	if !s.Valid() {
		return "invalid"
	}
	return scalingPolicies[s].name
}

// UsesRange は目標区間 scale_to を使う方針かどうかを返す
func (s Scaling) UsesRange() bool {
	return s.Valid() && scalingPolicies[s].usesRange
}

// DefaultRange は方針の既定の目標区間を返す
func (s Scaling) DefaultRange() [2]float64 {
	if !s.Valid() {
		return [2]float64{}
	}
	return scalingPolicies[s].defaultRange
}

// Factors は data から (scale, shift) を計算する。target は MinMax 系でのみ使われる。
// 分母（標準偏差、値域、最大絶対値）が 0 の場合は DegenerateDataError を返す。
//
// 使用例:
//
//	scale, shift, err := preprocessing.ScalingMaxAbs.Factors([]float64{-2, 1, 2}, [2]float64{})
//	// scale = 0.5, shift = 0
func (s Scaling) Factors(data []float64, target [2]float64) (scale, shift float64, err error) {
	return s.factors(data, target, -1)
}

func (s Scaling) factors(data []float64, target [2]float64, row int) (float64, float64, error) {
	if !s.Valid() {
		return 0, 0, errors.NewConfigurationError("scaling", "unknown scaling policy", int(s))
	}
	if len(data) == 0 {
		return 0, 0, errors.Wrap(errors.ErrEmptyData, "Scaling.Factors")
	}
	scale, shift, quantity, ok := scalingPolicies[s].factors(data, target)
	if !ok || math.IsInf(scale, 0) || math.IsNaN(scale) || math.IsInf(shift, 0) || math.IsNaN(shift) || scale == 0 {
		if quantity == "" {
			quantity = "scale"
		}
		return 0, 0, errors.NewDegenerateDataError(s.String(), quantity, row)
	}
	return scale, shift, nil
}

// ValidateScaleTo は目標区間 (low, high) を検証する
func ValidateScaleTo(low, high float64) error {
	if math.IsNaN(low) || math.IsNaN(high) || math.IsInf(low, 0) || math.IsInf(high, 0) {
		return errors.NewConfigurationError("scale_to", "bounds must be finite", [2]float64{low, high})
	}
	if !(low < high) {
		return errors.NewConfigurationError("scale_to", "lower bound must be below upper bound", [2]float64{low, high})
	}
	return nil
}

// applyAffine は y = scale*x + shift をその場で適用する
func applyAffine(row []float64, scale, shift float64) {
	for j, v := range row {
		row[j] = scale*v + shift
	}
}

// pinRange は中心化済みの学習データ row を目標区間 [low, high] に写す。
// extrema は学習時の最小値と最大値で、端点は丸め誤差なしで low と high になる。
func pinRange(row []float64, scale, shift float64, extrema [2]float64, low, high float64) {
	for j, v := range row {
		switch {
		case v <= extrema[0]:
			row[j] = low
		case v >= extrema[1]:
			row[j] = high
		default:
			row[j] = math.Max(low, math.Min(scale*v+shift, high))
		}
	}
}

// invertAffine は x = (y - shift) / scale をその場で適用する
func invertAffine(row []float64, scale, shift float64) {
	for j, v := range row {
		row[j] = (v - shift) / scale
	}
}
