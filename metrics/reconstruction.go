// Package metrics は変換の再構成誤差を測る指標を提供する。
// 逆変換の検証（Verify）や CLI のレポートで使われる。
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/romprep/pkg/errors"
)

func checkShapes(op string, want, got mat.Matrix) (int, int, error) {
	rWant, cWant := want.Dims()
	rGot, cGot := got.Dims()
	if rWant == 0 || cWant == 0 {
		return 0, 0, errors.NewValueError(op, "empty matrix")
	}
	if rWant != rGot {
		return 0, 0, errors.NewDimensionError(op, rWant, rGot, 0)
	}
	if cWant != cGot {
		return 0, 0, errors.NewDimensionError(op, cWant, cGot, 1)
	}
	return rWant, cWant, nil
}

// difference は want - got を返す
func difference(want, got mat.Matrix) *mat.Dense {
	var diff mat.Dense
	diff.Sub(want, got)
	return &diff
}

// MSE は行列全要素の平均二乗誤差を計算する
func MSE(want, got mat.Matrix) (float64, error) {
	r, c, err := checkShapes("MSE", want, got)
	if err != nil {
		return 0, err
	}
	fro := mat.Norm(difference(want, got), 2)
	return fro * fro / float64(r*c), nil
}

// MaxAbsError は要素ごとの絶対誤差の最大値を計算する
func MaxAbsError(want, got mat.Matrix) (float64, error) {
	r, c, err := checkShapes("MaxAbsError", want, got)
	if err != nil {
		return 0, err
	}
	// mat.Norm の Inf ノルムは最大行和なので、要素ごとに走査する
	var maxAbs float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			maxAbs = math.Max(maxAbs, math.Abs(want.At(i, j)-got.At(i, j)))
		}
	}
	return maxAbs, nil
}

// RelativeError は相対フロベニウス誤差 ||want - got||_F / ||want||_F を計算する。
// ||want||_F が 0 の場合は絶対誤差 ||got||_F を返す。
func RelativeError(want, got mat.Matrix) (float64, error) {
	if _, _, err := checkShapes("RelativeError", want, got); err != nil {
		return 0, err
	}
	num := mat.Norm(difference(want, got), 2)
	den := mat.Norm(want, 2)
	if den == 0 {
		return num, nil
	}
	return num / den, nil
}
