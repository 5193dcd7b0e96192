package preprocessing

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/romprep/pkg/errors"
)

// checkRows は X の行数が want と一致するか確認する
func checkRows(op string, want int, X mat.Matrix) error {
	if r, _ := X.Dims(); r != want {
		return errors.NewDimensionError(op, want, r, 0)
	}
	return nil
}

// checkLocs は部分逆変換の行インデックスを検証する。
// locs が nil のときは X が全 n 行を持つ必要がある。
func checkLocs(op string, n int, locs []int, X mat.Matrix) error {
	if locs == nil {
		return checkRows(op, n, X)
	}
	if err := checkRows(op, len(locs), X); err != nil {
		return err
	}
	for _, i := range locs {
		if i < 0 || i >= n {
			return errors.NewValueError(op, fmt.Sprintf("loc %d out of range [0, %d)", i, n))
		}
	}
	return nil
}

// globalRow maps row i of a (possibly partial) matrix to its fitted row.
func globalRow(locs []int, i int) int {
	if locs == nil {
		return i
	}
	return locs[i]
}
