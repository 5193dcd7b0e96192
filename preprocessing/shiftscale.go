package preprocessing

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/romprep/core/model"
	"github.com/YuminosukeSato/romprep/core/parallel"
	"github.com/YuminosukeSato/romprep/pkg/errors"
	"github.com/YuminosukeSato/romprep/pkg/log"
	"github.com/YuminosukeSato/romprep/report"
)

// ShiftScaleTransformer は1変数のスナップショット行列に対する
// 平均中心化（シフト）とアフィンスケーリングの組み合わせ。
//
// 変換は行ごとの平均を引いてから y = scale*x + shift を適用する。
// 逆変換は逆順に (y - shift) / scale を計算してから平均を足し戻す。
// 時間微分には線形部分（scale）のみを適用する。
type ShiftScaleTransformer struct {
	model.BaseEstimator

	name       string
	centering  bool
	scaling    Scaling
	scaleTo    [2]float64
	scaleToSet bool
	byRow      bool
	verbose    bool

	id     string
	logger log.Logger

	// 学習済みパラメータ
	mean  []float64 // 長さ n（centering のときのみ）
	scale []float64 // 長さ 1、byRow のときは長さ n（scaling のときのみ）
	shift []float64

	// 直近の学習データ（中心化後）の最小値・最大値。minmax 系の学習時出力を
	// 目標区間の端点に揃えるためだけに使い、保存しない。
	extrema [][2]float64
}

// NewShiftScaleTransformer は新しい ShiftScaleTransformer を作成する
//
// 使用例:
//
//	tr, err := preprocessing.NewShiftScaleTransformer(
//		preprocessing.WithName("pressure"),
//		preprocessing.WithCentering(true),
//		preprocessing.WithScaling(preprocessing.ScalingMaxAbs),
//	)
//	Y, err := tr.FitTransform(X)
//	X2, err := tr.InverseTransform(Y, nil)
func NewShiftScaleTransformer(opts ...Option) (*ShiftScaleTransformer, error) {
	t := &ShiftScaleTransformer{id: uuid.NewString()}
	for _, opt := range opts {
		opt(t)
	}
	if !t.scaling.Valid() {
		return nil, errors.NewConfigurationError("scaling", "unknown scaling policy", int(t.scaling))
	}
	if t.scaleToSet {
		if !t.scaling.UsesRange() {
			return nil, errors.NewConfigurationError("scale_to", "only used by the minmax and minmaxsym policies", t.scaling.String())
		}
		if err := ValidateScaleTo(t.scaleTo[0], t.scaleTo[1]); err != nil {
			return nil, err
		}
	} else {
		t.scaleTo = t.scaling.DefaultRange()
	}
	if t.logger == nil {
		t.logger = log.GetLoggerWithName("preprocessing")
	}
	fields := []any{log.ModelNameKey, KindShiftScale, log.EstimatorIDKey, t.id}
	if t.name != "" {
		fields = append(fields, log.VariableKey, t.name)
	}
	t.logger = t.logger.With(fields...)
	return t, nil
}

// Name returns the variable name.
func (t *ShiftScaleTransformer) Name() string { return t.name }

// Centering reports whether the row-wise mean is subtracted.
func (t *ShiftScaleTransformer) Centering() bool { return t.centering }

// Scaling returns the scaling policy.
func (t *ShiftScaleTransformer) Scaling() Scaling { return t.scaling }

// ScaleTo returns the target interval of the minmax policies.
func (t *ShiftScaleTransformer) ScaleTo() (low, high float64) { return t.scaleTo[0], t.scaleTo[1] }

// ByRow reports whether one (scale, shift) pair is learned per row.
func (t *ShiftScaleTransformer) ByRow() bool { return t.byRow }

// Verbose reports whether fit summaries are logged.
func (t *ShiftScaleTransformer) Verbose() bool { return t.verbose }

// Mean returns a copy of the learned row means, or nil without centering.
func (t *ShiftScaleTransformer) Mean() []float64 { return cloneFloats(t.mean) }

// Scale returns a copy of the learned scale factors, or nil without scaling.
func (t *ShiftScaleTransformer) Scale() []float64 { return cloneFloats(t.scale) }

// Shift returns a copy of the learned shifts, or nil without scaling.
func (t *ShiftScaleTransformer) Shift() []float64 { return cloneFloats(t.shift) }

func cloneFloats(v []float64) []float64 {
	if v == nil {
		return nil
	}
	return append([]float64(nil), v...)
}

// Reset は学習済みパラメータを破棄する
func (t *ShiftScaleTransformer) Reset() {
	t.BaseEstimator.Reset()
	t.mean, t.scale, t.shift, t.extrema = nil, nil, nil, nil
}

// Fit は変換パラメータを学習する。入力は変更されない。
func (t *ShiftScaleTransformer) Fit(states mat.Matrix) error {
	return t.learn(states, log.OperationFit)
}

// FitTransform はパラメータを学習し、変換した新しい行列を返す。入力は変更されない。
func (t *ShiftScaleTransformer) FitTransform(states mat.Matrix) (*mat.Dense, error) {
	if err := t.learn(states, log.OperationFitTransform); err != nil {
		return nil, err
	}
	out := mat.DenseCopyOf(states)
	t.fitForward(out)
	t.summarize(states, out)
	return out, nil
}

// FitTransformInPlace はパラメータを学習し、states をその場で変換する。
// 失敗した場合 states は変更されない。
func (t *ShiftScaleTransformer) FitTransformInPlace(states *mat.Dense) error {
	if err := t.learn(states, log.OperationFitTransform); err != nil {
		return err
	}
	var before *mat.Dense
	if t.verbose {
		before = mat.DenseCopyOf(states)
	}
	t.fitForward(states)
	if before != nil {
		t.summarize(before, states)
	}
	return nil
}

// learn computes mean, scale and shift from states and commits them only
// when every factor could be computed.
func (t *ShiftScaleTransformer) learn(states mat.Matrix, op string) error {
	n, k := states.Dims()
	if n == 0 || k == 0 {
		return errors.Wrapf(errors.ErrEmptyData, "%s.%s", KindShiftScale, op)
	}
	if err := errors.CheckMatrix(KindShiftScale+"."+op, states, n, k); err != nil {
		return err
	}

	row := make([]float64, k)
	var mean, scale, shift []float64
	if t.centering {
		mean = make([]float64, n)
		for i := 0; i < n; i++ {
			mat.Row(row, i, states)
			mean[i] = stat.Mean(row, nil)
			if err := errors.CheckScalar(KindShiftScale+"."+op+": mean", mean[i]); err != nil {
				return err
			}
		}
	}
	centered := func(i int) []float64 {
		mat.Row(row, i, states)
		if mean != nil {
			floats.AddConst(-mean[i], row)
		}
		return row
	}

	var extrema [][2]float64
	observe := func(data []float64) {
		if t.scaling.UsesRange() {
			extrema = append(extrema, [2]float64{floats.Min(data), floats.Max(data)})
		}
	}

	if t.scaling != ScalingNone {
		if t.byRow {
			scale, shift = make([]float64, n), make([]float64, n)
			for i := 0; i < n; i++ {
				data := centered(i)
				s, b, err := t.scaling.factors(data, t.scaleTo, i)
				if err != nil {
					return err
				}
				scale[i], shift[i] = s, b
				observe(data)
			}
		} else {
			data := make([]float64, 0, n*k)
			for i := 0; i < n; i++ {
				data = append(data, centered(i)...)
			}
			s, b, err := t.scaling.factors(data, t.scaleTo, -1)
			if err != nil {
				return err
			}
			scale, shift = []float64{s}, []float64{b}
			observe(data)
		}
	}

	t.mean, t.scale, t.shift, t.extrema = mean, scale, shift, extrema
	t.SetFitted(n)
	t.logger.Debug("fitted",
		log.OperationKey, op,
		log.StateDimensionKey, n,
		log.SnapshotsKey, k,
		log.CenteringKey, t.centering,
		log.ScalingKey, t.scaling.String(),
	)
	return nil
}

func (t *ShiftScaleTransformer) summarize(before, after mat.Matrix) {
	if !t.verbose {
		return
	}
	t.logger.Info("learned transformation",
		log.CenteringKey, t.centering,
		log.ScalingKey, t.scaling.String(),
		log.StatsBeforeKey, report.Summarize(before).String(),
		log.StatsAfterKey, report.Summarize(after).String(),
	)
}

// factor returns the (scale, shift) pair of fitted row g.
func (t *ShiftScaleTransformer) factor(g int) (float64, float64) {
	if len(t.scale) == 1 {
		return t.scale[0], t.shift[0]
	}
	return t.scale[g], t.shift[g]
}

// forward centers then scales X in place. locs maps rows of X to fitted rows.
func (t *ShiftScaleTransformer) forward(X *mat.Dense, locs []int) {
	r, k := X.Dims()
	parallel.Rows(r, k, func(start, end int) {
		for i := start; i < end; i++ {
			g := globalRow(locs, i)
			row := X.RawRowView(i)
			if t.mean != nil {
				floats.AddConst(-t.mean[g], row)
			}
			if t.scale != nil {
				s, b := t.factor(g)
				applyAffine(row, s, b)
			}
		}
	})
}

// fitForward transforms the data just learned from. For the minmax policies
// the result is pinned to scale_to, with the extrema exactly on its bounds.
func (t *ShiftScaleTransformer) fitForward(X *mat.Dense) {
	if t.extrema == nil {
		t.forward(X, nil)
		return
	}
	r, k := X.Dims()
	parallel.Rows(r, k, func(start, end int) {
		for i := start; i < end; i++ {
			row := X.RawRowView(i)
			if t.mean != nil {
				floats.AddConst(-t.mean[i], row)
			}
			s, b := t.factor(i)
			ext := t.extrema[0]
			if len(t.extrema) > 1 {
				ext = t.extrema[i]
			}
			pinRange(row, s, b, ext, t.scaleTo[0], t.scaleTo[1])
		}
	})
}

// backward un-scales then un-centers X in place.
func (t *ShiftScaleTransformer) backward(X *mat.Dense, locs []int) {
	r, k := X.Dims()
	parallel.Rows(r, k, func(start, end int) {
		for i := start; i < end; i++ {
			g := globalRow(locs, i)
			row := X.RawRowView(i)
			if t.scale != nil {
				s, b := t.factor(g)
				invertAffine(row, s, b)
			}
			if t.mean != nil {
				floats.AddConst(t.mean[g], row)
			}
		}
	})
}

// linear applies only the scale factors to X in place.
func (t *ShiftScaleTransformer) linear(X *mat.Dense) {
	if t.scale == nil {
		return
	}
	r, k := X.Dims()
	parallel.Rows(r, k, func(start, end int) {
		for i := start; i < end; i++ {
			s, _ := t.factor(i)
			floats.Scale(s, X.RawRowView(i))
		}
	})
}

func (t *ShiftScaleTransformer) checkFitted(method string) error {
	if !t.IsFitted() {
		return errors.NewNotFittedError(KindShiftScale, method)
	}
	return nil
}

// Transform は学習済みパラメータで変換した新しい行列を返す
func (t *ShiftScaleTransformer) Transform(states mat.Matrix) (*mat.Dense, error) {
	if err := t.checkFitted("Transform"); err != nil {
		return nil, err
	}
	if err := checkRows(KindShiftScale+".Transform", t.StateDimension(), states); err != nil {
		return nil, err
	}
	out := mat.DenseCopyOf(states)
	t.forward(out, nil)
	return out, nil
}

// TransformInPlace は states をその場で変換する
func (t *ShiftScaleTransformer) TransformInPlace(states *mat.Dense) error {
	if err := t.checkFitted("TransformInPlace"); err != nil {
		return err
	}
	if err := checkRows(KindShiftScale+".TransformInPlace", t.StateDimension(), states); err != nil {
		return err
	}
	t.forward(states, nil)
	return nil
}

// InverseTransform は Transform の逆変換を行った新しい行列を返す。
// locs が nil でなければ、states の i 行目は学習時の locs[i] 行目として扱われる。
func (t *ShiftScaleTransformer) InverseTransform(states mat.Matrix, locs []int) (*mat.Dense, error) {
	if err := t.checkFitted("InverseTransform"); err != nil {
		return nil, err
	}
	if err := checkLocs(KindShiftScale+".InverseTransform", t.StateDimension(), locs, states); err != nil {
		return nil, err
	}
	out := mat.DenseCopyOf(states)
	t.backward(out, locs)
	return out, nil
}

// InverseTransformInPlace は states をその場で逆変換する
func (t *ShiftScaleTransformer) InverseTransformInPlace(states *mat.Dense, locs []int) error {
	if err := t.checkFitted("InverseTransformInPlace"); err != nil {
		return err
	}
	if err := checkLocs(KindShiftScale+".InverseTransformInPlace", t.StateDimension(), locs, states); err != nil {
		return err
	}
	t.backward(states, locs)
	return nil
}

// TransformDdts は時間微分に scale のみを掛けた新しい行列を返す。
// 定数シフトの微分はゼロなので中心化は適用されない。
func (t *ShiftScaleTransformer) TransformDdts(ddts mat.Matrix) (*mat.Dense, error) {
	if err := t.checkFitted("TransformDdts"); err != nil {
		return nil, err
	}
	if err := checkRows(KindShiftScale+".TransformDdts", t.StateDimension(), ddts); err != nil {
		return nil, err
	}
	out := mat.DenseCopyOf(ddts)
	t.linear(out)
	return out, nil
}

// TransformDdtsInPlace は ddts をその場で変換する
func (t *ShiftScaleTransformer) TransformDdtsInPlace(ddts *mat.Dense) error {
	if err := t.checkFitted("TransformDdtsInPlace"); err != nil {
		return err
	}
	if err := checkRows(KindShiftScale+".TransformDdtsInPlace", t.StateDimension(), ddts); err != nil {
		return err
	}
	t.linear(ddts)
	return nil
}

// Verify は states で変換器の契約を自己検証する
func (t *ShiftScaleTransformer) Verify(states mat.Matrix, opts ...model.VerifyOption) error {
	return model.Verify(t, states, opts...)
}

// GetParams はハイパーパラメータを取得する
func (t *ShiftScaleTransformer) GetParams() map[string]interface{} {
	params := map[string]interface{}{
		"name":      t.name,
		"centering": t.centering,
		"scaling":   t.scaling.String(),
		"by_row":    t.byRow,
		"verbose":   t.verbose,
	}
	if t.scaling.UsesRange() {
		params["scale_to"] = t.scaleTo
	}
	return params
}

// Equal は設定と学習済みパラメータが一致するかどうかを返す
func (t *ShiftScaleTransformer) Equal(other *ShiftScaleTransformer) bool {
	if other == nil {
		return false
	}
	return t.name == other.name &&
		t.centering == other.centering &&
		t.scaling == other.scaling &&
		t.scaleTo == other.scaleTo &&
		t.byRow == other.byRow &&
		t.StateDimension() == other.StateDimension() &&
		equalParams(t.mean, other.mean) &&
		equalParams(t.scale, other.scale) &&
		equalParams(t.shift, other.shift)
}

func equalParams(a, b []float64) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return floats.Equal(a, b)
}

func (t *ShiftScaleTransformer) String() string {
	var b strings.Builder
	b.WriteString(KindShiftScale)
	if t.name != "" {
		fmt.Fprintf(&b, " for variable %q", t.name)
	}
	if t.IsFitted() {
		fmt.Fprintf(&b, " (state dimension %d)", t.StateDimension())
	}
	if t.centering {
		b.WriteString("\n* centering")
	}
	if t.scaling != ScalingNone {
		fmt.Fprintf(&b, "\n* %s scaling", t.scaling)
		if t.scaling.UsesRange() {
			fmt.Fprintf(&b, " to [%g, %g]", t.scaleTo[0], t.scaleTo[1])
		}
		if t.byRow {
			b.WriteString(" by row")
		}
		if t.IsFitted() {
			fmt.Fprintf(&b, "\n  scale in [%.4e, %.4e], shift in [%.4e, %.4e]",
				floats.Min(t.scale), floats.Max(t.scale), floats.Min(t.shift), floats.Max(t.shift))
		}
	}
	if !t.centering && t.scaling == ScalingNone {
		b.WriteString("\n* identity")
	}
	return b.String()
}
