package preprocessing

import (
	"fmt"
	"reflect"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/romprep/core/model"
	"github.com/YuminosukeSato/romprep/pkg/errors"
	"github.com/YuminosukeSato/romprep/pkg/log"
)

// TransformerMulti は結合状態ベクトルを連続した行ブロック（変数）に分割し、
// 各ブロックを対応する子変換器に委譲して結果を元の順序で積み直す複合変換器。
//
// 行ブロックは連続・非重複・網羅的であり、変数名は一意である。
// 変数ごとの行数を WithVariableSizes で固定しない場合、最初の学習時に
// 状態次元を子の数で等分する。
type TransformerMulti struct {
	transformers []model.Transformer
	names        []string
	sizes        []int // explicit sizes, or nil until fitted
	explicit     bool

	offsets        []int // len = NumVariables()+1 once the partition is known
	stateDimension int

	logger log.Logger
}

// NewTransformerMulti は子変換器の列から TransformerMulti を作成する
//
// 使用例:
//
//	p, _ := preprocessing.NewShiftScaleTransformer(preprocessing.WithName("pressure"), preprocessing.WithCentering(true))
//	u, _ := preprocessing.NewShiftScaleTransformer(preprocessing.WithName("velocity"), preprocessing.WithScaling(preprocessing.ScalingMaxAbs))
//	multi, err := preprocessing.NewTransformerMulti([]model.Transformer{p, u})
//	Y, err := multi.FitTransform(X) // X の上半分が pressure、下半分が velocity
func NewTransformerMulti(transformers []model.Transformer, opts ...MultiOption) (*TransformerMulti, error) {
	m := &TransformerMulti{}
	for _, opt := range opts {
		opt(m)
	}
	if len(transformers) == 0 {
		return nil, errors.NewConfigurationError("transformers", "need at least one transformer", 0)
	}
	seen := make(map[uintptr]int)
	for i, tr := range transformers {
		if tr == nil {
			return nil, errors.NewConfigurationError("transformers", fmt.Sprintf("transformer %d is nil", i), nil)
		}
		if v := reflect.ValueOf(tr); v.Kind() == reflect.Ptr {
			if j, dup := seen[v.Pointer()]; dup {
				return nil, errors.NewConfigurationError("transformers",
					fmt.Sprintf("transformers %d and %d are the same instance", j, i), tr)
			}
			seen[v.Pointer()] = i
		}
	}
	m.transformers = append([]model.Transformer(nil), transformers...)
	nvar := len(m.transformers)

	if m.names == nil {
		m.names = make([]string, nvar)
		for i, tr := range m.transformers {
			if named, ok := tr.(model.Named); ok && named.Name() != "" {
				m.names[i] = named.Name()
			} else {
				m.names[i] = fmt.Sprintf("variable %d", i)
			}
		}
	}
	if len(m.names) != nvar {
		return nil, errors.NewConfigurationError("variable_names",
			fmt.Sprintf("got %d names for %d transformers", len(m.names), nvar), m.names)
	}
	unique := make(map[string]struct{}, nvar)
	for _, name := range m.names {
		if name == "" {
			return nil, errors.NewConfigurationError("variable_names", "names must be non-empty", m.names)
		}
		if _, dup := unique[name]; dup {
			return nil, errors.NewConfigurationError("variable_names", "duplicate variable name "+name, m.names)
		}
		unique[name] = struct{}{}
	}

	if m.sizes != nil {
		if len(m.sizes) != nvar {
			return nil, errors.NewConfigurationError("variable_sizes",
				fmt.Sprintf("got %d sizes for %d transformers", len(m.sizes), nvar), m.sizes)
		}
		for _, size := range m.sizes {
			if size <= 0 {
				return nil, errors.NewConfigurationError("variable_sizes", "sizes must be positive", m.sizes)
			}
		}
		m.explicit = true
	}

	if m.logger == nil {
		m.logger = log.GetLoggerWithName("preprocessing")
	}
	m.logger = m.logger.With(log.ModelNameKey, KindMulti, log.NumVariablesKey, nvar)
	return m, nil
}

// NumVariables returns the number of variables.
func (m *TransformerMulti) NumVariables() int { return len(m.transformers) }

// VariableNames returns a copy of the variable names in order.
func (m *TransformerMulti) VariableNames() []string {
	return append([]string(nil), m.names...)
}

// VariableSizes returns the number of rows of each variable, or nil when
// the partition is not known yet.
func (m *TransformerMulti) VariableSizes() []int {
	if m.sizes == nil {
		return nil
	}
	return append([]int(nil), m.sizes...)
}

// Transformers returns the child transformers in order.
func (m *TransformerMulti) Transformers() []model.Transformer {
	return append([]model.Transformer(nil), m.transformers...)
}

// StateDimension returns the joint state dimension, or 0 before fitting.
func (m *TransformerMulti) StateDimension() int { return m.stateDimension }

// IsFitted reports whether the composite has been fitted.
func (m *TransformerMulti) IsFitted() bool { return m.stateDimension > 0 }

// Capabilities reports the optional operations every child supports.
// In-place operations are always available since blocks of children without
// them are copied back.
func (m *TransformerMulti) Capabilities() model.Capability {
	c := model.CapInPlace | model.CapDdts | model.CapPersist
	for _, tr := range m.transformers {
		c &= model.Capabilities(tr) | model.CapInPlace
	}
	return c
}

// partition returns the row offsets of each variable for n joint rows.
func (m *TransformerMulti) partition(op string, n int) ([]int, error) {
	nvar := len(m.transformers)
	offsets := make([]int, nvar+1)
	if m.explicit {
		for i, size := range m.sizes {
			offsets[i+1] = offsets[i] + size
		}
		if offsets[nvar] != n {
			return nil, errors.NewDimensionError(op, offsets[nvar], n, 0)
		}
		return offsets, nil
	}
	if n%nvar != 0 || n == 0 {
		return nil, errors.Wrapf(errors.NewDimensionError(op, n-n%nvar, n, 0),
			"%d rows cannot be split evenly among %d variables", n, nvar)
	}
	for i := range m.transformers {
		offsets[i+1] = offsets[i] + n/nvar
	}
	return offsets, nil
}

func (m *TransformerMulti) checkFitted(method string, states mat.Matrix) error {
	if !m.IsFitted() {
		return errors.NewNotFittedError(KindMulti, method)
	}
	return checkRows(KindMulti+"."+method, m.stateDimension, states)
}

// asDense returns states itself when it is a *mat.Dense so row views can be
// taken without copying. The copy-returning paths only read the views.
func asDense(states mat.Matrix) *mat.Dense {
	if d, ok := states.(*mat.Dense); ok {
		return d
	}
	return mat.DenseCopyOf(states)
}

func block(X *mat.Dense, offsets []int, i int) *mat.Dense {
	_, k := X.Dims()
	return X.Slice(offsets[i], offsets[i+1], 0, k).(*mat.Dense)
}

// apply runs fn on every variable block of states and stacks the results.
func (m *TransformerMulti) apply(op string, states mat.Matrix, offsets []int,
	fn func(tr model.Transformer, X mat.Matrix) (*mat.Dense, error)) (*mat.Dense, error) {
	src := asDense(states)
	n, k := src.Dims()
	out := mat.NewDense(n, k, nil)
	for i, tr := range m.transformers {
		in := block(src, offsets, i)
		var res *mat.Dense
		err := errors.SafeExecute(KindMulti+"."+op, func() (err error) {
			res, err = fn(tr, in)
			return err
		})
		if err != nil {
			return nil, errors.Wrapf(err, "%s.%s: variable %q", KindMulti, op, m.names[i])
		}
		if r, c := res.Dims(); r != offsets[i+1]-offsets[i] || c != k {
			return nil, errors.NewDimensionError(fmt.Sprintf("%s.%s: variable %q", KindMulti, op, m.names[i]),
				offsets[i+1]-offsets[i], r, 0)
		}
		block(out, offsets, i).Copy(res)
	}
	return out, nil
}

// applyInPlace runs the in-place operation of each child on its block view,
// or runs copy and writes the result back when the child has no in-place form.
func (m *TransformerMulti) applyInPlace(op string, states *mat.Dense, offsets []int,
	inPlace func(tr model.InPlaceTransformer, X *mat.Dense) error,
	copyFn func(tr model.Transformer, X mat.Matrix) (*mat.Dense, error)) error {
	for i, tr := range m.transformers {
		view := block(states, offsets, i)
		err := errors.SafeExecute(KindMulti+"."+op, func() error {
			if ip, ok := tr.(model.InPlaceTransformer); ok && model.Supports(tr, model.CapInPlace) {
				return inPlace(ip, view)
			}
			res, err := copyFn(tr, view)
			if err != nil {
				return err
			}
			if r, c := res.Dims(); r != offsets[i+1]-offsets[i] || c != view.RawMatrix().Cols {
				return errors.NewDimensionError(op, offsets[i+1]-offsets[i], r, 0)
			}
			view.Copy(res)
			return nil
		})
		if err != nil {
			return errors.Wrapf(err, "%s.%s: variable %q", KindMulti, op, m.names[i])
		}
	}
	return nil
}

// commit records the partition after a successful fit.
func (m *TransformerMulti) commit(op string, offsets []int, k int) {
	if !m.explicit {
		m.sizes = make([]int, len(m.transformers))
		for i := range m.sizes {
			m.sizes[i] = offsets[i+1] - offsets[i]
		}
	}
	m.offsets = offsets
	m.stateDimension = offsets[len(offsets)-1]
	m.logger.Debug("fitted",
		log.OperationKey, op,
		log.StateDimensionKey, m.stateDimension,
		log.SnapshotsKey, k,
	)
}

// invalidate drops the partition after a failed fit, since some children
// may already have been refitted.
func (m *TransformerMulti) invalidate() {
	if !m.explicit {
		m.sizes = nil
	}
	m.offsets = nil
	m.stateDimension = 0
}

// FitTransform は各変数ブロックで子変換器を学習し、変換結果を積み直した新しい行列を返す
func (m *TransformerMulti) FitTransform(states mat.Matrix) (*mat.Dense, error) {
	n, k := states.Dims()
	offsets, err := m.partition(KindMulti+".FitTransform", n)
	if err != nil {
		return nil, err
	}
	out, err := m.apply("FitTransform", states, offsets, func(tr model.Transformer, X mat.Matrix) (*mat.Dense, error) {
		return tr.FitTransform(X)
	})
	if err != nil {
		m.invalidate()
		return nil, err
	}
	m.commit(log.OperationFitTransform, offsets, k)
	return out, nil
}

// FitTransformInPlace は states をその場で学習・変換する
func (m *TransformerMulti) FitTransformInPlace(states *mat.Dense) error {
	n, k := states.Dims()
	offsets, err := m.partition(KindMulti+".FitTransformInPlace", n)
	if err != nil {
		return err
	}
	err = m.applyInPlace("FitTransformInPlace", states, offsets,
		func(tr model.InPlaceTransformer, X *mat.Dense) error { return tr.FitTransformInPlace(X) },
		func(tr model.Transformer, X mat.Matrix) (*mat.Dense, error) { return tr.FitTransform(X) })
	if err != nil {
		m.invalidate()
		return err
	}
	m.commit(log.OperationFitTransform, offsets, k)
	return nil
}

// Transform は学習済みの子変換器で変換した新しい行列を返す
func (m *TransformerMulti) Transform(states mat.Matrix) (*mat.Dense, error) {
	if err := m.checkFitted("Transform", states); err != nil {
		return nil, err
	}
	return m.apply("Transform", states, m.offsets, func(tr model.Transformer, X mat.Matrix) (*mat.Dense, error) {
		return tr.Transform(X)
	})
}

// TransformInPlace は states をその場で変換する
func (m *TransformerMulti) TransformInPlace(states *mat.Dense) error {
	if err := m.checkFitted("TransformInPlace", states); err != nil {
		return err
	}
	return m.applyInPlace("TransformInPlace", states, m.offsets,
		func(tr model.InPlaceTransformer, X *mat.Dense) error { return tr.TransformInPlace(X) },
		func(tr model.Transformer, X mat.Matrix) (*mat.Dense, error) { return tr.Transform(X) })
}

// localLocs groups global row indices by variable. For variable i it returns
// the positions p in locs that fall into its rows and the matching local
// indices. Variables without requested rows get empty slices.
func (m *TransformerMulti) localLocs(locs []int) (positions, local [][]int) {
	nvar := len(m.transformers)
	positions = make([][]int, nvar)
	local = make([][]int, nvar)
	for p, g := range locs {
		for i := 0; i < nvar; i++ {
			if g >= m.offsets[i] && g < m.offsets[i+1] {
				positions[i] = append(positions[i], p)
				local[i] = append(local[i], g-m.offsets[i])
				break
			}
		}
	}
	return positions, local
}

// InverseTransform は逆変換した新しい行列を返す。
// locs が nil でなければ states の行は結合状態の locs 行目として扱われ、
// 各子には自分の行範囲に入るインデックスだけがローカル番号で渡される。
// 要求された行を持たない子は呼ばれない。
func (m *TransformerMulti) InverseTransform(states mat.Matrix, locs []int) (*mat.Dense, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError(KindMulti, "InverseTransform")
	}
	if err := checkLocs(KindMulti+".InverseTransform", m.stateDimension, locs, states); err != nil {
		return nil, err
	}
	if locs == nil {
		return m.apply("InverseTransform", states, m.offsets, func(tr model.Transformer, X mat.Matrix) (*mat.Dense, error) {
			return tr.InverseTransform(X, nil)
		})
	}

	src := asDense(states)
	_, k := src.Dims()
	out := mat.NewDense(len(locs), k, nil)
	positions, local := m.localLocs(locs)
	for i, tr := range m.transformers {
		if len(positions[i]) == 0 {
			continue
		}
		sub := gatherRows(src, positions[i])
		var res *mat.Dense
		err := errors.SafeExecute(KindMulti+".InverseTransform", func() (err error) {
			res, err = tr.InverseTransform(sub, local[i])
			return err
		})
		if err != nil {
			return nil, errors.Wrapf(err, "%s.InverseTransform: variable %q", KindMulti, m.names[i])
		}
		if r, c := res.Dims(); r != len(positions[i]) || c != k {
			return nil, errors.NewDimensionError(fmt.Sprintf("%s.InverseTransform: variable %q", KindMulti, m.names[i]),
				len(positions[i]), r, 0)
		}
		for q, p := range positions[i] {
			out.SetRow(p, res.RawRowView(q))
		}
	}
	return out, nil
}

// InverseTransformInPlace は states をその場で逆変換する
func (m *TransformerMulti) InverseTransformInPlace(states *mat.Dense, locs []int) error {
	if locs == nil {
		if err := m.checkFitted("InverseTransformInPlace", states); err != nil {
			return err
		}
		return m.applyInPlace("InverseTransformInPlace", states, m.offsets,
			func(tr model.InPlaceTransformer, X *mat.Dense) error { return tr.InverseTransformInPlace(X, nil) },
			func(tr model.Transformer, X mat.Matrix) (*mat.Dense, error) { return tr.InverseTransform(X, nil) })
	}
	out, err := m.InverseTransform(states, locs)
	if err != nil {
		return err
	}
	states.Copy(out)
	return nil
}

func gatherRows(X *mat.Dense, rows []int) *mat.Dense {
	_, k := X.Dims()
	out := mat.NewDense(len(rows), k, nil)
	for q, p := range rows {
		out.SetRow(q, X.RawRowView(p))
	}
	return out
}

func (m *TransformerMulti) checkDdts() error {
	for i, tr := range m.transformers {
		if _, ok := tr.(model.DdtsTransformer); !ok || !model.Supports(tr, model.CapDdts) {
			return errors.Wrapf(errors.ErrNotImplemented, "%s.TransformDdts: variable %q", KindMulti, m.names[i])
		}
	}
	return nil
}

// TransformDdts は各子の TransformDdts を適用した新しい行列を返す。
// いずれかの子が対応していなければ errors.ErrNotImplemented を返す。
func (m *TransformerMulti) TransformDdts(ddts mat.Matrix) (*mat.Dense, error) {
	if err := m.checkFitted("TransformDdts", ddts); err != nil {
		return nil, err
	}
	if err := m.checkDdts(); err != nil {
		return nil, err
	}
	return m.apply("TransformDdts", ddts, m.offsets, func(tr model.Transformer, X mat.Matrix) (*mat.Dense, error) {
		return tr.(model.DdtsTransformer).TransformDdts(X)
	})
}

// TransformDdtsInPlace は ddts をその場で変換する
func (m *TransformerMulti) TransformDdtsInPlace(ddts *mat.Dense) error {
	out, err := m.TransformDdts(ddts)
	if err != nil {
		return err
	}
	ddts.Copy(out)
	return nil
}

// index returns the position of the named variable.
func (m *TransformerMulti) index(name string) (int, error) {
	for i, n := range m.names {
		if n == name {
			return i, nil
		}
	}
	return -1, errors.NewValueError(KindMulti+".GetVar", fmt.Sprintf("unknown variable %q (have %s)", name, strings.Join(m.names, ", ")))
}

// knownOffsets returns the partition for states, which is known after fitting
// or from explicit sizes.
func (m *TransformerMulti) knownOffsets(op string, states mat.Matrix) ([]int, error) {
	if m.IsFitted() {
		if err := checkRows(op, m.stateDimension, states); err != nil {
			return nil, err
		}
		return m.offsets, nil
	}
	if !m.explicit {
		return nil, errors.NewNotFittedError(KindMulti, "GetVar")
	}
	n, _ := states.Dims()
	return m.partition(op, n)
}

// GetVar は states のうち名前付き変数の行ブロックのコピーを返す。変換は行わない。
func (m *TransformerMulti) GetVar(name string, states mat.Matrix) (*mat.Dense, error) {
	i, err := m.index(name)
	if err != nil {
		return nil, err
	}
	return m.GetVarByIndex(i, states)
}

// GetVarByIndex は i 番目の変数の行ブロックのコピーを返す
func (m *TransformerMulti) GetVarByIndex(i int, states mat.Matrix) (*mat.Dense, error) {
	if i < 0 || i >= len(m.transformers) {
		return nil, errors.NewValueError(KindMulti+".GetVar", fmt.Sprintf("variable index %d out of range [0, %d)", i, len(m.transformers)))
	}
	offsets, err := m.knownOffsets(KindMulti+".GetVar", states)
	if err != nil {
		return nil, err
	}
	return mat.DenseCopyOf(block(asDense(states), offsets, i)), nil
}

// Split は states を変数ごとの行ブロックのコピーに分割する
func (m *TransformerMulti) Split(states mat.Matrix) ([]*mat.Dense, error) {
	offsets, err := m.knownOffsets(KindMulti+".Split", states)
	if err != nil {
		return nil, err
	}
	src := asDense(states)
	out := make([]*mat.Dense, len(m.transformers))
	for i := range m.transformers {
		out[i] = mat.DenseCopyOf(block(src, offsets, i))
	}
	return out, nil
}

// Verify は states で複合変換器の契約を自己検証する
func (m *TransformerMulti) Verify(states mat.Matrix, opts ...model.VerifyOption) error {
	return model.Verify(m, states, opts...)
}

func (m *TransformerMulti) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s with %d variables", KindMulti, len(m.transformers))
	if m.IsFitted() {
		fmt.Fprintf(&b, " (state dimension %d)", m.stateDimension)
	}
	for i, tr := range m.transformers {
		fmt.Fprintf(&b, "\n%s", m.names[i])
		if m.sizes != nil {
			fmt.Fprintf(&b, " [%d rows]", m.sizes[i])
		}
		fmt.Fprintf(&b, ": %v", indent(fmt.Sprint(tr)))
	}
	return b.String()
}

func indent(s string) string {
	return strings.ReplaceAll(s, "\n", "\n  ")
}
