package preprocessing

import (
	"fmt"

	"github.com/YuminosukeSato/romprep/core/model"
	"github.com/YuminosukeSato/romprep/pkg/errors"
	"github.com/YuminosukeSato/romprep/pkg/log"
	"github.com/YuminosukeSato/romprep/pkg/store"
)

// Kind tags written to meta/kind.
const (
	KindShiftScale = "ShiftScaleTransformer"
	KindMulti      = "TransformerMulti"
	KindNull       = "NullTransformer"
)

func init() {
	model.RegisterKind(KindShiftScale, func(g *store.Group) (model.Transformer, error) {
		t, err := loadShiftScaleGroup(g)
		if err != nil {
			return nil, err
		}
		return t, nil
	})
	model.RegisterKind(KindMulti, func(g *store.Group) (model.Transformer, error) {
		m, err := loadMultiGroup(g)
		if err != nil {
			return nil, err
		}
		return m, nil
	})
	model.RegisterKind(KindNull, func(g *store.Group) (model.Transformer, error) {
		t, err := loadNullGroup(g)
		if err != nil {
			return nil, err
		}
		return t, nil
	})
}

// loadKind reads filename and checks that it holds a transformer of kind.
func loadKind(filename, kind string, load func(g *store.Group) error) error {
	return store.Read(filename, func(root *store.Group) error {
		var got string
		if err := root.Attr(model.KindKey, &got); err != nil {
			return err
		}
		if got != kind {
			return errors.NewPersistenceError("load", filename, model.KindKey,
				fmt.Sprintf("file holds a %s, not a %s", got, kind), nil)
		}
		return load(root)
	})
}

// optionalAttr decodes key into dst when it is present and leaves dst alone otherwise.
func optionalAttr(g *store.Group, key string, dst interface{}) error {
	ok, err := g.Has(key)
	if err != nil || !ok {
		return err
	}
	return g.Attr(key, dst)
}

// corrupt reports a dataset whose length disagrees with the metadata.
func corrupt(g *store.Group, key string, want, got int) error {
	return errors.NewPersistenceError("load", "", g.Group(key).Path(),
		fmt.Sprintf("dataset has %d entries, want %d", got, want), nil)
}

// ===========================================================================
//
//	ShiftScaleTransformer
//
// ===========================================================================

// Kind returns the kind tag used in saved files.
func (t *ShiftScaleTransformer) Kind() string { return KindShiftScale }

// SaveGroup writes the configuration and learned parameters to g.
func (t *ShiftScaleTransformer) SaveGroup(g *store.Group) error {
	meta := g.Group("meta")
	if err := meta.SetAttr("name", t.name); err != nil {
		return err
	}
	if err := meta.SetAttr("centering", t.centering); err != nil {
		return err
	}
	if err := meta.SetAttr("by_row", t.byRow); err != nil {
		return err
	}
	if t.scaling != ScalingNone {
		if err := meta.SetAttr("scaling", t.scaling.String()); err != nil {
			return err
		}
		if t.scaling.UsesRange() {
			if err := meta.SetAttr("scale_to", t.scaleTo); err != nil {
				return err
			}
		}
	}
	if err := meta.SetAttr("verbose", t.verbose); err != nil {
		return err
	}
	if err := meta.SetAttr("state_dimension", t.StateDimension()); err != nil {
		return err
	}
	if !t.IsFitted() {
		return nil
	}

	tf := g.Group("transformation")
	if t.mean != nil {
		if err := tf.SetFloats("mean_", t.mean); err != nil {
			return err
		}
	}
	if t.scale != nil {
		if err := tf.SetFloats("scale_", t.scale); err != nil {
			return err
		}
		if err := tf.SetFloats("shift_", t.shift); err != nil {
			return err
		}
	}
	return nil
}

// Save は学習済みの変換器を filename に保存する。
// filename が既に存在する場合、overwrite が false なら PersistenceError を返す。
func (t *ShiftScaleTransformer) Save(filename string, overwrite bool) error {
	if err := model.SaveTransformer(t, filename, overwrite); err != nil {
		return err
	}
	t.logger.Debug("saved", log.OperationKey, log.OperationSave, log.PathKey, filename)
	return nil
}

// LoadShiftScaleTransformer は保存された ShiftScaleTransformer を読み込む
//
// 使用例:
//
//	tr, err := preprocessing.LoadShiftScaleTransformer("pressure.db")
//	Y, err := tr.Transform(X)
func LoadShiftScaleTransformer(filename string) (*ShiftScaleTransformer, error) {
	var t *ShiftScaleTransformer
	err := loadKind(filename, KindShiftScale, func(root *store.Group) error {
		var err error
		t, err = loadShiftScaleGroup(root)
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func loadShiftScaleGroup(g *store.Group) (*ShiftScaleTransformer, error) {
	meta := g.Group("meta")
	var (
		name      string
		centering bool
		verbose   bool
		byRow     bool
		n         int
	)
	if err := meta.Attr("name", &name); err != nil {
		return nil, err
	}
	if err := meta.Attr("centering", &centering); err != nil {
		return nil, err
	}
	if err := meta.Attr("state_dimension", &n); err != nil {
		return nil, err
	}
	if err := optionalAttr(meta, "verbose", &verbose); err != nil {
		return nil, err
	}
	if err := optionalAttr(meta, "by_row", &byRow); err != nil {
		return nil, err
	}

	opts := []Option{WithName(name), WithCentering(centering), WithVerbose(verbose), WithByRow(byRow)}
	hasScaling, err := meta.Has("scaling")
	if err != nil {
		return nil, err
	}
	if hasScaling {
		var scalingName string
		if err := meta.Attr("scaling", &scalingName); err != nil {
			return nil, err
		}
		s, err := ParseScaling(scalingName)
		if err != nil {
			return nil, errors.NewPersistenceError("load", "", meta.Group("scaling").Path(), "invalid scaling", err)
		}
		opts = append(opts, WithScaling(s))
		if s.UsesRange() {
			var scaleTo [2]float64
			if err := meta.Attr("scale_to", &scaleTo); err != nil {
				return nil, err
			}
			opts = append(opts, WithScaleTo(scaleTo[0], scaleTo[1]))
		}
	}

	t, err := NewShiftScaleTransformer(opts...)
	if err != nil {
		return nil, errors.NewPersistenceError("load", "", meta.Path(), "invalid configuration", err)
	}
	if n == 0 {
		return t, nil
	}

	tf := g.Group("transformation")
	if centering {
		if t.mean, err = tf.Floats("mean_"); err != nil {
			return nil, err
		}
		if len(t.mean) != n {
			return nil, corrupt(tf, "mean_", n, len(t.mean))
		}
	}
	if hasScaling {
		want := 1
		if byRow {
			want = n
		}
		if t.scale, err = tf.Floats("scale_"); err != nil {
			return nil, err
		}
		if len(t.scale) != want {
			return nil, corrupt(tf, "scale_", want, len(t.scale))
		}
		if t.shift, err = tf.Floats("shift_"); err != nil {
			return nil, err
		}
		if len(t.shift) != want {
			return nil, corrupt(tf, "shift_", want, len(t.shift))
		}
	}
	t.SetFitted(n)
	return t, nil
}

// ===========================================================================
//
//	NullTransformer
//
// ===========================================================================

// Kind returns the kind tag used in saved files.
func (t *NullTransformer) Kind() string { return KindNull }

// SaveGroup writes the name and state dimension to g.
func (t *NullTransformer) SaveGroup(g *store.Group) error {
	if err := g.SetAttr("meta/name", t.name); err != nil {
		return err
	}
	return g.SetAttr("meta/state_dimension", t.StateDimension())
}

func loadNullGroup(g *store.Group) (*NullTransformer, error) {
	var (
		name string
		n    int
	)
	if err := g.Attr("meta/name", &name); err != nil {
		return nil, err
	}
	if err := g.Attr("meta/state_dimension", &n); err != nil {
		return nil, err
	}
	t := NewNullTransformer(name)
	if n > 0 {
		t.SetFitted(n)
	}
	return t, nil
}

// ===========================================================================
//
//	TransformerMulti
//
// ===========================================================================

// Kind returns the kind tag used in saved files.
func (m *TransformerMulti) Kind() string { return KindMulti }

// SaveGroup writes the partition metadata to g and every child to its own
// group variables/<i>, tagged with the child's kind.
func (m *TransformerMulti) SaveGroup(g *store.Group) error {
	children := make([]model.Persistable, len(m.transformers))
	for i, tr := range m.transformers {
		p, ok := tr.(model.Persistable)
		if !ok || !model.Supports(tr, model.CapPersist) {
			return errors.Wrapf(errors.ErrNotImplemented, "%s.Save: variable %q", KindMulti, m.names[i])
		}
		children[i] = p
	}

	meta := g.Group("meta")
	if err := meta.SetAttr("num_variables", len(m.transformers)); err != nil {
		return err
	}
	if err := meta.SetAttr("variable_names", m.names); err != nil {
		return err
	}
	if err := meta.SetAttr("explicit_sizes", m.explicit); err != nil {
		return err
	}
	if err := meta.SetAttr("variable_sizes", m.sizes); err != nil {
		return err
	}
	if err := meta.SetAttr("state_dimension", m.stateDimension); err != nil {
		return err
	}
	for i, p := range children {
		if err := model.SaveGroup(g.Group(fmt.Sprintf("variables/%d", i)), p); err != nil {
			return err
		}
	}
	return nil
}

// Save は全ての子変換器を含めて filename に保存する。
// いずれかの子が保存に対応していなければ errors.ErrNotImplemented を返し、ファイルは作成されない。
func (m *TransformerMulti) Save(filename string, overwrite bool) error {
	if err := model.SaveTransformer(m, filename, overwrite); err != nil {
		return err
	}
	m.logger.Debug("saved", log.OperationKey, log.OperationSave, log.PathKey, filename)
	return nil
}

// LoadTransformerMulti は保存された TransformerMulti を子変換器ごと読み込む
func LoadTransformerMulti(filename string) (*TransformerMulti, error) {
	var m *TransformerMulti
	err := loadKind(filename, KindMulti, func(root *store.Group) error {
		var err error
		m, err = loadMultiGroup(root)
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func loadMultiGroup(g *store.Group) (*TransformerMulti, error) {
	meta := g.Group("meta")
	var (
		nvar     int
		names    []string
		sizes    []int
		explicit bool
		n        int
	)
	if err := meta.Attr("num_variables", &nvar); err != nil {
		return nil, err
	}
	if err := meta.Attr("variable_names", &names); err != nil {
		return nil, err
	}
	if err := meta.Attr("explicit_sizes", &explicit); err != nil {
		return nil, err
	}
	if err := meta.Attr("variable_sizes", &sizes); err != nil {
		return nil, err
	}
	if err := meta.Attr("state_dimension", &n); err != nil {
		return nil, err
	}
	if len(names) != nvar {
		return nil, errors.NewPersistenceError("load", "", meta.Path(),
			fmt.Sprintf("%d variable names for %d variables", len(names), nvar), nil)
	}

	children := make([]model.Transformer, nvar)
	for i := range children {
		child, err := model.LoadGroup(g.Group(fmt.Sprintf("variables/%d", i)))
		if err != nil {
			return nil, err
		}
		children[i] = child
	}

	opts := []MultiOption{WithVariableNames(names...)}
	if explicit {
		opts = append(opts, WithVariableSizes(sizes...))
	}
	m, err := NewTransformerMulti(children, opts...)
	if err != nil {
		return nil, errors.NewPersistenceError("load", "", meta.Path(), "invalid configuration", err)
	}
	if n == 0 {
		return m, nil
	}

	if len(sizes) != nvar {
		return nil, errors.NewPersistenceError("load", "", meta.Path(),
			fmt.Sprintf("%d variable sizes for %d variables", len(sizes), nvar), nil)
	}
	offsets := make([]int, nvar+1)
	for i, size := range sizes {
		if got := children[i].StateDimension(); got != size {
			return nil, errors.NewPersistenceError("load", "", g.Group(fmt.Sprintf("variables/%d", i)).Path(),
				fmt.Sprintf("child state dimension %d, want %d", got, size), nil)
		}
		offsets[i+1] = offsets[i] + size
	}
	if offsets[nvar] != n {
		return nil, errors.NewPersistenceError("load", "", meta.Path(),
			fmt.Sprintf("variable sizes sum to %d, state dimension is %d", offsets[nvar], n), nil)
	}
	m.sizes = sizes
	m.offsets = offsets
	m.stateDimension = n
	return m, nil
}
