package preprocessing

import (
	"github.com/YuminosukeSato/romprep/core/model"
)

// Describe は設定と学習済みパラメータの記述を返す
func (t *ShiftScaleTransformer) Describe() *model.Description {
	d := &model.Description{
		Kind:            KindShiftScale,
		Name:            t.name,
		StateDimension:  t.StateDimension(),
		IsFitted:        t.IsFitted(),
		Hyperparameters: t.GetParams(),
	}
	if !t.IsFitted() {
		return d
	}
	d.Parameters = make(map[string][]float64)
	if t.mean != nil {
		d.Parameters["mean_"] = t.Mean()
	}
	if t.scale != nil {
		d.Parameters["scale_"] = t.Scale()
		d.Parameters["shift_"] = t.Shift()
	}
	return d
}

func (t *NullTransformer) Describe() *model.Description {
	return &model.Description{
		Kind:           KindNull,
		Name:           t.name,
		StateDimension: t.StateDimension(),
		IsFitted:       t.IsFitted(),
	}
}

// Describe は子変換器の記述を変数順に含む記述を返す
func (m *TransformerMulti) Describe() *model.Description {
	d := &model.Description{
		Kind:           KindMulti,
		StateDimension: m.stateDimension,
		IsFitted:       m.IsFitted(),
		Hyperparameters: map[string]interface{}{
			"num_variables":  len(m.transformers),
			"variable_names": m.VariableNames(),
		},
	}
	if sizes := m.VariableSizes(); sizes != nil {
		d.Hyperparameters["variable_sizes"] = sizes
	}
	for i, tr := range m.transformers {
		v := model.Describe(tr)
		if v.Name == "" {
			v.Name = m.names[i]
		}
		d.Variables = append(d.Variables, v)
	}
	return d
}
