package model

import (
	"encoding/json"
	"fmt"
)

// Description は変換器の設定と学習済みパラメータを表す構造体（表示・JSON出力用）
type Description struct {
	// Kind は変換器の種類（ShiftScaleTransformer, TransformerMulti 等）
	Kind string `json:"kind"`

	// Name は変数名（オプション）
	Name string `json:"name,omitempty"`

	// StateDimension は学習時の行数 n
	StateDimension int `json:"state_dimension"`

	// IsFitted は変換器が学習済みかどうか
	IsFitted bool `json:"is_fitted"`

	// Hyperparameters は変換器のハイパーパラメータ
	Hyperparameters map[string]interface{} `json:"hyperparameters,omitempty"`

	// Parameters は学習済みパラメータ（mean_, scale_, shift_ 等）
	Parameters map[string][]float64 `json:"parameters,omitempty"`

	// Variables は複合変換器の子の記述（順序を保持）
	Variables []*Description `json:"variables,omitempty"`
}

// Describer は自身の Description を返せる変換器
type Describer interface {
	Describe() *Description
}

// Describe returns t's description, or a minimal one built from the
// Transformer contract when t does not implement Describer.
func Describe(t Transformer) *Description {
	if d, ok := t.(Describer); ok {
		return d.Describe()
	}
	d := &Description{
		Kind:           fmt.Sprintf("%T", t),
		StateDimension: t.StateDimension(),
		IsFitted:       t.StateDimension() > 0,
	}
	if p, ok := t.(Persistable); ok {
		d.Kind = p.Kind()
	}
	if n, ok := t.(Named); ok {
		d.Name = n.Name()
	}
	return d
}

// ToJSON はDescriptionをJSON形式にシリアライズ
func (d *Description) ToJSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// FromJSON はJSON形式からDescriptionをデシリアライズ
func (d *Description) FromJSON(data []byte) error {
	return json.Unmarshal(data, d)
}

// Validate はDescriptionの妥当性を検証
func (d *Description) Validate() error {
	if d.Kind == "" {
		return fmt.Errorf("kind is required")
	}
	if !d.IsFitted && len(d.Parameters) > 0 {
		return fmt.Errorf("unfitted transformer should not have learned parameters")
	}
	if d.IsFitted && d.StateDimension <= 0 {
		return fmt.Errorf("fitted transformer must have a positive state dimension")
	}
	if d.IsFitted && len(d.Variables) > 0 {
		total := 0
		for _, v := range d.Variables {
			total += v.StateDimension
		}
		if total != d.StateDimension {
			return fmt.Errorf("variable state dimensions sum to %d, want %d", total, d.StateDimension)
		}
	}
	for i, v := range d.Variables {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("variable %d: %w", i, err)
		}
	}
	return nil
}

// Clone はDescriptionのディープコピーを作成
func (d *Description) Clone() *Description {
	clone := &Description{
		Kind:           d.Kind,
		Name:           d.Name,
		StateDimension: d.StateDimension,
		IsFitted:       d.IsFitted,
	}
	if d.Hyperparameters != nil {
		clone.Hyperparameters = make(map[string]interface{}, len(d.Hyperparameters))
		for k, v := range d.Hyperparameters {
			clone.Hyperparameters[k] = v
		}
	}
	if d.Parameters != nil {
		clone.Parameters = make(map[string][]float64, len(d.Parameters))
		for k, v := range d.Parameters {
			clone.Parameters[k] = append([]float64(nil), v...)
		}
	}
	for _, v := range d.Variables {
		clone.Variables = append(clone.Variables, v.Clone())
	}
	return clone
}
