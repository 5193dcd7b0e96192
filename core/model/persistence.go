package model

import (
	"sort"
	"sync"

	"github.com/YuminosukeSato/romprep/pkg/errors"
	"github.com/YuminosukeSato/romprep/pkg/store"
)

// KindKey is the attribute under which every transformer group records its kind.
const KindKey = "meta/kind"

// Loader reconstructs a fitted transformer from its group.
type Loader func(g *store.Group) (Transformer, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Loader{}
)

// RegisterKind makes a transformer kind loadable by LoadTransformer and LoadGroup.
// It panics if kind is registered twice, like database/sql.Register.
func RegisterKind(kind string, loader Loader) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if loader == nil {
		panic("model: RegisterKind loader is nil")
	}
	if _, dup := registry[kind]; dup {
		panic("model: RegisterKind called twice for kind " + kind)
	}
	registry[kind] = loader
}

// Kinds returns the registered kinds in sorted order.
func Kinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// SaveGroup tags g with the transformer's kind and writes its state.
func SaveGroup(g *store.Group, t Persistable) error {
	if err := g.SetAttr(KindKey, t.Kind()); err != nil {
		return err
	}
	return t.SaveGroup(g)
}

// LoadGroup dispatches on the kind tag of g.
func LoadGroup(g *store.Group) (Transformer, error) {
	var kind string
	if err := g.Attr(KindKey, &kind); err != nil {
		return nil, err
	}
	registryMu.RLock()
	loader, ok := registry[kind]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.NewPersistenceError("load", "", g.Path(), "unrecognized transformer kind "+kind, nil)
	}
	return loader(g)
}

// SaveTransformer writes t to filename. An existing file is replaced only
// when overwrite is set, and a failed save leaves it untouched.
//
// 使用例:
//
//	err := model.SaveTransformer(tr, "transformer.db", false)
func SaveTransformer(t Transformer, filename string, overwrite bool) error {
	p, ok := t.(Persistable)
	if !ok || !Supports(t, CapPersist) {
		return errors.Wrapf(errors.ErrNotImplemented, "save %T", t)
	}
	return store.Write(filename, overwrite, func(root *store.Group) error {
		return SaveGroup(root, p)
	})
}

// LoadTransformer reads any registered transformer kind from filename.
// The concrete kinds register themselves when their package is imported.
//
// 使用例:
//
//	import _ "github.com/YuminosukeSato/romprep/preprocessing"
//	tr, err := model.LoadTransformer("transformer.db")
func LoadTransformer(filename string) (Transformer, error) {
	var t Transformer
	err := store.Read(filename, func(root *store.Group) error {
		var err error
		t, err = LoadGroup(root)
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}
