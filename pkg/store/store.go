// Package store implements the hierarchical keyed container that fitted
// transformers are persisted to.
//
// A container is a single sqlite file holding one table of slash-separated keys
// ("meta/name", "transformation/mean_", "variables/0/meta/kind"). Attributes are
// JSON-encoded; float datasets are stored as little-endian float64 blobs so that
// learned parameters round-trip bit for bit.
//
// Writes are atomic: Write fills a temporary file next to the target inside a
// single transaction and renames it over the target only after everything
// succeeded. A failed save never corrupts an existing container.
package store

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // driver: sqlite

	"github.com/YuminosukeSato/romprep/pkg/errors"
)

const driverName = "sqlite"

const (
	dtypeJSON    = "json"
	dtypeFloat64 = "f64le"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
  key   TEXT PRIMARY KEY,
  dtype TEXT NOT NULL,
  value BLOB NOT NULL
);
`

// ErrKeyNotFound is wrapped by the PersistenceError returned for missing keys.
var ErrKeyNotFound = errors.New("key not found")

// File is an open container. It is only reachable through Write and Read,
// which own its lifetime.
type File struct {
	path string
	db   *sql.DB
	tx   *sql.Tx // non-nil while writing
	op   string
}

// Group addresses a subtree of a container.
type Group struct {
	f      *File
	prefix string
}

// Write creates the container at filename and calls fn with its root group.
// The file appears at filename only if fn and the commit succeed; an existing
// file is replaced only when overwrite is set.
func Write(filename string, overwrite bool, fn func(root *Group) error) (err error) {
	if _, statErr := os.Stat(filename); statErr == nil && !overwrite {
		return errors.NewPersistenceError("save", filename, "", "file exists (set overwrite to replace it)", nil)
	}

	dir := filepath.Dir(filename)
	if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
		return errors.NewPersistenceError("save", filename, "", "cannot create directory", mkErr)
	}
	tmp := filepath.Join(dir, "."+filepath.Base(filename)+"."+uuid.NewString()+".tmp")

	db, openErr := sql.Open(driverName, tmp)
	if openErr != nil {
		return errors.NewPersistenceError("save", filename, "", "cannot open container", openErr)
	}
	f := &File{path: filename, db: db, op: "save"}

	committed := false
	defer func() {
		if f.tx != nil && !committed {
			_ = f.tx.Rollback()
		}
		if closeErr := db.Close(); closeErr != nil && err == nil {
			err = errors.NewPersistenceError("save", filename, "", "cannot close container", closeErr)
		}
		if err != nil {
			_ = os.Remove(tmp)
			_ = os.Remove(tmp + "-journal")
			return
		}
		if renameErr := os.Rename(tmp, filename); renameErr != nil {
			_ = os.Remove(tmp)
			err = errors.NewPersistenceError("save", filename, "", "cannot move container into place", renameErr)
		}
	}()
	defer errors.Recover(&err, "store.Write")

	if _, err = db.Exec(schema); err != nil {
		return errors.NewPersistenceError("save", filename, "", "cannot create schema", err)
	}
	if f.tx, err = db.Begin(); err != nil {
		return errors.NewPersistenceError("save", filename, "", "cannot begin transaction", err)
	}
	if err = fn(&Group{f: f}); err != nil {
		return err
	}
	if err = f.tx.Commit(); err != nil {
		return errors.NewPersistenceError("save", filename, "", "cannot commit", err)
	}
	committed = true
	return nil
}

// Read opens the container at filename and calls fn with its root group.
// The container is closed on every exit path.
func Read(filename string, fn func(root *Group) error) (err error) {
	if _, statErr := os.Stat(filename); statErr != nil {
		return errors.NewPersistenceError("load", filename, "", "file not found", statErr)
	}
	db, openErr := sql.Open(driverName, filename)
	if openErr != nil {
		return errors.NewPersistenceError("load", filename, "", "cannot open container", openErr)
	}
	defer db.Close()
	defer errors.Recover(&err, "store.Read")

	var n int
	if qErr := db.QueryRow(`SELECT COUNT(*) FROM entries`).Scan(&n); qErr != nil {
		return errors.NewPersistenceError("load", filename, "", "not a transformer container", qErr)
	}
	return fn(&Group{f: &File{path: filename, db: db, op: "load"}})
}

// Path returns the absolute key prefix of the group ("" for the root).
func (g *Group) Path() string {
	return g.prefix
}

// Group returns the named child group. Nested names may contain slashes.
func (g *Group) Group(name string) *Group {
	return &Group{f: g.f, prefix: g.key(name)}
}

func (g *Group) key(name string) string {
	name = strings.Trim(name, "/")
	if g.prefix == "" {
		return name
	}
	return path.Join(g.prefix, name)
}

func (g *Group) put(key, dtype string, value []byte) error {
	if g.f.tx == nil {
		return errors.NewPersistenceError(g.f.op, g.f.path, g.key(key), "container is read-only", nil)
	}
	_, err := g.f.tx.Exec(`INSERT INTO entries (key, dtype, value) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET dtype = excluded.dtype, value = excluded.value`,
		g.key(key), dtype, value)
	if err != nil {
		return errors.NewPersistenceError(g.f.op, g.f.path, g.key(key), "cannot write entry", err)
	}
	return nil
}

func (g *Group) get(key, dtype string) ([]byte, error) {
	full := g.key(key)
	var (
		gotType string
		value   []byte
		row     *sql.Row
	)
	if g.f.tx != nil {
		row = g.f.tx.QueryRow(`SELECT dtype, value FROM entries WHERE key = $1`, full)
	} else {
		row = g.f.db.QueryRow(`SELECT dtype, value FROM entries WHERE key = $1`, full)
	}
	if err := row.Scan(&gotType, &value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewPersistenceError(g.f.op, g.f.path, full, "missing required key", ErrKeyNotFound)
		}
		return nil, errors.NewPersistenceError(g.f.op, g.f.path, full, "cannot read entry", err)
	}
	if gotType != dtype {
		return nil, errors.NewPersistenceError(g.f.op, g.f.path, full, "unexpected entry type "+gotType+", want "+dtype, nil)
	}
	return value, nil
}

// SetAttr stores a JSON-encodable attribute.
func (g *Group) SetAttr(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.NewPersistenceError(g.f.op, g.f.path, g.key(key), "cannot encode attribute", err)
	}
	return g.put(key, dtypeJSON, data)
}

// Attr decodes the attribute stored at key into dst.
func (g *Group) Attr(key string, dst interface{}) error {
	data, err := g.get(key, dtypeJSON)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return errors.NewPersistenceError(g.f.op, g.f.path, g.key(key), "cannot decode attribute", err)
	}
	return nil
}

// SetFloats stores a float64 dataset.
func (g *Group) SetFloats(key string, data []float64) error {
	buf := make([]byte, 8*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	return g.put(key, dtypeFloat64, buf)
}

// Floats returns the float64 dataset stored at key.
func (g *Group) Floats(key string) ([]float64, error) {
	buf, err := g.get(key, dtypeFloat64)
	if err != nil {
		return nil, err
	}
	if len(buf)%8 != 0 {
		return nil, errors.NewPersistenceError(g.f.op, g.f.path, g.key(key), "corrupt dataset", nil)
	}
	out := make([]float64, len(buf)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
	}
	return out, nil
}

// Has reports whether key exists in the group.
func (g *Group) Has(key string) (bool, error) {
	var n int
	full := g.key(key)
	var row *sql.Row
	if g.f.tx != nil {
		row = g.f.tx.QueryRow(`SELECT COUNT(*) FROM entries WHERE key = $1`, full)
	} else {
		row = g.f.db.QueryRow(`SELECT COUNT(*) FROM entries WHERE key = $1`, full)
	}
	if err := row.Scan(&n); err != nil {
		return false, errors.NewPersistenceError(g.f.op, g.f.path, full, "cannot query entry", err)
	}
	return n > 0, nil
}

// Keys lists every key below the group, relative to it, in sorted order.
func (g *Group) Keys() ([]string, error) {
	var (
		rows *sql.Rows
		err  error
	)
	q := `SELECT key FROM entries`
	if g.f.tx != nil {
		rows, err = g.f.tx.Query(q)
	} else {
		rows, err = g.f.db.Query(q)
	}
	if err != nil {
		return nil, errors.NewPersistenceError(g.f.op, g.f.path, g.prefix, "cannot list entries", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, errors.NewPersistenceError(g.f.op, g.f.path, g.prefix, "cannot list entries", err)
		}
		switch {
		case g.prefix == "":
			keys = append(keys, k)
		case strings.HasPrefix(k, g.prefix+"/"):
			keys = append(keys, strings.TrimPrefix(k, g.prefix+"/"))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewPersistenceError(g.f.op, g.f.path, g.prefix, "cannot list entries", err)
	}
	sort.Strings(keys)
	return keys, nil
}
