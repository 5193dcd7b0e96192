package log

import (
	"bufio"
	"bytes"
	"encoding/json"
	"reflect"

	"github.com/rs/zerolog"
)

// Entry は捕捉した1レコードをJSONから復元したもの。
// 数値フィールドは float64 になる。
type Entry map[string]interface{}

// Message はレコードのメッセージを返す
func (e Entry) Message() string {
	s, _ := e[zerolog.MessageFieldName].(string)
	return s
}

// Level はレコードのレベル名 ("debug", "info", ...) を返す
func (e Entry) Level() string {
	s, _ := e[zerolog.LevelFieldName].(string)
	return s
}

// TestLogger は変換器のログをメモリ上に捕捉する Logger。
// 本番と同じ zerolog 経路で書き出すので、フィールド名やエラーの形は
// GetLogger が返すロガーと一致する。
type TestLogger struct {
	Logger
	buf *bytes.Buffer
}

// NewTestLogger returns a logger that records at level and above, and the
// buffer holding its JSON lines.
//
//	logger, buf := log.NewTestLogger(log.LevelDebug)
//	tr, _ := preprocessing.NewShiftScaleTransformer(preprocessing.WithLogger(logger))
//	...
//	entry, ok := logger.Find("fitted")
func NewTestLogger(level Level) (*TestLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	zl := zerolog.New(buf).Level(toZerologLevel(level))
	return &TestLogger{Logger: NewZerologLogger(zl), buf: buf}, buf
}

// With keeps derived loggers writing to the same buffer.
func (t *TestLogger) With(fields ...any) Logger {
	return &TestLogger{Logger: t.Logger.With(fields...), buf: t.buf}
}

// Entries decodes every captured record in emission order.
func (t *TestLogger) Entries() ([]Entry, error) {
	var entries []Entry
	sc := bufio.NewScanner(bytes.NewReader(t.buf.Bytes()))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, sc.Err()
}

// Find returns the last record whose message is msg.
func (t *TestLogger) Find(msg string) (Entry, bool) {
	entries, err := t.Entries()
	if err != nil {
		return nil, false
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Message() == msg {
			return entries[i], true
		}
	}
	return nil, false
}

// ContainsMessage reports whether a record with message msg was captured.
func (t *TestLogger) ContainsMessage(msg string) bool {
	_, ok := t.Find(msg)
	return ok
}

// ContainsField reports whether any record carries key with value.
// JSON numbers compare as float64.
func (t *TestLogger) ContainsField(key string, value interface{}) bool {
	entries, err := t.Entries()
	if err != nil {
		return false
	}
	for _, e := range entries {
		if v, ok := e[key]; ok && reflect.DeepEqual(v, value) {
			return true
		}
	}
	return false
}
