package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"strconv"
)

// Record is one JSON object read with an inferred schema. Numbers are kept as json.Number
// until a typed accessor asks for them.
type Record map[string]any

var (
	errNotObject    = errors.New("line is not a JSON object")
	errTrailingData = errors.New("unexpected data after JSON object")
)

// ParseRecord decodes a line holding exactly one JSON object.
func ParseRecord(line []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errTrailingData
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	return Record(obj), nil
}

// String reads key as text. Numbers and booleans are rendered as their JSON literal;
// missing, null, array and object values are null.
func (r Record) String(key string) Null[string] {
	switch v := r[key].(type) {
	case string:
		return Value(v)
	case json.Number:
		return Value(v.String())
	case bool:
		return Value(strconv.FormatBool(v))
	default:
		return Null[string]{}
	}
}

// Int reads key as an integer. Fractional numbers and non-numbers are null.
func (r Record) Int(key string) Null[int64] {
	n, ok := r[key].(json.Number)
	if !ok {
		return Null[int64]{}
	}
	if i, err := n.Int64(); err == nil {
		return Value(i)
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return Null[int64]{}
	}
	return Value(int64(f))
}

// Float reads key as a double. Non-numbers are null.
func (r Record) Float(key string) Null[float64] {
	n, ok := r[key].(json.Number)
	if !ok {
		return Null[float64]{}
	}
	f, err := n.Float64()
	if err != nil {
		return Null[float64]{}
	}
	return Value(f)
}
