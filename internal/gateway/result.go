package gateway

import (
	"bytes"
	"encoding/json"
)

// Record is one row of a tabular result, keyed by column name. Field order
// follows column order, and JSON marshaling preserves it.
type Record struct {
	keys []string
	vals map[string]any
}

// NewRecord returns an empty record sized for n columns.
func NewRecord(n int) Record {
	return Record{keys: make([]string, 0, n), vals: make(map[string]any, n)}
}

// Set stores a field, appending the column on first sight.
func (r *Record) Set(key string, value any) {
	if r.vals == nil {
		r.vals = make(map[string]any)
	}
	if _, seen := r.vals[key]; !seen {
		r.keys = append(r.keys, key)
	}
	r.vals[key] = value
}

// Get returns a field value.
func (r Record) Get(key string) (any, bool) {
	v, ok := r.vals[key]
	return v, ok
}

// Columns returns the field names in column order.
func (r Record) Columns() []string {
	return r.keys
}

// Len returns the number of fields.
func (r Record) Len() int {
	return len(r.keys)
}

// MarshalJSON writes the fields in column order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		value, err := json.Marshal(r.vals[key])
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Result is the tagged outcome of a remote call: either a pure side effect
// (no tabular output) or an ordered sequence of records. Callers branch on
// Tabular instead of inspecting driver cursor state.
type Result struct {
	Tabular bool
	Rows    []Record
}

// NoResult marks a side-effect-only call.
func NoResult() Result {
	return Result{}
}

// RowsResult wraps a tabular result.
func RowsResult(rows []Record) Result {
	return Result{Tabular: true, Rows: rows}
}

// RowsOrEmpty returns the rows, or an empty (non-nil) slice for a
// side-effect-only result, so JSON output is always an array.
func (r Result) RowsOrEmpty() []Record {
	if r.Rows == nil {
		return []Record{}
	}
	return r.Rows
}

// First returns the first record of a tabular result.
func (r Result) First() (Record, bool) {
	if !r.Tabular || len(r.Rows) == 0 {
		return Record{}, false
	}
	return r.Rows[0], true
}
