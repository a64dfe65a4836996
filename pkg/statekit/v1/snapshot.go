package v1

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"

	skerrors "github.com/gxo-labs/statekit/pkg/statekit/v1/errors"
)

// Field is one named entry of a state record.
type Field struct {
	Name  string      `json:"name" yaml:"name"`
	Value interface{} `json:"value" yaml:"value"`
}

// F is shorthand for building a Field.
func F(name string, value interface{}) Field {
	return Field{Name: name, Value: value}
}

// layout is the field shape shared by every snapshot of one store.
type layout struct {
	names []string
	index map[string]int
}

// Snapshot is an immutable, ordered state record. A dispatch never modifies a
// snapshot; it produces a new one with the next version, so holders of an old
// snapshot keep observing the old values.
//
// Values are stored by reference. Callers MUST treat them as immutable.
type Snapshot struct {
	layout  *layout
	values  []interface{}
	version uint64
}

// NewSnapshot builds the version-0 snapshot for the given fields, in order.
// Field names must be non-empty and unique.
func NewSnapshot(fields []Field) (Snapshot, error) {
	l := &layout{
		names: make([]string, 0, len(fields)),
		index: make(map[string]int, len(fields)),
	}
	values := make([]interface{}, 0, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return Snapshot{}, skerrors.NewValidationError(fmt.Sprintf("state field %d has an empty name", i), nil)
		}
		if _, dup := l.index[f.Name]; dup {
			return Snapshot{}, skerrors.NewValidationError(fmt.Sprintf("duplicate state field '%s'", f.Name), nil)
		}
		l.index[f.Name] = len(l.names)
		l.names = append(l.names, f.Name)
		values = append(values, f.Value)
	}
	return Snapshot{layout: l, values: values}, nil
}

// Version is incremented by one for every applied dispatch.
func (s Snapshot) Version() uint64 { return s.version }

// Len returns the number of fields.
func (s Snapshot) Len() int { return len(s.values) }

// Names returns the field names in declaration order.
func (s Snapshot) Names() []string {
	if s.layout == nil {
		return nil
	}
	out := make([]string, len(s.layout.names))
	copy(out, s.layout.names)
	return out
}

// Has reports whether name is a field of this record.
func (s Snapshot) Has(name string) bool {
	if s.layout == nil {
		return false
	}
	_, ok := s.layout.index[name]
	return ok
}

// Get returns the value bound to name and whether the field exists.
func (s Snapshot) Get(name string) (interface{}, bool) {
	if s.layout == nil {
		return nil, false
	}
	i, ok := s.layout.index[name]
	if !ok {
		return nil, false
	}
	return s.values[i], true
}

// Fields returns the record as an ordered slice.
func (s Snapshot) Fields() []Field {
	out := make([]Field, len(s.values))
	for i, v := range s.values {
		out[i] = Field{Name: s.layout.names[i], Value: v}
	}
	return out
}

// ToMap returns the record as a fresh map. Nested values are shared.
func (s Snapshot) ToMap() map[string]interface{} {
	out := make(map[string]interface{}, len(s.values))
	for i, v := range s.values {
		out[s.layout.names[i]] = v
	}
	return out
}

// Replace returns a new snapshot in which name is bound to value and the
// version is advanced by one. The receiver is left untouched.
func (s Snapshot) Replace(name string, value interface{}) (Snapshot, error) {
	if s.layout == nil {
		return s, skerrors.NewUnknownNameError(skerrors.KindField, name, "")
	}
	i, ok := s.layout.index[name]
	if !ok {
		return s, skerrors.NewUnknownNameError(skerrors.KindField, name, "")
	}
	values := make([]interface{}, len(s.values))
	copy(values, s.values)
	values[i] = value
	return Snapshot{layout: s.layout, values: values, version: s.version + 1}, nil
}

// Transform returns a snapshot with the same shape and version whose values
// are fn applied to each field. It is used to hand out copies of a record.
func (s Snapshot) Transform(fn func(name string, value interface{}) interface{}) Snapshot {
	values := make([]interface{}, len(s.values))
	for i, v := range s.values {
		values[i] = fn(s.layout.names[i], v)
	}
	return Snapshot{layout: s.layout, values: values, version: s.version}
}

// MarshalJSON encodes the record as a JSON object preserving field order.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, v := range s.values {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(s.layout.names[i])
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding field '%s': %w", s.layout.names[i], err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
