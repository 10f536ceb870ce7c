package formdata

import (
	"bytes"
	"encoding/json"
	"iter"
)

// Value holds what was received under one name: a scalar until a second value arrives
type Value[T any] struct {
	items []T
}

// Add appends x in arrival order
func (v *Value[T]) Add(x T) { v.items = append(v.items, x) }

// Len returns the number of values received
func (v Value[T]) Len() int { return len(v.items) }

// IsList reports whether the name was repeated
func (v Value[T]) IsList() bool { return len(v.items) > 1 }

// First returns the earliest value
func (v Value[T]) First() T {
	var zero T
	if len(v.items) == 0 {
		return zero
	}
	return v.items[0]
}

// Values returns a copy of every value in arrival order
func (v Value[T]) Values() []T { return append([]T(nil), v.items...) }

// MarshalJSON renders a scalar for one value and an array otherwise
func (v Value[T]) MarshalJSON() ([]byte, error) {
	if len(v.items) == 1 {
		return json.Marshal(v.items[0])
	}
	if v.items == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v.items)
}

// Map folds repeated names into scalar-then-list values, keeping first-seen name order.
// The zero value is ready to use
type Map[T any] struct {
	names []string
	vals  map[string]*Value[T]
}

// Add records x under name: absent becomes a scalar, a scalar becomes a pair, a list grows
func (m *Map[T]) Add(name string, x T) {
	if m.vals == nil {
		m.vals = make(map[string]*Value[T])
	}
	v, ok := m.vals[name]
	if !ok {
		v = &Value[T]{}
		m.vals[name] = v
		m.names = append(m.names, name)
	}
	v.Add(x)
}

// Get returns the value stored under name
func (m *Map[T]) Get(name string) (Value[T], bool) {
	v, ok := m.vals[name]
	if !ok {
		return Value[T]{}, false
	}
	return *v, true
}

// First returns the earliest value stored under name
func (m *Map[T]) First(name string) (T, bool) {
	v, ok := m.Get(name)
	return v.First(), ok
}

// Values returns every value stored under name in arrival order
func (m *Map[T]) Values(name string) []T {
	v, _ := m.Get(name)
	return v.Values()
}

// Has reports whether name was received
func (m *Map[T]) Has(name string) bool {
	_, ok := m.vals[name]
	return ok
}

// Names returns the received names in first-seen order
func (m *Map[T]) Names() []string { return append([]string(nil), m.names...) }

// Len returns the number of distinct names
func (m *Map[T]) Len() int { return len(m.names) }

// All iterates names in first-seen order
func (m *Map[T]) All() iter.Seq2[string, Value[T]] {
	return func(yield func(string, Value[T]) bool) {
		for _, n := range m.names {
			if !yield(n, *m.vals[n]) {
				return
			}
		}
	}
}

// MarshalJSON renders an object in first-seen name order
func (m Map[T]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range m.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(*m.vals[n])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// StoredFile is what a sink returns for one file
type StoredFile struct {
	// Name is the display name chosen by the sink
	Name string `json:"name"`
	// Value is sink defined: bytes, a path, an object URL or id
	Value    any    `json:"value"`
	Size     int64  `json:"size,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Digest   string `json:"digest,omitempty"`
}

// FieldValue is either field text or the stored file mirrored into the fields map
type FieldValue struct {
	Text string
	File *StoredFile
}

// Text wraps a field value
func Text(s string) FieldValue { return FieldValue{Text: s} }

// FileRef wraps a stored file for the fields map
func FileRef(f StoredFile) FieldValue { return FieldValue{File: &f} }

// IsFile reports whether the value mirrors a stored file
func (v FieldValue) IsFile() bool { return v.File != nil }

// String returns the text, or the stored file name
func (v FieldValue) String() string {
	if v.File != nil {
		return v.File.Name
	}
	return v.Text
}

// MarshalJSON renders text as a string and files as objects
func (v FieldValue) MarshalJSON() ([]byte, error) {
	if v.File != nil {
		return json.Marshal(v.File)
	}
	return json.Marshal(v.Text)
}

// Fields maps field names to text values and, unless removed, stored files
type Fields = Map[FieldValue]

// Files maps file field names to stored files
type Files = Map[StoredFile]

// Strings flattens fields into name -> text values, skipping mirrored files
func Strings(f *Fields) map[string][]string {
	out := make(map[string][]string, f.Len())
	for name, v := range f.All() {
		for _, x := range v.Values() {
			if x.IsFile() {
				continue
			}
			out[name] = append(out[name], x.Text)
		}
	}
	return out
}
