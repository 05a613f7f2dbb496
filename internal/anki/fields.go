package anki

import (
	"bytes"
	"encoding/json"
	"slices"
)

// Separators used when content is appended to a field that already has
// content.
const (
	SectionSeparator = "<br><br>"
	LineBreak        = "<br>"
)

// Fields is a note field mapping that remembers the order in which fields
// were first written. It marshals to a JSON object in that order.
type Fields struct {
	order  []string
	values map[string]string
}

// NewFields returns an empty field mapping.
func NewFields() *Fields {
	return &Fields{values: map[string]string{}}
}

// Touch ensures name exists, with empty content if it was absent.
func (f *Fields) Touch(name string) {
	if _, ok := f.values[name]; ok {
		return
	}
	if f.values == nil {
		f.values = map[string]string{}
	}
	f.order = append(f.order, name)
	f.values[name] = ""
}

// Append adds content to name. When the field already has content the two
// are joined with sep. Existing content is never replaced.
func (f *Fields) Append(name, content, sep string) {
	f.Touch(name)
	switch {
	case content == "":
	case f.values[name] == "":
		f.values[name] = content
	default:
		f.values[name] += sep + content
	}
}

// Get returns the content of name.
func (f *Fields) Get(name string) (string, bool) {
	v, ok := f.values[name]
	return v, ok
}

// Names returns the field names in first-written order.
func (f *Fields) Names() []string {
	return slices.Clone(f.order)
}

// Len returns the number of fields.
func (f *Fields) Len() int {
	return len(f.order)
}

// Map returns a copy of the mapping.
func (f *Fields) Map() map[string]string {
	out := make(map[string]string, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out
}

// Clone returns an independent copy of f.
func (f *Fields) Clone() *Fields {
	if f == nil {
		return NewFields()
	}
	return &Fields{order: slices.Clone(f.order), values: f.Map()}
}

// MarshalJSON writes the fields as an object in first-written order.
func (f *Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range f.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.values[name])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
