package hearth

import "strings"

// Field is a single header line.
type Field struct {
	Name  string
	Value string
}

// Headers is an ordered list of header fields. Lookups are case-insensitive;
// names are stored exactly as given.
type Headers struct {
	fields []Field
}

// Add appends a field, keeping any existing fields with the same name.
func (h *Headers) Add(name, value string) {
	h.fields = append(h.fields, Field{Name: name, Value: value})
}

// Set replaces the value of the first field named name and drops any later
// duplicates. The field is appended when absent.
func (h *Headers) Set(name, value string) {
	idx := -1
	kept := h.fields[:0]
	for _, f := range h.fields {
		if !strings.EqualFold(f.Name, name) {
			kept = append(kept, f)
			continue
		}
		if idx == -1 {
			idx = len(kept)
			kept = append(kept, Field{Name: f.Name, Value: value})
		}
	}
	h.fields = kept
	if idx == -1 {
		h.fields = append(h.fields, Field{Name: name, Value: value})
	}
}

// Get returns the value of the first field named name.
func (h Headers) Get(name string) string {
	v, _ := h.Lookup(name)
	return v
}

// Lookup returns the value of the first field named name and whether it was present.
func (h Headers) Lookup(name string) (string, bool) {
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return "", false
}

// Has reports whether a field named name is present.
func (h Headers) Has(name string) bool {
	_, ok := h.Lookup(name)
	return ok
}

// Del removes every field named name.
func (h *Headers) Del(name string) {
	kept := h.fields[:0]
	for _, f := range h.fields {
		if !strings.EqualFold(f.Name, name) {
			kept = append(kept, f)
		}
	}
	h.fields = kept
}

// Len returns the number of fields.
func (h Headers) Len() int {
	return len(h.fields)
}

// Each calls fn for every field in insertion order.
func (h Headers) Each(fn func(name, value string)) {
	for _, f := range h.fields {
		fn(f.Name, f.Value)
	}
}

// Fields returns a copy of the fields in insertion order.
func (h Headers) Fields() []Field {
	out := make([]Field, len(h.fields))
	copy(out, h.fields)
	return out
}
