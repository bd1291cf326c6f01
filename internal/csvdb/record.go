// Converts records to and from delimited lines.

package csvdb

import (
	"slices"
	"strings"
)

// Delimiter separates values on a line.
const Delimiter = ","

// Field is one named value of a record.
type Field struct {
	Name  string
	Value string
}

// Record is an ordered list of fields. A field appears at most once.
type Record []Field

// KeyFunc derives the key of a record. Keys are compared by exact equality.
type KeyFunc func(Record) string

// Predicate selects records during a scan.
type Predicate func(Record) bool

// FieldKey returns a KeyFunc selecting the value of the named field.
func FieldKey(name string) KeyFunc {
	return func(r Record) string {
		return r.Get(name)
	}
}

// NewRecord builds a record from alternating name and value arguments.
func NewRecord(kv ...string) Record {
	r := make(Record, 0, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		v := ""
		if i+1 < len(kv) {
			v = kv[i+1]
		}
		r.Set(kv[i], v)
	}
	return r
}

// RecordFromMap converts a map into a record.
//
// Names listed in order come first; the remaining keys follow in sorted order
// so the result does not depend on map iteration.
func RecordFromMap(m map[string]string, order ...string) Record {
	r := make(Record, 0, len(m))
	for _, name := range order {
		if v, ok := m[name]; ok && !r.Has(name) {
			r = append(r, Field{Name: name, Value: v})
		}
	}
	rest := make([]string, 0, len(m)-len(r))
	for k := range m {
		if !r.Has(k) {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	for _, k := range rest {
		r = append(r, Field{Name: k, Value: m[k]})
	}
	return r
}

// Lookup returns the value of the named field and whether it is present.
func (r Record) Lookup(name string) (string, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Get returns the value of the named field, or "" if absent.
func (r Record) Get(name string) string {
	v, _ := r.Lookup(name)
	return v
}

// Has reports whether the named field is present.
func (r Record) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Set replaces the value of the named field or appends it.
func (r *Record) Set(name, value string) {
	for i := range *r {
		if (*r)[i].Name == name {
			(*r)[i].Value = value
			return
		}
	}
	*r = append(*r, Field{Name: name, Value: value})
}

// Without returns a copy of the record without the named fields.
func (r Record) Without(names ...string) Record {
	out := make(Record, 0, len(r))
	for _, f := range r {
		if !slices.Contains(names, f.Name) {
			out = append(out, f)
		}
	}
	return out
}

// Names returns the field names in order.
func (r Record) Names() []string {
	names := make([]string, len(r))
	for i, f := range r {
		names[i] = f.Name
	}
	return names
}

// Map returns the record as a map.
func (r Record) Map() map[string]string {
	m := make(map[string]string, len(r))
	for _, f := range r {
		m[f.Name] = f.Value
	}
	return m
}

// Clone returns a copy of the record.
func (r Record) Clone() Record {
	return slices.Clone(r)
}

// Merge returns a copy of r with every field of update written over it.
// Fields of r absent from update are preserved.
func (r Record) Merge(update Record) Record {
	out := r.Clone()
	for _, f := range update {
		out.Set(f.Name, f.Value)
	}
	return out
}

// Equal reports whether both records hold the same fields in the same order.
func (r Record) Equal(other Record) bool {
	return slices.Equal(r, other)
}

// Header is the ordered list of field names defining a table's columns.
type Header []string

// ParseHeader splits a header line into field names.
func ParseHeader(line string) Header {
	return strings.Split(line, Delimiter)
}

// HeaderOf returns the record's own field names. It defines the header of a
// table that has none yet.
func HeaderOf(r Record) Header {
	return Header(r.Names())
}

func (h Header) String() string {
	return strings.Join(h, Delimiter)
}

// Decode parses a line into a record holding exactly the header's fields.
//
// Missing trailing values decode to "" and values past the header's length
// are ignored.
func Decode(line string, h Header) Record {
	values := strings.Split(line, Delimiter)
	r := make(Record, len(h))
	for i, name := range h {
		r[i].Name = name
		if i < len(values) {
			r[i].Value = values[i]
		}
	}
	return r
}

// Encode formats a record as a line with one value per header field.
//
// Fields absent from the record encode as "" and fields not in the header are
// dropped.
func Encode(r Record, h Header) string {
	values := make([]string, len(h))
	for i, name := range h {
		values[i] = r.Get(name)
	}
	return strings.Join(values, Delimiter)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
