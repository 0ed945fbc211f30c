// Package document implements the schema-free JSON-shaped payload that
// flows between jobs: every job's Execute takes one as input and
// produces one as output.
package document

import (
	"github.com/Jeffail/gabs/v2"
	"github.com/pkg/errors"
)

// Doc wraps a gabs container so job input/output payloads can be built,
// inspected and merged without a fixed Go struct per job type.
type Doc struct {
	c *gabs.Container
}

// New returns an empty object document.
func New() *Doc {
	return &Doc{c: gabs.New()}
}

// Parse decodes raw JSON bytes into a Doc.
func Parse(raw []byte) (*Doc, error) {
	c, err := gabs.ParseJSON(raw)
	if err != nil {
		return nil, errors.Wrap(err, "document: parse")
	}
	return &Doc{c: c}, nil
}

// FromMap builds a Doc from a plain Go map, the shape most job
// factories produce their output in.
func FromMap(m map[string]interface{}) *Doc {
	d := New()
	for k, v := range m {
		d.Set(v, k)
	}
	return d
}

// Set assigns value at the given dot-free path segments, creating
// intermediate objects as needed.
func (d *Doc) Set(value interface{}, path ...string) *Doc {
	if d.c == nil {
		d.c = gabs.New()
	}
	d.c.Set(value, path...)
	return d
}

// Get returns the raw value at path, or nil if absent.
func (d *Doc) Get(path ...string) interface{} {
	if d == nil || d.c == nil {
		return nil
	}
	v := d.c.Search(path...)
	if v == nil {
		return nil
	}
	return v.Data()
}

// GetString returns the string at path, or "" (ok=false) if the path is
// absent or not a string.
func (d *Doc) GetString(path ...string) (string, bool) {
	v, ok := d.Get(path...).(string)
	return v, ok
}

// Keys returns the document's top-level field names.
func (d *Doc) Keys() []string {
	if d == nil || d.c == nil {
		return nil
	}
	children, err := d.c.ChildrenMap()
	if err != nil {
		return nil
	}
	keys := make([]string, 0, len(children))
	for k := range children {
		keys = append(keys, k)
	}
	return keys
}

// Exists reports whether path resolves to a present value.
func (d *Doc) Exists(path ...string) bool {
	if d == nil || d.c == nil {
		return false
	}
	return d.c.Exists(path...)
}

// MergeInto shallow-copies every top-level key of src into d,
// overwriting any key already present. This is the propagation rule
// spec uses when wiring a completed predecessor's output into a
// dependent's input.
func (d *Doc) MergeInto(src *Doc) *Doc {
	if src == nil || src.c == nil {
		return d
	}
	children, err := src.c.ChildrenMap()
	if err != nil {
		return d
	}
	for k, v := range children {
		d.Set(v.Data(), k)
	}
	return d
}

// Clone returns a deep copy so propagation never aliases a predecessor's
// output with a successor's input.
func (d *Doc) Clone() *Doc {
	if d == nil || d.c == nil {
		return New()
	}
	out, _ := Parse(d.Bytes())
	return out
}

// Bytes renders the document as compact JSON.
func (d *Doc) Bytes() []byte {
	if d == nil || d.c == nil {
		return []byte("{}")
	}
	return d.c.Bytes()
}

// String renders the document as indented JSON, used for the CLI and
// for on-disk persistence.
func (d *Doc) String() string {
	if d == nil || d.c == nil {
		return "{}"
	}
	return d.c.StringIndent("", "  ")
}
