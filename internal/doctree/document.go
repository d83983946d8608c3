// Package doctree holds a JSON-like document in memory and reads or
// mutates it through dot-delimited paths.
//
// Navigation never fails: a missing key, or a step through anything that is
// not a mapping, is reported as absent. Set creates missing intermediate
// mappings and overwrites intermediate non-mappings. Delete removes
// ancestor mappings left empty by the deletion.
package doctree

import (
	"fmt"
	"strconv"
	"strings"
)

// Document is the root mapping of a tree.
type Document struct {
	root Value
}

// New returns an empty document.
func New() *Document {
	return &Document{root: MappingValue()}
}

// FromValue wraps a copy of root, which must be a mapping.
func FromValue(root Value) (*Document, error) {
	if !root.IsMapping() {
		return nil, fmt.Errorf("document root must be a mapping, got %s", root.Kind())
	}
	return &Document{root: root.clone()}, nil
}

// Root returns the root mapping. It shares storage with d.
func (d *Document) Root() Value { return d.root }

// Len is the number of top-level keys.
func (d *Document) Len() int { return d.root.Len() }

func (d *Document) MarshalJSON() ([]byte, error) { return d.root.MarshalJSON() }

// Get returns a copy of the value at p. The boolean is false when any
// segment is missing or crosses a non-mapping; a stored null is present.
func (d *Document) Get(p Path) (Value, bool) {
	v, ok := d.lookup(p)
	if !ok {
		return Value{}, false
	}
	return v.clone(), true
}

func (d *Document) lookup(p Path) (Value, bool) {
	if len(p) == 0 {
		return Value{}, false
	}
	node := d.root
	for _, seg := range p {
		child, ok := node.Field(seg)
		if !ok {
			return Value{}, false
		}
		node = child
	}
	return node, true
}

// Has reports whether p is present.
func (d *Document) Has(p Path) bool {
	_, ok := d.lookup(p)
	return ok
}

// Set stores a copy of v at p, auto-vivifying intermediate mappings. An
// intermediate key holding anything other than a mapping is replaced by an
// empty one.
func (d *Document) Set(p Path, v Value) {
	if len(p) == 0 {
		return
	}
	node := d.root
	for _, seg := range p[:len(p)-1] {
		child, ok := node.m[seg]
		if !ok || !child.IsMapping() {
			child = MappingValue()
			node.m[seg] = child
		}
		node = child
	}
	node.m[p[len(p)-1]] = v.clone()
}

// Delete removes the value at p and prunes ancestors that became empty.
// It reports false when there was nothing to delete.
func (d *Document) Delete(p Path) bool {
	if len(p) == 0 {
		return false
	}
	// chain[i] is the mapping that holds p[i].
	chain := make([]Value, 0, len(p))
	node := d.root
	for _, seg := range p[:len(p)-1] {
		chain = append(chain, node)
		child, ok := node.m[seg]
		if !ok || !child.IsMapping() {
			return false
		}
		node = child
	}
	chain = append(chain, node)
	last := p[len(p)-1]
	if _, ok := node.m[last]; !ok {
		return false
	}
	delete(node.m, last)

	for i := len(chain) - 1; i > 0; i-- {
		if len(chain[i].m) != 0 {
			break
		}
		delete(chain[i-1].m, p[i-1])
	}
	return true
}

// CheckAndCreate stores def at p unless p is already present. It reports
// whether the value existed.
func (d *Document) CheckAndCreate(p Path, def Value) bool {
	if d.Has(p) {
		return true
	}
	d.Set(p, def)
	return false
}

// GetNumber returns the value at p as a number, see AsNumber.
func (d *Document) GetNumber(p Path) (float64, bool) {
	v, ok := d.lookup(p)
	if !ok {
		return 0, false
	}
	return AsNumber(v)
}

// AsNumber converts numbers and numeric strings. Strings are trimmed and
// parsed with strconv.ParseFloat. Booleans, null, sequences and mappings
// are not numbers.
func AsNumber(v Value) (float64, bool) {
	switch v.Kind() {
	case KindNumber:
		return v.Number()
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Merge deep-merges a copy of patch into d: mappings merge key by key,
// anything else replaces the existing value. patch must be a mapping.
func (d *Document) Merge(patch Value) error {
	if !patch.IsMapping() {
		return fmt.Errorf("merge patch must be a mapping, got %s", patch.Kind())
	}
	mergeInto(d.root, patch)
	return nil
}

func mergeInto(dst, patch Value) {
	for k, pv := range patch.m {
		cur, ok := dst.m[k]
		if ok && cur.IsMapping() && pv.IsMapping() {
			mergeInto(cur, pv)
			continue
		}
		dst.m[k] = pv.clone()
	}
}
