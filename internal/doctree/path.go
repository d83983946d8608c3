package doctree

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPath is returned for an empty path or one with an empty segment.
var ErrInvalidPath = errors.New("invalid path")

// Path is a parsed dot-delimited key such as "user.address.city".
type Path []string

// ParsePath splits s on ".". Every segment must be non-empty.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	segs := strings.Split(s, ".")
	for _, seg := range segs {
		if seg == "" {
			return nil, fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, s)
		}
	}
	return Path(segs), nil
}

// MustPath is ParsePath for literals; it panics on bad input.
func MustPath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Path) String() string { return strings.Join(p, ".") }

// Nest wraps v in one single-key mapping per segment, innermost last:
// Nest("a.b.c", v) is {"a":{"b":{"c":v}}}.
func (p Path) Nest(v Value) Value {
	out := v
	for i := len(p) - 1; i >= 0; i-- {
		out = MappingValue().With(p[i], out)
	}
	return out
}
