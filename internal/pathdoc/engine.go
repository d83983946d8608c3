// Package pathdoc reads and writes document values by dot-delimited key
// over a local or remote store.
package pathdoc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/dotdoc/internal/doctree"
)

// Store is a document backend. Lookup reports absence with ok=false and a
// nil error; errors are reserved for I/O, transport and decoding failures.
type Store interface {
	Lookup(ctx context.Context, p doctree.Path) (v doctree.Value, ok bool, err error)
	Put(ctx context.Context, p doctree.Path, v doctree.Value) error
	Remove(ctx context.Context, p doctree.Path) (bool, error)
}

// LookupStatus classifies a lookup.
type LookupStatus int

const (
	Found LookupStatus = iota
	NotFound
	Failed
)

func (s LookupStatus) String() string {
	switch s {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// LookupResult keeps "absent" and "could not look" apart. Err is set only
// when Status is Failed.
type LookupResult struct {
	Value  doctree.Value
	Status LookupStatus
	Err    error
}

// Engine is the keyed API over a Store. It holds no state of its own and
// does no locking.
type Engine struct {
	store Store
	log   *slog.Logger
}

func New(store Store, log *slog.Logger) *Engine {
	return &Engine{store: store, log: log}
}

// Lookup resolves key without collapsing failures into absence. An invalid
// key is a failure.
func (e *Engine) Lookup(ctx context.Context, key string) LookupResult {
	p, err := doctree.ParsePath(key)
	if err != nil {
		return LookupResult{Status: Failed, Err: err}
	}
	v, ok, err := e.store.Lookup(ctx, p)
	switch {
	case err != nil:
		return LookupResult{Status: Failed, Err: err}
	case !ok:
		return LookupResult{Status: NotFound}
	}
	return LookupResult{Value: v, Status: Found}
}

// Get returns the value at key. ok is false when the key is absent.
func (e *Engine) Get(ctx context.Context, key string) (v doctree.Value, ok bool, err error) {
	r := e.Lookup(ctx, key)
	return r.Value, r.Status == Found, r.Err
}

// Set stores v at key, creating or overwriting intermediate mappings.
func (e *Engine) Set(ctx context.Context, key string, v doctree.Value) error {
	p, err := doctree.ParsePath(key)
	if err != nil {
		return err
	}
	if err := e.store.Put(ctx, p, v); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// CheckAndCreate stores def at key unless a value is already present, and
// reports whether one was. A failed lookup is treated as absent: the
// default is written and existed is false. The returned error only
// reflects the write.
func (e *Engine) CheckAndCreate(ctx context.Context, key string, def doctree.Value) (existed bool, err error) {
	r := e.Lookup(ctx, key)
	switch r.Status {
	case Found:
		return true, nil
	case Failed:
		e.log.WarnContext(ctx, "lookup failed, treating key as absent", "key", key, "error", r.Err)
	}
	return false, e.Set(ctx, key, def)
}

// Delete removes key and prunes emptied ancestors. It reports false when
// there was nothing to delete.
func (e *Engine) Delete(ctx context.Context, key string) (bool, error) {
	p, err := doctree.ParsePath(key)
	if err != nil {
		return false, err
	}
	removed, err := e.store.Remove(ctx, p)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", key, err)
	}
	return removed, nil
}

// GetAsNumber returns the value at key as a number. Numeric strings are
// parsed; anything else, booleans included, is not a number.
func (e *Engine) GetAsNumber(ctx context.Context, key string) (float64, bool, error) {
	v, ok, err := e.Get(ctx, key)
	if err != nil || !ok {
		return 0, false, err
	}
	f, ok := doctree.AsNumber(v)
	return f, ok, nil
}
