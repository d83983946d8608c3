package pathdoc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/dgallion1/dotdoc/internal/doctree"
	"github.com/dgallion1/dotdoc/internal/filestore"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFileEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.json")
	s, err := filestore.Open(path, discardLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return New(s, discardLogger()), path
}

// flakyStore fails every lookup and records writes in memory.
type flakyStore struct {
	doc    *doctree.Document
	puts   int
	putErr error
}

func (f *flakyStore) Lookup(context.Context, doctree.Path) (doctree.Value, bool, error) {
	return doctree.Value{}, false, errors.New("connection refused")
}

func (f *flakyStore) Put(_ context.Context, p doctree.Path, v doctree.Value) error {
	f.puts++
	f.doc.Set(p, v)
	return f.putErr
}

func (f *flakyStore) Remove(_ context.Context, p doctree.Path) (bool, error) {
	return f.doc.Delete(p), nil
}

func TestEngine_SetGet(t *testing.T) {
	ctx := context.Background()
	e, path := newFileEngine(t)
	if err := e.Set(ctx, "user.address.city", doctree.StringValue("Lyon")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, ok, err := e.Get(ctx, "user.address.city")
	if err != nil || !ok {
		t.Fatalf("expected value, got %v, %v", ok, err)
	}
	if s, _ := v.Str(); s != "Lyon" {
		t.Errorf("expected %q, got %q", "Lyon", s)
	}

	doc, err := filestore.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := doc.Get(doctree.MustPath("user.address.city")); !ok {
		t.Error("expected value to be persisted")
	}
}

func TestEngine_InvalidKey(t *testing.T) {
	ctx := context.Background()
	e, _ := newFileEngine(t)
	if err := e.Set(ctx, "", doctree.NullValue()); !errors.Is(err, doctree.ErrInvalidPath) {
		t.Errorf("expected ErrInvalidPath from Set, got %v", err)
	}
	if _, _, err := e.Get(ctx, "a..b"); !errors.Is(err, doctree.ErrInvalidPath) {
		t.Errorf("expected ErrInvalidPath from Get, got %v", err)
	}
	if _, err := e.Delete(ctx, "."); !errors.Is(err, doctree.ErrInvalidPath) {
		t.Errorf("expected ErrInvalidPath from Delete, got %v", err)
	}
}

func TestEngine_CheckAndCreateIdempotent(t *testing.T) {
	ctx := context.Background()
	e, _ := newFileEngine(t)
	existed, err := e.CheckAndCreate(ctx, "x", doctree.IntValue(5))
	if err != nil || existed {
		t.Fatalf("expected created, got existed=%v err=%v", existed, err)
	}
	existed, err = e.CheckAndCreate(ctx, "x", doctree.IntValue(6))
	if err != nil || !existed {
		t.Fatalf("expected existed, got existed=%v err=%v", existed, err)
	}
	n, ok, _ := e.GetAsNumber(ctx, "x")
	if !ok || n != 5 {
		t.Errorf("expected 5, got %v", n)
	}
}

func TestEngine_CheckAndCreateTreatsFailureAsAbsent(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{doc: doctree.New()}
	e := New(store, discardLogger())

	r := e.Lookup(ctx, "x")
	if r.Status != Failed || r.Err == nil {
		t.Fatalf("expected failed lookup with error, got %s %v", r.Status, r.Err)
	}

	existed, err := e.CheckAndCreate(ctx, "x", doctree.IntValue(1))
	if err != nil || existed {
		t.Fatalf("expected default to be written, got existed=%v err=%v", existed, err)
	}
	if store.puts != 1 {
		t.Errorf("expected one write, got %d", store.puts)
	}
}

func TestEngine_CheckAndCreateReportsWriteError(t *testing.T) {
	store := &flakyStore{doc: doctree.New(), putErr: errors.New("disk full")}
	e := New(store, discardLogger())
	existed, err := e.CheckAndCreate(context.Background(), "x", doctree.IntValue(1))
	if err == nil {
		t.Fatal("expected write error")
	}
	if existed {
		t.Error("expected existed=false")
	}
}

func TestEngine_LookupStatuses(t *testing.T) {
	ctx := context.Background()
	e, _ := newFileEngine(t)
	if err := e.Set(ctx, "n", doctree.NullValue()); err != nil {
		t.Fatal(err)
	}
	if r := e.Lookup(ctx, "n"); r.Status != Found || !r.Value.IsNull() {
		t.Errorf("expected found null, got %s", r.Status)
	}
	if r := e.Lookup(ctx, "missing"); r.Status != NotFound || r.Err != nil {
		t.Errorf("expected not_found, got %s %v", r.Status, r.Err)
	}
}

func TestEngine_DeletePrunes(t *testing.T) {
	ctx := context.Background()
	e, path := newFileEngine(t)
	if err := e.Set(ctx, "a.b.c", doctree.IntValue(1)); err != nil {
		t.Fatal(err)
	}
	removed, err := e.Delete(ctx, "a.b.c")
	if err != nil || !removed {
		t.Fatalf("expected removal, got %v, %v", removed, err)
	}
	if _, ok, _ := e.Get(ctx, "a.b.c"); ok {
		t.Error("expected a.b.c to be absent")
	}
	doc, err := filestore.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Len() != 0 {
		t.Errorf("expected empty document on disk, got %d keys", doc.Len())
	}

	removed, err = e.Delete(ctx, "a.b.c")
	if err != nil || removed {
		t.Errorf("expected second delete to report false, got %v, %v", removed, err)
	}
}

func TestEngine_GetAsNumber(t *testing.T) {
	ctx := context.Background()
	e, _ := newFileEngine(t)
	e.Set(ctx, "s", doctree.StringValue("42"))
	e.Set(ctx, "bad", doctree.StringValue("abc"))
	e.Set(ctx, "flag", doctree.BoolValue(true))

	if n, ok, err := e.GetAsNumber(ctx, "s"); err != nil || !ok || n != 42 {
		t.Errorf("expected 42, got %v, %v, %v", n, ok, err)
	}
	if _, ok, err := e.GetAsNumber(ctx, "bad"); err != nil || ok {
		t.Errorf("expected abc to be absent, got %v, %v", ok, err)
	}
	if _, ok, err := e.GetAsNumber(ctx, "flag"); err != nil || ok {
		t.Errorf("expected boolean to be rejected, got %v, %v", ok, err)
	}
	if _, ok, err := e.GetAsNumber(ctx, "missing"); err != nil || ok {
		t.Errorf("expected missing to be absent, got %v, %v", ok, err)
	}
}
