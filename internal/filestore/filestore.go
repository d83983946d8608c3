// Package filestore keeps a document in a local JSON file.
//
// The file is created with an empty object when it does not exist and is
// rewritten in full after every mutation. Writes are not atomic.
package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dgallion1/dotdoc/internal/doctree"
)

// ErrMalformedDocument is returned when the file does not hold a JSON object.
var ErrMalformedDocument = errors.New("malformed document")

// Store is a document loaded from, and saved to, one file.
type Store struct {
	path string
	doc  *doctree.Document
	log  *slog.Logger
}

// Open ensures path exists, creating parent directories and an empty
// document if needed, then loads it.
func Open(path string, log *slog.Logger) (*Store, error) {
	if err := ensureFile(path, log); err != nil {
		return nil, err
	}
	return OpenExisting(path, log)
}

// OpenExisting loads the document at path without creating anything. A
// missing file is an error wrapping os.ErrNotExist.
func OpenExisting(path string, log *slog.Logger) (*Store, error) {
	s := &Store{path: path, log: log}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func ensureFile(path string, log *slog.Logger) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte("{}\n"), 0o644); err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	log.Info("created empty document", "path", path)
	return nil
}

// Load reads and parses the document at path. It does not create the file.
func Load(path string) (*doctree.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	root, err := doctree.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedDocument, path, err)
	}
	doc, err := doctree.FromValue(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedDocument, path, err)
	}
	return doc, nil
}

// Reload replaces the in-memory document with the file's current content.
// On error the previous document is kept.
func (s *Store) Reload() error {
	doc, err := Load(s.path)
	if err != nil {
		return err
	}
	s.doc = doc
	return nil
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Document returns the in-memory document.
func (s *Store) Document() *doctree.Document { return s.doc }

// Save writes the whole document with four-space indentation.
func (s *Store) Save() error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(s.doc); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := os.WriteFile(s.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	s.log.Debug("document saved", "path", s.path, "bytes", buf.Len())
	return nil
}

// Lookup returns the value at p. It never fails.
func (s *Store) Lookup(_ context.Context, p doctree.Path) (doctree.Value, bool, error) {
	v, ok := s.doc.Get(p)
	return v, ok, nil
}

// Put sets v at p and saves. The in-memory change is kept if saving fails.
func (s *Store) Put(_ context.Context, p doctree.Path, v doctree.Value) error {
	s.doc.Set(p, v)
	return s.Save()
}

// Remove deletes p, prunes emptied branches and saves. Nothing is written
// when p was absent.
func (s *Store) Remove(_ context.Context, p doctree.Path) (bool, error) {
	if !s.doc.Delete(p) {
		return false, nil
	}
	if err := s.Save(); err != nil {
		return false, err
	}
	return true, nil
}

// Merge deep-merges patch into the document and saves.
func (s *Store) Merge(patch doctree.Value) error {
	if err := s.doc.Merge(patch); err != nil {
		return err
	}
	return s.Save()
}
