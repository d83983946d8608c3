package api

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dgallion1/dotdoc/internal/doctree"
	"github.com/dgallion1/dotdoc/internal/filestore"
)

type tokenKey struct{}

func withToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// tokenFileName maps a token to its document file without exposing the
// token on disk.
func tokenFileName(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x.json", h[:])
}

func (s *Server) docPath(r *http.Request) string {
	return filepath.Join(s.cfg.DataDir, tokenFileName(tokenFrom(r.Context())))
}

// openStore opens the calling token's document, creating it when missing.
// Callers hold s.mu.
func (s *Server) openStore(r *http.Request) (*filestore.Store, error) {
	return filestore.Open(s.docPath(r), s.log)
}

// existingStore opens the calling token's document without creating it.
// ok is false when the token has no document yet. Callers hold s.mu.
func (s *Server) existingStore(r *http.Request) (store *filestore.Store, ok bool, err error) {
	store, err = filestore.OpenExisting(s.docPath(r), s.log)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return store, true, nil
}

// handleGet returns the whole document, or the value at ?key=.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	var p doctree.Path
	if key != "" {
		var err error
		if p, err = doctree.ParsePath(key); err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	store, exists, err := s.existingStore(r)
	if err != nil {
		s.storeError(w, err)
		return
	}
	doc := doctree.New()
	if exists {
		doc = store.Document()
	}
	if p == nil {
		writeJSON(w, http.StatusOK, doc)
		return
	}
	v, ok := doc.Get(p)
	if !ok {
		jsonError(w, "key not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handlePut deep-merges a JSON object into the document.
func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			jsonError(w, fmt.Sprintf("body exceeds %d bytes", maxErr.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "failed to read body", http.StatusBadRequest)
		return
	}
	patch, err := doctree.Parse(body)
	if err != nil {
		jsonError(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if !patch.IsMapping() {
		jsonError(w, "body must be a JSON object", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	store, err := s.openStore(r)
	if err != nil {
		s.storeError(w, err)
		return
	}
	if err := store.Merge(patch); err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// handleDelete removes ?key= and prunes emptied branches.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	p, err := doctree.ParsePath(r.URL.Query().Get("key"))
	if err != nil {
		jsonError(w, "key: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	store, exists, err := s.existingStore(r)
	if err != nil {
		s.storeError(w, err)
		return
	}
	if !exists {
		jsonError(w, "key not found", http.StatusNotFound)
		return
	}
	removed, err := store.Remove(r.Context(), p)
	if err != nil {
		s.storeError(w, err)
		return
	}
	if !removed {
		jsonError(w, "key not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": p.String()})
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	s.log.Error("document store failed", "error", err)
	if errors.Is(err, filestore.ErrMalformedDocument) {
		jsonError(w, "stored document is malformed", http.StatusInternalServerError)
		return
	}
	jsonError(w, "document store unavailable", http.StatusInternalServerError)
}
