// Package jsonstore keeps the whole store as one JSON document in memory and
// rewrites the file atomically after every mutating scope.
package jsonstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/m3rciful/filehost/core/logger"
	"github.com/m3rciful/filehost/internal/store"
)

type document struct {
	Users    map[string]store.User    `json:"users"`
	Files    map[string]store.File    `json:"files"`
	Invoices map[string]store.Invoice `json:"invoices"`
	Settings store.Settings           `json:"settings"`
}

func newDocument() *document {
	return &document{
		Users:    make(map[string]store.User),
		Files:    make(map[string]store.File),
		Invoices: make(map[string]store.Invoice),
	}
}

func (d *document) clone() *document {
	return &document{
		Users:    maps.Clone(d.Users),
		Files:    maps.Clone(d.Files),
		Invoices: maps.Clone(d.Invoices),
		Settings: d.Settings,
	}
}

// Store is a store.Store backed by a single JSON file.
type Store struct {
	mu   sync.Mutex
	path string
	doc  *document
}

var _ store.Store = (*Store)(nil)

// Open loads path, creating an empty document when the file does not exist.
// A legacy flat {code: file} document is migrated and written back at once.
func Open(path string) (*Store, error) {
	start := time.Now()
	doc, migrated, err := load(path)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path, doc: doc}
	if migrated {
		if err := s.flush(doc); err != nil {
			return nil, fmt.Errorf("jsonstore: write migrated document: %w", err)
		}
		logger.LogEvent(logger.Background(), logger.Store, slog.LevelWarn, "store.migrate.legacy",
			slog.String("path", path),
			slog.Int("count", len(doc.Files)),
		)
	}
	logger.LogEvent(logger.Background(), logger.Store, slog.LevelInfo, "store.open",
		slog.String("status", "ok"),
		slog.String("db", "json"),
		slog.String("path", path),
		slog.Int("users", len(doc.Users)),
		slog.Int("files", len(doc.Files)),
		slog.Int("invoices", len(doc.Invoices)),
		slog.Duration("duration", logger.Took(start)),
	)
	return s, nil
}

func load(path string) (*document, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return newDocument(), false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("jsonstore: read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return newDocument(), false, nil
	}
	return decode(data)
}

// decode parses either the sectioned document or the legacy flat layout
// in which the top level maps codes straight to file records.
func decode(data []byte) (*document, bool, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, false, fmt.Errorf("jsonstore: parse document: %w", err)
	}

	doc := newDocument()
	sectioned := false
	for _, key := range []string{"users", "files", "invoices", "settings"} {
		if _, ok := top[key]; ok {
			sectioned = true
			break
		}
	}

	if sectioned {
		if err := json.Unmarshal(data, doc); err != nil {
			return nil, false, fmt.Errorf("jsonstore: parse document: %w", err)
		}
		if doc.Users == nil {
			doc.Users = make(map[string]store.User)
		}
		if doc.Files == nil {
			doc.Files = make(map[string]store.File)
		}
		if doc.Invoices == nil {
			doc.Invoices = make(map[string]store.Invoice)
		}
	} else {
		for code, raw := range top {
			var f store.File
			if err := json.Unmarshal(raw, &f); err != nil {
				return nil, false, fmt.Errorf("jsonstore: parse legacy file %q: %w", code, err)
			}
			doc.Files[code] = f
		}
	}

	for key, u := range doc.Users {
		if u.ID == 0 {
			id, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				return nil, false, fmt.Errorf("jsonstore: user key %q: %w", key, err)
			}
			u.ID = id
			doc.Users[key] = u
		}
	}
	for code, f := range doc.Files {
		f.Code = code
		doc.Files[code] = f
	}
	for id, inv := range doc.Invoices {
		if inv.ID == "" {
			inv.ID = id
			doc.Invoices[id] = inv
		}
	}
	return doc, !sectioned && len(top) > 0, nil
}

// Atomic runs fn on a copy of the document. The copy replaces the live
// document only after fn succeeded and, if fn wrote anything, the file was
// rewritten.
func (s *Store) Atomic(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{doc: s.doc.clone()}
	if err := fn(t); err != nil {
		return err
	}
	if !t.dirty {
		return nil
	}
	if err := s.flush(t.doc); err != nil {
		logger.LogEvent(ctx, logger.Store, slog.LevelError, "store.flush",
			slog.String("status", "fail"),
			slog.String("path", s.path),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("jsonstore: flush: %w", err)
	}
	s.doc = t.doc
	return nil
}

func (s *Store) flush(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// Close is a no-op: every successful scope is already on disk.
func (s *Store) Close() error {
	return nil
}
