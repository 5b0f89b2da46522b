// Package store implements the JSON-file persistence layer (C2): one
// reader-writer lock per collection file, atomic write-temp-then-rename on
// every mutation, and a fail-closed load path — a corrupt file aborts
// startup rather than silently defaulting.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// CorruptStateError is returned when a collection file exists but cannot be
// decoded. The store never substitutes a default value for corrupt state;
// the operator must intervene.
type CorruptStateError struct {
	Path string
	Err  error
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("corrupt state file %s: %v", e.Path, e.Err)
}

func (e *CorruptStateError) Unwrap() error { return e.Err }

const (
	fileMode = 0o600
	dirMode  = 0o700
)

// Collection is a single JSON-file-backed entity store, generic over the
// decoded document type T (e.g. queueFile, historyFile). Every read and
// write goes through Load/Mutate, which hold the collection's lock around
// readLocked/writeLocked.
type Collection[T any] struct {
	path string
	mu   sync.RWMutex
	log  zerolog.Logger
}

// NewCollection opens the collection file at path, creating its parent
// directory if necessary, and reads it once so that a corrupt file is
// reported as CorruptStateError at construction time.
func NewCollection[T any](path string, log zerolog.Logger) (*Collection[T], error) {
	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	c := &Collection[T]{path: path, log: log.With().Str("component", "store").Str("collection", filepath.Base(path)).Logger()}
	if _, err := c.Load(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads the whole collection under a shared lock. A missing file
// yields the zero value of T, not an error (first-run case); a present but
// undecodable file yields CorruptStateError.
func (c *Collection[T]) Load() (T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.readLocked()
}

func (c *Collection[T]) readLocked() (T, error) {
	var doc T
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return doc, nil
		}
		return doc, fmt.Errorf("read %s: %w", c.path, err)
	}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, &CorruptStateError{Path: c.path, Err: err}
	}
	return doc, nil
}

// MutateFunc receives the current document and returns the document to
// persist, or an error to abort the mutation (in which case the file is
// left untouched and the in-memory caller state is not considered mutated).
type MutateFunc[T any] func(current T) (T, error)

// Mutate reads the collection, applies fn, and atomically replaces the
// file, all under the collection's exclusive lock. A write failure (disk
// full, permissions) surfaces as a non-fatal error to the caller; the file
// on disk is left at its last-good state (write-temp-then-rename never
// touches the original until the replacement is fully written).
func (c *Collection[T]) Mutate(fn MutateFunc[T]) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.readLocked()
	if err != nil {
		return err
	}

	updated, err := fn(current)
	if err != nil {
		return err
	}

	return c.writeLocked(updated)
}

func (c *Collection[T]) writeLocked(doc T) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.path, err)
	}

	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", c.path, err)
	}
	tmpName := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file for %s: %w", c.path, err)
	}
	if err := tmp.Chmod(fileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file for %s: %w", c.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file for %s: %w", c.path, err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		return fmt.Errorf("replace %s: %w", c.path, err)
	}
	cleanup = false

	c.log.Debug().Str("path", c.path).Int("bytes", len(data)).Msg("collection written")
	return nil
}
