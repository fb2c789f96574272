// Package blobstore stores JSON documents addressed by a relative path.
//
// A [Store] is the minimal capability set the remote JSON field needs: save
// bytes at a path, delete a path, open a path for reading. Backends live in
// this package: [Dir] on the local filesystem, [Memory] for tests, [LevelDB]
// for a single embedded database, and [Instrumented] wraps any of them with
// Prometheus counters.
package blobstore

import (
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrNotFound is wrapped by Open when nothing is stored at the path.
var ErrNotFound = errors.New("blob not found")

var errInvalidPath = errors.New("invalid blob path")

// Store is a key-value blob store addressed by slash-separated relative paths.
//
// Save overwrites any existing content and returns the path actually used.
// Delete of a missing path is not an error. Open returns an error wrapping
// ErrNotFound for a missing path; the caller must close the reader.
type Store interface {
	Save(path string, content []byte) (string, error)
	Delete(path string) error
	Open(path string) (io.ReadCloser, error)
}

// Lister is implemented by stores that can enumerate their content.
type Lister interface {
	// List returns every stored path, sorted.
	List() ([]string, error)
}

// ReadAll opens p in s and reads it entirely.
func ReadAll(s Store, p string) ([]byte, error) {
	r, err := s.Open(p)
	if err != nil {
		return nil, err
	}
	b, err := io.ReadAll(r)
	return b, errors.Join(err, r.Close())
}

// ValidatePath checks that p is a clean relative slash-separated path that
// stays inside the store.
func ValidatePath(p string) error {
	switch {
	case p == "":
		return fmt.Errorf("%w: empty", errInvalidPath)
	case strings.HasPrefix(p, "/"):
		return fmt.Errorf("%w: %q is absolute", errInvalidPath, p)
	case strings.ContainsRune(p, '\\'), strings.ContainsRune(p, 0):
		return fmt.Errorf("%w: %q contains a forbidden character", errInvalidPath, p)
	case path.Clean(p) != p:
		return fmt.Errorf("%w: %q is not clean", errInvalidPath, p)
	case p == ".." || strings.HasPrefix(p, "../"):
		return fmt.Errorf("%w: %q escapes the store", errInvalidPath, p)
	}
	return nil
}
