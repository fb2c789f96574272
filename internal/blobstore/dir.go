package blobstore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const tmpDirName = ".tmp"

// skipDirs are directories under the root that never hold blobs.
var skipDirs = map[string]bool{tmpDirName: true, ".git": true}

// Dir stores blobs as files under a root directory.
//
// Writes go through <root>/.tmp/<random>.tmp then are renamed into place, so
// a reader never sees a partially written blob.
type Dir struct {
	root string
}

// NewDir returns a store rooted at root, creating it if needed.
func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &Dir{root: root}, nil
}

// Root returns the directory holding the blobs.
func (d *Dir) Root() string {
	return d.root
}

// Save writes content at p, replacing any existing file.
func (d *Dir) Save(p string, content []byte) (string, error) {
	if err := ValidatePath(p); err != nil {
		return "", err
	}
	tmpDir := filepath.Join(d.root, tmpDirName)
	if err := os.MkdirAll(tmpDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create tmp directory: %w", err)
	}
	f, err := os.CreateTemp(tmpDir, "*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := f.Name()
	if _, err := f.Write(content); err != nil {
		return "", errors.Join(fmt.Errorf("failed to write blob: %w", err), f.Close(), os.Remove(tmpPath))
	}
	if err := f.Close(); err != nil {
		return "", errors.Join(fmt.Errorf("failed to close temp file: %w", err), os.Remove(tmpPath))
	}
	target := d.abs(p)
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return "", errors.Join(fmt.Errorf("failed to create blob subdirectory: %w", err), os.Remove(tmpPath))
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return "", errors.Join(fmt.Errorf("failed to rename blob to final location: %w", err), os.Remove(tmpPath))
	}
	return p, nil
}

// Delete removes the file at p. A missing file is not an error.
func (d *Dir) Delete(p string) error {
	if err := ValidatePath(p); err != nil {
		return err
	}
	if err := os.Remove(d.abs(p)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// Open opens the file at p.
func (d *Dir) Open(p string) (io.ReadCloser, error) {
	if err := ValidatePath(p); err != nil {
		return nil, err
	}
	f, err := os.Open(d.abs(p))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return f, nil
}

// List returns the relative paths of all blobs, skipping the temp and .git
// directories.
func (d *Dir) List() ([]string, error) {
	var out []string
	err := filepath.WalkDir(d.root, func(p string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if e.IsDir() {
			if p != d.root && skipDirs[e.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(d.root, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}
	slices.Sort(out)
	return out, nil
}

// CleanupTmp removes leftover temp files from interrupted writes.
func (d *Dir) CleanupTmp() error {
	dir := filepath.Join(d.root, tmpDirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read tmp directory: %w", err)
	}
	var errs []error
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".tmp") {
			if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
				errs = append(errs, fmt.Errorf("failed to remove temp file %s: %w", entry.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

func (d *Dir) abs(p string) string {
	return filepath.Join(d.root, filepath.FromSlash(p))
}
