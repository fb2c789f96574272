package blobstore

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/syndtr/goleveldb/leveldb"
	leveldbStorage "github.com/syndtr/goleveldb/leveldb/storage"
	leveldbUtil "github.com/syndtr/goleveldb/leveldb/util"
)

// keyPrefix namespaces blob keys so the database can be shared.
const keyPrefix = "blob:"

// LevelDB stores blobs as values in a LevelDB database.
type LevelDB struct {
	db *leveldb.DB
}

// OpenLevelDB opens or creates the database in directory dir. An empty dir
// opens a fresh in-memory database.
func OpenLevelDB(dir string) (*LevelDB, error) {
	var db *leveldb.DB
	var err error
	if dir == "" {
		db, err = leveldb.Open(leveldbStorage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(dir, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb: %w", err)
	}
	return &LevelDB{db: db}, nil
}

// Close releases the database.
func (l *LevelDB) Close() error {
	return l.db.Close()
}

// Save stores content at p.
func (l *LevelDB) Save(p string, content []byte) (string, error) {
	if err := ValidatePath(p); err != nil {
		return "", err
	}
	if err := l.db.Put(key(p), content, nil); err != nil {
		return "", fmt.Errorf("failed to save blob: %w", err)
	}
	return p, nil
}

// Delete removes p. LevelDB deletes of missing keys already succeed.
func (l *LevelDB) Delete(p string) error {
	if err := ValidatePath(p); err != nil {
		return err
	}
	if err := l.db.Delete(key(p), nil); err != nil {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// Open returns a reader over the value stored at p.
func (l *LevelDB) Open(p string) (io.ReadCloser, error) {
	if err := ValidatePath(p); err != nil {
		return nil, err
	}
	b, err := l.db.Get(key(p), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

// List returns all stored paths in key order.
func (l *LevelDB) List() ([]string, error) {
	it := l.db.NewIterator(leveldbUtil.BytesPrefix([]byte(keyPrefix)), nil)
	defer it.Release()
	var out []string
	for it.Next() {
		out = append(out, string(it.Key()[len(keyPrefix):]))
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}
	return out, nil
}

func key(p string) []byte {
	return []byte(keyPrefix + p)
}
