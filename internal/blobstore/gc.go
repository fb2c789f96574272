package blobstore

import (
	"errors"
	"fmt"
	"strings"
)

var errNotLister = errors.New("blob store cannot list its content")

// GC deletes every ".json" blob whose path is not in used and returns the
// deleted paths. Other files are left alone.
//
// This is a stop-the-world collection: the caller must ensure no save is in
// progress, otherwise a blob written after used was computed is lost.
func GC(s Store, used map[string]bool) ([]string, error) {
	l, ok := s.(Lister)
	if !ok {
		return nil, errNotLister
	}
	paths, err := l.List()
	if err != nil {
		return nil, err
	}
	var deleted []string
	var errs []error
	for _, p := range paths {
		if used[p] || !strings.HasSuffix(p, ".json") {
			continue
		}
		if err := s.Delete(p); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove orphan blob %s: %w", p, err))
			continue
		}
		deleted = append(deleted, p)
	}
	return deleted, errors.Join(errs...)
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
