package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"
)

type pathChange struct {
	id       string
	from, to string
}

func (c pathChange) String() string {
	from, to := c.from, c.to
	if from == "" {
		from = "-"
	}
	if to == "" {
		to = "-"
	}
	return fmt.Sprintf("%s\t%s -> %s", c.id, from, to)
}

// diffPaths returns the documents whose blob path differs between old and
// cur, sorted by id. A missing document has an empty path.
func diffPaths(old, cur map[string]string) []pathChange {
	var out []pathChange
	for id, p := range cur {
		if prev, ok := old[id]; !ok || prev != p {
			out = append(out, pathChange{id: id, from: old[id], to: p})
		}
	}
	for id, p := range old {
		if _, ok := cur[id]; !ok {
			out = append(out, pathChange{id: id, from: p})
		}
	}
	slices.SortFunc(out, func(a, b pathChange) int { return strings.Compare(a.id, b.id) })
	return out
}

// watch reloads the documents table each time another process rewrites it
// and prints the documents whose blob changed, until ctx is done.
func (a *app) watch(ctx context.Context, w io.Writer) error {
	prev, err := a.paths()
	if err != nil {
		return err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fw.Close() }()
	// The table is replaced by rename, so watch its directory.
	name := filepath.Clean(a.table.Path())
	if err := fw.Add(filepath.Dir(name)); err != nil {
		return err
	}
	// Coalesce bursts of writes into at most one reload per interval.
	lim := rate.NewLimiter(rate.Every(100*time.Millisecond), 1)
	a.log.InfoContext(ctx, "Watching documents", "path", name, "count", len(prev))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)) {
				continue
			}
			if err := lim.Wait(ctx); err != nil {
				return err
			}
			if err := a.table.Reload(); err != nil {
				a.log.WarnContext(ctx, "Failed to reload documents", "err", err)
				continue
			}
			cur, err := a.paths()
			if err != nil {
				a.log.WarnContext(ctx, "Failed to read documents", "err", err)
				continue
			}
			for _, c := range diffPaths(prev, cur) {
				if _, err := fmt.Fprintln(w, c); err != nil {
					return err
				}
			}
			prev = cur
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			a.log.WarnContext(ctx, "Error watching documents", "err", err)
		}
	}
}
