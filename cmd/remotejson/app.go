package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/maruel/ksid"
	"github.com/maruel/remotejson/internal/blobstore"
	"github.com/maruel/remotejson/internal/jsonldb"
	"github.com/maruel/remotejson/internal/remotejson"
	"github.com/prometheus/client_golang/prometheus"
)

// document is a row of documents.jsonl. Its content lives in the blob store.
type document struct {
	ID       ksid.ID           `json:"id" jsonschema:"description=Document identifier"`
	Title    string            `json:"title,omitempty" jsonschema:"description=Free form label"`
	Modified time.Time         `json:"modified" jsonschema:"description=Last modification time"`
	Data     remotejson.Column `json:"data" jsonschema:"description=Blob path of the document content"`
}

func (d *document) GetID() ksid.ID {
	return d.ID
}

func (d *document) Validate() error {
	if d.ID.IsZero() {
		return errors.New("id is required")
	}
	if len(d.Title) > 200 {
		return errors.New("title is too long")
	}
	return nil
}

func (d *document) RowKey() string {
	if d.ID.IsZero() {
		return ""
	}
	return d.ID.String()
}

// app holds the opened data directory.
type app struct {
	cfg     Config
	log     *slog.Logger
	reg     *prometheus.Registry
	store   *blobstore.Instrumented
	dir     *blobstore.Dir
	git     *blobstore.Git
	closer  func() error
	table   *jsonldb.Table[*document]
	binding *remotejson.Binding[*document]
}

func openApp(dataDir string, cfg Config, log *slog.Logger) (*app, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	a := &app{cfg: cfg, log: log, reg: prometheus.NewRegistry(), closer: func() error { return nil }}
	var backend blobstore.Store
	switch cfg.Backend {
	case "dir":
		d, err := blobstore.NewDir(filepath.Join(dataDir, "blobs"))
		if err != nil {
			return nil, fmt.Errorf("failed to open blob directory: %w", err)
		}
		a.dir = d
		backend = d
	case "git":
		g, err := blobstore.OpenGit(filepath.Join(dataDir, "blobs"), "remotejson", "remotejson@localhost")
		if err != nil {
			return nil, fmt.Errorf("failed to open blob repository: %w", err)
		}
		a.git = g
		a.dir = g.Dir()
		backend = g
	case "leveldb":
		l, err := blobstore.OpenLevelDB(filepath.Join(dataDir, "blobs.ldb"))
		if err != nil {
			return nil, fmt.Errorf("failed to open blob database: %w", err)
		}
		a.closer = l.Close
		backend = l
	default:
		return nil, fmt.Errorf("unknown backend: %q", cfg.Backend)
	}
	var err error
	if a.store, err = blobstore.NewInstrumented(backend, a.reg); err != nil {
		return nil, errors.Join(err, a.closer())
	}
	if a.table, err = jsonldb.NewTable[*document](filepath.Join(dataDir, "documents.jsonl"), jsonldb.WithLogger(log)); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to open documents table: %w", err), a.closer())
	}
	opts := []remotejson.Option{remotejson.WithLogger(log)}
	if cfg.Prefix != "" {
		prefix := cfg.Prefix
		opts = append(opts, remotejson.WithPathFunc(func(_ remotejson.Row, filename string) string {
			return path.Join(prefix, filename)
		}))
	}
	f := remotejson.NewField("data", a.store, opts...)
	a.binding = remotejson.Bind(a.table, f, func(d *document) *remotejson.Column { return &d.Data })
	return a, nil
}

func (a *app) Close() error {
	return a.closer()
}

// logMetrics writes the blob store counters at debug level.
func (a *app) logMetrics(ctx context.Context) {
	mfs, err := a.reg.Gather()
	if err != nil {
		a.log.WarnContext(ctx, "Failed to gather metrics", "err", err)
		return
	}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			attrs := []any{"name", mf.GetName(), "value", m.GetCounter().GetValue()}
			for _, lp := range m.GetLabel() {
				attrs = append(attrs, lp.GetName(), lp.GetValue())
			}
			a.log.DebugContext(ctx, "metric", attrs...)
		}
	}
}

// paths returns the blob path of every document, keyed by id.
func (a *app) paths() (map[string]string, error) {
	out := map[string]string{}
	for d, err := range a.table.All() {
		if err != nil {
			return nil, err
		}
		p := ""
		if px := d.Data.Proxy(); px != nil {
			p = px.Path()
		}
		out[d.ID.String()] = p
	}
	return out, nil
}
