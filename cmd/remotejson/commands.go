package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/maruel/ksid"
	"github.com/maruel/remotejson/internal/blobstore"
	"github.com/maruel/remotejson/internal/jsonvalue"
	"github.com/maruel/remotejson/internal/remotejson"
)

var (
	errUsage     = errors.New("invalid usage")
	errNoHistory = errors.New("revisions require the git backend")
)

type command struct {
	usage string
	help  string
	run   func(ctx context.Context, a *app, args []string, stdin io.Reader, w io.Writer) error
}

var commands = map[string]command{
	"put":     {"put [-title T] <json|->", "Create a document and print its id", cmdPut},
	"get":     {"get <id> [key...]", "Print a document's content, or the item at key", cmdGet},
	"replace": {"replace <id> <json|->", "Replace a document's content", cmdReplace},
	"set":     {"set <id> <key> <json>", "Set one item of a document's content", cmdSet},
	"patch":   {"patch <id> <json object>", "Merge an object into a document's content", cmdPatch},
	"call":    {"call <id> <method> [json...]", "Call a mutating method on a document's content", cmdCall},
	"rm":      {"rm <id>", "Delete a document and its blob", cmdRm},
	"ls":      {"ls", "List documents", cmdLs},
	"log":     {"log [-n N] <id>", "List the revisions of a document (git backend)", cmdLog},
	"show":    {"show <id> <revision>", "Print a document's content at a revision (git backend)", cmdShow},
	"gc":      {"gc", "Delete blobs no document references", cmdGC},
	"watch":   {"watch", "Report documents whose blob changes", cmdWatch},
}

func (a *app) run(ctx context.Context, name string, args []string, stdin io.Reader, w io.Writer) error {
	c, ok := commands[name]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}
	if err := c.run(ctx, a, args, stdin, w); err != nil {
		if errors.Is(err, errUsage) {
			return fmt.Errorf("%w; usage: %s", err, c.usage)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func cmdPut(_ context.Context, a *app, args []string, stdin io.Reader, w io.Writer) error {
	fs := flag.NewFlagSet("put", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	title := fs.String("title", "", "Document title")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() != 1 {
		return errUsage
	}
	v, err := readValue(fs.Arg(0), stdin)
	if err != nil {
		return err
	}
	d := &document{ID: ksid.NewID(), Title: *title, Modified: time.Now().UTC()}
	if !v.IsNull() {
		d.Data.Set(remotejson.New(v))
	}
	if err := a.table.Insert(d); err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, d.ID)
	return err
}

func cmdGet(_ context.Context, a *app, args []string, _ io.Reader, w io.Writer) error {
	if len(args) < 1 {
		return errUsage
	}
	d, err := a.lookup(args[0])
	if err != nil {
		return err
	}
	p := d.Data.Proxy()
	if p == nil {
		_, err = fmt.Fprintln(w, "null")
		return err
	}
	v, err := p.Get()
	if err != nil {
		return err
	}
	for _, k := range args[1:] {
		if v, err = v.Index(parseKey(v, k)); err != nil {
			return err
		}
	}
	return printValue(w, v)
}

func cmdReplace(_ context.Context, a *app, args []string, stdin io.Reader, _ io.Writer) error {
	if len(args) != 2 {
		return errUsage
	}
	d, err := a.lookup(args[0])
	if err != nil {
		return err
	}
	v, err := readValue(args[1], stdin)
	if err != nil {
		return err
	}
	if v.IsNull() {
		d.Data.Set(nil)
	} else {
		d.Data.Set(v)
	}
	return a.update(d)
}

func cmdSet(_ context.Context, a *app, args []string, _ io.Reader, _ io.Writer) error {
	if len(args) != 3 {
		return errUsage
	}
	d, err := a.lookup(args[0])
	if err != nil {
		return err
	}
	p := a.proxy(d)
	cur, err := p.Get()
	if err != nil {
		return err
	}
	if err := p.SetIndex(parseKey(cur, args[1]), parseLoose(args[2])); err != nil {
		return err
	}
	return a.update(d)
}

func cmdPatch(_ context.Context, a *app, args []string, _ io.Reader, _ io.Writer) error {
	if len(args) != 2 {
		return errUsage
	}
	d, err := a.lookup(args[0])
	if err != nil {
		return err
	}
	v, err := jsonvalue.Parse([]byte(args[1]))
	if err != nil {
		return err
	}
	if v.Kind() != jsonvalue.KindObject {
		return fmt.Errorf("%w: patch must be an object, got %s", errUsage, v.Kind())
	}
	p := a.proxy(d)
	if _, err := p.InPlace(jsonvalue.OpOr, v); err != nil {
		return err
	}
	return a.update(d)
}

func cmdCall(_ context.Context, a *app, args []string, _ io.Reader, w io.Writer) error {
	if len(args) < 2 {
		return errUsage
	}
	d, err := a.lookup(args[0])
	if err != nil {
		return err
	}
	callArgs := make([]jsonvalue.Value, 0, len(args)-2)
	for _, s := range args[2:] {
		callArgs = append(callArgs, parseLoose(s))
	}
	res, err := a.proxy(d).Call(args[1], callArgs...)
	if err != nil {
		return err
	}
	if err := a.update(d); err != nil {
		return err
	}
	if res.IsNull() {
		return nil
	}
	return printValue(w, res)
}

func cmdRm(_ context.Context, a *app, args []string, _ io.Reader, _ io.Writer) error {
	if len(args) != 1 {
		return errUsage
	}
	d, err := a.lookup(args[0])
	if err != nil {
		return err
	}
	if !d.Data.IsNull() {
		d.Data.Set(nil)
		if err := a.table.Update(d); err != nil {
			return err
		}
	}
	return a.table.Delete(d.ID)
}

func cmdLs(_ context.Context, a *app, args []string, _ io.Reader, w io.Writer) error {
	if len(args) != 0 {
		return errUsage
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for d, err := range a.table.All() {
		if err != nil {
			return err
		}
		p := "-"
		if px := d.Data.Proxy(); px != nil {
			p = px.Path()
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\n", d.ID, p, d.Title); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func cmdLog(_ context.Context, a *app, args []string, _ io.Reader, w io.Writer) error {
	fs := flag.NewFlagSet("log", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	n := fs.Int("n", 20, "Maximum number of revisions")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() != 1 {
		return errUsage
	}
	if a.git == nil {
		return errNoHistory
	}
	d, err := a.lookup(fs.Arg(0))
	if err != nil {
		return err
	}
	p := d.Data.Proxy()
	if p == nil || p.Path() == "" {
		return nil
	}
	revs, err := a.git.History(p.Path(), *n)
	if err != nil {
		return err
	}
	for _, r := range revs {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", r.Hash, r.When.Format(time.RFC3339), r.Message); err != nil {
			return err
		}
	}
	return nil
}

func cmdShow(_ context.Context, a *app, args []string, _ io.Reader, w io.Writer) error {
	if len(args) != 2 {
		return errUsage
	}
	if a.git == nil {
		return errNoHistory
	}
	d, err := a.lookup(args[0])
	if err != nil {
		return err
	}
	p := d.Data.Proxy()
	if p == nil || p.Path() == "" {
		return fmt.Errorf("%w: document %s has no content", blobstore.ErrNotFound, d.ID)
	}
	r, err := a.git.OpenAt(args[1], p.Path())
	if err != nil {
		return err
	}
	v, err := jsonvalue.Decode(r)
	if err = errors.Join(err, r.Close()); err != nil {
		return err
	}
	return printValue(w, v)
}

func cmdGC(ctx context.Context, a *app, args []string, _ io.Reader, w io.Writer) error {
	if len(args) != 0 {
		return errUsage
	}
	used, err := a.binding.UsedPaths(a.table)
	if err != nil {
		return err
	}
	deleted, err := blobstore.GC(a.store, used)
	if err != nil {
		return err
	}
	if a.dir != nil {
		if err := a.dir.CleanupTmp(); err != nil {
			return err
		}
	}
	for _, p := range deleted {
		if _, err := fmt.Fprintln(w, p); err != nil {
			return err
		}
	}
	a.log.InfoContext(ctx, "Collected unreferenced blobs", "count", len(deleted), "kept", len(used))
	return nil
}

func cmdWatch(ctx context.Context, a *app, args []string, _ io.Reader, w io.Writer) error {
	if len(args) != 0 {
		return errUsage
	}
	return a.watch(ctx, w)
}

func (a *app) lookup(s string) (*document, error) {
	id, err := ksid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid id %q: %w", errUsage, s, err)
	}
	return a.table.Get(id)
}

// proxy returns the document's content, assigning an empty object to a null
// document.
func (a *app) proxy(d *document) *remotejson.Proxy {
	if p := d.Data.Proxy(); p != nil {
		return p
	}
	p := remotejson.New(jsonvalue.NewObject().Value())
	d.Data.Set(p)
	return p
}

func (a *app) update(d *document) error {
	d.Modified = time.Now().UTC()
	return a.table.Update(d)
}

// readValue parses s as JSON, reading stdin when s is "-".
func readValue(s string, stdin io.Reader) (jsonvalue.Value, error) {
	if s == "-" {
		return jsonvalue.Decode(stdin)
	}
	return jsonvalue.Parse([]byte(s))
}

// parseLoose parses s as JSON, falling back to the string itself.
func parseLoose(s string) jsonvalue.Value {
	if v, err := jsonvalue.Parse([]byte(s)); err == nil {
		return v
	}
	return jsonvalue.String(s)
}

// parseKey returns an integer key for arrays and a string key otherwise.
func parseKey(container jsonvalue.Value, k string) jsonvalue.Value {
	if container.Kind() == jsonvalue.KindArray {
		if i, err := strconv.ParseInt(k, 10, 64); err == nil {
			return jsonvalue.Int(i)
		}
	}
	return jsonvalue.String(k)
}

func printValue(w io.Writer, v jsonvalue.Value) error {
	b, err := jsonvalue.Marshal(v)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, b, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err = w.Write(buf.Bytes())
	return err
}
