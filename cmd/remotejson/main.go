// Package main is the remotejson command line tool.
//
// remotejson manages a table of documents whose JSON content is stored as
// separate blobs: files under the data directory, optionally versioned in a
// git repository, or entries of a LevelDB database. The table itself only
// keeps each document's blob path.
// Settings are read from CLI flags and config.yaml in the data directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	err := mainImpl(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "remotejson: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer, stderr *os.File) error {
	fs := flag.NewFlagSet("remotejson", flag.ContinueOnError)
	fs.SetOutput(stderr)
	version := fs.Bool("version", false, "Print version and exit")
	dataDir := fs.String("data-dir", "./data", "Data directory")
	logLevel := fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	backend := fs.String("backend", "dir", "Blob store backend (dir, git, leveldb)")
	prefix := fs.String("prefix", "", "Directory prepended to new blob paths")
	fs.Usage = func() {
		w := fs.Output()
		_, _ = fmt.Fprintf(w, "usage: remotejson [flags] <command> [args]\n\ncommands:\n")
		names := make([]string, 0, len(commands))
		for n := range commands {
			names = append(names, n)
		}
		slices.Sort(names)
		for _, n := range names {
			_, _ = fmt.Fprintf(w, "  %-30s %s\n", commands[n].usage, commands[n].help)
		}
		_, _ = fmt.Fprintf(w, "\nflags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if *version {
		printVersion(stdout)
		return nil
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	ll := &slog.LevelVar{}
	ll.Set(slog.LevelInfo)
	logger := newLogger(stderr, ll)

	cfg, err := loadConfig(*dataDir)
	if err != nil {
		return err
	}
	// Flags explicitly set win over config.yaml.
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	if set["backend"] {
		cfg.Backend = *backend
	}
	if set["prefix"] {
		cfg.Prefix = *prefix
	}
	if set["log-level"] {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	lvl, _ := parseLevel(cfg.LogLevel)
	ll.Set(lvl)

	a, err := openApp(*dataDir, cfg, logger)
	if err != nil {
		return err
	}
	logger.DebugContext(ctx, "Opened data directory", "path", *dataDir, "backend", cfg.Backend, "prefix", cfg.Prefix, "documents", a.table.Len())
	err = a.run(ctx, fs.Arg(0), fs.Args()[1:], stdin, stdout)
	a.logMetrics(ctx)
	return errors.Join(err, a.Close())
}

func newLogger(w *os.File, ll *slog.LevelVar) *slog.Logger {
	return slog.New(tint.NewHandler(colorable.NewColorable(w), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(w.Fd()),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			skip := false
			switch t := a.Value.Any().(type) {
			case string:
				skip = t == ""
			case bool:
				skip = !t
			case time.Time:
				skip = t.IsZero()
			case nil:
				skip = true
			}
			if skip {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func printVersion(w io.Writer) {
	version, goVersion, revision, dirty := getBuildInfo()
	var b strings.Builder
	fmt.Fprintf(&b, "remotejson %s\n", version)
	fmt.Fprintf(&b, "  Go version: %s\n", goVersion)
	fmt.Fprintf(&b, "  Revision:   %s\n", revision)
	if dirty {
		b.WriteString("  Modified:   true\n")
	}
	_, _ = io.WriteString(w, b.String())
}

func getBuildInfo() (version, goVersion, revision string, dirty bool) {
	version = "unknown"
	goVersion = "unknown"
	revision = "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	goVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return
}
