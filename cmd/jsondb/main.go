// Package main is the entry point for the jsondb command.
//
// jsondb evaluates queries against the collections of a catalog: JSONL or
// JSON dataset files described by a YAML configuration. A query is either
// given inline as a JSON document or taken from a saved view. Results are
// printed as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/maruel/jsondb/internal/catalog"
	"github.com/maruel/jsondb/internal/jsondb"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "jsondb: %v\n", err)
		os.Exit(1)
	}
}

// outputMode selects what is printed for a query.
type outputMode int

const (
	outputRows outputMode = iota
	outputCount
	outputPage
)

func mainImpl() error {
	version := flag.Bool("version", false, "Print version and exit")
	schema := flag.Bool("schema", false, "Print the JSON Schema of a query document and exit")
	configPath := flag.String("config", "jsondb.yaml", "Catalog configuration file")
	collection := flag.String("collection", "", "Collection to query")
	queryArg := flag.String("query", "", "Query document as JSON, or @path to read it from a file")
	view := flag.String("view", "", "Saved view to run instead of -collection and -query")
	count := flag.Bool("count", false, "Print the number of matching records instead of the records")
	page := flag.Bool("page", false, "Print the records together with the total number of matches")
	watch := flag.Bool("watch", false, "Print again whenever a dataset file changes")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	if *version {
		printVersion()
		return nil
	}
	if *schema {
		return printJSON(os.Stdout, jsondb.QuerySchema())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := &slog.LevelVar{}
	switch *logLevel {
	case "debug":
		ll.Set(slog.LevelDebug)
	case "info":
		ll.Set(slog.LevelInfo)
	case "warn":
		ll.Set(slog.LevelWarn)
	case "error":
		ll.Set(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level: %q", *logLevel)
	}
	slog.SetDefault(newLogger(os.Stderr, ll))

	if *count && *page {
		return errors.New("-count and -page are mutually exclusive")
	}
	mode := outputRows
	if *count {
		mode = outputCount
	} else if *page {
		mode = outputPage
	}

	cat, err := catalog.Open(*configPath)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}

	name, q, err := resolveQuery(cat, *view, *collection, *queryArg)
	if err != nil {
		return err
	}
	if err := run(ctx, os.Stdout, cat, name, q, mode); err != nil {
		return err
	}
	if !*watch {
		return nil
	}

	err = cat.Watch(ctx, func(reloaded string) {
		slog.DebugContext(ctx, "Re-running query", "collection", name, "reloaded", reloaded)
		if err := run(ctx, os.Stdout, cat, name, q, mode); err != nil {
			slog.ErrorContext(ctx, "Query failed", "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to watch datasets: %w", err)
	}
	slog.InfoContext(ctx, "Watching datasets", "collections", cat.Collections())
	<-ctx.Done()
	return ctx.Err()
}

// newLogger returns a tint handler on w, colored when w is a terminal.
func newLogger(w *os.File, level slog.Leveler) *slog.Logger {
	return slog.New(tint.NewHandler(colorable.NewColorable(w), &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000", // Like time.TimeOnly plus milliseconds.
		NoColor:    !isatty.IsTerminal(w.Fd()),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			val := a.Value.Any()
			skip := false
			switch t := val.(type) {
			case string:
				skip = t == ""
			case time.Duration:
				skip = t == 0
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

// resolveQuery returns the collection and query selected by the flags.
func resolveQuery(cat *catalog.Catalog, view, collection, queryArg string) (string, *jsondb.Query, error) {
	if view != "" {
		if collection != "" || queryArg != "" {
			return "", nil, errors.New("-view cannot be combined with -collection or -query")
		}
		return cat.View(view)
	}
	if collection == "" {
		return "", nil, errors.New("-collection or -view is required")
	}
	q, err := parseQuery(queryArg)
	if err != nil {
		return "", nil, err
	}
	return collection, q, nil
}

// parseQuery decodes a query document. An argument starting with @ names a
// file to read it from.
func parseQuery(arg string) (*jsondb.Query, error) {
	data := []byte(arg)
	if path, ok := strings.CutPrefix(arg, "@"); ok {
		var err error
		data, err = os.ReadFile(path) //nolint:gosec // User-specified query path
		if err != nil {
			return nil, fmt.Errorf("failed to read query: %w", err)
		}
	}
	q := &jsondb.Query{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return q, nil
	}
	if err := json.Unmarshal(data, q); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}
	return q, nil
}

// run evaluates q on a collection and prints the result to w.
func run(ctx context.Context, w io.Writer, cat *catalog.Catalog, collection string, q *jsondb.Query, mode outputMode) error {
	start := time.Now()
	var result any
	switch mode {
	case outputCount:
		n, err := cat.Count(ctx, collection, q)
		if err != nil {
			return err
		}
		result = map[string]int{"count": n}
	case outputPage:
		p, err := cat.FindPage(ctx, collection, q)
		if err != nil {
			return err
		}
		result = p
	default:
		rows, err := cat.Find(ctx, collection, q)
		if err != nil {
			return err
		}
		result = rows
	}
	slog.DebugContext(ctx, "Query done", "collection", collection, "dur", time.Since(start))
	return printJSON(w, result)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printVersion() {
	version, goVersion, revision, dirty := getBuildInfo()
	fmt.Printf("jsondb %s\n", version)
	fmt.Printf("  Go version: %s\n", goVersion)
	fmt.Printf("  Revision:   %s\n", revision)
	if dirty {
		fmt.Printf("  Modified:   true\n")
	}
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
