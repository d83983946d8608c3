// Command dotdoc reads and writes values of a JSON document by dotted key.
//
// The document is a local file (-file) or the remote store (-remote, using
// DOTDOC_REMOTE_URL and DOTDOC_TOKEN, or -url and -token).
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
	"strconv"
	"syscall"

	"github.com/dgallion1/dotdoc/internal/config"
	"github.com/dgallion1/dotdoc/internal/doctree"
	"github.com/dgallion1/dotdoc/internal/filestore"
	"github.com/dgallion1/dotdoc/internal/logging"
	"github.com/dgallion1/dotdoc/internal/pathdoc"
	"github.com/dgallion1/dotdoc/internal/pathstore"
	"github.com/dgallion1/dotdoc/internal/sqlquery"
	"gopkg.in/yaml.v3"
)

var (
	errKeyNotFound = errors.New("key not found")
	errNotANumber  = errors.New("not a number")
)

const usage = `usage: dotdoc [flags] <command> [args]

commands:
  get KEY           print the value at KEY
  set KEY VALUE     store VALUE (JSON, or a plain string) at KEY
  ensure KEY VALUE  store VALUE at KEY unless KEY exists
  delete KEY        delete KEY and prune emptied parents
  number KEY        print the value at KEY as a number
  watch KEY         print KEY every time the local file changes
  sql DB QUERY      run QUERY against the SQLite database DB

flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "dotdoc: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	file     string
	remote   bool
	url      string
	token    string
	format   string
	logLevel string
}

func run(ctx context.Context, args []string, stdout io.Writer, stderr *os.File) error {
	cfg := config.Load()
	var opts options
	fs := flag.NewFlagSet("dotdoc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.file, "file", "data.json", "Local document file")
	fs.BoolVar(&opts.remote, "remote", false, "Use the remote store instead of -file")
	fs.StringVar(&opts.url, "url", cfg.RemoteURL, "Remote store base URL")
	fs.StringVar(&opts.token, "token", cfg.Token, "Remote store token")
	fs.StringVar(&opts.format, "format", "json", "Output format (json, yaml)")
	fs.StringVar(&opts.logLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if opts.format != "json" && opts.format != "yaml" {
		return fmt.Errorf("unknown format %q", opts.format)
	}
	level, err := logging.ParseLevel(opts.logLevel)
	if err != nil {
		return err
	}
	log := logging.New(stderr, level, "text")

	cmd := fs.Args()
	if len(cmd) == 0 {
		fs.Usage()
		return errors.New("missing command")
	}
	switch cmd[0] {
	case "sql":
		if len(cmd) != 3 {
			return errors.New("usage: sql DB QUERY")
		}
		return runSQL(ctx, stdout, opts.format, cmd[1], cmd[2])
	case "watch":
		if len(cmd) != 2 {
			return errors.New("usage: watch KEY")
		}
		if opts.remote {
			return errors.New("watch only works on a local file")
		}
		return runWatch(ctx, stdout, log, opts, cmd[1])
	}

	cfg.RemoteURL = opts.url
	cfg.Token = opts.token
	engine, closeFn, err := openEngine(cfg, opts, log)
	if err != nil {
		return err
	}
	defer closeFn()

	switch cmd[0] {
	case "get":
		if len(cmd) != 2 {
			return errors.New("usage: get KEY")
		}
		v, ok, err := engine.Get(ctx, cmd[1])
		if err != nil {
			return err
		}
		if !ok {
			return errKeyNotFound
		}
		return printValue(stdout, opts.format, v)
	case "set":
		if len(cmd) != 3 {
			return errors.New("usage: set KEY VALUE")
		}
		if r := engine.Lookup(ctx, cmd[1]); r.Status == pathdoc.Found {
			log.Warn("key exists, overwriting", "key", cmd[1])
		}
		if err := engine.Set(ctx, cmd[1], parseArg(cmd[2])); err != nil {
			return err
		}
		log.Info("updated key", "key", cmd[1])
		return nil
	case "ensure":
		if len(cmd) != 3 {
			return errors.New("usage: ensure KEY VALUE")
		}
		existed, err := engine.CheckAndCreate(ctx, cmd[1], parseArg(cmd[2]))
		if err != nil {
			return err
		}
		if existed {
			fmt.Fprintln(stdout, "existed")
		} else {
			fmt.Fprintln(stdout, "created")
		}
		return nil
	case "delete":
		if len(cmd) != 2 {
			return errors.New("usage: delete KEY")
		}
		removed, err := engine.Delete(ctx, cmd[1])
		if err != nil {
			return err
		}
		if !removed {
			return errKeyNotFound
		}
		log.Info("deleted key", "key", cmd[1])
		return nil
	case "number":
		if len(cmd) != 2 {
			return errors.New("usage: number KEY")
		}
		f, ok, err := engine.GetAsNumber(ctx, cmd[1])
		if err != nil {
			return err
		}
		if !ok {
			if engine.Lookup(ctx, cmd[1]).Status == pathdoc.NotFound {
				return errKeyNotFound
			}
			return errNotANumber
		}
		fmt.Fprintln(stdout, strconv.FormatFloat(f, 'g', -1, 64))
		return nil
	}
	fs.Usage()
	return fmt.Errorf("unknown command %q", cmd[0])
}

func openEngine(cfg config.Config, opts options, log *slog.Logger) (*pathdoc.Engine, func(), error) {
	if !opts.remote {
		s, err := filestore.Open(opts.file, log)
		if err != nil {
			return nil, nil, err
		}
		return pathdoc.New(s, log), func() {}, nil
	}
	if err := cfg.ValidateRemote(); err != nil {
		return nil, nil, err
	}
	c := pathstore.NewClient(pathstore.Config{
		BaseURL:           cfg.RemoteURL,
		Token:             cfg.Token,
		Timeout:           cfg.RemoteTimeout,
		RequestsPerSecond: cfg.RemoteRPS,
		MaxRetries:        cfg.RemoteRetries,
	})
	return pathdoc.New(c, log), c.Close, nil
}

// parseArg reads s as JSON, falling back to the literal string.
func parseArg(s string) doctree.Value {
	if v, err := doctree.Parse([]byte(s)); err == nil {
		return v
	}
	return doctree.StringValue(s)
}

func runWatch(ctx context.Context, stdout io.Writer, log *slog.Logger, opts options, key string) error {
	p, err := doctree.ParsePath(key)
	if err != nil {
		return err
	}
	s, err := filestore.Open(opts.file, log)
	if err != nil {
		return err
	}
	show := func() {
		v, ok := s.Document().Get(p)
		if !ok {
			fmt.Fprintln(stdout, "<absent>")
			return
		}
		if err := printValue(stdout, opts.format, v); err != nil {
			log.Warn("print value", "error", err)
		}
	}
	show()
	return s.Watch(ctx, func(err error) {
		if err != nil {
			log.Warn("reload failed", "path", opts.file, "error", err)
			return
		}
		show()
	})
}

func runSQL(ctx context.Context, stdout io.Writer, format, db, query string) error {
	rows, err := sqlquery.Query(ctx, db, query)
	if err != nil {
		return err
	}
	if format == "yaml" {
		out, err := yaml.Marshal(rows)
		if err != nil {
			return err
		}
		_, err = stdout.Write(out)
		return err
	}
	enc := json.NewEncoder(stdout)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	return nil
}

func printValue(w io.Writer, format string, v doctree.Value) error {
	if format == "yaml" {
		out, err := yaml.Marshal(plain(v.Any()))
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// plain turns json.Number into int64 or float64 so YAML prints numbers
// rather than quoted strings.
func plain(x any) any {
	switch t := x.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case []any:
		for i := range t {
			t[i] = plain(t[i])
		}
		return t
	case map[string]any:
		for k := range t {
			t[k] = plain(t[k])
		}
		return t
	}
	return x
}
