// Package main is the entry point for the worklens CLI.
//
// worklens syncs work items from a Notion-style workspace API: it fetches
// every source listed in the manifest, normalizes the records into a
// uniform item model, links parent/child hierarchy, and caches the result
// on disk. Configuration comes from CLI flags and a YAML manifest.
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
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/worklens/worklens/internal/cache"
	"github.com/worklens/worklens/internal/fetch"
	"github.com/worklens/worklens/internal/mapping"
	"github.com/worklens/worklens/internal/service"
	"github.com/worklens/worklens/internal/source"
	"github.com/worklens/worklens/internal/transform"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "worklens: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	token := flag.String("token", "", "Workspace API token (required, or set WORKLENS_TOKEN)")
	manifestPath := flag.String("manifest", "worklens.yaml", "Path to the sync manifest")
	dataDir := flag.String("data-dir", "./data", "Cache directory (empty disables the durable cache)")
	baseURL := flag.String("base-url", source.DefaultBaseURL, "Workspace API base URL")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	dryRun := flag.Bool("dry-run", false, "List configured sources without fetching")
	jsonOut := flag.Bool("json", false, "Print the fetched items as JSON")
	watch := flag.Bool("watch", false, "Keep running and re-sync when the manifest changes")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	if *token == "" {
		*token = os.Getenv("WORKLENS_TOKEN")
	}
	if *token == "" && !*dryRun {
		return errors.New("--token or WORKLENS_TOKEN environment variable is required")
	}

	setupLogging(*logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	man, err := mapping.ParseManifest(*manifestPath)
	if err != nil {
		return err
	}

	if *dryRun {
		return printSources(os.Stdout, man)
	}

	client := source.NewClient(*token, source.ClientOptions{BaseURL: *baseURL})
	cm := cache.New(*dataDir, cache.Options{})

	runSync := func(man *mapping.Manifest) error {
		tf := transform.New(man.EffectiveMapping(), man.EffectiveAliases())
		orch := fetch.New(client, tf, fetch.Options{
			Reporter: &cliReporter{out: os.Stdout, err: os.Stderr},
			Store:    cm,
		})
		svc := service.New(client, orch, tf, cm, man.EffectiveMapping(), man.Sources)

		res, err := svc.FetchAll(ctx)
		if err != nil {
			return err
		}
		if res.Stale {
			fmt.Fprintln(os.Stderr, "Warning: serving stale cached data, every source failed")
		}
		if *jsonOut {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res.Items)
		}
		return nil
	}

	if err := runSync(man); err != nil {
		return err
	}
	if !*watch {
		return nil
	}

	changes, err := watchManifest(ctx, *manifestPath)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changes:
			slog.Info("Manifest changed, re-syncing", "path", *manifestPath)
			reloaded, err := mapping.ParseManifest(*manifestPath)
			if err != nil {
				slog.Error("Ignoring invalid manifest", "err", err)
				continue
			}
			man = reloaded
			cm.Clear()
			if err := runSync(man); err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				slog.Error("Sync failed", "err", err)
			}
		}
	}
}

// setupLogging installs a tinted slog handler on stderr.
func setupLogging(level string) {
	ll := &slog.LevelVar{}
	switch level {
	case "debug":
		ll.Set(slog.LevelDebug)
	case "warn":
		ll.Set(slog.LevelWarn)
	case "error":
		ll.Set(slog.LevelError)
	default:
		ll.Set(slog.LevelInfo)
	}
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000", // Like time.TimeOnly plus milliseconds.
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
	slog.SetDefault(logger)
}

// printSources lists the manifest's sources without fetching anything.
func printSources(out io.Writer, man *mapping.Manifest) error {
	type listed struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Name string `json:"name,omitempty"`
	}
	sources := make([]listed, 0, len(man.Sources))
	for _, s := range man.Sources {
		sources = append(sources, listed{ID: s.ID, Type: s.Type, Name: s.Name})
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(sources)
}

// watchManifest watches the manifest file and signals on modification.
func watchManifest(ctx context.Context, path string) (<-chan struct{}, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(path); err != nil {
		_ = w.Close()
		return nil, err
	}
	changes := make(chan struct{}, 1)
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Chmod) {
					select {
					case changes <- struct{}{}:
					default:
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("Error watching manifest", "err", err)
			}
		}
	}()
	return changes, nil
}

// cliReporter writes fetch progress to stdout/stderr.
type cliReporter struct {
	out io.Writer
	err io.Writer
}

func (r *cliReporter) OnStart(sources int) {
	fmt.Fprintf(r.out, "Fetching %d sources\n\n", sources)
}

func (r *cliReporter) OnProgress(p fetch.Progress) {
	if p.Done {
		return
	}
	fmt.Fprintf(r.out, "[%d] %s\n", p.Loaded, p.Source)
}

func (r *cliReporter) OnError(err error) {
	fmt.Fprintf(r.err, "Error: %s\n", source.Humanize(err))
}

func (r *cliReporter) OnComplete(stats fetch.Stats) {
	fmt.Fprintf(r.out, "\nComplete!\n")
	fmt.Fprintf(r.out, "---------\n")
	fmt.Fprintf(r.out, "Items:    %d\n", stats.Items)
	fmt.Fprintf(r.out, "Sources:  %d\n", stats.Sources)
	if stats.Failures > 0 {
		fmt.Fprintf(r.out, "Failures: %d\n", stats.Failures)
	}
	if stats.Orphans > 0 {
		fmt.Fprintf(r.out, "Orphans:  %d\n", stats.Orphans)
	}
	fmt.Fprintf(r.out, "Duration: %s\n", stats.Duration.Round(time.Millisecond))
}
