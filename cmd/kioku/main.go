// Package main is the Kioku CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/cli"
	"github.com/hyperjump/kioku/internal/config"
	"github.com/hyperjump/kioku/internal/index"
	"github.com/hyperjump/kioku/internal/server"
	"github.com/hyperjump/kioku/internal/store"
	"github.com/hyperjump/kioku/internal/tokenize"
	"github.com/hyperjump/kioku/internal/vectorize"
	"github.com/hyperjump/kioku/internal/watcher"
	"github.com/hyperjump/kioku/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kioku/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); when neither
// exists, built-in defaults are used so the CLI works without any setup.
func loadConfig(path string) (*config.Config, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				return config.Load(fallback)
			}
		}
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return config.Default(), nil
		}
	}
	return config.Load(path)
}

// openEngine builds the tokenizer, vectorizer strategy, store, and engine
// from config. The caller must Close the returned store.
func openEngine(cfg *config.Config, logger *zap.Logger) (*index.Engine, *store.SQLite, error) {
	tok := tokenize.NewTokenizer(tokenize.Stopwords(cfg.Index.StopwordLanguages, cfg.Index.ExtraStopwords...))
	strategy, err := vectorize.New(cfg.Index.Mode, tok, cfg.Index.Dimensions, cfg.Index.NGramSizes)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(cfg.Storage.DatabasePath, strategy.Name(), cfg.Index.Dimensions)
	if err != nil {
		return nil, nil, err
	}
	engine := index.NewEngine(st, strategy, cfg.Index.TopK, index.WithLogger(logger))
	return engine, st, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "add":
		runAdd()
	case "search":
		runSearch()
	case "update":
		runUpdate()
	case "delete":
		runDelete()
	case "stats":
		runStats()
	case "clear":
		runClear()
	case "rebuild":
		runRebuild()
	case "sync":
		runSync()
	case "server":
		runServer()
	case "watch":
		runWatch()
	case "version":
		fmt.Println("kioku", version)
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: kioku <command> [options]

Commands:
  add      Add a memory: kioku add "Project deadline is March 15"
  search   Search memories: kioku search -k 5 "when is the deadline"
  update   Replace a memory: kioku update -id 3 "new content"
  delete   Delete a memory by id: kioku delete -id 3
  stats    Show index statistics
  clear    Remove all memories
  rebuild  Re-index a document from scratch: kioku rebuild -file notes.md
  sync     Incrementally re-index a document: kioku sync -file notes.md
  server   Run the HTTP API server
  watch    Watch configured documents and re-sync on change
  version  Print the version`)
}

// setup parses common flags, loads config, and opens the engine.
func setup(fs *flag.FlagSet, args []string) (*config.Config, *index.Engine, *store.SQLite, *zap.Logger) {
	configPath := fs.String("config", defaultConfigPath, "config file path")
	fs.Parse(args)
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal(err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fatal(err)
	}
	engine, st, err := openEngine(cfg, logger)
	if err != nil {
		fatal(err)
	}
	return cfg, engine, st, logger
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}

func runAdd() {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	metaJSON := fs.String("meta", "", "metadata as a JSON object")
	_, engine, st, _ := setup(fs, os.Args[2:])
	defer st.Close()
	if fs.NArg() < 1 {
		fatal(fmt.Errorf("add requires the memory text"))
	}
	var metadata map[string]any
	if *metaJSON != "" {
		if err := json.Unmarshal([]byte(*metaJSON), &metadata); err != nil {
			fatal(fmt.Errorf("invalid -meta JSON: %w", err))
		}
	}
	id, err := engine.Add(context.Background(), fs.Arg(0), metadata)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Added memory #%d\n", id)
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	topK := fs.Int("k", 0, "number of results (default from config)")
	output := fs.String("output", "text", "output format: text or json")
	_, engine, st, _ := setup(fs, os.Args[2:])
	defer st.Close()
	if fs.NArg() < 1 {
		fatal(fmt.Errorf("search requires a query"))
	}
	query := fs.Arg(0)
	results, err := engine.Search(context.Background(), query, *topK)
	if err != nil {
		fatal(err)
	}
	if err := cli.WriteSearchResults(os.Stdout, query, results, cli.OutputFormat(*output)); err != nil {
		fatal(err)
	}
}

func runUpdate() {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	id := fs.Int64("id", 0, "unit id to update")
	metaJSON := fs.String("meta", "", "metadata as a JSON object")
	_, engine, st, _ := setup(fs, os.Args[2:])
	defer st.Close()
	if *id == 0 || fs.NArg() < 1 {
		fatal(fmt.Errorf("update requires -id and the new content"))
	}
	var metadata map[string]any
	if *metaJSON != "" {
		if err := json.Unmarshal([]byte(*metaJSON), &metadata); err != nil {
			fatal(fmt.Errorf("invalid -meta JSON: %w", err))
		}
	}
	if err := engine.Update(context.Background(), *id, fs.Arg(0), metadata); err != nil {
		fatal(err)
	}
	fmt.Printf("Updated memory #%d\n", *id)
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.Int64("id", 0, "unit id to delete")
	_, engine, st, _ := setup(fs, os.Args[2:])
	defer st.Close()
	target := *id
	if target == 0 && fs.NArg() > 0 {
		parsed, err := strconv.ParseInt(fs.Arg(0), 10, 64)
		if err != nil {
			fatal(fmt.Errorf("invalid id %q", fs.Arg(0)))
		}
		target = parsed
	}
	if target == 0 {
		fatal(fmt.Errorf("delete requires a unit id"))
	}
	if err := engine.Delete(context.Background(), target); err != nil {
		fatal(err)
	}
	fmt.Printf("Deleted memory #%d\n", target)
}

func runStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	output := fs.String("output", "text", "output format: text or json")
	_, engine, st, _ := setup(fs, os.Args[2:])
	defer st.Close()
	stats, err := engine.Stats(context.Background())
	if err != nil {
		fatal(err)
	}
	if err := cli.WriteStats(os.Stdout, stats, cli.OutputFormat(*output)); err != nil {
		fatal(err)
	}
}

func runClear() {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	_, engine, st, _ := setup(fs, os.Args[2:])
	defer st.Close()
	if err := engine.Clear(context.Background()); err != nil {
		fatal(err)
	}
	fmt.Println("All memories cleared")
}

func runRebuild() {
	fs := flag.NewFlagSet("rebuild", flag.ExitOnError)
	file := fs.String("file", "", "markdown document to index")
	_, engine, st, _ := setup(fs, os.Args[2:])
	defer st.Close()
	document := readDocument(*file, fs)
	result, err := engine.Rebuild(context.Background(), document)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Rebuilt index: %d sections\n", result.Indexed)
}

func runSync() {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	file := fs.String("file", "", "markdown document to sync")
	_, engine, st, _ := setup(fs, os.Args[2:])
	defer st.Close()
	document := readDocument(*file, fs)
	result, err := engine.Sync(context.Background(), document)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Synced: %d indexed, %d unchanged, %d removed\n",
		result.Indexed, result.Skipped, result.Removed)
}

func readDocument(file string, fs *flag.FlagSet) string {
	path := file
	if path == "" && fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	if path == "" {
		fatal(fmt.Errorf("a document file is required"))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fatal(err)
	}
	return string(data)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	cfg, engine, st, logger := setup(fs, os.Args[2:])
	defer st.Close()
	defer logger.Sync()

	srv := server.NewServer(engine, cfg, logger)
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		logger.Info("Shutting down")
		_ = srv.Stop(context.Background())
	}()
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fatal(err)
	}
}

func runWatch() {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	cfg, engine, st, logger := setup(fs, os.Args[2:])
	defer st.Close()
	defer logger.Sync()

	if len(cfg.Watch.Files) == 0 {
		fatal(fmt.Errorf("no watch files configured"))
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	onChange := func(path string) {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("failed to read changed file", zap.String("path", path), zap.Error(err))
			return
		}
		result, err := engine.Sync(ctx, string(data))
		if err != nil {
			logger.Error("sync failed", zap.String("path", path), zap.Error(err))
			return
		}
		logger.Info("document synced",
			zap.String("path", path),
			zap.Int("indexed", result.Indexed),
			zap.Int("skipped", result.Skipped),
			zap.Int("removed", result.Removed))
	}
	w := watcher.NewWatcher(cfg.Watch.Files, onChange, watcher.WithLogger(logger))
	if err := w.Start(ctx); err != nil {
		fatal(err)
	}
	defer w.Stop()

	// Initial sync so the index reflects the files as they are now.
	for _, path := range cfg.Watch.Files {
		onChange(path)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	logger.Info("Stopping watch")
}
