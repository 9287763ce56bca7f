package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/ritzau/crossbar-heterograph/pkg/config"
	"github.com/ritzau/crossbar-heterograph/pkg/logging"
	"github.com/ritzau/crossbar-heterograph/pkg/pipeline"
	"github.com/ritzau/crossbar-heterograph/pkg/watcher"
)

// errIncomplete marks a build that wrote its outputs but skipped or failed
// some declared tables
var errIncomplete = errors.New("build incomplete, see failures above")

func main() {
	// Parse command-line flags
	flags := pflag.NewFlagSet("crossbar-heterograph", pflag.ExitOnError)
	flags.String("data", "", "Directory holding <node type>.csv and <relation>.csv tables")
	flags.String("config", "", "Path to the YAML graph schema (node_types, edge_types)")
	flags.String("output", "", "Directory for the graph artifact and unmatched node lists")
	flags.String("on-error", config.OnErrorHalt, "On a missing/empty table or exhausted relation: halt or continue")
	flags.Bool("compress", false, "Compress the graph artifact with zstd")
	flags.Bool("dot", false, "Also export the graph in Graphviz DOT format")
	flags.Bool("watch", false, "Rebuild whenever the tables or the schema change")
	flags.String("verbosity", "", "Log level: trace, debug, info, warn, error")
	flags.CountP("verbose", "v", "Increase log verbosity (-v debug, -vv trace)")
	flags.String("log-format", "text", "Log format: text or json")
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		flags.PrintDefaults()
		os.Exit(2)
	}

	level, err := logging.ParseLevel(cfg.Verbosity, cfg.VerboseCnt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if cfg.LogFormat == "json" {
		logging.SetJSONOutput(level)
	} else {
		logging.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := pipeline.NewRunner(cfg, os.Stdout)

	if err := build(ctx, runner, "initial build"); err != nil {
		logging.Error("build failed", "error", err)
		if !cfg.Watch {
			os.Exit(1)
		}
	}

	if cfg.Watch {
		if err := watch(ctx, cfg, runner); err != nil {
			logging.Fatal("watch mode failed", "error", err)
		}
	}
}

// build runs the pipeline once under a fresh run id
func build(ctx context.Context, runner *pipeline.Runner, reason string) error {
	logging.SetRunID(uuid.New().String())
	defer logging.SetRunID("")

	report, err := runner.Run(ctx, pipeline.Options{Reason: reason})
	if err != nil {
		return err
	}
	if report.Failed() {
		return errIncomplete
	}
	return nil
}

// watch rebuilds on every debounced batch of input changes until ctx is done
func watch(ctx context.Context, cfg *config.Config, runner *pipeline.Runner) error {
	fw, err := watcher.NewFileWatcher(cfg.DataDir, cfg.SchemaPath)
	if err != nil {
		return err
	}
	if err := fw.Start(ctx); err != nil {
		return err
	}

	debouncer := watcher.NewDebouncer(fw.Events(), 500*time.Millisecond, 5*time.Second)
	debouncer.Start(ctx)

	logging.Info("watching for changes, press Ctrl+C to stop")

	for event := range debouncer.Output() {
		batch := []watcher.ChangeEvent{event}
		// Collect the rest of this flush so one rebuild covers it
	drain:
		for {
			select {
			case more, ok := <-debouncer.Output():
				if !ok {
					break drain
				}
				batch = append(batch, more)
			default:
				break drain
			}
		}

		if ctx.Err() != nil {
			break
		}
		if err := build(ctx, runner, watcher.Reason(batch)); err != nil {
			logging.Error("rebuild failed", "error", err)
		}
	}

	logging.Info("stopped watching")
	return nil
}
