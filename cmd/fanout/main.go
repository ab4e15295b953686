// Package main is the entry point for the fanout event feed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/fanout/internal/app"
	"github.com/dshills/fanout/internal/config"
	"github.com/dshills/fanout/internal/logging"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type options struct {
	configPath string
	logLevel   string
	pretty     bool
	watch      bool
	input      string
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading config: %v\n", err)
		return 1
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}

	logger, closeLog, err := logging.Setup(cfg.LogConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: setting up logging: %v\n", err)
		return 1
	}
	defer closeLog()

	appOpts := app.Options{
		Pretty: opts.pretty,
		Watch:  opts.watch,
		Logger: logger,
	}
	if opts.input != "" && opts.input != "-" {
		f, err := os.Open(opts.input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		defer f.Close()
		appOpts.Input = f
	}

	application, err := app.New(cfg, appOpts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}

	// Ensure cleanup on all exit paths
	defer application.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Debug("feed started", "config", cfg.Source, "version", version)

	if err := application.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	return 0
}

func parseFlags() options {
	var opts options
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file (.toml, .yaml)")
	flag.StringVar(&opts.configPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config")
	flag.BoolVar(&opts.pretty, "pretty", false, "Indent output records")
	flag.BoolVar(&opts.pretty, "p", false, "Indent output records (shorthand)")
	flag.BoolVar(&opts.watch, "watch", false, "Reload listeners when the config file changes")
	flag.BoolVar(&opts.watch, "w", false, "Reload listeners when the config file changes (shorthand)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "fanout - in-process event emitter driven by a JSON-lines feed\n\n")
		fmt.Fprintf(os.Stderr, "Usage: fanout [options] [feed-file]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  fanout -c listeners.toml < events.jsonl\n")
		fmt.Fprintf(os.Stderr, "  fanout -c listeners.yaml -w -p events.jsonl\n")
		fmt.Fprintf(os.Stderr, "  echo '{\"event\":\"ping\"}' | fanout\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("fanout %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	switch opts.logLevel {
	case "", "debug", "info", "warn", "error":
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", opts.logLevel)
		os.Exit(1)
	}

	if flag.NArg() > 1 {
		fmt.Fprintf(os.Stderr, "Error: at most one feed file may be given\n")
		os.Exit(1)
	}
	opts.input = flag.Arg(0)

	return opts
}
