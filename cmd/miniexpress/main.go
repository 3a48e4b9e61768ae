// Package main is the entry point for the MiniExpress server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/vyrodovalexey/miniexpress/internal/config"
	"github.com/vyrodovalexey/miniexpress/internal/observability"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags. Empty strings and a zero port mean
// the flag was not given and the configuration file decides.
type cliFlags struct {
	configPath  string
	port        int
	logLevel    string
	logFormat   string
	showVersion bool
}

func main() {
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	if flags.showVersion {
		printVersion(os.Stdout)
		return
	}

	if err := run(flags); err != nil {
		fmt.Fprintf(os.Stderr, "miniexpress: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags parses command line flags. Defaults come from the
// environment.
func parseFlags(args []string) (cliFlags, error) {
	fs := flag.NewFlagSet("miniexpress", flag.ContinueOnError)

	var f cliFlags
	fs.StringVar(&f.configPath, "config", getEnvOrDefault("MINIEXPRESS_CONFIG", ""),
		"Path to configuration file")
	fs.IntVar(&f.port, "port", getEnvInt("MINIEXPRESS_PORT", 0),
		"TCP port to listen on (overrides the configuration file)")
	fs.StringVar(&f.logLevel, "log-level", getEnvOrDefault("MINIEXPRESS_LOG_LEVEL", ""),
		"Log level (debug, info, warn, error)")
	fs.StringVar(&f.logFormat, "log-format", getEnvOrDefault("MINIEXPRESS_LOG_FORMAT", ""),
		"Log format (json, console)")
	fs.BoolVar(&f.showVersion, "version", false, "Show version information")

	if err := fs.Parse(args); err != nil {
		return cliFlags{}, err
	}
	return f, nil
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "miniexpress version %s\n", version)
	fmt.Fprintf(w, "  Build time: %s\n", buildTime)
	fmt.Fprintf(w, "  Git commit: %s\n", gitCommit)
}

// loadConfig reads the configuration file, if any, applies flag
// overrides and validates the result.
func loadConfig(flags cliFlags) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if flags.configPath != "" {
		loaded, err := config.LoadConfig(flags.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	applyFlagOverrides(cfg, flags)

	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlagOverrides(cfg *config.Config, flags cliFlags) {
	if flags.port != 0 {
		cfg.Server.Port = flags.port
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Logging.Format = flags.logFormat
	}
}

func initLogger(cfg config.LoggingConfig) (observability.Logger, error) {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Level,
		Format: cfg.Format,
		Output: cfg.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	observability.SetGlobalLogger(logger)
	return logger, nil
}

// run starts the server and blocks until SIGINT or SIGTERM.
func run(flags cliFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting miniexpress",
		observability.String("version", version),
		observability.String("config", flags.configPath),
	)
	if effective, err := config.Marshal(cfg); err == nil {
		logger.Debug("effective configuration", observability.String("yaml", string(effective)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, cfg, logger)
	if err != nil {
		return err
	}

	if err := app.start(ctx); err != nil {
		app.shutdown(context.Background())
		return err
	}

	watcher := startConfigWatcher(ctx, flags, logger)

	serveErr := <-app.done
	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		logger.Error("server stopped unexpectedly", observability.Error(serveErr))
	} else {
		logger.Info("received shutdown signal")
	}

	if watcher != nil {
		_ = watcher.Stop()
	}
	app.shutdown(context.Background())

	logger.Info("miniexpress stopped")
	return nil
}

// startConfigWatcher reloads the configuration file on change and
// applies the new log level. A level given on the command line wins.
func startConfigWatcher(ctx context.Context, flags cliFlags, logger observability.Logger) *config.Watcher {
	if flags.configPath == "" {
		return nil
	}

	watcher, err := config.NewWatcher(flags.configPath, func(newCfg *config.Config) {
		applyReloadedConfig(newCfg, flags, logger)
	}, config.WithLogger(logger))
	if err != nil {
		logger.Warn("failed to create config watcher", observability.Error(err))
		return nil
	}

	if err := watcher.Start(ctx); err != nil {
		logger.Warn("failed to start config watcher", observability.Error(err))
		_ = watcher.Stop()
		return nil
	}
	return watcher
}

func applyReloadedConfig(newCfg *config.Config, flags cliFlags, logger observability.Logger) {
	if flags.logLevel != "" {
		logger.Debug("log level fixed by command line, ignoring reloaded level",
			observability.String("level", newCfg.Logging.Level),
		)
		return
	}
	if newCfg.Logging.Level == logger.Level() {
		return
	}
	if err := logger.SetLevel(newCfg.Logging.Level); err != nil {
		logger.Error("failed to apply log level", observability.Error(err))
		return
	}
	logger.Info("log level changed", observability.String("level", newCfg.Logging.Level))
}
