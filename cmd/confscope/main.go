package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/umputun/confscope/pkg/config"
	"github.com/umputun/confscope/pkg/enrich"
	"github.com/umputun/confscope/pkg/fetcher"
	"github.com/umputun/confscope/pkg/host"
	"github.com/umputun/confscope/pkg/loader"
	"github.com/umputun/confscope/pkg/poller"
	"github.com/umputun/confscope/pkg/seen"
	"github.com/umputun/confscope/pkg/service"
	"github.com/umputun/confscope/pkg/state"
	"github.com/umputun/confscope/pkg/store"
	"github.com/umputun/confscope/server"
)

// Opts with all CLI options
type Opts struct {
	Config string `short:"f" long:"config" env:"CONFIG" default:"confscope.yml" description:"config file"`
	Listen string `short:"l" long:"listen" env:"LISTEN" description:"listen address override"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	setupLog(opts.Debug)

	log.Printf("[INFO] starting confscope version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	if err := run(ctx, opts); err != nil {
		log.Printf("[ERROR] confscope failed: %v", err)
		cancel()
		os.Exit(1)
	}
	cancel()
	log.Print("[INFO] shutdown complete")
}

func run(ctx context.Context, opts Opts) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	kv, err := store.New(ctx, store.Config{
		DSN:             cfg.Store.DSN,
		MaxOpenConns:    cfg.Store.MaxOpenConns,
		MaxIdleConns:    cfg.Store.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Store.ConnMaxLifetime) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer kv.Close() //nolint:errcheck // shutdown path

	settings, err := host.NewSettingsFile(cfg.Host.SettingsDir)
	if err != nil {
		return fmt.Errorf("open settings store: %w", err)
	}

	registry := host.NewRegistry()
	if cfg.Host.CapabilitiesDir != "" {
		if err := registry.LoadDir(cfg.Host.CapabilitiesDir); err != nil {
			log.Printf("[WARN] can't load capabilities: %v", err)
		}
	}

	fetchCache := fetcher.New(fetcher.Opts{
		CacheDir:   cfg.Source.CacheDir,
		SnippetAPI: cfg.Source.SnippetAPI,
		Timeout:    cfg.Source.Timeout,
	})

	enricher := enrich.NewEnricher(enrich.NewCatalog(registry), settings, cfg.Host.ModuleID)
	ldr := loader.New(loader.Opts{
		Fetcher:     fetchCache,
		Enricher:    enricher,
		Values:      settings,
		Caps:        registry,
		SourceURL:   cfg.Source.URL,
		SnippetFile: cfg.Source.SnippetFile,
	})

	tracker := seen.NewTracker(kv)
	pl := poller.New(fetchCache, kv, poller.Opts{
		URL:        cfg.Source.URL,
		SnippetAPI: cfg.Source.SnippetAPI,
		Interval:   cfg.Source.PollInterval,
	})
	assembler := state.NewAssembler(settings, registry, tracker, pl)
	svc := service.New(ldr, pl, tracker, assembler)

	// initial load, degraded results are fine
	svc.LoadConfiguration(ctx)

	svc.StartPolling(ctx)
	defer svc.StopPolling()

	// reload when the settings layer files change externally
	watcher, err := host.NewWatcher(settings.Dir(), func() { svc.LoadConfiguration(ctx) })
	if err != nil {
		log.Printf("[WARN] settings watch disabled: %v", err)
	} else {
		go watcher.Run(ctx)
	}

	srv := server.New(cfg, svc, revision, opts.Debug)
	return srv.Run(ctx)
}

func loadConfig(opts Opts) (*config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("[WARN] config file %s not found, using defaults", opts.Config)
			cfg = config.Default()
		} else {
			return nil, err
		}
	}
	if opts.Listen != "" {
		cfg.Server.Listen = opts.Listen
	}
	return cfg, nil
}

func setupLog(dbg bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Out(io.Discard), lgr.Err(io.Discard)}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))
	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
