package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"wikifetch/pkg/cache"
	"wikifetch/pkg/config"
	"wikifetch/pkg/db"
	"wikifetch/pkg/logging"
	"wikifetch/pkg/report"
	"wikifetch/pkg/request"
	"wikifetch/pkg/tracker"
	"wikifetch/pkg/version"
	"wikifetch/pkg/wikidata"
)

var (
	configPath = flag.String("config", config.DefaultPath, "Path to the config file")
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
)

func main() {
	flag.Parse()

	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config file generated: %s\n", *configPath)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, os.Stdout); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "CRITICAL ERROR: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, stdout io.Writer) error {
	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	logger := slog.Default().With("run_id", uuid.NewString())
	logger.Info("wikifetch started", "version", version.Version, "config", configPath)

	respCache, closeCache, err := initCache(ctx, &appCfg.Cache, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	tr := tracker.New()
	defer tr.LogSummary(logger)

	reqClient := request.NewWithOptions(respCache, tr, request.Options{
		Retries:   appCfg.Request.Retries,
		BaseDelay: appCfg.Request.Backoff.BaseDelay.Std(),
		Timeout:   appCfg.Request.Timeout.Std(),
		UserAgent: appCfg.Request.UserAgent,
		Backoff:   request.NewProviderBackoff(appCfg.Request.Backoff.BaseDelay.Std(), appCfg.Request.Backoff.MaxDelay.Std()),
	})

	wdClient := wikidata.NewClient(reqClient, logger)
	wdClient.APIEndpoint = appCfg.Wikidata.APIEndpoint

	var sink report.Sink
	if appCfg.Output.Mode == "directory" {
		sink = report.NewDirectorySink(appCfg.Output.Dir)
	}
	wf := report.New(wdClient, stdout, sink, logger)
	wf.SearchLimit = appCfg.Wikidata.SearchLimit

	if err := wf.Run(ctx, planFromConfig(&appCfg.Plan)); err != nil {
		return fmt.Errorf("report run failed: %w", err)
	}
	return nil
}

// initCache opens the response cache, or returns a no-op cache when caching
// is disabled.
func initCache(ctx context.Context, cfg *config.CacheConfig, logger *slog.Logger) (cache.Cacher, func(), error) {
	if !cfg.Enabled {
		return cache.Nop{}, func() {}, nil
	}

	dbConn, err := db.Init(cfg.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize cache db: %w", err)
	}

	if n, err := dbConn.PruneCache(ctx, cfg.TTL.Std()); err != nil {
		logger.Warn("Failed to prune cache", "error", err)
	} else if n > 0 {
		logger.Debug("Pruned cache", "removed", n)
	}

	return cache.NewSQLiteCache(dbConn, cfg.TTL.Std()), func() { dbConn.Close() }, nil
}

func planFromConfig(p *config.PlanConfig) report.Plan {
	return report.Plan{
		EntityID:         p.EntityID,
		LabelLanguage:    p.LabelLanguage,
		EntityIDs:        p.EntityIDs,
		TitleSite:        p.TitleSite,
		Titles:           p.Titles,
		SearchTerm:       p.SearchTerm,
		SearchLanguage:   p.SearchLanguage,
		FilteredEntityID: p.FilteredEntityID,
		FilterLanguage:   p.FilterLanguage,
		FilterSite:       p.FilterSite,
	}
}
