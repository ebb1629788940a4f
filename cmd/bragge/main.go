// Package main wires together the archiver binary.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/wmdrthr/bragge/internal/assets"
	gcsassets "github.com/wmdrthr/bragge/internal/assets/gcs"
	localassets "github.com/wmdrthr/bragge/internal/assets/local"
	s3assets "github.com/wmdrthr/bragge/internal/assets/s3"
	"github.com/wmdrthr/bragge/internal/clock/system"
	"github.com/wmdrthr/bragge/internal/config"
	"github.com/wmdrthr/bragge/internal/crawl"
	"github.com/wmdrthr/bragge/internal/logging"
	"github.com/wmdrthr/bragge/internal/media"
	"github.com/wmdrthr/bragge/internal/metrics"
	"github.com/wmdrthr/bragge/internal/scraper"
	"github.com/wmdrthr/bragge/internal/store/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("crawl failed", zap.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	weekday, err := cfg.PublicationWeekday()
	if err != nil {
		return err
	}

	assetStore, err := newAssetStore(ctx, cfg.Assets)
	if err != nil {
		return fmt.Errorf("init asset store: %w", err)
	}

	episodeStore, err := postgres.NewEpisodeStore(ctx, postgres.Config{
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	}, logger)
	if err != nil {
		return fmt.Errorf("init episode store: %w", err)
	}
	defer episodeStore.Close()

	if cfg.Metrics.Enabled {
		metrics.Init()
		go func() {
			if err := metrics.Serve(cfg.Metrics.Port); err != nil {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	fetcher := scraper.New(scraper.Config{
		UserAgent:    cfg.Crawler.UserAgent,
		Timeout:      cfg.RequestTimeout(),
		DownloadsDir: cfg.Crawler.DownloadsDir,
	}, logger)
	ingestor := media.NewIngestor(assetStore, cfg.Crawler.DownloadsDir, cfg.Crawler.ResourcesDir, logger)
	controller := crawl.NewController(cfg.Crawler.StartURL, weekday, episodeStore, system.New(), logger)
	runner := crawl.NewRunner(fetcher, ingestor, episodeStore, controller, cfg.Crawler.MaxEpisodes, logger)

	ingested, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("run complete", zap.Int("episodes", ingested))

	uploadRunLog(ctx, cfg, assetStore, logger)
	return nil
}

// uploadRunLog ships the run's log file to the asset store so remote
// runs leave an audit trail next to the archive itself.
func uploadRunLog(ctx context.Context, cfg config.Config, store assets.Store, logger *zap.Logger) {
	if cfg.Logging.File == "" {
		return
	}
	if err := logger.Sync(); err != nil {
		logger.Warn("log sync before upload failed", zap.Error(err))
	}
	key := assets.LogKey(filepath.Base(cfg.Logging.File))
	if err := store.Put(ctx, key, "text/plain", cfg.Logging.File); err != nil {
		logger.Warn("run log upload failed", zap.Error(err))
		return
	}
	logger.Info("run log uploaded", zap.String("key", key))
}

func newAssetStore(ctx context.Context, cfg config.AssetsConfig) (assets.Store, error) {
	switch cfg.Backend {
	case "local":
		return localassets.New(localassets.Config{BaseDir: cfg.BaseDir})
	case "s3":
		return s3assets.New(s3assets.Config{
			Bucket:   cfg.Bucket,
			Region:   cfg.Region,
			Endpoint: cfg.Endpoint,
		})
	case "gcs":
		return gcsassets.New(ctx, gcsassets.Config{Bucket: cfg.Bucket})
	default:
		return nil, fmt.Errorf("unknown asset backend %q", cfg.Backend)
	}
}
