package crawl

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wmdrthr/bragge/internal/archive"
	"github.com/wmdrthr/bragge/internal/id/uuid"
	"github.com/wmdrthr/bragge/internal/metrics"
	"github.com/wmdrthr/bragge/internal/scraper"
	"github.com/wmdrthr/bragge/internal/vocab"
)

// Fetcher retrieves episode pages and their media assets.
type Fetcher interface {
	FetchPage(ctx context.Context, pageURL string) (scraper.Page, error)
	DownloadAssets(ctx context.Context, rec *archive.EpisodeRecord)
}

// Ingestor rewrites audio tags and moves assets into the asset store.
type Ingestor interface {
	Ingest(ctx context.Context, rec archive.EpisodeRecord) error
}

// Store persists episode aggregates.
type Store interface {
	EpisodeLog
	LoadVocabulary(ctx context.Context) (*vocab.Vocabulary, error)
	Persist(ctx context.Context, rec archive.EpisodeRecord, voc *vocab.Vocabulary) (int64, error)
}

// Runner walks the episode chain page by page: fetch, download assets,
// validate, ingest media, persist, then follow the next-episode link
// while the cadence says another episode should exist.
type Runner struct {
	fetcher     Fetcher
	ingestor    Ingestor
	store       Store
	controller  *Controller
	ids         *uuid.Generator
	maxEpisodes int
	logger      *zap.Logger
}

// NewRunner builds a Runner. maxEpisodes caps how many new episodes a
// single run ingests; zero disables the cap.
func NewRunner(fetcher Fetcher, ingestor Ingestor, store Store, controller *Controller, maxEpisodes int, logger *zap.Logger) *Runner {
	return &Runner{
		fetcher:     fetcher,
		ingestor:    ingestor,
		store:       store,
		controller:  controller,
		ids:         uuid.New(),
		maxEpisodes: maxEpisodes,
		logger:      logger,
	}
}

// Run executes one crawl. It returns the number of episodes ingested.
// Dropped records are logged and skipped; ingestion and persistence
// failures abort the run.
func (r *Runner) Run(ctx context.Context) (int, error) {
	runID, err := r.ids.NewID()
	if err != nil {
		return 0, fmt.Errorf("generate run id: %w", err)
	}
	logger := r.logger.With(zap.String("run_id", runID))

	voc, err := r.store.LoadVocabulary(ctx)
	if err != nil {
		return 0, fmt.Errorf("load vocabulary: %w", err)
	}

	start, err := r.controller.Start(ctx)
	if err != nil {
		return 0, err
	}

	pageURL := start.URL
	skipIngest := start.Resumed
	ingested := 0

	for pageURL != "" {
		if err := ctx.Err(); err != nil {
			return ingested, err
		}

		page, err := r.fetcher.FetchPage(ctx, pageURL)
		if err != nil {
			return ingested, fmt.Errorf("fetch %s: %w", pageURL, err)
		}

		if skipIngest {
			// The resumed page was persisted on a previous run; it
			// only contributes its date and next-episode link.
			skipIngest = false
		} else {
			ok, err := r.process(ctx, logger, page.Record, voc)
			if err != nil {
				return ingested, err
			}
			if ok {
				ingested++
				if r.maxEpisodes > 0 && ingested >= r.maxEpisodes {
					logger.Info("episode budget reached", zap.Int("ingested", ingested))
					break
				}
			}
		}

		if !r.controller.ShouldContinue(page.Record.Date) {
			logger.Info("next episode not due yet",
				zap.Time("episode_date", page.Record.Date))
			break
		}
		pageURL = page.NextLink
	}

	logger.Info("crawl finished", zap.Int("ingested", ingested))
	return ingested, nil
}

// process runs one candidate record through the pipeline. It returns
// false with a nil error when the record was dropped.
func (r *Runner) process(ctx context.Context, logger *zap.Logger, rec archive.EpisodeRecord, voc *vocab.Vocabulary) (bool, error) {
	r.fetcher.DownloadAssets(ctx, &rec)

	if err := archive.Validate(rec); err != nil {
		if archive.IsDrop(err) {
			logger.Error("dropping record",
				zap.String("reason", err.Error()),
				zap.Any("record", rec.Stringify()))
			metrics.RecordDropped()
			return false, nil
		}
		return false, err
	}

	if err := r.ingestor.Ingest(ctx, rec); err != nil {
		return false, fmt.Errorf("ingest %s: %w", rec.Slug, err)
	}
	if _, err := r.store.Persist(ctx, rec, voc); err != nil {
		return false, fmt.Errorf("persist %s: %w", rec.Slug, err)
	}

	metrics.EpisodeIngested()
	logger.Info("episode ingested",
		zap.String("slug", rec.Slug),
		zap.Time("date", rec.Date))
	return true, nil
}
