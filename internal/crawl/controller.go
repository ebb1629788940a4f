// Package crawl decides where a run starts, whether it should keep
// going, and drives pages through the ingestion pipeline.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wmdrthr/bragge/internal/store/postgres"
)

// Clock supplies the current time. The cadence decision depends on
// "today", so tests substitute a fixed clock.
type Clock interface {
	Now() time.Time
}

// EpisodeLog is the slice of the episode store the controller reads:
// the URL of the most recently persisted episode.
type EpisodeLog interface {
	LastEpisodeURL(ctx context.Context) (string, error)
}

// StartPoint is where a run begins.
type StartPoint struct {
	URL     string
	Resumed bool
}

// Controller implements resume-from-last-episode and the weekly
// publication cadence check.
type Controller struct {
	startURL string
	weekday  time.Weekday
	log      EpisodeLog
	clock    Clock
	logger   *zap.Logger
}

// NewController builds a Controller. weekday is the programme's
// publication day.
func NewController(startURL string, weekday time.Weekday, log EpisodeLog, clock Clock, logger *zap.Logger) *Controller {
	return &Controller{
		startURL: startURL,
		weekday:  weekday,
		log:      log,
		clock:    clock,
		logger:   logger,
	}
}

// Start picks the first page of the run: the most recently persisted
// episode's page when one exists, the configured start URL otherwise.
// A resumed page has already been ingested and is only consulted for
// its date and next-episode link.
func (c *Controller) Start(ctx context.Context) (StartPoint, error) {
	url, err := c.log.LastEpisodeURL(ctx)
	switch {
	case errors.Is(err, postgres.ErrNoEpisodes):
		c.logger.Info("starting crawl", zap.String("url", c.startURL))
		return StartPoint{URL: c.startURL}, nil
	case err != nil:
		return StartPoint{}, fmt.Errorf("look up last episode: %w", err)
	}
	c.logger.Info("resuming crawl", zap.String("url", url))
	return StartPoint{URL: url, Resumed: true}, nil
}

// ShouldContinue reports whether the episode after the one published
// on episodeDate is expected to be available yet: the next publication
// day strictly after episodeDate must already be in the past.
func (c *Controller) ShouldContinue(episodeDate time.Time) bool {
	next := NextExpected(episodeDate, c.weekday)
	today := midnight(c.clock.Now().UTC())
	return next.Before(today)
}

// NextExpected returns the first occurrence of weekday strictly after
// date, at midnight UTC.
func NextExpected(date time.Time, weekday time.Weekday) time.Time {
	day := midnight(date.UTC())
	days := (int(weekday) - int(day.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return day.AddDate(0, 0, days)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
