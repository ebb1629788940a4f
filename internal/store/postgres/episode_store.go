// Package postgres provides the Postgres-backed episode store.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/wmdrthr/bragge/internal/archive"
	"github.com/wmdrthr/bragge/internal/vocab"
)

// ErrNoEpisodes is returned by LastEpisodeURL when nothing has been
// archived yet; the crawl controller maps it to its bootstrap state.
var ErrNoEpisodes = errors.New("no episodes recorded")

// Config controls the Postgres connection pool.
type Config struct {
	DSN      string
	MaxConns int32
	MinConns int32
}

type dbPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// EpisodeStore persists episode aggregates and answers the resume query.
type EpisodeStore struct {
	pool   dbPool
	logger *zap.Logger
}

// Episode is the persisted aggregate read back by GetEpisode.
type Episode struct {
	ID          int64
	Slug        string
	URL         string
	Title       string
	Date        time.Time
	Synopsis    string
	GenreID     int32
	EraID       int32
	ParsedAt    time.Time
	Description []string
	Links       []string
	ReadingList []string
}

// NewEpisodeStore creates a Postgres-backed EpisodeStore.
func NewEpisodeStore(ctx context.Context, cfg Config, logger *zap.Logger) (*EpisodeStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &EpisodeStore{pool: pool, logger: logger}, nil
}

// NewEpisodeStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewEpisodeStoreWithPool(pool dbPool, logger *zap.Logger) (*EpisodeStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &EpisodeStore{pool: pool, logger: logger}, nil
}

// Close releases the underlying pool resources.
func (s *EpisodeStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// LoadVocabulary reads the genres and eras dimension tables once.
func (s *EpisodeStore) LoadVocabulary(ctx context.Context) (*vocab.Vocabulary, error) {
	genres, err := s.loadDimension(ctx, `SELECT id, genre FROM genres`)
	if err != nil {
		return nil, fmt.Errorf("load genres: %w", err)
	}
	eras, err := s.loadDimension(ctx, `SELECT id, era FROM eras`)
	if err != nil {
		return nil, fmt.Errorf("load eras: %w", err)
	}
	return vocab.New(genres, eras), nil
}

func (s *EpisodeStore) loadDimension(ctx context.Context, query string) (map[string]int32, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int32)
	for rows.Next() {
		var (
			id   int32
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[name] = id
	}
	return out, rows.Err()
}

// LastEpisodeURL returns the source URL of the most recently ingested
// episode, or ErrNoEpisodes when the table is empty.
func (s *EpisodeStore) LastEpisodeURL(ctx context.Context) (string, error) {
	var url string
	err := s.pool.QueryRow(ctx,
		`SELECT url FROM episodes ORDER BY parsed_at DESC LIMIT 1`).Scan(&url)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNoEpisodes
	}
	if err != nil {
		return "", fmt.Errorf("query last episode: %w", err)
	}
	return url, nil
}

// Persist writes the episode aggregate in one transaction: the header
// row plus the description, link and reading-list children. Either every
// row lands or none does. Persist does not deduplicate; calling it twice
// for the same record inserts two aggregates.
func (s *EpisodeStore) Persist(ctx context.Context, rec archive.EpisodeRecord, voc *vocab.Vocabulary) (int64, error) {
	genreID, err := voc.GenreID(rec.Genre)
	if err != nil {
		return 0, s.failRecord(rec, err)
	}
	eraID, err := voc.EraID(rec.Era)
	if err != nil {
		return 0, s.failRecord(rec, err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, s.failRecord(rec, fmt.Errorf("begin transaction: %w", err))
	}
	defer func() {
		// Rollback is a no-op after a successful commit.
		_ = tx.Rollback(ctx)
	}()

	var episodeID int64
	err = tx.QueryRow(ctx, `
INSERT INTO episodes (slug, url, title, date, synopsis, genre_id, era_id, parsed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`,
		rec.Slug, rec.URL, rec.Title, rec.Date, rec.Synopsis,
		genreID, eraID, time.Now().UTC(),
	).Scan(&episodeID)
	if err != nil {
		return 0, s.failRecord(rec, fmt.Errorf("insert episode: %w", err))
	}

	children := []struct {
		query   string
		entries []string
	}{
		{`INSERT INTO descriptions (episode_id, description) VALUES ($1, $2)`, rec.Description},
		{`INSERT INTO links (episode_id, link_text) VALUES ($1, $2)`, rec.Links},
		{`INSERT INTO reading_lists (episode_id, rl_entry) VALUES ($1, $2)`, rec.ReadingList},
	}
	for _, child := range children {
		for _, entry := range child.entries {
			if _, err := tx.Exec(ctx, child.query, episodeID, entry); err != nil {
				return 0, s.failRecord(rec, fmt.Errorf("insert child row: %w", err))
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, s.failRecord(rec, fmt.Errorf("commit episode: %w", err))
	}
	return episodeID, nil
}

// GetEpisode reads an aggregate back by slug, children in insert order.
func (s *EpisodeStore) GetEpisode(ctx context.Context, slug string) (Episode, error) {
	var ep Episode
	err := s.pool.QueryRow(ctx, `
SELECT id, slug, url, title, date, synopsis, genre_id, era_id, parsed_at
FROM episodes WHERE slug = $1`, slug).Scan(
		&ep.ID, &ep.Slug, &ep.URL, &ep.Title, &ep.Date, &ep.Synopsis,
		&ep.GenreID, &ep.EraID, &ep.ParsedAt,
	)
	if err != nil {
		return Episode{}, fmt.Errorf("query episode %q: %w", slug, err)
	}

	children := []struct {
		query string
		dst   *[]string
	}{
		{`SELECT description FROM descriptions WHERE episode_id = $1 ORDER BY id`, &ep.Description},
		{`SELECT link_text FROM links WHERE episode_id = $1 ORDER BY id`, &ep.Links},
		{`SELECT rl_entry FROM reading_lists WHERE episode_id = $1 ORDER BY id`, &ep.ReadingList},
	}
	for _, child := range children {
		entries, err := s.loadChild(ctx, child.query, ep.ID)
		if err != nil {
			return Episode{}, err
		}
		*child.dst = entries
	}
	return ep, nil
}

func (s *EpisodeStore) loadChild(ctx context.Context, query string, episodeID int64) ([]string, error) {
	rows, err := s.pool.Query(ctx, query, episodeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var entry string
		if err := rows.Scan(&entry); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// failRecord logs the stringified record at error severity and returns
// the error for propagation; persistence errors stop the run.
func (s *EpisodeStore) failRecord(rec archive.EpisodeRecord, err error) error {
	serialized, _ := json.Marshal(rec.Stringify())
	s.logger.Error("error while persisting record",
		zap.ByteString("record", serialized),
		zap.Error(err))
	return err
}
