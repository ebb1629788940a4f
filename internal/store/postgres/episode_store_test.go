package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wmdrthr/bragge/internal/archive"
	"github.com/wmdrthr/bragge/internal/vocab"
)

func testVocabulary() *vocab.Vocabulary {
	return vocab.New(
		map[string]int32{"History": 2},
		map[string]int32{"Ancient Rome": 5},
	)
}

func testRecord() archive.EpisodeRecord {
	return archive.EpisodeRecord{
		Slug:        "p0054578",
		URL:         "https://www.bbc.co.uk/programmes/p0054578",
		Title:       "The Roman Republic",
		Date:        time.Date(2020, 1, 2, 9, 0, 0, 0, time.UTC),
		Synopsis:    "Melvyn Bragg and guests discuss the Roman Republic.",
		Description: []string{"<p>First paragraph.</p>", "<p>Second paragraph.</p>"},
		Links:       []string{"<p>Some link</p>"},
		ReadingList: []string{"<p>Some book</p>", "<p>Another book</p>"},
		Genre:       "History",
		Era:         "Ancient Rome",
		Audio:       []archive.AssetRef{{Path: "full/ab12.mp3"}},
		Images:      []archive.AssetRef{{Path: "full/cd34.jpg"}},
	}
}

func newStore(t *testing.T) (*EpisodeStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewEpisodeStoreWithPool(mock, zap.NewNop())
	require.NoError(t, err)
	return store, mock
}

func TestPersistWritesAggregateInOneTransaction(t *testing.T) {
	t.Parallel()

	store, mock := newStore(t)
	rec := testRecord()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO episodes").
		WithArgs(rec.Slug, rec.URL, rec.Title, rec.Date, rec.Synopsis,
			int32(2), int32(5), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
	for _, d := range rec.Description {
		mock.ExpectExec("INSERT INTO descriptions").
			WithArgs(int64(7), d).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	for _, l := range rec.Links {
		mock.ExpectExec("INSERT INTO links").
			WithArgs(int64(7), l).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	for _, rl := range rec.ReadingList {
		mock.ExpectExec("INSERT INTO reading_lists").
			WithArgs(int64(7), rl).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	id, err := store.Persist(context.Background(), rec, testVocabulary())
	require.NoError(t, err)
	require.EqualValues(t, 7, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistSkipsEmptyChildCollections(t *testing.T) {
	t.Parallel()

	store, mock := newStore(t)
	rec := testRecord()
	rec.Links = nil
	rec.ReadingList = nil

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO episodes").
		WithArgs(rec.Slug, rec.URL, rec.Title, rec.Date, rec.Synopsis,
			int32(2), int32(5), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(8)))
	for _, d := range rec.Description {
		mock.ExpectExec("INSERT INTO descriptions").
			WithArgs(int64(8), d).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	_, err := store.Persist(context.Background(), rec, testVocabulary())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistRollsBackOnChildFailure(t *testing.T) {
	t.Parallel()

	store, mock := newStore(t)
	rec := testRecord()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO episodes").
		WithArgs(rec.Slug, rec.URL, rec.Title, rec.Date, rec.Synopsis,
			int32(2), int32(5), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(9)))
	mock.ExpectExec("INSERT INTO descriptions").
		WithArgs(int64(9), rec.Description[0]).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := store.Persist(context.Background(), rec, testVocabulary())
	require.Error(t, err)
	require.Contains(t, err.Error(), "disk full")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistFailsFastOnUnknownVocabulary(t *testing.T) {
	t.Parallel()

	store, mock := newStore(t)
	rec := testRecord()
	rec.Genre = "Cookery"

	// No transaction may be opened for a vocabulary mismatch.
	_, err := store.Persist(context.Background(), rec, testVocabulary())
	require.Error(t, err)
	require.Contains(t, err.Error(), "Cookery")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLastEpisodeURL(t *testing.T) {
	t.Parallel()

	store, mock := newStore(t)
	mock.ExpectQuery("SELECT url FROM episodes").
		WillReturnRows(pgxmock.NewRows([]string{"url"}).
			AddRow("https://www.bbc.co.uk/programmes/m000abcd"))

	url, err := store.LastEpisodeURL(context.Background())
	require.NoError(t, err)
	require.Equal(t, "https://www.bbc.co.uk/programmes/m000abcd", url)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLastEpisodeURLEmptyTable(t *testing.T) {
	t.Parallel()

	store, mock := newStore(t)
	mock.ExpectQuery("SELECT url FROM episodes").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.LastEpisodeURL(context.Background())
	require.ErrorIs(t, err, ErrNoEpisodes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadVocabulary(t *testing.T) {
	t.Parallel()

	store, mock := newStore(t)
	mock.ExpectQuery("SELECT id, genre FROM genres").
		WillReturnRows(pgxmock.NewRows([]string{"id", "genre"}).
			AddRow(int32(1), "Culture").
			AddRow(int32(2), "History"))
	mock.ExpectQuery("SELECT id, era FROM eras").
		WillReturnRows(pgxmock.NewRows([]string{"id", "era"}).
			AddRow(int32(5), "Ancient Rome"))

	voc, err := store.LoadVocabulary(context.Background())
	require.NoError(t, err)

	genreID, err := voc.GenreID("History")
	require.NoError(t, err)
	require.EqualValues(t, 2, genreID)

	eraID, err := voc.EraID("Ancient Rome")
	require.NoError(t, err)
	require.EqualValues(t, 5, eraID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEpisodeRoundTrip(t *testing.T) {
	t.Parallel()

	store, mock := newStore(t)
	rec := testRecord()
	parsedAt := time.Date(2020, 1, 3, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, slug, url, title, date, synopsis, genre_id, era_id, parsed_at").
		WithArgs(rec.Slug).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "slug", "url", "title", "date", "synopsis", "genre_id", "era_id", "parsed_at",
		}).AddRow(int64(7), rec.Slug, rec.URL, rec.Title, rec.Date, rec.Synopsis,
			int32(2), int32(5), parsedAt))

	descRows := pgxmock.NewRows([]string{"description"})
	for _, d := range rec.Description {
		descRows.AddRow(d)
	}
	mock.ExpectQuery("SELECT description FROM descriptions").
		WithArgs(int64(7)).WillReturnRows(descRows)

	linkRows := pgxmock.NewRows([]string{"link_text"})
	for _, l := range rec.Links {
		linkRows.AddRow(l)
	}
	mock.ExpectQuery("SELECT link_text FROM links").
		WithArgs(int64(7)).WillReturnRows(linkRows)

	rlRows := pgxmock.NewRows([]string{"rl_entry"})
	for _, rl := range rec.ReadingList {
		rlRows.AddRow(rl)
	}
	mock.ExpectQuery("SELECT rl_entry FROM reading_lists").
		WithArgs(int64(7)).WillReturnRows(rlRows)

	ep, err := store.GetEpisode(context.Background(), rec.Slug)
	require.NoError(t, err)
	require.Equal(t, rec.Slug, ep.Slug)
	require.Equal(t, rec.URL, ep.URL)
	require.Equal(t, rec.Title, ep.Title)
	require.Equal(t, rec.Date, ep.Date)
	require.Equal(t, rec.Synopsis, ep.Synopsis)
	require.Equal(t, rec.Description, ep.Description)
	require.Equal(t, rec.Links, ep.Links)
	require.Equal(t, rec.ReadingList, ep.ReadingList)
	require.NoError(t, mock.ExpectationsWereMet())
}
