package archive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validRecord() EpisodeRecord {
	return EpisodeRecord{
		Slug:        "p0054578",
		URL:         "https://www.bbc.co.uk/programmes/p0054578",
		Title:       "The Roman Republic",
		Date:        time.Date(2020, 1, 2, 9, 0, 0, 0, time.UTC),
		Synopsis:    "Melvyn Bragg and guests discuss the Roman Republic.",
		Description: []string{"<p>First paragraph.</p>", "<p>Second paragraph.</p>"},
		Links:       []string{"<p>Some link</p>"},
		ReadingList: []string{"<p>Some book</p>"},
		Genre:       "History",
		Era:         "Ancient Rome",
		Audio:       []AssetRef{{URL: "https://example.org/a.mp3", Path: "full/ab12.mp3"}},
		Images:      []AssetRef{{URL: "https://example.org/i.jpg", Path: "full/cd34.jpg"}},
	}
}

func TestValidateAcceptsCompleteRecord(t *testing.T) {
	t.Parallel()

	require.NoError(t, Validate(validRecord()))
}

func TestValidateMissingScalars(t *testing.T) {
	t.Parallel()

	cases := []struct {
		field  string
		mutate func(*EpisodeRecord)
	}{
		{"slug", func(r *EpisodeRecord) { r.Slug = "" }},
		{"url", func(r *EpisodeRecord) { r.URL = "" }},
		{"title", func(r *EpisodeRecord) { r.Title = "" }},
		{"synopsis", func(r *EpisodeRecord) { r.Synopsis = "" }},
		{"genre", func(r *EpisodeRecord) { r.Genre = "" }},
		{"era", func(r *EpisodeRecord) { r.Era = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.field, func(t *testing.T) {
			t.Parallel()

			rec := validRecord()
			tc.mutate(&rec)
			err := Validate(rec)
			require.Error(t, err)
			require.True(t, IsDrop(err))
			require.Contains(t, err.Error(), tc.field)
		})
	}
}

func TestValidateMissingDate(t *testing.T) {
	t.Parallel()

	rec := validRecord()
	rec.Date = time.Time{}
	err := Validate(rec)
	require.Error(t, err)
	require.Contains(t, err.Error(), "date")
}

func TestValidateEmptyListEntries(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*EpisodeRecord)
	}{
		{"links", func(r *EpisodeRecord) { r.Links = []string{"ok", ""} }},
		{"reading_list", func(r *EpisodeRecord) { r.ReadingList = []string{""} }},
		{"description", func(r *EpisodeRecord) { r.Description = []string{"ok", ""} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec := validRecord()
			tc.mutate(&rec)
			err := Validate(rec)
			require.Error(t, err)
			require.True(t, IsDrop(err))
			require.Contains(t, err.Error(), tc.name)
		})
	}
}

func TestValidateEmptyListsAreAllowed(t *testing.T) {
	t.Parallel()

	rec := validRecord()
	rec.Links = nil
	rec.ReadingList = nil
	require.NoError(t, Validate(rec))
}

func TestValidateEmptyDescription(t *testing.T) {
	t.Parallel()

	rec := validRecord()
	rec.Description = nil
	err := Validate(rec)
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty description")
}

func TestValidateAssetCounts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*EpisodeRecord)
		want   string
	}{
		{"no audio", func(r *EpisodeRecord) { r.Audio = nil }, "missing audio file"},
		{"two audio", func(r *EpisodeRecord) { r.Audio = append(r.Audio, r.Audio[0]) }, "missing audio file"},
		{"audio empty path", func(r *EpisodeRecord) { r.Audio[0].Path = "" }, "missing audio file"},
		{"no image", func(r *EpisodeRecord) { r.Images = nil }, "missing image"},
		{"two images", func(r *EpisodeRecord) { r.Images = append(r.Images, r.Images[0]) }, "missing image"},
		{"image empty path", func(r *EpisodeRecord) { r.Images[0].Path = "" }, "missing image"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec := validRecord()
			tc.mutate(&rec)
			err := Validate(rec)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestValidateShortCircuitsOnFirstFailure(t *testing.T) {
	t.Parallel()

	rec := validRecord()
	rec.Slug = ""
	rec.Description = nil
	err := Validate(rec)
	require.Error(t, err)
	require.Contains(t, err.Error(), "slug")
}

func TestStringifyCoversEveryField(t *testing.T) {
	t.Parallel()

	got := validRecord().Stringify()
	for _, key := range []string{
		"slug", "url", "title", "date", "synopsis", "description",
		"links", "reading_list", "genre", "era", "audio", "images",
	} {
		require.NotEmpty(t, got[key], "field %s", key)
	}
}
