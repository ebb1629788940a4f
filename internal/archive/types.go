// Package archive defines the episode record consumed by the ingestion
// pipeline and the validation applied at its boundary.
package archive

import (
	"fmt"
	"strings"
	"time"
)

// AssetRef points at a downloaded asset: the URL it came from and the
// path of the local copy, relative to the downloads store.
type AssetRef struct {
	URL  string
	Path string
}

// EpisodeRecord is the structured metadata scraped for one episode,
// prior to any side effect. Field shape mirrors what the scraper emits;
// Validate gates it before ingestion.
type EpisodeRecord struct {
	Slug        string
	URL         string
	Title       string
	Date        time.Time
	Synopsis    string
	Description []string
	Links       []string
	ReadingList []string
	Genre       string
	Era         string
	Audio       []AssetRef
	Images      []AssetRef
}

// Stringify flattens every field to a string so a failed or errored
// record can be serialized into a log line without reflection surprises.
func (r EpisodeRecord) Stringify() map[string]string {
	return map[string]string{
		"slug":         r.Slug,
		"url":          r.URL,
		"title":        r.Title,
		"date":         r.Date.Format(time.RFC3339),
		"synopsis":     r.Synopsis,
		"description":  strings.Join(r.Description, " | "),
		"links":        strings.Join(r.Links, " | "),
		"reading_list": strings.Join(r.ReadingList, " | "),
		"genre":        r.Genre,
		"era":          r.Era,
		"audio":        fmt.Sprint(r.Audio),
		"images":       fmt.Sprint(r.Images),
	}
}
