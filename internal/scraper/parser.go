// Package scraper fetches episode pages and turns them into candidate
// records for the ingestion pipeline.
package scraper

import (
	"bytes"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/wmdrthr/bragge/internal/archive"
	"github.com/wmdrthr/bragge/internal/hash/sha1"
)

// Genres is the fixed set of collection names the programme files
// episodes under; anything else in the featured-in block is ignored.
var Genres = map[string]struct{}{
	"Culture": {}, "History": {}, "Philosophy": {}, "Religion": {}, "Science": {},
}

// Eras is the fixed set of era collection names.
var Eras = map[string]struct{}{
	"Prehistoric": {}, "Mesopotamian": {}, "Ancient Egypt": {}, "Ancient Greece": {},
	"Ancient Rome": {}, "Early Middle Ages": {}, "Medieval": {}, "Renaissance": {},
	"16th Century": {}, "17th Century": {}, "18th Century": {}, "Enlightenment": {},
	"Romantic": {}, "19th Century": {}, "Victorian": {}, "20th Century": {},
}

// Page is the parse result of one episode page: the candidate record
// and, independently, the link to the following episode (if present).
type Page struct {
	Record   archive.EpisodeRecord
	NextLink string
}

// ParsePage extracts the episode record and the next-episode link from
// a fetched page. Missing fields come back empty; the validator, not
// the parser, decides whether the record is usable.
func ParsePage(pageURL string, body []byte) (Page, error) {
	doc, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return Page{}, fmt.Errorf("parse html: %w", err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return Page{}, fmt.Errorf("parse page url: %w", err)
	}

	rec := archive.EpisodeRecord{
		URL:  pageURL,
		Slug: path.Base(base.Path),
	}

	rec.Title = innerText(doc, `//div[@class="island"]//h1[@class="no-margin"]`)
	rec.Date = parseDate(firstAttr(doc,
		attrQuery{`//div[@class="broadcast-event__time beta"]`, "content"},
		attrQuery{`//div[@class="episode-panel__meta"]/time`, "datetime"},
	))
	rec.Synopsis = terminateSentence(innerText(doc,
		`//div[@class="island"]//div[@class="synopsis-toggle__short"]/p`))

	for _, node := range htmlquery.Find(doc,
		`//div[@class="island"]//div[@class="synopsis-toggle__long"]/p`) {
		rec.Description = append(rec.Description, htmlquery.OutputHTML(node, true))
	}

	audioURL := firstAttr(doc,
		attrQuery{`//div[@class="buttons__download"]/a`, "href"},
		attrQuery{`//a[@aria-label="Download Higher quality (128kbps) "]`, "href"},
	)
	if audioURL != "" {
		rec.Audio = append(rec.Audio, assetRef(base, audioURL, ".mp3"))
	}
	imageURL := firstAttr(doc, attrQuery{`//div[@class="episode-playout"]//img`, "src"})
	if imageURL != "" {
		rec.Images = append(rec.Images, assetRef(base, imageURL, ".jpg"))
	}

	rec.Links, rec.ReadingList = parseFeatures(doc)
	rec.Genre, rec.Era = parseCollections(doc)

	page := Page{Record: rec}
	if next := firstAttr(doc, attrQuery{`//a[@data-bbc-title="next:title"]`, "href"}); next != "" {
		page.NextLink = resolve(base, next)
	}
	return page, nil
}

// parseFeatures splits the features block around the bold heading: the
// paragraphs before it are related links, the ones after it form the
// reading list. The trailing paragraph on each side is boilerplate and
// skipped.
func parseFeatures(doc *html.Node) (links, readingList []string) {
	parent := htmlquery.FindOne(doc,
		`//div[@id="features"]//div[@class="feature__description centi"]`)
	if parent == nil {
		return nil, nil
	}
	// preceding-sibling is a reverse axis: htmlquery yields the nodes
	// nearest-first, so restore document order before trimming.
	before := htmlquery.Find(parent, `p/strong/parent::p/preceding-sibling::p`)
	for i, j := 0, len(before)-1; i < j; i, j = i+1, j-1 {
		before[i], before[j] = before[j], before[i]
	}
	for i, node := range before {
		if i == len(before)-1 {
			break
		}
		links = append(links, htmlquery.OutputHTML(node, true))
	}
	after := htmlquery.Find(parent, `p/strong/parent::p/following-sibling::p`)
	for i, node := range after {
		if i == len(after)-1 {
			break
		}
		readingList = append(readingList, htmlquery.OutputHTML(node, true))
	}
	return links, readingList
}

// parseCollections matches the featured-in collection titles against
// the fixed genre and era sets.
func parseCollections(doc *html.Node) (genre, era string) {
	for _, node := range htmlquery.Find(doc,
		`//a[@data-bbc-title="featured-in:group:title"]/span[@class="programme__title "]/span`) {
		title := strings.TrimSpace(htmlquery.InnerText(node))
		if _, ok := Genres[title]; ok {
			genre = title
		} else if _, ok := Eras[title]; ok {
			era = title
		}
	}
	return genre, era
}

type attrQuery struct {
	xpath string
	attr  string
}

func firstAttr(doc *html.Node, queries ...attrQuery) string {
	for _, q := range queries {
		if node := htmlquery.FindOne(doc, q.xpath); node != nil {
			if value := strings.TrimSpace(htmlquery.SelectAttr(node, q.attr)); value != "" {
				return value
			}
		}
	}
	return ""
}

func innerText(doc *html.Node, xpath string) string {
	node := htmlquery.FindOne(doc, xpath)
	if node == nil {
		return ""
	}
	return strings.TrimSpace(htmlquery.InnerText(node))
}

func parseDate(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// terminateSentence appends a full stop when the synopsis does not end
// in sentence-terminal punctuation.
func terminateSentence(s string) string {
	if s == "" {
		return s
	}
	if strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?") {
		return s
	}
	return s + "."
}

func resolve(base *url.URL, ref string) string {
	parsed, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(parsed).String()
}

// assetRef builds the content-addressed downloads-store path for an
// asset URL: full/<sha1 of url> with the URL's extension (or a default).
func assetRef(base *url.URL, rawURL, defaultExt string) archive.AssetRef {
	resolved := resolve(base, rawURL)
	ext := path.Ext(strippedPath(resolved))
	if ext == "" {
		ext = defaultExt
	}
	return archive.AssetRef{
		URL:  resolved,
		Path: "full/" + sha1.HexSum(resolved) + ext,
	}
}

func strippedPath(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return parsed.Path
}
