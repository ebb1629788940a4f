package scraper

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/wmdrthr/bragge/internal/archive"
	"github.com/wmdrthr/bragge/internal/metrics"
)

// Config controls collector and download behavior.
type Config struct {
	UserAgent    string
	Timeout      time.Duration
	DownloadsDir string
}

// Fetcher retrieves episode pages with a Colly collector and downloads
// their media assets into the local downloads store. Requests go out
// one at a time; the source is a single origin and there is no hurry.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
	client        *http.Client
	logger        *zap.Logger
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	transport := newHTTPTransport()

	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(transport)

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		logger: logger,
	}
}

// FetchPage retrieves one episode page and parses it.
func (f *Fetcher) FetchPage(ctx context.Context, pageURL string) (Page, error) {
	var (
		body     []byte
		fetchErr error
	)
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(f.cfg.Timeout)

	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := f.runCollector(ctx, collector, pageURL, &fetchErr); err != nil {
		return Page{}, err
	}

	metrics.PageFetched()
	f.logger.Info("fetched page", zap.String("url", pageURL), zap.Int("bytes", len(body)))
	return ParsePage(pageURL, body)
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("visit failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("response failed: %w", *fetchErr)
		}
		return nil
	}
}

// DownloadAssets fetches the record's audio and image files into the
// downloads store. A download that fails is logged and its reference
// cleared from the record, which leaves validation to drop the record
// instead of aborting the run.
func (f *Fetcher) DownloadAssets(ctx context.Context, rec *archive.EpisodeRecord) {
	rec.Audio = f.downloadAll(ctx, rec.Audio)
	rec.Images = f.downloadAll(ctx, rec.Images)
}

func (f *Fetcher) downloadAll(ctx context.Context, refs []archive.AssetRef) []archive.AssetRef {
	kept := refs[:0]
	for _, ref := range refs {
		if err := f.download(ctx, ref); err != nil {
			f.logger.Warn("asset download failed",
				zap.String("url", ref.URL),
				zap.Error(err))
			continue
		}
		kept = append(kept, ref)
	}
	return kept
}

func (f *Fetcher) download(ctx context.Context, ref archive.AssetRef) error {
	dst := filepath.Join(f.cfg.DownloadsDir, filepath.FromSlash(ref.Path))
	if _, err := os.Stat(dst); err == nil {
		f.logger.Debug("asset already downloaded", zap.String("path", ref.Path))
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.URL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", ref.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	// Some origins answer a whole-file request with 206 and a range
	// covering the entire object; treat that as a normal response.
	status := NormalizeStatus(resp.StatusCode, resp.Header.Get("Content-Range"), len(body))
	if status != http.StatusOK {
		return fmt.Errorf("unexpected status %d for %s", status, ref.URL)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create downloads dir: %w", err)
	}
	if err := os.WriteFile(dst, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	f.logger.Info("downloaded asset",
		zap.String("url", ref.URL),
		zap.String("path", ref.Path),
		zap.Int("bytes", len(body)))
	return nil
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}
}
