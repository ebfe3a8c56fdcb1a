package service

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/codevault-labs/postgen/internal/config"
	"github.com/codevault-labs/postgen/internal/models"
)

// ContentExtractor turns a data source into plain text context. Text sources
// pass through verbatim; link sources are fetched and stripped of page
// boilerplate. Extraction failures are non-fatal: the source simply yields an
// empty string and is dropped from context.
type ContentExtractor struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

func NewContentExtractor(cfg *config.ExtractorConfig, logger *zap.Logger) *ContentExtractor {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil || timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &ContentExtractor{
		client: &http.Client{
			Timeout: timeout,
		},
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

// Extract returns the plain text context for one data source.
func (e *ContentExtractor) Extract(ctx context.Context, source models.DataSource) string {
	switch source.SourceType {
	case models.DataSourceTypeText:
		return source.Content
	case models.DataSourceTypeLink:
		return e.extractFromURL(ctx, source.Content)
	default:
		e.logger.Warn("Unknown data source type", zap.String("type", string(source.SourceType)))
		return ""
	}
}

func (e *ContentExtractor) extractFromURL(ctx context.Context, url string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		e.logger.Warn("Failed to build extraction request", zap.String("url", url), zap.Error(err))
		return ""
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		e.logger.Warn("Failed to fetch data source", zap.String("url", url), zap.Error(err))
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		e.logger.Warn("Data source returned non-OK status",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode))
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		e.logger.Warn("Failed to parse data source HTML", zap.String("url", url), zap.Error(err))
		return ""
	}

	// Drop boilerplate before reading the text
	doc.Find("script, style, nav, header, footer, noscript, iframe").Remove()

	text := doc.Find("body").Text()
	return collapseLines(text)
}

func collapseLines(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
