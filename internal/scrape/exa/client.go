// Package exa implements the scrape provider client on top of the Exa
// search/crawl API.
package exa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sitegrade/sitegrade/internal/grade"
	"github.com/sitegrade/sitegrade/internal/metrics"
)

const defaultBaseURL = "https://api.exa.ai"

// Config controls the Exa client.
type Config struct {
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	Subpages int
}

// Client calls the Exa contents and search endpoints. It never retries; a
// failed call is terminal for that sub-fetch.
type Client struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New constructs a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type contentsRequest struct {
	URLs      string `json:"urls"`
	Text      bool   `json:"text"`
	Subpages  int    `json:"subpages,omitempty"`
	Livecrawl string `json:"livecrawl,omitempty"`
}

type searchRequest struct {
	Query          string         `json:"query"`
	NumResults     int            `json:"numResults"`
	IncludeDomains []string       `json:"includeDomains,omitempty"`
	Contents       searchContents `json:"contents"`
}

type searchContents struct {
	Text bool `json:"text"`
}

type apiResponse struct {
	Results []apiResult `json:"results"`
}

type apiResult struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Image string `json:"image"`
	Text  string `json:"text"`
}

// ScrapeSite crawls the main page plus a handful of subpages through the Exa
// contents endpoint. An empty result set is a valid low-confidence success.
func (c *Client) ScrapeSite(ctx context.Context, site string) (grade.Snapshot, error) {
	body := contentsRequest{
		URLs:      "https://" + site,
		Text:      true,
		Subpages:  c.cfg.Subpages,
		Livecrawl: "fallback",
	}
	snap, err := c.post(ctx, "/contents", body)
	if err != nil {
		metrics.ObserveScrape(string(grade.TargetSite), "error")
		return grade.Snapshot{}, err
	}
	metrics.ObserveScrape(string(grade.TargetSite), "ok")
	return snap, nil
}

// ScrapeProfile looks up the LinkedIn company profile for the site via the
// Exa search endpoint.
func (c *Client) ScrapeProfile(ctx context.Context, site string) (grade.Snapshot, error) {
	body := searchRequest{
		Query:          fmt.Sprintf("%s company profile", site),
		NumResults:     1,
		IncludeDomains: []string{"linkedin.com"},
		Contents:       searchContents{Text: true},
	}
	snap, err := c.post(ctx, "/search", body)
	if err != nil {
		metrics.ObserveScrape(string(grade.TargetProfile), "error")
		return grade.Snapshot{}, err
	}
	metrics.ObserveScrape(string(grade.TargetProfile), "ok")
	return snap, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (grade.Snapshot, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return grade.Snapshot{}, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return grade.Snapshot{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return grade.Snapshot{}, fmt.Errorf("exa %s: %w", path, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("close exa response body", zap.Error(closeErr))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return grade.Snapshot{}, fmt.Errorf("exa %s: unexpected status %d: %s", path, resp.StatusCode, snippet)
	}

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return grade.Snapshot{}, fmt.Errorf("decode exa response: %w", err)
	}

	pages := make([]grade.Page, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		pages = append(pages, grade.Page{Title: r.Title, URL: r.URL, Image: r.Image, Text: r.Text})
	}
	c.logger.Debug("exa call finished",
		zap.String("path", path),
		zap.Int("results", len(pages)),
		zap.Duration("dur", time.Since(start)),
	)
	return grade.Snapshot{Pages: pages}, nil
}
