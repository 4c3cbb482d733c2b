// Package grading implements the streaming client for the LLM grading
// provider. The provider answers one POST with an unbounded sequence of
// newline-delimited JSON frames, each wrapping a progressively more complete
// grading report.
package grading

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sitegrade/sitegrade/internal/grade"
	"github.com/sitegrade/sitegrade/internal/metrics"
)

// maxFrameBytes bounds a single stream line; frames carry a whole report
// snapshot and stay well under this.
const maxFrameBytes = 1 << 20

// Config controls the grading client.
type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	FallbackModel string
	Timeout       time.Duration
	RatePerMinute int
}

// Client issues grading stream requests. One rate-limit rejection falls back
// once to the configured lower-tier model; any further failure is permanent.
type Client struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New constructs a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 100 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter *rate.Limiter
	if cfg.RatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), cfg.RatePerMinute)
	}
	return &Client{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		logger:  logger,
	}
}

type gradeRequest struct {
	URL         string       `json:"url"`
	Mainpage    grade.Page   `json:"mainpage"`
	Subpages    []grade.Page `json:"subpages"`
	ProfileData []grade.Page `json:"profile_data"`
	Model       string       `json:"model"`
}

// Grade opens the stream and republishes every decoded snapshot through
// publish, merged so field completeness never decreases. It returns the most
// complete snapshot received, or an error when the transport fails or ends
// with zero parseable frames.
func (c *Client) Grade(ctx context.Context, req grade.Request, publish func(grade.Report)) (grade.Report, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return grade.Report{}, fmt.Errorf("grading rate limit wait: %w", err)
		}
	}

	resp, err := c.open(ctx, req, c.cfg.Model)
	if err != nil {
		return grade.Report{}, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		drainAndClose(resp.Body, c.logger)
		if c.cfg.FallbackModel == "" {
			return grade.Report{}, errors.New("grading provider rate limited and no fallback model configured")
		}
		metrics.ObserveGradingFallback()
		c.logger.Warn("grading provider rate limited, retrying with fallback model",
			zap.String("model", c.cfg.Model),
			zap.String("fallback", c.cfg.FallbackModel),
		)
		resp, err = c.open(ctx, req, c.cfg.FallbackModel)
		if err != nil {
			return grade.Report{}, err
		}
	}
	defer drainAndClose(resp.Body, c.logger)

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return grade.Report{}, fmt.Errorf("grading provider returned status %d: %s", resp.StatusCode, snippet)
	}

	return c.consume(resp.Body, publish)
}

// consume reads frames one at a time and republishes each merged snapshot in
// arrival order. No buffering happens beyond the current frame.
func (c *Client) consume(body io.Reader, publish func(grade.Report)) (grade.Report, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), maxFrameBytes)

	var latest grade.Report
	frames := 0
	for scanner.Scan() {
		frame, err := DecodeFrame(scanner.Bytes())
		if err != nil {
			if errors.Is(err, ErrEmptyFrame) {
				continue
			}
			metrics.ObserveGradingFrame("malformed")
			c.logger.Warn("skipping malformed grading frame", zap.Error(err))
			continue
		}
		metrics.ObserveGradingFrame("ok")
		latest = grade.Merge(latest, frame.Result)
		frames++
		if publish != nil {
			publish(latest)
		}
	}
	if err := scanner.Err(); err != nil {
		return grade.Report{}, fmt.Errorf("read grading stream: %w", err)
	}
	if frames == 0 {
		return grade.Report{}, errors.New("grading stream ended without a parseable frame")
	}
	return latest, nil
}

func (c *Client) open(ctx context.Context, req grade.Request, model string) (*http.Response, error) {
	payload := gradeRequest{
		URL:         req.URL,
		Mainpage:    req.Mainpage,
		Subpages:    req.Subpages,
		ProfileData: req.ProfileData,
		Model:       model,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal grading request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/grade", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build grading request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/x-ndjson")
	httpReq.Header.Set("x-api-key", c.cfg.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("grading request: %w", err)
	}
	return resp, nil
}

func drainAndClose(body io.ReadCloser, logger *zap.Logger) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4096))
	if err := body.Close(); err != nil {
		logger.Warn("close grading response body", zap.Error(err))
	}
}
