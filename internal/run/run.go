// Package run orchestrates one grading run: cache lookup, the two scrape
// calls, the grading stream, and the detached cache write and completion
// notification once the stream finishes.
package run

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/sitegrade/sitegrade/internal/cache"
	"github.com/sitegrade/sitegrade/internal/grade"
	"github.com/sitegrade/sitegrade/internal/metrics"
)

// Observation is one published step of a run. The sequence ends with a
// terminal done or failed observation; streaming observations carry the
// latest report snapshot.
type Observation struct {
	Phase  Phase         `json:"phase"`
	Report *grade.Report `json:"report,omitempty"`
	Entry  *grade.Entry  `json:"entry,omitempty"`
	Cached bool          `json:"cached,omitempty"`
	Err    string        `json:"error,omitempty"`
}

// Completion is the payload published to the notifier after a complete run.
type Completion struct {
	URL          string        `json:"url"`
	OverallScore *int          `json:"overall_score"`
	GradeLetter  *grade.Letter `json:"grade_letter"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Config controls Runner behavior.
type Config struct {
	Topic             string
	CacheWriteTimeout time.Duration
}

// Runner owns the single in-flight report of a request. Observations are
// published strictly in arrival order; callers only read snapshots.
type Runner struct {
	scraper grade.Scraper
	grader  grade.Grader
	store   cache.Store
	pub     grade.Publisher
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time

	detached sync.WaitGroup
}

// NewRunner constructs a Runner. pub may be nil when completion
// notifications are disabled.
func NewRunner(
	scraper grade.Scraper,
	grader grade.Grader,
	store cache.Store,
	pub grade.Publisher,
	cfg Config,
	logger *zap.Logger,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheWriteTimeout <= 0 {
		cfg.CacheWriteTimeout = 10 * time.Second
	}
	return &Runner{
		scraper: scraper,
		grader:  grader,
		store:   store,
		pub:     pub,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Run starts one grading run and returns its observation stream. The channel
// is closed after the terminal observation. Cancelling ctx aborts the
// grading stream read; in-flight scrapes settle on their own and late
// results are ignored.
func (r *Runner) Run(ctx context.Context, rawURL string) <-chan Observation {
	out := make(chan Observation, 8)
	go func() {
		defer close(out)
		r.run(ctx, rawURL, out)
	}()
	return out
}

// Wait blocks until detached cache writes and notifications have settled.
// Used on shutdown and in tests.
func (r *Runner) Wait() {
	r.detached.Wait()
}

func (r *Runner) run(ctx context.Context, rawURL string, out chan<- Observation) {
	ctx, span := otel.Tracer("sitegrade/run").Start(ctx, "grading-run")
	defer span.End()

	site, err := grade.Normalize(rawURL)
	if err != nil {
		metrics.ObserveRun("validation_error")
		span.SetStatus(codes.Error, "validation")
		r.emit(ctx, out, Observation{Phase: PhaseFailed, Err: err.Error()})
		return
	}
	span.SetAttributes(attribute.String("site", site))

	pm, err := NewPhaseMachine()
	if err != nil {
		r.logger.Error("phase machine init failed", zap.Error(err))
		r.emit(ctx, out, Observation{Phase: PhaseFailed, Err: "internal error"})
		return
	}

	r.transition(pm, EventCheckCache)
	if !r.emit(ctx, out, Observation{Phase: PhaseCacheCheck}) {
		return
	}

	// The cache verdict gates the paid provider calls: a complete hit means
	// zero scrape or grading requests for this URL.
	entry, lookupErr := r.store.Lookup(ctx, site)
	switch {
	case lookupErr == nil && entry.Report.Complete():
		metrics.ObserveCacheLookup("hit")
		metrics.ObserveRun("cache_hit")
		span.SetAttributes(attribute.Bool("cache_hit", true))
		r.transition(pm, EventCacheHit)
		report := entry.Report
		r.emit(ctx, out, Observation{Phase: PhaseDone, Report: &report, Entry: &entry, Cached: true})
		return
	case lookupErr == nil:
		metrics.ObserveCacheLookup("incomplete")
	case errors.Is(lookupErr, cache.ErrNotFound):
		metrics.ObserveCacheLookup("miss")
	default:
		metrics.ObserveCacheLookup("error")
		r.logger.Warn("cache lookup failed, treating as miss",
			zap.String("url", site), zap.Error(lookupErr))
	}

	r.transition(pm, EventCacheMiss)
	if !r.emit(ctx, out, Observation{Phase: PhaseScraping}) {
		return
	}

	// Both scrapes run concurrently; each failure is captured, not thrown.
	type scrapeResult struct {
		snap grade.Snapshot
		err  error
	}
	siteCh := make(chan scrapeResult, 1)
	profileCh := make(chan scrapeResult, 1)
	go func() {
		snap, err := r.scraper.ScrapeSite(ctx, site)
		siteCh <- scrapeResult{snap: snap, err: err}
	}()
	go func() {
		snap, err := r.scraper.ScrapeProfile(ctx, site)
		profileCh <- scrapeResult{snap: snap, err: err}
	}()
	siteRes := <-siteCh
	profileRes := <-profileCh

	if siteRes.err != nil {
		serr := &grade.ScrapeError{Target: grade.TargetSite, Err: siteRes.err}
		metrics.ObserveRun("scrape_error")
		span.RecordError(serr)
		span.SetStatus(codes.Error, "scrape")
		r.transition(pm, EventScrapeFailed)
		r.emit(ctx, out, Observation{Phase: PhaseFailed, Err: serr.Error()})
		return
	}

	// A failed profile scrape degrades to grading without profile input:
	// nil marks attempted-but-failed, an empty slice a profile with no
	// results.
	var profile *grade.Snapshot
	var profileData []grade.Page
	if profileRes.err != nil {
		r.logger.Warn("profile scrape failed, grading without profile",
			zap.String("url", site), zap.Error(profileRes.err))
	} else {
		snap := profileRes.snap
		profile = &snap
		profileData = snap.Pages
		if profileData == nil {
			profileData = []grade.Page{}
		}
	}

	r.transition(pm, EventScrapeOK)
	if !r.emit(ctx, out, Observation{Phase: PhaseGrading}) {
		return
	}

	req := grade.Request{
		URL:         site,
		Mainpage:    siteRes.snap.Main(),
		Subpages:    siteRes.snap.Pages,
		ProfileData: profileData,
	}
	final, gradeErr := r.grader.Grade(ctx, req, func(rep grade.Report) {
		r.transition(pm, EventFrame)
		snapshot := rep
		r.emit(ctx, out, Observation{Phase: PhaseStreaming, Report: &snapshot})
	})
	if gradeErr != nil {
		gerr := &grade.GradingError{Err: gradeErr}
		metrics.ObserveRun("grading_error")
		span.RecordError(gerr)
		span.SetStatus(codes.Error, "grading")
		r.transition(pm, EventGradeFailed)
		r.emit(ctx, out, Observation{Phase: PhaseFailed, Err: gerr.Error()})
		return
	}

	r.transition(pm, EventStreamEnd)

	if final.Complete() {
		if err := grade.ValidateFinal(final); err != nil {
			// Cacheable but not schema-perfect; keep the result, flag it.
			r.logger.Warn("final report violates grading schema",
				zap.String("url", site), zap.Error(err))
		}
		entry := grade.Entry{
			URL:       site,
			Site:      siteRes.snap,
			Profile:   profile,
			Report:    final,
			CreatedAt: r.now().UTC(),
		}
		r.spawnCacheWrite(entry)
		r.spawnNotify(Completion{
			URL:          site,
			OverallScore: final.OverallScore,
			GradeLetter:  final.GradeLetter,
			CreatedAt:    entry.CreatedAt,
		})
	}

	metrics.ObserveRun("complete")
	r.emit(ctx, out, Observation{Phase: PhaseDone, Report: &final})
}

// emit delivers an observation unless the caller has gone away.
func (r *Runner) emit(ctx context.Context, out chan<- Observation, obs Observation) bool {
	select {
	case out <- obs:
		return true
	case <-ctx.Done():
		return false
	}
}

// transition applies a phase event; an illegal event is a programming error
// and is logged rather than surfaced.
func (r *Runner) transition(pm *PhaseMachine, event string) {
	if err := pm.Transition(event); err != nil {
		r.logger.DPanic("illegal phase transition", zap.Error(err))
	}
}

// spawnCacheWrite persists the entry in a detached task. Its outcome is
// observed only for logging; the response path never joins it.
func (r *Runner) spawnCacheWrite(entry grade.Entry) {
	r.detached.Add(1)
	go func() {
		defer r.detached.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.CacheWriteTimeout)
		defer cancel()
		if err := r.store.Write(ctx, entry); err != nil {
			metrics.ObserveCacheWrite("error")
			r.logger.Warn("cache write failed", zap.String("url", entry.URL), zap.Error(err))
			return
		}
		metrics.ObserveCacheWrite("ok")
		r.logger.Info("cached grading report", zap.String("url", entry.URL))
	}()
}

// spawnNotify publishes the completion event fire-and-forget.
func (r *Runner) spawnNotify(completion Completion) {
	if r.pub == nil {
		return
	}
	r.detached.Add(1)
	go func() {
		defer r.detached.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.CacheWriteTimeout)
		defer cancel()
		if _, err := r.pub.Publish(ctx, r.cfg.Topic, completion); err != nil {
			r.logger.Warn("completion publish failed",
				zap.String("url", completion.URL), zap.Error(err))
		}
	}()
}
