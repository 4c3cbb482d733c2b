package grade

import "context"

// Scraper fetches content for one target through the external scrape
// provider. Implementations do not retry; one failed attempt is terminal for
// that sub-fetch.
type Scraper interface {
	// ScrapeSite crawls the main site and a handful of subpages.
	ScrapeSite(ctx context.Context, site string) (Snapshot, error)
	// ScrapeProfile searches for the company profile associated with the
	// site.
	ScrapeProfile(ctx context.Context, site string) (Snapshot, error)
}

// Grader runs one grading stream. Every decoded snapshot is handed to
// publish in transport arrival order; the returned Report is the most
// complete snapshot received. A stream that ends with zero parseable frames
// is an error.
type Grader interface {
	Grade(ctx context.Context, req Request, publish func(Report)) (Report, error)
}

// Publisher announces completed runs to downstream consumers. Publish
// failures never fail the run that triggered them.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}
