package grade

import "fmt"

// Target names one of the two scrape invocations.
type Target string

// Scrape targets.
const (
	TargetSite    Target = "site"
	TargetProfile Target = "profile"
)

// ValidationError reports a bad input URL. It is raised before any network
// call is made.
type ValidationError struct {
	Input  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid website URL %q: %s", e.Input, e.Reason)
}

// ScrapeError reports a failed scrape invocation. A failed profile scrape is
// tolerated; a failed site scrape aborts the run.
type ScrapeError struct {
	Target Target
	Err    error
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("%s scrape failed: %v", e.Target, e.Err)
}

func (e *ScrapeError) Unwrap() error { return e.Err }

// GradingError reports a failed grading stream after the rate-limit fallback
// has been exhausted.
type GradingError struct {
	Err error
}

func (e *GradingError) Error() string {
	return fmt.Sprintf("grading failed: %v", e.Err)
}

func (e *GradingError) Unwrap() error { return e.Err }
