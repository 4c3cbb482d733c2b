// Package grade defines the domain types for website grading runs: the
// evolving grading report streamed from the LLM provider, the scraped site
// snapshots it is built from, and the cache entry persisted once a run
// completes.
package grade

import "time"

// Letter is the coarse grade assigned alongside the numeric score.
type Letter string

// Supported grade letters, best to worst.
const (
	LetterAPlus Letter = "A+"
	LetterA     Letter = "A"
	LetterB     Letter = "B"
	LetterC     Letter = "C"
	LetterD     Letter = "D"
	LetterF     Letter = "F"
)

// Priority ranks a suggested improvement.
type Priority string

// Supported improvement priorities.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Fixed category names the grading provider scores. The provider returns a
// category object per name; no other keys are expected.
const (
	CategoryPerformance = "performance"
	CategoryMobile      = "mobile"
	CategorySEO         = "seo"
	CategoryContent     = "content"
)

// CategoryNames lists the fixed categories in display order.
var CategoryNames = []string{CategoryPerformance, CategoryMobile, CategorySEO, CategoryContent}

// FindingsPerCategory is the exact number of findings a finished category
// carries.
const FindingsPerCategory = 3

// ImprovementCount is the exact number of entries in a finished
// top-improvements list.
const ImprovementCount = 5

// Category holds the per-category verdict.
type Category struct {
	Score          int      `json:"score"`
	Findings       []string `json:"findings"`
	Recommendation string   `json:"recommendation"`
}

// Improvement is one entry of the prioritized improvement list.
type Improvement struct {
	Priority    Priority `json:"priority"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Impact      string   `json:"impact"`
}

// Report is the evolving output of one grading run. Every field is optional
// until the stream has delivered it; a field never reverts to absent within
// one run (see Merge).
type Report struct {
	OverallScore    *int                `json:"overall_score,omitempty"`
	GradeLetter     *Letter             `json:"grade_letter,omitempty"`
	Summary         *string             `json:"summary,omitempty"`
	Categories      map[string]Category `json:"categories,omitempty"`
	TopImprovements []Improvement       `json:"top_improvements,omitempty"`
	UpgradePrompt   *string             `json:"upgrade_prompt,omitempty"`
}

// Complete reports whether the record is cacheable: the overall score is set
// and at least one category has been filled in.
func (r Report) Complete() bool {
	return r.OverallScore != nil && len(r.Categories) > 0
}

// Merge combines a newly arrived snapshot with the previously published one
// so that field completeness never decreases. Frames carry the whole
// record-so-far, so next wins wherever it has data; fields the provider has
// not re-serialized yet are carried over from prev.
func Merge(prev, next Report) Report {
	out := next
	if out.OverallScore == nil {
		out.OverallScore = prev.OverallScore
	}
	if out.GradeLetter == nil {
		out.GradeLetter = prev.GradeLetter
	}
	if out.Summary == nil {
		out.Summary = prev.Summary
	}
	if out.UpgradePrompt == nil {
		out.UpgradePrompt = prev.UpgradePrompt
	}
	if len(prev.Categories) > 0 {
		merged := make(map[string]Category, len(prev.Categories)+len(out.Categories))
		for name, cat := range prev.Categories {
			merged[name] = cat
		}
		for name, cat := range out.Categories {
			merged[name] = cat
		}
		out.Categories = merged
	}
	if len(out.TopImprovements) < len(prev.TopImprovements) {
		out.TopImprovements = prev.TopImprovements
	}
	return out
}

// Page is one scraped page: the extracted text plus light metadata.
type Page struct {
	Title string `json:"title,omitempty"`
	URL   string `json:"url,omitempty"`
	Image string `json:"image,omitempty"`
	Text  string `json:"text,omitempty"`
}

// Snapshot is the result of scraping one target. Pages are in crawl order;
// the order is not stable across calls.
type Snapshot struct {
	Pages []Page `json:"results"`
}

// Main returns the first crawled page, which the grading request treats as
// the main page.
func (s Snapshot) Main() Page {
	if len(s.Pages) == 0 {
		return Page{}
	}
	return s.Pages[0]
}

// Entry is the document cached per normalized URL. It is written whole, only
// after a run produced a complete report, and is replaced wholesale on a
// rewrite.
type Entry struct {
	URL       string    `json:"url"`
	Site      Snapshot  `json:"site_snapshot"`
	Profile   *Snapshot `json:"profile_snapshot,omitempty"`
	Report    Report    `json:"grading_record"`
	CreatedAt time.Time `json:"created_at"`
}

// Request carries the scraped material sent to the grading provider.
// ProfileData is nil when the profile fetch was attempted and failed, and an
// empty slice when the profile genuinely had no results; the provider can
// tell the two apart.
type Request struct {
	URL         string `json:"url"`
	Mainpage    Page   `json:"mainpage"`
	Subpages    []Page `json:"subpages"`
	ProfileData []Page `json:"profile_data"`
}
