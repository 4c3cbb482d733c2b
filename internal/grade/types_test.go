package grade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int          { return &v }
func strPtr(v string) *string    { return &v }
func letterPtr(v Letter) *Letter { return &v }

func TestReportComplete(t *testing.T) {
	t.Parallel()

	var empty Report
	assert.False(t, empty.Complete())

	scoreOnly := Report{OverallScore: intPtr(80)}
	assert.False(t, scoreOnly.Complete(), "score without categories is not cacheable")

	summaryOnly := Report{Summary: strPtr("fine site")}
	assert.False(t, summaryOnly.Complete())

	ready := Report{
		OverallScore: intPtr(80),
		Categories: map[string]Category{
			CategorySEO: {Score: 70, Findings: []string{"a", "b", "c"}, Recommendation: "r"},
		},
	}
	assert.True(t, ready.Complete())
}

func TestMergeNeverDropsFields(t *testing.T) {
	t.Parallel()

	prev := Report{
		OverallScore: intPtr(75),
		Summary:      strPtr("solid"),
		Categories: map[string]Category{
			CategoryPerformance: {Score: 60},
		},
		TopImprovements: []Improvement{
			{Priority: PriorityHigh, Title: "one"},
			{Priority: PriorityLow, Title: "two"},
		},
	}
	// A later frame that re-serializes only part of the record.
	next := Report{
		GradeLetter: letterPtr(LetterB),
		Categories: map[string]Category{
			CategoryMobile: {Score: 50},
		},
		TopImprovements: []Improvement{{Priority: PriorityHigh, Title: "one"}},
	}

	got := Merge(prev, next)
	require.NotNil(t, got.OverallScore)
	assert.Equal(t, 75, *got.OverallScore)
	require.NotNil(t, got.GradeLetter)
	assert.Equal(t, LetterB, *got.GradeLetter)
	assert.Equal(t, "solid", *got.Summary)
	assert.Len(t, got.Categories, 2)
	assert.Len(t, got.TopImprovements, 2, "a shorter improvement list never replaces a longer one")
}

func TestMergeNextWins(t *testing.T) {
	t.Parallel()

	prev := Report{
		OverallScore: intPtr(40),
		Categories:   map[string]Category{CategorySEO: {Score: 10}},
	}
	next := Report{
		OverallScore: intPtr(82),
		Categories:   map[string]Category{CategorySEO: {Score: 90}},
	}

	got := Merge(prev, next)
	assert.Equal(t, 82, *got.OverallScore)
	assert.Equal(t, 90, got.Categories[CategorySEO].Score)
}

func TestSnapshotMain(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Page{}, Snapshot{}.Main())

	snap := Snapshot{Pages: []Page{{URL: "https://example.com"}, {URL: "https://example.com/about"}}}
	assert.Equal(t, "https://example.com", snap.Main().URL)
}
