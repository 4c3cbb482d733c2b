package grade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullCategory(score int) Category {
	return Category{
		Score:          score,
		Findings:       []string{"first", "second", "third"},
		Recommendation: "do the thing",
	}
}

func fullReport() Report {
	improvements := make([]Improvement, ImprovementCount)
	for i := range improvements {
		improvements[i] = Improvement{
			Priority:    PriorityMedium,
			Title:       "title",
			Description: "description",
			Impact:      "impact",
		}
	}
	return Report{
		OverallScore: intPtr(82),
		GradeLetter:  letterPtr(LetterA),
		Summary:      strPtr("well built"),
		Categories: map[string]Category{
			CategoryPerformance: fullCategory(80),
			CategoryMobile:      fullCategory(75),
			CategorySEO:         fullCategory(88),
			CategoryContent:     fullCategory(90),
		},
		TopImprovements: improvements,
		UpgradePrompt:   strPtr("I need help upgrading my website example.com ..."),
	}
}

func TestValidateFinalAcceptsFullReport(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateFinal(fullReport()))
}

func TestValidateFinalRejectsViolations(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Report)
	}{
		{name: "missing overall score", mutate: func(r *Report) { r.OverallScore = nil }},
		{name: "score out of range", mutate: func(r *Report) { r.OverallScore = intPtr(120) }},
		{name: "unknown letter", mutate: func(r *Report) { bad := Letter("E"); r.GradeLetter = &bad }},
		{name: "missing category", mutate: func(r *Report) { delete(r.Categories, CategorySEO) }},
		{name: "two findings", mutate: func(r *Report) {
			c := r.Categories[CategoryMobile]
			c.Findings = c.Findings[:2]
			r.Categories[CategoryMobile] = c
		}},
		{name: "four improvements", mutate: func(r *Report) { r.TopImprovements = r.TopImprovements[:4] }},
		{name: "empty upgrade prompt", mutate: func(r *Report) { r.UpgradePrompt = strPtr("") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := fullReport()
			tc.mutate(&r)
			assert.Error(t, ValidateFinal(r))
		})
	}
}
