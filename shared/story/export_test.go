package story

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeguardian/guardian/shared/schema"
)

func exportFixture() *schema.StoryResult {
	return &schema.StoryResult{
		Success: true,
		Stories: []schema.GeneratedStory{{
			ID:          "id-1",
			Title:       "As a user, I want to sign in",
			Description: "Secure sign-in flow",
			StoryType:   schema.StoryTypeUserStory,
			Tasks: []schema.DetailedTask{{
				Title:       "Build the form",
				Description: "Sign-in form with error states",
				Examples:    []string{"error banner"},
			}},
			AcceptanceCriteria: []schema.AcceptanceCriteria{{
				Given: "valid credentials",
				When:  "the user signs in",
				Then:  "a session is created",
			}},
			Priority:          schema.PriorityHigh,
			PriorityRationale: "Gates everything else",
			Estimate:          8,
			EstimateRationale: "Several components involved",
		}},
		Summary:         "One story generated",
		Recommendations: []string{"Review with the team"},
		Source:          schema.SourceFallback,
		ProcessingTime:  0.042,
	}
}

func TestExportTXTSectionOrder(t *testing.T) {
	now := time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)
	out := exportTXTAt(exportFixture(), now)

	sections := []string{
		"USER STORIES AND TASKS - CODEGUARDIAN",
		"Generated: 2025-03-14 10:30:00",
		"Source: fallback",
		"STORY 1",
		"Title: As a user, I want to sign in",
		"Description: Secure sign-in flow",
		"Type: user_story",
		"Tasks:",
		"1. Build the form",
		"- error banner",
		"Acceptance criteria (Gherkin):",
		"Scenario 1:",
		"Given valid credentials",
		"When the user signs in",
		"Then a session is created",
		"Priority: high",
		"Priority rationale: Gates everything else",
		"Estimate: 8 story points",
		"Estimate rationale: Several components involved",
		"SUMMARY",
		"One story generated",
		"RECOMMENDATIONS",
		"- Review with the team",
		"Generated by CodeGuardian - Story Creator",
		"Processing time: 0.04 seconds",
	}

	pos := 0
	for _, want := range sections {
		idx := strings.Index(out[pos:], want)
		require.GreaterOrEqual(t, idx, 0, "section %q missing or out of order", want)
		pos += idx + len(want)
	}
}

func TestExportTXTOmitsEmptySections(t *testing.T) {
	res := exportFixture()
	res.Stories[0].Tasks = nil
	res.Stories[0].AcceptanceCriteria = nil
	res.Summary = ""
	res.Recommendations = nil

	out := ExportTXT(res)
	assert.NotContains(t, out, "Tasks:")
	assert.NotContains(t, out, "Acceptance criteria")
	assert.NotContains(t, out, "SUMMARY")
	assert.NotContains(t, out, "RECOMMENDATIONS")
	assert.Contains(t, out, "Priority: high")
}

func TestExportTXTNumbersEveryStory(t *testing.T) {
	res := exportFixture()
	second := res.Stories[0]
	second.Title = "As a user, I want to sign out"
	res.Stories = append(res.Stories, second)

	out := ExportTXT(res)
	assert.Contains(t, out, "STORY 1")
	assert.Contains(t, out, "STORY 2")
}
