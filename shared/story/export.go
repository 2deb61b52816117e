package story

import (
	"fmt"
	"strings"
	"time"

	"github.com/codeguardian/guardian/shared/schema"
)

const (
	ruleHeavy = "================================================================================"
	ruleLight = "--------------------------------------------------------------------------------"
)

// ExportTXT renders a story result as the plain-text export document.
// Section order is fixed: header, then per story — title, description,
// tasks, acceptance criteria, priority with rationale, estimate with
// rationale — then summary, recommendations, and the processing-time footer.
func ExportTXT(res *schema.StoryResult) string {
	return exportTXTAt(res, time.Now())
}

func exportTXTAt(res *schema.StoryResult, now time.Time) string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line(ruleHeavy)
	line("                 USER STORIES AND TASKS - CODEGUARDIAN")
	line(ruleHeavy)
	line("Generated: %s", now.Format("2006-01-02 15:04:05"))
	line("Source: %s", res.Source)
	line(ruleHeavy)
	line("")

	for i, s := range res.Stories {
		line("STORY %d", i+1)
		line("========================================")
		line("Title: %s", s.Title)
		line("")
		line("Description: %s", s.Description)
		line("")
		line("Type: %s", s.StoryType)

		if len(s.Tasks) > 0 {
			line("")
			line("Tasks:")
			for j, t := range s.Tasks {
				line("  %d. %s", j+1, t.Title)
				line("     Description: %s", t.Description)
				if len(t.Examples) > 0 {
					line("     Examples:")
					for _, ex := range t.Examples {
						line("       - %s", ex)
					}
				}
			}
		}

		if len(s.AcceptanceCriteria) > 0 {
			line("")
			line("Acceptance criteria (Gherkin):")
			for j, c := range s.AcceptanceCriteria {
				line("  Scenario %d:", j+1)
				line("    Given %s", c.Given)
				line("    When %s", c.When)
				line("    Then %s", c.Then)
			}
		}

		line("")
		line("Priority: %s", s.Priority)
		line("Priority rationale: %s", s.PriorityRationale)
		line("Estimate: %d story points", s.Estimate)
		line("Estimate rationale: %s", s.EstimateRationale)
		line("")
		line(ruleLight)
		line("")
	}

	if res.Summary != "" {
		line("SUMMARY")
		line("------------------------------")
		line("%s", res.Summary)
		line("")
	}
	if len(res.Recommendations) > 0 {
		line("RECOMMENDATIONS")
		line("------------------------------")
		for _, r := range res.Recommendations {
			line("- %s", r)
		}
		line("")
	}

	line(ruleHeavy)
	line("Generated by CodeGuardian - Story Creator")
	line("Processing time: %.2f seconds", res.ProcessingTime)
	line(ruleHeavy)
	return b.String()
}
