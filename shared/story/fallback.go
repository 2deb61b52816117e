package story

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/codeguardian/guardian/shared/schema"
)

// heuristicNote labels every fallback justification so readers can tell a
// placeholder rationale from a backend-produced one.
const heuristicNote = "Assigned by the deterministic fallback from keyword analysis of the supplied context."

// features are the surface signals recovered from the context text.
type features struct {
	UserType    string
	MainFeature string
	Preview     string
}

func extractFeatures(ctx string) features {
	lower := strings.ToLower(ctx)

	f := features{UserType: "user", MainFeature: "the described functionality"}
	switch {
	case containsAny(lower, "admin", "administrador"):
		f.UserType = "administrator"
	case containsAny(lower, "customer", "cliente"):
		f.UserType = "customer"
	}

	switch {
	case containsAny(lower, "login", "auth", "sign-in", "signin", "active directory"):
		f.MainFeature = "authentication"
	case containsAny(lower, "crud", "register", "cadastro", "manage", "record"):
		f.MainFeature = "record management"
	case containsAny(lower, "report", "dashboard", "relatório", "analytics"):
		f.MainFeature = "reporting"
	case containsAny(lower, "integration", "webhook", " api"):
		f.MainFeature = "system integration"
	case containsAny(lower, "innovation", "inova", "poc", "prototype"):
		f.MainFeature = "an innovation initiative"
	}

	f.Preview = ctx
	if runes := []rune(f.Preview); len(runes) > 100 {
		f.Preview = string(runes[:100]) + "..."
	}
	return f
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// fallbackRule pairs a predicate with a story template. Rules are evaluated
// top to bottom; the last rule always matches, so the fallback never fails.
type fallbackRule struct {
	name  string
	match func(lower string) bool
	build func(req schema.StoryRequest, f features) schema.GeneratedStory
}

var fallbackRules = []fallbackRule{
	{
		name:  "authentication",
		match: func(s string) bool { return containsAny(s, "login", "auth", "sign-in", "signin", "active directory") },
		build: buildAuthStory,
	},
	{
		name:  "record-management",
		match: func(s string) bool { return containsAny(s, "crud", "register", "cadastro", "manage") },
		build: buildCrudStory,
	},
	{
		name:  "reporting",
		match: func(s string) bool { return containsAny(s, "report", "dashboard", "relatório", "analytics") },
		build: buildReportingStory,
	},
	{
		name:  "integration",
		match: func(s string) bool { return containsAny(s, "integration", "webhook", " api") },
		build: buildIntegrationStory,
	},
	{
		name:  "innovation",
		match: func(s string) bool { return containsAny(s, "innovation", "inova", "poc", "prototype") },
		build: buildInnovationStory,
	},
	{
		name:  "default",
		match: func(string) bool { return true },
		build: buildDefaultStory,
	},
}

// generateFallback derives a plausible, complete story set from surface
// features of the input text. This path must never fail and always fills
// every mandatory field.
func (g *Generator) generateFallback(req schema.StoryRequest) *schema.StoryResult {
	lower := strings.ToLower(req.Context)
	f := extractFeatures(req.Context)

	var main schema.GeneratedStory
	var matched string
	for _, rule := range fallbackRules {
		if rule.match(lower) {
			main = rule.build(req, f)
			matched = rule.name
			break
		}
	}
	main.ID = uuid.New().String()
	main.StoryType = req.StoryType
	if !req.IncludeAcceptanceCriteria {
		main.AcceptanceCriteria = nil
	}

	stories := []schema.GeneratedStory{main}
	if req.StoryType == schema.StoryTypeEpic {
		stories = append(stories, supportingStories(req, main)...)
	}

	return &schema.StoryResult{
		Success: true,
		Stories: stories,
		Summary: fmt.Sprintf("Generated %d artifact(s) via the deterministic fallback (rule: %s) — no LLM backend was used.",
			len(stories), matched),
		Recommendations: []string{
			"Configure an LLM provider for richer, context-specific stories.",
			"Review and refine the generated breakdown with the team before committing to a sprint.",
		},
		Source: schema.SourceFallback,
	}
}

// supportingStories expands an epic with implementation and verification
// stories derived from the main story.
func supportingStories(req schema.StoryRequest, main schema.GeneratedStory) []schema.GeneratedStory {
	build := func(title, desc string, estimate int) schema.GeneratedStory {
		s := schema.GeneratedStory{
			ID:          uuid.New().String(),
			Title:       title,
			Description: desc,
			StoryType:   schema.StoryTypeUserStory,
			Tasks: []schema.DetailedTask{
				{Title: "Refine scope", Description: "Detail the requirements for: " + title},
				{Title: "Implement and review", Description: "Implement the story and run it through code review"},
			},
			Priority:          schema.PriorityMedium,
			PriorityRationale: "Supporting story of the epic; sequenced after the main flow. " + heuristicNote,
			Estimate:          estimate,
			EstimateRationale: "Sized relative to the epic's main story. " + heuristicNote,
		}
		if req.IncludeAcceptanceCriteria {
			s.AcceptanceCriteria = []schema.AcceptanceCriteria{{
				Given: "the main story of the epic is implemented",
				When:  "this supporting story is completed",
				Then:  "the epic's end-to-end flow works as described in the context",
			}}
		}
		return s
	}
	return []schema.GeneratedStory{
		build("Implement supporting workflows for: "+main.Title,
			"Cover the secondary flows implied by the epic context so the main story is usable end to end.", 5),
		build("Validate and harden: "+main.Title,
			"Add validation, error handling, and automated checks around the epic's main flow.", 3),
	}
}

// ── Story templates ───────────────────────────────────────────────────────────

func buildAuthStory(req schema.StoryRequest, f features) schema.GeneratedStory {
	return schema.GeneratedStory{
		Title: fmt.Sprintf("As a %s, I want to authenticate securely so that I can access the system", f.UserType),
		Description: fmt.Sprintf(
			"Provide secure authentication for the %s described in the context: %s", f.UserType, f.Preview),
		AcceptanceCriteria: []schema.AcceptanceCriteria{
			{
				Given: "the user has valid credentials",
				When:  "they attempt to sign in",
				Then:  "they are authenticated and a secure session is established",
			},
			{
				Given: "the user has invalid credentials",
				When:  "they attempt to sign in",
				Then:  "access is denied and the failed attempt is recorded",
			},
		},
		Tasks: []schema.DetailedTask{
			{
				Title:       "Build the sign-in interface",
				Description: "Create a responsive sign-in form with clear error states",
				Examples:    []string{"credential fields", "error banner", "loading state"},
			},
			{
				Title:       "Implement credential validation",
				Description: "Validate credentials against the configured identity source",
				Examples:    []string{"directory lookup", "password hashing", "rate limiting"},
			},
			{
				Title:       "Manage sessions",
				Description: "Issue, refresh, and revoke secure sessions after authentication",
				Examples:    []string{"token expiry", "logout", "concurrent session policy"},
			},
		},
		Priority:          schema.PriorityHigh,
		PriorityRationale: "Authentication gates every other capability of the system. " + heuristicNote,
		Estimate:          8,
		EstimateRationale: "Identity integration and session handling usually span several components. " + heuristicNote,
	}
}

func buildCrudStory(req schema.StoryRequest, f features) schema.GeneratedStory {
	return schema.GeneratedStory{
		Title: fmt.Sprintf("As a %s, I want to create, view, update, and remove records so that the data stays current", f.UserType),
		Description: fmt.Sprintf(
			"Provide full record management for the entities described in the context: %s", f.Preview),
		AcceptanceCriteria: []schema.AcceptanceCriteria{
			{
				Given: "the user submits a valid record",
				When:  "they save it",
				Then:  "the record is persisted and shown in the listing",
			},
			{
				Given: "the user submits an invalid record",
				When:  "they save it",
				Then:  "the system rejects it with a field-level message",
			},
		},
		Tasks: []schema.DetailedTask{
			{
				Title:       "Design the record model",
				Description: "Define fields, validation rules, and uniqueness constraints",
				Examples:    []string{"required fields", "format validation"},
			},
			{
				Title:       "Implement the CRUD endpoints",
				Description: "Expose create, read, update, and delete operations",
				Examples:    []string{"pagination", "soft delete"},
			},
			{
				Title:       "Build the management screens",
				Description: "Listing, detail, and edit views for the records",
				Examples:    []string{"search", "sorting"},
			},
		},
		Priority:          schema.PriorityMedium,
		PriorityRationale: "Core data maintenance, but no signal in the context marks it as time-critical. " + heuristicNote,
		Estimate:          5,
		EstimateRationale: "Standard CRUD scope over a single entity family. " + heuristicNote,
	}
}

func buildReportingStory(req schema.StoryRequest, f features) schema.GeneratedStory {
	return schema.GeneratedStory{
		Title: fmt.Sprintf("As a %s, I want consolidated reports so that I can make informed decisions", f.UserType),
		Description: fmt.Sprintf(
			"Provide reporting over the data described in the context: %s", f.Preview),
		AcceptanceCriteria: []schema.AcceptanceCriteria{
			{
				Given: "data exists for the selected period",
				When:  "the user opens the report",
				Then:  "the figures reflect the stored data for that period",
			},
		},
		Tasks: []schema.DetailedTask{
			{
				Title:       "Define the report metrics",
				Description: "Agree on the figures, groupings, and filters the report must support",
				Examples:    []string{"period filter", "grouping by category"},
			},
			{
				Title:       "Implement the report view",
				Description: "Render the metrics with export to common formats",
				Examples:    []string{"CSV export", "print layout"},
			},
		},
		Priority:          schema.PriorityMedium,
		PriorityRationale: "Reporting consumes existing data and rarely blocks other work. " + heuristicNote,
		Estimate:          5,
		EstimateRationale: "One report view over existing data with export. " + heuristicNote,
	}
}

func buildIntegrationStory(req schema.StoryRequest, f features) schema.GeneratedStory {
	return schema.GeneratedStory{
		Title: "As a system, I need to exchange data with the external service so that workflows stay in sync",
		Description: fmt.Sprintf(
			"Integrate with the external system described in the context: %s", f.Preview),
		AcceptanceCriteria: []schema.AcceptanceCriteria{
			{
				Given: "the external service is reachable",
				When:  "a synchronization runs",
				Then:  "records are exchanged and acknowledged",
			},
			{
				Given: "the external service is unavailable",
				When:  "a synchronization runs",
				Then:  "the failure is recorded and retried without data loss",
			},
		},
		Tasks: []schema.DetailedTask{
			{
				Title:       "Specify the exchange contract",
				Description: "Document the payloads, authentication, and error semantics",
				Examples:    []string{"payload schema", "auth token exchange"},
			},
			{
				Title:       "Implement the integration client",
				Description: "Build the client with timeouts and failure reporting",
				Examples:    []string{"timeout handling", "idempotent submission"},
			},
		},
		Priority:          schema.PriorityHigh,
		PriorityRationale: "External contracts constrain the rest of the implementation and need early validation. " + heuristicNote,
		Estimate:          8,
		EstimateRationale: "Cross-system work with failure handling on both sides. " + heuristicNote,
	}
}

func buildInnovationStory(req schema.StoryRequest, f features) schema.GeneratedStory {
	return schema.GeneratedStory{
		Title: "As a product team, we want a thin prototype so that we can validate the idea cheaply",
		Description: fmt.Sprintf(
			"Explore the initiative described in the context with a disposable prototype: %s", f.Preview),
		AcceptanceCriteria: []schema.AcceptanceCriteria{
			{
				Given: "the prototype is available to the pilot group",
				When:  "they exercise the main flow",
				Then:  "feedback is collected to decide whether to invest further",
			},
		},
		Tasks: []schema.DetailedTask{
			{
				Title:       "Frame the hypothesis",
				Description: "State what the prototype must demonstrate and how success is measured",
			},
			{
				Title:       "Build the walking skeleton",
				Description: "Implement only the happy path needed to test the hypothesis",
			},
		},
		Priority:          schema.PriorityLow,
		PriorityRationale: "Exploratory work; it informs the roadmap but blocks nothing. " + heuristicNote,
		Estimate:          3,
		EstimateRationale: "Deliberately thin scope limited to the happy path. " + heuristicNote,
	}
}

func buildDefaultStory(req schema.StoryRequest, f features) schema.GeneratedStory {
	return schema.GeneratedStory{
		Title: fmt.Sprintf("As a %s, I want %s so that the described goal is met", f.UserType, f.MainFeature),
		Description: fmt.Sprintf(
			"Story derived directly from the supplied context: %s", f.Preview),
		AcceptanceCriteria: []schema.AcceptanceCriteria{
			{
				Given: "the system is operational",
				When:  fmt.Sprintf("the %s uses the functionality", f.UserType),
				Then:  "the operation completes as described in the context",
			},
		},
		Tasks: []schema.DetailedTask{
			{
				Title:       "Analyze the detailed requirements",
				Description: "Break the context down into concrete, testable requirements",
			},
			{
				Title:       "Implement the functionality",
				Description: "Build the behavior described in the context",
			},
			{
				Title:       "Verify against the context",
				Description: "Write automated checks that exercise the described behavior",
			},
		},
		Priority:          schema.PriorityMedium,
		PriorityRationale: "No urgency signal was found in the context; medium is the documented default. " + heuristicNote,
		Estimate:          5,
		EstimateRationale: "Mid-scale default in the absence of sizing signals. " + heuristicNote,
	}
}
