// Package story generates agile user stories, epics, and tasks from a
// product-context description. The LLM backend is used when one is
// configured; otherwise (or on any backend/contract failure) a deterministic
// keyword-driven fallback produces a complete artifact.
package story

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/codeguardian/guardian/shared/llm"
	"github.com/codeguardian/guardian/shared/schema"
)

// MinContextLen rejects contexts too short to say anything about the product.
const MinContextLen = 10

// Generator produces stories. A nil provider means every request takes the
// fallback path.
type Generator struct {
	provider llm.Provider
}

func NewGenerator(provider llm.Provider) *Generator {
	return &Generator{provider: provider}
}

// Generate runs one story-generation request. The returned result is always
// complete: backend and contract failures are recovered via the fallback
// path and tagged with Source set to "fallback". Only invalid input fails.
func (g *Generator) Generate(ctx context.Context, req schema.StoryRequest) (*schema.StoryResult, error) {
	start := time.Now()

	trimmed := strings.TrimSpace(req.Context)
	if len(trimmed) < MinContextLen {
		return nil, schema.InvalidInput("context must be at least %d characters", MinContextLen)
	}
	req.Context = trimmed

	storyType, err := schema.ParseStoryType(string(req.StoryType))
	if err != nil {
		return nil, schema.InvalidInput("%v", err)
	}
	req.StoryType = storyType

	if g.provider != nil {
		res, err := g.generateBackend(ctx, req)
		if err == nil {
			res.ProcessingTime = time.Since(start).Seconds()
			return res, nil
		}
		log.Warn().Err(err).Msg("story backend failed — using deterministic fallback")
	}

	res := g.generateFallback(req)
	res.ProcessingTime = time.Since(start).Seconds()
	return res, nil
}

func (g *Generator) generateBackend(ctx context.Context, req schema.StoryRequest) (*schema.StoryResult, error) {
	raw, err := g.provider.Generate(ctx, buildStoryPrompt(req))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", schema.ErrCodeBackendUnavailable, err)
	}

	var payload struct {
		Stories []struct {
			Title              string                      `json:"title"`
			Description        string                      `json:"description"`
			StoryType          string                      `json:"story_type"`
			Priority           string                      `json:"priority"`
			PriorityRationale  string                      `json:"priority_rationale"`
			Estimate           int                         `json:"estimate"`
			EstimateRationale  string                      `json:"estimate_rationale"`
			AcceptanceCriteria []schema.AcceptanceCriteria `json:"acceptance_criteria"`
			Tasks              []schema.DetailedTask       `json:"tasks"`
		} `json:"stories"`
		Summary         string   `json:"summary"`
		Recommendations []string `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(llm.StripFences(raw)), &payload); err != nil {
		return nil, fmt.Errorf("%s: parse response: %w", schema.ErrCodeContractViolation, err)
	}
	if len(payload.Stories) == 0 {
		return nil, fmt.Errorf("%s: response contains no stories", schema.ErrCodeContractViolation)
	}

	stories := make([]schema.GeneratedStory, 0, len(payload.Stories))
	for i, ws := range payload.Stories {
		priority, err := schema.ParsePriority(ws.Priority)
		if err != nil {
			return nil, fmt.Errorf("%s: story %d: %w", schema.ErrCodeContractViolation, i+1, err)
		}
		st, err := schema.ParseStoryType(ws.StoryType)
		if err != nil {
			st = req.StoryType
		}
		s := schema.GeneratedStory{
			ID:                 uuid.New().String(),
			Title:              ws.Title,
			Description:        ws.Description,
			StoryType:          st,
			AcceptanceCriteria: ws.AcceptanceCriteria,
			Tasks:              ws.Tasks,
			Priority:           priority,
			PriorityRationale:  ws.PriorityRationale,
			Estimate:           schema.ClampEstimate(ws.Estimate),
			EstimateRationale:  ws.EstimateRationale,
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("%s: story %d: %w", schema.ErrCodeContractViolation, i+1, err)
		}
		stories = append(stories, s)
	}

	summary := payload.Summary
	if summary == "" {
		summary = fmt.Sprintf("Generated %d stories from the supplied context", len(stories))
	}
	return &schema.StoryResult{
		Success:         true,
		Stories:         stories,
		Summary:         summary,
		Recommendations: payload.Recommendations,
		Source:          schema.SourceBackend,
	}, nil
}

func buildStoryPrompt(req schema.StoryRequest) string {
	var sb strings.Builder

	sb.WriteString("You are a senior agile coach and technical lead.\n")
	sb.WriteString("Break the following product context down into well-formed agile artifacts.\n\n")
	sb.WriteString("Rules:\n")
	sb.WriteString("1. Respond with ONLY valid JSON — no markdown fences, no explanation\n")
	sb.WriteString("2. Story descriptions use the form \"As a [persona], I want [goal] so that [benefit]\"\n")
	sb.WriteString("3. priority is one of: low, medium, high, urgent\n")
	sb.WriteString(fmt.Sprintf("4. estimate is an integer between %d and %d (Fibonacci-style story points)\n",
		schema.EstimateMin, schema.EstimateMax))
	sb.WriteString("5. priority_rationale and estimate_rationale are mandatory and must explain the value\n")
	sb.WriteString("6. Acceptance criteria use Given/When/Then\n")
	sb.WriteString("7. Each task has a title, a description, and concrete examples\n\n")

	sb.WriteString("JSON shape:\n")
	sb.WriteString(`{
  "stories": [
    {
      "title": "...",
      "description": "...",
      "story_type": "epic|user_story|task",
      "priority": "low|medium|high|urgent",
      "priority_rationale": "...",
      "estimate": 5,
      "estimate_rationale": "...",
      "acceptance_criteria": [{"given": "...", "when": "...", "then": "..."}],
      "tasks": [{"title": "...", "description": "...", "examples": ["..."]}]
    }
  ],
  "summary": "...",
  "recommendations": ["..."]
}`)
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("ARTIFACT TYPE: %s\n", req.StoryType))
	if !req.IncludeAcceptanceCriteria {
		sb.WriteString("Omit acceptance_criteria (leave the arrays empty).\n")
	}
	if req.AdditionalRequirements != "" {
		sb.WriteString(fmt.Sprintf("ADDITIONAL REQUIREMENTS: %s\n", req.AdditionalRequirements))
	}
	sb.WriteString(fmt.Sprintf("\nPRODUCT CONTEXT:\n%s\n", req.Context))
	sb.WriteString("\nRespond with ONLY the JSON document. Nothing else.")
	return sb.String()
}
