// Package schema defines the request/response contract shared by the
// guardian service, the CLI, and the generator packages.
// Every component imports ONLY this package for wire types — no
// service-to-service type sharing.
package schema

import (
	"fmt"
	"strings"
)

// StoryType is the closed set of artifact kinds the story generator produces.
type StoryType string

const (
	StoryTypeEpic      StoryType = "epic"
	StoryTypeUserStory StoryType = "user_story"
	StoryTypeTask      StoryType = "task"
)

// ParseStoryType validates a story type at the model boundary.
// Unrecognized values are rejected rather than passed through.
func ParseStoryType(s string) (StoryType, error) {
	switch StoryType(strings.ToLower(strings.TrimSpace(s))) {
	case StoryTypeEpic:
		return StoryTypeEpic, nil
	case StoryTypeUserStory, "story":
		return StoryTypeUserStory, nil
	case StoryTypeTask, "bug":
		return StoryTypeTask, nil
	case "":
		return StoryTypeUserStory, nil
	}
	return "", fmt.Errorf("unknown story type %q", s)
}

// Priority is the closed priority scale for generated stories.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ParsePriority validates a priority value, case-insensitively.
func ParsePriority(s string) (Priority, error) {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case PriorityLow:
		return PriorityLow, nil
	case PriorityMedium:
		return PriorityMedium, nil
	case PriorityHigh:
		return PriorityHigh, nil
	case PriorityUrgent:
		return PriorityUrgent, nil
	}
	return "", fmt.Errorf("unknown priority %q", s)
}

// Estimate bounds, Fibonacci-style story points.
const (
	EstimateMin = 1
	EstimateMax = 21
)

// ClampEstimate forces an estimate into [EstimateMin, EstimateMax].
func ClampEstimate(n int) int {
	if n < EstimateMin {
		return EstimateMin
	}
	if n > EstimateMax {
		return EstimateMax
	}
	return n
}

// AcceptanceCriteria is one Gherkin scenario attached to a story.
type AcceptanceCriteria struct {
	Given string `json:"given"`
	When  string `json:"when"`
	Then  string `json:"then"`
}

// DetailedTask is a work item owned by its parent story.
type DetailedTask struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Examples    []string `json:"examples,omitempty"`
}

// GeneratedStory is the complete story artifact. Justification fields are
// mandatory whenever their paired value is set; Validate enforces that.
type GeneratedStory struct {
	ID                 string               `json:"id"`
	Title              string               `json:"title"`
	Description        string               `json:"description"`
	StoryType          StoryType            `json:"story_type"`
	AcceptanceCriteria []AcceptanceCriteria `json:"acceptance_criteria"`
	Tasks              []DetailedTask       `json:"tasks"`
	Priority           Priority             `json:"priority"`
	PriorityRationale  string               `json:"priority_rationale"`
	Estimate           int                  `json:"estimate"`
	EstimateRationale  string               `json:"estimate_rationale"`
}

// Validate checks the story against the output contract. It is applied to
// every backend payload before the story is accepted.
func (s *GeneratedStory) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("story title is empty")
	}
	if strings.TrimSpace(s.Description) == "" {
		return fmt.Errorf("story description is empty")
	}
	if _, err := ParsePriority(string(s.Priority)); err != nil {
		return err
	}
	if strings.TrimSpace(s.PriorityRationale) == "" {
		return fmt.Errorf("priority rationale is empty")
	}
	if s.Estimate < EstimateMin || s.Estimate > EstimateMax {
		return fmt.Errorf("estimate %d outside [%d, %d]", s.Estimate, EstimateMin, EstimateMax)
	}
	if strings.TrimSpace(s.EstimateRationale) == "" {
		return fmt.Errorf("estimate rationale is empty")
	}
	return nil
}

// StoryRequest is the input to story generation.
type StoryRequest struct {
	Context                   string    `json:"context"`
	StoryType                 StoryType `json:"story_type,omitempty"`
	AdditionalRequirements    string    `json:"additional_requirements,omitempty"`
	IncludeAcceptanceCriteria bool      `json:"include_acceptance_criteria"`
}

// StoryResult is the full story-generation response.
type StoryResult struct {
	Success         bool             `json:"success"`
	Stories         []GeneratedStory `json:"stories"`
	Summary         string           `json:"summary"`
	Recommendations []string         `json:"recommendations,omitempty"`
	Source          Source           `json:"source"`
	ProcessingTime  float64          `json:"processing_time"`
}

// Source tags which path produced an artifact.
type Source string

const (
	SourceBackend  Source = "backend"
	SourceFallback Source = "fallback"
)
