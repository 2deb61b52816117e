package bugfix

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codeguardian/guardian/shared/llm"
	"github.com/codeguardian/guardian/shared/schema"
)

// Fixer proposes corrections for submitted code given an error
// description. The backend path asks the LLM for a structured fix; the
// fallback annotates the code with a diagnostic checklist instead of
// guessing at a correction.
type Fixer struct {
	provider llm.Provider
}

func NewFixer(provider llm.Provider) *Fixer {
	return &Fixer{provider: provider}
}

func (f *Fixer) Fix(ctx context.Context, req schema.FixRequest) (*schema.FixResult, error) {
	start := time.Now()

	if strings.TrimSpace(req.Code) == "" {
		return nil, schema.InvalidInput("code must not be empty")
	}
	if strings.TrimSpace(req.ErrorDescription) == "" {
		return nil, schema.InvalidInput("error_description must not be empty")
	}

	if f.provider != nil {
		res, err := f.fixBackend(ctx, req)
		if err == nil {
			res.ProcessingTime = time.Since(start).Seconds()
			return res, nil
		}
		log.Warn().Err(err).Msg("fix backend failed, using diagnostic fallback")
	}

	res := f.fixFallback(req)
	res.ProcessingTime = time.Since(start).Seconds()
	return res, nil
}

func (f *Fixer) fixBackend(ctx context.Context, req schema.FixRequest) (*schema.FixResult, error) {
	raw, err := f.provider.Generate(ctx, buildFixPrompt(req))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", schema.ErrCodeBackendUnavailable, err)
	}

	var payload struct {
		FixedCode      string   `json:"fixed_code"`
		Explanation    string   `json:"explanation"`
		ChangesMade    []string `json:"changes_made"`
		PreventionTips []string `json:"prevention_tips"`
	}
	if err := json.Unmarshal([]byte(llm.StripFences(raw)), &payload); err != nil {
		return nil, fmt.Errorf("%s: parse response: %w", schema.ErrCodeContractViolation, err)
	}
	if strings.TrimSpace(payload.FixedCode) == "" {
		return nil, fmt.Errorf("%s: response contains no fixed code", schema.ErrCodeContractViolation)
	}
	if strings.TrimSpace(payload.Explanation) == "" {
		return nil, fmt.Errorf("%s: response contains no explanation", schema.ErrCodeContractViolation)
	}

	return &schema.FixResult{
		Success:        true,
		FixedCode:      payload.FixedCode,
		Explanation:    payload.Explanation,
		ChangesMade:    payload.ChangesMade,
		PreventionTips: payload.PreventionTips,
		Source:         schema.SourceBackend,
	}, nil
}

func buildFixPrompt(req schema.FixRequest) string {
	var sb strings.Builder
	sb.WriteString("You are an expert debugging assistant.\n")
	sb.WriteString("Fix the code below based on the reported error.\n\n")
	sb.WriteString("Rules:\n")
	sb.WriteString("1. Output ONLY a raw JSON object — no markdown fences, no prose outside it\n")
	sb.WriteString("2. Keep the fix minimal; do not restructure unrelated code\n")
	sb.WriteString("3. Explain the root cause, not just the symptom\n\n")
	sb.WriteString("JSON shape:\n")
	sb.WriteString(`{"fixed_code": "...", "explanation": "...", "changes_made": ["..."], "prevention_tips": ["..."]}`)
	sb.WriteString("\n\n")

	if req.Language != "" {
		fmt.Fprintf(&sb, "Language: %s\n", req.Language)
	}
	fmt.Fprintf(&sb, "Reported error: %s\n", req.ErrorDescription)
	if req.ErrorTraceback != "" {
		fmt.Fprintf(&sb, "\nTraceback:\n%s\n", req.ErrorTraceback)
	}
	if req.Context != "" {
		fmt.Fprintf(&sb, "\nAdditional context: %s\n", req.Context)
	}
	sb.WriteString("\nCode:\n")
	sb.WriteString(req.Code)
	return sb.String()
}

// fixFallback returns the submitted code wrapped in a diagnostic
// checklist. It never invents a correction.
func (f *Fixer) fixFallback(req schema.FixRequest) *schema.FixResult {
	comment := commentPrefix(req.Language)
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s Reported error: %s\n", comment, strings.TrimSpace(req.ErrorDescription))
	fmt.Fprintf(&sb, "%s No LLM backend was available; the code below is unchanged.\n", comment)
	fmt.Fprintf(&sb, "%s Diagnostic checklist:\n", comment)
	for _, item := range checklist(req) {
		fmt.Fprintf(&sb, "%s   - %s\n", comment, item)
	}
	sb.WriteString("\n")
	sb.WriteString(req.Code)

	return &schema.FixResult{
		Success:     true,
		FixedCode:   sb.String(),
		Explanation: "No automated fix was produced. The reported error and a diagnostic checklist were attached to the original code for manual review.",
		ChangesMade: []string{"Annotated the code with the reported error and a diagnostic checklist."},
		PreventionTips: []string{
			"Reproduce the error with a minimal failing test before changing the code.",
			"Add the failing case to the test suite so the regression stays fixed.",
		},
		Source: schema.SourceFallback,
	}
}

// checklist picks diagnostic hints from keywords in the error report.
func checklist(req schema.FixRequest) []string {
	lower := strings.ToLower(req.ErrorDescription + " " + req.ErrorTraceback)
	var items []string
	if containsAny(lower, "nil", "none", "null", "nullpointer", "attributeerror") {
		items = append(items, "Check for values used before they are assigned or returned.")
	}
	if containsAny(lower, "index", "range", "bounds", "keyerror") {
		items = append(items, "Verify collection bounds and key existence before access.")
	}
	if containsAny(lower, "type", "cast", "convert") {
		items = append(items, "Confirm the types flowing into the failing expression.")
	}
	if containsAny(lower, "timeout", "connection", "refused", "unreachable") {
		items = append(items, "Check connectivity, addresses, and timeout settings for external calls.")
	}
	if containsAny(lower, "permission", "denied", "forbidden", "unauthorized") {
		items = append(items, "Review credentials and access rights for the failing operation.")
	}
	items = append(items,
		"Read the innermost frame of the traceback first.",
		"Compare the failing input against one that works.")
	return items
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// commentPrefix returns the line-comment marker for the language the
// annotated checklist is written in.
func commentPrefix(lang schema.Language) string {
	switch lang {
	case schema.LangPython:
		return "#"
	case schema.LangUnknown:
		return "#"
	default:
		return "//"
	}
}
