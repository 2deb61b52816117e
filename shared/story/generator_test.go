package story

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeguardian/guardian/shared/schema"
)

type stubProvider struct {
	out   string
	err   error
	calls int
}

func (s *stubProvider) Generate(ctx context.Context, prompt string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.out, nil
}

const backendJSON = `{
  "stories": [{
    "title": "As a user, I want to sign in so that I can access my account",
    "description": "Corporate sign-in flow",
    "story_type": "user_story",
    "priority": "High",
    "priority_rationale": "Blocks every other feature",
    "estimate": 8,
    "estimate_rationale": "Directory integration adds moving parts",
    "acceptance_criteria": [{"given": "valid credentials", "when": "the user signs in", "then": "a session is created"}],
    "tasks": [{"title": "Build form", "description": "Sign-in form", "examples": ["error state"]}]
  }],
  "summary": "One story generated",
  "recommendations": ["Split session handling into its own story"]
}`

func storyRequest(ctx string) schema.StoryRequest {
	return schema.StoryRequest{Context: ctx, IncludeAcceptanceCriteria: true}
}

func TestGenerateNoProviderFallsBack(t *testing.T) {
	// Scenario: Active Directory login context, no backend configured.
	g := NewGenerator(nil)
	res, err := g.Generate(context.Background(), storyRequest("Sistema de login com Active Directory"))
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, schema.SourceFallback, res.Source)
	require.Len(t, res.Stories, 1)

	s := res.Stories[0]
	assert.NotEmpty(t, s.Priority)
	assert.NotEmpty(t, s.PriorityRationale)
	assert.NotEmpty(t, s.EstimateRationale)
	assert.NotEmpty(t, s.Tasks)
	assert.NotEmpty(t, s.AcceptanceCriteria)
	assert.GreaterOrEqual(t, s.Estimate, schema.EstimateMin)
	assert.LessOrEqual(t, s.Estimate, schema.EstimateMax)
	// The login keyword routes to the authentication rule.
	assert.Contains(t, strings.ToLower(s.Title), "authenticate")
}

func TestGenerateBackendSuccess(t *testing.T) {
	p := &stubProvider{out: backendJSON}
	g := NewGenerator(p)

	res, err := g.Generate(context.Background(), storyRequest("Corporate sign-in flow"))
	require.NoError(t, err)
	assert.Equal(t, schema.SourceBackend, res.Source)
	assert.Equal(t, 1, p.calls)
	require.Len(t, res.Stories, 1)
	assert.Equal(t, schema.PriorityHigh, res.Stories[0].Priority)
	assert.Equal(t, 8, res.Stories[0].Estimate)
	assert.Equal(t, "One story generated", res.Summary)
	assert.NotEmpty(t, res.Stories[0].ID)
}

func TestGenerateBackendFencedJSONAccepted(t *testing.T) {
	p := &stubProvider{out: "```json\n" + backendJSON + "\n```"}
	g := NewGenerator(p)

	res, err := g.Generate(context.Background(), storyRequest("Corporate sign-in flow"))
	require.NoError(t, err)
	assert.Equal(t, schema.SourceBackend, res.Source)
}

func TestGenerateBackendErrorFallsBack(t *testing.T) {
	p := &stubProvider{err: errors.New("connection refused")}
	g := NewGenerator(p)

	res, err := g.Generate(context.Background(), storyRequest("Gerenciar cadastro de produtos"))
	require.NoError(t, err)
	assert.Equal(t, schema.SourceFallback, res.Source)
	assert.True(t, res.Success)
	require.NotEmpty(t, res.Stories)
	assert.NoError(t, res.Stories[0].Validate())
}

func TestGenerateContractViolationFallsBack(t *testing.T) {
	cases := map[string]string{
		"unknown priority": strings.Replace(backendJSON, `"High"`, `"critical"`, 1),
		"empty rationale":  strings.Replace(backendJSON, `"Blocks every other feature"`, `""`, 1),
		"not json":         "sorry, I cannot do that",
		"no stories":       `{"stories": [], "summary": "nothing"}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			g := NewGenerator(&stubProvider{out: payload})
			res, err := g.Generate(context.Background(), storyRequest("Sistema de relatórios gerenciais"))
			require.NoError(t, err)
			assert.Equal(t, schema.SourceFallback, res.Source)
			require.NotEmpty(t, res.Stories)
			assert.NoError(t, res.Stories[0].Validate())
		})
	}
}

func TestGenerateClampsOutOfRangeEstimate(t *testing.T) {
	p := &stubProvider{out: strings.Replace(backendJSON, `"estimate": 8`, `"estimate": 34`, 1)}
	g := NewGenerator(p)

	res, err := g.Generate(context.Background(), storyRequest("Corporate sign-in flow"))
	require.NoError(t, err)
	assert.Equal(t, schema.SourceBackend, res.Source)
	assert.Equal(t, schema.EstimateMax, res.Stories[0].Estimate)
}

func TestGenerateRejectsShortContext(t *testing.T) {
	g := NewGenerator(nil)
	_, err := g.Generate(context.Background(), storyRequest("short"))
	require.Error(t, err)

	var reqErr *schema.RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, schema.ErrCodeInputInvalid, reqErr.Code)
}

func TestGenerateRejectsUnknownStoryType(t *testing.T) {
	g := NewGenerator(nil)
	req := storyRequest("a perfectly reasonable context")
	req.StoryType = "saga"
	_, err := g.Generate(context.Background(), req)
	require.Error(t, err)

	var reqErr *schema.RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, schema.ErrCodeInputInvalid, reqErr.Code)
}

func TestFallbackEpicProducesSupportingStories(t *testing.T) {
	g := NewGenerator(nil)
	req := storyRequest("Plataforma de relatórios e dashboards corporativos")
	req.StoryType = schema.StoryTypeEpic

	res, err := g.Generate(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Stories, 3)
	assert.Equal(t, schema.StoryTypeEpic, res.Stories[0].StoryType)
	for _, s := range res.Stories[1:] {
		assert.Equal(t, schema.StoryTypeUserStory, s.StoryType)
		assert.NoError(t, s.Validate())
	}
}

func TestFallbackEveryRuleProducesValidStories(t *testing.T) {
	contexts := map[string]string{
		"authentication":    "Funcionalidade de login com Active Directory",
		"record-management": "Manage the product catalog records",
		"reporting":         "Monthly sales dashboard for the finance team",
		"integration":       "Integration with the billing webhook",
		"innovation":        "Prototype an innovation lab experiment",
		"default":           "Something entirely unclassifiable happens here",
	}
	g := NewGenerator(nil)
	for rule, ctx := range contexts {
		t.Run(rule, func(t *testing.T) {
			res, err := g.Generate(context.Background(), storyRequest(ctx))
			require.NoError(t, err)
			require.NotEmpty(t, res.Stories)
			for _, s := range res.Stories {
				assert.NoError(t, s.Validate())
				assert.Contains(t, s.PriorityRationale, heuristicNote)
				assert.Contains(t, s.EstimateRationale, heuristicNote)
			}
			assert.Contains(t, res.Summary, rule)
		})
	}
}

func TestFallbackRespectsCriteriaFlag(t *testing.T) {
	g := NewGenerator(nil)
	req := storyRequest("Sistema de login corporativo")
	req.IncludeAcceptanceCriteria = false

	res, err := g.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, res.Stories[0].AcceptanceCriteria)
}

func TestFallbackDetectsUserType(t *testing.T) {
	g := NewGenerator(nil)
	res, err := g.Generate(context.Background(),
		storyRequest("Funcionalidade de login para administrador do sistema"))
	require.NoError(t, err)
	assert.Contains(t, res.Stories[0].Title, "administrator")
}

func TestContextPreviewKeepsRuneBoundary(t *testing.T) {
	// An accented context long enough to truncate; the cut must not split
	// a multi-byte rune.
	ctx := "relatório " + strings.Repeat("ó", 120)

	f := extractFeatures(ctx)
	assert.True(t, utf8.ValidString(f.Preview))
	assert.True(t, strings.HasSuffix(f.Preview, "..."))
	assert.Equal(t, 103, utf8.RuneCountInString(f.Preview))
}
