package bugfix

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeguardian/guardian/shared/schema"
)

type stubProvider struct {
	out string
	err error
}

func (s *stubProvider) Generate(ctx context.Context, prompt string) (string, error) {
	return s.out, s.err
}

func fixRequest() schema.FixRequest {
	return schema.FixRequest{
		Code:             "def balance(wallet):\n    return wallet.total",
		ErrorDescription: "AttributeError: 'NoneType' object has no attribute 'total'",
		Language:         schema.LangPython,
	}
}

func TestFixBackendSuccess(t *testing.T) {
	p := &stubProvider{out: `{
		"fixed_code": "def balance(wallet):\n    if wallet is None:\n        return 0\n    return wallet.total",
		"explanation": "The function dereferenced a None wallet.",
		"changes_made": ["Added a None guard"],
		"prevention_tips": ["Validate inputs at the boundary"]
	}`}
	f := NewFixer(p)

	res, err := f.Fix(context.Background(), fixRequest())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, schema.SourceBackend, res.Source)
	assert.Contains(t, res.FixedCode, "if wallet is None")
	assert.Equal(t, []string{"Added a None guard"}, res.ChangesMade)
}

func TestFixBackendErrorFallsBack(t *testing.T) {
	f := NewFixer(&stubProvider{err: errors.New("boom")})

	res, err := f.Fix(context.Background(), fixRequest())
	require.NoError(t, err)
	assert.Equal(t, schema.SourceFallback, res.Source)
	// The fallback annotates, it never rewrites.
	assert.Contains(t, res.FixedCode, "return wallet.total")
	assert.Contains(t, res.FixedCode, "# Reported error: AttributeError")
	assert.Contains(t, res.FixedCode, "# Diagnostic checklist:")
}

func TestFixContractViolationFallsBack(t *testing.T) {
	cases := map[string]string{
		"not json":       "cannot help with that",
		"no fixed code":  `{"explanation": "something"}`,
		"no explanation": `{"fixed_code": "pass"}`,
	}
	for name, out := range cases {
		t.Run(name, func(t *testing.T) {
			f := NewFixer(&stubProvider{out: out})
			res, err := f.Fix(context.Background(), fixRequest())
			require.NoError(t, err)
			assert.Equal(t, schema.SourceFallback, res.Source)
		})
	}
}

func TestFixFallbackChecklistMatchesError(t *testing.T) {
	f := NewFixer(nil)

	res, err := f.Fix(context.Background(), fixRequest())
	require.NoError(t, err)
	assert.Contains(t, res.FixedCode, "used before they are assigned")

	req := fixRequest()
	req.ErrorDescription = "connection refused while calling the payment API"
	res, err = f.Fix(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, res.FixedCode, "connectivity, addresses, and timeout settings")
}

func TestFixFallbackCommentPrefixFollowsLanguage(t *testing.T) {
	f := NewFixer(nil)
	req := fixRequest()
	req.Language = schema.LangGo
	req.Code = "func balance() int { return total }"

	res, err := f.Fix(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.FixedCode, "// Reported error:"))
}

func TestFixRejectsMissingInput(t *testing.T) {
	f := NewFixer(nil)

	_, err := f.Fix(context.Background(), schema.FixRequest{ErrorDescription: "it broke"})
	var reqErr *schema.RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, schema.ErrCodeInputInvalid, reqErr.Code)

	_, err = f.Fix(context.Background(), schema.FixRequest{Code: "pass"})
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, schema.ErrCodeInputInvalid, reqErr.Code)
}

func TestBuildFixPromptIncludesSections(t *testing.T) {
	req := fixRequest()
	req.ErrorTraceback = "Traceback (most recent call last): ..."
	req.Context = "runs inside a nightly batch job"

	prompt := buildFixPrompt(req)
	assert.Contains(t, prompt, "Language: python")
	assert.Contains(t, prompt, "Reported error: AttributeError")
	assert.Contains(t, prompt, "Traceback (most recent call last)")
	assert.Contains(t, prompt, "nightly batch job")
	assert.Contains(t, prompt, `"fixed_code"`)
}
