package codetest

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

// placeholderIdentifiers must never appear in fallback output; every
// emitted name has to come from the analyzed input.
var placeholderIdentifiers = []string{"my_module", "my_function", "your_module", "example_function"}

func TestFallbackUsesOnlyRecoveredIdentifiers(t *testing.T) {
	g := NewGenerator(nil)
	res, err := g.Generate(context.Background(), Request{
		Code:     walletSource,
		Language: schema.LangPython,
	})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, schema.SourceFallback, res.Source)
	out := res.GeneratedTests

	for _, bad := range placeholderIdentifiers {
		assert.NotContains(t, out, bad)
	}
	assert.Contains(t, out, "Wallet")
	assert.Contains(t, out, "Transaction")
	assert.Contains(t, out, "get_balance")
	assert.Contains(t, out, "instance.owner")
	// No file name was supplied, so no module import can be known.
	assert.NotContains(t, out, "\nfrom ")
}

func TestFallbackEmitsImportWhenFileNameKnown(t *testing.T) {
	g := NewGenerator(nil)
	res, err := g.Generate(context.Background(), Request{
		Code:     walletSource,
		FileName: "wallet.py",
	})
	require.NoError(t, err)
	assert.Contains(t, res.GeneratedTests, "from wallet import Wallet")
	assert.Equal(t, schema.LangPython, res.Metadata.DetectedLanguage)
}

func TestFallbackMethodTemplates(t *testing.T) {
	g := NewGenerator(nil)
	res, err := g.Generate(context.Background(), Request{
		Code:     walletSource,
		Language: schema.LangPython,
	})
	require.NoError(t, err)
	out := res.GeneratedTests

	// Constructor template arranges real parameters.
	assert.Contains(t, out, `description = "test_description"`)
	assert.Contains(t, out, "amount = 100.0")
	assert.Contains(t, out, "assert instance.description == description")

	// Balance template seeds transactions through the class's own adder.
	assert.Contains(t, out, `instance.add_transaction(Transaction("credit", 100.0))`)
	assert.Contains(t, out, "assert balance == 50.0")

	// Validation template expects the zero-amount rejection.
	assert.Contains(t, out, "with pytest.raises(ValueError):")

	// Statement template checks the list shape.
	assert.Contains(t, out, "statement = instance.get_statement()")
	assert.Contains(t, out, "assert isinstance(statement, list)")

	// Private helpers are skipped.
	assert.NotContains(t, out, "_recalculate")
}

func TestFallbackJestTemplates(t *testing.T) {
	src := `
class Cart {
    constructor(owner) {
        this.owner = owner;
    }
    addItem(item, qty) {
        this.items.push(item);
    }
}
`
	g := NewGenerator(nil)
	res, err := g.Generate(context.Background(), Request{
		Code:     src,
		FileName: "cart.js",
	})
	require.NoError(t, err)

	assert.Equal(t, schema.FrameworkJest, res.Metadata.TestFramework)
	out := res.GeneratedTests

	// The emitted code is jest-shaped, matching the reported framework.
	assert.Contains(t, out, "const { Cart } = require('./cart');")
	assert.Contains(t, out, "describe('Cart', () => {")
	assert.Contains(t, out, `expect(instance.owner).toBe("test_owner");`)
	assert.Contains(t, out, "const result = instance.addItem(")
	assert.NotContains(t, out, "import pytest")
	assert.NotContains(t, out, "def should_")
}

func TestFallbackSkeletonMatchesReportedFramework(t *testing.T) {
	src := `package ledger

type Account struct {
	Owner string
}

func (a *Account) Deposit(amount int) error {
	return nil
}
`
	g := NewGenerator(nil)
	res, err := g.Generate(context.Background(), Request{Code: src, Language: schema.LangGo})
	require.NoError(t, err)

	assert.Equal(t, schema.FrameworkGoTest, res.Metadata.TestFramework)
	assert.Contains(t, res.GeneratedTests, "// Target: Account.Deposit(amount)")
	assert.Contains(t, res.GeneratedTests, "gotest assertions")
	assert.NotContains(t, res.GeneratedTests, "import pytest")
}

func TestFallbackPopulatesTestCases(t *testing.T) {
	g := NewGenerator(nil)
	res, err := g.Generate(context.Background(), Request{
		Code:     walletSource,
		Language: schema.LangPython,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.TestCases)

	var codes []string
	for _, tc := range res.TestCases {
		assert.Equal(t, schema.FrameworkPytest, tc.Framework)
		assert.Equal(t, []string{"pytest", "pytest-cov"}, tc.Dependencies)
		assert.NotEmpty(t, tc.Name)
		assert.NotEmpty(t, tc.Description)
		codes = append(codes, tc.Code)
	}
	// The combined test file is exactly the per-case codes joined.
	assert.Equal(t, strings.Join(codes, "\n\n"), res.GeneratedTests)

	// One case per public method and top-level function.
	assert.Contains(t, res.GeneratedTests, "standalone_helper")
	assert.Equal(t, "error handling scenario for Wallet.add_transaction",
		caseDescriptionFor(t, res.TestCases, "should_raise_appropriate_error_when_wallet_add_transaction_receives_invalid_input"))
}

func caseDescriptionFor(t *testing.T, cases []schema.GeneratedTestCase, name string) string {
	t.Helper()
	for _, tc := range cases {
		if tc.Name == name {
			return tc.Description
		}
	}
	t.Fatalf("no test case named %s", name)
	return ""
}

func TestFallbackRuleOrder(t *testing.T) {
	// add_balance_transaction matches "balance" before "add"+"transaction".
	tc := templateContext{
		Class:    Class{Name: "Ledger", Methods: []Method{{Name: "add_balance_transaction"}}},
		Method:   Method{Name: "add_balance_transaction"},
		TestName: "should_return_expected_value_when_called",
	}
	_, rule := buildMethodTest(tc)
	assert.Equal(t, "balance", rule)
}

func TestFallbackNoRecoveredStructure(t *testing.T) {
	g := NewGenerator(nil)
	res, err := g.Generate(context.Background(), Request{
		Code:     "SELECT * FROM wallets;",
		Language: schema.LangPython,
	})
	require.NoError(t, err)
	assert.Contains(t, res.GeneratedTests, "No classes or functions could be recovered")
	assert.Contains(t, res.Suggestions[0], "No classes or functions were recovered")
}

func TestGenerateRejectsEmptyCode(t *testing.T) {
	g := NewGenerator(nil)
	_, err := g.Generate(context.Background(), Request{Code: "   "})
	require.Error(t, err)

	var reqErr *schema.RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, schema.ErrCodeInputInvalid, reqErr.Code)
}

func TestGenerateBackendPath(t *testing.T) {
	p := &stubProvider{out: "```python\ndef should_pass():\n    assert True\n```"}
	g := NewGenerator(p)

	res, err := g.Generate(context.Background(), Request{Code: walletSource, Language: schema.LangPython})
	require.NoError(t, err)
	assert.Equal(t, schema.SourceBackend, res.Source)
	assert.Equal(t, "def should_pass():\n    assert True", strings.TrimSpace(res.GeneratedTests))
	assert.Equal(t, schema.FrameworkPytest, res.Metadata.TestFramework)
}

func TestGenerateBackendErrorFallsBack(t *testing.T) {
	g := NewGenerator(&stubProvider{err: errors.New("boom")})
	res, err := g.Generate(context.Background(), Request{Code: walletSource, Language: schema.LangPython})
	require.NoError(t, err)
	assert.Equal(t, schema.SourceFallback, res.Source)
	assert.Contains(t, strings.Join(res.ProcessingMessages, "\n"), "template-based generation")
}

func TestGenerateProgressCallback(t *testing.T) {
	g := NewGenerator(nil)
	var seen []string
	g.Progress = func(msg string) { seen = append(seen, msg) }

	res, err := g.Generate(context.Background(), Request{Code: walletSource, Language: schema.LangPython})
	require.NoError(t, err)
	assert.Equal(t, res.ProcessingMessages, seen)
	assert.NotEmpty(t, seen)
}

func TestBuildTestPromptEmbedsIdentifiers(t *testing.T) {
	analysis := Analyze(walletSource, schema.LangPython)
	prompt := buildTestPrompt(Request{Code: walletSource}, schema.LangPython, schema.FrameworkPytest, analysis)

	assert.Contains(t, prompt, "class Wallet")
	assert.Contains(t, prompt, "constructor: owner")
	assert.Contains(t, prompt, "method add_transaction(transaction)")
	assert.Contains(t, prompt, "function standalone_helper")
}

func TestModuleName(t *testing.T) {
	assert.Equal(t, "wallet", moduleName("wallet.py"))
	assert.Equal(t, "my_wallet_v2", moduleName("uploads/my-wallet v2.py"))
	assert.Equal(t, "", moduleName(""))
	assert.Equal(t, "", moduleName("123.py"))
}
