package codetest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codeguardian/guardian/shared/llm"
	"github.com/codeguardian/guardian/shared/schema"
)

// Request is one test-generation job.
type Request struct {
	Code              string           `json:"code"`
	Language          schema.Language  `json:"language,omitempty"`
	FileName          string           `json:"file_name,omitempty"`
	Framework         schema.Framework `json:"framework,omitempty"`
	InputType         schema.InputType `json:"input_type,omitempty"`
	AdditionalContext string           `json:"additional_context,omitempty"`
}

// Generator produces unit tests for submitted source code, via the LLM
// backend when one is configured and a deterministic template path
// otherwise. Progress, when set, receives step messages as they happen.
type Generator struct {
	provider llm.Provider
	Progress func(msg string)
}

func NewGenerator(provider llm.Provider) *Generator {
	return &Generator{provider: provider}
}

// Generate runs analysis and test generation for one request. It returns
// an error only for invalid input; backend failures recover through the
// template fallback.
func (g *Generator) Generate(ctx context.Context, req Request) (*schema.TestGenResponse, error) {
	start := time.Now()

	if strings.TrimSpace(req.Code) == "" {
		return nil, schema.InvalidInput("code must not be empty")
	}
	lang := req.Language
	if lang == schema.LangUnknown && req.FileName != "" {
		lang = schema.DetectLanguage(req.FileName)
	}
	framework := req.Framework
	if framework == "" || framework == schema.FrameworkAuto {
		framework = schema.DefaultFramework(lang)
	}
	if req.InputType == "" {
		req.InputType = schema.InputText
	}

	var messages []string
	step := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		messages = append(messages, msg)
		if g.Progress != nil {
			g.Progress(msg)
		}
	}

	step("Analyzing code structure (%s)", displayLang(lang))
	analysis := Analyze(req.Code, lang)
	step("Found %d class(es) and %d top-level function(s)", len(analysis.Classes), len(analysis.Functions))

	res := &schema.TestGenResponse{
		Success: true,
		Metadata: schema.TestGenMetadata{
			InputType:        req.InputType,
			DetectedLanguage: lang,
			TestFramework:    framework,
			LinesOfCode:      analysis.Lines,
			FilesProcessed:   1,
		},
	}

	if g.provider != nil {
		step("Generating tests with the configured LLM backend")
		tests, err := g.generateBackend(ctx, req, lang, framework, analysis)
		if err == nil {
			res.GeneratedTests = tests
			res.Source = schema.SourceBackend
			res.CoverageNotes = coverageNotes(analysis)
			res.Suggestions = suggestions(analysis)
			res.ProcessingMessages = messages
			res.Metadata.ProcessingTimeMS = time.Since(start).Milliseconds()
			return res, nil
		}
		log.Warn().Err(err).Msg("test backend failed, using template fallback")
		step("Backend unavailable, switching to template-based generation")
	}

	step("Generating tests from structural templates")
	cases := g.generateFallback(req, framework, analysis)
	if len(cases) == 0 {
		res.GeneratedTests = emptyFallbackNotice(framework)
	} else {
		codes := make([]string, len(cases))
		for i, c := range cases {
			codes[i] = c.Code
		}
		res.GeneratedTests = strings.Join(codes, "\n\n")
		res.TestCases = cases
	}
	res.Source = schema.SourceFallback
	res.CoverageNotes = coverageNotes(analysis)
	res.Suggestions = suggestions(analysis)
	res.ProcessingMessages = messages
	res.Metadata.ProcessingTimeMS = time.Since(start).Milliseconds()
	return res, nil
}

func displayLang(lang schema.Language) string {
	if lang == schema.LangUnknown {
		return "unknown language"
	}
	return string(lang)
}

func (g *Generator) generateBackend(ctx context.Context, req Request, lang schema.Language, framework schema.Framework, analysis Analysis) (string, error) {
	raw, err := g.provider.Generate(ctx, buildTestPrompt(req, lang, framework, analysis))
	if err != nil {
		return "", fmt.Errorf("%s: %w", schema.ErrCodeBackendUnavailable, err)
	}
	tests := llm.StripFences(raw)
	if strings.TrimSpace(tests) == "" {
		return "", fmt.Errorf("%s: backend returned an empty test body", schema.ErrCodeContractViolation)
	}
	return tests, nil
}

// buildTestPrompt grounds the model on the identifiers the analyzer
// recovered so the output references real names from the input.
func buildTestPrompt(req Request, lang schema.Language, framework schema.Framework, analysis Analysis) string {
	var sb strings.Builder
	sb.WriteString("You are an expert software test engineer.\n")
	fmt.Fprintf(&sb, "Generate %s unit tests for the %s code below.\n\n", framework, displayLang(lang))
	sb.WriteString("Rules:\n")
	sb.WriteString("1. Output ONLY raw test code — no markdown fences, no explanation\n")
	sb.WriteString("2. Use behavior-style test names (should_..., AAA structure)\n")
	sb.WriteString("3. Reference ONLY identifiers that exist in the code below\n")
	sb.WriteString("4. Cover happy paths, edge cases, and error handling separately\n")
	sb.WriteString("5. Mock external dependencies, never touch the network or disk\n")

	if len(analysis.Classes) > 0 || len(analysis.Functions) > 0 {
		sb.WriteString("\nIdentifiers recovered from the code:\n")
		for _, c := range analysis.Classes {
			fmt.Fprintf(&sb, "- class %s", c.Name)
			if len(c.CtorParams) > 0 {
				fmt.Fprintf(&sb, " (constructor: %s)", strings.Join(c.CtorParams, ", "))
			}
			sb.WriteString("\n")
			for _, m := range c.Methods {
				fmt.Fprintf(&sb, "  - method %s(%s)\n", m.Name, strings.Join(m.Params, ", "))
			}
		}
		for _, fn := range analysis.Functions {
			fmt.Fprintf(&sb, "- function %s\n", fn)
		}
	}
	if req.AdditionalContext != "" {
		fmt.Fprintf(&sb, "\nAdditional context: %s\n", req.AdditionalContext)
	}

	sb.WriteString("\nCode:\n")
	sb.WriteString(req.Code)
	return sb.String()
}

// generateFallback assembles one test case per public method and top-level
// function from the framework's template set. Only identifiers present in
// the analysis appear in the output, and every case carries the framework it
// was rendered for so the code and the metadata cannot disagree.
func (g *Generator) generateFallback(req Request, framework schema.Framework, analysis Analysis) []schema.GeneratedTestCase {
	module := moduleName(req.FileName)
	deps := frameworkDependencies(framework)
	var cases []schema.GeneratedTestCase

	for _, class := range analysis.Classes {
		for _, method := range class.Methods {
			if isPrivate(class, method.Name) && method.Name != "__init__" && method.Name != "__repr__" && method.Name != "__str__" {
				continue
			}
			scenario := scenarioFor(method.Name)
			tc := templateContext{
				Class:    class,
				Method:   method,
				Module:   module,
				Analysis: analysis,
				TestName: testNameFor(scenario, class.Name+"_"+strings.Trim(method.Name, "_")),
				Scenario: scenario,
			}
			cases = append(cases, schema.GeneratedTestCase{
				Name:         tc.TestName,
				Code:         buildCaseCode(tc, framework),
				Framework:    framework,
				Description:  fmt.Sprintf("%s scenario for %s.%s", strings.ReplaceAll(scenario, "_", " "), class.Name, method.Name),
				Dependencies: deps,
			})
		}
	}
	for _, fn := range analysis.Functions {
		name := testNameFor("happy_path", fn)
		cases = append(cases, schema.GeneratedTestCase{
			Name:         name,
			Code:         buildFunctionCaseCode(framework, module, fn, name),
			Framework:    framework,
			Description:  fmt.Sprintf("happy path scenario for %s", fn),
			Dependencies: deps,
		})
	}
	return cases
}

// buildCaseCode routes a method to its framework's template set: the full
// pytest table, the jest describe blocks, or the comment skeleton.
func buildCaseCode(tc templateContext, framework schema.Framework) string {
	switch framework {
	case schema.FrameworkJest:
		return buildJestMethodTest(tc)
	case schema.FrameworkMocha, schema.FrameworkJUnit, schema.FrameworkNUnit, schema.FrameworkGoTest:
		return buildSkeletonTest(tc, framework)
	}
	code, _ := buildMethodTest(tc)
	return code
}

func buildFunctionCaseCode(framework schema.Framework, module, fn, testName string) string {
	switch framework {
	case schema.FrameworkJest:
		return buildJestFunctionTest(module, fn, testName)
	case schema.FrameworkMocha, schema.FrameworkJUnit, schema.FrameworkNUnit, schema.FrameworkGoTest:
		return buildSkeletonFunctionTest(framework, fn, testName)
	}
	return buildFunctionTest(module, fn, testName)
}

// emptyFallbackNotice describes an input nothing could be recovered from,
// instead of emitting tests against invented names.
func emptyFallbackNotice(framework schema.Framework) string {
	prefix := "#"
	switch framework {
	case schema.FrameworkJest, schema.FrameworkMocha, schema.FrameworkJUnit, schema.FrameworkNUnit, schema.FrameworkGoTest:
		prefix = "//"
	}
	return prefix + " No classes or functions could be recovered from the input.\n" +
		prefix + " Provide syntactically complete source code to generate tests.\n"
}

func isPrivate(c Class, method string) bool {
	for _, p := range c.PrivateMethods {
		if p == method {
			return true
		}
	}
	return false
}

// scenarioFor mirrors the template table: mutation-with-validation
// methods get the error-handling scenario, everything else happy path.
func scenarioFor(method string) string {
	lower := strings.ToLower(method)
	if strings.Contains(lower, "add") && strings.Contains(lower, "transaction") {
		return "error_handling"
	}
	return "happy_path"
}

// moduleName derives an import module from an uploaded file name.
// Returns "" when no file name is available, in which case templates
// omit the import line.
func moduleName(fileName string) string {
	if fileName == "" {
		return ""
	}
	base := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		case r == '-' || r == ' ':
			return '_'
		}
		return -1
	}, base)
	if base == "" || (base[0] >= '0' && base[0] <= '9') {
		return ""
	}
	return base
}

// coverageNotes summarizes what the generated suite does and does not
// reach, scaled by input size.
func coverageNotes(a Analysis) string {
	methods := 0
	for _, c := range a.Classes {
		methods += len(c.PublicMethods)
	}
	switch {
	case a.Lines == 0:
		return "No analyzable code was found."
	case a.Lines < 50:
		return fmt.Sprintf("Small input (%d lines): the suite targets all %d public method(s) and %d function(s).",
			a.Lines, methods, len(a.Functions))
	case a.Lines < 300:
		return fmt.Sprintf("Medium input (%d lines): public behavior of %d class(es) is covered; private helpers are exercised indirectly.",
			a.Lines, len(a.Classes))
	default:
		return fmt.Sprintf("Large input (%d lines): coverage focuses on the %d recovered class(es); consider splitting the file for deeper per-module suites.",
			a.Lines, len(a.Classes))
	}
}

func suggestions(a Analysis) []string {
	var out []string
	if len(a.Classes) == 0 && len(a.Functions) == 0 {
		out = append(out, "No classes or functions were recovered; check that the input is complete source code.")
		return out
	}
	for _, c := range a.Classes {
		if len(c.CtorParams) == 0 && len(c.Methods) > 0 {
			out = append(out, fmt.Sprintf("Class %s has no analyzable constructor parameters; review the arranged values.", c.Name))
		}
		if len(c.PrivateMethods) > 0 {
			out = append(out, fmt.Sprintf("Private methods of %s are not tested directly; cover them through the public surface.", c.Name))
		}
	}
	out = append(out, "Review generated assertions against the real business rules before committing.")
	return out
}
