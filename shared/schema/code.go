package schema

import (
	"path/filepath"
	"strings"
)

// Language is the closed set of source languages the analyzer understands.
type Language string

const (
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangJava       Language = "java"
	LangCSharp     Language = "csharp"
	LangGo         Language = "go"
	LangRust       Language = "rust"
	LangPHP        Language = "php"
	LangUnknown    Language = ""
)

// ParseLanguage normalizes a user-supplied language tag.
func ParseLanguage(s string) Language {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "python", "py":
		return LangPython
	case "javascript", "js":
		return LangJavaScript
	case "typescript", "ts":
		return LangTypeScript
	case "java":
		return LangJava
	case "csharp", "c#", "cs":
		return LangCSharp
	case "go", "golang":
		return LangGo
	case "rust":
		return LangRust
	case "php":
		return LangPHP
	}
	return LangUnknown
}

// DetectLanguage maps a file name to a language by extension.
func DetectLanguage(filename string) Language {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".py":
		return LangPython
	case ".js", ".jsx":
		return LangJavaScript
	case ".ts", ".tsx":
		return LangTypeScript
	case ".java":
		return LangJava
	case ".cs":
		return LangCSharp
	case ".go":
		return LangGo
	case ".rs":
		return LangRust
	case ".php":
		return LangPHP
	}
	return LangUnknown
}

// Extension returns the download extension for generated test files.
func (l Language) Extension() string {
	switch l {
	case LangPython:
		return ".py"
	case LangJavaScript:
		return ".js"
	case LangTypeScript:
		return ".ts"
	case LangJava:
		return ".java"
	case LangCSharp:
		return ".cs"
	case LangGo:
		return ".go"
	case LangRust:
		return ".rs"
	case LangPHP:
		return ".php"
	}
	return ".txt"
}

// Framework is a unit-test framework tag.
type Framework string

const (
	FrameworkPytest   Framework = "pytest"
	FrameworkUnittest Framework = "unittest"
	FrameworkJest     Framework = "jest"
	FrameworkJUnit    Framework = "junit"
	FrameworkNUnit    Framework = "nunit"
	FrameworkMocha    Framework = "mocha"
	FrameworkGoTest   Framework = "gotest"
	FrameworkAuto     Framework = "auto"
)

// DefaultFramework returns the conventional framework for a language.
func DefaultFramework(lang Language) Framework {
	switch lang {
	case LangPython:
		return FrameworkPytest
	case LangJavaScript, LangTypeScript:
		return FrameworkJest
	case LangJava:
		return FrameworkJUnit
	case LangCSharp:
		return FrameworkNUnit
	case LangGo:
		return FrameworkGoTest
	}
	return FrameworkPytest
}

// InputType records where the analyzed code came from.
type InputType string

const (
	InputText   InputType = "text"
	InputFile   InputType = "file"
	InputGitLab InputType = "gitlab_repo"
)

// GeneratedTestCase is one template-generated test, carrying the packages
// the emitted code needs alongside the code itself.
type GeneratedTestCase struct {
	Name         string    `json:"test_name"`
	Code         string    `json:"test_code"`
	Framework    Framework `json:"framework"`
	Description  string    `json:"description"`
	Dependencies []string  `json:"dependencies,omitempty"`
}

// TestGenMetadata describes a completed test-generation run.
type TestGenMetadata struct {
	InputType        InputType `json:"input_type"`
	DetectedLanguage Language  `json:"detected_language,omitempty"`
	TestFramework    Framework `json:"test_framework,omitempty"`
	ProcessingTimeMS int64     `json:"processing_time_ms,omitempty"`
	LinesOfCode      int       `json:"lines_of_code,omitempty"`
	FilesProcessed   int       `json:"files_processed,omitempty"`
}

// TestGenResponse is the test-generation API response shape.
type TestGenResponse struct {
	Success            bool                `json:"success"`
	GeneratedTests     string              `json:"generated_tests"`
	TestCases          []GeneratedTestCase `json:"test_cases,omitempty"`
	Metadata           TestGenMetadata     `json:"metadata"`
	CoverageNotes      string              `json:"coverage_notes,omitempty"`
	Suggestions        []string            `json:"suggestions,omitempty"`
	ProcessingMessages []string            `json:"processing_messages,omitempty"`
	Source             Source              `json:"source"`
}
