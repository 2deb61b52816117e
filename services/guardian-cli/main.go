// guardian-cli is a terminal client for the CodeGuardian API.
// It submits story, test, and fix requests to a running guardian
// service and renders the results for the terminal.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/codeguardian/guardian/shared/schema"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
	warningColor = color.New(color.FgYellow)
	headerColor  = color.New(color.FgMagenta, color.Bold)
)

var (
	apiURL     string
	outputFile string
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "guardian",
		Short: "CodeGuardian - stories, tests, and fixes from your code",
		Long:  "Terminal client for the CodeGuardian API: generate agile user stories, unit tests, and bug-fix suggestions.",
	}
	rootCmd.PersistentFlags().StringVarP(&apiURL, "api", "a", "http://localhost:8080", "Guardian API base URL")

	var (
		storyType      string
		noCriteria     bool
		additionalReqs string
	)
	var storyCmd = &cobra.Command{
		Use:   "story [context]",
		Short: "Generate agile user stories from a requirement description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStory(strings.Join(args, " "), storyType, !noCriteria, additionalReqs)
		},
	}
	storyCmd.Flags().StringVarP(&storyType, "type", "t", "", "Story type: epic, user_story, task")
	storyCmd.Flags().BoolVar(&noCriteria, "no-criteria", false, "Skip acceptance criteria")
	storyCmd.Flags().StringVarP(&additionalReqs, "requirements", "r", "", "Additional requirements")
	storyCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Export the result as TXT to this file")

	var (
		language  string
		framework string
	)
	var testsCmd = &cobra.Command{
		Use:   "tests [file]",
		Short: "Generate unit tests for a source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(args[0], language, framework)
		},
	}
	testsCmd.Flags().StringVarP(&language, "language", "l", "", "Source language (detected from the file name when omitted)")
	testsCmd.Flags().StringVarP(&framework, "framework", "f", "", "Test framework (language default when omitted)")
	testsCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write generated tests to this file")

	var errDescription string
	var fixCmd = &cobra.Command{
		Use:   "fix [file]",
		Short: "Suggest a fix for a failing source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFix(args[0], errDescription, language)
		},
	}
	fixCmd.Flags().StringVarP(&errDescription, "error", "e", "", "Error description (required)")
	fixCmd.Flags().StringVarP(&language, "language", "l", "", "Source language")
	fixCmd.MarkFlagRequired("error")

	var statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show the guardian service status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus()
		},
	}

	rootCmd.AddCommand(storyCmd)
	rootCmd.AddCommand(testsCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(statusCmd)

	if err := rootCmd.Execute(); err != nil {
		errorColor.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var httpClient = &http.Client{Timeout: 300 * time.Second}

func postJSON(path string, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := httpClient.Post(apiURL+path, "application/json", bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr schema.ErrorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (%s)", apiErr.Error, apiErr.ErrorCode)
		}
		return fmt.Errorf("api returned %d", resp.StatusCode)
	}
	return json.Unmarshal(raw, out)
}

func runStory(context, storyType string, criteria bool, additional string) error {
	infoColor.Println("Generating stories...")

	var res schema.StoryResult
	err := postJSON("/api/v1/stories/generate", schema.StoryRequest{
		Context:                   context,
		StoryType:                 schema.StoryType(storyType),
		IncludeAcceptanceCriteria: criteria,
		AdditionalRequirements:    additional,
	}, &res)
	if err != nil {
		return err
	}

	printSource(res.Source)
	for i, s := range res.Stories {
		headerColor.Printf("\nSTORY %d: %s\n", i+1, s.Title)
		fmt.Println(s.Description)
		fmt.Printf("  Type: %s | Priority: %s | Estimate: %d pts\n", s.StoryType, s.Priority, s.Estimate)
		if len(s.Tasks) > 0 {
			infoColor.Println("  Tasks:")
			for j, task := range s.Tasks {
				fmt.Printf("    %d. %s\n", j+1, task.Title)
			}
		}
		for j, c := range s.AcceptanceCriteria {
			infoColor.Printf("  Scenario %d: ", j+1)
			fmt.Printf("Given %s, when %s, then %s\n", c.Given, c.When, c.Then)
		}
	}
	if res.Summary != "" {
		fmt.Println("\n" + res.Summary)
	}

	if outputFile != "" {
		return exportStories(&res)
	}
	return nil
}

func exportStories(res *schema.StoryResult) error {
	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	resp, err := httpClient.Post(apiURL+"/api/v1/stories/export", "application/json", bytes.NewReader(b))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("export failed with status %d", resp.StatusCode)
	}
	doc, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputFile, doc, 0o644); err != nil {
		return err
	}
	successColor.Println("Exported to", outputFile)
	return nil
}

func runTests(file, language, framework string) error {
	content, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	infoColor.Printf("Generating tests for %s...\n", file)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filepath.Base(file))
	if err != nil {
		return err
	}
	if _, err := fw.Write(content); err != nil {
		return err
	}
	if framework != "" {
		mw.WriteField("framework", framework)
	}
	if err := mw.Close(); err != nil {
		return err
	}

	resp, err := httpClient.Post(apiURL+"/api/v1/tests/from-file", mw.FormDataContentType(), &buf)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr schema.ErrorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (%s)", apiErr.Error, apiErr.ErrorCode)
		}
		return fmt.Errorf("api returned %d", resp.StatusCode)
	}

	var res schema.TestGenResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return err
	}

	printSource(res.Source)
	fmt.Printf("Language: %s | Framework: %s | %d lines analyzed\n",
		res.Metadata.DetectedLanguage, res.Metadata.TestFramework, res.Metadata.LinesOfCode)
	if res.CoverageNotes != "" {
		infoColor.Println(res.CoverageNotes)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(res.GeneratedTests), 0o644); err != nil {
			return err
		}
		successColor.Println("Tests written to", outputFile)
	} else {
		fmt.Println("\n" + res.GeneratedTests)
	}
	for _, s := range res.Suggestions {
		warningColor.Println("hint:", s)
	}
	return nil
}

func runFix(file, errDescription, language string) error {
	content, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	infoColor.Println("Requesting fix suggestion...")

	var res schema.FixResult
	err = postJSON("/api/v1/fixes", schema.FixRequest{
		Code:             string(content),
		ErrorDescription: errDescription,
		Language:         schema.ParseLanguage(language),
	}, &res)
	if err != nil {
		return err
	}

	printSource(res.Source)
	headerColor.Println("\nExplanation")
	fmt.Println(res.Explanation)
	headerColor.Println("\nProposed code")
	fmt.Println(res.FixedCode)
	for _, tip := range res.PreventionTips {
		warningColor.Println("tip:", tip)
	}
	return nil
}

func runStatus() error {
	resp, err := httpClient.Get(apiURL + "/api/status")
	if err != nil {
		return fmt.Errorf("guardian unreachable at %s: %w", apiURL, err)
	}
	defer resp.Body.Close()

	var status struct {
		Status  string `json:"status"`
		Version string `json:"version"`
		Clients int    `json:"clients"`
		LLM     struct {
			Configured           bool                `json:"configured"`
			Profile              string              `json:"profile"`
			MissingConfiguration map[string][]string `json:"missing_configuration"`
		} `json:"llm"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return err
	}

	successColor.Printf("guardian %s is %s\n", status.Version, status.Status)
	fmt.Printf("connected websocket clients: %d\n", status.Clients)
	if status.LLM.Configured {
		successColor.Printf("LLM backend: %s\n", status.LLM.Profile)
	} else {
		warningColor.Println("LLM backend: not configured, fallbacks in use")
		for profile, keys := range status.LLM.MissingConfiguration {
			fmt.Printf("  %s missing: %s\n", profile, strings.Join(keys, ", "))
		}
	}
	return nil
}

func printSource(src schema.Source) {
	if src == schema.SourceBackend {
		successColor.Println("source: LLM backend")
	} else {
		warningColor.Println("source: deterministic fallback (no LLM output used)")
	}
}
