package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/codeguardian/guardian/shared/codetest"
	"github.com/codeguardian/guardian/shared/events"
	"github.com/codeguardian/guardian/shared/gitlab"
	"github.com/codeguardian/guardian/shared/schema"
	"github.com/codeguardian/guardian/shared/story"
)

const version = "0.3.0"

func (s *Service) serveAPI(ctx context.Context) error {
	srv := &http.Server{
		Addr:         ":" + s.cfg.APIPort,
		Handler:      cors(s.routes()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 180 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	log.Info().Str("port", s.cfg.APIPort).Msg("api online")
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Service) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/stories/generate", s.handleGenerateStories)
	mux.HandleFunc("POST /api/v1/stories/export", s.handleExportStories)
	mux.HandleFunc("POST /api/v1/tests/from-text", s.handleTestsFromText)
	mux.HandleFunc("POST /api/v1/tests/from-file", s.handleTestsFromFile)
	mux.HandleFunc("POST /api/v1/tests/from-gitlab", s.handleTestsFromGitLab)
	mux.HandleFunc("POST /api/v1/fixes", s.handleFixes)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("/ws", s.hub.ServeWS)

	return mux
}

// ── Stories ───────────────────────────────────────────────────────────────────

func (s *Service) handleGenerateStories(w http.ResponseWriter, r *http.Request) {
	var req schema.StoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, schema.InvalidInput("invalid body: %v", err), nil)
		return
	}

	requestID := uuid.New().String()
	res, err := s.stories.Generate(r.Context(), req)
	if err != nil {
		writeErr(w, err, nil)
		return
	}

	s.publish(r.Context(), events.StoryGenerated, events.StoryGeneratedPayload{
		RequestID:      requestID,
		Stories:        len(res.Stories),
		Source:         string(res.Source),
		ProcessingTime: res.ProcessingTime,
	})
	if res.Source == schema.SourceFallback {
		s.publishFallback(r.Context(), requestID, "story_generation")
	}

	jsonOK(w, res, 200)
}

func (s *Service) handleExportStories(w http.ResponseWriter, r *http.Request) {
	var res schema.StoryResult
	if err := json.NewDecoder(r.Body).Decode(&res); err != nil {
		writeErr(w, schema.InvalidInput("invalid body: %v", err), nil)
		return
	}
	if len(res.Stories) == 0 {
		writeErr(w, schema.InvalidInput("no stories to export"), nil)
		return
	}

	doc := story.ExportTXT(&res)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="user_stories.txt"`)
	w.WriteHeader(200)
	io.WriteString(w, doc)
}

// ── Tests ─────────────────────────────────────────────────────────────────────

// newTestGenerator wires a per-request generator whose progress messages
// reach WebSocket clients as they happen.
func (s *Service) newTestGenerator(requestID string) *codetest.Generator {
	g := codetest.NewGenerator(s.provider)
	g.Progress = func(msg string) {
		s.publish(context.Background(), events.LogEvent, events.LogEventPayload{
			RequestID: requestID,
			Level:     "info",
			Step:      "test_generation",
			Message:   msg,
		})
	}
	return g
}

func (s *Service) handleTestsFromText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code              string `json:"code"`
		Language          string `json:"language"`
		Framework         string `json:"framework"`
		AdditionalContext string `json:"additional_context"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, schema.InvalidInput("invalid body: %v", err), nil)
		return
	}

	s.runTestGeneration(w, r, codetest.Request{
		Code:              req.Code,
		Language:          schema.ParseLanguage(req.Language),
		Framework:         schema.Framework(req.Framework),
		InputType:         schema.InputText,
		AdditionalContext: req.AdditionalContext,
	})
}

func (s *Service) handleTestsFromFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxFileSize)
	if err := r.ParseMultipartForm(s.cfg.MaxFileSize); err != nil {
		writeErr(w, schema.InvalidInput("file exceeds the %d byte limit or is not valid multipart data", s.cfg.MaxFileSize), nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeErr(w, schema.InvalidInput("missing file field"), nil)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeErr(w, schema.InvalidInput("unreadable file: %v", err), nil)
		return
	}

	s.runTestGeneration(w, r, codetest.Request{
		Code:      string(content),
		FileName:  header.Filename,
		Framework: schema.Framework(r.FormValue("framework")),
		InputType: schema.InputFile,
	})
}

func (s *Service) handleTestsFromGitLab(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RepoURL     string `json:"repo_url"`
		AccessToken string `json:"access_token"`
		Branch      string `json:"branch"`
		MaxFiles    int    `json:"max_files"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, schema.InvalidInput("invalid body: %v", err), nil)
		return
	}
	if req.RepoURL == "" {
		writeErr(w, schema.InvalidInput("repo_url is required"), nil)
		return
	}

	client := s.gitlab
	if req.AccessToken != "" {
		client = gitlab.NewClient(s.cfg.GitLabURL, req.AccessToken)
	}
	src, err := client.FetchSource(r.Context(), req.RepoURL, req.Branch, req.MaxFiles)
	if err != nil {
		writeErr(w, &schema.RequestError{
			Code:    schema.ErrCodeBackendUnavailable,
			Message: fmt.Sprintf("gitlab fetch failed: %v", err),
		}, nil)
		return
	}

	genReq := codetest.Request{
		Code:      src.Combined,
		Language:  primaryLanguage(src.Files),
		InputType: schema.InputGitLab,
	}
	requestID := uuid.New().String()
	res, err := s.newTestGenerator(requestID).Generate(r.Context(), genReq)
	if err != nil {
		writeErr(w, err, nil)
		return
	}
	res.Metadata.FilesProcessed = src.TotalFiles

	s.publishTests(r.Context(), requestID, res)
	jsonOK(w, res, 200)
}

func (s *Service) runTestGeneration(w http.ResponseWriter, r *http.Request, req codetest.Request) {
	requestID := uuid.New().String()
	res, err := s.newTestGenerator(requestID).Generate(r.Context(), req)
	if err != nil {
		writeErr(w, err, nil)
		return
	}
	s.publishTests(r.Context(), requestID, res)
	jsonOK(w, res, 200)
}

func (s *Service) publishTests(ctx context.Context, requestID string, res *schema.TestGenResponse) {
	s.publish(ctx, events.TestsGenerated, events.TestsGeneratedPayload{
		RequestID:        requestID,
		InputType:        string(res.Metadata.InputType),
		Language:         string(res.Metadata.DetectedLanguage),
		Framework:        string(res.Metadata.TestFramework),
		Source:           string(res.Source),
		ProcessingTimeMS: res.Metadata.ProcessingTimeMS,
	})
	if res.Source == schema.SourceFallback {
		s.publishFallback(ctx, requestID, "test_generation")
	}
}

// primaryLanguage picks the most common detected language among the
// fetched files.
func primaryLanguage(files []gitlab.FileInfo) schema.Language {
	counts := map[schema.Language]int{}
	for _, f := range files {
		if lang := schema.DetectLanguage(f.Path); lang != schema.LangUnknown {
			counts[lang]++
		}
	}
	var best schema.Language
	for lang, n := range counts {
		if n > counts[best] {
			best = lang
		}
	}
	return best
}

// ── Fixes ─────────────────────────────────────────────────────────────────────

func (s *Service) handleFixes(w http.ResponseWriter, r *http.Request) {
	var req schema.FixRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, schema.InvalidInput("invalid body: %v", err), nil)
		return
	}

	requestID := uuid.New().String()
	res, err := s.fixes.Fix(r.Context(), req)
	if err != nil {
		writeErr(w, err, nil)
		return
	}

	s.publish(r.Context(), events.FixSuggested, events.FixSuggestedPayload{
		RequestID: requestID,
		Language:  string(req.Language),
		Source:    string(res.Source),
	})
	if res.Source == schema.SourceFallback {
		s.publishFallback(r.Context(), requestID, "bug_fix")
	}

	jsonOK(w, res, 200)
}

// ── Status ────────────────────────────────────────────────────────────────────

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	llmStatus := map[string]any{"configured": s.provider != nil}
	if s.provider != nil {
		llmStatus["profile"] = string(s.providerKind)
	} else if s.missingConfig != nil {
		llmStatus["missing_configuration"] = map[string][]string{
			"enterprise": s.missingConfig.Enterprise,
			"generic":    s.missingConfig.Generic,
		}
	}

	jsonOK(w, map[string]any{
		"status":  "online",
		"version": version,
		"clients": s.hub.ClientCount(),
		"llm":     llmStatus,
	}, 200)
}

// ── Event plumbing ────────────────────────────────────────────────────────────

// publish wraps a payload and sends it to both the broker (when one is
// connected) and WebSocket clients.
func (s *Service) publish(ctx context.Context, routingKey string, payload any) {
	b, err := events.Wrap(routingKey, payload)
	if err != nil {
		return
	}
	if err := s.broker.Publish(ctx, routingKey, b); err != nil {
		log.Warn().Err(err).Str("key", routingKey).Msg("publish failed")
	}
	s.hub.BroadcastRaw(b)
}

func (s *Service) publishFallback(ctx context.Context, requestID, operation string) {
	s.publish(ctx, events.GenerationFallback, events.GenerationFallbackPayload{
		RequestID: requestID,
		Operation: operation,
		Reason:    "backend unavailable or produced unusable output",
	})
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func jsonOK(w http.ResponseWriter, v any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error, messages []string) {
	code := schema.ErrCodeInternal
	msg := "internal error"
	status := 500

	var reqErr *schema.RequestError
	if errors.As(err, &reqErr) {
		code = reqErr.Code
		msg = reqErr.Message
		switch code {
		case schema.ErrCodeInputInvalid:
			status = 400
		case schema.ErrCodeConfigMissing:
			status = 503
		case schema.ErrCodeBackendUnavailable:
			status = 502
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(schema.ErrorResponse{
		Success:            false,
		Error:              msg,
		ErrorCode:          code,
		ProcessingMessages: messages,
	})
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(204)
			return
		}
		next.ServeHTTP(w, r)
	})
}
