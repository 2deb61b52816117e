// Package events defines the audit-event contract published on RabbitMQ and
// relayed to WebSocket clients. The guardian service emits one event per
// completed generation plus live log events per processing step.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Routing keys (topic exchange: guardian.events).
const (
	StoryGenerated     = "story.generated"
	TestsGenerated     = "tests.generated"
	FixSuggested       = "fix.suggested"
	GenerationFallback = "generation.fallback"
	LogEvent           = "log.event"
)

// Envelope wraps every message.
type Envelope struct {
	ID         string          `json:"id"`
	RoutingKey string          `json:"routing_key"`
	Timestamp  time.Time       `json:"ts"`
	Payload    json.RawMessage `json:"payload"`
}

func Wrap(routingKey string, payload any) ([]byte, error) {
	p, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		ID:         uuid.New().String(),
		RoutingKey: routingKey,
		Timestamp:  time.Now(),
		Payload:    p,
	})
}

func Unwrap[T any](raw []byte) (*T, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	var t T
	return &t, json.Unmarshal(env.Payload, &t)
}

func UnwrapEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	return &env, json.Unmarshal(raw, &env)
}

// ── Payload types ─────────────────────────────────────────────────────────────

type StoryGeneratedPayload struct {
	RequestID      string  `json:"request_id"`
	Stories        int     `json:"stories"`
	Source         string  `json:"source"`
	ProcessingTime float64 `json:"processing_time"`
}

type TestsGeneratedPayload struct {
	RequestID        string `json:"request_id"`
	InputType        string `json:"input_type"`
	Language         string `json:"language,omitempty"`
	Framework        string `json:"framework,omitempty"`
	Source           string `json:"source"`
	ProcessingTimeMS int64  `json:"processing_time_ms"`
}

type FixSuggestedPayload struct {
	RequestID string `json:"request_id"`
	Language  string `json:"language,omitempty"`
	Source    string `json:"source"`
}

type GenerationFallbackPayload struct {
	RequestID string `json:"request_id"`
	Operation string `json:"operation"`
	Reason    string `json:"reason"`
}

type LogEventPayload struct {
	RequestID string `json:"request_id"`
	Level     string `json:"level"`
	Step      string `json:"step"`
	Message   string `json:"message"`
}
