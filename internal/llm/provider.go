package llm

import (
	"context"
	"encoding/json"
)

// Provider is the generation collaborator boundary. The tutoring core
// treats it as a black box that turns prompts into text that should
// contain JSON.
type Provider interface {
	// Generate sends a prompt and returns the model's output. When the
	// request carries a Schema, the provider uses its native structured
	// output mechanism and validates the result; otherwise Content is
	// the raw text. A non-nil error is a communication-level failure,
	// distinct from the caller failing to parse a successful response.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the configured model identifier.
	ModelID() string
}

// Request describes one generation call.
type Request struct {
	// System sets the model's role and output constraints.
	System string

	// Messages is the conversation. Solve and diagnose calls are
	// single-turn: one user message.
	Messages []Message

	// Schema, when set, requests native structured output conforming to
	// the definition. Solver and diagnoser calls leave this nil and
	// recover JSON from the raw text themselves.
	Schema *Schema

	// MaxTokens bounds the response length.
	MaxTokens int

	// Temperature in [0,1]. Zero means deterministic.
	Temperature float64
}

// Message is a single conversation turn.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema names a JSON Schema the response must conform to.
type Schema struct {
	// Name identifies the schema, kebab-case (e.g. "student-answers").
	Name string

	// Description tells the model what the schema represents.
	Description string

	// Definition is the JSON Schema as a map.
	Definition map[string]any
}

// Response holds the model's output.
type Response struct {
	// Content is the generated output. With a Schema it is validated
	// JSON; without one it is the raw text as bytes.
	Content json.RawMessage

	// Usage reports token consumption.
	Usage Usage

	// Model is the model that actually served the request.
	Model string

	// StopReason is normalized to "end", "max_tokens", or "error".
	StopReason string
}

// Text returns the response content as plain text.
func (r *Response) Text() string {
	return string(r.Content)
}

// Usage tracks token consumption for one request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
