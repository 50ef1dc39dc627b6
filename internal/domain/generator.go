package domain

import "context"

// ResponseFormat selects between free text and a JSON object reply.
type ResponseFormat string

const (
	ResponseFormatText ResponseFormat = "text"
	ResponseFormatJSON ResponseFormat = "json"
)

// GenerateRequest carries one single-turn completion request.
type GenerateRequest struct {
	Prompt         string
	ResponseFormat ResponseFormat
	Temperature    float64
	MaxTokens      int
}

// Generator defines the capability to send a prompt to an LLM and receive its text.
type Generator interface {
	Complete(ctx context.Context, req GenerateRequest) (string, error)
	Version() string
}
