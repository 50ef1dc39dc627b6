package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// OutputValidator extracts structured data from generator replies, which
// may wrap JSON in code fences or prose.
type OutputValidator struct{}

// NewOutputValidator creates a validator instance (currently stateless).
func NewOutputValidator() OutputValidator {
	return OutputValidator{}
}

// extractJSON returns the outermost span delimited by left and right.
func extractJSON(raw string, left, right byte) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errors.New("llm response is empty")
	}
	start := strings.IndexByte(trimmed, left)
	end := strings.LastIndexByte(trimmed, right)
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON %c...%c found in llm response", left, right)
	}
	return trimmed[start : end+1], nil
}

// Paraphrases parses a JSON array of strings.
func (v OutputValidator) Paraphrases(raw string) ([]string, error) {
	body, err := extractJSON(raw, '[', ']')
	if err != nil {
		return nil, err
	}
	var out []string
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return nil, fmt.Errorf("failed to parse llm response: %w", err)
	}
	return out, nil
}

// LLMVerdict is the completeness object the evaluator prompt asks for.
// Pointer fields distinguish absent values from zero.
type LLMVerdict struct {
	Confidence         *float64 `json:"confidence"`
	Completeness       *float64 `json:"completeness"`
	IsComplete         *bool    `json:"is_complete"`
	MissingInformation *string  `json:"missing_information"`
	SuggestedDocuments []string `json:"suggested_documents"`
	SuggestedActions   []string `json:"suggested_actions"`
	SearchQueries      []string `json:"search_queries"`
}

// Verdict parses the completeness JSON object.
func (v OutputValidator) Verdict(raw string) (*LLMVerdict, error) {
	body, err := extractJSON(raw, '{', '}')
	if err != nil {
		return nil, err
	}
	var verdict LLMVerdict
	if err := json.Unmarshal([]byte(body), &verdict); err != nil {
		return nil, fmt.Errorf("failed to parse llm response: %w", err)
	}
	return &verdict, nil
}
