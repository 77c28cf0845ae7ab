package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"grievance/backend/internal/models"
)

// ErrExternalDisabled is returned by classifiers that are switched off.
var ErrExternalDisabled = errors.New("external classifier disabled")

// Suggestion is a classification proposed by an external model.
type Suggestion struct {
	Category   string          `json:"category"`
	Priority   models.Priority `json:"priority"`
	Confidence float64         `json:"confidence"`
	Reasoning  string          `json:"reasoning"`
}

func (s *Suggestion) validate() error {
	if s == nil {
		return errors.New("empty suggestion")
	}
	if strings.TrimSpace(s.Category) == "" {
		return errors.New("suggestion has no category")
	}
	if !s.Priority.Valid() {
		return fmt.Errorf("suggestion has unknown priority %q", s.Priority)
	}
	return nil
}

// ExternalClassifier proposes a classification for complaint text.
// Implementations return ErrExternalDisabled when they are not configured.
type ExternalClassifier interface {
	Suggest(ctx context.Context, text string) (*Suggestion, error)
}

// Disabled is the ExternalClassifier used when no model is configured.
type Disabled struct{}

func (Disabled) Suggest(context.Context, string) (*Suggestion, error) {
	return nil, ErrExternalDisabled
}

// ParseSuggestion decodes a model reply. The reply may be wrapped in a
// markdown code fence.
func ParseSuggestion(raw string) (*Suggestion, error) {
	body := stripFence(raw)
	var s Suggestion
	if err := json.Unmarshal([]byte(body), &s); err != nil {
		return nil, fmt.Errorf("failed to decode suggestion: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func stripFence(raw string) string {
	body := strings.TrimSpace(raw)
	if !strings.HasPrefix(body, "```") {
		return body
	}
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimPrefix(body, "json")
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}
