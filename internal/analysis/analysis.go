// Package analysis classifies complaint text into a department category and a
// priority, and scores its sentiment. Rules come from the embedded keyword
// tables; an optional external classifier may override them.
package analysis

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"grievance/backend/internal/config"
	"grievance/backend/internal/models"
)

// Source records which path produced an Analysis.
type Source string

const (
	SourceRules    Source = "rules"
	SourceExternal Source = "external"
)

// Analysis is the outcome of classifying one complaint.
type Analysis struct {
	Category       string          `json:"category"`
	DepartmentName string          `json:"department"`
	OfficerType    string          `json:"officer_type"`
	Priority       models.Priority `json:"priority"`
	Confidence     float64         `json:"confidence"`
	Sentiment      float64         `json:"sentiment"`
	Source         Source          `json:"source"`
	// Keywords are the department keywords found in the text.
	Keywords  []string `json:"keywords,omitempty"`
	Reasoning string   `json:"reasoning,omitempty"`
}

// Analyzer runs the external classifier when one is configured and falls
// back to the keyword rules whenever it is unavailable or fails.
type Analyzer struct {
	classifier *Classifier
	external   ExternalClassifier
	logger     *slog.Logger
}

func NewAnalyzer(classifier *Classifier, external ExternalClassifier, logger *slog.Logger) *Analyzer {
	if external == nil {
		external = Disabled{}
	}
	return &Analyzer{classifier: classifier, external: external, logger: logger}
}

func (a *Analyzer) Classifier() *Classifier {
	return a.classifier
}

// Analyze classifies title and description together. It never fails.
func (a *Analyzer) Analyze(ctx context.Context, title, description string) Analysis {
	text := strings.TrimSpace(title + " " + description)
	base := a.classifier.Classify(text)

	suggestion, err := a.external.Suggest(ctx, text)
	if err != nil {
		if !errors.Is(err, ErrExternalDisabled) {
			a.logger.Warn("external classifier failed, using keyword rules", "error", err)
		}
		return base
	}
	if err := suggestion.validate(); err != nil {
		a.logger.Warn("external classifier returned an unusable suggestion", "error", err)
		return base
	}
	return a.classifier.reconcile(base, suggestion)
}

// reconcile adopts the external category when it names a known category and
// keeps the keyword department otherwise. The external priority is used as
// is; escalation heuristics only apply to the rule path.
func (c *Classifier) reconcile(base Analysis, s *Suggestion) Analysis {
	out := base
	out.Source = SourceExternal
	out.Priority = s.Priority
	out.Confidence = s.Confidence
	if out.Confidence <= 0 || out.Confidence > 1 {
		out.Confidence = config.ExternalConfidence
	}
	out.Reasoning = s.Reasoning

	if rule, ok := c.lookupCategory(s.Category); ok {
		out.Category = rule.Category
		out.DepartmentName = rule.FullName
		out.OfficerType = rule.OfficerType
	}
	return out
}

// lookupCategory finds the table category that contains, or is contained in,
// name.
func (c *Classifier) lookupCategory(name string) (config.DepartmentRule, bool) {
	suggested := fold(strings.TrimSpace(name))
	if suggested == "" {
		return config.DepartmentRule{}, false
	}
	for _, d := range c.departments {
		if strings.Contains(d.folded, suggested) || strings.Contains(suggested, d.folded) {
			return d.rule, true
		}
	}
	general := fold(c.fallback.Category)
	if strings.Contains(general, suggested) || strings.Contains(suggested, general) {
		return c.fallback, true
	}
	return config.DepartmentRule{}, false
}
