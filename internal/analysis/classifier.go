package analysis

import (
	"strings"

	"golang.org/x/text/cases"

	"grievance/backend/internal/config"
	"grievance/backend/internal/models"
)

type department struct {
	rule     config.DepartmentRule
	folded   string
	keywords []string
}

type tier struct {
	priority models.Priority
	keywords []string
}

// Classifier applies the keyword tables. It is immutable and safe for
// concurrent use.
type Classifier struct {
	departments  []department
	fallback     config.DepartmentRule
	tiers        []tier
	intensifiers []string
	safety       string
	dangerous    map[string]bool
	escalations  map[string][]string
	sentiment    *SentimentAnalyzer
}

// NewClassifier compiles tables. Keywords are case-folded once here.
func NewClassifier(tables *config.Tables) *Classifier {
	c := &Classifier{
		fallback:     tables.DefaultDepartment,
		intensifiers: foldAll(tables.RiskIntensifiers),
		safety:       tables.SafetyCategory,
		dangerous:    make(map[string]bool, len(tables.DangerousCategories)),
		escalations:  make(map[string][]string, len(tables.Escalations)),
		sentiment:    NewSentimentAnalyzer(tables.Sentiment),
	}
	for _, d := range tables.Departments {
		c.departments = append(c.departments, department{
			rule:     d,
			folded:   fold(d.Category),
			keywords: foldAll(d.Keywords),
		})
	}
	for _, t := range tables.PriorityTiers {
		c.tiers = append(c.tiers, tier{priority: models.Priority(t.Priority), keywords: foldAll(t.Keywords)})
	}
	for _, cat := range tables.DangerousCategories {
		c.dangerous[cat] = true
	}
	for _, e := range tables.Escalations {
		c.escalations[e.Category] = append(c.escalations[e.Category], foldAll(e.Keywords)...)
	}
	return c
}

// Classify maps free text to a category, priority, confidence and sentiment.
func (c *Classifier) Classify(text string) Analysis {
	folded := fold(text)

	rule, matched, confidence := c.detectDepartment(folded)
	priority := c.escalate(rule.Category, c.detectPriority(folded), folded)

	return Analysis{
		Category:       rule.Category,
		DepartmentName: rule.FullName,
		OfficerType:    rule.OfficerType,
		Priority:       priority,
		Confidence:     confidence,
		Sentiment:      c.sentiment.Polarity(text),
		Source:         SourceRules,
		Keywords:       matched,
	}
}

// detectDepartment picks the department with the most keyword hits. The
// first department in table order wins a tie.
func (c *Classifier) detectDepartment(folded string) (config.DepartmentRule, []string, float64) {
	best := -1
	var bestMatched []string
	for i, d := range c.departments {
		matched := matching(folded, d.keywords)
		if len(matched) > len(bestMatched) {
			best = i
			bestMatched = matched
		}
	}
	if best < 0 {
		return c.fallback, nil, config.DefaultConfidence
	}
	confidence := config.BaseMatchConfidence + config.MatchConfidenceStep*float64(len(bestMatched))
	return c.departments[best].rule, bestMatched, min(config.MaxMatchConfidence, confidence)
}

// detectPriority returns the first tier with a keyword hit, or Low.
func (c *Classifier) detectPriority(folded string) models.Priority {
	for _, t := range c.tiers {
		if containsAny(folded, t.keywords) {
			return t.priority
		}
	}
	return models.PriorityLow
}

// escalate raises priorities for hazardous categories.
func (c *Classifier) escalate(category string, p models.Priority, folded string) models.Priority {
	if category == c.safety && (p == models.PriorityLow || p == models.PriorityMedium) {
		return models.PriorityHigh
	}
	if p == models.PriorityLow && containsAny(folded, c.escalations[category]) {
		return models.PriorityHigh
	}
	if p == models.PriorityMedium && c.dangerous[category] && containsAny(folded, c.intensifiers) {
		return models.PriorityHigh
	}
	return p
}

func fold(s string) string {
	// A Caser keeps state, so each call gets its own.
	return cases.Fold().String(s)
}

func foldAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		out = append(out, fold(w))
	}
	return out
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func matching(text string, keywords []string) []string {
	var out []string
	for _, k := range keywords {
		if strings.Contains(text, k) {
			out = append(out, k)
		}
	}
	return out
}
