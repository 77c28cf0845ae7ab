package config

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var keywordsYAML []byte

// DepartmentRule maps a classifier category to its keywords and the municipal
// department that handles it.
type DepartmentRule struct {
	Category    string   `yaml:"category"`
	FullName    string   `yaml:"full_name"`
	OfficerType string   `yaml:"officer"`
	Keywords    []string `yaml:"keywords"`
}

// PriorityTier lists the keywords that raise a complaint to Priority.
type PriorityTier struct {
	Priority string   `yaml:"priority"`
	Keywords []string `yaml:"keywords"`
}

// Escalation raises a Low priority complaint in Category to High when any of
// Keywords is present.
type Escalation struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

// RoutingRule sends text containing any of Keywords to Department.
type RoutingRule struct {
	Keywords   []string `yaml:"keywords"`
	Department string   `yaml:"department"`
}

type RoutingTable struct {
	FallbackDepartment string        `yaml:"fallback_department"`
	Rules              []RoutingRule `yaml:"rules"`
}

type RegistryEntry struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type SentimentLexicon struct {
	Positive     []string `yaml:"positive"`
	Negative     []string `yaml:"negative"`
	Negators     []string `yaml:"negators"`
	Intensifiers []string `yaml:"intensifiers"`
}

// Tables holds the static classification and routing tables. Lists keep their
// declaration order, which decides ties.
type Tables struct {
	Departments         []DepartmentRule `yaml:"departments"`
	DefaultDepartment   DepartmentRule   `yaml:"default_department"`
	PriorityTiers       []PriorityTier   `yaml:"priority_tiers"`
	RiskIntensifiers    []string         `yaml:"risk_intensifiers"`
	SafetyCategory      string           `yaml:"safety_category"`
	DangerousCategories []string         `yaml:"dangerous_categories"`
	Escalations         []Escalation     `yaml:"low_priority_escalations"`
	Routing             RoutingTable     `yaml:"routing"`
	Registry            []RegistryEntry  `yaml:"registry"`
	Sentiment           SentimentLexicon `yaml:"sentiment"`
}

// ParseTables decodes a keyword table document.
func ParseTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse keyword tables: %w", err)
	}
	if len(t.Departments) == 0 {
		return nil, fmt.Errorf("keyword tables define no departments")
	}
	if t.Routing.FallbackDepartment == "" {
		return nil, fmt.Errorf("keyword tables define no fallback department")
	}
	return &t, nil
}

var loadTables = sync.OnceValue(func() *Tables {
	t, err := ParseTables(keywordsYAML)
	if err != nil {
		panic(err)
	}
	return t
})

// Keywords returns the embedded tables. The result is shared and must not be
// modified.
func Keywords() *Tables {
	return loadTables()
}

// Department returns the rule for category, or false when the category is not
// in the table.
func (t *Tables) Department(category string) (DepartmentRule, bool) {
	for _, d := range t.Departments {
		if d.Category == category {
			return d, true
		}
	}
	if t.DefaultDepartment.Category == category {
		return t.DefaultDepartment, true
	}
	return DepartmentRule{}, false
}
