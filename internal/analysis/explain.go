package analysis

import (
	"strings"

	"grievance/backend/internal/config"
	"grievance/backend/internal/models"
)

const maxExplainedKeywords = 3

// Explanation is a citizen-facing preview of how a complaint will be handled.
type Explanation struct {
	Analysis
	Reasons             []string `json:"reasons"`
	EstimatedResolution string   `json:"estimated_resolution"`
}

// Explain lists the reasons behind a and the expected resolution time.
func Explain(a Analysis) Explanation {
	var reasons []string
	if len(a.Keywords) > 0 {
		kw := a.Keywords
		if len(kw) > maxExplainedKeywords {
			kw = kw[:maxExplainedKeywords]
		}
		reasons = append(reasons, "Detected keywords: "+strings.Join(kw, ", "))
	}
	switch a.Priority {
	case models.PriorityCritical:
		reasons = append(reasons, "Classified as Critical due to urgent safety vocabulary")
	case models.PriorityHigh:
		reasons = append(reasons, "Classified as High priority due to severity indicators")
	}
	if a.Sentiment < config.NegativeSentimentMark {
		reasons = append(reasons, "Negative sentiment indicates user frustration/urgency")
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "Based on standard keyword matching algorithms")
	}

	eta, ok := config.EstimatedResolution[string(a.Priority)]
	if !ok {
		eta = config.EstimatedResolution[string(models.PriorityMedium)]
	}
	return Explanation{Analysis: a, Reasons: reasons, EstimatedResolution: eta}
}
