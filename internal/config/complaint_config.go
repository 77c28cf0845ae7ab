package config

import "time"

const (
	// SLA windows in hours, by priority.
	SLAHoursCritical = 24
	SLAHoursHigh     = 48
	SLAHoursMedium   = 120
	SLAHoursLow      = 168
	SLAHoursDefault  = SLAHoursMedium

	// Trust scoring
	InitialTrustScore       = 1.0
	VelocityWindow          = 5 * time.Minute
	VelocityThreshold       = 2
	VelocityPenaltyPerItem  = 0.15
	DuplicatePenalty        = 0.4
	MinDescriptionLength    = 15
	ShortDescriptionPenalty = 0.1
	MinDistinctCharacters   = 5
	RepetitiveTextPenalty   = 0.5

	// Classification
	DefaultCategory       = "General"
	DefaultConfidence     = 0.3
	BaseMatchConfidence   = 0.5
	MatchConfidenceStep   = 0.15
	MaxMatchConfidence    = 0.95
	ExternalConfidence    = 0.9
	NegativeSentimentMark = -0.3

	// Assignment and lifecycle
	MinReassignReasonLength = 10
	MinFeedbackRating       = 1
	MaxFeedbackRating       = 5

	// Summaries
	FallbackSummaryLength = 100
)

// EstimatedResolution is the citizen-facing resolution estimate per priority.
var EstimatedResolution = map[string]string{
	"Critical": "24 hours",
	"High":     "2-3 days",
	"Medium":   "3-5 days",
	"Low":      "5-7 days",
}
