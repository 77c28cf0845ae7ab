// Package trust scores how likely a new complaint is to be genuine, based on
// the submitter's recent history and the shape of the text.
package trust

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"grievance/backend/internal/config"
)

const (
	FlagHighVelocity = "High Velocity"
	FlagDuplicate    = "Duplicate Content"
	FlagLowInfo      = "Low Info"
	FlagPossibleSpam = "Possible Spam"
)

// History answers questions about a submitter's earlier complaints.
type History interface {
	CountRecentBySubmitter(ctx context.Context, userID uint, since time.Time) (int64, error)
	HasDescription(ctx context.Context, userID uint, description string) (bool, error)
}

type Result struct {
	Score float64  `json:"score"`
	Flags []string `json:"flags"`
}

type Scorer struct {
	history History
	now     func() time.Time
}

func NewScorer(history History) *Scorer {
	return &Scorer{history: history, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock replaces the time source.
func (s *Scorer) WithClock(now func() time.Time) *Scorer {
	s.now = now
	return s
}

// Score rates a complaint that is about to be filed. It must run before the
// complaint is stored so that neither history check sees it. History errors
// are returned; callers decide how to degrade.
func (s *Scorer) Score(ctx context.Context, submitterID uint, title, description string) (Result, error) {
	score := config.InitialTrustScore
	flags := []string{}

	recent, err := s.history.CountRecentBySubmitter(ctx, submitterID, s.now().Add(-config.VelocityWindow))
	if err != nil {
		return Result{}, fmt.Errorf("count recent complaints: %w", err)
	}
	if recent >= config.VelocityThreshold {
		score -= config.VelocityPenaltyPerItem * float64(recent)
		flags = append(flags, FlagHighVelocity)
	}

	duplicate, err := s.history.HasDescription(ctx, submitterID, description)
	if err != nil {
		return Result{}, fmt.Errorf("check duplicate description: %w", err)
	}
	if duplicate {
		score -= config.DuplicatePenalty
		flags = append(flags, FlagDuplicate)
	}

	switch {
	case utf8.RuneCountInString(description) < config.MinDescriptionLength:
		score -= config.ShortDescriptionPenalty
		flags = append(flags, FlagLowInfo)
	case distinctRunes(description) < config.MinDistinctCharacters:
		score -= config.RepetitiveTextPenalty
		flags = append(flags, FlagPossibleSpam)
	}

	return Result{Score: max(0, min(1, score)), Flags: flags}, nil
}

func distinctRunes(s string) int {
	seen := make(map[rune]struct{})
	for _, r := range s {
		seen[r] = struct{}{}
	}
	return len(seen)
}
