// Package summary writes short officer-facing synopses of complaints.
package summary

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/zeebo/blake3"
	"golang.org/x/text/cases"

	"grievance/backend/internal/config"
	"grievance/backend/internal/models"
)

// Source records where a summary came from.
type Source string

const (
	SourceCache    Source = "cache"
	SourceRules    Source = "rules"
	SourceExternal Source = "external"
	SourceFallback Source = "fallback"
)

// ErrExternalDisabled is returned by summarizers that are switched off.
var ErrExternalDisabled = errors.New("external summarizer disabled")

// Summarizer writes an abstractive summary with an external model.
type Summarizer interface {
	Summarize(ctx context.Context, c *models.Complaint) (string, error)
}

// Disabled is the Summarizer used when no model is configured.
type Disabled struct{}

func (Disabled) Summarize(context.Context, *models.Complaint) (string, error) {
	return "", ErrExternalDisabled
}

// Store persists generated summaries.
type Store interface {
	GetSummary(ctx context.Context, complaintID uint) (*models.ComplaintSummary, error)
	UpsertSummary(ctx context.Context, s *models.ComplaintSummary) error
}

type insightRule struct {
	words   []string
	insight string
}

// Risk rules are exclusive: the first matching one wins.
var riskRules = []insightRule{
	{[]string{"accident", "injury", "death", "casualty", "hurt"}, "poses a public safety risk"},
	{[]string{"wire", "shock", "current", "spark"}, "presents an electrocution hazard"},
}

var trafficRule = insightRule{
	[]string{"highway", "nh16", "nh-16", "national highway", "main road", "traffic"},
	"on a high-traffic route",
}

var urgency = map[models.Priority]string{
	models.PriorityCritical: "requires immediate attention",
	models.PriorityHigh:     "needs prompt maintenance",
}

type Result struct {
	Text   string `json:"summary"`
	Source Source `json:"source"`
}

type Service struct {
	store    Store
	external Summarizer
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(store Store, external Summarizer, logger *slog.Logger) *Service {
	if external == nil {
		external = Disabled{}
	}
	return &Service{
		store:    store,
		external: external,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Summarize returns the cached summary while title and description are
// unchanged and generates a new one otherwise: keyword rules first, then the
// external model, then a truncated description. It never fails.
func (s *Service) Summarize(ctx context.Context, c *models.Complaint) Result {
	hash := ContentHash(c.Title, c.Description)

	cached, err := s.store.GetSummary(ctx, c.ID)
	if err != nil {
		s.logger.Warn("summary cache read failed", "complaint_id", c.ID, "error", err)
	}
	if cached != nil && cached.ContentHash == hash {
		return Result{Text: cached.SummaryText, Source: SourceCache}
	}

	res := s.generate(ctx, c)
	if res.Source == SourceFallback {
		return res
	}
	if err := s.store.UpsertSummary(ctx, &models.ComplaintSummary{
		ComplaintID: c.ID,
		SummaryText: res.Text,
		ContentHash: hash,
		Source:      string(res.Source),
		GeneratedAt: s.now(),
	}); err != nil {
		s.logger.Warn("summary cache write failed", "complaint_id", c.ID, "error", err)
	}
	return res
}

func (s *Service) generate(ctx context.Context, c *models.Complaint) Result {
	if text, ok := Rules(c); ok {
		return Result{Text: text, Source: SourceRules}
	}

	text, err := s.external.Summarize(ctx, c)
	if err == nil {
		text = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "Summary:"))
	}
	switch {
	case err != nil && !errors.Is(err, ErrExternalDisabled):
		s.logger.Warn("external summarizer failed", "complaint_id", c.ID, "error", err)
	case err == nil && text != "":
		return Result{Text: text, Source: SourceExternal}
	}
	return Result{Text: Fallback(c), Source: SourceFallback}
}

// Rules builds a summary from risk, location and urgency phrases. It reports
// false when nothing fired or the result repeats the title.
func Rules(c *models.Complaint) (string, bool) {
	caser := cases.Fold()
	text := caser.String(c.Title + ". " + c.Description)

	var insights []string
	for _, r := range riskRules {
		if containsAny(text, r.words) {
			insights = append(insights, r.insight)
			break
		}
	}
	if containsAny(text, trafficRule.words) {
		insights = append(insights, trafficRule.insight)
	}
	if u, ok := urgency[c.Priority]; ok {
		insights = append(insights, u)
	}
	if len(insights) == 0 {
		return "", false
	}

	candidate := fmt.Sprintf("A reported issue at %s %s.", location(c), strings.Join(insights, ", "))
	title := strings.TrimSpace(caser.String(c.Title))
	if title != "" && strings.Contains(caser.String(candidate), title) {
		return "", false
	}
	return candidate, true
}

// Fallback truncates the description for manual review.
func Fallback(c *models.Complaint) string {
	desc := strings.TrimSpace(strings.ReplaceAll(c.Description, "\n", " "))
	if r := []rune(desc); len(r) > config.FallbackSummaryLength {
		desc = string(r[:config.FallbackSummaryLength])
	}
	return fmt.Sprintf("Issue at %s: %s... (Manual review recommended)", location(c), desc)
}

// ContentHash fingerprints the text a summary is generated from.
func ContentHash(title, description string) string {
	sum := blake3.Sum256([]byte(title + "\x00" + description))
	return hex.EncodeToString(sum[:])
}

func location(c *models.Complaint) string {
	if l := strings.TrimSpace(c.Location); l != "" {
		return l
	}
	return "the location"
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
