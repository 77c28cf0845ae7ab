// Package complaint runs the intake pipeline for new grievances and serves
// complaint reads scoped to the caller.
package complaint

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"grievance/backend/internal/analysis"
	"grievance/backend/internal/apperrors"
	"grievance/backend/internal/assignment"
	"grievance/backend/internal/auth"
	"grievance/backend/internal/cache"
	"grievance/backend/internal/config"
	"grievance/backend/internal/models"
	"grievance/backend/internal/storage"
	"grievance/backend/internal/trust"
	"grievance/backend/internal/validation"
)

const submittedRemarks = "Complaint submitted"

type Analyzer interface {
	Analyze(ctx context.Context, title, description string) analysis.Analysis
}

type TrustScorer interface {
	Score(ctx context.Context, submitterID uint, title, description string) (trust.Result, error)
}

type DepartmentResolver interface {
	Resolve(ctx context.Context, candidate, text string) (*models.Department, error)
}

type Assigner interface {
	AssignBestOfficer(ctx context.Context, complaintID, departmentID uint) (assignment.Outcome, error)
}

type SLARefresher interface {
	RefreshSLA(ctx context.Context, c *models.Complaint) error
}

// Deps are the pipeline collaborators.
type Deps struct {
	Analyzer Analyzer
	Trust    TrustScorer
	Resolver DepartmentResolver
	Assigner Assigner
	SLA      SLARefresher
}

// Submission is a new complaint as filed by a citizen. Priority, when set,
// replaces the classifier's priority.
type Submission struct {
	Title       string          `json:"title" validate:"required,max=200"`
	Description string          `json:"description" validate:"required,max=5000"`
	Location    string          `json:"location" validate:"max=255"`
	Priority    models.Priority `json:"priority" validate:"omitempty,oneof=Critical High Medium Low"`
}

type Service struct {
	store    storage.Storage
	deps     Deps
	sanitize *bluemonday.Policy
	logger   *slog.Logger
	now      func() time.Time

	publicCache cache.Cache
	publicTTL   time.Duration
}

func NewService(store storage.Storage, deps Deps, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		deps:     deps,
		sanitize: bluemonday.StrictPolicy(),
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Submit files a complaint for userID. Only storing the complaint and its
// SUBMITTED event can fail the call; trust scoring, department routing and
// auto-assignment fall back to safe defaults and are logged.
func (s *Service) Submit(ctx context.Context, userID uint, sub Submission) (*models.Complaint, error) {
	var err error
	if sub.Title, err = s.clean("title", sub.Title); err != nil {
		return nil, err
	}
	if sub.Description, err = s.clean("description", sub.Description); err != nil {
		return nil, err
	}
	if sub.Location, err = s.clean("location", sub.Location); err != nil {
		return nil, err
	}
	if err := validation.Struct(sub); err != nil {
		return nil, err
	}
	log := s.logger.With("user_id", userID)

	result := s.deps.Analyzer.Analyze(ctx, sub.Title, sub.Description)
	priority := result.Priority
	if sub.Priority != "" {
		priority = sub.Priority
	}

	score, err := s.deps.Trust.Score(ctx, userID, sub.Title, sub.Description)
	if err != nil {
		log.Warn("trust scoring failed, assuming full trust", "error", err)
		score = trust.Result{Score: config.InitialTrustScore}
	}

	dept, err := s.deps.Resolver.Resolve(ctx, result.DepartmentName, sub.Title+" "+sub.Description)
	if err != nil {
		log.Warn("department routing failed, leaving complaint unrouted", "error", err)
		dept = nil
	}

	c := &models.Complaint{
		Title:          sub.Title,
		Description:    sub.Description,
		Location:       sub.Location,
		Category:       result.Category,
		Priority:       priority,
		Confidence:     result.Confidence,
		SentimentScore: result.Sentiment,
		TrustScore:     score.Score,
		TrustFlags:     score.Flags,
		Status:         models.StatusNew,
		UserID:         userID,
	}
	if dept != nil {
		c.DepartmentID = &dept.ID
	}

	err = s.store.Transaction(ctx, func(tx storage.Storage) error {
		if err := tx.CreateComplaint(ctx, c); err != nil {
			return err
		}
		_, err := tx.InsertTimelineEvent(ctx, &models.TimelineEvent{
			ComplaintID:     c.ID,
			Status:          models.TagSubmitted,
			Timestamp:       s.now(),
			UpdatedBy:       models.ActorCitizen,
			Remarks:         submittedRemarks,
			IsPublicVisible: true,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Info("complaint filed",
		"complaint_id", c.ID, "category", c.Category, "priority", c.Priority,
		"source", result.Source, "trust_score", c.TrustScore)

	if c.DepartmentID != nil {
		outcome, err := s.deps.Assigner.AssignBestOfficer(ctx, c.ID, *c.DepartmentID)
		if err != nil {
			log.Warn("auto-assignment failed, complaint left unassigned", "complaint_id", c.ID, "error", err)
		} else if outcome == assignment.OutcomeNoOfficer {
			log.Info("complaint awaits manual assignment", "complaint_id", c.ID)
		}
	}

	stored, err := s.store.GetComplaint(ctx, c.ID)
	if err != nil {
		log.Warn("failed to reload complaint", "complaint_id", c.ID, "error", err)
		return c, nil
	}
	return stored, nil
}

// Get returns a complaint the caller may see: admins see all, citizens their
// own and officers those assigned to them. Others get not found.
func (s *Service) Get(ctx context.Context, id uint, caller auth.Identity) (*models.Complaint, error) {
	c, err := s.store.GetComplaint(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(caller, c) {
		return nil, apperrors.NewNotFoundError("complaint not found")
	}
	s.refresh(ctx, c)
	return c, nil
}

func canView(caller auth.Identity, c *models.Complaint) bool {
	switch caller.Role {
	case models.RoleAdmin:
		return true
	case models.RoleOfficer:
		return caller.OfficerID != nil && c.AssignedOfficerID != nil && *caller.OfficerID == *c.AssignedOfficerID
	default:
		return c.UserID == caller.UserID
	}
}

func (s *Service) ListForCitizen(ctx context.Context, userID uint, archived bool) ([]models.Complaint, error) {
	return s.list(ctx, storage.ComplaintFilter{UserID: &userID, Archived: &archived})
}

func (s *Service) ListForOfficer(ctx context.Context, officerID uint) ([]models.Complaint, error) {
	active := false
	return s.list(ctx, storage.ComplaintFilter{OfficerID: &officerID, Archived: &active})
}

// ListUnassigned returns open complaints waiting for a manual assignment.
func (s *Service) ListUnassigned(ctx context.Context) ([]models.Complaint, error) {
	active := false
	return s.list(ctx, storage.ComplaintFilter{Unassigned: true, Archived: &active})
}

// ListSLABreached returns open complaints past their deadline, including
// those not yet flagged.
func (s *Service) ListSLABreached(ctx context.Context) ([]models.Complaint, error) {
	active, now := false, s.now()
	return s.list(ctx, storage.ComplaintFilter{BreachedAt: &now, Archived: &active})
}

func (s *Service) list(ctx context.Context, f storage.ComplaintFilter) ([]models.Complaint, error) {
	out, err := s.store.ListComplaints(ctx, f)
	if err != nil {
		return nil, err
	}
	for i := range out {
		s.refresh(ctx, &out[i])
	}
	return out, nil
}

func (s *Service) refresh(ctx context.Context, c *models.Complaint) {
	if s.deps.SLA == nil {
		return
	}
	if err := s.deps.SLA.RefreshSLA(ctx, c); err != nil {
		s.logger.Warn("sla refresh failed", "complaint_id", c.ID, "error", err)
	}
}

// clean trims citizen input and rejects it when it carries HTML markup. The
// text is stored as written; a '<' that opens no complete tag is plain text.
func (s *Service) clean(field, in string) (string, error) {
	text := strings.TrimSpace(newlines.Replace(in))
	guarded := escapeOpenBrackets(text)
	if html.UnescapeString(s.sanitize.Sanitize(guarded)) != html.UnescapeString(guarded) {
		return "", apperrors.NewValidationError(fmt.Sprintf("%s must not contain HTML markup", field))
	}
	return text, nil
}

var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// escapeOpenBrackets escapes every '<' that is not closed by a '>' before the
// next '<'.
func escapeOpenBrackets(text string) string {
	var b strings.Builder
	for i := 0; i < len(text); i++ {
		if text[i] != '<' {
			b.WriteByte(text[i])
			continue
		}
		rest := text[i+1:]
		end := strings.IndexByte(rest, '>')
		if end < 0 || strings.IndexByte(rest[:end], '<') >= 0 {
			b.WriteString("&lt;")
			continue
		}
		b.WriteByte('<')
	}
	return b.String()
}
