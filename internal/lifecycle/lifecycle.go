// Package lifecycle records the ordered timeline of a complaint and keeps
// the coarse complaint status and SLA breach flag in step with it.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"grievance/backend/internal/apperrors"
	"grievance/backend/internal/models"
	"grievance/backend/internal/storage"
)

// Outcome of recording a timeline event.
type Outcome string

const (
	OutcomeAccepted      Outcome = "ACCEPTED"
	OutcomeAlreadyLogged Outcome = "ALREADY_LOGGED"
)

// prerequisites maps a tag to the tag that must already be on the timeline.
var prerequisites = map[models.TimelineTag]struct {
	tag     models.TimelineTag
	message string
}{
	models.TagInProgress: {models.TagVisited, "cannot start work before visiting location"},
	models.TagResolved:   {models.TagInProgress, "cannot resolve without work in progress"},
}

// Event is a timeline entry to record.
type Event struct {
	ComplaintID uint
	Tag         models.TimelineTag
	Actor       models.ActorRole
	Remarks     string
	// Internal hides the event from the public tracking page.
	Internal bool
}

// Listener hears about committed changes to a complaint.
type Listener interface {
	ComplaintChanged(ctx context.Context, complaintID uint)
}

type Service struct {
	store    storage.Storage
	listener Listener
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(store storage.Storage, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) WithListener(l Listener) *Service {
	s.listener = l
	return s
}

// Record appends ev to the complaint's timeline. A tag that is already on the
// timeline is reported as OutcomeAlreadyLogged before any ordering check, so
// retries stay harmless. IN_PROGRESS needs a prior VISITED and RESOLVED needs
// a prior IN_PROGRESS; violations are precondition errors.
func (s *Service) Record(ctx context.Context, ev Event) (Outcome, error) {
	return s.record(ctx, ev, nil)
}

// RecordOfficerEvent records one of the officer tags on a complaint that is
// assigned to officerID. Complaints held by other officers are reported as
// not found.
func (s *Service) RecordOfficerEvent(ctx context.Context, officerID, complaintID uint, tag models.TimelineTag, remarks string) (Outcome, error) {
	if !tag.IsOfficerTag() {
		return "", apperrors.NewValidationError(
			fmt.Sprintf("officers may only record %v", models.OfficerTags))
	}
	ev := Event{ComplaintID: complaintID, Tag: tag, Actor: models.ActorOfficer, Remarks: remarks}
	return s.record(ctx, ev, func(c *models.Complaint) error {
		if c.AssignedOfficerID == nil || *c.AssignedOfficerID != officerID {
			return apperrors.NewNotFoundError("complaint not found")
		}
		return nil
	})
}

func (s *Service) record(ctx context.Context, ev Event, guard func(c *models.Complaint) error) (Outcome, error) {
	if ev.Actor == "" {
		ev.Actor = models.ActorSystem
	}

	var (
		outcome Outcome
		stored  *models.TimelineEvent
	)
	err := s.store.Transaction(ctx, func(tx storage.Storage) error {
		c, err := tx.LockComplaint(ctx, ev.ComplaintID)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(c); err != nil {
				return err
			}
		}

		logged, err := tx.HasTimelineTag(ctx, c.ID, ev.Tag)
		if err != nil {
			return err
		}
		if logged {
			outcome = OutcomeAlreadyLogged
			return nil
		}
		if ev.Tag.IsOfficerTag() && c.IsArchived {
			return apperrors.NewPreconditionError("complaint is archived")
		}
		if pre, ok := prerequisites[ev.Tag]; ok {
			has, err := tx.HasTimelineTag(ctx, c.ID, pre.tag)
			if err != nil {
				return err
			}
			if !has {
				return apperrors.NewPreconditionError(pre.message)
			}
		}

		now := s.now()
		te := &models.TimelineEvent{
			ComplaintID:     c.ID,
			Status:          ev.Tag,
			Timestamp:       now,
			UpdatedBy:       ev.Actor,
			Remarks:         ev.Remarks,
			IsPublicVisible: !ev.Internal,
		}
		inserted, err := tx.InsertTimelineEvent(ctx, te)
		if err != nil {
			return err
		}
		if !inserted {
			outcome = OutcomeAlreadyLogged
			return nil
		}

		// VISITED and IN_PROGRESS stay on the timeline only.
		if ev.Tag == models.TagResolved {
			freezeBreach(c, now)
			c.Status = models.StatusResolved
			if err := tx.SaveComplaint(ctx, c); err != nil {
				return err
			}
		}

		outcome, stored = OutcomeAccepted, te
		return nil
	})
	if err != nil {
		return "", err
	}

	if outcome == OutcomeAccepted {
		s.logger.Info("timeline event recorded",
			"complaint_id", ev.ComplaintID, "tag", ev.Tag, "actor", ev.Actor)
		s.changed(ctx, ev.ComplaintID)
		s.publish(ctx, stored)
	}
	return outcome, nil
}

// RefreshSLA recomputes the breach flag of a complaint whose clock is still
// running and persists it when it changed. Resolved and closed complaints
// keep the value they had when they stopped.
func (s *Service) RefreshSLA(ctx context.Context, c *models.Complaint) error {
	if c.Status.IsTerminal() || c.IsArchived {
		return nil
	}
	breached := c.BreachedAt(s.now())
	if breached == c.SLABreached {
		return nil
	}
	if err := s.store.SetSLABreached(ctx, c.ID, breached); err != nil {
		return err
	}
	c.SLABreached = breached
	return nil
}

// Timeline lists the events of a complaint in the order they happened.
func (s *Service) Timeline(ctx context.Context, complaintID uint) ([]models.TimelineEvent, error) {
	if _, err := s.store.GetComplaint(ctx, complaintID); err != nil {
		return nil, err
	}
	return s.store.ListTimeline(ctx, complaintID)
}

// freezeBreach takes the final breach reading before the clock stops.
func freezeBreach(c *models.Complaint, now time.Time) {
	if !c.Status.IsTerminal() {
		c.SLABreached = c.SLABreached || c.BreachedAt(now)
	}
}

func (s *Service) changed(ctx context.Context, complaintID uint) {
	if s.listener != nil {
		s.listener.ComplaintChanged(ctx, complaintID)
	}
}

func (s *Service) publish(ctx context.Context, ev *models.TimelineEvent) {
	if ev == nil || !ev.IsPublicVisible {
		return
	}
	if err := s.store.PublishTimeline(ctx, models.NewTimelineMessage(ev)); err != nil {
		s.logger.Warn("timeline publish failed", "complaint_id", ev.ComplaintID, "error", err)
	}
}
