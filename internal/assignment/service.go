// Package assignment places complaints with department officers, either
// automatically by current workload or by an administrator.
package assignment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/datatypes"

	"grievance/backend/internal/apperrors"
	"grievance/backend/internal/models"
	"grievance/backend/internal/storage"
	"grievance/backend/internal/validation"
)

// Outcome of an automatic assignment attempt.
type Outcome string

const (
	OutcomeAssigned        Outcome = "ASSIGNED"
	OutcomeAlreadyAssigned Outcome = "ALREADY_ASSIGNED"
	OutcomeNoOfficer       Outcome = "NO_OFFICER_AVAILABLE"
)

const autoAssignRemarks = "Automatically assigned to department officer"

// Notifier tells an officer about a complaint they now hold.
type Notifier interface {
	OfficerAssigned(ctx context.Context, officer *models.Officer, c *models.Complaint) error
}

// Listener hears about committed changes to a complaint.
type Listener interface {
	ComplaintChanged(ctx context.Context, complaintID uint)
}

type Service struct {
	store    storage.Storage
	notifier Notifier
	listener Listener
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(store storage.Storage, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
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

// AssignBestOfficer gives an unassigned complaint to the Active officer of
// departmentID with the fewest active complaints; the lowest officer id wins
// a tie. The officer rows and the complaint are locked for the whole
// decision, so concurrent calls for one department serialize. Any storage
// failure rolls the attempt back and is returned.
func (s *Service) AssignBestOfficer(ctx context.Context, complaintID, departmentID uint) (Outcome, error) {
	var (
		outcome   Outcome
		officer   *models.Officer
		complaint *models.Complaint
		event     *models.TimelineEvent
	)

	err := s.store.Transaction(ctx, func(tx storage.Storage) error {
		c, err := tx.LockComplaint(ctx, complaintID)
		if err != nil {
			return err
		}
		if c.IsAssigned() {
			outcome = OutcomeAlreadyAssigned
			return nil
		}

		officers, err := tx.LockActiveOfficers(ctx, departmentID)
		if err != nil {
			return err
		}
		if len(officers) == 0 {
			outcome = OutcomeNoOfficer
			return nil
		}
		best, err := leastLoaded(ctx, tx, officers)
		if err != nil {
			return err
		}

		now := s.now()
		c.AssignedOfficerID = &best.ID
		c.ApplySLA(now)
		if c.Status == models.StatusNew {
			c.Status = models.StatusAssigned
		}
		if err := tx.SaveComplaint(ctx, c); err != nil {
			return err
		}

		ev := &models.TimelineEvent{
			ComplaintID:     c.ID,
			Status:          models.TagAssigned,
			Timestamp:       now,
			UpdatedBy:       models.ActorSystem,
			Remarks:         autoAssignRemarks,
			IsPublicVisible: true,
		}
		inserted, err := tx.InsertTimelineEvent(ctx, ev)
		if err != nil {
			return err
		}
		if inserted {
			event = ev
		}

		outcome, officer, complaint = OutcomeAssigned, best, c
		return nil
	})
	if err != nil {
		s.logger.Error("auto-assignment rolled back",
			"complaint_id", complaintID, "department_id", departmentID, "error", err)
		return "", err
	}

	switch outcome {
	case OutcomeAssigned:
		s.logger.Info("complaint auto-assigned",
			"complaint_id", complaintID, "officer_id", officer.ID, "sla_hours", complaint.SLAHours)
		s.changed(ctx, complaintID)
		s.publish(ctx, event)
		s.notify(ctx, officer, complaint)
	case OutcomeNoOfficer:
		s.logger.Info("no active officer in department", "complaint_id", complaintID, "department_id", departmentID)
	case OutcomeAlreadyAssigned:
		s.logger.Info("complaint already assigned", "complaint_id", complaintID)
	}
	return outcome, nil
}

func leastLoaded(ctx context.Context, tx storage.Storage, officers []models.Officer) (*models.Officer, error) {
	ids := make([]uint, len(officers))
	for i := range officers {
		ids[i] = officers[i].ID
	}
	loads, err := tx.ActiveLoads(ctx, ids)
	if err != nil {
		return nil, err
	}

	best := &officers[0]
	for i := 1; i < len(officers); i++ {
		if loads[officers[i].ID] < loads[best.ID] {
			best = &officers[i]
		}
	}
	return best, nil
}

type AssignCommand struct {
	ComplaintID uint            `json:"complaint_id" validate:"required"`
	OfficerID   uint            `json:"officer_id" validate:"required"`
	AdminID     uint            `json:"admin_id" validate:"required"`
	Priority    models.Priority `json:"priority" validate:"omitempty,oneof=Critical High Medium Low"`
}

// Assign gives an unassigned complaint to a chosen Active officer. An
// optional priority override is applied before the SLA window is computed.
func (s *Service) Assign(ctx context.Context, cmd AssignCommand) (*models.Complaint, error) {
	if err := validation.Struct(cmd); err != nil {
		return nil, err
	}

	var (
		officer   *models.Officer
		complaint *models.Complaint
		event     *models.TimelineEvent
	)
	err := s.store.Transaction(ctx, func(tx storage.Storage) error {
		c, err := tx.LockComplaint(ctx, cmd.ComplaintID)
		if err != nil {
			return err
		}
		if c.IsArchived {
			return apperrors.NewPreconditionError("complaint is archived")
		}
		if c.IsAssigned() {
			return apperrors.NewPreconditionError("complaint is already assigned, use reassign instead")
		}
		o, err := activeOfficer(ctx, tx, cmd.OfficerID)
		if err != nil {
			return err
		}

		now := s.now()
		if cmd.Priority != "" {
			c.Priority = cmd.Priority
		}
		c.AssignedOfficerID = &o.ID
		c.AssignedByAdminID = &cmd.AdminID
		c.ApplySLA(now)
		if c.Status == models.StatusNew {
			c.Status = models.StatusAssigned
		}
		if err := tx.SaveComplaint(ctx, c); err != nil {
			return err
		}

		ev := &models.TimelineEvent{
			ComplaintID:     c.ID,
			Status:          models.TagAssigned,
			Timestamp:       now,
			UpdatedBy:       models.ActorAdmin,
			Remarks:         fmt.Sprintf("Assigned to %s (%s)", o.Name, o.Designation),
			IsPublicVisible: true,
		}
		inserted, err := tx.InsertTimelineEvent(ctx, ev)
		if err != nil {
			return err
		}
		if inserted {
			event = ev
		}

		if err := tx.AppendAudit(ctx, adminAudit(cmd.AdminID,
			fmt.Sprintf("Assigned complaint #%d to officer %s", c.ID, o.EmployeeID), c.ID,
			datatypes.JSONMap{"officer_id": o.ID, "priority": string(c.Priority), "sla_hours": c.SLAHours},
		)); err != nil {
			return err
		}

		officer, complaint = o, c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("complaint assigned by admin",
		"complaint_id", complaint.ID, "officer_id", officer.ID, "admin_id", cmd.AdminID)
	s.changed(ctx, complaint.ID)
	s.publish(ctx, event)
	s.notify(ctx, officer, complaint)
	return complaint, nil
}

type ReassignCommand struct {
	ComplaintID  uint   `json:"complaint_id" validate:"required"`
	NewOfficerID uint   `json:"new_officer_id" validate:"required"`
	AdminID      uint   `json:"admin_id" validate:"required"`
	Reason       string `json:"reason" validate:"min=10"`
}

// Reassign moves an assigned, still open complaint to another Active
// officer. The SLA window restarts at the moment of reassignment.
func (s *Service) Reassign(ctx context.Context, cmd ReassignCommand) (*models.Complaint, error) {
	cmd.Reason = strings.TrimSpace(cmd.Reason)
	if err := validation.Struct(cmd); err != nil {
		return nil, err
	}

	var (
		officer   *models.Officer
		complaint *models.Complaint
	)
	err := s.store.Transaction(ctx, func(tx storage.Storage) error {
		c, err := tx.LockComplaint(ctx, cmd.ComplaintID)
		if err != nil {
			return err
		}
		if c.IsArchived {
			return apperrors.NewPreconditionError("complaint is archived")
		}
		if c.Status.IsTerminal() {
			return apperrors.NewPreconditionError(fmt.Sprintf("complaint is already %s", c.Status))
		}
		if !c.IsAssigned() {
			return apperrors.NewPreconditionError("complaint is not assigned yet, use assign instead")
		}
		if *c.AssignedOfficerID == cmd.NewOfficerID {
			return apperrors.NewValidationError("complaint is already assigned to this officer")
		}
		o, err := activeOfficer(ctx, tx, cmd.NewOfficerID)
		if err != nil {
			return err
		}

		now := s.now()
		previous := *c.AssignedOfficerID
		c.PreviousOfficerID = &previous
		c.AssignedOfficerID = &o.ID
		c.AssignedByAdminID = &cmd.AdminID
		c.ReassignmentReason = cmd.Reason
		c.ReassignmentCount++
		c.ApplySLA(now)
		if err := tx.SaveComplaint(ctx, c); err != nil {
			return err
		}

		// The complaint already carries an ASSIGNED event, so this insert is
		// normally a no-op; the audit entry keeps the history.
		if _, err := tx.InsertTimelineEvent(ctx, &models.TimelineEvent{
			ComplaintID:     c.ID,
			Status:          models.TagAssigned,
			Timestamp:       now,
			UpdatedBy:       models.ActorAdmin,
			Remarks:         fmt.Sprintf("Reassigned to %s. Reason: %s", o.Name, cmd.Reason),
			IsPublicVisible: true,
		}); err != nil {
			return err
		}

		if err := tx.AppendAudit(ctx, adminAudit(cmd.AdminID,
			fmt.Sprintf("Reassigned complaint #%d to officer %s", c.ID, o.EmployeeID), c.ID,
			datatypes.JSONMap{
				"previous_officer_id": previous,
				"new_officer_id":      o.ID,
				"reason":              cmd.Reason,
				"reassignment_count":  c.ReassignmentCount,
			},
		)); err != nil {
			return err
		}

		officer, complaint = o, c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("complaint reassigned",
		"complaint_id", complaint.ID, "officer_id", officer.ID, "count", complaint.ReassignmentCount)
	s.changed(ctx, complaint.ID)
	s.notify(ctx, officer, complaint)
	return complaint, nil
}

// ChangePriority edits the priority only. The running SLA deadline is kept.
func (s *Service) ChangePriority(ctx context.Context, complaintID uint, priority models.Priority, adminID uint) (*models.Complaint, error) {
	if !priority.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown priority %q", priority))
	}

	var complaint *models.Complaint
	err := s.store.Transaction(ctx, func(tx storage.Storage) error {
		c, err := tx.LockComplaint(ctx, complaintID)
		if err != nil {
			return err
		}
		old := c.Priority
		c.Priority = priority
		if err := tx.SaveComplaint(ctx, c); err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, adminAudit(adminID,
			fmt.Sprintf("Changed priority of complaint #%d from %s to %s", c.ID, old, priority), c.ID,
			datatypes.JSONMap{"from": string(old), "to": string(priority)},
		)); err != nil {
			return err
		}
		complaint = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.changed(ctx, complaint.ID)
	return complaint, nil
}

func activeOfficer(ctx context.Context, tx storage.Storage, id uint) (*models.Officer, error) {
	o, err := tx.GetOfficer(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.IsActive() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("officer %s is %s", o.EmployeeID, o.Status))
	}
	return o, nil
}

func adminAudit(adminID uint, action string, complaintID uint, details datatypes.JSONMap) *models.AuditLog {
	return &models.AuditLog{
		ActorRole:      models.ActorAdmin,
		ActorID:        &adminID,
		Action:         action,
		TargetResource: "complaint",
		TargetID:       complaintID,
		Details:        details,
	}
}

func (s *Service) changed(ctx context.Context, complaintID uint) {
	if s.listener != nil {
		s.listener.ComplaintChanged(ctx, complaintID)
	}
}

func (s *Service) publish(ctx context.Context, ev *models.TimelineEvent) {
	if ev == nil {
		return
	}
	if err := s.store.PublishTimeline(ctx, models.NewTimelineMessage(ev)); err != nil {
		s.logger.Warn("timeline publish failed", "complaint_id", ev.ComplaintID, "error", err)
	}
}

func (s *Service) notify(ctx context.Context, o *models.Officer, c *models.Complaint) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.OfficerAssigned(ctx, o, c); err != nil {
		s.logger.Warn("officer notification failed", "officer_id", o.ID, "complaint_id", c.ID, "error", err)
	}
}
