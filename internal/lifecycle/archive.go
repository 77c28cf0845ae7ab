package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/datatypes"

	"grievance/backend/internal/apperrors"
	"grievance/backend/internal/models"
	"grievance/backend/internal/storage"
	"grievance/backend/internal/validation"
)

const (
	resolvedReason  = "Resolved"
	withdrawnReason = "Withdrawn"
)

// ArchiveCommand closes a complaint on behalf of the citizen who filed it.
// Rating and Comment are only read when the citizen confirms a resolution.
type ArchiveCommand struct {
	ComplaintID uint   `json:"complaint_id" validate:"required"`
	UserID      uint   `json:"user_id" validate:"required"`
	Rating      *int   `json:"rating" validate:"omitempty,gte=1,lte=5"`
	Comment     string `json:"comment" validate:"max=2000"`
	Reason      string `json:"reason" validate:"max=500"`
}

// ResolveByCitizen archives the complaint as closed by its citizen. Feedback
// is stored when a rating is given; a complaint keeps its first feedback.
func (s *Service) ResolveByCitizen(ctx context.Context, cmd ArchiveCommand) (*models.Complaint, error) {
	if err := validation.Struct(cmd); err != nil {
		return nil, err
	}
	return s.archive(ctx, cmd, archiveKind{
		status:       models.StatusClosedByCitizen,
		reason:       resolvedReason,
		tag:          models.TagVerified,
		remarks:      "Resolution confirmed by citizen",
		action:       "Citizen confirmed resolution",
		keepFeedback: true,
	})
}

// Withdraw archives the complaint as withdrawn by its citizen.
func (s *Service) Withdraw(ctx context.Context, cmd ArchiveCommand) (*models.Complaint, error) {
	cmd.Rating, cmd.Comment = nil, ""
	if err := validation.Struct(cmd); err != nil {
		return nil, err
	}
	remarks := "Withdrawn by citizen"
	if r := strings.TrimSpace(cmd.Reason); r != "" {
		remarks += ": " + r
	}
	return s.archive(ctx, cmd, archiveKind{
		status:  models.StatusWithdrawnByCitizen,
		reason:  withdrawnReason,
		tag:     models.TagWithdrawn,
		remarks: remarks,
		action:  "Citizen withdrew complaint",
	})
}

type archiveKind struct {
	status       models.Status
	reason       string
	tag          models.TimelineTag
	remarks      string
	action       string
	keepFeedback bool
}

func (s *Service) archive(ctx context.Context, cmd ArchiveCommand, kind archiveKind) (*models.Complaint, error) {
	var (
		complaint *models.Complaint
		stored    *models.TimelineEvent
	)
	err := s.store.Transaction(ctx, func(tx storage.Storage) error {
		c, err := tx.LockComplaint(ctx, cmd.ComplaintID)
		if err != nil {
			return err
		}
		if c.UserID != cmd.UserID {
			return apperrors.NewNotFoundError("complaint not found")
		}
		if c.IsArchived {
			return apperrors.NewPreconditionError("complaint is already archived")
		}

		now := s.now()
		freezeBreach(c, now)
		c.IsArchived = true
		c.Status = kind.status
		c.ClosedByRole = models.ActorCitizen
		c.ClosedByUserID = &cmd.UserID
		c.ClosedAt = &now
		c.ClosedReason = kind.reason
		if err := tx.SaveComplaint(ctx, c); err != nil {
			return err
		}

		if kind.keepFeedback && cmd.Rating != nil {
			kept, err := tx.InsertFeedbackOnce(ctx, &models.CitizenFeedback{
				ComplaintID: c.ID,
				Rating:      *cmd.Rating,
				Comment:     strings.TrimSpace(cmd.Comment),
				SubmittedAt: now,
			})
			if err != nil {
				return err
			}
			if !kept {
				s.logger.Info("feedback already recorded, ignoring", "complaint_id", c.ID)
			}
		}

		ev := &models.TimelineEvent{
			ComplaintID:     c.ID,
			Status:          kind.tag,
			Timestamp:       now,
			UpdatedBy:       models.ActorCitizen,
			Remarks:         kind.remarks,
			IsPublicVisible: true,
		}
		inserted, err := tx.InsertTimelineEvent(ctx, ev)
		if err != nil {
			return err
		}
		if inserted {
			stored = ev
		}

		if err := tx.AppendAudit(ctx, &models.AuditLog{
			ActorRole:      models.ActorCitizen,
			ActorID:        &cmd.UserID,
			Action:         fmt.Sprintf("%s #%d", kind.action, c.ID),
			TargetResource: "complaint",
			TargetID:       c.ID,
			Details:        datatypes.JSONMap{"status": string(c.Status), "reason": kind.reason},
		}); err != nil {
			return err
		}

		complaint = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("complaint archived by citizen", "complaint_id", complaint.ID, "status", complaint.Status)
	s.changed(ctx, complaint.ID)
	s.publish(ctx, stored)
	return complaint, nil
}

// Reopen brings an archived complaint back to NEW and clears its closing
// fields. The timeline keeps the closing events.
func (s *Service) Reopen(ctx context.Context, complaintID, adminID uint) (*models.Complaint, error) {
	var (
		complaint *models.Complaint
		stored    *models.TimelineEvent
	)
	err := s.store.Transaction(ctx, func(tx storage.Storage) error {
		c, err := tx.LockComplaint(ctx, complaintID)
		if err != nil {
			return err
		}
		if !c.IsArchived {
			return apperrors.NewPreconditionError("only archived complaints can be reopened")
		}

		previous := c.Status
		c.IsArchived = false
		c.Status = models.StatusNew
		c.ClosedByRole = ""
		c.ClosedByUserID = nil
		c.ClosedAt = nil
		c.ClosedReason = ""
		if err := tx.SaveComplaint(ctx, c); err != nil {
			return err
		}

		now := s.now()
		ev := &models.TimelineEvent{
			ComplaintID:     c.ID,
			Status:          models.TagReopened,
			Timestamp:       now,
			UpdatedBy:       models.ActorAdmin,
			Remarks:         "Reopened by administrator",
			IsPublicVisible: true,
		}
		inserted, err := tx.InsertTimelineEvent(ctx, ev)
		if err != nil {
			return err
		}
		if inserted {
			stored = ev
		}

		if err := tx.AppendAudit(ctx, &models.AuditLog{
			ActorRole:      models.ActorAdmin,
			ActorID:        &adminID,
			Action:         fmt.Sprintf("Reopened complaint #%d", c.ID),
			TargetResource: "complaint",
			TargetID:       c.ID,
			Details:        datatypes.JSONMap{"previous_status": string(previous)},
		}); err != nil {
			return err
		}

		complaint = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("complaint reopened", "complaint_id", complaint.ID, "admin_id", adminID)
	s.changed(ctx, complaint.ID)
	s.publish(ctx, stored)
	return complaint, nil
}
