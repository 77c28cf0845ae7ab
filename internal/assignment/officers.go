package assignment

import (
	"context"
	"fmt"

	"gorm.io/datatypes"

	"grievance/backend/internal/apperrors"
	"grievance/backend/internal/models"
	"grievance/backend/internal/storage"
	"grievance/backend/internal/validation"
)

type OfficerInput struct {
	EmployeeID     string               `json:"employee_id" validate:"required,max=64"`
	Name           string               `json:"name" validate:"required"`
	Designation    string               `json:"designation"`
	DepartmentID   uint                 `json:"department_id" validate:"required"`
	Ward           string               `json:"ward"`
	Email          string               `json:"email" validate:"omitempty,email"`
	Phone          string               `json:"phone"`
	TelegramChatID int64                `json:"telegram_chat_id"`
	Status         models.OfficerStatus `json:"status"`
}

// OfficerUpdate holds the fields to change; nil fields are left alone.
type OfficerUpdate struct {
	Name           *string               `json:"name"`
	Designation    *string               `json:"designation"`
	DepartmentID   *uint                 `json:"department_id"`
	Ward           *string               `json:"ward"`
	Email          *string               `json:"email" validate:"omitempty,email"`
	Phone          *string               `json:"phone"`
	TelegramChatID *int64                `json:"telegram_chat_id"`
	Status         *models.OfficerStatus `json:"status"`
}

// RegisterOfficer adds an officer to an existing department. Status
// defaults to Active.
func (s *Service) RegisterOfficer(ctx context.Context, in OfficerInput, adminID uint) (*models.Officer, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = models.OfficerActive
	}
	if !in.Status.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown officer status %q", in.Status))
	}

	o := &models.Officer{
		EmployeeID:     in.EmployeeID,
		Name:           in.Name,
		Designation:    in.Designation,
		DepartmentID:   in.DepartmentID,
		Ward:           in.Ward,
		Status:         in.Status,
		Email:          in.Email,
		Phone:          in.Phone,
		TelegramChatID: in.TelegramChatID,
	}
	err := s.store.Transaction(ctx, func(tx storage.Storage) error {
		if _, err := tx.GetDepartment(ctx, in.DepartmentID); err != nil {
			return err
		}
		if err := tx.CreateOfficer(ctx, o); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, officerAudit(adminID, fmt.Sprintf("Registered officer %s", o.EmployeeID), o.ID,
			datatypes.JSONMap{"department_id": o.DepartmentID, "status": string(o.Status)}))
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("officer registered", "officer_id", o.ID, "employee_id", o.EmployeeID)
	return o, nil
}

// UpdateOfficer changes an officer's details or status. Complaints already
// held by the officer are not moved.
func (s *Service) UpdateOfficer(ctx context.Context, id uint, upd OfficerUpdate, adminID uint) (*models.Officer, error) {
	if err := validation.Struct(upd); err != nil {
		return nil, err
	}
	if upd.Status != nil && !upd.Status.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown officer status %q", *upd.Status))
	}

	var officer *models.Officer
	err := s.store.Transaction(ctx, func(tx storage.Storage) error {
		o, err := tx.GetOfficer(ctx, id)
		if err != nil {
			return err
		}
		changed := datatypes.JSONMap{}
		if upd.Name != nil {
			o.Name = *upd.Name
			changed["name"] = o.Name
		}
		if upd.Designation != nil {
			o.Designation = *upd.Designation
			changed["designation"] = o.Designation
		}
		if upd.DepartmentID != nil {
			if _, err := tx.GetDepartment(ctx, *upd.DepartmentID); err != nil {
				return err
			}
			o.DepartmentID = *upd.DepartmentID
			changed["department_id"] = o.DepartmentID
		}
		if upd.Ward != nil {
			o.Ward = *upd.Ward
			changed["ward"] = o.Ward
		}
		if upd.Email != nil {
			o.Email = *upd.Email
			changed["email"] = o.Email
		}
		if upd.Phone != nil {
			o.Phone = *upd.Phone
			changed["phone"] = o.Phone
		}
		if upd.TelegramChatID != nil {
			o.TelegramChatID = *upd.TelegramChatID
			changed["telegram_chat_id"] = o.TelegramChatID
		}
		if upd.Status != nil {
			o.Status = *upd.Status
			changed["status"] = string(o.Status)
		}
		if err := tx.SaveOfficer(ctx, o); err != nil {
			return err
		}
		officer = o
		return tx.AppendAudit(ctx, officerAudit(adminID, fmt.Sprintf("Updated officer %s", o.EmployeeID), o.ID, changed))
	})
	if err != nil {
		return nil, err
	}
	return officer, nil
}

func officerAudit(adminID uint, action string, officerID uint, details datatypes.JSONMap) *models.AuditLog {
	return &models.AuditLog{
		ActorRole:      models.ActorAdmin,
		ActorID:        &adminID,
		Action:         action,
		TargetResource: "officer",
		TargetID:       officerID,
		Details:        details,
	}
}

// ListOfficers returns officers matching f, ordered by id.
func (s *Service) ListOfficers(ctx context.Context, f storage.OfficerFilter) ([]models.Officer, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown officer status %q", f.Status))
	}
	return s.store.ListOfficers(ctx, f)
}

func (s *Service) ListDepartments(ctx context.Context) ([]models.Department, error) {
	return s.store.ListDepartments(ctx)
}
