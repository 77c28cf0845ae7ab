package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"grievance/backend/internal/models"
)

// ComplaintFilter narrows ListComplaints. Zero fields do not filter.
type ComplaintFilter struct {
	UserID     *uint
	OfficerID  *uint
	Archived   *bool
	Unassigned bool
	// BreachedAt selects complaints whose SLA is breached at that instant,
	// frozen or live.
	BreachedAt *time.Time
	Limit      int
	Offset     int
}

func (s *Service) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	return mapError(s.db(ctx).Create(c).Error, "complaint")
}

func (s *Service) SaveComplaint(ctx context.Context, c *models.Complaint) error {
	return mapError(s.db(ctx).Save(c).Error, "complaint")
}

func (s *Service) GetComplaint(ctx context.Context, id uint) (*models.Complaint, error) {
	var c models.Complaint
	if err := s.db(ctx).First(&c, id).Error; err != nil {
		return nil, mapError(err, "complaint")
	}
	return &c, nil
}

func (s *Service) GetComplaintByPublicID(ctx context.Context, publicID string) (*models.Complaint, error) {
	var c models.Complaint
	if err := s.db(ctx).Where("public_id = ?", publicID).First(&c).Error; err != nil {
		return nil, mapError(err, "complaint")
	}
	return &c, nil
}

// LockComplaint loads a complaint for update within the current transaction.
func (s *Service) LockComplaint(ctx context.Context, id uint) (*models.Complaint, error) {
	var c models.Complaint
	if err := s.forUpdate(s.db(ctx)).First(&c, id).Error; err != nil {
		return nil, mapError(err, "complaint")
	}
	return &c, nil
}

func (s *Service) ListComplaints(ctx context.Context, f ComplaintFilter) ([]models.Complaint, error) {
	q := s.db(ctx).Model(&models.Complaint{})
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.OfficerID != nil {
		q = q.Where("assigned_officer_id = ?", *f.OfficerID)
	}
	if f.Archived != nil {
		q = q.Where("is_archived = ?", *f.Archived)
	}
	if f.Unassigned {
		q = q.Where("assigned_officer_id IS NULL")
	}
	if f.BreachedAt != nil {
		q = q.Where(
			s.DB.Where("sla_breached = ?", true).
				Or("status IN ? AND sla_deadline IS NOT NULL AND sla_deadline < ?", models.ActiveStatuses, *f.BreachedAt),
		)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var out []models.Complaint
	if err := q.Order("created_at desc, id desc").Find(&out).Error; err != nil {
		return nil, mapError(err, "complaints")
	}
	return out, nil
}

func (s *Service) SetSLABreached(ctx context.Context, id uint, breached bool) error {
	return mapError(s.db(ctx).Model(&models.Complaint{}).
		Where("id = ?", id).
		Update("sla_breached", breached).Error, "complaint")
}

// CountRecentBySubmitter counts complaints filed by userID at or after since.
func (s *Service) CountRecentBySubmitter(ctx context.Context, userID uint, since time.Time) (int64, error) {
	var n int64
	err := s.db(ctx).Model(&models.Complaint{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&n).Error
	return n, mapError(err, "complaints")
}

// HasDescription reports whether userID already filed this exact description.
func (s *Service) HasDescription(ctx context.Context, userID uint, description string) (bool, error) {
	var n int64
	err := s.db(ctx).Model(&models.Complaint{}).
		Where("user_id = ? AND description = ?", userID, description).
		Count(&n).Error
	return n > 0, mapError(err, "complaints")
}

func (s *Service) GetDepartment(ctx context.Context, id uint) (*models.Department, error) {
	var d models.Department
	if err := s.db(ctx).First(&d, id).Error; err != nil {
		return nil, mapError(err, "department")
	}
	return &d, nil
}

// FindDepartmentByName returns nil, nil when no department has exactly name.
func (s *Service) FindDepartmentByName(ctx context.Context, name string) (*models.Department, error) {
	var d models.Department
	err := s.db(ctx).Where("name = ?", name).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err, "department")
	}
	return &d, nil
}

// FindDepartmentByNameFold is FindDepartmentByName ignoring case.
func (s *Service) FindDepartmentByNameFold(ctx context.Context, name string) (*models.Department, error) {
	var d models.Department
	err := s.db(ctx).Where("LOWER(name) = ?", strings.ToLower(name)).Order("id asc").First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err, "department")
	}
	return &d, nil
}

func (s *Service) ListDepartments(ctx context.Context) ([]models.Department, error) {
	var out []models.Department
	if err := s.db(ctx).Order("id asc").Find(&out).Error; err != nil {
		return nil, mapError(err, "departments")
	}
	return out, nil
}

// CreateDepartmentIfNotExists inserts d unless a department with the same name
// exists, and reports whether a row was created.
func (s *Service) CreateDepartmentIfNotExists(ctx context.Context, d *models.Department) (bool, error) {
	res := s.db(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(d)
	if res.Error != nil {
		return false, mapError(res.Error, "department")
	}
	return res.RowsAffected > 0, nil
}

// OfficerFilter narrows ListOfficers. Zero fields do not filter.
type OfficerFilter struct {
	DepartmentID uint
	Ward         string
	Status       models.OfficerStatus
}

func (s *Service) ListOfficers(ctx context.Context, f OfficerFilter) ([]models.Officer, error) {
	q := s.db(ctx).Model(&models.Officer{})
	if f.DepartmentID != 0 {
		q = q.Where("department_id = ?", f.DepartmentID)
	}
	if f.Ward != "" {
		q = q.Where("ward = ?", f.Ward)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var out []models.Officer
	if err := q.Order("id asc").Find(&out).Error; err != nil {
		return nil, mapError(err, "officers")
	}
	return out, nil
}

func (s *Service) GetOfficer(ctx context.Context, id uint) (*models.Officer, error) {
	var o models.Officer
	if err := s.db(ctx).First(&o, id).Error; err != nil {
		return nil, mapError(err, "officer")
	}
	return &o, nil
}

// LockActiveOfficers returns the department's Active officers ordered by id,
// locked for update within the current transaction.
func (s *Service) LockActiveOfficers(ctx context.Context, departmentID uint) ([]models.Officer, error) {
	var out []models.Officer
	err := s.forUpdate(s.db(ctx)).
		Where("department_id = ? AND status = ?", departmentID, models.OfficerActive).
		Order("id asc").
		Find(&out).Error
	if err != nil {
		return nil, mapError(err, "officers")
	}
	return out, nil
}

// ActiveLoads counts complaints in an active status per officer. Officers
// without any are absent from the map.
func (s *Service) ActiveLoads(ctx context.Context, officerIDs []uint) (map[uint]int64, error) {
	loads := make(map[uint]int64, len(officerIDs))
	if len(officerIDs) == 0 {
		return loads, nil
	}

	var rows []struct {
		AssignedOfficerID uint
		ActiveLoad        int64
	}
	err := s.db(ctx).Model(&models.Complaint{}).
		Select("assigned_officer_id, COUNT(*) AS active_load").
		Where("assigned_officer_id IN ? AND status IN ?", officerIDs, models.ActiveStatuses).
		Group("assigned_officer_id").
		Scan(&rows).Error
	if err != nil {
		return nil, mapError(err, "officer loads")
	}
	for _, r := range rows {
		loads[r.AssignedOfficerID] = r.ActiveLoad
	}
	return loads, nil
}

func (s *Service) CreateOfficer(ctx context.Context, o *models.Officer) error {
	return mapError(s.db(ctx).Create(o).Error, "officer")
}

func (s *Service) SaveOfficer(ctx context.Context, o *models.Officer) error {
	return mapError(s.db(ctx).Save(o).Error, "officer")
}

func (s *Service) HasTimelineTag(ctx context.Context, complaintID uint, tag models.TimelineTag) (bool, error) {
	var n int64
	err := s.db(ctx).Model(&models.TimelineEvent{}).
		Where("complaint_id = ? AND status = ?", complaintID, tag).
		Count(&n).Error
	return n > 0, mapError(err, "timeline")
}

// InsertTimelineEvent stores ev unless the complaint already has an event
// with the same tag. It reports whether ev was stored.
func (s *Service) InsertTimelineEvent(ctx context.Context, ev *models.TimelineEvent) (bool, error) {
	res := s.db(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "complaint_id"}, {Name: "status"}},
			DoNothing: true,
		}).
		Create(ev)
	if res.Error != nil {
		return false, mapError(res.Error, "timeline event")
	}
	return res.RowsAffected > 0, nil
}

func (s *Service) ListTimeline(ctx context.Context, complaintID uint) ([]models.TimelineEvent, error) {
	var out []models.TimelineEvent
	err := s.db(ctx).
		Where("complaint_id = ?", complaintID).
		Order(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: clause.Column{Name: "timestamp"}},
			{Column: clause.Column{Name: "id"}},
		}}).
		Find(&out).Error
	if err != nil {
		return nil, mapError(err, "timeline")
	}
	return out, nil
}

func (s *Service) AppendAudit(ctx context.Context, entry *models.AuditLog) error {
	return mapError(s.db(ctx).Create(entry).Error, "audit log")
}

// InsertFeedbackOnce stores fb unless the complaint already has feedback.
func (s *Service) InsertFeedbackOnce(ctx context.Context, fb *models.CitizenFeedback) (bool, error) {
	res := s.db(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "complaint_id"}}, DoNothing: true}).
		Create(fb)
	if res.Error != nil {
		return false, mapError(res.Error, "feedback")
	}
	return res.RowsAffected > 0, nil
}

// GetSummary returns nil, nil when no summary is cached for the complaint.
func (s *Service) GetSummary(ctx context.Context, complaintID uint) (*models.ComplaintSummary, error) {
	var sum models.ComplaintSummary
	err := s.db(ctx).Where("complaint_id = ?", complaintID).First(&sum).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err, "summary")
	}
	return &sum, nil
}

func (s *Service) UpsertSummary(ctx context.Context, sum *models.ComplaintSummary) error {
	return mapError(s.db(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "complaint_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"summary_text", "content_hash", "source", "generated_at"}),
		}).
		Create(sum).Error, "summary")
}
