package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"grievance/backend/internal/models"
)

// Storage is the persistence surface used by the pipeline services. All
// methods on a transaction-scoped Storage run inside that transaction.
type Storage interface {
	Transaction(ctx context.Context, fn func(tx Storage) error) error

	CreateComplaint(ctx context.Context, c *models.Complaint) error
	SaveComplaint(ctx context.Context, c *models.Complaint) error
	GetComplaint(ctx context.Context, id uint) (*models.Complaint, error)
	GetComplaintByPublicID(ctx context.Context, publicID string) (*models.Complaint, error)
	LockComplaint(ctx context.Context, id uint) (*models.Complaint, error)
	ListComplaints(ctx context.Context, f ComplaintFilter) ([]models.Complaint, error)
	SetSLABreached(ctx context.Context, id uint, breached bool) error
	CountRecentBySubmitter(ctx context.Context, userID uint, since time.Time) (int64, error)
	HasDescription(ctx context.Context, userID uint, description string) (bool, error)

	GetDepartment(ctx context.Context, id uint) (*models.Department, error)
	FindDepartmentByName(ctx context.Context, name string) (*models.Department, error)
	FindDepartmentByNameFold(ctx context.Context, name string) (*models.Department, error)
	ListDepartments(ctx context.Context) ([]models.Department, error)
	CreateDepartmentIfNotExists(ctx context.Context, d *models.Department) (bool, error)

	GetOfficer(ctx context.Context, id uint) (*models.Officer, error)
	ListOfficers(ctx context.Context, f OfficerFilter) ([]models.Officer, error)
	LockActiveOfficers(ctx context.Context, departmentID uint) ([]models.Officer, error)
	ActiveLoads(ctx context.Context, officerIDs []uint) (map[uint]int64, error)
	CreateOfficer(ctx context.Context, o *models.Officer) error
	SaveOfficer(ctx context.Context, o *models.Officer) error

	HasTimelineTag(ctx context.Context, complaintID uint, tag models.TimelineTag) (bool, error)
	InsertTimelineEvent(ctx context.Context, ev *models.TimelineEvent) (bool, error)
	ListTimeline(ctx context.Context, complaintID uint) ([]models.TimelineEvent, error)

	AppendAudit(ctx context.Context, entry *models.AuditLog) error
	InsertFeedbackOnce(ctx context.Context, fb *models.CitizenFeedback) (bool, error)
	GetSummary(ctx context.Context, complaintID uint) (*models.ComplaintSummary, error)
	UpsertSummary(ctx context.Context, s *models.ComplaintSummary) error

	PublishTimeline(ctx context.Context, msg models.TimelineMessage) error
}

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// NewStorageService Constructor. rdb may be nil, which disables live
// timeline publishing.
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
	}
}

// Migrate creates or updates every table the pipeline uses.
func (s *Service) Migrate(ctx context.Context) error {
	if err := s.DB.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Transaction runs fn in one database transaction. fn must use tx for every
// query; returning an error rolls back all of its writes.
func (s *Service) Transaction(ctx context.Context, fn func(tx Storage) error) error {
	return s.DB.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&Service{DB: db, Redis: s.Redis})
	})
}

func (s *Service) db(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx)
}

// forUpdate adds row locking on dialects that support SELECT ... FOR UPDATE.
// SQLite serializes writers on its own.
func (s *Service) forUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "postgres" {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

// TimelineChannel is the pub/sub channel for a complaint's live timeline.
func TimelineChannel(complaintID uint) string {
	return fmt.Sprintf("timeline:%d", complaintID)
}

// PublishTimeline sends msg to the complaint's live channel.
func (s *Service) PublishTimeline(ctx context.Context, msg models.TimelineMessage) error {
	if s.Redis == nil {
		return nil
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.Redis.Publish(ctx, TimelineChannel(msg.ComplaintID), payload).Err()
}
