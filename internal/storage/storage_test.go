package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"grievance/backend/internal/apperrors"
	"grievance/backend/internal/models"
	"grievance/backend/internal/storage"
	"grievance/backend/internal/storage/storagetest"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"gorm duplicated key", gorm.ErrDuplicatedKey, true},
		{"postgres 23505", &pgconn.PgError{Code: "23505"}, true},
		{"postgres other", &pgconn.PgError{Code: "23503"}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, storage.IsUniqueViolation(tt.err))
		})
	}
}

func TestGetComplaint_NotFound(t *testing.T) {
	s := storagetest.New(t)

	_, err := s.GetComplaint(context.Background(), 42)

	assert.True(t, apperrors.IsNotFound(err))
}

func TestCreateOfficer_DuplicateEmployeeID(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	dept := storagetest.Department(t, s, "Electricity Department")
	storagetest.Officer(t, s, dept.ID, "EMP-1", models.OfficerActive)

	err := s.CreateOfficer(ctx, &models.Officer{EmployeeID: "EMP-1", Name: "Copy", DepartmentID: dept.ID, Status: models.OfficerActive})

	assert.True(t, apperrors.IsConflict(err))
}

func TestInsertTimelineEvent_OncePerTag(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	c := storagetest.Complaint(t, s, 1, nil)

	first, err := s.InsertTimelineEvent(ctx, &models.TimelineEvent{
		ComplaintID: c.ID, Status: models.TagVisited, Timestamp: time.Now().UTC(), UpdatedBy: models.ActorOfficer,
	})
	require.NoError(t, err)
	second, err := s.InsertTimelineEvent(ctx, &models.TimelineEvent{
		ComplaintID: c.ID, Status: models.TagVisited, Timestamp: time.Now().UTC(), UpdatedBy: models.ActorOfficer,
	})
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
	events, err := s.ListTimeline(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestListTimeline_Ordered(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	c := storagetest.Complaint(t, s, 1, nil)
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	for i, tag := range []models.TimelineTag{models.TagInProgress, models.TagSubmitted, models.TagVisited} {
		_, err := s.InsertTimelineEvent(ctx, &models.TimelineEvent{
			ComplaintID: c.ID, Status: tag, UpdatedBy: models.ActorSystem,
			Timestamp: base.Add(time.Duration([]int{3, 1, 2}[i]) * time.Hour),
		})
		require.NoError(t, err)
	}

	events, err := s.ListTimeline(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, models.TagSubmitted, events[0].Status)
	assert.Equal(t, models.TagVisited, events[1].Status)
	assert.Equal(t, models.TagInProgress, events[2].Status)
}

func TestActiveLoads(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	dept := storagetest.Department(t, s, "Water Supply & Sewerage Board")
	a := storagetest.Officer(t, s, dept.ID, "A", models.OfficerActive)
	b := storagetest.Officer(t, s, dept.ID, "B", models.OfficerActive)
	storagetest.ActiveLoad(t, s, a.ID, 2)
	storagetest.Complaint(t, s, 5, func(c *models.Complaint) {
		c.AssignedOfficerID = &a.ID
		c.Status = models.StatusResolved
	})

	loads, err := s.ActiveLoads(ctx, []uint{a.ID, b.ID})

	require.NoError(t, err)
	assert.Equal(t, int64(2), loads[a.ID])
	assert.Equal(t, int64(0), loads[b.ID])
}

func TestLockActiveOfficers_SkipsInactive(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	dept := storagetest.Department(t, s, "Electricity Department")
	storagetest.Officer(t, s, dept.ID, "A", models.OfficerOnLeave)
	b := storagetest.Officer(t, s, dept.ID, "B", models.OfficerActive)
	storagetest.Officer(t, s, dept.ID, "C", models.OfficerSuspended)

	var officers []models.Officer
	err := s.Transaction(ctx, func(tx storage.Storage) error {
		var err error
		officers, err = tx.LockActiveOfficers(ctx, dept.ID)
		return err
	})

	require.NoError(t, err)
	require.Len(t, officers, 1)
	assert.Equal(t, b.ID, officers[0].ID)
}

func TestTransaction_RollsBack(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	c := storagetest.Complaint(t, s, 1, nil)

	err := s.Transaction(ctx, func(tx storage.Storage) error {
		c.Status = models.StatusAssigned
		if err := tx.SaveComplaint(ctx, c); err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)

	stored, err := s.GetComplaint(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNew, stored.Status)
}

func TestCreateDepartmentIfNotExists(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()

	created, err := s.CreateDepartmentIfNotExists(ctx, &models.Department{Name: "Traffic Engineering Cell"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.CreateDepartmentIfNotExists(ctx, &models.Department{Name: "Traffic Engineering Cell"})
	require.NoError(t, err)
	assert.False(t, created)

	found, err := s.FindDepartmentByNameFold(ctx, "traffic engineering cell")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Traffic Engineering Cell", found.Name)

	missing, err := s.FindDepartmentByName(ctx, "Ministry of Magic")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestInsertFeedbackOnce(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	c := storagetest.Complaint(t, s, 1, nil)

	first, err := s.InsertFeedbackOnce(ctx, &models.CitizenFeedback{ComplaintID: c.ID, Rating: 4})
	require.NoError(t, err)
	second, err := s.InsertFeedbackOnce(ctx, &models.CitizenFeedback{ComplaintID: c.ID, Rating: 1})
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
	var fb models.CitizenFeedback
	require.NoError(t, s.DB.Where("complaint_id = ?", c.ID).First(&fb).Error)
	assert.Equal(t, 4, fb.Rating)
}

func TestUpsertSummary_Replaces(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	c := storagetest.Complaint(t, s, 1, nil)

	require.NoError(t, s.UpsertSummary(ctx, &models.ComplaintSummary{ComplaintID: c.ID, SummaryText: "old", ContentHash: "h1", Source: "rules"}))
	require.NoError(t, s.UpsertSummary(ctx, &models.ComplaintSummary{ComplaintID: c.ID, SummaryText: "new", ContentHash: "h2", Source: "external"}))

	sum, err := s.GetSummary(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, sum)
	assert.Equal(t, "new", sum.SummaryText)
	assert.Equal(t, "h2", sum.ContentHash)
}

func TestListComplaints_Filters(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	officer := uint(7)

	open := storagetest.Complaint(t, s, 1, nil)
	archived := storagetest.Complaint(t, s, 1, func(c *models.Complaint) {
		c.IsArchived = true
		c.Status = models.StatusClosedByCitizen
	})
	overdue := storagetest.Complaint(t, s, 2, func(c *models.Complaint) {
		c.AssignedOfficerID = &officer
		c.Status = models.StatusAssigned
		c.SLADeadline = &past
	})
	storagetest.Complaint(t, s, 2, func(c *models.Complaint) {
		c.AssignedOfficerID = &officer
		c.Status = models.StatusAssigned
		c.SLADeadline = &future
	})
	frozen := storagetest.Complaint(t, s, 3, func(c *models.Complaint) {
		c.Status = models.StatusResolved
		c.SLADeadline = &past
		c.SLABreached = true
	})

	user := uint(1)
	notArchived := false
	mine, err := s.ListComplaints(ctx, storage.ComplaintFilter{UserID: &user, Archived: &notArchived})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, open.ID, mine[0].ID)

	yes := true
	closed, err := s.ListComplaints(ctx, storage.ComplaintFilter{UserID: &user, Archived: &yes})
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, archived.ID, closed[0].ID)

	breached, err := s.ListComplaints(ctx, storage.ComplaintFilter{BreachedAt: &now})
	require.NoError(t, err)
	ids := []uint{}
	for _, c := range breached {
		ids = append(ids, c.ID)
	}
	assert.ElementsMatch(t, []uint{overdue.ID, frozen.ID}, ids)

	assigned, err := s.ListComplaints(ctx, storage.ComplaintFilter{OfficerID: &officer})
	require.NoError(t, err)
	assert.Len(t, assigned, 2)

	unassigned, err := s.ListComplaints(ctx, storage.ComplaintFilter{Unassigned: true})
	require.NoError(t, err)
	assert.Len(t, unassigned, 3)
}

func TestCountRecentAndDuplicates(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	now := time.Now().UTC()

	storagetest.Complaint(t, s, 1, func(c *models.Complaint) {
		c.CreatedAt = now.Add(-2 * time.Hour)
		c.Description = "old one"
	})
	storagetest.Complaint(t, s, 1, func(c *models.Complaint) {
		c.CreatedAt = now.Add(-10 * time.Minute)
		c.Description = "recent one"
	})

	n, err := s.CountRecentBySubmitter(ctx, 1, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	dup, err := s.HasDescription(ctx, 1, "old one")
	require.NoError(t, err)
	assert.True(t, dup)

	dup, err = s.HasDescription(ctx, 2, "old one")
	require.NoError(t, err)
	assert.False(t, dup)
}
