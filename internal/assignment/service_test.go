package assignment_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"grievance/backend/internal/apperrors"
	"grievance/backend/internal/assignment"
	"grievance/backend/internal/logger"
	"grievance/backend/internal/models"
	"grievance/backend/internal/storage"
	"grievance/backend/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) OfficerAssigned(ctx context.Context, officer *models.Officer, c *models.Complaint) error {
	args := m.Called(ctx, officer, c)
	return args.Error(0)
}

var fixedNow = time.Date(2026, 6, 1, 8, 30, 0, 0, time.UTC)

func newService(s *storage.Service, n assignment.Notifier) *assignment.Service {
	return assignment.NewService(s, n, logger.Discard()).WithClock(func() time.Time { return fixedNow })
}

func TestAssignBestOfficer_PicksLeastLoaded(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	dept := storagetest.Department(t, s, "Water Supply & Sewerage Board")
	a := storagetest.Officer(t, s, dept.ID, "A", models.OfficerActive)
	b := storagetest.Officer(t, s, dept.ID, "B", models.OfficerActive)
	c := storagetest.Officer(t, s, dept.ID, "C", models.OfficerActive)
	storagetest.ActiveLoad(t, s, a.ID, 3)
	storagetest.ActiveLoad(t, s, c.ID, 5)
	complaint := storagetest.Complaint(t, s, 1, func(c *models.Complaint) {
		c.Priority = models.PriorityHigh
		c.DepartmentID = &dept.ID
	})

	n := new(MockNotifier)
	n.On("OfficerAssigned", mock.Anything, mock.MatchedBy(func(o *models.Officer) bool { return o.ID == b.ID }), mock.Anything).Return(nil)

	outcome, err := newService(s, n).AssignBestOfficer(ctx, complaint.ID, dept.ID)

	require.NoError(t, err)
	assert.Equal(t, assignment.OutcomeAssigned, outcome)
	stored, err := s.GetComplaint(ctx, complaint.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AssignedOfficerID)
	assert.Equal(t, b.ID, *stored.AssignedOfficerID)
	assert.Equal(t, models.StatusAssigned, stored.Status)
	assert.Equal(t, 48, stored.SLAHours)
	require.NotNil(t, stored.SLADeadline)
	assert.True(t, fixedNow.Add(48*time.Hour).Equal(*stored.SLADeadline))

	events, err := s.ListTimeline(ctx, complaint.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.TagAssigned, events[0].Status)
	assert.Equal(t, models.ActorSystem, events[0].UpdatedBy)
	assert.Equal(t, "Automatically assigned to department officer", events[0].Remarks)
	n.AssertExpectations(t)
}

func TestAssignBestOfficer_TieGoesToFirstOfficer(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	dept := storagetest.Department(t, s, "Electricity Department")
	first := storagetest.Officer(t, s, dept.ID, "A", models.OfficerActive)
	storagetest.Officer(t, s, dept.ID, "B", models.OfficerActive)
	complaint := storagetest.Complaint(t, s, 1, nil)

	outcome, err := newService(s, nil).AssignBestOfficer(ctx, complaint.ID, dept.ID)

	require.NoError(t, err)
	assert.Equal(t, assignment.OutcomeAssigned, outcome)
	stored, _ := s.GetComplaint(ctx, complaint.ID)
	assert.Equal(t, first.ID, *stored.AssignedOfficerID)
}

func TestAssignBestOfficer_IgnoresInactiveAndClosedLoad(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	dept := storagetest.Department(t, s, "Electricity Department")
	storagetest.Officer(t, s, dept.ID, "LEAVE", models.OfficerOnLeave)
	busy := storagetest.Officer(t, s, dept.ID, "BUSY", models.OfficerActive)
	free := storagetest.Officer(t, s, dept.ID, "FREE", models.OfficerActive)
	storagetest.ActiveLoad(t, s, busy.ID, 1)
	for i := 0; i < 4; i++ {
		storagetest.Complaint(t, s, 50, func(c *models.Complaint) {
			c.AssignedOfficerID = &free.ID
			c.Status = models.StatusResolved
			c.Description = "closed " + string(rune('a'+i))
		})
	}
	complaint := storagetest.Complaint(t, s, 1, nil)

	_, err := newService(s, nil).AssignBestOfficer(ctx, complaint.ID, dept.ID)

	require.NoError(t, err)
	stored, _ := s.GetComplaint(ctx, complaint.ID)
	assert.Equal(t, free.ID, *stored.AssignedOfficerID)
}

func TestAssignBestOfficer_NoOfficer(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	dept := storagetest.Department(t, s, "Town Planning Department")
	storagetest.Officer(t, s, dept.ID, "S", models.OfficerSuspended)
	complaint := storagetest.Complaint(t, s, 1, nil)

	outcome, err := newService(s, nil).AssignBestOfficer(ctx, complaint.ID, dept.ID)

	require.NoError(t, err)
	assert.Equal(t, assignment.OutcomeNoOfficer, outcome)
	stored, _ := s.GetComplaint(ctx, complaint.ID)
	assert.Nil(t, stored.AssignedOfficerID)
	assert.Equal(t, models.StatusNew, stored.Status)
}

func TestAssignBestOfficer_AlreadyAssigned(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	dept := storagetest.Department(t, s, "Electricity Department")
	o := storagetest.Officer(t, s, dept.ID, "A", models.OfficerActive)
	other := storagetest.Officer(t, s, dept.ID, "B", models.OfficerActive)
	complaint := storagetest.Complaint(t, s, 1, func(c *models.Complaint) {
		c.AssignedOfficerID = &other.ID
		c.Status = models.StatusAssigned
	})

	outcome, err := newService(s, nil).AssignBestOfficer(ctx, complaint.ID, dept.ID)

	require.NoError(t, err)
	assert.Equal(t, assignment.OutcomeAlreadyAssigned, outcome)
	stored, _ := s.GetComplaint(ctx, complaint.ID)
	assert.Equal(t, other.ID, *stored.AssignedOfficerID)
	assert.NotEqual(t, o.ID, *stored.AssignedOfficerID)
}

func TestAssignBestOfficer_RollsBackOnFailure(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	dept := storagetest.Department(t, s, "Electricity Department")
	storagetest.Officer(t, s, dept.ID, "A", models.OfficerActive)
	complaint := storagetest.Complaint(t, s, 1, nil)
	require.NoError(t, s.DB.Migrator().DropTable(&models.TimelineEvent{}))

	_, err := newService(s, nil).AssignBestOfficer(ctx, complaint.ID, dept.ID)

	require.Error(t, err)
	stored, err := s.GetComplaint(ctx, complaint.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.AssignedOfficerID)
	assert.Equal(t, models.StatusNew, stored.Status)
	assert.Nil(t, stored.SLADeadline)
}

func TestAssignBestOfficer_ConcurrentCallsBalance(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	dept := storagetest.Department(t, s, "Sanitation & Waste Management Department")
	a := storagetest.Officer(t, s, dept.ID, "A", models.OfficerActive)
	b := storagetest.Officer(t, s, dept.ID, "B", models.OfficerActive)
	svc := newService(s, nil)

	var ids []uint
	for i := 0; i < 10; i++ {
		c := storagetest.Complaint(t, s, uint(100+i), nil)
		ids = append(ids, c.ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			_, err := svc.AssignBestOfficer(ctx, id, dept.ID)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	loads, err := s.ActiveLoads(ctx, []uint{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(5), loads[a.ID])
	assert.Equal(t, int64(5), loads[b.ID])
}

func TestAssign(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	dept := storagetest.Department(t, s, "Electricity Department")
	active := storagetest.Officer(t, s, dept.ID, "A", models.OfficerActive)
	onLeave := storagetest.Officer(t, s, dept.ID, "L", models.OfficerOnLeave)

	t.Run("officer on leave", func(t *testing.T) {
		c := storagetest.Complaint(t, s, 1, nil)

		_, err := newService(s, nil).Assign(ctx, assignment.AssignCommand{ComplaintID: c.ID, OfficerID: onLeave.ID, AdminID: 9})

		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("missing officer", func(t *testing.T) {
		c := storagetest.Complaint(t, s, 2, nil)

		_, err := newService(s, nil).Assign(ctx, assignment.AssignCommand{ComplaintID: c.ID, OfficerID: 999, AdminID: 9})

		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("priority override drives the SLA", func(t *testing.T) {
		c := storagetest.Complaint(t, s, 3, func(c *models.Complaint) { c.Priority = models.PriorityLow })

		got, err := newService(s, nil).Assign(ctx, assignment.AssignCommand{
			ComplaintID: c.ID, OfficerID: active.ID, AdminID: 9, Priority: models.PriorityCritical,
		})

		require.NoError(t, err)
		assert.Equal(t, models.PriorityCritical, got.Priority)
		assert.Equal(t, 24, got.SLAHours)
		assert.True(t, fixedNow.Add(24*time.Hour).Equal(*got.SLADeadline))
		assert.Equal(t, uint(9), *got.AssignedByAdminID)

		var audit models.AuditLog
		require.NoError(t, s.DB.Where("target_id = ? AND target_resource = ?", c.ID, "complaint").First(&audit).Error)
		assert.Equal(t, models.ActorAdmin, audit.ActorRole)
		assert.Contains(t, audit.Action, "Assigned complaint")
	})

	t.Run("already assigned", func(t *testing.T) {
		c := storagetest.Complaint(t, s, 4, func(c *models.Complaint) { c.AssignedOfficerID = &active.ID })

		_, err := newService(s, nil).Assign(ctx, assignment.AssignCommand{ComplaintID: c.ID, OfficerID: active.ID, AdminID: 9})

		assert.True(t, apperrors.IsPrecondition(err))
	})

	t.Run("bad priority", func(t *testing.T) {
		c := storagetest.Complaint(t, s, 5, nil)

		_, err := newService(s, nil).Assign(ctx, assignment.AssignCommand{
			ComplaintID: c.ID, OfficerID: active.ID, AdminID: 9, Priority: "Urgent",
		})

		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestReassign(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	dept := storagetest.Department(t, s, "Electricity Department")
	first := storagetest.Officer(t, s, dept.ID, "A", models.OfficerActive)
	second := storagetest.Officer(t, s, dept.ID, "B", models.OfficerActive)
	suspended := storagetest.Officer(t, s, dept.ID, "S", models.OfficerSuspended)
	earlier := fixedNow.Add(-72 * time.Hour)

	assigned := func(t *testing.T) *models.Complaint {
		return storagetest.Complaint(t, s, 1, func(c *models.Complaint) {
			c.AssignedOfficerID = &first.ID
			c.Status = models.StatusInProgress
			c.Priority = models.PriorityMedium
			c.Description = t.Name()
			c.ApplySLA(earlier)
		})
	}

	t.Run("reason too short", func(t *testing.T) {
		c := assigned(t)

		_, err := newService(s, nil).Reassign(ctx, assignment.ReassignCommand{
			ComplaintID: c.ID, NewOfficerID: second.ID, AdminID: 9, Reason: "short",
		})

		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
		assert.Equal(t, "reason must be at least 10 characters long", apperrors.GetAppError(err).Message)
	})

	t.Run("accepted", func(t *testing.T) {
		c := assigned(t)

		got, err := newService(s, nil).Reassign(ctx, assignment.ReassignCommand{
			ComplaintID: c.ID, NewOfficerID: second.ID, AdminID: 9, Reason: "Officer left",
		})

		require.NoError(t, err)
		assert.Equal(t, second.ID, *got.AssignedOfficerID)
		assert.Equal(t, first.ID, *got.PreviousOfficerID)
		assert.Equal(t, 1, got.ReassignmentCount)
		assert.Equal(t, "Officer left", got.ReassignmentReason)
		assert.Equal(t, models.StatusInProgress, got.Status)
		assert.True(t, fixedNow.Equal(*got.AssignedAt))
		assert.True(t, fixedNow.Add(120*time.Hour).Equal(*got.SLADeadline))

		var n int64
		s.DB.Model(&models.AuditLog{}).Where("target_id = ? AND action LIKE ?", c.ID, "Reassigned%").Count(&n)
		assert.Equal(t, int64(1), n)
	})

	t.Run("target not active", func(t *testing.T) {
		c := assigned(t)

		_, err := newService(s, nil).Reassign(ctx, assignment.ReassignCommand{
			ComplaintID: c.ID, NewOfficerID: suspended.ID, AdminID: 9, Reason: "Needs a specialist",
		})

		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("resolved keeps breach reading", func(t *testing.T) {
		c := storagetest.Complaint(t, s, 1, func(c *models.Complaint) {
			c.AssignedOfficerID = &first.ID
			c.Priority = models.PriorityMedium
			c.Description = t.Name()
			c.ApplySLA(fixedNow.Add(-200 * time.Hour))
			c.Status = models.StatusResolved
			c.SLABreached = true
		})

		_, err := newService(s, nil).Reassign(ctx, assignment.ReassignCommand{
			ComplaintID: c.ID, NewOfficerID: second.ID, AdminID: 9, Reason: "officer transferred out",
		})

		require.Error(t, err)
		assert.True(t, apperrors.IsPrecondition(err))
		stored, err := s.GetComplaint(ctx, c.ID)
		require.NoError(t, err)
		assert.True(t, stored.SLABreached)
		assert.Equal(t, first.ID, *stored.AssignedOfficerID)
		assert.Equal(t, 0, stored.ReassignmentCount)
	})

	t.Run("not assigned yet", func(t *testing.T) {
		c := storagetest.Complaint(t, s, 2, nil)

		_, err := newService(s, nil).Reassign(ctx, assignment.ReassignCommand{
			ComplaintID: c.ID, NewOfficerID: second.ID, AdminID: 9, Reason: "Needs a specialist",
		})

		assert.True(t, apperrors.IsPrecondition(err))
	})
}

func TestChangePriority_KeepsDeadline(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	started := fixedNow.Add(-time.Hour)
	c := storagetest.Complaint(t, s, 1, func(c *models.Complaint) {
		c.Priority = models.PriorityLow
		c.ApplySLA(started)
	})

	got, err := newService(s, nil).ChangePriority(ctx, c.ID, models.PriorityCritical, 9)

	require.NoError(t, err)
	assert.Equal(t, models.PriorityCritical, got.Priority)
	assert.Equal(t, 168, got.SLAHours)
	assert.True(t, started.Add(168*time.Hour).Equal(*got.SLADeadline))

	_, err = newService(s, nil).ChangePriority(ctx, c.ID, "Soon", 9)
	assert.True(t, apperrors.IsValidation(err))
}

func TestNotificationFailureDoesNotFailAssignment(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	dept := storagetest.Department(t, s, "Electricity Department")
	storagetest.Officer(t, s, dept.ID, "A", models.OfficerActive)
	c := storagetest.Complaint(t, s, 1, nil)

	n := new(MockNotifier)
	n.On("OfficerAssigned", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("telegram down"))

	outcome, err := newService(s, n).AssignBestOfficer(ctx, c.ID, dept.ID)

	require.NoError(t, err)
	assert.Equal(t, assignment.OutcomeAssigned, outcome)
	n.AssertNumberOfCalls(t, "OfficerAssigned", 1)
}

func TestRegisterAndUpdateOfficer(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	dept := storagetest.Department(t, s, "Horticulture Department")
	svc := newService(s, nil)

	o, err := svc.RegisterOfficer(ctx, assignment.OfficerInput{
		EmployeeID: "HORT-7", Name: "Asha", DepartmentID: dept.ID,
	}, 9)
	require.NoError(t, err)
	assert.Equal(t, models.OfficerActive, o.Status)

	_, err = svc.RegisterOfficer(ctx, assignment.OfficerInput{EmployeeID: "HORT-7", Name: "Copy", DepartmentID: dept.ID}, 9)
	assert.True(t, apperrors.IsConflict(err))

	_, err = svc.RegisterOfficer(ctx, assignment.OfficerInput{EmployeeID: "X-1", Name: "Nobody", DepartmentID: 999}, 9)
	assert.True(t, apperrors.IsNotFound(err))

	leave := models.OfficerOnLeave
	updated, err := svc.UpdateOfficer(ctx, o.ID, assignment.OfficerUpdate{Status: &leave}, 9)
	require.NoError(t, err)
	assert.Equal(t, models.OfficerOnLeave, updated.Status)

	bogus := models.OfficerStatus("Retired")
	_, err = svc.UpdateOfficer(ctx, o.ID, assignment.OfficerUpdate{Status: &bogus}, 9)
	assert.True(t, apperrors.IsValidation(err))
}
