package models_test

import (
	"reflect"
	"testing"
	"time"

	"grievance/backend/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestComplaintBeforeCreate_GeneratesPublicID verifies that the hook assigns a valid tracking UUID.
func TestComplaintBeforeCreate_GeneratesPublicID(t *testing.T) {
	c := &models.Complaint{
		Title:       "Garbage pile",
		Description: "Garbage not collected for a week",
		TrustFlags:  pq.StringArray{},
	}
	assert.Empty(t, c.PublicID)

	err := c.BeforeCreate(nil)

	assert.NoError(t, err)
	parsed, parseErr := uuid.Parse(c.PublicID)
	assert.NoError(t, parseErr)
	assert.NotEqual(t, uuid.Nil, parsed)
}

// TestComplaintBeforeCreate_PreservesExistingID verifies that the hook doesn't overwrite a set tracking ID.
func TestComplaintBeforeCreate_PreservesExistingID(t *testing.T) {
	existing := uuid.New().String()
	c := &models.Complaint{PublicID: existing}

	require.NoError(t, c.BeforeCreate(nil))

	assert.Equal(t, existing, c.PublicID)
}

func TestComplaintBeforeCreate_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		c := &models.Complaint{}
		require.NoError(t, c.BeforeCreate(nil))
		assert.False(t, seen[c.PublicID], "duplicate tracking ID %s", c.PublicID)
		seen[c.PublicID] = true
	}
}

func TestComplaint_ApplySLA(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		priority  models.Priority
		wantHours int
	}{
		{models.PriorityCritical, 24},
		{models.PriorityHigh, 48},
		{models.PriorityMedium, 120},
		{models.PriorityLow, 168},
		{models.Priority("Unknown"), 120},
	}
	for _, tt := range tests {
		t.Run(string(tt.priority), func(t *testing.T) {
			c := &models.Complaint{Priority: tt.priority, SLABreached: true}

			c.ApplySLA(now)

			assert.Equal(t, tt.wantHours, c.SLAHours)
			require.NotNil(t, c.SLADeadline)
			assert.Equal(t, now.Add(time.Duration(tt.wantHours)*time.Hour), *c.SLADeadline)
			assert.Equal(t, now, *c.AssignedAt)
			assert.False(t, c.SLABreached)
		})
	}
}

func TestComplaint_BreachedAt(t *testing.T) {
	deadline := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	c := &models.Complaint{SLADeadline: &deadline}

	assert.False(t, c.BreachedAt(deadline))
	assert.False(t, c.BreachedAt(deadline.Add(-time.Minute)))
	assert.True(t, c.BreachedAt(deadline.Add(time.Second)))
	assert.False(t, (&models.Complaint{}).BreachedAt(deadline.Add(time.Hour)))
}

func TestStatusSets(t *testing.T) {
	for _, s := range models.ActiveStatuses {
		assert.True(t, s.IsActive())
		assert.False(t, s.IsTerminal())
	}
	for _, s := range []models.Status{models.StatusResolved, models.StatusClosedByCitizen, models.StatusWithdrawnByCitizen} {
		assert.False(t, s.IsActive())
		assert.True(t, s.IsTerminal())
	}
}

// TestTimelineEvent_UniqueIndexTags pins the composite unique index that enforces one event per tag.
func TestTimelineEvent_UniqueIndexTags(t *testing.T) {
	typ := reflect.TypeOf(models.TimelineEvent{})

	complaintField, ok := typ.FieldByName("ComplaintID")
	require.True(t, ok)
	statusField, ok := typ.FieldByName("Status")
	require.True(t, ok)

	assert.Contains(t, complaintField.Tag.Get("gorm"), "uniqueIndex:uix_timeline_complaint_status")
	assert.Contains(t, statusField.Tag.Get("gorm"), "uniqueIndex:uix_timeline_complaint_status")
	assert.Equal(t, "grievance_timeline", models.TimelineEvent{}.TableName())
}

func TestParseTimelineTag(t *testing.T) {
	tests := map[string]models.TimelineTag{
		"visited":      models.TagVisited,
		" In Progress": models.TagInProgress,
		"in-progress":  models.TagInProgress,
		"RESOLVED":     models.TagResolved,
		"closed":       "CLOSED",
	}
	for in, want := range tests {
		assert.Equal(t, want, models.ParseTimelineTag(in), in)
	}
}
