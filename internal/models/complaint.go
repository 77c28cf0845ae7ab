package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Complaint is a citizen grievance and its routing, assignment and closing
// state.
type Complaint struct {
	ID uint `gorm:"primaryKey" json:"id"`
	// PublicID is the tracking code handed to the citizen.
	PublicID    string `gorm:"size:36;uniqueIndex" json:"public_id"`
	Title       string `gorm:"not null" json:"title"`
	Description string `gorm:"type:text;not null" json:"description"`
	Location    string `json:"location"`

	Category       string   `gorm:"index" json:"category"`
	Priority       Priority `gorm:"size:16;not null" json:"priority"`
	Confidence     float64  `json:"confidence"`
	SentimentScore float64  `json:"sentiment_score"`
	// TrustScore is in [0,1]; TrustFlags name each penalty applied.
	TrustScore float64        `json:"trust_score"`
	TrustFlags pq.StringArray `gorm:"type:text" json:"trust_flags"`

	Status       Status `gorm:"size:32;not null;index" json:"status"`
	UserID       uint   `gorm:"not null;index" json:"user_id"`
	DepartmentID *uint  `gorm:"index" json:"department_id"`

	AssignedOfficerID  *uint      `gorm:"index" json:"assigned_officer_id"`
	AssignedAt         *time.Time `json:"assigned_at"`
	AssignedByAdminID  *uint      `json:"assigned_by_admin_id,omitempty"`
	PreviousOfficerID  *uint      `json:"previous_officer_id,omitempty"`
	ReassignmentReason string     `json:"reassignment_reason,omitempty"`
	ReassignmentCount  int        `gorm:"not null" json:"reassignment_count"`

	SLAHours    int        `json:"sla_hours"`
	SLADeadline *time.Time `gorm:"index" json:"sla_deadline"`
	SLABreached bool       `gorm:"index" json:"sla_breached"`

	IsArchived     bool       `gorm:"index" json:"is_archived"`
	ClosedByRole   ActorRole  `gorm:"size:16" json:"closed_by_role,omitempty"`
	ClosedByUserID *uint      `json:"closed_by_user_id,omitempty"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
	ClosedReason   string     `json:"closed_reason,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a tracking UUID when none is set.
func (c *Complaint) BeforeCreate(tx *gorm.DB) (err error) {
	if c.PublicID == "" {
		c.PublicID = uuid.New().String()
	}
	return
}

// IsAssigned reports whether an officer currently holds the complaint.
func (c *Complaint) IsAssigned() bool {
	return c.AssignedOfficerID != nil
}

// BreachedAt reports whether the SLA deadline has passed at now. Complaints
// without a deadline never breach.
func (c *Complaint) BreachedAt(now time.Time) bool {
	return c.SLADeadline != nil && now.After(*c.SLADeadline)
}

// ApplySLA starts a fresh SLA window at now for the current priority.
func (c *Complaint) ApplySLA(now time.Time) {
	hours := c.Priority.SLAHours()
	deadline := now.Add(time.Duration(hours) * time.Hour)
	c.AssignedAt = &now
	c.SLAHours = hours
	c.SLADeadline = &deadline
	c.SLABreached = false
}
