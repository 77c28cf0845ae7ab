package models

import (
	"time"

	"gorm.io/datatypes"
)

// TimelineEvent is one step of a complaint's public history. The composite
// unique index makes each tag appear at most once per complaint.
type TimelineEvent struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	ComplaintID uint        `gorm:"not null;uniqueIndex:uix_timeline_complaint_status" json:"complaint_id"`
	Status      TimelineTag `gorm:"size:32;not null;uniqueIndex:uix_timeline_complaint_status" json:"status"`
	Timestamp   time.Time   `gorm:"not null" json:"timestamp"`
	UpdatedBy   ActorRole   `gorm:"size:16;not null" json:"updated_by"`
	Remarks     string      `gorm:"type:text" json:"remarks,omitempty"`
	// IsPublicVisible controls whether the event appears on the public
	// tracking page.
	IsPublicVisible bool `json:"is_public_visible"`
}

func (TimelineEvent) TableName() string {
	return "grievance_timeline"
}

// AuditLog is an append-only record of an administrative or closing action.
type AuditLog struct {
	ID             uint              `gorm:"primaryKey" json:"id"`
	ActorRole      ActorRole         `gorm:"size:16;not null" json:"actor_role"`
	ActorID        *uint             `json:"actor_id,omitempty"`
	Action         string            `gorm:"type:text;not null" json:"action"`
	TargetResource string            `gorm:"size:32;not null;index:idx_audit_target" json:"target_resource"`
	TargetID       uint              `gorm:"index:idx_audit_target" json:"target_id"`
	Details        datatypes.JSONMap `json:"details,omitempty"`
	CreatedAt      time.Time         `gorm:"index" json:"created_at"`
}

// CitizenFeedback is the rating left when a citizen confirms a resolution.
// Only the first submission per complaint is kept.
type CitizenFeedback struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ComplaintID uint      `gorm:"not null;uniqueIndex" json:"complaint_id"`
	Rating      int       `gorm:"not null" json:"rating"`
	Comment     string    `gorm:"type:text" json:"comment,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ComplaintSummary caches the generated summary of a complaint. ContentHash
// covers title and description so edits invalidate it.
type ComplaintSummary struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ComplaintID uint      `gorm:"not null;uniqueIndex" json:"complaint_id"`
	SummaryText string    `gorm:"type:text;not null" json:"summary_text"`
	ContentHash string    `gorm:"size:64;not null;index" json:"content_hash"`
	Source      string    `gorm:"size:16" json:"source"`
	GeneratedAt time.Time `json:"generated_at"`
}

// All returns every persisted model in migration order.
func All() []any {
	return []any{
		&Department{},
		&Officer{},
		&Complaint{},
		&TimelineEvent{},
		&AuditLog{},
		&CitizenFeedback{},
		&ComplaintSummary{},
	}
}
