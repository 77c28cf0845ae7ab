package complaint

import (
	"context"
	"time"

	"grievance/backend/internal/cache"
	"grievance/backend/internal/models"
)

// PublicEvent is a timeline entry as shown on the tracking page.
type PublicEvent struct {
	Status    models.TimelineTag `json:"status"`
	UpdatedBy models.ActorRole   `json:"updated_by"`
	Remarks   string             `json:"remarks,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// PublicStatus is what anyone holding a tracking code may see.
type PublicStatus struct {
	PublicID    string          `json:"public_id"`
	Category    string          `json:"category"`
	Priority    models.Priority `json:"priority"`
	Status      models.Status   `json:"status"`
	IsArchived  bool            `json:"is_archived"`
	SLADeadline *time.Time      `json:"sla_deadline,omitempty"`
	SLABreached bool            `json:"sla_breached"`
	FiledAt     time.Time       `json:"filed_at"`
	Timeline    []PublicEvent   `json:"timeline"`
}

// WithPublicCache serves PublicStatus through c for ttl.
func (s *Service) WithPublicCache(c cache.Cache, ttl time.Duration) *Service {
	s.publicCache, s.publicTTL = c, ttl
	return s
}

// PublicStatus looks a complaint up by tracking code. Internal timeline
// events are left out.
func (s *Service) PublicStatus(ctx context.Context, publicID string) (*PublicStatus, error) {
	if s.publicCache == nil || s.publicTTL <= 0 {
		return s.publicStatus(ctx, publicID)
	}
	st, err := cache.GetOrComputeJSON(ctx, s.publicCache, publicStatusKey(publicID), s.publicTTL,
		func(ctx context.Context) (*PublicStatus, error) { return s.publicStatus(ctx, publicID) })
	if err != nil {
		return nil, err
	}
	return st, nil
}

// ComplaintChanged drops the cached public status of a complaint.
func (s *Service) ComplaintChanged(ctx context.Context, complaintID uint) {
	if s.publicCache == nil {
		return
	}
	c, err := s.store.GetComplaint(ctx, complaintID)
	if err != nil {
		s.logger.Warn("public status invalidation failed", "complaint_id", complaintID, "error", err)
		return
	}
	if err := s.publicCache.Delete(ctx, publicStatusKey(c.PublicID)); err != nil {
		s.logger.Warn("public status invalidation failed", "complaint_id", complaintID, "error", err)
	}
}

func publicStatusKey(publicID string) string {
	return "public:status:" + publicID
}

func (s *Service) publicStatus(ctx context.Context, publicID string) (*PublicStatus, error) {
	c, err := s.store.GetComplaintByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	s.refresh(ctx, c)

	events, err := s.store.ListTimeline(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	timeline := make([]PublicEvent, 0, len(events))
	for _, ev := range events {
		if !ev.IsPublicVisible {
			continue
		}
		timeline = append(timeline, PublicEvent{
			Status:    ev.Status,
			UpdatedBy: ev.UpdatedBy,
			Remarks:   ev.Remarks,
			Timestamp: ev.Timestamp,
		})
	}

	return &PublicStatus{
		PublicID:    c.PublicID,
		Category:    c.Category,
		Priority:    c.Priority,
		Status:      c.Status,
		IsArchived:  c.IsArchived,
		SLADeadline: c.SLADeadline,
		SLABreached: c.SLABreached,
		FiledAt:     c.CreatedAt,
		Timeline:    timeline,
	}, nil
}
