package models

import "time"

// TimelineMessage is the payload published to live timeline subscribers.
type TimelineMessage struct {
	ComplaintID uint        `json:"complaint_id"`
	Status      TimelineTag `json:"status"`
	UpdatedBy   ActorRole   `json:"updated_by"`
	Remarks     string      `json:"remarks,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
}

// NewTimelineMessage builds the live payload for a stored event.
func NewTimelineMessage(ev *TimelineEvent) TimelineMessage {
	return TimelineMessage{
		ComplaintID: ev.ComplaintID,
		Status:      ev.Status,
		UpdatedBy:   ev.UpdatedBy,
		Remarks:     ev.Remarks,
		Timestamp:   ev.Timestamp,
	}
}
