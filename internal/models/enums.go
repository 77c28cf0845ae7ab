package models

import (
	"strings"

	"grievance/backend/internal/config"
)

// Priority is the urgency assigned to a complaint.
type Priority string

const (
	PriorityCritical Priority = "Critical"
	PriorityHigh     Priority = "High"
	PriorityMedium   Priority = "Medium"
	PriorityLow      Priority = "Low"
)

// Priorities lists every priority from most to least urgent.
var Priorities = []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

func (p Priority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// SLAHours returns the resolution window for p. Unknown priorities get the
// default window.
func (p Priority) SLAHours() int {
	switch p {
	case PriorityCritical:
		return config.SLAHoursCritical
	case PriorityHigh:
		return config.SLAHoursHigh
	case PriorityMedium:
		return config.SLAHoursMedium
	case PriorityLow:
		return config.SLAHoursLow
	}
	return config.SLAHoursDefault
}

// Status is the coarse state of a complaint.
type Status string

const (
	StatusNew                Status = "NEW"
	StatusAssigned           Status = "ASSIGNED"
	StatusInProgress         Status = "IN_PROGRESS"
	StatusResolved           Status = "RESOLVED"
	StatusClosedByCitizen    Status = "CLOSED_BY_CITIZEN"
	StatusWithdrawnByCitizen Status = "WITHDRAWN_BY_CITIZEN"
)

// ActiveStatuses count towards an officer's load.
var ActiveStatuses = []Status{StatusNew, StatusAssigned, StatusInProgress}

func (s Status) IsActive() bool {
	switch s {
	case StatusNew, StatusAssigned, StatusInProgress:
		return true
	}
	return false
}

// IsTerminal reports whether the SLA clock has stopped for s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusResolved, StatusClosedByCitizen, StatusWithdrawnByCitizen:
		return true
	}
	return false
}

// TimelineTag names a lifecycle event. Each tag is recorded at most once per
// complaint.
type TimelineTag string

const (
	TagSubmitted  TimelineTag = "SUBMITTED"
	TagAssigned   TimelineTag = "ASSIGNED"
	TagVisited    TimelineTag = "VISITED"
	TagInProgress TimelineTag = "IN_PROGRESS"
	TagResolved   TimelineTag = "RESOLVED"
	TagVerified   TimelineTag = "VERIFIED"
	TagReopened   TimelineTag = "REOPENED"
	TagWithdrawn  TimelineTag = "WITHDRAWN"
)

// ParseTimelineTag accepts any casing and space or hyphen separators, so
// "in progress" parses as TagInProgress. Unknown names pass through upper
// cased and are rejected by the caller.
func ParseTimelineTag(s string) TimelineTag {
	s = strings.ToUpper(strings.TrimSpace(s))
	return TimelineTag(strings.NewReplacer(" ", "_", "-", "_").Replace(s))
}

// OfficerTags are the tags an officer may record on their own complaints.
var OfficerTags = []TimelineTag{TagVisited, TagInProgress, TagResolved}

func (t TimelineTag) IsOfficerTag() bool {
	switch t {
	case TagVisited, TagInProgress, TagResolved:
		return true
	}
	return false
}

// ActorRole identifies who caused a timeline event or audit entry.
type ActorRole string

const (
	ActorCitizen ActorRole = "CITIZEN"
	ActorOfficer ActorRole = "OFFICER"
	ActorAdmin   ActorRole = "ADMIN"
	ActorSystem  ActorRole = "SYSTEM"
)

// Role is the session role supplied by the identity provider.
type Role string

const (
	RoleUser    Role = "USER"
	RoleOfficer Role = "OFFICER"
	RoleAdmin   Role = "ADMIN"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleOfficer || r == RoleAdmin
}

type OfficerStatus string

const (
	OfficerActive    OfficerStatus = "Active"
	OfficerOnLeave   OfficerStatus = "On Leave"
	OfficerSuspended OfficerStatus = "Suspended"
)

func (s OfficerStatus) Valid() bool {
	return s == OfficerActive || s == OfficerOnLeave || s == OfficerSuspended
}
