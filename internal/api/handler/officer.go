package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"grievance/backend/internal/apperrors"
	"grievance/backend/internal/models"
)

type timelineEventRequest struct {
	Status  models.TimelineTag `json:"status"`
	Remarks string             `json:"remarks"`
}

func officerID(c *gin.Context) (uint, error) {
	id := identity(c)
	if id.OfficerID == nil {
		return 0, apperrors.NewForbiddenError("caller is not linked to an officer")
	}
	return *id.OfficerID, nil
}

// OfficerComplaints lists the open complaints assigned to the caller.
func (h *Handler) OfficerComplaints(c *gin.Context) {
	oid, err := officerID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	out, err := h.Complaints.ListForOfficer(c.Request.Context(), oid)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaints": out})
}

// RecordTimelineEvent logs a field milestone. Repeating a milestone is
// reported as ALREADY_LOGGED with 200.
func (h *Handler) RecordTimelineEvent(c *gin.Context) {
	oid, err := officerID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req timelineEventRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.Status = models.ParseTimelineTag(string(req.Status))

	outcome, err := h.Lifecycle.RecordOfficerEvent(c.Request.Context(), oid, id, req.Status, req.Remarks)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaint_id": id, "status": req.Status, "outcome": outcome})
}

// AISummary returns a short summary of a complaint the caller may see.
func (h *Handler) AISummary(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	complaint, err := h.Complaints.Get(c.Request.Context(), id, identity(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Summaries.Summarize(c.Request.Context(), complaint))
}
