package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"grievance/backend/internal/apperrors"
	"grievance/backend/internal/assignment"
	"grievance/backend/internal/models"
	"grievance/backend/internal/storage"
)

type assignRequest struct {
	OfficerID uint            `json:"officer_id"`
	Priority  models.Priority `json:"priority"`
}

type reassignRequest struct {
	NewOfficerID uint   `json:"new_officer_id"`
	Reason       string `json:"reason"`
}

type priorityRequest struct {
	Priority models.Priority `json:"priority"`
}

func (h *Handler) RegisterOfficer(c *gin.Context) {
	var in assignment.OfficerInput
	if !h.bindJSON(c, &in) {
		return
	}
	out, err := h.Assignment.RegisterOfficer(c.Request.Context(), in, identity(c).UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// ListOfficers accepts department_id, ward and status query filters.
func (h *Handler) ListOfficers(c *gin.Context) {
	var f storage.OfficerFilter
	if raw := c.Query("department_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			h.respondError(c, apperrors.NewValidationError("department_id must be a positive integer"))
			return
		}
		f.DepartmentID = uint(id)
	}
	f.Ward = c.Query("ward")
	f.Status = models.OfficerStatus(c.Query("status"))

	out, err := h.Assignment.ListOfficers(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) ListDepartments(c *gin.Context) {
	out, err := h.Assignment.ListDepartments(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) UpdateOfficer(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var upd assignment.OfficerUpdate
	if !h.bindJSON(c, &upd) {
		return
	}
	out, err := h.Assignment.UpdateOfficer(c.Request.Context(), id, upd, identity(c).UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) AssignComplaint(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req assignRequest
	if !h.bindJSON(c, &req) {
		return
	}
	out, err := h.Assignment.Assign(c.Request.Context(), assignment.AssignCommand{
		ComplaintID: id,
		OfficerID:   req.OfficerID,
		AdminID:     identity(c).UserID,
		Priority:    req.Priority,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) ReassignComplaint(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req reassignRequest
	if !h.bindJSON(c, &req) {
		return
	}
	out, err := h.Assignment.Reassign(c.Request.Context(), assignment.ReassignCommand{
		ComplaintID:  id,
		NewOfficerID: req.NewOfficerID,
		AdminID:      identity(c).UserID,
		Reason:       req.Reason,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) ChangePriority(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req priorityRequest
	if !h.bindJSON(c, &req) {
		return
	}
	out, err := h.Assignment.ChangePriority(c.Request.Context(), id, req.Priority, identity(c).UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) ReopenComplaint(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	out, err := h.Lifecycle.Reopen(c.Request.Context(), id, identity(c).UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) UnassignedComplaints(c *gin.Context) {
	out, err := h.Complaints.ListUnassigned(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaints": out})
}

func (h *Handler) SLABreachedComplaints(c *gin.Context) {
	out, err := h.Complaints.ListSLABreached(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaints": out})
}
