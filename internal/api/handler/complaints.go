package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"grievance/backend/internal/analysis"
	"grievance/backend/internal/apperrors"
	"grievance/backend/internal/complaint"
	"grievance/backend/internal/lifecycle"
	"grievance/backend/internal/models"
)

type analyzeRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type resolveRequest struct {
	Rating  *int   `json:"rating"`
	Comment string `json:"comment"`
}

type withdrawRequest struct {
	Reason string `json:"reason"`
}

// CreateComplaint files a complaint for the calling citizen.
func (h *Handler) CreateComplaint(c *gin.Context) {
	var sub complaint.Submission
	if !h.bindJSON(c, &sub) {
		return
	}
	out, err := h.Complaints.Submit(c.Request.Context(), identity(c).UserID, sub)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// ListComplaints lists the caller's complaints; ?archived=true lists the
// closed ones.
func (h *Handler) ListComplaints(c *gin.Context) {
	archived := false
	if raw := c.Query("archived"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.respondError(c, apperrors.NewValidationError("archived must be a boolean"))
			return
		}
		archived = v
	}
	out, err := h.Complaints.ListForCitizen(c.Request.Context(), identity(c).UserID, archived)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaints": out})
}

func (h *Handler) GetComplaint(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	out, err := h.Complaints.Get(c.Request.Context(), id, identity(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Timeline returns the complaint's events. Citizens only see public ones.
func (h *Handler) Timeline(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	caller := identity(c)
	if _, err := h.Complaints.Get(c.Request.Context(), id, caller); err != nil {
		h.respondError(c, err)
		return
	}
	events, err := h.Lifecycle.Timeline(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if caller.Role == models.RoleUser {
		public := events[:0]
		for _, ev := range events {
			if ev.IsPublicVisible {
				public = append(public, ev)
			}
		}
		events = public
	}
	c.JSON(http.StatusOK, gin.H{"timeline": events})
}

// ResolveComplaint lets the citizen confirm the resolution and leave a rating.
func (h *Handler) ResolveComplaint(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req resolveRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}
	out, err := h.Lifecycle.ResolveByCitizen(c.Request.Context(), lifecycle.ArchiveCommand{
		ComplaintID: id,
		UserID:      identity(c).UserID,
		Rating:      req.Rating,
		Comment:     req.Comment,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) WithdrawComplaint(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req withdrawRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}
	out, err := h.Lifecycle.Withdraw(c.Request.Context(), lifecycle.ArchiveCommand{
		ComplaintID: id,
		UserID:      identity(c).UserID,
		Reason:      req.Reason,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Analyze previews how a complaint would be classified without filing it.
func (h *Handler) Analyze(c *gin.Context) {
	var req analyzeRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if req.Title == "" && req.Description == "" {
		h.respondError(c, apperrors.NewValidationError("title or description is required"))
		return
	}
	result := h.Analyzer.Analyze(c.Request.Context(), req.Title, req.Description)
	c.JSON(http.StatusOK, analysis.Explain(result))
}

// PublicStatus serves the tracking page. No authentication.
func (h *Handler) PublicStatus(c *gin.Context) {
	out, err := h.Complaints.PublicStatus(c.Request.Context(), c.Param("public_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
