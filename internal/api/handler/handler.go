// Package handler implements the HTTP endpoints on top of the pipeline
// services.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"grievance/backend/internal/analysis"
	"grievance/backend/internal/api/middleware"
	"grievance/backend/internal/apperrors"
	"grievance/backend/internal/assignment"
	"grievance/backend/internal/auth"
	"grievance/backend/internal/complaint"
	"grievance/backend/internal/lifecycle"
	"grievance/backend/internal/realtime"
	"grievance/backend/internal/summary"
)

// Handler holds the services behind the routes. Stream may be nil when Redis
// is not configured; live timelines are then unavailable.
type Handler struct {
	Complaints *complaint.Service
	Lifecycle  *lifecycle.Service
	Assignment *assignment.Service
	Summaries  *summary.Service
	Analyzer   *analysis.Analyzer
	Stream     *realtime.Stream
	Logger     *slog.Logger
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// respondError writes err as JSON. Errors that are not AppErrors are logged
// and reported as a bare 500.
func (h *Handler) respondError(c *gin.Context, err error) {
	appErr := apperrors.GetAppError(err)
	if appErr == nil || appErr.Code >= http.StatusInternalServerError {
		h.Logger.Error("request failed", "path", c.Request.URL.Path,
			"request_id", middleware.GetRequestID(c), "error", err)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": apperrors.NewInternalError("internal server error")})
		return
	}
	c.JSON(appErr.Code, gin.H{"error": appErr})
}

func (h *Handler) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.respondError(c, apperrors.NewValidationError("invalid request body", err.Error()))
		return false
	}
	return true
}

// identity is only called behind Authenticate.
func identity(c *gin.Context) auth.Identity {
	id, _ := middleware.GetIdentity(c)
	return id
}

func idParam(c *gin.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		return 0, apperrors.NewValidationError("invalid " + name)
	}
	return uint(v), nil
}
