// Package api assembles the HTTP router.
package api

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"grievance/backend/internal/api/handler"
	"grievance/backend/internal/api/middleware"
)

type Options struct {
	// AllowedOrigins enables CORS for browser clients on other origins.
	AllowedOrigins []string
}

// NewRouter registers every route on a fresh gin engine.
func NewRouter(h *handler.Handler, tokens middleware.TokenParser, policy *middleware.Policy, logger *slog.Logger, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(logger))
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  opts.AllowedOrigins,
			AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
			ExposeHeaders: []string{middleware.RequestIDHeader},
			MaxAge:        12 * time.Hour,
		}))
	}

	r.GET("/health", h.Health)
	r.GET("/public/complaints/:public_id/status", h.PublicStatus)

	authed := r.Group("/", middleware.Authenticate(tokens), policy.Authorize())

	citizen := authed.Group("/api")
	citizen.POST("/complaints", h.CreateComplaint)
	citizen.GET("/complaints", h.ListComplaints)
	citizen.GET("/complaints/:id", h.GetComplaint)
	citizen.GET("/complaints/:id/timeline", h.Timeline)
	citizen.POST("/complaints/:id/resolve", h.ResolveComplaint)
	citizen.POST("/complaints/:id/withdraw", h.WithdrawComplaint)
	citizen.POST("/analyze", h.Analyze)

	officer := authed.Group("/officer")
	officer.GET("/complaints", h.OfficerComplaints)
	officer.POST("/complaints/:id/timeline-event", h.RecordTimelineEvent)
	officer.POST("/complaints/:id/ai-summary", h.AISummary)

	admin := authed.Group("/admin")
	admin.GET("/officers", h.ListOfficers)
	admin.POST("/officers", h.RegisterOfficer)
	admin.PUT("/officers/:id", h.UpdateOfficer)
	admin.GET("/departments", h.ListDepartments)
	admin.POST("/complaints/:id/assign", h.AssignComplaint)
	admin.PUT("/complaints/:id/reassign", h.ReassignComplaint)
	admin.PUT("/complaints/:id/priority", h.ChangePriority)
	admin.PUT("/complaints/:id/reopen", h.ReopenComplaint)
	admin.GET("/complaints/unassigned", h.UnassignedComplaints)
	admin.GET("/complaints/sla-breached", h.SLABreachedComplaints)

	authed.GET("/ws/complaints/:id", h.ServeTimeline)

	return r
}
