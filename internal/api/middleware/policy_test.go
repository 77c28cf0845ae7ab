package middleware_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grievance/backend/internal/api/middleware"
	"grievance/backend/internal/logger"
	"grievance/backend/internal/models"
)

func TestPolicy_Allowed(t *testing.T) {
	p, err := middleware.NewPolicy(logger.Discard())
	require.NoError(t, err)

	tests := []struct {
		role   models.Role
		method string
		path   string
		want   bool
	}{
		{models.RoleUser, "POST", "/api/complaints", true},
		{models.RoleUser, "GET", "/api/complaints/12", true},
		{models.RoleUser, "GET", "/api/complaints/12/timeline", true},
		{models.RoleUser, "POST", "/api/complaints/12/withdraw", true},
		{models.RoleUser, "DELETE", "/api/complaints/12", false},
		{models.RoleUser, "GET", "/admin/complaints/unassigned", false},
		{models.RoleUser, "GET", "/ws/complaints/12", true},
		{models.RoleOfficer, "POST", "/officer/complaints/3/timeline-event", true},
		{models.RoleOfficer, "POST", "/api/complaints", false},
		{models.RoleOfficer, "PUT", "/admin/complaints/3/reassign", false},
		{models.RoleAdmin, "PUT", "/admin/complaints/3/reassign", true},
		{models.RoleAdmin, "POST", "/officer/complaints/3/ai-summary", true},
		{models.RoleAdmin, "POST", "/officer/complaints/3/timeline-event", false},
		{models.RoleAdmin, "GET", "/api/complaints/3", true},
		{models.RoleAdmin, "POST", "/api/complaints", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+" "+tt.method+" "+tt.path, func(t *testing.T) {
			got, err := p.Allowed(tt.role, tt.path, tt.method)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
