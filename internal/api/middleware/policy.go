package middleware

import (
	"fmt"
	"log/slog"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/gin-gonic/gin"

	"grievance/backend/internal/apperrors"
	"grievance/backend/internal/models"
)

const policyModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && regexMatch(r.act, p.act)
`

// rolePolicies grants each role its routes. Objects use keyMatch2 patterns.
var rolePolicies = [][]string{
	{string(models.RoleUser), "/api/complaints", "^(GET|POST)$"},
	{string(models.RoleUser), "/api/complaints/:id/resolve", "^POST$"},
	{string(models.RoleUser), "/api/complaints/:id/withdraw", "^POST$"},
	{string(models.RoleUser), "/api/analyze", "^POST$"},

	{"VIEWER", "/api/complaints/:id", "^GET$"},
	{"VIEWER", "/api/complaints/:id/timeline", "^GET$"},
	{"VIEWER", "/ws/complaints/:id", "^GET$"},

	{string(models.RoleOfficer), "/officer/complaints", "^GET$"},
	{string(models.RoleOfficer), "/officer/complaints/:id/timeline-event", "^POST$"},
	{string(models.RoleOfficer), "/officer/complaints/:id/ai-summary", "^POST$"},

	{string(models.RoleAdmin), "/admin/*", "^(GET|POST|PUT)$"},
	{string(models.RoleAdmin), "/officer/complaints/:id/ai-summary", "^POST$"},
}

var roleGroups = [][]string{
	{string(models.RoleUser), "VIEWER"},
	{string(models.RoleOfficer), "VIEWER"},
	{string(models.RoleAdmin), "VIEWER"},
}

// Policy authorizes requests by the caller's role.
type Policy struct {
	enforcer *casbin.Enforcer
	logger   *slog.Logger
}

func NewPolicy(logger *slog.Logger) (*Policy, error) {
	m, err := model.NewModelFromString(policyModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse policy model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create enforcer: %w", err)
	}
	if _, err := e.AddPolicies(rolePolicies); err != nil {
		return nil, fmt.Errorf("failed to load policies: %w", err)
	}
	if _, err := e.AddGroupingPolicies(roleGroups); err != nil {
		return nil, fmt.Errorf("failed to load role groups: %w", err)
	}
	return &Policy{enforcer: e, logger: logger}, nil
}

// Allowed reports whether role may call method on path.
func (p *Policy) Allowed(role models.Role, path, method string) (bool, error) {
	return p.enforcer.Enforce(string(role), path, method)
}

// Authorize must run after Authenticate.
func (p *Policy) Authorize() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := GetIdentity(c)
		if !ok {
			abort(c, apperrors.NewUnauthorizedError("user not authenticated"))
			return
		}

		allowed, err := p.Allowed(id.Role, c.Request.URL.Path, c.Request.Method)
		if err != nil {
			p.logger.Error("permission check failed", "error", err, "role", id.Role, "path", c.Request.URL.Path)
			abort(c, apperrors.NewInternalError("permission check failed"))
			return
		}
		if !allowed {
			p.logger.Warn("permission denied", "user_id", id.UserID, "role", id.Role,
				"method", c.Request.Method, "path", c.Request.URL.Path)
			abort(c, apperrors.NewForbiddenError("insufficient permissions"))
			return
		}
		c.Next()
	}
}
