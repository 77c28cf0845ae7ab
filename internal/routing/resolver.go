// Package routing maps a classifier's department suggestion onto a registered
// department.
package routing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"

	"grievance/backend/internal/apperrors"
	"grievance/backend/internal/config"
	"grievance/backend/internal/models"
)

// Registry looks departments up by name. Both methods return nil, nil when
// no department matches.
type Registry interface {
	FindDepartmentByName(ctx context.Context, name string) (*models.Department, error)
	FindDepartmentByNameFold(ctx context.Context, name string) (*models.Department, error)
}

type rule struct {
	keywords   []string
	department string
}

type Resolver struct {
	registry Registry
	rules    []rule
	fallback string
	logger   *slog.Logger
}

func NewResolver(registry Registry, table config.RoutingTable, logger *slog.Logger) *Resolver {
	r := &Resolver{registry: registry, fallback: table.FallbackDepartment, logger: logger}
	for _, rr := range table.Rules {
		kws := make([]string, 0, len(rr.Keywords))
		for _, k := range rr.Keywords {
			kws = append(kws, fold(k))
		}
		r.rules = append(r.rules, rule{keywords: kws, department: rr.Department})
	}
	return r
}

// Resolve returns the department for candidate, trying in order: a
// case-insensitive exact name match, the department of the first keyword rule
// that matches text, and the fallback department. A matched rule whose
// department is not registered goes straight to the fallback. It fails only
// when the fallback department is not registered.
func (r *Resolver) Resolve(ctx context.Context, candidate, text string) (*models.Department, error) {
	if strings.TrimSpace(candidate) != "" {
		d, err := r.registry.FindDepartmentByNameFold(ctx, strings.TrimSpace(candidate))
		if err != nil {
			return nil, err
		}
		if d != nil {
			return d, nil
		}
	}

	if rr, ok := r.match(fold(text)); ok {
		d, err := r.registry.FindDepartmentByName(ctx, rr.department)
		if err != nil {
			return nil, err
		}
		if d != nil {
			return d, nil
		}
		r.logger.Warn("routing rule names an unregistered department", "department", rr.department)
	}

	d, err := r.registry.FindDepartmentByName(ctx, r.fallback)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("fallback department %q is not registered", r.fallback))
	}
	return d, nil
}

func (r *Resolver) match(folded string) (rule, bool) {
	for _, rr := range r.rules {
		if containsAny(folded, rr.keywords) {
			return rr, true
		}
	}
	return rule{}, false
}

func fold(s string) string {
	return cases.Fold().String(s)
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
