package routing

import (
	"context"
	"log/slog"

	"grievance/backend/internal/config"
	"grievance/backend/internal/models"
)

type Seeder interface {
	CreateDepartmentIfNotExists(ctx context.Context, d *models.Department) (bool, error)
}

// SeedDepartments registers every registry entry that is missing and returns
// how many were created. Running it again is a no-op.
func SeedDepartments(ctx context.Context, s Seeder, registry []config.RegistryEntry, logger *slog.Logger) (int, error) {
	created := 0
	for _, entry := range registry {
		ok, err := s.CreateDepartmentIfNotExists(ctx, &models.Department{
			Name:        entry.Name,
			Description: entry.Description,
		})
		if err != nil {
			return created, err
		}
		if ok {
			created++
			logger.Info("department registered", "name", entry.Name)
		}
	}
	return created, nil
}
