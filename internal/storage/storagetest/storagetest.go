// Package storagetest provides an in-memory SQLite storage for tests.
package storagetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"grievance/backend/internal/models"
	"grievance/backend/internal/storage"
)

// New returns a migrated storage backed by a private in-memory database.
func New(t testing.TB) *storage.Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Discard,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every connection to :memory: opens a fresh database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	s := storage.NewStorageService(db, nil)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func Department(t testing.TB, s *storage.Service, name string) *models.Department {
	t.Helper()
	d := &models.Department{Name: name, Description: name}
	require.NoError(t, s.DB.Create(d).Error)
	return d
}

func Officer(t testing.TB, s *storage.Service, departmentID uint, code string, status models.OfficerStatus) *models.Officer {
	t.Helper()
	o := &models.Officer{
		EmployeeID:   code,
		Name:         "Officer " + code,
		Designation:  "Junior Engineer",
		DepartmentID: departmentID,
		Status:       status,
	}
	require.NoError(t, s.DB.Create(o).Error)
	return o
}

// Complaint inserts a complaint for userID with sensible defaults. mutate may
// adjust fields before the insert.
func Complaint(t testing.TB, s *storage.Service, userID uint, mutate func(c *models.Complaint)) *models.Complaint {
	t.Helper()
	c := &models.Complaint{
		Title:       "Streetlight not working",
		Description: fmt.Sprintf("Streetlight near house %d has been dark for a week", userID),
		Category:    "Street Lighting Department",
		Priority:    models.PriorityMedium,
		Status:      models.StatusNew,
		UserID:      userID,
		TrustScore:  1,
	}
	if mutate != nil {
		mutate(c)
	}
	require.NoError(t, s.DB.Create(c).Error)
	return c
}

// ActiveLoad gives officerID n complaints in an active status.
func ActiveLoad(t testing.TB, s *storage.Service, officerID uint, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		Complaint(t, s, 9000+officerID, func(c *models.Complaint) {
			c.AssignedOfficerID = &officerID
			c.Status = models.StatusAssigned
			c.Description = fmt.Sprintf("load %d-%d", officerID, i)
		})
	}
}
