package main

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grievance/backend/internal/auth"
	"grievance/backend/internal/config"
	"grievance/backend/internal/logger"
	"grievance/backend/internal/models"
	"grievance/backend/internal/storage/storagetest"
)

var testAuth = config.AuthConfig{JWTSecret: "cli-secret", Issuer: "grievance-test", TokenTTLMinutes: 10}

func execute(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func newTestApp(t *testing.T) *app {
	t.Helper()
	return &app{
		cfg:   &config.Settings{Auth: testAuth},
		log:   logger.Discard(),
		store: storagetest.New(t),
	}
}

func TestTokenCommand(t *testing.T) {
	out, err := execute(t, newTestApp(t), "token", "--user-id", "4", "--role", "OFFICER", "--officer-id", "9")
	require.NoError(t, err)

	id, err := auth.NewManager(testAuth).Parse(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, uint(4), id.UserID)
	assert.Equal(t, models.RoleOfficer, id.Role)
	require.NotNil(t, id.OfficerID)
	assert.Equal(t, uint(9), *id.OfficerID)

	_, err = execute(t, newTestApp(t), "token", "--user-id", "4", "--role", "OFFICER")
	assert.Error(t, err)
}

func TestSeedOfficerAssignReopen(t *testing.T) {
	a := newTestApp(t)

	out, err := execute(t, a, "seed")
	require.NoError(t, err)
	assert.NotEqual(t, "0 departments created\n", out)

	out, err = execute(t, a, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "0 departments created")

	out, err = execute(t, a, "officer", "add", "--employee-id", "PWD-9", "--name", "R. Das",
		"--department", "public works department (pwd)")
	require.NoError(t, err)
	assert.Contains(t, out, "officer PWD-9 registered")

	_, err = execute(t, a, "officer", "add", "--employee-id", "X-1", "--name", "N", "--department", "Nowhere")
	assert.Error(t, err)

	var officer models.Officer
	require.NoError(t, a.store.DB.Where("employee_id = ?", "PWD-9").First(&officer).Error)
	c := storagetest.Complaint(t, a.store, 3, nil)

	out, err = execute(t, a, "assign", itoa(c.ID), itoa(officer.ID), "--priority", "Critical")
	require.NoError(t, err)
	assert.Contains(t, out, "assigned to officer")

	_, err = execute(t, a, "reopen", itoa(c.ID))
	assert.ErrorContains(t, err, "only archived complaints can be reopened")

	_, err = execute(t, a, "assign", "abc", "1")
	assert.Error(t, err)
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
