package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theratrack/theratrack-api/internal/auth"
	"github.com/theratrack/theratrack-api/internal/model"
)

var (
	admin      = auth.Identity{UserID: 1, Role: model.RoleAdmin}
	clinicianA = auth.Identity{UserID: 2, Role: model.RoleClinician}
	clinicianB = auth.Identity{UserID: 3, Role: model.RoleClinician}
)

func TestClientScope(t *testing.T) {
	assert.True(t, ClientScope(admin).Unscoped())

	scope := ClientScope(clinicianA)
	require.NotNil(t, scope.ClinicianID)
	assert.Equal(t, int64(2), *scope.ClinicianID)
}

func TestSessionScope(t *testing.T) {
	assert.True(t, SessionScope(admin).Unscoped())

	scope := SessionScope(clinicianB)
	require.NotNil(t, scope.ClinicianID)
	assert.Equal(t, int64(3), *scope.ClinicianID)
}

func TestCanViewSession(t *testing.T) {
	// Session performed by clinician A.
	assert.True(t, CanViewSession(admin, clinicianA.UserID))
	assert.True(t, CanViewSession(clinicianA, clinicianA.UserID))
	assert.False(t, CanViewSession(clinicianB, clinicianA.UserID))
}

func TestOwnsSession(t *testing.T) {
	assert.True(t, OwnsSession(clinicianA, clinicianA.UserID))
	assert.False(t, OwnsSession(clinicianB, clinicianA.UserID))
	// Admins go through override operations, not ownership.
	assert.False(t, OwnsSession(admin, admin.UserID))
}

func TestAdminOnlyGates(t *testing.T) {
	assert.True(t, CanManageRecords(admin))
	assert.False(t, CanManageRecords(clinicianA))

	assert.True(t, CanListClinicians(admin))
	assert.False(t, CanListClinicians(clinicianB))
}
