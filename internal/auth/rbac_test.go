package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qoffice/dispatcher/internal/models"
)

func TestRBAC(t *testing.T) {
	rbac := NewRBAC()

	t.Run("window agent may dispatch but not control windows", func(t *testing.T) {
		assert.True(t, rbac.HasPermission(RoleWindowAgent, PermissionDispatch))
		assert.False(t, rbac.HasPermission(RoleWindowAgent, PermissionWindowControl))
		assert.False(t, rbac.HasPermission(RoleWindowAgent, PermissionAllOffices))
	})

	t.Run("supervisor may control windows and requeue", func(t *testing.T) {
		assert.True(t, rbac.HasPermission(RoleSupervisor, PermissionDispatch))
		assert.True(t, rbac.HasPermission(RoleSupervisor, PermissionWindowControl))
		assert.True(t, rbac.HasPermission(RoleSupervisor, PermissionRequeue))
		assert.False(t, rbac.HasPermission(RoleSupervisor, PermissionAllOffices))
	})

	t.Run("superadmin has every permission", func(t *testing.T) {
		assert.True(t, rbac.HasPermission(RoleSuperadmin, PermissionDispatch))
		assert.True(t, rbac.HasPermission(RoleSuperadmin, PermissionWindowControl))
		assert.True(t, rbac.HasPermission(RoleSuperadmin, PermissionAllOffices))
	})

	t.Run("unknown role has no permissions", func(t *testing.T) {
		assert.False(t, rbac.HasPermission("intern", PermissionDispatch))
	})
}

func TestCanActOnOffice(t *testing.T) {
	registrarAgent := models.Principal{ID: "u1", Office: models.OfficeRegistrar, Role: RoleWindowAgent}
	assert.True(t, CanActOnOffice(registrarAgent, models.OfficeRegistrar))
	assert.False(t, CanActOnOffice(registrarAgent, models.OfficeAdmissions))

	super := models.Principal{ID: "u2", Office: models.OfficeRegistrar, Role: RoleSuperadmin}
	assert.True(t, CanActOnOffice(super, models.OfficeRegistrar))
	assert.True(t, CanActOnOffice(super, models.OfficeAdmissions))
}
