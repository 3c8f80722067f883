package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermissionUnion(t *testing.T) {
	// Co-owner alone cannot edit stages; combined with designer they can.
	assert.False(t, HasPermission([]Role{RoleCoOwner}, PermEditStage))
	assert.True(t, HasPermission([]Role{RoleCoOwner, RoleDesigner}, PermEditStage))

	// Only the owner approves checkpoints.
	for role := range RolePermissions {
		want := role == RoleOwner
		assert.Equal(t, want, HasPermission([]Role{role}, PermApproveCheckpoint), string(role))
	}

	assert.False(t, HasPermission(nil, PermViewStages))
	assert.False(t, HasPermission([]Role{"ghost"}, PermViewStages))
}

func TestPermissionsForUnion(t *testing.T) {
	union := PermissionsFor([]Role{RoleTradesperson, RoleSupplier})
	assert.True(t, union[PermViewStages])
	assert.True(t, union[PermSendStatus])
	assert.False(t, union[PermEditBudget])
}

func TestAssignableRolesExcludeOwner(t *testing.T) {
	for _, r := range AssignableRoles {
		assert.NotEqual(t, RoleOwner, r)
	}
	assert.Len(t, AssignableRoles, 7)
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole("foreman"))
	assert.True(t, ValidRole("co_owner"))
	assert.False(t, ValidRole("admin"))
}
