package service

import (
	"context"
	"testing"

	"github.com/OscarR093/reportesMtto/internal/mtto/entity"
	"github.com/OscarR093/reportesMtto/internal/mtto/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApproveAndRejectUsers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.admin(t, "Admin")
	tech := env.user(t, "Tec")
	waiting := testutil.SeedUser(t, env.db, "Espera", entity.RoleUser, entity.UserStatusPending)
	other := testutil.SeedUser(t, env.db, "Otro", entity.RoleUser, entity.UserStatusPending)

	pending, err := env.users.ListPending(ctx, admin.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = env.users.ListPending(ctx, tech.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	approved, err := env.users.Approve(ctx, admin.ID, waiting.ID)
	require.NoError(t, err)
	assert.True(t, approved.IsActive())
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, admin.ID, *approved.ApprovedBy)

	_, err = env.users.Approve(ctx, admin.ID, waiting.ID)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	rejected, err := env.users.Reject(ctx, admin.ID, other.ID, "no es de la planta")
	require.NoError(t, err)
	assert.Equal(t, entity.UserStatusRejected, rejected.Status)
	assert.Equal(t, "no es de la planta", rejected.RejectedReason)

	_, err = env.users.Reject(ctx, admin.ID, tech.ID, "")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	techs, err := env.users.ListTechnicians(ctx, admin.ID)
	require.NoError(t, err)
	assert.Len(t, techs, 3)

	_, err = env.users.List(ctx, admin.ID, "archived", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestChangeRoleRequiresSuperAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	super := testutil.SeedUser(t, env.db, "Super", entity.RoleSuperAdmin, entity.UserStatusActive)
	admin := env.admin(t, "Admin")
	tech := env.user(t, "Tec")

	_, err := env.users.ChangeRole(ctx, admin.ID, tech.ID, entity.RoleAdmin)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = env.users.ChangeRole(ctx, super.ID, tech.ID, "owner")
	assert.ErrorIs(t, err, ErrValidation)

	promoted, err := env.users.ChangeRole(ctx, super.ID, tech.ID, entity.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, promoted.Role)

	// un admin no puede degradar a otro admin
	_, err = env.users.ChangeRole(ctx, admin.ID, tech.ID, entity.RoleUser)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = env.users.Deactivate(ctx, admin.ID, super.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = env.users.Deactivate(ctx, admin.ID, admin.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	deactivated, err := env.users.Deactivate(ctx, super.ID, tech.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.UserStatusInactive, deactivated.Status)
}
