package service

import (
	"context"
	"testing"

	"github.com/OscarR093/reportesMtto/internal/mtto/entity"
	"github.com/OscarR093/reportesMtto/internal/mtto/repository"
	"github.com/OscarR093/reportesMtto/internal/mtto/sse"
	"github.com/OscarR093/reportesMtto/internal/mtto/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingActivityScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.admin(t, "Admin A")
	u2 := env.user(t, "Tecnico U2")

	activity, err := env.pending.Create(ctx, admin.ID, &CreatePendingRequest{
		LocationInput: LocationInput{EquipmentArea: "moldeo"},
		Description:   "lube",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.PendingStatusPending, activity.Status)
	assert.Equal(t, entity.IssueTypePreventive, activity.IssueType)
	assert.Nil(t, activity.AssignedTo)

	activity, err = env.pending.Assign(ctx, activity.ID, admin.ID, &AssignPendingRequest{
		AssignedUsers: []string{u2.ID},
		ScheduledDate: "2025-06-01",
		Shift:         "1",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.PendingStatusAssigned, activity.Status)
	require.NotNil(t, activity.AssignedTo)
	assert.Equal(t, u2.ID, *activity.AssignedTo)
	assert.Equal(t, entity.ShiftMorning, activity.Shift)
	require.NotNil(t, activity.ScheduledDate)
	assert.Equal(t, "2025-06-01", activity.ScheduledDate.In(plantZone).Format("2006-01-02"))

	activity, err = env.pending.Complete(ctx, activity.ID, u2.ID, "")
	require.NoError(t, err)
	assert.Equal(t, entity.PendingStatusDone, activity.Status)
	require.NotNil(t, activity.CompletedBy)
	assert.Equal(t, u2.ID, *activity.CompletedBy)
	assert.NotNil(t, activity.CompletedAt)

	// done es terminal
	_, err = env.pending.Assign(ctx, activity.ID, admin.ID, &AssignPendingRequest{
		AssignedUsers: []string{u2.ID}, ScheduledDate: "2025-06-02", Shift: "2",
	})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestAssignPendingValidatesBeforeWriting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.admin(t, "Admin")
	u := env.user(t, "Tec")
	inactive := testutil.SeedUser(t, env.db, "Baja", entity.RoleUser, entity.UserStatusInactive)

	activity, err := env.pending.Create(ctx, admin.ID, &CreatePendingRequest{
		LocationInput: LocationInput{EquipmentArea: "fusion", EquipmentMachine: "horno 1"},
		Description:   "revisar quemador",
	})
	require.NoError(t, err)

	tests := []struct {
		name string
		req  AssignPendingRequest
		want error
	}{
		{"empty users", AssignPendingRequest{ScheduledDate: "2025-06-01", Shift: "1"}, ErrValidation},
		{"missing date", AssignPendingRequest{AssignedUsers: []string{u.ID}, Shift: "1"}, ErrValidation},
		{"bad date", AssignPendingRequest{AssignedUsers: []string{u.ID}, ScheduledDate: "01/06/2025", Shift: "1"}, ErrValidation},
		{"missing shift", AssignPendingRequest{AssignedUsers: []string{u.ID}, ScheduledDate: "2025-06-01"}, ErrValidation},
		{"bad shift", AssignPendingRequest{AssignedUsers: []string{u.ID}, ScheduledDate: "2025-06-01", Shift: "3"}, ErrValidation},
		{"unknown user", AssignPendingRequest{AssignedUsers: []string{u.ID, "fantasma"}, ScheduledDate: "2025-06-01", Shift: "1"}, ErrInvalidTarget},
		{"inactive user", AssignPendingRequest{AssignedUsers: []string{inactive.ID}, ScheduledDate: "2025-06-01", Shift: "1"}, ErrInvalidTarget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := env.pending.Assign(ctx, activity.ID, admin.ID, &req)
			assert.ErrorIs(t, err, tt.want)

			stored, err := env.repos.Pending.FindByID(ctx, activity.ID)
			require.NoError(t, err)
			assert.Equal(t, entity.PendingStatusPending, stored.Status)
			assert.Empty(t, stored.AssignedUsers)
			assert.Nil(t, stored.AssignedTo)
		})
	}

	_, err = env.pending.Assign(ctx, activity.ID, u.ID, &AssignPendingRequest{
		AssignedUsers: []string{u.ID}, ScheduledDate: "2025-06-01", Shift: "1",
	})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCompletePendingPermissions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.admin(t, "Admin")
	first := env.user(t, "Primero")
	second := env.user(t, "Segundo")
	outsider := env.user(t, "Ajeno")

	activity, err := env.pending.Create(ctx, admin.ID, &CreatePendingRequest{
		LocationInput: LocationInput{EquipmentArea: "moldeo"},
		Description:   "cambiar filtro",
	})
	require.NoError(t, err)

	// pending nunca pasa directo a done
	_, err = env.pending.Complete(ctx, activity.ID, first.ID, "")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = env.pending.Complete(ctx, activity.ID, admin.ID, "")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = env.pending.Assign(ctx, activity.ID, admin.ID, &AssignPendingRequest{
		AssignedUsers: []string{first.ID, second.ID, first.ID},
		ScheduledDate: "2025-06-01",
		Shift:         "evening",
	})
	require.NoError(t, err)

	_, err = env.pending.Complete(ctx, activity.ID, outsider.ID, "")
	assert.ErrorIs(t, err, ErrForbidden)

	// un asignado que no es el principal también puede completar
	done, err := env.pending.Complete(ctx, activity.ID, second.ID, "listo")
	require.NoError(t, err)
	assert.Equal(t, second.ID, *done.CompletedBy)
	assert.Equal(t, "listo", done.Notes)
	assert.Equal(t, []string{first.ID, second.ID}, []string(done.AssignedUsers))
}

func TestAdminCompletesAssignedActivity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.admin(t, "Admin")
	u := env.user(t, "Tec")

	activity, err := env.pending.Create(ctx, admin.ID, &CreatePendingRequest{
		LocationInput: LocationInput{EquipmentArea: "moldeo"},
		Description:   "engrasar",
	})
	require.NoError(t, err)
	_, err = env.pending.Assign(ctx, activity.ID, admin.ID, &AssignPendingRequest{
		AssignedUsers: []string{u.ID}, ScheduledDate: "2025-06-01", Shift: "1",
	})
	require.NoError(t, err)

	done, err := env.pending.Complete(ctx, activity.ID, admin.ID, "")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, *done.CompletedBy)
}

func TestPendingCreateUpdateDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.admin(t, "Admin")
	u := env.user(t, "Tec")

	_, err := env.pending.Create(ctx, u.ID, &CreatePendingRequest{LocationInput: LocationInput{EquipmentArea: "moldeo"}, Description: "x"})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = env.pending.Create(ctx, admin.ID, &CreatePendingRequest{LocationInput: LocationInput{EquipmentArea: "moldeo"}})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = env.pending.Create(ctx, admin.ID, &CreatePendingRequest{LocationInput: LocationInput{EquipmentArea: "moldeo"}, Description: "x", IssueType: entity.IssueTypeEmergency})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = env.pending.Create(ctx, admin.ID, &CreatePendingRequest{LocationInput: LocationInput{EquipmentArea: "oficinas"}, Description: "x"})
	assert.ErrorIs(t, err, ErrInvalidEquipment)

	activity, err := env.pending.Create(ctx, admin.ID, &CreatePendingRequest{
		LocationInput: LocationInput{EquipmentArea: "moldeo"},
		Description:   "x",
		IssueType:     entity.IssueTypeImprovement,
	})
	require.NoError(t, err)

	updated, err := env.pending.Update(ctx, activity.ID, admin.ID, &UpdatePendingRequest{
		LocationPatch: LocationPatch{EquipmentMachine: strPtr("linea a"), EquipmentElement: strPtr("prensa")},
		Description:   strPtr("ajustar prensa"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Moldeo > Linea a > prensa", updated.EquipmentDisplay)
	assert.Equal(t, "ajustar prensa", updated.Description)

	_, err = env.pending.Update(ctx, activity.ID, admin.ID, &UpdatePendingRequest{Description: strPtr("  ")})
	assert.ErrorIs(t, err, ErrValidation)

	assert.ErrorIs(t, env.pending.Delete(ctx, activity.ID, u.ID), ErrForbidden)
	require.NoError(t, env.pending.Delete(ctx, activity.ID, admin.ID))
	_, err = env.pending.Get(ctx, activity.ID, admin.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListMinePendingWithNames(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.admin(t, "Admin")
	ana := env.user(t, "Ana")
	beto := env.user(t, "Beto")
	carla := env.user(t, "Carla")

	shared, err := env.pending.Create(ctx, admin.ID, &CreatePendingRequest{LocationInput: LocationInput{EquipmentArea: "moldeo"}, Description: "compartida"})
	require.NoError(t, err)
	_, err = env.pending.Assign(ctx, shared.ID, admin.ID, &AssignPendingRequest{
		AssignedUsers: []string{ana.ID, beto.ID}, ScheduledDate: "2025-06-01", Shift: "1",
	})
	require.NoError(t, err)

	solo, err := env.pending.Create(ctx, admin.ID, &CreatePendingRequest{LocationInput: LocationInput{EquipmentArea: "fusion"}, Description: "sola"})
	require.NoError(t, err)
	_, err = env.pending.Assign(ctx, solo.ID, admin.ID, &AssignPendingRequest{
		AssignedUsers: []string{carla.ID}, ScheduledDate: "2025-06-02", Shift: "2",
	})
	require.NoError(t, err)

	mine, err := env.pending.ListMine(ctx, beto.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, shared.ID, mine[0].ID)
	assert.Equal(t, []string{"Ana", "Beto"}, mine[0].AssignedNames)

	got, err := env.pending.Get(ctx, solo.ID, carla.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Carla"}, got.AssignedNames)
	_, err = env.pending.Get(ctx, solo.ID, beto.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	all, err := env.pending.ListAll(ctx, admin.ID, repository.PendingFilter{Shift: "evening"})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, solo.ID, all[0].ID)

	_, err = env.pending.ListAll(ctx, beto.ID, repository.PendingFilter{})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAssignNotifiesAssignees(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.admin(t, "Admin")
	u := env.user(t, "Tec")

	activity, err := env.pending.Create(ctx, admin.ID, &CreatePendingRequest{LocationInput: LocationInput{EquipmentArea: "moldeo"}, Description: "x"})
	require.NoError(t, err)

	client := &sse.Client{ID: "tec-1", UserID: u.ID, Events: make(chan sse.Event, 8)}
	env.hub.Register(client)
	defer env.hub.Unregister(client.ID)

	_, err = env.pending.Assign(ctx, activity.ID, admin.ID, &AssignPendingRequest{
		AssignedUsers: []string{u.ID}, ScheduledDate: "2025-06-01", Shift: "1",
	})
	require.NoError(t, err)

	var types []string
	for len(client.Events) > 0 {
		types = append(types, (<-client.Events).EventType)
	}
	assert.Contains(t, types, sse.EventPendingUpdate)
	assert.Contains(t, types, sse.EventMyPendingUpdate)
}
