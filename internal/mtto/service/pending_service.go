package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/OscarR093/reportesMtto/internal/mtto/entity"
	"github.com/OscarR093/reportesMtto/internal/mtto/equipment"
	"github.com/OscarR093/reportesMtto/internal/mtto/repository"
	"github.com/OscarR093/reportesMtto/internal/mtto/sse"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// PendingService actividades planeadas: pending -> assigned -> done
type PendingService struct {
	repo      *repository.PendingRepository
	userRepo  *repository.UserRepository
	equipment *equipment.Resolver
	export    *ExportService
	hub       *sse.Hub
	loc       *time.Location
	logger    *zap.Logger
	now       func() time.Time
}

func NewPendingService(
	repo *repository.PendingRepository,
	userRepo *repository.UserRepository,
	resolver *equipment.Resolver,
	export *ExportService,
	hub *sse.Hub,
	loc *time.Location,
	logger *zap.Logger,
) *PendingService {
	return &PendingService{
		repo:      repo,
		userRepo:  userRepo,
		equipment: resolver,
		export:    export,
		hub:       hub,
		loc:       loc,
		logger:    logger,
		now:       time.Now,
	}
}

type CreatePendingRequest struct {
	LocationInput
	Description string `json:"description"`
	IssueType   string `json:"issue_type"`
	Notes       string `json:"notes"`
}

// UpdatePendingRequest sólo ubicación y descripción son editables
type UpdatePendingRequest struct {
	LocationPatch
	Description *string `json:"description"`
}

// AssignPendingRequest ScheduledDate en formato AAAA-MM-DD (o RFC3339)
type AssignPendingRequest struct {
	AssignedUsers []string `json:"assigned_users"`
	ScheduledDate string   `json:"scheduled_date"`
	Shift         string   `json:"shift"`
}

func (s *PendingService) requireAdmin(ctx context.Context, userID string) (*entity.User, error) {
	user, err := activeUser(ctx, s.userRepo, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, newError(ErrForbidden, "se requiere rol de administrador")
	}
	return user, nil
}

func (s *PendingService) find(ctx context.Context, id string) (*entity.PendingActivity, error) {
	activity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateRepoErr(err, "actividad")
	}
	return activity, nil
}

// Create alta por un administrador; estado inicial pending
func (s *PendingService) Create(ctx context.Context, adminID string, req *CreatePendingRequest) (*entity.PendingActivity, error) {
	admin, err := s.requireAdmin(ctx, adminID)
	if err != nil {
		return nil, err
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, newError(ErrValidation, "description es requerida")
	}
	loc := req.location()
	if err := stampLocation(s.equipment, &loc); err != nil {
		return nil, err
	}
	issueType := req.IssueType
	if issueType == "" {
		issueType = entity.IssueTypePreventive
	}
	if !entity.ValidPendingIssueType(issueType) {
		return nil, newError(ErrValidation, "issue_type inválido para actividad: %s", issueType)
	}

	activity := &entity.PendingActivity{
		ID:                uuid.New().String(),
		EquipmentLocation: loc,
		Description:       description,
		IssueType:         issueType,
		Status:            entity.PendingStatusPending,
		Notes:             req.Notes,
		CreatedBy:         admin.ID,
	}
	activity.SetAssignees(nil)

	if err := s.repo.Create(ctx, activity); err != nil {
		return nil, fmt.Errorf("create activity: %w", err)
	}
	s.hub.PublishPendingUpdate(activity.ID, "created", nil)
	return s.find(ctx, activity.ID)
}

// Update edita ubicación y descripción en cualquier estado
func (s *PendingService) Update(ctx context.Context, id, adminID string, req *UpdatePendingRequest) (*entity.PendingActivity, error) {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	activity, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	next := req.LocationPatch.apply(activity.EquipmentLocation)
	if !next.SameLocation(activity.EquipmentLocation) {
		if err := stampLocation(s.equipment, &next); err != nil {
			return nil, err
		}
		activity.EquipmentLocation = next
	}
	if req.Description != nil {
		d := strings.TrimSpace(*req.Description)
		if d == "" {
			return nil, newError(ErrValidation, "description no puede quedar vacía")
		}
		activity.Description = d
	}

	if err := s.repo.Update(ctx, activity); err != nil {
		return nil, translateRepoErr(err, "actividad")
	}
	s.hub.PublishPendingUpdate(activity.ID, "updated", activity.AssignedUsers)
	return s.find(ctx, activity.ID)
}

// Delete borrado físico, cualquier estado
func (s *PendingService) Delete(ctx context.Context, id, adminID string) error {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return err
	}
	activity, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return translateRepoErr(err, "actividad")
	}
	s.hub.PublishPendingUpdate(id, "deleted", activity.AssignedUsers)
	return nil
}

func (s *PendingService) parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.ParseInLocation("2006-01-02", value, s.loc); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

// dedupe conserva el orden de la primera aparición
func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Assign valida toda la entrada antes de escribir: lista no vacía, fecha,
// turno y que cada usuario exista y esté activo
func (s *PendingService) Assign(ctx context.Context, id, adminID string, req *AssignPendingRequest) (*entity.PendingActivity, error) {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	activity, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	ids := dedupe(req.AssignedUsers)
	if len(ids) == 0 {
		return nil, newError(ErrValidation, "assigned_users no puede estar vacío")
	}
	if strings.TrimSpace(req.ScheduledDate) == "" {
		return nil, newError(ErrValidation, "scheduled_date es requerido")
	}
	scheduled, err := s.parseDate(req.ScheduledDate)
	if err != nil {
		return nil, newError(ErrValidation, "scheduled_date inválido: %s", req.ScheduledDate)
	}
	if strings.TrimSpace(req.Shift) == "" {
		return nil, newError(ErrValidation, "shift es requerido")
	}
	shift, err := normalizeShift(req.Shift)
	if err != nil {
		return nil, err
	}

	users, err := s.userRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("find assignees: %w", err)
	}
	active := make(map[string]bool, len(users))
	for _, u := range users {
		if u.IsActive() {
			active[u.ID] = true
		}
	}
	for _, uid := range ids {
		if !active[uid] {
			return nil, newError(ErrInvalidTarget, "usuario %s no existe o no está activo", uid)
		}
	}

	if !activity.CanTransitionTo(entity.PendingStatusAssigned) {
		return nil, newError(ErrInvalidStatus, "no se puede asignar una actividad en estado %s", activity.Status)
	}

	previous := append([]string{}, activity.AssignedUsers...)
	activity.SetAssignees(ids)
	activity.ScheduledDate = &scheduled
	activity.Shift = shift
	activity.Status = entity.PendingStatusAssigned

	if err := s.repo.Update(ctx, activity); err != nil {
		return nil, translateRepoErr(err, "actividad")
	}
	s.hub.PublishPendingUpdate(activity.ID, "assigned", dedupe(append(previous, ids...)))
	return s.find(ctx, activity.ID)
}

// Complete un administrador o un asignado marca la actividad como realizada.
// Sólo desde assigned: pending nunca pasa directo a done.
func (s *PendingService) Complete(ctx context.Context, id, callerID, notes string) (*entity.PendingActivity, error) {
	caller, err := activeUser(ctx, s.userRepo, callerID)
	if err != nil {
		return nil, err
	}
	activity, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	member := activity.Status == entity.PendingStatusAssigned && activity.IsAssignedTo(caller.ID)
	if !caller.IsAdmin() && !member {
		return nil, newError(ErrForbidden, "sólo los asignados pueden completar la actividad")
	}
	if !activity.CanTransitionTo(entity.PendingStatusDone) {
		return nil, newError(ErrInvalidStatus, "no se puede completar una actividad en estado %s", activity.Status)
	}

	now := s.now()
	completer := caller.ID
	activity.Status = entity.PendingStatusDone
	activity.CompletedAt = &now
	activity.CompletedBy = &completer
	if notes = strings.TrimSpace(notes); notes != "" {
		activity.Notes = notes
	}

	if err := s.repo.Update(ctx, activity); err != nil {
		return nil, translateRepoErr(err, "actividad")
	}
	s.hub.PublishPendingUpdate(activity.ID, "completed", activity.AssignedUsers)
	return s.find(ctx, activity.ID)
}

// Get visible para administradores y asignados
func (s *PendingService) Get(ctx context.Context, id, callerID string) (*entity.PendingActivity, error) {
	caller, err := activeUser(ctx, s.userRepo, callerID)
	if err != nil {
		return nil, err
	}
	activity, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && !activity.IsAssignedTo(caller.ID) {
		return nil, newError(ErrForbidden, "actividad no asignada al usuario")
	}
	if err := s.withNames(ctx, []*entity.PendingActivity{activity}); err != nil {
		return nil, err
	}
	return activity, nil
}

// ListMine actividades del usuario en cualquier estado, con nombres de asignados
func (s *PendingService) ListMine(ctx context.Context, callerID string) ([]entity.PendingActivity, error) {
	candidates, err := s.repo.ListCandidatesForUser(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	mine := make([]entity.PendingActivity, 0, len(candidates))
	for _, a := range candidates {
		if a.IsAssignedTo(callerID) {
			mine = append(mine, a)
		}
	}
	if err := s.enrich(ctx, mine); err != nil {
		return nil, err
	}
	return mine, nil
}

// ListAll todas las actividades, más recientes primero
func (s *PendingService) ListAll(ctx context.Context, adminID string, filter repository.PendingFilter) ([]entity.PendingActivity, error) {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	if filter.Shift != "" {
		shift, err := normalizeShift(filter.Shift)
		if err != nil {
			return nil, err
		}
		filter.Shift = shift
	}
	activities, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	if activities == nil {
		activities = []entity.PendingActivity{}
	}
	if err := s.enrich(ctx, activities); err != nil {
		return nil, err
	}
	return activities, nil
}

// Export libro de Excel de actividades
func (s *PendingService) Export(ctx context.Context, adminID string, filter repository.PendingFilter) (*excelize.File, string, error) {
	activities, err := s.ListAll(ctx, adminID, filter)
	if err != nil {
		return nil, "", err
	}
	return s.export.ExportPending(activities, ExportOptions{From: filter.DateFrom, To: filter.DateTo})
}

func (s *PendingService) enrich(ctx context.Context, activities []entity.PendingActivity) error {
	ptrs := make([]*entity.PendingActivity, len(activities))
	for i := range activities {
		ptrs[i] = &activities[i]
	}
	return s.withNames(ctx, ptrs)
}

// withNames resuelve AssignedNames en el orden de AssignedUsers; ids sin
// usuario se omiten
func (s *PendingService) withNames(ctx context.Context, activities []*entity.PendingActivity) error {
	var ids []string
	for _, a := range activities {
		ids = append(ids, a.AssignedUsers...)
	}
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil
	}
	users, err := s.userRepo.FindByIDs(ctx, ids)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("find assignees: %w", err)
	}
	names := make(map[string]string, len(users))
	for i := range users {
		names[users[i].ID] = users[i].DisplayName()
	}
	for _, a := range activities {
		a.AssignedNames = make([]string, 0, len(a.AssignedUsers))
		for _, id := range a.AssignedUsers {
			if n, ok := names[id]; ok {
				a.AssignedNames = append(a.AssignedNames, n)
			}
		}
	}
	return nil
}
