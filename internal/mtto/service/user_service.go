package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/OscarR093/reportesMtto/internal/mtto/entity"
	"github.com/OscarR093/reportesMtto/internal/mtto/repository"
	"go.uber.org/zap"
)

// UserService administración de cuentas
type UserService struct {
	repo   *repository.UserRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewUserService(repo *repository.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{repo: repo, logger: logger, now: time.Now}
}

// requireManager el actor debe estar activo y poder gestionar usuarios
func (s *UserService) requireManager(ctx context.Context, actorID string) (*entity.User, error) {
	actor, err := activeUser(ctx, s.repo, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManageUsers() {
		return nil, newError(ErrForbidden, "se requieren permisos de administrador")
	}
	return actor, nil
}

func (s *UserService) target(ctx context.Context, actor *entity.User, id string) (*entity.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateRepoErr(err, "usuario")
	}
	// un admin no puede tocar cuentas de super_admin
	if user.IsSuperAdmin() && !actor.IsSuperAdmin() {
		return nil, newError(ErrForbidden, "no puede modificar a un super administrador")
	}
	return user, nil
}

// List filtra por estado y rol; ambos opcionales
func (s *UserService) List(ctx context.Context, actorID, status, role string) ([]entity.User, error) {
	if _, err := s.requireManager(ctx, actorID); err != nil {
		return nil, err
	}
	if status != "" && !entity.ValidUserStatus(status) {
		return nil, newError(ErrValidation, "estado inválido: %s", status)
	}
	if role != "" && !entity.ValidRole(role) {
		return nil, newError(ErrValidation, "rol inválido: %s", role)
	}
	return s.repo.List(ctx, status, role)
}

func (s *UserService) ListPending(ctx context.Context, actorID string) ([]entity.User, error) {
	return s.List(ctx, actorID, entity.UserStatusPending, "")
}

// ListTechnicians usuarios activos, para los selectores de asignación
func (s *UserService) ListTechnicians(ctx context.Context, actorID string) ([]entity.User, error) {
	if _, err := s.requireManager(ctx, actorID); err != nil {
		return nil, err
	}
	return s.repo.ListActiveTechnicians(ctx)
}

// Approve activa una cuenta pendiente o inactiva
func (s *UserService) Approve(ctx context.Context, actorID, id string) (*entity.User, error) {
	actor, err := s.requireManager(ctx, actorID)
	if err != nil {
		return nil, err
	}
	user, err := s.target(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if user.IsActive() {
		return nil, newError(ErrInvalidStatus, "el usuario ya está activo")
	}
	now := s.now()
	user.Status = entity.UserStatusActive
	user.ApprovedBy = &actor.ID
	user.ApprovedAt = &now
	user.RejectedReason = ""
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("approve user: %w", err)
	}
	s.logger.Info("User approved", zap.String("user_id", user.ID), zap.String("by", actor.ID))
	return user, nil
}

// Reject sólo aplica a solicitudes pendientes
func (s *UserService) Reject(ctx context.Context, actorID, id, reason string) (*entity.User, error) {
	actor, err := s.requireManager(ctx, actorID)
	if err != nil {
		return nil, err
	}
	user, err := s.target(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if user.Status != entity.UserStatusPending {
		return nil, newError(ErrInvalidStatus, "sólo se pueden rechazar solicitudes pendientes")
	}
	user.Status = entity.UserStatusRejected
	user.RejectedReason = strings.TrimSpace(reason)
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("reject user: %w", err)
	}
	s.logger.Info("User rejected", zap.String("user_id", user.ID), zap.String("by", actor.ID))
	return user, nil
}

// ChangeRole sólo un super_admin otorga o retira privilegios de administración
func (s *UserService) ChangeRole(ctx context.Context, actorID, id, role string) (*entity.User, error) {
	actor, err := s.requireManager(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !entity.ValidRole(role) {
		return nil, newError(ErrValidation, "rol inválido: %s", role)
	}
	user, err := s.target(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if (role != entity.RoleUser || user.IsAdmin()) && !actor.IsSuperAdmin() {
		return nil, newError(ErrForbidden, "sólo un super administrador puede cambiar privilegios de administración")
	}
	if user.ID == actor.ID && role != actor.Role {
		return nil, newError(ErrForbidden, "no puede cambiar su propio rol")
	}
	user.Role = role
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("change role: %w", err)
	}
	return user, nil
}

// Deactivate desactiva una cuenta; nadie puede desactivarse a sí mismo
func (s *UserService) Deactivate(ctx context.Context, actorID, id string) (*entity.User, error) {
	actor, err := s.requireManager(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor.ID == id {
		return nil, newError(ErrForbidden, "no puede desactivar su propia cuenta")
	}
	user, err := s.target(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	user.Status = entity.UserStatusInactive
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("deactivate user: %w", err)
	}
	s.logger.Info("User deactivated", zap.String("user_id", user.ID), zap.String("by", actor.ID))
	return user, nil
}
