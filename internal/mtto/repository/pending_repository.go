package repository

import (
	"context"
	"time"

	"github.com/OscarR093/reportesMtto/internal/mtto/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PendingRepository repositorio de actividades pendientes
type PendingRepository struct {
	db *gorm.DB
}

func NewPendingRepository(db *gorm.DB) *PendingRepository {
	return &PendingRepository{db: db}
}

// PendingFilter filtros para listado/exportación
type PendingFilter struct {
	Status        string
	EquipmentArea string
	Shift         string
	DateFrom      *time.Time
	DateTo        *time.Time
}

func (r *PendingRepository) FindByID(ctx context.Context, id string) (*entity.PendingActivity, error) {
	var activity entity.PendingActivity
	err := r.db.WithContext(ctx).
		Preload("Creator").
		Preload("Assignee").
		Preload("Completer").
		Where("id = ?", id).
		First(&activity).Error
	if err != nil {
		return nil, translate(err)
	}
	return &activity, nil
}

func (r *PendingRepository) Create(ctx context.Context, activity *entity.PendingActivity) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(activity).Error
}

// Update guarda la actividad sin tocar relaciones
func (r *PendingRepository) Update(ctx context.Context, activity *entity.PendingActivity) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(activity).Error
}

func (r *PendingRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.PendingActivity{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// List más recientes primero
func (r *PendingRepository) List(ctx context.Context, f PendingFilter) ([]entity.PendingActivity, error) {
	var activities []entity.PendingActivity
	query := r.db.WithContext(ctx).Model(&entity.PendingActivity{})
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.EquipmentArea != "" {
		query = query.Where("equipment_area = ?", f.EquipmentArea)
	}
	if f.Shift != "" {
		query = query.Where("shift = ?", f.Shift)
	}
	if f.DateFrom != nil {
		query = query.Where("scheduled_date >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		query = query.Where("scheduled_date < ?", *f.DateTo)
	}
	err := query.
		Preload("Creator").
		Preload("Assignee").
		Preload("Completer").
		Order("created_at DESC").
		Find(&activities).Error
	return activities, err
}

// ListCandidatesForUser actividades donde el usuario es principal o podría
// estar en assigned_users. La coincidencia por texto es amplia; el servicio
// confirma la pertenencia con IsAssignedTo.
func (r *PendingRepository) ListCandidatesForUser(ctx context.Context, userID string) ([]entity.PendingActivity, error) {
	var activities []entity.PendingActivity
	err := r.db.WithContext(ctx).
		Where("assigned_to = ? OR CAST(assigned_users AS TEXT) LIKE ?", userID, `%"`+userID+`"%`).
		Preload("Creator").
		Preload("Assignee").
		Order("scheduled_date ASC, created_at DESC").
		Find(&activities).Error
	return activities, err
}
