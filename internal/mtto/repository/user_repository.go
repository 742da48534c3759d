package repository

import (
	"context"
	"strings"

	"github.com/OscarR093/reportesMtto/internal/mtto/entity"
	"gorm.io/gorm"
)

// UserRepository repositorio de usuarios
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID busca usuario por ID
func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// FindByEmail búsqueda sin distinguir mayúsculas
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *UserRepository) FindByGoogleID(ctx context.Context, googleID string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).Where("google_id = ?", googleID).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// FindByIDs usuarios existentes entre los IDs dados (orden no garantizado)
func (r *UserRepository) FindByIDs(ctx context.Context, ids []string) ([]entity.User, error) {
	var users []entity.User
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, err
}

func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) Update(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// List usuarios filtrados por estado/rol, más recientes primero
func (r *UserRepository) List(ctx context.Context, status, role string) ([]entity.User, error) {
	var users []entity.User
	query := r.db.WithContext(ctx).Model(&entity.User{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if role != "" {
		query = query.Where("role = ?", role)
	}
	err := query.Order("created_at DESC").Find(&users).Error
	return users, err
}

// ListActiveTechnicians usuarios activos ordenados por nombre (para asignar)
func (r *UserRepository) ListActiveTechnicians(ctx context.Context) ([]entity.User, error) {
	var users []entity.User
	err := r.db.WithContext(ctx).
		Where("status = ?", entity.UserStatusActive).
		Order("name ASC").
		Find(&users).Error
	return users, err
}
