package repository

import (
	"errors"
	"fmt"

	"github.com/OscarR093/reportesMtto/internal/mtto/entity"
	"gorm.io/gorm"
)

// Errores
var (
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict otro request modificó el registro entre lectura y escritura
	ErrVersionConflict = errors.New("record was modified concurrently")
)

// Repositories colección de repositorios
type Repositories struct {
	User    *UserRepository
	Report  *ReportRepository
	Pending *PendingRepository
}

// NewRepositories crea la colección de repositorios
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:    NewUserRepository(db),
		Report:  NewReportRepository(db),
		Pending: NewPendingRepository(db),
	}
}

// AllModels tablas del servicio en orden de migración
func AllModels() []interface{} {
	return []interface{}{
		&entity.User{},
		&entity.Report{},
		&entity.PendingActivity{},
	}
}

// AutoMigrate crea o actualiza todas las tablas
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Page parámetros de paginación por offset
type Page struct {
	Page  int
	Limit int
}

// Normalize página >= 1, límite entre 1 y 100 (default 20)
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	return p
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}
