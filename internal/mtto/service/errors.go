package service

import (
	"errors"
	"fmt"

	"github.com/OscarR093/reportesMtto/internal/mtto/equipment"
	"github.com/OscarR093/reportesMtto/internal/mtto/repository"
)

// Tipos de error de dominio. Los handlers los traducen a códigos HTTP.
var (
	ErrValidation       = errors.New("validation error")
	ErrInvalidEquipment = errors.New("invalid equipment path")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	ErrInvalidTarget    = errors.New("invalid target user")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrDataUnavailable  = errors.New("equipment data unavailable")
	ErrConflict         = errors.New("conflict")
	ErrUnauthorized     = errors.New("unauthorized")
)

// DomainError error tipado con mensaje legible para el cliente
type DomainError struct {
	Kind    error
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...interface{}) error {
	return &DomainError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// translateRepoErr convierte errores de repositorio y del catálogo de equipos
// en errores de dominio; el resto se envuelve con el contexto dado
func translateRepoErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return newError(ErrNotFound, "%s no encontrado", what)
	case errors.Is(err, repository.ErrVersionConflict):
		return newError(ErrConflict, "%s fue modificado por otro usuario, recarga e intenta de nuevo", what)
	case errors.Is(err, equipment.ErrDataUnavailable):
		return newError(ErrDataUnavailable, "catálogo de equipos no disponible")
	}
	return fmt.Errorf("%s: %w", what, err)
}
