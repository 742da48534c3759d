package entity

import (
	"time"
)

// Roles
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// Estados de aprobación del usuario
const (
	UserStatusPending  = "pending"
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
	UserStatusRejected = "rejected"
)

// User usuario del sistema (técnico o administrador)
type User struct {
	ID             string     `json:"id" gorm:"primaryKey;size:36"`
	GoogleID       *string    `json:"google_id,omitempty" gorm:"size:64;uniqueIndex"`
	Email          string     `json:"email" gorm:"size:128;not null;uniqueIndex"`
	Name           string     `json:"name" gorm:"size:128;not null"`
	FullName       string     `json:"full_name" gorm:"size:128"`
	AvatarURL      string     `json:"avatar_url" gorm:"size:512"`
	PasswordHash   string     `json:"-" gorm:"size:128"`
	EmployeeNumber string     `json:"employee_number" gorm:"size:32;index"`
	Phone          string     `json:"phone" gorm:"size:20"`
	Role           string     `json:"role" gorm:"size:16;not null;default:user;index"`
	Status         string     `json:"status" gorm:"size:16;not null;default:pending;index"`
	ApprovedBy     *string    `json:"approved_by,omitempty" gorm:"size:36"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
	RejectedReason string     `json:"rejected_reason,omitempty" gorm:"type:text"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// IsAdmin admin o super_admin
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}

// CanManageUsers puede asignar trabajo y aprobar usuarios
func (u *User) CanManageUsers() bool {
	return u.IsAdmin()
}

// IsSuperAdmin único rol que puede otorgar el rol admin
func (u *User) IsSuperAdmin() bool {
	return u.Role == RoleSuperAdmin
}

func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// DisplayName nombre para mostrar en reportes y exportaciones
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// ValidRole indica si el rol pertenece al catálogo
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

func ValidUserStatus(status string) bool {
	switch status {
	case UserStatusPending, UserStatusActive, UserStatusInactive, UserStatusRejected:
		return true
	}
	return false
}
