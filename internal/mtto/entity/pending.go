package entity

import (
	"time"
)

// Estados de actividad pendiente
const (
	PendingStatusPending  = "pending"
	PendingStatusAssigned = "assigned"
	PendingStatusDone     = "done"
)

// Turnos
const (
	ShiftMorning = "1"
	ShiftEvening = "2"
)

var PendingIssueTypes = []string{IssueTypePreventive, IssueTypeCorrective, IssueTypeImprovement}

// ValidPendingTransitions pending -> assigned -> done; assigned admite reasignación
var ValidPendingTransitions = map[string][]string{
	PendingStatusPending:  {PendingStatusAssigned},
	PendingStatusAssigned: {PendingStatusAssigned, PendingStatusDone},
}

// PendingActivity tarea de mantenimiento planeada por un administrador
type PendingActivity struct {
	ID string `json:"id" gorm:"primaryKey;size:36"`

	EquipmentLocation

	Description string `json:"description" gorm:"type:text;not null"`
	IssueType   string `json:"issue_type" gorm:"size:20;not null;default:preventive"`
	Status      string `json:"status" gorm:"size:16;not null;default:pending;index"`
	Notes       string `json:"notes" gorm:"type:text"`

	// AssignedTo es siempre AssignedUsers[0]; se fija únicamente vía SetAssignees
	AssignedTo    *string    `json:"assigned_to" gorm:"size:36;index"`
	AssignedUsers StringList `json:"assigned_users"`
	ScheduledDate *time.Time `json:"scheduled_date"`
	Shift         string     `json:"shift" gorm:"size:1"`

	CreatedBy   string     `json:"created_by" gorm:"size:36;not null"`
	CompletedAt *time.Time `json:"completed_at"`
	CompletedBy *string    `json:"completed_by" gorm:"size:36"`
	CreatedAt   time.Time  `json:"created_at" gorm:"index"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relaciones
	Creator   *User `json:"creator,omitempty" gorm:"foreignKey:CreatedBy"`
	Assignee  *User `json:"assignee,omitempty" gorm:"foreignKey:AssignedTo"`
	Completer *User `json:"completer,omitempty" gorm:"foreignKey:CompletedBy"`

	// No persistido
	AssignedNames []string `json:"assigned_names,omitempty" gorm:"-"`
}

func (PendingActivity) TableName() string {
	return "pending_activities"
}

// SetAssignees fija la lista de asignados y recalcula el asignado principal
func (a *PendingActivity) SetAssignees(ids []string) {
	list := make(StringList, len(ids))
	copy(list, ids)
	a.AssignedUsers = list
	if len(list) == 0 {
		a.AssignedTo = nil
		return
	}
	primary := list[0]
	a.AssignedTo = &primary
}

// IsAssignedTo el usuario es el principal o aparece en la lista
func (a *PendingActivity) IsAssignedTo(userID string) bool {
	if a.AssignedTo != nil && *a.AssignedTo == userID {
		return true
	}
	for _, id := range a.AssignedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

func (a *PendingActivity) CanTransitionTo(status string) bool {
	for _, s := range ValidPendingTransitions[a.Status] {
		if s == status {
			return true
		}
	}
	return false
}

func ValidPendingIssueType(issueType string) bool {
	return contains(PendingIssueTypes, issueType)
}

func ValidShift(shift string) bool {
	return shift == ShiftMorning || shift == ShiftEvening
}

// ShiftLabel etiqueta legible del turno
func ShiftLabel(shift string) string {
	switch shift {
	case ShiftMorning:
		return "Turno 1 (06:00-18:00)"
	case ShiftEvening:
		return "Turno 2 (18:00-06:00)"
	}
	return "Sin turno"
}

// ShiftForHour turno al que pertenece una hora local: [6,18) es turno 1
func ShiftForHour(hour int) string {
	if hour >= 6 && hour < 18 {
		return ShiftMorning
	}
	return ShiftEvening
}
