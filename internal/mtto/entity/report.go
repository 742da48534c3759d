package entity

import (
	"time"
)

// Estados del reporte
const (
	ReportStatusOpen       = "open"
	ReportStatusInProgress = "in_progress"
	ReportStatusResolved   = "resolved"
	ReportStatusClosed     = "closed"
	ReportStatusCancelled  = "cancelled"
)

// Prioridades
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Tipos de falla
const (
	IssueTypePreventive  = "preventive"
	IssueTypeCorrective  = "corrective"
	IssueTypeInspection  = "inspection"
	IssueTypeEmergency   = "emergency"
	IssueTypeImprovement = "improvement"
	IssueTypeOther       = "other"
)

// MaxEvidenceImages máximo de imágenes de evidencia por reporte
const MaxEvidenceImages = 3

// CriticalArea zona crítica: los reportes nuevos sin prioridad explícita salen en high
const CriticalArea = "fusion"

// ReportStatuses orden canónico de estados
var ReportStatuses = []string{
	ReportStatusOpen,
	ReportStatusInProgress,
	ReportStatusResolved,
	ReportStatusClosed,
	ReportStatusCancelled,
}

// Priorities de menor a mayor
var Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

var ReportIssueTypes = []string{
	IssueTypePreventive,
	IssueTypeCorrective,
	IssueTypeInspection,
	IssueTypeEmergency,
	IssueTypeImprovement,
	IssueTypeOther,
}

// ValidReportTransitions flujos de estado permitidos; closed y cancelled son terminales
var ValidReportTransitions = map[string][]string{
	ReportStatusOpen:       {ReportStatusInProgress, ReportStatusResolved, ReportStatusClosed, ReportStatusCancelled},
	ReportStatusInProgress: {ReportStatusResolved, ReportStatusClosed, ReportStatusCancelled},
	ReportStatusResolved:   {ReportStatusClosed},
}

// Report reporte de falla de equipo
type Report struct {
	ID             string  `json:"id" gorm:"primaryKey;size:36"`
	UserID         string  `json:"user_id" gorm:"size:36;not null;index"`
	TechnicianName string  `json:"technician_name" gorm:"size:128"`
	AssignedTo     *string `json:"assigned_to" gorm:"size:36;index"`
	ReviewedBy     *string `json:"reviewed_by" gorm:"size:36"`

	EquipmentLocation

	IssueType   string `json:"issue_type" gorm:"size:20;not null;default:corrective;index"`
	Priority    string `json:"priority" gorm:"size:16;not null;default:medium;index"`
	Status      string `json:"status" gorm:"size:20;not null;default:open;index"`
	Title       string `json:"title" gorm:"size:255;not null"`
	Description string `json:"description" gorm:"type:text"`
	Notes       string `json:"notes" gorm:"type:text"`

	Tags              StringList `json:"tags"`
	EvidenceImages    StringList `json:"evidence_images"`
	EvidenceFilenames StringList `json:"evidence_filenames"`

	CompletedDate *time.Time `json:"completed_date"`
	ReviewedAt    *time.Time `json:"reviewed_at"`
	Version       int        `json:"version" gorm:"not null;default:1"`
	CreatedAt     time.Time  `json:"created_at" gorm:"index"`
	UpdatedAt     time.Time  `json:"updated_at"`

	// Relaciones
	User     *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Assignee *User `json:"assignee,omitempty" gorm:"foreignKey:AssignedTo"`
	Reviewer *User `json:"reviewer,omitempty" gorm:"foreignKey:ReviewedBy"`
}

func (Report) TableName() string {
	return "reports"
}

// CanBeEditedBy sólo el creador y sólo mientras el reporte siga abierto
func (r *Report) CanBeEditedBy(userID string) bool {
	return r.UserID == userID && r.Status == ReportStatusOpen
}

// IsHighPriority high o critical
func (r *Report) IsHighPriority() bool {
	return PriorityRank(r.Priority) >= PriorityRank(PriorityHigh)
}

// CanTransitionTo valida contra ValidReportTransitions
func (r *Report) CanTransitionTo(status string) bool {
	for _, s := range ValidReportTransitions[r.Status] {
		if s == status {
			return true
		}
	}
	return false
}

// ValidReportStatus pertenece al enum de estados
func ValidReportStatus(status string) bool {
	return contains(ReportStatuses, status)
}

func ValidPriority(priority string) bool {
	return contains(Priorities, priority)
}

func ValidReportIssueType(issueType string) bool {
	return contains(ReportIssueTypes, issueType)
}

// PriorityRank 0 (low) .. 3 (critical); -1 si no es válida
func PriorityRank(priority string) int {
	for i, p := range Priorities {
		if p == priority {
			return i
		}
	}
	return -1
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
