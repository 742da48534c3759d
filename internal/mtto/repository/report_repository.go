package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/OscarR093/reportesMtto/internal/mtto/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReportRepository repositorio de reportes
type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// ReportFilter filtros de listado. Shift no se aplica aquí: depende de la
// zona horaria de la planta y lo resuelve el servicio.
type ReportFilter struct {
	UserID           string
	AssignedTo       string
	Statuses         []string
	Priorities       []string
	IssueType        string
	EquipmentArea    string
	EquipmentMachine string
	Search           string
	DateFrom         *time.Time
	DateTo           *time.Time
	SortBy           string
	SortOrder        string
	OldestFirst      bool
}

// priorityRankSQL ordena prioridades por severidad y no alfabéticamente
const priorityRankSQL = "CASE priority WHEN 'critical' THEN 4 WHEN 'high' THEN 3 WHEN 'medium' THEN 2 WHEN 'low' THEN 1 ELSE 0 END"

var sortableColumns = map[string]string{
	"created_at":     "created_at",
	"updated_at":     "updated_at",
	"completed_date": "completed_date",
	"status":         "status",
	"title":          "title",
	"equipment_area": "equipment_area",
	"priority":       priorityRankSQL,
}

// FindByID reporte con creador, asignado y revisor precargados
func (r *ReportRepository) FindByID(ctx context.Context, id string) (*entity.Report, error) {
	var report entity.Report
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Assignee").
		Preload("Reviewer").
		Where("id = ?", id).
		First(&report).Error
	if err != nil {
		return nil, translate(err)
	}
	return &report, nil
}

func (r *ReportRepository) Create(ctx context.Context, report *entity.Report) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(report).Error
}

// Update guarda todos los campos mutables si la versión no cambió desde la lectura
func (r *ReportRepository) Update(ctx context.Context, report *entity.Report) error {
	result := r.db.WithContext(ctx).
		Model(&entity.Report{}).
		Where("id = ? AND version = ?", report.ID, report.Version).
		Updates(map[string]interface{}{
			"technician_name":     report.TechnicianName,
			"assigned_to":         report.AssignedTo,
			"reviewed_by":         report.ReviewedBy,
			"equipment_area":      report.EquipmentArea,
			"equipment_machine":   report.EquipmentMachine,
			"equipment_element":   report.EquipmentElement,
			"equipment_component": report.EquipmentComponent,
			"equipment_path":      report.EquipmentPath,
			"equipment_display":   report.EquipmentDisplay,
			"issue_type":          report.IssueType,
			"priority":            report.Priority,
			"status":              report.Status,
			"title":               report.Title,
			"description":         report.Description,
			"notes":               report.Notes,
			"tags":                report.Tags,
			"evidence_images":     report.EvidenceImages,
			"evidence_filenames":  report.EvidenceFilenames,
			"completed_date":      report.CompletedDate,
			"reviewed_at":         report.ReviewedAt,
			"version":             report.Version + 1,
			"updated_at":          time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var n int64
		r.db.WithContext(ctx).Model(&entity.Report{}).Where("id = ?", report.ID).Count(&n)
		if n == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	report.Version++
	return nil
}

// Delete borrado físico
func (r *ReportRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Report{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ReportRepository) applyFilter(query *gorm.DB, f ReportFilter) *gorm.DB {
	if f.UserID != "" {
		query = query.Where("user_id = ?", f.UserID)
	}
	if f.AssignedTo != "" {
		query = query.Where("assigned_to = ?", f.AssignedTo)
	}
	if len(f.Statuses) == 1 {
		query = query.Where("status = ?", f.Statuses[0])
	} else if len(f.Statuses) > 1 {
		query = query.Where("status IN ?", f.Statuses)
	}
	if len(f.Priorities) == 1 {
		query = query.Where("priority = ?", f.Priorities[0])
	} else if len(f.Priorities) > 1 {
		query = query.Where("priority IN ?", f.Priorities)
	}
	if f.IssueType != "" {
		query = query.Where("issue_type = ?", f.IssueType)
	}
	if f.EquipmentArea != "" {
		query = query.Where("equipment_area = ?", f.EquipmentArea)
	}
	if f.EquipmentMachine != "" {
		query = query.Where("equipment_machine = ?", f.EquipmentMachine)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
		query = query.Where(
			`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR LOWER(technician_name) LIKE ? ESCAPE '\' OR LOWER(equipment_display) LIKE ? ESCAPE '\'`,
			like, like, like, like,
		)
	}
	if f.DateFrom != nil {
		query = query.Where("created_at >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		query = query.Where("created_at < ?", *f.DateTo)
	}
	return query
}

// likeEscaper trata % y _ del término como literales
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func orderFor(f ReportFilter) string {
	if col, ok := sortableColumns[f.SortBy]; ok {
		dir := "DESC"
		if strings.EqualFold(f.SortOrder, "asc") {
			dir = "ASC"
		}
		return fmt.Sprintf("%s %s", col, dir)
	}
	if f.OldestFirst {
		return priorityRankSQL + " DESC, created_at ASC"
	}
	return priorityRankSQL + " DESC, created_at DESC"
}

// List página de reportes y total
func (r *ReportRepository) List(ctx context.Context, f ReportFilter, page Page) ([]entity.Report, int64, error) {
	var (
		reports []entity.Report
		total   int64
	)
	page = page.Normalize()
	query := r.applyFilter(r.db.WithContext(ctx).Model(&entity.Report{}), f)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.
		Preload("User").
		Preload("Assignee").
		Preload("Reviewer").
		Order(orderFor(f)).
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&reports).Error
	return reports, total, err
}

// ListAll todos los reportes que cumplen el filtro, sin paginar
func (r *ReportRepository) ListAll(ctx context.Context, f ReportFilter) ([]entity.Report, error) {
	var reports []entity.Report
	err := r.applyFilter(r.db.WithContext(ctx).Model(&entity.Report{}), f).
		Preload("User").
		Preload("Assignee").
		Preload("Reviewer").
		Order(orderFor(f)).
		Find(&reports).Error
	return reports, err
}

// CountRow fila de conteo agrupado
type CountRow struct {
	Key   string
	Count int64
}

// CountBy conteo agrupado por columna dentro de un rango de fechas opcional
func (r *ReportRepository) CountBy(ctx context.Context, column string, from, to *time.Time) (map[string]int64, error) {
	switch column {
	case "status", "priority", "issue_type", "equipment_area":
	default:
		return nil, fmt.Errorf("unsupported group column %q", column)
	}
	var rows []CountRow
	query := r.applyFilter(r.db.WithContext(ctx).Model(&entity.Report{}), ReportFilter{DateFrom: from, DateTo: to})
	err := query.
		Select(column + " AS key, COUNT(*) AS count").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Count
	}
	return out, nil
}
