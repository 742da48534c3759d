package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/OscarR093/reportesMtto/internal/mtto/entity"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Hojas de los libros exportados
const (
	ReportSheet  = "Reportes"
	PendingSheet = "Pendientes"
)

// exportHeaders orden fijo de columnas
var exportHeaders = []string{"Turno", "Hora", "Técnico", "Equipo", "Prioridad", "Estado", "Descripción", "Notas"}

// priorityCol columna de prioridad (1-based)
const priorityCol = 5

// PriorityFills color de relleno de la celda de prioridad
var PriorityFills = map[string]string{
	entity.PriorityCritical: "#FF0000",
	entity.PriorityHigh:     "#FFA500",
	entity.PriorityMedium:   "#FFFF00",
	entity.PriorityLow:      "#00FF00",
}

var priorityLabels = map[string]string{
	entity.PriorityCritical: "Crítica",
	entity.PriorityHigh:     "Alta",
	entity.PriorityMedium:   "Media",
	entity.PriorityLow:      "Baja",
}

var statusLabels = map[string]string{
	entity.ReportStatusOpen:       "Abierto",
	entity.ReportStatusInProgress: "En progreso",
	entity.ReportStatusResolved:   "Resuelto",
	entity.ReportStatusClosed:     "Cerrado",
	entity.ReportStatusCancelled:  "Cancelado",
	entity.PendingStatusPending:   "Pendiente",
	entity.PendingStatusAssigned:  "Asignado",
	entity.PendingStatusDone:      "Realizado",
}

func labelOr(labels map[string]string, key string) string {
	if l, ok := labels[key]; ok {
		return l
	}
	return key
}

// ExportOptions rango mostrado en el título
type ExportOptions struct {
	From *time.Time
	To   *time.Time
}

// exportRow una fila de datos ya formateada
type exportRow struct {
	shift    string
	hour     string
	tech     string
	equip    string
	priority string
	status   string
	desc     string
	notes    string
}

// ExportService arma libros de Excel agrupados por turno
type ExportService struct {
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

func NewExportService(loc *time.Location, logger *zap.Logger) *ExportService {
	return &ExportService{loc: loc, logger: logger, now: time.Now}
}

// ExportReports una fila por reporte
func (s *ExportService) ExportReports(reports []entity.Report, opts ExportOptions) (*excelize.File, string, error) {
	rows := make([]exportRow, 0, len(reports))
	for _, r := range reports {
		created := r.CreatedAt.In(s.loc)
		rows = append(rows, exportRow{
			shift:    entity.ShiftForHour(created.Hour()),
			hour:     created.Format("15:04"),
			tech:     r.TechnicianName,
			equip:    r.EquipmentDisplay,
			priority: r.Priority,
			status:   r.Status,
			desc:     r.Description,
			notes:    r.Notes,
		})
	}
	f, err := s.build(ReportSheet, "Reportes de mantenimiento", rows, opts)
	if err != nil {
		return nil, "", err
	}
	return f, s.filename("reportes"), nil
}

// ExportPending una fila por actividad; técnico son los asignados
func (s *ExportService) ExportPending(activities []entity.PendingActivity, opts ExportOptions) (*excelize.File, string, error) {
	rows := make([]exportRow, 0, len(activities))
	for _, a := range activities {
		created := a.CreatedAt.In(s.loc)
		shift := a.Shift
		if !entity.ValidShift(shift) {
			shift = entity.ShiftForHour(created.Hour())
		}
		hour := created.Format("15:04")
		if a.CompletedAt != nil {
			hour = a.CompletedAt.In(s.loc).Format("15:04")
		}
		rows = append(rows, exportRow{
			shift:  shift,
			hour:   hour,
			tech:   strings.Join(a.AssignedNames, ", "),
			equip:  a.EquipmentDisplay,
			status: a.Status,
			desc:   a.Description,
			notes:  a.Notes,
		})
	}
	f, err := s.build(PendingSheet, "Actividades pendientes", rows, opts)
	if err != nil {
		return nil, "", err
	}
	return f, s.filename("pendientes"), nil
}

func (s *ExportService) filename(prefix string) string {
	return fmt.Sprintf("%s_%s.xlsx", prefix, s.now().In(s.loc).Format("20060102_1504"))
}

func (s *ExportService) title(base string, opts ExportOptions) string {
	switch {
	case opts.From != nil && opts.To != nil:
		return fmt.Sprintf("%s del %s al %s", base, opts.From.In(s.loc).Format("02/01/2006"), opts.To.In(s.loc).Format("02/01/2006"))
	case opts.From != nil:
		return fmt.Sprintf("%s desde %s", base, opts.From.In(s.loc).Format("02/01/2006"))
	}
	return fmt.Sprintf("%s - %s", base, s.now().In(s.loc).Format("02/01/2006"))
}

func (s *ExportService) build(sheet, title string, rows []exportRow, opts ExportOptions) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	lastCol, _ := excelize.ColumnNumberToName(len(exportHeaders))

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#1F4E78"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	groupStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	cellStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	priorityStyles := make(map[string]int, len(PriorityFills))
	for p, color := range PriorityFills {
		id, err := f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "top"},
		})
		if err != nil {
			return nil, fmt.Errorf("priority style: %w", err)
		}
		priorityStyles[p] = id
	}

	// título
	f.SetCellValue(sheet, "A1", s.title(title, opts))
	f.MergeCell(sheet, "A1", lastCol+"1")
	f.SetCellStyle(sheet, "A1", lastCol+"1", titleStyle)

	// encabezados
	for i, h := range exportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetCellValue(sheet, fmt.Sprintf("%s2", col), h)
	}
	f.SetCellStyle(sheet, "A2", lastCol+"2", headerStyle)

	row := 3
	for _, shift := range []string{entity.ShiftMorning, entity.ShiftEvening} {
		var group []exportRow
		for _, r := range rows {
			if r.shift == shift {
				group = append(group, r)
			}
		}
		if len(group) == 0 {
			continue
		}

		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), entity.ShiftLabel(shift))
		f.MergeCell(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", lastCol, row))
		f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", lastCol, row), groupStyle)
		row++

		for _, r := range group {
			values := []interface{}{
				"Turno " + r.shift,
				r.hour,
				r.tech,
				r.equip,
				labelOr(priorityLabels, r.priority),
				labelOr(statusLabels, r.status),
				r.desc,
				r.notes,
			}
			for i, v := range values {
				col, _ := excelize.ColumnNumberToName(i + 1)
				f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, row), v)
			}
			f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", lastCol, row), cellStyle)
			if id, ok := priorityStyles[r.priority]; ok {
				col, _ := excelize.ColumnNumberToName(priorityCol)
				cell := fmt.Sprintf("%s%d", col, row)
				f.SetCellStyle(sheet, cell, cell, id)
			}
			row++
		}
	}

	colWidths := []float64{10, 8, 22, 40, 12, 14, 50, 30}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 2, TopLeftCell: "A3", ActivePane: "bottomLeft"}); err != nil {
		s.logger.Warn("Failed to freeze export header", zap.Error(err))
	}

	return f, nil
}
