package service

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/OscarR093/reportesMtto/internal/mtto/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func fixedExport() *ExportService {
	s := NewExportService(plantZone, zap.NewNop())
	s.now = func() time.Time { return time.Date(2025, 6, 3, 15, 4, 0, 0, time.UTC) }
	return s
}

// reopen serializa y vuelve a leer el libro como lo haría un cliente
func reopen(t *testing.T, f *excelize.File) *excelize.File {
	t.Helper()
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	out, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	t.Cleanup(func() { out.Close() })
	return out
}

func fillOf(t *testing.T, f *excelize.File, sheet, cell string) string {
	t.Helper()
	id, err := f.GetCellStyle(sheet, cell)
	require.NoError(t, err)
	style, err := f.GetStyle(id)
	require.NoError(t, err)
	if len(style.Fill.Color) == 0 {
		return ""
	}
	return strings.ToUpper(strings.TrimPrefix(style.Fill.Color[0], "#"))
}

func TestExportReportsRowsAndFills(t *testing.T) {
	s := fixedExport()
	morning := time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC) // 08:30 local
	evening := time.Date(2025, 6, 2, 3, 15, 0, 0, time.UTC)  // 21:15 local

	reports := []entity.Report{
		{TechnicianName: "Ana", Priority: entity.PriorityCritical, Status: entity.ReportStatusOpen, CreatedAt: morning,
			EquipmentLocation: entity.EquipmentLocation{EquipmentDisplay: "Fusion > Horno 1"}, Description: "fuga"},
		{TechnicianName: "Beto", Priority: entity.PriorityHigh, Status: entity.ReportStatusInProgress, CreatedAt: evening},
		{TechnicianName: "Carla", Priority: entity.PriorityMedium, Status: entity.ReportStatusResolved, CreatedAt: morning},
		{TechnicianName: "Dora", Priority: entity.PriorityLow, Status: entity.ReportStatusClosed, CreatedAt: evening},
	}

	f, name, err := s.ExportReports(reports, ExportOptions{})
	require.NoError(t, err)
	assert.Equal(t, "reportes_20250603_0904.xlsx", name)

	out := reopen(t, f)
	rows, err := out.GetRows(ReportSheet)
	require.NoError(t, err)

	// título + encabezados + dos grupos de turno + una fila por reporte
	require.Len(t, rows, 2+2+len(reports))
	assert.Equal(t, exportHeaders, rows[1])
	assert.Equal(t, entity.ShiftLabel(entity.ShiftMorning), rows[2][0])

	dataRows := 0
	for i, row := range rows {
		if len(row) > 1 && strings.HasPrefix(row[0], "Turno ") && row[1] != "" {
			dataRows++
			priority := ""
			for p, label := range priorityLabels {
				if row[priorityCol-1] == label {
					priority = p
				}
			}
			require.NotEmpty(t, priority, "row %d", i+1)
			cell := fmt.Sprintf("E%d", i+1)
			assert.Equal(t, strings.TrimPrefix(PriorityFills[priority], "#"), fillOf(t, out, ReportSheet, cell), cell)
		}
	}
	assert.Equal(t, len(reports), dataRows)

	// primer dato del turno 1
	assert.Equal(t, []string{"Turno 1", "08:30", "Ana", "Fusion > Horno 1", "Crítica", "Abierto", "fuga"}, rows[3])
}

func TestExportReportsSkipsEmptyShift(t *testing.T) {
	s := fixedExport()
	reports := []entity.Report{
		{Priority: entity.PriorityLow, Status: entity.ReportStatusOpen, CreatedAt: time.Date(2025, 6, 2, 3, 0, 0, 0, time.UTC)},
	}
	f, _, err := s.ExportReports(reports, ExportOptions{})
	require.NoError(t, err)

	rows, err := reopen(t, f).GetRows(ReportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, entity.ShiftLabel(entity.ShiftEvening), rows[2][0])
}

func TestExportPendingUsesScheduledShift(t *testing.T) {
	s := fixedExport()
	completed := time.Date(2025, 6, 1, 20, 45, 0, 0, time.UTC) // 14:45 local
	activities := []entity.PendingActivity{
		{
			Shift:         entity.ShiftEvening,
			Status:        entity.PendingStatusDone,
			Description:   "engrasar",
			AssignedNames: []string{"Ana", "Beto"},
			CreatedAt:     time.Date(2025, 5, 30, 15, 0, 0, 0, time.UTC),
			CompletedAt:   &completed,
		},
	}
	from := time.Date(2025, 6, 1, 0, 0, 0, 0, plantZone)
	to := time.Date(2025, 6, 7, 0, 0, 0, 0, plantZone)

	f, name, err := s.ExportPending(activities, ExportOptions{From: &from, To: &to})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "pendientes_"))

	rows, err := reopen(t, f).GetRows(PendingSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Contains(t, rows[0][0], "del 01/06/2025 al 07/06/2025")
	assert.Equal(t, []string{"Turno 2", "14:45", "Ana, Beto", "", "", "Realizado", "engrasar"}, rows[3])
}
