package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/OscarR093/reportesMtto/internal/mtto/entity"
	"github.com/OscarR093/reportesMtto/internal/mtto/equipment"
	"github.com/OscarR093/reportesMtto/internal/mtto/repository"
	"github.com/OscarR093/reportesMtto/internal/mtto/sse"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ReportService ciclo de vida de los reportes de falla
type ReportService struct {
	repo      *repository.ReportRepository
	userRepo  *repository.UserRepository
	equipment *equipment.Resolver
	storage   *StorageService
	export    *ExportService
	hub       *sse.Hub
	loc       *time.Location
	logger    *zap.Logger
	now       func() time.Time
}

func NewReportService(
	repo *repository.ReportRepository,
	userRepo *repository.UserRepository,
	resolver *equipment.Resolver,
	storage *StorageService,
	export *ExportService,
	hub *sse.Hub,
	loc *time.Location,
	logger *zap.Logger,
) *ReportService {
	return &ReportService{
		repo:      repo,
		userRepo:  userRepo,
		equipment: resolver,
		storage:   storage,
		export:    export,
		hub:       hub,
		loc:       loc,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateReportRequest datos de alta. Priority vacía significa sin prioridad
// explícita y deja actuar la regla de zona crítica.
type CreateReportRequest struct {
	LocationInput
	IssueType         string   `json:"issue_type"`
	Priority          string   `json:"priority"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Notes             string   `json:"notes"`
	Tags              []string `json:"tags"`
	EvidenceImages    []string `json:"evidence_images"`
	EvidenceFilenames []string `json:"evidence_filenames"`
}

// UpdateReportRequest cambios parciales. Version opcional para detectar
// ediciones concurrentes.
type UpdateReportRequest struct {
	LocationPatch
	IssueType         *string   `json:"issue_type"`
	Priority          *string   `json:"priority"`
	Title             *string   `json:"title"`
	Description       *string   `json:"description"`
	Notes             *string   `json:"notes"`
	Tags              *[]string `json:"tags"`
	EvidenceImages    *[]string `json:"evidence_images"`
	EvidenceFilenames *[]string `json:"evidence_filenames"`
	Version           *int      `json:"version"`
}

// ReportQuery filtros de listado más turno y paginación
type ReportQuery struct {
	repository.ReportFilter
	// Shift "1"/"morning" o "2"/"evening" según la hora local de creación
	Shift string
	Page  repository.Page
}

// ReportPage página de resultados
type ReportPage struct {
	Items      []entity.Report `json:"items"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
}

// ReportSummary bloque resumen de estadísticas
type ReportSummary struct {
	Total        int64 `json:"total"`
	Open         int64 `json:"open"`
	InProgress   int64 `json:"in_progress"`
	Resolved     int64 `json:"resolved"`
	Closed       int64 `json:"closed"`
	HighPriority int64 `json:"high_priority"`
}

// ReportStats conteos agrupados
type ReportStats struct {
	ByStatus    map[string]int64 `json:"by_status"`
	ByPriority  map[string]int64 `json:"by_priority"`
	ByIssueType map[string]int64 `json:"by_issue_type"`
	ByArea      map[string]int64 `json:"by_area"`
	Summary     ReportSummary    `json:"summary"`
}

// EvidenceFile imagen recibida para adjuntar
type EvidenceFile struct {
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// activeUser carga al usuario que opera y exige que esté activo
func activeUser(ctx context.Context, repo *repository.UserRepository, userID string) (*entity.User, error) {
	user, err := repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrForbidden, "usuario no registrado")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !user.IsActive() {
		return nil, newError(ErrForbidden, "usuario en estado %s", user.Status)
	}
	return user, nil
}

func validateEvidence(images, filenames []string) error {
	if len(images) != len(filenames) {
		return newError(ErrValidation, "evidence_images y evidence_filenames deben tener la misma longitud")
	}
	if len(images) > entity.MaxEvidenceImages {
		return newError(ErrValidation, "máximo %d imágenes de evidencia", entity.MaxEvidenceImages)
	}
	return nil
}

func cleanTags(tags []string) entity.StringList {
	out := entity.StringList{}
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// autoTitle "Reporte {Área} - {máquina|Equipo} (d/m/aaaa)"
func (s *ReportService) autoTitle(area, machine string) string {
	if machine == "" {
		machine = "Equipo"
	}
	return fmt.Sprintf("Reporte %s - %s (%s)", equipment.AreaLabel(area), machine, s.now().In(s.loc).Format("2/1/2006"))
}

// Create alta de reporte por un técnico activo
func (s *ReportService) Create(ctx context.Context, userID string, req *CreateReportRequest) (*entity.Report, error) {
	user, err := activeUser(ctx, s.userRepo, userID)
	if err != nil {
		return nil, err
	}

	loc := req.location()
	if err := stampLocation(s.equipment, &loc); err != nil {
		return nil, err
	}

	issueType := req.IssueType
	if issueType == "" {
		issueType = entity.IssueTypeCorrective
	}
	if !entity.ValidReportIssueType(issueType) {
		return nil, newError(ErrValidation, "issue_type inválido: %s", issueType)
	}

	priority := req.Priority
	if priority == "" {
		priority = entity.PriorityMedium
		if loc.EquipmentArea == entity.CriticalArea {
			priority = entity.PriorityHigh
		}
	}
	if !entity.ValidPriority(priority) {
		return nil, newError(ErrValidation, "priority inválida: %s", priority)
	}

	if err := validateEvidence(req.EvidenceImages, req.EvidenceFilenames); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = s.autoTitle(loc.EquipmentArea, loc.EquipmentMachine)
	}

	report := &entity.Report{
		ID:                uuid.New().String(),
		UserID:            user.ID,
		TechnicianName:    user.DisplayName(),
		EquipmentLocation: loc,
		IssueType:         issueType,
		Priority:          priority,
		Status:            entity.ReportStatusOpen,
		Title:             title,
		Description:       strings.TrimSpace(req.Description),
		Notes:             req.Notes,
		Tags:              cleanTags(req.Tags),
		EvidenceImages:    entity.StringList(append([]string{}, req.EvidenceImages...)),
		EvidenceFilenames: entity.StringList(append([]string{}, req.EvidenceFilenames...)),
		Version:           1,
	}

	if err := s.repo.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}

	s.hub.PublishReportUpdate(report.ID, "created")
	return s.Get(ctx, report.ID)
}

// Get reporte con usuarios hidratados
func (s *ReportService) Get(ctx context.Context, id string) (*entity.Report, error) {
	report, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateRepoErr(err, "reporte")
	}
	return report, nil
}

// editable carga el reporte y aplica la regla creador + abierto
func (s *ReportService) editable(ctx context.Context, id, userID string) (*entity.Report, error) {
	report, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !report.CanBeEditedBy(userID) {
		return nil, newError(ErrForbidden, "sólo el creador puede modificar el reporte mientras está abierto")
	}
	return report, nil
}

func (s *ReportService) save(ctx context.Context, report *entity.Report) error {
	if err := s.repo.Update(ctx, report); err != nil {
		return translateRepoErr(err, "reporte")
	}
	return nil
}

// Update edición por el creador mientras el reporte sigue abierto
func (s *ReportService) Update(ctx context.Context, id, userID string, req *UpdateReportRequest) (*entity.Report, error) {
	report, err := s.editable(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if req.Version != nil && *req.Version != report.Version {
		return nil, newError(ErrConflict, "el reporte cambió desde la versión %d", *req.Version)
	}

	next := req.LocationPatch.apply(report.EquipmentLocation)
	if !next.SameLocation(report.EquipmentLocation) {
		if err := stampLocation(s.equipment, &next); err != nil {
			return nil, err
		}
		areaChanged := next.EquipmentArea != report.EquipmentArea
		report.EquipmentLocation = next
		if areaChanged && next.EquipmentArea == entity.CriticalArea && req.Priority == nil {
			report.Priority = entity.PriorityHigh
		}
	}

	if req.IssueType != nil {
		if !entity.ValidReportIssueType(*req.IssueType) {
			return nil, newError(ErrValidation, "issue_type inválido: %s", *req.IssueType)
		}
		report.IssueType = *req.IssueType
	}
	if req.Priority != nil {
		if !entity.ValidPriority(*req.Priority) {
			return nil, newError(ErrValidation, "priority inválida: %s", *req.Priority)
		}
		report.Priority = *req.Priority
	}
	if req.Title != nil {
		if t := strings.TrimSpace(*req.Title); t != "" {
			report.Title = t
		}
	}
	if req.Description != nil {
		report.Description = strings.TrimSpace(*req.Description)
	}
	if req.Notes != nil {
		report.Notes = *req.Notes
	}
	if req.Tags != nil {
		report.Tags = cleanTags(*req.Tags)
	}

	if req.EvidenceImages != nil || req.EvidenceFilenames != nil {
		if req.EvidenceImages == nil || req.EvidenceFilenames == nil {
			return nil, newError(ErrValidation, "evidence_images y evidence_filenames se envían juntos")
		}
		if err := validateEvidence(*req.EvidenceImages, *req.EvidenceFilenames); err != nil {
			return nil, err
		}
		report.EvidenceImages = entity.StringList(append([]string{}, *req.EvidenceImages...))
		report.EvidenceFilenames = entity.StringList(append([]string{}, *req.EvidenceFilenames...))
	}

	if err := s.save(ctx, report); err != nil {
		return nil, err
	}
	s.hub.PublishReportUpdate(report.ID, "updated")
	return s.Get(ctx, report.ID)
}

// Assign asigna un técnico activo; un reporte abierto pasa a en progreso
func (s *ReportService) Assign(ctx context.Context, id, technicianID, userID string) (*entity.Report, error) {
	actor, err := activeUser(ctx, s.userRepo, userID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManageUsers() {
		return nil, newError(ErrForbidden, "sólo administradores pueden asignar reportes")
	}

	report, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(technicianID) == "" {
		return nil, newError(ErrValidation, "technician_id es requerido")
	}
	tech, err := s.userRepo.FindByID(ctx, technicianID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrInvalidTarget, "técnico %s no existe", technicianID)
		}
		return nil, fmt.Errorf("find technician: %w", err)
	}
	if !tech.IsActive() {
		return nil, newError(ErrInvalidTarget, "técnico %s no está activo", technicianID)
	}

	report.AssignedTo = &tech.ID
	if report.Status == entity.ReportStatusOpen {
		report.Status = entity.ReportStatusInProgress
	}

	if err := s.save(ctx, report); err != nil {
		return nil, err
	}
	s.hub.PublishReportUpdate(report.ID, "assigned")
	return s.Get(ctx, report.ID)
}

// applyStatus cambia el estado y sella revisión y fecha de cierre al entrar
// en resolved o closed. completed_date se fija una sola vez.
func applyStatus(report *entity.Report, status, userID string, now time.Time) {
	report.Status = status
	if status == entity.ReportStatusResolved || status == entity.ReportStatusClosed {
		reviewer := userID
		report.ReviewedBy = &reviewer
		report.ReviewedAt = &now
		if report.CompletedDate == nil {
			completed := now
			report.CompletedDate = &completed
		}
	}
}

// ChangeStatus mismo candado que Update: creador y reporte abierto
func (s *ReportService) ChangeStatus(ctx context.Context, id, status, userID, notes string) (*entity.Report, error) {
	report, err := s.editable(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !entity.ValidReportStatus(status) {
		return nil, newError(ErrInvalidStatus, "estado inválido: %s", status)
	}
	if !report.CanTransitionTo(status) {
		return nil, newError(ErrInvalidStatus, "no se puede pasar de %s a %s", report.Status, status)
	}

	applyStatus(report, status, userID, s.now())
	if notes = strings.TrimSpace(notes); notes != "" {
		report.Notes = notes
	}

	if err := s.save(ctx, report); err != nil {
		return nil, err
	}
	s.hub.PublishReportUpdate(report.ID, "status_changed")
	return s.Get(ctx, report.ID)
}

// Delete borrado físico por el creador mientras sigue abierto
func (s *ReportService) Delete(ctx context.Context, id, userID string) error {
	report, err := s.editable(ctx, id, userID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, report.ID); err != nil {
		return translateRepoErr(err, "reporte")
	}
	s.storage.deleteQuietly(ctx, report.EvidenceImages)
	s.hub.PublishReportUpdate(report.ID, "deleted")
	return nil
}

// AttachEvidence sube imágenes y las agrega al reporte sin pasar de tres
func (s *ReportService) AttachEvidence(ctx context.Context, id, userID string, files []EvidenceFile) (*entity.Report, error) {
	report, err := s.editable(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, newError(ErrValidation, "no se recibieron archivos")
	}
	if len(report.EvidenceImages)+len(files) > entity.MaxEvidenceImages {
		return nil, newError(ErrValidation, "máximo %d imágenes de evidencia (ya hay %d)", entity.MaxEvidenceImages, len(report.EvidenceImages))
	}
	for _, f := range files {
		if !IsImage(f.ContentType) {
			return nil, newError(ErrValidation, "%s no es una imagen", f.Filename)
		}
	}

	var uploaded []string
	for _, f := range files {
		stored, err := s.storage.Upload(ctx, "evidence", f.Reader, f.Size, f.Filename, f.ContentType)
		if err != nil {
			s.storage.deleteQuietly(ctx, uploaded)
			return nil, err
		}
		uploaded = append(uploaded, stored.URL)
		report.EvidenceImages = append(report.EvidenceImages, stored.URL)
		report.EvidenceFilenames = append(report.EvidenceFilenames, f.Filename)
	}

	if err := s.save(ctx, report); err != nil {
		s.storage.deleteQuietly(ctx, uploaded)
		return nil, err
	}
	s.hub.PublishReportUpdate(report.ID, "evidence_added")
	return s.Get(ctx, report.ID)
}

// normalizeShift acepta "1"/"2" o "morning"/"evening"
func normalizeShift(shift string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(shift)) {
	case "":
		return "", nil
	case entity.ShiftMorning, "morning":
		return entity.ShiftMorning, nil
	case entity.ShiftEvening, "evening":
		return entity.ShiftEvening, nil
	}
	return "", newError(ErrValidation, "turno inválido: %s", shift)
}

// ShiftOf turno de un instante según la hora local de la planta
func ShiftOf(t time.Time, loc *time.Location) string {
	return entity.ShiftForHour(t.In(loc).Hour())
}

func (s *ReportService) filterShift(reports []entity.Report, shift string) []entity.Report {
	out := reports[:0]
	for _, r := range reports {
		if ShiftOf(r.CreatedAt, s.loc) == shift {
			out = append(out, r)
		}
	}
	return out
}

// List listado paginado. El filtro de turno depende de la zona horaria, así
// que con turno se filtra en memoria y se pagina después.
func (s *ReportService) List(ctx context.Context, q ReportQuery) (*ReportPage, error) {
	page := q.Page.Normalize()
	shift, err := normalizeShift(q.Shift)
	if err != nil {
		return nil, err
	}

	var (
		items []entity.Report
		total int64
	)
	if shift == "" {
		items, total, err = s.repo.List(ctx, q.ReportFilter, page)
		if err != nil {
			return nil, fmt.Errorf("list reports: %w", err)
		}
	} else {
		all, err := s.repo.ListAll(ctx, q.ReportFilter)
		if err != nil {
			return nil, fmt.Errorf("list reports: %w", err)
		}
		all = s.filterShift(all, shift)
		total = int64(len(all))
		start := page.Offset()
		if start > len(all) {
			start = len(all)
		}
		end := start + page.Limit
		if end > len(all) {
			end = len(all)
		}
		items = all[start:end]
	}
	if items == nil {
		items = []entity.Report{}
	}

	totalPages := int(total) / page.Limit
	if int(total)%page.Limit > 0 {
		totalPages++
	}
	return &ReportPage{
		Items:      items,
		Total:      total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: totalPages,
	}, nil
}

// ListHighPriority abiertos o en progreso con prioridad high/critical, más antiguos primero
func (s *ReportService) ListHighPriority(ctx context.Context, page repository.Page) (*ReportPage, error) {
	return s.List(ctx, ReportQuery{
		ReportFilter: repository.ReportFilter{
			Statuses:    []string{entity.ReportStatusOpen, entity.ReportStatusInProgress},
			Priorities:  []string{entity.PriorityHigh, entity.PriorityCritical},
			OldestFirst: true,
		},
		Page: page,
	})
}

// ListMine reportes creados por el usuario
func (s *ReportService) ListMine(ctx context.Context, userID string, q ReportQuery) (*ReportPage, error) {
	q.UserID = userID
	return s.List(ctx, q)
}

// ListAssigned reportes asignados al usuario
func (s *ReportService) ListAssigned(ctx context.Context, userID string, q ReportQuery) (*ReportPage, error) {
	q.AssignedTo = userID
	return s.List(ctx, q)
}

// ListByArea reportes de un área existente del catálogo
func (s *ReportService) ListByArea(ctx context.Context, areaKey string, q ReportQuery) (*ReportPage, error) {
	if _, err := s.equipment.GetHierarchy(); err != nil {
		return nil, translateRepoErr(err, "catálogo de equipos")
	}
	if !s.equipment.ValidatePath(areaKey, "", "", "") {
		return nil, newError(ErrInvalidEquipment, "área desconocida: %s", areaKey)
	}
	q.EquipmentArea = areaKey
	return s.List(ctx, q)
}

// Stats conteos por estado, prioridad, tipo y área dentro del rango opcional
func (s *ReportService) Stats(ctx context.Context, from, to *time.Time) (*ReportStats, error) {
	stats := &ReportStats{}
	groups := []struct {
		column string
		dst    *map[string]int64
	}{
		{"status", &stats.ByStatus},
		{"priority", &stats.ByPriority},
		{"issue_type", &stats.ByIssueType},
		{"equipment_area", &stats.ByArea},
	}
	for _, g := range groups {
		counts, err := s.repo.CountBy(ctx, g.column, from, to)
		if err != nil {
			return nil, fmt.Errorf("count by %s: %w", g.column, err)
		}
		*g.dst = counts
	}

	for _, n := range stats.ByStatus {
		stats.Summary.Total += n
	}
	stats.Summary.Open = stats.ByStatus[entity.ReportStatusOpen]
	stats.Summary.InProgress = stats.ByStatus[entity.ReportStatusInProgress]
	stats.Summary.Resolved = stats.ByStatus[entity.ReportStatusResolved]
	stats.Summary.Closed = stats.ByStatus[entity.ReportStatusClosed]
	for priority, n := range stats.ByPriority {
		if (&entity.Report{Priority: priority}).IsHighPriority() {
			stats.Summary.HighPriority += n
		}
	}
	return stats, nil
}

// Export libro de Excel con los reportes que cumplen el filtro, agrupados por turno
func (s *ReportService) Export(ctx context.Context, q ReportQuery) (*excelize.File, string, error) {
	shift, err := normalizeShift(q.Shift)
	if err != nil {
		return nil, "", err
	}
	reports, err := s.repo.ListAll(ctx, q.ReportFilter)
	if err != nil {
		return nil, "", fmt.Errorf("list reports: %w", err)
	}
	if shift != "" {
		reports = s.filterShift(reports, shift)
	}
	return s.export.ExportReports(reports, ExportOptions{From: q.DateFrom, To: q.DateTo})
}
