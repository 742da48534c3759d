package handler

import (
	"time"

	"github.com/OscarR093/reportesMtto/internal/mtto/entity"
	"github.com/OscarR093/reportesMtto/internal/mtto/repository"
	"github.com/OscarR093/reportesMtto/internal/mtto/service"
	"github.com/gin-gonic/gin"
)

// ReportHandler reportes de falla
type ReportHandler struct {
	svc *service.ReportService
	loc *time.Location
}

func NewReportHandler(svc *service.ReportService, loc *time.Location) *ReportHandler {
	return &ReportHandler{svc: svc, loc: loc}
}

// query arma el filtro desde el query string
func (h *ReportHandler) query(c *gin.Context) (service.ReportQuery, bool) {
	from, to, err := parseDateRange(c, h.loc)
	if err != nil {
		BadRequest(c, "fecha inválida, use AAAA-MM-DD")
		return service.ReportQuery{}, false
	}
	return service.ReportQuery{
		ReportFilter: repository.ReportFilter{
			UserID:           c.Query("user_id"),
			AssignedTo:       c.Query("assigned_to"),
			Statuses:         splitList(c.Query("status")),
			Priorities:       splitList(c.Query("priority")),
			IssueType:        c.Query("issue_type"),
			EquipmentArea:    c.Query("equipment_area"),
			EquipmentMachine: c.Query("equipment_machine"),
			Search:           c.Query("search"),
			DateFrom:         from,
			DateTo:           to,
			SortBy:           c.Query("sort_by"),
			SortOrder:        c.Query("sort_order"),
		},
		Shift: c.Query("shift"),
		Page:  GetPagination(c),
	}, true
}

func listResponse(c *gin.Context, page *service.ReportPage) {
	Success(c, ListResponse{
		Items: page.Items,
		Pagination: &Pagination{
			Page:       page.Page,
			PageSize:   page.Limit,
			Total:      page.Total,
			TotalPages: page.TotalPages,
		},
	})
}

// Create POST /reports
func (h *ReportHandler) Create(c *gin.Context) {
	var req service.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Parámetros inválidos: "+err.Error())
		return
	}
	report, err := h.svc.Create(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, report)
}

// List GET /reports
func (h *ReportHandler) List(c *gin.Context) {
	q, ok := h.query(c)
	if !ok {
		return
	}
	page, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		HandleError(c, err)
		return
	}
	listResponse(c, page)
}

// Get GET /reports/:id
func (h *ReportHandler) Get(c *gin.Context) {
	report, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, report)
}

// Update PUT /reports/:id
func (h *ReportHandler) Update(c *gin.Context) {
	var req service.UpdateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Parámetros inválidos: "+err.Error())
		return
	}
	report, err := h.svc.Update(c.Request.Context(), c.Param("id"), GetUserID(c), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, report)
}

// Assign PATCH /reports/:id/assign
func (h *ReportHandler) Assign(c *gin.Context) {
	var req struct {
		TechnicianID string `json:"technician_id"`
		AssignedTo   string `json:"assigned_to"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Parámetros inválidos: "+err.Error())
		return
	}
	technician := req.TechnicianID
	if technician == "" {
		technician = req.AssignedTo
	}
	report, err := h.svc.Assign(c.Request.Context(), c.Param("id"), technician, GetUserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, report)
}

// ChangeStatus PATCH /reports/:id/status
func (h *ReportHandler) ChangeStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
		Notes  string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "status es requerido")
		return
	}
	report, err := h.svc.ChangeStatus(c.Request.Context(), c.Param("id"), req.Status, GetUserID(c), req.Notes)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, report)
}

// Delete DELETE /reports/:id
func (h *ReportHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), GetUserID(c)); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, nil)
}

// AttachEvidence POST /reports/:id/evidence, multipart "files" o "file"
func (h *ReportHandler) AttachEvidence(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		BadRequest(c, "No se pudo leer el formulario: "+err.Error())
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["file"]
	}
	if len(headers) == 0 {
		BadRequest(c, "No se recibieron archivos")
		return
	}

	files := make([]service.EvidenceFile, 0, len(headers))
	for _, fh := range headers {
		src, err := fh.Open()
		if err != nil {
			InternalError(c, "No se pudo leer el archivo "+fh.Filename)
			return
		}
		defer src.Close()
		files = append(files, service.EvidenceFile{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Reader:      src,
		})
	}

	report, err := h.svc.AttachEvidence(c.Request.Context(), c.Param("id"), GetUserID(c), files)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, report)
}

// Stats GET /reports/stats
func (h *ReportHandler) Stats(c *gin.Context) {
	from, to, err := parseDateRange(c, h.loc)
	if err != nil {
		BadRequest(c, "fecha inválida, use AAAA-MM-DD")
		return
	}
	stats, err := h.svc.Stats(c.Request.Context(), from, to)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, stats)
}

// HighPriority GET /reports/high-priority
func (h *ReportHandler) HighPriority(c *gin.Context) {
	page, err := h.svc.ListHighPriority(c.Request.Context(), GetPagination(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	listResponse(c, page)
}

// Mine GET /reports/my
func (h *ReportHandler) Mine(c *gin.Context) {
	q, ok := h.query(c)
	if !ok {
		return
	}
	page, err := h.svc.ListMine(c.Request.Context(), GetUserID(c), q)
	if err != nil {
		HandleError(c, err)
		return
	}
	listResponse(c, page)
}

// Assigned GET /reports/assigned
func (h *ReportHandler) Assigned(c *gin.Context) {
	q, ok := h.query(c)
	if !ok {
		return
	}
	page, err := h.svc.ListAssigned(c.Request.Context(), GetUserID(c), q)
	if err != nil {
		HandleError(c, err)
		return
	}
	listResponse(c, page)
}

// ByArea GET /reports/equipment/:areaKey
func (h *ReportHandler) ByArea(c *gin.Context) {
	q, ok := h.query(c)
	if !ok {
		return
	}
	page, err := h.svc.ListByArea(c.Request.Context(), c.Param("areaKey"), q)
	if err != nil {
		HandleError(c, err)
		return
	}
	listResponse(c, page)
}

// Export GET /reports/export; por defecto sólo el día en curso
func (h *ReportHandler) Export(c *gin.Context) {
	q, ok := h.query(c)
	if !ok {
		return
	}
	if q.DateFrom == nil && q.DateTo == nil && c.Query("all") != "true" {
		now := time.Now().In(h.loc)
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.loc)
		end := start.AddDate(0, 0, 1)
		q.DateFrom, q.DateTo = &start, &end
	}
	f, filename, err := h.svc.Export(c.Request.Context(), q)
	if err != nil {
		HandleError(c, err)
		return
	}
	writeWorkbook(c, f, filename)
}

// statusOptions catálogos para los selectores del cliente
func statusOptions() gin.H {
	return gin.H{
		"statuses":    entity.ReportStatuses,
		"priorities":  entity.Priorities,
		"issue_types": entity.ReportIssueTypes,
	}
}

// Options GET /reports/options
func (h *ReportHandler) Options(c *gin.Context) {
	Success(c, statusOptions())
}
