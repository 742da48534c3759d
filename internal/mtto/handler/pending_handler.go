package handler

import (
	"time"

	"github.com/OscarR093/reportesMtto/internal/mtto/repository"
	"github.com/OscarR093/reportesMtto/internal/mtto/service"
	"github.com/gin-gonic/gin"
)

// PendingHandler actividades pendientes (admin) y "mis pendientes" (técnicos)
type PendingHandler struct {
	svc *service.PendingService
	loc *time.Location
}

func NewPendingHandler(svc *service.PendingService, loc *time.Location) *PendingHandler {
	return &PendingHandler{svc: svc, loc: loc}
}

func (h *PendingHandler) filter(c *gin.Context) (repository.PendingFilter, bool) {
	from, to, err := parseDateRange(c, h.loc)
	if err != nil {
		BadRequest(c, "fecha inválida, use AAAA-MM-DD")
		return repository.PendingFilter{}, false
	}
	return repository.PendingFilter{
		Status:        c.Query("status"),
		EquipmentArea: c.Query("equipment_area"),
		Shift:         c.Query("shift"),
		DateFrom:      from,
		DateTo:        to,
	}, true
}

// Create POST /pending
func (h *PendingHandler) Create(c *gin.Context) {
	var req service.CreatePendingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Parámetros inválidos: "+err.Error())
		return
	}
	activity, err := h.svc.Create(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, activity)
}

// List GET /pending
func (h *PendingHandler) List(c *gin.Context) {
	filter, ok := h.filter(c)
	if !ok {
		return
	}
	activities, err := h.svc.ListAll(c.Request.Context(), GetUserID(c), filter)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": activities, "total": len(activities)})
}

// Get GET /pending/:id
func (h *PendingHandler) Get(c *gin.Context) {
	activity, err := h.svc.Get(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, activity)
}

// Update PUT /pending/:id
func (h *PendingHandler) Update(c *gin.Context) {
	var req service.UpdatePendingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Parámetros inválidos: "+err.Error())
		return
	}
	activity, err := h.svc.Update(c.Request.Context(), c.Param("id"), GetUserID(c), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, activity)
}

// Delete DELETE /pending/:id
func (h *PendingHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), GetUserID(c)); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, nil)
}

// Assign PATCH /pending/:id/assign
func (h *PendingHandler) Assign(c *gin.Context) {
	var req service.AssignPendingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Parámetros inválidos: "+err.Error())
		return
	}
	activity, err := h.svc.Assign(c.Request.Context(), c.Param("id"), GetUserID(c), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, activity)
}

// Export GET /pending/export
func (h *PendingHandler) Export(c *gin.Context) {
	filter, ok := h.filter(c)
	if !ok {
		return
	}
	f, filename, err := h.svc.Export(c.Request.Context(), GetUserID(c), filter)
	if err != nil {
		HandleError(c, err)
		return
	}
	writeWorkbook(c, f, filename)
}

// Mine GET /my-pending/my
func (h *PendingHandler) Mine(c *gin.Context) {
	activities, err := h.svc.ListMine(c.Request.Context(), GetUserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": activities, "total": len(activities)})
}

// Complete PATCH /my-pending/my/:id/complete
func (h *PendingHandler) Complete(c *gin.Context) {
	var req struct {
		Notes string `json:"notes"`
	}
	if !bindOptionalJSON(c, &req) {
		return
	}
	activity, err := h.svc.Complete(c.Request.Context(), c.Param("id"), GetUserID(c), req.Notes)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, activity)
}
