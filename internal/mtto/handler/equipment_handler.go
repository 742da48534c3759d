package handler

import (
	"errors"

	"github.com/OscarR093/reportesMtto/internal/mtto/equipment"
	"github.com/gin-gonic/gin"
)

// EquipmentHandler consultas de sólo lectura al catálogo de equipos
type EquipmentHandler struct {
	resolver *equipment.Resolver
}

func NewEquipmentHandler(resolver *equipment.Resolver) *EquipmentHandler {
	return &EquipmentHandler{resolver: resolver}
}

func (h *EquipmentHandler) fail(c *gin.Context, err error) {
	if errors.Is(err, equipment.ErrUnknownSegment) {
		NotFound(c, err.Error())
		return
	}
	HandleError(c, err)
}

// Hierarchy GET /equipment/hierarchy
func (h *EquipmentHandler) Hierarchy(c *gin.Context) {
	tree, err := h.resolver.GetHierarchy()
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, tree)
}

// Areas GET /equipment/areas
func (h *EquipmentHandler) Areas(c *gin.Context) {
	areas, err := h.resolver.ListAreas()
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, areas)
}

// Metadata GET /equipment/metadata
func (h *EquipmentHandler) Metadata(c *gin.Context) {
	meta, err := h.resolver.Metadata()
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, meta)
}

// Stats GET /equipment/stats
func (h *EquipmentHandler) Stats(c *gin.Context) {
	stats, err := h.resolver.Stats()
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, stats)
}

// Search GET /equipment/search?q=
func (h *EquipmentHandler) Search(c *gin.Context) {
	term := c.Query("q")
	if len(term) < 2 {
		BadRequest(c, "el término de búsqueda debe tener al menos 2 caracteres")
		return
	}
	results, err := h.resolver.Search(term)
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, results)
}

func (h *EquipmentHandler) children(c *gin.Context, area, machine, element string) {
	names, err := h.resolver.ListChildren(area, machine, element)
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, names)
}

// Machines GET /equipment/areas/:area/machines
func (h *EquipmentHandler) Machines(c *gin.Context) {
	h.children(c, c.Param("area"), "", "")
}

// Elements GET /equipment/areas/:area/machines/:machine/elements
func (h *EquipmentHandler) Elements(c *gin.Context) {
	h.children(c, c.Param("area"), c.Param("machine"), "")
}

// Components GET /equipment/areas/:area/machines/:machine/elements/:element/components
func (h *EquipmentHandler) Components(c *gin.Context) {
	h.children(c, c.Param("area"), c.Param("machine"), c.Param("element"))
}

// Path GET /equipment/path?area=&machine=&element=&component=
func (h *EquipmentHandler) Path(c *gin.Context) {
	area := c.Query("area")
	if area == "" {
		BadRequest(c, "area es requerida")
		return
	}
	Success(c, h.resolver.ResolvePath(area, c.Query("machine"), c.Query("element"), c.Query("component")))
}

// Validate GET /equipment/validate?area=&machine=&element=&component=
func (h *EquipmentHandler) Validate(c *gin.Context) {
	area := c.Query("area")
	if area == "" {
		BadRequest(c, "area es requerida")
		return
	}
	machine, element, component := c.Query("machine"), c.Query("element"), c.Query("component")
	valid := h.resolver.ValidatePath(area, machine, element, component)
	data := gin.H{"valid": valid}
	if valid {
		data["path"] = h.resolver.ResolvePath(area, machine, element, component)
	}
	Success(c, data)
}
