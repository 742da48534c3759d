package service

import (
	"strings"

	"github.com/OscarR093/reportesMtto/internal/mtto/entity"
	"github.com/OscarR093/reportesMtto/internal/mtto/equipment"
)

// LocationInput campos de ubicación tal como llegan en el request
type LocationInput struct {
	EquipmentArea      string `json:"equipment_area"`
	EquipmentMachine   string `json:"equipment_machine"`
	EquipmentElement   string `json:"equipment_element"`
	EquipmentComponent string `json:"equipment_component"`
}

func (in LocationInput) location() entity.EquipmentLocation {
	return entity.EquipmentLocation{
		EquipmentArea:      strings.TrimSpace(in.EquipmentArea),
		EquipmentMachine:   strings.TrimSpace(in.EquipmentMachine),
		EquipmentElement:   strings.TrimSpace(in.EquipmentElement),
		EquipmentComponent: strings.TrimSpace(in.EquipmentComponent),
	}
}

// LocationPatch cambios parciales de ubicación; nil conserva el valor actual
type LocationPatch struct {
	EquipmentArea      *string `json:"equipment_area"`
	EquipmentMachine   *string `json:"equipment_machine"`
	EquipmentElement   *string `json:"equipment_element"`
	EquipmentComponent *string `json:"equipment_component"`
}

// apply devuelve la ubicación resultante sin modificar la original
func (p LocationPatch) apply(cur entity.EquipmentLocation) entity.EquipmentLocation {
	next := cur
	if p.EquipmentArea != nil {
		next.EquipmentArea = strings.TrimSpace(*p.EquipmentArea)
	}
	if p.EquipmentMachine != nil {
		next.EquipmentMachine = strings.TrimSpace(*p.EquipmentMachine)
	}
	if p.EquipmentElement != nil {
		next.EquipmentElement = strings.TrimSpace(*p.EquipmentElement)
	}
	if p.EquipmentComponent != nil {
		next.EquipmentComponent = strings.TrimSpace(*p.EquipmentComponent)
	}
	return next
}

// stampLocation valida la ruta contra el catálogo y recalcula path/display
func stampLocation(resolver *equipment.Resolver, loc *entity.EquipmentLocation) error {
	if loc.EquipmentArea == "" {
		return newError(ErrValidation, "equipment_area es requerido")
	}
	if _, err := resolver.GetHierarchy(); err != nil {
		return translateRepoErr(err, "catálogo de equipos")
	}
	area, machine, element, component := loc.Segments()
	if !resolver.ValidatePath(area, machine, element, component) {
		return newError(ErrInvalidEquipment, "ruta de equipo inválida: %s", strings.Join(nonEmpty(area, machine, element, component), "/"))
	}
	p := resolver.ResolvePath(area, machine, element, component)
	loc.EquipmentPath = entity.StringList(p.Path)
	loc.EquipmentDisplay = p.Display
	return nil
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
