package entity

import (
	"gorm.io/datatypes"
)

// StringList lista tipada que se guarda como JSON en la columna
type StringList = datatypes.JSONSlice[string]

// EquipmentLocation ubicación del equipo (área > máquina > elemento > componente).
// EquipmentPath y EquipmentDisplay son derivados y se recalculan al cambiar
// cualquiera de los cuatro campos.
type EquipmentLocation struct {
	EquipmentArea      string     `json:"equipment_area" gorm:"size:64;not null;index"`
	EquipmentMachine   string     `json:"equipment_machine" gorm:"size:128;index"`
	EquipmentElement   string     `json:"equipment_element" gorm:"size:128"`
	EquipmentComponent string     `json:"equipment_component" gorm:"size:128"`
	EquipmentPath      StringList `json:"equipment_path"`
	EquipmentDisplay   string     `json:"equipment_display" gorm:"size:512"`
}

// SameLocation compara sólo los campos de entrada, no los derivados
func (l EquipmentLocation) SameLocation(o EquipmentLocation) bool {
	return l.EquipmentArea == o.EquipmentArea &&
		l.EquipmentMachine == o.EquipmentMachine &&
		l.EquipmentElement == o.EquipmentElement &&
		l.EquipmentComponent == o.EquipmentComponent
}

// Segments devuelve los niveles en orden (área, máquina, elemento, componente)
func (l EquipmentLocation) Segments() (area, machine, element, component string) {
	return l.EquipmentArea, l.EquipmentMachine, l.EquipmentElement, l.EquipmentComponent
}
