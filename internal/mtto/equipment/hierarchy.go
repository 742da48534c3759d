package equipment

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// ErrDataUnavailable el archivo de jerarquía no existe o está malformado
	ErrDataUnavailable = errors.New("equipment data unavailable")
	// ErrUnknownSegment algún nivel de la ruta no existe en el árbol
	ErrUnknownSegment = errors.New("equipment segment not found")
)

// Tipos de nodo en resultados de búsqueda
const (
	TypeArea    = "area"
	TypeMachine = "machine"
	TypeElement = "element"
)

// Etiquetas con acentos que no salen de capitalizar la llave
var areaLabels = map[string]string{
	"fusion":        "Fusión",
	"moldeo":        "Moldeo",
	"maquinado":     "Maquinado",
	"mantenimiento": "Mantenimiento",
	"almacen":       "Almacén",
	"produccion":    "Producción",
	"inspeccion":    "Inspección",
	"calidad":       "Calidad",
	"servicios":     "Servicios",
}

// Option llave + etiqueta para selects del SPA
type Option struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Path ruta resuelta del equipo
type Path struct {
	Path    []string `json:"path"`
	Display string   `json:"display"`
}

// SearchResult coincidencia de búsqueda
type SearchResult struct {
	Type    string   `json:"type"`
	Key     string   `json:"key"`
	Name    string   `json:"name"`
	Area    string   `json:"area"`
	Machine string   `json:"machine,omitempty"`
	Element string   `json:"element,omitempty"`
	Path    []string `json:"path"`
	Display string   `json:"display"`
}

// Metadata totales por nivel
type Metadata struct {
	Areas      int      `json:"areas"`
	Machines   int      `json:"machines"`
	Elements   int      `json:"elements"`
	Components int      `json:"components"`
	Levels     []string `json:"levels"`
}

// AreaStats totales de un área
type AreaStats struct {
	Key        string `json:"key"`
	Label      string `json:"label"`
	Machines   int    `json:"machines"`
	Elements   int    `json:"elements"`
	Components int    `json:"components"`
}

// Resolver carga el árbol una sola vez y responde consultas de sólo lectura.
// Un fallo de carga no se cachea: la siguiente llamada vuelve a intentar.
type Resolver struct {
	mu     sync.Mutex
	load   func() ([]byte, error)
	source string
	tree   *Node
}

// NewResolver lee la jerarquía desde un archivo JSON
func NewResolver(path string) *Resolver {
	return &Resolver{
		source: path,
		load:   func() ([]byte, error) { return os.ReadFile(path) },
	}
}

// NewResolverFromBytes útil para pruebas y datos embebidos
func NewResolverFromBytes(data []byte) *Resolver {
	return &Resolver{
		source: "memory",
		load:   func() ([]byte, error) { return data, nil },
	}
}

var (
	defaultMu       sync.Mutex
	defaultResolver = NewResolver("data/equipment.json")
)

// SetDataPath reemplaza el resolver global; se llama una vez al arrancar
func SetDataPath(path string) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultResolver = NewResolver(path)
}

// Default resolver global del proceso
func Default() *Resolver {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultResolver
}

// GetHierarchy árbol completo
func (r *Resolver) GetHierarchy() (*Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tree != nil {
		return r.tree, nil
	}
	data, err := r.load()
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrDataUnavailable, r.source, err)
	}
	tree, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrDataUnavailable, r.source, err)
	}
	r.tree = tree
	return tree, nil
}

// ListAreas áreas en orden de inserción con etiqueta capitalizada
func (r *Resolver) ListAreas() ([]Option, error) {
	tree, err := r.GetHierarchy()
	if err != nil {
		return nil, err
	}
	areas := tree.Names()
	out := make([]Option, 0, len(areas))
	for _, key := range areas {
		out = append(out, Option{Key: key, Label: Capitalize(key)})
	}
	return out, nil
}

// ListChildren nombres del siguiente nivel debajo de la ruta dada.
// machine y element vacíos significan "no indicado".
func (r *Resolver) ListChildren(area, machine, element string) ([]string, error) {
	tree, err := r.GetHierarchy()
	if err != nil {
		return nil, err
	}
	node, ok := tree.Child(area)
	if !ok {
		return nil, fmt.Errorf("%w: area %q", ErrUnknownSegment, area)
	}
	for _, seg := range []string{machine, element} {
		if seg == "" {
			break
		}
		if !node.Has(seg) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSegment, seg)
		}
		child, ok := node.Child(seg)
		if !ok {
			// entrada de una lista: no tiene hijos
			return []string{}, nil
		}
		node = child
	}
	return node.Names(), nil
}

// ResolvePath sólo formatea, no valida existencia. Área y máquina se
// capitalizan; elemento y componente se dejan como vienen.
func (r *Resolver) ResolvePath(area, machine, element, component string) Path {
	return ResolvePath(area, machine, element, component)
}

// ResolvePath versión sin estado de Resolver.ResolvePath
func ResolvePath(area, machine, element, component string) Path {
	p := Path{Path: []string{}}
	var labels []string
	if area != "" {
		p.Path = append(p.Path, area)
		labels = append(labels, Capitalize(area))
	}
	if machine != "" {
		p.Path = append(p.Path, machine)
		labels = append(labels, Capitalize(machine))
	}
	if element != "" {
		p.Path = append(p.Path, element)
		labels = append(labels, element)
	}
	if component != "" {
		p.Path = append(p.Path, component)
		labels = append(labels, component)
	}
	p.Display = strings.Join(labels, " > ")
	return p
}

// ValidatePath true si el área existe y cada nivel indicado se resuelve.
// Cualquier problema con los datos devuelve false.
func (r *Resolver) ValidatePath(area, machine, element, component string) bool {
	if area == "" {
		return false
	}
	tree, err := r.GetHierarchy()
	if err != nil {
		return false
	}
	node, ok := tree.Child(area)
	if !ok {
		return false
	}
	segs := trimTrailingEmpty([]string{machine, element, component})
	for i, seg := range segs {
		if seg == "" || !node.Has(seg) {
			return false
		}
		child, ok := node.Child(seg)
		if !ok {
			// hoja: sólo es válida si es el último nivel indicado
			return i == len(segs)-1
		}
		node = child
	}
	return true
}

// Search busca en llaves de área, máquina y elemento (no componentes)
func (r *Resolver) Search(term string) ([]SearchResult, error) {
	tree, err := r.GetHierarchy()
	if err != nil {
		return nil, err
	}
	results := []SearchResult{}
	needle := cases.Fold().String(strings.TrimSpace(term))
	if needle == "" {
		return results, nil
	}
	folder := cases.Fold()
	match := func(s string) bool {
		return strings.Contains(folder.String(s), needle)
	}
	add := func(typ, name, area, machine, element string) {
		p := ResolvePath(area, machine, element, "")
		results = append(results, SearchResult{
			Type: typ, Key: name, Name: name,
			Area: area, Machine: machine, Element: element,
			Path: p.Path, Display: p.Display,
		})
	}
	for _, area := range tree.Names() {
		if match(area) {
			add(TypeArea, area, area, "", "")
		}
		areaNode, _ := tree.Child(area)
		for _, machine := range areaNode.Names() {
			if match(machine) {
				add(TypeMachine, machine, area, machine, "")
			}
			machineNode, ok := areaNode.Child(machine)
			if !ok {
				continue
			}
			for _, element := range machineNode.Names() {
				if match(element) {
					add(TypeElement, element, area, machine, element)
				}
			}
		}
	}
	return results, nil
}

// Metadata totales del árbol
func (r *Resolver) Metadata() (*Metadata, error) {
	stats, err := r.Stats()
	if err != nil {
		return nil, err
	}
	m := &Metadata{Areas: len(stats), Levels: []string{"area", "machine", "element", "component"}}
	for _, s := range stats {
		m.Machines += s.Machines
		m.Elements += s.Elements
		m.Components += s.Components
	}
	return m, nil
}

// Stats totales por área
func (r *Resolver) Stats() ([]AreaStats, error) {
	tree, err := r.GetHierarchy()
	if err != nil {
		return nil, err
	}
	out := make([]AreaStats, 0, tree.Len())
	for _, area := range tree.Names() {
		areaNode, _ := tree.Child(area)
		s := AreaStats{Key: area, Label: AreaLabel(area), Machines: areaNode.Len()}
		for _, machine := range areaNode.Names() {
			machineNode, ok := areaNode.Child(machine)
			if !ok {
				continue
			}
			s.Elements += machineNode.Len()
			for _, element := range machineNode.Names() {
				if elementNode, ok := machineNode.Child(element); ok {
					s.Components += elementNode.Len()
				}
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// Capitalize primera letra en mayúscula, el resto sin cambios
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	// cases.Caser no es seguro entre goroutines
	return cases.Upper(language.Spanish).String(string(r)) + s[size:]
}

// AreaLabel etiqueta de área para títulos ("fusion" -> "Fusión")
func AreaLabel(key string) string {
	if label, ok := areaLabels[strings.ToLower(key)]; ok {
		return label
	}
	return Capitalize(key)
}

func trimTrailingEmpty(segs []string) []string {
	end := len(segs)
	for end > 0 && segs[end-1] == "" {
		end--
	}
	return segs[:end]
}
