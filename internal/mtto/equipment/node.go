package equipment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// Node nivel del árbol de equipos. Los hijos de un nivel pueden venir del
// archivo como lista de nombres (hoja) o como objeto anidado (rama); la forma
// se conserva tal cual y se resuelve en cada nivel.
type Node struct {
	leaf     []string
	keys     []string
	children map[string]*Node
	branch   bool
}

// NewLeaf nodo hoja con nombres en orden
func NewLeaf(names ...string) *Node {
	return &Node{leaf: append([]string{}, names...)}
}

// NewBranch nodo rama vacío; los hijos se agregan con Add
func NewBranch() *Node {
	return &Node{branch: true, children: make(map[string]*Node)}
}

// Add agrega un hijo a una rama conservando el orden de inserción
func (n *Node) Add(name string, child *Node) *Node {
	if _, ok := n.children[name]; !ok {
		n.keys = append(n.keys, name)
	}
	n.children[name] = child
	return n
}

// IsLeaf nodo de lista; sus entradas no tienen hijos
func (n *Node) IsLeaf() bool {
	return !n.branch
}

// Names nombres del siguiente nivel: entradas de la lista o llaves del objeto
func (n *Node) Names() []string {
	if n.branch {
		return append([]string{}, n.keys...)
	}
	return append([]string{}, n.leaf...)
}

// Has el nombre existe en el siguiente nivel
func (n *Node) Has(name string) bool {
	if n.branch {
		_, ok := n.children[name]
		return ok
	}
	for _, s := range n.leaf {
		if s == name {
			return true
		}
	}
	return false
}

// Child hijo de una rama; las hojas no tienen hijos
func (n *Node) Child(name string) (*Node, bool) {
	if n.IsLeaf() {
		return nil, false
	}
	c, ok := n.children[name]
	return c, ok
}

func (n *Node) Len() int {
	if n.branch {
		return len(n.keys)
	}
	return len(n.leaf)
}

// MarshalJSON reproduce la forma original (lista u objeto ordenado)
func (n *Node) MarshalJSON() ([]byte, error) {
	if n.IsLeaf() {
		if n.leaf == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(n.leaf)
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range n.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := n.children[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Parse decodifica el documento de jerarquía. La raíz debe ser un objeto
// (áreas); cualquier valor que no sea lista u objeto se considera malformado.
func Parse(data []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read root: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("root must be an object")
	}
	root, err := parseObject(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("trailing data after root object")
	}
	return root, nil
}

func parseValue(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	d, ok := tok.(json.Delim)
	if !ok {
		return nil, fmt.Errorf("unexpected scalar %v, want list or object", tok)
	}
	switch d {
	case '{':
		return parseObject(dec)
	case '[':
		return parseList(dec)
	}
	return nil, fmt.Errorf("unexpected delimiter %v", d)
}

func parseObject(dec *json.Decoder) (*Node, error) {
	n := NewBranch()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key must be a string")
		}
		child, err := parseValue(dec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		n.Add(key, child)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return n, nil
}

func parseList(dec *json.Decoder) (*Node, error) {
	n := &Node{leaf: []string{}}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch v := tok.(type) {
		case string:
			n.leaf = append(n.leaf, v)
		case json.Number:
			n.leaf = append(n.leaf, v.String())
		case bool:
			n.leaf = append(n.leaf, strconv.FormatBool(v))
		case nil:
			n.leaf = append(n.leaf, "null")
		default:
			return nil, fmt.Errorf("list entries must be scalars")
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return n, nil
}
