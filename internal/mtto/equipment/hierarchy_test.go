package equipment

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `{
  "fusion": {
    "horno_1": {
      "quemador": ["boquilla", "termopar"],
      "puerta": ["cilindro"]
    },
    "colada": ["bomba", "canal"]
  },
  "moldeo": {
    "maquina_2": ["hidraulico", "molde", 7]
  }
}`

func newFixtureResolver(t *testing.T) *Resolver {
	t.Helper()
	return NewResolverFromBytes([]byte(fixture))
}

func TestListAreasKeepsInsertionOrder(t *testing.T) {
	r := newFixtureResolver(t)
	areas, err := r.ListAreas()
	require.NoError(t, err)
	assert.Equal(t, []Option{{Key: "fusion", Label: "Fusion"}, {Key: "moldeo", Label: "Moldeo"}}, areas)
}

func TestListChildrenBranchAndLeaf(t *testing.T) {
	r := newFixtureResolver(t)

	machines, err := r.ListChildren("fusion", "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"horno_1", "colada"}, machines)

	// rama -> llaves
	elements, err := r.ListChildren("fusion", "horno_1", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"quemador", "puerta"}, elements)

	// lista -> entradas, con números convertidos a texto
	elements, err = r.ListChildren("moldeo", "maquina_2", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"hidraulico", "molde", "7"}, elements)

	components, err := r.ListChildren("fusion", "horno_1", "quemador")
	require.NoError(t, err)
	assert.Equal(t, []string{"boquilla", "termopar"}, components)

	// entrada de lista: sin hijos
	components, err = r.ListChildren("moldeo", "maquina_2", "molde")
	require.NoError(t, err)
	assert.Empty(t, components)

	_, err = r.ListChildren("pintura", "", "")
	assert.True(t, errors.Is(err, ErrUnknownSegment))
}

func TestValidatePath(t *testing.T) {
	r := newFixtureResolver(t)
	tests := []struct {
		name                               string
		area, machine, element, component string
		want                               bool
	}{
		{"area only", "fusion", "", "", "", true},
		{"full branch path", "fusion", "horno_1", "quemador", "termopar", true},
		{"leaf machine list", "fusion", "colada", "bomba", "", true},
		{"leaf element has no components", "moldeo", "maquina_2", "molde", "x", false},
		{"unknown area", "pintura", "", "", "", false},
		{"unknown machine", "fusion", "horno_9", "", "", false},
		{"unknown component", "fusion", "horno_1", "quemador", "sello", false},
		{"gap in path", "fusion", "", "quemador", "", false},
		{"empty area", "", "", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.ValidatePath(tt.area, tt.machine, tt.element, tt.component))
		})
	}
}

func TestEveryTreePathValidatesAndResolves(t *testing.T) {
	r := newFixtureResolver(t)
	areas, err := r.ListAreas()
	require.NoError(t, err)
	for _, a := range areas {
		machines, err := r.ListChildren(a.Key, "", "")
		require.NoError(t, err)
		for _, m := range machines {
			elements, err := r.ListChildren(a.Key, m, "")
			require.NoError(t, err)
			for _, e := range elements {
				components, err := r.ListChildren(a.Key, m, e)
				require.NoError(t, err)
				assert.True(t, r.ValidatePath(a.Key, m, e, ""), "%s/%s/%s", a.Key, m, e)
				for _, c := range components {
					assert.True(t, r.ValidatePath(a.Key, m, e, c))
					p := r.ResolvePath(a.Key, m, e, c)
					want := strings.Join([]string{Capitalize(a.Key), Capitalize(m), e, c}, " > ")
					assert.Equal(t, want, p.Display)
					assert.Equal(t, []string{a.Key, m, e, c}, p.Path)
				}
			}
		}
	}
}

func TestResolvePathFormatting(t *testing.T) {
	p := ResolvePath("fusion", "horno_1", "quemador", "")
	assert.Equal(t, []string{"fusion", "horno_1", "quemador"}, p.Path)
	assert.Equal(t, "Fusion > Horno_1 > quemador", p.Display)

	p = ResolvePath("", "", "", "")
	assert.Empty(t, p.Path)
	assert.Equal(t, "", p.Display)
}

func TestSearchSkipsComponents(t *testing.T) {
	r := newFixtureResolver(t)

	results, err := r.Search("HORNO")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, TypeMachine, results[0].Type)
	assert.Equal(t, "Fusion > Horno_1", results[0].Display)

	results, err = r.Search("hidra")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, TypeElement, results[0].Type)
	assert.Equal(t, "Moldeo > Maquina_2 > hidraulico", results[0].Display)

	results, err = r.Search("molde")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, TypeArea, results[0].Type)
	assert.Equal(t, TypeElement, results[1].Type)

	// "termopar" sólo aparece como componente
	results, err = r.Search("termopar")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMalformedDataFailsClosed(t *testing.T) {
	for _, data := range []string{`[]`, `{"fusion": "horno"}`, `{"fusion": [{"x": 1}]}`, `{not json`} {
		r := NewResolverFromBytes([]byte(data))
		_, err := r.GetHierarchy()
		assert.True(t, errors.Is(err, ErrDataUnavailable), data)
		_, err = r.ListAreas()
		assert.True(t, errors.Is(err, ErrDataUnavailable), data)
		assert.False(t, r.ValidatePath("fusion", "", "", ""), data)
	}
}

func TestMissingFileThenRecovered(t *testing.T) {
	path := filepath.Join(t.TempDir(), "equipment.json")
	r := NewResolver(path)
	_, err := r.GetHierarchy()
	require.True(t, errors.Is(err, ErrDataUnavailable))

	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o644))
	tree, err := r.GetHierarchy()
	require.NoError(t, err)
	assert.Equal(t, 2, tree.Len())

	// cacheado: borrar el archivo no afecta
	require.NoError(t, os.Remove(path))
	_, err = r.GetHierarchy()
	require.NoError(t, err)
}

func TestHierarchyMarshalPreservesShape(t *testing.T) {
	r := newFixtureResolver(t)
	tree, err := r.GetHierarchy()
	require.NoError(t, err)
	out, err := json.Marshal(tree)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), `{"fusion":{"horno_1":{"quemador":["boquilla","termopar"]`))
	assert.Contains(t, string(out), `"maquina_2":["hidraulico","molde","7"]`)
}

func TestMetadataAndStats(t *testing.T) {
	r := newFixtureResolver(t)
	m, err := r.Metadata()
	require.NoError(t, err)
	assert.Equal(t, 2, m.Areas)
	assert.Equal(t, 3, m.Machines)
	// horno_1: 2, colada: 2, maquina_2: 3
	assert.Equal(t, 7, m.Elements)
	assert.Equal(t, 3, m.Components)
}

func TestAreaLabel(t *testing.T) {
	assert.Equal(t, "Fusión", AreaLabel("fusion"))
	assert.Equal(t, "Pintura", AreaLabel("pintura"))
	assert.Equal(t, "Ñandú", Capitalize("ñandú"))
}

func TestNodeLeafAndBranch(t *testing.T) {
	tree, err := Parse([]byte(fixture))
	require.NoError(t, err)
	assert.False(t, tree.IsLeaf())

	fusion, ok := tree.Child("fusion")
	require.True(t, ok)
	colada, ok := fusion.Child("colada")
	require.True(t, ok)
	assert.True(t, colada.IsLeaf())
	assert.Equal(t, 2, colada.Len())

	// las entradas de una lista no se pueden recorrer
	_, ok = colada.Child("bomba")
	assert.False(t, ok)
	assert.True(t, colada.Has("bomba"))

	empty := NewBranch()
	assert.False(t, empty.IsLeaf())
	assert.Equal(t, 0, empty.Len())
}
