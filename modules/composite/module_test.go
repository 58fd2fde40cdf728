package composite

import (
	"testing"

	"github.com/specialistvlad/fieldgraph/internal/field"
	"github.com/specialistvlad/fieldgraph/internal/mesh"
	"github.com/specialistvlad/fieldgraph/internal/registry"
	"github.com/specialistvlad/fieldgraph/modules/arithmetic"
	"github.com/specialistvlad/fieldgraph/modules/constant"
	"github.com/specialistvlad/fieldgraph/modules/meshfield"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func mustConstant(t *testing.T, m *field.Module, name string, values ...float64) *field.Field {
	t.Helper()
	f, err := constant.CreateConstant(m, name, values...)
	require.NoError(t, err)
	return f
}

func evaluate(t *testing.T, c *field.Cache, f *field.Field) []float64 {
	t.Helper()
	values, err := c.EvaluateReal(f)
	require.NoError(t, err)
	return values
}

func TestConcatenateAndComponent(t *testing.T) {
	m := field.NewModule()
	a := mustConstant(t, m, "a", 1, 2)
	b := mustConstant(t, m, "b", 3)
	cat, err := CreateConcatenate(m, "cat", a, b, a)
	require.NoError(t, err)
	pick, err := CreateComponent(m, "pick", cat, 5, 1, 3)
	require.NoError(t, err)

	c := m.NewCache()
	assert.Equal(t, []float64{1, 2, 3, 1, 2}, evaluate(t, c, cat))
	assert.Equal(t, []float64{2, 1, 3}, evaluate(t, c, pick))
	assert.Equal(t, `component source_fields=["cat"] component_indices=[5, 1, 3]`, pick.CommandString())
}

func TestShapeMismatch(t *testing.T) {
	m := field.NewModule()
	a := mustConstant(t, m, "a", 1, 2)

	testCases := []struct {
		name    string
		core    *Core
		sources []*field.Field
	}{
		{"index too large", NewComponent(3), []*field.Field{a}},
		{"index zero", NewComponent(0), []*field.Field{a}},
		{"no indices", NewComponent(), []*field.Field{a}},
		{"component arity", NewComponent(1), []*field.Field{a, a}},
		{"concatenate nothing", NewConcatenate(), nil},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := m.CreateField("", tc.core, tc.sources...)
			assert.ErrorIs(t, err, field.ErrShapeMismatch)
		})
	}
}

func TestAssign(t *testing.T) {
	t.Run("all sources set", func(t *testing.T) {
		m := field.NewModule()
		a := mustConstant(t, m, "a", 1, 2)
		b := mustConstant(t, m, "b", 3)
		cat, err := CreateConcatenate(m, "cat", a, b)
		require.NoError(t, err)

		c := m.NewCache()
		result, err := c.AssignReal(cat, []float64{7, 8, 9})
		require.NoError(t, err)
		assert.Equal(t, field.AssignAll, result)
		assert.Equal(t, []float64{7, 8}, evaluate(t, c, a))
		assert.Equal(t, []float64{9}, evaluate(t, c, b))
	})

	t.Run("component keeps unmapped values", func(t *testing.T) {
		m := field.NewModule()
		a := mustConstant(t, m, "a", 1, 2, 3)
		pick, err := CreateComponent(m, "pick", a, 2)
		require.NoError(t, err)

		c := m.NewCache()
		result, err := c.AssignReal(pick, []float64{20})
		require.NoError(t, err)
		assert.Equal(t, field.AssignAll, result)
		assert.Equal(t, []float64{1, 20, 3}, evaluate(t, c, a))
	})

	t.Run("partial is not rolled back", func(t *testing.T) {
		m := field.NewModule()
		a := mustConstant(t, m, "a", 1)
		sum, err := arithmetic.CreateAdd(m, "sum", a, mustConstant(t, m, "one", 1))
		require.NoError(t, err)
		cat, err := CreateConcatenate(m, "cat", a, sum)
		require.NoError(t, err)

		c := m.NewCache()
		result, err := c.AssignReal(cat, []float64{5, 5})
		require.NoError(t, err)
		assert.Equal(t, field.AssignPartial, result)
		assert.Equal(t, []float64{5}, evaluate(t, c, a))
		assert.Equal(t, []float64{5, 6}, evaluate(t, c, cat))
	})

	t.Run("nothing settable", func(t *testing.T) {
		m := field.NewModule()
		sum, err := arithmetic.CreateAdd(m, "sum", mustConstant(t, m, "a", 1), mustConstant(t, m, "b", 1))
		require.NoError(t, err)
		cat, err := CreateConcatenate(m, "cat", sum)
		require.NoError(t, err)

		result, err := m.NewCache().AssignReal(cat, []float64{5})
		require.NoError(t, err)
		assert.Equal(t, field.AssignFail, result)
	})
}

func TestDerivativePassThrough(t *testing.T) {
	m := field.NewModule()
	xi, err := meshfield.CreateXi(m, "xi")
	require.NoError(t, err)
	second, err := CreateComponent(m, "second", xi, 2)
	require.NoError(t, err)
	d, err := m.MeshDerivative(2, 1)
	require.NoError(t, err)

	c := m.NewCache()
	c.SetElementXi(&mesh.Element{ID: 1, Dim: 2}, 0.1, 0.2)
	dv, err := c.EvaluateDerivative(second, d)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, dv.Values)
}

func TestRegister_Decode(t *testing.T) {
	r := registry.NewWith(&Module{})
	require.NoError(t, r.Validate())

	core, err := r.Decode("component", field.NewModule(), nil, nil, map[string]cty.Value{
		"component_indices": cty.ListVal([]cty.Value{cty.NumberIntVal(2), cty.NumberIntVal(1)}),
	})
	require.NoError(t, err)
	assert.True(t, core.Compare(NewComponent(2, 1)))
	assert.False(t, core.Compare(NewConcatenate()))
}
