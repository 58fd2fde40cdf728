package constant

import (
	"testing"

	"github.com/specialistvlad/fieldgraph/internal/field"
	"github.com/specialistvlad/fieldgraph/internal/mesh"
	"github.com/specialistvlad/fieldgraph/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestConstant_EvaluateAndAssign(t *testing.T) {
	m := field.NewModule()
	f, err := CreateConstant(m, "c", 1, 2.5)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Components())

	c := m.NewCache()
	values, err := c.EvaluateReal(f)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2.5}, values)

	result, err := c.AssignReal(f, []float64{3, 4})
	require.NoError(t, err)
	assert.Equal(t, field.AssignAll, result)

	values, err = c.EvaluateReal(f)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, values)
}

func TestConstant_RejectsEmptyAndSources(t *testing.T) {
	m := field.NewModule()
	_, err := CreateConstant(m, "empty")
	require.ErrorIs(t, err, field.ErrShapeMismatch)

	a, err := CreateConstant(m, "a", 1)
	require.NoError(t, err)
	_, err = m.CreateField("b", NewCore(1), a)
	require.ErrorIs(t, err, field.ErrShapeMismatch)
}

func TestConstant_ZeroDerivative(t *testing.T) {
	m := field.NewModule()
	f, err := CreateConstant(m, "c", 7, 8)
	require.NoError(t, err)
	d, err := m.MeshDerivative(2, 1)
	require.NoError(t, err)

	c := m.NewCache()
	c.SetElementXi(&mesh.Element{ID: 1, Dim: 2}, 0.5, 0.5)
	dv, err := c.EvaluateDerivative(f, d)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0}, dv.Values)

	c.SetNode(mesh.Node(1))
	_, err = c.EvaluateDerivative(f, d)
	assert.ErrorIs(t, err, field.ErrUndefined)
}

func TestStringConstant_RoundTrip(t *testing.T) {
	m := field.NewModule()
	f, err := CreateString(m, "label", "before")
	require.NoError(t, err)
	assert.Equal(t, field.ValueTypeString, f.ValueType())

	c := m.NewCache()
	result, err := c.AssignString(f, "after all")
	require.NoError(t, err)
	assert.Equal(t, field.AssignAll, result)

	s, err := c.EvaluateString(f)
	require.NoError(t, err)
	assert.Equal(t, "after all", s)

	_, err = c.AssignReal(f, []float64{1})
	assert.ErrorIs(t, err, field.ErrShapeMismatch)
}

func TestConstant_CompareAndCommandString(t *testing.T) {
	m := field.NewModule()
	f, err := CreateConstant(m, "c", 1, 2.5)
	require.NoError(t, err)

	assert.Same(t, f, m.FindEquivalent(NewCore(1, 2.5)))
	assert.Nil(t, m.FindEquivalent(NewCore(1, 2)))
	assert.Equal(t, "constant values=[1, 2.5]", f.CommandString())

	s, err := CreateString(m, "s", "x")
	require.NoError(t, err)
	assert.Equal(t, `string_constant value="x"`, s.CommandString())
}

func TestRegister_Decode(t *testing.T) {
	r := registry.NewWith(&Module{})
	require.NoError(t, r.Validate())
	m := field.NewModule()

	core, err := r.Decode("constant", m, nil, nil, map[string]cty.Value{
		"values": cty.TupleVal([]cty.Value{cty.NumberIntVal(1), cty.NumberFloatVal(2.5)}),
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2.5}, core.(*Core).Values())

	core, err = r.Decode("string_constant", m, nil, nil, map[string]cty.Value{"value": cty.StringVal("hi")})
	require.NoError(t, err)
	assert.Equal(t, "hi", core.(*StringCore).Value())

	_, err = r.Decode("constant", m, nil, nil, nil)
	assert.ErrorContains(t, err, `missing required attribute "values"`)
}
