package registry

import (
	"testing"

	"github.com/specialistvlad/fieldgraph/internal/field"
	"github.com/specialistvlad/fieldgraph/internal/inmemorymesh"
	"github.com/specialistvlad/fieldgraph/internal/valuecache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

type scaleCore struct {
	field.BaseCore
	factor float64
	label  string
}

func (scaleCore) TypeName() string { return "scale" }

func (scaleCore) Components(sources []*field.Field) (int, error) { return 1, nil }

func (c scaleCore) Evaluate(_ *field.Cache, _ *field.Field, vc valuecache.Cache) error {
	vc.(*valuecache.Real).Values[0] = c.factor
	return nil
}

func (c scaleCore) Compare(other field.Core) bool { return other == field.Core(c) }

func (c scaleCore) Describe() field.Description { return field.Description{Type: "scale"} }

type scaleModule struct{}

func (scaleModule) Register(r *Registry) {
	r.RegisterFieldType(&FieldType{
		Name: "scale",
		Attributes: map[string]cty.Type{
			"factor": cty.Number,
			"label":  cty.String,
		},
		Required: []string{"factor"},
		Decode: func(d *DecodeContext) (field.Core, error) {
			c := scaleCore{label: "default"}
			if err := Get(d, "factor", &c.factor); err != nil {
				return nil, err
			}
			if err := Get(d, "label", &c.label); err != nil {
				return nil, err
			}
			return c, nil
		},
	})
}

func TestRegisterFieldType_PanicsOnDuplicate(t *testing.T) {
	r := NewWith(scaleModule{})
	assert.PanicsWithValue(t, "field type 'scale' already registered", func() {
		scaleModule{}.Register(r)
	})
}

func TestValidate(t *testing.T) {
	r := NewWith(scaleModule{})
	require.NoError(t, r.Validate())

	r.RegisterFieldType(&FieldType{Name: "broken", Required: []string{"x"}})
	err := r.Validate()
	require.Error(t, err)
	assert.Equal(t, "registry validation failed:\n"+
		"- field type 'broken': no decoder\n"+
		"- field type 'broken': required attribute 'x' is not declared", err.Error())
}

func TestDecode(t *testing.T) {
	r := NewWith(scaleModule{})
	m := field.NewModule()

	testCases := []struct {
		name    string
		typ     string
		attrs   map[string]cty.Value
		want    scaleCore
		wantErr string
	}{
		{
			name:  "converts strings to numbers",
			typ:   "scale",
			attrs: map[string]cty.Value{"factor": cty.StringVal("2.5")},
			want:  scaleCore{factor: 2.5, label: "default"},
		},
		{
			name:  "optional attribute",
			typ:   "scale",
			attrs: map[string]cty.Value{"factor": cty.NumberIntVal(3), "label": cty.StringVal("x")},
			want:  scaleCore{factor: 3, label: "x"},
		},
		{name: "unknown type", typ: "nope", wantErr: `unknown field type "nope"`},
		{name: "missing required", typ: "scale", wantErr: `missing required attribute "factor"`},
		{
			name:    "unsupported attribute",
			typ:     "scale",
			attrs:   map[string]cty.Value{"factor": cty.NumberIntVal(1), "colour": cty.StringVal("red")},
			wantErr: `unsupported attribute "colour"`,
		},
		{
			name:    "wrong type",
			typ:     "scale",
			attrs:   map[string]cty.Value{"factor": cty.StringVal("lots")},
			wantErr: `attribute "factor"`,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			core, err := r.Decode(tc.typ, m, nil, nil, tc.attrs)
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, core)
		})
	}
}

func TestDecodeContext_Nodeset(t *testing.T) {
	store := inmemorymesh.New()
	store.AddNode(1)
	require.NoError(t, store.AddToNodeset("boundary", 1))

	d := &DecodeContext{
		TypeName:   "test",
		Mesh:       store,
		Attributes: map[string]cty.Value{"nodeset": cty.StringVal("boundary")},
	}
	ns, err := d.Nodeset("nodeset")
	require.NoError(t, err)
	assert.Equal(t, "boundary", ns.Name())

	d.Mesh = nil
	_, err = d.Nodeset("nodeset")
	assert.ErrorContains(t, err, "no mesh")
}

func TestValueHelpers(t *testing.T) {
	assert.Equal(t, "[1, 2.5]", field.RenderValue(Float64Values([]float64{1, 2.5})))
	assert.Equal(t, "[3, 1]", field.RenderValue(IntValues([]int{3, 1})))
	assert.Equal(t, "[]", field.RenderValue(IntValues(nil)))
}
