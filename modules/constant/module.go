// Package constant provides the constant and string_constant field types.
package constant

import (
	"slices"

	"github.com/specialistvlad/fieldgraph/internal/field"
	"github.com/specialistvlad/fieldgraph/internal/registry"
	"github.com/specialistvlad/fieldgraph/internal/valuecache"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Core is a settable vector of constant values. Assigning to a constant
// field replaces its values everywhere.
type Core struct {
	field.BaseCore
	values []float64
}

// NewCore copies values into a new constant core.
func NewCore(values ...float64) *Core {
	return &Core{values: slices.Clone(values)}
}

func (c *Core) TypeName() string { return "constant" }

func (c *Core) Values() []float64 { return slices.Clone(c.values) }

func (c *Core) Components(sources []*field.Field) (int, error) {
	if err := field.RequireSources(c.TypeName(), sources, 0); err != nil {
		return 0, err
	}
	if len(c.values) == 0 {
		return 0, field.ShapeMismatchf("constant needs at least one value")
	}
	return len(c.values), nil
}

func (c *Core) Evaluate(_ *field.Cache, _ *field.Field, vc valuecache.Cache) error {
	copy(vc.(*valuecache.Real).Values, c.values)
	return nil
}

func (c *Core) EvaluateDerivative(cache *field.Cache, _ *field.Field, d *field.Derivative, out *valuecache.Derivative) error {
	return field.ZeroDerivative(cache, d, out)
}

func (c *Core) IsDefinedAt(*field.Cache, *field.Field) bool { return true }

func (c *Core) Assign(_ *field.Cache, _ *field.Field, vc valuecache.Cache) field.AssignResult {
	copy(c.values, vc.(*valuecache.Real).Values)
	return field.AssignAll
}

func (c *Core) Compare(other field.Core) bool {
	o, ok := other.(*Core)
	return ok && slices.Equal(c.values, o.values)
}

func (c *Core) Describe() field.Description {
	return field.Description{
		Type:       c.TypeName(),
		Attributes: map[string]cty.Value{"values": registry.Float64Values(c.values)},
	}
}

// StringCore is a settable string constant.
type StringCore struct {
	field.BaseCore
	value string
}

func NewStringCore(value string) *StringCore {
	return &StringCore{value: value}
}

func (c *StringCore) TypeName() string { return "string_constant" }

func (c *StringCore) ValueType() field.ValueType { return field.ValueTypeString }

func (c *StringCore) Value() string { return c.value }

func (c *StringCore) Components(sources []*field.Field) (int, error) {
	if err := field.RequireSources(c.TypeName(), sources, 0); err != nil {
		return 0, err
	}
	return 1, nil
}

func (c *StringCore) Evaluate(_ *field.Cache, _ *field.Field, vc valuecache.Cache) error {
	vc.(*valuecache.String).Value = c.value
	return nil
}

func (c *StringCore) EvaluateDerivative(*field.Cache, *field.Field, *field.Derivative, *valuecache.Derivative) error {
	return field.ErrUndefined
}

func (c *StringCore) IsDefinedAt(*field.Cache, *field.Field) bool { return true }

func (c *StringCore) Assign(_ *field.Cache, _ *field.Field, vc valuecache.Cache) field.AssignResult {
	c.value = vc.(*valuecache.String).Value
	return field.AssignAll
}

func (c *StringCore) Compare(other field.Core) bool {
	o, ok := other.(*StringCore)
	return ok && o.value == c.value
}

func (c *StringCore) Describe() field.Description {
	return field.Description{
		Type:       c.TypeName(),
		Attributes: map[string]cty.Value{"value": cty.StringVal(c.value)},
	}
}

// CreateConstant creates a constant field holding values.
func CreateConstant(m *field.Module, name string, values ...float64) (*field.Field, error) {
	return m.CreateField(name, NewCore(values...))
}

// CreateString creates a string_constant field.
func CreateString(m *field.Module, name, value string) (*field.Field, error) {
	return m.CreateField(name, NewStringCore(value))
}

// Register registers the field types with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterFieldType(&registry.FieldType{
		Name:       "constant",
		Attributes: map[string]cty.Type{"values": cty.List(cty.Number)},
		Required:   []string{"values"},
		Decode: func(d *registry.DecodeContext) (field.Core, error) {
			var values []float64
			if err := registry.Get(d, "values", &values); err != nil {
				return nil, err
			}
			return NewCore(values...), nil
		},
	})
	r.RegisterFieldType(&registry.FieldType{
		Name:       "string_constant",
		Attributes: map[string]cty.Type{"value": cty.String},
		Required:   []string{"value"},
		Decode: func(d *registry.DecodeContext) (field.Core, error) {
			var value string
			if err := registry.Get(d, "value", &value); err != nil {
				return nil, err
			}
			return NewStringCore(value), nil
		},
	})
}
