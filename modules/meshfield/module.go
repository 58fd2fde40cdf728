// Package meshfield provides field types that read the location itself or
// values stored on the mesh.
//
//   - xi_coordinates: the element local coordinates, padded to three
//     components. Its derivative is the identity.
//   - node_value: a parameter vector stored per node. Assigning to it at a
//     node writes the parameter store.
//   - coordinates: the raw coordinate vector of a coordinate location.
//   - time_value: the time of the location.
package meshfield

import (
	"github.com/specialistvlad/fieldgraph/internal/field"
	"github.com/specialistvlad/fieldgraph/internal/location"
	"github.com/specialistvlad/fieldgraph/internal/mesh"
	"github.com/specialistvlad/fieldgraph/internal/registry"
	"github.com/specialistvlad/fieldgraph/internal/valuecache"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// XiCore evaluates to the xi coordinates of element locations.
type XiCore struct{ field.BaseCore }

func (XiCore) TypeName() string { return "xi_coordinates" }

func (c XiCore) Components(sources []*field.Field) (int, error) {
	if err := field.RequireSources(c.TypeName(), sources, 0); err != nil {
		return 0, err
	}
	return location.MaxXi, nil
}

func (XiCore) Evaluate(c *field.Cache, _ *field.Field, vc valuecache.Cache) error {
	loc := c.Location()
	if loc.Kind() != location.KindElementXi {
		return field.ErrUndefined
	}
	out := vc.(*valuecache.Real).Values
	clear(out)
	copy(out, loc.Xi())
	return nil
}

func (XiCore) IsDefinedAt(c *field.Cache, _ *field.Field) bool {
	return c.Location().Kind() == location.KindElementXi
}

// EvaluateDerivative is the identity for first derivatives and zero above.
func (XiCore) EvaluateDerivative(c *field.Cache, _ *field.Field, d *field.Derivative, out *valuecache.Derivative) error {
	if err := field.ZeroDerivative(c, d, out); err != nil {
		return err
	}
	if d.Order() == 1 {
		for i := range d.MeshDimension() {
			out.Set(i, i, 1)
		}
	}
	return nil
}

func (XiCore) Compare(other field.Core) bool {
	_, ok := other.(XiCore)
	return ok
}

func (c XiCore) Describe() field.Description { return field.Description{Type: c.TypeName()} }

// NodeValueCore reads a parameter from the mesh at node locations.
type NodeValueCore struct {
	field.BaseCore
	store      mesh.ParameterSource
	parameter  string
	components int
}

func NewNodeValueCore(store mesh.ParameterSource, parameter string, components int) *NodeValueCore {
	return &NodeValueCore{store: store, parameter: parameter, components: components}
}

func (c *NodeValueCore) TypeName() string { return "node_value" }

func (c *NodeValueCore) Parameter() string { return c.parameter }

func (c *NodeValueCore) Components(sources []*field.Field) (int, error) {
	if err := field.RequireSources(c.TypeName(), sources, 0); err != nil {
		return 0, err
	}
	if c.components < 1 {
		return 0, field.ShapeMismatchf("node_value %q needs at least one component", c.parameter)
	}
	if c.store == nil {
		return 0, field.ShapeMismatchf("node_value %q has no parameter store", c.parameter)
	}
	return c.components, nil
}

func (c *NodeValueCore) Evaluate(cache *field.Cache, _ *field.Field, vc valuecache.Cache) error {
	loc := cache.Location()
	if loc.Kind() != location.KindNode {
		return field.ErrUndefined
	}
	if !c.store.LoadValues(c.parameter, loc.Node().Identifier(), vc.(*valuecache.Real).Values) {
		return field.ErrUndefined
	}
	return nil
}

// IsDefinedAt asks the store without reading the values.
func (c *NodeValueCore) IsDefinedAt(cache *field.Cache, _ *field.Field) bool {
	loc := cache.Location()
	return loc.Kind() == location.KindNode && c.store.HasValues(c.parameter, loc.Node().Identifier())
}

func (c *NodeValueCore) Assign(cache *field.Cache, _ *field.Field, vc valuecache.Cache) field.AssignResult {
	loc := cache.Location()
	if loc.Kind() != location.KindNode {
		return field.AssignFail
	}
	if err := c.store.SetValues(c.parameter, loc.Node().Identifier(), vc.(*valuecache.Real).Values); err != nil {
		return field.AssignFail
	}
	return field.AssignAll
}

func (c *NodeValueCore) Compare(other field.Core) bool {
	o, ok := other.(*NodeValueCore)
	return ok && o.store == c.store && o.parameter == c.parameter && o.components == c.components
}

func (c *NodeValueCore) Describe() field.Description {
	return field.Description{
		Type: c.TypeName(),
		Attributes: map[string]cty.Value{
			"parameter":  cty.StringVal(c.parameter),
			"components": cty.NumberIntVal(int64(c.components)),
		},
	}
}

// CoordinatesCore evaluates to the raw coordinates of coordinate locations
// with exactly its component count.
type CoordinatesCore struct {
	field.BaseCore
	components int
}

func (c CoordinatesCore) TypeName() string { return "coordinates" }

func (c CoordinatesCore) Components(sources []*field.Field) (int, error) {
	if err := field.RequireSources(c.TypeName(), sources, 0); err != nil {
		return 0, err
	}
	if c.components < 1 {
		return 0, field.ShapeMismatchf("coordinates needs at least one component")
	}
	return c.components, nil
}

func (c CoordinatesCore) Evaluate(cache *field.Cache, _ *field.Field, vc valuecache.Cache) error {
	loc := cache.Location()
	if loc.Kind() != location.KindCoordinates || loc.Dimension() != c.components {
		return field.ErrUndefined
	}
	copy(vc.(*valuecache.Real).Values, loc.Values())
	return nil
}

func (c CoordinatesCore) IsDefinedAt(cache *field.Cache, _ *field.Field) bool {
	loc := cache.Location()
	return loc.Kind() == location.KindCoordinates && loc.Dimension() == c.components
}

func (c CoordinatesCore) Compare(other field.Core) bool {
	o, ok := other.(CoordinatesCore)
	return ok && o.components == c.components
}

func (c CoordinatesCore) Describe() field.Description {
	return field.Description{
		Type:       c.TypeName(),
		Attributes: map[string]cty.Value{"components": cty.NumberIntVal(int64(c.components))},
	}
}

// TimeCore evaluates to the location time.
type TimeCore struct{ field.BaseCore }

func (TimeCore) TypeName() string { return "time_value" }

func (c TimeCore) Components(sources []*field.Field) (int, error) {
	if err := field.RequireSources(c.TypeName(), sources, 0); err != nil {
		return 0, err
	}
	return 1, nil
}

func (TimeCore) Evaluate(c *field.Cache, _ *field.Field, vc valuecache.Cache) error {
	vc.(*valuecache.Real).Values[0] = c.Time()
	return nil
}

func (TimeCore) IsDefinedAt(*field.Cache, *field.Field) bool { return true }

// EvaluateDerivative is zero: time does not vary with xi.
func (TimeCore) EvaluateDerivative(c *field.Cache, _ *field.Field, d *field.Derivative, out *valuecache.Derivative) error {
	return field.ZeroDerivative(c, d, out)
}

func (TimeCore) Compare(other field.Core) bool {
	_, ok := other.(TimeCore)
	return ok
}

func (c TimeCore) Describe() field.Description { return field.Description{Type: c.TypeName()} }

// CreateXi creates an xi_coordinates field.
func CreateXi(m *field.Module, name string) (*field.Field, error) {
	return m.CreateField(name, XiCore{})
}

// CreateNodeValue creates a node_value field over store.
func CreateNodeValue(m *field.Module, name string, store mesh.ParameterSource, parameter string, components int) (*field.Field, error) {
	return m.CreateField(name, NewNodeValueCore(store, parameter, components))
}

// CreateCoordinates creates a coordinates field.
func CreateCoordinates(m *field.Module, name string, components int) (*field.Field, error) {
	return m.CreateField(name, CoordinatesCore{components: components})
}

// CreateTime creates a time_value field.
func CreateTime(m *field.Module, name string) (*field.Field, error) {
	return m.CreateField(name, TimeCore{})
}

// Register registers the field types with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterFieldType(&registry.FieldType{
		Name: "xi_coordinates",
		Decode: func(*registry.DecodeContext) (field.Core, error) {
			return XiCore{}, nil
		},
	})
	r.RegisterFieldType(&registry.FieldType{
		Name: "node_value",
		Attributes: map[string]cty.Type{
			"parameter":  cty.String,
			"components": cty.Number,
		},
		Required: []string{"parameter"},
		Decode: func(d *registry.DecodeContext) (field.Core, error) {
			var parameter string
			components := 1
			if err := registry.Get(d, "parameter", &parameter); err != nil {
				return nil, err
			}
			if err := registry.Get(d, "components", &components); err != nil {
				return nil, err
			}
			var store mesh.ParameterSource
			if d.Mesh != nil {
				store = d.Mesh
			}
			return NewNodeValueCore(store, parameter, components), nil
		},
	})
	r.RegisterFieldType(&registry.FieldType{
		Name:       "coordinates",
		Attributes: map[string]cty.Type{"components": cty.Number},
		Required:   []string{"components"},
		Decode: func(d *registry.DecodeContext) (field.Core, error) {
			var components int
			if err := registry.Get(d, "components", &components); err != nil {
				return nil, err
			}
			return CoordinatesCore{components: components}, nil
		},
	})
	r.RegisterFieldType(&registry.FieldType{
		Name: "time_value",
		Decode: func(*registry.DecodeContext) (field.Core, error) {
			return TimeCore{}, nil
		},
	})
}
