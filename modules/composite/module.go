// Package composite provides field types that rearrange the components of
// other fields: concatenate joins the components of several sources and
// component selects components of one source.
//
// Both are assignable. Assigned values are distributed back to the sources,
// each source keeping the components the composite does not map. Writes are
// not transactional: sources that accept their values stay changed even if
// another source rejects its share, and the result is
// field.AssignPartial.
package composite

import (
	"slices"

	"github.com/specialistvlad/fieldgraph/internal/field"
	"github.com/specialistvlad/fieldgraph/internal/registry"
	"github.com/specialistvlad/fieldgraph/internal/valuecache"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

type ref struct {
	source, component int
}

// Core maps every output component to one component of a source.
type Core struct {
	field.BaseCore
	selects bool
	// indices are the 1-based component indices of a component field.
	indices []int
}

// NewConcatenate returns a concatenate core.
func NewConcatenate() *Core { return &Core{} }

// NewComponent returns a core selecting 1-based component indices.
func NewComponent(indices ...int) *Core {
	return &Core{selects: true, indices: slices.Clone(indices)}
}

func (c *Core) TypeName() string {
	if c.selects {
		return "component"
	}
	return "concatenate"
}

func (c *Core) Components(sources []*field.Field) (int, error) {
	if c.selects {
		if err := field.RequireSources(c.TypeName(), sources, 1); err != nil {
			return 0, err
		}
	} else if len(sources) == 0 {
		return 0, field.ShapeMismatchf("concatenate requires at least one source field")
	}
	if err := field.RequireReal(c.TypeName(), sources...); err != nil {
		return 0, err
	}
	if !c.selects {
		n := 0
		for _, src := range sources {
			n += src.Components()
		}
		return n, nil
	}
	if len(c.indices) == 0 {
		return 0, field.ShapeMismatchf("component requires at least one component index")
	}
	for _, idx := range c.indices {
		if idx < 1 || idx > sources[0].Components() {
			return 0, field.ShapeMismatchf("component index %d out of range 1..%d", idx, sources[0].Components())
		}
	}
	return len(c.indices), nil
}

func (c *Core) mapping(f *field.Field) []ref {
	if c.selects {
		refs := make([]ref, len(c.indices))
		for i, idx := range c.indices {
			refs[i] = ref{0, idx - 1}
		}
		return refs
	}
	refs := make([]ref, 0, f.Components())
	for s := range f.NumSources() {
		for comp := range f.Source(s).Components() {
			refs = append(refs, ref{s, comp})
		}
	}
	return refs
}

func (c *Core) Evaluate(cache *field.Cache, f *field.Field, vc valuecache.Cache) error {
	values := make([][]float64, f.NumSources())
	for s := range values {
		v, err := cache.EvaluateReal(f.Source(s))
		if err != nil {
			return err
		}
		values[s] = v
	}
	out := vc.(*valuecache.Real).Values
	for i, r := range c.mapping(f) {
		out[i] = values[r.source][r.component]
	}
	return nil
}

// EvaluateDerivative picks the mapped components of the source derivatives
// at any order.
func (c *Core) EvaluateDerivative(cache *field.Cache, f *field.Field, d *field.Derivative, out *valuecache.Derivative) error {
	srcs, err := field.LinearDerivative(cache, f, d)
	if err != nil {
		return err
	}
	for i, r := range c.mapping(f) {
		copy(out.Component(i), srcs[r.source].Component(r.component))
	}
	return nil
}

func (c *Core) IsDefinedAt(cache *field.Cache, f *field.Field) bool {
	for _, src := range f.Sources() {
		if !cache.IsDefined(src) {
			return false
		}
	}
	return true
}

// Assign distributes the staged values to the sources. A source that is
// undefined here can only be written when every one of its components is
// mapped.
func (c *Core) Assign(cache *field.Cache, f *field.Field, vc valuecache.Cache) field.AssignResult {
	staged := vc.(*valuecache.Real).Values
	updates := make([][]float64, f.NumSources())
	unknown := make([][]bool, f.NumSources())
	for i, r := range c.mapping(f) {
		if updates[r.source] == nil {
			src := f.Source(r.source)
			current, err := cache.EvaluateReal(src)
			if err != nil {
				current = make([]float64, src.Components())
				unknown[r.source] = make([]bool, src.Components())
				for k := range unknown[r.source] {
					unknown[r.source][k] = true
				}
			}
			updates[r.source] = slices.Clone(current)
		}
		updates[r.source][r.component] = staged[i]
		if unknown[r.source] != nil {
			unknown[r.source][r.component] = false
		}
	}
	var tally field.AssignTally
	for s, values := range updates {
		if values == nil {
			continue
		}
		if slices.Contains(unknown[s], true) {
			tally.Add(field.AssignFail)
			continue
		}
		result, err := cache.AssignReal(f.Source(s), values)
		if err != nil {
			result = field.AssignFail
		}
		tally.Add(result)
	}
	return tally.Result()
}

func (c *Core) Compare(other field.Core) bool {
	o, ok := other.(*Core)
	return ok && o.selects == c.selects && slices.Equal(o.indices, c.indices)
}

func (c *Core) Describe() field.Description {
	d := field.Description{Type: c.TypeName()}
	if c.selects {
		d.Attributes = map[string]cty.Value{"component_indices": registry.IntValues(c.indices)}
	}
	return d
}

// CreateConcatenate creates a field joining the components of sources.
func CreateConcatenate(m *field.Module, name string, sources ...*field.Field) (*field.Field, error) {
	return m.CreateField(name, NewConcatenate(), sources...)
}

// CreateComponent creates a field selecting 1-based components of source.
func CreateComponent(m *field.Module, name string, source *field.Field, indices ...int) (*field.Field, error) {
	return m.CreateField(name, NewComponent(indices...), source)
}

// Register registers the field types with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterFieldType(&registry.FieldType{
		Name: "concatenate",
		Decode: func(*registry.DecodeContext) (field.Core, error) {
			return NewConcatenate(), nil
		},
	})
	r.RegisterFieldType(&registry.FieldType{
		Name:       "component",
		Attributes: map[string]cty.Type{"component_indices": cty.List(cty.Number)},
		Required:   []string{"component_indices"},
		Decode: func(d *registry.DecodeContext) (field.Core, error) {
			indices := []int{}
			if err := registry.Get(d, "component_indices", &indices); err != nil {
				return nil, err
			}
			return NewComponent(indices...), nil
		},
	})
}
