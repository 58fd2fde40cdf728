// Package conditional provides the if field type.
//
// An if field has three sources: a condition, a true branch and a false
// branch. A scalar condition gates the whole result; a condition with as
// many components as the result gates each component on its own. Either
// branch may be a scalar, which is broadcast to every component.
//
// Only the branch a component selects is evaluated, so an if field can guard
// a branch that is undefined elsewhere, such as a division by zero.
package conditional

import (
	"github.com/specialistvlad/fieldgraph/internal/field"
	"github.com/specialistvlad/fieldgraph/internal/registry"
	"github.com/specialistvlad/fieldgraph/internal/valuecache"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Core selects between two branches by a condition.
type Core struct {
	field.BaseCore
}

func (Core) TypeName() string { return "if" }

func (c Core) Components(sources []*field.Field) (int, error) {
	if err := field.RequireSources(c.TypeName(), sources, 3); err != nil {
		return 0, err
	}
	if err := field.RequireReal(c.TypeName(), sources...); err != nil {
		return 0, err
	}
	cond, a, b := sources[0].Components(), sources[1].Components(), sources[2].Components()
	n := max(a, b)
	if a != b && a != 1 && b != 1 {
		return 0, field.ShapeMismatchf("if branches have %d and %d components", a, b)
	}
	if cond != 1 && cond != n {
		return 0, field.ShapeMismatchf("if condition has %d components, want 1 or %d", cond, n)
	}
	return n, nil
}

// selection records which branches the condition picks.
type selection struct {
	cond         []float64
	wantA, wantB bool
	scalarCond   bool
	components   int
}

func (s *selection) pickA(i int) bool {
	if s.scalarCond {
		return s.cond[0] != 0
	}
	return s.cond[i] != 0
}

func selectBranches(c *field.Cache, f *field.Field) (*selection, error) {
	cond, err := c.EvaluateReal(f.Source(0))
	if err != nil {
		return nil, err
	}
	s := &selection{cond: cond, scalarCond: len(cond) == 1, components: f.Components()}
	for i := range s.components {
		if s.pickA(i) {
			s.wantA = true
		} else {
			s.wantB = true
		}
	}
	return s, nil
}

func (Core) Evaluate(c *field.Cache, f *field.Field, vc valuecache.Cache) error {
	s, err := selectBranches(c, f)
	if err != nil {
		return err
	}
	var a, b []float64
	if s.wantA {
		if a, err = c.EvaluateReal(f.Source(1)); err != nil {
			return err
		}
	}
	if s.wantB {
		if b, err = c.EvaluateReal(f.Source(2)); err != nil {
			return err
		}
	}
	out := vc.(*valuecache.Real).Values
	for i := range out {
		if s.pickA(i) {
			out[i] = broadcast(a, i)
		} else {
			out[i] = broadcast(b, i)
		}
	}
	return nil
}

func (Core) IsDefinedAt(c *field.Cache, f *field.Field) bool {
	s, err := selectBranches(c, f)
	if err != nil {
		return false
	}
	if s.wantA && !c.IsDefined(f.Source(1)) {
		return false
	}
	return !s.wantB || c.IsDefined(f.Source(2))
}

// EvaluateDerivative passes through the derivative of the selected branch.
func (Core) EvaluateDerivative(c *field.Cache, f *field.Field, d *field.Derivative, out *valuecache.Derivative) error {
	s, err := selectBranches(c, f)
	if err != nil {
		return err
	}
	var a, b *valuecache.Derivative
	if s.wantA {
		if a, err = c.EvaluateDerivative(f.Source(1), d); err != nil {
			return err
		}
	}
	if s.wantB {
		if b, err = c.EvaluateDerivative(f.Source(2), d); err != nil {
			return err
		}
	}
	for i := range s.components {
		src := b
		if s.pickA(i) {
			src = a
		}
		comp := i
		if src.Components == 1 {
			comp = 0
		}
		copy(out.Component(i), src.Component(comp))
	}
	return nil
}

func (Core) Compare(other field.Core) bool {
	_, ok := other.(Core)
	return ok
}

func (c Core) Describe() field.Description {
	return field.Description{Type: c.TypeName()}
}

func broadcast(values []float64, i int) float64 {
	if len(values) == 1 {
		return values[0]
	}
	return values[i]
}

// CreateIf creates an if field.
func CreateIf(m *field.Module, name string, condition, whenTrue, whenFalse *field.Field) (*field.Field, error) {
	return m.CreateField(name, Core{}, condition, whenTrue, whenFalse)
}

// Register registers the field types with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterFieldType(&registry.FieldType{
		Name: "if",
		Decode: func(*registry.DecodeContext) (field.Core, error) {
			return Core{}, nil
		},
	})
}
