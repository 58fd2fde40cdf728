// Package vector provides vector field types: cross_product, dot_product,
// magnitude, normalise and sum_components.
package vector

import (
	"math"

	"github.com/specialistvlad/fieldgraph/internal/field"
	"github.com/specialistvlad/fieldgraph/internal/registry"
	"github.com/specialistvlad/fieldgraph/internal/valuecache"
	"gonum.org/v1/gonum/mat"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// CrossProductCore computes the generalised cross product of n-1 vectors of
// n components, for n from 2 to 4. Component i is the determinant of the
// matrix whose rows are the sources followed by the i-th unit vector, so the
// 2-D result of a is (-a1, a0).
type CrossProductCore struct{ field.BaseCore }

func (CrossProductCore) TypeName() string { return "cross_product" }

func (c CrossProductCore) Components(sources []*field.Field) (int, error) {
	n := len(sources) + 1
	if n < 2 || n > 4 {
		return 0, field.ShapeMismatchf("cross_product takes 1 to 3 source fields, got %d", len(sources))
	}
	if err := field.RequireReal(c.TypeName(), sources...); err != nil {
		return 0, err
	}
	for _, src := range sources {
		if src.Components() != n {
			return 0, field.ShapeMismatchf("cross_product of %d sources needs %d components, %q has %d",
				len(sources), n, src.Name(), src.Components())
		}
	}
	return n, nil
}

func (CrossProductCore) Evaluate(c *field.Cache, f *field.Field, vc valuecache.Cache) error {
	n := f.Components()
	m := mat.NewDense(n, n, nil)
	for s := range f.NumSources() {
		values, err := c.EvaluateReal(f.Source(s))
		if err != nil {
			return err
		}
		m.SetRow(s, values)
	}
	out := vc.(*valuecache.Real).Values
	unit := make([]float64, n)
	for i := range n {
		clear(unit)
		unit[i] = 1
		m.SetRow(n-1, unit)
		out[i] = mat.Det(m)
	}
	return nil
}

func (CrossProductCore) Compare(other field.Core) bool {
	_, ok := other.(CrossProductCore)
	return ok
}

func (c CrossProductCore) Describe() field.Description { return field.Description{Type: c.TypeName()} }

// DotProductCore is the scalar product of two vectors.
type DotProductCore struct{ field.BaseCore }

func (DotProductCore) TypeName() string { return "dot_product" }

func (c DotProductCore) Components(sources []*field.Field) (int, error) {
	if err := field.RequireSources(c.TypeName(), sources, 2); err != nil {
		return 0, err
	}
	if err := field.RequireReal(c.TypeName(), sources...); err != nil {
		return 0, err
	}
	if sources[0].Components() != sources[1].Components() {
		return 0, field.ShapeMismatchf("dot_product sources have %d and %d components",
			sources[0].Components(), sources[1].Components())
	}
	return 1, nil
}

func (DotProductCore) Evaluate(c *field.Cache, f *field.Field, vc valuecache.Cache) error {
	a, err := c.EvaluateReal(f.Source(0))
	if err != nil {
		return err
	}
	b, err := c.EvaluateReal(f.Source(1))
	if err != nil {
		return err
	}
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	vc.(*valuecache.Real).Values[0] = sum
	return nil
}

// EvaluateDerivative applies the product rule for first derivatives.
func (DotProductCore) EvaluateDerivative(c *field.Cache, f *field.Field, d *field.Derivative, out *valuecache.Derivative) error {
	if d.Order() > 1 {
		return field.FiniteDifference(c, f, d, out)
	}
	a, err := c.EvaluateReal(f.Source(0))
	if err != nil {
		return err
	}
	b, err := c.EvaluateReal(f.Source(1))
	if err != nil {
		return err
	}
	da, err := c.EvaluateDerivative(f.Source(0), d)
	if err != nil {
		return err
	}
	db, err := c.EvaluateDerivative(f.Source(1), d)
	if err != nil {
		return err
	}
	out.Zero()
	dst := out.Component(0)
	for i := range a {
		for t := range dst {
			dst[t] += da.At(i, t)*b[i] + a[i]*db.At(i, t)
		}
	}
	return nil
}

func (DotProductCore) Compare(other field.Core) bool {
	_, ok := other.(DotProductCore)
	return ok
}

func (c DotProductCore) Describe() field.Description { return field.Description{Type: c.TypeName()} }

// reduceKind selects a single-source vector operation.
type reduceKind int

const (
	magnitude reduceKind = iota
	normalise
	sumComponents
)

var reduceNames = map[reduceKind]string{
	magnitude:     "magnitude",
	normalise:     "normalise",
	sumComponents: "sum_components",
}

// ReduceCore implements the single-source operations magnitude, normalise
// and sum_components.
type ReduceCore struct {
	field.BaseCore
	kind reduceKind
}

func (c ReduceCore) TypeName() string { return reduceNames[c.kind] }

func (c ReduceCore) Components(sources []*field.Field) (int, error) {
	if err := field.RequireSources(c.TypeName(), sources, 1); err != nil {
		return 0, err
	}
	if err := field.RequireReal(c.TypeName(), sources...); err != nil {
		return 0, err
	}
	if c.kind == normalise {
		return sources[0].Components(), nil
	}
	return 1, nil
}

func (c ReduceCore) Evaluate(cache *field.Cache, f *field.Field, vc valuecache.Cache) error {
	a, err := cache.EvaluateReal(f.Source(0))
	if err != nil {
		return err
	}
	out := vc.(*valuecache.Real).Values
	switch c.kind {
	case sumComponents:
		sum := 0.0
		for _, v := range a {
			sum += v
		}
		out[0] = sum
	case magnitude:
		out[0] = norm(a)
	case normalise:
		length := norm(a)
		if length == 0 {
			return field.ErrNumericDegenerate
		}
		for i, v := range a {
			out[i] = v / length
		}
	}
	return nil
}

// EvaluateDerivative is exact for sum_components, which is linear.
func (c ReduceCore) EvaluateDerivative(cache *field.Cache, f *field.Field, d *field.Derivative, out *valuecache.Derivative) error {
	if c.kind != sumComponents {
		return field.FiniteDifference(cache, f, d, out)
	}
	da, err := cache.EvaluateDerivative(f.Source(0), d)
	if err != nil {
		return err
	}
	out.Zero()
	dst := out.Component(0)
	for i := range da.Components {
		for t, v := range da.Component(i) {
			dst[t] += v
		}
	}
	return nil
}

func (c ReduceCore) Compare(other field.Core) bool {
	o, ok := other.(ReduceCore)
	return ok && o.kind == c.kind
}

func (c ReduceCore) Describe() field.Description { return field.Description{Type: c.TypeName()} }

func norm(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// CreateCrossProduct creates a cross_product field of n-1 sources with n
// components each.
func CreateCrossProduct(m *field.Module, name string, sources ...*field.Field) (*field.Field, error) {
	return m.CreateField(name, CrossProductCore{}, sources...)
}

func CreateDotProduct(m *field.Module, name string, a, b *field.Field) (*field.Field, error) {
	return m.CreateField(name, DotProductCore{}, a, b)
}

func CreateMagnitude(m *field.Module, name string, source *field.Field) (*field.Field, error) {
	return m.CreateField(name, ReduceCore{kind: magnitude}, source)
}

func CreateNormalise(m *field.Module, name string, source *field.Field) (*field.Field, error) {
	return m.CreateField(name, ReduceCore{kind: normalise}, source)
}

func CreateSumComponents(m *field.Module, name string, source *field.Field) (*field.Field, error) {
	return m.CreateField(name, ReduceCore{kind: sumComponents}, source)
}

// Register registers the field types with the registry.
func (m *Module) Register(r *registry.Registry) {
	cores := []field.Core{
		CrossProductCore{},
		DotProductCore{},
		ReduceCore{kind: magnitude},
		ReduceCore{kind: normalise},
		ReduceCore{kind: sumComponents},
	}
	for _, core := range cores {
		r.RegisterFieldType(&registry.FieldType{
			Name: core.TypeName(),
			Decode: func(*registry.DecodeContext) (field.Core, error) {
				return core, nil
			},
		})
	}
}
