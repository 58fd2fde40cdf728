package field

import (
	"slices"

	"github.com/specialistvlad/fieldgraph/internal/location"
	"github.com/specialistvlad/fieldgraph/internal/valuecache"
	"github.com/zclconf/go-cty/cty"
)

// constCore is a settable constant vector.
type constCore struct {
	BaseCore
	values []float64
}

func (c *constCore) TypeName() string { return "test_constant" }

func (c *constCore) Components(sources []*Field) (int, error) {
	if err := RequireSources(c.TypeName(), sources, 0); err != nil {
		return 0, err
	}
	return len(c.values), nil
}

func (c *constCore) Evaluate(_ *Cache, _ *Field, vc valuecache.Cache) error {
	copy(vc.(*valuecache.Real).Values, c.values)
	return nil
}

func (c *constCore) EvaluateDerivative(cache *Cache, _ *Field, d *Derivative, out *valuecache.Derivative) error {
	return ZeroDerivative(cache, d, out)
}

func (c *constCore) IsDefinedAt(*Cache, *Field) bool { return true }

func (c *constCore) Assign(_ *Cache, _ *Field, vc valuecache.Cache) AssignResult {
	copy(c.values, vc.(*valuecache.Real).Values)
	return AssignAll
}

func (c *constCore) Compare(other Core) bool {
	o, ok := other.(*constCore)
	return ok && slices.Equal(c.values, o.values)
}

func (c *constCore) Describe() Description {
	vals := make([]cty.Value, len(c.values))
	for i, v := range c.values {
		vals[i] = cty.NumberFloatVal(v)
	}
	return Description{Type: c.TypeName(), Attributes: map[string]cty.Value{"values": cty.TupleVal(vals)}}
}

// sumCore adds two sources with equal component counts.
type sumCore struct{ BaseCore }

func (sumCore) TypeName() string { return "test_sum" }

func (s sumCore) Components(sources []*Field) (int, error) {
	if err := RequireSources(s.TypeName(), sources, 2); err != nil {
		return 0, err
	}
	if sources[0].Components() != sources[1].Components() {
		return 0, ShapeMismatchf("component counts differ")
	}
	return sources[0].Components(), nil
}

func (sumCore) Evaluate(c *Cache, f *Field, vc valuecache.Cache) error {
	a, err := c.EvaluateReal(f.Source(0))
	if err != nil {
		return err
	}
	b, err := c.EvaluateReal(f.Source(1))
	if err != nil {
		return err
	}
	out := vc.(*valuecache.Real).Values
	for i := range out {
		out[i] = a[i] + b[i]
	}
	return nil
}

func (sumCore) EvaluateDerivative(c *Cache, f *Field, d *Derivative, out *valuecache.Derivative) error {
	parts, err := LinearDerivative(c, f, d)
	if err != nil {
		return err
	}
	for i := range out.Values {
		out.Values[i] = parts[0].Values[i] + parts[1].Values[i]
	}
	return nil
}

func (sumCore) Compare(other Core) bool {
	_, ok := other.(sumCore)
	return ok
}

func (s sumCore) Describe() Description { return Description{Type: s.TypeName()} }

// countingCore passes its source through and counts evaluations.
type countingCore struct {
	BaseCore
	calls *int
}

func (countingCore) TypeName() string { return "test_counting" }

func (c countingCore) Components(sources []*Field) (int, error) {
	if err := RequireSources(c.TypeName(), sources, 1); err != nil {
		return 0, err
	}
	return sources[0].Components(), nil
}

func (c countingCore) Evaluate(cache *Cache, f *Field, vc valuecache.Cache) error {
	*c.calls++
	values, err := cache.EvaluateReal(f.Source(0))
	if err != nil {
		return err
	}
	copy(vc.(*valuecache.Real).Values, values)
	return nil
}

func (countingCore) Compare(Core) bool { return false }

func (c countingCore) Describe() Description { return Description{Type: c.TypeName()} }

// failCore is never defined.
type failCore struct{ BaseCore }

func (failCore) TypeName() string                                { return "test_fail" }
func (failCore) Components([]*Field) (int, error)                { return 1, nil }
func (failCore) Compare(Core) bool                               { return false }
func (f failCore) Describe() Description                         { return Description{Type: f.TypeName()} }
func (failCore) Evaluate(*Cache, *Field, valuecache.Cache) error { return ErrUndefined }

// polyCore is xi1^2 * xi2 inside 2D elements.
type polyCore struct{ BaseCore }

func (polyCore) TypeName() string                 { return "test_poly" }
func (polyCore) Components([]*Field) (int, error) { return 1, nil }
func (polyCore) Compare(Core) bool                { return false }
func (p polyCore) Describe() Description          { return Description{Type: p.TypeName()} }

func (polyCore) Evaluate(c *Cache, _ *Field, vc valuecache.Cache) error {
	loc := c.Location()
	if loc.Kind() != location.KindElementXi || loc.Dimension() != 2 {
		return ErrUndefined
	}
	xi := loc.Xi()
	vc.(*valuecache.Real).Values[0] = xi[0] * xi[0] * xi[1]
	return nil
}

// stringCore is a settable string.
type stringCore struct {
	BaseCore
	value string
}

func (*stringCore) TypeName() string                 { return "test_string" }
func (*stringCore) ValueType() ValueType             { return ValueTypeString }
func (*stringCore) Components([]*Field) (int, error) { return 1, nil }
func (*stringCore) Compare(Core) bool                { return false }
func (s *stringCore) Describe() Description          { return Description{Type: s.TypeName()} }

func (s *stringCore) Evaluate(_ *Cache, _ *Field, vc valuecache.Cache) error {
	vc.(*valuecache.String).Value = s.value
	return nil
}

func (s *stringCore) Assign(_ *Cache, _ *Field, vc valuecache.Cache) AssignResult {
	s.value = vc.(*valuecache.String).Value
	return AssignAll
}

func newConst(values ...float64) *constCore {
	return &constCore{values: values}
}
