package field

import (
	"strconv"
	"strings"

	"github.com/specialistvlad/fieldgraph/internal/changelog"
	"github.com/specialistvlad/fieldgraph/internal/location"
	"github.com/specialistvlad/fieldgraph/internal/valuecache"
)

// Cache memoizes field values at one location at a time. A cache is not
// safe for concurrent use; create one per goroutine.
type Cache struct {
	module   *Module
	loc      location.Location
	counter  uint64
	modified uint64
	values   []valuecache.Cache // Index: field index
	extra    *Cache
}

// NewCache creates an evaluation cache over the module's fields.
func (m *Module) NewCache() *Cache {
	return &Cache{module: m, counter: 1, modified: m.modified.Load()}
}

func (c *Cache) Module() *Module { return c.module }

func (c *Cache) Location() location.Location { return c.loc }

func (c *Cache) Time() float64 { return c.loc.Time() }

// SetLocation moves the cache to loc. Stored values are not touched; they
// simply stop matching the location counter. Moving to a different kind of
// location also drops derivative tensors, which only exist for elements.
func (c *Cache) SetLocation(loc location.Location) {
	if c.loc.Equal(loc) {
		return
	}
	if c.loc.Kind() != loc.Kind() {
		for _, vc := range c.values {
			if r, ok := vc.(*valuecache.Real); ok {
				r.ClearDerivatives()
			}
		}
	}
	c.loc = loc
	c.counter++
}

// SetElementXi keeps the current time.
func (c *Cache) SetElementXi(el location.Element, xi ...float64) {
	c.SetLocation(location.ElementXi(el, xi...).WithTime(c.loc.Time()))
}

// SetNode keeps the current time.
func (c *Cache) SetNode(n location.Node) {
	c.SetLocation(location.AtNode(n).WithTime(c.loc.Time()))
}

// SetCoordinates keeps the current time.
func (c *Cache) SetCoordinates(values ...float64) {
	c.SetLocation(location.Coordinates(values...).WithTime(c.loc.Time()))
}

func (c *Cache) SetTime(t float64) {
	c.SetLocation(c.loc.WithTime(t))
}

// Invalidate forces every field to be re-evaluated on its next query.
func (c *Cache) Invalidate() {
	c.counter++
}

// Extra returns the working cache used by cores that need to evaluate at
// other locations without disturbing this one.
func (c *Cache) Extra() *Cache {
	if c.extra == nil {
		c.extra = c.module.NewCache()
	}
	return c.extra
}

// sync invalidates everything if the module changed since the last query.
func (c *Cache) sync() {
	if mod := c.module.modified.Load(); mod != c.modified {
		c.modified = mod
		c.counter++
	}
}

func (c *Cache) check(f *Field) error {
	if f == nil || f.module != c.module {
		return ErrForeignField
	}
	if f.removed {
		return ErrFieldRemoved
	}
	return nil
}

func (c *Cache) valueCache(f *Field) valuecache.Cache {
	if f.index >= len(c.values) {
		grown := make([]valuecache.Cache, f.index+1)
		copy(grown, c.values)
		c.values = grown
	}
	vc := c.values[f.index]
	switch f.ValueType() {
	case ValueTypeString:
		if _, ok := vc.(*valuecache.String); !ok {
			vc = &valuecache.String{}
			c.values[f.index] = vc
		}
	default:
		r, ok := vc.(*valuecache.Real)
		if !ok {
			r = valuecache.NewReal(f.components)
			c.values[f.index] = r
		}
		r.Resize(f.components)
		vc = r
	}
	return vc
}

// Evaluate returns the value cache of f at the current location,
// evaluating it only if it is stale.
func (c *Cache) Evaluate(f *Field) (valuecache.Cache, error) {
	if err := c.check(f); err != nil {
		return nil, err
	}
	c.sync()
	vc := c.valueCache(f)
	if vc.Counter() == c.counter {
		return vc, nil
	}
	if err := f.core.Evaluate(c, f, vc); err != nil {
		vc.Reset()
		return nil, err
	}
	vc.Stamp(c.counter)
	return vc, nil
}

// EvaluateReal returns the values of a numeric field. The slice is owned by
// the cache and valid until the location changes.
func (c *Cache) EvaluateReal(f *Field) ([]float64, error) {
	vc, err := c.Evaluate(f)
	if err != nil {
		return nil, err
	}
	r, ok := vc.(*valuecache.Real)
	if !ok {
		return nil, ShapeMismatchf("field %q is not numeric", f.name)
	}
	return r.Values, nil
}

// EvaluateString returns string fields as is and numeric fields formatted
// as space separated numbers.
func (c *Cache) EvaluateString(f *Field) (string, error) {
	vc, err := c.Evaluate(f)
	if err != nil {
		return "", err
	}
	switch v := vc.(type) {
	case *valuecache.String:
		return v.Value, nil
	case *valuecache.Real:
		parts := make([]string, len(v.Values))
		for i, x := range v.Values {
			parts[i] = strconv.FormatFloat(x, 'g', -1, 64)
		}
		return strings.Join(parts, " "), nil
	}
	return "", ErrUndefined
}

// EvaluateDerivative returns the derivative tensor of f described by d.
func (c *Cache) EvaluateDerivative(f *Field, d *Derivative) (*valuecache.Derivative, error) {
	if err := c.check(f); err != nil {
		return nil, err
	}
	if f.ValueType() != ValueTypeReal {
		return nil, ShapeMismatchf("field %q is not numeric", f.name)
	}
	c.sync()
	r := c.valueCache(f).(*valuecache.Real)
	dv := r.Derivative(d.id, f.components, d.terms)
	if dv.Counter() == c.counter {
		return dv, nil
	}
	if err := f.core.EvaluateDerivative(c, f, d, dv); err != nil {
		dv.Reset()
		return nil, err
	}
	dv.Stamp(c.counter)
	return dv, nil
}

// DerivativesValid reports whether any derivative of f is memoized for the
// current location.
func (c *Cache) DerivativesValid(f *Field) bool {
	if f.index >= len(c.values) {
		return false
	}
	r, ok := c.values[f.index].(*valuecache.Real)
	return ok && r.DerivativesValid(c.counter)
}

// IsDefined reports whether f has a value at the current location.
func (c *Cache) IsDefined(f *Field) bool {
	if c.check(f) != nil {
		return false
	}
	c.sync()
	if f.index < len(c.values) && c.values[f.index] != nil && c.values[f.index].Counter() == c.counter {
		return true
	}
	return f.core.IsDefinedAt(c, f)
}

// EvaluateSumSquareTerms returns the individual terms of a sum-of-squares
// field.
func (c *Cache) EvaluateSumSquareTerms(f *Field) ([]float64, error) {
	if err := c.check(f); err != nil {
		return nil, err
	}
	ssc, ok := f.core.(SumSquaresCore)
	if !ok {
		return nil, ShapeMismatchf("field %q (%s) has no sum of squares terms", f.name, f.core.TypeName())
	}
	c.sync()
	return ssc.SumSquareTerms(c, f)
}

// AssignReal pushes values into f at the current location.
func (c *Cache) AssignReal(f *Field, values []float64) (AssignResult, error) {
	if err := c.check(f); err != nil {
		return AssignFail, err
	}
	if f.ValueType() != ValueTypeReal {
		return AssignFail, ShapeMismatchf("field %q is not numeric", f.name)
	}
	if len(values) != f.components {
		return AssignFail, ShapeMismatchf("field %q has %d components, got %d values", f.name, f.components, len(values))
	}
	c.sync()
	r := c.valueCache(f).(*valuecache.Real)
	copy(r.Values, values)
	return c.assign(f, r), nil
}

// AssignString pushes a string into f at the current location.
func (c *Cache) AssignString(f *Field, value string) (AssignResult, error) {
	if err := c.check(f); err != nil {
		return AssignFail, err
	}
	if f.ValueType() != ValueTypeString {
		return AssignFail, ShapeMismatchf("field %q is not a string field", f.name)
	}
	c.sync()
	s := c.valueCache(f).(*valuecache.String)
	s.Value = value
	return c.assign(f, s), nil
}

func (c *Cache) assign(f *Field, vc valuecache.Cache) AssignResult {
	guard := c.module.BeginChange()
	defer guard.End()

	result := f.core.Assign(c, f, vc)
	// The staged value must not be mistaken for an evaluated one.
	vc.Reset()
	if result != AssignFail {
		c.module.recordChange(f, changelog.Result)
	}
	return result
}
