package field

import (
	"fmt"

	"github.com/specialistvlad/fieldgraph/internal/location"
	"github.com/specialistvlad/fieldgraph/internal/valuecache"
)

// finiteDifferenceDelta is the xi perturbation used by FiniteDifference.
const finiteDifferenceDelta = 1.0e-5

// Derivative describes a derivative with respect to the local (xi)
// coordinates of elements of one dimension. Term t of order k derivatives
// is the lower order term t/dim differentiated by xi t%dim.
type Derivative struct {
	id            int
	meshDimension int
	order         int
	terms         int
	lower         *Derivative
}

func (d *Derivative) MeshDimension() int { return d.meshDimension }
func (d *Derivative) Order() int         { return d.order }

// Terms is meshDimension^order.
func (d *Derivative) Terms() int { return d.terms }

// Lower is the derivative one order down, nil for first derivatives.
func (d *Derivative) Lower() *Derivative { return d.lower }

// ValidAt reports whether d can be evaluated at loc.
func (d *Derivative) ValidAt(loc location.Location) bool {
	if loc.Kind() != location.KindElementXi {
		return false
	}
	el := loc.Element()
	return el != nil && el.Dimension() == d.meshDimension && d.order <= el.MaxDerivativeOrder()
}

func (d *Derivative) String() string {
	return fmt.Sprintf("d%d/dxi%d", d.order, d.meshDimension)
}

type derivativeKey struct {
	dimension, order int
}

// MeshDerivative returns the shared derivative descriptor for elements of the
// given dimension, creating the chain of lower orders on first use. It is
// safe to call from concurrent evaluations.
func (m *Module) MeshDerivative(dimension, order int) (*Derivative, error) {
	m.derivativesMu.Lock()
	defer m.derivativesMu.Unlock()
	return m.meshDerivative(dimension, order)
}

func (m *Module) meshDerivative(dimension, order int) (*Derivative, error) {
	if dimension < 1 || dimension > location.MaxXi {
		return nil, fmt.Errorf("mesh derivative: dimension %d out of range 1..%d", dimension, location.MaxXi)
	}
	if order < 1 {
		return nil, fmt.Errorf("mesh derivative: order %d must be at least 1", order)
	}
	key := derivativeKey{dimension, order}
	if d, ok := m.derivatives[key]; ok {
		return d, nil
	}
	var lower *Derivative
	if order > 1 {
		var err error
		if lower, err = m.meshDerivative(dimension, order-1); err != nil {
			return nil, err
		}
	}
	terms := dimension
	if lower != nil {
		terms *= lower.terms
	}
	m.nextDerivativeID++
	d := &Derivative{
		id:            m.nextDerivativeID,
		meshDimension: dimension,
		order:         order,
		terms:         terms,
		lower:         lower,
	}
	m.derivatives[key] = d
	return d, nil
}

// FiniteDifference approximates a derivative with central differences in
// the cache's working cache. Higher orders difference the next lower
// derivative, so analytic lower derivatives are used where cores have them.
func FiniteDifference(c *Cache, f *Field, d *Derivative, out *valuecache.Derivative) error {
	loc := c.Location()
	if !d.ValidAt(loc) {
		return ErrUndefined
	}
	components := f.components
	lowerTerms := 1
	if d.lower != nil {
		lowerTerms = d.lower.terms
	}
	dim := d.meshDimension
	plus := make([]float64, components*lowerTerms)
	extra := c.Extra()
	xi := loc.Xi()
	weight := 0.5 / finiteDifferenceDelta

	for i := range dim {
		extra.SetLocation(loc.WithXi(i, xi[i]+finiteDifferenceDelta))
		values, err := evaluateOrder(extra, f, d.lower)
		if err != nil {
			return err
		}
		copy(plus, values)

		extra.SetLocation(loc.WithXi(i, xi[i]-finiteDifferenceDelta))
		minus, err := evaluateOrder(extra, f, d.lower)
		if err != nil {
			return err
		}
		for comp := range components {
			for t := range lowerTerms {
				k := comp*lowerTerms + t
				out.Set(comp, t*dim+i, (plus[k]-minus[k])*weight)
			}
		}
	}
	return nil
}

// evaluateOrder returns the values of f, or its lower derivative tensor in
// component-major order.
func evaluateOrder(c *Cache, f *Field, d *Derivative) ([]float64, error) {
	if d == nil {
		return c.EvaluateReal(f)
	}
	dv, err := c.EvaluateDerivative(f, d)
	if err != nil {
		return nil, err
	}
	return dv.Values, nil
}

// ZeroDerivative is the derivative of anything constant.
func ZeroDerivative(c *Cache, d *Derivative, out *valuecache.Derivative) error {
	if !d.ValidAt(c.Location()) {
		return ErrUndefined
	}
	out.Zero()
	return nil
}

// LinearDerivative evaluates the same-order derivative of each source, for
// cores whose output is a linear function of their inputs.
func LinearDerivative(c *Cache, f *Field, d *Derivative) ([]*valuecache.Derivative, error) {
	out := make([]*valuecache.Derivative, len(f.sources))
	for i, src := range f.sources {
		dv, err := c.EvaluateDerivative(src, d)
		if err != nil {
			return nil, err
		}
		out[i] = dv
	}
	return out, nil
}
