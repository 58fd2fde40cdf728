// Package valuecache holds the typed storage for one field's most recent
// result inside a field cache.
//
// A value cache is valid when its evaluation counter equals the location
// counter of the cache that owns it. Nothing is cleared eagerly: moving to a
// new location just makes every counter stale.
package valuecache

// Kind tags the representation a value cache holds.
type Kind int

const (
	KindReal Kind = iota
	KindString
)

// Cache is the common surface of every value cache variant.
type Cache interface {
	Kind() Kind
	// Counter is the location counter the cache was last stamped with.
	Counter() uint64
	Stamp(counter uint64)
	// Reset forgets the stamp so the next query re-evaluates.
	Reset()
}

type stamp struct {
	counter uint64
}

func (s *stamp) Counter() uint64 { return s.counter }

func (s *stamp) Stamp(counter uint64) { s.counter = counter }

// Real stores a numeric array plus derivative tensors computed at the same
// location.
type Real struct {
	stamp
	Values []float64

	derivatives map[int]*Derivative // Key: derivative ID
}

// NewReal allocates a real cache with the given component count.
func NewReal(components int) *Real {
	return &Real{Values: make([]float64, components)}
}

func (r *Real) Kind() Kind { return KindReal }

func (r *Real) Reset() {
	r.counter = 0
	r.ClearDerivatives()
}

// Resize reallocates Values only when the component count changes.
func (r *Real) Resize(components int) {
	if len(r.Values) != components {
		r.Values = make([]float64, components)
		r.ClearDerivatives()
	}
}

// Derivative returns the tensor cache for the derivative id, creating
// or reshaping it as needed.
func (r *Real) Derivative(id, components, terms int) *Derivative {
	if r.derivatives == nil {
		r.derivatives = make(map[int]*Derivative)
	}
	d, ok := r.derivatives[id]
	if !ok {
		d = &Derivative{}
		r.derivatives[id] = d
	}
	d.reshape(components, terms)
	return d
}

// DerivativesValid reports whether any derivative tensor was stamped with
// counter, i.e. is valid at the current location.
func (r *Real) DerivativesValid(counter uint64) bool {
	for _, d := range r.derivatives {
		if d.counter == counter && counter != 0 {
			return true
		}
	}
	return false
}

// ClearDerivatives drops every derivative tensor.
func (r *Real) ClearDerivatives() {
	clear(r.derivatives)
}

// String stores a single string value.
type String struct {
	stamp
	Value string
}

func (s *String) Kind() Kind { return KindString }

func (s *String) Reset() { s.counter = 0 }

// Derivative is a derivative tensor stored component-major: the Terms
// derivative terms of component 0 come first, then component 1 and so on.
type Derivative struct {
	stamp
	Components int
	Terms      int
	Values     []float64
}

func (d *Derivative) Reset() { d.counter = 0 }

func (d *Derivative) reshape(components, terms int) {
	if d.Components == components && d.Terms == terms {
		return
	}
	d.Components = components
	d.Terms = terms
	d.Values = make([]float64, components*terms)
	d.counter = 0
}

// At returns the derivative term of a component.
func (d *Derivative) At(component, term int) float64 {
	return d.Values[component*d.Terms+term]
}

func (d *Derivative) Set(component, term int, v float64) {
	d.Values[component*d.Terms+term] = v
}

// Component returns the terms of one component. The slice aliases Values.
func (d *Derivative) Component(component int) []float64 {
	return d.Values[component*d.Terms : (component+1)*d.Terms]
}

// Zero clears every term.
func (d *Derivative) Zero() {
	clear(d.Values)
}
