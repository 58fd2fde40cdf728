package location

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// MaxXi is the largest element dimension a location can describe.
const MaxXi = 3

// Kind identifies what a Location points at.
type Kind int

const (
	KindNone Kind = iota
	KindElementXi
	KindNode
	KindCoordinates
)

func (k Kind) String() string {
	switch k {
	case KindElementXi:
		return "element_xi"
	case KindNode:
		return "node"
	case KindCoordinates:
		return "coordinates"
	default:
		return "none"
	}
}

// Element is the mesh element contract needed for evaluation.
type Element interface {
	Identifier() int
	Dimension() int
	// MaxDerivativeOrder reports the highest xi derivative order that is
	// meaningful for the element's shape.
	MaxDerivativeOrder() int
}

// Node is the mesh node contract needed for evaluation.
type Node interface {
	Identifier() int
}

// Location is a value describing an evaluation point and time.
type Location struct {
	kind    Kind
	element Element
	xi      [MaxXi]float64
	xiCount int
	node    Node
	coords  []float64
	time    float64
}

// ElementXi returns a location inside el. Missing xi values are zero and
// extra values beyond the element dimension are ignored.
func ElementXi(el Element, xi ...float64) Location {
	if isNil(el) {
		el = nil
	}
	loc := Location{kind: KindElementXi, element: el}
	if el != nil {
		loc.xiCount = min(el.Dimension(), MaxXi)
	}
	copy(loc.xi[:loc.xiCount], xi)
	return loc
}

// AtNode returns a location at node n.
func AtNode(n Node) Location {
	if isNil(n) {
		n = nil
	}
	return Location{kind: KindNode, node: n}
}

// Coordinates returns a raw coordinate location. The values are copied.
func Coordinates(values ...float64) Location {
	return Location{kind: KindCoordinates, coords: slices.Clone(values)}
}

// WithTime returns a copy of l at time t.
func (l Location) WithTime(t float64) Location {
	l.time = t
	return l
}

// WithXi returns a copy of l with xi component i set to v. It is a no-op for
// non-element locations and out-of-range components.
func (l Location) WithXi(i int, v float64) Location {
	if l.kind == KindElementXi && i >= 0 && i < l.xiCount {
		l.xi[i] = v
	}
	return l
}

func (l Location) Kind() Kind       { return l.kind }
func (l Location) Element() Element { return l.element }
func (l Location) Node() Node       { return l.node }
func (l Location) Time() float64    { return l.time }

// Xi returns the local coordinates of an element location.
func (l Location) Xi() []float64 {
	return l.xi[:l.xiCount]
}

// Dimension is the element dimension for element locations, the coordinate
// count for raw coordinates and zero otherwise.
func (l Location) Dimension() int {
	switch l.kind {
	case KindElementXi:
		return l.xiCount
	case KindCoordinates:
		return len(l.coords)
	default:
		return 0
	}
}

// Values returns the raw coordinates. The slice must not be modified.
func (l Location) Values() []float64 {
	return l.coords
}

// Equal reports whether two locations describe the same point and time.
func (l Location) Equal(o Location) bool {
	if l.kind != o.kind || l.time != o.time {
		return false
	}
	switch l.kind {
	case KindElementXi:
		return sameIdentifier(l.element, o.element) && l.xiCount == o.xiCount && l.xi == o.xi
	case KindNode:
		return sameIdentifier(l.node, o.node)
	case KindCoordinates:
		return slices.Equal(l.coords, o.coords)
	default:
		return true
	}
}

type identified interface{ Identifier() int }

func sameIdentifier[T identified](a, b T) bool {
	an, bn := isNil(a), isNil(b)
	if an || bn {
		return an && bn
	}
	return a.Identifier() == b.Identifier()
}

// isNil also catches nil pointers stored in an interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func (l Location) String() string {
	var b strings.Builder
	switch l.kind {
	case KindElementXi:
		id := -1
		if l.element != nil {
			id = l.element.Identifier()
		}
		fmt.Fprintf(&b, "element %d xi %v", id, l.Xi())
	case KindNode:
		id := -1
		if l.node != nil {
			id = l.node.Identifier()
		}
		fmt.Fprintf(&b, "node %d", id)
	case KindCoordinates:
		fmt.Fprintf(&b, "coordinates %v", l.coords)
	default:
		b.WriteString("none")
	}
	fmt.Fprintf(&b, " time %g", l.time)
	return b.String()
}
