package mesh

import (
	"github.com/specialistvlad/fieldgraph/internal/location"
)

// Element is a mesh element of a fixed dimension.
type Element struct {
	ID  int
	Dim int
	// MaxOrder is the highest xi derivative order supported by the shape.
	// Zero means the default of 3.
	MaxOrder int
}

func (e *Element) Identifier() int { return e.ID }
func (e *Element) Dimension() int  { return e.Dim }

func (e *Element) MaxDerivativeOrder() int {
	if e.MaxOrder <= 0 {
		return 3
	}
	return e.MaxOrder
}

// Node is a mesh node identified by an integer.
type Node int

func (n Node) Identifier() int { return int(n) }

// Nodeset is a named group of nodes in ascending identifier order.
type Nodeset interface {
	Name() string
	Size() int
	// Nodes returns a snapshot of the nodes in the set.
	Nodes() []location.Node
	Contains(id int) bool
}

// ParameterSource stores per-node parameter vectors and answers the
// definedness query for them.
type ParameterSource interface {
	// HasValues reports whether parameter has a value at node without
	// reading it.
	HasValues(parameter string, node int) bool

	// LoadValues copies the parameter values at node into dst. It returns
	// false if the parameter is undefined there or has a different length.
	LoadValues(parameter string, node int, dst []float64) bool

	// SetValues stores a copy of values for parameter at node.
	SetValues(parameter string, node int, values []float64) error
}

// Store is the mesh layer consumed by a region.
//
// Implementations MUST be safe for concurrent readers, because independent
// field caches may evaluate the same region from different goroutines.
type Store interface {
	ParameterSource

	AddElement(id, dimension int) (*Element, error)
	Element(id int) (*Element, bool)
	Elements() []*Element

	AddNode(id int) Node
	Node(id int) (Node, bool)
	// Nodes returns every node identifier, ascending.
	Nodes() []int

	// Nodeset returns the named nodeset, creating it when create is set.
	Nodeset(name string, create bool) (Nodeset, bool)
	AddToNodeset(name string, ids ...int) error
	Nodesets() []Nodeset

	// Parameters lists the parameter names stored at node, sorted.
	Parameters(node int) []string
	// Values returns a copy of the stored parameter values.
	Values(parameter string, node int) ([]float64, bool)
}
