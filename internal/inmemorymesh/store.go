// Package inmemorymesh provides a simple, thread-safe, in-memory
// implementation of the mesh.Store interface.
package inmemorymesh

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/specialistvlad/fieldgraph/internal/location"
	"github.com/specialistvlad/fieldgraph/internal/mesh"
)

// Store implements mesh.Store using maps guarded by a single RWMutex.
// Evaluation only reads, so concurrent field caches rarely contend.
type Store struct {
	mu       sync.RWMutex
	elements map[int]*mesh.Element
	nodes    map[int]struct{}
	nodesets map[string]*nodeset
	params   map[int]map[string][]float64 // Key: node ID, Value: parameter name to values
}

// New creates a new, empty in-memory mesh store.
func New() *Store {
	return &Store{
		elements: make(map[int]*mesh.Element),
		nodes:    make(map[int]struct{}),
		nodesets: make(map[string]*nodeset),
		params:   make(map[int]map[string][]float64),
	}
}

var _ mesh.Store = (*Store)(nil)

// AddElement registers an element. Adding an identical element twice is
// idempotent; changing the dimension of an existing one is an error.
func (s *Store) AddElement(id, dimension int) (*mesh.Element, error) {
	if dimension < 1 || dimension > location.MaxXi {
		return nil, fmt.Errorf("element %d: dimension %d out of range 1..%d", id, dimension, location.MaxXi)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, exists := s.elements[id]; exists {
		if el.Dim != dimension {
			return nil, fmt.Errorf("element %d already exists with dimension %d", id, el.Dim)
		}
		return el, nil
	}
	el := &mesh.Element{ID: id, Dim: dimension}
	s.elements[id] = el
	return el, nil
}

func (s *Store) Element(id int) (*mesh.Element, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	el, ok := s.elements[id]
	return el, ok
}

// Elements returns all elements in ascending identifier order.
func (s *Store) Elements() []*mesh.Element {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*mesh.Element, 0, len(s.elements))
	for _, el := range s.elements {
		out = append(out, el)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) AddNode(id int) mesh.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[id] = struct{}{}
	return mesh.Node(id)
}

func (s *Store) Nodes() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (s *Store) Node(id int) (mesh.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.nodes[id]
	return mesh.Node(id), ok
}

func (s *Store) Nodeset(name string, create bool) (mesh.Nodeset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.nodesets[name]
	if !ok {
		if !create {
			return nil, false
		}
		ns = &nodeset{name: name, store: s}
		s.nodesets[name] = ns
	}
	return ns, true
}

// AddToNodeset adds existing nodes to the named nodeset, creating the set
// if needed.
func (s *Store) AddToNodeset(name string, ids ...int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if _, ok := s.nodes[id]; !ok {
			return fmt.Errorf("nodeset %q: node %d not found", name, id)
		}
	}
	ns, ok := s.nodesets[name]
	if !ok {
		ns = &nodeset{name: name, store: s}
		s.nodesets[name] = ns
	}
	for _, id := range ids {
		i, found := slices.BinarySearch(ns.ids, id)
		if !found {
			ns.ids = slices.Insert(ns.ids, i, id)
		}
	}
	return nil
}

// Nodesets returns all nodesets sorted by name.
func (s *Store) Nodesets() []mesh.Nodeset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.nodesets))
	for name := range s.nodesets {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]mesh.Nodeset, 0, len(names))
	for _, name := range names {
		out = append(out, s.nodesets[name])
	}
	return out
}

func (s *Store) HasValues(parameter string, node int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.params[node][parameter]
	return ok
}

func (s *Store) LoadValues(parameter string, node int, dst []float64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	values, ok := s.params[node][parameter]
	if !ok || len(values) != len(dst) {
		return false
	}
	copy(dst, values)
	return true
}

// SetValues stores values for parameter at node. The node is created if it
// does not exist yet.
func (s *Store) SetValues(parameter string, node int, values []float64) error {
	if parameter == "" {
		return fmt.Errorf("node %d: empty parameter name", node)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[node] = struct{}{}
	if s.params[node] == nil {
		s.params[node] = make(map[string][]float64)
	}
	s.params[node][parameter] = slices.Clone(values)
	return nil
}

func (s *Store) Parameters(node int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.params[node]))
	for name := range s.params[node] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Store) Values(parameter string, node int) ([]float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	values, ok := s.params[node][parameter]
	if !ok {
		return nil, false
	}
	return slices.Clone(values), true
}

// nodeset is a live view into the store; membership is read under the
// store's lock.
type nodeset struct {
	name  string
	store *Store
	ids   []int // sorted
}

func (n *nodeset) Name() string { return n.name }

func (n *nodeset) Size() int {
	n.store.mu.RLock()
	defer n.store.mu.RUnlock()
	return len(n.ids)
}

func (n *nodeset) Nodes() []location.Node {
	n.store.mu.RLock()
	defer n.store.mu.RUnlock()
	out := make([]location.Node, len(n.ids))
	for i, id := range n.ids {
		out[i] = mesh.Node(id)
	}
	return out
}

func (n *nodeset) Contains(id int) bool {
	n.store.mu.RLock()
	defer n.store.mu.RUnlock()
	_, found := slices.BinarySearch(n.ids, id)
	return found
}
