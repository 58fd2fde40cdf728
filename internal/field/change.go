package field

import (
	"fmt"
	"slices"
	"sort"

	"github.com/specialistvlad/fieldgraph/internal/changelog"
)

// ChangeEvent is one flushed batch of coalesced changes.
type ChangeEvent struct {
	Module  *Module
	Changes []changelog.Change
}

// FlagsFor returns the change flags recorded for f in this batch.
func (e *ChangeEvent) FlagsFor(f *Field) changelog.Flags {
	for _, c := range e.Changes {
		if c.ID == f.index {
			return c.Flags
		}
	}
	return 0
}

// Observer receives flushed change batches.
type Observer interface {
	FieldsChanged(ev *ChangeEvent)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ev *ChangeEvent)

func (fn ObserverFunc) FieldsChanged(ev *ChangeEvent) { fn(ev) }

// Subscription is an observer registration.
type Subscription struct {
	module   *Module
	observer Observer
}

// Subscribe registers o for every future flush.
func (m *Module) Subscribe(o Observer) *Subscription {
	s := &Subscription{module: m, observer: o}
	m.observers = append(m.observers, s)
	return s
}

// Unsubscribe is idempotent.
func (s *Subscription) Unsubscribe() {
	s.module.observers = slices.DeleteFunc(s.module.observers, func(x *Subscription) bool { return x == s })
}

// ChangeGuard closes a change batch opened by BeginChange or
// BeginHierarchicalChange. End may be called any number of times; only the
// first call has an effect.
type ChangeGuard struct {
	module       *Module
	hierarchical bool
	ended        bool
}

func (g *ChangeGuard) End() error {
	if g.ended {
		return nil
	}
	g.ended = true
	if g.hierarchical {
		return g.module.EndHierarchicalChange()
	}
	return g.module.EndChange()
}

// ChangeLevel is the current batching depth; zero means unbatched.
func (m *Module) ChangeLevel() int { return m.changeLevel }

// BeginChange opens a change batch. Notifications are held until the
// outermost batch ends.
func (m *Module) BeginChange() *ChangeGuard {
	m.changeLevel++
	return &ChangeGuard{module: m}
}

// EndChange closes a change batch and flushes when it was the outermost.
func (m *Module) EndChange() error {
	if m.changeLevel == 0 {
		m.logger.Debug("Unbalanced end change.")
		return fmt.Errorf("%w: module %q", ErrUnbalancedChange, m.name)
	}
	m.changeLevel--
	if m.changeLevel == 0 {
		m.flush()
	}
	return nil
}

// BeginHierarchicalChange batches this module and every descendant.
func (m *Module) BeginHierarchicalChange() *ChangeGuard {
	m.walk(func(x *Module) {
		x.changeLevel++
		x.hierarchy++
	})
	return &ChangeGuard{module: m, hierarchical: true}
}

// EndHierarchicalChange ends the batch on descendants first, then on m.
func (m *Module) EndHierarchicalChange() error {
	balanced := true
	m.walk(func(x *Module) {
		if x.hierarchy == 0 || x.changeLevel == 0 {
			balanced = false
		}
	})
	if !balanced {
		return fmt.Errorf("%w: hierarchical change on module %q", ErrUnbalancedChange, m.name)
	}
	m.walkPost(func(x *Module) {
		x.hierarchy--
		_ = x.EndChange()
	})
	return nil
}

// AddChild links child below m for hierarchical change. A child joining
// while hierarchical changes are open is batched the same number of times.
func (m *Module) AddChild(child *Module) error {
	if child == nil || child == m || child.parent != nil {
		return fmt.Errorf("%w: module cannot be attached", ErrManagerInvariant)
	}
	for p := m; p != nil; p = p.parent {
		if p == child {
			return fmt.Errorf("%w: module %q is an ancestor of %q", ErrManagerInvariant, child.name, m.name)
		}
	}
	child.parent = m
	m.children = append(m.children, child)
	for range m.hierarchy {
		child.walk(func(x *Module) {
			x.changeLevel++
			x.hierarchy++
		})
	}
	return nil
}

// RemoveChild unlinks child, ending any hierarchical batches it inherited.
func (m *Module) RemoveChild(child *Module) error {
	i := slices.Index(m.children, child)
	if i < 0 {
		return fmt.Errorf("%w: module is not a child of %q", ErrManagerInvariant, m.name)
	}
	for range m.hierarchy {
		child.walkPost(func(x *Module) {
			x.hierarchy--
			_ = x.EndChange()
		})
	}
	m.children = slices.Delete(m.children, i, i+1)
	child.parent = nil
	return nil
}

func (m *Module) Parent() *Module { return m.parent }

func (m *Module) Children() []*Module { return slices.Clone(m.children) }

func (m *Module) walk(fn func(*Module)) {
	fn(m)
	for _, c := range m.children {
		c.walk(fn)
	}
}

func (m *Module) walkPost(fn func(*Module)) {
	for _, c := range m.children {
		c.walkPost(fn)
	}
	fn(m)
}

// recordChange logs a mutation, invalidates every cache and notifies
// observers when unbatched.
func (m *Module) recordChange(f *Field, flags changelog.Flags) {
	if flags.Any(changelog.Definition|changelog.Result) && !f.removed {
		m.unindexDefinition(f)
		m.indexDefinition(f)
	}
	m.log.Record(f.index, f.name, flags)
	m.modified.Add(1)
	if m.changeLevel == 0 {
		m.flush()
	}
}

func (m *Module) flush() {
	if m.flushing {
		return
	}
	m.flushing = true
	defer func() { m.flushing = false }()

	// Observers may mutate the module; keep going until nothing is pending.
	for m.log.Len() > 0 {
		m.propagateDependencies()
		ev := &ChangeEvent{Module: m, Changes: m.log.Drain()}
		m.logger.Debug("Field changes flushed.", "count", len(ev.Changes))
		for _, s := range slices.Clone(m.observers) {
			s.observer.FieldsChanged(ev)
		}
	}
}

// propagateDependencies flags every live field that depends on a field
// whose value or definition changed.
func (m *Module) propagateDependencies() {
	const valueChange = changelog.Definition | changelog.Result | changelog.DependencyResult
	pending := false
	for _, c := range m.log.Changes() {
		if c.Flags.Any(valueChange) {
			pending = true
			break
		}
	}
	if !pending {
		return
	}

	memo := make(map[*Field]bool)
	var affected func(f *Field) bool
	affected = func(f *Field) bool {
		if v, ok := memo[f]; ok {
			return v
		}
		memo[f] = false
		for _, src := range f.sources {
			if m.log.Flags(src.index).Any(valueChange) || affected(src) {
				memo[f] = true
				break
			}
		}
		return memo[f]
	}

	indices := make([]int, 0, len(m.byIndex))
	for i := range m.byIndex {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	for _, i := range indices {
		f := m.byIndex[i]
		if affected(f) {
			m.log.Record(f.index, f.name, changelog.DependencyResult)
		}
	}
}
