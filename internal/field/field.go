package field

import (
	"fmt"
	"slices"
	"strconv"
	"sync/atomic"
)

// Field is one node of the expression graph. Fields are created through a
// Module and are only valid while the module holds them.
type Field struct {
	module *Module
	index  int
	name   string

	core           Core
	sources        []*Field
	components     int
	componentNames []string
	defKey         string

	refs       atomic.Int32
	dependents int
	managed    bool
	removed    bool
}

// Name is unique within the owning module.
func (f *Field) Name() string { return f.name }

// Index is stable for the lifetime of the field and never reused by its
// module.
func (f *Field) Index() int { return f.index }

func (f *Field) Module() *Module { return f.module }

func (f *Field) Core() Core { return f.core }

func (f *Field) TypeName() string { return f.core.TypeName() }

func (f *Field) ValueType() ValueType { return f.core.ValueType() }

// Components is the number of values the field produces.
func (f *Field) Components() int { return f.components }

func (f *Field) NumSources() int { return len(f.sources) }

// Source returns source i without taking a reference.
func (f *Field) Source(i int) *Field { return f.sources[i] }

// Sources returns a copy of the source list.
func (f *Field) Sources() []*Field { return slices.Clone(f.sources) }

// ComponentName defaults to the 1-based component number.
func (f *Field) ComponentName(i int) string {
	if i < len(f.componentNames) && f.componentNames[i] != "" {
		return f.componentNames[i]
	}
	return strconv.Itoa(i + 1)
}

func (f *Field) SetComponentName(i int, name string) error {
	if i < 0 || i >= f.components {
		return fmt.Errorf("field %q: component %d out of range", f.name, i+1)
	}
	if f.componentNames == nil {
		f.componentNames = make([]string, f.components)
	}
	f.componentNames[i] = name
	return nil
}

// Access takes a reference and returns f for chaining.
func (f *Field) Access() *Field {
	f.refs.Add(1)
	return f
}

// Release drops a reference. The last release of an unmanaged field without
// dependents removes it from its module.
func (f *Field) Release() {
	n := f.refs.Add(-1)
	if n < 0 {
		f.refs.Store(0)
		f.module.logger.Warn("Field released more often than accessed.", "field", f.name)
		return
	}
	if n == 0 {
		f.module.tryRemove(f)
	}
}

// RefCount is the number of external references.
func (f *Field) RefCount() int { return int(f.refs.Load()) }

// Dependents is the number of live fields listing f as a source.
func (f *Field) Dependents() int { return f.dependents }

// IsInUse reports whether other fields still depend on f.
func (f *Field) IsInUse() bool { return f.dependents > 0 }

func (f *Field) IsManaged() bool { return f.managed }

// SetManaged keeps the field alive without external references. Clearing
// it may remove the field immediately.
func (f *Field) SetManaged(managed bool) {
	if f.managed == managed || f.removed {
		return
	}
	f.managed = managed
	if !managed {
		f.module.tryRemove(f)
	}
}

// IsRemoved reports whether the module has dropped the field.
func (f *Field) IsRemoved() bool { return f.removed }

// SetName renames the field.
func (f *Field) SetName(name string) error {
	return f.module.rename(f, name)
}

// DependsOn reports whether other is reachable through f's sources.
// Each field is visited once, so shared sources keep the walk linear.
func (f *Field) DependsOn(other *Field) bool {
	seen := make(map[*Field]struct{})
	stack := slices.Clone(f.sources)
	for len(stack) > 0 {
		src := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if src == other {
			return true
		}
		if _, ok := seen[src]; ok {
			continue
		}
		seen[src] = struct{}{}
		stack = append(stack, src.sources...)
	}
	return false
}

// CommandString is the canonical description of the field's definition.
func (f *Field) CommandString() string {
	return commandString(f.core.Describe(), f.sources)
}

func (f *Field) String() string {
	return fmt.Sprintf("%s (%s, %d components)", f.name, f.core.TypeName(), f.components)
}
