// Package changelog records field mutations until a module flushes them to
// its observers.
//
// Entries are keyed by the field's stable index and coalesce: flags are
// OR-ed together, the latest name wins, and a field that was added and then
// removed inside the same batch disappears from the log entirely.
package changelog

import "strings"

// Flags is a bitmask of change kinds.
type Flags uint16

const (
	// Added marks a newly created field.
	Added Flags = 1 << iota
	// Removed marks a field that was physically removed from its module.
	Removed
	// Identifier marks a rename.
	Identifier
	// Definition marks a new core or source list.
	Definition
	// Result marks a value change through assignment.
	Result
	// DependencyResult marks a field whose value may have changed because
	// something it depends on changed.
	DependencyResult
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{Added, "added"},
	{Removed, "removed"},
	{Identifier, "identifier"},
	{Definition, "definition"},
	{Result, "result"},
	{DependencyResult, "dependency_result"},
}

// Has reports whether all bits of o are set.
func (f Flags) Has(o Flags) bool { return f&o == o && o != 0 }

// Any reports whether any bit of o is set.
func (f Flags) Any(o Flags) bool { return f&o != 0 }

// Names returns the set flag names in bit order.
func (f Flags) Names() []string {
	var names []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			names = append(names, fn.name)
		}
	}
	return names
}

func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	return strings.Join(f.Names(), "|")
}

// Change is one coalesced log entry.
type Change struct {
	ID    int
	Name  string
	Flags Flags
}

// Log is a coalescing change log. The zero value is ready to use.
// It is not safe for concurrent use.
type Log struct {
	index   map[int]int // Key: field ID, Value: position in changes
	changes []Change
	dropped int
}

// Record merges a change for field id into the log.
func (l *Log) Record(id int, name string, flags Flags) {
	if flags == 0 {
		return
	}
	if l.index == nil {
		l.index = make(map[int]int)
	}
	pos, ok := l.index[id]
	if !ok {
		l.index[id] = len(l.changes)
		l.changes = append(l.changes, Change{ID: id, Name: name, Flags: flags})
		return
	}

	entry := &l.changes[pos]
	switch {
	case flags&Removed != 0 && entry.Flags&Added != 0:
		// Created and destroyed within one batch: nobody needs to hear about it.
		delete(l.index, id)
		entry.Flags = 0
		l.dropped++
	case flags&Removed != 0:
		entry.Flags = Removed
		entry.Name = name
	default:
		entry.Flags |= flags
		entry.Name = name
	}
}

// Flags returns the accumulated flags for field id.
func (l *Log) Flags(id int) Flags {
	pos, ok := l.index[id]
	if !ok {
		return 0
	}
	return l.changes[pos].Flags
}

// Len is the number of live entries.
func (l *Log) Len() int {
	return len(l.changes) - l.dropped
}

// Changes returns a copy of the live entries in first-recorded order.
func (l *Log) Changes() []Change {
	out := make([]Change, 0, l.Len())
	for _, c := range l.changes {
		if c.Flags != 0 {
			out = append(out, c)
		}
	}
	return out
}

// Drain returns the live entries and empties the log.
func (l *Log) Drain() []Change {
	out := l.Changes()
	l.Reset()
	return out
}

func (l *Log) Reset() {
	clear(l.index)
	l.changes = l.changes[:0]
	l.dropped = 0
}
