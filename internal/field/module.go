package field

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/fieldgraph/internal/changelog"
)

// Module owns the fields of one region.
//
// Module operations are not synchronized. Evaluation through separate
// caches may run concurrently, mutations must not.
type Module struct {
	name   string
	logger *slog.Logger

	fields      map[string]*Field
	byIndex     map[int]*Field
	definitions map[string][]*Field // Key: definition key
	nextIndex   int
	nextTemp    int

	changeLevel int
	hierarchy   int // open hierarchical changes covering this module
	log         changelog.Log
	flushing    bool
	observers   []*Subscription

	parent   *Module
	children []*Module

	modified atomic.Uint64

	derivativesMu    sync.Mutex
	derivatives      map[derivativeKey]*Derivative
	nextDerivativeID int
}

// Option configures a Module.
type Option func(*Module)

// WithLogger sets the module's diagnostic logger. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Module) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithName names the module in logs and change events.
func WithName(name string) Option {
	return func(m *Module) { m.name = name }
}

// NewModule creates an empty field module.
func NewModule(opts ...Option) *Module {
	m := &Module{
		logger:      slog.New(slog.DiscardHandler),
		fields:      make(map[string]*Field),
		byIndex:     make(map[int]*Field),
		definitions: make(map[string][]*Field),
		derivatives: make(map[derivativeKey]*Derivative),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.name != "" {
		m.logger = m.logger.With("module", m.name)
	}
	return m
}

func (m *Module) Name() string { return m.name }

func (m *Module) Logger() *slog.Logger { return m.logger }

// Len is the number of live fields.
func (m *Module) Len() int { return len(m.fields) }

// CreateField builds a field from core and sources. An empty name gets a
// generated "temporary_N" name. The returned field carries one reference
// owned by the caller.
func (m *Module) CreateField(name string, core Core, sources ...*Field) (*Field, error) {
	if core == nil {
		return nil, ShapeMismatchf("field %q has no core", name)
	}
	if err := m.checkSources(sources); err != nil {
		m.logger.Debug("Field creation rejected.", "field", name, "type", core.TypeName(), "error", err)
		return nil, err
	}
	components, err := core.Components(sources)
	if err != nil {
		m.logger.Debug("Field creation rejected.", "field", name, "type", core.TypeName(), "error", err)
		return nil, err
	}
	if components < 1 {
		return nil, ShapeMismatchf("%s would have %d components", core.TypeName(), components)
	}
	if name == "" {
		name = m.temporaryName()
	} else if _, exists := m.fields[name]; exists {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}

	f := &Field{
		module:     m,
		index:      m.nextIndex,
		name:       name,
		core:       core,
		sources:    slices.Clone(sources),
		components: components,
	}
	m.nextIndex++
	f.refs.Store(1)
	for _, src := range f.sources {
		src.dependents++
	}
	m.fields[name] = f
	m.byIndex[f.index] = f
	m.indexDefinition(f)

	m.logger.Debug("Field created.", "field", name, "type", core.TypeName(), "components", components)
	m.recordChange(f, changelog.Added)
	return f, nil
}

// FindEquivalent returns a new reference to an existing field with the same
// definition, or nil.
func (m *Module) FindEquivalent(core Core, sources ...*Field) *Field {
	key := definitionKey(core.Describe(), sources)
	for _, candidate := range m.definitions[key] {
		if candidate.core.Compare(core) && slices.Equal(candidate.sources, sources) {
			return candidate.Access()
		}
	}
	return nil
}

// FindOrCreateField reuses an equivalent field when there is one. The name
// is only used when a new field is created.
func (m *Module) FindOrCreateField(name string, core Core, sources ...*Field) (*Field, error) {
	if existing := m.FindEquivalent(core, sources...); existing != nil {
		return existing, nil
	}
	return m.CreateField(name, core, sources...)
}

// Redefine replaces the core and sources of f. The component count may only
// change while nothing depends on f.
func (m *Module) Redefine(f *Field, core Core, sources ...*Field) error {
	if err := m.owns(f); err != nil {
		return err
	}
	if core == nil {
		return ShapeMismatchf("field %q has no core", f.name)
	}
	if err := m.checkSources(sources); err != nil {
		return err
	}
	for _, src := range sources {
		if src == f || src.DependsOn(f) {
			m.logger.Debug("Field redefinition rejected.", "field", f.name, "source", src.name, "error", ErrCycle)
			return fmt.Errorf("%w: %q cannot use %q as a source", ErrCycle, f.name, src.name)
		}
	}
	components, err := core.Components(sources)
	if err != nil {
		return err
	}
	if f.dependents > 0 && (components != f.components || core.ValueType() != f.core.ValueType()) {
		return ShapeMismatchf("field %q is in use and cannot change shape", f.name)
	}

	old := f.sources
	for _, src := range sources {
		src.dependents++
	}
	m.unindexDefinition(f)
	f.core = core
	f.sources = slices.Clone(sources)
	if components != f.components {
		f.components = components
		f.componentNames = nil
	}
	m.indexDefinition(f)

	guard := m.BeginChange()
	defer guard.End()
	for _, src := range old {
		src.dependents--
		m.tryRemove(src)
	}
	m.recordChange(f, changelog.Definition)
	return nil
}

// DestroyField asks for f to be removed. It fails with ErrInUse while other
// fields depend on f. Otherwise the managed flag is cleared and the field
// goes away as soon as its last reference is released.
func (m *Module) DestroyField(f *Field) error {
	if err := m.owns(f); err != nil {
		return err
	}
	if f.dependents > 0 {
		m.logger.Debug("Field destruction rejected.", "field", f.name, "dependents", f.dependents)
		return fmt.Errorf("%w: %q is a source of %d fields", ErrInUse, f.name, f.dependents)
	}
	f.managed = false
	m.tryRemove(f)
	return nil
}

// FindFieldByName returns a new reference to the named field, or nil.
func (m *Module) FindFieldByName(name string) *Field {
	if f, ok := m.fields[name]; ok {
		return f.Access()
	}
	return nil
}

// FieldByIndex looks a live field up by index without taking a reference.
func (m *Module) FieldByIndex(index int) (*Field, bool) {
	f, ok := m.byIndex[index]
	return f, ok
}

// Fields returns the live fields sorted by name, without taking references.
func (m *Module) Fields() []*Field {
	out := make([]*Field, 0, len(m.fields))
	for _, f := range m.fields {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Teardown unmanages every field and removes whatever is no longer
// referenced. It returns ErrInUse naming the fields still held by callers.
func (m *Module) Teardown() error {
	guard := m.BeginChange()
	defer guard.End()

	for _, f := range m.Fields() {
		f.managed = false
	}
	for _, f := range m.Fields() {
		m.tryRemove(f)
	}
	if len(m.fields) == 0 {
		return nil
	}
	names := make([]string, 0, len(m.fields))
	for _, f := range m.Fields() {
		names = append(names, f.name)
	}
	return fmt.Errorf("%w: module %q still has referenced fields: %s", ErrInUse, m.name, strings.Join(names, ", "))
}

func (m *Module) owns(f *Field) error {
	if f == nil || f.module != m {
		return ErrForeignField
	}
	if f.removed {
		return fmt.Errorf("%w: %q", ErrFieldRemoved, f.name)
	}
	return nil
}

func (m *Module) checkSources(sources []*Field) error {
	for i, src := range sources {
		if src == nil {
			return ShapeMismatchf("source field %d is missing", i+1)
		}
		if err := m.owns(src); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) temporaryName() string {
	for {
		m.nextTemp++
		name := fmt.Sprintf("temporary_%d", m.nextTemp)
		if _, exists := m.fields[name]; !exists {
			return name
		}
	}
}

func (m *Module) rename(f *Field, name string) error {
	if err := m.owns(f); err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("%w: empty field name", ErrManagerInvariant)
	}
	if name == f.name {
		return nil
	}
	if _, exists := m.fields[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	delete(m.fields, f.name)
	f.name = name
	m.fields[name] = f
	m.recordChange(f, changelog.Identifier)
	return nil
}

// tryRemove drops f once nothing keeps it alive, then gives its sources the
// same chance.
func (m *Module) tryRemove(f *Field) {
	if f.removed || f.managed || f.dependents > 0 || f.refs.Load() > 0 {
		return
	}
	guard := m.BeginChange()
	defer guard.End()

	f.removed = true
	delete(m.fields, f.name)
	delete(m.byIndex, f.index)
	m.unindexDefinition(f)
	m.logger.Debug("Field removed.", "field", f.name)
	m.recordChange(f, changelog.Removed)

	for _, src := range f.sources {
		src.dependents--
		m.tryRemove(src)
	}
}

func (m *Module) indexDefinition(f *Field) {
	f.defKey = definitionKey(f.core.Describe(), f.sources)
	m.definitions[f.defKey] = append(m.definitions[f.defKey], f)
}

func (m *Module) unindexDefinition(f *Field) {
	list := slices.DeleteFunc(m.definitions[f.defKey], func(x *Field) bool { return x == f })
	if len(list) == 0 {
		delete(m.definitions, f.defKey)
	} else {
		m.definitions[f.defKey] = list
	}
	f.defKey = ""
}
