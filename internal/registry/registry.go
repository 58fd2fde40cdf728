package registry

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/specialistvlad/fieldgraph/internal/field"
	"github.com/specialistvlad/fieldgraph/internal/mesh"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Module is the interface that all field type families must implement to be
// registered.
type Module interface {
	Register(r *Registry)
}

// Decoder builds a core from decoded attributes and resolved sources.
type Decoder func(d *DecodeContext) (field.Core, error)

// FieldType describes one registered field type.
type FieldType struct {
	Name string
	// Attributes declares every accepted attribute and its type. Values are
	// converted to these types before the decoder runs.
	Attributes map[string]cty.Type
	// Required lists attributes that must be present.
	Required []string
	Decode   Decoder
}

// Registry holds the field types known to one application instance.
type Registry struct {
	types map[string]*FieldType
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{types: make(map[string]*FieldType)}
}

// NewWith creates a Registry populated by modules.
func NewWith(modules ...Module) *Registry {
	r := New()
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// RegisterFieldType adds a field type. Registering a name twice is a
// programmer error and panics.
func (r *Registry) RegisterFieldType(ft *FieldType) {
	if _, exists := r.types[ft.Name]; exists {
		panic(fmt.Sprintf("field type '%s' already registered", ft.Name))
	}
	slog.Debug("Registering field type.", "name", ft.Name)
	r.types[ft.Name] = ft
}

func (r *Registry) Lookup(name string) (*FieldType, bool) {
	ft, ok := r.types[name]
	return ft, ok
}

// TypeNames returns every registered type name, sorted.
func (r *Registry) TypeNames() []string {
	return slices.Sorted(maps.Keys(r.types))
}

// Validate checks every registered type for a decoder and consistent
// attribute declarations.
func (r *Registry) Validate() error {
	var errs []string
	for _, name := range r.TypeNames() {
		ft := r.types[name]
		if ft.Decode == nil {
			errs = append(errs, fmt.Sprintf("field type '%s': no decoder", name))
		}
		for attr, ty := range ft.Attributes {
			if ty == cty.NilType {
				errs = append(errs, fmt.Sprintf("field type '%s', attribute '%s': missing type", name, attr))
			}
		}
		for _, attr := range ft.Required {
			if _, ok := ft.Attributes[attr]; !ok {
				errs = append(errs, fmt.Sprintf("field type '%s': required attribute '%s' is not declared", name, attr))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// Decode converts attrs to the declared types and runs the type's decoder.
func (r *Registry) Decode(typeName string, m *field.Module, store mesh.Store, sources []*field.Field, attrs map[string]cty.Value) (field.Core, error) {
	ft, ok := r.types[typeName]
	if !ok {
		return nil, fmt.Errorf("unknown field type %q", typeName)
	}
	converted := make(map[string]cty.Value, len(attrs))
	for _, name := range slices.Sorted(maps.Keys(attrs)) {
		ty, ok := ft.Attributes[name]
		if !ok {
			return nil, fmt.Errorf("field type %q: unsupported attribute %q", typeName, name)
		}
		v, err := convert.Convert(attrs[name], ty)
		if err != nil {
			return nil, fmt.Errorf("field type %q, attribute %q: %w", typeName, name, err)
		}
		converted[name] = v
	}
	for _, name := range ft.Required {
		if _, ok := converted[name]; !ok {
			return nil, fmt.Errorf("field type %q: missing required attribute %q", typeName, name)
		}
	}
	return ft.Decode(&DecodeContext{
		TypeName:   typeName,
		Module:     m,
		Mesh:       store,
		Sources:    sources,
		Attributes: converted,
	})
}
