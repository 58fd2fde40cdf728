package registry

import (
	"fmt"

	"github.com/specialistvlad/fieldgraph/internal/field"
	"github.com/specialistvlad/fieldgraph/internal/mesh"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// DecodeContext is what a Decoder gets to build a core.
type DecodeContext struct {
	TypeName   string
	Module     *field.Module
	Mesh       mesh.Store
	Sources    []*field.Field
	Attributes map[string]cty.Value
}

// Has reports whether an attribute was given.
func (d *DecodeContext) Has(name string) bool {
	v, ok := d.Attributes[name]
	return ok && !v.IsNull()
}

// Get decodes an optional attribute into dst, leaving dst untouched when the
// attribute is absent.
func Get[T any](d *DecodeContext, name string, dst *T) error {
	if !d.Has(name) {
		return nil
	}
	if err := gocty.FromCtyValue(d.Attributes[name], dst); err != nil {
		return fmt.Errorf("field type %q, attribute %q: %w", d.TypeName, name, err)
	}
	return nil
}

// Nodeset resolves the nodeset named by attribute attr.
func (d *DecodeContext) Nodeset(attr string) (mesh.Nodeset, error) {
	var name string
	if err := Get(d, attr, &name); err != nil {
		return nil, err
	}
	if d.Mesh == nil {
		return nil, fmt.Errorf("field type %q: no mesh to resolve nodeset %q", d.TypeName, name)
	}
	ns, ok := d.Mesh.Nodeset(name, false)
	if !ok {
		return nil, fmt.Errorf("field type %q: nodeset %q not found", d.TypeName, name)
	}
	return ns, nil
}

// Float64Values is a helper for building list attributes in Describe.
func Float64Values(values []float64) cty.Value {
	if len(values) == 0 {
		return cty.ListValEmpty(cty.Number)
	}
	vals := make([]cty.Value, len(values))
	for i, v := range values {
		vals[i] = cty.NumberFloatVal(v)
	}
	return cty.ListVal(vals)
}

// IntValues is a helper for building list attributes in Describe.
func IntValues(values []int) cty.Value {
	if len(values) == 0 {
		return cty.ListValEmpty(cty.Number)
	}
	vals := make([]cty.Value, len(values))
	for i, v := range values {
		vals[i] = cty.NumberIntVal(int64(v))
	}
	return cty.ListVal(vals)
}
