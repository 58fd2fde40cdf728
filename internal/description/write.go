package description

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/specialistvlad/fieldgraph/internal/dag"
	"github.com/specialistvlad/fieldgraph/internal/field"
	"github.com/specialistvlad/fieldgraph/internal/region"
	"github.com/specialistvlad/fieldgraph/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Write renders the mesh and fields of r. Fields follow their sources.
func Write(w io.Writer, r *region.Region) error {
	file := hclwrite.NewEmptyFile()
	body := file.Body()

	writeMesh(body, r)

	order, err := fieldOrder(r.Module())
	if err != nil {
		return fmt.Errorf("region %s: %w", r.Path(), err)
	}
	for _, f := range order {
		body.AppendNewline()
		writeField(body, f)
	}

	_, err = w.Write(file.Bytes())
	return err
}

func writeMesh(body *hclwrite.Body, r *region.Region) {
	store := r.Mesh()
	for _, el := range store.Elements() {
		blk := body.AppendNewBlock("element", nil).Body()
		blk.SetAttributeValue("id", cty.NumberIntVal(int64(el.ID)))
		blk.SetAttributeValue("dimension", cty.NumberIntVal(int64(el.Dim)))
	}
	for _, id := range store.Nodes() {
		blk := body.AppendNewBlock("node", nil).Body()
		blk.SetAttributeValue("id", cty.NumberIntVal(int64(id)))
		params := store.Parameters(id)
		if len(params) == 0 {
			continue
		}
		values := make(map[string]cty.Value, len(params))
		for _, p := range params {
			v, _ := store.Values(p, id)
			values[p] = registry.Float64Values(v)
		}
		blk.SetAttributeValue("values", cty.ObjectVal(values))
	}
	for _, ns := range store.Nodesets() {
		blk := body.AppendNewBlock("nodeset", []string{ns.Name()}).Body()
		for _, n := range ns.Nodes() {
			blk.AppendNewBlock("node", nil).Body().
				SetAttributeValue("id", cty.NumberIntVal(int64(n.Identifier())))
		}
	}
}

func writeField(body *hclwrite.Body, f *field.Field) {
	d := f.Core().Describe()
	blk := body.AppendNewBlock("field", []string{f.Name()}).Body()
	blk.SetAttributeValue("type", cty.StringVal(d.Type))
	if f.NumSources() > 0 {
		names := make([]cty.Value, 0, f.NumSources())
		for _, src := range f.Sources() {
			names = append(names, cty.StringVal(src.Name()))
		}
		blk.SetAttributeValue("source_fields", cty.ListVal(names))
	}
	for _, name := range slices.Sorted(maps.Keys(d.Attributes)) {
		blk.SetAttributeValue(name, d.Attributes[name])
	}
	if !f.IsManaged() {
		blk.SetAttributeValue("managed", cty.False)
	}

	named := false
	labels := make([]cty.Value, f.Components())
	for i := range labels {
		labels[i] = cty.StringVal(f.ComponentName(i))
		if f.ComponentName(i) != fmt.Sprint(i+1) {
			named = true
		}
	}
	if named {
		blk.SetAttributeValue("component_names", cty.ListVal(labels))
	}
}

// fieldOrder sorts the live fields of m so that sources come first. Ties
// keep name order.
func fieldOrder(m *field.Module) ([]*field.Field, error) {
	g := dag.New()
	byName := make(map[string]*field.Field)
	for _, f := range m.Fields() {
		g.AddNode(f.Name())
		byName[f.Name()] = f
	}
	for _, f := range m.Fields() {
		for _, src := range f.Sources() {
			if err := g.AddEdge(src.Name(), f.Name()); err != nil {
				return nil, err
			}
		}
	}
	names, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	out := make([]*field.Field, len(names))
	for i, name := range names {
		out[i] = byName[name]
	}
	return out, nil
}
