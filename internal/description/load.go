package description

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/fieldgraph/internal/ctxlog"
	"github.com/specialistvlad/fieldgraph/internal/dag"
	"github.com/specialistvlad/fieldgraph/internal/field"
	"github.com/specialistvlad/fieldgraph/internal/fsutil"
	"github.com/specialistvlad/fieldgraph/internal/region"
	"github.com/specialistvlad/fieldgraph/internal/registry"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"
)

// Extension is the file extension of description files.
const Extension = ".hcl"

// Load reads description files from the operating system and applies them
// to r. See LoadFS.
func Load(ctx context.Context, r *region.Region, reg *registry.Registry, paths ...string) error {
	return LoadFS(ctx, afero.NewOsFs(), r, reg, paths...)
}

// LoadFS reads description files from fsys and applies them to r.
// Directories are searched for files ending in Extension. All files are
// parsed before anything is applied, so fields may refer to fields in other
// files.
func LoadFS(ctx context.Context, fsys afero.Fs, r *region.Region, reg *registry.Registry, paths ...string) error {
	logger := ctxlog.FromContext(ctx)

	files, err := fsutil.FindFiles(fsys, Extension, paths...)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no description files found in %s", strings.Join(paths, ", "))
	}
	logger.Debug("Discovered description files.", "count", len(files))

	parser := hclparse.NewParser()
	var roots []*fileRoot
	for _, file := range files {
		src, err := afero.ReadFile(fsys, file)
		if err != nil {
			return fmt.Errorf("failed to read description %s: %w", file, err)
		}
		hclFile, diags := parser.ParseHCL(src, file)
		if diags.HasErrors() {
			return fmt.Errorf("failed to parse description %s: %w", file, diags)
		}
		root, diags := decode(hclFile)
		if diags.HasErrors() {
			return fmt.Errorf("failed to decode description %s: %w", file, diags)
		}
		roots = append(roots, root)
	}
	return apply(ctx, r, reg, roots)
}

// LoadBytes applies one description held in memory. filename is only used
// in diagnostics.
func LoadBytes(ctx context.Context, r *region.Region, reg *registry.Registry, filename string, src []byte) error {
	hclFile, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse description %s: %w", filename, diags)
	}
	root, diags := decode(hclFile)
	if diags.HasErrors() {
		return fmt.Errorf("failed to decode description %s: %w", filename, diags)
	}
	return apply(ctx, r, reg, []*fileRoot{root})
}

func decode(file *hcl.File) (*fileRoot, hcl.Diagnostics) {
	var root fileRoot
	diags := gohcl.DecodeBody(file.Body, nil, &root)
	return &root, diags
}

func apply(ctx context.Context, r *region.Region, reg *registry.Registry, roots []*fileRoot) error {
	logger := ctxlog.FromContext(ctx)

	if err := applyMesh(r, roots); err != nil {
		return err
	}

	blocks := make(map[string]*fieldBlock)
	var diags hcl.Diagnostics
	for _, root := range roots {
		for _, fb := range root.Fields {
			if _, dup := blocks[fb.Name]; dup {
				diags = diags.Append(&hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Duplicate field",
					Detail:   fmt.Sprintf("Field %q is defined more than once.", fb.Name),
					Subject:  fb.Remain.MissingItemRange().Ptr(),
				})
				continue
			}
			blocks[fb.Name] = fb
		}
	}
	if diags.HasErrors() {
		return diags
	}

	order, diags := orderFields(r.Module(), blocks)
	if diags.HasErrors() {
		return diags
	}

	m := r.Module()
	guard := m.BeginChange()
	defer guard.End()

	// Created fields stay referenced until every field exists, so unmanaged
	// ones survive until their dependents do.
	created := make([]*field.Field, 0, len(order))
	release := func() {
		for _, f := range slices.Backward(created) {
			f.Release()
		}
	}
	for _, name := range order {
		f, d := createField(r, reg, blocks[name])
		if d.HasErrors() {
			release()
			return append(diags, d...)
		}
		created = append(created, f)
	}
	release()
	logger.Debug("Description applied.", "region", r.Path(), "fields", len(order))
	return guard.End()
}

// orderFields sorts the field blocks so every field follows its sources.
// Sources that are not in the description must already exist in m.
func orderFields(m *field.Module, blocks map[string]*fieldBlock) ([]string, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	g := dag.New()
	for name := range blocks {
		g.AddNode(name)
	}
	for _, name := range slices.Sorted(maps.Keys(blocks)) {
		fb := blocks[name]
		for _, src := range fb.SourceFields {
			if g.Has(src) {
				if err := g.AddEdge(src, name); err != nil {
					diags = diags.Append(cycleDiagnostic(fb, err))
				}
				continue
			}
			if existing := m.FindFieldByName(src); existing != nil {
				existing.Release()
				continue
			}
			diags = diags.Append(&hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Unknown source field",
				Detail:   fmt.Sprintf("Field %q uses source field %q, which is not defined.", name, src),
				Subject:  fb.Remain.MissingItemRange().Ptr(),
			})
		}
	}
	if diags.HasErrors() {
		return nil, diags
	}
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, diags.Append(&hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Circular field definitions",
			Detail:   err.Error(),
		})
	}
	return order, diags
}

func cycleDiagnostic(fb *fieldBlock, err error) *hcl.Diagnostic {
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  "Circular field definitions",
		Detail:   fmt.Sprintf("Field %q: %s.", fb.Name, err),
		Subject:  fb.Remain.MissingItemRange().Ptr(),
	}
}

// createField defines one field, or redefines it when the region already
// has a field of that name. The returned field carries a reference.
func createField(r *region.Region, reg *registry.Registry, fb *fieldBlock) (*field.Field, hcl.Diagnostics) {
	m := r.Module()
	subject := fb.Remain.MissingItemRange().Ptr()
	fail := func(summary string, err error) (*field.Field, hcl.Diagnostics) {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  summary,
			Detail:   fmt.Sprintf("Field %q: %s.", fb.Name, err),
			Subject:  subject,
		}}
	}

	attrs, diags := fb.Remain.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	values := make(map[string]cty.Value, len(attrs))
	for name, attr := range attrs {
		v, d := attr.Expr.Value(nil)
		diags = append(diags, d...)
		values[name] = v
	}
	if diags.HasErrors() {
		return nil, diags
	}

	sources := make([]*field.Field, 0, len(fb.SourceFields))
	defer func() {
		for _, src := range sources {
			src.Release()
		}
	}()
	for _, name := range fb.SourceFields {
		src := m.FindFieldByName(name)
		if src == nil {
			return fail("Unknown source field", fmt.Errorf("source field %q not found", name))
		}
		sources = append(sources, src)
	}

	core, err := reg.Decode(fb.Type, m, r.Mesh(), sources, values)
	if err != nil {
		return fail("Invalid field definition", err)
	}

	f := m.FindFieldByName(fb.Name)
	if f != nil {
		if err := m.Redefine(f, core, sources...); err != nil {
			f.Release()
			return fail("Cannot redefine field", err)
		}
	} else if f, err = m.CreateField(fb.Name, core, sources...); err != nil {
		return fail("Cannot create field", err)
	}

	f.SetManaged(fb.Managed == nil || *fb.Managed)
	for i, name := range fb.ComponentNames {
		if err := f.SetComponentName(i, name); err != nil {
			f.Release()
			return fail("Invalid component name", err)
		}
	}
	return f, nil
}

// applyMesh adds elements, nodes, parameter values and nodesets. Nodes
// listed inside a nodeset block are created like top-level nodes.
func applyMesh(r *region.Region, roots []*fileRoot) error {
	store := r.Mesh()
	addNode := func(nb *nodeBlock) error {
		store.AddNode(nb.ID)
		for _, parameter := range slices.Sorted(maps.Keys(nb.Values)) {
			if err := store.SetValues(parameter, nb.ID, nb.Values[parameter]); err != nil {
				return err
			}
		}
		return nil
	}

	for _, root := range roots {
		for _, eb := range root.Elements {
			if _, err := store.AddElement(eb.ID, eb.Dimension); err != nil {
				return fmt.Errorf("region %s: %w", r.Path(), err)
			}
		}
		for _, nb := range root.Nodes {
			if err := addNode(nb); err != nil {
				return fmt.Errorf("region %s: %w", r.Path(), err)
			}
		}
		for _, ns := range root.Nodesets {
			ids := make([]int, 0, len(ns.Nodes))
			for _, nb := range ns.Nodes {
				if err := addNode(nb); err != nil {
					return fmt.Errorf("region %s: nodeset %q: %w", r.Path(), ns.Name, err)
				}
				ids = append(ids, nb.ID)
			}
			if len(ids) == 0 {
				store.Nodeset(ns.Name, true)
				continue
			}
			if err := store.AddToNodeset(ns.Name, ids...); err != nil {
				return fmt.Errorf("region %s: %w", r.Path(), err)
			}
		}
	}
	return nil
}
