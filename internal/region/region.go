// Package region organises field modules into a tree.
//
// Each Region owns one field module and one in-memory mesh store. Child
// regions attach their module below the parent's, so a hierarchical change
// started on a region batches the notifications of its whole subtree.
package region

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/specialistvlad/fieldgraph/internal/field"
	"github.com/specialistvlad/fieldgraph/internal/inmemorymesh"
	"github.com/specialistvlad/fieldgraph/internal/mesh"
)

// Region is a named node of the region tree.
type Region struct {
	name     string
	parent   *Region
	children []*Region
	module   *field.Module
	mesh     *inmemorymesh.Store
	logger   *slog.Logger
}

// Option configures a Region.
type Option func(*Region)

// WithLogger sets the logger of the region and its field module. Child
// regions inherit it.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Region) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a root region.
func New(name string, opts ...Option) *Region {
	r := &Region{name: name, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(r)
	}
	r.init()
	return r
}

func (r *Region) init() {
	r.mesh = inmemorymesh.New()
	r.module = field.NewModule(field.WithName(r.Path()), field.WithLogger(r.logger))
}

func (r *Region) Name() string { return r.name }

func (r *Region) Parent() *Region { return r.parent }

// Children returns the child regions in creation order.
func (r *Region) Children() []*Region { return slices.Clone(r.children) }

// Module is the field module of this region.
func (r *Region) Module() *field.Module { return r.module }

// Mesh is the mesh store of this region.
func (r *Region) Mesh() mesh.Store { return r.mesh }

// Path is the slash separated path from the root, "/" for the root.
func (r *Region) Path() string {
	if r.parent == nil {
		return "/"
	}
	var parts []string
	for x := r; x.parent != nil; x = x.parent {
		parts = append(parts, x.name)
	}
	slices.Reverse(parts)
	return "/" + strings.Join(parts, "/")
}

// CreateChild adds a named child region.
func (r *Region) CreateChild(name string) (*Region, error) {
	if name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("invalid region name %q", name)
	}
	if r.FindChild(name) != nil {
		return nil, fmt.Errorf("region %q already has a child named %q", r.Path(), name)
	}
	child := &Region{name: name, parent: r, logger: r.logger}
	child.init()
	if err := r.module.AddChild(child.module); err != nil {
		return nil, err
	}
	r.children = append(r.children, child)
	r.logger.Debug("Created region.", "path", child.Path())
	return child, nil
}

// FindChild returns the direct child with the given name, or nil.
func (r *Region) FindChild(name string) *Region {
	for _, c := range r.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// FindSubregion resolves a slash separated path relative to r. Empty
// segments are ignored, so "" and "/" return r itself.
func (r *Region) FindSubregion(path string) *Region {
	current := r
	for _, part := range strings.Split(path, "/") {
		if part == "" {
			continue
		}
		if current = current.FindChild(part); current == nil {
			return nil
		}
	}
	return current
}

// BeginHierarchicalChange batches change notifications of the whole
// subtree until the guard is ended.
func (r *Region) BeginHierarchicalChange() *field.ChangeGuard {
	return r.module.BeginHierarchicalChange()
}

// Destroy tears down the subtree depth-first and detaches r from its
// parent. Every module that still has externally referenced fields is
// reported; the tree is detached regardless.
func (r *Region) Destroy() error {
	var result *multierror.Error
	for _, c := range slices.Backward(slices.Clone(r.children)) {
		if err := c.Destroy(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := r.module.Teardown(); err != nil {
		result = multierror.Append(result, fmt.Errorf("region %q: %w", r.Path(), err))
	}
	if r.parent != nil {
		if err := r.parent.module.RemoveChild(r.module); err != nil {
			result = multierror.Append(result, err)
		}
		if i := slices.Index(r.parent.children, r); i >= 0 {
			r.parent.children = slices.Delete(r.parent.children, i, i+1)
		}
		r.parent = nil
	}
	return result.ErrorOrNil()
}
