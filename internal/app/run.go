package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/specialistvlad/fieldgraph/internal/changefeed"
	"github.com/specialistvlad/fieldgraph/internal/ctxlog"
	"github.com/specialistvlad/fieldgraph/internal/description"
	"github.com/specialistvlad/fieldgraph/internal/field"
	"github.com/specialistvlad/fieldgraph/internal/mesh"
	"github.com/specialistvlad/fieldgraph/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Run loads the description and either writes it back or evaluates the
// configured field at every requested location.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	m := a.region.Module()
	m.Subscribe(changefeed.NewLogObserver(a.logger))
	if a.config.ChangeFeedURL != "" {
		pub, err := changefeed.Dial(ctx, changefeed.PublisherConfig{URL: a.config.ChangeFeedURL})
		if err != nil {
			return fmt.Errorf("failed to connect change feed: %w", err)
		}
		defer pub.Close()
		sub := m.Subscribe(pub)
		defer sub.Unsubscribe()
	}

	if err := description.Load(ctx, a.region, a.registry, a.config.DescriptionPath); err != nil {
		return fmt.Errorf("failed to load description: %w", err)
	}
	a.logger.Info("Description loaded.", "path", a.config.DescriptionPath, "fields", m.Len())

	if a.config.DescribeOnly {
		return description.Write(a.outW, a.region)
	}

	f := m.FindFieldByName(a.config.Field)
	if f == nil {
		return fmt.Errorf("field %q not found", a.config.Field)
	}
	defer f.Release()
	a.logger.Debug("Evaluating field.", "field", f.Name(), "definition", f.CommandString())

	points, err := a.points()
	if err != nil {
		return err
	}
	cache := m.NewCache()
	results := make([]result, 0, len(points))
	for _, p := range points {
		p.apply(cache)
		cache.SetTime(a.config.Time)
		value, err := evaluate(cache, f)
		if err != nil {
			return fmt.Errorf("field %q at %s: %w", f.Name(), p.label, err)
		}
		results = append(results, result{location: p.label, value: value})
	}
	if err := writeResults(a.outW, a.config.Output, f.Name(), results); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}

// point is one evaluation location.
type point struct {
	label string
	apply func(c *field.Cache)
}

func (a *App) points() ([]point, error) {
	store := a.region.Mesh()
	var nodes []int
	switch {
	case a.config.Nodeset != "":
		ns, ok := store.Nodeset(a.config.Nodeset, false)
		if !ok {
			return nil, fmt.Errorf("nodeset %q not found", a.config.Nodeset)
		}
		for _, n := range ns.Nodes() {
			nodes = append(nodes, n.Identifier())
		}
	case len(a.config.Nodes) > 0:
		nodes = a.config.Nodes
	case a.config.Element != 0:
		el, ok := store.Element(a.config.Element)
		if !ok {
			return nil, fmt.Errorf("element %d not found", a.config.Element)
		}
		xi := a.config.Xi
		label := fmt.Sprintf("element %d xi %s", el.ID, field.RenderValue(registry.Float64Values(xi)))
		return []point{{label: label, apply: func(c *field.Cache) { c.SetElementXi(el, xi...) }}}, nil
	default:
		return []point{{label: "-", apply: func(*field.Cache) {}}}, nil
	}

	points := make([]point, 0, len(nodes))
	for _, id := range nodes {
		if _, ok := store.Node(id); !ok {
			return nil, fmt.Errorf("node %d not found", id)
		}
		points = append(points, point{
			label: "node " + strconv.Itoa(id),
			apply: func(c *field.Cache) { c.SetNode(mesh.Node(id)) },
		})
	}
	return points, nil
}

// evaluate returns the value of f at the cache location as a cty value.
// Undefined values are null rather than errors.
func evaluate(cache *field.Cache, f *field.Field) (cty.Value, error) {
	if f.ValueType() == field.ValueTypeString {
		s, err := cache.EvaluateString(f)
		if errors.Is(err, field.ErrUndefined) {
			return cty.NullVal(cty.String), nil
		}
		if err != nil {
			return cty.NilVal, err
		}
		return cty.StringVal(s), nil
	}
	values, err := cache.EvaluateReal(f)
	if errors.Is(err, field.ErrUndefined) {
		return cty.NullVal(cty.List(cty.Number)), nil
	}
	if err != nil {
		return cty.NilVal, err
	}
	return registry.Float64Values(values), nil
}
