// Package nodeset provides reductions of a source field over the nodes of a
// nodeset: nodeset_sum, nodeset_mean, nodeset_minimum, nodeset_maximum,
// nodeset_sum_squares and nodeset_mean_squares.
//
// The source is evaluated at every node of the nodeset at the time of the
// current location, using the cache's working cache. Nodes where the source
// is undefined are skipped. When no node is defined the sums are zero and
// the other reductions are undefined.
//
// The result does not vary with xi, so derivatives are zero.
package nodeset

import (
	"errors"
	"math"

	"github.com/specialistvlad/fieldgraph/internal/field"
	"github.com/specialistvlad/fieldgraph/internal/location"
	"github.com/specialistvlad/fieldgraph/internal/mesh"
	"github.com/specialistvlad/fieldgraph/internal/registry"
	"github.com/specialistvlad/fieldgraph/internal/valuecache"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Op selects the reduction.
type Op int

const (
	Sum Op = iota
	Mean
	Minimum
	Maximum
	SumSquares
	MeanSquares
)

var opNames = map[Op]string{
	Sum:         "nodeset_sum",
	Mean:        "nodeset_mean",
	Minimum:     "nodeset_minimum",
	Maximum:     "nodeset_maximum",
	SumSquares:  "nodeset_sum_squares",
	MeanSquares: "nodeset_mean_squares",
}

func (o Op) String() string { return opNames[o] }

// Core folds a source field over a nodeset.
type Core struct {
	field.BaseCore
	op      Op
	nodeset mesh.Nodeset
}

func NewCore(op Op, ns mesh.Nodeset) *Core {
	return &Core{op: op, nodeset: ns}
}

func (c *Core) TypeName() string { return c.op.String() }

func (c *Core) Nodeset() mesh.Nodeset { return c.nodeset }

func (c *Core) Components(sources []*field.Field) (int, error) {
	if err := field.RequireSources(c.TypeName(), sources, 1); err != nil {
		return 0, err
	}
	if err := field.RequireReal(c.TypeName(), sources...); err != nil {
		return 0, err
	}
	if c.nodeset == nil {
		return 0, field.ShapeMismatchf("%s requires a nodeset", c.TypeName())
	}
	return sources[0].Components(), nil
}

// each calls fn with the source values at every node where the source is
// defined and returns the number of such nodes.
func (c *Core) each(cache *field.Cache, f *field.Field, fn func(values []float64)) (int, error) {
	extra := cache.Extra()
	t := cache.Time()
	count := 0
	for _, n := range c.nodeset.Nodes() {
		extra.SetLocation(location.AtNode(n).WithTime(t))
		values, err := extra.EvaluateReal(f.Source(0))
		if errors.Is(err, field.ErrUndefined) {
			continue
		}
		if err != nil {
			return 0, err
		}
		fn(values)
		count++
	}
	return count, nil
}

func (c *Core) Evaluate(cache *field.Cache, f *field.Field, vc valuecache.Cache) error {
	out := vc.(*valuecache.Real).Values
	switch c.op {
	case Minimum, Maximum:
		for i := range out {
			if c.op == Minimum {
				out[i] = math.Inf(1)
			} else {
				out[i] = math.Inf(-1)
			}
		}
	default:
		clear(out)
	}
	count, err := c.each(cache, f, func(values []float64) {
		for i, v := range values {
			switch c.op {
			case Minimum:
				out[i] = min(out[i], v)
			case Maximum:
				out[i] = max(out[i], v)
			case SumSquares, MeanSquares:
				out[i] += v * v
			default:
				out[i] += v
			}
		}
	})
	if err != nil {
		return err
	}
	if count == 0 {
		if c.op == Sum || c.op == SumSquares {
			return nil
		}
		return field.ErrUndefined
	}
	if c.op == Mean || c.op == MeanSquares {
		for i := range out {
			out[i] /= float64(count)
		}
	}
	return nil
}

// SumSquareTerms returns the source values at every defined node, node after
// node. For nodeset_mean_squares they are scaled so that their squares sum
// to the mean.
func (c *Core) SumSquareTerms(cache *field.Cache, f *field.Field) ([]float64, error) {
	if c.op != SumSquares && c.op != MeanSquares {
		return nil, field.ShapeMismatchf("%s has no sum of squares terms", c.TypeName())
	}
	var terms []float64
	count, err := c.each(cache, f, func(values []float64) {
		terms = append(terms, values...)
	})
	if err != nil {
		return nil, err
	}
	if c.op == MeanSquares {
		if count == 0 {
			return nil, field.ErrUndefined
		}
		scale := 1 / math.Sqrt(float64(count))
		for i := range terms {
			terms[i] *= scale
		}
	}
	return terms, nil
}

func (c *Core) IsDefinedAt(cache *field.Cache, f *field.Field) bool {
	if c.op == Sum || c.op == SumSquares {
		return true
	}
	return c.Evaluate(cache, f, valuecache.NewReal(f.Components())) == nil
}

func (c *Core) EvaluateDerivative(cache *field.Cache, _ *field.Field, d *field.Derivative, out *valuecache.Derivative) error {
	return field.ZeroDerivative(cache, d, out)
}

func (c *Core) Compare(other field.Core) bool {
	o, ok := other.(*Core)
	return ok && o.op == c.op && o.nodeset == c.nodeset
}

func (c *Core) Describe() field.Description {
	return field.Description{
		Type:       c.TypeName(),
		Attributes: map[string]cty.Value{"nodeset": cty.StringVal(c.nodeset.Name())},
	}
}

// Create creates a reduction of source over ns.
func Create(m *field.Module, name string, op Op, source *field.Field, ns mesh.Nodeset) (*field.Field, error) {
	return m.CreateField(name, NewCore(op, ns), source)
}

// Register registers the field types with the registry.
func (m *Module) Register(r *registry.Registry) {
	for _, op := range []Op{Sum, Mean, Minimum, Maximum, SumSquares, MeanSquares} {
		r.RegisterFieldType(&registry.FieldType{
			Name:       op.String(),
			Attributes: map[string]cty.Type{"nodeset": cty.String},
			Required:   []string{"nodeset"},
			Decode: func(d *registry.DecodeContext) (field.Core, error) {
				ns, err := d.Nodeset("nodeset")
				if err != nil {
					return nil, err
				}
				return NewCore(op, ns), nil
			},
		})
	}
}
