// Package derivatives provides field types built from xi derivatives of
// their sources.
//
// derivative differentiates a source by one xi direction. gradient,
// divergence and curl differentiate with respect to a coordinate field: the
// xi derivatives of the source are multiplied by the inverse Jacobian of the
// coordinates, which requires the element dimension to equal the number of
// coordinate components. All of them are undefined away from elements.
package derivatives

import (
	"github.com/specialistvlad/fieldgraph/internal/field"
	"github.com/specialistvlad/fieldgraph/internal/location"
	"github.com/specialistvlad/fieldgraph/internal/registry"
	"github.com/specialistvlad/fieldgraph/internal/valuecache"
	"github.com/specialistvlad/fieldgraph/modules/matrix"
	"github.com/zclconf/go-cty/cty"
	"gonum.org/v1/gonum/mat"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// firstDerivative evaluates the first xi derivative of src at an element
// location.
func firstDerivative(c *field.Cache, src *field.Field) (*valuecache.Derivative, error) {
	loc := c.Location()
	if loc.Kind() != location.KindElementXi {
		return nil, field.ErrUndefined
	}
	d, err := src.Module().MeshDerivative(loc.Dimension(), 1)
	if err != nil {
		return nil, field.ErrUndefined
	}
	return c.EvaluateDerivative(src, d)
}

// DerivativeCore is the derivative of a source by xi direction xiIndex
// (1-based).
type DerivativeCore struct {
	field.BaseCore
	xiIndex int
}

func (DerivativeCore) TypeName() string { return "derivative" }

func (c DerivativeCore) Components(sources []*field.Field) (int, error) {
	if err := field.RequireSources(c.TypeName(), sources, 1); err != nil {
		return 0, err
	}
	if err := field.RequireReal(c.TypeName(), sources...); err != nil {
		return 0, err
	}
	if c.xiIndex < 1 || c.xiIndex > location.MaxXi {
		return 0, field.ShapeMismatchf("derivative xi_index %d out of range 1..%d", c.xiIndex, location.MaxXi)
	}
	return sources[0].Components(), nil
}

func (c DerivativeCore) Evaluate(cache *field.Cache, f *field.Field, vc valuecache.Cache) error {
	if cache.Location().Dimension() < c.xiIndex {
		return field.ErrUndefined
	}
	dv, err := firstDerivative(cache, f.Source(0))
	if err != nil {
		return err
	}
	out := vc.(*valuecache.Real).Values
	for i := range out {
		out[i] = dv.At(i, c.xiIndex-1)
	}
	return nil
}

func (c DerivativeCore) Compare(other field.Core) bool {
	o, ok := other.(DerivativeCore)
	return ok && o.xiIndex == c.xiIndex
}

func (c DerivativeCore) Describe() field.Description {
	return field.Description{
		Type:       c.TypeName(),
		Attributes: map[string]cty.Value{"xi_index": cty.NumberIntVal(int64(c.xiIndex))},
	}
}

// Gradient returns the s×n matrix of derivatives of the s components of src
// with respect to the n coordinates.
func Gradient(c *field.Cache, src, coordinates *field.Field) (*mat.Dense, error) {
	n := coordinates.Components()
	if c.Location().Dimension() != n {
		return nil, field.ErrUndefined
	}
	dx, err := firstDerivative(c, coordinates)
	if err != nil {
		return nil, err
	}
	jacobian := mat.NewDense(n, n, append([]float64(nil), dx.Values...))
	inv, err := matrix.Invert(jacobian)
	if err != nil {
		return nil, err
	}
	df, err := firstDerivative(c, src)
	if err != nil {
		return nil, err
	}
	var grad mat.Dense
	grad.Mul(mat.NewDense(src.Components(), n, append([]float64(nil), df.Values...)), inv)
	return &grad, nil
}

type gradientKind int

const (
	gradient gradientKind = iota
	divergence
	curl
)

var gradientNames = map[gradientKind]string{
	gradient:   "gradient",
	divergence: "divergence",
	curl:       "curl",
}

// GradientCore implements gradient, divergence and curl. The first source is
// differentiated, the second gives the coordinates.
type GradientCore struct {
	field.BaseCore
	kind gradientKind
}

func (c GradientCore) TypeName() string { return gradientNames[c.kind] }

func (c GradientCore) Components(sources []*field.Field) (int, error) {
	if err := field.RequireSources(c.TypeName(), sources, 2); err != nil {
		return 0, err
	}
	if err := field.RequireReal(c.TypeName(), sources...); err != nil {
		return 0, err
	}
	s, n := sources[0].Components(), sources[1].Components()
	if n > location.MaxXi {
		return 0, field.ShapeMismatchf("%s: coordinates have %d components, at most %d supported", c.TypeName(), n, location.MaxXi)
	}
	switch c.kind {
	case divergence:
		if s != n {
			return 0, field.ShapeMismatchf("divergence of %d components over %d coordinates", s, n)
		}
		return 1, nil
	case curl:
		if s != 3 || n != 3 {
			return 0, field.ShapeMismatchf("curl needs 3 components over 3 coordinates, got %d over %d", s, n)
		}
		return 3, nil
	default:
		return s * n, nil
	}
}

func (c GradientCore) Evaluate(cache *field.Cache, f *field.Field, vc valuecache.Cache) error {
	g, err := Gradient(cache, f.Source(0), f.Source(1))
	if err != nil {
		return err
	}
	out := vc.(*valuecache.Real).Values
	switch c.kind {
	case divergence:
		out[0] = mat.Trace(g)
	case curl:
		out[0] = g.At(2, 1) - g.At(1, 2)
		out[1] = g.At(0, 2) - g.At(2, 0)
		out[2] = g.At(1, 0) - g.At(0, 1)
	default:
		copy(out, g.RawMatrix().Data)
	}
	return nil
}

func (c GradientCore) Compare(other field.Core) bool {
	o, ok := other.(GradientCore)
	return ok && o.kind == c.kind
}

func (c GradientCore) Describe() field.Description { return field.Description{Type: c.TypeName()} }

// CreateDerivative creates a derivative field by xi direction xiIndex
// (1-based).
func CreateDerivative(m *field.Module, name string, source *field.Field, xiIndex int) (*field.Field, error) {
	return m.CreateField(name, DerivativeCore{xiIndex: xiIndex}, source)
}

func CreateGradient(m *field.Module, name string, source, coordinates *field.Field) (*field.Field, error) {
	return m.CreateField(name, GradientCore{kind: gradient}, source, coordinates)
}

func CreateDivergence(m *field.Module, name string, source, coordinates *field.Field) (*field.Field, error) {
	return m.CreateField(name, GradientCore{kind: divergence}, source, coordinates)
}

func CreateCurl(m *field.Module, name string, source, coordinates *field.Field) (*field.Field, error) {
	return m.CreateField(name, GradientCore{kind: curl}, source, coordinates)
}

// Register registers the field types with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterFieldType(&registry.FieldType{
		Name:       "derivative",
		Attributes: map[string]cty.Type{"xi_index": cty.Number},
		Required:   []string{"xi_index"},
		Decode: func(d *registry.DecodeContext) (field.Core, error) {
			var xiIndex int
			err := registry.Get(d, "xi_index", &xiIndex)
			return DerivativeCore{xiIndex: xiIndex}, err
		},
	})
	for _, kind := range []gradientKind{gradient, divergence, curl} {
		r.RegisterFieldType(&registry.FieldType{
			Name: gradientNames[kind],
			Decode: func(*registry.DecodeContext) (field.Core, error) {
				return GradientCore{kind: kind}, nil
			},
		})
	}
}
