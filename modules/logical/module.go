// Package logical provides comparison and boolean field types. Results are
// 1 for true and 0 for false; any non-zero input counts as true. Logical
// values are piecewise constant, so their derivatives are zero.
package logical

import (
	"github.com/specialistvlad/fieldgraph/internal/field"
	"github.com/specialistvlad/fieldgraph/internal/registry"
	"github.com/specialistvlad/fieldgraph/internal/valuecache"
	"github.com/specialistvlad/fieldgraph/modules/arithmetic"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

func truth(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func zeroDerivative(c *field.Cache, _ *field.Field, d *field.Derivative, out *valuecache.Derivative) error {
	return field.ZeroDerivative(c, d, out)
}

func binary(name string, fn func(a, b float64) bool) *arithmetic.BinaryOp {
	return &arithmetic.BinaryOp{
		Name:       name,
		Apply:      func(a, b float64) (float64, bool) { return truth(fn(a, b)), true },
		Derivative: zeroDerivative,
	}
}

var (
	And         = binary("and", func(a, b float64) bool { return a != 0 && b != 0 })
	Or          = binary("or", func(a, b float64) bool { return a != 0 || b != 0 })
	EqualTo     = binary("equal_to", func(a, b float64) bool { return a == b })
	LessThan    = binary("less_than", func(a, b float64) bool { return a < b })
	GreaterThan = binary("greater_than", func(a, b float64) bool { return a > b })

	Not = &arithmetic.UnaryOp{
		Name:       "not",
		Apply:      func(a float64) (float64, bool) { return truth(a == 0), true },
		Derivative: zeroDerivative,
	}
)

// IsDefinedCore is 1 where its source is defined and 0 elsewhere. It is
// itself defined everywhere and accepts sources of any value type.
type IsDefinedCore struct{ field.BaseCore }

func (IsDefinedCore) TypeName() string { return "is_defined" }

func (c IsDefinedCore) Components(sources []*field.Field) (int, error) {
	if err := field.RequireSources(c.TypeName(), sources, 1); err != nil {
		return 0, err
	}
	return 1, nil
}

func (IsDefinedCore) Evaluate(c *field.Cache, f *field.Field, vc valuecache.Cache) error {
	vc.(*valuecache.Real).Values[0] = truth(c.IsDefined(f.Source(0)))
	return nil
}

func (IsDefinedCore) IsDefinedAt(*field.Cache, *field.Field) bool { return true }

func (IsDefinedCore) EvaluateDerivative(c *field.Cache, f *field.Field, d *field.Derivative, out *valuecache.Derivative) error {
	return zeroDerivative(c, f, d, out)
}

func (IsDefinedCore) Compare(other field.Core) bool {
	_, ok := other.(IsDefinedCore)
	return ok
}

func (c IsDefinedCore) Describe() field.Description { return field.Description{Type: c.TypeName()} }

// CreateIsDefined creates an is_defined field over source.
func CreateIsDefined(m *field.Module, name string, source *field.Field) (*field.Field, error) {
	return m.CreateField(name, IsDefinedCore{}, source)
}

// Register registers the field types with the registry.
func (m *Module) Register(r *registry.Registry) {
	for _, op := range []*arithmetic.BinaryOp{And, Or, EqualTo, LessThan, GreaterThan} {
		arithmetic.RegisterBinary(r, op)
	}
	arithmetic.RegisterUnary(r, Not)
	r.RegisterFieldType(&registry.FieldType{
		Name: "is_defined",
		Decode: func(*registry.DecodeContext) (field.Core, error) {
			return IsDefinedCore{}, nil
		},
	})
}
