// Package arithmetic provides component-wise arithmetic field types.
//
// Binary operations (add, subtract, multiply, divide, power) take two
// numeric sources with equal component counts, or one scalar source which
// is broadcast. Unary operations (sqrt, exp, log, abs) keep the component
// count of their source. Results that leave the real numbers, such as a
// division by zero, are reported as field.ErrNumericDegenerate.
package arithmetic

import (
	"math"

	"github.com/specialistvlad/fieldgraph/internal/field"
	"github.com/specialistvlad/fieldgraph/internal/registry"
	"github.com/specialistvlad/fieldgraph/internal/valuecache"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// DerivativeFunc evaluates a derivative of f into out. Ops without one use
// finite differences.
type DerivativeFunc func(c *field.Cache, f *field.Field, d *field.Derivative, out *valuecache.Derivative) error

// BinaryOp is a component-wise operation on two values. Apply returns false
// when the result is not a finite real number.
type BinaryOp struct {
	Name       string
	Apply      func(a, b float64) (float64, bool)
	Derivative DerivativeFunc
}

// UnaryOp is a component-wise operation on one value. Slope is the first
// derivative used for the chain rule. Derivative, when set, replaces the
// chain rule; with neither, finite differences are used.
type UnaryOp struct {
	Name       string
	Apply      func(a float64) (float64, bool)
	Slope      func(a float64) (float64, bool)
	Derivative DerivativeFunc
}

var (
	Add = &BinaryOp{
		Name:       "add",
		Apply:      func(a, b float64) (float64, bool) { return a + b, true },
		Derivative: linearDerivative(1),
	}
	Subtract = &BinaryOp{
		Name:       "subtract",
		Apply:      func(a, b float64) (float64, bool) { return a - b, true },
		Derivative: linearDerivative(-1),
	}
	Multiply = &BinaryOp{
		Name:       "multiply",
		Apply:      func(a, b float64) (float64, bool) { return a * b, true },
		Derivative: productDerivative,
	}
	Divide = &BinaryOp{
		Name: "divide",
		Apply: func(a, b float64) (float64, bool) {
			if b == 0 {
				return 0, false
			}
			return a / b, true
		},
		Derivative: quotientDerivative,
	}
	Power = &BinaryOp{
		Name:  "power",
		Apply: func(a, b float64) (float64, bool) { return finite(math.Pow(a, b)) },
	}

	Sqrt = &UnaryOp{
		Name: "sqrt",
		Apply: func(a float64) (float64, bool) {
			if a < 0 {
				return 0, false
			}
			return math.Sqrt(a), true
		},
		Slope: func(a float64) (float64, bool) {
			if a <= 0 {
				return 0, false
			}
			return 0.5 / math.Sqrt(a), true
		},
	}
	Exp = &UnaryOp{
		Name:  "exp",
		Apply: func(a float64) (float64, bool) { return finite(math.Exp(a)) },
		Slope: func(a float64) (float64, bool) { return finite(math.Exp(a)) },
	}
	Log = &UnaryOp{
		Name: "log",
		Apply: func(a float64) (float64, bool) {
			if a <= 0 {
				return 0, false
			}
			return math.Log(a), true
		},
		Slope: func(a float64) (float64, bool) {
			if a <= 0 {
				return 0, false
			}
			return 1 / a, true
		},
	}
	Abs = &UnaryOp{
		Name:  "abs",
		Apply: func(a float64) (float64, bool) { return math.Abs(a), true },
		Slope: func(a float64) (float64, bool) {
			if a < 0 {
				return -1, true
			}
			return 1, true
		},
	}
)

// BinaryOps and UnaryOps list the operations registered by this package.
var (
	BinaryOps = []*BinaryOp{Add, Subtract, Multiply, Divide, Power}
	UnaryOps  = []*UnaryOp{Sqrt, Exp, Log, Abs}
)

func finite(v float64) (float64, bool) {
	return v, !math.IsNaN(v) && !math.IsInf(v, 0)
}

// at broadcasts scalars.
func at(values []float64, i int) float64 {
	if len(values) == 1 {
		return values[0]
	}
	return values[i]
}

func component(dv *valuecache.Derivative, i int) []float64 {
	if dv.Components == 1 {
		return dv.Component(0)
	}
	return dv.Component(i)
}

// BinaryCore applies a BinaryOp to two sources.
type BinaryCore struct {
	field.BaseCore
	op *BinaryOp
}

func NewBinaryCore(op *BinaryOp) *BinaryCore {
	return &BinaryCore{op: op}
}

func (c *BinaryCore) TypeName() string { return c.op.Name }

func (c *BinaryCore) Components(sources []*field.Field) (int, error) {
	if err := field.RequireSources(c.TypeName(), sources, 2); err != nil {
		return 0, err
	}
	return BroadcastComponents(c.TypeName(), sources...)
}

// BroadcastComponents checks that numeric sources agree on a component
// count, allowing scalars, and returns it.
func BroadcastComponents(typeName string, sources ...*field.Field) (int, error) {
	if len(sources) == 0 {
		return 0, field.ShapeMismatchf("%s requires source fields", typeName)
	}
	if err := field.RequireReal(typeName, sources...); err != nil {
		return 0, err
	}
	n := 1
	for _, src := range sources {
		k := src.Components()
		switch {
		case k == 1 || k == n:
		case n == 1:
			n = k
		default:
			return 0, field.ShapeMismatchf("%s sources have %d and %d components", typeName, n, k)
		}
	}
	return n, nil
}

func (c *BinaryCore) Evaluate(cache *field.Cache, f *field.Field, vc valuecache.Cache) error {
	a, err := cache.EvaluateReal(f.Source(0))
	if err != nil {
		return err
	}
	b, err := cache.EvaluateReal(f.Source(1))
	if err != nil {
		return err
	}
	out := vc.(*valuecache.Real).Values
	for i := range out {
		v, ok := c.op.Apply(at(a, i), at(b, i))
		if !ok {
			return field.ErrNumericDegenerate
		}
		out[i] = v
	}
	return nil
}

func (c *BinaryCore) EvaluateDerivative(cache *field.Cache, f *field.Field, d *field.Derivative, out *valuecache.Derivative) error {
	if c.op.Derivative == nil {
		return field.FiniteDifference(cache, f, d, out)
	}
	return c.op.Derivative(cache, f, d, out)
}

func (c *BinaryCore) Compare(other field.Core) bool {
	o, ok := other.(*BinaryCore)
	return ok && o.op == c.op
}

func (c *BinaryCore) Describe() field.Description {
	return field.Description{Type: c.TypeName()}
}

// linearDerivative differentiates a + sign*b at any order.
func linearDerivative(sign float64) DerivativeFunc {
	return func(c *field.Cache, f *field.Field, d *field.Derivative, out *valuecache.Derivative) error {
		srcs, err := field.LinearDerivative(c, f, d)
		if err != nil {
			return err
		}
		for i := range out.Components {
			a, b := component(srcs[0], i), component(srcs[1], i)
			dst := out.Component(i)
			for t := range dst {
				dst[t] = a[t] + sign*b[t]
			}
		}
		return nil
	}
}

// productDerivative applies the product rule for first derivatives.
func productDerivative(c *field.Cache, f *field.Field, d *field.Derivative, out *valuecache.Derivative) error {
	if d.Order() > 1 {
		return field.FiniteDifference(c, f, d, out)
	}
	a, b, da, db, err := operands(c, f, d)
	if err != nil {
		return err
	}
	for i := range out.Components {
		ai, bi := at(a, i), at(b, i)
		dai, dbi := component(da, i), component(db, i)
		dst := out.Component(i)
		for t := range dst {
			dst[t] = dai[t]*bi + ai*dbi[t]
		}
	}
	return nil
}

// quotientDerivative applies the quotient rule for first derivatives.
func quotientDerivative(c *field.Cache, f *field.Field, d *field.Derivative, out *valuecache.Derivative) error {
	if d.Order() > 1 {
		return field.FiniteDifference(c, f, d, out)
	}
	a, b, da, db, err := operands(c, f, d)
	if err != nil {
		return err
	}
	for i := range out.Components {
		ai, bi := at(a, i), at(b, i)
		if bi == 0 {
			return field.ErrNumericDegenerate
		}
		dai, dbi := component(da, i), component(db, i)
		dst := out.Component(i)
		for t := range dst {
			dst[t] = (dai[t]*bi - ai*dbi[t]) / (bi * bi)
		}
	}
	return nil
}

func operands(c *field.Cache, f *field.Field, d *field.Derivative) (a, b []float64, da, db *valuecache.Derivative, err error) {
	if a, err = c.EvaluateReal(f.Source(0)); err != nil {
		return
	}
	if b, err = c.EvaluateReal(f.Source(1)); err != nil {
		return
	}
	if da, err = c.EvaluateDerivative(f.Source(0), d); err != nil {
		return
	}
	db, err = c.EvaluateDerivative(f.Source(1), d)
	return
}

// UnaryCore applies a UnaryOp to one source.
type UnaryCore struct {
	field.BaseCore
	op *UnaryOp
}

func NewUnaryCore(op *UnaryOp) *UnaryCore {
	return &UnaryCore{op: op}
}

func (c *UnaryCore) TypeName() string { return c.op.Name }

func (c *UnaryCore) Components(sources []*field.Field) (int, error) {
	if err := field.RequireSources(c.TypeName(), sources, 1); err != nil {
		return 0, err
	}
	if err := field.RequireReal(c.TypeName(), sources...); err != nil {
		return 0, err
	}
	return sources[0].Components(), nil
}

func (c *UnaryCore) Evaluate(cache *field.Cache, f *field.Field, vc valuecache.Cache) error {
	a, err := cache.EvaluateReal(f.Source(0))
	if err != nil {
		return err
	}
	out := vc.(*valuecache.Real).Values
	for i := range out {
		v, ok := c.op.Apply(a[i])
		if !ok {
			return field.ErrNumericDegenerate
		}
		out[i] = v
	}
	return nil
}

// EvaluateDerivative uses the chain rule for first derivatives.
func (c *UnaryCore) EvaluateDerivative(cache *field.Cache, f *field.Field, d *field.Derivative, out *valuecache.Derivative) error {
	if c.op.Derivative != nil {
		return c.op.Derivative(cache, f, d, out)
	}
	if c.op.Slope == nil || d.Order() > 1 {
		return field.FiniteDifference(cache, f, d, out)
	}
	a, err := cache.EvaluateReal(f.Source(0))
	if err != nil {
		return err
	}
	da, err := cache.EvaluateDerivative(f.Source(0), d)
	if err != nil {
		return err
	}
	for i := range out.Components {
		slope, ok := c.op.Slope(a[i])
		if !ok {
			return field.ErrNumericDegenerate
		}
		src, dst := da.Component(i), out.Component(i)
		for t := range dst {
			dst[t] = slope * src[t]
		}
	}
	return nil
}

func (c *UnaryCore) Compare(other field.Core) bool {
	o, ok := other.(*UnaryCore)
	return ok && o.op == c.op
}

func (c *UnaryCore) Describe() field.Description {
	return field.Description{Type: c.TypeName()}
}

// CreateBinary creates a field applying op to a and b.
func CreateBinary(m *field.Module, name string, op *BinaryOp, a, b *field.Field) (*field.Field, error) {
	return m.CreateField(name, NewBinaryCore(op), a, b)
}

// CreateUnary creates a field applying op to a.
func CreateUnary(m *field.Module, name string, op *UnaryOp, a *field.Field) (*field.Field, error) {
	return m.CreateField(name, NewUnaryCore(op), a)
}

func CreateAdd(m *field.Module, name string, a, b *field.Field) (*field.Field, error) {
	return CreateBinary(m, name, Add, a, b)
}

func CreateMultiply(m *field.Module, name string, a, b *field.Field) (*field.Field, error) {
	return CreateBinary(m, name, Multiply, a, b)
}

func CreateDivide(m *field.Module, name string, a, b *field.Field) (*field.Field, error) {
	return CreateBinary(m, name, Divide, a, b)
}

// RegisterUnary registers op as a field type with one source and no
// attributes.
func RegisterUnary(r *registry.Registry, op *UnaryOp) {
	r.RegisterFieldType(&registry.FieldType{
		Name: op.Name,
		Decode: func(*registry.DecodeContext) (field.Core, error) {
			return NewUnaryCore(op), nil
		},
	})
}

// RegisterBinary registers op as a field type with two sources and no
// attributes.
func RegisterBinary(r *registry.Registry, op *BinaryOp) {
	r.RegisterFieldType(&registry.FieldType{
		Name: op.Name,
		Decode: func(*registry.DecodeContext) (field.Core, error) {
			return NewBinaryCore(op), nil
		},
	})
}

// Register registers the field types with the registry.
func (m *Module) Register(r *registry.Registry) {
	for _, op := range BinaryOps {
		RegisterBinary(r, op)
	}
	for _, op := range UnaryOps {
		RegisterUnary(r, op)
	}
}
