// Package matrix provides field types that treat their sources as matrices
// stored row-major.
//
//   - determinant: the determinant of a square matrix.
//   - transpose: the transpose of a matrix with source_rows rows.
//   - matrix_multiply: the product of a rows×k and a k×cols matrix.
//   - matrix_invert: the inverse of a square matrix. Singular matrices are
//     numerically degenerate.
//   - projection: a vector of n components transformed by an (m+1)×(n+1)
//     homogeneous matrix and divided by the perspective term.
//   - eigenvalues and eigenvectors: of a symmetric square matrix, in
//     descending order of eigenvalue. Only the upper triangle is read.
//
// The linear algebra is done with gonum.
package matrix

import (
	"math"

	"github.com/specialistvlad/fieldgraph/internal/field"
	"github.com/specialistvlad/fieldgraph/internal/registry"
	"github.com/specialistvlad/fieldgraph/internal/valuecache"
	"github.com/zclconf/go-cty/cty"
	"gonum.org/v1/gonum/mat"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// SquareSize returns n when components is n².
func SquareSize(components int) (int, bool) {
	n := int(math.Round(math.Sqrt(float64(components))))
	return n, n > 0 && n*n == components
}

func requireSquare(typeName string, src *field.Field) (int, error) {
	n, ok := SquareSize(src.Components())
	if !ok {
		return 0, field.ShapeMismatchf("%s requires a square matrix, %q has %d components", typeName, src.Name(), src.Components())
	}
	return n, nil
}

func oneSource(typeName string, sources []*field.Field) error {
	if err := field.RequireSources(typeName, sources, 1); err != nil {
		return err
	}
	return field.RequireReal(typeName, sources...)
}

// DeterminantCore is the determinant of a square matrix.
type DeterminantCore struct{ field.BaseCore }

func (DeterminantCore) TypeName() string { return "determinant" }

func (c DeterminantCore) Components(sources []*field.Field) (int, error) {
	if err := oneSource(c.TypeName(), sources); err != nil {
		return 0, err
	}
	if _, err := requireSquare(c.TypeName(), sources[0]); err != nil {
		return 0, err
	}
	return 1, nil
}

func (DeterminantCore) Evaluate(c *field.Cache, f *field.Field, vc valuecache.Cache) error {
	a, err := c.EvaluateReal(f.Source(0))
	if err != nil {
		return err
	}
	n, _ := SquareSize(len(a))
	vc.(*valuecache.Real).Values[0] = mat.Det(mat.NewDense(n, n, clone(a)))
	return nil
}

func (DeterminantCore) Compare(other field.Core) bool {
	_, ok := other.(DeterminantCore)
	return ok
}

func (c DeterminantCore) Describe() field.Description { return field.Description{Type: c.TypeName()} }

// TransposeCore transposes a matrix with a given row count.
type TransposeCore struct {
	field.BaseCore
	sourceRows int
}

func (TransposeCore) TypeName() string { return "transpose" }

func (c TransposeCore) Components(sources []*field.Field) (int, error) {
	if err := oneSource(c.TypeName(), sources); err != nil {
		return 0, err
	}
	n := sources[0].Components()
	if c.sourceRows < 1 || n%c.sourceRows != 0 {
		return 0, field.ShapeMismatchf("transpose: %d components do not form %d rows", n, c.sourceRows)
	}
	return n, nil
}

func (c TransposeCore) Evaluate(cache *field.Cache, f *field.Field, vc valuecache.Cache) error {
	a, err := cache.EvaluateReal(f.Source(0))
	if err != nil {
		return err
	}
	rows := c.sourceRows
	cols := len(a) / rows
	out := vc.(*valuecache.Real).Values
	t := mat.NewDense(cols, rows, out)
	t.Copy(mat.NewDense(rows, cols, clone(a)).T())
	return nil
}

// EvaluateDerivative permutes the source derivative at any order.
func (c TransposeCore) EvaluateDerivative(cache *field.Cache, f *field.Field, d *field.Derivative, out *valuecache.Derivative) error {
	da, err := cache.EvaluateDerivative(f.Source(0), d)
	if err != nil {
		return err
	}
	rows := c.sourceRows
	cols := f.Components() / rows
	for i := range rows {
		for j := range cols {
			copy(out.Component(j*rows+i), da.Component(i*cols+j))
		}
	}
	return nil
}

func (c TransposeCore) Compare(other field.Core) bool {
	o, ok := other.(TransposeCore)
	return ok && o.sourceRows == c.sourceRows
}

func (c TransposeCore) Describe() field.Description {
	return field.Description{
		Type:       c.TypeName(),
		Attributes: map[string]cty.Value{"source_rows": cty.NumberIntVal(int64(c.sourceRows))},
	}
}

// MultiplyCore multiplies a rows×k matrix by a k×cols matrix.
type MultiplyCore struct {
	field.BaseCore
	rows int
}

func (MultiplyCore) TypeName() string { return "matrix_multiply" }

func (c MultiplyCore) Components(sources []*field.Field) (int, error) {
	if err := field.RequireSources(c.TypeName(), sources, 2); err != nil {
		return 0, err
	}
	if err := field.RequireReal(c.TypeName(), sources...); err != nil {
		return 0, err
	}
	a, b := sources[0].Components(), sources[1].Components()
	if c.rows < 1 || a%c.rows != 0 {
		return 0, field.ShapeMismatchf("matrix_multiply: %d components do not form %d rows", a, c.rows)
	}
	inner := a / c.rows
	if b%inner != 0 {
		return 0, field.ShapeMismatchf("matrix_multiply: inner dimension %d does not divide %d components", inner, b)
	}
	return c.rows * (b / inner), nil
}

func (c MultiplyCore) Evaluate(cache *field.Cache, f *field.Field, vc valuecache.Cache) error {
	a, err := cache.EvaluateReal(f.Source(0))
	if err != nil {
		return err
	}
	b, err := cache.EvaluateReal(f.Source(1))
	if err != nil {
		return err
	}
	inner := len(a) / c.rows
	cols := len(b) / inner
	out := mat.NewDense(c.rows, cols, vc.(*valuecache.Real).Values)
	out.Mul(mat.NewDense(c.rows, inner, clone(a)), mat.NewDense(inner, cols, clone(b)))
	return nil
}

func (c MultiplyCore) Compare(other field.Core) bool {
	o, ok := other.(MultiplyCore)
	return ok && o.rows == c.rows
}

func (c MultiplyCore) Describe() field.Description {
	return field.Description{
		Type:       c.TypeName(),
		Attributes: map[string]cty.Value{"rows": cty.NumberIntVal(int64(c.rows))},
	}
}

// InvertCore inverts a square matrix.
type InvertCore struct{ field.BaseCore }

func (InvertCore) TypeName() string { return "matrix_invert" }

func (c InvertCore) Components(sources []*field.Field) (int, error) {
	if err := oneSource(c.TypeName(), sources); err != nil {
		return 0, err
	}
	if _, err := requireSquare(c.TypeName(), sources[0]); err != nil {
		return 0, err
	}
	return sources[0].Components(), nil
}

func (InvertCore) Evaluate(c *field.Cache, f *field.Field, vc valuecache.Cache) error {
	a, err := c.EvaluateReal(f.Source(0))
	if err != nil {
		return err
	}
	n, _ := SquareSize(len(a))
	inv, err := Invert(mat.NewDense(n, n, clone(a)))
	if err != nil {
		return err
	}
	copy(vc.(*valuecache.Real).Values, inv.RawMatrix().Data)
	return nil
}

func (InvertCore) Compare(other field.Core) bool {
	_, ok := other.(InvertCore)
	return ok
}

func (c InvertCore) Describe() field.Description { return field.Description{Type: c.TypeName()} }

// Invert returns the inverse of a, or field.ErrNumericDegenerate when a is
// singular or too badly conditioned to invert.
func Invert(a mat.Matrix) (*mat.Dense, error) {
	var inv mat.Dense
	if err := inv.Inverse(a); err != nil {
		return nil, field.ErrNumericDegenerate
	}
	return &inv, nil
}

// ProjectionCore applies a homogeneous transformation.
type ProjectionCore struct{ field.BaseCore }

func (ProjectionCore) TypeName() string { return "projection" }

func (c ProjectionCore) Components(sources []*field.Field) (int, error) {
	if err := field.RequireSources(c.TypeName(), sources, 2); err != nil {
		return 0, err
	}
	if err := field.RequireReal(c.TypeName(), sources...); err != nil {
		return 0, err
	}
	cols := sources[0].Components() + 1
	k := sources[1].Components()
	if k%cols != 0 || k/cols < 2 {
		return 0, field.ShapeMismatchf("projection of %d components needs an (m+1)x%d matrix, got %d components",
			cols-1, cols, k)
	}
	return k/cols - 1, nil
}

func (ProjectionCore) Evaluate(c *field.Cache, f *field.Field, vc valuecache.Cache) error {
	x, err := c.EvaluateReal(f.Source(0))
	if err != nil {
		return err
	}
	p, err := c.EvaluateReal(f.Source(1))
	if err != nil {
		return err
	}
	cols := len(x) + 1
	rows := len(p) / cols
	h := mat.NewVecDense(cols, nil)
	for i, v := range x {
		h.SetVec(i, v)
	}
	h.SetVec(len(x), 1)
	var y mat.VecDense
	y.MulVec(mat.NewDense(rows, cols, clone(p)), h)
	w := y.AtVec(rows - 1)
	if w == 0 {
		return field.ErrNumericDegenerate
	}
	out := vc.(*valuecache.Real).Values
	for i := range out {
		out[i] = y.AtVec(i) / w
	}
	return nil
}

func (ProjectionCore) Compare(other field.Core) bool {
	_, ok := other.(ProjectionCore)
	return ok
}

func (c ProjectionCore) Describe() field.Description { return field.Description{Type: c.TypeName()} }

// EigenCore computes eigenvalues, or eigenvectors when vectors is set.
type EigenCore struct {
	field.BaseCore
	vectors bool
}

func (c EigenCore) TypeName() string {
	if c.vectors {
		return "eigenvectors"
	}
	return "eigenvalues"
}

func (c EigenCore) Components(sources []*field.Field) (int, error) {
	if err := oneSource(c.TypeName(), sources); err != nil {
		return 0, err
	}
	n, err := requireSquare(c.TypeName(), sources[0])
	if err != nil {
		return 0, err
	}
	if c.vectors {
		return n * n, nil
	}
	return n, nil
}

func (c EigenCore) Evaluate(cache *field.Cache, f *field.Field, vc valuecache.Cache) error {
	a, err := cache.EvaluateReal(f.Source(0))
	if err != nil {
		return err
	}
	n, _ := SquareSize(len(a))
	var eig mat.EigenSym
	if !eig.Factorize(mat.NewSymDense(n, clone(a)), c.vectors) {
		return field.ErrNumericDegenerate
	}
	// Values come back ascending.
	values := eig.Values(nil)
	out := vc.(*valuecache.Real).Values
	if !c.vectors {
		for i := range n {
			out[i] = values[n-1-i]
		}
		return nil
	}
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	for i := range n {
		for j := range n {
			out[i*n+j] = vecs.At(j, n-1-i)
		}
	}
	return nil
}

func (c EigenCore) Compare(other field.Core) bool {
	o, ok := other.(EigenCore)
	return ok && o.vectors == c.vectors
}

func (c EigenCore) Describe() field.Description { return field.Description{Type: c.TypeName()} }

// gonum matrices alias their backing slice; cache slices must not be
// modified by it.
func clone(values []float64) []float64 {
	return append([]float64(nil), values...)
}

func CreateDeterminant(m *field.Module, name string, source *field.Field) (*field.Field, error) {
	return m.CreateField(name, DeterminantCore{}, source)
}

func CreateTranspose(m *field.Module, name string, sourceRows int, source *field.Field) (*field.Field, error) {
	return m.CreateField(name, TransposeCore{sourceRows: sourceRows}, source)
}

func CreateMultiply(m *field.Module, name string, rows int, a, b *field.Field) (*field.Field, error) {
	return m.CreateField(name, MultiplyCore{rows: rows}, a, b)
}

func CreateInvert(m *field.Module, name string, source *field.Field) (*field.Field, error) {
	return m.CreateField(name, InvertCore{}, source)
}

// CreateProjection creates a projection of source by a homogeneous matrix.
func CreateProjection(m *field.Module, name string, source, matrix *field.Field) (*field.Field, error) {
	return m.CreateField(name, ProjectionCore{}, source, matrix)
}

func CreateEigenvalues(m *field.Module, name string, source *field.Field) (*field.Field, error) {
	return m.CreateField(name, EigenCore{}, source)
}

func CreateEigenvectors(m *field.Module, name string, source *field.Field) (*field.Field, error) {
	return m.CreateField(name, EigenCore{vectors: true}, source)
}

func decodeInt(d *registry.DecodeContext, name string) (int, error) {
	var v int
	err := registry.Get(d, name, &v)
	return v, err
}

// Register registers the field types with the registry.
func (m *Module) Register(r *registry.Registry) {
	for _, core := range []field.Core{DeterminantCore{}, InvertCore{}, ProjectionCore{}, EigenCore{}, EigenCore{vectors: true}} {
		r.RegisterFieldType(&registry.FieldType{
			Name: core.TypeName(),
			Decode: func(*registry.DecodeContext) (field.Core, error) {
				return core, nil
			},
		})
	}
	r.RegisterFieldType(&registry.FieldType{
		Name:       "transpose",
		Attributes: map[string]cty.Type{"source_rows": cty.Number},
		Required:   []string{"source_rows"},
		Decode: func(d *registry.DecodeContext) (field.Core, error) {
			rows, err := decodeInt(d, "source_rows")
			return TransposeCore{sourceRows: rows}, err
		},
	})
	r.RegisterFieldType(&registry.FieldType{
		Name:       "matrix_multiply",
		Attributes: map[string]cty.Type{"rows": cty.Number},
		Required:   []string{"rows"},
		Decode: func(d *registry.DecodeContext) (field.Core, error) {
			rows, err := decodeInt(d, "rows")
			return MultiplyCore{rows: rows}, err
		},
	})
}
