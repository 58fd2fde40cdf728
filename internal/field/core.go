package field

import (
	"github.com/specialistvlad/fieldgraph/internal/valuecache"
	"github.com/zclconf/go-cty/cty"
)

// ValueType is the kind of value a field produces.
type ValueType int

const (
	ValueTypeReal ValueType = iota
	ValueTypeString
)

func (v ValueType) String() string {
	if v == ValueTypeString {
		return "string"
	}
	return "real"
}

// AssignResult is the outcome of an inverse evaluation.
type AssignResult int

const (
	AssignFail AssignResult = iota
	AssignPartial
	AssignAll
)

func (r AssignResult) String() string {
	switch r {
	case AssignAll:
		return "all_values_set"
	case AssignPartial:
		return "partial_values_set"
	default:
		return "fail"
	}
}

// AssignTally folds the results of assigning to several parts of a value.
type AssignTally struct {
	set, partial, total int
}

func (t *AssignTally) Add(r AssignResult) {
	t.total++
	switch r {
	case AssignAll:
		t.set++
	case AssignPartial:
		t.partial++
	}
}

// Result is AssignAll when every part was fully set, AssignFail when none
// was set at all and AssignPartial otherwise.
func (t *AssignTally) Result() AssignResult {
	switch {
	case t.total > 0 && t.set == t.total:
		return AssignAll
	case t.set == 0 && t.partial == 0:
		return AssignFail
	default:
		return AssignPartial
	}
}

// Description is the re-creatable definition of a core: its type name and
// its parameters, excluding source fields.
type Description struct {
	Type       string
	Attributes map[string]cty.Value
}

// Core is the behaviour of one field type. Cores hold parameters only and
// never per-location state; the field passed to each method is the one that
// owns the core.
type Core interface {
	TypeName() string
	ValueType() ValueType

	// Components validates the sources and returns the output component
	// count. It must return an ErrShapeMismatch error for bad definitions.
	Components(sources []*Field) (int, error)

	// Evaluate fills vc with the value of f at the cache's location.
	Evaluate(c *Cache, f *Field, vc valuecache.Cache) error

	// EvaluateDerivative fills out with the derivative of f described by d.
	EvaluateDerivative(c *Cache, f *Field, d *Derivative, out *valuecache.Derivative) error

	// IsDefinedAt is a cheap definedness check at the cache's location.
	IsDefinedAt(c *Cache, f *Field) bool

	// Assign pushes the value held in vc back into whatever f is computed
	// from.
	Assign(c *Cache, f *Field, vc valuecache.Cache) AssignResult

	// Compare reports structural equality of parameters.
	Compare(other Core) bool

	Describe() Description
}

// SumSquaresCore is implemented by cores whose value is a sum of squared
// terms, so least-squares consumers can get the individual terms.
type SumSquaresCore interface {
	Core
	// SumSquareTerms returns the unsquared terms, components per term.
	SumSquareTerms(c *Cache, f *Field) ([]float64, error)
}

// BaseCore provides the default behaviour shared by most cores. Embed it and
// override what the type does better.
type BaseCore struct{}

func (BaseCore) ValueType() ValueType { return ValueTypeReal }

// IsDefinedAt falls back to a full evaluation.
func (BaseCore) IsDefinedAt(c *Cache, f *Field) bool {
	_, err := c.Evaluate(f)
	return err == nil
}

// EvaluateDerivative falls back to finite differences.
func (BaseCore) EvaluateDerivative(c *Cache, f *Field, d *Derivative, out *valuecache.Derivative) error {
	return FiniteDifference(c, f, d, out)
}

func (BaseCore) Assign(*Cache, *Field, valuecache.Cache) AssignResult {
	return AssignFail
}
