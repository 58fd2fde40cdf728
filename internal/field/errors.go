package field

import (
	"errors"
	"fmt"
)

var (
	// ErrUndefined means the field has no value at the current location. It
	// is an expected outcome, not a fault.
	ErrUndefined = errors.New("undefined at location")

	// ErrNumericDegenerate reports a numerical failure such as a singular
	// matrix or a zero-length normalise. It wraps ErrUndefined so callers
	// can treat both the same way.
	ErrNumericDegenerate = fmt.Errorf("%w: numerically degenerate", ErrUndefined)

	// ErrShapeMismatch rejects a field definition whose source arity or
	// component counts do not fit its core.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrManagerInvariant is the base of every rejected module operation.
	// The module is left unchanged when it is returned.
	ErrManagerInvariant = errors.New("field module invariant violation")

	ErrDuplicateName    = fmt.Errorf("%w: duplicate field name", ErrManagerInvariant)
	ErrInUse            = fmt.Errorf("%w: field in use", ErrManagerInvariant)
	ErrCycle            = fmt.Errorf("%w: field would depend on itself", ErrManagerInvariant)
	ErrUnbalancedChange = fmt.Errorf("%w: end change without matching begin", ErrManagerInvariant)
	ErrForeignField     = fmt.Errorf("%w: field belongs to another module", ErrManagerInvariant)
	ErrFieldRemoved     = fmt.Errorf("%w: field has been removed", ErrManagerInvariant)
	ErrNotFound         = fmt.Errorf("%w: field not found", ErrManagerInvariant)
)

// ShapeMismatchf returns an ErrShapeMismatch with details.
func ShapeMismatchf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrShapeMismatch, fmt.Sprintf(format, args...))
}

// RequireSources checks the exact source arity of a core.
func RequireSources(typeName string, sources []*Field, n int) error {
	if len(sources) != n {
		return ShapeMismatchf("%s requires %d source fields, got %d", typeName, n, len(sources))
	}
	return nil
}

// RequireReal rejects non-numeric sources.
func RequireReal(typeName string, sources ...*Field) error {
	for _, src := range sources {
		if src.ValueType() != ValueTypeReal {
			return ShapeMismatchf("%s requires numeric sources, %q is %s", typeName, src.Name(), src.ValueType())
		}
	}
	return nil
}
