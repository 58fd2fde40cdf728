package testutil

import (
	"sync/atomic"

	"github.com/specialistvlad/fieldgraph/internal/field"
	"github.com/specialistvlad/fieldgraph/internal/valuecache"
)

// CountingCore passes one numeric source through and counts how often it
// was evaluated.
type CountingCore struct {
	field.BaseCore
	Calls *atomic.Int64
}

// NewCountingCore returns a core with a fresh counter.
func NewCountingCore() *CountingCore {
	return &CountingCore{Calls: new(atomic.Int64)}
}

func (c *CountingCore) TypeName() string { return "counting" }

func (c *CountingCore) Components(sources []*field.Field) (int, error) {
	if err := field.RequireSources(c.TypeName(), sources, 1); err != nil {
		return 0, err
	}
	return sources[0].Components(), nil
}

func (c *CountingCore) Evaluate(cache *field.Cache, f *field.Field, vc valuecache.Cache) error {
	c.Calls.Add(1)
	values, err := cache.EvaluateReal(f.Source(0))
	if err != nil {
		return err
	}
	copy(vc.(*valuecache.Real).Values, values)
	return nil
}

func (c *CountingCore) Compare(other field.Core) bool { return c == other }

func (c *CountingCore) Describe() field.Description {
	return field.Description{Type: c.TypeName()}
}

// FailingCore is undefined everywhere.
type FailingCore struct {
	field.BaseCore
	N int
}

func (c FailingCore) TypeName() string { return "failing" }

func (c FailingCore) Components([]*field.Field) (int, error) {
	return max(c.N, 1), nil
}

func (FailingCore) Evaluate(*field.Cache, *field.Field, valuecache.Cache) error {
	return field.ErrUndefined
}

func (FailingCore) IsDefinedAt(*field.Cache, *field.Field) bool { return false }

func (c FailingCore) Compare(other field.Core) bool {
	o, ok := other.(FailingCore)
	return ok && o.N == c.N
}

func (c FailingCore) Describe() field.Description {
	return field.Description{Type: c.TypeName()}
}
