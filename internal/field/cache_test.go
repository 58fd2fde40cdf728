package field

import (
	"sync"
	"testing"

	"github.com/specialistvlad/fieldgraph/internal/changelog"
	"github.com/specialistvlad/fieldgraph/internal/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoization(t *testing.T) {
	m := NewModule()
	a, _ := m.CreateField("a", newConst(1, 2))
	calls := 0
	counted, err := m.CreateField("counted", countingCore{calls: &calls}, a)
	require.NoError(t, err)

	cache := m.NewCache()
	for range 3 {
		values, err := cache.EvaluateReal(counted)
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 2}, values)
	}
	assert.Equal(t, 1, calls, "one evaluation per location")

	cache.SetNode(mesh.Node(1))
	_, _ = cache.EvaluateReal(counted)
	cache.SetNode(mesh.Node(1))
	_, _ = cache.EvaluateReal(counted)
	assert.Equal(t, 2, calls, "setting an equal location keeps memoized values")

	cache.SetTime(0.5)
	_, _ = cache.EvaluateReal(counted)
	assert.Equal(t, 3, calls, "time is part of the location")
	assert.Equal(t, 0.5, cache.Time())

	other := m.NewCache()
	_, _ = other.EvaluateReal(counted)
	assert.Equal(t, 4, calls, "caches memoize independently")

	cache.Invalidate()
	_, _ = cache.EvaluateReal(counted)
	assert.Equal(t, 5, calls)
}

func TestFailuresAreNotMemoized(t *testing.T) {
	m := NewModule()
	bad, _ := m.CreateField("bad", failCore{})
	calls := 0
	counted, err := m.CreateField("counted", countingCore{calls: &calls}, bad)
	require.NoError(t, err)

	cache := m.NewCache()
	for range 2 {
		_, err := cache.EvaluateReal(counted)
		require.ErrorIs(t, err, ErrUndefined)
	}
	assert.Equal(t, 2, calls)
	assert.False(t, cache.IsDefined(counted))
}

func TestModuleChangeInvalidatesCaches(t *testing.T) {
	m := NewModule()
	a, _ := m.CreateField("a", newConst(1))
	calls := 0
	counted, _ := m.CreateField("counted", countingCore{calls: &calls}, a)

	reader := m.NewCache()
	_, err := reader.EvaluateReal(counted)
	require.NoError(t, err)

	writer := m.NewCache()
	result, err := writer.AssignReal(a, []float64{42})
	require.NoError(t, err)
	assert.Equal(t, AssignAll, result)

	values, err := reader.EvaluateReal(counted)
	require.NoError(t, err)
	assert.Equal(t, []float64{42}, values)
	assert.Equal(t, 2, calls)
}

func TestAssign(t *testing.T) {
	m := NewModule()
	a, _ := m.CreateField("a", newConst(1, 2))
	sum, _ := m.CreateField("sum", sumCore{}, a, a)
	s, _ := m.CreateField("s", &stringCore{value: "initial"})
	var events []*ChangeEvent
	m.Subscribe(ObserverFunc(func(ev *ChangeEvent) { events = append(events, ev) }))

	cache := m.NewCache()

	t.Run("wrong length", func(t *testing.T) {
		result, err := cache.AssignReal(a, []float64{1})
		require.ErrorIs(t, err, ErrShapeMismatch)
		assert.Equal(t, AssignFail, result)
	})

	t.Run("wrong value type", func(t *testing.T) {
		_, err := cache.AssignString(a, "x")
		require.ErrorIs(t, err, ErrShapeMismatch)
		_, err = cache.AssignReal(s, []float64{1})
		require.ErrorIs(t, err, ErrShapeMismatch)
	})

	t.Run("not settable", func(t *testing.T) {
		result, err := cache.AssignReal(sum, []float64{1, 1})
		require.NoError(t, err)
		assert.Equal(t, AssignFail, result)
		assert.Empty(t, events)
	})

	t.Run("string round trip", func(t *testing.T) {
		result, err := cache.AssignString(s, "abc")
		require.NoError(t, err)
		assert.Equal(t, AssignAll, result)
		value, err := cache.EvaluateString(s)
		require.NoError(t, err)
		assert.Equal(t, "abc", value)
		require.Len(t, events, 1)
		assert.Equal(t, changelog.Result, events[0].FlagsFor(s))
	})

	t.Run("numeric as string", func(t *testing.T) {
		value, err := cache.EvaluateString(sum)
		require.NoError(t, err)
		assert.Equal(t, "2 4", value)
		_, err = cache.EvaluateReal(s)
		assert.ErrorIs(t, err, ErrShapeMismatch)
	})
}

func TestEvaluateRejectsStaleFields(t *testing.T) {
	m := NewModule()
	a, _ := m.CreateField("a", newConst(1))
	other := NewModule()
	b, _ := other.CreateField("b", newConst(1))

	cache := m.NewCache()
	_, err := cache.EvaluateReal(b)
	assert.ErrorIs(t, err, ErrForeignField)

	a.Release()
	_, err = cache.EvaluateReal(a)
	assert.ErrorIs(t, err, ErrFieldRemoved)
	assert.False(t, cache.IsDefined(a))
}

func TestIsDefined(t *testing.T) {
	m := NewModule()
	a, _ := m.CreateField("a", newConst(1))
	bad, _ := m.CreateField("bad", failCore{})
	sum, _ := m.CreateField("sum", sumCore{}, a, a)
	broken, _ := m.CreateField("broken", sumCore{}, a, bad)

	cache := m.NewCache()
	assert.True(t, cache.IsDefined(a))
	assert.False(t, cache.IsDefined(bad))
	assert.True(t, cache.IsDefined(sum))
	assert.False(t, cache.IsDefined(broken))
}

func TestSumSquareTermsUnsupported(t *testing.T) {
	m := NewModule()
	a, _ := m.CreateField("a", newConst(1))
	_, err := m.NewCache().EvaluateSumSquareTerms(a)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestConcurrentCaches(t *testing.T) {
	m := NewModule()
	a, _ := m.CreateField("a", newConst(1, 2, 3))
	b, _ := m.CreateField("b", newConst(10, 20, 30))
	sum, _ := m.CreateField("sum", sumCore{}, a, b)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(node int) {
			defer wg.Done()
			cache := m.NewCache()
			for n := range 50 {
				cache.SetNode(mesh.Node(node*100 + n))
				values, err := cache.EvaluateReal(sum)
				if assert.NoError(t, err) {
					assert.Equal(t, []float64{11, 22, 33}, values)
				}
			}
		}(i)
	}
	wg.Wait()
}
