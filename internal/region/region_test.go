package region

import (
	"testing"

	"github.com/specialistvlad/fieldgraph/internal/field"
	"github.com/specialistvlad/fieldgraph/internal/testutil"
	"github.com/specialistvlad/fieldgraph/modules/constant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTree(t *testing.T) (root, body, heart *Region) {
	t.Helper()
	logger, _ := testutil.NewLogger(t)
	root = New("root", WithLogger(logger))
	body, err := root.CreateChild("body")
	require.NoError(t, err)
	heart, err = body.CreateChild("heart")
	require.NoError(t, err)
	return root, body, heart
}

func TestTree(t *testing.T) {
	root, body, heart := newTree(t)

	assert.Equal(t, "/", root.Path())
	assert.Equal(t, "/body/heart", heart.Path())
	assert.Equal(t, "/body/heart", heart.Module().Name())
	assert.Same(t, body, heart.Parent())
	assert.Same(t, heart, root.FindSubregion("body/heart"))
	assert.Same(t, heart, root.FindSubregion("/body//heart/"))
	assert.Same(t, root, root.FindSubregion(""))
	assert.Nil(t, root.FindSubregion("body/lung"))
	assert.Same(t, root.Module(), body.Module().Parent())

	_, err := root.CreateChild("body")
	assert.ErrorContains(t, err, "already has a child")
	_, err = root.CreateChild("a/b")
	assert.ErrorContains(t, err, "invalid region name")
}

func TestHierarchicalChange(t *testing.T) {
	root, body, heart := newTree(t)
	var batches []string
	for _, r := range []*Region{root, body, heart} {
		r.Module().Subscribe(field.ObserverFunc(func(ev *field.ChangeEvent) {
			batches = append(batches, ev.Module.Name())
		}))
	}

	guard := root.BeginHierarchicalChange()
	for _, r := range []*Region{heart, body, heart} {
		f, err := constant.CreateConstant(r.Module(), "", 1)
		require.NoError(t, err)
		f.SetManaged(true)
		f.Release()
	}
	assert.Empty(t, batches)
	require.NoError(t, guard.End())

	assert.Equal(t, []string{"/body/heart", "/body"}, batches)
}

func TestDestroy(t *testing.T) {
	t.Run("clean teardown", func(t *testing.T) {
		root, body, _ := newTree(t)
		f, err := constant.CreateConstant(body.Module(), "c", 1)
		require.NoError(t, err)
		f.SetManaged(true)
		f.Release()

		require.NoError(t, body.Destroy())
		assert.Empty(t, root.Children())
		assert.Nil(t, body.Parent())
		assert.Empty(t, root.Module().Children())
		assert.Zero(t, body.Module().Len())
	})

	t.Run("reports every module with held fields", func(t *testing.T) {
		root, body, heart := newTree(t)
		_, err := constant.CreateConstant(heart.Module(), "held", 1)
		require.NoError(t, err)
		_, err = constant.CreateConstant(body.Module(), "also_held", 1)
		require.NoError(t, err)

		err = root.Destroy()
		require.Error(t, err)
		assert.ErrorIs(t, err, field.ErrInUse)
		assert.ErrorContains(t, err, `region "/body/heart"`)
		assert.ErrorContains(t, err, `region "/body"`)
		assert.ErrorContains(t, err, "2 errors occurred")
		assert.Empty(t, root.Children())
	})
}
