package description_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/fieldgraph/internal/ctxlog"
	"github.com/specialistvlad/fieldgraph/internal/description"
	"github.com/specialistvlad/fieldgraph/internal/field"
	"github.com/specialistvlad/fieldgraph/internal/mesh"
	"github.com/specialistvlad/fieldgraph/internal/region"
	"github.com/specialistvlad/fieldgraph/internal/registry"
	"github.com/specialistvlad/fieldgraph/internal/testutil"
	"github.com/specialistvlad/fieldgraph/modules/arithmetic"
	"github.com/specialistvlad/fieldgraph/modules/constant"
	"github.com/specialistvlad/fieldgraph/modules/meshfield"
	"github.com/specialistvlad/fieldgraph/modules/nodeset"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const heatDescription = `
node {
  id     = 1
  values = { temperature = [10] }
}

node {
  id     = 2
  values = { temperature = [20] }
}

node {
  id     = 3
  values = { temperature = [40] }
}

nodeset "inlet" {
  node { id = 1 }
  node { id = 2 }
}

# scaled is listed before its sources on purpose.
field "scaled" {
  type          = "multiply"
  source_fields = ["mean_t", "factor"]
}

field "factor" {
  type    = "constant"
  values  = [2]
  managed = false
}

field "t" {
  type      = "node_value"
  parameter = "temperature"
}

field "mean_t" {
  type          = "nodeset_mean"
  source_fields = ["t"]
  nodeset       = "inlet"
}
`

func newRegistry() *registry.Registry {
	return registry.NewWith(
		&arithmetic.Module{},
		&constant.Module{},
		&meshfield.Module{},
		&nodeset.Module{},
	)
}

func evaluate(t *testing.T, r *region.Region, name string) []float64 {
	t.Helper()
	f := r.Module().FindFieldByName(name)
	require.NotNil(t, f, "field %q", name)
	defer f.Release()
	c := r.Module().NewCache()
	c.SetNode(mesh.Node(3))
	got, err := c.EvaluateReal(f)
	require.NoError(t, err)
	return got
}

func TestLoadBytes(t *testing.T) {
	r := region.New("heat")
	var events []*field.ChangeEvent
	r.Module().Subscribe(field.ObserverFunc(func(ev *field.ChangeEvent) {
		events = append(events, ev)
	}))

	logger, logs := testutil.NewLogger(t)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	err := description.LoadBytes(ctx, r, newRegistry(), "heat.hcl", []byte(heatDescription))
	require.NoError(t, err)

	assert.Equal(t, []float64{30}, evaluate(t, r, "scaled"))
	assert.Equal(t, []float64{15}, evaluate(t, r, "mean_t"))
	assert.Len(t, events, 1, "the whole description is one change batch")
	assert.Len(t, events[0].Changes, 4)
	assert.Contains(t, logs.String(), "Description applied.")

	factor := r.Module().FindFieldByName("factor")
	require.NotNil(t, factor, "unmanaged source is kept alive by its dependent")
	assert.False(t, factor.IsManaged())
	factor.Release()

	ns, ok := r.Mesh().Nodeset("inlet", false)
	require.True(t, ok)
	assert.Equal(t, 2, ns.Size())
}

func TestLoadRedefinesExistingField(t *testing.T) {
	r := region.New("")
	reg := newRegistry()
	ctx := context.Background()
	require.NoError(t, description.LoadBytes(ctx, r, reg, "a.hcl", []byte(`
field "c" {
  type   = "constant"
  values = [1]
}
field "twice" {
  type          = "add"
  source_fields = ["c", "c"]
}
`)))
	assert.Equal(t, []float64{2}, evaluate(t, r, "twice"))

	require.NoError(t, description.LoadBytes(ctx, r, reg, "b.hcl", []byte(`
field "c" {
  type   = "constant"
  values = [4]
}
`)))
	assert.Equal(t, []float64{8}, evaluate(t, r, "twice"))
}

func TestLoadErrors(t *testing.T) {
	testCases := []struct {
		name    string
		src     string
		summary string
	}{
		{
			name: "cycle",
			src: `
field "a" {
  type          = "sqrt"
  source_fields = ["b"]
}
field "b" {
  type          = "sqrt"
  source_fields = ["a"]
}
`,
			summary: "Circular field definitions",
		},
		{
			name: "unknown source",
			src: `
field "a" {
  type          = "sqrt"
  source_fields = ["missing"]
}
`,
			summary: "Unknown source field",
		},
		{
			name: "unknown type",
			src: `
field "a" {
  type = "warp_drive"
}
`,
			summary: "Invalid field definition",
		},
		{
			name: "bad attribute",
			src: `
field "a" {
  type   = "constant"
  values = [1]
  colour = "red"
}
`,
			summary: "Invalid field definition",
		},
		{
			name: "duplicate",
			src: `
field "a" {
  type   = "constant"
  values = [1]
}
field "a" {
  type   = "constant"
  values = [2]
}
`,
			summary: "Duplicate field",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := region.New("")
			err := description.LoadBytes(context.Background(), r, newRegistry(), "bad.hcl", []byte(tc.src))
			require.Error(t, err)

			var diags hcl.Diagnostics
			require.ErrorAs(t, err, &diags)
			assert.Equal(t, tc.summary, diags[0].Summary)
			assert.Zero(t, r.Module().Len(), "nothing of a failed description stays behind")
		})
	}
}

func TestLoadSyntaxError(t *testing.T) {
	err := description.LoadBytes(context.Background(), region.New(""), newRegistry(), "broken.hcl", []byte(`field "a" {`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse description broken.hcl")
}

func TestLoadDirectory(t *testing.T) {
	dir := testutil.WriteFiles(t, map[string]string{
		"mesh.hcl": `
node {
  id     = 7
  values = { pressure = [101.5] }
}
`,
		"fields/pressure.hcl": `
field "p" {
  type      = "node_value"
  parameter = "pressure"
}
`,
		"fields/derived.hcl": `
field "root_p" {
  type          = "sqrt"
  source_fields = ["p"]
}
`,
		"notes.txt": "ignored",
	})

	r := region.New("")
	require.NoError(t, description.Load(context.Background(), r, newRegistry(), dir))

	f := r.Module().FindFieldByName("root_p")
	require.NotNil(t, f)
	defer f.Release()
	c := r.Module().NewCache()
	c.SetNode(mesh.Node(7))
	got, err := c.EvaluateReal(f)
	require.NoError(t, err)
	assert.InDelta(t, 10.07472, got[0], 1e-5)

	err = description.Load(context.Background(), region.New(""), newRegistry(), filepath.Join(dir, "fields", "derived.hcl"))
	require.Error(t, err, "a source defined in another file must be loaded too")
}

func TestWriteRoundTrip(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry()
	src := region.New("heat")
	require.NoError(t, description.LoadBytes(ctx, src, reg, "heat.hcl", []byte(heatDescription)))
	_, err := src.Mesh().AddElement(1, 2)
	require.NoError(t, err)
	empty, _ := src.Mesh().Nodeset("outlet", true)
	require.NotNil(t, empty)

	mean := src.Module().FindFieldByName("mean_t")
	require.NotNil(t, mean)
	require.NoError(t, mean.SetComponentName(0, "celsius"))
	mean.Release()

	var out bytes.Buffer
	require.NoError(t, description.Write(&out, src))

	dst := region.New("copy")
	require.NoError(t, description.LoadBytes(ctx, dst, reg, "copy.hcl", out.Bytes()), out.String())

	for _, f := range src.Module().Fields() {
		copied := dst.Module().FindFieldByName(f.Name())
		require.NotNil(t, copied, f.Name())
		assert.Equal(t, f.CommandString(), copied.CommandString())
		assert.Equal(t, f.IsManaged(), copied.IsManaged(), f.Name())
		assert.Equal(t, f.ComponentName(0), copied.ComponentName(0), f.Name())
		copied.Release()
	}
	assert.Equal(t, src.Module().Len(), dst.Module().Len())
	assert.Equal(t, []float64{30}, evaluate(t, dst, "scaled"))

	el, ok := dst.Mesh().Element(1)
	require.True(t, ok)
	assert.Equal(t, 2, el.Dim)
	_, ok = dst.Mesh().Nodeset("outlet", false)
	assert.True(t, ok)

	var again bytes.Buffer
	require.NoError(t, description.Write(&again, dst))
	assert.Equal(t, out.String(), again.String(), "writing is deterministic")
}

func TestLoadFS(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/desc/a.hcl", []byte(`
field "half" {
  type          = "divide"
  source_fields = ["one", "two"]
}
`), 0644))
	require.NoError(t, afero.WriteFile(fsys, "/desc/b.hcl", []byte(`
field "one" {
  type   = "constant"
  values = [1]
}
field "two" {
  type   = "constant"
  values = [2]
}
`), 0644))

	r := region.New("")
	require.NoError(t, description.LoadFS(context.Background(), fsys, r, newRegistry(), "/desc"))
	assert.Equal(t, []float64{0.5}, evaluate(t, r, "half"))

	err := description.LoadFS(context.Background(), fsys, region.New(""), newRegistry(), "/nowhere")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no description files found in /nowhere")
}
