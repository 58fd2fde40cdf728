package changefeed

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/fieldgraph/internal/field"
	"github.com/specialistvlad/fieldgraph/internal/testutil"
	"github.com/specialistvlad/fieldgraph/modules/constant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderBatches(t *testing.T) {
	m := field.NewModule(field.WithName("/body"))
	rec := &Recorder{}
	m.Subscribe(rec)

	guard := m.BeginChange()
	a, err := constant.CreateConstant(m, "a", 1)
	require.NoError(t, err)
	a.SetManaged(true)
	b, err := constant.CreateConstant(m, "b", 2)
	require.NoError(t, err)
	b.SetManaged(true)
	require.NoError(t, guard.End())

	require.NoError(t, a.SetName("alpha"))
	a.Release()
	b.Release()

	want := []Payload{
		{Module: "/body", Changes: []ChangePayload{
			{Field: "a", Index: a.Index(), Flags: []string{"added"}},
			{Field: "b", Index: b.Index(), Flags: []string{"added"}},
		}},
		{Module: "/body", Changes: []ChangePayload{
			{Field: "alpha", Index: a.Index(), Flags: []string{"identifier"}},
		}},
	}
	if diff := cmp.Diff(want, rec.Batches()); diff != "" {
		t.Errorf("recorded batches mismatch (-want +got):\n%s", diff)
	}

	rec.Reset()
	assert.Empty(t, rec.Batches())
}

func TestEncodePayloadDependencyFlags(t *testing.T) {
	m := field.NewModule(field.WithName("/"))
	rec := &Recorder{}
	m.Subscribe(rec)

	a, err := constant.CreateConstant(m, "a", 1)
	require.NoError(t, err)
	defer a.Release()
	c := testutil.NewCountingCore()
	d, err := m.CreateField("d", c, a)
	require.NoError(t, err)
	defer d.Release()
	rec.Reset()

	_, err = m.NewCache().AssignReal(a, []float64{5})
	require.NoError(t, err)

	want := []Payload{{Module: "/", Changes: []ChangePayload{
		{Field: "a", Index: a.Index(), Flags: []string{"result"}},
		{Field: "d", Index: d.Index(), Flags: []string{"dependency_result"}},
	}}}
	if diff := cmp.Diff(want, rec.Batches()); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestLogObserver(t *testing.T) {
	logger, logs := testutil.NewLogger(t)
	m := field.NewModule(field.WithName("/lungs"))
	m.Subscribe(NewLogObserver(logger))

	f, err := constant.CreateConstant(m, "volume", 3)
	require.NoError(t, err)
	f.Release()

	out := logs.String()
	assert.Contains(t, out, "Field changed.")
	assert.Contains(t, out, "field=volume")
	assert.Contains(t, out, "module=/lungs")
}

func TestPublisherFieldsChanged(t *testing.T) {
	logger, logs := testutil.NewLogger(t)
	type emitted struct {
		event   string
		payload Payload
	}
	var sent []emitted
	online := true
	p := &Publisher{
		logger:    logger,
		runID:     "run-1",
		emit:      func(event string, payload Payload) { sent = append(sent, emitted{event, payload}) },
		connected: func() bool { return online },
		close:     func() { online = false },
	}

	m := field.NewModule(field.WithName("/"))
	m.Subscribe(p)
	f, err := constant.CreateConstant(m, "x", 1)
	require.NoError(t, err)

	require.Len(t, sent, 1)
	assert.Equal(t, EventName, sent[0].event)
	assert.Equal(t, "x", sent[0].payload.Changes[0].Field)
	assert.Equal(t, "run-1", sent[0].payload.Run)

	p.Close()
	f.Release()
	assert.Len(t, sent, 1, "nothing is emitted while disconnected")
	assert.Contains(t, logs.String(), "dropping batch")
}

func TestDialRejectsBadURL(t *testing.T) {
	testCases := []struct {
		name string
		url  string
	}{
		{"no scheme", "localhost:3000"},
		{"empty", ""},
		{"unparsable", "http://[::1"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_, err := Dial(ctx, PublisherConfig{URL: tc.url})
			require.Error(t, err)
		})
	}
}
