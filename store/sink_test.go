package store

import (
	"context"
	"testing"

	"github.com/phanxgames/sketchboard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSink_PersistsEveryChange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sink := NewSink(s, "doc-1", "Board", nil)

	e := sketchboard.New(nil, sketchboard.WithChangeSink(sink))
	a := e.CreateNode(sketchboard.ShapeProcess, 0, 0)
	b := e.CreateNode(sketchboard.ShapeDecision, 300, 0)
	_, err := e.AddConnection(a, b, sketchboard.RelationFlow)
	require.NoError(t, err)
	require.NoError(t, sink.LastErr)

	body, err := s.Load(ctx, "doc-1")
	require.NoError(t, err)
	doc, err := sketchboard.ParseDocument(body)
	require.NoError(t, err)
	require.Len(t, doc.Sheets, 1)
	assert.Len(t, doc.Sheets[0].Nodes, 2)
	assert.Len(t, doc.Sheets[0].Connections, 1)

	revs, err := s.Revisions(ctx, "doc-1", 0)
	require.NoError(t, err)
	require.Len(t, revs, 3)
	assert.Equal(t, "connection_add", revs[0].Reason)
	assert.Equal(t, "node_add", revs[2].Reason)

	rec, err := s.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Board", rec.Name)
}

func TestSink_ViewportChangesSkipRevisions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sink := NewSink(s, "doc-1", "", nil)

	e := sketchboard.New(nil, sketchboard.WithChangeSink(sink))
	e.Zoom(2)

	_, err := s.Load(ctx, "doc-1")
	require.NoError(t, err, "viewport change still saves the document")

	revs, err := s.Revisions(ctx, "doc-1", 0)
	require.NoError(t, err)
	assert.Empty(t, revs)
}

func TestSink_ReloadRestoresEngine(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sink := NewSink(s, "doc-1", "", nil)

	e := sketchboard.New(nil, sketchboard.WithChangeSink(sink))
	e.CreateNode(sketchboard.ShapeNote, 40, 40)
	_, err := e.AddSheet("Second")
	require.NoError(t, err)

	body, err := s.Load(ctx, "doc-1")
	require.NoError(t, err)

	e2 := sketchboard.New(nil)
	require.NoError(t, e2.Load(body))
	assert.Len(t, e2.Sheets(), 2)
	assert.Equal(t, 1, e2.ActiveSheet())
	assert.Len(t, e2.Sheets()[0].Nodes, 1)
}
