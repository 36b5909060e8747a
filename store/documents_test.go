package store

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := OpenDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		database.Close()
	})
	return database
}

// newTestStore returns a store whose clock advances one second per call.
func newTestStore(t *testing.T) *DocumentStore {
	t.Helper()
	s := NewDocumentStore(newTestDB(t))
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return s
}

const twoSheets = `{"sheets":[{"name":"A"},{"name":"B"}],"activeSheet":1}`

func TestMigrate_Idempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))
}

func TestDocumentStore_SaveAndLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "doc-1", "Plan", []byte(twoSheets)))

	body, err := s.Load(ctx, "doc-1")
	require.NoError(t, err)
	assert.JSONEq(t, twoSheets, string(body))

	rec, err := s.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Plan", rec.Name)
	assert.Equal(t, 2, rec.SheetCount)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestDocumentStore_SaveUpserts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "doc-1", "Plan", []byte(twoSheets)))
	first, err := s.Get(ctx, "doc-1")
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx, "doc-1", "", []byte(`{"sheets":[{}]}`)))
	rec, err := s.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Plan", rec.Name, "empty name keeps the stored one")
	assert.Equal(t, 1, rec.SheetCount)
	assert.Equal(t, first.CreatedAt, rec.CreatedAt)
	assert.True(t, rec.UpdatedAt.After(first.UpdatedAt))
}

func TestDocumentStore_SaveRejectsInvalidJSON(t *testing.T) {
	s := newTestStore(t)
	err := s.Save(context.Background(), "doc-1", "", []byte("{not json"))
	require.Error(t, err)

	_, err = s.Load(context.Background(), "doc-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDocumentStore_LoadMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDocumentStore_ListNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "a", "A", []byte(twoSheets)))
	require.NoError(t, s.Save(ctx, "b", "B", []byte(twoSheets)))
	require.NoError(t, s.Save(ctx, "a", "", []byte(twoSheets)))

	recs, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].ID)
	assert.Equal(t, "b", recs[1].ID)
}

func TestDocumentStore_DeleteCascadesRevisions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "doc-1", "", []byte(twoSheets)))
	require.NoError(t, s.AddRevision(ctx, "doc-1", "node_add", []byte(twoSheets), 0))
	require.NoError(t, s.Delete(ctx, "doc-1"))

	revs, err := s.Revisions(ctx, "doc-1", 0)
	require.NoError(t, err)
	assert.Empty(t, revs)

	assert.ErrorIs(t, s.Delete(ctx, "doc-1"), ErrNotFound)
}

func TestDocumentStore_RevisionsTrimmed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "doc-1", "", []byte(twoSheets)))

	for i := 0; i < 5; i++ {
		body := fmt.Sprintf(`{"sheets":[],"activeSheet":%d}`, i)
		require.NoError(t, s.AddRevision(ctx, "doc-1", "node_add", []byte(body), 3))
	}

	revs, err := s.Revisions(ctx, "doc-1", 0)
	require.NoError(t, err)
	require.Len(t, revs, 3)
	assert.JSONEq(t, `{"sheets":[],"activeSheet":4}`, string(revs[0].Body))
	assert.JSONEq(t, `{"sheets":[],"activeSheet":2}`, string(revs[2].Body))

	limited, err := s.Revisions(ctx, "doc-1", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestDocumentStore_RevisionRequiresDocument(t *testing.T) {
	s := newTestStore(t)
	err := s.AddRevision(context.Background(), "missing", "node_add", []byte(twoSheets), 0)
	assert.Error(t, err, "foreign key must reject a revision without a document")
}
