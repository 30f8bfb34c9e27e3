package session

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess, err := store.Create(ctx, "revsup-candidate-qualify", "user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "revsup-candidate-qualify", sess.AppName)
	assert.Equal(t, "user-1", sess.UserID)

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, sess.AppName, got.AppName)
}

func TestCreateValidation(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Create(context.Background(), "", "user-1")
	assert.Error(t, err)

	_, err = store.Create(context.Background(), "app", "")
	assert.Error(t, err)

	_, err = store.Create(context.Background(), "../escape", "user-1")
	assert.Error(t, err)

	_, err = store.Create(context.Background(), "app", `user\1`)
	assert.Error(t, err)
}

func TestGetNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	s1, err := store.Create(ctx, "app", "user-1")
	require.NoError(t, err)
	_, err = store.Create(ctx, "app", "user-2")
	require.NoError(t, err)
	s3, err := store.Create(ctx, "app", "user-1")
	require.NoError(t, err)

	sessions, err := store.List(ctx, "app", "user-1")
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	ids := []string{sessions[0].ID, sessions[1].ID}
	assert.Contains(t, ids, s1.ID)
	assert.Contains(t, ids, s3.ID)

	empty, err := store.List(ctx, "app", "ghost")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess, err := store.Create(ctx, "app", "user-1")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, sess.ID))

	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.Delete(ctx, sess.ID), ErrNotFound)
}

func TestAppendAndListEvents(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess, err := store.Create(ctx, "app", "user-1")
	require.NoError(t, err)

	require.NoError(t, store.AppendEvent(ctx, sess.ID, "user", "hello", nil))
	require.NoError(t, store.AppendEvent(ctx, sess.ID, "assistant", "hi there", map[string]interface{}{
		"model": "gemini-1.5-flash",
	}))

	events, err := store.Events(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "user", events[0].Author)
	assert.Equal(t, "hello", events[0].Content)
	assert.Nil(t, events[0].Metadata)

	assert.Equal(t, "assistant", events[1].Author)
	assert.Equal(t, "gemini-1.5-flash", events[1].Metadata["model"])
}

func TestAppendEventUnknownSession(t *testing.T) {
	store := newTestStore(t)

	err := store.AppendEvent(context.Background(), "missing", "user", "hello", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEventsUnknownSession(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Events(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCascadesEvents(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess, err := store.Create(ctx, "app", "user-1")
	require.NoError(t, err)
	require.NoError(t, store.AppendEvent(ctx, sess.ID, "user", "hello", nil))

	require.NoError(t, store.Delete(ctx, sess.ID))

	var n int
	err = store.db.QueryRow(`SELECT COUNT(*) FROM events WHERE session_id = ?`, sess.ID).Scan(&n)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = store.Create(ctx, "app", "user-1")
	require.NoError(t, err)

	n, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPurgeIdleSince(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old, err := store.Create(ctx, "app", "user-1")
	require.NoError(t, err)
	fresh, err := store.Create(ctx, "app", "user-1")
	require.NoError(t, err)

	// Backdate the first session past the cutoff
	stale := time.Now().UTC().AddDate(0, 0, -10).Unix()
	_, err = store.db.Exec(`UPDATE sessions SET updated_at = ? WHERE id = ?`, stale, old.ID)
	require.NoError(t, err)

	purged, err := store.PurgeIdleSince(ctx, time.Now().UTC().AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	_, err = store.Get(ctx, old.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Get(ctx, fresh.ID)
	assert.NoError(t, err)
}
