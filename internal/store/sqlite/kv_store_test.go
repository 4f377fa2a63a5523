package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sharpfeed/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	kv := NewKVStore(db)
	require.NoError(t, kv.Init(context.Background()))
	return kv
}

func TestKVStore_RoundTrip(t *testing.T) {
	kv := newTestStore(t)
	ctx := context.Background()
	logger := logrus.New()

	type payload struct {
		Name  string   `json:"name"`
		Count int      `json:"count"`
		Tags  []string `json:"tags"`
	}
	in := payload{Name: "feed", Count: 3, Tags: []string{"a", "b"}}

	require.NoError(t, store.Save(ctx, kv, "k", in))
	out := store.Load(ctx, kv, "k", payload{}, logger)

	assert.Equal(t, in, out)
}

func TestKVStore_Overwrite(t *testing.T) {
	kv := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, kv, "k", "first"))
	require.NoError(t, store.Save(ctx, kv, "k", "second"))

	assert.Equal(t, "second", store.Load(ctx, kv, "k", "", logrus.New()))
}

func TestLoad_MissingKeyReturnsDefault(t *testing.T) {
	kv := newTestStore(t)

	got := store.Load(context.Background(), kv, "absent", 99, logrus.New())
	assert.Equal(t, 99, got)
}

func TestLoad_MalformedBlobReturnsDefault(t *testing.T) {
	kv := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, kv.Put(ctx, "bad", []byte("{not json")))

	got := store.Load(ctx, kv, "bad", "fallback", logrus.New())
	assert.Equal(t, "fallback", got)
}

func TestKVStore_Delete(t *testing.T) {
	kv := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, kv, "k", true))
	require.NoError(t, kv.Delete(ctx, "k"))

	_, err := kv.Get(ctx, "k")
	assert.ErrorIs(t, err, store.ErrKeyNotFound)

	// deleting a key that is already gone is fine
	assert.NoError(t, kv.Delete(ctx, "k"))
}
