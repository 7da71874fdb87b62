package ports

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSnapshotStoreContract verifies that a SnapshotStore implementation adheres
// to the interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	key := "contract-" + time.Now().Format("20060102150405")
	savedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	record := func(state string) *domain.Record {
		rec, err := domain.NewRecord("contract", state, map[string]any{"count": 42, "name": "bar"}, savedAt)
		require.NoError(t, err)
		return rec
	}

	t.Run("Save and Load", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, key, record("visible.running")))

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "contract", loaded.Machine)
		assert.Equal(t, "visible.running", loaded.State)
		assert.True(t, savedAt.Equal(loaded.SavedAt))

		var payload map[string]any
		require.NoError(t, json.Unmarshal(loaded.Context, &payload))
		assert.Equal(t, "bar", payload["name"])
		assert.EqualValues(t, 42, payload["count"])
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, key, record("first")))
		require.NoError(t, store.Save(ctx, key, record("second")))

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "second", loaded.State)
	})

	t.Run("Load Isolated From Caller", func(t *testing.T) {
		rec := record("isolated")
		require.NoError(t, store.Save(ctx, key, rec))
		rec.State = "mutated"
		rec.Context[0] = 'x'

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "isolated", loaded.State)
		assert.True(t, json.Valid(loaded.Context))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "missing-"+key)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, key, record("start")))
		require.NoError(t, store.Delete(ctx, key))

		_, err := store.Load(ctx, key)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
		assert.NoError(t, store.Delete(ctx, key), "deleting a missing key is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1, id2 := key+"-1", key+"-2"
		require.NoError(t, store.Save(ctx, id1, record("start")))
		require.NoError(t, store.Save(ctx, id2, record("start")))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		keys, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, id1)
		assert.Contains(t, keys, id2)
	})
}
