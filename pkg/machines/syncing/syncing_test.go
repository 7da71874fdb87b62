package syncing_test

import (
	"testing"

	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/aretw0/statecraft/pkg/machines/syncing"
	"github.com/aretw0/statecraft/pkg/mockdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSync(t *testing.T) *syncing.Machine {
	t.Helper()
	m := syncing.New(mockdata.New(11))
	m.Start()
	return m
}

func syncingIDs(c syncing.Context) []string {
	var ids []string
	for _, d := range c.Documents {
		if d.Status == syncing.StatusSyncing {
			ids = append(ids, d.ID)
		}
	}
	return ids
}

func TestDefinition_Valid(t *testing.T) {
	require.NoError(t, syncing.Definition(mockdata.New(1)).Validate())
}

func TestSync_InitialContext(t *testing.T) {
	m := newSync(t)
	snap := m.Snapshot()

	assert.Equal(t, syncing.StateOffline, snap.State)
	require.Len(t, snap.Context.Documents, mockdata.DocumentCount)
	assert.Equal(t, syncing.StatusPending, snap.Context.Documents[0].Status)
	assert.Equal(t, syncing.StatusSynced, snap.Context.Documents[1].Status)
	assert.Equal(t, 4, snap.Context.Count(syncing.StatusPending))
}

func TestSync_GoOnlineThenCompletes(t *testing.T) {
	m := newSync(t)
	m.Send(syncing.GoOnline())

	snap := m.Snapshot()
	assert.Equal(t, syncing.StateSyncing, snap.State)
	assert.Zero(t, snap.Context.Count(syncing.StatusPending))
	ids := syncingIDs(snap.Context)
	require.Len(t, ids, 4)

	for k, id := range ids {
		m.Send(syncing.DocumentSynced(id))
		if k < len(ids)-1 {
			assert.Equal(t, syncing.StateSyncing, m.Snapshot().State)
		}
	}

	snap = m.Snapshot()
	assert.Equal(t, syncing.StateOnline, snap.State)
	assert.True(t, snap.Context.AllSynced())
}

func TestSync_OutOfOrderAndInvalidReports(t *testing.T) {
	m := newSync(t)
	before := m.Snapshot()
	syncedID := before.Context.Documents[1].ID

	// Not syncing yet: ignored.
	m.Send(syncing.DocumentSynced(before.Context.Documents[0].ID))
	assert.Equal(t, before, m.Snapshot())

	m.Send(syncing.GoOnline())
	ids := syncingIDs(m.Snapshot().Context)

	m.Send(syncing.DocumentSynced(ids[3]))
	m.Send(syncing.DocumentSynced(ids[3]))
	m.Send(syncing.DocumentSynced("unknown"))
	m.Send(syncing.DocumentSynced(syncedID))
	m.Send(domain.NewEvent(syncing.EventDocumentSynced, nil))

	c := m.Snapshot().Context
	assert.Equal(t, 3, c.Count(syncing.StatusSyncing))
	assert.Equal(t, 5, c.Count(syncing.StatusSynced))
}

func TestSync_GoOfflineRevertsSyncing(t *testing.T) {
	m := newSync(t)
	m.Send(syncing.GoOnline())
	ids := syncingIDs(m.Snapshot().Context)
	m.Send(syncing.DocumentSynced(ids[0]))

	m.Send(syncing.GoOffline())
	snap := m.Snapshot()
	assert.Equal(t, syncing.StateOffline, snap.State)
	assert.Zero(t, snap.Context.Count(syncing.StatusSyncing))
	assert.Equal(t, 3, snap.Context.Count(syncing.StatusPending))
	assert.Equal(t, 5, snap.Context.Count(syncing.StatusSynced))
}

func TestSync_OnlineHoldsOnlyWhenAllSynced(t *testing.T) {
	m := newSync(t)
	m.Send(syncing.GoOnline())
	for _, id := range syncingIDs(m.Snapshot().Context) {
		m.Send(syncing.DocumentSynced(id))
	}
	require.Equal(t, syncing.StateOnline, m.Snapshot().State)

	// Events that are not accepted online leave it untouched.
	m.Send(syncing.GoOnline())
	m.Send(syncing.DocumentSynced("x"))
	assert.Equal(t, syncing.StateOnline, m.Snapshot().State)
	assert.True(t, m.Snapshot().Context.AllSynced())

	m.Send(syncing.GoOffline())
	assert.Equal(t, syncing.StateOffline, m.Snapshot().State)
}

func TestSync_ResetFromEveryState(t *testing.T) {
	prepare := map[string]func(m *syncing.Machine){
		syncing.StateOffline: func(*syncing.Machine) {},
		syncing.StateSyncing: func(m *syncing.Machine) { m.Send(syncing.GoOnline()) },
		syncing.StateOnline: func(m *syncing.Machine) {
			m.Send(syncing.GoOnline())
			for _, id := range syncingIDs(m.Snapshot().Context) {
				m.Send(syncing.DocumentSynced(id))
			}
		},
	}

	for state, setup := range prepare {
		t.Run(state, func(t *testing.T) {
			m := newSync(t)
			setup(m)
			require.Equal(t, state, m.Snapshot().State)
			old := m.Snapshot().Context.Documents

			m.Send(syncing.Reset())

			snap := m.Snapshot()
			assert.Equal(t, syncing.StateOffline, snap.State)
			require.Len(t, snap.Context.Documents, 8)
			assert.NotEqual(t, old[0].ID, snap.Context.Documents[0].ID, "documents are regenerated")
			assert.Positive(t, snap.Context.Count(syncing.StatusPending))
			assert.Zero(t, snap.Context.Count(syncing.StatusSyncing))

			m.Send(syncing.GoOnline())
			assert.Equal(t, syncing.StateSyncing, m.Snapshot().State, "fresh documents are eligible for re-sync")
		})
	}
}

func TestSync_DocumentSyncedWireShape(t *testing.T) {
	m := newSync(t)
	m.Send(syncing.GoOnline())
	ids := syncingIDs(m.Snapshot().Context)

	m.Send(domain.NewEvent(syncing.EventDocumentSynced, map[string]any{"id": ids[0]}))
	assert.Equal(t, len(ids), m.Snapshot().Context.Count(syncing.StatusSyncing), "documentId is the only accepted key")

	m.Send(domain.NewEvent(syncing.EventDocumentSynced, map[string]any{"documentId": ids[0]}))
	assert.Equal(t, len(ids)-1, m.Snapshot().Context.Count(syncing.StatusSyncing))
}
