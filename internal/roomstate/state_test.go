package roomstate

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michael4d45/gameroom/internal/identity"
	"github.com/michael4d45/gameroom/internal/peer"
	"github.com/michael4d45/gameroom/internal/substrate"
)

func newTestState(t *testing.T, id identity.EndpointID) (*StateData, *substrate.Swarm) {
	t.Helper()
	swarm := substrate.NewSwarm()
	doc := swarm.Join(id)
	return New(doc, id, identity.AuthorID(id)), swarm
}

func TestClaimHostAndIsHost(t *testing.T) {
	t.Parallel()

	self := identity.EndpointID("self")
	state, _ := newTestState(t, self)

	_, err := state.GetHostID()
	assert.ErrorIs(t, err, ErrNoHost)
	assert.False(t, state.IsHost())

	require.NoError(t, state.ClaimHost())
	assert.True(t, state.IsHost())

	hostID, err := state.GetHostID()
	require.NoError(t, err)
	assert.Equal(t, self, hostID)
}

func TestSetAppStateRejectsPaused(t *testing.T) {
	t.Parallel()

	state, _ := newTestState(t, identity.EndpointID("self"))
	err := state.SetAppState(Paused)
	assert.Error(t, err, "Paused must never be persisted directly")
}

func TestGetAppStateDefaultsToLobby(t *testing.T) {
	t.Parallel()

	state, _ := newTestState(t, identity.EndpointID("self"))
	got, err := state.GetAppState()
	require.NoError(t, err)
	assert.Equal(t, Lobby, got)
}

func TestGetAppStateSynthesizesPausedWhenHostDisconnected(t *testing.T) {
	t.Parallel()

	state, _ := newTestState(t, identity.EndpointID("self"))
	require.NoError(t, state.SetAppState(InGame))

	got, err := state.GetAppState()
	require.NoError(t, err)
	assert.Equal(t, InGame, got)

	state.SetHostDisconnected(true)
	got, err = state.GetAppState()
	require.NoError(t, err)
	assert.Equal(t, Paused, got, "InGame + disconnected host must read back as Paused")
}

func TestGetAppStateSynthesizesPausedRegardlessOfDocumentValue(t *testing.T) {
	t.Parallel()

	state, _ := newTestState(t, identity.EndpointID("self"))
	state.SetHostDisconnected(true)

	got, err := state.GetAppState()
	require.NoError(t, err)
	assert.Equal(t, Paused, got, "Paused must be synthesized whenever the disconnect flag is set, independent of the document value")
}

func TestGetPeerListPatchesHostOffline(t *testing.T) {
	t.Parallel()

	hostID := identity.EndpointID("host")
	otherID := identity.EndpointID("other")
	state, _ := newTestState(t, hostID)

	require.NoError(t, state.ClaimHost())
	require.NoError(t, state.InsertPeer(peer.New(hostID, peer.Profile{Nickname: "Host"}, false)))
	require.NoError(t, state.InsertPeer(peer.New(otherID, peer.Profile{Nickname: "Other"}, false)))

	peers, err := state.GetPeerList()
	require.NoError(t, err)
	assert.Equal(t, peer.StatusOnline, peers[hostID].Status)

	state.SetHostDisconnected(true)
	peers, err = state.GetPeerList()
	require.NoError(t, err)
	assert.Equal(t, peer.StatusOffline, peers[hostID].Status, "host's own offline status must be patched locally")
	assert.Equal(t, peer.StatusOnline, peers[otherID].Status)
}

func TestSetPeerStatusRequiresExistingRecord(t *testing.T) {
	t.Parallel()

	state, _ := newTestState(t, identity.EndpointID("self"))
	err := state.SetPeerStatus(identity.EndpointID("ghost"), peer.StatusOffline)
	assert.Error(t, err)
}

func TestChatKeysPreserveSendOrder(t *testing.T) {
	t.Parallel()

	state, swarm := newTestState(t, identity.EndpointID("self"))
	_ = swarm
	require.NoError(t, state.SendChat("first"))
	time.Sleep(2 * time.Millisecond) // distinct millisecond so the two chat keys don't collide
	require.NoError(t, state.SendChat("second"))

	entries, err := state.doc.GetMany("chat.")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Sorted by key, the earlier send (lower write clock) must come first.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	assert.Less(t, entries[0].Clock, entries[1].Clock, "chat keys must sort in send order")
}
