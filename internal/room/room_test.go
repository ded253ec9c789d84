package room

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michael4d45/gameroom/games/counter"
	"github.com/michael4d45/gameroom/internal/identity"
	"github.com/michael4d45/gameroom/internal/peer"
	"github.com/michael4d45/gameroom/internal/roomstate"
	"github.com/michael4d45/gameroom/internal/substrate"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{}, nil))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func newTestIdentity(t *testing.T) *identity.Identity {
	t.Helper()
	id, err := identity.Ephemeral()
	require.NoError(t, err)
	return id
}

func waitForEvent[S any](t *testing.T, events <-chan UIEvent[S], kind UIEventKind, timeout time.Duration) UIEvent[S] {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case ev := <-events:
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for UI event kind %d", kind)
		}
	}
}

func TestCreateJoinAndStartGame(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	swarm := substrate.NewSwarm()
	log := discardLogger()

	hostID := newTestIdentity(t)
	hostDoc := swarm.Join(hostID.EndpointID)
	hostAuthor := identity.AuthorID(hostID.EndpointID)

	hostRoom, err := Create(ctx, hostDoc, hostID, hostAuthor, peer.Profile{Nickname: "Host"}, counter.New(), log)
	require.NoError(t, err)
	defer hostRoom.Close(ctx)

	assert.True(t, hostRoom.IsHost())
	state, err := hostRoom.GetAppState()
	require.NoError(t, err)
	assert.Equal(t, roomstate.Lobby, state)

	joinerID := newTestIdentity(t)
	joinerDoc := swarm.Join(joinerID.EndpointID)
	joinerAuthor := identity.AuthorID(joinerID.EndpointID)

	joinerRoom, err := Join(ctx, joinerDoc, joinerID, joinerAuthor, counter.New(), log)
	require.NoError(t, err)
	defer joinerRoom.Close(ctx)

	require.NoError(t, joinerRoom.AnnouncePresence(peer.Profile{Nickname: "Joiner"}))

	// The host admits the joiner once it observes the join request.
	waitForEvent(t, hostRoom.Events(), UILobbyUpdated, 2*time.Second)
	peers, err := hostRoom.GetPeerList()
	require.NoError(t, err)
	assert.Contains(t, peers, joinerID.EndpointID)

	require.NoError(t, hostRoom.StartGame())
	// A second call must be a no-op, not an error.
	require.NoError(t, hostRoom.StartGame())

	waitForEvent(t, joinerRoom.Events(), UIStateUpdated, 2*time.Second)
	appState, err := joinerRoom.GetAppState()
	require.NoError(t, err)
	assert.Equal(t, roomstate.InGame, appState)
}

func TestSubmitActionAppliesOnHostAndPropagates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	swarm := substrate.NewSwarm()
	log := discardLogger()

	hostID := newTestIdentity(t)
	hostDoc := swarm.Join(hostID.EndpointID)
	hostRoom, err := Create(ctx, hostDoc, hostID, identity.AuthorID(hostID.EndpointID), peer.Profile{Nickname: "Host"}, counter.New(), log)
	require.NoError(t, err)
	defer hostRoom.Close(ctx)

	joinerID := newTestIdentity(t)
	joinerDoc := swarm.Join(joinerID.EndpointID)
	joinerRoom, err := Join(ctx, joinerDoc, joinerID, identity.AuthorID(joinerID.EndpointID), counter.New(), log)
	require.NoError(t, err)
	defer joinerRoom.Close(ctx)

	require.NoError(t, joinerRoom.AnnouncePresence(peer.Profile{Nickname: "Joiner"}))
	waitForEvent(t, hostRoom.Events(), UILobbyUpdated, 2*time.Second)
	require.NoError(t, hostRoom.StartGame())
	waitForEvent(t, joinerRoom.Events(), UIStateUpdated, 2*time.Second)

	require.NoError(t, joinerRoom.SubmitAction(counter.Action{Delta: 7}))

	ev := waitForEvent(t, joinerRoom.Events(), UIStateUpdated, 2*time.Second)
	assert.Equal(t, 7, ev.State.Value)

	hostState, err := hostRoom.GetGameState()
	require.NoError(t, err)
	assert.Equal(t, 7, hostState.Value)
}

func TestChatMessagesAreDelivered(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	swarm := substrate.NewSwarm()
	log := discardLogger()

	hostID := newTestIdentity(t)
	hostDoc := swarm.Join(hostID.EndpointID)
	hostRoom, err := Create(ctx, hostDoc, hostID, identity.AuthorID(hostID.EndpointID), peer.Profile{Nickname: "Host"}, counter.New(), log)
	require.NoError(t, err)
	defer hostRoom.Close(ctx)

	joinerID := newTestIdentity(t)
	joinerDoc := swarm.Join(joinerID.EndpointID)
	joinerRoom, err := Join(ctx, joinerDoc, joinerID, identity.AuthorID(joinerID.EndpointID), counter.New(), log)
	require.NoError(t, err)
	defer joinerRoom.Close(ctx)

	require.NoError(t, joinerRoom.AnnouncePresence(peer.Profile{Nickname: "Joiner"}))
	waitForEvent(t, hostRoom.Events(), UILobbyUpdated, 2*time.Second)

	require.NoError(t, joinerRoom.SendChat("hello from joiner"))

	ev := waitForEvent(t, hostRoom.Events(), UIChatReceived, 2*time.Second)
	assert.Equal(t, "hello from joiner", ev.Chat.Text)
	assert.Equal(t, joinerID.EndpointID, ev.Chat.Sender)
	assert.Equal(t, "Joiner", ev.Chat.SenderName)
}

func TestHostDisconnectSynthesizesPausedForPeer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	swarm := substrate.NewSwarm()
	log := discardLogger()

	hostID := newTestIdentity(t)
	hostDoc := swarm.Join(hostID.EndpointID)
	hostRoom, err := Create(ctx, hostDoc, hostID, identity.AuthorID(hostID.EndpointID), peer.Profile{Nickname: "Host"}, counter.New(), log)
	require.NoError(t, err)

	joinerID := newTestIdentity(t)
	joinerDoc := swarm.Join(joinerID.EndpointID)
	joinerRoom, err := Join(ctx, joinerDoc, joinerID, identity.AuthorID(joinerID.EndpointID), counter.New(), log)
	require.NoError(t, err)
	defer joinerRoom.Close(ctx)

	require.NoError(t, joinerRoom.AnnouncePresence(peer.Profile{Nickname: "Joiner"}))
	waitForEvent(t, hostRoom.Events(), UILobbyUpdated, 2*time.Second)
	require.NoError(t, hostRoom.StartGame())
	waitForEvent(t, joinerRoom.Events(), UIStateUpdated, 2*time.Second)

	// Simulate the host vanishing without a graceful leave: closing its
	// document directly (skipping Close's announce-leave grace period)
	// fires a neighbor-down event at the joiner.
	require.NoError(t, hostDoc.Close(ctx))

	ev := waitForEvent(t, joinerRoom.Events(), UIHostDisconnected, 2*time.Second)
	assert.Equal(t, hostID.EndpointID, ev.HostID)

	state, err := joinerRoom.GetAppState()
	require.NoError(t, err)
	assert.Equal(t, roomstate.Paused, state)
}
