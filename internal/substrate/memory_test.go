package substrate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michael4d45/gameroom/internal/identity"
)

func TestMemorySetBytesRoundTrips(t *testing.T) {
	t.Parallel()

	swarm := NewSwarm()
	node := swarm.Join(identity.EndpointID("node-1"))

	require.NoError(t, node.SetBytes("author-1", "greeting", []byte("hello")))

	_, value, ok, err := node.GetOne("greeting")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), value)
}

func TestMemoryLWWKeepsHigherClock(t *testing.T) {
	t.Parallel()

	swarm := NewSwarm()
	a := swarm.Join(identity.EndpointID("a"))
	b := swarm.Join(identity.EndpointID("b"))

	require.NoError(t, a.SetBytes("author-a", "key", []byte("first")))
	require.NoError(t, b.SetBytes("author-b", "key", []byte("second")))

	_, value, ok, err := a.GetOne("key")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("second"), value, "later write must win under LWW")
}

func TestMemoryBroadcastReachesOtherMembers(t *testing.T) {
	t.Parallel()

	swarm := NewSwarm()
	host := swarm.Join(identity.EndpointID("host"))
	joiner := swarm.Join(identity.EndpointID("joiner"))

	events, cancel := joiner.Subscribe()
	defer cancel()

	require.NoError(t, host.SetBytes("host-author", "peer.host", []byte("payload")))

	select {
	case ev := <-events:
		assert.Equal(t, EventInsertRemote, ev.Kind)
		assert.Equal(t, "peer.host", ev.Entry.Key)
		assert.Equal(t, ContentComplete, ev.ContentStatus)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast event")
	}
}

func TestMemoryDeferredContentBecomesReady(t *testing.T) {
	t.Parallel()

	swarm := NewSwarm()
	swarm.ContentDelay = 20 * time.Millisecond
	host := swarm.Join(identity.EndpointID("host"))
	joiner := swarm.Join(identity.EndpointID("joiner"))

	events, cancel := joiner.Subscribe()
	defer cancel()

	require.NoError(t, host.SetBytes("host-author", "game_state", []byte("state-bytes")))

	var sawMissing, sawReady bool
	deadline := time.After(2 * time.Second)
	for !sawReady {
		select {
		case ev := <-events:
			switch ev.Kind {
			case EventInsertRemote:
				if ev.ContentStatus == ContentMissing {
					sawMissing = true
				}
			case EventContentReady:
				sawReady = true
			}
		case <-deadline:
			t.Fatal("timed out waiting for deferred content to resolve")
		}
	}
	assert.True(t, sawMissing, "expected the insert to arrive with missing content first")
}

func TestMemoryNeighborEventsOnJoinAndLeave(t *testing.T) {
	t.Parallel()

	swarm := NewSwarm()
	a := swarm.Join(identity.EndpointID("a"))
	aEvents, cancel := a.Subscribe()
	defer cancel()

	b := swarm.Join(identity.EndpointID("b"))
	select {
	case ev := <-aEvents:
		require.Equal(t, EventNeighborUp, ev.Kind)
		assert.Equal(t, identity.EndpointID("b"), ev.NeighborID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for neighbor up event")
	}

	require.NoError(t, b.Close(t.Context()))
	select {
	case ev := <-aEvents:
		require.Equal(t, EventNeighborDown, ev.Kind)
		assert.Equal(t, identity.EndpointID("b"), ev.NeighborID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for neighbor down event")
	}
}

func TestMemoryDeleteTombstonesKey(t *testing.T) {
	t.Parallel()

	swarm := NewSwarm()
	node := swarm.Join(identity.EndpointID("node"))
	require.NoError(t, node.SetBytes("author", "k", []byte("v")))
	require.NoError(t, node.Delete("author", "k"))

	_, _, ok, err := node.GetOne("k")
	require.NoError(t, err)
	assert.False(t, ok, "deleted key must not be returned by GetOne")
}
