package roomkeys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michael4d45/gameroom/internal/identity"
)

func TestClassifySingletons(t *testing.T) {
	t.Parallel()

	cases := []struct {
		key  string
		want Kind
	}{
		{AppState, KindAppStateUpdate},
		{HostID, KindHostUpdate},
		{GameState, KindGameStateUpdate},
	}
	for _, c := range cases {
		kind, id, err := Classify(c.key)
		require.NoError(t, err)
		assert.Equal(t, c.want, kind)
		assert.Empty(t, id)
	}
}

func TestClassifyPerPeerKeys(t *testing.T) {
	t.Parallel()

	id := identity.EndpointID("abc123")
	cases := []struct {
		key  string
		want Kind
	}{
		{PeerKey(id), KindPeerEntry},
		{JoinRequestKey(id), KindJoin},
		{QuitRequestKey(id), KindQuitRequest},
		{ActionKey(id), KindActionRequest},
		{HeartbeatKey(id), KindHeartbeat},
	}
	for _, c := range cases {
		kind, gotID, err := Classify(c.key)
		require.NoError(t, err)
		assert.Equal(t, c.want, kind)
		if kind != KindPeerEntry {
			assert.Equal(t, id, gotID)
		}
	}
}

func TestClassifyChatKeyOrdering(t *testing.T) {
	t.Parallel()

	id := identity.EndpointID("peer1")
	early := ChatKey(1000, id)
	late := ChatKey(2000, id)

	assert.Less(t, early, late, "chat keys must sort lexicographically by timestamp")

	kind, gotID, err := Classify(early)
	require.NoError(t, err)
	assert.Equal(t, KindChatMessage, kind)
	assert.Equal(t, id, gotID)
}

func TestClassifyMalformedKeys(t *testing.T) {
	t.Parallel()

	cases := []string{
		"join_request.",
		"chat.notanumber.peer1",
		"chat.123",
		"totally_unknown_key",
	}
	for _, key := range cases {
		kind, _, err := Classify(key)
		assert.Error(t, err, "key %q should not classify cleanly", key)
		assert.Equal(t, KindUnknown, kind)
	}
}

func TestPeerIDFromPeerKey(t *testing.T) {
	t.Parallel()

	id := identity.EndpointID("xyz")
	got, err := PeerIDFromPeerKey(PeerKey(id))
	require.NoError(t, err)
	assert.Equal(t, id, got)
}
