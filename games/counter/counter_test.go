package counter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michael4d45/gameroom/internal/identity"
	"github.com/michael4d45/gameroom/internal/peer"
)

func TestStartConditionsRequireAtLeastOnePeer(t *testing.T) {
	t.Parallel()

	logic := New()
	assert.Error(t, logic.StartConditionsMet(peer.Map{}))

	peers := peer.Map{identity.EndpointID("a"): peer.New("a", peer.Profile{}, false)}
	assert.NoError(t, logic.StartConditionsMet(peers))
}

func TestApplyActionAccumulates(t *testing.T) {
	t.Parallel()

	logic := New()
	state := State{Value: 5}

	require.NoError(t, logic.ApplyAction(&state, identity.EndpointID("a"), Action{Delta: 3}))
	assert.Equal(t, 8, state.Value)

	require.NoError(t, logic.ApplyAction(&state, identity.EndpointID("a"), Action{Delta: -10}))
	assert.Equal(t, -2, state.Value, "counter has no floor and should go negative")
}
