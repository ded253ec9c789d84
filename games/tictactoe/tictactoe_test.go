package tictactoe

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michael4d45/gameroom/internal/identity"
	"github.com/michael4d45/gameroom/internal/peer"
)

func twoPlayerPeers() peer.Map {
	return peer.Map{
		identity.EndpointID("alice"): peer.New("alice", peer.Profile{Nickname: "Alice"}, false),
		identity.EndpointID("bob"):   peer.New("bob", peer.Profile{Nickname: "Bob"}, false),
	}
}

func TestAssignRolesGivesFirstTwoXAndO(t *testing.T) {
	t.Parallel()

	logic := New()
	roles := logic.AssignRoles(twoPlayerPeers())

	assert.Len(t, roles, 2)
	marks := map[Role]int{}
	for _, r := range roles {
		marks[r]++
	}
	assert.Equal(t, 1, marks[RoleX])
	assert.Equal(t, 1, marks[RoleO])
}

func TestAssignRolesIsDeterministic(t *testing.T) {
	t.Parallel()

	logic := New()
	peers := twoPlayerPeers()
	peers[identity.EndpointID("carol")] = peer.New("carol", peer.Profile{}, false)

	first := logic.AssignRoles(peers)
	second := logic.AssignRoles(peers)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("role assignment must not depend on map iteration order (-first +second):\n%s", diff)
	}
	assert.Equal(t, RoleObserver, first[identity.EndpointID("carol")])
}

func TestStartConditionsNeedTwoPlayers(t *testing.T) {
	t.Parallel()

	logic := New()
	assert.ErrorIs(t, logic.StartConditionsMet(peer.Map{
		identity.EndpointID("alice"): peer.New("alice", peer.Profile{}, false),
	}), ErrNotEnoughPlayers)
	assert.NoError(t, logic.StartConditionsMet(twoPlayerPeers()))
}

func TestApplyActionEnforcesTurnOrder(t *testing.T) {
	t.Parallel()

	logic := New()
	roles := logic.AssignRoles(twoPlayerPeers())
	state := logic.InitialState(roles)

	var xID, oID identity.EndpointID
	for id, r := range roles {
		if r == RoleX {
			xID = id
		} else if r == RoleO {
			oID = id
		}
	}

	err := logic.ApplyAction(&state, oID, Action{Cell: 0})
	assert.ErrorIs(t, err, ErrNotYourTurn)

	require.NoError(t, logic.ApplyAction(&state, xID, Action{Cell: 0}))
	assert.Equal(t, CellX, state.Board[0])
	assert.Equal(t, RoleO, state.CurrentTurn)
}

func TestApplyActionRejectsOccupiedCell(t *testing.T) {
	t.Parallel()

	logic := New()
	roles := logic.AssignRoles(twoPlayerPeers())
	state := logic.InitialState(roles)
	var xID, oID identity.EndpointID
	for id, r := range roles {
		if r == RoleX {
			xID = id
		} else {
			oID = id
		}
	}

	require.NoError(t, logic.ApplyAction(&state, xID, Action{Cell: 4}))
	err := logic.ApplyAction(&state, oID, Action{Cell: 4})
	assert.ErrorIs(t, err, ErrCellOccupied)
}

func TestApplyActionDetectsWin(t *testing.T) {
	t.Parallel()

	logic := New()
	roles := logic.AssignRoles(twoPlayerPeers())
	state := logic.InitialState(roles)
	var xID, oID identity.EndpointID
	for id, r := range roles {
		if r == RoleX {
			xID = id
		} else {
			oID = id
		}
	}

	// X: 0,1,2 (top row) with O interleaved elsewhere.
	moves := []struct {
		id   identity.EndpointID
		cell int
	}{
		{xID, 0}, {oID, 3},
		{xID, 1}, {oID, 4},
		{xID, 2}, // completes top row
	}
	for _, m := range moves {
		require.NoError(t, logic.ApplyAction(&state, m.id, Action{Cell: m.cell}))
	}

	assert.Equal(t, StatusWinX, state.Status)
	assert.Equal(t, RoleObserver, state.CurrentTurn)

	err := logic.ApplyAction(&state, oID, Action{Cell: 5})
	assert.ErrorIs(t, err, ErrGameOver)
}

func TestApplyActionDetectsDraw(t *testing.T) {
	t.Parallel()

	logic := New()
	roles := logic.AssignRoles(twoPlayerPeers())
	state := logic.InitialState(roles)
	var xID, oID identity.EndpointID
	for id, r := range roles {
		if r == RoleX {
			xID = id
		} else {
			oID = id
		}
	}

	// A full board with no winner:
	// X O X
	// X O O
	// O X X
	moves := []struct {
		id   identity.EndpointID
		cell int
	}{
		{xID, 0}, {oID, 1},
		{xID, 2}, {oID, 4},
		{xID, 3}, {oID, 5},
		{xID, 7}, {oID, 6},
		{xID, 8},
	}
	for _, m := range moves {
		require.NoError(t, logic.ApplyAction(&state, m.id, Action{Cell: m.cell}))
	}

	assert.Equal(t, StatusDraw, state.Status)
}
