// Package counter is the minimal game used by the testable-property
// scenarios (spec.md §8): a single shared integer every peer can
// increment or decrement, with no roles and no win condition. It
// exists to exercise the room engine's lifecycle, ordering and
// idempotency guarantees with the smallest possible game logic.
package counter

import (
	"fmt"

	"github.com/michael4d45/gameroom/internal/gamelogic"
	"github.com/michael4d45/gameroom/internal/identity"
	"github.com/michael4d45/gameroom/internal/peer"
)

// State is the shared counter value.
type State struct {
	Value int `msgpack:"value"`
}

// Action adjusts the counter by Delta, positive or negative.
type Action struct {
	Delta int `msgpack:"delta"`
}

// Role is unused: every peer participates identically.
type Role struct{}

// Logic implements gamelogic.Logic[State, Action, Role, LeaveReason, error].
type Logic struct{}

var _ gamelogic.Logic[State, Action, Role, gamelogic.LeaveReason, error] = Logic{}

// New returns a ready-to-use counter logic instance.
func New() Logic { return Logic{} }

// DefaultLeaveReason reports a normal, deliberate disconnect.
func (Logic) DefaultLeaveReason() gamelogic.LeaveReason { return gamelogic.ApplicationClosed }

func (Logic) AssignRoles(peers peer.Map) map[identity.EndpointID]Role {
	roles := make(map[identity.EndpointID]Role, len(peers))
	for id := range peers {
		roles[id] = Role{}
	}
	return roles
}

func (Logic) InitialState(map[identity.EndpointID]Role) State {
	return State{Value: 0}
}

func (Logic) StartConditionsMet(peers peer.Map) error {
	if len(peers) == 0 {
		return fmt.Errorf("counter: need at least one peer to start")
	}
	return nil
}

func (Logic) ApplyAction(state *State, _ identity.EndpointID, action Action) error {
	state.Value += action.Delta
	return nil
}
