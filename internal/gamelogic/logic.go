// Package gamelogic defines the pluggable game logic contract (spec.md
// §4.4). The engine treats every associated type as an opaque,
// serialisable, cloneable payload and never peers into it except to
// encode/decode it through internal/codec.
//
// The interface shape mirrors the teacher's GameModeHandler
// (internal/server/game_modes.go): a handful of small methods taking and
// returning plain data, held by the room as a single field rather than
// dispatched through a registry.
package gamelogic

import (
	"github.com/michael4d45/gameroom/internal/identity"
	"github.com/michael4d45/gameroom/internal/peer"
)

// Logic is the generic contract any turn-based game plugs into the room
// engine through: S the game state, A an action, R a player role, L a
// leave reason and E the game's own validation error — the five
// associated types the original GameLogic trait carries (spec.md §4.4:
// "GameState, GameAction, PlayerRole, LeaveReason, GameError").
type Logic[S any, A any, R any, L any, E error] interface {
	// AssignRoles deterministically assigns a role to every known peer,
	// called once by the host at game start. Implementations must be
	// deterministic given the same peer map in the same iteration order.
	AssignRoles(peers peer.Map) map[identity.EndpointID]R

	// InitialState builds the starting game state from assigned roles. It
	// must be a pure constructor with no side effects.
	InitialState(roles map[identity.EndpointID]R) S

	// StartConditionsMet gates the Lobby -> InGame transition, evaluated
	// against the peer set only: no game state exists yet at this point.
	// A nil return permits the transition.
	StartConditionsMet(peers peer.Map) E

	// ApplyAction validates and mutates state in place for the given
	// player's action. It must be pure with respect to anything other
	// than its arguments: same (state, player, action) in, same outcome
	// out, every time. A nil return means the mutation was applied; any
	// other error means state was left untouched (spec.md §4.5: "never
	// roll back — actions are idempotent against the pre-image").
	ApplyAction(state *S, player identity.EndpointID, action A) E

	// DefaultLeaveReason is the reason Room.Close announces when the
	// caller tears a room down without first calling AnnounceLeave
	// itself (spec.md §4.6 "announce_leave(reason)").
	DefaultLeaveReason() L
}
