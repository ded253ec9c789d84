package room

import (
	"fmt"

	"github.com/michael4d45/gameroom/internal/codec"
	"github.com/michael4d45/gameroom/internal/identity"
	"github.com/michael4d45/gameroom/internal/peer"
	"github.com/michael4d45/gameroom/internal/roomstate"
)

// ErrNotHost is returned by host-only operations when called on a
// non-host room handle.
var ErrNotHost = fmt.Errorf("room: only the host may perform this action")

// AnnouncePresence tells the room this peer is online, under the
// supplied profile. Call it once right after Join (spec.md §4.7: "the
// application is responsible for announcing presence").
func (r *Room[S, A, R, L, E]) AnnouncePresence(profile peer.Profile) error {
	return r.state.AnnouncePresence(profile)
}

// AnnounceLeave writes reason under quit_request.<self> (spec.md §4.6
// "announce_leave(reason)"), callable by host and non-host alike. Close
// calls this automatically with the game logic's default reason; call
// it directly first to report a specific reason before tearing down.
func (r *Room[S, A, R, L, E]) AnnounceLeave(reason L) error {
	raw, err := codec.Marshal(reason)
	if err != nil {
		return fmt.Errorf("room: encode leave reason: %w", err)
	}
	return r.state.AnnounceLeave(raw)
}

// StartGame transitions the room from Lobby to InGame: host-only and
// idempotent (spec.md §4.7). Calling it again once the game has already
// started is a no-op rather than an error, since a retry after a lost
// gossip ack must be safe to repeat.
func (r *Room[S, A, R, L, E]) StartGame() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isHost {
		return ErrNotHost
	}

	appState, err := r.state.GetAppState()
	if err != nil {
		return fmt.Errorf("room: start game: %w", err)
	}
	if appState != roomstate.Lobby {
		return nil // idempotent: already started (or past Lobby)
	}

	peers, err := r.state.GetPeerList()
	if err != nil {
		return fmt.Errorf("room: start game: %w", err)
	}
	if err := r.logic.StartConditionsMet(peers); err != nil {
		return fmt.Errorf("room: start conditions not met: %w", err)
	}

	roles := r.logic.AssignRoles(peers)
	initial := r.logic.InitialState(roles)
	encoded, err := codec.Marshal(initial)
	if err != nil {
		return fmt.Errorf("room: encode initial state: %w", err)
	}

	// Game state must land before the AppState flip (spec.md §8): a
	// peer that observes InGame is guaranteed game_state already exists.
	if err := r.state.SetGameState(encoded); err != nil {
		return fmt.Errorf("room: write initial state: %w", err)
	}
	if err := r.state.SetAppState(roomstate.InGame); err != nil {
		return fmt.Errorf("room: flip to InGame: %w", err)
	}
	return nil
}

// SubmitAction sends a game action for the host to apply.
func (r *Room[S, A, R, L, E]) SubmitAction(action A) error {
	raw, err := codec.Marshal(action)
	if err != nil {
		return fmt.Errorf("room: encode action: %w", err)
	}
	return r.state.SubmitAction(r.self, raw)
}

// SendChat appends a chat message visible to every peer.
func (r *Room[S, A, R, L, E]) SendChat(text string) error {
	return r.state.SendChat(text)
}

// Heartbeat refreshes the optional secondary liveness signal (spec.md
// §9 extension); it is never required for correctness. Peers record
// the host's heartbeats through the liveness tracker, but the room
// never calls Tracker.CheckStale, so a stale heartbeat alone does not
// mark the host disconnected.
func (r *Room[S, A, R, L, E]) Heartbeat() error {
	return r.state.SetHeartbeat()
}

// Self returns the local endpoint id, useful to callers building their
// own UI around the room (e.g. highlighting "you" in a lobby list).
func (r *Room[S, A, R, L, E]) Self() identity.EndpointID { return r.self }
