package room

import (
	"github.com/michael4d45/gameroom/internal/peer"
	"github.com/michael4d45/gameroom/internal/roomstate"
)

// GetAppState returns the room's current phase.
func (r *Room[S, A, R, L, E]) GetAppState() (roomstate.AppState, error) {
	return r.state.GetAppState()
}

// GetGameState returns the current game state, decoded into S. It
// returns an error if no game state has been written yet (i.e. the room
// is still in Lobby).
func (r *Room[S, A, R, L, E]) GetGameState() (S, error) {
	return r.decodeGameState()
}

// GetPeerList returns the current peer set, with the host's own offline
// status patched in locally when applicable (spec.md §4.2).
func (r *Room[S, A, R, L, E]) GetPeerList() (peer.Map, error) {
	return r.state.GetPeerList()
}
