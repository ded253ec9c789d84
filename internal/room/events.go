package room

import (
	"context"
	"fmt"
	"time"

	"github.com/michael4d45/gameroom/internal/codec"
	"github.com/michael4d45/gameroom/internal/identity"
	"github.com/michael4d45/gameroom/internal/peer"
	"github.com/michael4d45/gameroom/internal/roomevents"
	"github.com/michael4d45/gameroom/internal/roomkeys"
	"github.com/michael4d45/gameroom/internal/roomstate"
	"github.com/michael4d45/gameroom/internal/substrate"
)

// UIEventKind enumerates the events an application built on Room should
// react to, mirroring the original Rust GameEvent<G> enum
// (_examples/original_source/src/room/events.rs).
type UIEventKind int

const (
	UILobbyUpdated UIEventKind = iota
	UIStateUpdated
	UIAppStateChanged
	UIChatReceived
	UIHostDisconnected
	UIHostConnected
	UIHostChanged
	UIError
)

// ChatNotice is a chat message resolved with its sender's display name.
type ChatNotice struct {
	Sender     identity.EndpointID
	SenderName string
	Text       string
	SentAtMs   int64
}

// UIEvent is a single notification delivered on Room.Events().
type UIEvent[S any] struct {
	Kind     UIEventKind
	Lobby    peer.Map
	State    S
	AppState roomstate.AppState
	Chat     ChatNotice
	HostID   identity.EndpointID
	HostName string
	ErrMsg   string
}

func (r *Room[S, A, R, L, E]) runLoop(ctx context.Context, netEvents <-chan roomevents.NetworkEvent) {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-netEvents:
			if !ok {
				return
			}
			r.handleNetworkEvent(ev)
		}
	}
}

func (r *Room[S, A, R, L, E]) handleNetworkEvent(ev roomevents.NetworkEvent) {
	switch ev.Kind {
	case roomevents.EventJoiner:
		r.handleJoinerSignal(ev.PeerID)
	case roomevents.EventLeaver:
		r.handleLeaverSignal(ev.PeerID)
	case roomevents.EventUpdate:
		r.handleUpdate(ev)
	case roomevents.EventSyncSucceeded, roomevents.EventSyncFailed:
		// Sync status is informational only; no UI event is currently
		// defined for it beyond logging.
		if ev.Err != nil {
			r.log.Warn("room: sync failed", "error", ev.Err)
		}
	case roomevents.EventError:
		r.emit(UIEvent[S]{Kind: UIError, ErrMsg: ev.Err.Error()})
	}
}

// handleJoinerSignal reacts to a neighbor coming online (spec.md §4.5's
// Joiner/Leaver paths, normalized from the transport's neighbor-up
// signal — entirely separate from the Join document key handled in
// handleUpdate). The host marks that peer's record Online; a non-host
// whose current host just reappeared emits Host(Online).
func (r *Room[S, A, R, L, E]) handleJoinerSignal(id identity.EndpointID) {
	if r.isHost {
		if err := r.state.SetPeerStatus(id, peer.StatusOnline); err != nil {
			r.log.Debug("room: joiner signal for unrecorded peer", "peer", id, "error", err)
		}
		return
	}
	if r.state.IsPeerHost(id) {
		r.emit(UIEvent[S]{Kind: UIHostConnected, HostID: id})
	}
}

// handleLeaverSignal reacts to a neighbor dropping off the network,
// normalized from the transport's neighbor-down signal. The host marks
// that peer's record Offline; a non-host whose current host just
// vanished emits Host(Offline).
func (r *Room[S, A, R, L, E]) handleLeaverSignal(id identity.EndpointID) {
	if r.isHost {
		if err := r.state.SetPeerStatus(id, peer.StatusOffline); err != nil {
			r.log.Debug("room: leaver signal for unrecorded peer", "peer", id, "error", err)
		}
		return
	}
	if r.state.IsPeerHost(id) {
		r.emit(UIEvent[S]{Kind: UIHostDisconnected, HostID: id})
	}
}

// handleJoinRequest is host-only (spec.md §4.5): admit the joining
// peer's record from its announced profile.
func (r *Room[S, A, R, L, E]) handleJoinRequest(id identity.EndpointID) {
	_, raw, ok, err := r.doc.GetOne(roomkeys.JoinRequestKey(id))
	if err != nil || !ok {
		return
	}
	var profile peer.Profile
	if err := codec.Unmarshal(raw, &profile); err != nil {
		r.emit(UIEvent[S]{Kind: UIError, ErrMsg: fmt.Sprintf("room: bad join payload from %s: %v", id, err)})
		return
	}

	appState, _ := r.state.GetAppState()
	isObserver := appState != roomstate.Lobby
	if err := r.state.InsertPeer(peer.New(id, profile, isObserver)); err != nil {
		r.emit(UIEvent[S]{Kind: UIError, ErrMsg: fmt.Sprintf("room: admit peer %s: %v", id, err)})
	}
}

// handleHostChanged reacts to a host_id write (spec.md §4.5: "HostUpdate
// -> mark host online locally, emit Host(Changed{to: name})"). A fresh
// host_id write means whoever wrote it is clearly online right now.
func (r *Room[S, A, R, L, E]) handleHostChanged() {
	hostID, err := r.state.GetHostID()
	if err != nil {
		r.emit(UIEvent[S]{Kind: UIError, ErrMsg: err.Error()})
		return
	}
	r.state.SetHostDisconnected(false)

	name, err := r.state.GetPeerName(hostID)
	if err != nil {
		r.emit(UIEvent[S]{Kind: UIError, ErrMsg: err.Error()})
		return
	}
	r.emit(UIEvent[S]{Kind: UIHostChanged, HostID: hostID, HostName: name})
}

func (r *Room[S, A, R, L, E]) handleUpdate(ev roomevents.NetworkEvent) {
	switch ev.KeyKind {
	case roomkeys.KindJoin:
		r.handleJoinRequest(ev.PeerID)
	case roomkeys.KindActionRequest:
		r.applyAction(ev.PeerID)
	case roomkeys.KindGameStateUpdate:
		state, err := r.decodeGameState()
		if err != nil {
			r.emit(UIEvent[S]{Kind: UIError, ErrMsg: err.Error()})
			return
		}
		r.emit(UIEvent[S]{Kind: UIStateUpdated, State: state})
	case roomkeys.KindAppStateUpdate:
		appState, err := r.state.GetAppState()
		if err != nil {
			r.emit(UIEvent[S]{Kind: UIError, ErrMsg: err.Error()})
			return
		}
		r.emit(UIEvent[S]{Kind: UIAppStateChanged, AppState: appState})
	case roomkeys.KindHostUpdate:
		r.handleHostChanged()
	case roomkeys.KindPeerEntry:
		lobby, err := r.state.GetPeerList()
		if err != nil {
			r.emit(UIEvent[S]{Kind: UIError, ErrMsg: err.Error()})
			return
		}
		r.emit(UIEvent[S]{Kind: UILobbyUpdated, Lobby: lobby})
	case roomkeys.KindChatMessage:
		r.handleChat(ev.PeerID)
	case roomkeys.KindHeartbeat:
		if hostID, err := r.state.GetHostID(); err == nil && hostID == ev.PeerID {
			r.tracker.ObserveHeartbeat(ev.PeerID, time.Now())
		}
	}
}

func (r *Room[S, A, R, L, E]) handleChat(sender identity.EndpointID) {
	entries, err := r.doc.GetMany("chat.")
	if err != nil || len(entries) == 0 {
		return
	}
	latest := entries[0]
	for _, e := range entries[1:] {
		if e.Newer(latest) {
			latest = e
		}
	}
	value, status, err := r.doc.GetBytes(latest.ContentHash)
	if err != nil || status != substrate.ContentComplete || value == nil {
		return
	}
	var msg roomstate.ChatMessage
	if err := codec.Unmarshal(value, &msg); err != nil {
		return
	}
	name, _ := r.state.GetPeerName(msg.Sender)
	r.emit(UIEvent[S]{Kind: UIChatReceived, Chat: ChatNotice{
		Sender:     msg.Sender,
		SenderName: name,
		Text:       msg.Text,
		SentAtMs:   msg.SentAtMs,
	}})
}

func (r *Room[S, A, R, L, E]) applyAction(player identity.EndpointID) {
	if !r.isHost {
		return
	}
	_, raw, ok, err := r.doc.GetOne(roomkeys.ActionKey(player))
	if err != nil || !ok {
		return
	}
	var action A
	if err := codec.Unmarshal(raw, &action); err != nil {
		r.emit(UIEvent[S]{Kind: UIError, ErrMsg: fmt.Sprintf("room: bad action from %s: %v", player, err)})
		return
	}

	state, err := r.decodeGameState()
	if err != nil {
		r.emit(UIEvent[S]{Kind: UIError, ErrMsg: err.Error()})
		return
	}
	if err := r.logic.ApplyAction(&state, player, action); err != nil {
		name, _ := r.state.GetPeerName(player)
		r.emit(UIEvent[S]{Kind: UIError, ErrMsg: fmt.Sprintf("invalid action from %s: %v", name, err)})
		return
	}

	encoded, err := codec.Marshal(state)
	if err != nil {
		r.emit(UIEvent[S]{Kind: UIError, ErrMsg: err.Error()})
		return
	}
	if err := r.state.SetGameState(encoded); err != nil {
		r.emit(UIEvent[S]{Kind: UIError, ErrMsg: err.Error()})
	}
}

func (r *Room[S, A, R, L, E]) emit(ev UIEvent[S]) {
	select {
	case r.out <- ev:
	default:
		r.log.Warn("room: UI event channel full, dropping event")
	}
}
