// Package roomstate implements StateData (spec.md §4.2): the sole
// component allowed to read or write the shared document. Every other
// package that needs to observe or mutate room state goes through here.
//
// The read/write split and the "typed accessor over a raw store" shape
// are grounded on the teacher's GameServer methods in
// internal/server/state.go (SetPlugin/GetPlugin/SnapshotPlayers sitting
// over a generic settings KV); StateData plays the same role over the
// substrate document instead of an in-process map.
package roomstate

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/michael4d45/gameroom/internal/codec"
	"github.com/michael4d45/gameroom/internal/identity"
	"github.com/michael4d45/gameroom/internal/peer"
	"github.com/michael4d45/gameroom/internal/roomkeys"
	"github.com/michael4d45/gameroom/internal/substrate"
)

// AppState is the room's coarse lifecycle phase (spec.md §3).
type AppState int

const (
	Lobby AppState = iota
	InGame
	Finished
	// Paused is synthetic: it is never written to the document. It is
	// produced only by GetAppState, locally, when the host is believed
	// disconnected (spec.md §4.2, §9) — every node derives it the same
	// way from the same liveness signal rather than anyone persisting it.
	Paused
)

func (s AppState) String() string {
	switch s {
	case Lobby:
		return "Lobby"
	case InGame:
		return "InGame"
	case Finished:
		return "Finished"
	case Paused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// ChatMessage is the one concrete, non-generic payload type every game
// shares regardless of its own state/action/role types.
type ChatMessage struct {
	Sender   identity.EndpointID `msgpack:"sender"`
	Text     string              `msgpack:"text"`
	SentAtMs int64               `msgpack:"sent_at_ms"`
}

// ErrParse wraps a malformed stored payload; StateData surfaces these
// rather than panicking so a single bad write can't take the room down.
var ErrParse = errors.New("roomstate: malformed stored value")

// ErrNoHost is returned by GetHostID when no host has claimed the room.
var ErrNoHost = errors.New("roomstate: no host claimed")

// StateData is the single gateway onto the shared document.
type StateData struct {
	doc    substrate.Document
	self   identity.EndpointID
	author identity.AuthorID

	// disconnected records the host-liveness tracker's latest signal
	// (spec.md §4.2's "host_offline"/"is_host_disconnected" local flag).
	// It is never persisted: every node maintains its own copy from the
	// neighbor events it personally observed.
	disconnected atomic.Bool
}

// New builds a StateData bound to doc, writing future entries under
// author on behalf of the local endpoint self.
func New(doc substrate.Document, self identity.EndpointID, author identity.AuthorID) *StateData {
	return &StateData{doc: doc, self: self, author: author}
}

// SetHostDisconnected updates the local-only disconnect flag. Called by
// internal/liveness whenever it observes the current host go up or down.
func (s *StateData) SetHostDisconnected(disconnected bool) {
	s.disconnected.Store(disconnected)
}

// --- writers ---

// ClaimHost unconditionally writes self as the room's host. Whether it
// is appropriate to call is a policy decision left to internal/room;
// re-election when the stored host_id names an endpoint nobody has seen
// online is an open question (spec.md §9) this package does not resolve.
func (s *StateData) ClaimHost() error {
	return s.doc.SetBytes(s.author, roomkeys.HostID, []byte(s.self))
}

// SetAppState persists the room's lifecycle phase. Paused must never be
// passed here: it is synthetic and has no wire representation.
func (s *StateData) SetAppState(state AppState) error {
	if state == Paused {
		return fmt.Errorf("roomstate: Paused is synthetic and cannot be persisted")
	}
	raw, err := codec.Marshal(state)
	if err != nil {
		return fmt.Errorf("roomstate: encode app state: %w", err)
	}
	return s.doc.SetBytes(s.author, roomkeys.AppState, raw)
}

// SetGameState persists the caller-encoded game state blob. The concrete
// game state type is opaque here; internal/room encodes/decodes it
// through internal/codec using the game logic's type parameter.
func (s *StateData) SetGameState(raw []byte) error {
	return s.doc.SetBytes(s.author, roomkeys.GameState, raw)
}

// InsertPeer writes a brand-new peer record.
func (s *StateData) InsertPeer(rec peer.Record) error {
	raw, err := codec.Marshal(rec)
	if err != nil {
		return fmt.Errorf("roomstate: encode peer record: %w", err)
	}
	return s.doc.SetBytes(s.author, roomkeys.PeerKey(rec.ID), raw)
}

// UpdatePeer replaces an existing peer record wholesale.
func (s *StateData) UpdatePeer(rec peer.Record) error {
	return s.InsertPeer(rec)
}

// SetPeerStatus patches a single peer's online/offline status via
// read-modify-write against the currently stored record.
func (s *StateData) SetPeerStatus(id identity.EndpointID, status peer.Status) error {
	rec, ok, err := s.GetPeerInfo(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("roomstate: no peer record for %s", id)
	}
	rec.Status = status
	return s.UpdatePeer(rec)
}

// AnnouncePresence writes a self-announced join/reconnect intent under
// join_request.<self>. The host's event pipeline turns this into a
// peer.<id> record (spec.md §4.5's Join dispatch; not the Joiner
// neighbor-up signal).
func (s *StateData) AnnouncePresence(profile peer.Profile) error {
	raw, err := codec.Marshal(profile)
	if err != nil {
		return fmt.Errorf("roomstate: encode profile: %w", err)
	}
	return s.doc.SetBytes(s.author, roomkeys.JoinRequestKey(s.self), raw)
}

// AnnounceLeave writes a caller-encoded LeaveReason under
// quit_request.<self> (spec.md §3). Callers sleep a short grace period
// after this (spec.md §5) to give the write a chance to gossip before
// tearing the connection down.
func (s *StateData) AnnounceLeave(raw []byte) error {
	return s.doc.SetBytes(s.author, roomkeys.QuitRequestKey(s.self), raw)
}

// SubmitAction writes a game action for player, addressed to the host's
// authoritative apply step (spec.md §4.4). Actions are overwritten in
// place and never deleted after processing (spec.md §9).
func (s *StateData) SubmitAction(player identity.EndpointID, raw []byte) error {
	return s.doc.SetBytes(s.author, roomkeys.ActionKey(player), raw)
}

// SendChat appends a chat message, keyed so prefix scans stay
// time-ordered (spec.md §4.1).
func (s *StateData) SendChat(text string) error {
	now := time.Now().UnixMilli()
	msg := ChatMessage{Sender: s.self, Text: text, SentAtMs: now}
	raw, err := codec.Marshal(msg)
	if err != nil {
		return fmt.Errorf("roomstate: encode chat message: %w", err)
	}
	return s.doc.SetBytes(s.author, roomkeys.ChatKey(now, s.self), raw)
}

// SetHeartbeat writes the optional secondary liveness signal (spec.md
// §9 extension): a timestamp a peer refreshes periodically so staleness
// can corroborate neighbor-event-based liveness tracking.
func (s *StateData) SetHeartbeat() error {
	now := time.Now().UnixMilli()
	raw, err := codec.Marshal(now)
	if err != nil {
		return fmt.Errorf("roomstate: encode heartbeat: %w", err)
	}
	return s.doc.SetBytes(s.author, roomkeys.HeartbeatKey(s.self), raw)
}

// --- readers ---

// GetHostID returns the room's currently claimed host, if any.
func (s *StateData) GetHostID() (identity.EndpointID, error) {
	_, value, ok, err := s.doc.GetOne(roomkeys.HostID)
	if err != nil {
		return "", fmt.Errorf("roomstate: read host id: %w", err)
	}
	if !ok || value == nil {
		return "", ErrNoHost
	}
	return identity.EndpointID(value), nil
}

// IsHost reports whether the local node currently holds the host role.
func (s *StateData) IsHost() bool {
	id, err := s.GetHostID()
	return err == nil && id == s.self
}

// IsPeerHost reports whether id currently holds the host role.
func (s *StateData) IsPeerHost(id identity.EndpointID) bool {
	hostID, err := s.GetHostID()
	return err == nil && hostID == id
}

// GetAppState returns the room's current phase, substituting the
// synthetic Paused state whenever the local host-disconnect flag is set,
// regardless of the persisted document value (spec.md §4.2, testable
// property #8.3: "Paused iff the local host-offline flag is set,
// independent of the document value").
func (s *StateData) GetAppState() (AppState, error) {
	if s.disconnected.Load() {
		return Paused, nil
	}
	_, value, ok, err := s.doc.GetOne(roomkeys.AppState)
	if err != nil {
		return 0, fmt.Errorf("roomstate: read app state: %w", err)
	}
	if !ok || value == nil {
		return Lobby, nil
	}
	var state AppState
	if err := codec.Unmarshal(value, &state); err != nil {
		return 0, fmt.Errorf("%w: app_state: %v", ErrParse, err)
	}
	return state, nil
}

// GetGameState returns the raw encoded game state, if any has been set.
func (s *StateData) GetGameState() ([]byte, bool, error) {
	_, value, ok, err := s.doc.GetOne(roomkeys.GameState)
	if err != nil {
		return nil, false, fmt.Errorf("roomstate: read game state: %w", err)
	}
	return value, ok && value != nil, nil
}

// GetPeerList returns every known peer record, patching the host's
// status to Offline locally when the disconnect flag is set (spec.md
// §4.2: the host has no way to write its own offline status).
func (s *StateData) GetPeerList() (peer.Map, error) {
	entries, err := s.doc.GetMany("peer.")
	if err != nil {
		return nil, fmt.Errorf("roomstate: scan peers: %w", err)
	}
	out := make(peer.Map, len(entries))
	for _, entry := range entries {
		value, status, err := s.doc.GetBytes(entry.ContentHash)
		if err != nil {
			return nil, fmt.Errorf("roomstate: fetch peer content: %w", err)
		}
		if status != substrate.ContentComplete {
			continue // deferred: event pipeline will re-announce once ready
		}
		var rec peer.Record
		if err := codec.Unmarshal(value, &rec); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrParse, entry.Key, err)
		}
		out[rec.ID] = rec
	}
	if s.disconnected.Load() {
		if hostID, err := s.GetHostID(); err == nil {
			out = out.WithHostOffline(hostID)
		}
	}
	return out, nil
}

// GetPeerInfo returns a single peer's record.
func (s *StateData) GetPeerInfo(id identity.EndpointID) (peer.Record, bool, error) {
	_, value, ok, err := s.doc.GetOne(roomkeys.PeerKey(id))
	if err != nil {
		return peer.Record{}, false, fmt.Errorf("roomstate: read peer %s: %w", id, err)
	}
	if !ok || value == nil {
		return peer.Record{}, false, nil
	}
	var rec peer.Record
	if err := codec.Unmarshal(value, &rec); err != nil {
		return peer.Record{}, false, fmt.Errorf("%w: peer.%s: %v", ErrParse, id, err)
	}
	return rec, true, nil
}

// GetPeerName resolves a peer's display nickname, falling back to its
// raw endpoint id when no record (or no nickname) is available.
func (s *StateData) GetPeerName(id identity.EndpointID) (string, error) {
	rec, ok, err := s.GetPeerInfo(id)
	if err != nil {
		return "", err
	}
	if !ok || rec.Profile.Nickname == "" {
		return string(id), nil
	}
	return rec.Profile.Nickname, nil
}
