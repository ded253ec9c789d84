// Package peer implements the peer model (spec.md §4.3): per-endpoint
// profile and status records, enumerated by prefix scan over peer.<id>
// document keys and never evicted once admitted.
//
// The per-id record shape is grounded on the teacher's SaveTracker
// (internal/server/p2p/tracker.go). This package holds no lock and no
// live storage: a Map is a plain value built fresh by each peer-list
// read. Unlike SaveTracker, which sweeps stale entries on a TTL, peer
// records here are permanent — "presence is history" (spec.md §3).
package peer

import "github.com/michael4d45/gameroom/internal/identity"

// Status is a peer's online/offline state as tracked by the host.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// Profile is immutable self-description supplied by a peer on join
// (spec.md §3), unless the owner later updates it.
type Profile struct {
	Nickname string  `msgpack:"nickname"`
	Avatar   *string `msgpack:"avatar,omitempty"`
}

// Record is the durable per-endpoint record stored under peer.<id>.
type Record struct {
	ID         identity.EndpointID `msgpack:"id"`
	Profile    Profile             `msgpack:"profile"`
	Status     Status              `msgpack:"status"`
	Ready      bool                `msgpack:"ready"`
	IsObserver bool                `msgpack:"is_observer"`
}

// New builds a fresh record for a peer that just joined. The engine
// treats anyone admitted after game start as an observer by default
// (spec.md §4.3); callers pass that decision in explicitly since it
// depends on the room's current AppState.
func New(id identity.EndpointID, profile Profile, isObserver bool) Record {
	return Record{
		ID:         id,
		Profile:    profile,
		Status:     StatusOnline,
		Ready:      false,
		IsObserver: isObserver,
	}
}

// Map is a snapshot of the peer set, keyed by endpoint id; as a plain Go
// map its iteration order is not defined. It is always a copy: callers never get a live reference
// into the room's internal storage, matching the teacher's
// SnapshotPlayers contract (internal/server/state.go).
type Map map[identity.EndpointID]Record

// WithHostOffline returns a copy of m with hostID's status patched to
// Offline, even if the stored record still reads Online. This implements
// spec.md §4.2's rule that a host has no way to write its own offline
// status, so get_peer_list must patch it locally when the local
// disconnect flag is set.
func (m Map) WithHostOffline(hostID identity.EndpointID) Map {
	rec, ok := m[hostID]
	if !ok || rec.Status == StatusOffline {
		return m
	}
	out := make(Map, len(m))
	for id, r := range m {
		out[id] = r
	}
	rec.Status = StatusOffline
	out[hostID] = rec
	return out
}
