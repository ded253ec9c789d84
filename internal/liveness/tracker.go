// Package liveness implements the host liveness tracker (spec.md §4.6):
// a single flag inferred primarily from substrate neighbor events,
// corroborated optionally by heartbeat staleness (spec.md §9 extension,
// never the sole signal).
//
// Grounded on the teacher's SaveTracker TTL/sweep pattern
// (internal/server/p2p/tracker.go), trimmed down since this tracker
// watches exactly one peer — whoever currently holds the host role —
// rather than an open population of save-state seeders.
package liveness

import (
	"sync"
	"time"

	"github.com/michael4d45/gameroom/internal/identity"
	"github.com/michael4d45/gameroom/internal/roomstate"
)

// Tracker watches neighbor up/down signals for the room's current host
// and mirrors them onto the local roomstate disconnect flag.
type Tracker struct {
	state *roomstate.StateData

	mu           sync.Mutex
	lastHeartbeat map[identity.EndpointID]time.Time
}

// New builds a Tracker bound to state. state.GetHostID is consulted on
// every neighbor event to decide whether it concerns the current host.
func New(state *roomstate.StateData) *Tracker {
	return &Tracker{
		state:         state,
		lastHeartbeat: make(map[identity.EndpointID]time.Time),
	}
}

// HandleNeighborUp clears the disconnect flag if id is the current host.
func (t *Tracker) HandleNeighborUp(id identity.EndpointID) {
	if t.state.IsPeerHost(id) {
		t.state.SetHostDisconnected(false)
	}
}

// HandleNeighborDown sets the disconnect flag if id is the current host.
func (t *Tracker) HandleNeighborDown(id identity.EndpointID) {
	if t.state.IsPeerHost(id) {
		t.state.SetHostDisconnected(true)
	}
}

// ObserveHeartbeat records a freshly seen heartbeat timestamp from id,
// feeding the secondary corroboration signal in CheckStale.
func (t *Tracker) ObserveHeartbeat(id identity.EndpointID, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastHeartbeat[id] = at
}

// CheckStale raises the disconnect flag if the current host's last
// observed heartbeat is older than timeout. It only ever sets the flag,
// never clears it — clearing is the neighbor-up signal's job — so a
// host that simply hasn't sent a heartbeat recently but is still
// gossiping normally is never wrongly marked live by this path alone.
func (t *Tracker) CheckStale(hostID identity.EndpointID, timeout time.Duration) {
	t.mu.Lock()
	last, ok := t.lastHeartbeat[hostID]
	t.mu.Unlock()
	if !ok {
		return
	}
	if time.Since(last) > timeout {
		t.state.SetHostDisconnected(true)
	}
}
