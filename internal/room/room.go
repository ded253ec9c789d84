// Package room implements the room facade (spec.md §4.7): the one
// entry point an application drives a game through, tying together the
// substrate document, StateData, the event pipeline, the host liveness
// tracker and a concrete pluggable gamelogic.Logic.
//
// The struct shape (transport/document/author/logic/is_host/id fields
// held together behind a handful of verb methods) is grounded directly
// on the original Rust GameRoom<G> (_examples/original_source/src/room.rs
// and src/room/{setup,actions,queries,events}.rs); Create/Join mirror
// GameRoom::host/GameRoom::join, adapted to Go's explicit lifetime
// management (a context.Context plus a Close method) instead of a
// Rust struct drop.
package room

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/michael4d45/gameroom/internal/codec"
	"github.com/michael4d45/gameroom/internal/gamelogic"
	"github.com/michael4d45/gameroom/internal/identity"
	"github.com/michael4d45/gameroom/internal/liveness"
	"github.com/michael4d45/gameroom/internal/peer"
	"github.com/michael4d45/gameroom/internal/roomevents"
	"github.com/michael4d45/gameroom/internal/roomstate"
	"github.com/michael4d45/gameroom/internal/substrate"
)

// Room is a live game room bound to a concrete game logic
// Logic[S, A, R, L, E].
type Room[S any, A any, R any, L any, E error] struct {
	doc      substrate.Document
	state    *roomstate.StateData
	tracker  *liveness.Tracker
	pipeline *roomevents.Pipeline
	logic    gamelogic.Logic[S, A, R, L, E]
	self     identity.EndpointID
	isHost   bool
	log      *slog.Logger

	mu  sync.Mutex
	out chan UIEvent[S]

	cancel context.CancelFunc
	done   chan struct{}
}

// Create starts a brand-new room as its host (spec.md §4.7 "create"):
// it claims the host role, seeds Lobby as the app state, and admits
// itself as the first peer.
func Create[S any, A any, R any, L any, E error](
	ctx context.Context,
	doc substrate.Document,
	id *identity.Identity,
	author identity.AuthorID,
	profile peer.Profile,
	logic gamelogic.Logic[S, A, R, L, E],
	log *slog.Logger,
) (*Room[S, A, R, L, E], error) {
	state := roomstate.New(doc, id.EndpointID, author)

	if err := state.ClaimHost(); err != nil {
		return nil, fmt.Errorf("room: claim host: %w", err)
	}
	if err := state.SetAppState(roomstate.Lobby); err != nil {
		return nil, fmt.Errorf("room: seed lobby state: %w", err)
	}
	if err := state.InsertPeer(peer.New(id.EndpointID, profile, false)); err != nil {
		return nil, fmt.Errorf("room: admit host peer: %w", err)
	}

	return newRoom(ctx, doc, state, id.EndpointID, true, logic, log), nil
}

// Join connects to an existing room as a regular peer (spec.md §4.7
// "join"). The caller is responsible for calling AnnouncePresence once
// connected, matching the Rust source's "application is responsible for
// announcing presence" comment.
func Join[S any, A any, R any, L any, E error](
	ctx context.Context,
	doc substrate.Document,
	id *identity.Identity,
	author identity.AuthorID,
	logic gamelogic.Logic[S, A, R, L, E],
	log *slog.Logger,
) (*Room[S, A, R, L, E], error) {
	state := roomstate.New(doc, id.EndpointID, author)
	return newRoom(ctx, doc, state, id.EndpointID, false, logic, log), nil
}

func newRoom[S any, A any, R any, L any, E error](
	ctx context.Context,
	doc substrate.Document,
	state *roomstate.StateData,
	self identity.EndpointID,
	isHost bool,
	logic gamelogic.Logic[S, A, R, L, E],
	log *slog.Logger,
) *Room[S, A, R, L, E] {
	if log == nil {
		log = slog.Default()
	}
	tracker := liveness.New(state)
	pipeline := roomevents.New(doc, state, tracker, self, log)

	ctx, cancel := context.WithCancel(ctx)
	r := &Room[S, A, R, L, E]{
		doc:      doc,
		state:    state,
		tracker:  tracker,
		pipeline: pipeline,
		logic:    logic,
		self:     self,
		isHost:   isHost,
		log:      log,
		out:      make(chan UIEvent[S], 32),
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	netEvents := pipeline.Start(ctx)
	go r.runLoop(ctx, netEvents)
	return r
}

// ID returns the room's identifier as carried in its bootstrap ticket.
func (r *Room[S, A, R, L, E]) ID() (string, error) {
	t, err := r.doc.Ticket()
	if err != nil {
		return "", fmt.Errorf("room: id: %w", err)
	}
	return t.RoomID, nil
}

// Ticket returns an encoded bootstrap ticket for sharing with joiners.
func (r *Room[S, A, R, L, E]) Ticket() (string, error) {
	t, err := r.doc.Ticket()
	if err != nil {
		return "", fmt.Errorf("room: ticket: %w", err)
	}
	return t.Encode()
}

// IsHost reports whether this endpoint currently holds the host role.
func (r *Room[S, A, R, L, E]) IsHost() bool {
	return r.state.IsHost()
}

// Events returns the room's UI event stream.
func (r *Room[S, A, R, L, E]) Events() <-chan UIEvent[S] {
	return r.out
}

// Close tears the room's pipeline goroutine down, announcing a
// graceful leave first — host or non-host alike (spec.md §5: a short
// grace period lets the leave notification gossip out before the
// connection drops). Applications that want to report a specific
// reason should call AnnounceLeave explicitly before Close; otherwise
// the game logic's DefaultLeaveReason is used.
func (r *Room[S, A, R, L, E]) Close(ctx context.Context) error {
	if err := r.AnnounceLeave(r.logic.DefaultLeaveReason()); err != nil {
		r.log.Warn("room: announce leave failed", "error", err)
	}
	select {
	case <-time.After(time.Second):
	case <-ctx.Done():
	}

	r.cancel()
	r.pipeline.Stop()
	<-r.done
	return r.doc.Close(ctx)
}

func (r *Room[S, A, R, L, E]) decodeGameState() (S, error) {
	var state S
	raw, ok, err := r.state.GetGameState()
	if err != nil {
		return state, err
	}
	if !ok {
		return state, fmt.Errorf("room: no game state set yet")
	}
	if err := codec.Unmarshal(raw, &state); err != nil {
		return state, fmt.Errorf("room: decode game state: %w", err)
	}
	return state, nil
}
