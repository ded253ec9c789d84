// Package roomevents implements the event pipeline (spec.md §4.5): the
// single long-lived task per room that consumes the substrate's raw
// change stream and normalizes it into a small, typed NetworkEvent feed
// the room facade reacts to.
//
// The single-consumer-goroutine-over-a-channel shape, including the
// bounded output channel and drop-on-full backpressure policy, mirrors
// the teacher's scheduler loop (internal/server/scheduler.go) reading
// one event source and fanning decisions out to callers.
package roomevents

import (
	"context"
	"log/slog"
	"sync"

	"github.com/michael4d45/gameroom/internal/identity"
	"github.com/michael4d45/gameroom/internal/liveness"
	"github.com/michael4d45/gameroom/internal/roomkeys"
	"github.com/michael4d45/gameroom/internal/roomstate"
	"github.com/michael4d45/gameroom/internal/substrate"
)

// Kind enumerates the pipeline's normalized output events (spec.md
// §4.5).
type Kind int

const (
	EventUpdate Kind = iota
	EventJoiner
	EventLeaver
	EventSyncSucceeded
	EventSyncFailed
	EventError
)

func (k Kind) String() string {
	switch k {
	case EventUpdate:
		return "Update"
	case EventJoiner:
		return "Joiner"
	case EventLeaver:
		return "Leaver"
	case EventSyncSucceeded:
		return "SyncSucceeded"
	case EventSyncFailed:
		return "SyncFailed"
	default:
		return "Error"
	}
}

// NetworkEvent is a single normalized pipeline output.
type NetworkEvent struct {
	Kind    Kind
	PeerID  identity.EndpointID
	KeyKind roomkeys.Kind
	Key     string
	Err     error
}

// defaultPendingCap bounds the deferred-content table (spec.md §4.5):
// entries awaiting blob content past this many in flight are dropped
// with an EventError rather than growing unbounded.
const defaultPendingCap = 4096

// outputCap bounds the normalized event channel (spec.md §5).
const outputCap = 32

// Pipeline consumes one substrate document's change stream for the
// lifetime of a room.
type Pipeline struct {
	doc      substrate.Document
	state    *roomstate.StateData
	liveness *liveness.Tracker
	self     identity.EndpointID
	log      *slog.Logger
	pendCap  int

	mu      sync.Mutex
	pending map[substrate.Hash]substrate.Entry

	out    chan NetworkEvent
	cancel func()
}

// New builds a pipeline. Start must be called to actually begin
// consuming events.
func New(doc substrate.Document, state *roomstate.StateData, tracker *liveness.Tracker, self identity.EndpointID, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		doc:      doc,
		state:    state,
		liveness: tracker,
		self:     self,
		log:      log,
		pendCap:  defaultPendingCap,
		pending:  make(map[substrate.Hash]substrate.Entry),
		out:      make(chan NetworkEvent, outputCap),
	}
}

// Start subscribes to the substrate and begins the single consumer
// goroutine. The returned channel is closed when ctx is cancelled or
// Stop is called.
func (p *Pipeline) Start(ctx context.Context) <-chan NetworkEvent {
	events, docCancel := p.doc.Subscribe()
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	go func() {
		defer close(p.out)
		defer docCancel()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				p.handle(ev)
			}
		}
	}()

	return p.out
}

// Stop tears the pipeline's consumer goroutine down.
func (p *Pipeline) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
}

func (p *Pipeline) handle(ev substrate.LiveEvent) {
	switch ev.Kind {
	case substrate.EventInsertLocal:
		p.dispatch(ev.Entry)
	case substrate.EventInsertRemote:
		if ev.ContentStatus == substrate.ContentComplete {
			p.dispatch(ev.Entry)
			return
		}
		p.defer_(ev.Entry)
	case substrate.EventContentReady:
		p.mu.Lock()
		entry, ok := p.pending[ev.Hash]
		if ok {
			delete(p.pending, ev.Hash)
		}
		p.mu.Unlock()
		if ok {
			p.dispatch(entry)
		}
	case substrate.EventNeighborUp:
		p.liveness.HandleNeighborUp(ev.NeighborID)
		p.send(NetworkEvent{Kind: EventJoiner, PeerID: ev.NeighborID})
	case substrate.EventNeighborDown:
		p.liveness.HandleNeighborDown(ev.NeighborID)
		p.send(NetworkEvent{Kind: EventLeaver, PeerID: ev.NeighborID})
	case substrate.EventSyncFinished:
		kind := EventSyncSucceeded
		if ev.SyncErr != nil {
			kind = EventSyncFailed
		}
		p.send(NetworkEvent{Kind: kind, Err: ev.SyncErr})
	}
}

// defer_ holds entry back until its content arrives, bounded by pendCap.
// Named with a trailing underscore since "defer" is a keyword.
func (p *Pipeline) defer_(entry substrate.Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pending) >= p.pendCap {
		p.log.Warn("roomevents: deferred-content table full, dropping entry", "key", entry.Key)
		p.sendLocked(NetworkEvent{Kind: EventError, Key: entry.Key, Err: errPendingFull})
		return
	}
	p.pending[entry.ContentHash] = entry
}

func (p *Pipeline) sendLocked(ne NetworkEvent) {
	select {
	case p.out <- ne:
	default:
		p.log.Warn("roomevents: output channel full, dropping event", "kind", ne.Kind.String())
	}
}

func (p *Pipeline) send(ne NetworkEvent) {
	select {
	case p.out <- ne:
	default:
		p.log.Warn("roomevents: output channel full, dropping event", "kind", ne.Kind.String())
	}
}

// dispatch classifies a resolved entry's key and emits it as
// EventUpdate (spec.md §4.5). Joiner/Leaver are never produced here —
// they are the neighbor-up/down signal normalized in handle(), entirely
// separate from these document-key kinds. Join and ActionRequest are
// host-only dispatch: they are only meaningful to whichever node
// currently holds the host role, so non-hosts drop them silently rather
// than surfacing management chatter nobody but the host acts on.
// QuitRequest is an all-peers key but currently a no-op downstream,
// reserved for future forfeit/handoff handling.
func (p *Pipeline) dispatch(entry substrate.Entry) {
	kind, peerID, err := roomkeys.Classify(entry.Key)
	if err != nil {
		p.send(NetworkEvent{Kind: EventError, Key: entry.Key, Err: err})
		return
	}

	switch kind {
	case roomkeys.KindJoin, roomkeys.KindActionRequest:
		if !p.state.IsHost() {
			return
		}
	}
	p.send(NetworkEvent{Kind: EventUpdate, PeerID: peerID, KeyKind: kind, Key: entry.Key})
}

var errPendingFull = errPending{}

type errPending struct{}

func (errPending) Error() string { return "roomevents: deferred-content table is full" }
