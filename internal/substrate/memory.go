package substrate

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/michael4d45/gameroom/internal/identity"
)

// tombstoneSize marks a deleted entry: no blob is stored for it.
const tombstoneSize = -1

// Swarm is an in-process simulation of a gossiped document shared by
// every Memory handle joined to it. It exists so tests and local
// multi-room demos can exercise the room engine against many "nodes"
// without any real networking, the same way the teacher's tests drive
// scheduler.go against an in-process fake broadcaster rather than a
// live websocket.
type Swarm struct {
	mu      sync.RWMutex
	entries map[string]Entry
	blobs   *blobStore
	members map[identity.EndpointID]*Memory
	clock   atomic.Uint64

	// ContentDelay, when non-zero, makes remote inserts observed by a
	// member report ContentMissing first and flip to ContentComplete
	// after the delay, exercising the deferred-content path (spec.md
	// §4.5) the way a real network fetch would. Zero means content is
	// always immediately resolvable, which is fine for single-process
	// correctness tests that aren't specifically about that path.
	ContentDelay time.Duration
}

// NewSwarm creates an empty in-process swarm.
func NewSwarm() *Swarm {
	return &Swarm{
		entries: make(map[string]Entry),
		blobs:   newBlobStore(),
		members: make(map[identity.EndpointID]*Memory),
	}
}

// Join admits a new member node to the swarm, returning its Document
// handle. Joining broadcasts NeighborUp to every existing member and
// delivers NeighborUp for every existing member back to the joiner.
func (s *Swarm) Join(id identity.EndpointID) *Memory {
	m := &Memory{
		id:   id,
		swarm: s,
		subs: make(map[int]chan LiveEvent),
	}

	s.mu.Lock()
	for _, other := range s.members {
		other.emit(LiveEvent{Kind: EventNeighborUp, NeighborID: id})
		m.emit(LiveEvent{Kind: EventNeighborUp, NeighborID: other.id})
	}
	s.members[id] = m
	s.mu.Unlock()

	return m
}

// Memory is a Document handle joined to a Swarm.
type Memory struct {
	id    identity.EndpointID
	swarm *Swarm

	mu      sync.Mutex
	subs    map[int]chan LiveEvent
	subSeq  int
}

var _ Document = (*Memory)(nil)

func (m *Memory) emit(ev LiveEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default:
			// Slow subscriber: drop rather than block the swarm. The room
			// event pipeline is expected to keep its receive loop hot;
			// dropping here only matters for tests that forget to drain.
		}
	}
}

func (m *Memory) Subscribe() (<-chan LiveEvent, func()) {
	ch := make(chan LiveEvent, 64)
	m.mu.Lock()
	id := m.subSeq
	m.subSeq++
	m.subs[id] = ch
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
		close(ch)
	}
	return ch, cancel
}

func (m *Memory) SetBytes(author identity.AuthorID, key string, value []byte) error {
	hash := m.swarm.blobs.putLocal(value)
	entry := Entry{
		Key:         key,
		ContentHash: hash,
		Size:        int64(len(value)),
		Author:      author,
		Clock:       m.swarm.clock.Add(1),
		Timestamp:   time.Now(),
	}
	m.swarm.store(entry)
	m.swarm.broadcast(m.id, entry, m.swarm.blobs)
	return nil
}

func (m *Memory) Delete(author identity.AuthorID, key string) error {
	entry := Entry{
		Key:       key,
		Size:      tombstoneSize,
		Author:    author,
		Clock:     m.swarm.clock.Add(1),
		Timestamp: time.Now(),
	}
	m.swarm.store(entry)
	m.swarm.broadcast(m.id, entry, m.swarm.blobs)
	return nil
}

func (m *Memory) GetOne(key string) (Entry, []byte, bool, error) {
	m.swarm.mu.RLock()
	entry, ok := m.swarm.entries[key]
	m.swarm.mu.RUnlock()
	if !ok || entry.Size == tombstoneSize {
		return Entry{}, nil, false, nil
	}
	value, status, _ := m.swarm.blobs.get(entry.ContentHash)
	if status != ContentComplete {
		return entry, nil, true, nil
	}
	return entry, value, true, nil
}

func (m *Memory) GetMany(prefix string) ([]Entry, error) {
	m.swarm.mu.RLock()
	defer m.swarm.mu.RUnlock()
	var out []Entry
	for k, e := range m.swarm.entries {
		if e.Size == tombstoneSize {
			continue
		}
		if strings.HasPrefix(k, prefix) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Memory) GetBytes(hash Hash) ([]byte, ContentStatus, error) {
	value, status, _ := m.swarm.blobs.get(hash)
	return value, status, nil
}

func (m *Memory) Ticket() (Ticket, error) {
	return Ticket{RoomID: "memory", Write: true}, nil
}

func (m *Memory) Close(ctx context.Context) error {
	m.swarm.mu.Lock()
	delete(m.swarm.members, m.id)
	others := make([]*Memory, 0, len(m.swarm.members))
	for _, other := range m.swarm.members {
		others = append(others, other)
	}
	m.swarm.mu.Unlock()

	for _, other := range others {
		other.emit(LiveEvent{Kind: EventNeighborDown, NeighborID: m.id})
	}

	m.mu.Lock()
	for id, ch := range m.subs {
		delete(m.subs, id)
		close(ch)
	}
	m.mu.Unlock()
	return nil
}

func (s *Swarm) store(entry Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.entries[entry.Key]; ok && !entry.Newer(existing) {
		return
	}
	s.entries[entry.Key] = entry
}

// broadcast fans entry out to every member: EventInsertLocal to its
// author, EventInsertRemote (with the appropriate content status) to
// everyone else.
func (s *Swarm) broadcast(author identity.EndpointID, entry Entry, blobs *blobStore) {
	s.mu.RLock()
	members := make([]*Memory, 0, len(s.members))
	for id, m := range s.members {
		if id == author {
			continue
		}
		members = append(members, m)
	}
	local := s.members[author]
	s.mu.RUnlock()

	if local != nil {
		local.emit(LiveEvent{Kind: EventInsertLocal, Entry: entry, ContentStatus: ContentComplete})
	}

	status := ContentComplete
	if s.ContentDelay > 0 && entry.Size >= 0 {
		status = ContentMissing
		blobs.markPending(entry.ContentHash)
	}
	for _, m := range members {
		m.emit(LiveEvent{Kind: EventInsertRemote, Entry: entry, ContentStatus: status, Hash: entry.ContentHash})
	}

	if status == ContentMissing {
		go func(h Hash) {
			time.Sleep(s.ContentDelay)
			if value, _, ok := blobs.get(h); ok {
				blobs.complete(h, value)
			}
			s.mu.RLock()
			defer s.mu.RUnlock()
			for id, m := range s.members {
				if id == author {
					continue
				}
				m.emit(LiveEvent{Kind: EventContentReady, Hash: h})
			}
		}(entry.ContentHash)
	}
}
