package substrate

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/memberlist"

	"github.com/michael4d45/gameroom/internal/codec"
	"github.com/michael4d45/gameroom/internal/identity"
)

// Cluster is the real networked Document, built on
// github.com/hashicorp/memberlist for membership and gossip (spec.md
// §6.1's substrate adaptor, grounded on the teacher's
// discovery_broadcaster.go UDP-presence pattern and generalised from a
// one-way broadcast to full bidirectional gossip membership).
//
// Unlike a chunked content-exchange protocol, gossip messages here carry
// entry values inline, the same whole-payload-per-packet approach the
// teacher's broadcaster uses for its JSON presence frames; see
// DESIGN.md for why a separate blob-fetch wire protocol was not built.
type Cluster struct {
	id       identity.EndpointID
	roomID   string
	list     *memberlist.Memberlist
	queue    *memberlist.TransmitLimitedQueue
	delegate *clusterDelegate

	mu      sync.RWMutex
	entries map[string]Entry
	blobs   *blobStore
	clock   uint64

	subsMu sync.Mutex
	subs   map[int]chan LiveEvent
	subSeq int
}

// ClusterConfig configures a new Cluster.
type ClusterConfig struct {
	RoomID     string
	BindAddr   string // host:port, e.g. "0.0.0.0:7946"
	Advertise  string // externally reachable host:port, empty to reuse BindAddr
	JoinAddrs  []string
}

// NewCluster starts a memberlist agent and joins any addresses supplied
// in cfg.JoinAddrs (a freshly created room has none).
func NewCluster(id identity.EndpointID, cfg ClusterConfig) (*Cluster, error) {
	c := &Cluster{
		id:      id,
		roomID:  cfg.RoomID,
		entries: make(map[string]Entry),
		blobs:   newBlobStore(),
		subs:    make(map[int]chan LiveEvent),
	}

	mlCfg := memberlist.DefaultLANConfig()
	mlCfg.Name = string(id)
	if cfg.BindAddr != "" {
		host, portStr, err := net.SplitHostPort(cfg.BindAddr)
		if err != nil {
			return nil, fmt.Errorf("substrate: bad bind addr %q: %w", cfg.BindAddr, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("substrate: bad bind port %q: %w", portStr, err)
		}
		mlCfg.BindAddr = host
		mlCfg.BindPort = port
	}
	if cfg.Advertise != "" {
		host, portStr, err := net.SplitHostPort(cfg.Advertise)
		if err == nil {
			if port, err := strconv.Atoi(portStr); err == nil {
				mlCfg.AdvertiseAddr = host
				mlCfg.AdvertisePort = port
			}
		}
	}

	delegate := &clusterDelegate{c: c}
	mlCfg.Delegate = delegate
	mlCfg.Events = delegate

	list, err := memberlist.Create(mlCfg)
	if err != nil {
		return nil, fmt.Errorf("substrate: start memberlist: %w", err)
	}
	c.list = list
	c.delegate = delegate
	c.queue = &memberlist.TransmitLimitedQueue{
		NumNodes:       list.NumMembers,
		RetransmitMult: 3,
	}

	if len(cfg.JoinAddrs) > 0 {
		if _, err := list.Join(cfg.JoinAddrs); err != nil {
			return nil, fmt.Errorf("substrate: join cluster: %w", err)
		}
	}

	return c, nil
}

var _ Document = (*Cluster)(nil)

// gossipMsg is the wire envelope for a single entry write, gossiped
// through memberlist's broadcast queue and also used for the full
// anti-entropy push/pull exchanged on join.
type gossipMsg struct {
	Entry Entry  `msgpack:"entry"`
	Value []byte `msgpack:"value,omitempty"`
}

type pushPullState struct {
	Entries []Entry            `msgpack:"entries"`
	Values  map[Hash][]byte    `msgpack:"values"`
}

func (c *Cluster) SetBytes(author identity.AuthorID, key string, value []byte) error {
	hash := c.blobs.putLocal(value)
	c.mu.Lock()
	c.clock++
	entry := Entry{Key: key, ContentHash: hash, Size: int64(len(value)), Author: author, Clock: c.clock, Timestamp: time.Now()}
	c.applyLocked(entry)
	c.mu.Unlock()

	c.emit(LiveEvent{Kind: EventInsertLocal, Entry: entry, ContentStatus: ContentComplete})
	c.broadcast(entry, value)
	return nil
}

func (c *Cluster) Delete(author identity.AuthorID, key string) error {
	c.mu.Lock()
	c.clock++
	entry := Entry{Key: key, Size: tombstoneSize, Author: author, Clock: c.clock, Timestamp: time.Now()}
	c.applyLocked(entry)
	c.mu.Unlock()

	c.emit(LiveEvent{Kind: EventInsertLocal, Entry: entry, ContentStatus: ContentComplete})
	c.broadcast(entry, nil)
	return nil
}

func (c *Cluster) broadcast(entry Entry, value []byte) {
	raw, err := codec.Marshal(gossipMsg{Entry: entry, Value: value})
	if err != nil {
		return
	}
	c.queue.QueueBroadcast(simpleBroadcast(raw))
}

// applyLocked stores entry if it wins LWW against whatever is already
// present, reporting whether it was applied. Callers hold c.mu.
func (c *Cluster) applyLocked(entry Entry) bool {
	if existing, ok := c.entries[entry.Key]; ok && !entry.Newer(existing) {
		return false
	}
	c.entries[entry.Key] = entry
	return true
}

func (c *Cluster) GetOne(key string) (Entry, []byte, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || entry.Size == tombstoneSize {
		return Entry{}, nil, false, nil
	}
	value, status, _ := c.blobs.get(entry.ContentHash)
	if status != ContentComplete {
		return entry, nil, true, nil
	}
	return entry, value, true, nil
}

func (c *Cluster) GetMany(prefix string) ([]Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Entry
	for k, e := range c.entries {
		if e.Size == tombstoneSize {
			continue
		}
		if strings.HasPrefix(k, prefix) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (c *Cluster) GetBytes(hash Hash) ([]byte, ContentStatus, error) {
	value, status, _ := c.blobs.get(hash)
	return value, status, nil
}

func (c *Cluster) Subscribe() (<-chan LiveEvent, func()) {
	ch := make(chan LiveEvent, 64)
	c.subsMu.Lock()
	id := c.subSeq
	c.subSeq++
	c.subs[id] = ch
	c.subsMu.Unlock()

	cancel := func() {
		c.subsMu.Lock()
		delete(c.subs, id)
		c.subsMu.Unlock()
		close(ch)
	}
	return ch, cancel
}

func (c *Cluster) emit(ev LiveEvent) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (c *Cluster) Ticket() (Ticket, error) {
	var addrs []string
	for _, m := range c.list.Members() {
		addrs = append(addrs, net.JoinHostPort(m.Addr.String(), strconv.Itoa(int(m.Port))))
	}
	return Ticket{RoomID: c.roomID, Addrs: addrs, Write: true}, nil
}

func (c *Cluster) Close(ctx context.Context) error {
	deadline := 5 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		deadline = time.Until(dl)
	}
	if err := c.list.Leave(deadline); err != nil {
		return fmt.Errorf("substrate: leave cluster: %w", err)
	}
	if err := c.list.Shutdown(); err != nil {
		return fmt.Errorf("substrate: shutdown cluster: %w", err)
	}

	c.subsMu.Lock()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.subsMu.Unlock()
	return nil
}

// clusterDelegate implements memberlist.Delegate and
// memberlist.EventDelegate, translating gossip traffic and membership
// churn into substrate.LiveEvent values.
type clusterDelegate struct {
	c *Cluster
}

func (d *clusterDelegate) NodeMeta(limit int) []byte { return nil }

func (d *clusterDelegate) NotifyMsg(raw []byte) {
	var msg gossipMsg
	if err := codec.Unmarshal(raw, &msg); err != nil {
		return
	}
	d.applyRemote(msg.Entry, msg.Value)
}

func (d *clusterDelegate) applyRemote(entry Entry, value []byte) {
	d.c.mu.Lock()
	applied := d.c.applyLocked(entry)
	d.c.mu.Unlock()
	if !applied {
		return
	}

	status := ContentComplete
	if value != nil {
		d.c.blobs.complete(entry.ContentHash, value)
	} else if entry.Size >= 0 {
		if _, st, ok := d.c.blobs.get(entry.ContentHash); !ok || st != ContentComplete {
			d.c.blobs.markPending(entry.ContentHash)
			status = ContentMissing
		}
	}
	d.c.emit(LiveEvent{Kind: EventInsertRemote, Entry: entry, ContentStatus: status, Hash: entry.ContentHash})
}

func (d *clusterDelegate) GetBroadcasts(overhead, limit int) [][]byte {
	return d.c.queue.GetBroadcasts(overhead, limit)
}

func (d *clusterDelegate) LocalState(join bool) []byte {
	d.c.mu.RLock()
	defer d.c.mu.RUnlock()
	state := pushPullState{Values: make(map[Hash][]byte)}
	for _, e := range d.c.entries {
		state.Entries = append(state.Entries, e)
		if e.Size >= 0 {
			if value, status, ok := d.c.blobs.get(e.ContentHash); ok && status == ContentComplete {
				state.Values[e.ContentHash] = value
			}
		}
	}
	raw, err := codec.Marshal(state)
	if err != nil {
		return nil
	}
	return raw
}

func (d *clusterDelegate) MergeRemoteState(buf []byte, join bool) {
	var state pushPullState
	if err := codec.Unmarshal(buf, &state); err != nil {
		return
	}
	for _, e := range state.Entries {
		d.applyRemote(e, state.Values[e.ContentHash])
	}
}

func (d *clusterDelegate) NotifyJoin(n *memberlist.Node) {
	if n.Name == string(d.c.id) {
		return
	}
	d.c.emit(LiveEvent{Kind: EventNeighborUp, NeighborID: identity.EndpointID(n.Name)})
}

func (d *clusterDelegate) NotifyLeave(n *memberlist.Node) {
	if n.Name == string(d.c.id) {
		return
	}
	d.c.emit(LiveEvent{Kind: EventNeighborDown, NeighborID: identity.EndpointID(n.Name)})
}

func (d *clusterDelegate) NotifyUpdate(n *memberlist.Node) {}

// simpleBroadcast is the minimal memberlist.Broadcast implementation for
// a fire-and-forget entry write: it never invalidates earlier broadcasts
// and has no completion callback.
type simpleBroadcast []byte

func (b simpleBroadcast) Invalidates(other memberlist.Broadcast) bool { return false }
func (b simpleBroadcast) Message() []byte                             { return b }
func (b simpleBroadcast) Finished()                                   {}
