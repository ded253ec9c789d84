// Package substrate implements the external substrate adaptor (spec.md
// §6.1): a minimal Go-native realization of the gossiped KV-document plus
// content-addressed blob store that the original system (an iroh/
// iroh-docs/iroh-gossip prototype with no Go port, see
// _examples/original_source) relies on.
//
// Two Document implementations are provided: Memory, a single-process
// loopback bus used by tests and local multi-room demos, and Cluster, a
// real networked implementation built on github.com/hashicorp/memberlist
// for membership/gossip. Both share the same LWW entry model and blob
// store so the room engine is oblivious to which one it is driving.
package substrate

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/michael4d45/gameroom/internal/identity"
)

// ContentStatus mirrors spec.md §6.1's content-addressed fetch states.
type ContentStatus int

const (
	ContentMissing ContentStatus = iota
	ContentIncomplete
	ContentComplete
)

// Hash is a content address: the sha256 digest of an entry's value.
// sha256 is stdlib, not an ecosystem pick — no content-addressed blob
// library appears anywhere in the retrieved pack, so this one piece is a
// justified stdlib use (see DESIGN.md).
type Hash [sha256.Size]byte

func hashOf(b []byte) Hash { return sha256.Sum256(b) }

// Entry is a single key -> value revision (spec.md glossary). Clock and
// Author together give the LWW conflict-resolution ordering (spec.md
// glossary: "last-write-wins ... ordered by (logical clock, author)").
type Entry struct {
	Key         string
	ContentHash Hash
	Size        int64
	Author      identity.AuthorID
	Clock       uint64
	Timestamp   time.Time
}

// Newer reports whether e should win over other under LWW ordering.
func (e Entry) Newer(other Entry) bool {
	if e.Clock != other.Clock {
		return e.Clock > other.Clock
	}
	return e.Author > other.Author
}

// LiveEvent is the substrate's change-stream event (spec.md §6.1).
type LiveEvent struct {
	Kind          LiveEventKind
	Entry         Entry
	ContentStatus ContentStatus
	Hash          Hash
	NeighborID    identity.EndpointID
	SyncErr       error
}

// LiveEventKind enumerates LiveEvent.Kind values.
type LiveEventKind int

const (
	EventInsertLocal LiveEventKind = iota
	EventInsertRemote
	EventContentReady
	EventNeighborUp
	EventNeighborDown
	EventSyncFinished
)

// Document is the KV-document contract spec.md §6.1 requires of the
// substrate: per-key LWW writes, prefix reads, a change-event stream, and
// content-addressed blob retrieval.
type Document interface {
	// SetBytes writes value under key, attributed to author. The write is
	// gossiped to every subscriber, including the local one.
	SetBytes(author identity.AuthorID, key string, value []byte) error
	// Delete removes key (spec.md §6.1 "del"); the tombstone itself is an
	// LWW entry like any other write.
	Delete(author identity.AuthorID, key string) error
	// GetOne returns the current winning entry for key, if any.
	GetOne(key string) (Entry, []byte, bool, error)
	// GetMany returns every current winning entry whose key has the given
	// prefix, e.g. "peer." for a full peer-list scan.
	GetMany(prefix string) ([]Entry, error)
	// GetBytes resolves an entry's content from the blob store.
	GetBytes(hash Hash) ([]byte, ContentStatus, error)
	// Subscribe opens the change-event stream. The returned cancel func
	// must be called to stop receiving events and release resources.
	Subscribe() (<-chan LiveEvent, func())
	// Ticket returns a refreshed bootstrap ticket encoding currently known
	// peer addresses (spec.md §6.2).
	Ticket() (Ticket, error)
	// Close shuts the substrate connection down.
	Close(ctx context.Context) error
}

// ErrNotFound is a sentinel for a missing value. Neither Document
// implementation in this package returns it: GetOne reports an absent
// key with ok=false and GetBytes an unknown hash with ContentMissing.
var ErrNotFound = fmt.Errorf("substrate: not found")
