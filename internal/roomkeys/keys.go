// Package roomkeys defines the document key schema (spec.md §4.1) and
// classifies raw document keys into typed events.
package roomkeys

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/michael4d45/gameroom/internal/identity"
)

// Singleton keys.
const (
	AppState = "app_state"
	HostID   = "host_id"
	GameState = "game_state"
)

// Per-peer / per-message key prefixes.
const (
	prefixPeer        = "peer."
	prefixJoinRequest  = "join_request."
	prefixQuitRequest  = "quit_request."
	prefixAction       = "action."
	prefixChat         = "chat."
	prefixHeartbeat    = "heartbeat."
)

// Kind enumerates the classifier's output (spec.md §4.1).
type Kind int

const (
	KindUnknown Kind = iota
	KindJoin
	KindQuitRequest
	KindActionRequest
	KindChatMessage
	KindPeerEntry
	KindGameStateUpdate
	KindAppStateUpdate
	KindHostUpdate
	KindHeartbeat
)

func (k Kind) String() string {
	switch k {
	case KindJoin:
		return "Join"
	case KindQuitRequest:
		return "QuitRequest"
	case KindActionRequest:
		return "ActionRequest"
	case KindChatMessage:
		return "ChatMessage"
	case KindPeerEntry:
		return "PeerEntry"
	case KindGameStateUpdate:
		return "GameStateUpdate"
	case KindAppStateUpdate:
		return "AppStateUpdate"
	case KindHostUpdate:
		return "HostUpdate"
	case KindHeartbeat:
		return "Heartbeat"
	default:
		return "Unknown"
	}
}

// PeerKey builds the document key for a peer record.
func PeerKey(id identity.EndpointID) string { return prefixPeer + string(id) }

// JoinRequestKey builds the document key for a self-announced join.
func JoinRequestKey(id identity.EndpointID) string { return prefixJoinRequest + string(id) }

// QuitRequestKey builds the document key for a self-announced leave.
func QuitRequestKey(id identity.EndpointID) string { return prefixQuitRequest + string(id) }

// ActionKey builds the per-peer action singleton key.
func ActionKey(id identity.EndpointID) string { return prefixAction + string(id) }

// HeartbeatKey builds the optional heartbeat key (spec.md §9 extension).
func HeartbeatKey(id identity.EndpointID) string { return prefixHeartbeat + string(id) }

// ChatKey builds a chat message key. Timestamp precedes the endpoint id so
// that lexicographic prefix scans over "chat." remain ordered by time
// (spec.md §4.1); the id suffix guarantees uniqueness between peers that
// send within the same millisecond.
func ChatKey(timestampMs int64, id identity.EndpointID) string {
	return fmt.Sprintf("%s%020d.%s", prefixChat, timestampMs, id)
}

// Classify maps a raw document key to its Kind and, where applicable, the
// endpoint id embedded in it. Parsing the id is fallible; a malformed
// per-peer key yields KindUnknown plus an error the caller should surface
// as a UI error event, never a crash (spec.md §4.1).
func Classify(key string) (Kind, identity.EndpointID, error) {
	switch key {
	case AppState:
		return KindAppStateUpdate, "", nil
	case HostID:
		return KindHostUpdate, "", nil
	case GameState:
		return KindGameStateUpdate, "", nil
	}

	switch {
	case strings.HasPrefix(key, prefixPeer):
		return KindPeerEntry, "", nil
	case strings.HasPrefix(key, prefixJoinRequest):
		id, err := parseTrailingID(key, prefixJoinRequest)
		return classifyOrUnknown(KindJoin, id, err)
	case strings.HasPrefix(key, prefixQuitRequest):
		id, err := parseTrailingID(key, prefixQuitRequest)
		return classifyOrUnknown(KindQuitRequest, id, err)
	case strings.HasPrefix(key, prefixAction):
		id, err := parseTrailingID(key, prefixAction)
		return classifyOrUnknown(KindActionRequest, id, err)
	case strings.HasPrefix(key, prefixHeartbeat):
		id, err := parseTrailingID(key, prefixHeartbeat)
		return classifyOrUnknown(KindHeartbeat, id, err)
	case strings.HasPrefix(key, prefixChat):
		id, err := parseChatID(key)
		return classifyOrUnknown(KindChatMessage, id, err)
	}
	return KindUnknown, "", fmt.Errorf("roomkeys: unrecognised key %q", key)
}

func classifyOrUnknown(kind Kind, id identity.EndpointID, err error) (Kind, identity.EndpointID, error) {
	if err != nil {
		return KindUnknown, "", err
	}
	return kind, id, nil
}

func parseTrailingID(key, prefix string) (identity.EndpointID, error) {
	rest := strings.TrimPrefix(key, prefix)
	if rest == "" {
		return "", fmt.Errorf("roomkeys: empty endpoint id in key %q", key)
	}
	return identity.EndpointID(rest), nil
}

// parseChatID extracts the endpoint id suffix from a "chat.<ts>.<id>" key.
func parseChatID(key string) (identity.EndpointID, error) {
	rest := strings.TrimPrefix(key, prefixChat)
	dot := strings.IndexByte(rest, '.')
	if dot < 0 {
		return "", fmt.Errorf("roomkeys: malformed chat key %q", key)
	}
	tsPart, idPart := rest[:dot], rest[dot+1:]
	if idPart == "" {
		return "", fmt.Errorf("roomkeys: empty endpoint id in chat key %q", key)
	}
	if _, err := strconv.ParseInt(tsPart, 10, 64); err != nil {
		return "", fmt.Errorf("roomkeys: malformed chat timestamp in key %q: %w", key, err)
	}
	return identity.EndpointID(idPart), nil
}

// PeerIDFromPeerKey extracts the endpoint id from a "peer.<id>" key.
func PeerIDFromPeerKey(key string) (identity.EndpointID, error) {
	return parseTrailingID(key, prefixPeer)
}
