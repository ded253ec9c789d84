package substrate

import (
	"encoding/base64"
	"fmt"

	"github.com/michael4d45/gameroom/internal/codec"
)

// Ticket is the self-contained bootstrap token a host hands a joiner
// (spec.md §6.2): the room id plus every peer address currently known to
// the issuing node, so a new node can dial straight in without a
// separate discovery step.
type Ticket struct {
	RoomID  string   `msgpack:"room_id"`
	Addrs   []string `msgpack:"addrs"`
	Write   bool     `msgpack:"write"`
}

// Encode renders t as an opaque, copy-pasteable string: msgpack then
// base64 (url-safe, unpadded), the same two-stage envelope the teacher
// uses for its websocket control-frame payloads, adapted here to a
// single offline-shareable token instead of a live frame.
func (t Ticket) Encode() (string, error) {
	raw, err := codec.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("substrate: encode ticket: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeTicket parses a ticket string produced by Ticket.Encode.
func DecodeTicket(s string) (Ticket, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Ticket{}, fmt.Errorf("substrate: decode ticket: bad base64: %w", err)
	}
	var t Ticket
	if err := codec.Unmarshal(raw, &t); err != nil {
		return Ticket{}, fmt.Errorf("substrate: decode ticket: %w", err)
	}
	if t.RoomID == "" {
		return Ticket{}, fmt.Errorf("substrate: decode ticket: missing room id")
	}
	return t, nil
}
