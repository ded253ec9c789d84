package substrate

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/michael4d45/gameroom/internal/codec"
)

// LANAnnouncer periodically broadcasts a room's ticket over UDP
// multicast so peers on the same network can discover and join it
// without an out-of-band copy-paste exchange (spec.md §6.2, "join a
// room given its ticket" — this supplies tickets automatically on a
// LAN). Adapted from the teacher's DiscoveryBroadcaster
// (internal/server/discovery_broadcaster.go), generalised from a
// fixed host/port/name payload to an arbitrary encoded ticket and given
// a matching listener side the teacher never implemented.
type LANAnnouncer struct {
	addr     string
	interval time.Duration
	ticket   Ticket
	log      *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	conn    *net.UDPConn
}

// DefaultLANMulticastAddr is the multicast group used when none is
// configured, picked from the admin-scoped (site-local) IPv4 range.
const DefaultLANMulticastAddr = "239.255.42.99:7947"

// NewLANAnnouncer builds an announcer for ticket, broadcast every
// interval on addr (host:port of a multicast group).
func NewLANAnnouncer(addr string, interval time.Duration, ticket Ticket, log *slog.Logger) *LANAnnouncer {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &LANAnnouncer{addr: addr, interval: interval, ticket: ticket, log: log}
}

// Start begins broadcasting until the returned context is cancelled or
// Stop is called.
func (a *LANAnnouncer) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return nil
	}

	udpAddr, err := net.ResolveUDPAddr("udp4", a.addr)
	if err != nil {
		return fmt.Errorf("substrate: resolve multicast addr %q: %w", a.addr, err)
	}
	conn, err := net.DialUDP("udp4", nil, udpAddr)
	if err != nil {
		return fmt.Errorf("substrate: dial multicast: %w", err)
	}
	a.conn = conn
	a.running = true

	ctx, a.cancel = context.WithCancel(ctx)
	go a.loop(ctx)

	a.log.Info("lan announcer started", "addr", a.addr, "room_id", a.ticket.RoomID)
	return nil
}

func (a *LANAnnouncer) loop(ctx context.Context) {
	raw, err := codec.Marshal(a.ticket)
	if err != nil {
		a.log.Error("lan announcer: encode ticket failed", "error", err)
		return
	}

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		if _, err := a.conn.Write(raw); err != nil {
			a.log.Warn("lan announcer: broadcast failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stop halts broadcasting and releases the socket.
func (a *LANAnnouncer) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return nil
	}
	a.running = false
	if a.cancel != nil {
		a.cancel()
	}
	return a.conn.Close()
}

// ListenForTickets listens on addr for announcements and invokes onTicket
// for each one received, until ctx is cancelled.
func ListenForTickets(ctx context.Context, addr string, onTicket func(Ticket), log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	udpAddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return fmt.Errorf("substrate: resolve multicast addr %q: %w", addr, err)
	}
	conn, err := net.ListenMulticastUDP("udp4", nil, udpAddr)
	if err != nil {
		return fmt.Errorf("substrate: listen multicast: %w", err)
	}
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	buf := make([]byte, 4096)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("lan discovery: read failed", "error", err)
			continue
		}
		var ticket Ticket
		if err := codec.Unmarshal(buf[:n], &ticket); err != nil {
			continue
		}
		onTicket(ticket)
	}
}
