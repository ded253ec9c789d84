package peer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/michael4d45/gameroom/internal/identity"
)

func TestWithHostOfflinePatchesCopy(t *testing.T) {
	t.Parallel()

	host := identity.EndpointID("host-1")
	other := identity.EndpointID("peer-2")
	m := Map{
		host:  New(host, Profile{Nickname: "Host"}, false),
		other: New(other, Profile{Nickname: "Other"}, false),
	}

	patched := m.WithHostOffline(host)

	assert.Equal(t, StatusOnline, m[host].Status, "original map must be untouched")
	assert.Equal(t, StatusOffline, patched[host].Status)
	assert.Equal(t, StatusOnline, patched[other].Status)
}

func TestWithHostOfflineNoopWhenAlreadyOffline(t *testing.T) {
	t.Parallel()

	host := identity.EndpointID("host-1")
	rec := New(host, Profile{}, false)
	rec.Status = StatusOffline
	m := Map{host: rec}

	patched := m.WithHostOffline(host)
	assert.Equal(t, StatusOffline, patched[host].Status)
}

func TestWithHostOfflineUnknownHostIsNoop(t *testing.T) {
	t.Parallel()

	m := Map{}
	patched := m.WithHostOffline(identity.EndpointID("nobody"))
	assert.Empty(t, patched)
}
