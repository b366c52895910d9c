package statsd

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listenUDP returns a local UDP socket and a function reading the next
// datagram sent to it.
func listenUDP(t *testing.T) (string, func() string) {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = pc.Close() })

	read := func() string {
		buf := make([]byte, 1024)
		require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))
		n, _, readErr := pc.ReadFrom(buf)
		require.NoError(t, readErr)
		return string(buf[:n])
	}
	return pc.LocalAddr().String(), read
}

func TestClientEmitsTaggedLines(t *testing.T) {
	addr, read := listenUDP(t)

	client, err := NewClient(Config{
		Enabled:    true,
		Address:    addr,
		Prefix:     "farmdesk.",
		GlobalTags: map[string]string{"env": "test"},
	})
	require.NoError(t, err)
	defer client.Close()
	require.True(t, client.Enabled())

	client.Count("reaper.cleanup", 1, map[string]string{"result": "success"})
	assert.Equal(t, "farmdesk.reaper.cleanup:1|c|#env:test,result:success", read())

	client.Gauge("sessions.active", 12.5, nil)
	assert.Equal(t, "farmdesk.sessions.active:12.5|g|#env:test", read())

	client.Timing("reaper.cleanup_duration", 250*time.Millisecond, nil)
	assert.Equal(t, "farmdesk.reaper.cleanup_duration:250|ms|#env:test", read())
}

func TestClientLocalTagsOverrideGlobal(t *testing.T) {
	addr, read := listenUDP(t)

	client, err := NewClient(Config{
		Enabled:    true,
		Address:    addr,
		GlobalTags: map[string]string{"env": "prod", " service ": " farmdesk "},
	})
	require.NoError(t, err)
	defer client.Close()

	client.Count("logins", 1, map[string]string{"env": "stage", "": "dropped"})
	assert.Equal(t, "logins:1|c|#env:stage,service:farmdesk", read())
}

func TestCleanName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		" auth/login ":    "auth_login",
		"foo..bar":        "foo.bar",
		"two  words":      "two__words",
		".leading.dots..": "leading.dots",
		"":                "",
	}
	for input, want := range cases {
		assert.Equal(t, want, cleanName(input), "cleanName(%q)", input)
	}
}

func TestDisabledAndNilClientsDropMetrics(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{Enabled: true, Address: "   "})
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	client.Count("ignored", 1, nil)

	var nilClient *Client
	assert.False(t, nilClient.Enabled())
	nilClient.Count("ignored", 1, nil)
	assert.NoError(t, nilClient.Close())
}

func TestCloseIsIdempotent(t *testing.T) {
	addr, _ := listenUDP(t)

	client, err := NewClient(Config{Enabled: true, Address: addr})
	require.NoError(t, err)
	require.True(t, client.Enabled())

	require.NoError(t, client.Close())
	assert.False(t, client.Enabled())
	require.NoError(t, client.Close())

	// Writes after close are silently dropped.
	client.Count("ignored", 1, nil)
}

func TestNewClientDialError(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{Enabled: true, Address: "bad address"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "statsd dial"))
}
