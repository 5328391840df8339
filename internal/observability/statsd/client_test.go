package statsd

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMetricName(t *testing.T) {
	assert.Equal(t, "jobs.created", normalizeMetricName("jobs.created"))
	assert.Equal(t, "jobs_created", normalizeMetricName("jobs created"))
	assert.Equal(t, "reaper_cleanup", normalizeMetricName("reaper/cleanup"))
	assert.Equal(t, "a.b", normalizeMetricName(".a..b."))
	assert.Empty(t, normalizeMetricName("   "))
}

func TestTagSuffix(t *testing.T) {
	assert.Empty(t, tagSuffix(nil, nil))
	assert.Empty(t, tagSuffix(map[string]string{" ": "x"}, nil))

	suffix := tagSuffix(
		map[string]string{"env": "dev", "service": "api"},
		map[string]string{"result": "error", "env": "test"},
	)
	assert.Equal(t, "|#env:test,result:error,service:api", suffix)
}

func TestClientEmitsOverUDP(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	client, err := NewClient(Config{
		Enabled:    true,
		Address:    pc.LocalAddr().String(),
		Prefix:     ".seqdepot.",
		GlobalTags: map[string]string{"env": "test"},
	})
	require.NoError(t, err)
	require.True(t, client.Enabled())
	defer client.Close()

	client.Count("jobs.created", 2, map[string]string{"workflow": "trim_reads"})

	require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 512)
	n, _, err := pc.ReadFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, "seqdepot.jobs.created:2|c|#env:test,workflow:trim_reads", string(buf[:n]))
}

func TestClientDisabledWithoutAddress(t *testing.T) {
	client, err := NewClient(Config{Enabled: true, Address: "  "})
	require.NoError(t, err)
	assert.False(t, client.Enabled())

	// No-ops, including on nil.
	client.Gauge("x", 1.5, nil)
	var nilClient *Client
	nilClient.Timing("y", time.Second, nil)
	assert.False(t, nilClient.Enabled())
	assert.NoError(t, nilClient.Close())
}

func TestClientCloseIsIdempotent(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	client, err := NewClient(Config{Enabled: true, Address: pc.LocalAddr().String()})
	require.NoError(t, err)
	require.NoError(t, client.Close())
	assert.False(t, client.Enabled())
	require.NoError(t, client.Close())
}
