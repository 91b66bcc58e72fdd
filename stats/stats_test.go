package stats

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chihaya/swarmd/bittorrent"
)

func TestCounters_SampleResetsToZero(t *testing.T) {
	var c Counters
	c.IncRequestsReceived()
	c.IncRequestsReceived()
	c.AddBytesReceived(100)

	s := c.Sample()
	require.Equal(t, uint64(2), s.RequestsReceived)
	require.Equal(t, uint64(100), s.BytesReceived)

	s2 := c.Sample()
	require.Equal(t, uint64(0), s2.RequestsReceived)
	require.Equal(t, uint64(0), s2.BytesReceived)
}

func TestTracker_ForSelectsAddressFamily(t *testing.T) {
	var tr Tracker
	tr.For(bittorrent.IPv4).IncRequestsReceived()
	tr.For(bittorrent.IPv6).IncRequestsReceived()
	tr.For(bittorrent.IPv6).IncRequestsReceived()

	v4 := tr.IPv4.Sample()
	v6 := tr.IPv6.Sample()
	require.Equal(t, uint64(1), v4.RequestsReceived)
	require.Equal(t, uint64(2), v6.RequestsReceived)
}

func TestTracker_Gauges(t *testing.T) {
	var tr Tracker
	tr.SetTorrents(5)
	tr.SetPeers(12)
	require.Equal(t, int64(5), tr.Torrents())
	require.Equal(t, int64(12), tr.Peers())
}
