package udp

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chihaya/swarmd/bittorrent"
)

func TestShard_StableAndDeterministic(t *testing.T) {
	var ih bittorrent.InfoHash
	ih[0] = 7

	a := shard(ih, 4)
	b := shard(ih, 4)
	require.Equal(t, a, b)
	require.Equal(t, int(ih[0])%4, a)
}

func TestShard_ZeroWorkersIsSafe(t *testing.T) {
	var ih bittorrent.InfoHash
	ih[0] = 200
	require.Equal(t, 0, shard(ih, 0))
}

func peerAt(id byte, ip string, port uint16, af bittorrent.AddressFamily) bittorrent.Peer {
	var pid bittorrent.PeerID
	pid[0] = id
	addr := netip.MustParseAddr(ip)
	return bittorrentPeer(pid, addr, port, af)
}

func TestSwarmStore_AnnounceAddsSeederAndLeecher(t *testing.T) {
	store := newSwarmStore(0, 1, 1)
	now := time.Now()
	var ih bittorrent.InfoHash

	seeder := peerAt(1, "10.0.0.1", 1000, bittorrent.IPv4)
	update := store.Announce(now, ih, seeder, bittorrent.None, 0, 50, true)
	require.Equal(t, 1, update.Seeders)
	require.Equal(t, 0, update.Leechers)
	require.Empty(t, update.Peers)

	leecher := peerAt(2, "10.0.0.2", 1001, bittorrent.IPv4)
	update = store.Announce(now, ih, leecher, bittorrent.None, 100, 50, true)
	require.Equal(t, 1, update.Seeders)
	require.Equal(t, 1, update.Leechers)
	require.Len(t, update.Peers, 1)
	require.Equal(t, seeder.ID, update.Peers[0].ID)
}

func TestSwarmStore_StoppedRemovesPeer(t *testing.T) {
	store := newSwarmStore(0, 1, 1)
	now := time.Now()
	var ih bittorrent.InfoHash

	p := peerAt(1, "10.0.0.1", 1000, bittorrent.IPv4)
	store.Announce(now, ih, p, bittorrent.None, 100, 0, true)
	update := store.Announce(now, ih, p, bittorrent.Stopped, 100, 0, true)
	require.Equal(t, 0, update.Seeders)
	require.Equal(t, 0, update.Leechers)
}

func TestSwarmStore_StoppedOnUnknownSwarmDoesNotCreateIt(t *testing.T) {
	store := newSwarmStore(0, 1, 1)
	now := time.Now()
	var ih bittorrent.InfoHash

	p := peerAt(1, "10.0.0.1", 1000, bittorrent.IPv4)
	store.Announce(now, ih, p, bittorrent.Stopped, 0, 0, true)
	torrents, _ := store.Counts()
	require.Equal(t, 0, torrents)
}

func TestSwarmStore_CompletedIncrementsDownloadCount(t *testing.T) {
	store := newSwarmStore(0, 1, 1)
	now := time.Now()
	var ih bittorrent.InfoHash

	p := peerAt(1, "10.0.0.1", 1000, bittorrent.IPv4)
	store.Announce(now, ih, p, bittorrent.Completed, 0, 0, true)

	stats := store.Scrape([]bittorrent.InfoHash{ih})
	require.Equal(t, uint32(1), stats[0].Completed)
}

func TestSwarmStore_Scrape_UnknownHashIsZeroed(t *testing.T) {
	store := newSwarmStore(0, 1, 1)
	var unknown bittorrent.InfoHash
	unknown[0] = 99

	stats := store.Scrape([]bittorrent.InfoHash{unknown})
	require.Equal(t, ScrapeStats{}, stats[0])
}

func TestSwarmStore_Clean_EvictsStalePeersAndEmptySwarms(t *testing.T) {
	store := newSwarmStore(0, 1, 1)
	now := time.Now()
	var ih bittorrent.InfoHash

	p := peerAt(1, "10.0.0.1", 1000, bittorrent.IPv4)
	store.Announce(now, ih, p, bittorrent.None, 100, 0, true)

	later := now.Add(time.Hour)
	store.Clean(later, time.Minute, time.Minute)

	torrents, peers := store.Counts()
	require.Equal(t, 0, torrents)
	require.Equal(t, 0, peers)
}

func TestSwarmStore_AnnounceExcludesRequesterFromPeerSample(t *testing.T) {
	store := newSwarmStore(0, 1, 1)
	now := time.Now()
	var ih bittorrent.InfoHash

	p1 := peerAt(1, "10.0.0.1", 1000, bittorrent.IPv4)
	store.Announce(now, ih, p1, bittorrent.None, 100, 50, true)

	update := store.Announce(now, ih, p1, bittorrent.None, 100, 50, true)
	require.Empty(t, update.Peers)
}
