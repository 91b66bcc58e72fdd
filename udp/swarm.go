package udp

import (
	"math/rand"
	"net/netip"
	"time"

	"github.com/chihaya/swarmd/bittorrent"
)

// swarmPeer is one peer's last-known state within a single swarm, scoped to
// one address family.
type swarmPeer struct {
	addr         netip.Addr
	port         uint16
	isSeeder     bool
	lastAnnounce time.Time
}

// swarm is the per-info-hash state a request worker tracks: two peer sets,
// one per address family, since an Announce response can only carry peers
// of the address family the requester announced with.
type swarm struct {
	peers4     map[bittorrent.PeerID]swarmPeer
	peers6     map[bittorrent.PeerID]swarmPeer
	seeders4   int
	leechers4  int
	seeders6   int
	leechers6  int
	completed  uint32
	lastActive time.Time
}

func newSwarm(now time.Time) *swarm {
	return &swarm{
		peers4:     make(map[bittorrent.PeerID]swarmPeer),
		peers6:     make(map[bittorrent.PeerID]swarmPeer),
		lastActive: now,
	}
}

func (s *swarm) peerSet(af bittorrent.AddressFamily) map[bittorrent.PeerID]swarmPeer {
	if af == bittorrent.IPv6 {
		return s.peers6
	}
	return s.peers4
}

func (s *swarm) counters(af bittorrent.AddressFamily) (seeders, leechers *int) {
	if af == bittorrent.IPv6 {
		return &s.seeders6, &s.leechers6
	}
	return &s.seeders4, &s.leechers4
}

// swarmStore is the shard of swarm state owned by exactly one request
// worker for the lifetime of the process; it is never touched by any other
// goroutine, so it needs no locking.
type swarmStore struct {
	index   int
	total   int
	swarms  map[bittorrent.InfoHash]*swarm
	rng     *rand.Rand
}

func newSwarmStore(index, total int, seed int64) *swarmStore {
	return &swarmStore{
		index:  index,
		total:  total,
		swarms: make(map[bittorrent.InfoHash]*swarm),
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// shard returns the request worker index that owns the given info-hash.
// It is pure and stable: the same hash always maps to the same worker for
// a fixed worker count.
func shard(h bittorrent.InfoHash, numRequestWorkers int) int {
	if numRequestWorkers <= 0 {
		return 0
	}
	return int(h[0]) % numRequestWorkers
}

// AnnounceUpdate is the outcome of applying one Announce to a swarm shard.
type AnnounceUpdate struct {
	Seeders  int
	Leechers int
	Peers    []bittorrent.Peer
}

// Announce applies one Announce request to this worker's swarm store,
// returning the counters and a peer sample to answer with.
//
// Event semantics: Stopped removes the peer; Completed additionally
// increments the swarm's download counter; anything else (including no
// event) inserts or refreshes the peer entry.
func (s *swarmStore) Announce(now time.Time, ih bittorrent.InfoHash, p bittorrent.Peer, event bittorrent.Event, left uint64, numWant int, allowCreate bool) AnnounceUpdate {
	sw, ok := s.swarms[ih]
	if !ok {
		if event == bittorrent.Stopped || !allowCreate {
			return AnnounceUpdate{}
		}
		sw = newSwarm(now)
		s.swarms[ih] = sw
	}
	sw.lastActive = now

	peers := sw.peerSet(p.IP.AddressFamily)
	seeders, leechers := sw.counters(p.IP.AddressFamily)

	if existing, had := peers[p.ID]; had {
		if existing.isSeeder {
			*seeders--
		} else {
			*leechers--
		}
	}

	if event == bittorrent.Stopped {
		delete(peers, p.ID)
	} else {
		isSeeder := left == 0
		peers[p.ID] = swarmPeer{
			addr:         netipFromIP(p.IP),
			port:         p.Port,
			isSeeder:     isSeeder,
			lastAnnounce: now,
		}
		if isSeeder {
			*seeders++
		} else {
			*leechers++
		}
		if event == bittorrent.Completed {
			sw.completed++
		}
	}

	return AnnounceUpdate{
		Seeders:  *seeders,
		Leechers: *leechers,
		Peers:    s.samplePeers(sw, p, left == 0, numWant),
	}
}

// samplePeers returns up to numWant peers from the requester's address
// family, excluding the requester itself. Per spec.md's §4.5, the sample is
// drawn preferentially from peers of the opposite seeder status (a leecher
// wants seeders and vice versa): opposite-status peers are shuffled in
// first, and same-status peers only fill out any remaining room. When
// fewer than numWant peers exist in total, every other peer is returned.
func (s *swarmStore) samplePeers(sw *swarm, requester bittorrent.Peer, requesterIsSeeder bool, numWant int) []bittorrent.Peer {
	peers := sw.peerSet(requester.IP.AddressFamily)
	if numWant <= 0 || len(peers) == 0 {
		return nil
	}

	var opposite, same []bittorrent.Peer
	for id, sp := range peers {
		if id == requester.ID {
			continue
		}
		peer := bittorrent.Peer{
			ID:   id,
			IP:   bittorrent.IP{IP: sp.addr.AsSlice(), AddressFamily: requester.IP.AddressFamily},
			Port: sp.port,
		}
		if sp.isSeeder == requesterIsSeeder {
			same = append(same, peer)
		} else {
			opposite = append(opposite, peer)
		}
	}

	s.rng.Shuffle(len(opposite), func(i, j int) { opposite[i], opposite[j] = opposite[j], opposite[i] })
	s.rng.Shuffle(len(same), func(i, j int) { same[i], same[j] = same[j], same[i] })

	candidates := append(opposite, same...)
	if numWant >= len(candidates) {
		return candidates
	}
	return candidates[:numWant]
}

// Scrape returns the stats for each requested info-hash in this shard,
// zeroed for any hash this worker has never seen.
func (s *swarmStore) Scrape(hashes []bittorrent.InfoHash) []ScrapeStats {
	stats := make([]ScrapeStats, len(hashes))
	for i, h := range hashes {
		sw, ok := s.swarms[h]
		if !ok {
			continue
		}
		stats[i] = ScrapeStats{
			Seeders:   uint32(sw.seeders4 + sw.seeders6),
			Completed: sw.completed,
			Leechers:  uint32(sw.leechers4 + sw.leechers6),
		}
	}
	return stats
}

// Clean evicts peers that have not announced within maxPeerAge and any
// swarm that has no peers left and has seen no announce for longer than
// maxTorrentAge.
func (s *swarmStore) Clean(now time.Time, maxPeerAge, maxTorrentAge time.Duration) {
	for ih, sw := range s.swarms {
		for af := 0; af < 2; af++ {
			family := bittorrent.IPv4
			if af == 1 {
				family = bittorrent.IPv6
			}
			peers := sw.peerSet(family)
			seeders, leechers := sw.counters(family)
			for id, p := range peers {
				if now.Sub(p.lastAnnounce) > maxPeerAge {
					if p.isSeeder {
						*seeders--
					} else {
						*leechers--
					}
					delete(peers, id)
				}
			}
		}

		if len(sw.peers4) == 0 && len(sw.peers6) == 0 && now.Sub(sw.lastActive) > maxTorrentAge {
			delete(s.swarms, ih)
		}
	}
}

// Counts reports the number of swarms and the total number of peers across
// every swarm and address family this shard currently holds.
func (s *swarmStore) Counts() (torrents, peers int) {
	torrents = len(s.swarms)
	for _, sw := range s.swarms {
		peers += len(sw.peers4) + len(sw.peers6)
	}
	return torrents, peers
}

func netipFromIP(ip bittorrent.IP) netip.Addr {
	addr, ok := netip.AddrFromSlice(ip.IP)
	if !ok {
		return netip.Addr{}
	}
	return addr.Unmap()
}

// bittorrentPeer builds the wire-independent Peer value for a peer
// identified by id, announcing from addr:port over address family af.
func bittorrentPeer(id bittorrent.PeerID, addr netip.Addr, port uint16, af bittorrent.AddressFamily) bittorrent.Peer {
	return bittorrent.Peer{
		ID:   id,
		IP:   bittorrent.IP{IP: addr.AsSlice(), AddressFamily: af},
		Port: port,
	}
}
