// Package stats holds the tracker's shared atomic counters: requests and
// bytes received and responses and bytes sent, one set per address family,
// plus the process-wide live torrent/peer counts. Counters are sampled with a
// read-and-reset so a periodic reporter can compute accurate per-interval
// rates without re-reading history.
package stats

import (
	"sync/atomic"

	"github.com/chihaya/swarmd/bittorrent"
)

// Counters holds one set of atomic counters for one address family.
type Counters struct {
	requestsReceived uint64
	responsesSent    uint64
	bytesReceived    uint64
	bytesSent        uint64
	errorsSent       uint64
}

// IncRequestsReceived increments the request counter by one.
func (c *Counters) IncRequestsReceived() { atomic.AddUint64(&c.requestsReceived, 1) }

// IncResponsesSent increments the response counter by one.
func (c *Counters) IncResponsesSent() { atomic.AddUint64(&c.responsesSent, 1) }

// IncErrorsSent increments the error-response counter by one.
func (c *Counters) IncErrorsSent() { atomic.AddUint64(&c.errorsSent, 1) }

// AddBytesReceived adds n to the bytes-received counter.
func (c *Counters) AddBytesReceived(n int) { atomic.AddUint64(&c.bytesReceived, uint64(n)) }

// AddBytesSent adds n to the bytes-sent counter.
func (c *Counters) AddBytesSent(n int) { atomic.AddUint64(&c.bytesSent, uint64(n)) }

// Sample is a read-and-reset snapshot of a Counters, relative to the
// previous sample.
type Sample struct {
	RequestsReceived uint64
	ResponsesSent    uint64
	BytesReceived    uint64
	BytesSent        uint64
	ErrorsSent       uint64
}

// Sample reads and atomically resets every counter, equivalent to a
// fetch_and(0, AcqRel) in the design this is grounded on. If a reporter
// crashes between Sample and display, the counts are lost; this is
// acceptable because statistics are advisory only.
func (c *Counters) Sample() Sample {
	return Sample{
		RequestsReceived: atomic.SwapUint64(&c.requestsReceived, 0),
		ResponsesSent:    atomic.SwapUint64(&c.responsesSent, 0),
		BytesReceived:    atomic.SwapUint64(&c.bytesReceived, 0),
		BytesSent:        atomic.SwapUint64(&c.bytesSent, 0),
		ErrorsSent:       atomic.SwapUint64(&c.errorsSent, 0),
	}
}

// Tracker aggregates the process-wide counters: one Counters per address
// family, plus the live torrent/peer gauges a cleaner or swarm store
// updates directly.
type Tracker struct {
	IPv4 Counters
	IPv6 Counters

	numTorrents int64
	numPeers    int64
}

// For returns the Counters for the given address family.
func (t *Tracker) For(af bittorrent.AddressFamily) *Counters {
	if af == bittorrent.IPv6 {
		return &t.IPv6
	}
	return &t.IPv4
}

// SetTorrents sets the current live-torrent gauge.
func (t *Tracker) SetTorrents(n int) { atomic.StoreInt64(&t.numTorrents, int64(n)) }

// SetPeers sets the current live-peer gauge.
func (t *Tracker) SetPeers(n int) { atomic.StoreInt64(&t.numPeers, int64(n)) }

// Torrents returns the current live-torrent gauge.
func (t *Tracker) Torrents() int64 { return atomic.LoadInt64(&t.numTorrents) }

// Peers returns the current live-peer gauge.
func (t *Tracker) Peers() int64 { return atomic.LoadInt64(&t.numPeers) }
