package udp

import (
	"net/netip"

	"github.com/chihaya/swarmd/bittorrent"
)

// requestKind distinguishes the two kinds of work a request worker handles.
type requestKind int

const (
	requestAnnounce requestKind = iota
	requestScrape
)

// announceWork is the Announce-specific payload of a connectedRequest.
type announceWork struct {
	infoHash bittorrent.InfoHash
	peer     bittorrent.Peer
	event    bittorrent.Event
	left     uint64
	numWant  int
}

// scrapeWork is one shard's slice of a (possibly multi-shard) Scrape
// request: the subset of requested info-hashes this worker owns, along with
// the index each held in the original request.
type scrapeWork struct {
	indices []int
	hashes  []bittorrent.InfoHash
}

// connectedRequest is handed from a socket worker to the request worker
// that owns the relevant info-hash shard.
type connectedRequest struct {
	kind        requestKind
	socketIndex int
	addr        netip.AddrPort
	txID        TransactionID
	announce    announceWork
	scrape      scrapeWork
}

// connectedResponse is handed back from a request worker to the originating
// socket worker so the client sees a reply from the address it sent to.
type connectedResponse struct {
	addr    netip.AddrPort
	txID    TransactionID
	kind    requestKind
	announce AnnounceUpdate
	scrape   scrapePartial
}

// dispatcher owns the channels connecting socket workers to request workers
// and back. Channels are buffered and sends are non-blocking: a full
// channel causes the request to be dropped, which is the pragmatic Go
// stand-in for the design's conceptually unbounded queue. Letting a send
// fail here is equivalent to the kernel dropping a datagram at a full
// receive buffer — both are observable only through the bytes_received /
// responses_sent counters, never as a crash or stall.
type dispatcher struct {
	toRequestWorkers []chan connectedRequest
	toSocketWorkers  []chan connectedResponse
}

// newDispatcher builds the channel fabric for numSocketWorkers socket
// workers and numRequestWorkers request workers. queueDepth bounds each
// channel; it is a pragmatic finite stand-in for an unbounded queue, not a
// back-pressure mechanism the protocol depends on.
func newDispatcher(numSocketWorkers, numRequestWorkers, queueDepth int) *dispatcher {
	d := &dispatcher{
		toRequestWorkers: make([]chan connectedRequest, numRequestWorkers),
		toSocketWorkers:  make([]chan connectedResponse, numSocketWorkers),
	}
	for i := range d.toRequestWorkers {
		d.toRequestWorkers[i] = make(chan connectedRequest, queueDepth)
	}
	for i := range d.toSocketWorkers {
		d.toSocketWorkers[i] = make(chan connectedResponse, queueDepth)
	}
	return d
}

// trySendToRequestWorker performs a non-blocking hand-off to the request
// worker that owns the given shard index. It reports whether the request
// was accepted.
func (d *dispatcher) trySendToRequestWorker(workerIndex int, req connectedRequest) bool {
	select {
	case d.toRequestWorkers[workerIndex] <- req:
		return true
	default:
		return false
	}
}

// trySendToSocketWorker performs a non-blocking hand-off of a finished
// response back to the socket worker that originated the request.
func (d *dispatcher) trySendToSocketWorker(socketIndex int, resp connectedResponse) bool {
	select {
	case d.toSocketWorkers[socketIndex] <- resp:
		return true
	default:
		return false
	}
}
