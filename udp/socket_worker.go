package udp

import (
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/chihaya/swarmd/accesslist"
	"github.com/chihaya/swarmd/bittorrent"
	"github.com/chihaya/swarmd/bytepool"
	"github.com/chihaya/swarmd/pkg/log"
	"github.com/chihaya/swarmd/pkg/timecache"
	"github.com/chihaya/swarmd/stats"
)

// pollTimeout bounds how long a socket worker blocks in one read before
// re-checking for shutdown and running its periodic cleanup. It plays the
// role mio's readiness poll plays in the design this is grounded on: Go's
// runtime netpoller already multiplexes readiness underneath net.UDPConn,
// so a short rolling read deadline reproduces the same cadence without a
// manual epoll/kqueue loop.
const pollTimeout = 50 * time.Millisecond

// cleanEveryNIterations bounds how often a socket worker checks whether its
// connection and pending-scrape tables are due for a sweep.
const cleanEveryNIterations = 32

// socketWorker owns exactly one SO_REUSEPORT UDP socket, its own connection
// table, its own pending-scrape table, and its own connection ID generator.
// Nothing here is shared with any other socket worker.
type socketWorker struct {
	index int
	conn  *net.UDPConn
	isV6  bool

	connTable *connectionTable
	pending   *pendingScrapeTable
	connIDGen *connectionIDGenerator

	dispatcher  *dispatcher
	numRequestWorkers int
	cfg         Config
	accessList  *accesslist.List
	statsTracker *stats.Tracker

	closing chan struct{}
	wg      *sync.WaitGroup

	lastConnClean   time.Time
	lastScrapeClean time.Time
}

func newSocketWorker(index int, conn *net.UDPConn, d *dispatcher, numRequestWorkers int, cfg Config, al *accesslist.List, st *stats.Tracker, wg *sync.WaitGroup) *socketWorker {
	local := conn.LocalAddr().(*net.UDPAddr)
	isV6 := local.IP.To4() == nil

	now := time.Now()
	return &socketWorker{
		index:             index,
		conn:              conn,
		isV6:              isV6,
		connTable:         newConnectionTable(),
		pending:           newPendingScrapeTable(),
		connIDGen:         newConnectionIDGenerator(time.Now().UnixNano() + int64(index)),
		dispatcher:        d,
		numRequestWorkers: numRequestWorkers,
		cfg:               cfg,
		accessList:        al,
		statsTracker:      st,
		closing:           make(chan struct{}),
		wg:                wg,
		lastConnClean:     now,
		lastScrapeClean:   now,
	}
}

// run is the socket worker's main loop. It must be run in its own
// goroutine; wg.Done is called on return.
func (w *socketWorker) run() {
	defer w.wg.Done()

	pool := bytepool.New(maxPacketSize)
	iterations := 0

	for {
		select {
		case <-w.closing:
			return
		default:
		}

		w.conn.SetReadDeadline(time.Now().Add(pollTimeout))
		w.drainSocket(pool)
		w.drainResponses()

		iterations++
		if iterations%cleanEveryNIterations == 0 {
			w.maybeClean()
		}
	}
}

// drainSocket reads and handles every datagram currently available,
// stopping at the first WouldBlock/deadline-exceeded error.
func (w *socketWorker) drainSocket(pool *bytepool.BytePool) {
	for {
		buf := pool.Get()
		n, srcAddr, err := w.conn.ReadFromUDPAddrPort(*buf)
		if err != nil {
			pool.Put(buf)
			var netErr net.Error
			if ne, ok := err.(net.Error); ok {
				netErr = ne
			}
			if netErr != nil && netErr.Timeout() {
				return
			}
			log.Debug("udp socket read error", log.Fields{"error": err})
			return
		}
		if n == 0 {
			pool.Put(buf)
			continue
		}

		addr := normalizeSourceAddr(srcAddr)
		af := addressFamily(addr.Addr())
		w.statsTracker.For(af).AddBytesReceived(n)

		w.handleDatagram((*buf)[:n], addr, af)
		pool.Put(buf)
	}
}

// handleDatagram implements the dispatch table from the design's request
// dispatch section: Connect is answered locally, Announce/Scrape are
// validated against the connection table and access list, then either
// answered locally (errors) or routed to a request worker. requests_received
// only counts datagrams that decoded successfully, per spec.md's counter
// monotonicity property; bytes_received, counted by the caller, is
// unconditional.
func (w *socketWorker) handleDatagram(packet []byte, addr netip.AddrPort, af bittorrent.AddressFamily) {
	req, err := decodeRequest(packet)
	if err != nil {
		// Only a sendable parse error - one where the shared header was
		// readable, so a connID/txID exist to check and reply with - for
		// a known connection gets an ErrorResponse. Anything else
		// (unreadable header, bad Connect magic, unknown connection) is
		// silently dropped.
		if pe, ok := err.(*parseError); ok && w.connTable.Contains(pe.connID, addr) {
			w.sendError(addr, pe.txID, pe.err.Error())
		}
		return
	}

	w.statsTracker.For(af).IncRequestsReceived()

	switch r := req.(type) {
	case *connectRequestMsg:
		w.handleConnect(r, addr)
	case *announceRequestMsg:
		w.handleAnnounce(r, addr)
	case *scrapeRequestMsg:
		w.handleScrape(r, addr)
	}
}

func (w *socketWorker) handleConnect(r *connectRequestMsg, addr netip.AddrPort) {
	connID := w.connIDGen.Generate()
	validUntil := ValidUntil(timecache.Now().Add(w.cfg.Cleaning.MaxConnectionAge))
	w.connTable.Insert(connID, addr, validUntil)

	w.sendLocal(addr, encodeConnect(r.txID, connID))
}

func (w *socketWorker) handleAnnounce(r *announceRequestMsg, addr netip.AddrPort) {
	if !w.connTable.Contains(r.connID, addr) {
		return
	}

	ih := r.infoHash
	if !w.accessList.Allows(ih) {
		w.sendError(addr, r.txID, string(errInfoHashBanned))
		return
	}

	af := addressFamily(addr.Addr())
	numWant := int(r.numWant)
	if r.numWant < 0 {
		numWant = int(w.cfg.Protocol.DefaultNumWant)
	} else if uint32(r.numWant) > w.cfg.Protocol.MaxNumWant {
		numWant = int(w.cfg.Protocol.MaxNumWant)
	}

	work := announceWork{
		infoHash: ih,
		peer: bittorrentPeer(r.peerID, addr.Addr(), r.port, af),
		event:   r.event,
		left:    r.left,
		numWant: numWant,
	}

	workerIndex := shard(ih, w.numRequestWorkers)
	ok := w.dispatcher.trySendToRequestWorker(workerIndex, connectedRequest{
		kind:        requestAnnounce,
		socketIndex: w.index,
		addr:        addr,
		txID:        r.txID,
		announce:    work,
	})
	if !ok {
		log.Debug("dropped announce, request worker queue full", log.Fields{"worker": workerIndex})
	}
}

func (w *socketWorker) handleScrape(r *scrapeRequestMsg, addr netip.AddrPort) {
	if !w.connTable.Contains(r.connID, addr) {
		return
	}

	if len(r.infoHashes) > w.cfg.Protocol.MaxScrapeTorrents {
		w.sendError(addr, r.txID, string(errTooManyHashes))
		return
	}

	byShard := make(map[int]*scrapeWork)
	for i, h := range r.infoHashes {
		idx := shard(h, w.numRequestWorkers)
		sw, ok := byShard[idx]
		if !ok {
			sw = &scrapeWork{}
			byShard[idx] = sw
		}
		sw.indices = append(sw.indices, i)
		sw.hashes = append(sw.hashes, h)
	}

	validUntil := ValidUntil(timecache.Now().Add(w.cfg.Cleaning.MaxConnectionAge))
	w.pending.Prepare(r.txID, len(r.infoHashes), len(byShard), validUntil)

	for idx, sw := range byShard {
		ok := w.dispatcher.trySendToRequestWorker(idx, connectedRequest{
			kind:        requestScrape,
			socketIndex: w.index,
			addr:        addr,
			txID:        r.txID,
			scrape:      *sw,
		})
		if !ok {
			log.Debug("dropped scrape shard, request worker queue full", log.Fields{"worker": idx})
		}
	}
}

// drainResponses consumes every response currently waiting in this
// worker's channel from request workers, completing and sending Announce
// responses immediately and feeding Scrape partials into the pending-scrape
// table, sending the aggregate once every shard has answered.
func (w *socketWorker) drainResponses() {
	ch := w.dispatcher.toSocketWorkers[w.index]
	for {
		select {
		case resp := <-ch:
			w.handleResponse(resp)
		default:
			return
		}
	}
}

func (w *socketWorker) handleResponse(resp connectedResponse) {
	switch resp.kind {
	case requestAnnounce:
		interval := uint32(w.cfg.Cleaning.Interval / time.Second)
		if interval == 0 {
			interval = uint32(defaultCleaningInterval / time.Second)
		}
		w.sendLocal(resp.addr, encodeAnnounce(resp.txID, interval, uint32(resp.announce.Leechers), uint32(resp.announce.Seeders), resp.announce.Peers))
	case requestScrape:
		scrapeStats, done := w.pending.AddAndGetFinished(resp.scrape)
		if done {
			w.sendLocal(resp.addr, encodeScrape(resp.txID, scrapeStats))
		}
	}
}

// sendLocal encodes the address family of the destination to match the
// bound socket (folding IPv4 into v6-mapped form when this worker's socket
// is IPv6) and writes the response.
func (w *socketWorker) sendLocal(addr netip.AddrPort, payload []byte) {
	dest := addr
	if w.isV6 && addr.Addr().Is4() {
		dest = netip.AddrPortFrom(netip.AddrFrom16(addr.Addr().As16()), addr.Port())
	}

	n, err := w.conn.WriteToUDPAddrPort(payload, dest)
	af := addressFamily(addr.Addr())
	if err != nil {
		log.Debug("udp socket write error", log.Fields{"error": err})
		return
	}
	w.statsTracker.For(af).IncResponsesSent()
	w.statsTracker.For(af).AddBytesSent(n)
}

// sendError encodes and sends an Error response, additionally counting it
// against the error-response counter for the destination's address family.
func (w *socketWorker) sendError(addr netip.AddrPort, txID TransactionID, message string) {
	w.statsTracker.For(addressFamily(addr.Addr())).IncErrorsSent()
	w.sendLocal(addr, encodeError(txID, message))
}

func (w *socketWorker) maybeClean() {
	now := timecache.Now()
	if now.Sub(w.lastConnClean) >= w.cfg.Cleaning.ConnectionCleaningInterval {
		w.connTable.Clean(now)
		w.lastConnClean = now
	}
	if now.Sub(w.lastScrapeClean) >= w.cfg.Cleaning.ConnectionCleaningInterval {
		w.pending.Clean(now)
		w.lastScrapeClean = now
	}
}

// stop signals the worker to exit its loop on the next iteration.
func (w *socketWorker) stop() { close(w.closing) }
