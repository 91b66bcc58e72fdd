package udp

import (
	"sync"
	"sync/atomic"

	"github.com/chihaya/swarmd/pkg/timecache"
)

// requestWorker owns exactly one shard of the swarm store for the lifetime
// of the process. It is the only goroutine that ever touches its store, so
// no locking is needed on the hot path.
type requestWorker struct {
	index             int
	store             *swarmStore
	dispatcher        *dispatcher
	cfg               Config
	accessAllowCreate bool

	// clean receives a signal from the cleaner goroutine every
	// cleaning.interval; it is handled on this worker's own goroutine so
	// the swarm shard is never touched cross-thread.
	clean chan struct{}

	// torrentGauge and peerGauge are this shard's slots in the Tracker's
	// shared gauge slices. They are updated with a plain atomic store
	// whenever this worker cleans its shard, so a separate goroutine can
	// sum them into the process-wide stats.Tracker gauges without ever
	// touching the swarm store itself.
	torrentGauge *int64
	peerGauge    *int64

	closing chan struct{}
	wg      *sync.WaitGroup
}

func newRequestWorker(index int, store *swarmStore, d *dispatcher, cfg Config, torrentGauge, peerGauge *int64, wg *sync.WaitGroup) *requestWorker {
	return &requestWorker{
		index:             index,
		store:             store,
		dispatcher:        d,
		cfg:               cfg,
		accessAllowCreate: true,
		clean:             make(chan struct{}, 1),
		torrentGauge:      torrentGauge,
		peerGauge:         peerGauge,
		closing:           make(chan struct{}),
		wg:                wg,
	}
}

// run consumes connectedRequests until stop is called. It must be run in
// its own goroutine; wg.Done is called on return.
func (w *requestWorker) run() {
	defer w.wg.Done()

	ch := w.dispatcher.toRequestWorkers[w.index]
	for {
		select {
		case <-w.closing:
			return
		case req := <-ch:
			w.handle(req)
		case <-w.clean:
			w.store.Clean(timecache.Now(), w.cfg.Cleaning.MaxPeerAge, w.cfg.Cleaning.MaxTorrentAge)
			torrents, peers := w.store.Counts()
			atomic.StoreInt64(w.torrentGauge, int64(torrents))
			atomic.StoreInt64(w.peerGauge, int64(peers))
		}
	}
}

func (w *requestWorker) handle(req connectedRequest) {
	now := timecache.Now()

	var resp connectedResponse
	resp.addr = req.addr
	resp.txID = req.txID
	resp.kind = req.kind

	switch req.kind {
	case requestAnnounce:
		update := w.store.Announce(now, req.announce.infoHash, req.announce.peer, req.announce.event, req.announce.left, req.announce.numWant, w.accessAllowCreate)
		resp.announce = update
	case requestScrape:
		stats := w.store.Scrape(req.scrape.hashes)
		resp.scrape = scrapePartial{
			txID:    req.txID,
			indices: req.scrape.indices,
			stats:   stats,
		}
	}

	w.dispatcher.trySendToSocketWorker(req.socketIndex, resp)
}

// stop signals the worker to exit its loop on the next receive.
func (w *requestWorker) stop() { close(w.closing) }
