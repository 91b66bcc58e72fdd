package udp

import (
	"sync/atomic"
	"time"

	"github.com/chihaya/swarmd/stats"
)

// cleaner is the single periodic thread that drives swarm-shard cleanup.
// It never touches shard state itself; per the design's worker-owned
// cleanup preference, it only posts a non-blocking signal into each
// request worker's own channel, so Clean always runs on the goroutine that
// already owns that shard. It also aggregates the per-shard torrent/peer
// gauges each worker leaves behind after a clean pass into the process-wide
// stats.Tracker, again without ever touching a swarm store directly.
type cleaner struct {
	workers       []*requestWorker
	interval      time.Duration
	torrentGauges []int64
	peerGauges    []int64
	statsTracker  *stats.Tracker
	stop          chan struct{}
	done          chan struct{}
}

func newCleaner(workers []*requestWorker, torrentGauges, peerGauges []int64, st *stats.Tracker, interval time.Duration) *cleaner {
	return &cleaner{
		workers:       workers,
		interval:      interval,
		torrentGauges: torrentGauges,
		peerGauges:    peerGauges,
		statsTracker:  st,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// run ticks every interval, signaling every request worker to clean its
// shard. It is meant to be run in its own goroutine.
func (c *cleaner) run() {
	defer close(c.done)

	if c.interval <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, w := range c.workers {
				select {
				case w.clean <- struct{}{}:
				default:
					// a clean signal is already pending for this worker;
					// skipping is harmless, the next tick will retry.
				}
			}

			if c.statsTracker != nil {
				var torrents, peers int64
				for i := range c.torrentGauges {
					torrents += atomic.LoadInt64(&c.torrentGauges[i])
					peers += atomic.LoadInt64(&c.peerGauges[i])
				}
				c.statsTracker.SetTorrents(int(torrents))
				c.statsTracker.SetPeers(int(peers))
			}
		case <-c.stop:
			return
		}
	}
}

// Stop signals run to return and waits for it to do so.
func (c *cleaner) Stop() {
	close(c.stop)
	<-c.done
}
