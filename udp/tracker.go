package udp

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/chihaya/swarmd/accesslist"
	"github.com/chihaya/swarmd/pkg/log"
	"github.com/chihaya/swarmd/privdrop"
	"github.com/chihaya/swarmd/stats"
)

// Tracker owns the full pool of socket workers and request workers and the
// cleaner that sweeps their state. It is the assembled realization of the
// concurrent packet-processing engine.
type Tracker struct {
	cfg Config

	sockets        []*net.UDPConn
	socketWorkers  []*socketWorker
	requestWorkers []*requestWorker
	cleaner        *cleaner
	dispatcher     *dispatcher
	statsTracker   *stats.Tracker

	wg      sync.WaitGroup
	closing chan struct{}
}

// NewTracker binds cfg.SocketWorkers sockets to cfg.Network.Address with
// SO_REUSEPORT, starts cfg.RequestWorkers swarm-shard workers, and starts
// the cleaner. barrier, if non-nil, is signaled once per bound socket so a
// caller can gate privilege drop on every socket having bound.
func NewTracker(provided Config, al *accesslist.List, st *stats.Tracker, barrier *privdrop.Barrier) (*Tracker, error) {
	cfg := provided.Validate()

	t := &Tracker{
		cfg:          cfg,
		statsTracker: st,
		closing:      make(chan struct{}),
	}

	t.dispatcher = newDispatcher(cfg.SocketWorkers, cfg.RequestWorkers, cfg.QueueDepth)

	torrentGauges := make([]int64, cfg.RequestWorkers)
	peerGauges := make([]int64, cfg.RequestWorkers)
	for i := 0; i < cfg.RequestWorkers; i++ {
		store := newSwarmStore(i, cfg.RequestWorkers, time.Now().UnixNano()+int64(i)*7919)
		rw := newRequestWorker(i, store, t.dispatcher, cfg, &torrentGauges[i], &peerGauges[i], &t.wg)
		t.requestWorkers = append(t.requestWorkers, rw)
	}

	listenConfig := net.ListenConfig{
		Control: privdrop.Control(privdrop.SocketOptions{
			OnlyIPv6:       cfg.Network.OnlyIPv6,
			RecvBufferSize: cfg.Network.RecvBufferSize,
		}),
	}

	for i := 0; i < cfg.SocketWorkers; i++ {
		pc, err := listenConfig.ListenPacket(context.Background(), "udp", cfg.Network.Address)
		if err != nil {
			t.closeSockets()
			return nil, err
		}
		conn := pc.(*net.UDPConn)
		t.sockets = append(t.sockets, conn)

		if barrier != nil {
			barrier.Bound()
		}

		sw := newSocketWorker(i, conn, t.dispatcher, cfg.RequestWorkers, cfg, al, st, &t.wg)
		t.socketWorkers = append(t.socketWorkers, sw)
	}

	t.cleaner = newCleaner(t.requestWorkers, torrentGauges, peerGauges, st, cfg.Cleaning.Interval)

	t.wg.Add(len(t.socketWorkers) + len(t.requestWorkers))
	for _, rw := range t.requestWorkers {
		go rw.run()
	}
	for _, sw := range t.socketWorkers {
		go sw.run()
	}
	go t.cleaner.run()

	log.Info("udp tracker started", cfg)

	return t, nil
}

func (t *Tracker) closeSockets() {
	for _, conn := range t.sockets {
		conn.Close()
	}
}

// Stop shuts down every socket worker, request worker, and the cleaner,
// closing every bound socket. It satisfies pkg/stop.Stopper.
func (t *Tracker) Stop() <-chan error {
	c := make(chan error, 1)
	go func() {
		t.cleaner.Stop()
		for _, sw := range t.socketWorkers {
			sw.stop()
		}
		for _, rw := range t.requestWorkers {
			rw.stop()
		}
		t.closeSockets()
		t.wg.Wait()
		close(c)
	}()
	return c
}
