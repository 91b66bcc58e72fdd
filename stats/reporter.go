package stats

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/chihaya/swarmd/pkg/log"
)

// Prometheus counters mirror the read-and-reset samples cumulatively, so no
// data is lost between stdout samples even though that view is intentionally
// lossy: the stdout printer and this exporter consume the same Sample, one
// presenting a delta, the other accumulating it.
var (
	requestsReceivedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "swarmd_udp_requests_received_total",
		Help: "The total number of requests received.",
	}, []string{"address_family"})

	responsesSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "swarmd_udp_responses_sent_total",
		Help: "The total number of responses sent.",
	}, []string{"address_family"})

	bytesReceivedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "swarmd_udp_bytes_received_total",
		Help: "The total number of bytes received.",
	}, []string{"address_family"})

	bytesSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "swarmd_udp_bytes_sent_total",
		Help: "The total number of bytes sent.",
	}, []string{"address_family"})

	torrentsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "swarmd_udp_torrents",
		Help: "The current number of torrents tracked.",
	})

	peersGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "swarmd_udp_peers",
		Help: "The current number of peers tracked.",
	})
)

func init() {
	prometheus.MustRegister(
		requestsReceivedTotal,
		responsesSentTotal,
		bytesReceivedTotal,
		bytesSentTotal,
		torrentsGauge,
		peersGauge,
	)
}

// Reporter periodically samples a Tracker, printing a line to stdout (if
// enabled) and feeding the cumulative Prometheus counters.
type Reporter struct {
	tracker       *Tracker
	interval      time.Duration
	printToStdout bool
	stop          chan struct{}
	done          chan struct{}
}

// NewReporter creates a Reporter for tracker, sampling every interval. If
// printToStdout is false, only the Prometheus counters are updated.
func NewReporter(tracker *Tracker, interval time.Duration, printToStdout bool) *Reporter {
	return &Reporter{
		tracker:       tracker,
		interval:      interval,
		printToStdout: printToStdout,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Run samples the tracker every interval until Stop is called. It is meant
// to be run in its own goroutine.
func (r *Reporter) Run() {
	defer close(r.done)

	if r.interval <= 0 {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sampleOnce()
		case <-r.stop:
			return
		}
	}
}

func (r *Reporter) sampleOnce() {
	v4 := r.tracker.IPv4.Sample()
	v6 := r.tracker.IPv6.Sample()

	requestsReceivedTotal.WithLabelValues("IPv4").Add(float64(v4.RequestsReceived))
	requestsReceivedTotal.WithLabelValues("IPv6").Add(float64(v6.RequestsReceived))
	responsesSentTotal.WithLabelValues("IPv4").Add(float64(v4.ResponsesSent))
	responsesSentTotal.WithLabelValues("IPv6").Add(float64(v6.ResponsesSent))
	bytesReceivedTotal.WithLabelValues("IPv4").Add(float64(v4.BytesReceived))
	bytesReceivedTotal.WithLabelValues("IPv6").Add(float64(v6.BytesReceived))
	bytesSentTotal.WithLabelValues("IPv4").Add(float64(v4.BytesSent))
	bytesSentTotal.WithLabelValues("IPv6").Add(float64(v6.BytesSent))

	torrentsGauge.Set(float64(r.tracker.Torrents()))
	peersGauge.Set(float64(r.tracker.Peers()))

	if !r.printToStdout {
		return
	}

	seconds := r.interval.Seconds()
	if seconds < 1 {
		seconds = 1
	}

	fmt.Printf(
		"swarmd: %.1f req/s in, %.1f resp/s out, %d torrents, %d peers\n",
		float64(v4.RequestsReceived+v6.RequestsReceived)/seconds,
		float64(v4.ResponsesSent+v6.ResponsesSent)/seconds,
		r.tracker.Torrents(),
		r.tracker.Peers(),
	)
	log.Debug("sampled statistics", log.Fields{
		"ipv4": v4,
		"ipv6": v6,
	})
}

// Stop signals Run to return and waits for it to do so.
func (r *Reporter) Stop() {
	close(r.stop)
	<-r.done
}
