// Package metrics implements a standalone HTTP server for serving pprof
// profiles, Prometheus metrics, and a small JSON statistics endpoint.
package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/pprof"
	"net/netip"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chihaya/swarmd/pkg/log"
	"github.com/chihaya/swarmd/pkg/stop"
	"github.com/chihaya/swarmd/stats"
)

// AddressFamily returns the label value for reporting the address family of an IP address.
func AddressFamily(ip netip.Addr) string {
	switch {
	case ip.Is4(), ip.Is4In6():
		return "IPv4"
	case ip.Is6():
		return "IPv6"
	default:
		return "Unknown"
	}
}

// Server represents a standalone HTTP server serving Prometheus metrics,
// pprof profiles, and a lightweight /stats endpoint. It is not a second
// BitTorrent frontend: everything it serves is observability plumbing.
type Server struct {
	srv *http.Server
}

// Stop shuts down the server, satisfying pkg/stop.Stopper.
func (s *Server) Stop() <-chan error {
	c := make(chan error, 1)
	go func() {
		c <- s.srv.Shutdown(context.Background())
	}()
	return c
}

// statsResponse is the JSON body served at /stats.
type statsResponse struct {
	Torrents int64 `json:"torrents"`
	Peers    int64 `json:"peers"`
}

func statsHandler(tracker *stats.Tracker) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(statsResponse{
			Torrents: tracker.Torrents(),
			Peers:    tracker.Peers(),
		})
	}
}

// NewServer creates a new Server that asynchronously serves requests at
// addr. tracker may be nil, in which case /stats is not registered.
func NewServer(addr string, tracker *stats.Tracker) *Server {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	if tracker != nil {
		router := httprouter.New()
		router.GET("/stats", statsHandler(tracker))
		mux.Handle("/stats", router)
	}

	s := &Server{
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}

	go func() {
		if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed while serving metrics", log.Err(err))
		}
	}()

	return s
}

var _ stop.Stopper = (*Server)(nil)
