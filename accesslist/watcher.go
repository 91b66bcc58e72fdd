package accesslist

import (
	"time"

	"github.com/chihaya/swarmd/pkg/log"
)

// Watcher periodically calls Reload on a List, so an operator can update
// the backing file without restarting the process. A polling timer is used
// rather than a filesystem-event API: staleness of a few seconds is
// explicitly acceptable for access-list checks.
type Watcher struct {
	list     *List
	mode     Mode
	path     string
	interval time.Duration

	stop chan struct{}
	done chan struct{}
}

// NewWatcher creates a Watcher that reloads list from path under mode every
// interval. It does not start until Run is called.
func NewWatcher(list *List, mode Mode, path string, interval time.Duration) *Watcher {
	return &Watcher{
		list:     list,
		mode:     mode,
		path:     path,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run performs an initial load and then reloads on every tick until Stop is
// called. It is meant to be run in its own goroutine.
func (w *Watcher) Run() {
	defer close(w.done)

	if err := w.list.Reload(w.mode, w.path); err != nil {
		log.Error("failed to load access list", log.Fields{"error": err, "path": w.path})
	}

	if w.interval <= 0 {
		<-w.stop
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.list.Reload(w.mode, w.path); err != nil {
				log.Error("failed to reload access list", log.Fields{"error": err, "path": w.path})
			}
		case <-w.stop:
			return
		}
	}
}

// Stop signals Run to return and waits for it to do so.
func (w *Watcher) Stop() {
	close(w.stop)
	<-w.done
}
