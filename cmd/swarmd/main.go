// Command swarmd runs a standalone UDP BitTorrent tracker.
package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/chihaya/swarmd/accesslist"
	"github.com/chihaya/swarmd/pkg/log"
	"github.com/chihaya/swarmd/pkg/metrics"
	"github.com/chihaya/swarmd/pkg/stop"
	"github.com/chihaya/swarmd/privdrop"
	"github.com/chihaya/swarmd/stats"
	"github.com/chihaya/swarmd/udp"
)

func main() {
	var configFilePath string

	rootCmd := &cobra.Command{
		Use:   "swarmd",
		Short: "UDP BitTorrent Tracker",
		Long:  "A high-throughput, sharded UDP BitTorrent tracker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configFilePath)
		},
	}
	rootCmd.Flags().StringVar(&configFilePath, "config", "/etc/swarmd.yaml", "location of configuration file")

	if err := rootCmd.Execute(); err != nil {
		log.Fatal("swarmd failed", log.Err(err))
	}
}

func run(configFilePath string) error {
	cfgFile, err := ParseConfigFile(configFilePath)
	if err != nil {
		return errors.Wrap(err, "failed to read config")
	}
	cfg := cfgFile.Swarmd.Validate()
	log.Info("starting swarmd", cfg)

	statsTracker := &stats.Tracker{}

	accessList := accesslist.New()
	watcher := accesslist.NewWatcher(accessList, cfg.AccessList.Mode, cfg.AccessList.Path, time.Duration(cfg.AccessList.ReloadInterval)*time.Second)
	go watcher.Run()

	var barrier *privdrop.Barrier
	if cfg.Privileges.DropPrivileges {
		barrier = privdrop.NewBarrier(cfg.UDP.SocketWorkers)
	}

	tracker, err := udp.NewTracker(cfg.UDP, accessList, statsTracker, barrier)
	if err != nil {
		return errors.Wrap(err, "failed to start udp tracker")
	}

	if cfg.Privileges.DropPrivileges {
		for !barrier.Ready() {
			time.Sleep(time.Millisecond)
		}
		if err := privdrop.Drop(cfg.Privileges.Chroot, cfg.Privileges.User); err != nil {
			return errors.Wrap(err, "failed to drop privileges")
		}
		log.Info("dropped privileges", log.Fields{"chroot": cfg.Privileges.Chroot, "user": cfg.Privileges.User})
	}

	metricsServer := metrics.NewServer(cfg.MetricsAddr, statsTracker)
	reporter := stats.NewReporter(statsTracker, time.Duration(cfg.Statistics.IntervalSeconds)*time.Second, cfg.Statistics.PrintToStdout)
	go reporter.Run()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown
	log.Info("shutting down")

	watcher.Stop()
	reporter.Stop()

	group := stop.NewGroup()
	group.Add(tracker)
	group.Add(metricsServer)
	if errs := group.Stop(); len(errs) != 0 {
		return errors.Errorf("failed to cleanly shut down: %v", errs)
	}

	return nil
}
