package udp

import (
	"time"

	"github.com/chihaya/swarmd/pkg/log"
)

// Default configuration constants, substituted by Validate when the
// provided value is out of range.
const (
	defaultSocketWorkers              = 1
	defaultRequestWorkers             = 1
	defaultMaxScrapeTorrents          = 50
	defaultMaxNumWant          uint32 = 100
	defaultDefaultNumWant      uint32 = 50
	defaultRecvBufferSize             = 0
	defaultQueueDepth                 = 4096

	defaultCleaningInterval           = time.Minute
	defaultConnectionCleaningInterval = time.Minute
	defaultTorrentCleaningInterval    = time.Minute
	defaultMaxConnectionAge           = 2 * time.Minute
	defaultMaxPeerAge                 = 20 * time.Minute
	defaultMaxTorrentAge              = 30 * time.Minute
)

// NetworkConfig configures the sockets the tracker listens on.
type NetworkConfig struct {
	Address        string `yaml:"address"`
	OnlyIPv6       bool   `yaml:"only_ipv6"`
	RecvBufferSize int    `yaml:"socket_recv_buffer_size"`
}

// ProtocolConfig bounds the sizes the wire codec will accept or produce.
type ProtocolConfig struct {
	MaxScrapeTorrents int    `yaml:"max_scrape_torrents"`
	MaxNumWant        uint32 `yaml:"max_numwant"`
	DefaultNumWant    uint32 `yaml:"default_numwant"`
}

// CleaningConfig controls how often stale state is swept, and the age at
// which state becomes stale.
type CleaningConfig struct {
	Interval                   time.Duration `yaml:"interval"`
	ConnectionCleaningInterval time.Duration `yaml:"connection_cleaning_interval"`
	TorrentCleaningInterval    time.Duration `yaml:"torrent_cleaning_interval"`
	MaxConnectionAge           time.Duration `yaml:"max_connection_age"`
	MaxPeerAge                 time.Duration `yaml:"max_peer_age"`
	MaxTorrentAge              time.Duration `yaml:"max_torrent_age"`
}

// Config represents all of the configurable options for the UDP tracker
// engine: the worker pool sizes, the sockets they bind, and the protocol
// and cleaning parameters that govern their behavior.
type Config struct {
	SocketWorkers  int `yaml:"socket_workers"`
	RequestWorkers int `yaml:"request_workers"`
	QueueDepth     int `yaml:"queue_depth"`

	Network   NetworkConfig  `yaml:"network"`
	Protocol  ProtocolConfig `yaml:"protocol"`
	Cleaning  CleaningConfig `yaml:"cleaning"`
}

// LogFields renders the current config as a set of logrus fields.
func (cfg Config) LogFields() log.Fields {
	return log.Fields{
		"socketWorkers":     cfg.SocketWorkers,
		"requestWorkers":    cfg.RequestWorkers,
		"queueDepth":        cfg.QueueDepth,
		"address":           cfg.Network.Address,
		"onlyIPv6":          cfg.Network.OnlyIPv6,
		"recvBufferSize":    cfg.Network.RecvBufferSize,
		"maxScrapeTorrents": cfg.Protocol.MaxScrapeTorrents,
		"maxNumWant":        cfg.Protocol.MaxNumWant,
		"defaultNumWant":    cfg.Protocol.DefaultNumWant,
		"cleaningInterval":  cfg.Cleaning.Interval,
		"maxConnectionAge":  cfg.Cleaning.MaxConnectionAge,
		"maxPeerAge":        cfg.Cleaning.MaxPeerAge,
		"maxTorrentAge":     cfg.Cleaning.MaxTorrentAge,
	}
}

// Validate sanity checks values set in a config and returns a new config
// with default values substituted for anything invalid, warning to the
// logger for every substitution made.
func (cfg Config) Validate() Config {
	validcfg := cfg

	warnDefault := func(name string, provided, fallback interface{}) {
		log.Warn("falling back to default configuration", log.Fields{
			"name":     name,
			"provided": provided,
			"default":  fallback,
		})
	}

	if cfg.SocketWorkers <= 0 {
		validcfg.SocketWorkers = defaultSocketWorkers
		warnDefault("udp.SocketWorkers", cfg.SocketWorkers, validcfg.SocketWorkers)
	}
	if cfg.RequestWorkers <= 0 {
		validcfg.RequestWorkers = defaultRequestWorkers
		warnDefault("udp.RequestWorkers", cfg.RequestWorkers, validcfg.RequestWorkers)
	}
	if cfg.QueueDepth <= 0 {
		validcfg.QueueDepth = defaultQueueDepth
		warnDefault("udp.QueueDepth", cfg.QueueDepth, validcfg.QueueDepth)
	}
	if cfg.Protocol.MaxScrapeTorrents <= 0 {
		validcfg.Protocol.MaxScrapeTorrents = defaultMaxScrapeTorrents
		warnDefault("udp.Protocol.MaxScrapeTorrents", cfg.Protocol.MaxScrapeTorrents, validcfg.Protocol.MaxScrapeTorrents)
	}
	if cfg.Protocol.MaxNumWant <= 0 {
		validcfg.Protocol.MaxNumWant = defaultMaxNumWant
		warnDefault("udp.Protocol.MaxNumWant", cfg.Protocol.MaxNumWant, validcfg.Protocol.MaxNumWant)
	}
	if cfg.Protocol.DefaultNumWant <= 0 {
		validcfg.Protocol.DefaultNumWant = defaultDefaultNumWant
		warnDefault("udp.Protocol.DefaultNumWant", cfg.Protocol.DefaultNumWant, validcfg.Protocol.DefaultNumWant)
	}
	if cfg.Cleaning.Interval <= 0 {
		validcfg.Cleaning.Interval = defaultCleaningInterval
		warnDefault("udp.Cleaning.Interval", cfg.Cleaning.Interval, validcfg.Cleaning.Interval)
	}
	if cfg.Cleaning.ConnectionCleaningInterval <= 0 {
		validcfg.Cleaning.ConnectionCleaningInterval = defaultConnectionCleaningInterval
		warnDefault("udp.Cleaning.ConnectionCleaningInterval", cfg.Cleaning.ConnectionCleaningInterval, validcfg.Cleaning.ConnectionCleaningInterval)
	}
	if cfg.Cleaning.TorrentCleaningInterval <= 0 {
		validcfg.Cleaning.TorrentCleaningInterval = defaultTorrentCleaningInterval
		warnDefault("udp.Cleaning.TorrentCleaningInterval", cfg.Cleaning.TorrentCleaningInterval, validcfg.Cleaning.TorrentCleaningInterval)
	}
	if cfg.Cleaning.MaxConnectionAge <= 0 {
		validcfg.Cleaning.MaxConnectionAge = defaultMaxConnectionAge
		warnDefault("udp.Cleaning.MaxConnectionAge", cfg.Cleaning.MaxConnectionAge, validcfg.Cleaning.MaxConnectionAge)
	}
	if cfg.Cleaning.MaxPeerAge <= 0 {
		validcfg.Cleaning.MaxPeerAge = defaultMaxPeerAge
		warnDefault("udp.Cleaning.MaxPeerAge", cfg.Cleaning.MaxPeerAge, validcfg.Cleaning.MaxPeerAge)
	}
	if cfg.Cleaning.MaxTorrentAge <= 0 {
		validcfg.Cleaning.MaxTorrentAge = defaultMaxTorrentAge
		warnDefault("udp.Cleaning.MaxTorrentAge", cfg.Cleaning.MaxTorrentAge, validcfg.Cleaning.MaxTorrentAge)
	}

	return validcfg
}
