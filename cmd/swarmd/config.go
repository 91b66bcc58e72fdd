package main

import (
	"errors"
	"io/ioutil"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/chihaya/swarmd/accesslist"
	"github.com/chihaya/swarmd/pkg/log"
	"github.com/chihaya/swarmd/udp"
)

// PrivilegesConfig configures the one-shot chroot/setuid drop performed
// once every listening socket has bound.
type PrivilegesConfig struct {
	DropPrivileges bool   `yaml:"drop_privileges"`
	Chroot         string `yaml:"chroot_path"`
	User           string `yaml:"user"`
}

// AccessListConfig configures the reloadable info-hash allow/deny list.
type AccessListConfig struct {
	Mode            accesslist.Mode `yaml:"mode"`
	Path            string          `yaml:"path"`
	ReloadInterval  int             `yaml:"reload_interval_seconds"`
}

// StatisticsConfig controls how often counters are sampled and whether a
// human-readable line is also printed to stdout.
type StatisticsConfig struct {
	IntervalSeconds int  `yaml:"interval_seconds"`
	PrintToStdout   bool `yaml:"print_to_stdout"`
}

// Config is swarmd's top-level configuration, covering the UDP engine and
// everything wrapped around it: the metrics/pprof/stats HTTP surface, the
// access list, privilege drop, and statistics reporting cadence.
type Config struct {
	UDP         udp.Config       `yaml:"udp"`
	MetricsAddr string           `yaml:"metrics_addr"`
	AccessList  AccessListConfig `yaml:"access_list"`
	Privileges  PrivilegesConfig `yaml:"privileges"`
	Statistics  StatisticsConfig `yaml:"statistics"`
}

// ConfigFile is the namespaced document read from disk.
type ConfigFile struct {
	Swarmd Config `yaml:"swarmd"`
}

// ParseConfigFile returns a new ConfigFile given the path to a YAML
// configuration file. It supports relative and absolute paths and
// environment variables in the path itself.
func ParseConfigFile(path string) (*ConfigFile, error) {
	if path == "" {
		return nil, errors.New("no config path specified")
	}

	f, err := os.Open(os.ExpandEnv(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	contents, err := ioutil.ReadAll(f)
	if err != nil {
		return nil, err
	}

	var cfgFile ConfigFile
	if err := yaml.Unmarshal(contents, &cfgFile); err != nil {
		return nil, err
	}

	return &cfgFile, nil
}

// LogFields renders the top-level config as logrus fields.
func (cfg Config) LogFields() log.Fields {
	return log.Fields{
		"metricsAddr":    cfg.MetricsAddr,
		"accessListMode": cfg.AccessList.Mode,
		"accessListPath": cfg.AccessList.Path,
		"dropPrivileges": cfg.Privileges.DropPrivileges,
		"chroot":         cfg.Privileges.Chroot,
		"user":           cfg.Privileges.User,
	}
}

// Validate substitutes defaults for statistics and access-list settings
// that were left at their zero value, and runs udp.Config's own Validate.
func (cfg Config) Validate() Config {
	validcfg := cfg
	validcfg.UDP = cfg.UDP.Validate()

	if validcfg.AccessList.Mode == "" {
		validcfg.AccessList.Mode = accesslist.ModeOff
	}
	if validcfg.AccessList.ReloadInterval <= 0 {
		validcfg.AccessList.ReloadInterval = 30
	}
	if validcfg.Statistics.IntervalSeconds <= 0 {
		validcfg.Statistics.IntervalSeconds = 5
	}
	if validcfg.MetricsAddr == "" {
		validcfg.MetricsAddr = "localhost:6880"
	}

	return validcfg
}
