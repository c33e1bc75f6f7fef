package etc

import (
	"encoding/json"
	"io/ioutil"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/gtpdist/gomaster/pkg/common"
)

type MasterConf struct {
	SlavePort  string `json:"slave_port"`
	ProxyPort  string `json:"proxy_port"`
	MaxSlaves  int    `json:"max_slaves"`
	SlavesQuit bool   `json:"slaves_quit"`
	MetricAddr string `json:"metric_addr"`
	LogLevel   string `json:"log_level"`
}

func DefaultConf() MasterConf {
	return MasterConf{
		MaxSlaves: 100,
		LogLevel:  "info",
	}
}

// ParseEngineArgs fills a config from a comma separated key=value string,
// e.g. "slave_port=1234,proxy_port=1235,max_slaves=20". Unknown keys are
// reported and skipped.
func ParseEngineArgs(arg string) (MasterConf, error) {
	conf := DefaultConf()
	for _, optspec := range strings.Split(arg, ",") {
		if optspec == "" {
			continue
		}
		optname := optspec
		optval := ""
		hasval := false
		if i := strings.IndexByte(optspec, '='); i >= 0 {
			optname, optval = optspec[:i], optspec[i+1:]
			hasval = true
		}
		switch strings.ToLower(optname) {
		case "slave_port":
			conf.SlavePort = optval
		case "proxy_port":
			conf.ProxyPort = optval
		case "max_slaves":
			n, err := strconv.Atoi(optval)
			if err != nil {
				return conf, err
			}
			conf.MaxSlaves = n
		case "slaves_quit":
			if !hasval {
				conf.SlavesQuit = true
			} else {
				n, err := strconv.Atoi(optval)
				if err != nil {
					return conf, err
				}
				conf.SlavesQuit = n != 0
			}
		case "metric_addr":
			conf.MetricAddr = optval
		case "log_level":
			conf.LogLevel = optval
		default:
			log.Warnf("invalid engine argument %s or missing value", optname)
		}
	}
	if err := conf.Validate(); err != nil {
		return conf, err
	}
	return conf, nil
}

func (c MasterConf) Validate() error {
	if c.SlavePort == "" {
		return common.ErrNoSlavePort
	}
	return nil
}

func ParseMasterConf(confPath string) MasterConf {
	confBytes, err := ioutil.ReadFile(confPath)
	if err != nil {
		log.Fatalf("failed to open config file: %v", err)
	}
	conf := DefaultConf()
	if err := json.Unmarshal(confBytes, &conf); err != nil {
		log.Fatalf("failed to parse config file: %v", err)
	}
	if err := conf.Validate(); err != nil {
		log.Fatalf("bad config: %v", err)
	}
	return conf
}
