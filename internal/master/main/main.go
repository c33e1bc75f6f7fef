package main

import (
	"flag"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/gtpdist/gomaster/internal/gtp"
	"github.com/gtpdist/gomaster/internal/master"
	"github.com/gtpdist/gomaster/internal/master/etc"
	"github.com/gtpdist/gomaster/pkg/common"
)

func main() {
	conf := makeConfig()

	logger, err := common.InitLogger(conf.LogLevel, "gomaster")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}

	m, err := master.StartServer(conf, logger)
	if err != nil {
		log.Fatalf("failed to start master: %v", err)
	}

	driver := gtp.NewDriver(m, logger)
	if err := driver.Run(os.Stdin, os.Stdout); err != nil {
		logger.Errorf("gtp loop: %v", err)
	}
	m.Kill()
}

func makeConfig() etc.MasterConf {
	var confPath string
	var engineArgs string
	flag.StringVar(&confPath, "c", "", "config file path")
	flag.StringVar(&engineArgs, "e", "", "engine arguments, e.g. slave_port=1234,proxy_port=1235")
	flag.Parse()

	if confPath != "" {
		return etc.ParseMasterConf(confPath)
	}
	conf, err := etc.ParseEngineArgs(engineArgs)
	if err != nil {
		log.Fatalf("bad engine arguments: %v", err)
	}
	return conf
}
