package common

import (
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Log line prefixes. Proxied slave lines carry PrefixProxy so they can be
// separated from the master's own lines afterwards:
//   slave logs:  sed -n '/< .*:/s/.*< /< /p' logfile
//   master logs: perl -0777 -pe 's/<[ <].*:.*\n//g' logfile
const (
	PrefixProxy  = "< "
	PrefixSend   = ">>"
	PrefixRecv   = "<<"
	PrefixInfo   = "= "
	PrefixError  = "? "
	PrefixWinner = "*** "
)

func InitLogger(level string, appName string) (*log.Logger, error) {
	logger := log.New()
	switch strings.ToLower(level) {
	case "trace": logger.SetLevel(log.TraceLevel)
	case "debug": logger.SetLevel(log.DebugLevel)
	case "info": logger.SetLevel(log.InfoLevel)
	case "warn": logger.SetLevel(log.WarnLevel)
	case "error": logger.SetLevel(log.ErrorLevel)
	case "fatal": logger.SetLevel(log.FatalLevel)
	case "panic": logger.SetLevel(log.PanicLevel)
	default:
		return nil, fmt.Errorf("unsupported log level %s", level)
	}
	logger.SetFormatter(&LineFormatter{AppName: appName, Start: time.Now()})
	return logger, nil
}

// LineFormatter prints "<prefix><addr> <elapsed>: <msg>" where elapsed is
// seconds since process start. prefix and addr come from entry fields so
// worker and proxy lines carry the address of the slave machine they talk
// to. Logrus serializes writes to the sink itself; no other lock is taken
// while a line is written.
type LineFormatter struct {
	AppName	string
	Start	time.Time
}

func (f *LineFormatter) Format(entry *log.Entry) ([]byte, error)  {
	prefix, _ := entry.Data["prefix"].(string)
	addr, _ := entry.Data["addr"].(string)
	if prefix == "" {
		prefix = PrefixInfo
	}
	elapsed := entry.Time.Sub(f.Start).Seconds()
	msg := entry.Message
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	str := fmt.Sprintf("%s%15s %9.3f: %s", prefix, addr, elapsed, msg)
	return []byte(str), nil
}
