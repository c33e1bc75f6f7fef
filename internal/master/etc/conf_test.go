package etc

import (
	"testing"
)

func TestParseEngineArgsDefaults(t *testing.T) {
	conf, err := ParseEngineArgs("slave_port=1234")
	if err != nil {
		t.Fatal(err)
	}
	if conf.SlavePort != "1234" {
		t.Errorf("slave_port: got %q", conf.SlavePort)
	}
	if conf.MaxSlaves != 100 {
		t.Errorf("max_slaves default: got %d, want 100", conf.MaxSlaves)
	}
	if conf.SlavesQuit {
		t.Error("slaves_quit must default to false")
	}
	if conf.LogLevel != "info" {
		t.Errorf("log_level default: got %q, want info", conf.LogLevel)
	}
}

func TestParseEngineArgsFull(t *testing.T) {
	conf, err := ParseEngineArgs("slave_port=1234,proxy_port=1235,max_slaves=20,slaves_quit=1,log_level=debug,metric_addr=:9100")
	if err != nil {
		t.Fatal(err)
	}
	if conf.ProxyPort != "1235" || conf.MaxSlaves != 20 || !conf.SlavesQuit ||
		conf.LogLevel != "debug" || conf.MetricAddr != ":9100" {
		t.Errorf("parsed config mismatch: %+v", conf)
	}
}

func TestParseEngineArgsBareSlavesQuit(t *testing.T) {
	conf, err := ParseEngineArgs("slave_port=1,slaves_quit")
	if err != nil {
		t.Fatal(err)
	}
	if !conf.SlavesQuit {
		t.Error("bare slaves_quit must enable forwarding quit")
	}
}

func TestParseEngineArgsMissingSlavePort(t *testing.T) {
	if _, err := ParseEngineArgs("max_slaves=5"); err == nil {
		t.Error("missing slave_port must be an error")
	}
}

func TestParseEngineArgsUnknownKeyIgnored(t *testing.T) {
	conf, err := ParseEngineArgs("slave_port=1,bogus=3")
	if err != nil {
		t.Fatal(err)
	}
	if conf.SlavePort != "1" {
		t.Errorf("slave_port: got %q", conf.SlavePort)
	}
}

func TestParseEngineArgsBadNumber(t *testing.T) {
	if _, err := ParseEngineArgs("slave_port=1,max_slaves=lots"); err == nil {
		t.Error("non-numeric max_slaves must be an error")
	}
}
