package master

import (
	"strings"

	"github.com/gtpdist/gomaster/internal/netw"
	"github.com/gtpdist/gomaster/pkg/common"
)

// proxyServe copies log lines from one slave connection at a time to the
// master's own log sink. Proxied lines carry the "< " prefix and the
// client address so they can be separated from the master's lines later.
func (m *Master) proxyServe() {
	for {
		conn, err := m.proxyLn.Accept()
		if err != nil {
			return
		}
		lc := netw.NewLineConn(conn)
		lg := m.log.WithField("addr", lc.Addr).WithField("prefix", common.PrefixProxy)
		for {
			line, err := lc.ReadLine()
			if err != nil {
				break
			}
			lg.Info(strings.TrimRight(line, "\n"))
		}
		lc.Close()
	}
}
