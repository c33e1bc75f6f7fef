package master

import (
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/gtpdist/gomaster/internal/netw"
	"github.com/gtpdist/gomaster/pkg/common"
)

// slaveServe runs one worker slot: it accepts a connection from any
// slave, checks its identity, then serves it until the connection is
// cut, and goes back to accepting. After the first lost slave the slot
// starts every new connection with a full history replay so a fresh
// slave catches up with the game in progress.
func (m *Master) slaveServe() {
	resend := false
	for {
		conn, err := m.slaveLn.Accept()
		if err != nil {
			return
		}
		lc := netw.NewLineConn(conn)
		lg := m.log.WithField("addr", lc.Addr)
		lg.WithField("prefix", common.PrefixInfo).Debug("new slave")

		if err := checkIdentity(lc); err != nil {
			lg.WithField("prefix", common.PrefixError).Info("bad slave")
			lc.Close()
			continue
		}

		m.mu.Lock()
		m.active++
		activeSlavesGauge.Inc()
		m.slaveLoop(lc, lg, resend)
		m.active--
		activeSlavesGauge.Dec()
		m.mu.Unlock()

		resend = true
		lg.WithField("prefix", common.PrefixInfo).Debug("lost slave")
		lc.Close()
	}
}

// checkIdentity performs the minimal handshake: the slave must answer
// "name" with a line starting "= Pachi" and a blank terminator.
func checkIdentity(lc *netw.LineConn) error {
	if err := lc.Send([]byte("name\n")); err != nil {
		return err
	}
	line, err := lc.ReadLine()
	if err != nil {
		return err
	}
	if !strings.HasPrefix(strings.ToLower(line), "= pachi") {
		return common.ErrBadSlave
	}
	blank, err := lc.ReadLine()
	if err != nil {
		return err
	}
	if blank != "\n" {
		return common.ErrBadSlave
	}
	return nil
}

// slaveLoop keeps one slave in lock step with the command log: send the
// tail command, read the reply, deposit it if it answers the command
// still being broadcast. On an id mismatch or a negative ack the whole
// history is resent on the next iteration without waiting; the slave
// folds the replay into a single reply carrying the final command id.
// The lock is held on both entry and exit.
func (m *Master) slaveLoop(lc *netw.LineConn, lg *logrus.Entry, resend bool) {
	buf := make([]byte, 0, CmdsSize)
	lastSent := -1
	logResend := false
	for {
		for m.cmds.Empty() || (lastSent == m.cmds.TailID() && !resend) {
			// Wait for a new gtp command.
			m.cmdCond.Wait()
		}

		var payload []byte
		if resend {
			payload = m.cmds.FullHistory()
		} else {
			payload = m.cmds.BroadcastPayload()
		}
		buf = append(buf[:0], payload...)
		lastSent = m.cmds.TailID()

		m.mu.Unlock()
		// The log sink has its own lock; never take it with ours held.
		if logResend {
			lg.WithField("prefix", common.PrefixError).Info("Resending all history")
			logResend = false
		}
		if lg.Logger.IsLevelEnabled(logrus.TraceLevel) {
			lg.WithField("prefix", common.PrefixSend).Trace(string(buf))
		}
		err := lc.Send(buf)

		var reply []byte
		replyID := -1
		complete := false
		if err == nil {
			reply, replyID, complete = readReply(lc, buf[:0], lg)
		}

		m.mu.Lock()
		if !complete {
			return
		}
		/* If the reply answers the command still at tail, accept it.
		 * Comparing against the current tail means a stale reply whose
		 * id happens to equal a freshly issued id would be taken for a
		 * reply to the new command; the random nonce in fresh ids makes
		 * that vanishingly unlikely and it is not defended against. */
		if len(reply) > 0 && reply[0] == '=' && replyID == m.cmds.TailID() {
			if len(m.replies) < cap(m.replies) {
				m.replies = append(m.replies, string(reply))
				repliesTotal.Inc()
				m.replyCond.Signal()
			}
			resend = false
		} else {
			/* The slave was out of sync or had an incorrect board. */
			resend = true
			resyncsTotal.Inc()
			logResend = true
		}
	}
}

// readReply reads one gtp reply, terminated by a blank line. The first
// line gives the reply id: "=id ..." or "?id ...". Oversize replies are
// truncated but still consumed. complete is false if the connection was
// cut before the terminator.
func readReply(lc *netw.LineConn, buf []byte, lg *logrus.Entry) (reply []byte, id int, complete bool) {
	id = -1
	reply = buf
	for {
		line, err := lc.ReadLine()
		if err != nil {
			return reply, id, false
		}
		if line == "\n" {
			return reply, id, true
		}
		if lg.Logger.IsLevelEnabled(logrus.TraceLevel) {
			lg.WithField("prefix", common.PrefixRecv).Trace(strings.TrimRight(line, "\n"))
		}
		if id < 0 && len(line) > 1 && (line[0] == '=' || line[0] == '?') {
			digits := line[1:]
			if n := digitEnd(digits); n > 0 {
				id, _ = strconv.Atoi(digits[:n])
			}
		}
		if len(reply)+len(line) <= CmdsSize {
			reply = append(reply, line...)
		}
	}
}

func digitEnd(s string) int {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	return n
}
