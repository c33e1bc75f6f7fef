package master

import (
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/gtpdist/gomaster/internal/game"
	"github.com/gtpdist/gomaster/internal/master/etc"
	"github.com/gtpdist/gomaster/internal/netw"
	"github.com/gtpdist/gomaster/pkg/common"
)

var (
	activeSlavesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gomaster",
		Name:      "active_slaves",
		Help:      "Number of connected slave machines",
	})
	repliesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gomaster",
		Name:      "replies_total",
		Help:      "Replies accepted from slaves",
	})
	resyncsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gomaster",
		Name:      "resyncs_total",
		Help:      "History replays triggered by desynchronized slaves",
	})
	playoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gomaster",
		Name:      "playouts_total",
		Help:      "Aggregate playouts reported by slaves",
	})
	genmoveSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "gomaster",
		Name:      "genmove_seconds",
		Help:      "Wall time spent selecting a move",
	})
)

// Grace period granted to stragglers once half the slaves have replied.
const extraTime = 500 * time.Millisecond

type Move struct {
	Color game.Color
	Coord game.Coord
}

// Master multiplexes one logical GTP player over a fleet of slave
// engines. A single mutex guards the command log, the reply buffer and
// the active-slave count; cmdCond is broadcast when a new command is
// installed and replyCond is signaled for each accepted reply. The
// mutex is never held across socket I/O.
type Master struct {
	mu        sync.Mutex
	cmdCond   *sync.Cond
	replyCond *sync.Cond

	cmds    *CmdLog
	replies []string
	active  int

	conf etc.MasterConf
	log  *logrus.Logger
	tsr  common.ThreadSafeRand

	// Last id issued; fresh ids must differ so slaves notice new commands.
	lastID int

	graceTime time.Duration

	myLastMove  Move
	myLastStats MoveStats
	lastCands   []Candidate

	slaveLn net.Listener
	proxyLn net.Listener

	killed  int32
	KilledC chan int
}

// StartServer binds the slave port (and the proxy port if configured),
// pre-creates conf.MaxSlaves accept loops and returns the running master.
func StartServer(conf etc.MasterConf, lg *logrus.Logger) (*Master, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	m := &Master{
		cmds:      NewCmdLog(),
		replies:   make([]string, 0, conf.MaxSlaves),
		conf:      conf,
		log:       lg,
		tsr:       common.MakeThreadSafeRand(time.Now().UnixNano()),
		lastID:    -1,
		graceTime: extraTime,
		KilledC:   make(chan int),
	}
	m.cmdCond = sync.NewCond(&m.mu)
	m.replyCond = sync.NewCond(&m.mu)

	ln, err := netw.Listen(conf.SlavePort)
	if err != nil {
		return nil, err
	}
	m.slaveLn = ln
	for i := 0; i < conf.MaxSlaves; i++ {
		go m.slaveServe()
	}

	if conf.ProxyPort != "" {
		pln, err := netw.Listen(conf.ProxyPort)
		if err != nil {
			ln.Close()
			return nil, err
		}
		m.proxyLn = pln
		for i := 0; i < conf.MaxSlaves; i++ {
			go m.proxyServe()
		}
	}

	if conf.MetricAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(conf.MetricAddr, nil); err != nil {
				lg.Errorf("metrics endpoint: %v", err)
			}
		}()
	}
	return m, nil
}

// SlaveAddr returns the bound slave listener address.
func (m *Master) SlaveAddr() string {
	return m.slaveLn.Addr().String()
}

func (m *Master) Kill() {
	if !atomic.CompareAndSwapInt32(&m.killed, 0, 1) {
		return
	}
	m.slaveLn.Close()
	if m.proxyLn != nil {
		m.proxyLn.Close()
	}
	close(m.KilledC)
}

// updateCmd installs a new command for all slaves. The lock is held on
// entry and return; the command goes out when the workers wake. The id
// mixes a random nonce with the move number and must differ from the
// previous one, otherwise slaves would take the command for a repeat.
func (m *Master) updateCmd(b *game.State, cmd, args string) {
	moves := b.Moves
	if game.IsReset(cmd) {
		moves = 0
	}
	var id int
	for {
		id = ForceReply(moves + m.tsr.Nonce()*GameLen)
		if id != m.lastID {
			break
		}
	}
	m.lastID = id
	m.cmds.Append(id, cmd, args)
	m.replies = m.replies[:0]
}

// Notify dispatches an upstream gtp command to the slaves. quit (unless
// slaves_quit is set), uct_genbook, uct_dumpbook and kgs-chat are not
// fanned out. args is empty or ends with a newline.
func (m *Master) Notify(b *game.State, cmd, args string) {
	lc := strings.ToLower(cmd)
	if (lc == "quit" && !m.conf.SlavesQuit) ||
		lc == "uct_genbook" ||
		lc == "uct_dumpbook" ||
		lc == "kgs-chat" {
		return
	}

	m.mu.Lock()

	// Clear the history when a new game starts:
	if m.cmds.Empty() || game.IsGamestart(cmd) {
		m.cmds.Reset()
	}

	switch lc {
	case "genmove":
		cmd = "pachi-genmoves"
	case "kgs-genmove_cleanup":
		cmd = "pachi-genmoves_cleanup"
	case "final_score":
		cmd = "final_status_list"
	}

	// Let the slaves send the new gtp command:
	m.updateCmd(b, cmd, args)
	m.cmdCond.Broadcast()

	/* Wait for replies here except for commands completed by Genmove or
	 * DeadGroupList later. If we don't wait, we run the risk of getting
	 * out of sync with most slaves and sending complete command history
	 * too frequently. */
	if cmd != "pachi-genmoves" && cmd != "pachi-genmoves_cleanup" && cmd != "final_status_list" {
		m.awaitReplies(time.Time{})
	}

	m.mu.Unlock()
}

// awaitReplies waits until at least 50% of the slaves have replied or the
// given absolute deadline (if non-zero) has passed. Once half the slaves
// are in, it waits another graceTime to gather as many as possible while
// not waiting forever for stuck or dead slaves. Never returns without at
// least one reply. The lock is held on entry and return.
func (m *Master) awaitReplies(deadline time.Time) {
	for len(m.replies) == 0 || len(m.replies) < m.active {
		if !deadline.IsZero() && len(m.replies) > 0 {
			m.waitReplyUntil(deadline)
		} else {
			m.replyCond.Wait()
		}
		if len(m.replies) == 0 {
			continue
		}
		if len(m.replies) >= m.active {
			break
		}
		now := time.Now()
		if !deadline.IsZero() && !now.Before(deadline) {
			break
		}
		if len(m.replies) >= m.active/2 &&
			(deadline.IsZero() || now.Add(m.graceTime).Before(deadline)) {
			deadline = now.Add(m.graceTime)
		}
	}
}

// waitReplyUntil waits on replyCond, giving up at the absolute time t.
func (m *Master) waitReplyUntil(t time.Time) {
	d := time.Until(t)
	if d <= 0 {
		return
	}
	stop := time.AfterFunc(d, func() {
		m.mu.Lock()
		m.replyCond.Broadcast()
		m.mu.Unlock()
	})
	m.replyCond.Wait()
	stop.Stop()
}

// Genmove waits for the slave replies to the pachi-genmoves broadcast by
// Notify, picks the most popular move and commits it to the command
// history with a play command so late slaves replay the same game.
// A zero deadline sets no time limit of its own; once half the slaves
// have replied, the grace period still ends the wait.
func (m *Master) Genmove(b *game.State, color game.Color, deadline time.Time) game.Coord {
	start := time.Now()

	m.mu.Lock()
	m.awaitReplies(deadline)
	replies := len(m.replies)

	coord, stats, playouts, threads := m.selectBestMove(b)
	m.myLastMove = Move{Color: color, Coord: coord}
	m.myLastStats = stats

	// Tell the slaves to commit to the selected move. The last
	// pachi-genmoves stays in the command history, its id rewritten so
	// that it no longer requests a reply.
	args := fmt.Sprintf("%s %s\n", color, game.CoordString(coord, b.Size))
	m.updateCmd(b, "play", args)
	m.cmdCond.Broadcast()
	statsTable := ""
	if m.log.IsLevelEnabled(logrus.DebugLevel) {
		statsTable = candidateTable(m.lastCands, b.Size)
	}
	m.mu.Unlock()

	elapsed := time.Since(start).Seconds() + 0.000001
	playoutsTotal.Add(float64(playouts))
	genmoveSeconds.Observe(elapsed)

	if m.log.IsLevelEnabled(logrus.DebugLevel) {
		perSlave, perThread := 0, 0
		if replies > 0 {
			perSlave = int(float64(playouts) / elapsed / float64(replies))
		}
		if threads > 0 {
			perThread = int(float64(playouts) / elapsed / float64(threads))
		}
		m.log.WithField("prefix", common.PrefixWinner).Debugf(
			"GLOBAL WINNER is %s %s with score %1.4f (%d/%d games)\n"+
				"genmove in %0.2fs (%d games/s, %d games/s/slave, %d games/s/thread)",
			color, game.CoordString(coord, b.Size), valueFor(stats.Value, color),
			stats.Playouts, playouts, elapsed,
			int(float64(playouts)/elapsed), perSlave, perThread)
		m.log.WithField("prefix", common.PrefixWinner).Debugf("candidate stats:\n%s", statsTable)
	}
	return coord
}

// DeadGroupList waits for the final_status_list replies, takes a
// plurality vote over the literal reply strings and returns the first
// coordinate of each line of the winning reply, one per dead group.
func (m *Master) DeadGroupList(b *game.State) []game.Coord {
	m.mu.Lock()
	m.awaitReplies(time.Time{})

	// Find the most popular reply.
	sorted := append([]string(nil), m.replies...)
	sort.Slice(sorted, func(i, j int) bool {
		return strings.ToLower(sorted[i]) < strings.ToLower(sorted[j])
	})
	best := 0
	bestCount := 1
	count := 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			count++
		} else {
			count = 1
		}
		if count > bestCount {
			bestCount = count
			best = i
		}
	}
	dead := sorted[best]
	m.mu.Unlock()

	// Pick the first move of each line as group.
	var groups []game.Coord
	sp := strings.IndexByte(dead, ' ') // skip "=id"
	if sp < 0 {
		return groups
	}
	for _, line := range strings.Split(dead[sp+1:], "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if c, ok := game.ParseCoord(fields[0], b.Size); ok {
			groups = append(groups, c)
		}
	}
	return groups
}

// Chat answers kgs-chat style queries about the master's last decision.
func (m *Master) Chat(b *game.State, cmd string) string {
	cmd = strings.TrimLeft(cmd, " \n\t")
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case strings.HasPrefix(strings.ToLower(cmd), "winrate"):
		color := m.myLastMove.Color
		return fmt.Sprintf("In %d playouts at %d machines, %s %s can win with %.2f%% probability.",
			m.myLastStats.Playouts, m.active, color,
			game.CoordString(m.myLastMove.Coord, b.Size),
			100*valueFor(m.myLastStats.Value, color))
	case strings.HasPrefix(strings.ToLower(cmd), "stats"):
		return candidateTable(m.lastCands, b.Size)
	}
	return ""
}

// ActiveSlaves reports how many slaves are currently in the service loop.
func (m *Master) ActiveSlaves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}
