package master

import (
	"fmt"
	"strconv"

	"github.com/gtpdist/gomaster/internal/game"
)

// Command ids sent to slaves carry the move number in the low decimal
// digits and a random nonce above GameLen. An id below GameLen does not
// request a reply; ForceReply lifts it past GameLen so the slave answers.
const GameLen = 1000

// BSize is not referenced: readReply bounds a reply by CmdsSize, and
// proxied slave log lines are not bounded.
const BSize = 4096

// Max size of all gtp commands for one game.
const CmdsSize = 40 * game.MaxGameLen

func ForceReply(id int) int   { return id + GameLen }
func PreventReply(id int) int { return id % GameLen }
func MoveNumber(id int) int   { return id % GameLen }
func ReplyRequired(id int) bool { return id >= GameLen }

// CmdLog keeps every gtp command of the current game concatenated in one
// preallocated buffer, each command ending with a newline. The bytes from
// tail to end are the command currently broadcast to the slaves; the
// bytes from the start to end replay the whole game for a slave that is
// out of sync. Exactly the tail command carries a reply-requesting id;
// Append rewrites the previous tail id in place, keeping its decimal
// width so no later offset moves.
type CmdLog struct {
	buf  []byte
	tail int
	end  int
}

func NewCmdLog() *CmdLog {
	return &CmdLog{buf: make([]byte, CmdsSize)}
}

// Empty reports that no command is being broadcast.
func (l *CmdLog) Empty() bool { return l.end == l.tail }

// Reset drops the history when a new game starts.
func (l *CmdLog) Reset() {
	l.tail = 0
	l.end = 0
}

func digitSpan(p []byte) int {
	n := 0
	for n < len(p) && p[n] >= '0' && p[n] <= '9' {
		n++
	}
	return n
}

// TailID returns the id of the command at tail, or -1 if the log is empty.
func (l *CmdLog) TailID() int {
	if l.Empty() {
		return -1
	}
	p := l.buf[l.tail:l.end]
	id, err := strconv.Atoi(string(p[:digitSpan(p)]))
	if err != nil {
		return -1
	}
	return id
}

// Append installs "<id> <cmd> <args>" as the new tail command. If the log
// is non-empty the old tail keeps its place in the history but its id is
// rewritten to the bare move number, zero-padded to the old width, so the
// slaves will not reply to it again. args is empty or ends with a newline.
func (l *CmdLog) Append(id int, cmd, args string) {
	if !l.Empty() {
		p := l.buf[l.tail:l.end]
		width := digitSpan(p)
		old, _ := strconv.Atoi(string(p[:width]))
		rewritten := fmt.Sprintf("%0*d", width, PreventReply(old))
		copy(l.buf[l.tail:l.tail+width], rewritten)
		l.tail = l.end
	}
	if args == "" {
		args = "\n"
	}
	line := fmt.Sprintf("%d %s %s", id, cmd, args)
	n := copy(l.buf[l.tail:], line)
	l.end = l.tail + n
}

// BroadcastPayload is what a synchronized slave must receive: the tail
// command alone.
func (l *CmdLog) BroadcastPayload() []byte {
	return l.buf[l.tail:l.end]
}

// FullHistory is what a desynchronized slave must receive: every command
// of the game, tail included.
func (l *CmdLog) FullHistory() []byte {
	return l.buf[:l.end]
}
