// Package gtp implements the upstream Go Text Protocol front end that
// drives the distributed engine from a controller (match driver or GUI).
package gtp

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gtpdist/gomaster/internal/game"
)

// Engine is the coordination core behind the front end.
type Engine interface {
	Notify(b *game.State, cmd, args string)
	Genmove(b *game.State, color game.Color, deadline time.Time) game.Coord
	DeadGroupList(b *game.State) []game.Coord
	Chat(b *game.State, cmd string) string
}

const (
	engineName    = "Distributed Engine"
	engineVersion = "1.0"
	engineComment = "I'm playing the distributed engine. When I'm losing, I will resign, " +
		"if I think I win, I play until you pass. " +
		"Anyone can send me 'winrate' in private chat to get my assessment of the position."
)

var knownCommands = []string{
	"protocol_version", "name", "version", "list_commands", "known_command",
	"boardsize", "clear_board", "komi", "play", "genmove",
	"kgs-genmove_cleanup", "final_score", "final_status_list",
	"kgs-chat", "time_settings", "time_left", "quit",
}

type Driver struct {
	e   Engine
	b   *game.State
	log *logrus.Logger

	// Remaining wall clock per color, from time_settings/time_left.
	// Zero means no time constraint; slaves then run to their own limits.
	timeLeft map[game.Color]float64
}

func NewDriver(e Engine, lg *logrus.Logger) *Driver {
	return &Driver{
		e:        e,
		b:        game.NewState(game.DefaultSize),
		log:      lg,
		timeLeft: map[game.Color]float64{},
	}
}

// Run reads gtp commands from in until EOF or quit, answering on out.
func (d *Driver) Run(in io.Reader, out io.Writer) error {
	w := bufio.NewWriter(out)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(strings.TrimRight(line, "\r"))
		if len(fields) == 0 {
			continue
		}
		id := ""
		if _, err := strconv.Atoi(fields[0]); err == nil {
			id = fields[0]
			fields = fields[1:]
			if len(fields) == 0 {
				continue
			}
		}
		cmd := fields[0]
		args := fields[1:]
		d.log.Debugf("gtp: %s %s", cmd, strings.Join(args, " "))

		quit := d.dispatch(w, id, cmd, args)
		if err := w.Flush(); err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
	return scanner.Err()
}

func reply(w *bufio.Writer, id, msg string) {
	fmt.Fprintf(w, "=%s %s\n\n", id, msg)
}

func replyErr(w *bufio.Writer, id, msg string) {
	fmt.Fprintf(w, "?%s %s\n\n", id, msg)
}

// dispatch fans the command out to the slaves, then produces the
// upstream answer. Returns true on quit.
func (d *Driver) dispatch(w *bufio.Writer, id, cmd string, args []string) bool {
	notifyArgs := strings.Join(args, " ")
	if notifyArgs != "" {
		notifyArgs += "\n"
	}
	d.e.Notify(d.b, cmd, notifyArgs)

	switch strings.ToLower(cmd) {
	case "protocol_version":
		reply(w, id, "2")
	case "name":
		reply(w, id, engineName)
	case "version":
		reply(w, id, engineVersion+": "+engineComment)
	case "list_commands":
		reply(w, id, strings.Join(knownCommands, "\n"))
	case "known_command":
		known := "false"
		if len(args) == 1 {
			for _, c := range knownCommands {
				if c == args[0] {
					known = "true"
					break
				}
			}
		}
		reply(w, id, known)
	case "boardsize":
		size := 0
		if len(args) == 1 {
			size, _ = strconv.Atoi(args[0])
		}
		if size < 2 || size > 19 {
			replyErr(w, id, "unacceptable size")
			return false
		}
		d.b.Resize(size)
		reply(w, id, "")
	case "clear_board":
		d.b.Clear()
		reply(w, id, "")
	case "komi":
		if len(args) == 1 {
			d.b.Komi, _ = strconv.ParseFloat(args[0], 64)
		}
		reply(w, id, "")
	case "play":
		color, coord, ok := parseMove(args, d.b.Size)
		if !ok {
			replyErr(w, id, "illegal move")
			return false
		}
		d.b.Play(color, coord)
		reply(w, id, "")
	case "genmove", "kgs-genmove_cleanup":
		color := game.Black
		if len(args) >= 1 {
			if c, ok := game.ParseColor(args[0]); ok {
				color = c
			}
		}
		coord := d.e.Genmove(d.b, color, d.deadline(color))
		if coord != game.Resign {
			d.b.Play(color, coord)
		}
		reply(w, id, game.CoordString(coord, d.b.Size))
	case "final_status_list":
		if len(args) == 1 && args[0] == "dead" {
			groups := d.e.DeadGroupList(d.b)
			lines := make([]string, 0, len(groups))
			for _, g := range groups {
				lines = append(lines, game.CoordString(g, d.b.Size))
			}
			reply(w, id, strings.Join(lines, "\n"))
		} else {
			reply(w, id, "")
		}
	case "final_score":
		final := d.b.Clone()
		for _, g := range d.e.DeadGroupList(d.b) {
			final.RemoveGroup(g)
		}
		reply(w, id, final.ScoreString())
	case "kgs-chat":
		// kgs-chat type sender message...
		msg := ""
		if len(args) >= 3 {
			msg = strings.Join(args[2:], " ")
		}
		if answer := d.e.Chat(d.b, msg); answer != "" {
			reply(w, id, answer)
		} else {
			replyErr(w, id, "unknown chat command")
		}
	case "time_settings":
		if len(args) >= 1 {
			main, _ := strconv.ParseFloat(args[0], 64)
			d.timeLeft[game.Black] = main
			d.timeLeft[game.White] = main
		}
		reply(w, id, "")
	case "time_left":
		if len(args) >= 2 {
			if color, ok := game.ParseColor(args[0]); ok {
				t, _ := strconv.ParseFloat(args[1], 64)
				d.timeLeft[color] = t
			}
		}
		reply(w, id, "")
	case "quit":
		reply(w, id, "")
		return true
	default:
		replyErr(w, id, "unknown command")
	}
	return false
}

func parseMove(args []string, size int) (game.Color, game.Coord, bool) {
	if len(args) != 2 {
		return game.None, game.Pass, false
	}
	color, ok := game.ParseColor(args[0])
	if !ok {
		return game.None, game.Pass, false
	}
	coord, ok := game.ParseCoord(args[1], size)
	if !ok {
		return game.None, game.Pass, false
	}
	return color, coord, true
}

// deadline converts the remaining wall clock into the absolute time by
// which a move must be picked. The allocation is deliberately crude:
// the slaves run their own time management, the master only bounds how
// long it collects replies.
func (d *Driver) deadline(color game.Color) time.Time {
	rem := d.timeLeft[color]
	if rem <= 0 {
		return time.Time{}
	}
	moves := 30 - d.b.Moves/4
	if moves < 10 {
		moves = 10
	}
	alloc := rem / float64(moves)
	return time.Now().Add(time.Duration(alloc * float64(time.Second)))
}
