package master

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gtpdist/gomaster/internal/game"
)

// MoveStats accumulates playouts for one candidate move. Value is the
// playout-weighted mean win rate, always from Black's perspective.
type MoveStats struct {
	Playouts int
	Value    float64
}

func (s *MoveStats) addResult(value float64, playouts int) {
	if playouts <= 0 {
		return
	}
	s.Value = (s.Value*float64(s.Playouts) + value*float64(playouts)) /
		float64(s.Playouts+playouts)
	s.Playouts += playouts
}

// valueFor converts a Black-perspective value to the given color's view.
func valueFor(value float64, color game.Color) float64 {
	if color == game.Black {
		return value
	}
	return 1 - value
}

type Candidate struct {
	Coord game.Coord
	MoveStats
}

/* A pachi-genmoves reply is a line "=id total_playouts threads[ reserved]"
 * then a list of lines "coord playouts value". selectBestMove merges the
 * per-slave statistics and returns the move with most playouts, its
 * merged stats, and the header totals. Ties break toward the move first
 * seen to reach the winning count. Lines that fail to parse are skipped.
 * The lock is held on entry and on return. */
func (m *Master) selectBestMove(b *game.State) (game.Coord, MoveStats, int, int) {
	// +2 for pass and resign.
	stats := make([]MoveStats, b.Size2()+2)

	bestMove := game.Pass
	bestPlayouts := -1
	totalPlayouts := 0
	totalThreads := 0

	for _, r := range m.replies {
		var id, playouts, threads int
		if n, _ := fmt.Sscanf(r, "=%d %d %d", &id, &playouts, &threads); n != 3 {
			continue
		}
		totalPlayouts += playouts
		totalThreads += threads
		// Skip the rest of the first line if any (allow future extensions).
		nl := strings.IndexByte(r, '\n')
		if nl < 0 {
			continue
		}
		for _, line := range strings.Split(r[nl+1:], "\n") {
			fields := strings.Fields(line)
			if len(fields) < 3 {
				continue
			}
			c, ok := game.ParseCoord(fields[0], b.Size)
			if !ok {
				continue
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				continue
			}
			v, err := strconv.ParseFloat(fields[2], 64)
			if err != nil {
				continue
			}
			s := &stats[int(c)+2]
			s.addResult(v, n)
			if s.Playouts > bestPlayouts {
				bestPlayouts = s.Playouts
				bestMove = c
			}
		}
	}

	m.lastCands = m.lastCands[:0]
	for i := range stats {
		if stats[i].Playouts > 0 {
			m.lastCands = append(m.lastCands, Candidate{
				Coord:     game.Coord(i - 2),
				MoveStats: stats[i],
			})
		}
	}

	return bestMove, stats[int(bestMove)+2], totalPlayouts, totalThreads
}
