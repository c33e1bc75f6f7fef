package master

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtpdist/gomaster/internal/game"
)

func coord(t *testing.T, s string, size int) game.Coord {
	t.Helper()
	c, ok := game.ParseCoord(s, size)
	require.True(t, ok, "bad coord %q", s)
	return c
}

func TestSelectBestMoveMergesSlaves(t *testing.T) {
	b := game.NewState(19)
	m := &Master{replies: []string{
		"=1234 1500 8\nD4 1000 0.55\nQ16 500 0.60\n",
		"=1234 1700 8\nD4 800 0.50\nQ4 900 0.70\n",
	}}

	best, stats, playouts, threads := m.selectBestMove(b)
	assert.Equal(t, coord(t, "D4", 19), best)
	assert.Equal(t, 1800, stats.Playouts)
	assert.InDelta(t, (1000*0.55+800*0.50)/1800, stats.Value, 1e-9)
	assert.Equal(t, 3200, playouts)
	assert.Equal(t, 16, threads)
}

// On equal playout counts the move that reached the winning count first
// wins, so permuting the replies moves the tie the other way.
func TestSelectBestMoveTieBreak(t *testing.T) {
	b := game.NewState(19)
	r1 := "=1 100 2\nD4 100 0.50\n"
	r2 := "=1 100 2\nQ16 100 0.60\n"

	m := &Master{replies: []string{r1, r2}}
	best, _, _, _ := m.selectBestMove(b)
	assert.Equal(t, coord(t, "D4", 19), best)

	m = &Master{replies: []string{r2, r1}}
	best, _, _, _ = m.selectBestMove(b)
	assert.Equal(t, coord(t, "Q16", 19), best)
}

func TestSelectBestMoveSkipsUnparseable(t *testing.T) {
	b := game.NewState(19)
	m := &Master{replies: []string{
		"?1234 cannot generate move\n",
		"bogus\n",
		"=9 50 1\nD4 50 0.40\nnot a move line\nZ99 10 0.5\n",
	}}

	best, stats, playouts, threads := m.selectBestMove(b)
	assert.Equal(t, coord(t, "D4", 19), best)
	assert.Equal(t, 50, stats.Playouts)
	assert.Equal(t, 50, playouts)
	assert.Equal(t, 1, threads)
}

// With no usable reply at all the engine falls back to pass.
func TestSelectBestMoveEmpty(t *testing.T) {
	b := game.NewState(19)
	m := &Master{replies: []string{"garbage"}}

	best, stats, _, _ := m.selectBestMove(b)
	assert.Equal(t, game.Pass, best)
	assert.Equal(t, 0, stats.Playouts)
}

func TestSelectBestMovePass(t *testing.T) {
	b := game.NewState(19)
	m := &Master{replies: []string{"=5 10 1\npass 10 0.40\n"}}

	best, stats, _, _ := m.selectBestMove(b)
	assert.Equal(t, game.Pass, best)
	assert.Equal(t, 10, stats.Playouts)
}

// Values are stored from Black's perspective and flipped when reported
// for White.
func TestValueFor(t *testing.T) {
	assert.InDelta(t, 0.55, valueFor(0.55, game.Black), 1e-9)
	assert.InDelta(t, 0.45, valueFor(0.55, game.White), 1e-9)
}

func TestMoveStatsWeightedMean(t *testing.T) {
	var s MoveStats
	s.addResult(0.55, 1000)
	s.addResult(0.50, 800)
	assert.Equal(t, 1800, s.Playouts)
	assert.InDelta(t, 0.527777, s.Value, 1e-5)

	// Zero playouts contribute nothing.
	s.addResult(0.99, 0)
	assert.Equal(t, 1800, s.Playouts)
}
