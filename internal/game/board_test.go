package game

import (
	"testing"
)

func mustCoord(t *testing.T, s string, size int) Coord {
	t.Helper()
	c, ok := ParseCoord(s, size)
	if !ok {
		t.Fatalf("ParseCoord(%q) failed", s)
	}
	return c
}

func TestParseCoord(t *testing.T) {
	cases := []struct {
		in   string
		size int
		want Coord
		ok   bool
	}{
		{"A1", 19, 0, true},
		{"D4", 19, 3*19 + 3, true},
		{"T19", 19, 18*19 + 18, true},
		{"j1", 19, 8, true}, // I is skipped
		{"pass", 19, Pass, true},
		{"RESIGN", 19, Resign, true},
		{"I5", 19, 0, false},
		{"Z3", 19, 0, false},
		{"D0", 19, 0, false},
		{"D20", 19, 0, false},
		{"K5", 9, 0, false}, // off a small board
		{"", 19, 0, false},
	}
	for _, c := range cases {
		got, ok := ParseCoord(c.in, c.size)
		if ok != c.ok {
			t.Errorf("ParseCoord(%q): ok=%v, want %v", c.in, ok, c.ok)
			continue
		}
		if ok && got != c.want {
			t.Errorf("ParseCoord(%q): got %d, want %d", c.in, got, c.want)
		}
	}
}

func TestCoordStringRoundTrip(t *testing.T) {
	for _, s := range []string{"A1", "D4", "J10", "T19", "pass", "resign"} {
		c := mustCoord(t, s, 19)
		if got := CoordString(c, 19); got != s {
			t.Errorf("CoordString(%q): got %q", s, got)
		}
	}
}

func TestPlayCaptures(t *testing.T) {
	s := NewState(5)
	a1 := mustCoord(t, "A1", 5)
	s.Play(White, a1)
	s.Play(Black, mustCoord(t, "B1", 5))
	s.Play(Black, mustCoord(t, "A2", 5))

	if s.At(a1) != None {
		t.Error("surrounded white stone not captured")
	}
	if s.Moves != 3 {
		t.Errorf("moves: got %d, want 3", s.Moves)
	}
}

func TestPlayPassOnlyCounts(t *testing.T) {
	s := NewState(5)
	s.Play(Black, Pass)
	if s.Moves != 1 {
		t.Errorf("moves: got %d, want 1", s.Moves)
	}
	if s.ToPlay != White {
		t.Errorf("to play: got %v, want white", s.ToPlay)
	}
}

func TestScore(t *testing.T) {
	s := NewState(5)
	s.Komi = 7.5

	// Empty board: every point is neutral, White wins by komi.
	if got := s.ScoreString(); got != "W+7.5" {
		t.Errorf("empty board score: got %q, want W+7.5", got)
	}

	// A lone black stone owns the whole board.
	s.Play(Black, mustCoord(t, "C3", 5))
	if got := s.Score(); got != 25-7.5 {
		t.Errorf("score: got %f, want 17.5", got)
	}
	if got := s.ScoreString(); got != "B+17.5" {
		t.Errorf("score: got %q, want B+17.5", got)
	}
}

func TestRemoveGroup(t *testing.T) {
	s := NewState(5)
	b1 := mustCoord(t, "B1", 5)
	b2 := mustCoord(t, "B2", 5)
	s.Play(Black, b1)
	s.Play(Black, b2)

	s.RemoveGroup(b1)
	if s.At(b1) != None || s.At(b2) != None {
		t.Error("RemoveGroup left part of the chain on the board")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := NewState(5)
	s.Play(Black, mustCoord(t, "C3", 5))
	c := s.Clone()
	c.RemoveGroup(mustCoord(t, "C3", 5))
	if s.At(mustCoord(t, "C3", 5)) != Black {
		t.Error("mutating the clone changed the original")
	}
}

func TestGamestartAndReset(t *testing.T) {
	if !IsGamestart("boardsize") || !IsGamestart("BOARDSIZE") {
		t.Error("boardsize must start a new game")
	}
	if IsGamestart("clear_board") {
		t.Error("clear_board must not drop the command history")
	}
	for _, cmd := range []string{"boardsize", "clear_board", "kgs-rules"} {
		if !IsReset(cmd) {
			t.Errorf("%s must reset move numbering", cmd)
		}
	}
	if IsReset("play") {
		t.Error("play must not reset move numbering")
	}
}

func TestParseColor(t *testing.T) {
	for _, in := range []string{"b", "B", "black", "BLACK"} {
		if c, ok := ParseColor(in); !ok || c != Black {
			t.Errorf("ParseColor(%q): got %v, %v", in, c, ok)
		}
	}
	if _, ok := ParseColor("green"); ok {
		t.Error("ParseColor accepted a bad color")
	}
	if Black.Other() != White || White.Other() != Black {
		t.Error("Other is not an involution")
	}
}
