package master

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/liushuochen/gotable"
	"github.com/liushuochen/gotable/cell"

	"github.com/gtpdist/gomaster/internal/game"
)

const tableTopMoves = 10

// candidateTable renders the merged candidate statistics of the last
// move selection, strongest first.
func candidateTable(cands []Candidate, size int) string {
	table, err := gotable.Create("Move", "Playouts", "Winrate")
	if err != nil {
		return ""
	}
	for _, col := range []string{"Move", "Playouts", "Winrate"} {
		table.Align(col, cell.AlignLeft)
	}

	sorted := append([]Candidate(nil), cands...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Playouts > sorted[j].Playouts
	})
	if len(sorted) > tableTopMoves {
		sorted = sorted[:tableTopMoves]
	}
	for _, c := range sorted {
		row := []string{
			game.CoordString(c.Coord, size),
			strconv.Itoa(c.Playouts),
			fmt.Sprintf("%.3f", c.Value),
		}
		if err := table.AddRow(row); err != nil {
			return ""
		}
	}
	return table.String()
}
