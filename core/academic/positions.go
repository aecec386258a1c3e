package academic

import (
	"sort"

	"github.com/trezcool/shule/core"
)

type Position struct {
	StudentID string  `json:"studentId"`
	Total     float64 `json:"total"`
	Subjects  int     `json:"subjects"`
	Position  int     `json:"position"`
}

func rank(results []Result) []Position {
	byStudent := make(map[string]*Position)
	order := make([]string, 0)
	for _, r := range results {
		p, ok := byStudent[r.StudentID]
		if !ok {
			p = &Position{StudentID: r.StudentID}
			byStudent[r.StudentID] = p
			order = append(order, r.StudentID)
		}
		p.Total += r.Total
		p.Subjects++
	}

	positions := make([]Position, 0, len(order))
	for _, id := range order {
		p := byStudent[id]
		p.Total = core.RoundCents(p.Total)
		positions = append(positions, *p)
	}
	sort.SliceStable(positions, func(i, j int) bool { return positions[i].Total > positions[j].Total })

	for i := range positions {
		if i > 0 && positions[i].Total == positions[i-1].Total {
			positions[i].Position = positions[i-1].Position
		} else {
			positions[i].Position = i + 1
		}
	}
	return positions
}
