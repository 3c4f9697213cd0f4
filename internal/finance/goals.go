package finance

import (
	"sort"

	"finanzas/internal/core"
)

type GoalProgress struct {
	Category string  `json:"category"`
	Saved    float64 `json:"saved"`
	Target   float64 `json:"target"`
	Percent  float64 `json:"percent"`
	Reached  bool    `json:"reached"`
}

// ComputeGoals reports, for every goal, how much has been saved so far in
// that category across all time. Goals without matching savings show 0.
func ComputeGoals(txs []core.Transaction, goals core.SavingsGoals) []GoalProgress {
	saved := make(map[string]float64, len(goals))
	for _, tx := range txs {
		if tx.Segment != core.SegmentAhorro {
			continue
		}
		if _, ok := goals[tx.Category]; ok {
			saved[tx.Category] += tx.AmountUSD
		}
	}

	out := make([]GoalProgress, 0, len(goals))
	for cat, target := range goals {
		gp := GoalProgress{Category: cat, Saved: saved[cat], Target: target}
		if target > 0 {
			gp.Percent = gp.Saved / target * 100
			gp.Reached = gp.Saved >= target
		}
		out = append(out, gp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}
