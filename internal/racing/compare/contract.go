package compare

import (
	"github.com/radieske/racing-odds-monitor/internal/racing/odds"
	"github.com/radieske/racing-odds-monitor/pkg/contracts/events"
)

// ToRows converte as linhas para o formato dos eventos publicados.
func ToRows(diffs []odds.Difference) []events.DifferenceRow {
	out := make([]events.DifferenceRow, 0, len(diffs))
	for _, d := range diffs {
		out = append(out, events.DifferenceRow{
			Venue:          d.Venue,
			PostTime:       d.PostTime,
			Delta:          d.Delta,
			Horse:          d.Horse,
			Race:           d.Race,
			Back:           floatPtr(d.BackSize),
			Lay:            floatPtr(d.LaySize),
			AlertTimestamp: d.AlertTimestamp,
		})
	}
	return out
}

func ToGroups(groups []Group) []events.RowGroup {
	out := make([]events.RowGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, events.RowGroup{PostTime: g.PostTime, Rows: ToRows(g.Rows)})
	}
	return out
}

// RowsFor filtra as linhas ranqueadas dos cavalos informados.
func RowsFor(ranked []odds.Difference, horses []string) []odds.Difference {
	want := make(map[string]struct{}, len(horses))
	for _, h := range horses {
		want[h] = struct{}{}
	}
	var out []odds.Difference
	for _, r := range ranked {
		if _, ok := want[r.Horse]; ok {
			out = append(out, r)
		}
	}
	return out
}

func floatPtr(a odds.Amount) *float64 {
	f, ok := a.Float64()
	if !ok {
		return nil
	}
	return &f
}
