package dto

import "github.com/radieske/racing-odds-monitor/pkg/contracts/events"

// CompareRow é a linha plana do /compare.json consumida pelo painel antigo.
// Campos vazios ("") marcam a linha separadora no início de cada horário.
type CompareRow struct {
	Venue  any `json:"Venue"`
	Time   any `json:"Time"`
	Price  any `json:"Price"`
	Horse  any `json:"Horse"`
	Race   any `json:"Race"`
	Back   any `json:"Back"`
	Lay    any `json:"Lay"`
	Update any `json:"Update"`
}

func separator() CompareRow {
	return CompareRow{"", "", "", "", "", "", "", ""}
}

// Flatten achata os grupos já ranqueados. Liquidez desconhecida vira "".
func Flatten(groups []events.RowGroup) []CompareRow {
	out := make([]CompareRow, 0)
	for _, g := range groups {
		out = append(out, separator())
		for _, r := range g.Rows {
			out = append(out, CompareRow{
				Venue:  r.Venue,
				Time:   r.PostTime,
				Price:  r.Delta,
				Horse:  r.Horse,
				Race:   r.Race,
				Back:   orBlank(r.Back),
				Lay:    orBlank(r.Lay),
				Update: r.AlertTimestamp,
			})
		}
	}
	return out
}

func orBlank(f *float64) any {
	if f == nil {
		return ""
	}
	return *f
}

// Upcoming é a resposta de /v1/races/upcoming.
type Upcoming struct {
	Date  string `json:"date"`
	After string `json:"after"`
	Races int    `json:"races"`
}
