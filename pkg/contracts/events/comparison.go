package events

import "time"

// DifferenceRow é uma linha da tabela de variação de preços.
// Back/Lay nulos indicam liquidez desconhecida.
type DifferenceRow struct {
	Venue          string   `json:"venue"`
	PostTime       string   `json:"post_time"`
	Delta          float64  `json:"delta"`
	Horse          string   `json:"horse"`
	Race           string   `json:"race"`
	Back           *float64 `json:"back"`
	Lay            *float64 `json:"lay"`
	AlertTimestamp string   `json:"alert_timestamp"`
}

type RowGroup struct {
	PostTime string          `json:"post_time"`
	Rows     []DifferenceRow `json:"rows"`
}

// Evento publicado no canal "racing_comparison_broadcast" a cada ciclo de compare
type ComparisonUpdated struct {
	CycleID      string          `json:"cycle_id"`
	ObservedDate string          `json:"observed_date"`
	GeneratedAt  time.Time       `json:"generated_at"`
	Rows         []DifferenceRow `json:"rows"`
	Groups       []RowGroup      `json:"groups"`
}
