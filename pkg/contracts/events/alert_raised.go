package events

import "time"

// Evento publicado no tópico "racing_alerts" quando há cavalos novos a notificar.
type AlertRaised struct {
	AlertID      string          `json:"alert_id"`
	CycleID      string          `json:"cycle_id"`
	ObservedDate string          `json:"observed_date"`
	Horses       []string        `json:"horses"`
	Rows         []DifferenceRow `json:"rows"`
	Threshold    float64         `json:"threshold"`
	RaisedAt     time.Time       `json:"raised_at"`
}
