package odds

import "time"

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04:05"
)

// Record é uma observação do mercado de um cavalo num instante.
type Record struct {
	Venue        string `json:"venue"`
	PostTime     string `json:"post_time"` // HH:MM:SS
	Horse        string `json:"horse"`
	Race         string `json:"race"`
	Price        Amount `json:"price"`     // melhor back disponível
	BackSize     Amount `json:"back_size"` // liquidez no melhor back
	LaySize      Amount `json:"lay_size"`  // liquidez no melhor lay
	ObservedDate string `json:"observed_date"`
}

// Identity é a chave de upsert de um Record.
type Identity struct {
	Venue        string
	PostTime     string
	Horse        string
	Race         string
	ObservedDate string
}

func (r Record) Identity() Identity {
	return Identity{
		Venue:        r.Venue,
		PostTime:     r.PostTime,
		Horse:        r.Horse,
		Race:         r.Race,
		ObservedDate: r.ObservedDate,
	}
}

// Difference é a variação de preço de um cavalo entre baseline e batch atual.
// Não é persistida.
type Difference struct {
	Venue          string  `json:"venue"`
	PostTime       string  `json:"post_time"`
	Delta          float64 `json:"delta"`
	Horse          string  `json:"horse"`
	Race           string  `json:"race"`
	BackSize       Amount  `json:"back_size"`
	LaySize        Amount  `json:"lay_size"`
	AlertTimestamp string  `json:"alert_timestamp"` // HH:MM:SS
}

// DateOf formata o dia calendário usado como partição do snapshot e do ledger.
func DateOf(t time.Time) string { return t.Format(DateLayout) }

// ClockOf formata a hora do dia separada por dois-pontos.
func ClockOf(t time.Time) string { return t.Format(ClockLayout) }
