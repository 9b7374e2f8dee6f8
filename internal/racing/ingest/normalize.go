package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/racing-odds-monitor/internal/betfair"
	"github.com/radieske/racing-odds-monitor/internal/racing/odds"
)

// DefaultCeiling é o preço máximo aceito no snapshot "basic".
const DefaultCeiling = 70.0

// FaultKind classifica linhas descartadas por falta de join.
type FaultKind string

const (
	FaultMissingMarket FaultKind = "missing_market"
	FaultMissingRunner FaultKind = "missing_runner"
)

// Fault descreve uma linha de book que não pôde ser normalizada.
type Fault struct {
	Kind        FaultKind
	MarketID    string
	SelectionID int64
}

func (f Fault) Error() string {
	return fmt.Sprintf("%s: market=%s selection=%d", f.Kind, f.MarketID, f.SelectionID)
}

// Normalizer transforma catálogo + books em Records.
type Normalizer struct {
	Log *zap.Logger
	// Location define o fuso usado para post_time e observed_date.
	Location *time.Location
	Now      func() time.Time
}

func NewNormalizer(log *zap.Logger, loc *time.Location) *Normalizer {
	if log == nil {
		log = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{Log: log, Location: loc, Now: time.Now}
}

// Normalize gera um Record por cavalo de cada book. Linhas sem join com o
// catálogo são puladas e devolvidas como Fault; nunca abortam o lote.
func (n *Normalizer) Normalize(catalogue []betfair.MarketCatalogue, books []betfair.MarketBook) ([]odds.Record, []Fault) {
	markets := make(map[string]*betfair.MarketCatalogue, len(catalogue))
	for i := range catalogue {
		if _, dup := markets[catalogue[i].MarketID]; !dup {
			markets[catalogue[i].MarketID] = &catalogue[i]
		}
	}

	date := odds.DateOf(n.Now().In(n.Location))

	var (
		out    []odds.Record
		faults []Fault
	)
	for _, book := range books {
		market, ok := markets[book.MarketID]
		for _, r := range book.Runners {
			if !ok {
				faults = append(faults, n.fault(FaultMissingMarket, book.MarketID, r.SelectionID))
				continue
			}
			name, found := runnerName(market, r.SelectionID)
			if !found {
				faults = append(faults, n.fault(FaultMissingRunner, book.MarketID, r.SelectionID))
				continue
			}

			price, backSize := bestBack(r.Ex.AvailableToBack)
			out = append(out, odds.Record{
				Venue:        venueCode(market.Event.Name),
				PostTime:     odds.ClockOf(market.MarketStartTime.In(n.Location)),
				Horse:        name,
				Race:         market.MarketName,
				Price:        price,
				BackSize:     backSize,
				LaySize:      bestLaySize(r.Ex.AvailableToLay),
				ObservedDate: date,
			})
		}
	}
	return out, faults
}

func (n *Normalizer) fault(kind FaultKind, marketID string, selectionID int64) Fault {
	f := Fault{Kind: kind, MarketID: marketID, SelectionID: selectionID}
	n.Log.Warn("skipping runner without catalogue entry",
		zap.String("kind", string(kind)),
		zap.String("market_id", marketID),
		zap.Int64("selection_id", selectionID),
	)
	return f
}

// FilterByCeiling mantém apenas preços conhecidos <= ceiling.
func FilterByCeiling(records []odds.Record, ceiling float64) []odds.Record {
	limit := decimal.NewFromFloat(ceiling)
	out := make([]odds.Record, 0, len(records))
	for _, r := range records {
		if r.Price.AtMost(limit) {
			out = append(out, r)
		}
	}
	return out
}

func venueCode(eventName string) string {
	up := []rune(strings.ToUpper(eventName))
	if len(up) > 3 {
		up = up[:3]
	}
	return string(up)
}

func runnerName(m *betfair.MarketCatalogue, selectionID int64) (string, bool) {
	for _, rc := range m.Runners {
		if rc.SelectionID == selectionID {
			return rc.RunnerName, true
		}
	}
	return "", false
}

// bestBack retorna o maior preço de back e a liquidez nele.
func bestBack(ladder []betfair.PriceSize) (price, size odds.Amount) {
	if len(ladder) == 0 {
		return odds.Unknown, odds.Unknown
	}
	best := ladder[0]
	for _, ps := range ladder[1:] {
		if ps.Price > best.Price {
			best = ps
		}
	}
	return odds.Known(best.Price), odds.Known(best.Size)
}

// bestLaySize retorna a liquidez no menor preço de lay.
func bestLaySize(ladder []betfair.PriceSize) odds.Amount {
	if len(ladder) == 0 {
		return odds.Unknown
	}
	best := ladder[0]
	for _, ps := range ladder[1:] {
		if ps.Price < best.Price {
			best = ps
		}
	}
	return odds.Known(best.Size)
}
