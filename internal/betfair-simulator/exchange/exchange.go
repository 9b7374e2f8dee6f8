package exchange

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/racing-odds-monitor/internal/betfair"
)

// Catálogo fixo de hipódromos e cavalos usados pelo simulador
var (
	venues = []struct{ name, country string }{
		{"Ascot", "GB"},
		{"York", "GB"},
		{"Leopardstown", "IE"},
	}
	raceNames = []string{"1m Hcap", "6f Mdn Stks", "2m4f Nov Hrd", "7f Listed"}
	horses    = []string{
		"Fast Eddie", "Slow Sam", "Blue Bolt", "Early Bird", "Kings Gambit",
		"Misty Morning", "Red Rum Lad", "Silver Arrow", "Night Owl", "Quiet Storm",
	}
)

// Exchange simula a Betting API: catálogo do dia e order books que derivam
// a cada Tick. Um runner por tick pode sofrer um steam (queda forte de preço).
type Exchange struct {
	mu        sync.RWMutex
	log       *zap.Logger
	rnd       *rand.Rand
	catalogue []betfair.MarketCatalogue
	prices    map[string]map[int64]float64

	// OnCall é chamado a cada método JSON-RPC atendido (métricas)
	OnCall func(method string)
}

// New monta o card do dia com primeira corrida às 12:00 UTC e uma a cada 35 min
// por hipódromo. Cada hipódromo tem ainda um mercado "TBP" que o cliente descarta.
func New(day time.Time, seed int64, log *zap.Logger) *Exchange {
	if log == nil {
		log = zap.NewNop()
	}
	x := &Exchange{
		log:    log,
		rnd:    rand.New(rand.NewSource(seed)),
		prices: make(map[string]map[int64]float64),
	}

	base := time.Date(day.Year(), day.Month(), day.Day(), 12, 0, 0, 0, time.UTC)
	sel := int64(1000)
	for v, venue := range venues {
		event := betfair.Event{
			ID:          fmt.Sprintf("3%d", v+1),
			Name:        fmt.Sprintf("%s %s", venue.name, day.Format("2 Jan")),
			CountryCode: venue.country,
			Venue:       venue.name,
		}
		for r, name := range raceNames {
			m := betfair.MarketCatalogue{
				MarketID:        fmt.Sprintf("1.%d%02d", v+1, r+1),
				MarketName:      name,
				MarketStartTime: base.Add(time.Duration(r*35+v*5) * time.Minute),
				Event:           event,
			}
			book := make(map[int64]float64)
			for h := 0; h < 5; h++ {
				sel++
				m.Runners = append(m.Runners, betfair.RunnerCatalog{
					SelectionID: sel,
					RunnerName:  horses[(v*3+r*2+h)%len(horses)] + fmt.Sprintf(" %c", 'A'+rune(v)),
				})
				book[sel] = tick(1.5 + x.rnd.Float64()*60)
			}
			x.catalogue = append(x.catalogue, m)
			x.prices[m.MarketID] = book
		}
		x.catalogue = append(x.catalogue, betfair.MarketCatalogue{
			MarketID:        fmt.Sprintf("1.%d99", v+1),
			MarketName:      "To Be Placed TBP",
			MarketStartTime: base,
			Event:           event,
		})
	}
	return x
}

// Tick aplica um passeio aleatório nos preços e, com 30% de chance, um steam
// de 20% a 60% num runner sorteado.
func (x *Exchange) Tick() {
	x.mu.Lock()
	defer x.mu.Unlock()

	for _, book := range x.prices {
		for sel, p := range book {
			book[sel] = tick(p * (1 + (x.rnd.Float64()-0.5)*0.06))
		}
	}

	if x.rnd.Float64() < 0.3 {
		m := x.catalogue[x.rnd.Intn(len(x.catalogue))]
		if len(m.Runners) == 0 {
			return
		}
		sel := m.Runners[x.rnd.Intn(len(m.Runners))].SelectionID
		book := x.prices[m.MarketID]
		before := book[sel]
		book[sel] = tick(before * (0.4 + x.rnd.Float64()*0.4))
		x.log.Debug("steam", zap.String("market_id", m.MarketID), zap.Int64("selection_id", sel),
			zap.Float64("from", before), zap.Float64("to", book[sel]))
	}
}

// Catalogue devolve os mercados cujos eventos estão em ids (vazio = todos)
func (x *Exchange) Catalogue(ids []string) []betfair.MarketCatalogue {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]betfair.MarketCatalogue, 0, len(x.catalogue))
	for _, m := range x.catalogue {
		if len(ids) == 0 || want[m.Event.ID] {
			out = append(out, m)
		}
	}
	return out
}

// Events lista os eventos distintos do card, filtrando por país
func (x *Exchange) Events(countries []string) []betfair.EventResult {
	allowed := make(map[string]bool, len(countries))
	for _, c := range countries {
		allowed[c] = true
	}
	var out []betfair.EventResult
	idx := make(map[string]int)
	for _, m := range x.catalogue {
		if len(countries) > 0 && !allowed[m.Event.CountryCode] {
			continue
		}
		if i, ok := idx[m.Event.ID]; ok {
			out[i].MarketCount++
			continue
		}
		idx[m.Event.ID] = len(out)
		out = append(out, betfair.EventResult{Event: m.Event, MarketCount: 1})
	}
	return out
}

// Books monta os order books atuais; mercados desconhecidos são ignorados
func (x *Exchange) Books(marketIDs []string) []betfair.MarketBook {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make([]betfair.MarketBook, 0, len(marketIDs))
	for _, id := range marketIDs {
		book, ok := x.prices[id]
		if !ok {
			continue
		}
		mb := betfair.MarketBook{MarketID: id, Status: "OPEN"}
		for _, rc := range x.runners(id) {
			p := book[rc.SelectionID]
			mb.Runners = append(mb.Runners, betfair.Runner{
				SelectionID: rc.SelectionID,
				Status:      "ACTIVE",
				Ex: betfair.ExchangePrices{
					AvailableToBack: []betfair.PriceSize{
						{Price: p, Size: size(p, 1)},
						{Price: tick(p * 0.97), Size: size(p, 2)},
					},
					AvailableToLay: []betfair.PriceSize{
						{Price: tick(p * 1.03), Size: size(p, 3)},
					},
				},
			})
		}
		out = append(out, mb)
	}
	return out
}

func (x *Exchange) runners(marketID string) []betfair.RunnerCatalog {
	for _, m := range x.catalogue {
		if m.MarketID == marketID {
			return m.Runners
		}
	}
	return nil
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      int             `json:"id"`
}

type rpcParams struct {
	Filter    betfair.MarketFilter `json:"filter"`
	MarketIDs []string             `json:"marketIds"`
}

// ServeHTTP atende o endpoint JSON-RPC com os três métodos usados pelo coletor
func (x *Exchange) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.Header.Get("X-Application") == "" {
		http.Error(w, "missing app key", http.StatusUnauthorized)
		return
	}

	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	var p rpcParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &p); err != nil {
			http.Error(w, "bad params", http.StatusBadRequest)
			return
		}
	}

	var result any
	switch req.Method {
	case "SportsAPING/v1.0/listEvents":
		result = x.Events(p.Filter.MarketCountries)
	case "SportsAPING/v1.0/listMarketCatalogue":
		result = x.Catalogue(p.Filter.EventIDs)
	case "SportsAPING/v1.0/listMarketBook":
		result = x.Books(p.MarketIDs)
	default:
		writeRPC(w, map[string]any{
			"jsonrpc": "2.0", "id": req.ID,
			"error": map[string]any{"code": -32601, "message": "method not found: " + req.Method},
		})
		return
	}
	if x.OnCall != nil {
		x.OnCall(req.Method)
	}
	writeRPC(w, map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
}

func writeRPC(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// tick arredonda para 2 casas dentro da faixa válida da exchange
func tick(p float64) float64 {
	p = math.Max(1.01, math.Min(p, 1000))
	return math.Round(p*100) / 100
}

func size(p float64, depth int) float64 {
	return math.Round(2000/p/float64(depth)*100) / 100
}
