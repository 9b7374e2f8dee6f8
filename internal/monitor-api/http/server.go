package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/radieske/racing-odds-monitor/internal/monitor-api/dto"
	"github.com/radieske/racing-odds-monitor/internal/monitor-api/feed"
	"github.com/radieske/racing-odds-monitor/internal/monitor-api/ws"
	"github.com/radieske/racing-odds-monitor/internal/racing/compare"
	"github.com/radieske/racing-odds-monitor/internal/racing/odds"
	"github.com/radieske/racing-odds-monitor/internal/racing/snapshot"
	"github.com/radieske/racing-odds-monitor/pkg/contracts/events"
)

// ComparisonReader devolve a última comparação publicada de um dia.
type ComparisonReader interface {
	Latest(ctx context.Context, date string) (events.ComparisonUpdated, bool, error)
}

// RedisComparisons lê a comparação cacheada pelo worker.
type RedisComparisons struct {
	Client *redis.Client
}

func (c RedisComparisons) Latest(ctx context.Context, date string) (events.ComparisonUpdated, bool, error) {
	return compare.LoadLatest(ctx, c.Client, date)
}

// API expõe os endpoints REST de consulta do monitor.
// Leitura apenas: os ciclos rodam nos workers.
type API struct {
	Comparisons ComparisonReader // última comparação (Redis)
	Store       snapshot.Store   // snapshots do dia
	Alerts      *feed.Recent     // alertas recentes
	Hub         *ws.Hub          // nil desativa /ws

	Location *time.Location
	Now      func() time.Time
}

// Router retorna o roteador HTTP com os endpoints REST
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/v1/comparison", a.getComparison)     // Última comparação ranqueada
	r.Get("/compare.json", a.compareJSON)        // Formato plano legado
	r.Get("/v1/races/upcoming", a.upcomingRaces) // Corridas ainda por correr
	r.Get("/v1/alerts", a.listAlerts)            // Alertas recentes
	if a.Hub != nil {
		r.Get("/ws", a.Hub.HandleWS)
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) now() time.Time {
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	loc := a.Location
	if loc == nil {
		loc = time.UTC
	}
	return now().In(loc)
}

// date lê ?date=YYYY-MM-DD, padrão hoje
func (a *API) date(r *http.Request) (string, bool) {
	d := r.URL.Query().Get("date")
	if d == "" {
		return odds.DateOf(a.now()), true
	}
	if _, err := time.Parse(odds.DateLayout, d); err != nil {
		return "", false
	}
	return d, true
}

func (a *API) latest(w http.ResponseWriter, r *http.Request) (events.ComparisonUpdated, bool) {
	date, ok := a.date(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date"})
		return events.ComparisonUpdated{}, false
	}
	c, found, err := a.Comparisons.Latest(r.Context(), date)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return events.ComparisonUpdated{}, false
	}
	if !found {
		c = events.ComparisonUpdated{ObservedDate: date}
	}
	if c.Rows == nil {
		c.Rows = []events.DifferenceRow{}
	}
	if c.Groups == nil {
		c.Groups = []events.RowGroup{}
	}
	return c, true
}

func (a *API) getComparison(w http.ResponseWriter, r *http.Request) {
	c, ok := a.latest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *API) compareJSON(w http.ResponseWriter, r *http.Request) {
	c, ok := a.latest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, dto.Flatten(c.Groups))
}

func (a *API) upcomingRaces(w http.ResponseWriter, r *http.Request) {
	date, ok := a.date(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date"})
		return
	}
	after := r.URL.Query().Get("after")
	if after == "" {
		after = odds.ClockOf(a.now())
	}
	n, err := snapshot.CountUpcoming(r.Context(), a.Store, date, after)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, dto.Upcoming{Date: date, After: after, Races: n})
}

func (a *API) listAlerts(w http.ResponseWriter, r *http.Request) {
	if a.Alerts == nil {
		writeJSON(w, http.StatusOK, []events.AlertRaised{})
		return
	}
	writeJSON(w, http.StatusOK, a.Alerts.List(r.URL.Query().Get("date")))
}

// WithCORS libera o painel servido em outra origem
func WithCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}
