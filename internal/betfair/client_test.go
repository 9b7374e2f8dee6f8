package betfair

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

type fakeExchange struct {
	catalogue  []MarketCatalogue
	noEvents   bool
	bookCalls  atomic.Int32
	lastAppKey atomic.Value
}

func (f *fakeExchange) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.lastAppKey.Store(r.Header.Get("X-Application"))

	var req struct {
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	var result any
	switch req.Method {
	case "SportsAPING/v1.0/listEvents":
		if f.noEvents {
			result = []EventResult{}
		} else {
			result = []EventResult{{Event: Event{ID: "E1", Name: "Ascot 1st May"}}}
		}
	case "SportsAPING/v1.0/listMarketCatalogue":
		result = f.catalogue
	case "SportsAPING/v1.0/listMarketBook":
		f.bookCalls.Add(1)
		var p struct {
			MarketIDs []string `json:"marketIds"`
		}
		_ = json.Unmarshal(req.Params, &p)
		books := make([]MarketBook, 0, len(p.MarketIDs))
		for _, id := range p.MarketIDs {
			books = append(books, MarketBook{
				MarketID: id,
				Runners: []Runner{{
					SelectionID: 1,
					Ex:          ExchangePrices{AvailableToBack: []PriceSize{{Price: 4.2, Size: 10}}},
				}},
			})
		}
		result = books
	default:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": -32601, "message": "no method"}})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "result": result, "id": 1})
}

func marketsN(n int) []MarketCatalogue {
	out := make([]MarketCatalogue, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, MarketCatalogue{
			MarketID:   fmt.Sprintf("1.%d", i),
			MarketName: "2m Hcap",
			Event:      Event{ID: "E1", Name: "Ascot 1st May"},
		})
	}
	return out
}

func TestClient_FetchSnapshot(t *testing.T) {
	fx := &fakeExchange{catalogue: append(marketsN(90), MarketCatalogue{MarketID: "9.9", MarketName: "To Be Placed TBP"})}
	srv := httptest.NewServer(fx)
	defer srv.Close()

	c := New(srv.URL, "app-key", "token", []string{"GB", "IE"}, nil, WithRateLimit(1000, 100))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap, err := c.FetchSnapshot(ctx, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("FetchSnapshot() error = %v", err)
	}
	if len(snap.Catalogue) != 91 {
		t.Errorf("catalogue = %d, want 91", len(snap.Catalogue))
	}
	if len(snap.Books) != 90 {
		t.Errorf("books = %d, want 90 (TBP market excluded)", len(snap.Books))
	}
	// 90 mercados => 3 chunks de até 40
	if got := fx.bookCalls.Load(); got != 3 {
		t.Errorf("listMarketBook calls = %d, want 3", got)
	}
	if snap.Books[0].MarketID != "1.0" || snap.Books[89].MarketID != "1.89" {
		t.Errorf("book order not preserved: first=%s last=%s", snap.Books[0].MarketID, snap.Books[89].MarketID)
	}
	if got, _ := fx.lastAppKey.Load().(string); got != "app-key" {
		t.Errorf("X-Application = %q, want app-key", got)
	}
}

func TestClient_FetchSnapshot_NoMarkets(t *testing.T) {
	fx := &fakeExchange{noEvents: true}
	srv := httptest.NewServer(fx)
	defer srv.Close()

	c := New(srv.URL, "k", "t", nil, nil)
	_, err := c.FetchSnapshot(context.Background(), time.Now())
	if !errors.Is(err, ErrNoMarkets) {
		t.Errorf("err = %v, want ErrNoMarkets", err)
	}
}

func TestClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, "k", "t", nil, nil)
	if _, err := c.ListEvents(context.Background(), MarketFilter{}); err == nil {
		t.Error("expected error on 503")
	}
}

func TestRaceMarkets(t *testing.T) {
	in := []MarketCatalogue{
		{MarketID: "1", MarketName: "2m4f Hcap Hrd"},
		{MarketID: "2", MarketName: "To Be Placed"},
		{MarketID: "3", MarketName: "1m Nov Stks TBP"},
		{MarketID: "4", MarketName: ""},
		{MarketID: "5", MarketName: "7f Mdn Stks"},
	}
	got := RaceMarkets(in)
	if len(got) != 2 || got[0].MarketID != "1" || got[1].MarketID != "5" {
		t.Errorf("RaceMarkets() = %+v", got)
	}
}

func TestChunk(t *testing.T) {
	ids := make([]string, 81)
	got := chunk(ids, 40)
	if len(got) != 3 || len(got[2]) != 1 {
		t.Errorf("chunk sizes wrong: %d chunks", len(got))
	}
	if len(chunk(nil, 40)) != 0 {
		t.Error("chunk(nil) should be empty")
	}
}

func TestDayWindow(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	tests := []struct {
		name     string
		day      time.Time
		from, to string
	}{
		{"utc", time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC), "2024-05-01T00:00:00Z", "2024-05-01T23:59:00Z"},
		// BST = UTC+1: o dia local começa às 23:00 UTC do dia anterior
		{"london summer", time.Date(2024, 5, 1, 0, 30, 0, 0, london), "2024-04-30T23:00:00Z", "2024-05-01T22:59:00Z"},
		{"london winter", time.Date(2024, 1, 15, 12, 0, 0, 0, london), "2024-01-15T00:00:00Z", "2024-01-15T23:59:00Z"},
		{"fixed -03", time.Date(2024, 5, 1, 22, 0, 0, 0, time.FixedZone("BRT", -3*3600)), "2024-05-01T03:00:00Z", "2024-05-02T02:59:00Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := dayWindow(tt.day)
			if w.From != tt.from || w.To != tt.to {
				t.Errorf("dayWindow = %s..%s, want %s..%s", w.From, w.To, tt.from, tt.to)
			}
		})
	}
}
