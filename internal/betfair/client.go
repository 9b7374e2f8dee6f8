package betfair

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	DefaultURL = "https://api.betfair.com/exchange/betting/json-rpc/v1"

	// HorseRacing é o eventTypeId de corridas de cavalo.
	HorseRacing = "7"

	// listMarketBook aceita no máximo 40 mercados por chamada com EX_BEST_OFFERS.
	bookChunkSize = 40
	maxCatalogue  = 500
)

// ErrNoMarkets indica que não há corridas regulares para o dia.
var ErrNoMarkets = errors.New("betfair: no race markets for date")

// Client fala com a Betting API via JSON-RPC.
// A sessão (X-Authentication) é obtida fora deste serviço.
type Client struct {
	BaseURL      string
	AppKey       string
	SessionToken string
	Countries    []string
	HTTP         *http.Client
	Log          *zap.Logger

	limiter     *rate.Limiter
	concurrency int
}

type Option func(*Client)

// WithRateLimit limita as chamadas por segundo feitas à API.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// WithConcurrency define quantos chunks de listMarketBook rodam em paralelo.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTP = hc }
}

func New(baseURL, appKey, sessionToken string, countries []string, log *zap.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		BaseURL:      baseURL,
		AppKey:       appKey,
		SessionToken: sessionToken,
		Countries:    countries,
		HTTP:         &http.Client{Timeout: 15 * time.Second},
		Log:          log,
		limiter:      rate.NewLimiter(rate.Limit(5), 5),
		concurrency:  4,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// FetchSnapshot busca catálogo e books de todas as corridas do dia.
func (c *Client) FetchSnapshot(ctx context.Context, day time.Time) (Snapshot, error) {
	window := dayWindow(day)

	events, err := c.ListEvents(ctx, MarketFilter{
		EventTypeIDs:    []string{HorseRacing},
		MarketCountries: c.Countries,
		MarketStartTime: window,
	})
	if err != nil {
		return Snapshot{}, err
	}
	if len(events) == 0 {
		return Snapshot{}, ErrNoMarkets
	}
	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.Event.ID)
	}

	catalogue, err := c.ListMarketCatalogue(ctx, MarketFilter{EventIDs: ids, MarketStartTime: window})
	if err != nil {
		return Snapshot{}, err
	}

	races := RaceMarkets(catalogue)
	if len(races) == 0 {
		return Snapshot{}, ErrNoMarkets
	}
	marketIDs := make([]string, 0, len(races))
	for _, m := range races {
		marketIDs = append(marketIDs, m.MarketID)
	}

	books, err := c.ListMarketBooks(ctx, marketIDs)
	if err != nil {
		return Snapshot{}, err
	}

	c.Log.Debug("betfair snapshot fetched",
		zap.Int("events", len(events)),
		zap.Int("markets", len(races)),
		zap.Int("books", len(books)),
	)
	return Snapshot{Catalogue: catalogue, Books: books, FetchedAt: time.Now()}, nil
}

func (c *Client) ListEvents(ctx context.Context, f MarketFilter) ([]EventResult, error) {
	var out []EventResult
	err := c.call(ctx, "SportsAPING/v1.0/listEvents", map[string]any{"filter": f}, &out)
	return out, err
}

func (c *Client) ListMarketCatalogue(ctx context.Context, f MarketFilter) ([]MarketCatalogue, error) {
	params := map[string]any{
		"filter":     f,
		"maxResults": maxCatalogue,
		"marketProjection": []string{
			"COMPETITION", "EVENT", "EVENT_TYPE", "MARKET_START_TIME", "RUNNER_DESCRIPTION",
		},
	}
	var out []MarketCatalogue
	err := c.call(ctx, "SportsAPING/v1.0/listMarketCatalogue", params, &out)
	return out, err
}

// ListMarketBooks busca os books em chunks, preservando a ordem dos ids.
func (c *Client) ListMarketBooks(ctx context.Context, marketIDs []string) ([]MarketBook, error) {
	chunks := chunk(marketIDs, bookChunkSize)
	results := make([][]MarketBook, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, ids := range chunks {
		g.Go(func() error {
			params := map[string]any{
				"marketIds": ids,
				"priceProjection": map[string]any{
					"priceData":  []string{"EX_BEST_OFFERS"},
					"virtualise": true,
				},
			}
			var out []MarketBook
			if err := c.call(gctx, "SportsAPING/v1.0/listMarketBook", params, &out); err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var books []MarketBook
	for _, r := range results {
		books = append(books, r...)
	}
	return books, nil
}

func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: 1})
	if err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Application", c.AppKey)
	req.Header.Set("X-Authentication", c.SessionToken)

	res, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return fmt.Errorf("%s: http %d", method, res.StatusCode)
	}

	var env rpcResponse[json.RawMessage]
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode %s: %w", method, err)
	}
	if env.Error != nil {
		return fmt.Errorf("%s: rpc error %d: %s", method, env.Error.Code, env.Error.Message)
	}
	if len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

// RaceMarkets mantém só corridas regulares: nome começa com dígito
// (ex: "2m Hcap Chs") e não termina em "TBP".
func RaceMarkets(catalogue []MarketCatalogue) []MarketCatalogue {
	out := make([]MarketCatalogue, 0, len(catalogue))
	for _, m := range catalogue {
		name := m.MarketName
		if name == "" || name[0] < '0' || name[0] > '9' {
			continue
		}
		if strings.HasSuffix(name, "TBP") {
			continue
		}
		out = append(out, m)
	}
	return out
}

// dayWindow cobre o dia calendário de day no fuso do próprio day
// (00:00 a 23:59), enviado em UTC.
func dayWindow(day time.Time) *TimeRange {
	const layout = "2006-01-02T15:04:05Z"
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 0, 0, day.Location())
	return &TimeRange{From: start.UTC().Format(layout), To: end.UTC().Format(layout)}
}

func chunk(ids []string, size int) [][]string {
	var out [][]string
	for i := 0; i < len(ids); i += size {
		end := i + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[i:end])
	}
	return out
}
