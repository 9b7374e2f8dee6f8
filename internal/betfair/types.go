package betfair

import "time"

// Tipos espelham o JSON da Betting API (SportsAPING v1.0), apenas os campos usados.

type Event struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CountryCode string `json:"countryCode,omitempty"`
	Venue       string `json:"venue,omitempty"`
}

type EventResult struct {
	Event       Event `json:"event"`
	MarketCount int   `json:"marketCount"`
}

// RunnerCatalog descreve um cavalo dentro de um mercado.
type RunnerCatalog struct {
	SelectionID int64  `json:"selectionId"`
	RunnerName  string `json:"runnerName"`
}

// MarketCatalogue é a metadata de um mercado (corrida).
type MarketCatalogue struct {
	MarketID        string          `json:"marketId"`
	MarketName      string          `json:"marketName"`
	MarketStartTime time.Time       `json:"marketStartTime"`
	Event           Event           `json:"event"`
	Runners         []RunnerCatalog `json:"runners"`
}

type PriceSize struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// ExchangePrices contém a ladder de melhores ofertas.
type ExchangePrices struct {
	AvailableToBack []PriceSize `json:"availableToBack"`
	AvailableToLay  []PriceSize `json:"availableToLay"`
}

type Runner struct {
	SelectionID int64          `json:"selectionId"`
	Status      string         `json:"status,omitempty"`
	Ex          ExchangePrices `json:"ex"`
}

// MarketBook é o order book de um mercado no momento da consulta.
type MarketBook struct {
	MarketID string   `json:"marketId"`
	Status   string   `json:"status,omitempty"`
	Runners  []Runner `json:"runners"`
}

// Snapshot agrupa catálogo e books obtidos num mesmo ciclo.
type Snapshot struct {
	Catalogue []MarketCatalogue
	Books     []MarketBook
	FetchedAt time.Time
}

// TimeRange é o filtro de horário de início usado pela API.
type TimeRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type MarketFilter struct {
	EventTypeIDs    []string   `json:"eventTypeIds,omitempty"`
	EventIDs        []string   `json:"eventIds,omitempty"`
	MarketCountries []string   `json:"marketCountries,omitempty"`
	MarketStartTime *TimeRange `json:"marketStartTime,omitempty"`
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int    `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse[T any] struct {
	Result T         `json:"result"`
	Error  *rpcError `json:"error,omitempty"`
}
