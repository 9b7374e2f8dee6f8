package snapshot

import (
	"context"
	"sync"

	"github.com/radieske/racing-odds-monitor/internal/racing/odds"
)

// Store persiste Records do dia. Query devolve na ordem de armazenamento
// (primeira inserção de cada identidade), que é a ordem usada no match
// do baseline: arbitrária mas estável dentro de uma implementação.
type Store interface {
	Upsert(ctx context.Context, r odds.Record) error
	Query(ctx context.Context, observedDate string) ([]odds.Record, error)
}

// UpsertAll grava o lote parando no primeiro erro; upserts já feitos ficam.
func UpsertAll(ctx context.Context, s Store, records []odds.Record) (int, error) {
	for i, r := range records {
		if err := s.Upsert(ctx, r); err != nil {
			return i, err
		}
	}
	return len(records), nil
}

// CountUpcoming conta corridas distintas (venue, race, post_time) do dia
// com post_time >= nowClock.
func CountUpcoming(ctx context.Context, s Store, observedDate, nowClock string) (int, error) {
	records, err := s.Query(ctx, observedDate)
	if err != nil {
		return 0, err
	}
	type race struct{ venue, name, post string }
	seen := make(map[race]struct{})
	for _, r := range records {
		if r.PostTime < nowClock {
			continue
		}
		seen[race{r.Venue, r.Race, r.PostTime}] = struct{}{}
	}
	return len(seen), nil
}

// Memory é um Store em memória, usado em dev e testes.
type Memory struct {
	mu      sync.RWMutex
	records []odds.Record
	index   map[odds.Identity]int
}

func NewMemory() *Memory {
	return &Memory{index: make(map[odds.Identity]int)}
}

func (m *Memory) Upsert(_ context.Context, r odds.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := r.Identity()
	if i, ok := m.index[id]; ok {
		m.records[i] = r
		return nil
	}
	m.index[id] = len(m.records)
	m.records = append(m.records, r)
	return nil
}

func (m *Memory) Query(_ context.Context, observedDate string) ([]odds.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []odds.Record
	for _, r := range m.records {
		if r.ObservedDate == observedDate {
			out = append(out, r)
		}
	}
	return out, nil
}

// Len retorna o total de registros guardados.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
