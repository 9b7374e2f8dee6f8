package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/radieske/racing-odds-monitor/internal/racing/odds"
)

func rec(horse, post string, price float64) odds.Record {
	return odds.Record{
		Venue:        "ASC",
		PostTime:     post,
		Horse:        horse,
		Race:         "2m Hcap",
		Price:        odds.Known(price),
		ObservedDate: "2024-05-01",
	}
}

func TestMemory_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.Upsert(ctx, rec("Fast Eddie", "14:30:00", 5.0)); err != nil {
		t.Fatal(err)
	}
	if err := m.Upsert(ctx, rec("Fast Eddie", "14:30:00", 5.5)); err != nil {
		t.Fatal(err)
	}

	got, _ := m.Query(ctx, "2024-05-01")
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if got[0].Price.String() != "5.5" {
		t.Errorf("Price = %s, want latest 5.5", got[0].Price)
	}
}

func TestMemory_QueryKeepsStorageOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_ = m.Upsert(ctx, rec("A", "14:30:00", 3))
	_ = m.Upsert(ctx, rec("B", "13:00:00", 4))
	other := rec("C", "12:00:00", 2)
	other.ObservedDate = "2024-05-02"
	_ = m.Upsert(ctx, other)
	// re-upsert de A não muda a posição dele
	_ = m.Upsert(ctx, rec("A", "14:30:00", 2.8))

	got, _ := m.Query(ctx, "2024-05-01")
	if len(got) != 2 || got[0].Horse != "A" || got[1].Horse != "B" {
		t.Errorf("Query() = %+v", got)
	}
	if m.Len() != 3 {
		t.Errorf("Len() = %d, want 3", m.Len())
	}

	empty, err := m.Query(ctx, "2023-01-01")
	if err != nil || len(empty) != 0 {
		t.Errorf("Query(no data) = %v, %v", empty, err)
	}
}

func TestCountUpcoming(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.Upsert(ctx, rec("A", "12:00:00", 3))
	_ = m.Upsert(ctx, rec("B", "14:30:00", 3))
	_ = m.Upsert(ctx, rec("C", "14:30:00", 3)) // mesma corrida de B
	late := rec("D", "16:00:00", 3)
	late.Race = "1m Mdn"
	_ = m.Upsert(ctx, late)

	n, err := CountUpcoming(ctx, m, "2024-05-01", "13:00:00")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("CountUpcoming() = %d, want 2", n)
	}
}

type failingStore struct{ after int }

func (f *failingStore) Upsert(context.Context, odds.Record) error {
	if f.after == 0 {
		return errors.New("db down")
	}
	f.after--
	return nil
}

func (f *failingStore) Query(context.Context, string) ([]odds.Record, error) { return nil, nil }

func TestUpsertAll_StopsOnError(t *testing.T) {
	recs := []odds.Record{rec("A", "1", 1), rec("B", "1", 1), rec("C", "1", 1)}
	n, err := UpsertAll(context.Background(), &failingStore{after: 2}, recs)
	if err == nil {
		t.Fatal("expected error")
	}
	if n != 2 {
		t.Errorf("written = %d, want 2", n)
	}
}

func TestNullableRoundTrip(t *testing.T) {
	if nullable(odds.Unknown) != nil {
		t.Error("unknown should map to NULL")
	}
	if got := nullable(odds.Known(4.2)); got != "4.2" {
		t.Errorf("nullable(4.2) = %v", got)
	}
	if fromNull(sql.NullString{}).IsKnown() {
		t.Error("NULL should map to unknown")
	}
	if a := fromNull(sql.NullString{String: "4.20", Valid: true}); a.String() != "4.2" {
		t.Errorf("fromNull(4.20) = %s", a)
	}
}
