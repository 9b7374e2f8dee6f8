package compare

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/radieske/racing-odds-monitor/internal/racing/odds"
	"github.com/radieske/racing-odds-monitor/internal/racing/snapshot"
)

func rec(venue, horse, post string, price odds.Amount) odds.Record {
	return odds.Record{
		Venue:        venue,
		PostTime:     post,
		Horse:        horse,
		Race:         "2m Hcap",
		Price:        price,
		ObservedDate: "2024-05-01",
	}
}

func TestCompute_FastEddie(t *testing.T) {
	baseline := []odds.Record{rec("ASC", "Fast Eddie", "14:30:00", odds.Known(5.0))}
	current := []odds.Record{rec("ASC", "Fast Eddie", "14:30:00", odds.Known(4.2))}

	got := Compute(current, baseline, "15:01:02")
	if len(got) != 1 {
		t.Fatalf("got %d rows, want 1", len(got))
	}
	if got[0].Delta != -0.8 {
		t.Errorf("Delta = %v, want -0.8", got[0].Delta)
	}
	if got[0].AlertTimestamp != "15:01:02" {
		t.Errorf("AlertTimestamp = %q", got[0].AlertTimestamp)
	}
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name      string
		baseline  []odds.Record
		current   []odds.Record
		wantRows  int
		wantDelta float64
	}{
		{
			name:      "zero delta is a real row",
			baseline:  []odds.Record{rec("ASC", "A", "14:30:00", odds.Known(3))},
			current:   []odds.Record{rec("ASC", "A", "14:30:00", odds.Known(3))},
			wantRows:  1,
			wantDelta: 0,
		},
		{
			name:      "lengthening is positive",
			baseline:  []odds.Record{rec("ASC", "A", "14:30:00", odds.Known(2.5))},
			current:   []odds.Record{rec("ASC", "A", "14:30:00", odds.Known(3.75))},
			wantRows:  1,
			wantDelta: 1.25,
		},
		{
			name:      "rounds to two decimals",
			baseline:  []odds.Record{rec("ASC", "A", "14:30:00", odds.Known(10.333))},
			current:   []odds.Record{rec("ASC", "A", "14:30:00", odds.Known(4.2))},
			wantRows:  1,
			wantDelta: -6.13,
		},
		{
			name:     "no baseline match",
			baseline: []odds.Record{rec("ASC", "A", "15:00:00", odds.Known(3))},
			current:  []odds.Record{rec("ASC", "A", "14:30:00", odds.Known(3))},
			wantRows: 0,
		},
		{
			name:     "unknown current price",
			baseline: []odds.Record{rec("ASC", "A", "14:30:00", odds.Known(3))},
			current:  []odds.Record{rec("ASC", "A", "14:30:00", odds.Unknown)},
			wantRows: 0,
		},
		{
			name: "skips unknown baseline prices",
			baseline: []odds.Record{
				rec("ASC", "A", "14:30:00", odds.Unknown),
				rec("ASC", "A", "14:30:00", odds.Known(8)),
			},
			current:   []odds.Record{rec("ASC", "A", "14:30:00", odds.Known(2))},
			wantRows:  1,
			wantDelta: -6,
		},
		{
			name: "first match wins ignoring venue",
			baseline: []odds.Record{
				rec("YOR", "A", "14:30:00", odds.Known(10)),
				rec("ASC", "A", "14:30:00", odds.Known(3)),
			},
			current:   []odds.Record{rec("ASC", "A", "14:30:00", odds.Known(3))},
			wantRows:  1,
			wantDelta: -7,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.current, tt.baseline, "12:00:00")
			if len(got) != tt.wantRows {
				t.Fatalf("rows = %d, want %d", len(got), tt.wantRows)
			}
			if tt.wantRows == 1 && got[0].Delta != tt.wantDelta {
				t.Errorf("Delta = %v, want %v", got[0].Delta, tt.wantDelta)
			}
		})
	}
}

type errStore struct{}

func (errStore) Upsert(context.Context, odds.Record) error { return nil }
func (errStore) Query(context.Context, string) ([]odds.Record, error) {
	return nil, errors.New("connection refused")
}

func TestDiffer_Diff(t *testing.T) {
	ctx := context.Background()
	store := snapshot.NewMemory()
	_ = store.Upsert(ctx, rec("ASC", "Fast Eddie", "14:30:00", odds.Known(5)))
	_ = store.Upsert(ctx, rec("ASC", "Outsider", "14:30:00", odds.Known(60)))

	d := NewDiffer(store, 70, time.UTC)
	d.Now = func() time.Time { return time.Date(2024, 5, 1, 13, 5, 9, 0, time.UTC) }

	current := []odds.Record{
		rec("ASC", "Fast Eddie", "14:30:00", odds.Known(4.2)),
		rec("ASC", "Outsider", "14:30:00", odds.Known(80)), // acima do teto
	}
	got, err := d.Diff(ctx, current, "2024-05-01")
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	if len(got) != 1 || got[0].Horse != "Fast Eddie" {
		t.Fatalf("Diff() = %+v", got)
	}
	if got[0].AlertTimestamp != "13:05:09" {
		t.Errorf("AlertTimestamp = %q", got[0].AlertTimestamp)
	}

	t.Run("no baseline yet", func(t *testing.T) {
		rows, err := d.Diff(ctx, current, "2024-05-02")
		if err != nil || len(rows) != 0 {
			t.Errorf("Diff(empty day) = %v, %v", rows, err)
		}
	})

	t.Run("store failure surfaces", func(t *testing.T) {
		bad := NewDiffer(errStore{}, 70, nil)
		if _, err := bad.Diff(ctx, current, "2024-05-01"); err == nil {
			t.Error("expected error")
		}
	})
}

func TestRank(t *testing.T) {
	times := []string{"15:00:00", "14:00:00", "16:00:00"}
	var rows []odds.Difference
	for i := 0; i < 40; i++ {
		rows = append(rows, odds.Difference{
			Horse:    fmt.Sprintf("h%02d", i),
			PostTime: times[i%3],
			Delta:    float64(20 - i),
		})
	}

	got := Rank(rows, DefaultRowCap)
	if len(got) != 30 {
		t.Fatalf("len = %d, want 30", len(got))
	}
	for i := 1; i < len(got); i++ {
		a, b := got[i-1], got[i]
		if a.PostTime > b.PostTime || (a.PostTime == b.PostTime && a.Delta > b.Delta) {
			t.Fatalf("not sorted at %d: %+v then %+v", i, a, b)
		}
	}
	// 14:00 tem 13 linhas, 15:00 tem 14 => sobram 3 de 16:00 (os menores deltas)
	groups := GroupByPostTime(got)
	if len(groups) != 3 {
		t.Fatalf("groups = %d, want 3", len(groups))
	}
	wantSizes := []int{13, 14, 3}
	for i, g := range groups {
		if len(g.Rows) != wantSizes[i] {
			t.Errorf("group %s size = %d, want %d", g.PostTime, len(g.Rows), wantSizes[i])
		}
	}
	if groups[0].PostTime != "14:00:00" || groups[2].PostTime != "16:00:00" {
		t.Errorf("group order = %s..%s", groups[0].PostTime, groups[2].PostTime)
	}
}

func TestRank_StableOnTies(t *testing.T) {
	rows := []odds.Difference{
		{Horse: "first", PostTime: "14:00:00", Delta: -1},
		{Horse: "second", PostTime: "14:00:00", Delta: -1},
		{Horse: "early", PostTime: "13:00:00", Delta: 5},
	}
	got := Rank(rows, 0)
	if got[0].Horse != "early" || got[1].Horse != "first" || got[2].Horse != "second" {
		t.Errorf("Rank() = %+v", got)
	}
	if rows[0].Horse != "first" {
		t.Error("Rank must not reorder its input")
	}
}

func TestAlertable(t *testing.T) {
	ranked := []odds.Difference{
		{Horse: "A", Delta: -12.5},
		{Horse: "B", Delta: -5.99},
		{Horse: "C", Delta: -6},
		{Horse: "A", Delta: -7},
		{Horse: "D", Delta: 8},
	}
	got := Alertable(ranked, DefaultAlertThreshold)
	if len(got) != 2 || got[0] != "A" || got[1] != "C" {
		t.Errorf("Alertable() = %v, want [A C]", got)
	}
}
