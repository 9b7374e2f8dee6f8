package compare

import (
	"context"
	"fmt"
	"time"

	"github.com/radieske/racing-odds-monitor/internal/racing/ingest"
	"github.com/radieske/racing-odds-monitor/internal/racing/odds"
	"github.com/radieske/racing-odds-monitor/internal/racing/snapshot"
)

// Differ compara o batch atual com o baseline guardado para o mesmo dia.
type Differ struct {
	Store    snapshot.Store
	Ceiling  float64
	Location *time.Location
	Now      func() time.Time
}

func NewDiffer(store snapshot.Store, ceiling float64, loc *time.Location) *Differ {
	if loc == nil {
		loc = time.UTC
	}
	return &Differ{Store: store, Ceiling: ceiling, Location: loc, Now: time.Now}
}

// Diff carrega o baseline de observedDate e calcula a variação por cavalo.
// Sem baseline o resultado é vazio, não erro.
func (d *Differ) Diff(ctx context.Context, current []odds.Record, observedDate string) ([]odds.Difference, error) {
	baseline, err := d.Store.Query(ctx, observedDate)
	if err != nil {
		return nil, fmt.Errorf("load baseline: %w", err)
	}
	stamp := odds.ClockOf(d.Now().In(d.Location))
	return Compute(ingest.FilterByCeiling(current, d.Ceiling), baseline, stamp), nil
}

type matchKey struct{ horse, postTime string }

// Compute é o núcleo puro do Diff. O match é o primeiro registro do baseline
// (ordem de armazenamento) com mesmo horse e post_time e preço conhecido.
// Venue e race são ignorados no match: se dois cavalos homônimos correm no
// mesmo horário em hipódromos diferentes, o match pode pegar o errado.
func Compute(current, baseline []odds.Record, stamp string) []odds.Difference {
	first := make(map[matchKey]odds.Record, len(baseline))
	for _, b := range baseline {
		if !b.Price.IsKnown() {
			continue
		}
		k := matchKey{b.Horse, b.PostTime}
		if _, seen := first[k]; !seen {
			first[k] = b
		}
	}

	out := make([]odds.Difference, 0, len(current))
	for _, c := range current {
		cur, ok := c.Price.Decimal()
		if !ok {
			continue
		}
		base, found := first[matchKey{c.Horse, c.PostTime}]
		if !found {
			continue
		}
		prev, _ := base.Price.Decimal()

		out = append(out, odds.Difference{
			Venue:          c.Venue,
			PostTime:       c.PostTime,
			Delta:          cur.Sub(prev).Round(2).InexactFloat64(),
			Horse:          c.Horse,
			Race:           c.Race,
			BackSize:       c.BackSize,
			LaySize:        c.LaySize,
			AlertTimestamp: stamp,
		})
	}
	return out
}
