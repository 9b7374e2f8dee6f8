package snapshot

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/radieske/racing-odds-monitor/internal/racing/odds"
)

// Schema cria a tabela de snapshots. A constraint única é a identidade do Record.
const Schema = `
CREATE TABLE IF NOT EXISTS odds_snapshots (
  id            BIGSERIAL PRIMARY KEY,
  venue         TEXT    NOT NULL,
  post_time     TEXT    NOT NULL,
  horse         TEXT    NOT NULL,
  race          TEXT    NOT NULL,
  observed_date DATE    NOT NULL,
  price         NUMERIC NULL,
  back_size     NUMERIC NULL,
  lay_size      NUMERIC NULL,
  updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (venue, post_time, horse, race, observed_date)
);
CREATE INDEX IF NOT EXISTS odds_snapshots_date_idx ON odds_snapshots (observed_date);
`

// Postgres implementa Store sobre a tabela odds_snapshots.
// A ordem de armazenamento é o id serial da primeira inserção.
type Postgres struct {
	DB *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{DB: db} }

// Migrate garante que a tabela exista.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.DB.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate odds_snapshots: %w", err)
	}
	return nil
}

// Upsert usa ON CONFLICT na identidade; last-write-wins e atômico por linha.
func (p *Postgres) Upsert(ctx context.Context, r odds.Record) error {
	const q = `
		INSERT INTO odds_snapshots
		  (venue, post_time, horse, race, observed_date, price, back_size, lay_size, updated_at)
		VALUES
		  ($1,$2,$3,$4,$5,$6,$7,$8, now())
		ON CONFLICT (venue, post_time, horse, race, observed_date) DO UPDATE SET
		  price     = EXCLUDED.price,
		  back_size = EXCLUDED.back_size,
		  lay_size  = EXCLUDED.lay_size,
		  updated_at= EXCLUDED.updated_at
	`
	_, err := p.DB.ExecContext(ctx, q,
		r.Venue, r.PostTime, r.Horse, r.Race, r.ObservedDate,
		nullable(r.Price), nullable(r.BackSize), nullable(r.LaySize),
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot %s/%s: %w", r.Horse, r.PostTime, err)
	}
	return nil
}

func (p *Postgres) Query(ctx context.Context, observedDate string) ([]odds.Record, error) {
	const q = `
		SELECT venue, post_time, horse, race, to_char(observed_date, 'YYYY-MM-DD'),
		       price::text, back_size::text, lay_size::text
		FROM odds_snapshots
		WHERE observed_date = $1
		ORDER BY id;
	`
	rows, err := p.DB.QueryContext(ctx, q, observedDate)
	if err != nil {
		return nil, fmt.Errorf("query snapshot %s: %w", observedDate, err)
	}
	defer rows.Close()

	var out []odds.Record
	for rows.Next() {
		var (
			r                odds.Record
			price, back, lay sql.NullString
		)
		if err := rows.Scan(&r.Venue, &r.PostTime, &r.Horse, &r.Race, &r.ObservedDate, &price, &back, &lay); err != nil {
			return nil, err
		}
		r.Price = fromNull(price)
		r.BackSize = fromNull(back)
		r.LaySize = fromNull(lay)
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullable(a odds.Amount) any {
	d, ok := a.Decimal()
	if !ok {
		return nil
	}
	return d.String()
}

func fromNull(s sql.NullString) odds.Amount {
	if !s.Valid {
		return odds.Unknown
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return odds.Unknown
	}
	return odds.KnownDecimal(d)
}
