package cycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/racing-odds-monitor/internal/betfair"
	"github.com/radieske/racing-odds-monitor/internal/racing/alert"
	"github.com/radieske/racing-odds-monitor/internal/racing/compare"
	"github.com/radieske/racing-odds-monitor/internal/racing/ingest"
	"github.com/radieske/racing-odds-monitor/internal/racing/odds"
	"github.com/radieske/racing-odds-monitor/internal/racing/snapshot"
	"github.com/radieske/racing-odds-monitor/pkg/contracts/events"
)

type Mode string

const (
	ModeBasic   Mode = "basic"
	ModeCompare Mode = "compare"
)

// Source entrega o catálogo e os books do dia.
type Source interface {
	FetchSnapshot(ctx context.Context, day time.Time) (betfair.Snapshot, error)
}

type AlertPublisher interface {
	PublishAlert(ctx context.Context, e events.AlertRaised) error
}

type ComparisonPublisher interface {
	PublishComparison(ctx context.Context, e events.ComparisonUpdated) error
}

// Runner executa um ciclo síncrono por chamada. Nada do lote atual fica
// guardado entre ciclos: ingest devolve valores e o diff os recebe.
type Runner struct {
	Log         *zap.Logger
	Source      Source
	Normalizer  *ingest.Normalizer
	Store       snapshot.Store
	Ledger      alert.Ledger
	Alerts      AlertPublisher
	Comparisons ComparisonPublisher // opcional

	Ceiling   float64
	RowCap    int
	Threshold float64
	// Exclusive usa Ledger.Claim (check-and-set atômico) antes de publicar,
	// necessário quando mais de um ciclo roda ao mesmo tempo.
	Exclusive bool

	Location *time.Location
	Now      func() time.Time

	OnCycle    func(mode Mode, outcome string) // métricas
	OnIngested func(n int)
	OnStored   func(n int)
	OnFault    func(kind string)
	OnDiffRows func(n int)
	OnAlerted  func(n int)
}

type BasicResult struct {
	CycleID string
	Date    string
	Fetched int
	Stored  int
	Faults  int
}

type CompareResult struct {
	CycleID string
	Date    string
	Ranked  []odds.Difference
	Groups  []compare.Group
	Alerted []string
}

func (r *Runner) now() time.Time {
	loc := r.Location
	if loc == nil {
		loc = time.UTC
	}
	if r.Now == nil {
		return time.Now().In(loc)
	}
	return r.Now().In(loc)
}

func (r *Runner) logger() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}

// RunBasic busca, normaliza, filtra pelo teto e grava o snapshot do dia.
func (r *Runner) RunBasic(ctx context.Context) (res BasicResult, err error) {
	now := r.now()
	res = BasicResult{CycleID: uuid.NewString(), Date: odds.DateOf(now)}
	log := r.logger().With(zap.String("cycle_id", res.CycleID), zap.String("mode", string(ModeBasic)))
	defer func() { r.finish(ModeBasic, err, log) }()

	current, faults, err := r.fetch(ctx, now)
	if errors.Is(err, betfair.ErrNoMarkets) {
		log.Info("no race markets today", zap.String("date", res.Date))
		return res, nil
	}
	if err != nil {
		return res, err
	}
	res.Fetched, res.Faults = len(current), faults

	accepted := ingest.FilterByCeiling(current, r.Ceiling)
	res.Stored, err = snapshot.UpsertAll(ctx, r.Store, accepted)
	if r.OnStored != nil {
		r.OnStored(res.Stored)
	}
	if err != nil {
		return res, fmt.Errorf("store snapshot: %w", err)
	}

	log.Info("snapshot stored",
		zap.String("date", res.Date),
		zap.Int("fetched", res.Fetched),
		zap.Int("stored", res.Stored),
		zap.Int("faults", res.Faults),
	)
	return res, nil
}

// RunCompare compara o lote atual com o baseline do dia, ranqueia e dispara
// alertas para cavalos ainda não notificados.
func (r *Runner) RunCompare(ctx context.Context) (res CompareResult, err error) {
	now := r.now()
	res = CompareResult{CycleID: uuid.NewString(), Date: odds.DateOf(now)}
	log := r.logger().With(zap.String("cycle_id", res.CycleID), zap.String("mode", string(ModeCompare)))
	defer func() { r.finish(ModeCompare, err, log) }()

	current, _, err := r.fetch(ctx, now)
	if errors.Is(err, betfair.ErrNoMarkets) {
		log.Info("no race markets today", zap.String("date", res.Date))
		return res, nil
	}
	if err != nil {
		return res, err
	}

	differ := compare.NewDiffer(r.Store, r.Ceiling, r.Location)
	differ.Now = func() time.Time { return now }
	rows, err := differ.Diff(ctx, current, res.Date)
	if err != nil {
		return res, err
	}
	if r.OnDiffRows != nil {
		r.OnDiffRows(len(rows))
	}

	res.Ranked = compare.Rank(rows, r.RowCap)
	res.Groups = compare.GroupByPostTime(res.Ranked)

	if r.Comparisons != nil {
		e := events.ComparisonUpdated{
			CycleID:      res.CycleID,
			ObservedDate: res.Date,
			GeneratedAt:  now,
			Rows:         compare.ToRows(res.Ranked),
			Groups:       compare.ToGroups(res.Groups),
		}
		if perr := r.Comparisons.PublishComparison(ctx, e); perr != nil {
			// a tabela é só exibição; alerta segue
			log.Warn("comparison publish failed", zap.Error(perr))
		}
	}

	res.Alerted, err = r.alert(ctx, res, now)
	if err != nil {
		return res, err
	}

	log.Info("comparison done",
		zap.String("date", res.Date),
		zap.Int("diff_rows", len(rows)),
		zap.Int("ranked", len(res.Ranked)),
		zap.Int("groups", len(res.Groups)),
		zap.Strings("alerted", res.Alerted),
	)
	return res, nil
}

func (r *Runner) alert(ctx context.Context, res CompareResult, now time.Time) ([]string, error) {
	candidates := compare.Alertable(res.Ranked, r.Threshold)
	if len(candidates) == 0 {
		return nil, nil
	}

	var (
		fresh []string
		err   error
	)
	if r.Exclusive {
		fresh, err = r.Ledger.Claim(ctx, candidates, res.Date)
	} else {
		fresh, err = r.Ledger.FilterNew(ctx, candidates, res.Date)
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}
	if len(fresh) == 0 {
		return nil, nil
	}

	e := events.AlertRaised{
		AlertID:      uuid.NewString(),
		CycleID:      res.CycleID,
		ObservedDate: res.Date,
		Horses:       fresh,
		Rows:         compare.ToRows(compare.RowsFor(res.Ranked, fresh)),
		Threshold:    r.Threshold,
		RaisedAt:     now,
	}
	if err := r.Alerts.PublishAlert(ctx, e); err != nil {
		// sem Record: os nomes voltam a ser candidatos no próximo ciclo
		return nil, fmt.Errorf("publish alert: %w", err)
	}
	if !r.Exclusive {
		if err := r.Ledger.Record(ctx, fresh, res.Date); err != nil {
			return nil, fmt.Errorf("ledger record: %w", err)
		}
	}
	if r.OnAlerted != nil {
		r.OnAlerted(len(fresh))
	}
	return fresh, nil
}

func (r *Runner) fetch(ctx context.Context, now time.Time) ([]odds.Record, int, error) {
	snap, err := r.Source.FetchSnapshot(ctx, now)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch odds: %w", err)
	}
	records, faults := r.Normalizer.Normalize(snap.Catalogue, snap.Books)
	if r.OnIngested != nil {
		r.OnIngested(len(records))
	}
	if r.OnFault != nil {
		for _, f := range faults {
			r.OnFault(string(f.Kind))
		}
	}
	return records, len(faults), nil
}

func (r *Runner) finish(mode Mode, err error, log *zap.Logger) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		log.Error("cycle failed", zap.Error(err))
	}
	if r.OnCycle != nil {
		r.OnCycle(mode, outcome)
	}
}

// Loop roda o modo escolhido imediatamente e depois a cada interval até o
// contexto ser cancelado. Erros de um ciclo não param o loop.
func (r *Runner) Loop(ctx context.Context, mode Mode, interval time.Duration) error {
	run := r.runOnce(mode)
	if run == nil {
		return fmt.Errorf("unknown mode %q", mode)
	}
	if interval <= 0 {
		return fmt.Errorf("invalid poll interval %s", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	run(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			run(ctx)
		}
	}
}

func (r *Runner) runOnce(mode Mode) func(context.Context) {
	switch mode {
	case ModeBasic:
		return func(ctx context.Context) { _, _ = r.RunBasic(ctx) }
	case ModeCompare:
		return func(ctx context.Context) { _, _ = r.RunCompare(ctx) }
	}
	return nil
}
